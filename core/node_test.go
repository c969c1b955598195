package core

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	hstate "treasurehunt/core/state"
	"treasurehunt/core/types"
	"treasurehunt/crypto"
	"treasurehunt/native/token"
	"treasurehunt/native/treasure"
	"treasurehunt/storage"
)

type testClock struct {
	mu  sync.Mutex
	now int64
}

func (c *testClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(ts int64) {
	c.mu.Lock()
	c.now = ts
	c.mu.Unlock()
}

func newTestNode(t *testing.T, clock *testClock) *Node {
	t.Helper()
	db := storage.NewMemDB()
	receipts, err := storage.OpenReceiptStore("")
	require.NoError(t, err)
	t.Cleanup(func() {
		receipts.Close()
		db.Close()
	})
	node, err := NewNode(db, receipts, Options{Now: clock.Now})
	require.NoError(t, err)
	return node
}

func newKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return key
}

func createTx(t *testing.T, node *Node, authority *crypto.PrivateKey, in treasure.CreateInstruction) *types.Transaction {
	t.Helper()
	from := authority.PubKey().Address()
	nonce, err := node.Nonce(from)
	require.NoError(t, err)
	tx, err := types.NewTransaction(node.ChainID(), types.TxTypeCreateTreasure, nonce, from, in)
	require.NoError(t, err)
	require.NoError(t, tx.Sign(authority))
	return tx
}

func discoverTx(t *testing.T, node *Node, finder, authority *crypto.PrivateKey, nonce uint64, in treasure.DiscoverInstruction) *types.Transaction {
	t.Helper()
	tx, err := types.NewTransaction(node.ChainID(), types.TxTypeDiscoverTreasure, nonce, finder.PubKey().Address(), in)
	require.NoError(t, err)
	tx.SetCosigner(authority.PubKey().Address())
	require.NoError(t, tx.Sign(finder))
	require.NoError(t, tx.Cosign(authority))
	return tx
}

func caveInstruction() treasure.CreateInstruction {
	return treasure.CreateInstruction{
		Name:         "Cave",
		Symbol:       "CAVE",
		URI:          "https://example.com/cave.json",
		LocationLat:  37.7749,
		LocationLng:  -122.4194,
		RewardAmount: 1000,
	}
}

func createCave(t *testing.T, node *Node, authority *crypto.PrivateKey) *treasure.Record {
	t.Helper()
	_, err := node.SubmitTransaction(context.Background(), createTx(t, node, authority, caveInstruction()))
	require.NoError(t, err)
	addr, err := treasure.TreasureAddress(authority.PubKey().Address(), "Cave")
	require.NoError(t, err)
	record, err := node.Treasure(addr)
	require.NoError(t, err)
	return record
}

func claimOf(record *treasure.Record) treasure.DiscoverInstruction {
	return treasure.DiscoverInstruction{Treasure: record.Address, Mint: record.Treasure.Mint}
}

func TestCaveScenario(t *testing.T) {
	clock := &testClock{now: 1_700_000_000}
	node := newTestNode(t, clock)
	authority, finder := newKey(t), newKey(t)

	record := createCave(t, node, authority)
	require.False(t, record.Treasure.IsFound)
	require.True(t, record.Treasure.Finder.IsZero())
	require.Zero(t, record.Treasure.FoundAt)

	clock.Set(1_700_000_100)
	receipt, err := node.SubmitTransaction(context.Background(), discoverTx(t, node, finder, authority, 0, claimOf(record)))
	require.NoError(t, err)
	require.True(t, receipt.Succeeded())
	require.Equal(t, uint64(2), receipt.Height)

	claimed, err := node.Treasure(record.Address)
	require.NoError(t, err)
	require.True(t, claimed.Treasure.IsFound)
	require.Equal(t, finder.PubKey().Address(), claimed.Treasure.Finder)
	require.Equal(t, uint64(1000), claimed.Treasure.RewardAmount)
	require.Equal(t, int64(1_700_000_100), claimed.Treasure.FoundAt)

	balance, err := node.TokenBalance(finder.PubKey().Address(), record.Treasure.Mint)
	require.NoError(t, err)
	require.Equal(t, uint64(1), balance.Uint64())

	var eventTypes []string
	for _, evt := range receipt.Events {
		eventTypes = append(eventTypes, evt.Type)
	}
	require.Contains(t, eventTypes, treasure.EventTypeTreasureDiscovered)
	require.Contains(t, eventTypes, treasure.EventTypeRewardAdvised)

	stored, err := node.Receipt(receipt.TxHash)
	require.NoError(t, err)
	require.Equal(t, receipt.StateRoot, stored.StateRoot)

	md, ed, err := node.Metadata(record.Treasure.Mint)
	require.NoError(t, err)
	require.Equal(t, "Cave", md.Name)
	require.NotNil(t, ed)
	require.NotNil(t, ed.MaxSupply)
}

func TestDiscoverRaceHasSingleWinner(t *testing.T) {
	clock := &testClock{now: 1_700_000_000}
	node := newTestNode(t, clock)
	authority := newKey(t)
	record := createCave(t, node, authority)

	finders := []*crypto.PrivateKey{newKey(t), newKey(t)}
	txs := make([]*types.Transaction, len(finders))
	for i, finder := range finders {
		txs[i] = discoverTx(t, node, finder, authority, 0, claimOf(record))
	}

	var wg sync.WaitGroup
	errs := make([]error, len(txs))
	for i := range txs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = node.SubmitTransaction(context.Background(), txs[i])
		}(i)
	}
	wg.Wait()

	succeeded, alreadyFound := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, treasure.ErrTreasureAlreadyFound):
			alreadyFound++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, alreadyFound)

	mint, err := node.TokenMint(record.Treasure.Mint)
	require.NoError(t, err)
	require.Equal(t, uint64(1), mint.Supply.Uint64())
}

func TestFailedDiscoverLeavesStateUntouched(t *testing.T) {
	clock := &testClock{now: 1_700_000_000}
	node := newTestNode(t, clock)
	authority, finder := newKey(t), newKey(t)
	record := createCave(t, node, authority)

	_, err := node.SubmitTransaction(context.Background(), discoverTx(t, node, finder, authority, 0, claimOf(record)))
	require.NoError(t, err)

	before, err := node.Treasure(record.Address)
	require.NoError(t, err)
	beforeBytes, err := treasure.Encode(before.Treasure)
	require.NoError(t, err)
	rootBefore := node.StateRoot()
	heightBefore := node.Height()

	clock.Set(1_800_000_000)
	receipt, err := node.SubmitTransaction(context.Background(), discoverTx(t, node, finder, authority, 1, claimOf(record)))
	require.ErrorIs(t, err, treasure.ErrTreasureAlreadyFound)
	require.ErrorIs(t, err, ErrExecutionFailed)
	require.NotNil(t, receipt)
	require.Equal(t, types.ReceiptStatusFailed, receipt.Status)
	require.Empty(t, receipt.Events)

	after, err := node.Treasure(record.Address)
	require.NoError(t, err)
	afterBytes, err := treasure.Encode(after.Treasure)
	require.NoError(t, err)
	if !bytes.Equal(beforeBytes, afterBytes) {
		t.Fatalf("treasure account changed after failed discover")
	}
	require.Equal(t, rootBefore, node.StateRoot())
	require.Equal(t, heightBefore, node.Height())

	balance, err := node.TokenBalance(finder.PubKey().Address(), record.Treasure.Mint)
	require.NoError(t, err)
	require.Equal(t, uint64(1), balance.Uint64())

	// The failed transaction did not consume the nonce.
	nonce, err := node.Nonce(finder.PubKey().Address())
	require.NoError(t, err)
	require.Equal(t, uint64(1), nonce)
}

// rewriteCommitted applies fn directly to committed state, outside any
// transaction.
func rewriteCommitted(t *testing.T, node *Node, fn func(*hstate.Manager) error) {
	t.Helper()
	node.stateMu.Lock()
	defer node.stateMu.Unlock()
	require.NoError(t, fn(hstate.NewManager(node.trie)))
	root, err := node.trie.Commit(node.height)
	require.NoError(t, err)
	require.NoError(t, node.db.Put(headRootKey, root.Bytes()))
}

func TestFailedMintRollsBackDiscovery(t *testing.T) {
	clock := &testClock{now: 1_700_000_000}
	node := newTestNode(t, clock)
	authority, finder, stranger := newKey(t), newKey(t), newKey(t)
	record := createCave(t, node, authority)

	rewriteCommitted(t, node, func(m *hstate.Manager) error {
		mint, ok, err := m.TokenMintGet(record.Treasure.Mint)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("mint missing")
		}
		mint.MintAuthority = stranger.PubKey().Address()
		return m.TokenMintPut(mint)
	})
	rootBefore := node.StateRoot()
	heightBefore := node.Height()

	receipt, err := node.SubmitTransaction(context.Background(), discoverTx(t, node, finder, authority, 0, claimOf(record)))
	require.ErrorIs(t, err, token.ErrAuthorityMismatch)
	require.ErrorIs(t, err, ErrExecutionFailed)
	require.Equal(t, types.ReceiptStatusFailed, receipt.Status)
	require.Empty(t, receipt.Events)

	after, err := node.Treasure(record.Address)
	require.NoError(t, err)
	if after.Treasure.IsFound {
		t.Fatalf("treasure marked found although minting failed")
	}
	require.Equal(t, crypto.ZeroAddress, after.Treasure.Finder)
	require.Zero(t, after.Treasure.FoundAt)
	require.Equal(t, rootBefore, node.StateRoot())
	require.Equal(t, heightBefore, node.Height())

	balance, err := node.TokenBalance(finder.PubKey().Address(), record.Treasure.Mint)
	require.NoError(t, err)
	require.True(t, balance.IsZero())

	mint, err := node.TokenMint(record.Treasure.Mint)
	require.NoError(t, err)
	require.Zero(t, mint.Supply.Uint64())
}

func TestFailedCreateRollsBackCollaborators(t *testing.T) {
	clock := &testClock{now: 1_700_000_000}
	node := newTestNode(t, clock)
	authority := newKey(t)

	bogus := crypto.Address{0x01}
	in := caveInstruction()
	in.MasterEdition = &bogus
	_, err := node.SubmitTransaction(context.Background(), createTx(t, node, authority, in))
	require.Error(t, err)

	mint := treasure.MintAddress(mustTreasureAddress(t, authority, "Cave"))
	_, err = node.TokenMint(mint)
	require.Error(t, err, "mint must not survive a failed create")

	_, total, err := node.Treasures(0, 0)
	require.NoError(t, err)
	require.Zero(t, total)

	createCave(t, node, authority)
}

func mustTreasureAddress(t *testing.T, authority *crypto.PrivateKey, seed string) crypto.Address {
	t.Helper()
	addr, err := treasure.TreasureAddress(authority.PubKey().Address(), seed)
	require.NoError(t, err)
	return addr
}

func TestSubmitRejections(t *testing.T) {
	clock := &testClock{now: 1_700_000_000}
	node := newTestNode(t, clock)
	authority, finder, stranger := newKey(t), newKey(t), newKey(t)
	record := createCave(t, node, authority)

	tx := createTx(t, node, authority, treasure.CreateInstruction{Name: "Second", Symbol: "TWO"})
	_, err := node.SubmitTransaction(context.Background(), tx)
	require.NoError(t, err)
	_, err = node.SubmitTransaction(context.Background(), tx)
	require.ErrorIs(t, err, ErrDuplicateTransaction)

	stale, err := types.NewTransaction(node.ChainID(), types.TxTypeCreateTreasure, 0, authority.PubKey().Address(), treasure.CreateInstruction{Name: "Third"})
	require.NoError(t, err)
	require.NoError(t, stale.Sign(authority))
	_, err = node.SubmitTransaction(context.Background(), stale)
	require.ErrorIs(t, err, ErrNonceMismatch)

	foreign, err := types.NewTransaction("other-chain", types.TxTypeCreateTreasure, 2, authority.PubKey().Address(), treasure.CreateInstruction{Name: "Fourth"})
	require.NoError(t, err)
	require.NoError(t, foreign.Sign(authority))
	_, err = node.SubmitTransaction(context.Background(), foreign)
	require.ErrorIs(t, err, types.ErrChainIDMismatch)

	solo, err := types.NewTransaction(node.ChainID(), types.TxTypeDiscoverTreasure, 0, finder.PubKey().Address(), claimOf(record))
	require.NoError(t, err)
	require.NoError(t, solo.Sign(finder))
	_, err = node.SubmitTransaction(context.Background(), solo)
	require.ErrorIs(t, err, types.ErrMissingCosigner)

	forged := discoverTx(t, node, finder, stranger, 0, claimOf(record))
	_, err = node.SubmitTransaction(context.Background(), forged)
	require.ErrorIs(t, err, treasure.ErrUnauthorized)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = node.SubmitTransaction(ctx, discoverTx(t, node, finder, authority, 0, claimOf(record)))
	require.ErrorIs(t, err, context.Canceled)
}

func TestClockNeverRunsBackwards(t *testing.T) {
	clock := &testClock{now: 1_700_000_000}
	node := newTestNode(t, clock)
	authority, finder := newKey(t), newKey(t)
	record := createCave(t, node, authority)

	clock.Set(1_600_000_000)
	receipt, err := node.SubmitTransaction(context.Background(), discoverTx(t, node, finder, authority, 0, claimOf(record)))
	require.NoError(t, err)
	require.Equal(t, int64(1_700_000_000), receipt.Timestamp)

	claimed, err := node.Treasure(record.Address)
	require.NoError(t, err)
	require.GreaterOrEqual(t, claimed.Treasure.FoundAt, record.CreatedAt)
}

func TestEventsPublishedOnlyOnCommit(t *testing.T) {
	clock := &testClock{now: 1_700_000_000}
	node := newTestNode(t, clock)
	ch, cancel := node.Subscribe(16)
	defer cancel()

	authority, finder := newKey(t), newKey(t)
	record := createCave(t, node, authority)

	drained := 0
	for len(ch) > 0 {
		<-ch
		drained++
	}
	require.Equal(t, 4, drained)

	_, err := node.SubmitTransaction(context.Background(), discoverTx(t, node, finder, authority, 0, treasure.DiscoverInstruction{
		Treasure: record.Address,
		Mint:     crypto.Address{0x09},
	}))
	require.ErrorIs(t, err, treasure.ErrMintMismatch)
	require.Zero(t, len(ch))
}

func TestStatePersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	clock := &testClock{now: 1_700_000_000}
	authority := newKey(t)

	open := func() (*Node, func()) {
		db, err := storage.NewLevelDB(dir)
		require.NoError(t, err)
		receipts, err := storage.OpenReceiptStore(dir)
		require.NoError(t, err)
		node, err := NewNode(db, receipts, Options{Now: clock.Now})
		require.NoError(t, err)
		return node, func() {
			receipts.Close()
			db.Close()
		}
	}

	node, closeFn := open()
	record := createCave(t, node, authority)
	root := node.StateRoot()
	closeFn()

	reopened, closeFn := open()
	defer closeFn()
	require.Equal(t, root, reopened.StateRoot())
	require.Equal(t, uint64(1), reopened.Height())
	got, err := reopened.Treasure(record.Address)
	require.NoError(t, err)
	require.Equal(t, "Cave", got.Treasure.Name)

	nonce, err := reopened.Nonce(authority.PubKey().Address())
	require.NoError(t, err)
	require.Equal(t, uint64(1), nonce)
}

func TestReopenRejectsForeignChain(t *testing.T) {
	dir := t.TempDir()
	open := func(chainID string) (*Node, func(), error) {
		db, err := storage.NewLevelDB(dir)
		require.NoError(t, err)
		receipts, err := storage.OpenReceiptStore(dir)
		require.NoError(t, err)
		node, err := NewNode(db, receipts, Options{ChainID: chainID})
		return node, func() {
			receipts.Close()
			db.Close()
		}, err
	}

	node, closeFn, err := open("hunt-a")
	require.NoError(t, err)
	require.Equal(t, "hunt-a", node.ChainID())
	closeFn()

	_, closeFn, err = open("hunt-b")
	defer closeFn()
	require.ErrorIs(t, err, hstate.ErrChainMismatch)
}
