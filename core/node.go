package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"treasurehunt/core/events"
	hstate "treasurehunt/core/state"
	"treasurehunt/core/types"
	"treasurehunt/crypto"
	"treasurehunt/native/metadata"
	"treasurehunt/native/token"
	"treasurehunt/native/treasure"
	"treasurehunt/observability"
	"treasurehunt/storage"
	"treasurehunt/storage/trie"
)

var headRootKey = []byte("treasurehunt/head-root")

var tracer = otel.Tracer("treasurehunt/core")

// Options tunes the runtime.
type Options struct {
	ChainID               string
	ProximityRadiusMeters float64
	// Now supplies wall-clock seconds. Timestamps handed to programs never go
	// backwards even when Now does.
	Now    func() int64
	Logger *slog.Logger
}

// Node executes treasure hunt transactions one at a time. Each transaction runs
// against a copy of the state trie that is adopted on success and dropped on
// failure, so a failed transaction leaves no trace in state.
type Node struct {
	db       storage.Database
	receipts *storage.ReceiptStore
	bus      *events.Bus
	logger   *slog.Logger

	chainID         string
	proximityRadius float64
	nowFn           func() int64

	stateMu sync.Mutex
	trie    *trie.Trie
	height  uint64
}

// NewNode opens the committed state in db, initialising an empty state on
// first start.
func NewNode(db storage.Database, receipts *storage.ReceiptStore, opts Options) (*Node, error) {
	if db == nil || receipts == nil {
		return nil, errors.New("core: database and receipt store required")
	}
	chainID := strings.TrimSpace(opts.ChainID)
	if chainID == "" {
		chainID = types.DefaultChainID
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = func() int64 { return time.Now().Unix() }
	}

	var root []byte
	stored, err := db.Get(headRootKey)
	switch {
	case err == nil:
		root = stored
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, fmt.Errorf("core: load head root: %w", err)
	}
	stateTrie, err := trie.NewTrie(db, root)
	if err != nil {
		return nil, fmt.Errorf("core: open state: %w", err)
	}

	n := &Node{
		db:              db,
		receipts:        receipts,
		bus:             events.NewBus(),
		logger:          logger.With("component", "runtime"),
		chainID:         chainID,
		proximityRadius: opts.ProximityRadiusMeters,
		nowFn:           nowFn,
		trie:            stateTrie,
	}
	if len(root) == 0 {
		if err := n.initGenesis(); err != nil {
			return nil, err
		}
	} else if err := hstate.NewManager(stateTrie).CheckSchema(chainID); err != nil {
		return nil, err
	}
	height, err := hstate.NewManager(n.trie).Height()
	if err != nil {
		return nil, err
	}
	n.height = height
	observability.Runtime().SetHeight(height)
	return n, nil
}

func (n *Node) initGenesis() error {
	manager := hstate.NewManager(n.trie)
	if err := manager.WriteSchema(n.chainID); err != nil {
		return err
	}
	root, err := n.trie.Commit(0)
	if err != nil {
		return fmt.Errorf("core: commit genesis: %w", err)
	}
	return n.db.Put(headRootKey, root.Bytes())
}

// ChainID returns the chain identifier transactions must carry.
func (n *Node) ChainID() string { return n.chainID }

// Height returns the number of committed transactions.
func (n *Node) Height() uint64 {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.height
}

// StateRoot returns the committed state root.
func (n *Node) StateRoot() common.Hash {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.trie.Root()
}

// Subscribe streams committed events. Call cancel to release the subscription.
func (n *Node) Subscribe(buffer int) (<-chan *types.Event, func()) {
	return n.bus.Subscribe(buffer)
}

// Nonce returns the next nonce expected from addr.
func (n *Node) Nonce(addr crypto.Address) (uint64, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return hstate.NewManager(n.trie).Nonce(addr)
}

type execution struct {
	manager *hstate.Manager
	buffer  *events.Buffer
	logs    []string
	now     int64
}

func (x *execution) logf(format string, args ...any) {
	x.logs = append(x.logs, fmt.Sprintf(format, args...))
}

func (n *Node) engines(x *execution) (*token.Engine, *metadata.Engine, *treasure.Engine) {
	tokens := token.NewEngine()
	tokens.SetState(x.manager)
	tokens.SetEmitter(x.buffer)

	md := metadata.NewEngine()
	md.SetState(x.manager)
	md.SetEmitter(x.buffer)

	program := treasure.NewEngine()
	program.SetState(x.manager)
	program.SetPrograms(tokens, md)
	program.SetEmitter(x.buffer)
	program.SetNowFunc(func() int64 { return x.now })
	program.SetLogFunc(x.logf)
	program.SetProximityRadius(n.proximityRadius)
	return tokens, md, program
}

func (n *Node) validate(tx *types.Transaction) error {
	if tx == nil {
		return fmt.Errorf("%w: nil transaction", ErrInvalidTransaction)
	}
	if tx.ChainID != n.chainID {
		return fmt.Errorf("%w: got %q", types.ErrChainIDMismatch, tx.ChainID)
	}
	if !tx.Type.Valid() {
		return types.ErrUnknownTxType
	}
	if tx.Type == types.TxTypeDiscoverTreasure && tx.Cosigner == nil {
		return types.ErrMissingCosigner
	}
	return tx.VerifySignatures()
}

// SubmitTransaction validates and executes tx. Transactions rejected before
// execution return an error and no receipt. Executed transactions always
// produce a stored receipt; when the program fails the receipt carries the
// error, the returned error wraps it, and state is left untouched.
func (n *Node) SubmitTransaction(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	ctx, span := tracer.Start(ctx, "core.SubmitTransaction")
	defer span.End()

	receipt, err := n.submit(ctx, tx)
	if receipt != nil {
		span.SetAttributes(
			attribute.String("hunt.tx.type", receipt.Type),
			attribute.String("hunt.tx.status", receipt.Status),
			attribute.Int64("hunt.height", int64(receipt.Height)),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return receipt, err
}

func (n *Node) submit(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := n.validate(tx); err != nil {
		return nil, err
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	seen, err := n.receipts.Has(hash)
	if err != nil {
		return nil, err
	}
	if seen {
		return nil, ErrDuplicateTransaction
	}

	working := n.trie.Copy()
	x := &execution{manager: hstate.NewManager(working), buffer: &events.Buffer{}}

	expected, err := x.manager.Nonce(tx.From)
	if err != nil {
		return nil, err
	}
	if tx.Nonce != expected {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrNonceMismatch, expected, tx.Nonce)
	}
	last, err := x.manager.Clock()
	if err != nil {
		return nil, err
	}
	x.now = n.nowFn()
	if x.now < last {
		x.now = last
	}

	receipt := &types.Receipt{
		TxHash:    hexutil.Bytes(hash),
		Type:      tx.Type.String(),
		Timestamp: x.now,
		Events:    []*types.Event{},
	}
	execErr := n.execute(tx, x)
	if execErr == nil {
		execErr = n.commit(tx, working, x, receipt)
	}
	if execErr != nil {
		receipt.Status = types.ReceiptStatusFailed
		receipt.Error = execErr.Error()
		receipt.Height = n.height
		receipt.Events = []*types.Event{}
		receipt.Logs = x.logs
		receipt.StateRoot = n.trie.Root().Bytes()
		if err := n.storeReceipt(hash, receipt); err != nil {
			return nil, err
		}
		observability.Runtime().ObserveTransaction(receipt.Type, receipt.Status, time.Since(start))
		n.logger.Info("transaction failed",
			slog.String("tx", hexutil.Encode(hash)),
			slog.String("type", receipt.Type),
			slog.String("error", receipt.Error))
		return receipt, fmt.Errorf("%w: %w", ErrExecutionFailed, execErr)
	}

	observability.Runtime().ObserveTransaction(receipt.Type, receipt.Status, time.Since(start))
	observability.Runtime().SetHeight(n.height)
	for _, evt := range receipt.Events {
		observability.Runtime().RecordEvent(evt.Type)
		n.bus.Publish(evt)
	}
	n.logger.Info("transaction committed",
		slog.String("tx", hexutil.Encode(hash)),
		slog.String("type", receipt.Type),
		slog.Uint64("height", receipt.Height))
	return receipt, nil
}

func (n *Node) execute(tx *types.Transaction, x *execution) error {
	_, _, program := n.engines(x)
	switch tx.Type {
	case types.TxTypeCreateTreasure:
		var in treasure.CreateInstruction
		if err := tx.DecodeData(&in); err != nil {
			return err
		}
		_, err := program.CreateTreasure(in.Params(tx.From))
		return err
	case types.TxTypeDiscoverTreasure:
		var in treasure.DiscoverInstruction
		if err := tx.DecodeData(&in); err != nil {
			return err
		}
		authority := *tx.Cosigner
		if !tx.Signed(authority) {
			return treasure.ErrUnauthorized
		}
		_, err := program.DiscoverTreasure(in.Params(tx.From, authority))
		return err
	default:
		return types.ErrUnknownTxType
	}
}

// commit finalises a successful execution and swaps in the working trie.
func (n *Node) commit(tx *types.Transaction, working *trie.Trie, x *execution, receipt *types.Receipt) error {
	nonce, err := x.manager.Nonce(tx.From)
	if err != nil {
		return err
	}
	if err := x.manager.SetNonce(tx.From, nonce+1); err != nil {
		return err
	}
	if err := x.manager.SetClock(x.now); err != nil {
		return err
	}
	height := n.height + 1
	if err := x.manager.SetHeight(height); err != nil {
		return err
	}
	root, err := working.Commit(height)
	if err != nil {
		return fmt.Errorf("core: commit state: %w", err)
	}
	receipt.Status = types.ReceiptStatusSuccess
	receipt.Height = height
	receipt.StateRoot = root.Bytes()
	receipt.Events = x.buffer.Events()
	receipt.Logs = x.logs
	if err := n.db.Put(headRootKey, root.Bytes()); err != nil {
		return fmt.Errorf("core: persist head: %w", err)
	}
	n.trie = working
	n.height = height
	return nil
}

func (n *Node) storeReceipt(hash []byte, receipt *types.Receipt) error {
	encoded, err := json.Marshal(receipt)
	if err != nil {
		return err
	}
	return n.receipts.Put(hash, encoded)
}

// Receipt returns the stored receipt of a transaction hash.
func (n *Node) Receipt(hash []byte) (*types.Receipt, error) {
	data, ok, err := n.receipts.Get(hash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrReceiptNotFound
	}
	receipt := new(types.Receipt)
	if err := json.Unmarshal(data, receipt); err != nil {
		return nil, fmt.Errorf("core: decode receipt: %w", err)
	}
	return receipt, nil
}

// read runs fn against a read-only view of the committed state.
func (n *Node) read(fn func(x *execution) error) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	x := &execution{manager: hstate.NewManager(n.trie.Copy()), buffer: &events.Buffer{}}
	return fn(x)
}

// Treasure returns the treasure stored at addr.
func (n *Node) Treasure(addr crypto.Address) (*treasure.Record, error) {
	var out *treasure.Record
	err := n.read(func(x *execution) error {
		_, _, program := n.engines(x)
		record, err := program.Get(addr)
		out = record
		return err
	})
	return out, err
}

// Treasures lists treasures in creation order with the total count.
func (n *Node) Treasures(offset, limit int) ([]*treasure.Record, int, error) {
	var (
		out   []*treasure.Record
		total int
	)
	err := n.read(func(x *execution) error {
		_, _, program := n.engines(x)
		records, count, err := program.List(offset, limit)
		out, total = records, count
		return err
	})
	return out, total, err
}

// NearbyTreasures returns treasures around a point, nearest first.
func (n *Node) NearbyTreasures(q treasure.NearbyQuery) ([]treasure.NearbyResult, error) {
	var out []treasure.NearbyResult
	err := n.read(func(x *execution) error {
		_, _, program := n.engines(x)
		results, err := program.Nearby(q)
		out = results
		return err
	})
	return out, err
}

// TokenBalance reports owner's balance of mint.
func (n *Node) TokenBalance(owner, mint crypto.Address) (*uint256.Int, error) {
	var out *uint256.Int
	err := n.read(func(x *execution) error {
		tokens, _, _ := n.engines(x)
		balance, err := tokens.Balance(owner, mint)
		out = balance
		return err
	})
	return out, err
}

// TokenMint returns the mint stored at addr.
func (n *Node) TokenMint(addr crypto.Address) (*token.Mint, error) {
	var out *token.Mint
	err := n.read(func(x *execution) error {
		tokens, _, _ := n.engines(x)
		mint, err := tokens.Mint(addr)
		out = mint
		return err
	})
	return out, err
}

// Metadata returns the metadata and master edition of mint. The edition is
// nil when none was created.
func (n *Node) Metadata(mint crypto.Address) (*metadata.Metadata, *metadata.MasterEdition, error) {
	var (
		md *metadata.Metadata
		ed *metadata.MasterEdition
	)
	err := n.read(func(x *execution) error {
		_, program, _ := n.engines(x)
		var err error
		if md, err = program.Metadata(mint); err != nil {
			return err
		}
		ed, err = program.MasterEdition(mint)
		if errors.Is(err, metadata.ErrEditionNotFound) {
			return nil
		}
		return err
	})
	return md, ed, err
}
