package trie

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"treasurehunt/storage"
)

func TestTrieCommitFlushPersistsData(t *testing.T) {
	dir := t.TempDir()

	db1, err := storage.NewLevelDB(dir)
	require.NoError(t, err)

	tr, err := NewTrie(db1, nil)
	require.NoError(t, err)

	key := crypto.Keccak256Hash([]byte("key"))
	value := []byte("value")

	require.NoError(t, tr.Update(key.Bytes(), value))
	root, err := tr.Commit(0)
	require.NoError(t, err)

	require.NoError(t, db1.Close())

	db2, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()

	restored, err := NewTrie(db2, root.Bytes())
	require.NoError(t, err)

	got, err := restored.Get(key.Bytes())
	require.NoError(t, err)
	require.Equal(t, value, got)
}

func TestTrieCopyIsolatesMutations(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()

	tr, err := NewTrie(db, nil)
	require.NoError(t, err)

	key := crypto.Keccak256Hash([]byte("treasure"))
	require.NoError(t, tr.Update(key.Bytes(), []byte("unclaimed")))

	working := tr.Copy()
	require.NoError(t, working.Update(key.Bytes(), []byte("claimed")))

	original, err := tr.Get(key.Bytes())
	require.NoError(t, err)
	require.Equal(t, []byte("unclaimed"), original)

	mutated, err := working.Get(key.Bytes())
	require.NoError(t, err)
	require.Equal(t, []byte("claimed"), mutated)
	require.NotEqual(t, tr.Hash(), working.Hash())
}

func TestTrieResetDiscardsUncommittedChanges(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()

	tr, err := NewTrie(db, nil)
	require.NoError(t, err)

	key := crypto.Keccak256Hash([]byte("k"))
	require.NoError(t, tr.Update(key.Bytes(), []byte("v1")))
	root, err := tr.Commit(1)
	require.NoError(t, err)

	require.False(t, tr.Dirty())

	require.NoError(t, tr.Update(key.Bytes(), []byte("v2")))
	require.True(t, tr.Dirty())
	require.NoError(t, tr.Reset(root))

	got, err := tr.Get(key.Bytes())
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), got)
	require.Equal(t, root, tr.Root())
}
