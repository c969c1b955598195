package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReceiptStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := OpenReceiptStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Put([]byte{0x01}, []byte(`{"status":"ok"}`)))
	require.NoError(t, store.Close())

	reopened, err := OpenReceiptStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	value, ok, err := reopened.Get([]byte{0x01})
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"status":"ok"}`, string(value))

	_, ok, err = reopened.Get([]byte{0x02})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemDBGetMissingKey(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	_, err := db.Get([]byte("missing"))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)

	receipts, err := OpenReceiptStore("")
	require.NoError(t, err)
	defer receipts.Close()
	ok, err := receipts.Has([]byte{0xAA})
	require.NoError(t, err)
	require.False(t, ok)
}
