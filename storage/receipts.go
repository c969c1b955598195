package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/syndtr/goleveldb/leveldb"
	lvlstorage "github.com/syndtr/goleveldb/leveldb/storage"
)

const (
	receiptsDirName  = "receipts"
	receiptKeyPrefix = "receipt:"
)

// ReceiptStore persists execution receipts keyed by transaction hash. Because
// a hash is only ever executed once, the store also serves as the replay guard.
type ReceiptStore struct {
	db *leveldb.DB
}

// OpenReceiptStore opens (or creates) the receipt database under dataDir. An
// empty dataDir yields an in-memory store.
func OpenReceiptStore(dataDir string) (*ReceiptStore, error) {
	trimmed := strings.TrimSpace(dataDir)
	if trimmed == "" {
		db, err := leveldb.Open(lvlstorage.NewMemStorage(), nil)
		if err != nil {
			return nil, fmt.Errorf("open in-memory receipt store: %w", err)
		}
		return &ReceiptStore{db: db}, nil
	}
	abs, err := filepath.Abs(filepath.Join(trimmed, receiptsDirName))
	if err != nil {
		return nil, fmt.Errorf("resolve receipt store path: %w", err)
	}
	db, err := leveldb.OpenFile(abs, nil)
	if err != nil {
		return nil, fmt.Errorf("open receipt store: %w", err)
	}
	return &ReceiptStore{db: db}, nil
}

// Close releases the underlying LevelDB resources.
func (s *ReceiptStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func receiptKey(hash []byte) []byte {
	return append([]byte(receiptKeyPrefix), hash...)
}

// Put stores an encoded receipt.
func (s *ReceiptStore) Put(hash []byte, encoded []byte) error {
	if len(hash) == 0 {
		return fmt.Errorf("receipt hash required")
	}
	return s.db.Put(receiptKey(hash), encoded, nil)
}

// Get loads an encoded receipt. The boolean reports whether it existed.
func (s *ReceiptStore) Get(hash []byte) ([]byte, bool, error) {
	value, err := s.db.Get(receiptKey(hash), nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("load receipt: %w", err)
	}
	return value, true, nil
}

// Has reports whether a receipt exists for hash.
func (s *ReceiptStore) Has(hash []byte) (bool, error) {
	return s.db.Has(receiptKey(hash), nil)
}
