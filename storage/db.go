package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/triedb"
)

const (
	stateDirName    = "state"
	defaultCacheMB  = 64
	defaultHandles  = 256
	metricNamespace = "treasurehunt/state/"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("storage: key not found")

// Database is a generic interface for a key-value store backing the state trie.
// This allows the runtime to use any database backend (in-memory or persistent).
type Database interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	// TrieDB exposes the node database shared by every trie opened on this store.
	TrieDB() *triedb.Database
	Close() error
}

type chainDB struct {
	disk   ethdb.Database
	trieDB *triedb.Database
}

// NewMemDB returns an in-memory database, used by tests and ephemeral nodes.
func NewMemDB() Database {
	return wrap(rawdb.NewMemoryDatabase())
}

// NewLevelDB creates or opens a LevelDB-backed database under dataDir.
func NewLevelDB(dataDir string) (Database, error) {
	trimmed := strings.TrimSpace(dataDir)
	if trimmed == "" {
		return nil, fmt.Errorf("storage: data directory required")
	}
	kv, err := leveldb.New(filepath.Join(trimmed, stateDirName), defaultCacheMB, defaultHandles, metricNamespace, false)
	if err != nil {
		return nil, fmt.Errorf("storage: open leveldb: %w", err)
	}
	return wrap(rawdb.NewDatabase(kv)), nil
}

func wrap(disk ethdb.Database) *chainDB {
	return &chainDB{
		disk:   disk,
		trieDB: triedb.NewDatabase(disk, triedb.HashDefaults),
	}
}

func (db *chainDB) Put(key []byte, value []byte) error {
	return db.disk.Put(key, value)
}

func (db *chainDB) Get(key []byte) ([]byte, error) {
	ok, err := db.disk.Has(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return db.disk.Get(key)
}

func (db *chainDB) Has(key []byte) (bool, error) {
	return db.disk.Has(key)
}

func (db *chainDB) TrieDB() *triedb.Database {
	return db.trieDB
}

// Close flushes the trie database and closes the backing store.
func (db *chainDB) Close() error {
	var errs []error
	if err := db.trieDB.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := db.disk.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
