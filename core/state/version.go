package state

import (
	"errors"
	"fmt"
)

// SchemaVersion identifies the layout of everything this package writes.
// Bump it whenever a stored encoding changes.
const SchemaVersion uint64 = 1

var (
	schemaKey = []byte("hunt/schema")

	ErrSchemaMismatch = errors.New("state: schema version mismatch")
	ErrChainMismatch  = errors.New("state: data directory belongs to another chain")
)

type schemaRecord struct {
	Version uint64
	ChainID string
}

// WriteSchema stamps a fresh state with the schema version and chain id.
func (m *Manager) WriteSchema(chainID string) error {
	if chainID == "" {
		return fmt.Errorf("state: chain id required")
	}
	return m.KVPut(schemaKey, schemaRecord{Version: SchemaVersion, ChainID: chainID})
}

// CheckSchema refuses state written by another binary layout or chain.
func (m *Manager) CheckSchema(chainID string) error {
	var rec schemaRecord
	ok, err := m.KVGet(schemaKey, &rec)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: no schema record", ErrSchemaMismatch)
	}
	if rec.Version != SchemaVersion {
		return fmt.Errorf("%w: on-disk=%d expected=%d", ErrSchemaMismatch, rec.Version, SchemaVersion)
	}
	if rec.ChainID != chainID {
		return fmt.Errorf("%w: stored %q, configured %q", ErrChainMismatch, rec.ChainID, chainID)
	}
	return nil
}
