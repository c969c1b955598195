package state

import (
	"treasurehunt/crypto"
	"treasurehunt/native/metadata"
)

// storedEdition makes the unlimited/zero distinction explicit since RLP
// encodes a nil pointer and a zero integer identically.
type storedEdition struct {
	Address      crypto.Address
	Mint         crypto.Address
	Supply       uint64
	HasMaxSupply bool
	MaxSupply    uint64
}

// MetadataGet loads a metadata account.
func (m *Manager) MetadataGet(addr crypto.Address) (*metadata.Metadata, bool, error) {
	md := new(metadata.Metadata)
	ok, err := m.KVGet(prefixedKey(metadataPrefix, addr.Bytes()), md)
	if err != nil || !ok {
		return nil, ok, err
	}
	return md, true, nil
}

// MetadataPut stores a metadata account under its own address.
func (m *Manager) MetadataPut(md *metadata.Metadata) error {
	return m.KVPut(prefixedKey(metadataPrefix, md.Address.Bytes()), md)
}

// EditionGet loads a master edition.
func (m *Manager) EditionGet(addr crypto.Address) (*metadata.MasterEdition, bool, error) {
	var stored storedEdition
	ok, err := m.KVGet(prefixedKey(editionPrefix, addr.Bytes()), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	ed := &metadata.MasterEdition{Address: stored.Address, Mint: stored.Mint, Supply: stored.Supply}
	if stored.HasMaxSupply {
		v := stored.MaxSupply
		ed.MaxSupply = &v
	}
	return ed, true, nil
}

// EditionPut stores a master edition under its own address.
func (m *Manager) EditionPut(ed *metadata.MasterEdition) error {
	stored := storedEdition{Address: ed.Address, Mint: ed.Mint, Supply: ed.Supply}
	if ed.MaxSupply != nil {
		stored.HasMaxSupply = true
		stored.MaxSupply = *ed.MaxSupply
	}
	return m.KVPut(prefixedKey(editionPrefix, ed.Address.Bytes()), stored)
}
