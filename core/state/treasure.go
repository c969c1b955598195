package state

import (
	"fmt"

	"treasurehunt/crypto"
)

// TreasureAccountGet returns the raw account bytes of a treasure.
func (m *Manager) TreasureAccountGet(addr crypto.Address) ([]byte, bool, error) {
	return m.KVGetRaw(prefixedKey(treasureAccountPrefix, addr.Bytes()))
}

// TreasureAccountPut stores the raw account bytes of a treasure. The layout is
// kept verbatim so stored accounts match the program's fixed encoding.
func (m *Manager) TreasureAccountPut(addr crypto.Address, data []byte) error {
	return m.KVPutRaw(prefixedKey(treasureAccountPrefix, addr.Bytes()), data)
}

// TreasureIndexAdd appends addr to the creation-ordered treasure index and
// records its creation time.
func (m *Manager) TreasureIndexAdd(addr crypto.Address, createdAt int64) error {
	if createdAt < 0 {
		return fmt.Errorf("state: negative creation time %d", createdAt)
	}
	if err := m.KVPut(prefixedKey(treasureCreatedPrefix, addr.Bytes()), uint64(createdAt)); err != nil {
		return err
	}
	return m.appendIndex(treasureIndexKey, addr.Bytes())
}

// TreasureCreatedAt returns the creation time recorded for addr.
func (m *Manager) TreasureCreatedAt(addr crypto.Address) (int64, bool, error) {
	var ts uint64
	ok, err := m.KVGet(prefixedKey(treasureCreatedPrefix, addr.Bytes()), &ts)
	if err != nil || !ok {
		return 0, ok, err
	}
	return int64(ts), true, nil
}

// TreasureIndex lists every treasure address in creation order.
func (m *Manager) TreasureIndex() ([]crypto.Address, error) {
	raw, err := m.index(treasureIndexKey)
	if err != nil {
		return nil, err
	}
	out := make([]crypto.Address, 0, len(raw))
	for _, b := range raw {
		addr, err := crypto.BytesToAddress(b)
		if err != nil {
			return nil, fmt.Errorf("state: corrupt treasure index: %w", err)
		}
		out = append(out, addr)
	}
	return out, nil
}
