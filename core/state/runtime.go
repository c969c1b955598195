package state

import (
	"treasurehunt/crypto"
)

// Clock returns the last timestamp handed out by the runtime.
func (m *Manager) Clock() (int64, error) {
	var ts uint64
	if _, err := m.KVGet(runtimeClockKey, &ts); err != nil {
		return 0, err
	}
	return int64(ts), nil
}

// SetClock records the runtime timestamp.
func (m *Manager) SetClock(ts int64) error {
	if ts < 0 {
		ts = 0
	}
	return m.KVPut(runtimeClockKey, uint64(ts))
}

// Height returns the number of committed transactions.
func (m *Manager) Height() (uint64, error) {
	var height uint64
	if _, err := m.KVGet(runtimeHeightKey, &height); err != nil {
		return 0, err
	}
	return height, nil
}

// SetHeight records the number of committed transactions.
func (m *Manager) SetHeight(height uint64) error {
	return m.KVPut(runtimeHeightKey, height)
}

// Nonce returns the next expected nonce for addr.
func (m *Manager) Nonce(addr crypto.Address) (uint64, error) {
	var nonce uint64
	if _, err := m.KVGet(prefixedKey(noncePrefix, addr.Bytes()), &nonce); err != nil {
		return 0, err
	}
	return nonce, nil
}

// SetNonce records the next expected nonce for addr.
func (m *Manager) SetNonce(addr crypto.Address, nonce uint64) error {
	return m.KVPut(prefixedKey(noncePrefix, addr.Bytes()), nonce)
}
