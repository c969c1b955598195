package state

import (
	"bytes"
	"errors"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"treasurehunt/storage/trie"
)

var errEmptyKey = errors.New("state: empty key")

// Manager gives typed access to program state in the trie. Logical keys are
// namespaced strings hashed with keccak256; values are RLP unless a method
// says otherwise.
type Manager struct {
	trie *trie.Trie
}

func NewManager(tr *trie.Trie) *Manager {
	return &Manager{trie: tr}
}

func prefixedKey(prefix []byte, suffix []byte) []byte {
	buf := make([]byte, 0, len(prefix)+len(suffix))
	return append(append(buf, prefix...), suffix...)
}

func (m *Manager) raw(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, errEmptyKey
	}
	return m.trie.Get(ethcrypto.Keccak256(key))
}

func (m *Manager) putRaw(key, value []byte) error {
	if len(key) == 0 {
		return errEmptyKey
	}
	return m.trie.Update(ethcrypto.Keccak256(key), value)
}

// KVPut RLP-encodes value under key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.putRaw(key, encoded)
}

// KVGet decodes the value under key into out and reports whether it existed.
// A nil out only checks presence.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	data, err := m.raw(key)
	if err != nil || len(data) == 0 {
		return false, err
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVPutRaw stores value verbatim; empty values are rejected because they are
// indistinguishable from a missing key.
func (m *Manager) KVPutRaw(key []byte, value []byte) error {
	if len(value) == 0 {
		return errors.New("state: raw value must not be empty")
	}
	return m.putRaw(key, value)
}

// KVGetRaw returns a copy of the bytes stored under key.
func (m *Manager) KVGetRaw(key []byte) ([]byte, bool, error) {
	data, err := m.raw(key)
	if err != nil || len(data) == 0 {
		return nil, false, err
	}
	return append([]byte(nil), data...), true, nil
}

// appendIndex adds value to the ordered set under key, ignoring duplicates.
func (m *Manager) appendIndex(key []byte, value []byte) error {
	list, err := m.index(key)
	if err != nil {
		return err
	}
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	return m.KVPut(key, append(list, append([]byte(nil), value...)))
}

// index returns the ordered set under key; missing keys yield an empty set.
func (m *Manager) index(key []byte) ([][]byte, error) {
	list := [][]byte{}
	if _, err := m.KVGet(key, &list); err != nil {
		return nil, err
	}
	return list, nil
}
