package state

import (
	"treasurehunt/crypto"
	"treasurehunt/native/token"
)

// TokenMintGet loads a mint.
func (m *Manager) TokenMintGet(addr crypto.Address) (*token.Mint, bool, error) {
	mint := new(token.Mint)
	ok, err := m.KVGet(prefixedKey(tokenMintPrefix, addr.Bytes()), mint)
	if err != nil || !ok {
		return nil, ok, err
	}
	return mint, true, nil
}

// TokenMintPut stores a mint under its own address.
func (m *Manager) TokenMintPut(mint *token.Mint) error {
	return m.KVPut(prefixedKey(tokenMintPrefix, mint.Address.Bytes()), mint.Clone())
}

// TokenAccountGet loads a token account.
func (m *Manager) TokenAccountGet(addr crypto.Address) (*token.Account, bool, error) {
	acct := new(token.Account)
	ok, err := m.KVGet(prefixedKey(tokenAccountPrefix, addr.Bytes()), acct)
	if err != nil || !ok {
		return nil, ok, err
	}
	return acct, true, nil
}

// TokenAccountPut stores a token account under its own address.
func (m *Manager) TokenAccountPut(acct *token.Account) error {
	return m.KVPut(prefixedKey(tokenAccountPrefix, acct.Address.Bytes()), acct.Clone())
}
