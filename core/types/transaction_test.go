package types

import (
	"testing"

	"github.com/stretchr/testify/require"

	"treasurehunt/crypto"
)

type testInstruction struct {
	Name string `json:"name"`
}

func newKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return key
}

func TestTransactionSignAndVerify(t *testing.T) {
	finder := newKey(t)
	authority := newKey(t)

	tx, err := NewTransaction(DefaultChainID, TxTypeDiscoverTreasure, 7, finder.PubKey().Address(), testInstruction{Name: "Cave"})
	require.NoError(t, err)
	tx.SetCosigner(authority.PubKey().Address())

	require.NoError(t, tx.Sign(finder))
	require.ErrorIs(t, tx.VerifySignatures(), ErrMissingSignature)
	require.NoError(t, tx.Cosign(authority))
	require.NoError(t, tx.VerifySignatures())

	require.True(t, tx.Signed(finder.PubKey().Address()))
	require.True(t, tx.Signed(authority.PubKey().Address()))
	require.False(t, tx.Signed(newKey(t).PubKey().Address()))

	var decoded testInstruction
	require.NoError(t, tx.DecodeData(&decoded))
	require.Equal(t, "Cave", decoded.Name)
}

func TestTransactionRejectsTampering(t *testing.T) {
	authority := newKey(t)
	tx, err := NewTransaction(DefaultChainID, TxTypeCreateTreasure, 1, authority.PubKey().Address(), testInstruction{Name: "Cave"})
	require.NoError(t, err)
	require.NoError(t, tx.Sign(authority))
	require.NoError(t, tx.VerifySignatures())

	tx.Nonce++
	require.ErrorIs(t, tx.VerifySignatures(), ErrInvalidSignature)
}

func TestTransactionSignWithWrongKey(t *testing.T) {
	authority := newKey(t)
	tx, err := NewTransaction(DefaultChainID, TxTypeCreateTreasure, 1, authority.PubKey().Address(), testInstruction{})
	require.NoError(t, err)
	require.ErrorIs(t, tx.Sign(newKey(t)), ErrUnexpectedSigner)
	require.ErrorIs(t, tx.Cosign(authority), ErrMissingCosigner)
}

func TestTransactionHashChangesWithSignature(t *testing.T) {
	authority := newKey(t)
	tx, err := NewTransaction(DefaultChainID, TxTypeCreateTreasure, 1, authority.PubKey().Address(), testInstruction{})
	require.NoError(t, err)

	unsigned, err := tx.Hash()
	require.NoError(t, err)
	require.NoError(t, tx.Sign(authority))
	signed, err := tx.Hash()
	require.NoError(t, err)
	require.NotEqual(t, unsigned, signed)

	_, err = NewTransaction(DefaultChainID, TxType(0x7f), 1, authority.PubKey().Address(), testInstruction{})
	require.ErrorIs(t, err, ErrUnknownTxType)
}
