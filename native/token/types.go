package token

import (
	"github.com/holiman/uint256"

	"treasurehunt/crypto"
)

var (
	// ProgramID owns mint and token accounts.
	ProgramID = crypto.ProgramID("token")
	// AssociatedProgramID owns the derivation of per-owner token accounts.
	AssociatedProgramID = crypto.ProgramID("associated-token")
)

// Mint describes a token type. Claim tokens use zero decimals and a supply
// that never exceeds one.
type Mint struct {
	Address       crypto.Address `json:"address"`
	MintAuthority crypto.Address `json:"mintAuthority"`
	Decimals      uint8          `json:"decimals"`
	Supply        *uint256.Int   `json:"supply"`
}

// Clone returns a deep copy of the mint.
func (m *Mint) Clone() *Mint {
	if m == nil {
		return nil
	}
	clone := *m
	clone.Supply = cloneAmount(m.Supply)
	return &clone
}

// Account holds an owner's balance of a single mint.
type Account struct {
	Address crypto.Address `json:"address"`
	Mint    crypto.Address `json:"mint"`
	Owner   crypto.Address `json:"owner"`
	Amount  *uint256.Int   `json:"amount"`
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Amount = cloneAmount(a.Amount)
	return &clone
}

func cloneAmount(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}

// AssociatedAddress derives the canonical token account for owner and mint.
func AssociatedAddress(owner, mint crypto.Address) crypto.Address {
	return crypto.MustDeriveAddress(AssociatedProgramID, owner.Bytes(), ProgramID.Bytes(), mint.Bytes())
}
