package crypto

import (
	"errors"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const (
	maxSeeds      = 16
	maxSeedLength = 64
)

var (
	derivedAddressTag = []byte("treasurehunt/derived-address")
	programIDTag      = []byte("treasurehunt/program-id")

	ErrTooManySeeds = errors.New("crypto: too many derivation seeds")
	ErrSeedTooLong  = errors.New("crypto: derivation seed too long")
)

// ProgramID returns the deterministic identity of a named native module.
func ProgramID(name string) Address {
	digest := ethcrypto.Keccak256(programIDTag, []byte(name))
	return MustBytesToAddress(digest)
}

// DeriveAddress deterministically derives a program-owned account address from
// the supplied seeds and owning program. Nobody holds a private key for the
// result, so only the owning program can mutate the account.
func DeriveAddress(program Address, seeds ...[]byte) (Address, error) {
	if len(seeds) > maxSeeds {
		return Address{}, ErrTooManySeeds
	}
	parts := make([][]byte, 0, len(seeds)*2+2)
	for _, seed := range seeds {
		if len(seed) > maxSeedLength {
			return Address{}, ErrSeedTooLong
		}
		// Length prefixes keep ("ab","c") and ("a","bc") apart.
		parts = append(parts, []byte{byte(len(seed))}, seed)
	}
	parts = append(parts, program[:], derivedAddressTag)
	return MustBytesToAddress(ethcrypto.Keccak256(parts...)), nil
}

// MustDeriveAddress is DeriveAddress for seeds known to be well formed.
func MustDeriveAddress(program Address, seeds ...[]byte) Address {
	addr, err := DeriveAddress(program, seeds...)
	if err != nil {
		panic(err)
	}
	return addr
}
