package treasure

import (
	"treasurehunt/crypto"
)

var (
	// ProgramID owns treasure accounts and their claim mints.
	ProgramID = crypto.ProgramID("treasure")

	treasureSeed = []byte("treasure")
	mintSeed     = []byte("mint")
)

// Treasure is a location-bound prize backed by a single claim token.
type Treasure struct {
	Authority    crypto.Address `json:"authority"`
	Mint         crypto.Address `json:"mint"`
	Name         string         `json:"name"`
	Symbol       string         `json:"symbol"`
	URI          string         `json:"uri"`
	LocationLat  float64        `json:"locationLat"`
	LocationLng  float64        `json:"locationLng"`
	RewardAmount uint64         `json:"rewardAmount"`
	IsFound      bool           `json:"isFound"`
	Finder       crypto.Address `json:"finder"`
	FoundAt      int64          `json:"foundAt"`
}

// Record pairs a treasure with its account address and creation time.
type Record struct {
	Address   crypto.Address `json:"address"`
	CreatedAt int64          `json:"createdAt"`
	Treasure  *Treasure      `json:"treasure"`
}

// TreasureAddress derives the account holding the treasure created by
// authority under seed.
func TreasureAddress(authority crypto.Address, seed string) (crypto.Address, error) {
	return crypto.DeriveAddress(ProgramID, treasureSeed, authority.Bytes(), []byte(seed))
}

// MintAddress derives the claim-token mint of a treasure account.
func MintAddress(treasure crypto.Address) crypto.Address {
	return crypto.MustDeriveAddress(ProgramID, mintSeed, treasure.Bytes())
}
