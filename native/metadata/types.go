package metadata

import (
	"treasurehunt/crypto"
)

const (
	MaxNameLength        = 50
	MaxSymbolLength      = 10
	MaxURILength         = 200
	MaxCreators          = 5
	MaxSellerFeeBasisPts = 10_000
)

var (
	// ProgramID owns metadata and master-edition accounts.
	ProgramID = crypto.ProgramID("metadata")

	metadataSeed = []byte("metadata")
	editionSeed  = []byte("edition")
)

// Creator attributes royalties to an identity. Verified is only set when the
// creator signed the metadata instruction.
type Creator struct {
	Address  crypto.Address `json:"address"`
	Verified bool           `json:"verified"`
	Share    uint8          `json:"share"`
}

// Metadata carries the display data of a mint.
type Metadata struct {
	Address              crypto.Address `json:"address"`
	Mint                 crypto.Address `json:"mint"`
	UpdateAuthority      crypto.Address `json:"updateAuthority"`
	Name                 string         `json:"name"`
	Symbol               string         `json:"symbol"`
	URI                  string         `json:"uri"`
	SellerFeeBasisPoints uint16         `json:"sellerFeeBasisPoints"`
	Creators             []Creator      `json:"creators"`
	IsMutable            bool           `json:"isMutable"`
}

// Clone returns a deep copy of the metadata.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	clone := *m
	clone.Creators = append([]Creator(nil), m.Creators...)
	return &clone
}

// MasterEdition caps how many prints may be made of a mint. A nil MaxSupply
// allows unlimited prints; zero forbids any.
type MasterEdition struct {
	Address   crypto.Address `json:"address"`
	Mint      crypto.Address `json:"mint"`
	Supply    uint64         `json:"supply"`
	MaxSupply *uint64        `json:"maxSupply"`
}

// Clone returns a deep copy of the edition.
func (e *MasterEdition) Clone() *MasterEdition {
	if e == nil {
		return nil
	}
	clone := *e
	if e.MaxSupply != nil {
		v := *e.MaxSupply
		clone.MaxSupply = &v
	}
	return &clone
}

// Unlimited reports whether prints are uncapped.
func (e *MasterEdition) Unlimited() bool { return e != nil && e.MaxSupply == nil }

// MetadataAddress derives the metadata account of mint.
func MetadataAddress(mint crypto.Address) crypto.Address {
	return crypto.MustDeriveAddress(ProgramID, metadataSeed, ProgramID.Bytes(), mint.Bytes())
}

// EditionAddress derives the master-edition account of mint.
func EditionAddress(mint crypto.Address) crypto.Address {
	return crypto.MustDeriveAddress(ProgramID, metadataSeed, ProgramID.Bytes(), mint.Bytes(), editionSeed)
}
