package treasure

import "treasurehunt/crypto"

// CreateInstruction is the payload of a create-treasure transaction. The
// authority is the transaction sender.
type CreateInstruction struct {
	Seed          string          `json:"seed,omitempty"`
	Name          string          `json:"name"`
	Symbol        string          `json:"symbol"`
	URI           string          `json:"uri"`
	LocationLat   float64         `json:"locationLat"`
	LocationLng   float64         `json:"locationLng"`
	RewardAmount  uint64          `json:"rewardAmount"`
	Treasure      *crypto.Address `json:"treasure,omitempty"`
	Mint          *crypto.Address `json:"mint,omitempty"`
	Metadata      *crypto.Address `json:"metadata,omitempty"`
	MasterEdition *crypto.Address `json:"masterEdition,omitempty"`
}

// Params converts the instruction into engine parameters.
func (in CreateInstruction) Params(authority crypto.Address) CreateParams {
	return CreateParams{
		Authority:     authority,
		Seed:          in.Seed,
		Name:          in.Name,
		Symbol:        in.Symbol,
		URI:           in.URI,
		LocationLat:   in.LocationLat,
		LocationLng:   in.LocationLng,
		RewardAmount:  in.RewardAmount,
		Treasure:      deref(in.Treasure),
		Mint:          deref(in.Mint),
		Metadata:      deref(in.Metadata),
		MasterEdition: deref(in.MasterEdition),
	}
}

// DiscoverInstruction is the payload of a discover-treasure transaction. The
// finder is the transaction sender and the authority its co-signer.
type DiscoverInstruction struct {
	Treasure           crypto.Address  `json:"treasure"`
	Mint               crypto.Address  `json:"mint"`
	FinderTokenAccount *crypto.Address `json:"finderTokenAccount,omitempty"`
	ClaimLat           *float64        `json:"claimLat,omitempty"`
	ClaimLng           *float64        `json:"claimLng,omitempty"`
}

// Params converts the instruction into engine parameters.
func (in DiscoverInstruction) Params(finder, authority crypto.Address) DiscoverParams {
	return DiscoverParams{
		Treasure:           in.Treasure,
		Mint:               in.Mint,
		Finder:             finder,
		Authority:          authority,
		FinderTokenAccount: deref(in.FinderTokenAccount),
		ClaimLat:           in.ClaimLat,
		ClaimLng:           in.ClaimLng,
	}
}

func deref(addr *crypto.Address) crypto.Address {
	if addr == nil {
		return crypto.Address{}
	}
	return *addr
}
