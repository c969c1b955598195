package metadata

import (
	"strconv"

	"treasurehunt/core/types"
)

const (
	EventTypeMetadataCreated = "metadata.created"
	EventTypeEditionCreated  = "metadata.edition.created"
)

func metadataCreatedEvent(md *Metadata) *types.Event {
	return &types.Event{
		Type: EventTypeMetadataCreated,
		Attributes: map[string]string{
			"metadata":             md.Address.String(),
			"mint":                 md.Mint.String(),
			"updateAuthority":      md.UpdateAuthority.String(),
			"name":                 md.Name,
			"symbol":               md.Symbol,
			"uri":                  md.URI,
			"sellerFeeBasisPoints": strconv.Itoa(int(md.SellerFeeBasisPoints)),
		},
	}
}

func editionCreatedEvent(ed *MasterEdition) *types.Event {
	maxSupply := "unlimited"
	if ed.MaxSupply != nil {
		maxSupply = strconv.FormatUint(*ed.MaxSupply, 10)
	}
	return &types.Event{
		Type: EventTypeEditionCreated,
		Attributes: map[string]string{
			"edition":   ed.Address.String(),
			"mint":      ed.Mint.String(),
			"maxSupply": maxSupply,
		},
	}
}
