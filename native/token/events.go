package token

import (
	"strconv"

	"github.com/holiman/uint256"

	"treasurehunt/core/types"
	"treasurehunt/crypto"
)

const (
	EventTypeMintInitialized = "token.mint.initialized"
	EventTypeAccountCreated  = "token.account.created"
	EventTypeMinted          = "token.minted"
)

func mintInitializedEvent(mint *Mint) *types.Event {
	return &types.Event{
		Type: EventTypeMintInitialized,
		Attributes: map[string]string{
			"mint":      mint.Address.String(),
			"authority": mint.MintAuthority.String(),
			"decimals":  strconv.Itoa(int(mint.Decimals)),
		},
	}
}

func accountCreatedEvent(acct *Account) *types.Event {
	return &types.Event{
		Type: EventTypeAccountCreated,
		Attributes: map[string]string{
			"account": acct.Address.String(),
			"mint":    acct.Mint.String(),
			"owner":   acct.Owner.String(),
		},
	}
}

func mintedEvent(mint crypto.Address, acct *Account, amount, supply *uint256.Int) *types.Event {
	return &types.Event{
		Type: EventTypeMinted,
		Attributes: map[string]string{
			"mint":    mint.String(),
			"account": acct.Address.String(),
			"owner":   acct.Owner.String(),
			"amount":  amount.Dec(),
			"supply":  supply.Dec(),
		},
	}
}
