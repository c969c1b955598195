package treasure

import (
	"strconv"

	"treasurehunt/core/types"
	"treasurehunt/crypto"
)

const (
	// EventTypeTreasureCreated is emitted when a treasure and its claim token are registered.
	EventTypeTreasureCreated = "treasure.created"
	// EventTypeTreasureDiscovered is emitted when a finder claims a treasure.
	EventTypeTreasureDiscovered = "treasure.discovered"
	// EventTypeRewardAdvised records the advisory reward of a claim. No value moves.
	EventTypeRewardAdvised = "treasure.reward.advised"
)

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// CreatedEvent returns the structured payload announcing a new treasure.
func CreatedEvent(addr crypto.Address, t *Treasure, createdAt int64) *types.Event {
	return &types.Event{
		Type: EventTypeTreasureCreated,
		Attributes: map[string]string{
			"treasure":     addr.String(),
			"authority":    t.Authority.String(),
			"mint":         t.Mint.String(),
			"name":         t.Name,
			"symbol":       t.Symbol,
			"uri":          t.URI,
			"lat":          formatFloat(t.LocationLat),
			"lng":          formatFloat(t.LocationLng),
			"rewardAmount": strconv.FormatUint(t.RewardAmount, 10),
			"createdAt":    strconv.FormatInt(createdAt, 10),
		},
	}
}

// DiscoveredEvent returns the structured payload announcing a claim.
func DiscoveredEvent(addr crypto.Address, t *Treasure, tokenAccount crypto.Address) *types.Event {
	return &types.Event{
		Type: EventTypeTreasureDiscovered,
		Attributes: map[string]string{
			"treasure":     addr.String(),
			"name":         t.Name,
			"mint":         t.Mint.String(),
			"finder":       t.Finder.String(),
			"tokenAccount": tokenAccount.String(),
			"foundAt":      strconv.FormatInt(t.FoundAt, 10),
			"rewardAmount": strconv.FormatUint(t.RewardAmount, 10),
		},
	}
}

// RewardAdvisedEvent records the advisory reward owed to the finder.
func RewardAdvisedEvent(addr crypto.Address, finder crypto.Address, amount uint64) *types.Event {
	return &types.Event{
		Type: EventTypeRewardAdvised,
		Attributes: map[string]string{
			"treasure":    addr.String(),
			"finder":      finder.String(),
			"amount":      strconv.FormatUint(amount, 10),
			"transferred": "false",
		},
	}
}
