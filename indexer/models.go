package indexer

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Treasure mirrors a treasure account as last observed through the event stream.
type Treasure struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Address       string    `gorm:"size:96;uniqueIndex"`
	Handle        string    `gorm:"size:128;uniqueIndex"`
	Authority     string    `gorm:"size:96;index"`
	Mint          string    `gorm:"size:96"`
	Name          string    `gorm:"size:64"`
	Symbol        string    `gorm:"size:16"`
	URI           string    `gorm:"size:256"`
	Lat           float64
	Lng           float64
	RewardAmount  Amount `gorm:"size:78"`
	CreatedAtUnix int64
	Found         bool   `gorm:"index"`
	Finder        string `gorm:"size:96;index"`
	FoundAtUnix   int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Player aggregates the finds of a single finder.
type Player struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Address        string    `gorm:"size:96;uniqueIndex"`
	DisplayName    string    `gorm:"size:64;index"`
	Finds          int       `gorm:"index"`
	RewardTotal    Amount    `gorm:"size:78;index"`
	LastFindAtUnix int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Achievement records a milestone unlocked by a player.
type Achievement struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	PlayerAddress  string    `gorm:"size:96;uniqueIndex:idx_player_achievement"`
	Name           string    `gorm:"size:32;uniqueIndex:idx_player_achievement"`
	Threshold      int
	UnlockedAtUnix int64
	CreatedAt      time.Time
}

// AutoMigrate creates or updates the indexer tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Treasure{}, &Player{}, &Achievement{})
}
