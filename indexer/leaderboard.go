package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Milestone is an achievement unlocked on reaching a number of finds.
type Milestone struct {
	Name  string
	Finds int
}

// Milestones lists the achievements in unlock order.
var Milestones = []Milestone{
	{Name: "First Mint", Finds: 1},
	{Name: "Treasure Hunter", Finds: 5},
	{Name: "Treasure Master", Finds: 10},
	{Name: "Speed Demon", Finds: 15},
}

const (
	DefaultLeaderboardLimit = 15
	MaxLeaderboardLimit     = 100
)

// Entry is a ranked leaderboard row.
type Entry struct {
	Rank         int      `json:"rank"`
	Address      string   `json:"address"`
	DisplayName  string   `json:"displayName"`
	Finds        int      `json:"finds"`
	RewardTotal  Amount   `json:"rewardTotal"`
	LastFindAt   int64    `json:"lastFindAt"`
	Achievements []string `json:"achievements"`
}

// Stats summarises the whole hunt.
type Stats struct {
	Players          int64  `json:"players"`
	Treasures        int64  `json:"treasures"`
	Found            int64  `json:"found"`
	RewardsAdvised   Amount `json:"rewardsAdvised"`
	LastDiscoveredAt int64  `json:"lastDiscoveredAt"`
}

// Discovery is a found treasure joined with its finder.
type Discovery struct {
	Treasure     string
	Handle       string
	Name         string
	Symbol       string
	Mint         string
	Finder       string
	Lat          float64
	Lng          float64
	RewardAmount uint64
	FoundAt      int64
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		return MaxLeaderboardLimit
	}
	return limit
}

func ranked(db *gorm.DB) *gorm.DB {
	return db.Model(&Player{}).Order("finds DESC").Order("reward_total DESC").Order("address ASC")
}

// Top returns the best players ranked by finds, then by advisory reward.
func (ix *Indexer) Top(ctx context.Context, limit int) ([]Entry, error) {
	var players []Player
	if err := ranked(ix.db.WithContext(ctx)).Limit(clampLimit(limit)).Find(&players).Error; err != nil {
		return nil, fmt.Errorf("indexer: leaderboard: %w", err)
	}
	entries := make([]Entry, len(players))
	for i := range players {
		entries[i] = entryFor(players[i], i+1)
	}
	if err := ix.attachAchievements(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Player returns the ranked entry of a single finder.
func (ix *Indexer) Player(ctx context.Context, address string) (*Entry, error) {
	db := ix.db.WithContext(ctx)
	var player Player
	err := db.Where("address = ?", strings.TrimSpace(address)).First(&player).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("indexer: load player: %w", err)
	}
	var ahead int64
	err = db.Model(&Player{}).
		Where("finds > ?", player.Finds).
		Or("finds = ? AND reward_total > ?", player.Finds, player.RewardTotal).
		Or("finds = ? AND reward_total = ? AND address < ?", player.Finds, player.RewardTotal, player.Address).
		Count(&ahead).Error
	if err != nil {
		return nil, fmt.Errorf("indexer: rank player: %w", err)
	}
	entries := []Entry{entryFor(player, int(ahead)+1)}
	if err := ix.attachAchievements(ctx, entries); err != nil {
		return nil, err
	}
	return &entries[0], nil
}

// Search matches players by display name or address, case-insensitively.
func (ix *Indexer) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	q := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	var players []Player
	err := ranked(ix.db.WithContext(ctx)).
		Where("LOWER(display_name) LIKE ? OR LOWER(address) LIKE ?", q, q).
		Limit(clampLimit(limit)).
		Find(&players).Error
	if err != nil {
		return nil, fmt.Errorf("indexer: search players: %w", err)
	}
	entries := make([]Entry, 0, len(players))
	for _, p := range players {
		entry, err := ix.Player(ctx, p.Address)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// Stats aggregates totals across players and treasures.
func (ix *Indexer) Stats(ctx context.Context) (Stats, error) {
	db := ix.db.WithContext(ctx)
	var stats Stats
	if err := db.Model(&Player{}).Count(&stats.Players).Error; err != nil {
		return stats, fmt.Errorf("indexer: count players: %w", err)
	}
	if err := db.Model(&Treasure{}).Count(&stats.Treasures).Error; err != nil {
		return stats, fmt.Errorf("indexer: count treasures: %w", err)
	}
	var agg struct {
		Found int64
		Last  int64
	}
	err := db.Model(&Treasure{}).
		Select("COUNT(*) AS found, COALESCE(MAX(found_at_unix), 0) AS last").
		Where("found = ?", true).
		Scan(&agg).Error
	if err != nil {
		return stats, fmt.Errorf("indexer: aggregate finds: %w", err)
	}
	// Amounts are strings in SQL, so the sum is taken here.
	var rewards []Amount
	if err := db.Model(&Treasure{}).Where("found = ?", true).Pluck("reward_amount", &rewards).Error; err != nil {
		return stats, fmt.Errorf("indexer: sum rewards: %w", err)
	}
	for _, r := range rewards {
		v, _ := r.Uint64()
		stats.RewardsAdvised = stats.RewardsAdvised.Add(v)
	}
	stats.Found = agg.Found
	stats.LastDiscoveredAt = agg.Last
	return stats, nil
}

// Discoveries lists found treasures ordered by discovery time.
func (ix *Indexer) Discoveries(ctx context.Context) ([]Discovery, error) {
	var rows []Treasure
	err := ix.db.WithContext(ctx).
		Where("found = ?", true).
		Order("found_at_unix ASC").Order("address ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("indexer: list discoveries: %w", err)
	}
	out := make([]Discovery, len(rows))
	for i, r := range rows {
		// Rows are only written from uint64 rewards.
		reward, _ := r.RewardAmount.Uint64()
		out[i] = Discovery{
			Treasure:     r.Address,
			Handle:       r.Handle,
			Name:         r.Name,
			Symbol:       r.Symbol,
			Mint:         r.Mint,
			Finder:       r.Finder,
			Lat:          r.Lat,
			Lng:          r.Lng,
			RewardAmount: reward,
			FoundAt:      r.FoundAtUnix,
		}
	}
	return out, nil
}

func entryFor(p Player, rank int) Entry {
	return Entry{
		Rank:         rank,
		Address:      p.Address,
		DisplayName:  p.DisplayName,
		Finds:        p.Finds,
		RewardTotal:  p.RewardTotal,
		LastFindAt:   p.LastFindAtUnix,
		Achievements: []string{},
	}
}

func (ix *Indexer) attachAchievements(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	addrs := make([]string, len(entries))
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		addrs[i] = e.Address
		index[e.Address] = i
	}
	var rows []Achievement
	err := ix.db.WithContext(ctx).
		Where("player_address IN ?", addrs).
		Order("threshold ASC").
		Find(&rows).Error
	if err != nil {
		return fmt.Errorf("indexer: load achievements: %w", err)
	}
	for _, a := range rows {
		i := index[a.PlayerAddress]
		entries[i].Achievements = append(entries[i].Achievements, a.Name)
	}
	return nil
}
