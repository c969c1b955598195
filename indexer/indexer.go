package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"treasurehunt/core/types"
	"treasurehunt/native/treasure"
	"treasurehunt/observability"
)

const syncPageSize = 100

var (
	// ErrUnsupportedDriver is returned for database drivers other than sqlite and postgres.
	ErrUnsupportedDriver = errors.New("indexer: unsupported driver")
	// ErrDSNRequired is returned when no connection string is configured.
	ErrDSNRequired = errors.New("indexer: dsn required")
	// ErrMalformedEvent is returned when an event lacks a required attribute.
	ErrMalformedEvent = errors.New("indexer: malformed event")
	// ErrPlayerNotFound is returned when an address has never found a treasure.
	ErrPlayerNotFound = errors.New("indexer: player not found")
)

// Config selects the SQL backend.
type Config struct {
	Driver string
	DSN    string
}

// Open connects to the configured database and migrates the schema.
func Open(cfg Config) (*gorm.DB, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, ErrDSNRequired
	}
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("indexer: open database: %w", err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	return db, nil
}

// TreasureSource pages through committed treasure records.
type TreasureSource interface {
	Treasures(offset, limit int) ([]*treasure.Record, int, error)
}

// Indexer projects treasure events into SQL tables backing the leaderboard.
// Applying the same event twice is a no-op.
type Indexer struct {
	db     *gorm.DB
	logger *slog.Logger
}

// New constructs an indexer over an opened database.
func New(db *gorm.DB, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{db: db, logger: logger}
}

// DB exposes the underlying connection for read-side consumers such as exports.
func (ix *Indexer) DB() *gorm.DB { return ix.db }

// Run consumes events until ctx is cancelled or the channel closes.
func (ix *Indexer) Run(ctx context.Context, events <-chan *types.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := ix.Apply(ctx, evt); err != nil {
				ix.logger.Warn("indexer apply failed", slog.String("event", evt.Type), slog.Any("error", err))
			}
		}
	}
}

// Apply folds a single event into the projection. Unrelated events are ignored.
func (ix *Indexer) Apply(ctx context.Context, evt *types.Event) error {
	if evt == nil {
		return nil
	}
	switch evt.Type {
	case treasure.EventTypeTreasureCreated:
		row, err := createdRow(evt.Attributes)
		if err != nil {
			return err
		}
		return ix.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return upsertTreasure(tx, row)
		})
	case treasure.EventTypeTreasureDiscovered:
		d, err := parseDiscovery(evt.Attributes)
		if err != nil {
			return err
		}
		return ix.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return recordDiscovery(tx, d)
		})
	}
	return nil
}

// Sync reconciles the projection with committed state. It backfills events
// missed while the indexer was offline or dropped by a slow subscription.
func (ix *Indexer) Sync(ctx context.Context, src TreasureSource) (int, error) {
	applied := 0
	for offset := 0; ; offset += syncPageSize {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		records, total, err := src.Treasures(offset, syncPageSize)
		if err != nil {
			return applied, err
		}
		for _, rec := range records {
			if err := ix.syncRecord(ctx, rec); err != nil {
				return applied, err
			}
			applied++
		}
		if offset+len(records) >= total || len(records) == 0 {
			break
		}
	}
	ix.logger.Info("indexer synced", slog.Int("treasures", applied))
	return applied, nil
}

func (ix *Indexer) syncRecord(ctx context.Context, rec *treasure.Record) error {
	if rec == nil || rec.Treasure == nil {
		return nil
	}
	t := rec.Treasure
	row := &Treasure{
		Address:       rec.Address.String(),
		Authority:     t.Authority.String(),
		Mint:          t.Mint.String(),
		Name:          t.Name,
		Symbol:        t.Symbol,
		URI:           t.URI,
		Lat:           t.LocationLat,
		Lng:           t.LocationLng,
		RewardAmount:  NewAmount(t.RewardAmount),
		CreatedAtUnix: rec.CreatedAt,
	}
	return ix.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertTreasure(tx, row); err != nil {
			return err
		}
		if !t.IsFound {
			return nil
		}
		return recordDiscovery(tx, discovery{
			Treasure: row.Address,
			Name:     t.Name,
			Mint:     row.Mint,
			Finder:   t.Finder.String(),
			FoundAt:  t.FoundAt,
			Reward:   t.RewardAmount,
		})
	})
}

type discovery struct {
	Treasure string
	Name     string
	Mint     string
	Finder   string
	FoundAt  int64
	Reward   uint64
}

func requireAttr(attrs map[string]string, key string) (string, error) {
	v := strings.TrimSpace(attrs[key])
	if v == "" {
		return "", fmt.Errorf("%w: missing %s", ErrMalformedEvent, key)
	}
	return v, nil
}

func parseUintAttr(attrs map[string]string, key string) (uint64, error) {
	v, err := requireAttr(attrs, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrMalformedEvent, key, err)
	}
	return n, nil
}

func parseIntAttr(attrs map[string]string, key string) (int64, error) {
	v, err := requireAttr(attrs, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrMalformedEvent, key, err)
	}
	return n, nil
}

func parseFloatAttr(attrs map[string]string, key string) (float64, error) {
	v, err := requireAttr(attrs, key)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrMalformedEvent, key, err)
	}
	return f, nil
}

func createdRow(attrs map[string]string) (*Treasure, error) {
	addr, err := requireAttr(attrs, "treasure")
	if err != nil {
		return nil, err
	}
	lat, err := parseFloatAttr(attrs, "lat")
	if err != nil {
		return nil, err
	}
	lng, err := parseFloatAttr(attrs, "lng")
	if err != nil {
		return nil, err
	}
	reward, err := parseUintAttr(attrs, "rewardAmount")
	if err != nil {
		return nil, err
	}
	createdAt, err := parseIntAttr(attrs, "createdAt")
	if err != nil {
		return nil, err
	}
	return &Treasure{
		Address:       addr,
		Authority:     attrs["authority"],
		Mint:          attrs["mint"],
		Name:          attrs["name"],
		Symbol:        attrs["symbol"],
		URI:           attrs["uri"],
		Lat:           lat,
		Lng:           lng,
		RewardAmount:  NewAmount(reward),
		CreatedAtUnix: createdAt,
	}, nil
}

func parseDiscovery(attrs map[string]string) (discovery, error) {
	var d discovery
	var err error
	if d.Treasure, err = requireAttr(attrs, "treasure"); err != nil {
		return d, err
	}
	if d.Finder, err = requireAttr(attrs, "finder"); err != nil {
		return d, err
	}
	if d.FoundAt, err = parseIntAttr(attrs, "foundAt"); err != nil {
		return d, err
	}
	if d.Reward, err = parseUintAttr(attrs, "rewardAmount"); err != nil {
		return d, err
	}
	d.Name = attrs["name"]
	d.Mint = attrs["mint"]
	return d, nil
}

// handleFor builds a readable, unique handle such as "the-cave-qz8f3k".
func handleFor(name, address string) string {
	base := slug.Make(name)
	if base == "" {
		base = "treasure"
	}
	suffix := strings.TrimPrefix(address, "hunt1")
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	return base + "-" + suffix
}

func upsertTreasure(tx *gorm.DB, row *Treasure) error {
	var existing Treasure
	err := tx.Where("address = ?", row.Address).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row.ID = uuid.New()
		row.Handle = handleFor(row.Name, row.Address)
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("indexer: insert treasure: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("indexer: load treasure: %w", err)
	}
	updates := map[string]any{
		"authority":       row.Authority,
		"mint":            row.Mint,
		"name":            row.Name,
		"symbol":          row.Symbol,
		"uri":             row.URI,
		"lat":             row.Lat,
		"lng":             row.Lng,
		"reward_amount":   row.RewardAmount,
		"created_at_unix": row.CreatedAtUnix,
	}
	if err := tx.Model(&existing).Updates(updates).Error; err != nil {
		return fmt.Errorf("indexer: update treasure: %w", err)
	}
	return nil
}

func displayName(address string) string {
	short := strings.TrimPrefix(address, "hunt1")
	if len(short) > 8 {
		short = short[:8]
	}
	return "Player_" + short
}

func recordDiscovery(tx *gorm.DB, d discovery) error {
	var row Treasure
	err := tx.Where("address = ?", d.Treasure).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = Treasure{
			ID:           uuid.New(),
			Address:      d.Treasure,
			Handle:       handleFor(d.Name, d.Treasure),
			Name:         d.Name,
			Mint:         d.Mint,
			RewardAmount: NewAmount(d.Reward),
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("indexer: insert treasure: %w", err)
		}
	case err != nil:
		return fmt.Errorf("indexer: load treasure: %w", err)
	}
	if row.Found {
		return nil
	}
	if err := tx.Model(&row).Updates(map[string]any{
		"found":         true,
		"finder":        d.Finder,
		"found_at_unix": d.FoundAt,
	}).Error; err != nil {
		return fmt.Errorf("indexer: mark found: %w", err)
	}

	var player Player
	fresh := false
	err = tx.Where("address = ?", d.Finder).First(&player).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		player = Player{ID: uuid.New(), Address: d.Finder, DisplayName: displayName(d.Finder)}
		fresh = true
	case err != nil:
		return fmt.Errorf("indexer: load player: %w", err)
	}
	player.Finds++
	player.RewardTotal = player.RewardTotal.Add(d.Reward)
	if d.FoundAt > player.LastFindAtUnix {
		player.LastFindAtUnix = d.FoundAt
	}
	save := tx.Save
	if fresh {
		save = tx.Create
	}
	if err := save(&player).Error; err != nil {
		return fmt.Errorf("indexer: save player: %w", err)
	}
	for _, milestone := range Milestones {
		if player.Finds != milestone.Finds {
			continue
		}
		achievement := Achievement{
			ID:             uuid.New(),
			PlayerAddress:  player.Address,
			Name:           milestone.Name,
			Threshold:      milestone.Finds,
			UnlockedAtUnix: d.FoundAt,
		}
		if err := tx.Create(&achievement).Error; err != nil {
			return fmt.Errorf("indexer: unlock %s: %w", milestone.Name, err)
		}
	}
	observability.Runtime().SetIndexerTimestamp(d.FoundAt)
	return nil
}
