package treasure

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"treasurehunt/core/events"
	"treasurehunt/crypto"
	"treasurehunt/native/metadata"
	"treasurehunt/native/token"
)

const (
	// Royalty recorded on every claim-token metadata account.
	sellerFeeBasisPoints = 500
	claimTokenDecimals   = 0
	claimAmount          = 1
)

type engineState interface {
	TreasureAccountGet(addr crypto.Address) ([]byte, bool, error)
	TreasureAccountPut(addr crypto.Address, data []byte) error
	TreasureIndexAdd(addr crypto.Address, createdAt int64) error
	TreasureCreatedAt(addr crypto.Address) (int64, bool, error)
	TreasureIndex() ([]crypto.Address, error)
}

// TokenProgram is the subset of the token program the treasure program invokes.
type TokenProgram interface {
	InitializeMint(addr, authority crypto.Address, decimals uint8) (*token.Mint, error)
	CreateAssociatedAccount(owner, mint crypto.Address) (*token.Account, error)
	MintTo(mint, dest, authority crypto.Address, amount uint64) error
}

// MetadataProgram is the subset of the metadata program the treasure program invokes.
type MetadataProgram interface {
	CreateMetadata(params metadata.CreateMetadataParams) (*metadata.Metadata, error)
	CreateMasterEdition(params metadata.CreateMasterEditionParams) (*metadata.MasterEdition, error)
}

// CreateParams registers a new treasure. The optional account addresses are
// checked against their derivations; zero values are derived.
type CreateParams struct {
	Authority     crypto.Address
	Seed          string
	Name          string
	Symbol        string
	URI           string
	LocationLat   float64
	LocationLng   float64
	RewardAmount  uint64
	Treasure      crypto.Address
	Mint          crypto.Address
	Metadata      crypto.Address
	MasterEdition crypto.Address
}

// DiscoverParams claims a treasure on behalf of Finder. Authority must be the
// treasure authority that co-signed the claim.
type DiscoverParams struct {
	Treasure           crypto.Address
	Mint               crypto.Address
	Finder             crypto.Address
	Authority          crypto.Address
	FinderTokenAccount crypto.Address
	ClaimLat           *float64
	ClaimLng           *float64
}

// NearbyQuery selects treasures around a point.
type NearbyQuery struct {
	Lat          float64
	Lng          float64
	RadiusMeters float64
	UnfoundOnly  bool
	Limit        int
}

// NearbyResult is a treasure with its distance to the query point.
type NearbyResult struct {
	Record         *Record `json:"record"`
	DistanceMeters float64 `json:"distanceMeters"`
}

// Engine implements the treasure program on top of the token and metadata
// programs.
type Engine struct {
	state         engineState
	tokens        TokenProgram
	metadata      MetadataProgram
	emitter       events.Emitter
	nowFn         func() int64
	logFn         func(format string, args ...any)
	proximityRadM float64
}

// NewEngine constructs a treasure engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
		logFn: func(string, ...any) {},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetPrograms wires the programs invoked during create and discover.
func (e *Engine) SetPrograms(tokens TokenProgram, md MetadataProgram) {
	e.tokens = tokens
	e.metadata = md
}

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetLogFunc installs the sink for program log lines.
func (e *Engine) SetLogFunc(fn func(format string, args ...any)) {
	if fn == nil {
		e.logFn = func(string, ...any) {}
		return
	}
	e.logFn = fn
}

// SetProximityRadius enables the claimant location check. Zero disables it.
func (e *Engine) SetProximityRadius(meters float64) {
	if meters < 0 || math.IsNaN(meters) {
		meters = 0
	}
	e.proximityRadM = meters
}

func (e *Engine) ready() error {
	if e.state == nil {
		return ErrNilState
	}
	if e.tokens == nil || e.metadata == nil {
		return ErrProgramsNotSet
	}
	return nil
}

func checkDerived(supplied, derived crypto.Address) error {
	if !supplied.IsZero() && supplied != derived {
		return ErrAddressMismatch
	}
	return nil
}

// CreateTreasure allocates the treasure account together with its claim mint,
// metadata and master edition. The caller runs it inside a transaction so any
// failure discards every write.
func (e *Engine) CreateTreasure(params CreateParams) (*Record, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if params.Authority.IsZero() {
		return nil, ErrZeroAddress
	}
	// The name doubles as the default seed, so its capacity is checked before
	// derivation sees it.
	if err := checkStrings(params.Name, params.Symbol, params.URI); err != nil {
		return nil, err
	}
	seed := params.Seed
	if seed == "" {
		seed = params.Name
	}
	addr, err := TreasureAddress(params.Authority, seed)
	if err != nil {
		return nil, fmt.Errorf("treasure: derive address: %w", err)
	}
	if err := checkDerived(params.Treasure, addr); err != nil {
		return nil, err
	}
	mint := MintAddress(addr)
	if err := checkDerived(params.Mint, mint); err != nil {
		return nil, err
	}
	record := &Treasure{
		Authority:    params.Authority,
		Mint:         mint,
		Name:         params.Name,
		Symbol:       params.Symbol,
		URI:          params.URI,
		LocationLat:  params.LocationLat,
		LocationLng:  params.LocationLng,
		RewardAmount: params.RewardAmount,
	}
	// Encode first so an oversized field fails before any program is invoked.
	encoded, err := Encode(record)
	if err != nil {
		return nil, err
	}
	_, exists, err := e.state.TreasureAccountGet(addr)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrTreasureExists
	}

	if _, err := e.tokens.InitializeMint(mint, params.Authority, claimTokenDecimals); err != nil {
		return nil, err
	}
	if _, err := e.metadata.CreateMetadata(metadata.CreateMetadataParams{
		Address:              params.Metadata,
		Mint:                 mint,
		MintAuthority:        params.Authority,
		UpdateAuthority:      params.Authority,
		Name:                 params.Name,
		Symbol:               params.Symbol,
		URI:                  params.URI,
		SellerFeeBasisPoints: sellerFeeBasisPoints,
		Creators:             []metadata.Creator{{Address: params.Authority, Verified: false, Share: 100}},
		IsMutable:            true,
	}); err != nil {
		return nil, err
	}
	noPrints := uint64(0)
	if _, err := e.metadata.CreateMasterEdition(metadata.CreateMasterEditionParams{
		Address:         params.MasterEdition,
		Mint:            mint,
		MintAuthority:   params.Authority,
		UpdateAuthority: params.Authority,
		MaxSupply:       &noPrints,
	}); err != nil {
		return nil, err
	}

	createdAt := e.nowFn()
	if err := e.state.TreasureAccountPut(addr, encoded); err != nil {
		return nil, err
	}
	if err := e.state.TreasureIndexAdd(addr, createdAt); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.Wrap(CreatedEvent(addr, record, createdAt)))
	e.logFn("treasure %q created at %s", record.Name, addr.String())
	return &Record{Address: addr, CreatedAt: createdAt, Treasure: record}, nil
}

// DiscoverTreasure marks the treasure found by the finder and mints the claim
// token into the finder's associated token account. The reward is reported,
// never transferred.
func (e *Engine) DiscoverTreasure(params DiscoverParams) (*Record, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if params.Finder.IsZero() {
		return nil, ErrZeroAddress
	}
	record, err := e.Get(params.Treasure)
	if err != nil {
		return nil, err
	}
	t := record.Treasure
	if params.Mint != t.Mint {
		return nil, ErrMintMismatch
	}
	if params.Authority != t.Authority {
		return nil, ErrUnauthorized
	}
	if t.IsFound {
		return nil, ErrTreasureAlreadyFound
	}
	if err := e.checkProximity(t, params); err != nil {
		return nil, err
	}
	tokenAccount := token.AssociatedAddress(params.Finder, t.Mint)
	if err := checkDerived(params.FinderTokenAccount, tokenAccount); err != nil {
		return nil, err
	}

	foundAt := e.nowFn()
	if foundAt < record.CreatedAt {
		foundAt = record.CreatedAt
	}
	t.IsFound = true
	t.Finder = params.Finder
	t.FoundAt = foundAt
	encoded, err := Encode(t)
	if err != nil {
		return nil, err
	}
	if err := e.state.TreasureAccountPut(params.Treasure, encoded); err != nil {
		return nil, err
	}

	if _, err := e.tokens.CreateAssociatedAccount(params.Finder, t.Mint); err != nil {
		return nil, err
	}
	if err := e.tokens.MintTo(t.Mint, tokenAccount, t.Authority, claimAmount); err != nil {
		return nil, err
	}

	e.emitter.Emit(events.Wrap(DiscoveredEvent(params.Treasure, t, tokenAccount)))
	e.emitter.Emit(events.Wrap(RewardAdvisedEvent(params.Treasure, t.Finder, t.RewardAmount)))
	e.logFn("reward: %d (advisory, not transferred) for finder %s", t.RewardAmount, t.Finder.String())
	return record, nil
}

func (e *Engine) checkProximity(t *Treasure, params DiscoverParams) error {
	if e.proximityRadM <= 0 {
		return nil
	}
	if params.ClaimLat == nil || params.ClaimLng == nil {
		return fmt.Errorf("%w: claimant position required", ErrInvalidLocation)
	}
	dist := Distance(t.LocationLat, t.LocationLng, *params.ClaimLat, *params.ClaimLng)
	if math.IsNaN(dist) || dist > e.proximityRadM {
		return fmt.Errorf("%w: %.1fm from treasure, limit %.1fm", ErrInvalidLocation, dist, e.proximityRadM)
	}
	return nil
}

// Get loads the treasure stored at addr.
func (e *Engine) Get(addr crypto.Address) (*Record, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	data, ok, err := e.state.TreasureAccountGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTreasureNotFound
	}
	t, err := Decode(data)
	if err != nil {
		return nil, err
	}
	createdAt, _, err := e.state.TreasureCreatedAt(addr)
	if err != nil {
		return nil, err
	}
	return &Record{Address: addr, CreatedAt: createdAt, Treasure: t}, nil
}

// List returns treasures in creation order along with the total count.
func (e *Engine) List(offset, limit int) ([]*Record, int, error) {
	if e.state == nil {
		return nil, 0, ErrNilState
	}
	index, err := e.state.TreasureIndex()
	if err != nil {
		return nil, 0, err
	}
	total := len(index)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []*Record{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]*Record, 0, end-offset)
	for _, addr := range index[offset:end] {
		record, err := e.Get(addr)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, record)
	}
	return out, total, nil
}

// Nearby returns treasures within the query radius, nearest first.
func (e *Engine) Nearby(q NearbyQuery) ([]NearbyResult, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if math.IsNaN(q.Lat) || math.IsNaN(q.Lng) {
		return nil, errors.New("treasure: invalid query position")
	}
	radius := q.RadiusMeters
	if radius <= 0 {
		radius = DefaultNearbyRadiusMeters
	}
	records, _, err := e.List(0, 0)
	if err != nil {
		return nil, err
	}
	out := make([]NearbyResult, 0)
	for _, record := range records {
		if q.UnfoundOnly && record.Treasure.IsFound {
			continue
		}
		dist := Distance(q.Lat, q.Lng, record.Treasure.LocationLat, record.Treasure.LocationLng)
		if dist <= radius {
			out = append(out, NearbyResult{Record: record, DistanceMeters: dist})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceMeters < out[j].DistanceMeters })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}
