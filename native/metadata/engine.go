package metadata

import (
	"treasurehunt/core/events"
	"treasurehunt/crypto"
	"treasurehunt/native/token"
)

type engineState interface {
	TokenMintGet(addr crypto.Address) (*token.Mint, bool, error)
	MetadataGet(addr crypto.Address) (*Metadata, bool, error)
	MetadataPut(md *Metadata) error
	EditionGet(addr crypto.Address) (*MasterEdition, bool, error)
	EditionPut(ed *MasterEdition) error
}

// CreateMetadataParams describes a metadata account to create. Address may be
// left zero, in which case the derived address is used.
type CreateMetadataParams struct {
	Address              crypto.Address
	Mint                 crypto.Address
	MintAuthority        crypto.Address
	UpdateAuthority      crypto.Address
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             []Creator
	IsMutable            bool
}

// CreateMasterEditionParams describes the master edition of a mint.
type CreateMasterEditionParams struct {
	Address         crypto.Address
	Mint            crypto.Address
	MintAuthority   crypto.Address
	UpdateAuthority crypto.Address
	MaxSupply       *uint64
}

// Engine implements the token metadata program.
type Engine struct {
	state   engineState
	emitter events.Emitter
}

// NewEngine constructs a metadata engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func resolveAddress(supplied, derived crypto.Address) (crypto.Address, error) {
	if supplied.IsZero() {
		return derived, nil
	}
	if supplied != derived {
		return crypto.Address{}, ErrAddressMismatch
	}
	return supplied, nil
}

func validateCreators(creators []Creator, updateAuthority crypto.Address) error {
	if len(creators) == 0 {
		return nil
	}
	if len(creators) > MaxCreators {
		return ErrTooManyCreators
	}
	seen := make(map[crypto.Address]struct{}, len(creators))
	total := 0
	for _, c := range creators {
		if _, dup := seen[c.Address]; dup {
			return ErrDuplicateCreator
		}
		seen[c.Address] = struct{}{}
		// Only the signing update authority can vouch for itself.
		if c.Verified && c.Address != updateAuthority {
			return ErrUpdateAuthority
		}
		total += int(c.Share)
	}
	if total != 100 {
		return ErrInvalidCreatorShares
	}
	return nil
}

func (e *Engine) requireMintAuthority(mintAddr, authority crypto.Address) (*token.Mint, error) {
	mint, ok, err := e.state.TokenMintGet(mintAddr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMintNotFound
	}
	if mint.MintAuthority != authority {
		return nil, ErrMintAuthorityMismatch
	}
	return mint, nil
}

// CreateMetadata attaches display metadata to a mint. The mint authority must
// approve the call.
func (e *Engine) CreateMetadata(params CreateMetadataParams) (*Metadata, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	switch {
	case len(params.Name) > MaxNameLength:
		return nil, ErrNameTooLong
	case len(params.Symbol) > MaxSymbolLength:
		return nil, ErrSymbolTooLong
	case len(params.URI) > MaxURILength:
		return nil, ErrURITooLong
	case params.SellerFeeBasisPoints > MaxSellerFeeBasisPts:
		return nil, ErrInvalidSellerFee
	}
	if err := validateCreators(params.Creators, params.UpdateAuthority); err != nil {
		return nil, err
	}
	addr, err := resolveAddress(params.Address, MetadataAddress(params.Mint))
	if err != nil {
		return nil, err
	}
	if _, err := e.requireMintAuthority(params.Mint, params.MintAuthority); err != nil {
		return nil, err
	}
	_, exists, err := e.state.MetadataGet(addr)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrMetadataExists
	}
	md := &Metadata{
		Address:              addr,
		Mint:                 params.Mint,
		UpdateAuthority:      params.UpdateAuthority,
		Name:                 params.Name,
		Symbol:               params.Symbol,
		URI:                  params.URI,
		SellerFeeBasisPoints: params.SellerFeeBasisPoints,
		Creators:             append([]Creator(nil), params.Creators...),
		IsMutable:            params.IsMutable,
	}
	if err := e.state.MetadataPut(md); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.Wrap(metadataCreatedEvent(md)))
	return md.Clone(), nil
}

// CreateMasterEdition caps the print supply of a mint that already carries
// metadata and has at most one unit in circulation.
func (e *Engine) CreateMasterEdition(params CreateMasterEditionParams) (*MasterEdition, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	addr, err := resolveAddress(params.Address, EditionAddress(params.Mint))
	if err != nil {
		return nil, err
	}
	md, ok, err := e.state.MetadataGet(MetadataAddress(params.Mint))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMetadataNotFound
	}
	if md.UpdateAuthority != params.UpdateAuthority {
		return nil, ErrUpdateAuthority
	}
	mint, err := e.requireMintAuthority(params.Mint, params.MintAuthority)
	if err != nil {
		return nil, err
	}
	if mint.Decimals != 0 || (mint.Supply != nil && mint.Supply.GtUint64(1)) {
		return nil, ErrSupplyTooHigh
	}
	_, exists, err := e.state.EditionGet(addr)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEditionExists
	}
	edition := &MasterEdition{Address: addr, Mint: params.Mint}
	if params.MaxSupply != nil {
		v := *params.MaxSupply
		edition.MaxSupply = &v
	}
	if err := e.state.EditionPut(edition); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.Wrap(editionCreatedEvent(edition)))
	return edition.Clone(), nil
}

// Metadata returns the metadata of mint.
func (e *Engine) Metadata(mint crypto.Address) (*Metadata, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	md, ok, err := e.state.MetadataGet(MetadataAddress(mint))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMetadataNotFound
	}
	return md, nil
}

// MasterEdition returns the master edition of mint.
func (e *Engine) MasterEdition(mint crypto.Address) (*MasterEdition, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	ed, ok, err := e.state.EditionGet(EditionAddress(mint))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrEditionNotFound
	}
	return ed, nil
}
