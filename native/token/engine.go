package token

import (
	"github.com/holiman/uint256"

	"treasurehunt/core/events"
	"treasurehunt/crypto"
)

type engineState interface {
	TokenMintGet(addr crypto.Address) (*Mint, bool, error)
	TokenMintPut(mint *Mint) error
	TokenAccountGet(addr crypto.Address) (*Account, bool, error)
	TokenAccountPut(acct *Account) error
}

// Engine implements the mint and token-account program.
type Engine struct {
	state   engineState
	emitter events.Emitter
}

// NewEngine constructs a token engine with a no-op emitter.
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

// InitializeMint creates a new mint with zero supply.
func (e *Engine) InitializeMint(addr, authority crypto.Address, decimals uint8) (*Mint, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if addr.IsZero() || authority.IsZero() {
		return nil, ErrZeroAddress
	}
	_, exists, err := e.state.TokenMintGet(addr)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrMintExists
	}
	mint := &Mint{
		Address:       addr,
		MintAuthority: authority,
		Decimals:      decimals,
		Supply:        new(uint256.Int),
	}
	if err := e.state.TokenMintPut(mint); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.Wrap(mintInitializedEvent(mint)))
	return mint.Clone(), nil
}

// Mint returns the mint stored at addr.
func (e *Engine) Mint(addr crypto.Address) (*Mint, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	mint, ok, err := e.state.TokenMintGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMintNotFound
	}
	return mint, nil
}

// CreateAssociatedAccount returns the owner's associated account for mint,
// creating it when absent. Repeated calls are no-ops.
func (e *Engine) CreateAssociatedAccount(owner, mint crypto.Address) (*Account, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if owner.IsZero() {
		return nil, ErrZeroAddress
	}
	if _, err := e.Mint(mint); err != nil {
		return nil, err
	}
	addr := AssociatedAddress(owner, mint)
	existing, ok, err := e.state.TokenAccountGet(addr)
	if err != nil {
		return nil, err
	}
	if ok {
		if existing.Mint != mint {
			return nil, ErrAccountMintMismatch
		}
		return existing, nil
	}
	acct := &Account{Address: addr, Mint: mint, Owner: owner, Amount: new(uint256.Int)}
	if err := e.state.TokenAccountPut(acct); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.Wrap(accountCreatedEvent(acct)))
	return acct.Clone(), nil
}

// MintTo credits amount units of mint to the destination account. The caller
// must present the mint authority.
func (e *Engine) MintTo(mintAddr, dest, authority crypto.Address, amount uint64) error {
	if e.state == nil {
		return ErrNilState
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	mint, err := e.Mint(mintAddr)
	if err != nil {
		return err
	}
	if mint.MintAuthority != authority {
		return ErrAuthorityMismatch
	}
	acct, ok, err := e.state.TokenAccountGet(dest)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAccountNotFound
	}
	if acct.Mint != mintAddr {
		return ErrAccountMintMismatch
	}
	delta := uint256.NewInt(amount)
	supply, overflow := new(uint256.Int).AddOverflow(cloneAmount(mint.Supply), delta)
	if overflow {
		return ErrSupplyOverflow
	}
	balance, overflow := new(uint256.Int).AddOverflow(cloneAmount(acct.Amount), delta)
	if overflow {
		return ErrSupplyOverflow
	}
	mint.Supply = supply
	acct.Amount = balance
	if err := e.state.TokenMintPut(mint); err != nil {
		return err
	}
	if err := e.state.TokenAccountPut(acct); err != nil {
		return err
	}
	e.emitter.Emit(events.Wrap(mintedEvent(mintAddr, acct, delta, supply)))
	return nil
}

// Balance reports the owner's associated-account balance of mint. Missing
// accounts hold zero.
func (e *Engine) Balance(owner, mint crypto.Address) (*uint256.Int, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	acct, ok, err := e.state.TokenAccountGet(AssociatedAddress(owner, mint))
	if err != nil {
		return nil, err
	}
	if !ok {
		return new(uint256.Int), nil
	}
	return cloneAmount(acct.Amount), nil
}
