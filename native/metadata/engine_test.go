package metadata

import (
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"treasurehunt/crypto"
	"treasurehunt/native/token"
)

type mockState struct {
	mints    map[crypto.Address]*token.Mint
	metadata map[crypto.Address]*Metadata
	editions map[crypto.Address]*MasterEdition
}

func newMockState() *mockState {
	return &mockState{
		mints:    make(map[crypto.Address]*token.Mint),
		metadata: make(map[crypto.Address]*Metadata),
		editions: make(map[crypto.Address]*MasterEdition),
	}
}

func (m *mockState) TokenMintGet(addr crypto.Address) (*token.Mint, bool, error) {
	mint, ok := m.mints[addr]
	if !ok {
		return nil, false, nil
	}
	return mint.Clone(), true, nil
}

func (m *mockState) MetadataGet(addr crypto.Address) (*Metadata, bool, error) {
	md, ok := m.metadata[addr]
	if !ok {
		return nil, false, nil
	}
	return md.Clone(), true, nil
}

func (m *mockState) MetadataPut(md *Metadata) error {
	m.metadata[md.Address] = md.Clone()
	return nil
}

func (m *mockState) EditionGet(addr crypto.Address) (*MasterEdition, bool, error) {
	ed, ok := m.editions[addr]
	if !ok {
		return nil, false, nil
	}
	return ed.Clone(), true, nil
}

func (m *mockState) EditionPut(ed *MasterEdition) error {
	m.editions[ed.Address] = ed.Clone()
	return nil
}

func testAddress(b byte) crypto.Address {
	var addr crypto.Address
	addr[0] = b
	addr[31] = b
	return addr
}

type fixture struct {
	engine    *Engine
	state     *mockState
	mint      crypto.Address
	authority crypto.Address
}

func newFixture() fixture {
	state := newMockState()
	mint, authority := testAddress(1), testAddress(2)
	state.mints[mint] = &token.Mint{Address: mint, MintAuthority: authority, Supply: new(uint256.Int)}
	engine := NewEngine()
	engine.SetState(state)
	return fixture{engine: engine, state: state, mint: mint, authority: authority}
}

func (f fixture) params() CreateMetadataParams {
	return CreateMetadataParams{
		Mint:                 f.mint,
		MintAuthority:        f.authority,
		UpdateAuthority:      f.authority,
		Name:                 "Cave",
		Symbol:               "CAVE",
		URI:                  "https://example.com/cave.json",
		SellerFeeBasisPoints: 500,
		Creators:             []Creator{{Address: f.authority, Verified: false, Share: 100}},
		IsMutable:            true,
	}
}

func TestCreateMetadataAndEdition(t *testing.T) {
	f := newFixture()

	md, err := f.engine.CreateMetadata(f.params())
	require.NoError(t, err)
	require.Equal(t, MetadataAddress(f.mint), md.Address)
	require.Equal(t, uint16(500), md.SellerFeeBasisPoints)

	_, err = f.engine.CreateMetadata(f.params())
	require.ErrorIs(t, err, ErrMetadataExists)

	zero := uint64(0)
	ed, err := f.engine.CreateMasterEdition(CreateMasterEditionParams{
		Mint:            f.mint,
		MintAuthority:   f.authority,
		UpdateAuthority: f.authority,
		MaxSupply:       &zero,
	})
	require.NoError(t, err)
	require.NotNil(t, ed.MaxSupply)
	require.Equal(t, uint64(0), *ed.MaxSupply)
	require.False(t, ed.Unlimited())

	stored, err := f.engine.MasterEdition(f.mint)
	require.NoError(t, err)
	require.Equal(t, EditionAddress(f.mint), stored.Address)

	_, err = f.engine.CreateMasterEdition(CreateMasterEditionParams{Mint: f.mint, MintAuthority: f.authority, UpdateAuthority: f.authority})
	require.ErrorIs(t, err, ErrEditionExists)
}

func TestCreateMetadataValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CreateMetadataParams)
		want   error
	}{
		{"name", func(p *CreateMetadataParams) { p.Name = strings.Repeat("n", MaxNameLength+1) }, ErrNameTooLong},
		{"symbol", func(p *CreateMetadataParams) { p.Symbol = strings.Repeat("s", MaxSymbolLength+1) }, ErrSymbolTooLong},
		{"uri", func(p *CreateMetadataParams) { p.URI = strings.Repeat("u", MaxURILength+1) }, ErrURITooLong},
		{"fee", func(p *CreateMetadataParams) { p.SellerFeeBasisPoints = 10_001 }, ErrInvalidSellerFee},
		{"shares", func(p *CreateMetadataParams) { p.Creators[0].Share = 99 }, ErrInvalidCreatorShares},
		{"verified stranger", func(p *CreateMetadataParams) {
			p.Creators = []Creator{{Address: testAddress(9), Verified: true, Share: 100}}
		}, ErrUpdateAuthority},
		{"duplicate", func(p *CreateMetadataParams) {
			p.Creators = []Creator{{Address: testAddress(9), Share: 50}, {Address: testAddress(9), Share: 50}}
		}, ErrDuplicateCreator},
		{"mint authority", func(p *CreateMetadataParams) { p.MintAuthority = testAddress(9) }, ErrMintAuthorityMismatch},
		{"missing mint", func(p *CreateMetadataParams) { p.Mint = testAddress(8) }, ErrMintNotFound},
		{"address", func(p *CreateMetadataParams) { p.Address = testAddress(7) }, ErrAddressMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			params := f.params()
			tc.mutate(&params)
			_, err := f.engine.CreateMetadata(params)
			require.ErrorIs(t, err, tc.want)
			require.Empty(t, f.state.metadata)
		})
	}
}

func TestCreateMasterEditionPreconditions(t *testing.T) {
	f := newFixture()
	params := CreateMasterEditionParams{Mint: f.mint, MintAuthority: f.authority, UpdateAuthority: f.authority}

	_, err := f.engine.CreateMasterEdition(params)
	require.ErrorIs(t, err, ErrMetadataNotFound)

	_, err = f.engine.CreateMetadata(f.params())
	require.NoError(t, err)

	wrong := params
	wrong.UpdateAuthority = testAddress(5)
	_, err = f.engine.CreateMasterEdition(wrong)
	require.ErrorIs(t, err, ErrUpdateAuthority)

	f.state.mints[f.mint].Supply = uint256.NewInt(2)
	_, err = f.engine.CreateMasterEdition(params)
	require.ErrorIs(t, err, ErrSupplyTooHigh)

	f.state.mints[f.mint].Supply = uint256.NewInt(1)
	ed, err := f.engine.CreateMasterEdition(params)
	require.NoError(t, err)
	require.True(t, ed.Unlimited())
}
