package treasure

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleTreasure() *Treasure {
	return &Treasure{
		Authority:    testAddress(1),
		Mint:         testAddress(2),
		Name:         "Cave",
		Symbol:       "CAVE",
		URI:          "https://example.com/cave.json",
		LocationLat:  48.8584,
		LocationLng:  2.2945,
		RewardAmount: 1000,
	}
}

func TestAccountSize(t *testing.T) {
	if AccountSize != 409 {
		t.Fatalf("unexpected account size: %d", AccountSize)
	}
}

func TestEncodeDecodeStoresFieldsVerbatim(t *testing.T) {
	original := sampleTreasure()
	original.IsFound = true
	original.Finder = testAddress(3)
	original.FoundAt = 1_700_000_000

	data, err := Encode(original)
	require.NoError(t, err)
	require.Len(t, data, AccountSize)
	require.True(t, bytes.HasPrefix(data, Discriminator[:]))

	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, original, decoded)
}

func TestEncodeKeepsZeroReward(t *testing.T) {
	tr := sampleTreasure()
	tr.RewardAmount = 0
	data, err := Encode(tr)
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Zero(t, decoded.RewardAmount)
	require.False(t, decoded.IsFound)
	require.True(t, decoded.Finder.IsZero())
	require.Zero(t, decoded.FoundAt)
}

func TestEncodeRejectsOversizedStrings(t *testing.T) {
	cases := map[string]func(*Treasure){
		"name":   func(tr *Treasure) { tr.Name = strings.Repeat("x", NameCapacity+1) },
		"symbol": func(tr *Treasure) { tr.Symbol = strings.Repeat("x", SymbolCapacity+1) },
		"uri":    func(tr *Treasure) { tr.URI = strings.Repeat("x", URICapacity+1) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			tr := sampleTreasure()
			mutate(tr)
			_, err := Encode(tr)
			require.ErrorIs(t, err, ErrFieldTooLong)
		})
	}

	full := sampleTreasure()
	full.Name = strings.Repeat("n", NameCapacity)
	full.Symbol = strings.Repeat("s", SymbolCapacity)
	full.URI = strings.Repeat("u", URICapacity)
	data, err := Encode(full)
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, full.URI, decoded.URI)
}

func TestDecodeRejectsForeignData(t *testing.T) {
	data, err := Encode(sampleTreasure())
	require.NoError(t, err)

	_, err = Decode(data[:AccountSize-1])
	require.ErrorIs(t, err, ErrInvalidAccountData)

	tampered := append([]byte(nil), data...)
	tampered[0] ^= 0xff
	_, err = Decode(tampered)
	require.ErrorIs(t, err, ErrInvalidAccountData)

	badFlag := append([]byte(nil), data...)
	badFlag[AccountSize-8-32-1] = 7
	_, err = Decode(badFlag)
	require.ErrorIs(t, err, ErrInvalidAccountData)
}

func TestDistance(t *testing.T) {
	require.InDelta(t, 0, Distance(10, 10, 10, 10), 1e-9)
	// One degree of latitude is roughly 111.2km.
	require.InDelta(t, 111_195, Distance(0, 0, 1, 0), 50)
}
