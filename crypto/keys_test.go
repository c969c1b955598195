package crypto

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressBech32RoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	addr := key.PubKey().Address()
	decoded, err := DecodeAddress(addr.String())
	require.NoError(t, err)
	require.Equal(t, addr, decoded)
	require.Contains(t, addr.String(), "hunt1")
}

func TestDecodeAddressRejectsForeignPrefix(t *testing.T) {
	_, err := DecodeAddress("bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq")
	require.Error(t, err)
}

func TestSignAndVerify(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	digest := []byte("treasure")
	sig := key.Sign(digest)
	require.True(t, Verify(key.PubKey().Address(), digest, sig))
	require.False(t, Verify(key.PubKey().Address(), []byte("other"), sig))
	require.False(t, Verify(key.PubKey().Address(), digest, sig[:10]))
}

func TestDeriveAddressIsDeterministicAndSeedSensitive(t *testing.T) {
	program := ProgramID("metadata")
	mint := ProgramID("some-mint")

	first, err := DeriveAddress(program, []byte("metadata"), program[:], mint[:])
	require.NoError(t, err)
	second, err := DeriveAddress(program, []byte("metadata"), program[:], mint[:])
	require.NoError(t, err)
	require.Equal(t, first, second)

	edition, err := DeriveAddress(program, []byte("metadata"), program[:], mint[:], []byte("edition"))
	require.NoError(t, err)
	require.NotEqual(t, first, edition)

	split1 := MustDeriveAddress(program, []byte("ab"), []byte("c"))
	split2 := MustDeriveAddress(program, []byte("a"), []byte("bc"))
	require.NotEqual(t, split1, split2)

	other := MustDeriveAddress(ProgramID("token"), []byte("metadata"), program[:], mint[:])
	require.NotEqual(t, first, other)
}

func TestDeriveAddressLimits(t *testing.T) {
	program := ProgramID("p")
	_, err := DeriveAddress(program, make([]byte, maxSeedLength+1))
	require.ErrorIs(t, err, ErrSeedTooLong)

	seeds := make([][]byte, maxSeeds+1)
	_, err = DeriveAddress(program, seeds...)
	require.ErrorIs(t, err, ErrTooManySeeds)
}

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "keys", "authority.json")
	require.NoError(t, SaveToKeystoreWithParams(path, key, "s3cret", LightScrypt))

	loaded, err := LoadFromKeystore(path, "s3cret")
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address(), loaded.PubKey().Address())

	_, err = LoadFromKeystore(path, "wrong")
	require.Error(t, err)
}
