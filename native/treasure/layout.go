package treasure

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"treasurehunt/crypto"
)

// Reserved string capacities of the account layout.
const (
	NameCapacity   = 50
	SymbolCapacity = 10
	URICapacity    = 200

	discriminatorSize = 8
	addressSize       = 32
	lengthPrefixSize  = 4
)

// AccountSize is the fixed size of an encoded treasure account:
// discriminator, authority, mint, the three length-prefixed strings at their
// reserved capacity, lat, lng, reward, found flag, finder and found-at.
const AccountSize = discriminatorSize +
	addressSize + addressSize +
	lengthPrefixSize + NameCapacity +
	lengthPrefixSize + SymbolCapacity +
	lengthPrefixSize + URICapacity +
	8 + 8 + 8 + 1 + addressSize + 8

// Discriminator tags treasure accounts so foreign data is never decoded as one.
var Discriminator = func() [discriminatorSize]byte {
	var out [discriminatorSize]byte
	copy(out[:], ethcrypto.Keccak256([]byte("account:Treasure")))
	return out
}()

// Encode serialises t into its fixed little-endian account layout. Strings
// longer than their reserved capacity do not fit the account.
func Encode(t *Treasure) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil treasure", ErrInvalidAccountData)
	}
	buf := make([]byte, AccountSize)
	off := copy(buf, Discriminator[:])
	off += copy(buf[off:], t.Authority[:])
	off += copy(buf[off:], t.Mint[:])
	var err error
	if off, err = putString(buf, off, "name", t.Name, NameCapacity); err != nil {
		return nil, err
	}
	if off, err = putString(buf, off, "symbol", t.Symbol, SymbolCapacity); err != nil {
		return nil, err
	}
	if off, err = putString(buf, off, "uri", t.URI, URICapacity); err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(t.LocationLat))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(t.LocationLng))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], t.RewardAmount)
	off += 8
	if t.IsFound {
		buf[off] = 1
	}
	off++
	off += copy(buf[off:], t.Finder[:])
	binary.LittleEndian.PutUint64(buf[off:], uint64(t.FoundAt))
	return buf, nil
}

// checkStrings reports the first string that does not fit its reserved capacity.
func checkStrings(name, symbol, uri string) error {
	for _, f := range []struct {
		field, value string
		capacity     int
	}{
		{"name", name, NameCapacity},
		{"symbol", symbol, SymbolCapacity},
		{"uri", uri, URICapacity},
	} {
		if err := checkCapacity(f.field, f.value, f.capacity); err != nil {
			return err
		}
	}
	return nil
}

func checkCapacity(field, value string, capacity int) error {
	if len(value) > capacity {
		return fmt.Errorf("%w: %s is %d bytes, capacity %d", ErrFieldTooLong, field, len(value), capacity)
	}
	return nil
}

func putString(buf []byte, off int, field, value string, capacity int) (int, error) {
	if err := checkCapacity(field, value, capacity); err != nil {
		return 0, err
	}
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(value)))
	off += lengthPrefixSize
	copy(buf[off:], value)
	return off + capacity, nil
}

// Decode parses an encoded treasure account.
func Decode(data []byte) (*Treasure, error) {
	if len(data) != AccountSize {
		return nil, fmt.Errorf("%w: size %d", ErrInvalidAccountData, len(data))
	}
	if !bytes.Equal(data[:discriminatorSize], Discriminator[:]) {
		return nil, fmt.Errorf("%w: discriminator", ErrInvalidAccountData)
	}
	t := new(Treasure)
	off := discriminatorSize
	t.Authority = crypto.MustBytesToAddress(data[off : off+addressSize])
	off += addressSize
	t.Mint = crypto.MustBytesToAddress(data[off : off+addressSize])
	off += addressSize
	var err error
	if t.Name, off, err = readString(data, off, "name", NameCapacity); err != nil {
		return nil, err
	}
	if t.Symbol, off, err = readString(data, off, "symbol", SymbolCapacity); err != nil {
		return nil, err
	}
	if t.URI, off, err = readString(data, off, "uri", URICapacity); err != nil {
		return nil, err
	}
	t.LocationLat = math.Float64frombits(binary.LittleEndian.Uint64(data[off:]))
	off += 8
	t.LocationLng = math.Float64frombits(binary.LittleEndian.Uint64(data[off:]))
	off += 8
	t.RewardAmount = binary.LittleEndian.Uint64(data[off:])
	off += 8
	switch data[off] {
	case 0:
	case 1:
		t.IsFound = true
	default:
		return nil, fmt.Errorf("%w: found flag %d", ErrInvalidAccountData, data[off])
	}
	off++
	t.Finder = crypto.MustBytesToAddress(data[off : off+addressSize])
	off += addressSize
	t.FoundAt = int64(binary.LittleEndian.Uint64(data[off:]))
	return t, nil
}

func readString(data []byte, off int, field string, capacity int) (string, int, error) {
	n := int(binary.LittleEndian.Uint32(data[off:]))
	off += lengthPrefixSize
	if n > capacity {
		return "", 0, fmt.Errorf("%w: %s length %d", ErrInvalidAccountData, field, n)
	}
	return string(data[off : off+n]), off + capacity, nil
}
