package indexer

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// amountDigits is the decimal width of the largest uint256.
const amountDigits = 78

// Amount is an unsigned reward amount. It is stored as a zero-padded decimal
// string so that ordering and comparison in SQL follow numeric order on every
// driver, including values database/sql cannot bind as integers.
type Amount struct {
	v uint256.Int
}

func NewAmount(v uint64) Amount {
	var a Amount
	a.v.SetUint64(v)
	return a
}

// Add returns a+v. Sums of uint64 rewards cannot overflow 256 bits in practice;
// an overflow saturates.
func (a Amount) Add(v uint64) Amount {
	var out Amount
	if _, overflow := out.v.AddOverflow(&a.v, uint256.NewInt(v)); overflow {
		out.v.SetAllOne()
	}
	return out
}

func (a Amount) String() string { return a.v.Dec() }

// Uint64 returns the amount when it fits in 64 bits.
func (a Amount) Uint64() (uint64, bool) {
	return a.v.Uint64(), a.v.IsUint64()
}

func (Amount) GormDataType() string { return "string" }

func (a Amount) Value() (driver.Value, error) {
	dec := a.v.Dec()
	return strings.Repeat("0", amountDigits-len(dec)) + dec, nil
}

func (a *Amount) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		a.v.Clear()
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("indexer: negative amount %d", v)
		}
		a.v.SetUint64(uint64(v))
		return nil
	default:
		return fmt.Errorf("indexer: cannot scan %T into Amount", src)
	}
	raw = strings.TrimLeft(strings.TrimSpace(raw), "0")
	if raw == "" {
		a.v.Clear()
		return nil
	}
	parsed, err := uint256.FromDecimal(raw)
	if err != nil {
		return fmt.Errorf("indexer: parse amount %q: %w", raw, err)
	}
	a.v.Set(parsed)
	return nil
}

// MarshalJSON renders the amount as a decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.v.Dec())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return a.Scan(s)
}
