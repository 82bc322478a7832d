package native

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Balance is a native-currency amount in the smallest unit (yocto). Amounts
// are restricted to the u128 range the chain uses on the wire; arithmetic
// that would leave that range reports ErrBalanceOverflow.
type Balance struct {
	v uint256.Int
}

// OneYocto is the minimal attached payment required on state-mutating calls.
var OneYocto = NewBalance(1)

const balanceBits = 128

func NewBalance(v uint64) Balance {
	var b Balance
	b.v.SetUint64(v)
	return b
}

// BalanceFromDecimal parses a base-10 amount, e.g. "1000000000000000000000000".
func BalanceFromDecimal(s string) (Balance, error) {
	var b Balance
	if err := b.v.SetFromDecimal(s); err != nil {
		return Balance{}, fmt.Errorf("parsing balance %q: %w", s, err)
	}
	if b.v.BitLen() > balanceBits {
		return Balance{}, ErrBalanceOverflow
	}
	return b, nil
}

func (b Balance) Add(o Balance) (Balance, error) {
	var r Balance
	r.v.Add(&b.v, &o.v)
	if r.v.BitLen() > balanceBits {
		return Balance{}, ErrBalanceOverflow
	}
	return r, nil
}

// SubChecked returns b-o and reports whether the subtraction was possible.
func (b Balance) SubChecked(o Balance) (Balance, bool) {
	var r Balance
	_, borrow := r.v.SubOverflow(&b.v, &o.v)
	if borrow {
		return Balance{}, false
	}
	return r, true
}

// SubSaturating returns b-o, floored at zero.
func (b Balance) SubSaturating(o Balance) Balance {
	r, ok := b.SubChecked(o)
	if !ok {
		return Balance{}
	}
	return r
}

// MulUint64 is used to price a byte delta: bytes * cost-per-byte.
func (b Balance) MulUint64(n uint64) (Balance, error) {
	var r, m Balance
	m.v.SetUint64(n)
	_, overflow := r.v.MulOverflow(&b.v, &m.v)
	if overflow || r.v.BitLen() > balanceBits {
		return Balance{}, ErrBalanceOverflow
	}
	return r, nil
}

func (b Balance) Cmp(o Balance) int {
	return b.v.Cmp(&o.v)
}

func (b Balance) IsZero() bool {
	return b.v.IsZero()
}

// Uint64 truncates; only meaningful for small test amounts.
func (b Balance) Uint64() uint64 {
	return b.v.Uint64()
}

func (b Balance) String() string {
	return b.v.Dec()
}

// Balances travel as decimal strings on the wire, matching the chain's
// JSON form for 128-bit amounts.
func (b Balance) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.v.Dec() + `"`), nil
}

func (b *Balance) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("balance must be a decimal string, got %s", data)
	}
	parsed, err := BalanceFromDecimal(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

func (b Balance) MarshalText() ([]byte, error) {
	return []byte(b.v.Dec()), nil
}

func (b *Balance) UnmarshalText(text []byte) error {
	parsed, err := BalanceFromDecimal(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
