package amount

import (
	"errors"
	"fmt"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/shopspring/decimal"
)

const (
	// MaxPrecision bounds the number of decimal digits a symbol may carry.
	// int64 overflows past 18 digits of scale.
	MaxPrecision = 18

	// MaxCodeLen bounds the ticker length, e.g. "TOK" or "THRYLOS".
	MaxCodeLen = 7
)

var (
	ErrInvalidSymbol    = errors.New("invalid symbol name")
	ErrSymbolMismatch   = errors.New("symbol precision mismatch")
	ErrAmountOverflow   = errors.New("amount overflow")
	ErrMalformedAsset   = errors.New("malformed asset string")
	ErrPrecisionTooHigh = errors.New("precision out of range")
)

// Symbol identifies a token: a short uppercase ticker plus the number of
// decimal digits its amounts are scaled by.
type Symbol struct {
	Code      string `json:"code"`
	Precision uint8  `json:"precision"`
}

func NewSymbol(code string, precision uint8) (Symbol, error) {
	s := Symbol{Code: code, Precision: precision}
	if !s.IsValid() {
		if precision > MaxPrecision {
			return Symbol{}, ErrPrecisionTooHigh
		}
		return Symbol{}, ErrInvalidSymbol
	}
	return s, nil
}

func (s Symbol) IsValid() bool {
	if len(s.Code) == 0 || len(s.Code) > MaxCodeLen || s.Precision > MaxPrecision {
		return false
	}
	return govalidator.IsAlpha(s.Code) && govalidator.IsUpperCase(s.Code)
}

func (s Symbol) Equal(o Symbol) bool {
	return s.Code == o.Code && s.Precision == o.Precision
}

// String renders the EOS-style "precision,CODE" form, e.g. "4,TOK".
func (s Symbol) String() string {
	return fmt.Sprintf("%d,%s", s.Precision, s.Code)
}

// Factor returns 10^Precision, the scale between the minor unit and one
// whole token.
func (s Symbol) Factor() int64 {
	f := int64(1)
	for i := uint8(0); i < s.Precision; i++ {
		f *= 10
	}
	return f
}

// Asset is a fixed-point quantity of one symbol. Amount is the scaled
// integer minor-unit count; all arithmetic stays on int64 so results are
// bit-exact across runs.
type Asset struct {
	Amount int64  `json:"amount"`
	Symbol Symbol `json:"symbol"`
}

func New(amount int64, sym Symbol) Asset {
	return Asset{Amount: amount, Symbol: sym}
}

// Zero returns the zero quantity of sym.
func Zero(sym Symbol) Asset {
	return Asset{Amount: 0, Symbol: sym}
}

// FromString parses "10.0274 TOK" into an Asset. Precision is taken from
// the number of fractional digits written, so "10.00 TOK" has precision 2.
func FromString(str string) (Asset, error) {
	parts := strings.Fields(strings.TrimSpace(str))
	if len(parts) != 2 {
		return Asset{}, fmt.Errorf("%w: %q", ErrMalformedAsset, str)
	}

	var precision uint8
	if dot := strings.IndexByte(parts[0], '.'); dot >= 0 {
		frac := len(parts[0]) - dot - 1
		if frac > MaxPrecision {
			return Asset{}, ErrPrecisionTooHigh
		}
		precision = uint8(frac)
	}

	sym, err := NewSymbol(parts[1], precision)
	if err != nil {
		return Asset{}, err
	}

	d, err := decimal.NewFromString(parts[0])
	if err != nil {
		return Asset{}, fmt.Errorf("%w: %q", ErrMalformedAsset, str)
	}
	scaled := d.Shift(int32(precision))
	if !scaled.IsInteger() {
		return Asset{}, fmt.Errorf("%w: %q", ErrMalformedAsset, str)
	}
	if !scaled.BigInt().IsInt64() {
		return Asset{}, ErrAmountOverflow
	}

	return Asset{Amount: scaled.IntPart(), Symbol: sym}, nil
}

// IsValid reports whether the symbol is well formed.
func (a Asset) IsValid() bool {
	return a.Symbol.IsValid()
}

func (a Asset) IsPositive() bool { return a.Amount > 0 }

// Add returns a+b, rejecting cross-symbol arithmetic.
func (a Asset) Add(b Asset) (Asset, error) {
	if !a.Symbol.Equal(b.Symbol) {
		return Asset{}, ErrSymbolMismatch
	}
	sum := a.Amount + b.Amount
	if (b.Amount > 0 && sum < a.Amount) || (b.Amount < 0 && sum > a.Amount) {
		return Asset{}, ErrAmountOverflow
	}
	return Asset{Amount: sum, Symbol: a.Symbol}, nil
}

// Sub returns a-b, rejecting cross-symbol arithmetic.
func (a Asset) Sub(b Asset) (Asset, error) {
	if !a.Symbol.Equal(b.Symbol) {
		return Asset{}, ErrSymbolMismatch
	}
	diff := a.Amount - b.Amount
	if (b.Amount < 0 && diff < a.Amount) || (b.Amount > 0 && diff > a.Amount) {
		return Asset{}, ErrAmountOverflow
	}
	return Asset{Amount: diff, Symbol: a.Symbol}, nil
}

// String renders the asset with exactly Precision fractional digits,
// e.g. "10.0274 TOK".
func (a Asset) String() string {
	d := decimal.New(a.Amount, -int32(a.Symbol.Precision))
	return d.StringFixed(int32(a.Symbol.Precision)) + " " + a.Symbol.Code
}
