package types

import (
	big2 "github.com/filecoin-project/go-state-types/big"
	"github.com/shopspring/decimal"
	"golang.org/x/xerrors"

	"github.com/blockmarket/blockmarket/build"
)

// Amount is an integer number of base units. Prices and payments travel on
// chain in base units; one display unit is 10^18 base units.
type Amount = big2.Int

var EmptyAmount = Amount{}

func NewAmount(i uint64) Amount {
	return big2.NewIntUnsigned(i)
}

func ZeroAmount() Amount {
	return big2.Zero()
}

// ParseUnits converts a decimal display-unit string ("1.5") to base units.
func ParseUnits(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return EmptyAmount, xerrors.Errorf("parsing amount %q: %w", s, err)
	}

	shifted := d.Shift(build.UnitPrecision)
	if !shifted.IsInteger() {
		return EmptyAmount, xerrors.Errorf("amount %q has more than %d decimal places", s, build.UnitPrecision)
	}
	if shifted.IsNegative() {
		return EmptyAmount, xerrors.Errorf("amount %q is negative", s)
	}

	return big2.NewFromGo(shifted.BigInt()), nil
}

// FormatUnits converts base units to a decimal display-unit string.
func FormatUnits(a Amount) string {
	if a.Nil() {
		return "0"
	}
	return decimal.NewFromBigInt(a.Int, -build.UnitPrecision).String()
}

func BigAdd(a, b Amount) Amount {
	return big2.Add(a, b)
}

// TotalPayment is the payment a purchase of quantity items must carry.
func TotalPayment(pricePerUnit Amount, quantity uint64) Amount {
	return big2.Mul(pricePerUnit, NewAmount(quantity))
}
