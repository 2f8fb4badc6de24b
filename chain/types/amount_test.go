package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseUnits(t *testing.T) {
	a, err := ParseUnits("1")
	require.NoError(t, err)
	require.Equal(t, "1000000000000000000", a.String())

	a, err = ParseUnits("1.5")
	require.NoError(t, err)
	require.Equal(t, "1500000000000000000", a.String())

	a, err = ParseUnits("0")
	require.NoError(t, err)
	require.Equal(t, "0", a.String())
}

func TestParseUnitsErrors(t *testing.T) {
	_, err := ParseUnits("abc")
	require.Error(t, err)

	_, err = ParseUnits("-1")
	require.Error(t, err)

	// 19 decimal places cannot be represented in base units
	_, err = ParseUnits("0.0000000000000000001")
	require.Error(t, err)
}

func TestFormatUnits(t *testing.T) {
	a, err := ParseUnits("2.25")
	require.NoError(t, err)
	require.Equal(t, "2.25", FormatUnits(a))

	require.Equal(t, "0", FormatUnits(ZeroAmount()))
	require.Equal(t, "0", FormatUnits(EmptyAmount))
}

func TestTotalPayment(t *testing.T) {
	price, err := ParseUnits("1")
	require.NoError(t, err)

	total := TotalPayment(price, 2)
	require.Equal(t, "2", FormatUnits(total))

	// 1.9 units is short of 2 x 1.0
	short, err := ParseUnits("1.9")
	require.NoError(t, err)
	require.True(t, short.LessThan(total))
}
