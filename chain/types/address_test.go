package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAddressCaseInsensitive(t *testing.T) {
	lower, err := ParseAddress("0xab5801a7d398351b8be11c439e05c5b3259aec9b")
	require.NoError(t, err)

	upper, err := ParseAddress("0xAB5801A7D398351B8BE11C439E05C5B3259AEC9B")
	require.NoError(t, err)

	require.Equal(t, lower, upper)
	require.Equal(t, "0xab5801a7d398351b8be11c439e05c5b3259aec9b", upper.String())
}

func TestParseAddressErrors(t *testing.T) {
	for _, s := range []string{
		"",
		"ab5801a7d398351b8be11c439e05c5b3259aec9b", // no prefix
		"0x1234",  // too short
		"0xzz5801a7d398351b8be11c439e05c5b3259aec9b", // not hex
		"0xab5801a7d398351b8be11c439e05c5b3259aec9b00", // too long
	} {
		_, err := ParseAddress(s)
		require.Error(t, err, s)
	}
}

func TestAddressEmpty(t *testing.T) {
	require.True(t, UndefAddress.Empty())

	a, err := ParseAddress("0xab5801a7d398351b8be11c439e05c5b3259aec9b")
	require.NoError(t, err)
	require.False(t, a.Empty())
}

func TestAddressJSON(t *testing.T) {
	a, err := ParseAddress("0xAB5801A7D398351B8BE11C439E05C5B3259AEC9B")
	require.NoError(t, err)

	b, err := json.Marshal(a)
	require.NoError(t, err)
	require.Equal(t, `"0xab5801a7d398351b8be11c439e05c5b3259aec9b"`, string(b))

	var back Address
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, a, back)
}
