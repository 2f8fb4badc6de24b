package types

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"golang.org/x/xerrors"
)

// AddressLength is the length of a chain account address in bytes.
const AddressLength = 20

// Address is a chain account address. The canonical textual form is
// lower-case 0x-prefixed hex; parsing accepts any case so that two spellings
// of the same account always compare equal.
type Address [AddressLength]byte

// UndefAddress is the zero address, meaning "no account".
var UndefAddress = Address{}

func ParseAddress(s string) (Address, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return UndefAddress, xerrors.Errorf("address %q: missing 0x prefix", s)
	}

	raw, err := hex.DecodeString(s[2:])
	if err != nil {
		return UndefAddress, xerrors.Errorf("address %q: %w", s, err)
	}
	if len(raw) != AddressLength {
		return UndefAddress, xerrors.Errorf("address %q: expected %d bytes, got %d", s, AddressLength, len(raw))
	}

	var a Address
	copy(a[:], raw)
	return a, nil
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) Empty() bool {
	return a == UndefAddress
}

func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Address) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
