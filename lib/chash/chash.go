// Package chash converts between the fixed 32-byte content digest stored in
// registry records and the CIDv0 identifier under which the same content is
// addressable in the blob store. A registry record only has room for the raw
// sha2-256 digest, so the multihash prefix (0x12 0x20) is stripped before a
// digest goes on chain and restored when the content is fetched back.
package chash

import (
	"crypto/sha256"
	"encoding/json"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
	"golang.org/x/xerrors"
)

// DigestLength is the length of the raw digest carried on chain.
const DigestLength = 32

// ContentHash is the raw sha2-256 digest of a blob-store object.
type ContentHash [DigestLength]byte

// Undef is the zero digest, used where a record carries no content.
var Undef = ContentHash{}

// Sum returns the content hash of data. The blob store addresses raw blocks
// by their sha2-256, so this matches the identifier the store would assign.
func Sum(data []byte) ContentHash {
	return ContentHash(sha256.Sum256(data))
}

// Cid returns the CIDv0 under which content with this digest is addressable.
func (h ContentHash) Cid() cid.Cid {
	enc, err := mh.Encode(h[:], mh.SHA2_256)
	if err != nil {
		// mh.Encode only fails on unknown codes; SHA2_256 is known.
		panic(err)
	}
	return cid.NewCidV0(enc)
}

// String returns the base58btc blob-store identifier ("Qm...").
func (h ContentHash) String() string {
	return h.Cid().String()
}

func (h ContentHash) Defined() bool {
	return h != Undef
}

// FromCid extracts the raw digest from a blob-store identifier. Only CIDv0
// sha2-256 identifiers can be stored on chain; anything else is an error.
func FromCid(c cid.Cid) (ContentHash, error) {
	if c.Version() != 0 {
		return Undef, xerrors.Errorf("content id %s: expected CIDv0, got version %d", c, c.Version())
	}

	dec, err := mh.Decode(c.Hash())
	if err != nil {
		return Undef, xerrors.Errorf("decoding multihash of %s: %w", c, err)
	}
	if dec.Code != mh.SHA2_256 {
		return Undef, xerrors.Errorf("content id %s: unsupported hash function %d", c, dec.Code)
	}
	if dec.Length != DigestLength {
		return Undef, xerrors.Errorf("content id %s: unexpected digest length %d", c, dec.Length)
	}

	var h ContentHash
	copy(h[:], dec.Digest)
	return h, nil
}

// Parse parses a blob-store identifier string into a content hash.
func Parse(s string) (ContentHash, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return Undef, xerrors.Errorf("parsing content id %q: %w", s, err)
	}
	return FromCid(c)
}

func (h ContentHash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *ContentHash) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
