// Package blobstore is the content-addressed off-chain store holding
// descriptive metadata and images. It is an external collaborator: the sync
// core only ever adds, fetches and pins blobs by content id.
package blobstore

import (
	"context"
	"encoding/json"

	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"
)

var log = logging.Logger("blobstore")

// ErrNotFound is returned when no blob with the requested id is available.
var ErrNotFound = xerrors.New("blob not found")

// Blobstore is the boundary contract to the content-addressed store.
type Blobstore interface {
	// Put publishes data and returns its content id.
	Put(ctx context.Context, data []byte) (cid.Cid, error)

	// Get fetches the raw bytes of a blob.
	Get(ctx context.Context, c cid.Cid) ([]byte, error)

	// Pin asks the store to retain the blob.
	Pin(ctx context.Context, c cid.Cid) error
}

// Descriptor is the JSON document describing a store or product. Image is the
// content id of the referenced image blob.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// ImageCid parses the descriptor's image reference.
func (d Descriptor) ImageCid() (cid.Cid, error) {
	c, err := cid.Decode(d.Image)
	if err != nil {
		return cid.Undef, xerrors.Errorf("descriptor image ref %q: %w", d.Image, err)
	}
	return c, nil
}

// GetDescriptor fetches and parses a descriptor blob.
func GetDescriptor(ctx context.Context, bs Blobstore, c cid.Cid) (Descriptor, error) {
	raw, err := bs.Get(ctx, c)
	if err != nil {
		return Descriptor{}, xerrors.Errorf("fetching descriptor %s: %w", c, err)
	}

	var d Descriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return Descriptor{}, xerrors.Errorf("parsing descriptor %s: %w", c, err)
	}
	return d, nil
}

// PutDescriptor publishes a descriptor blob.
func PutDescriptor(ctx context.Context, bs Blobstore, d Descriptor) (cid.Cid, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return cid.Undef, xerrors.Errorf("encoding descriptor: %w", err)
	}
	return bs.Put(ctx, raw)
}
