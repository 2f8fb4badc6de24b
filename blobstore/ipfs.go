package blobstore

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/ipfs/go-cid"
	ipfsapi "github.com/ipfs/go-ipfs-api"
	"github.com/multiformats/go-multiaddr"
	"golang.org/x/xerrors"
)

// IpfsBlobstore talks to an IPFS node over its HTTP API.
type IpfsBlobstore struct {
	sh *ipfsapi.Shell
}

var _ Blobstore = (*IpfsBlobstore)(nil)

// NewIpfsBlobstore connects to the IPFS API at maddr
// (e.g. /ip4/127.0.0.1/tcp/5001). The connection is verified with an ID call
// so an unreachable store is caught at startup rather than mid-expand.
func NewIpfsBlobstore(ctx context.Context, maddr multiaddr.Multiaddr) (*IpfsBlobstore, error) {
	sh := ipfsapi.NewShell(maddr.String())

	id, err := sh.ID()
	if err != nil {
		return nil, xerrors.Errorf("connecting to blob store at %s: %w", maddr, err)
	}
	log.Infow("connected to blob store", "peer", id.ID)

	return &IpfsBlobstore{sh: sh}, nil
}

func (b *IpfsBlobstore) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	// pinning is a separate, explicit step in the publish pipeline
	ref, err := b.sh.Add(bytes.NewReader(data), ipfsapi.Pin(false))
	if err != nil {
		return cid.Undef, xerrors.Errorf("adding blob: %w", err)
	}

	c, err := cid.Decode(ref)
	if err != nil {
		return cid.Undef, xerrors.Errorf("blob store returned invalid id %q: %w", ref, err)
	}
	return c, nil
}

func (b *IpfsBlobstore) Get(ctx context.Context, c cid.Cid) ([]byte, error) {
	rc, err := b.sh.Cat(c.String())
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return nil, ErrNotFound
		}
		return nil, xerrors.Errorf("fetching blob %s: %w", c, err)
	}
	defer rc.Close() // nolint:errcheck

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, xerrors.Errorf("reading blob %s: %w", c, err)
	}
	return data, nil
}

func (b *IpfsBlobstore) Pin(ctx context.Context, c cid.Cid) error {
	if err := b.sh.Pin(c.String()); err != nil {
		return xerrors.Errorf("pinning blob %s: %w", c, err)
	}
	return nil
}
