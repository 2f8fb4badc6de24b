package blobstore

import (
	"context"
	"sync"

	"github.com/ipfs/go-cid"

	"github.com/blockmarket/blockmarket/lib/chash"
)

// MemBlobstore is an in-memory blob store for tests. Identifiers are real
// sha2-256 CIDv0s, so content hashes round-trip through it exactly like
// through a live store.
type MemBlobstore struct {
	mu     sync.Mutex
	blobs  map[cid.Cid][]byte
	pinned map[cid.Cid]struct{}
}

var _ Blobstore = (*MemBlobstore)(nil)

func NewMemBlobstore() *MemBlobstore {
	return &MemBlobstore{
		blobs:  make(map[cid.Cid][]byte),
		pinned: make(map[cid.Cid]struct{}),
	}
}

func (m *MemBlobstore) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	c := chash.Sum(data).Cid()

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)
	m.blobs[c] = cp
	return c, nil
}

func (m *MemBlobstore) Get(ctx context.Context, c cid.Cid) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.blobs[c]
	if !ok {
		return nil, ErrNotFound
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (m *MemBlobstore) Pin(ctx context.Context, c cid.Cid) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blobs[c]; !ok {
		return ErrNotFound
	}
	m.pinned[c] = struct{}{}
	return nil
}

// Pinned reports whether a blob was pinned.
func (m *MemBlobstore) Pinned(c cid.Cid) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.pinned[c]
	return ok
}
