package market

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type ent struct {
	id      uint64
	created int64
}

func TestMergeListDedup(t *testing.T) {
	l := newMergeList(
		func(e ent) uint64 { return e.id },
		func(a, b ent) bool { return a.id > b.id },
	)

	require.True(t, l.add(ent{id: 3}))
	require.True(t, l.add(ent{id: 1}))
	require.False(t, l.add(ent{id: 3, created: 99}))

	items := l.snapshot()
	require.Len(t, items, 2)
	// first expansion wins
	require.Equal(t, int64(0), items[0].created)
}

func TestMergeListOrdering(t *testing.T) {
	desc := newMergeList(
		func(e ent) uint64 { return e.id },
		func(a, b ent) bool { return a.id > b.id },
	)
	for _, id := range []uint64{2, 5, 1, 4, 3} {
		desc.add(ent{id: id})
	}

	items := desc.snapshot()
	for i, want := range []uint64{5, 4, 3, 2, 1} {
		require.Equal(t, want, items[i].id)
	}

	asc := newMergeList(
		func(e ent) uint64 { return e.id },
		func(a, b ent) bool { return a.created < b.created },
	)
	asc.add(ent{id: 1, created: 30})
	asc.add(ent{id: 2, created: 10})
	asc.add(ent{id: 3, created: 20})

	items = asc.snapshot()
	for i, want := range []uint64{2, 3, 1} {
		require.Equal(t, want, items[i].id)
	}
}

func TestMergeListSnapshotIsolated(t *testing.T) {
	l := newMergeList(
		func(e ent) uint64 { return e.id },
		func(a, b ent) bool { return a.id > b.id },
	)
	l.add(ent{id: 1})

	snap := l.snapshot()
	l.add(ent{id: 2})

	require.Len(t, snap, 1)
	require.Equal(t, 2, l.len())
}
