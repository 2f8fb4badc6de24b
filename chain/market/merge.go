package market

import "sort"

// mergeList accumulates entities arriving from two sources, the bulk
// counter walk and the live event stream, deduplicating by key. An entity
// seen twice keeps its first expansion; update replaces it in place.
type mergeList[K comparable, T any] struct {
	key  func(T) K
	less func(a, b T) bool

	seen  map[K]int
	items []T
}

func newMergeList[K comparable, T any](key func(T) K, less func(a, b T) bool) *mergeList[K, T] {
	return &mergeList[K, T]{
		key:  key,
		less: less,
		seen: make(map[K]int),
	}
}

// add inserts v unless its key is already present. Reports whether the
// list changed.
func (l *mergeList[K, T]) add(v T) bool {
	k := l.key(v)
	if _, ok := l.seen[k]; ok {
		return false
	}

	idx := sort.Search(len(l.items), func(i int) bool {
		return l.less(v, l.items[i])
	})
	l.items = append(l.items, v)
	copy(l.items[idx+1:], l.items[idx:])
	l.items[idx] = v

	for i := idx; i < len(l.items); i++ {
		l.seen[l.key(l.items[i])] = i
	}
	return true
}

// patch mutates the entity with key k in place, if present. The mutation
// must not touch sort fields.
func (l *mergeList[K, T]) patch(k K, fn func(*T)) bool {
	idx, ok := l.seen[k]
	if !ok {
		return false
	}
	fn(&l.items[idx])
	return true
}

func (l *mergeList[K, T]) len() int {
	return len(l.items)
}

// snapshot returns a copy safe for the caller to retain.
func (l *mergeList[K, T]) snapshot() []T {
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}
