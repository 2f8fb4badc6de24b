package market

import (
	"context"
	"sync"

	"github.com/blockmarket/blockmarket/chain/types"
)

// Watch is a live entity list. It starts in StatusLoading, converges to
// StatusSuccess once the bulk walk completes (StatusPartial if any entity
// failed to expand), and keeps merging entities from the event stream for
// as long as it runs.
type Watch[K comparable, T any] struct {
	lk     sync.Mutex
	list   *mergeList[K, T]
	status types.Status

	updates chan struct{}
	cancel  context.CancelFunc
	once    sync.Once
}

func newWatch[K comparable, T any](key func(T) K, less func(a, b T) bool) *Watch[K, T] {
	return &Watch[K, T]{
		list:    newMergeList(key, less),
		status:  types.StatusLoading,
		updates: make(chan struct{}, 1),
	}
}

// Snapshot returns the current entity list and status. The slice is the
// caller's to keep.
func (w *Watch[K, T]) Snapshot() ([]T, types.Status) {
	w.lk.Lock()
	defer w.lk.Unlock()
	return w.list.snapshot(), w.status
}

// Updates signals that a Snapshot would return something new. Signals are
// coalesced; one receive may cover many changes.
func (w *Watch[K, T]) Updates() <-chan struct{} {
	return w.updates
}

// Stop tears the watch down, including its event subscription. Idempotent.
func (w *Watch[K, T]) Stop() {
	w.once.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
	})
}

func (w *Watch[K, T]) notify() {
	select {
	case w.updates <- struct{}{}:
	default:
	}
}

func (w *Watch[K, T]) add(v T) {
	w.lk.Lock()
	changed := w.list.add(v)
	w.lk.Unlock()
	if changed {
		w.notify()
	}
}

func (w *Watch[K, T]) patch(k K, fn func(*T)) {
	w.lk.Lock()
	changed := w.list.patch(k, fn)
	w.lk.Unlock()
	if changed {
		w.notify()
	}
}

func (w *Watch[K, T]) setStatus(s types.Status) {
	w.lk.Lock()
	w.status = s
	w.lk.Unlock()
	w.notify()
}

func (w *Watch[K, T]) size() int {
	w.lk.Lock()
	defer w.lk.Unlock()
	return w.list.len()
}
