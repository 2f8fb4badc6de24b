package alerting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHistory(t *testing.T) {
	n := NewNotifier()

	n.Errorf("conn", "provider gone")
	n.Errorf("market", "expand failed for store %d", 7)

	h := n.History()
	require.Len(t, h, 2)
	require.Equal(t, "conn", h[0].System)
	require.Equal(t, "provider gone", h[0].Message)
	require.Equal(t, "expand failed for store 7", h[1].Message)

	// history is a copy, mutating it must not leak back
	h[0].Message = "mutated"
	require.Equal(t, "provider gone", n.History()[0].Message)
}

func TestHistoryBounded(t *testing.T) {
	n := NewNotifier()

	for i := 0; i < historyLimit+10; i++ {
		n.Errorf("test", "notice %d", i)
	}

	h := n.History()
	require.Len(t, h, historyLimit)
	require.Equal(t, "notice 10", h[0].Message)
}

func TestSub(t *testing.T) {
	n := NewNotifier()

	ch, cancel := n.Sub()
	defer cancel()

	n.Errorf("actions", "purchase rejected")

	select {
	case notice := <-ch:
		require.Equal(t, "actions", notice.System)
		require.Equal(t, "purchase rejected", notice.Message)
	case <-time.After(time.Second):
		t.Fatal("no notice delivered")
	}
}

func TestSubCancelIdempotent(t *testing.T) {
	n := NewNotifier()

	_, cancel := n.Sub()
	cancel()
	cancel() // must not panic or block
}
