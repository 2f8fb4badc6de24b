// Package alerting is the single notification side-channel for user-visible
// problems. Components funnel connectivity, resolution and action failures
// here instead of logging and forgetting; the UI subscribes to the feed and
// renders notices as they arrive.
package alerting

import (
	"fmt"
	"sync"
	"time"

	"github.com/filecoin-project/pubsub"
	logging "github.com/ipfs/go-log/v2"

	"github.com/blockmarket/blockmarket/build"
)

var log = logging.Logger("alerting")

const noticeTopic = "notices"

// historyLimit bounds the retained notice history.
const historyLimit = 256

// Notice is one user-visible problem report.
type Notice struct {
	System  string
	Message string
	Time    time.Time
}

// Notifier collects notices and fans them out to subscribers.
type Notifier struct {
	lk      sync.Mutex
	history []Notice

	bus *pubsub.PubSub
}

func NewNotifier() *Notifier {
	return &Notifier{
		bus: pubsub.New(32),
	}
}

// Errorf records a notice and publishes it to all subscribers.
func (n *Notifier) Errorf(system string, format string, args ...interface{}) {
	notice := Notice{
		System:  system,
		Message: fmt.Sprintf(format, args...),
		Time:    build.Clock.Now(),
	}

	log.Errorw("notice", "system", notice.System, "message", notice.Message)

	n.lk.Lock()
	n.history = append(n.history, notice)
	if len(n.history) > historyLimit {
		n.history = n.history[len(n.history)-historyLimit:]
	}
	n.lk.Unlock()

	n.bus.Pub(notice, noticeTopic)
}

// Sub returns a channel of future notices and a cancel function. Cancelling
// twice is safe.
func (n *Notifier) Sub() (<-chan Notice, func()) {
	sub := n.bus.Sub(noticeTopic)

	out := make(chan Notice, 32)
	go func() {
		defer close(out)
		for v := range sub {
			out <- v.(Notice)
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.bus.Unsub(sub, noticeTopic)
		})
	}
	return out, cancel
}

// History returns a copy of the retained notices, oldest first.
func (n *Notifier) History() []Notice {
	n.lk.Lock()
	defer n.lk.Unlock()

	out := make([]Notice, len(n.history))
	copy(out, n.history)
	return out
}
