package room

import (
	"sync"
	"time"
)

// timerService owns the two cooperative timers of a room: the turn clock and
// the ZAP window expiry. Timers never mutate state themselves; they only post
// intents into the room's queue, which keeps every mutation inside the
// engine's serialization boundary.
type timerService struct {
	room *Room

	mu       sync.Mutex
	zapTimer *time.Timer
	turnStop chan struct{}
}

func newTimerService(r *Room) *timerService {
	return &timerService{room: r}
}

// startTurnClock begins posting turnTickIntent at the configured resolution.
// Idempotent.
func (t *timerService) startTurnClock(resolution time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.turnStop != nil {
		return
	}
	stop := make(chan struct{})
	t.turnStop = stop

	go func() {
		ticker := time.NewTicker(resolution)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if !t.room.Post(turnTickIntent{}) {
					return
				}
			}
		}
	}()
}

// stopTurnClock halts the turn clock. Idempotent.
func (t *timerService) stopTurnClock() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.turnStop != nil {
		close(t.turnStop)
		t.turnStop = nil
	}
}

// armZap schedules a ZAP expiry intent after d, replacing any pending one.
// armVersion pins the intent to the window it belongs to.
func (t *timerService) armZap(d time.Duration, armVersion uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.zapTimer != nil {
		t.zapTimer.Stop()
	}
	t.zapTimer = time.AfterFunc(d, func() {
		t.room.Post(zapExpiredIntent{armVersion: armVersion})
	})
}

// cancelZap drops any pending ZAP expiry.
func (t *timerService) cancelZap() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.zapTimer != nil {
		t.zapTimer.Stop()
		t.zapTimer = nil
	}
}

// stopAll cancels everything. Called on room disposal.
func (t *timerService) stopAll() {
	t.stopTurnClock()
	t.cancelZap()
}
