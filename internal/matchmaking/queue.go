package matchmaking

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"duotaire-backend/internal/delivery/dto"
	"duotaire-backend/internal/logger"
	"duotaire-backend/internal/registry"
	"duotaire-backend/internal/room"
)

// waiter is one queued connection.
type waiter struct {
	conn       room.Conn
	name       string
	enqueuedAt time.Time
}

// Queue is the single FIFO matchmaking queue. Like the registry, its critical
// sections are O(1)-ish list operations and it never calls into a room while
// holding the lock.
type Queue struct {
	reg *registry.Registry
	log *zap.Logger

	mu      sync.Mutex
	waiting []*waiter
}

// New creates an empty matchmaking queue backed by the given registry.
func New(reg *registry.Registry) *Queue {
	return &Queue{reg: reg, log: logger.Get()}
}

// FindMatch pairs the requester with the oldest still-connected waiter, or
// enqueues them when nobody is waiting. On a pair the waiter becomes the host
// (seat 0) and the requester the guest (seat 1); the room's engine deals and
// delivers game_started once both joins land.
func (q *Queue) FindMatch(conn room.Conn, name string) error {
	q.mu.Lock()
	var partner *waiter
	for len(q.waiting) > 0 {
		head := q.waiting[0]
		q.waiting = q.waiting[1:]
		if head.conn.SessionID() == conn.SessionID() {
			continue // re-request while already queued; drop the old entry
		}
		if !head.conn.Alive() {
			q.log.Debug("skipping dead matchmaking waiter",
				zap.String("session_id", head.conn.SessionID()))
			continue
		}
		partner = head
		break
	}
	if partner == nil {
		q.waiting = append(q.waiting, &waiter{conn: conn, name: name, enqueuedAt: time.Now()})
		position := len(q.waiting)
		q.mu.Unlock()
		conn.Send(dto.MatchmakingWaiting{Type: dto.TypeMatchmakingWaiting, QueuePosition: position})
		return nil
	}
	q.mu.Unlock()

	rm, err := q.reg.Create()
	if err != nil {
		q.log.Error("failed to create matchmaking room", zap.Error(err))
		conn.Send(dto.NewError("matchmaking failed"))
		partner.conn.Send(dto.NewError("matchmaking failed"))
		return err
	}
	q.log.Info("matchmaking pair formed",
		zap.String("room_code", rm.Code()),
		zap.String("host_session", partner.conn.SessionID()),
		zap.String("guest_session", conn.SessionID()))

	rm.Join(partner.conn, partner.name, true)
	rm.Join(conn, name, false)
	return nil
}

// Cancel removes a session from the queue. Used for cancel_matchmaking and
// for disconnects. Reports whether an entry was removed.
func (q *Queue) Cancel(sessionID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, w := range q.waiting {
		if w.conn.SessionID() == sessionID {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			return true
		}
	}
	return false
}

// Waiting returns the queue length, for the health endpoints.
func (q *Queue) Waiting() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}
