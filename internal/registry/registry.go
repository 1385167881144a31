package registry

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"duotaire-backend/internal/config"
	"duotaire-backend/internal/logger"
	"duotaire-backend/internal/room"
)

// CodeAlphabet is the 32-glyph room code alphabet. I, O, 0 and 1 are omitted
// because they read ambiguously when players share codes out loud.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the fixed room code length.
const CodeLength = 6

// Registry owns the code → room mapping. Its critical sections are strictly
// O(1); it never calls into a room while holding the lock. Room lifetime is
// handled the lazy way: a disposed room drops every late message, so lookups
// can hand out room pointers freely.
type Registry struct {
	cfg *config.Config
	log *zap.Logger

	mu    sync.Mutex
	rooms map[string]*room.Room
	rng   *rand.Rand

	sweepStop chan struct{}
	sweepOnce sync.Once
}

// New creates an empty registry.
func New(cfg *config.Config) *Registry {
	return &Registry{
		cfg:       cfg,
		log:       logger.Get(),
		rooms:     make(map[string]*room.Room),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		sweepStop: make(chan struct{}),
	}
}

// Create allocates a room under a fresh code and starts its intent loop.
func (r *Registry) Create() (*room.Room, error) {
	r.mu.Lock()
	code, err := r.generateCodeLocked()
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	rm := room.NewRoom(code, r.cfg, r.remove)
	r.rooms[code] = rm
	r.mu.Unlock()

	rm.Start()
	r.log.Info("room created", zap.String("room_code", code))
	return rm, nil
}

// generateCodeLocked draws codes until one is free. Collisions are vanishingly
// rare at 32^6 codes, but the retry loop is bounded anyway.
func (r *Registry) generateCodeLocked() (string, error) {
	for attempt := 0; attempt < 64; attempt++ {
		buf := make([]byte, CodeLength)
		for i := range buf {
			buf[i] = CodeAlphabet[r.rng.Intn(len(CodeAlphabet))]
		}
		code := string(buf)
		if _, taken := r.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("room code space exhausted")
}

// Lookup finds a room by code. Codes are normalized: surrounding whitespace
// is trimmed and letters are uppercased before the lookup.
func (r *Registry) Lookup(code string) (*room.Room, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	r.mu.Lock()
	rm, ok := r.rooms[normalized]
	r.mu.Unlock()
	if !ok || rm.Closed() {
		return nil, false
	}
	return rm, true
}

// Count returns the number of live rooms, for the health endpoints.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// Dispose tears a room down by code.
func (r *Registry) Dispose(code string) {
	r.mu.Lock()
	rm, ok := r.rooms[code]
	r.mu.Unlock()
	if ok {
		rm.RequestDispose("registry dispose")
	}
}

// remove drops the registry's reference. Invoked by the room's dispose path,
// so it must not call back into the room.
func (r *Registry) remove(rm *room.Room) {
	r.mu.Lock()
	delete(r.rooms, rm.Code())
	r.mu.Unlock()
	r.log.Info("room removed from registry", zap.String("room_code", rm.Code()))
}

// StartSweeper runs the background sweep at the configured interval until
// Stop is called.
func (r *Registry) StartSweeper() {
	go func() {
		ticker := time.NewTicker(r.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.sweepStop:
				return
			case now := <-ticker.C:
				r.Sweep(now)
			}
		}
	}()
}

// Sweep disposes every room the sweep policy marks as stale: waiting rooms
// whose guest seat was never filled within the TTL, and finished rooms with
// nobody left. Returns the number of rooms swept.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	stale := make([]*room.Room, 0)
	for _, rm := range r.rooms {
		if rm.Sweepable(now, r.cfg.RoomTTL) {
			stale = append(stale, rm)
		}
	}
	r.mu.Unlock()

	for _, rm := range stale {
		r.log.Info("sweeping stale room", zap.String("room_code", rm.Code()))
		rm.RequestDispose("swept")
	}
	return len(stale)
}

// Stop halts the sweeper and disposes every room. Used on shutdown.
func (r *Registry) Stop() {
	r.sweepOnce.Do(func() { close(r.sweepStop) })

	r.mu.Lock()
	all := make([]*room.Room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		all = append(all, rm)
	}
	r.mu.Unlock()

	for _, rm := range all {
		rm.RequestDispose("server shutdown")
	}
}
