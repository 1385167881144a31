package room

// Conn is the engine's view of one client connection. The delivery layer
// implements it; tests use an in-memory fake.
type Conn interface {
	// SessionID is the opaque transport handle bound to this connection.
	SessionID() string
	// Alive reports whether the connection is still usable.
	Alive() bool
	// Send delivers a frame best-effort. It may drop the frame under
	// back-pressure and must never block the caller.
	Send(msg any)
	// SendVital delivers a frame that must not be dropped (game_started,
	// game_over). The implementation may block briefly and give up on the
	// connection entirely rather than drop it.
	SendVital(msg any)
	// AttachRoom tells the connection which room seated it, so the adapter
	// can route subsequent game intents. host reports seat 0.
	AttachRoom(r *Room, host bool)
	// DetachRoom clears the binding if the connection is still bound to r.
	DetachRoom(r *Room)
}

// intent is one message on a room's serialized queue. Client actions, timer
// firings, and lifecycle events all arrive as intents so the loop is the
// single linearization point.
type intent interface {
	intentName() string
}

type joinIntent struct {
	conn Conn
	name string
	host bool
}

type leaveIntent struct {
	sessionID string
}

type drawIntent struct {
	sessionID string
}

type playIntent struct {
	sessionID string
	fromType  string
	fromIndex int
	toType    string
	toIndex   int
}

type sequenceIntent struct {
	sessionID     string
	fromPile      int
	fromCardIndex int
	toPile        int
}

type zapIntent struct {
	sessionID string
}

type stateRequestIntent struct {
	sessionID string
}

type turnTickIntent struct{}

// zapExpiredIntent carries the version at which the window was armed so a
// stale timer cannot close a window opened by a later move.
type zapExpiredIntent struct {
	armVersion uint64
}

type disposeIntent struct {
	reason string
}

func (joinIntent) intentName() string         { return "join" }
func (leaveIntent) intentName() string        { return "leave" }
func (drawIntent) intentName() string         { return "draw_card" }
func (playIntent) intentName() string         { return "play_card" }
func (sequenceIntent) intentName() string     { return "sequence_move" }
func (zapIntent) intentName() string          { return "zap" }
func (stateRequestIntent) intentName() string { return "request_state" }
func (turnTickIntent) intentName() string     { return "turn_tick" }
func (zapExpiredIntent) intentName() string   { return "zap_expired" }
func (disposeIntent) intentName() string      { return "dispose" }
