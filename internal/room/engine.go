package room

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"duotaire-backend/internal/cards"
	"duotaire-backend/internal/config"
	"duotaire-backend/internal/delivery/dto"
	"duotaire-backend/internal/logger"
)

const intentQueueSize = 32

// Room runs one two-seat game. All state mutations happen on a single
// goroutine that drains the intent queue; timers and disconnects are
// delivered as intents, never applied preemptively. Broadcasts happen inside
// the same dispatch step as the mutation, so clients never observe an
// intermediate state.
type Room struct {
	code string
	cfg  *config.Config

	state *State
	conns [2]Conn

	intents chan intent
	done    chan struct{}

	rng    *rand.Rand
	clock  func() time.Time
	timers *timerService

	onDispose func(*Room)
	log       *zap.Logger

	deltaMu sync.Mutex
	deltas  []dto.Delta

	// Mirrors readable outside the loop, for the registry sweeper.
	disposed    atomic.Bool
	phaseMirror atomic.Int32
	guestSeated atomic.Bool
	connCount   atomic.Int32
	createdAt   time.Time
}

const (
	phaseMirrorWaiting int32 = iota
	phaseMirrorPlaying
	phaseMirrorFinished
)

// NewRoom creates a room with a time-seeded random source. onDispose is
// invoked exactly once when the room is torn down, after its timers are
// cancelled; the registry uses it to drop its reference.
func NewRoom(code string, cfg *config.Config, onDispose func(*Room)) *Room {
	return newRoom(code, cfg, onDispose, rand.New(rand.NewSource(time.Now().UnixNano())), time.Now)
}

func newRoom(code string, cfg *config.Config, onDispose func(*Room), rng *rand.Rand, clock func() time.Time) *Room {
	r := &Room{
		code:      code,
		cfg:       cfg,
		intents:   make(chan intent, intentQueueSize),
		done:      make(chan struct{}),
		rng:       rng,
		clock:     clock,
		onDispose: onDispose,
		createdAt: clock(),
		log:       logger.WithRoomContext(code, ""),
	}
	r.state = NewState(code, r.createdAt)
	r.timers = newTimerService(r)
	return r
}

// Start launches the room's intent loop.
func (r *Room) Start() {
	go r.loop()
}

// Code returns the room's join code.
func (r *Room) Code() string {
	return r.code
}

// Closed reports whether the room has been disposed.
func (r *Room) Closed() bool {
	return r.disposed.Load()
}

// CreatedAt returns the room's creation time.
func (r *Room) CreatedAt() time.Time {
	return r.createdAt
}

// Sweepable reports whether the registry sweeper may dispose this room:
// a waiting room whose guest seat was never filled past the TTL, or a
// finished room with no connection left.
func (r *Room) Sweepable(now time.Time, ttl time.Duration) bool {
	if r.disposed.Load() {
		return true
	}
	switch r.phaseMirror.Load() {
	case phaseMirrorWaiting:
		return !r.guestSeated.Load() && now.Sub(r.createdAt) > ttl
	case phaseMirrorFinished:
		return r.connCount.Load() == 0
	}
	return false
}

// Join seats a connection. host selects the room_created vs room_joined ack.
func (r *Room) Join(conn Conn, name string, host bool) bool {
	return r.Post(joinIntent{conn: conn, name: name, host: host})
}

// Leave delivers a disconnect or explicit leave for a session.
func (r *Room) Leave(sessionID string) bool {
	return r.Post(leaveIntent{sessionID: sessionID})
}

// RequestDispose asks the loop to tear the room down.
func (r *Room) RequestDispose(reason string) {
	r.Post(disposeIntent{reason: reason})
}

// Dispatch converts a decoded game frame into an intent and queues it.
// It returns false for unknown types or when the room is already closed.
func (r *Room) Dispatch(sessionID string, msg dto.Inbound) bool {
	switch msg.Type {
	case dto.TypeDrawCard:
		return r.Post(drawIntent{sessionID: sessionID})
	case dto.TypePlayCard:
		return r.Post(playIntent{
			sessionID: sessionID,
			fromType:  msg.FromType,
			fromIndex: msg.FromIndex,
			toType:    msg.ToType,
			toIndex:   msg.ToIndex,
		})
	case dto.TypeSequenceMove:
		return r.Post(sequenceIntent{
			sessionID:     sessionID,
			fromPile:      msg.FromCenter,
			fromCardIndex: msg.FromCardIndex,
			toPile:        msg.ToCenter,
		})
	case dto.TypeZap:
		return r.Post(zapIntent{sessionID: sessionID})
	case dto.TypeRequestState:
		return r.Post(stateRequestIntent{sessionID: sessionID})
	}
	return false
}

// Post queues an intent. A disposed room accepts nothing: late messages are
// dropped, which is what makes registry lookups safe without holding the
// lock across dispatch.
func (r *Room) Post(in intent) bool {
	if r.disposed.Load() {
		return false
	}
	select {
	case r.intents <- in:
		return true
	case <-r.done:
		return false
	}
}

func (r *Room) loop() {
	for {
		select {
		case <-r.done:
			return
		case in := <-r.intents:
			r.dispatch(in)
		}
	}
}

func (r *Room) dispatch(in intent) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("panic in room dispatch",
				zap.Any("panic", rec),
				zap.String("intent", in.intentName()))
			r.fail("internal room error")
		}
	}()

	switch m := in.(type) {
	case joinIntent:
		r.handleJoin(m)
	case leaveIntent:
		r.handleLeave(m)
	case drawIntent:
		r.handleDraw(m)
	case playIntent:
		r.handlePlay(m)
	case sequenceIntent:
		r.handleSequence(m)
	case zapIntent:
		r.handleZap(m)
	case stateRequestIntent:
		r.handleStateRequest(m)
	case turnTickIntent:
		r.handleTurnTick()
	case zapExpiredIntent:
		r.handleZapExpired(m)
	case disposeIntent:
		r.dispose(m.reason)
	default:
		r.log.Warn("unknown intent", zap.String("intent", in.intentName()))
	}
}

// ---------- lifecycle ----------

func (r *Room) handleJoin(m joinIntent) {
	if r.state.Phase != PhaseWaiting {
		m.conn.Send(dto.NewError("game already in progress"))
		return
	}

	seat := -1
	for i, p := range r.state.Players {
		if p == nil {
			seat = i
			break
		}
	}
	if seat == -1 {
		m.conn.Send(dto.NewError("room is full"))
		return
	}

	name := m.name
	if name == "" {
		name = fmt.Sprintf("Player %d", seat+1)
	}
	r.state.Players[seat] = &Player{
		Index:     seat,
		SessionID: m.conn.SessionID(),
		Name:      name,
		Connected: true,
	}
	r.conns[seat] = m.conn
	r.connCount.Add(1)
	m.conn.AttachRoom(r, m.host)
	if seat == SeatGuest {
		r.guestSeated.Store(true)
	}

	r.log.Info("player joined",
		zap.Int("seat", seat),
		zap.String("player_name", name),
		zap.String("session_id", m.conn.SessionID()))

	if m.host {
		m.conn.SendVital(dto.RoomCreated{Type: dto.TypeRoomCreated, RoomCode: r.code, PlayerID: seat})
	} else {
		m.conn.SendVital(dto.RoomJoined{Type: dto.TypeRoomJoined, RoomCode: r.code, PlayerID: seat})
	}
	if other := r.conns[1-seat]; other != nil {
		other.Send(dto.PlayerJoined{Type: dto.TypePlayerJoined, PlayerID: seat, Name: name})
	}

	// The connection may have died between routing and this join landing on
	// the loop. Its disconnect cleanup saw no bound room then, so the leave
	// must be synthesized here; Close flips alive before cleanup reads the
	// binding, so one side always observes the other.
	if !m.conn.Alive() {
		r.handleLeave(leaveIntent{sessionID: m.conn.SessionID()})
		return
	}

	if r.state.Players[0] != nil && r.state.Players[1] != nil {
		r.startGame()
	}
}

func (r *Room) startGame() {
	r.state.Deal(r.rng, r.clock())
	r.setPhase(PhasePlaying)
	r.state.BumpVersion()
	r.recordDelta(r.state.StateVersion, &dto.MoveInfo{Kind: "deal"})
	r.timers.startTurnClock(r.cfg.TurnClockResolution)

	r.log.Info("game started", zap.Uint64("state_version", r.state.StateVersion))
	for seat, conn := range r.conns {
		if conn != nil {
			conn.SendVital(dto.GameStarted{Type: dto.TypeGameStarted, State: r.state.Snapshot(seat)})
		}
	}
}

func (r *Room) handleLeave(m leaveIntent) {
	seat, p := r.state.PlayerBySession(m.sessionID)
	if p == nil {
		return
	}
	p.Connected = false
	if conn := r.conns[seat]; conn != nil {
		conn.DetachRoom(r)
		r.conns[seat] = nil
		r.connCount.Add(-1)
	}
	r.log.Info("player left", zap.Int("seat", seat), zap.String("phase", string(r.state.Phase)))

	switch r.state.Phase {
	case PhaseWaiting:
		if seat == SeatHost {
			r.dispose("host left while waiting")
			return
		}
		r.state.Players[seat] = nil
		r.guestSeated.Store(false)
		r.state.BumpVersion()
		r.recordDelta(r.state.StateVersion, &dto.MoveInfo{Kind: "player_left", Player: seat})
		if host := r.conns[SeatHost]; host != nil {
			host.Send(dto.PlayerLeft{Type: dto.TypePlayerLeft, PlayerID: seat})
		}
	case PhasePlaying:
		r.endGame(1-seat, "Opponent disconnected")
	case PhaseFinished:
		if r.connCount.Load() == 0 {
			r.dispose("all players gone after finish")
		}
	}
}

func (r *Room) endGame(winner int, reason string) {
	r.timers.stopTurnClock()
	r.closeZapWindow()
	r.setPhase(PhaseFinished)
	r.state.Winner = winner
	r.state.BumpVersion()
	r.recordDelta(r.state.StateVersion, &dto.MoveInfo{Kind: "game_over", Player: winner})

	r.log.Info("game over", zap.Int("winner", winner), zap.String("reason", reason))
	for _, conn := range r.conns {
		if conn != nil {
			conn.SendVital(dto.GameOver{Type: dto.TypeGameOver, Winner: winner, Reason: reason})
		}
	}
	if r.connCount.Load() == 0 {
		r.dispose("all players gone after finish")
	}
}

// fail is the fatal-invariant path: the room halts, both seats are told, and
// nothing propagates to other rooms.
func (r *Room) fail(message string) {
	for _, conn := range r.conns {
		if conn != nil {
			conn.SendVital(dto.NewError(message))
		}
	}
	r.dispose("fatal: " + message)
}

func (r *Room) dispose(reason string) {
	if !r.disposed.CompareAndSwap(false, true) {
		return
	}
	r.timers.stopAll()
	for i, conn := range r.conns {
		if conn != nil {
			conn.DetachRoom(r)
			r.conns[i] = nil
		}
	}
	r.log.Info("room disposed", zap.String("reason", reason))
	if r.onDispose != nil {
		r.onDispose(r)
	}
	close(r.done)
}

func (r *Room) setPhase(p Phase) {
	r.state.Phase = p
	switch p {
	case PhaseWaiting:
		r.phaseMirror.Store(phaseMirrorWaiting)
	case PhasePlaying:
		r.phaseMirror.Store(phaseMirrorPlaying)
	case PhaseFinished:
		r.phaseMirror.Store(phaseMirrorFinished)
	}
}

// ---------- game intents ----------

func (r *Room) handleDraw(m drawIntent) {
	seat, p, ok := r.currentPlayerGuard(m.sessionID)
	if !ok {
		return
	}
	if p.DrawnCard != nil {
		r.reject(seat, "a card is already drawn")
		return
	}
	if len(p.Deck) == 0 {
		if len(p.Discard) < 2 {
			r.reject(seat, "no cards")
			return
		}
		r.recycleDiscard(p)
	}

	r.closeZapWindow()
	card := p.Deck[len(p.Deck)-1]
	p.Deck = p.Deck[:len(p.Deck)-1]
	p.DrawnCard = &card
	r.state.LastMoveCard = &card
	r.state.LastMoveKind = "draw_card"
	r.state.BumpVersion()

	if conn := r.conns[seat]; conn != nil {
		conn.Send(dto.CardDrawn{Type: dto.TypeCardDrawn, Card: card.String(), DeckSize: len(p.Deck)})
	}
	if other := r.conns[1-seat]; other != nil {
		other.Send(dto.OpponentDrew{Type: dto.TypeOpponentDrew, PlayerIndex: seat, DeckSize: len(p.Deck)})
	}
	r.finishMutation(&dto.MoveInfo{Kind: "draw_card", Card: card.String(), Player: seat})
}

// recycleDiscard turns everything under the discard's top card back into the
// deck. Deterministic: the under-pile is reversed so the earliest-discarded
// card is drawn first; the discard keeps only its top card.
func (r *Room) recycleDiscard(p *Player) {
	under := p.Discard[:len(p.Discard)-1]
	top := p.Discard[len(p.Discard)-1]
	deck := make([]cards.Card, 0, len(under))
	for i := len(under) - 1; i >= 0; i-- {
		deck = append(deck, under[i])
	}
	p.Deck = deck
	p.Discard = []cards.Card{top}
	r.log.Debug("recycled discard into deck", zap.Int("cards", len(deck)))
}

func (r *Room) handlePlay(m playIntent) {
	seat, p, ok := r.currentPlayerGuard(m.sessionID)
	if !ok {
		return
	}

	// Resolve the source card without removing it yet.
	var card cards.Card
	var removeSource func()
	switch m.fromType {
	case "drawn":
		if p.DrawnCard == nil {
			r.reject(seat, "no drawn card")
			return
		}
		card = *p.DrawnCard
		removeSource = func() { p.DrawnCard = nil }
	case "center":
		if m.fromIndex < 0 || m.fromIndex >= centerPileCount {
			r.reject(seat, "invalid center pile")
			return
		}
		pile := r.state.CenterPiles[m.fromIndex]
		if len(pile) == 0 {
			r.reject(seat, "source pile is empty")
			return
		}
		card = pile[len(pile)-1]
		idx := m.fromIndex
		removeSource = func() { r.state.CenterPiles[idx] = r.state.CenterPiles[idx][:len(r.state.CenterPiles[idx])-1] }
	default:
		r.reject(seat, "invalid source type")
		return
	}

	// Validate the destination, then apply.
	switch m.toType {
	case "foundation":
		if m.toIndex < 0 || m.toIndex >= foundationCount {
			r.reject(seat, "invalid foundation")
			return
		}
		f := &r.state.Foundations[m.toIndex]
		if !cards.CanPlaceOnFoundation(card, f.Suit, r.state.FoundationTop(m.toIndex)) {
			r.reject(seat, "illegal foundation move")
			return
		}
		r.closeZapWindow()
		removeSource()
		f.Cards = append(f.Cards, card)
		r.state.HasMovedThisTurn = true
		r.applyPlay(seat, card, "foundation")
		r.openZapWindow(card)

	case "center":
		if m.toIndex < 0 || m.toIndex >= centerPileCount {
			r.reject(seat, "invalid center pile")
			return
		}
		if !cards.CanPlaceOnCenter(card, r.state.CenterTop(m.toIndex)) {
			r.reject(seat, "illegal center move")
			return
		}
		r.closeZapWindow()
		removeSource()
		r.state.CenterPiles[m.toIndex] = append(r.state.CenterPiles[m.toIndex], card)
		r.state.HasMovedThisTurn = true
		r.applyPlay(seat, card, "center")

	case "opponentDiscard":
		opp := r.state.OpponentOfCurrent()
		if !cards.CanPlaceOnOpponentDiscard(card, DiscardTop(opp)) {
			r.reject(seat, "illegal discard move")
			return
		}
		r.closeZapWindow()
		removeSource()
		opp.Discard = append(opp.Discard, card)
		r.state.HasMovedThisTurn = true
		r.applyPlay(seat, card, "opponentDiscard")

	case "ownDiscard":
		// The turn-ending move. Only the drawn card may be discarded.
		if m.fromType != "drawn" {
			r.reject(seat, "only the drawn card can be discarded")
			return
		}
		r.closeZapWindow()
		removeSource()
		p.Discard = append(p.Discard, card)
		r.state.HasMovedThisTurn = false
		r.state.CurrentPlayer = 1 - seat
		r.state.TurnStartedAt = r.clock()
		r.applyPlay(seat, card, "ownDiscard")

	default:
		r.reject(seat, "invalid destination type")
		return
	}

	if r.state.AllFoundationsComplete() {
		r.endGame(seat, "All foundations complete")
		return
	}
	r.finishMutation(&dto.MoveInfo{Kind: "play_card", Card: card.String(), Player: seat})
}

// applyPlay records move bookkeeping shared by every play_card destination.
func (r *Room) applyPlay(seat int, card cards.Card, kind string) {
	r.state.LastMoveCard = &card
	r.state.LastMoveKind = kind
	r.state.BumpVersion()
	r.log.Debug("card played",
		zap.Int("seat", seat),
		zap.String("card", card.String()),
		zap.String("to", kind),
		zap.Uint64("state_version", r.state.StateVersion))
}

func (r *Room) handleSequence(m sequenceIntent) {
	seat, _, ok := r.currentPlayerGuard(m.sessionID)
	if !ok {
		return
	}
	if m.fromPile < 0 || m.fromPile >= centerPileCount || m.toPile < 0 || m.toPile >= centerPileCount {
		r.reject(seat, "invalid center pile")
		return
	}
	if m.fromPile == m.toPile {
		r.reject(seat, "source and destination must differ")
		return
	}
	src := r.state.CenterPiles[m.fromPile]
	if m.fromCardIndex < 0 || m.fromCardIndex >= len(src) {
		r.reject(seat, "invalid card index")
		return
	}
	run := src[m.fromCardIndex:]
	if !cards.IsDescendingAlternating(run) {
		r.reject(seat, "not a movable sequence")
		return
	}
	if !cards.CanPlaceOnCenter(run[0], r.state.CenterTop(m.toPile)) {
		r.reject(seat, "sequence does not fit destination")
		return
	}

	r.closeZapWindow()
	moved := append([]cards.Card(nil), run...)
	r.state.CenterPiles[m.fromPile] = src[:m.fromCardIndex]
	r.state.CenterPiles[m.toPile] = append(r.state.CenterPiles[m.toPile], moved...)
	r.state.HasMovedThisTurn = true
	r.state.LastMoveCard = &moved[0]
	r.state.LastMoveKind = "sequence_move"
	r.state.BumpVersion()

	r.finishMutation(&dto.MoveInfo{Kind: "sequence_move", Card: moved[0].String(), Player: seat})
}

func (r *Room) handleZap(m zapIntent) {
	seat, p := r.state.PlayerBySession(m.sessionID)
	if p == nil {
		return
	}
	if !r.state.ZapActive {
		r.reject(seat, "no active zap window")
		return
	}
	if seat == r.state.CurrentPlayer {
		r.reject(seat, "cannot zap your own move")
		return
	}

	// Penalty: the zapped player returns cards from the top of their discard
	// to the bottom of their deck, earliest-discarded ending up lowest.
	zapped := r.state.Players[r.state.CurrentPlayer]
	n := min(r.cfg.ZapPenaltyCards, len(zapped.Discard))
	for i := 0; i < n; i++ {
		c := zapped.Discard[len(zapped.Discard)-1]
		zapped.Discard = zapped.Discard[:len(zapped.Discard)-1]
		zapped.Deck = append([]cards.Card{c}, zapped.Deck...)
	}

	r.closeZapWindow()
	r.state.LastMoveKind = "zap"
	r.state.BumpVersion()
	r.log.Info("zap landed",
		zap.Int("by_seat", seat),
		zap.Int("penalty_cards", n))

	r.finishMutation(&dto.MoveInfo{Kind: "zap", Player: seat})
}

func (r *Room) handleStateRequest(m stateRequestIntent) {
	seat, p := r.state.PlayerBySession(m.sessionID)
	if p == nil {
		return
	}
	if conn := r.conns[seat]; conn != nil {
		conn.Send(dto.StateUpdate{Type: dto.TypeStateUpdate, State: r.state.Snapshot(seat)})
	}
}

// ---------- timer intents ----------

func (r *Room) handleTurnTick() {
	if r.state.Phase != PhasePlaying {
		return
	}
	p := r.state.Players[r.state.CurrentPlayer]
	if p != nil {
		p.TimerSeconds += int(r.cfg.TurnClockResolution / time.Second)
	}
}

func (r *Room) handleZapExpired(m zapExpiredIntent) {
	if !r.state.ZapActive || r.state.ZapArmVersion != m.armVersion {
		return
	}
	r.state.ZapActive = false
	r.state.BumpVersion()
	r.finishMutation(&dto.MoveInfo{Kind: "zap_expired"})
}

// ---------- shared helpers ----------

// currentPlayerGuard checks the common preconditions of every game move:
// the game is running, the sender holds a seat, and it is their turn.
// On failure it replies to the sender and returns ok=false.
func (r *Room) currentPlayerGuard(sessionID string) (int, *Player, bool) {
	seat, p := r.state.PlayerBySession(sessionID)
	if p == nil {
		return -1, nil, false
	}
	if r.state.Phase != PhasePlaying {
		r.reject(seat, "game is not running")
		return seat, p, false
	}
	if seat != r.state.CurrentPlayer {
		r.reject(seat, "not your turn")
		return seat, p, false
	}
	return seat, p, true
}

// reject answers a failed precondition: an error frame plus the current
// authoritative snapshot so the client can re-render. The version is not
// bumped and no broadcast happens.
func (r *Room) reject(seat int, reason string) {
	r.log.Warn("action rejected", zap.Int("seat", seat), zap.String("reason", reason))
	if seat < 0 || seat > 1 {
		return
	}
	if conn := r.conns[seat]; conn != nil {
		conn.Send(dto.NewError(reason))
		conn.Send(dto.StateUpdate{Type: dto.TypeStateUpdate, State: r.state.Snapshot(seat)})
	}
}

// openZapWindow arms the challenge window for the move just applied. Must be
// called after the version bump so the expiry intent pins the right window.
func (r *Room) openZapWindow(card cards.Card) {
	r.state.ZapActive = true
	r.state.ZapDeadline = r.clock().Add(r.cfg.ZapWindow)
	r.state.ZapArmVersion = r.state.StateVersion
	r.timers.armZap(r.cfg.ZapWindow, r.state.ZapArmVersion)
	r.log.Debug("zap window opened", zap.String("card", card.String()))
}

// closeZapWindow clears the window as part of an enclosing mutation; it does
// not bump the version on its own.
func (r *Room) closeZapWindow() {
	if r.state.ZapActive {
		r.state.ZapActive = false
		r.timers.cancelZap()
	}
}

// finishMutation runs after every accepted mutation: record the delta, check
// the card-conservation invariant, and broadcast the new state to both seats
// within the same dispatch step.
func (r *Room) finishMutation(move *dto.MoveInfo) {
	r.recordDelta(r.state.StateVersion, move)
	if r.state.Phase == PhasePlaying && !r.state.Conserved() {
		r.log.Error("card conservation violated", zap.Uint64("state_version", r.state.StateVersion))
		r.fail("card conservation violated")
		return
	}
	for seat, conn := range r.conns {
		if conn == nil {
			continue
		}
		conn.Send(dto.StateUpdate{Type: dto.TypeStateUpdate, State: r.state.Snapshot(seat), LastMove: move})
	}
}
