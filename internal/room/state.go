package room

import (
	"math/rand"
	"time"

	"duotaire-backend/internal/cards"
)

// Phase is the room lifecycle phase.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

// Seat indexes. Seat 0 is always the host.
const (
	SeatHost  = 0
	SeatGuest = 1
	NoWinner  = -1
)

const (
	centerPileCount  = 5
	foundationCount  = 4
	initialCenterLen = 2
	initialDeckLen   = 21
)

// Player is one seat's record. Deck and Discard are ordered bottom first,
// top = last element.
type Player struct {
	Index        int
	SessionID    string
	Name         string
	Connected    bool
	TimerSeconds int
	Deck         []cards.Card
	Discard      []cards.Card
	DrawnCard    *cards.Card
}

// Foundation is one suit-locked stack, cards bottom first.
type Foundation struct {
	Suit  cards.Suit
	Cards []cards.Card
}

// State is the complete game state of one room. It is a plain data container:
// no validation lives here, and all mutations are linearized by the engine's
// intent loop.
type State struct {
	Code             string
	Phase            Phase
	CurrentPlayer    int
	Winner           int
	HasMovedThisTurn bool
	ZapActive        bool
	ZapDeadline      time.Time
	ZapArmVersion    uint64
	LastMoveCard     *cards.Card
	LastMoveKind     string
	TurnStartedAt    time.Time
	StateVersion     uint64
	CreatedAt        time.Time
	Players          [2]*Player
	CenterPiles      [centerPileCount][]cards.Card
	Foundations      [foundationCount]Foundation
}

// NewState returns an empty waiting-phase state for the given room code.
func NewState(code string, now time.Time) *State {
	s := &State{
		Code:          code,
		Phase:         PhaseWaiting,
		CurrentPlayer: SeatHost,
		Winner:        NoWinner,
		CreatedAt:     now,
	}
	for i, suit := range cards.Suits {
		s.Foundations[i] = Foundation{Suit: suit}
	}
	return s
}

// PlayerByIndex returns the seat's player record, nil if the seat is empty.
func (s *State) PlayerByIndex(i int) *Player {
	if i < 0 || i > 1 {
		return nil
	}
	return s.Players[i]
}

// PlayerBySession returns the seat index and record for a session ID, or
// (-1, nil) when the session holds no seat.
func (s *State) PlayerBySession(sessionID string) (int, *Player) {
	for i, p := range s.Players {
		if p != nil && p.SessionID == sessionID {
			return i, p
		}
	}
	return -1, nil
}

// OpponentOfCurrent returns the seat not currently at play.
func (s *State) OpponentOfCurrent() *Player {
	return s.Players[1-s.CurrentPlayer]
}

// AllFoundationsComplete reports whether every foundation holds A through K.
func (s *State) AllFoundationsComplete() bool {
	for _, f := range s.Foundations {
		if len(f.Cards) != 13 {
			return false
		}
	}
	return true
}

// BumpVersion increments the state version by exactly one and returns it.
func (s *State) BumpVersion() uint64 {
	s.StateVersion++
	return s.StateVersion
}

// Deal shuffles a fresh deck with the room's source and lays out the opening
// position: two cards per center pile, twenty-one per player deck, empty
// foundations and discards.
func (s *State) Deal(rng *rand.Rand, now time.Time) {
	deck := cards.Shuffle(cards.NewDeck(), rng)

	for i := 0; i < centerPileCount; i++ {
		s.CenterPiles[i] = append([]cards.Card(nil), deck[:initialCenterLen]...)
		deck = deck[initialCenterLen:]
	}
	for _, p := range s.Players {
		p.Deck = append([]cards.Card(nil), deck[:initialDeckLen]...)
		deck = deck[initialDeckLen:]
		p.Discard = nil
		p.DrawnCard = nil
	}

	s.Phase = PhasePlaying
	s.CurrentPlayer = SeatHost
	s.Winner = NoWinner
	s.HasMovedThisTurn = false
	s.TurnStartedAt = now
}

// CenterTop returns the top card of a center pile, nil when empty.
func (s *State) CenterTop(idx int) *cards.Card {
	pile := s.CenterPiles[idx]
	if len(pile) == 0 {
		return nil
	}
	return &pile[len(pile)-1]
}

// FoundationTop returns the top card of a foundation, nil when empty.
func (s *State) FoundationTop(idx int) *cards.Card {
	f := s.Foundations[idx].Cards
	if len(f) == 0 {
		return nil
	}
	return &f[len(f)-1]
}

// DiscardTop returns the top card of a player's discard, nil when empty.
func DiscardTop(p *Player) *cards.Card {
	if len(p.Discard) == 0 {
		return nil
	}
	return &p.Discard[len(p.Discard)-1]
}

// Conserved reports whether the full card multiset across every pile equals
// the canonical 52-card deck. Checked by the engine after each mutation while
// playing; a violation is fatal for the room.
func (s *State) Conserved() bool {
	counts := make(map[cards.Card]int, 52)
	add := func(pile []cards.Card) {
		for _, c := range pile {
			counts[c]++
		}
	}
	for _, pile := range s.CenterPiles {
		add(pile)
	}
	for _, f := range s.Foundations {
		add(f.Cards)
	}
	for _, p := range s.Players {
		if p == nil {
			return false
		}
		add(p.Deck)
		add(p.Discard)
		if p.DrawnCard != nil {
			counts[*p.DrawnCard]++
		}
	}
	if len(counts) != 52 {
		return false
	}
	for _, n := range counts {
		if n != 1 {
			return false
		}
	}
	return true
}
