package room

import (
	"duotaire-backend/internal/cards"
	"duotaire-backend/internal/delivery/dto"
)

// Snapshot builds the full personalized game state for one viewing seat.
// The viewer sees their own drawn card; the opponent's drawn card and deck
// contents are redacted to existence and size.
func (s *State) Snapshot(viewerSeat int) dto.GameState {
	gs := dto.GameState{
		RoomCode:         s.Code,
		Phase:            string(s.Phase),
		CurrentPlayer:    s.CurrentPlayer,
		Winner:           s.Winner,
		StateVersion:     s.StateVersion,
		HasMovedThisTurn: s.HasMovedThisTurn,
		ZapActive:        s.ZapActive,
	}

	for i, p := range s.Players {
		if p == nil {
			gs.Players[i] = dto.PlayerState{Index: i, DiscardPile: []string{}}
			continue
		}
		ps := dto.PlayerState{
			Index:        p.Index,
			Name:         p.Name,
			Connected:    p.Connected,
			TimerSeconds: p.TimerSeconds,
			DeckSize:     len(p.Deck),
			DiscardPile:  cards.Codes(p.Discard),
		}
		if i == viewerSeat && p.DrawnCard != nil {
			code := p.DrawnCard.String()
			ps.DrawnCard = &code
		}
		gs.Players[i] = ps
	}

	for i, pile := range s.CenterPiles {
		gs.CenterPiles[i] = cards.Codes(pile)
	}
	for i, f := range s.Foundations {
		gs.Foundations[i] = dto.FoundationState{
			Suit:  string(f.Suit),
			Cards: cards.Codes(f.Cards),
		}
	}
	return gs
}

// deltaLogLimit bounds the per-room update log. A client whose version gap
// exceeds the log must resync with request_state.
const deltaLogLimit = 256

// recordDelta appends one entry to the ordered update log.
func (r *Room) recordDelta(version uint64, move *dto.MoveInfo) {
	r.deltaMu.Lock()
	defer r.deltaMu.Unlock()
	r.deltas = append(r.deltas, dto.Delta{Version: version, Move: move})
	if len(r.deltas) > deltaLogLimit {
		r.deltas = r.deltas[len(r.deltas)-deltaLogLimit:]
	}
}

// DeltasSince returns the ordered updates with version strictly greater than
// afterVersion. The second result is false when the log no longer reaches
// back that far, in which case the caller should ship a full snapshot.
func (r *Room) DeltasSince(afterVersion uint64) ([]dto.Delta, bool) {
	r.deltaMu.Lock()
	defer r.deltaMu.Unlock()
	if len(r.deltas) > 0 && r.deltas[0].Version > afterVersion+1 {
		return nil, false
	}
	out := make([]dto.Delta, 0)
	for _, d := range r.deltas {
		if d.Version > afterVersion {
			out = append(out, d)
		}
	}
	return out, true
}
