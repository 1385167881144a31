package cards

import "math/rand"

// NewDeck returns the canonical 52-card deck, suits in canonical order,
// ranks ascending within each suit.
func NewDeck() []Card {
	deck := make([]Card, 0, 52)
	for _, suit := range Suits {
		for rank := Ace; rank <= King; rank++ {
			deck = append(deck, Card{Suit: suit, Rank: rank})
		}
	}
	return deck
}

// Shuffle returns a Fisher-Yates shuffled copy of the deck using the given
// source. Rooms own their source; tests seed it for reproducible deals.
func Shuffle(deck []Card, rng *rand.Rand) []Card {
	out := make([]Card, len(deck))
	copy(out, deck)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
