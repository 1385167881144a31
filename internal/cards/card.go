package cards

import "fmt"

// Suit identifies one of the four french suits.
type Suit string

const (
	Spades   Suit = "S"
	Clubs    Suit = "C"
	Hearts   Suit = "H"
	Diamonds Suit = "D"
)

// Suits lists all suits in canonical order. Foundations are created in this
// order, so foundation index 0 is always spades.
var Suits = [4]Suit{Spades, Clubs, Hearts, Diamonds}

// Color is the card color derived from the suit.
type Color string

const (
	Black Color = "black"
	Red   Color = "red"
)

// Rank is the face rank of a card, A=1 through K=13.
type Rank int

const (
	Ace   Rank = 1
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
)

var rankNames = map[Rank]string{
	Ace: "A", 2: "2", 3: "3", 4: "4", 5: "5", 6: "6", 7: "7",
	8: "8", 9: "9", 10: "10", Jack: "J", Queen: "Q", King: "K",
}

// Card is an immutable (suit, rank) pair.
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

// New returns the card with the given suit and rank.
func New(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// Value returns the numeric rank value, A=1 .. K=13.
func (c Card) Value() int {
	return int(c.Rank)
}

// Color returns red for hearts and diamonds, black otherwise.
func (c Card) Color() Color {
	if c.Suit == Hearts || c.Suit == Diamonds {
		return Red
	}
	return Black
}

// String renders the card in compact wire form, e.g. "AS" or "10H".
func (c Card) String() string {
	name, ok := rankNames[c.Rank]
	if !ok {
		name = fmt.Sprintf("?%d", c.Rank)
	}
	return name + string(c.Suit)
}

// Codes renders a pile of cards to wire form, bottom first.
func Codes(pile []Card) []string {
	out := make([]string, len(pile))
	for i, c := range pile {
		out[i] = c.String()
	}
	return out
}
