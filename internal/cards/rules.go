package cards

// CanPlaceOnCenter reports whether c may be stacked on top of a center pile.
// An empty pile (top == nil) accepts any card; otherwise the card must be one
// rank below the top and of the opposite color.
func CanPlaceOnCenter(c Card, top *Card) bool {
	if top == nil {
		return true
	}
	return c.Value() == top.Value()-1 && c.Color() != top.Color()
}

// CanPlaceOnFoundation reports whether c may be played on a foundation of the
// given suit whose current top is top (nil when empty). Foundations build
// A, 2, 3, ... within a single suit.
func CanPlaceOnFoundation(c Card, suit Suit, top *Card) bool {
	if c.Suit != suit {
		return false
	}
	if top == nil {
		return c.Rank == Ace
	}
	return c.Value() == top.Value()+1
}

// CanPlaceOnOpponentDiscard reports whether c may be dumped onto the
// opponent's discard whose top is top. Legal when the ranks match across
// different suits, or the suits match with ranks one apart. A nil top means
// the discard is empty and nothing may be dumped.
func CanPlaceOnOpponentDiscard(c Card, top *Card) bool {
	if top == nil {
		return false
	}
	if c.Rank == top.Rank && c.Suit != top.Suit {
		return true
	}
	if c.Suit == top.Suit {
		diff := c.Value() - top.Value()
		return diff == 1 || diff == -1
	}
	return false
}

// IsDescendingAlternating reports whether run forms a strictly descending,
// strictly color-alternating sequence from its first to its last card.
// Single cards and empty runs are trivially valid.
func IsDescendingAlternating(run []Card) bool {
	for i := 1; i < len(run); i++ {
		if run[i].Value() != run[i-1].Value()-1 {
			return false
		}
		if run[i].Color() == run[i-1].Color() {
			return false
		}
	}
	return true
}
