package dto

// Message type tags. Every frame on the wire is a JSON object carrying one of
// these in its "type" field.
const (
	// Inbound
	TypeCreateRoom        = "create_room"
	TypeJoinRoom          = "join_room"
	TypeLeaveRoom         = "leave_room"
	TypeFindMatch         = "find_match"
	TypeCancelMatchmaking = "cancel_matchmaking"
	TypeDrawCard          = "draw_card"
	TypePlayCard          = "play_card"
	TypeSequenceMove      = "sequence_move"
	TypeZap               = "zap"
	TypeRequestState      = "request_state"

	// Outbound
	TypeRoomCreated          = "room_created"
	TypeRoomJoined           = "room_joined"
	TypePlayerJoined         = "player_joined"
	TypePlayerLeft           = "player_left"
	TypeMatchmakingWaiting   = "matchmaking_waiting"
	TypeMatchmakingCancelled = "matchmaking_cancelled"
	TypeGameStarted          = "game_started"
	TypeStateUpdate          = "state_update"
	TypeCardDrawn            = "card_drawn"
	TypeOpponentDrew         = "opponent_drew"
	TypeGameOver             = "game_over"
	TypeError                = "error"
)

// Inbound is the decoded form of every client frame. Fields beyond Type are
// populated per message kind; unknown fields are ignored by the decoder.
type Inbound struct {
	Type string `json:"type"`

	// create_room / join_room / find_match
	RoomCode   string `json:"room_code,omitempty"`
	GameMode   string `json:"game_mode,omitempty"`
	PlayerName string `json:"playerName,omitempty"`

	// play_card
	FromType  string `json:"fromType,omitempty"`
	FromIndex int    `json:"fromIndex"`
	ToType    string `json:"toType,omitempty"`
	ToIndex   int    `json:"toIndex"`

	// sequence_move
	FromCenter    int `json:"fromCenter"`
	FromCardIndex int `json:"fromCardIndex"`
	ToCenter      int `json:"toCenter"`
}

// PlayerState is a single seat as seen by one viewer. DrawnCard is only set
// for the viewer's own seat; other decks are exposed by size only.
type PlayerState struct {
	Index        int      `json:"index"`
	Name         string   `json:"name"`
	Connected    bool     `json:"connected"`
	TimerSeconds int      `json:"timer"`
	DeckSize     int      `json:"deckSize"`
	DiscardPile  []string `json:"discardPile"`
	DrawnCard    *string  `json:"drawnCard,omitempty"`
}

// FoundationState is one suit-locked stack, cards bottom first.
type FoundationState struct {
	Suit  string   `json:"suit"`
	Cards []string `json:"cards"`
}

// GameState is the full personalized snapshot pushed to a client.
type GameState struct {
	RoomCode         string             `json:"roomCode"`
	Phase            string             `json:"phase"`
	CurrentPlayer    int                `json:"currentPlayer"`
	Winner           int                `json:"winner"`
	StateVersion     uint64             `json:"stateVersion"`
	HasMovedThisTurn bool               `json:"hasMovedThisTurn"`
	ZapActive        bool               `json:"zapActive"`
	Players          [2]PlayerState     `json:"players"`
	CenterPiles      [5][]string        `json:"centerPiles"`
	Foundations      [4]FoundationState `json:"foundations"`
}

// MoveInfo describes the last accepted move, attached to state updates so
// clients can animate without diffing snapshots.
type MoveInfo struct {
	Kind   string `json:"kind"`
	Card   string `json:"card,omitempty"`
	Player int    `json:"player"`
}

// Delta is one entry of the ordered per-room update log. Clients that track
// stateVersion can request a snapshot when they detect a gap.
type Delta struct {
	Version uint64    `json:"version"`
	Move    *MoveInfo `json:"move,omitempty"`
}

type RoomCreated struct {
	Type     string `json:"type"`
	RoomCode string `json:"room_code"`
	PlayerID int    `json:"player_id"`
}

type RoomJoined struct {
	Type     string `json:"type"`
	RoomCode string `json:"room_code"`
	PlayerID int    `json:"player_id"`
}

type PlayerJoined struct {
	Type     string `json:"type"`
	PlayerID int    `json:"player_id"`
	Name     string `json:"name,omitempty"`
}

type PlayerLeft struct {
	Type     string `json:"type"`
	PlayerID int    `json:"player_id"`
}

type MatchmakingWaiting struct {
	Type          string `json:"type"`
	QueuePosition int    `json:"queue_position"`
}

type MatchmakingCancelled struct {
	Type string `json:"type"`
}

type GameStarted struct {
	Type  string    `json:"type"`
	State GameState `json:"state"`
}

type StateUpdate struct {
	Type     string    `json:"type"`
	State    GameState `json:"state"`
	LastMove *MoveInfo `json:"lastMove,omitempty"`
}

type CardDrawn struct {
	Type     string `json:"type"`
	Card     string `json:"card"`
	DeckSize int    `json:"deckSize"`
}

type OpponentDrew struct {
	Type        string `json:"type"`
	PlayerIndex int    `json:"playerIndex"`
	DeckSize    int    `json:"deckSize"`
}

type GameOver struct {
	Type   string `json:"type"`
	Winner int    `json:"winner"`
	Reason string `json:"reason"`
}

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewError builds an error frame.
func NewError(message string) Error {
	return Error{Type: TypeError, Message: message}
}
