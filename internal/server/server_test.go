package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duotaire-backend/internal/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.TurnClockResolution = time.Hour
	return cfg
}

func startTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	srv := New(testConfig())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Stop()
	})
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	return ts, wsURL
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendMsg(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

// readUntil reads frames until one of the wanted type arrives. Interleaved
// frames of other types are skipped.
func readUntil(t *testing.T, conn *websocket.Conn, wantType string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %q", wantType)
		var msg map[string]any
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg["type"] == wantType {
			return msg
		}
	}
}

func TestCreateJoinAndDeal(t *testing.T) {
	_, wsURL := startTestServer(t)

	host := dial(t, wsURL)
	sendMsg(t, host, map[string]any{"type": "create_room", "playerName": "Ada"})
	created := readUntil(t, host, "room_created")
	code, _ := created["room_code"].(string)
	require.Len(t, code, 6)
	assert.EqualValues(t, 0, created["player_id"])

	// Codes join case-insensitively and whitespace-tolerantly.
	guest := dial(t, wsURL)
	sendMsg(t, guest, map[string]any{"type": "join_room", "room_code": "  " + strings.ToLower(code) + " ", "playerName": "Grace"})
	joined := readUntil(t, guest, "room_joined")
	assert.Equal(t, code, joined["room_code"])
	assert.EqualValues(t, 1, joined["player_id"])

	notice := readUntil(t, host, "player_joined")
	assert.Equal(t, "Grace", notice["name"])

	for _, conn := range []*websocket.Conn{host, guest} {
		started := readUntil(t, conn, "game_started")
		state, ok := started["state"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "playing", state["phase"])
		assert.EqualValues(t, 0, state["currentPlayer"])
		assert.EqualValues(t, 1, state["stateVersion"])

		piles, ok := state["centerPiles"].([]any)
		require.True(t, ok)
		require.Len(t, piles, 5)
		for _, pile := range piles {
			assert.Len(t, pile.([]any), 2)
		}
		players, ok := state["players"].([]any)
		require.True(t, ok)
		for _, raw := range players {
			p := raw.(map[string]any)
			assert.EqualValues(t, 21, p["deckSize"])
		}
	}
}

func TestDrawIsRedactedForOpponent(t *testing.T) {
	_, wsURL := startTestServer(t)

	host := dial(t, wsURL)
	sendMsg(t, host, map[string]any{"type": "create_room", "playerName": "Ada"})
	created := readUntil(t, host, "room_created")
	code := created["room_code"].(string)

	guest := dial(t, wsURL)
	sendMsg(t, guest, map[string]any{"type": "join_room", "room_code": code, "playerName": "Grace"})
	readUntil(t, host, "game_started")
	readUntil(t, guest, "game_started")

	sendMsg(t, host, map[string]any{"type": "draw_card"})

	drawn := readUntil(t, host, "card_drawn")
	assert.NotEmpty(t, drawn["card"])
	assert.EqualValues(t, 20, drawn["deckSize"])

	opponentDrew := readUntil(t, guest, "opponent_drew")
	assert.EqualValues(t, 0, opponentDrew["playerIndex"])
	assert.EqualValues(t, 20, opponentDrew["deckSize"])

	update := readUntil(t, guest, "state_update")
	state := update["state"].(map[string]any)
	assert.EqualValues(t, 2, state["stateVersion"])
	hostState := state["players"].([]any)[0].(map[string]any)
	_, exposed := hostState["drawnCard"]
	assert.False(t, exposed, "opponent must not see the drawn card")
}

func TestDisconnectForfeitsRunningGame(t *testing.T) {
	_, wsURL := startTestServer(t)

	host := dial(t, wsURL)
	sendMsg(t, host, map[string]any{"type": "create_room", "playerName": "Ada"})
	created := readUntil(t, host, "room_created")
	code := created["room_code"].(string)

	guest := dial(t, wsURL)
	sendMsg(t, guest, map[string]any{"type": "join_room", "room_code": code, "playerName": "Grace"})
	readUntil(t, host, "game_started")
	readUntil(t, guest, "game_started")

	guest.Close()

	over := readUntil(t, host, "game_over")
	assert.EqualValues(t, 0, over["winner"])
	assert.Equal(t, "Opponent disconnected", over["reason"])
}

func TestJoinUnknownRoomFails(t *testing.T) {
	_, wsURL := startTestServer(t)

	conn := dial(t, wsURL)
	sendMsg(t, conn, map[string]any{"type": "join_room", "room_code": "ZZZZZZ"})
	errMsg := readUntil(t, conn, "error")
	assert.Equal(t, "room not found", errMsg["message"])
}

func TestMalformedFrameDoesNotDisconnect(t *testing.T) {
	_, wsURL := startTestServer(t)

	conn := dial(t, wsURL)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{nope")))
	errMsg := readUntil(t, conn, "error")
	assert.Equal(t, "malformed message", errMsg["message"])

	// The connection stays usable.
	sendMsg(t, conn, map[string]any{"type": "create_room", "playerName": "Ada"})
	readUntil(t, conn, "room_created")
}

func TestMatchmakingPairsTwoClients(t *testing.T) {
	_, wsURL := startTestServer(t)

	first := dial(t, wsURL)
	sendMsg(t, first, map[string]any{"type": "find_match", "playerName": "Ada"})
	waiting := readUntil(t, first, "matchmaking_waiting")
	assert.EqualValues(t, 1, waiting["queue_position"])

	second := dial(t, wsURL)
	sendMsg(t, second, map[string]any{"type": "find_match", "playerName": "Grace"})

	// The waiter becomes the host of the fresh room.
	created := readUntil(t, first, "room_created")
	assert.EqualValues(t, 0, created["player_id"])
	joined := readUntil(t, second, "room_joined")
	assert.EqualValues(t, 1, joined["player_id"])
	assert.Equal(t, created["room_code"], joined["room_code"])

	readUntil(t, first, "game_started")
	readUntil(t, second, "game_started")
}

func TestCancelMatchmaking(t *testing.T) {
	_, wsURL := startTestServer(t)

	conn := dial(t, wsURL)
	sendMsg(t, conn, map[string]any{"type": "find_match", "playerName": "Ada"})
	readUntil(t, conn, "matchmaking_waiting")

	sendMsg(t, conn, map[string]any{"type": "cancel_matchmaking"})
	readUntil(t, conn, "matchmaking_cancelled")
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := startTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 0, body["rooms"])
}
