package websocket

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"duotaire-backend/internal/config"
	"duotaire-backend/internal/delivery/dto"
	"duotaire-backend/internal/logger"
	"duotaire-backend/internal/matchmaking"
	"duotaire-backend/internal/registry"
)

// Router owns the WebSocket endpoint: it upgrades connections, decodes
// frames into typed intents, routes lobby messages to the registry and the
// matchmaking queue, and everything else into the connection's bound room.
type Router struct {
	cfg      *config.Config
	reg      *registry.Registry
	mm       *matchmaking.Queue
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewRouter creates the WebSocket router.
func NewRouter(cfg *config.Config, reg *registry.Registry, mm *matchmaking.Queue) *Router {
	return &Router{
		cfg: cfg,
		reg: reg,
		mm:  mm,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The game protocol is authoritative server-side; origins are
			// not restricted.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: logger.Get(),
	}
}

// HandleConnection upgrades an HTTP request and services the connection
// until it closes.
func (rt *Router) HandleConnection(w http.ResponseWriter, req *http.Request) {
	conn, err := rt.upgrader.Upgrade(w, req, nil)
	if err != nil {
		rt.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(conn, rt.cfg)
	rt.log.Info("client connected", zap.String("session_id", client.SessionID()))
	go client.writePump()
	rt.readLoop(client)
}

func (rt *Router) readLoop(client *Client) {
	defer rt.disconnect(client)
	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg dto.Inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			client.Send(dto.NewError("malformed message"))
			continue
		}
		rt.dispatch(client, msg)
	}
}

// disconnect runs the cleanup for a closed connection: the matchmaking entry
// is dropped and the bound room, if any, receives a synthetic leave intent.
func (rt *Router) disconnect(client *Client) {
	client.Close()
	rt.mm.Cancel(client.SessionID())
	if rm := client.Room(); rm != nil {
		rm.Leave(client.SessionID())
	}
	rt.log.Info("client disconnected", zap.String("session_id", client.SessionID()))
}

func (rt *Router) dispatch(client *Client, msg dto.Inbound) {
	switch msg.Type {
	case dto.TypeCreateRoom:
		rt.handleCreateRoom(client, msg)
	case dto.TypeJoinRoom:
		rt.handleJoinRoom(client, msg)
	case dto.TypeLeaveRoom:
		rt.handleLeaveRoom(client)
	case dto.TypeFindMatch:
		rt.handleFindMatch(client, msg)
	case dto.TypeCancelMatchmaking:
		rt.mm.Cancel(client.SessionID())
		client.Send(dto.MatchmakingCancelled{Type: dto.TypeMatchmakingCancelled})
	case dto.TypeDrawCard, dto.TypePlayCard, dto.TypeSequenceMove, dto.TypeZap, dto.TypeRequestState:
		rt.handleGameIntent(client, msg)
	default:
		client.Send(dto.NewError("unknown message type: " + msg.Type))
	}
}

func (rt *Router) handleCreateRoom(client *Client, msg dto.Inbound) {
	if client.Room() != nil {
		client.Send(dto.NewError("already in a room"))
		return
	}
	rm, err := rt.reg.Create()
	if err != nil {
		rt.log.Error("room creation failed", zap.Error(err))
		client.Send(dto.NewError("failed to create room"))
		return
	}
	rm.Join(client, msg.PlayerName, true)
}

func (rt *Router) handleJoinRoom(client *Client, msg dto.Inbound) {
	if client.Room() != nil {
		client.Send(dto.NewError("already in a room"))
		return
	}
	rm, ok := rt.reg.Lookup(msg.RoomCode)
	if !ok {
		client.Send(dto.NewError("room not found"))
		return
	}
	if !rm.Join(client, msg.PlayerName, false) {
		client.Send(dto.NewError("room not found"))
	}
}

func (rt *Router) handleLeaveRoom(client *Client) {
	rm := client.Room()
	if rm == nil {
		client.Send(dto.NewError("not in a room"))
		return
	}
	rm.Leave(client.SessionID())
	client.DetachRoom(rm)
}

func (rt *Router) handleFindMatch(client *Client, msg dto.Inbound) {
	if client.Room() != nil {
		client.Send(dto.NewError("already in a room"))
		return
	}
	if err := rt.mm.FindMatch(client, msg.PlayerName); err != nil {
		rt.log.Error("matchmaking failed", zap.Error(err))
	}
}

func (rt *Router) handleGameIntent(client *Client, msg dto.Inbound) {
	rm := client.Room()
	if rm == nil {
		client.Send(dto.NewError("not in a room"))
		return
	}
	if !rm.Dispatch(client.SessionID(), msg) {
		// The room was disposed under us; drop the stale binding.
		client.DetachRoom(rm)
		client.Send(dto.NewError("room closed"))
	}
}
