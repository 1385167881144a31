package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"duotaire-backend/internal/config"
	"duotaire-backend/internal/delivery/rest"
	ws "duotaire-backend/internal/delivery/websocket"
	"duotaire-backend/internal/matchmaking"
	"duotaire-backend/internal/registry"
)

// Server wires the whole stack: registry, matchmaking, the WebSocket router
// and the REST side-channel, all mounted on one gin engine.
type Server struct {
	cfg    *config.Config
	reg    *registry.Registry
	mm     *matchmaking.Queue
	engine *gin.Engine
}

// New assembles a server from the given config.
func New(cfg *config.Config) *Server {
	reg := registry.New(cfg)
	mm := matchmaking.New(reg)
	router := ws.NewRouter(cfg, reg, mm)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	rest.New(reg, mm).Register(engine)
	engine.GET("/ws", func(c *gin.Context) {
		router.HandleConnection(c.Writer, c.Request)
	})

	return &Server{cfg: cfg, reg: reg, mm: mm, engine: engine}
}

// Handler exposes the HTTP handler, for httptest-based integration tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Registry exposes the room registry.
func (s *Server) Registry() *registry.Registry {
	return s.reg
}

// Start launches the background sweeper.
func (s *Server) Start() {
	s.reg.StartSweeper()
}

// Stop disposes every room and halts the sweeper.
func (s *Server) Stop() {
	s.reg.Stop()
}
