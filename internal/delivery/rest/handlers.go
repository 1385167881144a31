package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"duotaire-backend/internal/matchmaking"
	"duotaire-backend/internal/registry"
)

// Handler serves the observability side-channel: health and a summary page.
// These endpoints are not part of the game protocol.
type Handler struct {
	reg       *registry.Registry
	mm        *matchmaking.Queue
	startedAt time.Time
}

// New creates the REST handler.
func New(reg *registry.Registry, mm *matchmaking.Queue) *Handler {
	return &Handler{reg: reg, mm: mm, startedAt: time.Now()}
}

// Register mounts the routes on the gin engine.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", h.health)
	r.GET("/", h.summary)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"rooms":     h.reg.Count(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
	})
}

func (h *Handler) summary(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "duotaire-backend",
		"rooms":       h.reg.Count(),
		"matchmaking": h.mm.Waiting(),
		"uptime":      time.Since(h.startedAt).Round(time.Second).String(),
	})
}
