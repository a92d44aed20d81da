// Package http exposes the REST surface: health, service discovery, and
// session administration.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/TenantOS/backend/internal/providers/terminal"
	"github.com/GriffinCanCode/TenantOS/backend/internal/service"
	"github.com/GriffinCanCode/TenantOS/backend/internal/tenant"
)

// Handlers holds the REST endpoint implementations.
type Handlers struct {
	sessions  *tenant.Registry
	terminals *terminal.Factory
	services  *service.Registry
	startTime time.Time
	version   string
}

// NewHandlers creates the REST handlers.
func NewHandlers(sessions *tenant.Registry, terminals *terminal.Factory, services *service.Registry, version string) *Handlers {
	return &Handlers{
		sessions:  sessions,
		terminals: terminals,
		services:  services,
		startTime: time.Now(),
		version:   version,
	}
}

// Root describes the service.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "tenantos-backend",
		"version": h.version,
		"status":  "running",
	})
}

// Health reports liveness and basic counts.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"uptime_s":  int64(time.Since(h.startTime).Seconds()),
		"sessions":  h.sessions.Count(),
		"terminals": h.terminals.Count(),
	})
}

// ListServices returns the registered service definitions.
func (h *Handlers) ListServices(c *gin.Context) {
	services := h.services.List()
	c.JSON(http.StatusOK, gin.H{
		"services": services,
		"stats":    h.services.Stats(),
	})
}

// ListSessions returns every live session plus aggregate statistics.
func (h *Handlers) ListSessions(c *gin.Context) {
	sessions := h.sessions.List()
	out := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, gin.H{
			"user_id":        s.UserID,
			"root_path":      s.RootPath,
			"created_at":     s.CreatedAt,
			"ephemeral_keys": s.EphemeralLen(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": out,
		"stats":    h.sessions.Stats(),
	})
}

// DestroySession tears down one user's session and its terminals.
// Persisted state stays on disk; only in-process resources go away.
func (h *Handlers) DestroySession(c *gin.Context) {
	uid := c.Param("uid")

	if _, ok := h.sessions.Get(uid); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found: " + uid})
		return
	}

	h.terminals.DisposeAll(uid)
	h.sessions.Destroy(uid)

	c.JSON(http.StatusOK, gin.H{"destroyed": uid})
}
