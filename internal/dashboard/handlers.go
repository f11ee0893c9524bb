// Package dashboard exposes the read API behind the monitoring UI:
// session views, alert history, and daily aggregates.
package dashboard

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jmenichole/tiltcheck/internal/alerts"
	"github.com/jmenichole/tiltcheck/internal/logging"
	"github.com/jmenichole/tiltcheck/internal/stats"
	"github.com/jmenichole/tiltcheck/internal/tilt"
)

// maxListLimit caps list page sizes.
const maxListLimit = 200

// Handlers serves the dashboard read endpoints.
type Handlers struct {
	engine     *tilt.Engine
	alertStore alerts.Store
	statsStore stats.Store
}

// NewHandlers creates dashboard handlers.
func NewHandlers(engine *tilt.Engine, alertStore alerts.Store, statsStore stats.Store) *Handlers {
	return &Handlers{engine: engine, alertStore: alertStore, statsStore: statsStore}
}

// RegisterRoutes registers dashboard routes on the router group.
func (h *Handlers) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/sessions", h.listSessions)
	r.GET("/sessions/:id", h.getSession)
	r.GET("/alerts", h.listAlerts)
	r.GET("/stats/daily", h.dailyStats)
}

func (h *Handlers) getSession(c *gin.Context) {
	s, err := h.engine.Session(c.Request.Context(), c.Param("id"))
	if errors.Is(err, tilt.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err != nil {
		logging.L(c.Request.Context()).Error("get session failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handlers) listSessions(c *gin.Context) {
	f := tilt.SessionFilter{
		UserID:   c.Query("user"),
		Platform: c.Query("platform"),
		Limit:    queryLimit(c),
	}
	if raw := c.Query("minLevel"); raw != "" {
		level, err := tilt.ParseLevel(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid minLevel"})
			return
		}
		f.MinLevel = level
	}

	sessions, err := h.engine.Sessions(c.Request.Context(), f)
	if err != nil {
		logging.L(c.Request.Context()).Error("list sessions failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sessions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "count": len(sessions)})
}

func (h *Handlers) listAlerts(c *gin.Context) {
	f := alerts.Filter{
		SessionID: c.Query("session"),
		UserID:    c.Query("user"),
		Platform:  c.Query("platform"),
		Level:     c.Query("level"),
		Limit:     queryLimit(c),
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC 3339"})
			return
		}
		f.Since = since
	}

	list, err := h.alertStore.List(c.Request.Context(), f)
	if err != nil {
		logging.L(c.Request.Context()).Error("list alerts failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list alerts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": list, "count": len(list)})
}

func (h *Handlers) dailyStats(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	for _, day := range []string{from, to} {
		if day == "" {
			continue
		}
		if _, err := time.Parse(stats.DayFormat, day); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dates must be YYYY-MM-DD"})
			return
		}
	}

	list, err := h.statsStore.List(c.Request.Context(), from, to)
	if err != nil {
		logging.L(c.Request.Context()).Error("list daily stats failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": list, "count": len(list)})
}

func queryLimit(c *gin.Context) int {
	raw := c.Query("limit")
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}
