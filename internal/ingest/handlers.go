// Package ingest exposes the observation intake API used by monitors
// (browser extensions, platform webhooks).
package ingest

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jmenichole/tiltcheck/internal/logging"
	"github.com/jmenichole/tiltcheck/internal/signal"
	"github.com/jmenichole/tiltcheck/internal/tilt"
	"github.com/jmenichole/tiltcheck/internal/validation"
)

// Handlers serves POST /v1/observations.
type Handlers struct {
	engine    *tilt.Engine
	platforms map[string]bool // empty means accept every platform
}

// NewHandlers creates ingest handlers. monitoredPlatforms limits intake to
// a watch-list; an empty list accepts observations from any platform.
func NewHandlers(engine *tilt.Engine, monitoredPlatforms []string) *Handlers {
	set := make(map[string]bool, len(monitoredPlatforms))
	for _, p := range monitoredPlatforms {
		set[strings.ToLower(p)] = true
	}
	return &Handlers{engine: engine, platforms: set}
}

// RegisterRoutes registers ingest routes on the router group.
func (h *Handlers) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/observations", h.ingestObservation)
}

func (h *Handlers) ingestObservation(c *gin.Context) {
	var obs signal.Observation
	if err := c.ShouldBindJSON(&obs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	obs.UserID = validation.SanitizeString(obs.UserID, validation.MaxStringLength)
	obs.Platform = strings.ToLower(validation.SanitizeString(obs.Platform, validation.MaxStringLength))

	if errs := validation.Validate(
		validation.Required("userId", obs.UserID),
		validation.ValidPlatform("platform", obs.Platform),
		validation.NonNegative("clicks", float64(obs.Clicks)),
		validation.NonNegative("sessionMinutes", obs.SessionMinutes),
		validation.NonNegative("currentBet", obs.CurrentBet),
		validation.NonNegative("previousBet", obs.PreviousBet),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": errs})
		return
	}

	if obs.Kind != "" && !signal.Known(obs.Kind) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown signal kind", "kind": obs.Kind})
		return
	}

	// Platforms outside the watch-list are acknowledged but not scored, so
	// monitors don't need the list to decide what to report.
	if len(h.platforms) > 0 && !h.platforms[obs.Platform] {
		c.JSON(http.StatusAccepted, gin.H{"monitored": false})
		return
	}

	result, err := h.engine.Ingest(c.Request.Context(), &obs)
	if err != nil {
		logging.L(c.Request.Context()).Error("ingest failed",
			"user", obs.UserID, "platform", obs.Platform, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process observation"})
		return
	}

	status := http.StatusOK
	if !result.Matched {
		status = http.StatusAccepted
	}
	c.JSON(status, result)
}
