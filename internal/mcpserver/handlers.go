package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jmenichole/tiltcheck/internal/alerts"
	"github.com/jmenichole/tiltcheck/internal/stats"
	"github.com/jmenichole/tiltcheck/internal/tilt"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *TiltCheckClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *TiltCheckClient) *Handlers {
	return &Handlers{client: client}
}

// HandleGetSession fetches one session.
func (h *Handlers) HandleGetSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("session_id", "")
	if id == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	raw, err := h.client.GetSession(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get session: %v", err)), nil
	}

	var s tilt.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse session: %v", err)), nil
	}
	return mcp.NewToolResultText(formatSession(&s)), nil
}

// HandleListSessions browses live sessions.
func (h *Handlers) HandleListSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.ListSessions(ctx,
		req.GetString("user", ""),
		req.GetString("platform", ""),
		req.GetString("min_level", ""),
		req.GetInt("limit", 0),
	)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list sessions: %v", err)), nil
	}

	var resp struct {
		Sessions []*tilt.Session `json:"sessions"`
		Count    int             `json:"count"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse sessions: %v", err)), nil
	}
	if resp.Count == 0 {
		return mcp.NewToolResultText("No sessions match the given filters."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d session(s):\n\n", resp.Count)
	for _, s := range resp.Sessions {
		fmt.Fprintf(&b, "- %s\n", formatSessionLine(s))
	}
	return mcp.NewToolResultText(b.String()), nil
}

// HandleGetAlertHistory lists past alerts.
func (h *Handlers) HandleGetAlertHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.ListAlerts(ctx,
		req.GetString("user", ""),
		req.GetString("platform", ""),
		req.GetString("level", ""),
		req.GetInt("limit", 20),
	)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list alerts: %v", err)), nil
	}

	var resp struct {
		Alerts []*alerts.Alert `json:"alerts"`
		Count  int             `json:"count"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse alerts: %v", err)), nil
	}
	if resp.Count == 0 {
		return mcp.NewToolResultText("No alerts match the given filters."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d alert(s), newest first:\n\n", resp.Count)
	for _, a := range resp.Alerts {
		delivered := 0
		for _, r := range a.DispatchResults {
			if r.Success {
				delivered++
			}
		}
		fmt.Fprintf(&b, "- [%s] %s on %s — score %.1f, user %s, delivered %d/%d channels\n",
			a.At.Format("2006-01-02 15:04"), strings.ToUpper(a.Level), a.Platform,
			a.Score, a.UserID, delivered, len(a.DispatchResults))
	}
	return mcp.NewToolResultText(b.String()), nil
}

// HandleGetDailyStats fetches daily aggregates.
func (h *Handlers) HandleGetDailyStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.DailyStats(ctx,
		req.GetString("from", ""),
		req.GetString("to", ""),
	)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get daily stats: %v", err)), nil
	}

	var resp struct {
		Days  []*stats.DailyStats `json:"days"`
		Count int                 `json:"count"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse stats: %v", err)), nil
	}
	if resp.Count == 0 {
		return mcp.NewToolResultText("No daily stats in the given range."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d day/platform bucket(s):\n\n", resp.Count)
	for _, d := range resp.Days {
		fmt.Fprintf(&b, "- %s %s: %d sessions, %d alerts, peak score %.1f, %d interactions\n",
			d.Day, d.Platform, d.Sessions, d.Alerts, d.PeakScore, d.TotalInteractions)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func formatSession(s *tilt.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s\n", s.ID)
	fmt.Fprintf(&b, "User: %s on %s\n", s.UserID, s.Platform)
	fmt.Fprintf(&b, "Tilt score: %.1f/10 (%s risk, peak %.1f)\n", s.TiltScore, s.RiskLevel, s.PeakScore)
	fmt.Fprintf(&b, "Started: %s, last activity: %s\n",
		s.StartTime.Format("2006-01-02 15:04"), s.LastUpdateTime.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Interactions: %d\n", s.Interactions)
	if len(s.SignalCounts) > 0 {
		b.WriteString("Signals:\n")
		for kind, n := range s.SignalCounts {
			fmt.Fprintf(&b, "  %s: %d\n", kind, n)
		}
	}
	return b.String()
}

func formatSessionLine(s *tilt.Session) string {
	return fmt.Sprintf("%s: user %s on %s, score %.1f (%s), %d interactions",
		s.ID, s.UserID, s.Platform, s.TiltScore, s.RiskLevel, s.Interactions)
}
