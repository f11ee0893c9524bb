package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// levelColors maps risk levels to Discord embed colors.
var levelColors = map[string]int{
	"low":      0x10b981,
	"medium":   0xf59e0b,
	"high":     0xef4444,
	"critical": 0x991b1b,
}

// DiscordAdapter posts alerts to a Discord webhook as an embed.
type DiscordAdapter struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordAdapter creates a Discord webhook adapter.
func NewDiscordAdapter(webhookURL string) *DiscordAdapter {
	return &DiscordAdapter{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *DiscordAdapter) Name() string { return "discord" }

// discordEmbed is the subset of Discord's embed object we use.
type discordEmbed struct {
	Title  string         `json:"title"`
	Color  int            `json:"color"`
	Fields []discordField `json:"fields"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

func (a *DiscordAdapter) Send(ctx context.Context, alert *Alert) error {
	body := map[string]any{
		"content": fmt.Sprintf("Tilt alert: **%s** on %s — consider taking a break.",
			alert.Level, alert.Platform),
		"embeds": []discordEmbed{{
			Title: "TiltCheck Alert",
			Color: levelColors[alert.Level],
			Fields: []discordField{
				{Name: "Platform", Value: alert.Platform, Inline: true},
				{Name: "Risk Level", Value: alert.Level, Inline: true},
				{Name: "Tilt Score", Value: fmt.Sprintf("%.1f / 10", alert.Score), Inline: true},
				{Name: "Session", Value: alert.SessionID, Inline: false},
			},
		}},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal embed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
