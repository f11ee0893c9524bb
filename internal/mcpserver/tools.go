package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the TiltCheck MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolGetSession = mcp.NewTool("get_session",
	mcp.WithDescription(
		"Get one monitored gambling session by ID. "+
			"Returns the current tilt score (0-10), risk level, interaction counts, "+
			"and per-signal breakdown."),
	mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("The session ID (e.g. 'sess_a1b2...')")),
)

var ToolListSessions = mcp.NewTool("list_sessions",
	mcp.WithDescription(
		"Browse live monitored gambling sessions. "+
			"Use min_level to surface only the sessions that need attention."),
	mcp.WithString("user",
		mcp.Description("Filter by user ID")),
	mcp.WithString("platform",
		mcp.Description("Filter by platform (e.g. 'stake.us')")),
	mcp.WithString("min_level",
		mcp.Description("Only sessions at or above this risk level"),
		mcp.Enum("low", "medium", "high", "critical")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of sessions to return")),
)

var ToolGetAlertHistory = mcp.NewTool("get_alert_history",
	mcp.WithDescription(
		"List past tilt alerts, newest first. "+
			"Each alert records the risk level reached, the score at trigger time, "+
			"and the delivery outcome per notification channel."),
	mcp.WithString("user",
		mcp.Description("Filter by user ID")),
	mcp.WithString("platform",
		mcp.Description("Filter by platform")),
	mcp.WithString("level",
		mcp.Description("Filter by risk level"),
		mcp.Enum("low", "medium", "high", "critical")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of alerts to return (default 20)")),
)

var ToolGetDailyStats = mcp.NewTool("get_daily_stats",
	mcp.WithDescription(
		"Get daily per-platform aggregates: session counts, alert counts by level, "+
			"peak tilt scores, and signal totals. Useful for spotting trends over time."),
	mcp.WithString("from",
		mcp.Description("Start date, YYYY-MM-DD (inclusive)")),
	mcp.WithString("to",
		mcp.Description("End date, YYYY-MM-DD (inclusive)")),
)
