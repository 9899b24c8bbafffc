package mcp

import "github.com/mark3labs/mcp-go/mcp"

var trackingStatusToolDef = mcp.NewTool("tracking_status",
	mcp.WithDescription("Report whether a tracking session is open and when it started (epoch ms)."),
)

var trackingCurrentSessionToolDef = mcp.NewTool("tracking_current_session",
	mcp.WithDescription("Live stats for the site in the foreground: domain, dwell on the site, session dwell, unsaved time and idle flag. Returns session=null when not tracking or no trackable site is active."),
)

var trackingSessionStatsToolDef = mcp.NewTool("tracking_session_stats",
	mcp.WithDescription("Authoritative session active/idle time and today's totals, including time not yet flushed to storage."),
)

var trackingStartToolDef = mcp.NewTool("tracking_start",
	mcp.WithDescription("Open a tracking session. No-op when one is already open."),
)

var trackingStopToolDef = mcp.NewTool("tracking_stop",
	mcp.WithDescription("Close the tracking session after flushing the active site. Returns the session summary, or summary=null when nothing was open."),
)

var summaryGetToolDef = mcp.NewTool("summary_get",
	mcp.WithDescription("Get the summary of the last finished session (total, active, idle time)."),
)

var summaryClearToolDef = mcp.NewTool("summary_clear",
	mcp.WithDescription("Dismiss the last session summary."),
)

var dataTodayToolDef = mcp.NewTool("data_today",
	mcp.WithDescription("Per-domain time and active time for today."),
)

var dataYesterdayToolDef = mcp.NewTool("data_yesterday",
	mcp.WithDescription("Per-domain time and active time for yesterday."),
)

var dataAllTimeToolDef = mcp.NewTool("data_all_time",
	mcp.WithDescription("Raw per-domain records across all history, including daily breakdowns."),
)

var dataClearToolDef = mcp.NewTool("data_clear",
	mcp.WithDescription("Erase ALL stored data: domains, session flags, summary and screenshots. Stops an open session without a summary. Irreversible."),
	mcp.WithBoolean("confirm",
		mcp.Required(),
		mcp.Description("Must be true."),
	),
)

var dataReportToolDef = mcp.NewTool("data_report",
	mcp.WithDescription("Markdown activity report for a day: totals, focus ratio, top sites and the last session."),
	mcp.WithString("date",
		mcp.Description("Day as YYYY-MM-DD (default: today)"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Number of top sites to list (default: 10, max: 100)"),
	),
)

var screenshotStatusToolDef = mcp.NewTool("screenshot_status",
	mcp.WithDescription("Screenshot settings, whether a capture stream is live, and how many are stored."),
)

var screenshotEnableToolDef = mcp.NewTool("screenshot_enable",
	mcp.WithDescription("Enable periodic screenshots while tracking. Capture begins immediately if a session is open."),
	mcp.WithNumber("interval",
		mcp.Description("Capture interval in milliseconds (default: 300000, min: 30000)"),
	),
)

var screenshotDisableToolDef = mcp.NewTool("screenshot_disable",
	mcp.WithDescription("Disable periodic screenshots and stop the capture stream."),
)

var screenshotTakeToolDef = mcp.NewTool("screenshot_take",
	mcp.WithDescription("Capture a screenshot now from the live stream."),
)

var screenshotListToolDef = mcp.NewTool("screenshot_list",
	mcp.WithDescription("List stored screenshots, newest first, without image data."),
	mcp.WithNumber("limit",
		mcp.Description("Max items (default: 20)"),
	),
)

var screenshotGetToolDef = mcp.NewTool("screenshot_get",
	mcp.WithDescription("Get a stored screenshot including its image data URL."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Screenshot ID"),
	),
)

var screenshotDeleteOldToolDef = mcp.NewTool("screenshot_delete_old",
	mcp.WithDescription("Delete screenshots older than the given number of days."),
	mcp.WithNumber("days",
		mcp.Required(),
		mcp.Description("Age threshold in days (min: 1)"),
	),
)

var screenshotClearToolDef = mcp.NewTool("screenshot_clear",
	mcp.WithDescription("Delete all stored screenshots."),
)
