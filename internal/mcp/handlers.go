package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/dwell/internal/app"
	"github.com/hpungsan/dwell/internal/errors"
	"github.com/hpungsan/dwell/internal/ops"
	"github.com/hpungsan/dwell/internal/site"
	"github.com/hpungsan/dwell/internal/tracker"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	svc *app.Services
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc *app.Services) *Handlers {
	return &Handlers{svc: svc}
}

// Request types for each tool

// ClearDataRequest represents the arguments for data_clear.
type ClearDataRequest struct {
	Confirm bool `json:"confirm"`
}

// ReportRequest represents the arguments for data_report.
type ReportRequest struct {
	Date  string `json:"date,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// ScreenshotEnableRequest represents the arguments for screenshot_enable.
type ScreenshotEnableRequest struct {
	Interval int64 `json:"interval,omitempty"`
}

// ScreenshotListRequest represents the arguments for screenshot_list.
type ScreenshotListRequest struct {
	Limit int `json:"limit,omitempty"`
}

// ScreenshotGetRequest represents the arguments for screenshot_get.
type ScreenshotGetRequest struct {
	ID string `json:"id"`
}

// ScreenshotDeleteOldRequest represents the arguments for screenshot_delete_old.
type ScreenshotDeleteOldRequest struct {
	Days int `json:"days"`
}

// Response types

// CurrentSessionResponse wraps the live site view; Session is null when no site is active.
type CurrentSessionResponse struct {
	Session *tracker.CurrentSession `json:"session"`
}

// StopResponse wraps the summary produced by tracking_stop.
type StopResponse struct {
	Summary *site.SessionSummary `json:"summary"`
}

// AllTimeResponse wraps every stored domain record.
type AllTimeResponse struct {
	Domains site.TimeData `json:"domains"`
}

// ScreenshotListResponse is the result of screenshot_list.
type ScreenshotListResponse struct {
	Items []site.ScreenshotMeta `json:"items"`
	Count int                   `json:"count"`
}

// DeletedResponse reports how many items a delete removed.
type DeletedResponse struct {
	Deleted int `json:"deleted"`
}

// OKResponse acknowledges a command with no other output.
type OKResponse struct {
	OK bool `json:"ok"`
}

// HandleTrackingStatus handles the tracking_status tool.
func (h *Handlers) HandleTrackingStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(h.svc.Engine.Status())
}

// HandleCurrentSession handles the tracking_current_session tool.
func (h *Handlers) HandleCurrentSession(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(CurrentSessionResponse{Session: h.svc.Engine.CurrentSession()})
}

// HandleSessionStats handles the tracking_session_stats tool.
func (h *Handlers) HandleSessionStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.svc.Engine.SessionStats(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(stats)
}

// HandleStart handles the tracking_start tool.
func (h *Handlers) HandleStart(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := h.svc.Engine.StartTracking(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(status)
}

// HandleStop handles the tracking_stop tool.
func (h *Handlers) HandleStop(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := h.svc.Engine.StopTracking(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(StopResponse{Summary: summary})
}

// HandleSummaryGet handles the summary_get tool.
func (h *Handlers) HandleSummaryGet(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	output, err := ops.LastSessionSummary(ctx, h.svc.Store)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(output)
}

// HandleSummaryClear handles the summary_clear tool.
func (h *Handlers) HandleSummaryClear(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := ops.ClearLastSessionSummary(ctx, h.svc.Store); err != nil {
		return errorResult(err), nil
	}
	return successResult(OKResponse{OK: true})
}

// HandleToday handles the data_today tool.
func (h *Handlers) HandleToday(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	output, err := ops.Today(ctx, h.svc.Store, h.svc.Clock.Now())
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(output)
}

// HandleYesterday handles the data_yesterday tool.
func (h *Handlers) HandleYesterday(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	output, err := ops.Yesterday(ctx, h.svc.Store, h.svc.Clock.Now())
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(output)
}

// HandleAllTime handles the data_all_time tool.
func (h *Handlers) HandleAllTime(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	td, err := ops.AllTime(ctx, h.svc.Store)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(AllTimeResponse{Domains: td})
}

// HandleClearData handles the data_clear tool.
func (h *Handlers) HandleClearData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[ClearDataRequest](request)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if !req.Confirm {
		return errorResult(errors.NewInvalidRequest("confirm must be true to clear all data")), nil
	}
	if err := h.svc.Engine.ClearAllData(ctx); err != nil {
		return errorResult(err), nil
	}
	return successResult(OKResponse{OK: true})
}

// HandleReport handles the data_report tool.
func (h *Handlers) HandleReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[ReportRequest](request)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	output, err := ops.Report(ctx, h.svc.Store, ops.ReportInput{
		Date:  req.Date,
		Limit: req.Limit,
	}, h.svc.Clock.Now())
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(output)
}

// HandleScreenshotStatus handles the screenshot_status tool.
func (h *Handlers) HandleScreenshotStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	output, err := h.svc.Screenshots.Status(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(output)
}

// HandleScreenshotEnable handles the screenshot_enable tool.
func (h *Handlers) HandleScreenshotEnable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[ScreenshotEnableRequest](request)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	output, err := h.svc.Screenshots.Enable(ctx, req.Interval)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(output)
}

// HandleScreenshotDisable handles the screenshot_disable tool.
func (h *Handlers) HandleScreenshotDisable(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	output, err := h.svc.Screenshots.Disable(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(output)
}

// HandleScreenshotTake handles the screenshot_take tool.
func (h *Handlers) HandleScreenshotTake(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	meta, err := h.svc.Screenshots.TakeNow(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(meta)
}

// HandleScreenshotList handles the screenshot_list tool.
func (h *Handlers) HandleScreenshotList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[ScreenshotListRequest](request)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	items, err := h.svc.Screenshots.List(ctx, req.Limit)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(ScreenshotListResponse{Items: items, Count: len(items)})
}

// HandleScreenshotGet handles the screenshot_get tool.
func (h *Handlers) HandleScreenshotGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[ScreenshotGetRequest](request)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if req.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}
	shot, err := h.svc.Screenshots.Get(ctx, req.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(shot)
}

// HandleScreenshotDeleteOld handles the screenshot_delete_old tool.
func (h *Handlers) HandleScreenshotDeleteOld(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[ScreenshotDeleteOldRequest](request)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	deleted, err := h.svc.Screenshots.DeleteOlderThan(ctx, req.Days)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(DeletedResponse{Deleted: deleted})
}

// HandleScreenshotClear handles the screenshot_clear tool.
func (h *Handlers) HandleScreenshotClear(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deleted, err := h.svc.Screenshots.ClearAll(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(DeletedResponse{Deleted: deleted})
}

// errorResult creates an MCP error result from an error.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var dErr *errors.DwellError
	if stderrors.As(err, &dErr) {
		errorObj := map[string]any{
			"code":    dErr.Code,
			"message": dErr.Message,
			"status":  dErr.Status,
		}
		// Internal details may carry file paths or SQL text
		if dErr.Code != errors.ErrInternal && dErr.Details != nil {
			errorObj["details"] = dErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
