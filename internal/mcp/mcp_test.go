package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/dwell/internal/app"
	"github.com/hpungsan/dwell/internal/clock"
	"github.com/hpungsan/dwell/internal/config"
	"github.com/hpungsan/dwell/internal/db"
	"github.com/hpungsan/dwell/internal/errors"
	"github.com/hpungsan/dwell/internal/logging"
	"github.com/hpungsan/dwell/internal/site"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)

// testSetup creates a temporary database and a started service graph on a manual clock.
func testSetup(t *testing.T) (*app.Services, *clock.Manual, func()) {
	t.Helper()

	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.CheckpointIntervalMs = -1
	cfg.AlarmIntervalMs = -1

	clk := clock.NewManual(t0)
	svc := app.New(database, db.NewKV(database), cfg, clk, logging.Discard())
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("failed to start services: %v", err)
	}

	cleanup := func() {
		svc.Close()
	}

	return svc, clk, cleanup
}

// focusTab registers a tab as the active tab of a focused window.
func focusTab(svc *app.Services, id int, url string) {
	svc.Tabs.UpsertTab(site.Tab{ID: id, WindowID: 1, URL: url, Title: url})
	svc.Tabs.Activate(id, 1)
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func TestHandleTracking_StartStop(t *testing.T) {
	svc, clk, cleanup := testSetup(t)
	defer cleanup()
	h := NewHandlers(svc)
	ctx := context.Background()

	focusTab(svc, 7, "https://github.com/hpungsan")

	t.Run("status before start", func(t *testing.T) {
		result, err := h.HandleTrackingStatus(ctx, makeRequest(nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := parseOutput(t, result)
		if output["isTracking"] != false {
			t.Errorf("isTracking = %v, want false", output["isTracking"])
		}
		if output["sessionStartTime"] != nil {
			t.Errorf("sessionStartTime = %v, want nil", output["sessionStartTime"])
		}
	})

	t.Run("start", func(t *testing.T) {
		result, err := h.HandleStart(ctx, makeRequest(nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := parseOutput(t, result)
		if output["isTracking"] != true {
			t.Errorf("isTracking = %v, want true", output["isTracking"])
		}
		if output["sessionStartTime"] != float64(t0.UnixMilli()) {
			t.Errorf("sessionStartTime = %v, want %d", output["sessionStartTime"], t0.UnixMilli())
		}
	})

	t.Run("current session", func(t *testing.T) {
		clk.Advance(10 * time.Second)
		result, err := h.HandleCurrentSession(ctx, makeRequest(nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := parseOutput(t, result)
		session, ok := output["session"].(map[string]any)
		if !ok {
			t.Fatalf("session = %v, want object", output["session"])
		}
		if session["domain"] != "github.com" {
			t.Errorf("domain = %v, want github.com", session["domain"])
		}
		if session["siteTime"] != float64(10000) {
			t.Errorf("siteTime = %v, want 10000", session["siteTime"])
		}
	})

	t.Run("stop returns summary", func(t *testing.T) {
		result, err := h.HandleStop(ctx, makeRequest(nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := parseOutput(t, result)
		summary, ok := output["summary"].(map[string]any)
		if !ok {
			t.Fatalf("summary = %v, want object", output["summary"])
		}
		if summary["sessionTotalTime"] != float64(10000) {
			t.Errorf("sessionTotalTime = %v, want 10000", summary["sessionTotalTime"])
		}
	})

	t.Run("stop when stopped", func(t *testing.T) {
		result, err := h.HandleStop(ctx, makeRequest(nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := parseOutput(t, result)
		if output["summary"] != nil {
			t.Errorf("summary = %v, want nil", output["summary"])
		}
	})

	t.Run("summary get and clear", func(t *testing.T) {
		result, _ := h.HandleSummaryGet(ctx, makeRequest(nil))
		if parseOutput(t, result)["summary"] == nil {
			t.Fatal("expected stored summary")
		}

		result, _ = h.HandleSummaryClear(ctx, makeRequest(nil))
		if parseOutput(t, result)["ok"] != true {
			t.Fatal("expected ok=true")
		}

		result, _ = h.HandleSummaryGet(ctx, makeRequest(nil))
		if parseOutput(t, result)["summary"] != nil {
			t.Fatal("expected summary to be cleared")
		}
	})
}

func TestHandleCurrentSession_NotTracking(t *testing.T) {
	svc, _, cleanup := testSetup(t)
	defer cleanup()
	h := NewHandlers(svc)

	result, err := h.HandleCurrentSession(context.Background(), makeRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output := parseOutput(t, result); output["session"] != nil {
		t.Errorf("session = %v, want nil", output["session"])
	}
}

func TestHandleSessionStats(t *testing.T) {
	svc, clk, cleanup := testSetup(t)
	defer cleanup()
	h := NewHandlers(svc)
	ctx := context.Background()

	focusTab(svc, 1, "https://example.com/")
	if _, err := svc.Engine.StartTracking(ctx); err != nil {
		t.Fatalf("StartTracking() error = %v", err)
	}
	clk.Advance(20 * time.Second)

	result, err := h.HandleSessionStats(ctx, makeRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := parseOutput(t, result)
	if output["sessionTotalTime"] != float64(20000) {
		t.Errorf("sessionTotalTime = %v, want 20000", output["sessionTotalTime"])
	}
	if output["todayTotalTime"] != float64(20000) {
		t.Errorf("todayTotalTime = %v, want 20000", output["todayTotalTime"])
	}
	if output["isIdle"] != false {
		t.Errorf("isIdle = %v, want false", output["isIdle"])
	}
}

func TestHandleData(t *testing.T) {
	svc, clk, cleanup := testSetup(t)
	defer cleanup()
	h := NewHandlers(svc)
	ctx := context.Background()

	focusTab(svc, 1, "https://example.com/")
	if _, err := svc.Engine.StartTracking(ctx); err != nil {
		t.Fatalf("StartTracking() error = %v", err)
	}
	clk.Advance(15 * time.Second)
	if _, err := svc.Engine.StopTracking(ctx); err != nil {
		t.Fatalf("StopTracking() error = %v", err)
	}

	t.Run("today", func(t *testing.T) {
		result, err := h.HandleToday(ctx, makeRequest(nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := parseOutput(t, result)
		if output["date"] != "2026-03-02" {
			t.Errorf("date = %v, want 2026-03-02", output["date"])
		}
		domains := output["domains"].(map[string]any)
		entry, ok := domains["example.com"].(map[string]any)
		if !ok {
			t.Fatalf("domains = %v, want example.com", domains)
		}
		if entry["time"] != float64(15000) {
			t.Errorf("time = %v, want 15000", entry["time"])
		}
	})

	t.Run("yesterday is empty", func(t *testing.T) {
		result, _ := h.HandleYesterday(ctx, makeRequest(nil))
		output := parseOutput(t, result)
		if output["date"] != "2026-03-01" {
			t.Errorf("date = %v, want 2026-03-01", output["date"])
		}
		if domains := output["domains"].(map[string]any); len(domains) != 0 {
			t.Errorf("domains = %v, want empty", domains)
		}
	})

	t.Run("all time", func(t *testing.T) {
		result, _ := h.HandleAllTime(ctx, makeRequest(nil))
		output := parseOutput(t, result)
		domains := output["domains"].(map[string]any)
		record := domains["example.com"].(map[string]any)
		if record["visits"] != float64(1) {
			t.Errorf("visits = %v, want 1", record["visits"])
		}
	})

	t.Run("report", func(t *testing.T) {
		result, _ := h.HandleReport(ctx, makeRequest(map[string]any{"date": "2026-03-02", "limit": 5}))
		output := parseOutput(t, result)
		md, _ := output["markdown"].(string)
		if md == "" {
			t.Fatal("expected markdown report")
		}
	})

	t.Run("report invalid date", func(t *testing.T) {
		result, _ := h.HandleReport(ctx, makeRequest(map[string]any{"date": "March 2"}))
		assertErrorCode(t, result, "INVALID_REQUEST")
	})
}

func TestHandleClearData(t *testing.T) {
	svc, clk, cleanup := testSetup(t)
	defer cleanup()
	h := NewHandlers(svc)
	ctx := context.Background()

	focusTab(svc, 1, "https://example.com/")
	if _, err := svc.Engine.StartTracking(ctx); err != nil {
		t.Fatalf("StartTracking() error = %v", err)
	}
	clk.Advance(5 * time.Second)

	t.Run("requires confirm", func(t *testing.T) {
		result, _ := h.HandleClearData(ctx, makeRequest(nil))
		assertErrorCode(t, result, "INVALID_REQUEST")
		if !svc.Engine.Status().IsTracking {
			t.Fatal("session should survive an unconfirmed clear")
		}
	})

	t.Run("clears and stops", func(t *testing.T) {
		result, _ := h.HandleClearData(ctx, makeRequest(map[string]any{"confirm": true}))
		if parseOutput(t, result)["ok"] != true {
			t.Fatal("expected ok=true")
		}
		if svc.Engine.Status().IsTracking {
			t.Fatal("clear should end the session")
		}
		result, _ = h.HandleSummaryGet(ctx, makeRequest(nil))
		if parseOutput(t, result)["summary"] != nil {
			t.Fatal("clear should not write a summary")
		}
	})
}

func TestHandleScreenshots(t *testing.T) {
	svc, clk, cleanup := testSetup(t)
	defer cleanup()
	h := NewHandlers(svc)
	ctx := context.Background()

	shots := []site.Screenshot{
		{ID: "old", Timestamp: clk.Now().AddDate(0, 0, -10).UnixMilli(), DataURL: "data:image/png;base64,AA==", Domain: "a.com"},
		{ID: "new", Timestamp: clk.Now().UnixMilli(), DataURL: "data:image/png;base64,BB==", Domain: "b.com"},
	}
	if err := db.SaveScreenshots(ctx, svc.Store, shots); err != nil {
		t.Fatalf("SaveScreenshots() error = %v", err)
	}

	t.Run("status", func(t *testing.T) {
		result, _ := h.HandleScreenshotStatus(ctx, makeRequest(nil))
		output := parseOutput(t, result)
		if output["enabled"] != false {
			t.Errorf("enabled = %v, want false", output["enabled"])
		}
		if output["count"] != float64(2) {
			t.Errorf("count = %v, want 2", output["count"])
		}
	})

	t.Run("enable rejects short interval", func(t *testing.T) {
		result, _ := h.HandleScreenshotEnable(ctx, makeRequest(map[string]any{"interval": 1000}))
		assertErrorCode(t, result, "INVALID_REQUEST")
	})

	t.Run("enable then disable", func(t *testing.T) {
		result, _ := h.HandleScreenshotEnable(ctx, makeRequest(map[string]any{"interval": 60000}))
		output := parseOutput(t, result)
		if output["enabled"] != true || output["interval"] != float64(60000) {
			t.Errorf("output = %v, want enabled with interval 60000", output)
		}
		result, _ = h.HandleScreenshotDisable(ctx, makeRequest(nil))
		if parseOutput(t, result)["enabled"] != false {
			t.Error("expected disabled")
		}
	})

	t.Run("take without stream", func(t *testing.T) {
		result, _ := h.HandleScreenshotTake(ctx, makeRequest(nil))
		assertErrorCode(t, result, "INVALID_REQUEST")
	})

	t.Run("list omits image data", func(t *testing.T) {
		result, _ := h.HandleScreenshotList(ctx, makeRequest(map[string]any{"limit": 1}))
		output := parseOutput(t, result)
		if output["count"] != float64(1) {
			t.Fatalf("count = %v, want 1", output["count"])
		}
		item := output["items"].([]any)[0].(map[string]any)
		if item["id"] != "new" {
			t.Errorf("id = %v, want newest first", item["id"])
		}
		if _, ok := item["dataUrl"]; ok {
			t.Error("list items should not carry dataUrl")
		}
	})

	t.Run("get", func(t *testing.T) {
		result, _ := h.HandleScreenshotGet(ctx, makeRequest(map[string]any{"id": "old"}))
		if parseOutput(t, result)["dataUrl"] != "data:image/png;base64,AA==" {
			t.Error("expected image data")
		}
		result, _ = h.HandleScreenshotGet(ctx, makeRequest(map[string]any{"id": "missing"}))
		assertErrorCode(t, result, "NOT_FOUND")
		result, _ = h.HandleScreenshotGet(ctx, makeRequest(nil))
		assertErrorCode(t, result, "INVALID_REQUEST")
	})

	t.Run("delete old", func(t *testing.T) {
		result, _ := h.HandleScreenshotDeleteOld(ctx, makeRequest(map[string]any{"days": 0}))
		assertErrorCode(t, result, "INVALID_REQUEST")

		result, _ = h.HandleScreenshotDeleteOld(ctx, makeRequest(map[string]any{"days": 7}))
		if parseOutput(t, result)["deleted"] != float64(1) {
			t.Error("expected one screenshot deleted")
		}
	})

	t.Run("clear", func(t *testing.T) {
		result, _ := h.HandleScreenshotClear(ctx, makeRequest(nil))
		if parseOutput(t, result)["deleted"] != float64(1) {
			t.Error("expected one screenshot deleted")
		}
	})
}

func TestHandleStart_NotReady(t *testing.T) {
	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	cfg := config.DefaultConfig()
	svc := app.New(database, db.NewKV(database), cfg, clock.NewManual(t0), logging.Discard())
	defer svc.Close()

	result, _ := NewHandlers(svc).HandleStart(context.Background(), makeRequest(nil))
	assertErrorCode(t, result, "NOT_READY")
}

func TestServerRegistration(t *testing.T) {
	svc, _, cleanup := testSetup(t)
	defer cleanup()

	s := NewServer(svc, "test")
	tools := s.ListTools()
	if tools == nil {
		t.Fatal("expected tools to be registered, got nil")
	}

	expectedTools := []string{
		"tracking_status",
		"tracking_current_session",
		"tracking_session_stats",
		"tracking_start",
		"tracking_stop",
		"summary_get",
		"summary_clear",
		"data_today",
		"data_yesterday",
		"data_all_time",
		"data_clear",
		"data_report",
		"screenshot_status",
		"screenshot_enable",
		"screenshot_disable",
		"screenshot_take",
		"screenshot_list",
		"screenshot_get",
		"screenshot_delete_old",
		"screenshot_clear",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expectedTools))
	}

	for _, name := range expectedTools {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	svc, _, cleanup := testSetup(t)
	defer cleanup()

	svc.Config.DisabledTools = []string{"data_clear", "screenshot_clear", "screenshot_clear"}
	tools := NewServer(svc, "test").ListTools()

	if len(tools) != 18 {
		t.Errorf("registered tool count = %d, want 18", len(tools))
	}
	for _, name := range []string{"data_clear", "screenshot_clear"} {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
}

func TestServerRegistration_WithDisabledTypes(t *testing.T) {
	svc, _, cleanup := testSetup(t)
	defer cleanup()

	svc.Config.DisabledTypes = []string{"screenshot"}
	svc.Config.DisabledTools = []string{"data_clear"}
	tools := NewServer(svc, "test").ListTools()

	// 20 - 8 screenshot tools - data_clear
	if len(tools) != 11 {
		t.Errorf("registered tool count = %d, want 11", len(tools))
	}
	for name := range tools {
		if GetTypeForTool(name) == "screenshot" {
			t.Errorf("tool %q should be disabled by type", name)
		}
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	svc, _, cleanup := testSetup(t)
	defer cleanup()

	svc.Config.DisabledTypes = KnownTypes
	if tools := NewServer(svc, "test").ListTools(); len(tools) != 0 {
		t.Errorf("registered tool count = %d, want 0 (all disabled)", len(tools))
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{name: "all valid", input: []string{"data_clear", "screenshot_take"}, wantLen: 0},
		{name: "one unknown", input: []string{"data_clear", "fake_tool"}, wantLen: 1},
		{name: "all unknown", input: []string{"foo", "bar", "baz"}, wantLen: 3},
		{name: "empty list", input: []string{}, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unknown := ValidateDisabledTools(tt.input)
			if len(unknown) != tt.wantLen {
				t.Errorf("ValidateDisabledTools() returned %d unknown, want %d", len(unknown), tt.wantLen)
			}
		})
	}
}

func TestValidateDisabledTypes(t *testing.T) {
	unknown := ValidateDisabledTypes([]string{"tracking", "capsule", "screenshot"})
	if len(unknown) != 1 || unknown[0] != "capsule" {
		t.Errorf("ValidateDisabledTypes() = %v, want [capsule]", unknown)
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	if len(names) != 20 {
		t.Errorf("AllToolNames() returned %d names, want 20", len(names))
	}
	if unknown := ValidateDisabledTools(names); len(unknown) != 0 {
		t.Errorf("AllToolNames() returned invalid names: %v", unknown)
	}
	for _, name := range names {
		if GetTypeForTool(name) == "" {
			t.Errorf("tool %q does not follow type_action naming", name)
		}
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	internal := errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied"))
	internal.Details = map[string]any{"path": "/tmp/secret.db"}
	r := errorResult(internal)
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	errObj := errorObject(t, r)
	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
}

func TestErrorResult_WrappedErrorPreservesCode(t *testing.T) {
	r := errorResult(fmt.Errorf("take screenshot: %w", errors.NewTimeout("captureScreenshotFromStream", 10*time.Second)))

	errObj := errorObject(t, r)
	if errObj["code"] != string(errors.ErrTimeout) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrTimeout)
	}
}

func TestErrorResult_PlainErrorIsInternal(t *testing.T) {
	r := errorResult(fmt.Errorf("boom"))

	errObj := errorObject(t, r)
	if errObj["code"] != "INTERNAL" {
		t.Errorf("code=%v, want INTERNAL", errObj["code"])
	}
	if errObj["message"] == "boom" {
		t.Error("plain errors should not leak their message")
	}
}

func TestErrorResult_NonInternalIncludesDetails(t *testing.T) {
	r := errorResult(errors.NewNotFound("screenshot", "abc"))

	errObj := errorObject(t, r)
	if errObj["code"] != string(errors.ErrNotFound) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}
	if _, ok := errObj["details"]; !ok {
		t.Fatal("expected non-INTERNAL errors to include details when present")
	}
}

// Helper functions

func errorObject(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error object in payload: %v", payload)
	}
	return errObj
}

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()

	if !result.IsError {
		t.Errorf("expected error %s, got success", expectedCode)
		return
	}
	if code, _ := errorObject(t, result)["code"].(string); code != expectedCode {
		t.Errorf("got error code %q, want %q", code, expectedCode)
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}

	return text.Text
}
