package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hpungsan/dwell/internal/bridge"
	"github.com/hpungsan/dwell/internal/errors"
	"github.com/hpungsan/dwell/internal/ops"
	"github.com/hpungsan/dwell/internal/site"
)

// Message is one message from the extension. Only the fields its action uses are set.
type Message struct {
	Action string `json:"action"`

	// Browser events
	TabID    int        `json:"tabId,omitempty"`
	WindowID int        `json:"windowId,omitempty"`
	Tab      *site.Tab  `json:"tab,omitempty"`
	Tabs     []site.Tab `json:"tabs,omitempty"`
	Status   string     `json:"status,omitempty"` // tabUpdated: changeInfo.status
	Visible  bool       `json:"visible,omitempty"`

	// Command parameters
	Interval int64  `json:"interval,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	ID       string `json:"id,omitempty"`
	Days     int    `json:"days,omitempty"`
	Date     string `json:"date,omitempty"`

	// Capture round trip results, keyed by the bridge request ID
	RequestID  string `json:"requestId,omitempty"`
	Success    bool   `json:"success,omitempty"`
	Error      string `json:"error,omitempty"`
	Screenshot string `json:"screenshot,omitempty"`
}

// messageHandler runs one action and returns the response body.
type messageHandler func(h *Handlers, ctx context.Context, msg Message) (any, error)

// ack is the response for actions with no other output.
var ack = map[string]bool{"success": true}

// messageRoutes maps extension actions to their handlers. Activity
// notifications are answered before routing and are not listed here.
var messageRoutes = map[string]messageHandler{
	// Commands
	"getStatus": func(h *Handlers, _ context.Context, _ Message) (any, error) {
		return h.svc.Engine.Status(), nil
	},
	"getCurrentSession": func(h *Handlers, _ context.Context, _ Message) (any, error) {
		return h.svc.Engine.CurrentSession(), nil
	},
	"getSessionStats": func(h *Handlers, ctx context.Context, _ Message) (any, error) {
		return h.svc.Engine.SessionStats(ctx)
	},
	"getLastSessionSummary": func(h *Handlers, ctx context.Context, _ Message) (any, error) {
		out, err := ops.LastSessionSummary(ctx, h.svc.Store)
		if err != nil {
			return nil, err
		}
		return out.Summary, nil
	},
	"clearLastSessionSummary": func(h *Handlers, ctx context.Context, _ Message) (any, error) {
		return ack, ops.ClearLastSessionSummary(ctx, h.svc.Store)
	},
	"startTracking": func(h *Handlers, ctx context.Context, _ Message) (any, error) {
		return h.svc.Engine.StartTracking(ctx)
	},
	"stopTracking": func(h *Handlers, ctx context.Context, _ Message) (any, error) {
		summary, err := h.svc.Engine.StopTracking(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"success": true, "summary": summary}, nil
	},
	"getTodayData": func(h *Handlers, ctx context.Context, _ Message) (any, error) {
		return dayDomains(ops.Today(ctx, h.svc.Store, h.svc.Clock.Now()))
	},
	"getYesterdayData": func(h *Handlers, ctx context.Context, _ Message) (any, error) {
		return dayDomains(ops.Yesterday(ctx, h.svc.Store, h.svc.Clock.Now()))
	},
	"getDayData": func(h *Handlers, ctx context.Context, msg Message) (any, error) {
		return ops.Day(ctx, h.svc.Store, ops.DayInput{Date: msg.Date}, h.svc.Clock.Now())
	},
	"getAllTimeData": func(h *Handlers, ctx context.Context, _ Message) (any, error) {
		return ops.AllTime(ctx, h.svc.Store)
	},
	"clearData": func(h *Handlers, ctx context.Context, _ Message) (any, error) {
		return ack, h.svc.Engine.ClearAllData(ctx)
	},

	// Screenshot commands
	"getScreenshotStatus": func(h *Handlers, ctx context.Context, _ Message) (any, error) {
		return h.svc.Screenshots.Status(ctx)
	},
	"enableScreenshots": func(h *Handlers, ctx context.Context, msg Message) (any, error) {
		return h.svc.Screenshots.Enable(ctx, msg.Interval)
	},
	"disableScreenshots": func(h *Handlers, ctx context.Context, _ Message) (any, error) {
		return h.svc.Screenshots.Disable(ctx)
	},
	"takeScreenshot": func(h *Handlers, ctx context.Context, _ Message) (any, error) {
		return h.svc.Screenshots.TakeNow(ctx)
	},
	"getStoredScreenshots": func(h *Handlers, ctx context.Context, msg Message) (any, error) {
		return h.svc.Screenshots.List(ctx, msg.Limit)
	},
	"getScreenshot": func(h *Handlers, ctx context.Context, msg Message) (any, error) {
		return h.svc.Screenshots.Get(ctx, msg.ID)
	},
	"deleteOldScreenshots": func(h *Handlers, ctx context.Context, msg Message) (any, error) {
		deleted, err := h.svc.Screenshots.DeleteOlderThan(ctx, msg.Days)
		return map[string]int{"deleted": deleted}, err
	},
	"clearAllScreenshots": func(h *Handlers, ctx context.Context, _ Message) (any, error) {
		deleted, err := h.svc.Screenshots.ClearAll(ctx)
		return map[string]int{"deleted": deleted}, err
	},

	// Browser events
	"syncTabs": func(h *Handlers, ctx context.Context, msg Message) (any, error) {
		for _, tab := range msg.Tabs {
			h.svc.Tabs.UpsertTab(tab)
		}
		h.svc.Tabs.FocusWindow(msg.WindowID)
		h.svc.Engine.OnWindowFocusChanged(ctx, msg.WindowID)
		return ack, nil
	},
	"tabActivated": func(h *Handlers, ctx context.Context, msg Message) (any, error) {
		if msg.Tab != nil {
			h.svc.Tabs.UpsertTab(*msg.Tab)
		}
		h.svc.Tabs.Activate(msg.TabID, msg.WindowID)
		h.svc.Engine.OnTabActivated(ctx, msg.TabID)
		return ack, nil
	},
	"tabUpdated": func(h *Handlers, ctx context.Context, msg Message) (any, error) {
		if msg.Tab == nil {
			return nil, errors.NewInvalidRequest("tab is required")
		}
		h.svc.Tabs.UpsertTab(*msg.Tab)
		h.svc.Engine.OnTabUpdated(ctx, msg.Tab.ID, msg.Status == "complete", msg.Tab.Active)
		return ack, nil
	},
	"tabRemoved": func(h *Handlers, _ context.Context, msg Message) (any, error) {
		h.svc.Tabs.RemoveTab(msg.TabID)
		return ack, nil
	},
	"windowFocusChanged": func(h *Handlers, ctx context.Context, msg Message) (any, error) {
		h.svc.Tabs.FocusWindow(msg.WindowID)
		h.svc.Engine.OnWindowFocusChanged(ctx, msg.WindowID)
		return ack, nil
	},
	"suspend": func(h *Handlers, ctx context.Context, _ Message) (any, error) {
		h.svc.Engine.OnSuspend(ctx)
		return ack, nil
	},
	"alarm": func(h *Handlers, ctx context.Context, _ Message) (any, error) {
		h.svc.Engine.OnAlarm(ctx)
		return ack, nil
	},

	// Capture round trip results
	"permissionResult": func(h *Handlers, _ context.Context, msg Message) (any, error) {
		res := bridge.Result{ID: msg.RequestID, OK: msg.Success, Error: msg.Error}
		if !msg.Success {
			res.Code = string(errors.ErrCapabilityDenied)
		}
		return resolve(h, res)
	},
	"screenshotResult": func(h *Handlers, _ context.Context, msg Message) (any, error) {
		res := bridge.Result{ID: msg.RequestID, OK: msg.Success, Error: msg.Error}
		if msg.Success {
			data, err := json.Marshal(map[string]string{"screenshot": msg.Screenshot})
			if err != nil {
				return nil, errors.NewInternal(err)
			}
			res.Data = data
		}
		return resolve(h, res)
	},
}

// activityActions are fire-and-forget content-script pulses.
var activityActions = map[string]func(h *Handlers, msg Message){
	"userActivity":      func(h *Handlers, _ Message) { h.svc.Engine.OnUserActivity() },
	"visibilityChanged": func(h *Handlers, msg Message) { h.svc.Engine.OnVisibilityChanged(msg.Visible) },
	"userEngaged":       func(h *Handlers, _ Message) { h.svc.Engine.OnUserEngaged() },
}

// HandleMessage handles POST /api/messages: one extension message per request.
func (h *Handlers) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var msg Message
	if err := decodeBody(w, r, &msg); err != nil {
		renderJSONError(w, errors.NewInvalidRequest("invalid message body"))
		return
	}

	if pulse, ok := activityActions[msg.Action]; ok {
		pulse(h, msg)
		w.WriteHeader(http.StatusAccepted)
		return
	}

	route, ok := messageRoutes[msg.Action]
	if !ok {
		renderJSONError(w, errors.NewInvalidRequest("unknown action: "+msg.Action))
		return
	}

	out, err := route(h, r.Context(), msg)
	if err != nil {
		if asDwellError(err).Code == errors.ErrInternal {
			h.log.Error("message failed", slog.String("action", msg.Action), slog.String("error", err.Error()))
		}
		renderJSONError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleBridgePending handles GET /api/bridge/pending: the extension polls for
// queued requests. waiting counts handed-out requests still owed a result.
func (h *Handlers) HandleBridgePending(w http.ResponseWriter, _ *http.Request) {
	renderJSON(w, http.StatusOK, map[string]any{
		"requests": h.svc.Bridge.Pending(),
		"waiting":  h.svc.Bridge.Waiting(),
	})
}

// HandleBridgeResults handles POST /api/bridge/results.
func (h *Handlers) HandleBridgeResults(w http.ResponseWriter, r *http.Request) {
	var res bridge.Result
	if err := decodeBody(w, r, &res); err != nil {
		renderJSONError(w, errors.NewInvalidRequest("invalid result body"))
		return
	}
	out, err := resolve(h, res)
	if err != nil {
		renderJSONError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

func resolve(h *Handlers, res bridge.Result) (any, error) {
	if res.ID == "" {
		return nil, errors.NewInvalidRequest("request id is required")
	}
	// A late result for an abandoned request is not an error for the extension
	return map[string]bool{"delivered": h.svc.Bridge.Resolve(res)}, nil
}

func dayDomains(out *ops.DayOutput, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return out.Domains, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}
