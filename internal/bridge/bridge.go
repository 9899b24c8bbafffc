// Package bridge carries request/response round trips to the browser extension.
//
// The extension cannot be called directly, so requests are queued and the
// extension polls for them, executes them, and posts a Result back. Every
// Request is bounded by a timeout so a missing or suspended extension never
// blocks the caller indefinitely.
package bridge

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/dwell/internal/errors"
)

// maxQueued bounds the queue when the extension is not polling. The oldest entry is dropped.
const maxQueued = 32

// Request is a unit of work handed to the extension.
type Request struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	Params    json.RawMessage `json:"params,omitempty"`
	CreatedAt int64           `json:"createdAt"`
	// Notify is true for fire-and-forget requests that expect no Result
	Notify bool `json:"notify,omitempty"`
}

// Result is the extension's answer to a Request.
type Result struct {
	ID    string          `json:"id"`
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Code  string          `json:"code,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Dispatcher queues requests for the extension and routes results back to waiters.
type Dispatcher struct {
	mu      sync.Mutex
	queue   []Request
	waiters map[string]chan Result
	entropy *ulid.MonotonicEntropy
	log     *slog.Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		waiters: make(map[string]chan Result),
		entropy: ulid.Monotonic(rand.Reader, 0),
		log:     logger,
	}
}

// Request queues action and waits for its Result. A Result with OK=false becomes
// a structured error; CAPABILITY_DENIED is preserved so callers can tell a
// refused permission from a failure.
func (d *Dispatcher) Request(ctx context.Context, action string, params any, timeout time.Duration) (json.RawMessage, error) {
	req, err := d.newRequest(action, params, false)
	if err != nil {
		return nil, err
	}

	ch := make(chan Result, 1)
	d.mu.Lock()
	d.waiters[req.ID] = ch
	d.enqueueLocked(req)
	d.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return resultValue(action, res)
	case <-timer.C:
		d.abandon(req.ID)
		d.log.Warn("bridge request timed out", slog.String("action", action), slog.Duration("timeout", timeout))
		return nil, errors.NewTimeout(action, timeout)
	case <-ctx.Done():
		d.abandon(req.ID)
		return nil, ctx.Err()
	}
}

// Notify queues action without waiting for an answer.
func (d *Dispatcher) Notify(action string, params any) error {
	req, err := d.newRequest(action, params, true)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.enqueueLocked(req)
	d.mu.Unlock()
	return nil
}

// Pending hands every queued request to the extension. Each request is handed out once.
func (d *Dispatcher) Pending() []Request {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := d.queue
	d.queue = nil
	if out == nil {
		out = []Request{}
	}
	return out
}

// Resolve delivers the extension's Result. It reports false when no caller is
// waiting, either because the ID is unknown or the request already timed out.
func (d *Dispatcher) Resolve(res Result) bool {
	d.mu.Lock()
	ch, ok := d.waiters[res.ID]
	delete(d.waiters, res.ID)
	d.mu.Unlock()

	if !ok {
		d.log.Debug("bridge result without waiter", slog.String("id", res.ID))
		return false
	}
	ch <- res
	return true
}

// Waiting returns the number of requests awaiting a Result.
func (d *Dispatcher) Waiting() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.waiters)
}

func (d *Dispatcher) newRequest(action string, params any, notify bool) (Request, error) {
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return Request{}, errors.NewInvalidRequest(fmt.Sprintf("invalid params for %s: %v", action, err))
		}
		raw = b
	}

	now := time.Now()
	d.mu.Lock()
	id, err := ulid.New(ulid.Timestamp(now), d.entropy)
	d.mu.Unlock()
	if err != nil {
		return Request{}, errors.NewInternal(err)
	}

	return Request{
		ID:        id.String(),
		Action:    action,
		Params:    raw,
		CreatedAt: now.UnixMilli(),
		Notify:    notify,
	}, nil
}

func (d *Dispatcher) enqueueLocked(req Request) {
	if len(d.queue) >= maxQueued {
		dropped := d.queue[0]
		d.queue = d.queue[1:]
		d.log.Warn("bridge queue full, dropping oldest", slog.String("action", dropped.Action))
	}
	d.queue = append(d.queue, req)
}

// abandon forgets a request whose caller stopped waiting.
func (d *Dispatcher) abandon(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.waiters, id)
	for i, req := range d.queue {
		if req.ID == id {
			d.queue = append(d.queue[:i], d.queue[i+1:]...)
			break
		}
	}
}

func resultValue(action string, res Result) (json.RawMessage, error) {
	if res.OK {
		return res.Data, nil
	}
	msg := res.Error
	if msg == "" {
		msg = action + " failed"
	}
	if res.Code == string(errors.ErrCapabilityDenied) {
		return nil, errors.NewCapabilityDenied(action, res.Error)
	}
	return nil, errors.NewInternal(fmt.Errorf("%s", msg))
}
