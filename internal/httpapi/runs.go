// Package httpapi exposes the viewpoint-finder pipeline over HTTP: a
// route to start a run, a server-sent-events stream of its progress,
// and a route to cancel it early.
package httpapi

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/sunviewfinder/internal/pipeline"
	"github.com/yourusername/sunviewfinder/pkg/config"
)

// runStatus is the lifecycle state of a tracked run.
type runStatus string

const (
	statusRunning   runStatus = "running"
	statusSucceeded runStatus = "succeeded"
	statusFailed    runStatus = "failed"
	statusCancelled runStatus = "cancelled"
)

// event is one SSE message pushed to subscribers of a run.
type event struct {
	Status  runStatus         `json:"status"`
	Percent int               `json:"percent,omitempty"`
	Message string            `json:"message,omitempty"`
	Result  *pipeline.Output  `json:"result,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// run tracks one in-flight or completed pipeline run and fans its
// progress out to however many SSE clients are attached.
type run struct {
	id        string
	cancel    context.CancelFunc
	createdAt time.Time

	mu          sync.Mutex
	status      runStatus
	history     []event
	subscribers map[chan event]struct{}
}

func newRun(id string, cancel context.CancelFunc) *run {
	return &run{
		id:          id,
		cancel:      cancel,
		createdAt:   time.Now(),
		status:      statusRunning,
		subscribers: make(map[chan event]struct{}),
	}
}

func (r *run) publish(e event) {
	r.mu.Lock()
	r.status = e.Status
	r.history = append(r.history, e)
	subs := make([]chan event, 0, len(r.subscribers))
	for ch := range r.subscribers {
		subs = append(subs, ch)
	}
	r.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// subscribe registers a new event channel, replaying history already
// published so a late-connecting client still sees prior progress.
func (r *run) subscribe() (chan event, func()) {
	r.mu.Lock()
	ch := make(chan event, len(r.history)+32)
	for _, e := range r.history {
		ch <- e
	}
	r.subscribers[ch] = struct{}{}
	r.mu.Unlock()

	unsubscribe := func() {
		r.mu.Lock()
		delete(r.subscribers, ch)
		r.mu.Unlock()
	}
	return ch, unsubscribe
}

func (r *run) currentStatus() runStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// manager owns the set of runs started through this API, keyed by a
// server-assigned run ID independent of the pipeline's own internal
// run IDs (the pipeline enforces its own one-at-a-time policy; the
// manager just tracks bookkeeping for HTTP clients).
type manager struct {
	pipe    *pipeline.Pipeline
	history config.ConfigProvider // nil disables run history persistence

	mu   sync.Mutex
	runs map[string]*run
}

func newManager(pipe *pipeline.Pipeline, history config.ConfigProvider) *manager {
	return &manager{pipe: pipe, history: history, runs: make(map[string]*run)}
}

// start launches a new pipeline run in the background and returns its
// tracking ID immediately. If a history provider is configured, the
// outcome is recorded there once the run finishes.
func (m *manager) start(parent context.Context, opts pipeline.Options) *run {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(parent)
	r := newRun(id, cancel)
	requestedAt := time.Now()

	m.mu.Lock()
	m.runs[id] = r
	m.mu.Unlock()

	go func() {
		defer cancel()
		output, err := m.pipe.Run(ctx, opts, func(percent int, message string) {
			r.publish(event{Status: statusRunning, Percent: percent, Message: message})
		})
		if err != nil {
			status := statusFailed
			if ctx.Err() != nil {
				status = statusCancelled
			}
			m.recordRun(id, opts, requestedAt, false, errKind(err), 0)
			r.publish(event{Status: status, Message: err.Error(), Error: err.Error()})
			return
		}
		m.recordRun(id, opts, requestedAt, true, "", len(output.Ranked))
		r.publish(event{Status: statusSucceeded, Percent: 100, Message: "done", Result: output})
	}()

	return r
}

// recordRun writes the outcome of a finished run to the history
// provider, if one is configured. Failures to record are swallowed;
// history is best-effort and never affects the run itself.
func (m *manager) recordRun(id string, opts pipeline.Options, requestedAt time.Time, succeeded bool, errorKind string, resultCount int) {
	if m.history == nil {
		return
	}
	m.history.RecordRun(config.RunRecord{
		ID:          id,
		CenterLat:   opts.Center.Lat,
		CenterLng:   opts.Center.Lng,
		RadiusM:     opts.RadiusM,
		Mode:        string(opts.Mode),
		RequestedAt: requestedAt,
		CompletedAt: time.Now(),
		Succeeded:   succeeded,
		ErrorKind:   errorKind,
		ResultCount: resultCount,
	})
}

// errKind extracts the pipeline error's Kind for history bookkeeping,
// falling back to the bare error string if it isn't a *pipeline.Error.
func errKind(err error) string {
	var pipeErr *pipeline.Error
	if errors.As(err, &pipeErr) {
		return string(pipeErr.Kind)
	}
	return err.Error()
}

// listHistory returns up to limit past runs, newest first. Returns an
// error if no history provider is configured.
func (m *manager) listHistory(limit int) ([]config.RunRecord, error) {
	if m.history == nil {
		return nil, errors.New("run history is not available")
	}
	return m.history.ListRuns(limit)
}

func (m *manager) get(id string) (*run, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	return r, ok
}

// cancelRun stops a tracked run if it is still running. Returns false
// if the run is unknown.
func (m *manager) cancelRun(id string) bool {
	r, ok := m.get(id)
	if !ok {
		return false
	}
	if r.currentStatus() == statusRunning {
		r.cancel()
	}
	return true
}
