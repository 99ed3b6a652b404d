// Package control is the message RPC between the foreground process and the
// agent's single worker.
//
// Requests carry a correlation id and a type. The worker serves them one at
// a time and answers on the request's own reply channel:
//
//	resp, err := w.Call(ctx, control.TriggerSync)
//	if err == nil && resp.Success { ... }
//
// Server and Dial expose the same calls over gRPC.
package control

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/vaxtrace/vaxsync/internal/client/models"
	"github.com/vaxtrace/vaxsync/internal/client/syncer"
	"github.com/vaxtrace/vaxsync/internal/logging"
)

// Type is the kind of a control request.
type Type string

const (
	TriggerSync Type = "TRIGGER_SYNC"
	ClearCache  Type = "CLEAR_CACHE"
	SkipWaiting Type = "SKIP_WAITING"
	Status      Type = "STATUS"
)

// ErrWorkerStopped is returned by Call once the worker has exited.
var ErrWorkerStopped = errors.New("control worker stopped")

// Request is one message to the worker.
type Request struct {
	ID   string
	Type Type

	reply chan Response
}

// Response answers the request with the same ID. Fields beyond Success and
// Error are filled by the request types that produce them.
type Response struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	// TRIGGER_SYNC
	Resolved int `json:"resolved,omitempty"`
	Failed   int `json:"failed,omitempty"`

	// STATUS
	Pending       int  `json:"pending,omitempty"`
	ResolvedTotal int  `json:"resolvedTotal,omitempty"`
	Online        bool `json:"online,omitempty"`
}

type Syncer interface {
	Replay(ctx context.Context) (syncer.Result, error)
}

type Cache interface {
	Clear(ctx context.Context) error
	Activate(ctx context.Context) error
}

type Counter interface {
	Counts(ctx context.Context) (models.QueueCounts, error)
}

// Deps are the components the worker drives.
type Deps struct {
	Syncer  Syncer
	Cache   Cache
	Counter Counter
	Online  func() bool
}

type Worker struct {
	deps     Deps
	log      logging.Logger
	requests chan Request
	done     chan struct{}

	// syncAgain is set by every TRIGGER_SYNC caller before it queues, so a
	// nudge that waited out a running pass still gets a pass afterwards.
	syncAgain atomic.Bool
}

func NewWorker(deps Deps, log logging.Logger) *Worker {
	return &Worker{
		deps:     deps,
		log:      log.With("module", "control"),
		requests: make(chan Request),
		done:     make(chan struct{}),
	}
}

// Run serves requests until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)
	w.log.Info(ctx, "control worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info(ctx, "control worker stopped")
			return
		case req := <-w.requests:
			resp := w.handle(ctx, req)
			resp.ID = req.ID
			req.reply <- resp
			w.followUp(ctx)
		}
	}
}

// followUp runs replay passes while sync requests arrived during the last
// request, whether or not those callers are still waiting.
func (w *Worker) followUp(ctx context.Context) {
	for ctx.Err() == nil && w.syncAgain.Swap(false) {
		res, err := w.deps.Syncer.Replay(ctx)
		if err != nil {
			w.log.Error(ctx, "follow-up sync failed", "error", err)
			continue
		}
		w.log.Info(ctx, "follow-up sync finished", "resolved", res.Resolved, "failed", res.Failed)
	}
}

// Call sends a request of type t and waits for its reply. A TRIGGER_SYNC
// that gives up waiting is still honoured by a later pass.
func (w *Worker) Call(ctx context.Context, t Type) (Response, error) {
	req := Request{ID: uuid.NewString(), Type: t, reply: make(chan Response, 1)}
	if t == TriggerSync {
		w.syncAgain.Store(true)
	}

	select {
	case w.requests <- req:
	case <-w.done:
		return Response{}, ErrWorkerStopped
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}

	select {
	case resp := <-req.reply:
		if resp.ID != req.ID {
			return Response{}, fmt.Errorf("reply %s does not match request %s", resp.ID, req.ID)
		}
		return resp, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

func (w *Worker) handle(ctx context.Context, req Request) Response {
	log := w.log.With("request", req.ID, "type", req.Type)
	log.Debug(ctx, "handling request")

	switch req.Type {
	case TriggerSync:
		w.syncAgain.Store(false)
		res, err := w.deps.Syncer.Replay(ctx)
		if err != nil {
			log.Error(ctx, "sync failed", "error", err)
			return Response{Error: err.Error()}
		}
		return Response{Success: true, Resolved: res.Resolved, Failed: res.Failed}

	case ClearCache:
		if err := w.deps.Cache.Clear(ctx); err != nil {
			log.Error(ctx, "clear cache failed", "error", err)
			return Response{Error: err.Error()}
		}
		return Response{Success: true}

	case SkipWaiting:
		if err := w.deps.Cache.Activate(ctx); err != nil {
			log.Error(ctx, "activate failed", "error", err)
			return Response{Error: err.Error()}
		}
		return Response{Success: true}

	case Status:
		c, err := w.deps.Counter.Counts(ctx)
		if err != nil {
			return Response{Error: err.Error()}
		}
		online := false
		if w.deps.Online != nil {
			online = w.deps.Online()
		}
		return Response{Success: true, Pending: c.Pending, ResolvedTotal: c.Resolved, Online: online}
	}

	return Response{Error: fmt.Sprintf("unknown request type %q", req.Type)}
}
