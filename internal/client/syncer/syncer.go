// Package syncer replays the outbox against the remote authority.
//
// A pass snapshots the unresolved entries and submits them in snapshot
// order. A success resolves the entry; any failure is recorded on the entry
// and the pass moves on. Nothing is retried within a pass: a failed entry
// waits for the next trigger.
package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/vaxtrace/vaxsync/internal/client/models"
	"github.com/vaxtrace/vaxsync/internal/client/remote"
	"github.com/vaxtrace/vaxsync/internal/logging"
)

// Mode selects how entries are submitted.
type Mode string

const (
	// ModeRouted submits each entry to its collection's endpoint.
	ModeRouted Mode = "routed"
	// ModeGeneric posts every entry to /sync.
	ModeGeneric Mode = "generic"
)

// Store is the part of the local store the coordinator needs.
type Store interface {
	ListUnresolved(ctx context.Context) ([]*models.QueueEntry, error)
	MarkResolved(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, reason string) error
	SaveReplayOutcome(ctx context.Context, o models.ReplayOutcome) error
}

// Remote is the remote authority API.
type Remote interface {
	Submit(ctx context.Context, route models.Route, body json.RawMessage) error
	Sync(ctx context.Context, e *models.QueueEntry) (*remote.SyncResponse, error)
}

type Config struct {
	Mode Mode
	// Workers > 1 replays independent records concurrently. Entries of the
	// same record always go one at a time in queue order.
	Workers int
}

// Result counts the entries of one pass.
type Result struct {
	Resolved int `json:"resolved"`
	Failed   int `json:"failed"`
}

type Coordinator struct {
	store  Store
	remote Remote
	cfg    Config
	log    logging.Logger
	now    func() time.Time

	group singleflight.Group
}

func New(store Store, rmt Remote, cfg Config, log logging.Logger) *Coordinator {
	if cfg.Mode == "" {
		cfg.Mode = ModeRouted
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Coordinator{
		store:  store,
		remote: rmt,
		cfg:    cfg,
		log:    log.With("module", "syncer"),
		now:    time.Now,
	}
}

// Replay runs one pass. Calls made while a pass is in flight share its
// result. The pass ignores cancellation of ctx and always runs to the end of
// its snapshot. The only error is failing to read the snapshot.
func (c *Coordinator) Replay(ctx context.Context) (Result, error) {
	v, err, shared := c.group.Do("replay", func() (any, error) {
		return c.pass(context.WithoutCancel(ctx))
	})
	if shared {
		c.log.Debug(ctx, "joined in-flight replay")
	}
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (c *Coordinator) pass(ctx context.Context) (Result, error) {
	entries, err := c.store.ListUnresolved(ctx)
	if err != nil {
		c.record(ctx, Result{}, err)
		return Result{}, fmt.Errorf("snapshot outbox: %w", err)
	}
	if len(entries) == 0 {
		c.record(ctx, Result{}, nil)
		return Result{}, nil
	}

	c.log.Info(ctx, "replay started", "entries", len(entries), "mode", c.cfg.Mode, "workers", c.cfg.Workers)

	var res Result
	if c.cfg.Workers == 1 {
		for _, e := range entries {
			c.tally(&res, nil, c.replayOne(ctx, e))
		}
	} else {
		res = c.partitioned(ctx, entries)
	}

	c.log.Info(ctx, "replay finished", "resolved", res.Resolved, "failed", res.Failed)
	c.record(ctx, res, nil)
	return res, nil
}

// partitioned groups entries by record and runs the groups concurrently.
func (c *Coordinator) partitioned(ctx context.Context, entries []*models.QueueEntry) Result {
	var (
		order  []string
		groups = map[string][]*models.QueueEntry{}
	)
	for _, e := range entries {
		k := string(e.Collection) + "/" + e.RecordID
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], e)
	}

	var (
		res Result
		mu  sync.Mutex
		g   errgroup.Group
	)
	g.SetLimit(c.cfg.Workers)
	for _, k := range order {
		group := groups[k]
		g.Go(func() error {
			for _, e := range group {
				c.tally(&res, &mu, c.replayOne(ctx, e))
			}
			return nil
		})
	}
	_ = g.Wait()
	return res
}

func (c *Coordinator) tally(res *Result, mu *sync.Mutex, ok bool) {
	if mu != nil {
		mu.Lock()
		defer mu.Unlock()
	}
	if ok {
		res.Resolved++
	} else {
		res.Failed++
	}
}

// replayOne submits e and records the outcome on the entry. It reports
// whether the entry was resolved.
func (c *Coordinator) replayOne(ctx context.Context, e *models.QueueEntry) bool {
	log := c.log.With("entry", e.ID, "collection", e.Collection, "action", e.Action, "record", e.RecordID)

	if err := c.submit(ctx, e); err != nil {
		log.Warn(ctx, "entry failed", "error", err)
		if merr := c.store.MarkFailed(ctx, e.ID, err.Error()); merr != nil {
			log.Error(ctx, "failed to record failure", "error", merr)
		}
		return false
	}

	if err := c.store.MarkResolved(ctx, e.ID, c.now()); err != nil {
		// Delivered but not marked: the next pass sends it again, which the
		// remote treats as an overwrite.
		log.Error(ctx, "failed to mark resolved", "error", err)
		return false
	}
	log.Debug(ctx, "entry resolved")
	return true
}

func (c *Coordinator) submit(ctx context.Context, e *models.QueueEntry) error {
	if c.cfg.Mode == ModeGeneric {
		resp, err := c.remote.Sync(ctx, e)
		if err != nil {
			return err
		}
		if !resp.Success {
			return fmt.Errorf("remote did not accept %s", e.ID)
		}
		return nil
	}

	route, ok := models.RouteFor(e.Collection, e.Action)
	if !ok {
		return fmt.Errorf("no remote route for %s %s", e.Action, e.Collection)
	}

	body := e.Payload
	if e.Action == models.ActionDelete {
		b, err := json.Marshal(map[string]string{"id": e.RecordID})
		if err != nil {
			return err
		}
		body = b
	}
	return c.remote.Submit(ctx, route, body)
}

func (c *Coordinator) record(ctx context.Context, res Result, passErr error) {
	o := models.ReplayOutcome{At: c.now(), Resolved: res.Resolved, Failed: res.Failed}
	if passErr != nil {
		o.Error = passErr.Error()
	}
	if err := c.store.SaveReplayOutcome(ctx, o); err != nil {
		c.log.Warn(ctx, "failed to record replay outcome", "error", err)
	}
}
