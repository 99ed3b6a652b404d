// Package connectivity tracks whether the remote authority is reachable and
// fires a sync trigger once per transition to online.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/vaxtrace/vaxsync/internal/logging"
)

// Prober checks reachability; nil means online.
type Prober interface {
	Health(ctx context.Context) error
}

// Trigger is invoked after a transition to online has settled.
type Trigger func(ctx context.Context)

type Config struct {
	// Interval between health probes in Run.
	Interval time.Duration
	// SettleDelay is how long the connection must stay up before the
	// trigger fires.
	SettleDelay time.Duration
	// ProbeTimeout bounds one health probe.
	ProbeTimeout time.Duration
}

type state int

const (
	stateUnknown state = iota
	stateOffline
	stateOnline
)

type Monitor struct {
	prober  Prober
	trigger Trigger
	cfg     Config
	log     logging.Logger

	mu      sync.Mutex
	state   state
	subs    map[int]func(bool)
	nextSub int
	timer   *time.Timer
	gen     uint64
	base    context.Context
}

func New(prober Prober, trigger Trigger, cfg Config, log logging.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 3 * time.Second
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 3 * time.Second
	}
	return &Monitor{
		prober:  prober,
		trigger: trigger,
		cfg:     cfg,
		log:     log.With("module", "connectivity"),
		subs:    map[int]func(bool){},
		base:    context.Background(),
	}
}

// Run probes the remote every Interval until ctx is done. The first probe
// happens immediately.
func (m *Monitor) Run(ctx context.Context) {
	m.mu.Lock()
	m.base = context.WithoutCancel(ctx)
	m.mu.Unlock()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.probe(ctx)
	for {
		select {
		case <-ticker.C:
			m.probe(ctx)
		case <-ctx.Done():
			m.Stop()
			return
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	err := m.prober.Health(pctx)
	cancel()
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		m.log.Debug(ctx, "health probe failed", "error", err)
	}
	m.SetOnline(err == nil)
}

// Online reports the last observed state. Unknown counts as offline.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == stateOnline
}

// SetOnline feeds an observation. A change of state notifies subscribers;
// a change to online arms the settle timer and a change to offline disarms
// it.
func (m *Monitor) SetOnline(online bool) {
	next := stateOffline
	if online {
		next = stateOnline
	}

	m.mu.Lock()
	if m.state == next {
		m.mu.Unlock()
		return
	}
	m.state = next
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if online {
		gen := m.gen
		m.timer = time.AfterFunc(m.cfg.SettleDelay, func() { m.fire(gen) })
	}
	subs := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	base := m.base
	m.mu.Unlock()

	m.log.Info(base, "connectivity changed", "online", online)
	for _, fn := range subs {
		fn(online)
	}
}

func (m *Monitor) fire(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state != stateOnline {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	base := m.base
	m.mu.Unlock()

	if m.trigger != nil {
		m.trigger(base)
	}
}

// Subscribe registers fn for state changes and returns its unsubscribe
// function.
func (m *Monitor) Subscribe(fn func(online bool)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// Stop disarms a pending trigger.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}
