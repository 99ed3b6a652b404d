package connectivity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaxtrace/vaxsync/internal/logging"
)

const settle = 30 * time.Millisecond

type counter struct{ n atomic.Int32 }

func (c *counter) trigger(context.Context) { c.n.Add(1) }

func newMonitor(c *counter, p Prober) *Monitor {
	return New(p, c.trigger, Config{Interval: 10 * time.Millisecond, SettleDelay: settle}, logging.Discard())
}

func TestTransitionToOnlineTriggersOnce(t *testing.T) {
	var c counter
	m := newMonitor(&c, nil)

	m.SetOnline(true)
	m.SetOnline(true)
	require.True(t, m.Online())
	assert.Equal(t, int32(0), c.n.Load(), "trigger waits for the settle delay")

	require.Eventually(t, func() bool { return c.n.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(3 * settle)
	assert.Equal(t, int32(1), c.n.Load())
}

func TestOfflineDuringSettleCancels(t *testing.T) {
	var c counter
	m := newMonitor(&c, nil)

	m.SetOnline(true)
	m.SetOnline(false)
	time.Sleep(3 * settle)
	assert.Equal(t, int32(0), c.n.Load())
	assert.False(t, m.Online())
}

func TestFlappingYieldsOnePass(t *testing.T) {
	var c counter
	m := newMonitor(&c, nil)

	for i := 0; i < 5; i++ {
		m.SetOnline(true)
		m.SetOnline(false)
	}
	m.SetOnline(true)

	require.Eventually(t, func() bool { return c.n.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(3 * settle)
	assert.Equal(t, int32(1), c.n.Load())
}

func TestEachReconnectTriggersAgain(t *testing.T) {
	var c counter
	m := newMonitor(&c, nil)

	m.SetOnline(true)
	require.Eventually(t, func() bool { return c.n.Load() == 1 }, time.Second, 5*time.Millisecond)
	m.SetOnline(false)
	m.SetOnline(true)
	require.Eventually(t, func() bool { return c.n.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestSubscribeUnsubscribe(t *testing.T) {
	var c counter
	m := newMonitor(&c, nil)

	var (
		mu  sync.Mutex
		got []bool
	)
	unsubscribe := m.Subscribe(func(online bool) {
		mu.Lock()
		got = append(got, online)
		mu.Unlock()
	})

	m.SetOnline(false)
	m.SetOnline(true)
	m.SetOnline(true)
	unsubscribe()
	unsubscribe()
	m.SetOnline(false)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{false, true}, got)
	m.Stop()
}

type flakyProber struct {
	mu  sync.Mutex
	err error
}

func (p *flakyProber) Health(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *flakyProber) set(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func TestRunProbesRemote(t *testing.T) {
	var c counter
	p := &flakyProber{err: errors.New("down")}
	m := newMonitor(&c, p)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	time.Sleep(5 * settle)
	assert.False(t, m.Online())
	assert.Equal(t, int32(0), c.n.Load())

	p.set(nil)
	require.Eventually(t, m.Online, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return c.n.Load() == 1 }, time.Second, 5*time.Millisecond)

	// Staying online does not trigger again.
	time.Sleep(5 * settle)
	assert.Equal(t, int32(1), c.n.Load())

	cancel()
	<-done
}
