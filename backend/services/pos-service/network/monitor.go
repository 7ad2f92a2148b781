package network

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type State int

const (
	Offline State = iota
	Online
)

func (s State) String() string {
	if s == Online {
		return "online"
	}
	return "offline"
}

// Listener is called after every state transition.
type Listener func(State)

// Timer is the part of *time.Timer the monitor needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc by default. f must not be
// called before AfterFunc returns.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Monitor owns the terminal's connectivity state. Both transitions notify
// subscribers. An Offline to Online transition also schedules one
// reconnect callback after the debounce window; going offline again before
// it fires cancels it.
type Monitor struct {
	probe    Probe
	debounce time.Duration
	logger   *zap.Logger
	after    AfterFunc

	// dispatch serializes transitions with their notifications so listeners
	// see states in the order they were applied. Listeners must not call Set.
	dispatch sync.Mutex

	mu          sync.Mutex
	state       State
	listeners   map[int]Listener
	nextID      int
	onReconnect func()
	pending     Timer
	generation  uint64
	lastChange  time.Time
}

type MonitorOption func(*Monitor)

// WithAfterFunc replaces the debounce timer, for tests.
func WithAfterFunc(f AfterFunc) MonitorOption {
	return func(m *Monitor) { m.after = f }
}

// WithInitialState sets the state without probing.
func WithInitialState(s State) MonitorOption {
	return func(m *Monitor) { m.state = s }
}

func NewMonitor(probe Probe, debounce time.Duration, logger *zap.Logger, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		probe:     probe,
		debounce:  debounce,
		logger:    logger,
		after:     realAfterFunc,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init reads the initial state from the probe without notifying.
func (m *Monitor) Init(ctx context.Context) State {
	state := Offline
	if m.probe != nil && m.probe.Check(ctx) {
		state = Online
	}

	m.mu.Lock()
	m.state = state
	m.lastChange = time.Now()
	m.mu.Unlock()

	m.logger.Info("Initial connectivity", zap.Stringer("state", state))
	return state
}

// Run polls the probe every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer m.cancelPending()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, interval)
			online := m.probe.Check(probeCtx)
			cancel()
			if ctx.Err() != nil {
				return
			}
			m.Set(online)
		}
	}
}

// Set records an observed connectivity value. Repeating the current state
// is a no-op. Listeners have returned by the time Set returns.
func (m *Monitor) Set(online bool) {
	next := Offline
	if online {
		next = Online
	}

	m.dispatch.Lock()
	defer m.dispatch.Unlock()

	m.mu.Lock()
	if m.state == next {
		m.mu.Unlock()
		return
	}
	m.state = next
	m.lastChange = time.Now()
	m.generation++

	if m.pending != nil {
		m.pending.Stop()
		m.pending = nil
	}
	if next == Online {
		gen := m.generation
		m.pending = m.after(m.debounce, func() { m.fireReconnect(gen) })
	}

	listeners := make([]Listener, 0, len(m.listeners))
	for id := 0; id < m.nextID; id++ {
		if l, ok := m.listeners[id]; ok {
			listeners = append(listeners, l)
		}
	}
	m.mu.Unlock()

	m.logger.Info("Connectivity changed", zap.Stringer("state", next))
	for _, l := range listeners {
		l(next)
	}
}

func (m *Monitor) fireReconnect(gen uint64) {
	m.mu.Lock()
	if m.pending == nil || m.generation != gen || m.state != Online {
		m.mu.Unlock()
		return
	}
	m.pending = nil
	cb := m.onReconnect
	m.mu.Unlock()

	if cb != nil {
		cb()
	}
}

func (m *Monitor) cancelPending() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending != nil {
		m.pending.Stop()
		m.pending = nil
	}
}

// OnReconnect sets the debounced callback for Offline to Online.
func (m *Monitor) OnReconnect(f func()) {
	m.mu.Lock()
	m.onReconnect = f
	m.mu.Unlock()
}

// Subscribe registers l for every transition and returns an unsubscribe func.
func (m *Monitor) Subscribe(l Listener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Monitor) IsOnline() bool {
	return m.State() == Online
}

// Since returns when the current state began.
func (m *Monitor) Since() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastChange
}
