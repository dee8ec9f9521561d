package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// State is the session monitor's belief about "am I authenticated".
type State int

const (
	StateUnresolved State = iota
	StateResolving
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateResolving:
		return "resolving"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Snapshot is what subscribers receive on every transition. The rendering
// layer merely renders it.
type Snapshot struct {
	State     State
	Principal *Principal
	// Message carries the user-visible reason for the last transition into
	// StateUnauthenticated, empty otherwise.
	Message string
}

const (
	defaultIdleTimeout       = 30 * time.Minute
	defaultIdleCheckInterval = 60 * time.Second
	defaultResolveRetries    = 3
	defaultResolveDelay      = time.Second
)

// Monitor owns the client session state machine: it resolves a stored token
// on startup, tracks activity for the idle timeout, and reacts to the
// gateway's auth events. All outbound calls go through the gateway.
type Monitor struct {
	api    *API
	gw     *Gateway
	tokens *SplitTokenStore
	logger *slog.Logger

	idleTimeout       time.Duration
	idleCheckInterval time.Duration
	resolveRetries    int
	resolveDelay      time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu           sync.Mutex
	state        State
	principal    *Principal
	lastActivity time.Time
	message      string
	intended     string
	subs         map[int]func(Snapshot)
	nextSub      int

	done      chan struct{}
	closeOnce sync.Once
	unsubGW   func()
}

type MonitorOption func(*Monitor)

func WithIdleTimeout(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.idleTimeout = d }
}

func WithIdleCheckInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.idleCheckInterval = d }
}

func WithResolveRetries(n int, delay time.Duration) MonitorOption {
	return func(m *Monitor) {
		m.resolveRetries = n
		m.resolveDelay = delay
	}
}

func WithMonitorLogger(l *slog.Logger) MonitorOption {
	return func(m *Monitor) { m.logger = l }
}

// withClock lets tests drive the idle timeout without real waiting.
func withClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) { m.now = now }
}

func NewMonitor(api *API, gw *Gateway, tokens *SplitTokenStore, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		api:               api,
		gw:                gw,
		tokens:            tokens,
		logger:            slog.Default(),
		idleTimeout:       defaultIdleTimeout,
		idleCheckInterval: defaultIdleCheckInterval,
		resolveRetries:    defaultResolveRetries,
		resolveDelay:      defaultResolveDelay,
		now:               time.Now,
		state:             StateUnresolved,
		subs:              make(map[int]func(Snapshot)),
		done:              make(chan struct{}),
	}
	m.sleep = func(ctx context.Context, d time.Duration) error {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return errors.New("monitor closed")
		case <-timer.C:
			return nil
		}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start wires the gateway events, kicks off the idle checker and resolves any
// stored token. It blocks until the initial resolution settles.
func (m *Monitor) Start(ctx context.Context) {
	m.unsubGW = m.gw.Subscribe(func(ev Event) {
		if ev == EventAuthExpired && m.State() == StateAuthenticated {
			m.Logout("Session expired. Please login again.")
		}
	})

	go m.idleLoop()

	m.Resolve(ctx)
}

// Resolve attempts "who am I" with the stored token. Transient server
// failures (5xx) are retried with linear backoff up to the retry budget;
// everything else settles immediately into StateUnauthenticated.
func (m *Monitor) Resolve(ctx context.Context) {
	if m.tokens.Token() == "" {
		m.transition(StateUnauthenticated, nil, "")
		return
	}

	m.transition(StateResolving, nil, "")

	var lastErr error
	for attempt := 0; attempt <= m.resolveRetries; attempt++ {
		if attempt > 0 {
			if err := m.sleep(ctx, time.Duration(attempt)*m.resolveDelay); err != nil {
				break
			}
		}

		principal, err := m.api.Me(ctx)
		if err == nil {
			m.mu.Lock()
			m.lastActivity = m.now()
			m.mu.Unlock()
			m.transition(StateAuthenticated, principal, "")
			return
		}

		lastErr = err
		var ce *Error
		if errors.As(err, &ce) && ce.Kind == KindHTTP && ce.Status >= 500 {
			continue
		}
		break
	}

	if err := m.tokens.Clear(); err != nil {
		m.logger.Warn("failed to clear stored token", slog.String("error", err.Error()))
	}
	m.transition(StateUnauthenticated, nil, failureMessage(lastErr))
}

// Login submits credentials through the gateway and, on success, stores the
// token durably or session-scoped depending on remember.
func (m *Monitor) Login(ctx context.Context, email, password, secretKey string, remember bool) error {
	result, err := m.api.Login(ctx, email, password, secretKey)
	if err != nil {
		return err
	}

	if err := m.tokens.SetRemembered(result.Token, remember); err != nil {
		return err
	}

	m.mu.Lock()
	m.lastActivity = m.now()
	m.mu.Unlock()

	principal := result.Lecturer
	m.transition(StateAuthenticated, &principal, "")
	return nil
}

// Logout clears stored state, aborts in-flight requests and settles into
// StateUnauthenticated with the given user-visible message.
func (m *Monitor) Logout(message string) {
	if err := m.tokens.Clear(); err != nil {
		m.logger.Warn("failed to clear stored token", slog.String("error", err.Error()))
	}
	m.gw.CancelAll()
	m.transition(StateUnauthenticated, nil, message)
}

// Activity records a user-activity event (pointer, key, scroll, touch). The
// UI layer calls this from its event listeners.
func (m *Monitor) Activity() {
	m.mu.Lock()
	m.lastActivity = m.now()
	m.mu.Unlock()
}

// CheckIdle runs one idle-timeout check. The background ticker calls it every
// idleCheckInterval; tests call it directly.
func (m *Monitor) CheckIdle() {
	m.mu.Lock()
	expired := m.state == StateAuthenticated && m.now().Sub(m.lastActivity) >= m.idleTimeout
	m.mu.Unlock()

	if expired {
		m.Logout("You have been logged out due to inactivity")
	}
}

func (m *Monitor) idleLoop() {
	ticker := time.NewTicker(m.idleCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.CheckIdle()
		}
	}
}

// Subscribe registers a listener for state transitions and returns its
// unsubscribe func. The listener immediately receives the current snapshot.
func (m *Monitor) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	fn(snapshot)

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Monitor) Principal() *Principal {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.principal == nil {
		return nil
	}
	p := *m.principal
	return &p
}

// SetIntended records the location that triggered a redirect to login, so
// Landing can send the user back there after authentication.
func (m *Monitor) SetIntended(location string) {
	m.mu.Lock()
	m.intended = location
	m.mu.Unlock()
}

// Landing returns where the UI should navigate after authentication: the
// recorded intended location when one exists, otherwise the role-appropriate
// dashboard.
func (m *Monitor) Landing() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.intended != "" {
		target := m.intended
		m.intended = ""
		return target
	}
	if m.principal != nil && m.principal.IsAdmin {
		return "/admin/dashboard"
	}
	return "/lecturer/dashboard"
}

// Close tears down the idle checker and the gateway subscription. Required
// before discarding a monitor, or its timers leak across repeated mounts.
func (m *Monitor) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
		if m.unsubGW != nil {
			m.unsubGW()
		}
	})
}

func (m *Monitor) transition(state State, principal *Principal, message string) {
	m.mu.Lock()
	m.state = state
	m.principal = principal
	m.message = message
	snapshot := m.snapshotLocked()
	listeners := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

func (m *Monitor) snapshotLocked() Snapshot {
	snapshot := Snapshot{State: m.state, Message: m.message}
	if m.principal != nil {
		p := *m.principal
		snapshot.Principal = &p
	}
	return snapshot
}

func failureMessage(err error) string {
	if err == nil {
		return "Session expired. Please login again."
	}
	var ce *Error
	if errors.As(err, &ce) && ce.Kind == KindHTTP && ce.Message != "" {
		return ce.Message
	}
	return "Session expired. Please login again."
}
