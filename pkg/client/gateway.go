package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Godfrey-cyber23/final-year-project-2025/pkg/constant"
)

const (
	defaultTimeout          = 10 * time.Second
	defaultCoalescingWindow = 300 * time.Millisecond
)

// Event is what the gateway emits instead of navigating anywhere itself; the
// session monitor (or UI layer) translates events into navigation.
type Event int

const (
	// EventAuthExpired fires on any 401: the stored token has been cleared
	// and the user must re-authenticate.
	EventAuthExpired Event = iota
	// EventForbidden fires on any 403.
	EventForbidden
)

// Gateway is the single chokepoint for calls to the authentication service.
// It owns the pending-request registry, so isolated gateways can coexist in
// one process (tests included) without shared global state.
type Gateway struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
	logger  *slog.Logger
	window  time.Duration
	now     func() time.Time

	mu      sync.Mutex
	pending map[string]*pendingCall
	subs    map[int]func(Event)
	nextSub int
}

// pendingCall tracks one in-flight de-duplicable request. All fields are
// guarded by Gateway.mu except cancel, which is safe to call concurrently.
type pendingCall struct {
	cancel     context.CancelFunc
	startedAt  time.Time
	superseded bool
}

type Option func(*Gateway)

func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.http.Timeout = d }
}

func WithCoalescingWindow(d time.Duration) Option {
	return func(g *Gateway) { g.window = d }
}

func WithTokenStore(ts TokenStore) Option {
	return func(g *Gateway) { g.tokens = ts }
}

func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

func NewGateway(baseURL string, opts ...Option) *Gateway {
	g := &Gateway{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		tokens:  NewMemoryTokenStore(),
		logger:  slog.Default(),
		window:  defaultCoalescingWindow,
		now:     time.Now,
		pending: make(map[string]*pendingCall),
		subs:    make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Subscribe registers an event listener and returns its unsubscribe func.
func (g *Gateway) Subscribe(fn func(Event)) func() {
	g.mu.Lock()
	id := g.nextSub
	g.nextSub++
	g.subs[id] = fn
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		delete(g.subs, id)
		g.mu.Unlock()
	}
}

func (g *Gateway) emit(ev Event) {
	g.mu.Lock()
	listeners := make([]func(Event), 0, len(g.subs))
	for _, fn := range g.subs {
		listeners = append(listeners, fn)
	}
	g.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

// Get runs a de-duplicated read. When an identical call is already in flight
// and started within the coalescing window, the earlier call is cancelled in
// favor of this one and its result is never applied (last-writer-wins).
func (g *Gateway) Get(ctx context.Context, path string, query url.Values, out any) error {
	key := requestKey(http.MethodGet, path, query)

	callCtx, cancel := context.WithCancel(ctx)
	entry := &pendingCall{cancel: cancel, startedAt: g.now()}

	g.mu.Lock()
	if prior, ok := g.pending[key]; ok && entry.startedAt.Sub(prior.startedAt) < g.window {
		prior.superseded = true
		prior.cancel()
	}
	g.pending[key] = entry
	g.mu.Unlock()

	defer func() {
		cancel()
		g.mu.Lock()
		if g.pending[key] == entry {
			delete(g.pending, key)
		}
		g.mu.Unlock()
	}()

	target := path
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}
	return g.do(callCtx, http.MethodGet, target, nil, out, entry)
}

// Post is never de-duplicated; writes are not idempotent.
func (g *Gateway) Post(ctx context.Context, path string, body, out any) error {
	return g.do(ctx, http.MethodPost, path, body, out, nil)
}

// CancelAll aborts every tracked in-flight request. Used when the caller
// navigates away from an authenticated area.
func (g *Gateway) CancelAll() {
	g.mu.Lock()
	calls := make([]*pendingCall, 0, len(g.pending))
	for key, call := range g.pending {
		call.superseded = true
		calls = append(calls, call)
		delete(g.pending, key)
	}
	g.mu.Unlock()

	for _, call := range calls {
		call.cancel()
	}
}

func (g *Gateway) do(ctx context.Context, method, path string, body, out any, entry *pendingCall) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindNetwork, Message: "failed to encode request body", err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: "failed to build request", err: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(constant.HeaderRequestID, uuid.NewString())
	if token := g.tokens.Token(); token != "" {
		req.Header.Set("Authorization", constant.BearerScheme+" "+token)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return g.classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return g.classifyTransport(ctx, err)
	}

	// A superseded call's response must never be applied, even when it
	// arrived intact before the cancellation landed.
	if entry != nil {
		g.mu.Lock()
		superseded := entry.superseded
		g.mu.Unlock()
		if superseded {
			return &Error{Kind: KindCancelled, Message: "superseded by a newer identical request"}
		}
	}

	if resp.StatusCode >= 400 {
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			if err := g.tokens.Clear(); err != nil {
				g.logger.Warn("failed to clear stored token", slog.String("error", err.Error()))
			}
			g.emit(EventAuthExpired)
		case http.StatusForbidden:
			g.emit(EventForbidden)
		}
		return &Error{Kind: KindHTTP, Status: resp.StatusCode, Message: errorMessage(payload)}
	}

	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return &Error{Kind: KindHTTP, Status: resp.StatusCode, Message: "malformed response body", err: err}
		}
	}
	return nil
}

func (g *Gateway) classifyTransport(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.Canceled) || ctx.Err() == context.Canceled:
		return &Error{Kind: KindCancelled, Message: "request cancelled", err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Message: "request timed out", err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Message: "request timed out", err: err}
	}
	return &Error{Kind: KindNetwork, Message: "please check your network connection", err: err}
}

// errorMessage pulls the server's error text out of a failure body. The
// server uses "error"; "message" is accepted for older payloads.
func errorMessage(payload []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return "request failed"
}

func requestKey(method, path string, query url.Values) string {
	return method + " " + path + "?" + query.Encode()
}
