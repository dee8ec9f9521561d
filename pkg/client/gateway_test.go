package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestGateway_AttachesStandardHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		writeJSON(w, http.StatusOK, map[string]string{"ok": "true"})
	}))
	defer srv.Close()

	g := NewGateway(srv.URL)
	require.NoError(t, g.tokens.Set("session-token"))

	err := g.Get(context.Background(), "/lecturer/me", url.Values{}, nil)
	require.NoError(t, err)

	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "Bearer session-token", got.Get("Authorization"))
	assert.NotEmpty(t, got.Get("X-Request-ID"))
}

func TestGateway_RequestIDsAreUnique(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen[r.Header.Get("X-Request-ID")] = true
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{})
	}))
	defer srv.Close()

	g := NewGateway(srv.URL)
	for i := 0; i < 3; i++ {
		require.NoError(t, g.Post(context.Background(), "/auth/login", map[string]string{}, nil))
	}

	assert.Len(t, seen, 3)
}

func TestGateway_UnauthorizedClearsTokenAndEmits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}))
	defer srv.Close()

	g := NewGateway(srv.URL)
	require.NoError(t, g.tokens.Set("stale-token"))

	var events []Event
	unsubscribe := g.Subscribe(func(ev Event) { events = append(events, ev) })
	defer unsubscribe()

	err := g.Get(context.Background(), "/lecturer/me", url.Values{}, nil)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindHTTP, ce.Kind)
	assert.Equal(t, http.StatusUnauthorized, ce.Status)
	assert.Empty(t, g.tokens.Token())
	assert.Equal(t, []Event{EventAuthExpired}, events)
}

func TestGateway_ForbiddenEmitsButKeepsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	}))
	defer srv.Close()

	g := NewGateway(srv.URL)
	require.NoError(t, g.tokens.Set("valid-token"))

	var events []Event
	unsubscribe := g.Subscribe(func(ev Event) { events = append(events, ev) })
	defer unsubscribe()

	err := g.Get(context.Background(), "/lecturer/me", url.Values{}, nil)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, http.StatusForbidden, ce.Status)
	assert.Equal(t, "valid-token", g.tokens.Token())
	assert.Equal(t, []Event{EventForbidden}, events)
}

func TestGateway_ErrorMessageFromBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":             "Too many failed login attempts",
			"retryAfterSeconds": 900,
		})
	}))
	defer srv.Close()

	g := NewGateway(srv.URL)
	err := g.Post(context.Background(), "/auth/login", map[string]string{}, nil)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Too many failed login attempts", ce.Message)
	assert.True(t, IsRetryable(err))
}

func TestGateway_ClassifiesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, WithTimeout(50*time.Millisecond))
	err := g.Get(context.Background(), "/lecturer/me", url.Values{}, nil)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindTimeout, ce.Kind)
	assert.True(t, IsRetryable(err))
}

func TestGateway_ClassifiesCancellation(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	g := NewGateway(srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	err := g.Get(ctx, "/lecturer/me", url.Values{}, nil)

	assert.True(t, IsCancelled(err))
	assert.False(t, IsRetryable(err))
}

func TestGateway_ClassifiesNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing is listening anymore

	g := NewGateway(srv.URL)
	err := g.Get(context.Background(), "/lecturer/me", url.Values{}, nil)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindNetwork, ce.Kind)
	assert.True(t, IsRetryable(err))
}

// Two identical GETs inside the coalescing window: the earlier one is
// superseded and must never apply its result; the newer one wins.
func TestGateway_DuplicateGetIsSuperseded(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n == 1 {
			select {
			case <-release:
			case <-r.Context().Done():
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"call": n})
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, WithCoalescingWindow(time.Second))

	type result struct {
		out map[string]any
		err error
	}
	first := make(chan result, 1)
	go func() {
		var out map[string]any
		err := g.Get(context.Background(), "/lecturer/me", url.Values{}, &out)
		first <- result{out, err}
	}()

	// Wait until the first call is held open server-side.
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	var out map[string]any
	err := g.Get(context.Background(), "/lecturer/me", url.Values{}, &out)
	close(release)

	require.NoError(t, err)
	assert.Equal(t, float64(2), out["call"])

	got := <-first
	assert.True(t, IsCancelled(got.err))
	assert.Nil(t, got.out["call"])
}

// Identical GETs outside the window do not interfere with each other.
func TestGateway_DuplicateGetOutsideWindow(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"call": calls.Add(1)})
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, WithCoalescingWindow(time.Millisecond))

	var out1, out2 map[string]any
	require.NoError(t, g.Get(context.Background(), "/lecturer/me", url.Values{}, &out1))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, g.Get(context.Background(), "/lecturer/me", url.Values{}, &out2))

	assert.Equal(t, float64(1), out1["call"])
	assert.Equal(t, float64(2), out2["call"])
}

// GETs that differ in path or query are distinct and never coalesce.
func TestGateway_DifferentRequestsDoNotCoalesce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{})
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, WithCoalescingWindow(time.Second))

	require.NoError(t, g.Get(context.Background(), "/lecturer/me", url.Values{}, nil))
	require.NoError(t, g.Get(context.Background(), "/lecturer/me", url.Values{"full": {"1"}}, nil))

	assert.Equal(t, int32(2), calls.Load())
}

func TestGateway_PostIsNeverDeduplicated(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{})
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, WithCoalescingWindow(time.Second))

	body := map[string]string{"email": "a@b.com"}
	require.NoError(t, g.Post(context.Background(), "/auth/forgot-password", body, nil))
	require.NoError(t, g.Post(context.Background(), "/auth/forgot-password", body, nil))

	assert.Equal(t, int32(2), calls.Load())
}

func TestGateway_CancelAll(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	g := NewGateway(srv.URL)

	done := make(chan error, 1)
	go func() {
		done <- g.Get(context.Background(), "/lecturer/me", url.Values{}, nil)
	}()

	<-started
	g.CancelAll()

	select {
	case err := <-done:
		assert.True(t, IsCancelled(err))
	case <-time.After(time.Second):
		t.Fatal("cancelled request never returned")
	}
}

func TestGateway_DecodesSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"token":    "session-token",
			"lecturer": map[string]any{"id": "lect-1", "email": "a@b.com"},
		})
	}))
	defer srv.Close()

	g := NewGateway(srv.URL)
	var out LoginResult
	require.NoError(t, g.Post(context.Background(), "/auth/login", map[string]string{}, &out))

	assert.Equal(t, "session-token", out.Token)
	assert.Equal(t, "lect-1", out.Lecturer.ID)
}
