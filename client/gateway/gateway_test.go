package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFingerprintStableAcrossFieldOrder(t *testing.T) {
	a := Fingerprint(Request{
		Method: "post",
		URL:    "/roles/upsertRole",
		Params: map[string]string{"b": "2", "a": "1"},
		Body:   map[string]any{"roleName": "manager", "description": "x"},
	})
	b := Fingerprint(Request{
		Method: "POST",
		URL:    "/roles/upsertRole",
		Params: map[string]string{"a": "1", "b": "2"},
		Body:   map[string]any{"description": "x", "roleName": "manager"},
	})
	require.Equal(t, a, b)

	c := Fingerprint(Request{Method: "POST", URL: "/roles/upsertRole", Body: map[string]any{"roleName": "other"}})
	require.NotEqual(t, a, c)
}

func TestDoInjectsTokenAtSendTime(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		_, _ = w.Write([]byte(`{"code":200,"success":true,"message":"ok"}`))
	}))
	defer srv.Close()

	current := "first"
	gw := New(NewRegistry(), Config{
		BaseURL: srv.URL,
		Tokens:  func() string { return current },
	})

	_, err := gw.Do(context.Background(), Request{Method: http.MethodGet, URL: "/users/me"})
	require.NoError(t, err)

	current = "second"
	_, err = gw.Do(context.Background(), Request{Method: http.MethodGet, URL: "/users/me"})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"Bearer first", "Bearer second"}, seen)
}

func TestLockableRejectsConcurrentDuplicate(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	var enterOnce sync.Once
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		enterOnce.Do(func() { close(entered) })
		<-release
		_, _ = w.Write([]byte(`{"code":200,"success":true,"message":"ok"}`))
	}))
	defer srv.Close()

	gw := New(NewRegistry(), Config{BaseURL: srv.URL})
	req := Request{Method: http.MethodPost, URL: "/users/upsertUser", Body: map[string]string{"username": "carol"}, Lockable: true}

	done := make(chan error, 1)
	go func() {
		_, err := gw.Do(context.Background(), req)
		done <- err
	}()
	<-entered

	// The duplicate is rejected synchronously while the first is in flight.
	_, err := gw.Do(context.Background(), req)
	require.True(t, errors.Is(err, ErrLocked))

	close(release)
	require.NoError(t, <-done)

	// The lock was released on completion; the same request goes through.
	_, err = gw.Do(context.Background(), req)
	require.NoError(t, err)
}

func TestCancelableLastRequestWins(t *testing.T) {
	first := make(chan struct{})
	var firstOnce sync.Once
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("wave") == "1" {
			firstOnce.Do(func() { close(first) })
			<-r.Context().Done()
			return
		}
		_, _ = w.Write([]byte(`{"code":200,"success":true,"message":"ok","data":{"total":2}}`))
	}))
	defer srv.Close()

	gw := New(NewRegistry(), Config{BaseURL: srv.URL})

	done := make(chan error, 1)
	go func() {
		_, err := gw.Do(context.Background(), Request{
			Method: http.MethodGet, URL: "/users", Params: map[string]string{"wave": "1"}, Cancelable: true,
		})
		done <- err
	}()
	<-first

	// Different wave param, different fingerprint: must not cancel wave 1.
	_, err := gw.Do(context.Background(), Request{
		Method: http.MethodGet, URL: "/users", Params: map[string]string{"wave": "2"}, Cancelable: true,
	})
	require.NoError(t, err)

	// Same fingerprint supersedes the hanging first request.
	superCtx, superCancel := context.WithCancel(context.Background())
	defer superCancel()
	go func() {
		_, _ = gw.Do(superCtx, Request{
			Method: http.MethodGet, URL: "/users", Params: map[string]string{"wave": "1"}, Cancelable: true,
		})
	}()

	err = <-done
	require.Error(t, err)
	require.Equal(t, KindNetwork, KindOf(err))
}

func TestClassificationPrecedence(t *testing.T) {
	var authFailures int
	newGateway := func(handler http.HandlerFunc) (*Gateway, func()) {
		srv := httptest.NewServer(handler)
		gw := New(NewRegistry(), Config{
			BaseURL:       srv.URL,
			OnAuthFailure: func(*Error) { authFailures++ },
		})
		return gw, srv.Close
	}

	t.Run("transport 401 is auth", func(t *testing.T) {
		gw, closeSrv := newGateway(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":401,"success":false,"message":"not authorized"}`))
		})
		defer closeSrv()
		_, err := gw.Do(context.Background(), Request{Method: http.MethodGet, URL: "/users/me"})
		require.Equal(t, KindAuth, KindOf(err))
	})

	t.Run("session code on 200 is auth", func(t *testing.T) {
		gw, closeSrv := newGateway(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"code":55001,"success":false,"message":"session expired"}`))
		})
		defer closeSrv()
		_, err := gw.Do(context.Background(), Request{Method: http.MethodGet, URL: "/users/me"})
		require.Equal(t, KindAuth, KindOf(err))
		var gerr *Error
		require.True(t, errors.As(err, &gerr))
		require.Equal(t, 55001, gerr.Code)
	})

	t.Run("deadline is timeout", func(t *testing.T) {
		gw, closeSrv := newGateway(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		})
		defer closeSrv()
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := gw.Do(ctx, Request{Method: http.MethodGet, URL: "/users"})
		require.Equal(t, KindTimeout, KindOf(err))
	})

	t.Run("5xx is network", func(t *testing.T) {
		gw, closeSrv := newGateway(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		defer closeSrv()
		_, err := gw.Do(context.Background(), Request{Method: http.MethodGet, URL: "/users"})
		require.Equal(t, KindNetwork, KindOf(err))
	})

	t.Run("connection refused is network", func(t *testing.T) {
		gw := New(NewRegistry(), Config{BaseURL: "http://127.0.0.1:1"})
		_, err := gw.Do(context.Background(), Request{Method: http.MethodGet, URL: "/users"})
		require.Equal(t, KindNetwork, KindOf(err))
	})

	t.Run("non-success envelope is business", func(t *testing.T) {
		gw, closeSrv := newGateway(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"code":409,"success":false,"message":"email already exists"}`))
		})
		defer closeSrv()
		_, err := gw.Do(context.Background(), Request{Method: http.MethodPost, URL: "/users/upsertUser"})
		require.Equal(t, KindBusiness, KindOf(err))
		var gerr *Error
		require.True(t, errors.As(err, &gerr))
		require.Equal(t, "email already exists", gerr.Message)
	})

	t.Run("delivered 401 outranks cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		// The transport cancels the context and still delivers the 401, the
		// way a response racing a supersede arrives.
		client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			cancel()
			return &http.Response{
				StatusCode: http.StatusUnauthorized,
				Header:     make(http.Header),
				Body:       io.NopCloser(strings.NewReader(`{"code":401,"success":false,"message":"not authorized"}`)),
				Request:    r,
			}, nil
		})}
		gw := New(NewRegistry(), Config{
			BaseURL:       "http://console.internal",
			Client:        client,
			OnAuthFailure: func(*Error) { authFailures++ },
		})
		_, err := gw.Do(ctx, Request{Method: http.MethodGet, URL: "/users/me", Cancelable: true})
		require.Equal(t, KindAuth, KindOf(err))
	})

	t.Run("malformed body is unknown", func(t *testing.T) {
		gw, closeSrv := newGateway(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		})
		defer closeSrv()
		_, err := gw.Do(context.Background(), Request{Method: http.MethodGet, URL: "/users"})
		require.Equal(t, KindUnknown, KindOf(err))
	})

	require.Equal(t, 3, authFailures)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestRegistryResetCancelsInflight(t *testing.T) {
	entered := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-r.Context().Done()
	}))
	defer srv.Close()

	registry := NewRegistry()
	gw := New(registry, Config{BaseURL: srv.URL})

	done := make(chan error, 1)
	go func() {
		_, err := gw.Do(context.Background(), Request{Method: http.MethodGet, URL: "/users", Cancelable: true})
		done <- err
	}()
	<-entered

	registry.Reset()
	err := <-done
	require.Equal(t, KindNetwork, KindOf(err))
	require.False(t, registry.Locked(Fingerprint(Request{Method: http.MethodGet, URL: "/users"})))
}
