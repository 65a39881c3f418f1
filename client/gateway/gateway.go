// Package gateway is the single egress for console API calls: it
// fingerprints requests, deduplicates cancelable ones, rejects concurrent
// lockable ones and classifies every failure into exactly one kind.
package gateway

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
	"strings"
	"time"
)

// Reserved business codes signalling an unusable session. They arrive in
// the envelope body, usually on a 200 transport status.
const (
	codeSessionExpired = 55001
	codeSessionRevoked = 55002
)

// TokenSource supplies the bearer token at send time, so a token refreshed
// mid-session is picked up by the next request.
type TokenSource func() string

// Request describes one API call.
type Request struct {
	Method string
	URL    string
	Params map[string]string
	Body   any
	// Cancelable requests supersede an in-flight request with the same
	// fingerprint. Used for reads where only the latest answer matters.
	Cancelable bool
	// Lockable requests are rejected with ErrLocked while an identical one
	// is in flight. Used for non-idempotent writes.
	Lockable bool
}

// Result is the delivered envelope of a successful request.
type Result struct {
	Status  int
	Code    int
	Success bool
	Message string
	Data    json.RawMessage
}

type envelope struct {
	Code    int             `json:"code"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Config collects gateway dependencies.
type Config struct {
	BaseURL string
	Client  *http.Client
	Tokens  TokenSource
	// OnAuthFailure runs once per auth-classified settlement, before the
	// error is returned. It is where credential clearing hooks in.
	OnAuthFailure func(*Error)
	Logger        *slog.Logger
}

// Gateway sends requests through a shared registry.
type Gateway struct {
	base          string
	client        *http.Client
	registry      *Registry
	tokens        TokenSource
	onAuthFailure func(*Error)
	logger        *slog.Logger
}

// New constructs a Gateway around the given registry.
func New(registry *Registry, cfg Config) *Gateway {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		base:          strings.TrimRight(cfg.BaseURL, "/"),
		client:        client,
		registry:      registry,
		tokens:        cfg.Tokens,
		onAuthFailure: cfg.OnAuthFailure,
		logger:        logger,
	}
}

// Registry returns the session registry backing this gateway.
func (g *Gateway) Registry() *Registry {
	return g.registry
}

// Do sends the request and settles it with either a delivered successful
// envelope or a classified *Error. Lock release and dedup cleanup run on
// every exit path.
func (g *Gateway) Do(ctx context.Context, req Request) (*Result, error) {
	fingerprint := Fingerprint(req)

	if req.Lockable {
		if !g.registry.TryLock(fingerprint) {
			return nil, ErrLocked
		}
		defer g.registry.Unlock(fingerprint)
	}

	if req.Cancelable {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		entry := g.registry.Supersede(fingerprint, cancel)
		defer g.registry.Release(fingerprint, entry)
		defer cancel()
	}

	httpReq, err := g.buildRequest(ctx, req)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, cause: err}
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, g.settleTransportError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return g.settleResponse(resp)
}

func (g *Gateway) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := g.base + req.URL
	if len(req.Params) > 0 {
		values := url.Values{}
		for k, v := range req.Params {
			values.Set(k, v)
		}
		target += "?" + values.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, strings.ToUpper(req.Method), target, body)
	if err != nil {
		return nil, err
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if g.tokens != nil {
		if token := g.tokens(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return httpReq, nil
}

// settleTransportError classifies failures where no response was delivered.
// Deadline expiry is a timeout; everything else, including cancellation and
// connection loss, is a network failure.
func (g *Gateway) settleTransportError(ctx context.Context, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, cause: err}
	}
	return &Error{Kind: KindNetwork, cause: err}
}

// settleResponse classifies a delivered response. Auth outranks everything;
// 5xx without a usable envelope is a network failure; a well-formed
// non-success envelope is a business failure.
func (g *Gateway) settleResponse(resp *http.Response) (*Result, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, cause: err}
	}

	var env envelope
	decoded := json.Unmarshal(raw, &env) == nil

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden ||
		(decoded && (env.Code == codeSessionExpired || env.Code == codeSessionRevoked)) {
		return nil, g.authFailure(resp.StatusCode, env)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, &Error{Kind: KindNetwork, Code: env.Code, Message: env.Message}
	}

	if !decoded {
		return nil, &Error{Kind: KindUnknown, Message: "malformed response body"}
	}

	if !env.Success {
		return nil, &Error{Kind: KindBusiness, Code: env.Code, Message: env.Message}
	}

	return &Result{
		Status:  resp.StatusCode,
		Code:    env.Code,
		Success: env.Success,
		Message: env.Message,
		Data:    env.Data,
	}, nil
}

func (g *Gateway) authFailure(status int, env envelope) *Error {
	gerr := &Error{Kind: KindAuth, Code: env.Code, Message: env.Message}
	if gerr.Message == "" {
		gerr.Message = http.StatusText(status)
	}
	if g.onAuthFailure != nil {
		g.onAuthFailure(gerr)
	}
	return gerr
}
