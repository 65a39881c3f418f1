// Package token issues and verifies HMAC-signed bearer tokens backed by
// redis session records, so a forced logout is a session delete and every
// verification observes revocation immediately.
package token

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Reserved business codes carried in the response envelope when a session is
// no longer usable. The client treats both as "session invalid, clear and
// redirect".
const (
	CodeSessionExpired = 55001
	CodeSessionRevoked = 55002
)

var (
	// ErrTokenInvalid indicates a malformed or badly signed token.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired indicates the embedded expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked indicates a well-formed token whose session record is
	// gone, typically after logout or a forced revocation.
	ErrTokenRevoked = errors.New("token revoked")
)

// Session is the persisted record behind an issued token.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Manager signs, verifies and revokes bearer tokens.
type Manager struct {
	client *redis.Client
	secret []byte
	ttl    time.Duration
}

// NewManager constructs a Manager using the provided signing secret.
func NewManager(client *redis.Client, secret string, ttl time.Duration) *Manager {
	return &Manager{client: client, secret: []byte(secret), ttl: ttl}
}

type payload struct {
	SessionID string `json:"sid"`
	UserID    string `json:"uid"`
	ExpiresAt int64  `json:"exp"`
}

// Issue creates a session record and returns the signed token plus its
// expiry as a unix timestamp.
func (m *Manager) Issue(ctx context.Context, userID string) (string, int64, error) {
	sess := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(m.ttl),
	}
	record, err := json.Marshal(sess)
	if err != nil {
		return "", 0, err
	}
	if err := m.client.Set(ctx, m.redisKey(sess.ID), record, m.ttl).Err(); err != nil {
		return "", 0, err
	}

	body, err := json.Marshal(payload{SessionID: sess.ID, UserID: userID, ExpiresAt: sess.ExpiresAt.Unix()})
	if err != nil {
		return "", 0, err
	}
	encoded := base64.RawURLEncoding.EncodeToString(body)
	return encoded + "." + m.sign(encoded), sess.ExpiresAt.Unix(), nil
}

// Verify checks signature and expiry, then confirms the session record still
// exists. A valid signature with a missing record means revocation.
func (m *Manager) Verify(ctx context.Context, tokenString string) (*Session, error) {
	encoded, signature, ok := strings.Cut(tokenString, ".")
	if !ok || encoded == "" {
		return nil, ErrTokenInvalid
	}
	if !hmac.Equal([]byte(m.sign(encoded)), []byte(signature)) {
		return nil, ErrTokenInvalid
	}

	body, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	var claims payload
	if err := json.Unmarshal(body, &claims); err != nil {
		return nil, ErrTokenInvalid
	}
	if time.Now().Unix() >= claims.ExpiresAt {
		return nil, ErrTokenExpired
	}

	record, err := m.client.Get(ctx, m.redisKey(claims.SessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTokenRevoked
		}
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(record, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Revoke deletes the session behind a token. Unparseable tokens are a no-op;
// there is nothing to revoke.
func (m *Manager) Revoke(ctx context.Context, tokenString string) error {
	encoded, _, ok := strings.Cut(tokenString, ".")
	if !ok {
		return nil
	}
	body, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil
	}
	var claims payload
	if err := json.Unmarshal(body, &claims); err != nil {
		return nil
	}
	return m.client.Del(ctx, m.redisKey(claims.SessionID)).Err()
}

// RevokeSession deletes a session record by ID.
func (m *Manager) RevokeSession(ctx context.Context, sessionID string) error {
	return m.client.Del(ctx, m.redisKey(sessionID)).Err()
}

// CleanupExpired scans session records and deletes any past their expiry.
// Records normally lapse via redis TTL; the sweep catches sessions rewritten
// without one.
func (m *Manager) CleanupExpired(ctx context.Context) (int, error) {
	var removed int
	iter := m.client.Scan(ctx, 0, m.redisKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		record, err := m.client.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return removed, err
		}
		var sess Session
		if err := json.Unmarshal(record, &sess); err == nil && time.Now().Before(sess.ExpiresAt) {
			continue
		}
		if err := m.client.Del(ctx, key).Err(); err != nil {
			return removed, err
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	return removed, nil
}

func (m *Manager) sign(encoded string) string {
	mac := hmac.New(sha256.New, m.secret)
	_, _ = mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (m *Manager) redisKey(sessionID string) string {
	return "console_session:" + sessionID
}
