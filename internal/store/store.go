// Package store binds the session record to redis: JSON rows keyed by id and
// by join code, conditional updates through WATCH transactions against a
// version counter, and per-row change notifications over pub/sub.
package store

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/KeldenPDorji/cyber-chess-arena/internal/obslog"
	"github.com/KeldenPDorji/cyber-chess-arena/internal/session"
)

const ttlSession = 24 * time.Hour

type staticErr string

func (e staticErr) Error() string { return string(e) }

var (
	// ErrPrecondition is returned by a mutate callback to veto the write
	// without touching the record. Surfaced to callers as data.
	ErrPrecondition = staticErr("precondition failed")
	// ErrConflict reports a concurrent writer won the race; the caller's
	// local view is stale and will be refreshed by the next notification.
	ErrConflict = staticErr("concurrent update")
	// ErrNotFound reports a missing or expired session row.
	ErrNotFound = staticErr("session not found")
)

type Store struct {
	rdb *redis.Client
}

// Open connects using a redis:// URL.
func Open(redisURL string) (*Store, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("redis URL required")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{rdb: rdb}, nil
}

// NewWithClient wraps an existing client. Used by tests and the daemon.
func NewWithClient(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func sessionKey(id string) string { return "arena:session:" + strings.TrimSpace(id) }
func codeKey(code string) string  { return "arena:code:" + strings.ToUpper(strings.TrimSpace(code)) }
func channelKey(id string) string { return "arena:updates:" + strings.TrimSpace(id) }

// Insert writes a fresh session and claims its join code. The code claim is
// a SetNX so two creators can never share a code; collisions retry with a
// new code on the caller side.
func (s *Store) Insert(ctx context.Context, sess *session.Session) error {
	if sess == nil || strings.TrimSpace(sess.ID) == "" {
		return fmt.Errorf("session id required")
	}
	ok, err := s.rdb.SetNX(ctx, codeKey(sess.Code), sess.ID, ttlSession).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, sessionKey(sess.ID), raw, ttlSession).Err()
}

// Get returns the session by id, ErrNotFound when absent.
func (s *Store) Get(ctx context.Context, id string) (*session.Session, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var sess session.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}
	sess.Normalize()
	return &sess, nil
}

// GetByCode resolves a join code to its session.
func (s *Store) GetByCode(ctx context.Context, code string) (*session.Session, error) {
	id, err := s.rdb.Get(ctx, codeKey(code)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Update performs a conditional full-record update: read under WATCH, let
// mutate rewrite the row, bump the version, write in a transaction, then
// notify subscribers. mutate returning an error aborts with no write.
// Status transitions stay monotonic; a terminal row can never be reopened.
func (s *Store) Update(ctx context.Context, id, writerID string, mutate func(*session.Session) error) (*session.Session, error) {
	key := sessionKey(id)
	var updated *session.Session

	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var cur session.Session
		if err := json.Unmarshal(raw, &cur); err != nil {
			return err
		}
		cur.Normalize()
		prevStatus := cur.Status

		if err := mutate(&cur); err != nil {
			return err
		}
		if prevStatus.Terminal() && cur.Status != prevStatus {
			return ErrPrecondition
		}
		cur.Version++
		cur.UpdatedAt = time.Now()

		newRaw, err := json.Marshal(&cur)
		if err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.Set(ctx, key, newRaw, ttlSession)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		updated = &cur
		return nil
	}, key)

	if err == redis.TxFailedErr {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	s.publish(ctx, writerID, updated)
	return updated.Clone(), nil
}

// NewCode allocates an unused join code: six upper alphanumerics, claimed by
// Insert. Only generation lives here so create can retry on collision.
func NewCode() (string, error) {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = letters[int(b[i])%len(letters)]
	}
	return string(b), nil
}

func (s *Store) publish(ctx context.Context, writerID string, sess *session.Session) {
	env := envelope{Writer: writerID, Session: sess}
	raw, err := json.Marshal(&env)
	if err != nil {
		return
	}
	if err := s.rdb.Publish(ctx, channelKey(sess.ID), raw).Err(); err != nil {
		obslog.L().Warn("session_notify_error", zap.String("session_id", sess.ID), zap.Error(err))
	}
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
