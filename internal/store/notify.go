package store

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/KeldenPDorji/cyber-chess-arena/internal/obslog"
	"github.com/KeldenPDorji/cyber-chess-arena/internal/session"
)

// envelope is the wire form of a change notification: the full new row plus
// the writer's id so a client can skip its own writes.
type envelope struct {
	Writer  string           `json:"writer"`
	Session *session.Session `json:"session"`
}

// Subscription delivers full replacement rows for one session. Delivery is
// at-least-once and ordered per row; consumers treat every row as complete
// new state, never a diff.
type Subscription struct {
	ch     chan *session.Session
	pubsub *redis.PubSub
	cancel context.CancelFunc
}

// Events yields new rows. The channel closes when the underlying pub/sub
// connection drops; the owner re-subscribes and accepts that notifications
// missed during the gap are not replayed.
func (s *Subscription) Events() <-chan *session.Session { return s.ch }

func (s *Subscription) Close() {
	s.cancel()
	_ = s.pubsub.Close()
}

// Subscribe starts listening for updates to one session row, excluding rows
// written by writerID.
func (s *Store) Subscribe(ctx context.Context, sessionID, writerID string) *Subscription {
	subCtx, cancel := context.WithCancel(ctx)
	pubsub := s.rdb.Subscribe(subCtx, channelKey(sessionID))
	sub := &Subscription{
		ch:     make(chan *session.Session, 16),
		pubsub: pubsub,
		cancel: cancel,
	}

	// Context cancellation must unblock the forwarding loop below; closing
	// the pubsub is the only way to end its Channel.
	go func() {
		<-subCtx.Done()
		_ = pubsub.Close()
	}()

	go func() {
		defer close(sub.ch)
		for msg := range pubsub.Channel() {
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				obslog.L().Warn("session_notify_decode_error",
					zap.String("session_id", sessionID), zap.Error(err))
				continue
			}
			if env.Session == nil || env.Writer == writerID {
				continue
			}
			env.Session.Normalize()
			select {
			case sub.ch <- env.Session:
			case <-subCtx.Done():
				return
			}
		}
	}()

	return sub
}
