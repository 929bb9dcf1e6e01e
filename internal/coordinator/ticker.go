package coordinator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/KeldenPDorji/cyber-chess-arena/internal/obslog"
	"github.com/KeldenPDorji/cyber-chess-arena/internal/session"
	"github.com/KeldenPDorji/cyber-chess-arena/internal/store"
)

// clockLoop drives the per-seat countdown. Only the client occupying the
// active seat ticks and persists its own remaining time; the opposing client
// never writes that field.
func (c *Coordinator) clockLoop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.tickEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tickOnce(ctx)
		}
	}
}

// tickOnce burns one second off this client's own clock while it is the
// active seat. The clock does not start before the first move, and a failed
// write is not retried: the next tick recomputes from the local
// authoritative value.
func (c *Coordinator) tickOnce(ctx context.Context) {
	snap, seat := c.view()
	if snap == nil || seat == "" {
		return
	}
	if snap.Status != session.StatusActive || snap.MoveCount() == 0 || snap.Turn != seat {
		return
	}

	rem, timedOut, ticked := c.countdown.Tick(seat)
	if !ticked {
		return
	}

	updated, err := c.st.Update(ctx, snap.ID, c.clientID, func(cur *session.Session) error {
		if cur.Status != session.StatusActive || cur.Turn != seat {
			return store.ErrPrecondition
		}
		cur.SetRemainingTime(seat, rem)
		if rem == 0 {
			cur.Status = session.StatusFinished
			cur.Termination = &session.Termination{
				Reason: session.ReasonTimeout,
				By:     seat,
				Winner: seat.Opponent(),
			}
		}
		return nil
	})
	if err != nil {
		obslog.L().Debug("clock_tick_skipped",
			zap.String("session_id", snap.ID), zap.String("seat", string(seat)), zap.Error(err))
		// Resync the mirror; the record stays authoritative.
		running := snap.Status == session.StatusActive && snap.MoveCount() > 0
		c.countdown.Sync(snap.WhiteTime, snap.BlackTime, snap.Turn, running)
		return
	}

	c.adopt(updated)
	c.emitState(updated)
	if timedOut {
		obslog.L().Info("session_timeout",
			zap.String("session_id", updated.ID),
			zap.String("flagged", string(seat)),
			zap.String("winner", string(seat.Opponent())),
		)
		c.emit(Event{Kind: EventFinished, Session: updated.Clone()})
		c.archiveTerminal(ctx, updated)
	}
}
