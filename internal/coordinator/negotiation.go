package coordinator

import (
	"context"

	"go.uber.org/zap"

	"github.com/KeldenPDorji/cyber-chess-arena/internal/obslog"
	"github.com/KeldenPDorji/cyber-chess-arena/internal/session"
	"github.com/KeldenPDorji/cyber-chess-arena/internal/store"
)

// OfferDraw records a pending offer from this seat. Re-offering while our
// own offer is pending is a no-op; offering while the opponent's offer is
// pending completes the draw, since both sides want it.
func (c *Coordinator) OfferDraw(ctx context.Context) (NegotiateOutcome, error) {
	snap, seat := c.view()
	if snap == nil {
		return NegotiateOutcome{}, ErrNoSession
	}
	if seat == "" {
		return NegotiateOutcome{Reason: ReasonNotSeated}, nil
	}
	if !snap.SupportsDrawOffers() {
		return NegotiateOutcome{Reason: ReasonUpgradeRequired}, nil
	}
	if snap.Status != session.StatusActive {
		return NegotiateOutcome{Reason: ReasonNotActive}, nil
	}

	accepted := false
	updated, err := c.st.Update(ctx, snap.ID, c.clientID, func(cur *session.Session) error {
		if !cur.SupportsDrawOffers() {
			return errNoop
		}
		if cur.Status != session.StatusActive {
			return errNotActive
		}
		switch cur.DrawOfferedBy {
		case seat:
			return errNoop
		case seat.Opponent():
			accepted = true
			cur.Status = session.StatusDrawn
			cur.DrawOfferedBy = ""
			cur.Termination = &session.Termination{Reason: session.ReasonDrawAgreed, By: seat}
		default:
			cur.DrawOfferedBy = seat
		}
		return nil
	})
	switch err {
	case nil:
	case errNoop:
		return NegotiateOutcome{Applied: true}, nil
	case errNotActive:
		return NegotiateOutcome{Reason: ReasonNotActive}, nil
	case store.ErrConflict:
		return NegotiateOutcome{Reason: ReasonConflict}, nil
	default:
		return NegotiateOutcome{}, err
	}

	c.adopt(updated)
	c.emitState(updated)
	obslog.L().Info("session_draw_offer",
		zap.String("session_id", updated.ID), zap.String("by", string(seat)), zap.Bool("accepted", accepted))
	if accepted {
		c.emit(Event{Kind: EventFinished, Session: updated.Clone()})
		c.archiveTerminal(ctx, updated)
	}
	return NegotiateOutcome{Applied: true, DrawAccepted: accepted}, nil
}

// AcceptDraw completes a pending offer; either party may accept.
func (c *Coordinator) AcceptDraw(ctx context.Context) (NegotiateOutcome, error) {
	snap, seat := c.view()
	if snap == nil {
		return NegotiateOutcome{}, ErrNoSession
	}
	if seat == "" {
		return NegotiateOutcome{Reason: ReasonNotSeated}, nil
	}
	if snap.DrawOfferedBy == "" {
		return NegotiateOutcome{Reason: ReasonNoOffer}, nil
	}

	updated, err := c.st.Update(ctx, snap.ID, c.clientID, func(cur *session.Session) error {
		if cur.Status != session.StatusActive {
			return errNotActive
		}
		if cur.DrawOfferedBy == "" {
			return errNoop
		}
		cur.Status = session.StatusDrawn
		cur.DrawOfferedBy = ""
		cur.Termination = &session.Termination{Reason: session.ReasonDrawAgreed, By: seat}
		return nil
	})
	switch err {
	case nil:
	case errNoop:
		return NegotiateOutcome{Reason: ReasonNoOffer}, nil
	case errNotActive:
		return NegotiateOutcome{Reason: ReasonNotActive}, nil
	case store.ErrConflict:
		return NegotiateOutcome{Reason: ReasonConflict}, nil
	default:
		return NegotiateOutcome{}, err
	}

	c.adopt(updated)
	c.emitState(updated)
	c.emit(Event{Kind: EventFinished, Session: updated.Clone()})
	obslog.L().Info("session_draw_accept", zap.String("session_id", updated.ID), zap.String("by", string(seat)))
	c.archiveTerminal(ctx, updated)
	return NegotiateOutcome{Applied: true, DrawAccepted: true}, nil
}

// DeclineDraw clears the pending offer; the session stays active. The record
// stores only presence/absence, so the offerer's coordinator surfaces the
// decline by observing the cleared field.
func (c *Coordinator) DeclineDraw(ctx context.Context) (NegotiateOutcome, error) {
	snap, seat := c.view()
	if snap == nil {
		return NegotiateOutcome{}, ErrNoSession
	}
	if seat == "" {
		return NegotiateOutcome{Reason: ReasonNotSeated}, nil
	}
	if snap.DrawOfferedBy == "" {
		return NegotiateOutcome{Reason: ReasonNoOffer}, nil
	}

	updated, err := c.st.Update(ctx, snap.ID, c.clientID, func(cur *session.Session) error {
		if cur.DrawOfferedBy == "" {
			return errNoop
		}
		cur.DrawOfferedBy = ""
		return nil
	})
	switch err {
	case nil:
	case errNoop:
		return NegotiateOutcome{Reason: ReasonNoOffer}, nil
	case store.ErrConflict:
		return NegotiateOutcome{Reason: ReasonConflict}, nil
	default:
		return NegotiateOutcome{}, err
	}

	c.adopt(updated)
	c.emitState(updated)
	obslog.L().Info("session_draw_decline", zap.String("session_id", updated.ID), zap.String("by", string(seat)))
	return NegotiateOutcome{Applied: true}, nil
}

// Resign ends the session immediately; the opposing seat wins.
func (c *Coordinator) Resign(ctx context.Context) (NegotiateOutcome, error) {
	return c.terminate(ctx, session.ReasonResignation, "session_resign")
}

// Leave has the same terminal effect as resigning but is tagged distinctly
// for display.
func (c *Coordinator) Leave(ctx context.Context) (NegotiateOutcome, error) {
	return c.terminate(ctx, session.ReasonAbandonment, "session_leave")
}

func (c *Coordinator) terminate(ctx context.Context, reason session.Reason, logEvent string) (NegotiateOutcome, error) {
	snap, seat := c.view()
	if snap == nil {
		return NegotiateOutcome{}, ErrNoSession
	}
	if seat == "" {
		return NegotiateOutcome{Reason: ReasonNotSeated}, nil
	}
	if snap.Terminal() {
		return NegotiateOutcome{Reason: ReasonGameOver}, nil
	}
	if snap.Status != session.StatusActive {
		return NegotiateOutcome{Reason: ReasonNotActive}, nil
	}

	updated, err := c.st.Update(ctx, snap.ID, c.clientID, func(cur *session.Session) error {
		if cur.Status != session.StatusActive {
			return errNotActive
		}
		cur.Status = session.StatusFinished
		cur.DrawOfferedBy = ""
		cur.Termination = &session.Termination{Reason: reason, By: seat, Winner: seat.Opponent()}
		return nil
	})
	switch err {
	case nil:
	case errNotActive:
		return NegotiateOutcome{Reason: ReasonGameOver}, nil
	case store.ErrConflict:
		return NegotiateOutcome{Reason: ReasonConflict}, nil
	default:
		return NegotiateOutcome{}, err
	}

	c.adopt(updated)
	c.emitState(updated)
	c.emit(Event{Kind: EventFinished, Session: updated.Clone()})
	obslog.L().Info(logEvent,
		zap.String("session_id", updated.ID),
		zap.String("by", string(seat)),
		zap.String("winner", string(seat.Opponent())),
	)
	c.archiveTerminal(ctx, updated)
	return NegotiateOutcome{Applied: true}, nil
}
