package coordinator

import "github.com/KeldenPDorji/cyber-chess-arena/internal/session"

// EventKind classifies derived state changes surfaced to the embedding UI.
type EventKind string

const (
	// EventStateChanged fires on every adopted update, local or remote.
	EventStateChanged EventKind = "state_changed"
	// EventDrawOffered fires when the opponent's offer appears.
	EventDrawOffered EventKind = "draw_offered"
	// EventDrawDeclined fires for the offerer when the pending offer
	// disappears without a move or a terminal transition. The record only
	// stores presence/absence, so the decline is inferred by comparison.
	EventDrawDeclined EventKind = "draw_declined"
	// EventFinished fires once on the transition into finished/drawn.
	EventFinished EventKind = "finished"
)

// Event carries a full session snapshot; consumers treat it as replacement
// state, not a delta.
type Event struct {
	Kind    EventKind
	Session *session.Session

	// Last move squares for highlighting, when a log entry exists.
	From string
	To   string
}

// RejectReason explains a declined operation. These are data, not faults:
// illegal and off-turn submissions are expected and frequent.
type RejectReason string

const (
	ReasonNone            RejectReason = ""
	ReasonNotSeated       RejectReason = "not_seated"
	ReasonNotActive       RejectReason = "not_active"
	ReasonNotYourTurn     RejectReason = "not_your_turn"
	ReasonIllegalMove     RejectReason = "illegal_move"
	ReasonGameOver        RejectReason = "game_over"
	ReasonConflict        RejectReason = "conflict"
	ReasonNoOffer         RejectReason = "no_offer"
	ReasonNotFound        RejectReason = "not_found"
	ReasonUpgradeRequired RejectReason = "upgrade_required"
)

// MoveOutcome reports a move submission. Applied false with a reason is the
// normal rejection path; NeedsPromotion asks the caller to complete the move
// with a promotion selector.
type MoveOutcome struct {
	Applied        bool
	Reason         RejectReason
	NeedsPromotion bool
	SAN            string
	Captured       bool
	Termination    *session.Termination
}

// JoinOutcome reports seat resolution for a join code.
type JoinOutcome struct {
	Ok          bool
	Seat        session.Color
	Spectator   bool
	Reconnected bool
	Reason      RejectReason
}

// NegotiateOutcome reports a draw/resign/leave operation. DrawAccepted marks
// an offer that completed into a drawn session, including the mutual-offer
// case where both sides offered.
type NegotiateOutcome struct {
	Applied      bool
	Reason       RejectReason
	DrawAccepted bool
}
