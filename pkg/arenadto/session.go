// Package arenadto holds the wire types of the arena HTTP façade. It stays
// free of internal imports so remote callers can depend on it directly.
package arenadto

import "time"

// GameState is the full public view of one session. Every response carries a
// complete replacement state, never a delta.
type GameState struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	WhiteName string `json:"white_name,omitempty"`
	BlackName string `json:"black_name,omitempty"`

	FEN      string   `json:"fen"`
	MovesUCI []string `json:"moves_uci,omitempty"`
	MovesSAN []string `json:"moves_san,omitempty"`

	Status string `json:"status"`
	Turn   string `json:"turn"`

	WhiteTime        int `json:"white_time"`
	BlackTime        int `json:"black_time"`
	BaseMinutes      int `json:"base_minutes,omitempty"`
	IncrementSeconds int `json:"increment_seconds,omitempty"`

	// Pieces taken so far, in capture order: CapturesByWhite holds the
	// black pieces white has taken, and vice versa.
	CapturesByWhite []string `json:"captures_by_white,omitempty"`
	CapturesByBlack []string `json:"captures_by_black,omitempty"`

	DrawOfferedBy string       `json:"draw_offered_by,omitempty"`
	Termination   *Termination `json:"termination,omitempty"`

	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Termination mirrors the record's terminal marker.
type Termination struct {
	Reason string `json:"reason"`
	By     string `json:"by,omitempty"`
	Winner string `json:"winner,omitempty"`
}

type CreateGameResponse struct {
	Code  string     `json:"code"`
	State *GameState `json:"state"`
}

type StateResponse struct {
	State   *GameState `json:"state"`
	Message string     `json:"message,omitempty"`
}

type JoinResponse struct {
	Seat        string     `json:"seat,omitempty"`
	Spectator   bool       `json:"spectator,omitempty"`
	Reconnected bool       `json:"reconnected,omitempty"`
	State       *GameState `json:"state"`
}

// ActionResponse reports a move or negotiation operation. Applied false with
// a non-empty Reason is the normal rejection path.
type ActionResponse struct {
	Applied        bool       `json:"applied"`
	Reason         string     `json:"reason,omitempty"`
	Message        string     `json:"message,omitempty"`
	NeedsPromotion bool       `json:"needs_promotion,omitempty"`
	SAN            string     `json:"san,omitempty"`
	Captured       bool       `json:"captured,omitempty"`
	DrawAccepted   bool       `json:"draw_accepted,omitempty"`
	State          *GameState `json:"state"`
}

// GameEvent is one SSE payload on the events stream.
type GameEvent struct {
	Kind    string     `json:"kind"`
	Message string     `json:"message,omitempty"`
	From    string     `json:"from,omitempty"`
	To      string     `json:"to,omitempty"`
	State   *GameState `json:"state"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
