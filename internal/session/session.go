package session

import (
	"strings"
	"time"
)

// Color identifies a seat.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Opponent returns the other seat.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) Valid() bool { return c == White || c == Black }

// Status represents the session lifecycle state. Transitions are monotonic:
// waiting → active → finished|drawn.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
	StatusDrawn    Status = "drawn"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool { return s == StatusFinished || s == StatusDrawn }

// Reason discriminates how a session ended.
type Reason string

const (
	ReasonCheckmate   Reason = "checkmate"
	ReasonStalemate   Reason = "stalemate"
	ReasonDrawRule    Reason = "draw_rule"
	ReasonDrawAgreed  Reason = "draw_agreed"
	ReasonResignation Reason = "resignation"
	ReasonAbandonment Reason = "abandonment"
	ReasonTimeout     Reason = "timeout"
)

// Termination is written atomically with the finished/drawn transition.
// Winner is empty for drawn sessions.
type Termination struct {
	Reason Reason `json:"reason"`
	By     Color  `json:"by,omitempty"`
	Winner Color  `json:"winner,omitempty"`
}

// Schema versions. Records below SchemaDrawOffers predate the draw-offer
// field and cannot negotiate draws until rewritten by a newer writer.
const (
	SchemaDrawOffers     = 2
	CurrentSchemaVersion = 2
)

// Defaults applied to legacy records that lack optional fields.
const (
	DefaultBaseMinutes      = 10
	DefaultIncrementSeconds = 0
)

// Session is the shared persisted record of one game. It is the sole shared
// mutable resource; every mutation is a conditional full-record update
// guarded by Version.
type Session struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	WhiteName string `json:"white_name,omitempty"`
	BlackName string `json:"black_name,omitempty"`

	FEN      string   `json:"fen"`
	MovesUCI []string `json:"moves_uci,omitempty"`
	MovesSAN []string `json:"moves_san,omitempty"`

	Status Status `json:"status"`
	Turn   Color  `json:"turn"`

	WhiteTime        int `json:"white_time"`
	BlackTime        int `json:"black_time"`
	BaseMinutes      int `json:"base_minutes,omitempty"`
	IncrementSeconds int `json:"increment_seconds,omitempty"`

	DrawOfferedBy Color        `json:"draw_offered_by,omitempty"`
	Termination   *Termination `json:"termination,omitempty"`

	SchemaVersion int   `json:"schema_version"`
	Version       int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Normalize fills defaults for fields an older writer may not have set.
func (s *Session) Normalize() {
	if s.Status == "" {
		s.Status = StatusWaiting
	}
	if s.Turn == "" {
		s.Turn = White
	}
	if s.BaseMinutes <= 0 {
		s.BaseMinutes = DefaultBaseMinutes
	}
	if s.IncrementSeconds < 0 {
		s.IncrementSeconds = DefaultIncrementSeconds
	}
	if s.WhiteTime < 0 {
		s.WhiteTime = 0
	}
	if s.BlackTime < 0 {
		s.BlackTime = 0
	}
}

// SupportsDrawOffers reports whether the record schema carries the
// draw-offer field. Older rows need a rewrite by a current writer first.
func (s *Session) SupportsDrawOffers() bool { return s.SchemaVersion >= SchemaDrawOffers }

// SeatOf resolves a display name to a seat.
func (s *Session) SeatOf(name string) (Color, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	switch name {
	case s.WhiteName:
		return White, true
	case s.BlackName:
		return Black, true
	}
	return "", false
}

// NameOf returns the display name occupying a seat, empty if unclaimed.
func (s *Session) NameOf(c Color) string {
	if c == White {
		return s.WhiteName
	}
	return s.BlackName
}

func (s *Session) SeatEmpty(c Color) bool { return s.NameOf(c) == "" }

// RemainingTime returns a seat's clock in seconds.
func (s *Session) RemainingTime(c Color) int {
	if c == White {
		return s.WhiteTime
	}
	return s.BlackTime
}

// SetRemainingTime clamps at zero; time never goes negative.
func (s *Session) SetRemainingTime(c Color, secs int) {
	if secs < 0 {
		secs = 0
	}
	if c == White {
		s.WhiteTime = secs
	} else {
		s.BlackTime = secs
	}
}

func (s *Session) MoveCount() int { return len(s.MovesUCI) }

func (s *Session) Terminal() bool { return s.Status.Terminal() }

// Clone returns a deep copy safe to mutate independently.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.MovesUCI = append([]string(nil), s.MovesUCI...)
	cp.MovesSAN = append([]string(nil), s.MovesSAN...)
	if s.Termination != nil {
		t := *s.Termination
		cp.Termination = &t
	}
	return &cp
}
