package archive

import (
	"strings"
	"testing"
	"time"

	"github.com/KeldenPDorji/cyber-chess-arena/internal/session"
)

func finishedSession() *session.Session {
	return &session.Session{
		ID:          "g1",
		Code:        "AB12CD",
		WhiteName:   "alice",
		BlackName:   "bob",
		MovesUCI:    []string{"f2f3", "e7e5", "g2g4", "d8h4"},
		MovesSAN:    []string{"f3", "e5", "g4", "Qh4#"},
		Status:      session.StatusFinished,
		BaseMinutes: 5,
		Termination: &session.Termination{
			Reason: session.ReasonCheckmate,
			By:     session.Black,
			Winner: session.Black,
		},
		UpdatedAt: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
}

func TestResultToken(t *testing.T) {
	s := finishedSession()
	if got := resultToken(s); got != "0-1" {
		t.Fatalf("token = %q, want 0-1", got)
	}
	s.Termination.Winner = session.White
	if got := resultToken(s); got != "1-0" {
		t.Fatalf("token = %q, want 1-0", got)
	}
	s.Status = session.StatusDrawn
	if got := resultToken(s); got != "1/2-1/2" {
		t.Fatalf("token = %q, want 1/2-1/2", got)
	}
	if got := resultToken(&session.Session{Status: session.StatusFinished}); got != "*" {
		t.Fatalf("token = %q, want *", got)
	}
}

func TestBuildPGN(t *testing.T) {
	s := finishedSession()
	pgn := buildPGN(s, resultToken(s))

	for _, want := range []string{
		`[White "alice"]`,
		`[Black "bob"]`,
		`[Site "AB12CD"]`,
		`[Date "2026.03.14"]`,
		`[TimeControl "5+0"]`,
		`[Termination "checkmate"]`,
		`[Result "0-1"]`,
		"1. f3 e5 2. g4 Qh4# 0-1",
	} {
		if !strings.Contains(pgn, want) {
			t.Fatalf("pgn missing %q:\n%s", want, pgn)
		}
	}
}

func TestSanitizePGNStripsQuoting(t *testing.T) {
	if got := sanitizePGN(`a"b\c `); got != "a'b c" {
		t.Fatalf("sanitized = %q", got)
	}
}
