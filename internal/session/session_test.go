package session

import (
	"testing"
	"time"
)

func TestNormalizeFillsLegacyDefaults(t *testing.T) {
	s := &Session{ID: "x", SchemaVersion: 1}
	s.Normalize()
	if s.Status != StatusWaiting {
		t.Fatalf("status = %q, want waiting", s.Status)
	}
	if s.Turn != White {
		t.Fatalf("turn = %q, want white", s.Turn)
	}
	if s.BaseMinutes != DefaultBaseMinutes {
		t.Fatalf("base minutes = %d, want %d", s.BaseMinutes, DefaultBaseMinutes)
	}
	if s.SupportsDrawOffers() {
		t.Fatalf("schema 1 record must not support draw offers")
	}
}

func TestSeatResolution(t *testing.T) {
	s := &Session{WhiteName: "alice", BlackName: "bob"}
	if seat, ok := s.SeatOf("alice"); !ok || seat != White {
		t.Fatalf("SeatOf(alice) = %q, %v", seat, ok)
	}
	if seat, ok := s.SeatOf("bob"); !ok || seat != Black {
		t.Fatalf("SeatOf(bob) = %q, %v", seat, ok)
	}
	if _, ok := s.SeatOf("carol"); ok {
		t.Fatalf("unknown name must not resolve to a seat")
	}
	if _, ok := s.SeatOf(""); ok {
		t.Fatalf("empty name must not resolve to a seat")
	}
	if !s.SeatEmpty(White) {
		s.WhiteName = ""
		if !s.SeatEmpty(White) {
			t.Fatalf("cleared seat should be empty")
		}
	}
}

func TestSetRemainingTimeClampsAtZero(t *testing.T) {
	s := &Session{WhiteTime: 30, BlackTime: 30}
	s.SetRemainingTime(White, -5)
	if s.WhiteTime != 0 {
		t.Fatalf("white time = %d, want 0", s.WhiteTime)
	}
	s.SetRemainingTime(Black, 12)
	if s.RemainingTime(Black) != 12 {
		t.Fatalf("black time = %d, want 12", s.BlackTime)
	}
}

func TestStatusTerminality(t *testing.T) {
	for _, st := range []Status{StatusWaiting, StatusActive} {
		if st.Terminal() {
			t.Fatalf("%q must not be terminal", st)
		}
	}
	for _, st := range []Status{StatusFinished, StatusDrawn} {
		if !st.Terminal() {
			t.Fatalf("%q must be terminal", st)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := &Session{
		ID:          "g1",
		MovesUCI:    []string{"e2e4"},
		MovesSAN:    []string{"e4"},
		Termination: &Termination{Reason: ReasonCheckmate, By: White, Winner: White},
		CreatedAt:   time.Now(),
	}
	cp := s.Clone()
	cp.MovesUCI[0] = "d2d4"
	cp.Termination.Winner = Black
	if s.MovesUCI[0] != "e2e4" {
		t.Fatalf("clone shares the move log")
	}
	if s.Termination.Winner != White {
		t.Fatalf("clone shares the termination")
	}
	var nilSess *Session
	if nilSess.Clone() != nil {
		t.Fatalf("nil clone must stay nil")
	}
}

func TestOpponent(t *testing.T) {
	if White.Opponent() != Black || Black.Opponent() != White {
		t.Fatalf("opponent mapping broken")
	}
}
