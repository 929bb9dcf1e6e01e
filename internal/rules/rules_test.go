package rules

import (
	"strings"
	"testing"

	"github.com/KeldenPDorji/cyber-chess-arena/internal/session"
)

func TestApplyOpeningMove(t *testing.T) {
	game, err := Replay(nil)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	res, err := Apply(game, "e2", "e4", "")
	if err != nil {
		t.Fatalf("Apply e2e4: %v", err)
	}
	if res.UCI != "e2e4" || res.SAN != "e4" {
		t.Fatalf("unexpected notation: uci=%q san=%q", res.UCI, res.SAN)
	}
	if res.Mover != session.White {
		t.Fatalf("mover = %q, want white", res.Mover)
	}
	if res.Captured || res.Terminal() {
		t.Fatalf("quiet opening move flagged: captured=%v terminal=%v", res.Captured, res.Terminal())
	}
	if !strings.Contains(res.FEN, " b ") {
		t.Fatalf("FEN should show black to move: %q", res.FEN)
	}
}

func TestApplyRejectsIllegalMove(t *testing.T) {
	game, _ := Replay(nil)
	if _, err := Apply(game, "e2", "e5", ""); err != ErrIllegalMove {
		t.Fatalf("err = %v, want ErrIllegalMove", err)
	}
	// Off-turn piece: black pawn while white to move.
	if _, err := Apply(game, "e7", "e5", ""); err != ErrIllegalMove {
		t.Fatalf("err = %v, want ErrIllegalMove", err)
	}
	// Rejection must not mutate the position.
	if res, err := Apply(game, "e2", "e4", ""); err != nil || res.SAN != "e4" {
		t.Fatalf("position mutated by rejected move: %v", err)
	}
}

func TestApplyPromotionPrompt(t *testing.T) {
	game, err := FromFEN("8/P7/8/8/8/8/8/K6k w - - 0 1")
	if err != nil {
		t.Fatalf("FromFEN: %v", err)
	}
	if _, err := Apply(game, "a7", "a8", ""); err != ErrNeedsPromotion {
		t.Fatalf("err = %v, want ErrNeedsPromotion", err)
	}
	if !NeedsPromotion(game, "a7", "a8") {
		t.Fatalf("NeedsPromotion should report the pending selection")
	}
	res, err := Apply(game, "a7", "a8", "q")
	if err != nil {
		t.Fatalf("Apply a7a8q: %v", err)
	}
	if !strings.HasPrefix(res.SAN, "a8=Q") {
		t.Fatalf("san = %q, want a8=Q promotion", res.SAN)
	}
}

func TestApplyDetectsCheckmate(t *testing.T) {
	game, err := Replay([]string{"f2f3", "e7e5", "g2g4"})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	res, err := Apply(game, "d8", "h4", "")
	if err != nil {
		t.Fatalf("Apply d8h4: %v", err)
	}
	if !res.Checkmate || !res.InCheck {
		t.Fatalf("fool's mate not detected: %+v", res)
	}
	if res.Mover != session.Black {
		t.Fatalf("mover = %q, want black", res.Mover)
	}
}

func TestReplayRejectsBadLog(t *testing.T) {
	if _, err := Replay([]string{"e2e4", "e2e4"}); err != ErrBadLog {
		t.Fatalf("err = %v, want ErrBadLog", err)
	}
}

func TestRebuildPrefersLogOverSnapshot(t *testing.T) {
	s := &session.Session{
		MovesUCI: []string{"e2e4", "e7e5"},
		// Deliberately stale snapshot; the log wins.
		FEN: "8/P7/8/8/8/8/8/K6k w - - 0 1",
	}
	game, replayed := Rebuild(s)
	if !replayed {
		t.Fatalf("expected replay to succeed")
	}
	if got := len(game.Moves()); got != 2 {
		t.Fatalf("replayed %d moves, want 2", got)
	}
}

func TestRebuildFallsBackToSnapshot(t *testing.T) {
	s := &session.Session{
		MovesUCI: []string{"zzzz"},
		FEN:      "8/P7/8/8/8/8/8/K6k w - - 0 1",
	}
	game, replayed := Rebuild(s)
	if replayed {
		t.Fatalf("corrupt log must not count as replayed")
	}
	if _, err := Apply(game, "a7", "a8", "q"); err != nil {
		t.Fatalf("fallback position unusable: %v", err)
	}
}

func TestRebuildEmptyRecordIsStartingPosition(t *testing.T) {
	for _, fen := range []string{"", "startpos"} {
		game, replayed := Rebuild(&session.Session{FEN: fen})
		if !replayed {
			t.Fatalf("fresh record (%q) should rebuild cleanly", fen)
		}
		if _, err := Apply(game, "e2", "e4", ""); err != nil {
			t.Fatalf("starting position unusable: %v", err)
		}
	}
}

func TestLegalTargets(t *testing.T) {
	game, _ := Replay(nil)
	got := LegalTargets(game, "e2")
	want := []string{"e3", "e4"}
	if len(got) != len(want) {
		t.Fatalf("targets = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("targets = %v, want %v", got, want)
		}
	}
	if LegalTargets(game, "e5") != nil {
		t.Fatalf("empty square must have no targets")
	}
	if LegalTargets(game, "bogus") != nil {
		t.Fatalf("malformed square must have no targets")
	}
}

func TestCaptureTally(t *testing.T) {
	game, err := Replay([]string{"e2e4", "d7d5", "e4d5", "d8d5"})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	tally := CaptureTally(game)
	if len(tally.ByWhite) != 1 || tally.ByWhite[0] != "♟" {
		t.Fatalf("white captures = %v, want black pawn", tally.ByWhite)
	}
	if len(tally.ByBlack) != 1 || tally.ByBlack[0] != "♙" {
		t.Fatalf("black captures = %v, want white pawn", tally.ByBlack)
	}
}

func TestLastMoveSquares(t *testing.T) {
	if _, _, ok := LastMoveSquares(nil); ok {
		t.Fatalf("empty log has no last move")
	}
	from, to, ok := LastMoveSquares([]string{"e2e4", "g8f6"})
	if !ok || from != "g8" || to != "f6" {
		t.Fatalf("last move = %q→%q (%v)", from, to, ok)
	}
	if _, _, ok := LastMoveSquares([]string{"xx"}); ok {
		t.Fatalf("malformed entry must not highlight")
	}
}
