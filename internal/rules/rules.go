// Package rules wraps the chess library behind the small oracle surface the
// coordinator needs: apply a candidate move, replay a move log, enumerate
// legal destinations, and report terminal flags.
package rules

import (
	"errors"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/KeldenPDorji/cyber-chess-arena/internal/session"
)

var (
	ErrIllegalMove    = errors.New("illegal move")
	ErrNeedsPromotion = errors.New("promotion selection required")
	ErrBadLog         = errors.New("move log does not replay")
	ErrBadPosition    = errors.New("position snapshot does not load")
)

// MoveResult is the validator output for an accepted move.
type MoveResult struct {
	UCI string
	SAN string
	FEN string

	Mover    session.Color
	Captured bool

	InCheck    bool
	Checkmate  bool
	Stalemate  bool
	DrawByRule bool
}

// Terminal reports whether the move ended the game.
func (r *MoveResult) Terminal() bool { return r.Checkmate || r.Stalemate || r.DrawByRule }

// Replay rebuilds a game by applying the stored UCI moves from the initial
// position. The log is the source of truth; snapshots are never patched.
func Replay(moves []string) (*nchess.Game, error) {
	game := nchess.NewGame()
	for _, mv := range moves {
		if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return nil, ErrBadLog
		}
	}
	return game, nil
}

// FromFEN loads a bare position with no history. Fallback path for records
// whose log is corrupt or partial.
func FromFEN(fen string) (*nchess.Game, error) {
	opt, err := nchess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return nil, ErrBadPosition
	}
	return nchess.NewGame(opt), nil
}

// Rebuild produces the working position for a session record: replay first,
// snapshot fallback. The bool reports whether the replay succeeded.
func Rebuild(s *session.Session) (*nchess.Game, bool) {
	if len(s.MovesUCI) > 0 {
		if game, err := Replay(s.MovesUCI); err == nil {
			return game, true
		}
	} else if strings.TrimSpace(s.FEN) == "" || s.FEN == "startpos" {
		return nchess.NewGame(), true
	}
	if game, err := FromFEN(s.FEN); err == nil {
		return game, false
	}
	return nchess.NewGame(), false
}

// Apply validates from/to (+optional promotion letter) against the game's
// current position and plays it. The game is only mutated on success.
func Apply(game *nchess.Game, from, to, promotion string) (*MoveResult, error) {
	pos := game.Position()
	uci := strings.ToLower(strings.TrimSpace(from) + strings.TrimSpace(to) + strings.TrimSpace(promotion))
	if len(uci) < 4 {
		return nil, ErrIllegalMove
	}

	notationUCI := nchess.UCINotation{}
	mv, err := notationUCI.Decode(pos, uci)
	if err != nil {
		if promotion == "" && needsPromotion(pos, uci) {
			return nil, ErrNeedsPromotion
		}
		return nil, ErrIllegalMove
	}

	san := nchess.AlgebraicNotation{}.Encode(pos, mv)
	captured := mv.HasTag(nchess.Capture) || mv.HasTag(nchess.EnPassant)
	if err := game.Move(mv, nil); err != nil {
		return nil, ErrIllegalMove
	}

	res := &MoveResult{
		UCI:      uci,
		SAN:      san,
		FEN:      game.FEN(),
		Mover:    ColorFrom(pos.Turn()),
		Captured: captured,
		InCheck:  strings.ContainsAny(san, "+#"),
	}
	switch game.Outcome() {
	case nchess.WhiteWon, nchess.BlackWon:
		res.Checkmate = true
	case nchess.Draw:
		if game.Method() == nchess.Stalemate {
			res.Stalemate = true
		} else {
			res.DrawByRule = true
		}
	}
	return res, nil
}

// NeedsPromotion reports whether from→to is a legal move that only lacks a
// promotion selector.
func NeedsPromotion(game *nchess.Game, from, to string) bool {
	uci := strings.ToLower(strings.TrimSpace(from) + strings.TrimSpace(to))
	if len(uci) != 4 {
		return false
	}
	pos := game.Position()
	if _, err := (nchess.UCINotation{}).Decode(pos, uci); err == nil {
		return false
	}
	return needsPromotion(pos, uci)
}

func needsPromotion(pos *nchess.Position, uci string) bool {
	_, err := (nchess.UCINotation{}).Decode(pos, uci[:4]+"q")
	return err == nil
}

// LegalTargets enumerates destination squares reachable from a cell. Probes
// every square through the UCI decoder so the answer always agrees with the
// validator itself.
func LegalTargets(game *nchess.Game, from string) []string {
	from = strings.ToLower(strings.TrimSpace(from))
	if len(from) != 2 {
		return nil
	}
	pos := game.Position()
	notation := nchess.UCINotation{}
	var out []string
	for file := byte('a'); file <= 'h'; file++ {
		for rank := byte('1'); rank <= '8'; rank++ {
			to := string([]byte{file, rank})
			if to == from {
				continue
			}
			if _, err := notation.Decode(pos, from+to); err == nil {
				out = append(out, to)
				continue
			}
			if _, err := notation.Decode(pos, from+to+"q"); err == nil {
				out = append(out, to)
			}
		}
	}
	return out
}

// ColorFrom converts the library color to the session seat color.
func ColorFrom(c nchess.Color) session.Color {
	if c == nchess.White {
		return session.White
	}
	return session.Black
}
