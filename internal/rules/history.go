package rules

import (
	nchess "github.com/corentings/chess/v2"

	"github.com/KeldenPDorji/cyber-chess-arena/internal/session"
)

var pieceGlyphs = map[nchess.PieceType]map[session.Color]string{
	nchess.Queen:  {session.White: "♕", session.Black: "♛"},
	nchess.Rook:   {session.White: "♖", session.Black: "♜"},
	nchess.Bishop: {session.White: "♗", session.Black: "♝"},
	nchess.Knight: {session.White: "♘", session.Black: "♞"},
	nchess.Pawn:   {session.White: "♙", session.Black: "♟"},
}

// Captures lists pieces taken so far, in capture order. ByWhite holds the
// black pieces white has taken, and vice versa.
type Captures struct {
	ByWhite []string
	ByBlack []string
}

// CaptureTally walks the replayed history and collects captured pieces.
func CaptureTally(game *nchess.Game) Captures {
	var tally Captures
	moves := game.Moves()
	positions := game.Positions()
	for i, mv := range moves {
		if i >= len(positions) {
			break
		}
		if !mv.HasTag(nchess.Capture) && !mv.HasTag(nchess.EnPassant) {
			continue
		}
		pos := positions[i]
		sq := mv.S2()
		if mv.HasTag(nchess.EnPassant) {
			if pos.Turn() == nchess.White {
				sq = nchess.NewSquare(sq.File(), sq.Rank()-1)
			} else {
				sq = nchess.NewSquare(sq.File(), sq.Rank()+1)
			}
		}
		piece := pos.Board().Piece(sq)
		if piece == nchess.NoPiece || piece.Type() == nchess.King {
			continue
		}
		glyph := pieceGlyphs[piece.Type()][ColorFrom(piece.Color())]
		if glyph == "" {
			continue
		}
		if pos.Turn() == nchess.White {
			tally.ByWhite = append(tally.ByWhite, glyph)
		} else {
			tally.ByBlack = append(tally.ByBlack, glyph)
		}
	}
	return tally
}

// LastMoveSquares extracts the from/to cells of the final log entry, for
// board highlighting.
func LastMoveSquares(movesUCI []string) (from, to string, ok bool) {
	if len(movesUCI) == 0 {
		return "", "", false
	}
	last := movesUCI[len(movesUCI)-1]
	if len(last) < 4 {
		return "", "", false
	}
	return last[:2], last[2:4], true
}
