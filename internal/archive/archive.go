// Package archive persists terminal sessions to Postgres for later review.
// Best-effort: play never depends on it.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/KeldenPDorji/cyber-chess-arena/internal/session"
)

type Archive struct {
	db *sql.DB
}

func Open(databaseURL string) (*Archive, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// SaveResult upserts one terminal session keyed by session id.
func (a *Archive) SaveResult(ctx context.Context, s *session.Session) error {
	if a == nil || a.db == nil || s == nil {
		return nil
	}
	if !s.Terminal() {
		return nil
	}

	pgnResult := resultToken(s)
	pgn := buildPGN(s, pgnResult)
	movesRaw, _ := json.Marshal(s.MovesUCI)

	reason, winner := "", ""
	if s.Termination != nil {
		reason = string(s.Termination.Reason)
		winner = string(s.Termination.Winner)
	}

	q := `INSERT INTO arena_games (
	    session_id, code, white_name, black_name,
	    time_control, result, result_reason, winner,
	    moves_uci, pgn, started_at, ended_at
	  ) VALUES (
	    $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
	  ) ON CONFLICT (session_id) DO UPDATE SET
	    white_name=EXCLUDED.white_name,
	    black_name=EXCLUDED.black_name,
	    time_control=EXCLUDED.time_control,
	    result=EXCLUDED.result,
	    result_reason=EXCLUDED.result_reason,
	    winner=EXCLUDED.winner,
	    moves_uci=EXCLUDED.moves_uci,
	    pgn=EXCLUDED.pgn,
	    ended_at=EXCLUDED.ended_at`

	_, err := a.db.ExecContext(ctx, q,
		s.ID, s.Code, s.WhiteName, s.BlackName,
		fmt.Sprintf("%d+%d", s.BaseMinutes, s.IncrementSeconds),
		pgnResult, reason, winner,
		string(movesRaw), pgn, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

func resultToken(s *session.Session) string {
	if s.Status == session.StatusDrawn {
		return "1/2-1/2"
	}
	if s.Termination == nil {
		return "*"
	}
	switch s.Termination.Winner {
	case session.White:
		return "1-0"
	case session.Black:
		return "0-1"
	}
	return "*"
}

func buildPGN(s *session.Session, pgnResult string) string {
	var b strings.Builder
	date := s.UpdatedAt
	if date.IsZero() {
		date = time.Now()
	}
	b.WriteString("[Event \"Cyber Chess Arena\"]\n")
	b.WriteString(fmt.Sprintf("[Site \"%s\"]\n", sanitizePGN(s.Code)))
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(s.WhiteName)))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(s.BlackName)))
	b.WriteString(fmt.Sprintf("[TimeControl \"%d+%d\"]\n", s.BaseMinutes, s.IncrementSeconds))
	if s.Termination != nil {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(string(s.Termination.Reason))))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", pgnResult))

	for i := 0; i < len(s.MovesSAN); i += 2 {
		b.WriteString(fmt.Sprintf("%d. %s", (i/2)+1, strings.TrimSpace(s.MovesSAN[i])))
		if i+1 < len(s.MovesSAN) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(s.MovesSAN[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(pgnResult)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
