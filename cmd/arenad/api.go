package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/KeldenPDorji/cyber-chess-arena/internal/archive"
	"github.com/KeldenPDorji/cyber-chess-arena/internal/clock"
	"github.com/KeldenPDorji/cyber-chess-arena/internal/config"
	"github.com/KeldenPDorji/cyber-chess-arena/internal/coordinator"
	"github.com/KeldenPDorji/cyber-chess-arena/internal/msgcat"
	"github.com/KeldenPDorji/cyber-chess-arena/internal/obslog"
	"github.com/KeldenPDorji/cyber-chess-arena/internal/rules"
	"github.com/KeldenPDorji/cyber-chess-arena/internal/session"
	"github.com/KeldenPDorji/cyber-chess-arena/internal/store"
	"github.com/KeldenPDorji/cyber-chess-arena/pkg/arenadto"
)

// server is a thin remote-caller façade over per-player coordinators. One
// coordinator is kept per (code, player) pair so each caller gets its own
// seat binding, clock writer, and event stream.
type server struct {
	cfg  *config.AppConfig
	st   *store.Store
	arch *archive.Archive
	cat  *msgcat.Catalog

	mu     sync.Mutex
	coords map[string]*coordinator.Coordinator
}

func newServer(cfg *config.AppConfig, st *store.Store, arch *archive.Archive, cat *msgcat.Catalog) *server {
	return &server{cfg: cfg, st: st, arch: arch, cat: cat, coords: make(map[string]*coordinator.Coordinator)}
}

func (s *server) handle(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	method := string(ctx.Method())

	switch {
	case path == "/healthz" && method == fasthttp.MethodGet:
		writeJSON(ctx, fasthttp.StatusOK, map[string]string{"status": "ok"})
		return
	case path == "/v1/games" && method == fasthttp.MethodPost:
		s.handleCreate(ctx)
		return
	}

	rest, ok := strings.CutPrefix(path, "/v1/games/")
	if !ok {
		writeError(ctx, fasthttp.StatusNotFound, "not found")
		return
	}
	code, action, _ := strings.Cut(rest, "/")
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		writeError(ctx, fasthttp.StatusNotFound, "not found")
		return
	}

	switch {
	case action == "" && method == fasthttp.MethodGet:
		s.handleGet(ctx, code)
	case action == "events" && method == fasthttp.MethodGet:
		s.handleEvents(ctx, code)
	case method == fasthttp.MethodPost:
		s.handleAction(ctx, code, action)
	default:
		writeError(ctx, fasthttp.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *server) handleCreate(ctx *fasthttp.RequestCtx) {
	var req arenadto.CreateGameRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "invalid body")
		return
	}
	tc, err := clock.Parse(orDefault(req.TimeControl, s.cfg.TimeControl))
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, err.Error())
		return
	}

	coord := s.newCoordinator(req.Name)
	code, err := coord.Create(context.Background(), coordinator.SeatPreference(orDefault(req.Color, "random")), tc)
	if err != nil {
		coord.Close()
		writeError(ctx, fasthttp.StatusBadRequest, err.Error())
		return
	}
	s.register(code, req.Name, coord)
	writeJSON(ctx, fasthttp.StatusCreated, arenadto.CreateGameResponse{
		Code:  code,
		State: toState(coord.Session()),
	})
}

func (s *server) handleGet(ctx *fasthttp.RequestCtx, code string) {
	sess, err := s.st.GetByCode(context.Background(), code)
	if err == store.ErrNotFound {
		writeError(ctx, fasthttp.StatusNotFound, s.cat.Render("reject.not_found", nil))
		return
	}
	if err != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, err.Error())
		return
	}
	resp := arenadto.StateResponse{State: toState(sess)}
	if sess.Termination != nil {
		resp.Message = s.finishedMessage(sess)
	}
	writeJSON(ctx, fasthttp.StatusOK, resp)
}

func (s *server) handleAction(ctx *fasthttp.RequestCtx, code, action string) {
	var req arenadto.ActionRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "invalid body")
		return
	}
	coord, jo, err := s.coordinatorFor(code, req.Name)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, err.Error())
		return
	}
	if coord == nil {
		writeError(ctx, fasthttp.StatusNotFound, s.cat.Render("reject.not_found", nil))
		return
	}

	bg := context.Background()
	switch action {
	case "join":
		writeJSON(ctx, fasthttp.StatusOK, arenadto.JoinResponse{
			Seat:        string(jo.Seat),
			Spectator:   jo.Spectator,
			Reconnected: jo.Reconnected,
			State:       toState(coord.Session()),
		})
	case "move":
		var out coordinator.MoveOutcome
		if req.Promotion != "" && req.From == "" && req.To == "" {
			out, err = coord.CompletePromotion(bg, req.Promotion)
		} else {
			out, err = coord.SubmitMove(bg, req.From, req.To, req.Promotion)
		}
		s.writeMoveOutcome(ctx, coord, out, err)
	case "draw":
		var out coordinator.NegotiateOutcome
		switch req.Action {
		case "offer":
			out, err = coord.OfferDraw(bg)
		case "accept":
			out, err = coord.AcceptDraw(bg)
		case "decline":
			out, err = coord.DeclineDraw(bg)
		default:
			writeError(ctx, fasthttp.StatusBadRequest, "unknown draw action")
			return
		}
		s.writeNegotiateOutcome(ctx, coord, out, err)
	case "resign":
		out, err := coord.Resign(bg)
		s.writeNegotiateOutcome(ctx, coord, out, err)
	case "leave":
		out, err := coord.Leave(bg)
		s.writeNegotiateOutcome(ctx, coord, out, err)
	default:
		writeError(ctx, fasthttp.StatusNotFound, "not found")
	}
}

// handleEvents streams coordinator events as server-sent events.
func (s *server) handleEvents(ctx *fasthttp.RequestCtx, code string) {
	name := string(ctx.QueryArgs().Peek("name"))
	coord, _, err := s.coordinatorFor(code, name)
	if err != nil || coord == nil {
		writeError(ctx, fasthttp.StatusNotFound, s.cat.Render("reject.not_found", nil))
		return
	}

	ctx.SetContentType("text/event-stream")
	ctx.Response.Header.Set("Cache-Control", "no-cache")
	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		for ev := range coord.Events() {
			payload := arenadto.GameEvent{
				Kind:    string(ev.Kind),
				Message: s.eventMessage(ev),
				From:    ev.From,
				To:      ev.To,
				State:   toState(ev.Session),
			}
			data, err := json.Marshal(&payload)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
			if err := w.Flush(); err != nil {
				return
			}
		}
	})
}

func (s *server) newCoordinator(name string) *coordinator.Coordinator {
	opts := []coordinator.Option{}
	if s.arch != nil {
		opts = append(opts, coordinator.WithArchiver(s.arch))
	}
	return coordinator.New(s.st, name, opts...)
}

func (s *server) register(code, name string, coord *coordinator.Coordinator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coords[coordKey(code, name)] = coord
}

// coordinatorFor finds or builds the coordinator bound to (code, player).
// A nil coordinator with nil error means the session does not exist.
func (s *server) coordinatorFor(code, name string) (*coordinator.Coordinator, *coordinator.JoinOutcome, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, coordinator.ErrNameRequired
	}
	key := coordKey(code, name)

	s.mu.Lock()
	if coord, ok := s.coords[key]; ok {
		s.mu.Unlock()
		return coord, &coordinator.JoinOutcome{Ok: true, Seat: coord.Seat(), Reconnected: true}, nil
	}
	s.mu.Unlock()

	coord := s.newCoordinator(name)
	jo, err := coord.Join(context.Background(), code)
	if err != nil {
		coord.Close()
		return nil, nil, err
	}
	if jo.Reason == coordinator.ReasonNotFound {
		coord.Close()
		return nil, nil, nil
	}

	s.mu.Lock()
	if existing, ok := s.coords[key]; ok {
		s.mu.Unlock()
		coord.Close()
		return existing, &jo, nil
	}
	s.coords[key] = coord
	s.mu.Unlock()
	return coord, &jo, nil
}

func (s *server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, coord := range s.coords {
		coord.Close()
		delete(s.coords, key)
	}
}

func (s *server) writeMoveOutcome(ctx *fasthttp.RequestCtx, coord *coordinator.Coordinator, out coordinator.MoveOutcome, err error) {
	if err != nil {
		obslog.L().Warn("api_operation_error", zap.Error(err))
		writeError(ctx, fasthttp.StatusInternalServerError, err.Error())
		return
	}
	sess := coord.Session()
	resp := arenadto.ActionResponse{
		Applied:        out.Applied,
		Reason:         string(out.Reason),
		NeedsPromotion: out.NeedsPromotion,
		SAN:            out.SAN,
		Captured:       out.Captured,
		State:          toState(sess),
	}
	if out.Reason != coordinator.ReasonNone {
		resp.Message = s.cat.Render("reject."+string(out.Reason), nil)
	} else if out.Termination != nil {
		resp.Message = s.finishedMessage(sess)
	}
	writeJSON(ctx, fasthttp.StatusOK, resp)
}

func (s *server) writeNegotiateOutcome(ctx *fasthttp.RequestCtx, coord *coordinator.Coordinator, out coordinator.NegotiateOutcome, err error) {
	if err != nil {
		obslog.L().Warn("api_operation_error", zap.Error(err))
		writeError(ctx, fasthttp.StatusInternalServerError, err.Error())
		return
	}
	sess := coord.Session()
	resp := arenadto.ActionResponse{
		Applied:      out.Applied,
		Reason:       string(out.Reason),
		DrawAccepted: out.DrawAccepted,
		State:        toState(sess),
	}
	switch {
	case out.Reason != coordinator.ReasonNone:
		resp.Message = s.cat.Render("reject."+string(out.Reason), nil)
	case sess != nil && sess.Termination != nil:
		resp.Message = s.finishedMessage(sess)
	case out.Applied && sess != nil && sess.DrawOfferedBy != "":
		resp.Message = s.cat.Render("draw.offered", map[string]string{
			"By": sess.NameOf(sess.DrawOfferedBy),
		})
	}
	writeJSON(ctx, fasthttp.StatusOK, resp)
}

func (s *server) eventMessage(ev coordinator.Event) string {
	switch ev.Kind {
	case coordinator.EventDrawOffered:
		if ev.Session != nil && ev.Session.DrawOfferedBy != "" {
			return s.cat.Render("draw.offered", map[string]string{
				"By": ev.Session.NameOf(ev.Session.DrawOfferedBy),
			})
		}
	case coordinator.EventDrawDeclined:
		return s.cat.Render("draw.declined", nil)
	case coordinator.EventFinished:
		return s.finishedMessage(ev.Session)
	}
	return ""
}

func (s *server) finishedMessage(sess *session.Session) string {
	if sess == nil || sess.Termination == nil {
		return ""
	}
	t := sess.Termination
	return s.cat.Render("finished."+string(t.Reason), map[string]string{
		"By":     sess.NameOf(t.By),
		"Winner": sess.NameOf(t.Winner),
	})
}

func toState(sess *session.Session) *arenadto.GameState {
	if sess == nil {
		return nil
	}
	tally := rules.Captures{}
	if sess.MoveCount() > 0 {
		if game, replayed := rules.Rebuild(sess); replayed {
			tally = rules.CaptureTally(game)
		}
	}
	st := &arenadto.GameState{
		ID:               sess.ID,
		Code:             sess.Code,
		WhiteName:        sess.WhiteName,
		BlackName:        sess.BlackName,
		FEN:              sess.FEN,
		MovesUCI:         append([]string(nil), sess.MovesUCI...),
		MovesSAN:         append([]string(nil), sess.MovesSAN...),
		CapturesByWhite:  tally.ByWhite,
		CapturesByBlack:  tally.ByBlack,
		Status:           string(sess.Status),
		Turn:             string(sess.Turn),
		WhiteTime:        sess.WhiteTime,
		BlackTime:        sess.BlackTime,
		BaseMinutes:      sess.BaseMinutes,
		IncrementSeconds: sess.IncrementSeconds,
		DrawOfferedBy:    string(sess.DrawOfferedBy),
		Version:          sess.Version,
		UpdatedAt:        sess.UpdatedAt,
	}
	if sess.Termination != nil {
		st.Termination = &arenadto.Termination{
			Reason: string(sess.Termination.Reason),
			By:     string(sess.Termination.By),
			Winner: string(sess.Termination.Winner),
		}
	}
	return st
}

func coordKey(code, name string) string { return strings.ToUpper(code) + "#" + name }

func writeError(ctx *fasthttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, arenadto.ErrorResponse{Error: msg})
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json; charset=utf-8")
	data, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(`{"error":"encoding failure"}`)
		return
	}
	ctx.SetBody(data)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
