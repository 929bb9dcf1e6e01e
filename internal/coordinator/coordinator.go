// Package coordinator implements the per-client session coordinator: it owns
// the local view of one shared session record, applies optimistic local
// mutations through conditional updates, subscribes to remote changes, and
// reconciles. Concurrency exists across client processes, not inside one
// coordinator; the record store serializes writes per row.
package coordinator

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
	"sync"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KeldenPDorji/cyber-chess-arena/internal/clock"
	"github.com/KeldenPDorji/cyber-chess-arena/internal/obslog"
	"github.com/KeldenPDorji/cyber-chess-arena/internal/rules"
	"github.com/KeldenPDorji/cyber-chess-arena/internal/session"
	"github.com/KeldenPDorji/cyber-chess-arena/internal/store"
)

type staticErr string

func (e staticErr) Error() string { return string(e) }

var (
	ErrNameRequired = staticErr("display name required")
	ErrNoSession    = staticErr("coordinator has no session bound")

	errSeatTaken = staticErr("seat already filled")
	errNotActive = staticErr("session not active")
	errNoop      = staticErr("no-op")
)

// SeatPreference selects the creator's color.
type SeatPreference string

const (
	PreferWhite  SeatPreference = "white"
	PreferBlack  SeatPreference = "black"
	PreferRandom SeatPreference = "random"
)

// Archiver persists terminal games out of band. Failures are logged, never
// surfaced to play.
type Archiver interface {
	SaveResult(ctx context.Context, s *session.Session) error
}

// PendingPromotion is a multi-step move waiting for a piece selection. Local
// transient state only; discarded without side effects if the session ends.
type PendingPromotion struct {
	From string
	To   string
}

type Coordinator struct {
	st       *store.Store
	archive  Archiver
	name     string
	clientID string

	tickEvery time.Duration

	mu        sync.Mutex
	sess      *session.Session
	game      *nchess.Game
	seat      session.Color
	countdown *clock.Countdown
	selected  string
	targets   []string
	promo     *PendingPromotion
	events    chan Event
	closed    bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Coordinator)

// WithArchiver wires a finished-game archive.
func WithArchiver(a Archiver) Option { return func(c *Coordinator) { c.archive = a } }

// WithTickInterval overrides the 1-second clock cadence. Tests shorten it.
func WithTickInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.tickEvery = d
		}
	}
}

// New builds a coordinator for one connected client identified by its
// display name. Bind it to a session with Create or Join.
func New(st *store.Store, playerName string, opts ...Option) *Coordinator {
	c := &Coordinator{
		st:        st,
		name:      strings.TrimSpace(playerName),
		clientID:  uuid.NewString(),
		tickEvery: time.Second,
		events:    make(chan Event, 32),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Events yields derived state changes. Slow consumers lose events rather
// than blocking the coordinator.
func (c *Coordinator) Events() <-chan Event { return c.events }

func (c *Coordinator) PlayerName() string { return c.name }

// Seat returns the bound seat, empty for spectators.
func (c *Coordinator) Seat() session.Color {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seat
}

func (c *Coordinator) Spectator() bool { return c.Seat() == "" }

// Session returns a snapshot of the local view.
func (c *Coordinator) Session() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.Clone()
}

// Captures tallies pieces taken so far, from the replayed history.
func (c *Coordinator) Captures() rules.Captures {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.game == nil {
		return rules.Captures{}
	}
	return rules.CaptureTally(c.game)
}

// Winner reports the terminal result, if any.
func (c *Coordinator) Winner() (session.Color, session.Reason, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil || c.sess.Termination == nil {
		return "", "", false
	}
	return c.sess.Termination.Winner, c.sess.Termination.Reason, true
}

// Pending returns the promotion prompt awaiting a selection, if any.
func (c *Coordinator) Pending() *PendingPromotion {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.promo == nil {
		return nil
	}
	p := *c.promo
	return &p
}

// Create inserts a fresh session with this client in the preferred seat and
// returns the shareable join code.
func (c *Coordinator) Create(ctx context.Context, pref SeatPreference, tc clock.TimeControl) (string, error) {
	if c.name == "" {
		return "", ErrNameRequired
	}
	if tc.BaseMinutes <= 0 {
		tc = clock.Default()
	}

	seat := resolvePreference(pref)
	total := tc.TotalSeconds()
	now := time.Now()
	sess := &session.Session{
		ID:               uuid.NewString(),
		FEN:              nchess.NewGame().FEN(),
		Status:           session.StatusWaiting,
		Turn:             session.White,
		WhiteTime:        total,
		BlackTime:        total,
		BaseMinutes:      tc.BaseMinutes,
		IncrementSeconds: tc.IncrementSeconds,
		SchemaVersion:    session.CurrentSchemaVersion,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if seat == session.White {
		sess.WhiteName = c.name
	} else {
		sess.BlackName = c.name
	}

	var err error
	for attempt := 0; attempt < 5; attempt++ {
		sess.Code, err = store.NewCode()
		if err != nil {
			return "", err
		}
		if err = c.st.Insert(ctx, sess); err != store.ErrConflict {
			break
		}
	}
	if err != nil {
		return "", err
	}

	obslog.L().Info("session_create",
		zap.String("session_id", sess.ID),
		zap.String("code", sess.Code),
		zap.String("creator", c.name),
		zap.String("seat", string(seat)),
		zap.String("time_control", tc.String()),
	)
	c.bind(ctx, sess, seat)
	return sess.Code, nil
}

// Join resolves this client against an existing session: rebind when the
// name already holds a seat, claim an empty seat otherwise, fall back to
// spectator when both are filled. Idempotent under retries with one name.
func (c *Coordinator) Join(ctx context.Context, code string) (JoinOutcome, error) {
	if c.name == "" {
		return JoinOutcome{}, ErrNameRequired
	}
	sess, err := c.st.GetByCode(ctx, code)
	if err == store.ErrNotFound {
		return JoinOutcome{Reason: ReasonNotFound}, nil
	}
	if err != nil {
		return JoinOutcome{}, err
	}

	// Reconnect: the record already names us. Pure read, no mutation.
	if seat, ok := sess.SeatOf(c.name); ok {
		c.bind(ctx, sess, seat)
		obslog.L().Info("session_rejoin",
			zap.String("session_id", sess.ID), zap.String("player", c.name), zap.String("seat", string(seat)))
		return JoinOutcome{Ok: true, Seat: seat, Reconnected: true}, nil
	}

	for _, seat := range []session.Color{session.White, session.Black} {
		if !sess.SeatEmpty(seat) {
			continue
		}
		claimed, err := c.claimSeat(ctx, sess.ID, seat)
		if err == nil {
			c.bind(ctx, claimed, seat)
			obslog.L().Info("session_join",
				zap.String("session_id", claimed.ID), zap.String("player", c.name), zap.String("seat", string(seat)))
			return JoinOutcome{Ok: true, Seat: seat}, nil
		}
		if err != errSeatTaken && err != store.ErrConflict && err != store.ErrPrecondition {
			return JoinOutcome{}, err
		}
		// Lost the race for this seat; refresh and keep trying.
		if fresh, gerr := c.st.Get(ctx, sess.ID); gerr == nil {
			sess = fresh
			if seat, ok := sess.SeatOf(c.name); ok {
				c.bind(ctx, sess, seat)
				return JoinOutcome{Ok: true, Seat: seat, Reconnected: true}, nil
			}
		}
	}

	// Both seats filled: read-only spectator.
	c.bind(ctx, sess, "")
	obslog.L().Info("session_spectate", zap.String("session_id", sess.ID), zap.String("player", c.name))
	return JoinOutcome{Ok: true, Spectator: true}, nil
}

func (c *Coordinator) claimSeat(ctx context.Context, id string, seat session.Color) (*session.Session, error) {
	return c.st.Update(ctx, id, c.clientID, func(cur *session.Session) error {
		if _, ok := cur.SeatOf(c.name); ok {
			return errSeatTaken
		}
		if !cur.SeatEmpty(seat) {
			return errSeatTaken
		}
		if cur.Status.Terminal() {
			return errNotActive
		}
		if seat == session.White {
			cur.WhiteName = c.name
		} else {
			cur.BlackName = c.name
		}
		if cur.Status == session.StatusWaiting {
			cur.Status = session.StatusActive
		}
		return nil
	})
}

// Select sets the local cursor and returns legal destinations from that
// cell. Purely local; never persisted.
func (c *Coordinator) Select(square string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil || c.game == nil || c.seat == "" ||
		c.sess.Status != session.StatusActive || c.sess.Turn != c.seat {
		c.selected, c.targets = "", nil
		return nil
	}
	c.selected = strings.ToLower(strings.TrimSpace(square))
	c.targets = rules.LegalTargets(c.game, c.selected)
	return append([]string(nil), c.targets...)
}

// ClearSelection drops the cursor and any legal-destination set.
func (c *Coordinator) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected, c.targets = "", nil
}

// SubmitMove validates from/to against the current canonical position and,
// when legal, writes the new authoritative record: log entry appended, turn
// flipped, pending draw offer cleared, increment credited, terminal status
// recomputed. Illegal and off-turn submissions change nothing and come back
// as data.
func (c *Coordinator) SubmitMove(ctx context.Context, from, to, promotion string) (MoveOutcome, error) {
	snap, seat := c.view()
	if snap == nil {
		return MoveOutcome{}, ErrNoSession
	}
	if seat == "" {
		return MoveOutcome{Reason: ReasonNotSeated}, nil
	}
	if snap.Terminal() {
		return MoveOutcome{Reason: ReasonGameOver}, nil
	}
	if snap.Status != session.StatusActive {
		return MoveOutcome{Reason: ReasonNotActive}, nil
	}
	// Cheap local pre-check; the authoritative check is inside the write.
	if snap.Turn != seat {
		return MoveOutcome{Reason: ReasonNotYourTurn}, nil
	}

	game, _ := rules.Rebuild(snap)
	res, err := rules.Apply(game, from, to, promotion)
	if err == rules.ErrNeedsPromotion {
		c.mu.Lock()
		c.promo = &PendingPromotion{From: from, To: to}
		c.mu.Unlock()
		return MoveOutcome{NeedsPromotion: true}, nil
	}
	if err != nil {
		return MoveOutcome{Reason: ReasonIllegalMove}, nil
	}

	oldLen := snap.MoveCount()
	updated, err := c.st.Update(ctx, snap.ID, c.clientID, func(cur *session.Session) error {
		if cur.Status != session.StatusActive {
			return errNotActive
		}
		if cur.MoveCount() != oldLen || cur.Turn != seat {
			return store.ErrPrecondition
		}
		cur.MovesUCI = append(cur.MovesUCI, res.UCI)
		cur.MovesSAN = append(cur.MovesSAN, res.SAN)
		cur.FEN = res.FEN
		cur.Turn = seat.Opponent()
		// A recorded move supersedes any pending offer.
		cur.DrawOfferedBy = ""
		if cur.IncrementSeconds > 0 {
			cur.SetRemainingTime(seat, cur.RemainingTime(seat)+cur.IncrementSeconds)
		}
		switch {
		case res.Checkmate:
			cur.Status = session.StatusFinished
			cur.Termination = &session.Termination{Reason: session.ReasonCheckmate, By: seat, Winner: seat}
		case res.Stalemate:
			cur.Status = session.StatusDrawn
			cur.Termination = &session.Termination{Reason: session.ReasonStalemate, By: seat}
		case res.DrawByRule:
			cur.Status = session.StatusDrawn
			cur.Termination = &session.Termination{Reason: session.ReasonDrawRule, By: seat}
		}
		return nil
	})
	switch err {
	case nil:
	case errNotActive:
		return MoveOutcome{Reason: ReasonGameOver}, nil
	case store.ErrPrecondition, store.ErrConflict:
		return MoveOutcome{Reason: ReasonConflict}, nil
	default:
		return MoveOutcome{}, err
	}

	c.adopt(updated)
	obslog.L().Info("session_move",
		zap.String("session_id", updated.ID),
		zap.String("player", c.name),
		zap.String("san", res.SAN),
		zap.Int("move_count", updated.MoveCount()),
		zap.String("status", string(updated.Status)),
	)
	c.emitState(updated)
	if updated.Terminal() {
		c.emit(Event{Kind: EventFinished, Session: updated.Clone()})
		c.archiveTerminal(ctx, updated)
	}
	return MoveOutcome{
		Applied:     true,
		SAN:         res.SAN,
		Captured:    res.Captured,
		Termination: cloneTermination(updated.Termination),
	}, nil
}

// CompletePromotion resolves a pending promotion prompt with a piece letter
// (q, r, b, n).
func (c *Coordinator) CompletePromotion(ctx context.Context, piece string) (MoveOutcome, error) {
	c.mu.Lock()
	p := c.promo
	c.promo = nil
	c.mu.Unlock()
	if p == nil {
		return MoveOutcome{Reason: ReasonIllegalMove}, nil
	}
	return c.SubmitMove(ctx, p.From, p.To, piece)
}

// Close tears down the subscription and clock timers. They must not outlive
// the coordinator.
func (c *Coordinator) Close() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	close(c.events)
}

// bind adopts the record as the local view and starts the reconcile and
// clock loops.
func (c *Coordinator) bind(ctx context.Context, sess *session.Session, seat session.Color) {
	c.adoptSeat(sess, seat)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Add(2)
	go c.watchLoop(runCtx, sess.ID)
	go c.clockLoop(runCtx)
}

func (c *Coordinator) adoptSeat(sess *session.Session, seat session.Color) {
	c.mu.Lock()
	c.seat = seat
	c.mu.Unlock()
	c.adopt(sess)
}

// adopt replaces the local view with a full record, rebuilding the working
// position by replaying the notation log (snapshot fallback on replay
// failure) and resyncing the clock mirror.
func (c *Coordinator) adopt(sess *session.Session) {
	game, replayed := rules.Rebuild(sess)
	if !replayed && sess.MoveCount() > 0 {
		obslog.L().Warn("session_replay_fallback",
			zap.String("session_id", sess.ID), zap.Int("move_count", sess.MoveCount()))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sess = sess.Clone()
	c.game = game
	if c.countdown == nil {
		c.countdown = clock.NewCountdown(clock.TimeControl{
			BaseMinutes:      sess.BaseMinutes,
			IncrementSeconds: sess.IncrementSeconds,
		})
	}
	running := sess.Status == session.StatusActive && sess.MoveCount() > 0
	c.countdown.Sync(sess.WhiteTime, sess.BlackTime, sess.Turn, running)

	if sess.Terminal() {
		c.promo = nil
	}
	if sess.Turn != c.seat {
		c.selected, c.targets = "", nil
	}
}

// reconcile folds a remote update into the local view. Every notification is
// complete replacement state; stale versions are dropped.
func (c *Coordinator) reconcile(remote *session.Session) {
	c.mu.Lock()
	prev := c.sess
	if prev != nil && remote.Version <= prev.Version {
		c.mu.Unlock()
		return
	}
	seat := c.seat
	c.mu.Unlock()

	c.adopt(remote)
	c.emitState(remote)

	if prev == nil {
		return
	}
	if remote.DrawOfferedBy != "" && remote.DrawOfferedBy != seat && prev.DrawOfferedBy != remote.DrawOfferedBy {
		c.emit(Event{Kind: EventDrawOffered, Session: remote.Clone()})
	}
	if seat != "" && prev.DrawOfferedBy == seat && remote.DrawOfferedBy == "" &&
		remote.MoveCount() == prev.MoveCount() && remote.Status == session.StatusActive {
		c.emit(Event{Kind: EventDrawDeclined, Session: remote.Clone()})
	}
	if !prev.Terminal() && remote.Terminal() {
		c.emit(Event{Kind: EventFinished, Session: remote.Clone()})
	}
}

func (c *Coordinator) watchLoop(ctx context.Context, sessionID string) {
	defer c.wg.Done()
	for {
		sub := c.st.Subscribe(ctx, sessionID, c.clientID)
		for sess := range sub.Events() {
			c.reconcile(sess)
		}
		sub.Close()
		if ctx.Err() != nil {
			return
		}
		// Dropped channel: re-subscribe from scratch. Missed notifications
		// are not replayed, so refresh the row once to heal staleness.
		obslog.L().Warn("session_subscription_dropped", zap.String("session_id", sessionID))
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return
		}
		if fresh, err := c.st.Get(ctx, sessionID); err == nil {
			c.reconcile(fresh)
		}
	}
}

func (c *Coordinator) view() (*session.Session, session.Color) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.Clone(), c.seat
}

func (c *Coordinator) emitState(sess *session.Session) {
	ev := Event{Kind: EventStateChanged, Session: sess.Clone()}
	ev.From, ev.To, _ = rules.LastMoveSquares(sess.MovesUCI)
	c.emit(ev)
}

func (c *Coordinator) emit(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.events <- ev:
	default:
		obslog.L().Debug("session_event_dropped", zap.String("kind", string(ev.Kind)))
	}
}

func (c *Coordinator) archiveTerminal(ctx context.Context, sess *session.Session) {
	if c.archive == nil || !sess.Terminal() {
		return
	}
	if err := c.archive.SaveResult(ctx, sess); err != nil {
		obslog.L().Error("session_archive_error", zap.String("session_id", sess.ID), zap.Error(err))
		return
	}
	obslog.L().Info("session_archive", zap.String("session_id", sess.ID))
}

func resolvePreference(pref SeatPreference) session.Color {
	switch pref {
	case PreferWhite:
		return session.White
	case PreferBlack:
		return session.Black
	}
	if n, err := rand.Int(rand.Reader, big.NewInt(2)); err == nil && n.Int64() == 0 {
		return session.Black
	}
	return session.White
}

func cloneTermination(t *session.Termination) *session.Termination {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
