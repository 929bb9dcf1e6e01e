// Package clock holds the time-control model and the per-seat countdown the
// coordinator mirrors from the shared record. Only the client occupying the
// active seat persists its own remaining time; this type owns the local
// bookkeeping and the never-negative invariant.
package clock

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/KeldenPDorji/cyber-chess-arena/internal/session"
)

// TimeControl is base minutes plus a per-move increment in seconds.
type TimeControl struct {
	BaseMinutes      int
	IncrementSeconds int
}

// Default matches the original ten-minute game with no increment.
func Default() TimeControl {
	return TimeControl{BaseMinutes: session.DefaultBaseMinutes, IncrementSeconds: session.DefaultIncrementSeconds}
}

// Parse reads the "base+increment" form, e.g. "5+3" or "10+0". A bare number
// means no increment.
func Parse(s string) (TimeControl, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Default(), nil
	}
	base, inc := s, "0"
	if i := strings.IndexByte(s, '+'); i >= 0 {
		base, inc = s[:i], s[i+1:]
	}
	b, err := strconv.Atoi(strings.TrimSpace(base))
	if err != nil || b <= 0 {
		return TimeControl{}, fmt.Errorf("invalid time control %q", s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(inc))
	if err != nil || n < 0 {
		return TimeControl{}, fmt.Errorf("invalid time control %q", s)
	}
	return TimeControl{BaseMinutes: b, IncrementSeconds: n}, nil
}

func (tc TimeControl) TotalSeconds() int { return tc.BaseMinutes * 60 }

func (tc TimeControl) String() string {
	return fmt.Sprintf("%d+%d", tc.BaseMinutes, tc.IncrementSeconds)
}

// Countdown tracks both seats' remaining seconds locally. It is a mirror of
// the persisted record, synced on every reconciliation.
type Countdown struct {
	mu      sync.Mutex
	white   int
	black   int
	active  session.Color
	running bool
}

func NewCountdown(tc TimeControl) *Countdown {
	total := tc.TotalSeconds()
	return &Countdown{white: total, black: total, active: session.White}
}

// Sync replaces the mirror with authoritative values from the record.
// running is false before the first move and after any terminal state.
func (c *Countdown) Sync(white, black int, active session.Color, running bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if white < 0 {
		white = 0
	}
	if black < 0 {
		black = 0
	}
	c.white, c.black = white, black
	c.active = active
	c.running = running
}

// Tick consumes one second from seat's clock, but only while the countdown
// is running and seat is the active color. It returns the new remaining time
// and whether the seat just flagged.
func (c *Countdown) Tick(seat session.Color) (remaining int, timedOut, ticked bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || c.active != seat {
		return c.remaining(seat), false, false
	}
	rem := c.remaining(seat) - 1
	if rem <= 0 {
		rem = 0
		c.running = false
	}
	c.set(seat, rem)
	return rem, rem == 0, true
}

// Remaining returns a seat's clock in seconds.
func (c *Countdown) Remaining(seat session.Color) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining(seat)
}

// Running reports whether the countdown is live.
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Countdown) remaining(seat session.Color) int {
	if seat == session.White {
		return c.white
	}
	return c.black
}

func (c *Countdown) set(seat session.Color, secs int) {
	if seat == session.White {
		c.white = secs
	} else {
		c.black = secs
	}
}
