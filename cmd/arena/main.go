// Command arena is a terminal client for one game: create or join by code,
// then type commands while remote updates stream in.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/KeldenPDorji/cyber-chess-arena/internal/clock"
	"github.com/KeldenPDorji/cyber-chess-arena/internal/config"
	"github.com/KeldenPDorji/cyber-chess-arena/internal/coordinator"
	"github.com/KeldenPDorji/cyber-chess-arena/internal/msgcat"
	"github.com/KeldenPDorji/cyber-chess-arena/internal/obslog"
	"github.com/KeldenPDorji/cyber-chess-arena/internal/store"
)

func main() {
	var (
		joinCode = flag.String("code", "", "join code of an existing game")
		color    = flag.String("color", "random", "seat preference when creating (white|black|random)")
		control  = flag.String("tc", "", "time control, e.g. 5+3 (default from config)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	cat, err := msgcat.New(cfg.MessageDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}
	st, err := store.Open(cfg.RedisURL)
	if err != nil {
		log.Fatalf("store init error: %v", err)
	}
	defer st.Close()

	in := bufio.NewScanner(os.Stdin)
	memory := coordinator.OpenJoinMemory(cfg.JoinMemoryPath)
	name := resolveName(in, memory, *joinCode)

	ctx := context.Background()
	coord := coordinator.New(st, name)
	defer coord.Close()

	code := strings.ToUpper(strings.TrimSpace(*joinCode))
	if code == "" {
		tc, err := clock.Parse(orDefault(*control, cfg.TimeControl))
		if err != nil {
			log.Fatalf("time control: %v", err)
		}
		code, err = coord.Create(ctx, coordinator.SeatPreference(*color), tc)
		if err != nil {
			log.Fatalf("create: %v", err)
		}
		fmt.Printf("game created, share code %s\n", code)
	} else {
		jo, err := coord.Join(ctx, code)
		if err != nil {
			log.Fatalf("join: %v", err)
		}
		switch {
		case jo.Reason == coordinator.ReasonNotFound:
			log.Fatalf("%s", cat.Render("reject.not_found", nil))
		case jo.Spectator:
			fmt.Println("both seats are taken; watching as a spectator")
		case jo.Reconnected:
			fmt.Printf("reconnected as %s\n", jo.Seat)
		default:
			fmt.Printf("joined as %s\n", jo.Seat)
		}
	}
	if err := memory.Remember(code, name); err != nil {
		log.Printf("could not save join memory: %v", err)
	}

	go printEvents(coord, cat)

	printState(coord)
	fmt.Println("commands: move <from> <to> [piece] | targets <square> | draw | accept | decline | resign | quit")
	for prompt(); in.Scan(); prompt() {
		if done := dispatch(ctx, coord, cat, in.Text()); done {
			return
		}
	}
}

func dispatch(ctx context.Context, coord *coordinator.Coordinator, cat *msgcat.Catalog, line string) bool {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(line)))
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "move":
		if len(fields) < 3 {
			fmt.Println("usage: move e2 e4 [q]")
			return false
		}
		promo := ""
		if len(fields) > 3 {
			promo = fields[3]
		}
		out, err := coord.SubmitMove(ctx, fields[1], fields[2], promo)
		reportMove(coord, cat, out, err)
	case "targets":
		if len(fields) < 2 {
			fmt.Println("usage: targets e2")
			return false
		}
		if targets := coord.Select(fields[1]); len(targets) > 0 {
			fmt.Printf("legal from %s: %s\n", fields[1], strings.Join(targets, " "))
		} else {
			fmt.Println("no legal moves from there")
		}
	case "draw":
		out, err := coord.OfferDraw(ctx)
		reportNegotiation(cat, out, err)
	case "accept":
		out, err := coord.AcceptDraw(ctx)
		reportNegotiation(cat, out, err)
	case "decline":
		out, err := coord.DeclineDraw(ctx)
		reportNegotiation(cat, out, err)
	case "resign":
		out, err := coord.Resign(ctx)
		reportNegotiation(cat, out, err)
	case "quit", "exit":
		if !coord.Spectator() {
			if sess := coord.Session(); sess != nil && !sess.Terminal() {
				if _, err := coord.Leave(ctx); err != nil {
					log.Printf("leave: %v", err)
				}
			}
		}
		return true
	default:
		fmt.Printf("unknown command %q\n", fields[0])
	}
	return false
}

func reportMove(coord *coordinator.Coordinator, cat *msgcat.Catalog, out coordinator.MoveOutcome, err error) {
	switch {
	case err != nil:
		log.Printf("move: %v", err)
	case out.NeedsPromotion:
		fmt.Println("promotion required: repeat the move with a piece letter (q/r/b/n)")
	case out.Reason != coordinator.ReasonNone:
		fmt.Println(cat.Render("reject."+string(out.Reason), nil))
	default:
		fmt.Printf("played %s\n", out.SAN)
		printState(coord)
	}
}

func reportNegotiation(cat *msgcat.Catalog, out coordinator.NegotiateOutcome, err error) {
	switch {
	case err != nil:
		log.Printf("negotiation: %v", err)
	case out.Reason != coordinator.ReasonNone:
		fmt.Println(cat.Render("reject."+string(out.Reason), nil))
	case out.DrawAccepted:
		fmt.Println(cat.Render("draw.accepted", nil))
	default:
		fmt.Println("done")
	}
}

func printEvents(coord *coordinator.Coordinator, cat *msgcat.Catalog) {
	for ev := range coord.Events() {
		switch ev.Kind {
		case coordinator.EventStateChanged:
			printState(coord)
		case coordinator.EventDrawOffered:
			fmt.Println("\n" + cat.Render("draw.offered", map[string]string{
				"By": ev.Session.NameOf(ev.Session.DrawOfferedBy),
			}))
		case coordinator.EventDrawDeclined:
			fmt.Println("\n" + cat.Render("draw.declined", nil))
		case coordinator.EventFinished:
			if t := ev.Session.Termination; t != nil {
				fmt.Println("\n" + cat.Render("finished."+string(t.Reason), map[string]string{
					"By":     ev.Session.NameOf(t.By),
					"Winner": ev.Session.NameOf(t.Winner),
				}))
			}
		}
		prompt()
	}
}

func printState(coord *coordinator.Coordinator) {
	sess := coord.Session()
	if sess == nil {
		return
	}
	last := ""
	if n := len(sess.MovesSAN); n > 0 {
		last = " last " + sess.MovesSAN[n-1]
	}
	fmt.Printf("\n[%s] %s %s vs %s | %s to move | %s %s%s\n",
		sess.Code, sess.Status,
		orDefault(sess.WhiteName, "?"), orDefault(sess.BlackName, "?"),
		sess.Turn,
		fmtClock(sess.WhiteTime), fmtClock(sess.BlackTime), last)
	if tally := coord.Captures(); len(tally.ByWhite) > 0 || len(tally.ByBlack) > 0 {
		fmt.Printf("captured: white %s | black %s\n",
			orDefault(strings.Join(tally.ByWhite, " "), "-"),
			orDefault(strings.Join(tally.ByBlack, " "), "-"))
	}
}

// resolveName prompts for a display name only when the invite code was never
// seen before; a remembered code reuses the remembered name.
func resolveName(in *bufio.Scanner, memory *coordinator.JoinMemory, code string) string {
	if code != "" && !memory.NeedsPrompt(code) {
		if name := memory.PlayerName(); name != "" {
			return name
		}
	}
	for {
		fmt.Print("display name: ")
		if !in.Scan() {
			os.Exit(1)
		}
		if name := strings.TrimSpace(in.Text()); name != "" {
			return name
		}
	}
}

func fmtClock(secs int) string { return fmt.Sprintf("%d:%02d", secs/60, secs%60) }

func prompt() { fmt.Print("> ") }

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
