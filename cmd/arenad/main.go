package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/KeldenPDorji/cyber-chess-arena/internal/archive"
	"github.com/KeldenPDorji/cyber-chess-arena/internal/config"
	"github.com/KeldenPDorji/cyber-chess-arena/internal/msgcat"
	"github.com/KeldenPDorji/cyber-chess-arena/internal/obslog"
	"github.com/KeldenPDorji/cyber-chess-arena/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	st, err := store.Open(cfg.RedisURL)
	if err != nil {
		log.Fatalf("store init error: %v", err)
	}
	defer st.Close()

	var arch *archive.Archive
	if cfg.DatabaseURL != "" {
		arch, err = archive.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("archive init error: %v", err)
		}
		defer arch.Close()
	}

	cat, err := msgcat.New(cfg.MessageDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	srv := newServer(cfg, st, arch, cat)
	httpServer := &fasthttp.Server{
		Handler: srv.handle,
		Name:    "arenad",
	}

	go func() {
		obslog.L().Info("arenad_listen", zap.String("addr", cfg.ListenAddr))
		if err := httpServer.ListenAndServe(cfg.ListenAddr); err != nil {
			log.Fatalf("http serve error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	obslog.L().Info("arenad_shutdown")
	_ = httpServer.Shutdown()
	srv.closeAll()
}
