package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss/v2"

	"github.com/moodclient/owo/config"
	"github.com/moodclient/owo/game"
	"github.com/moodclient/owo/server"
	"github.com/moodclient/owo/store"
)

func main() {
	var (
		configPath string
		addr       string
	)

	flag.StringVar(&configPath, "config", "", "Path to a TOML or YAML configuration file")
	flag.StringVar(&addr, "addr", "", "Address to listen on, overriding the configuration")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			log.Fatalln(err)
		}
	}

	if addr != "" {
		cfg.Server.Addr = addr
	}

	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		log.Fatalln(err)
	}
	slog.SetDefault(logger)

	lipgloss.EnableLegacyWindowsANSI(os.Stdout)

	var recorder game.Recorder
	var results server.ResultSource

	if cfg.Store.Path != "" {
		db, err := store.Open(cfg.Store.Path)
		if err != nil {
			log.Fatalln(err)
		}
		defer db.Close()

		recorder = db
		results = db
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dice, err := game.NewDice()
	if err != nil {
		log.Fatalln(err)
	}

	handle := game.NewHandle(dice, recorder, logger)
	srv := server.New(cfg.Session, handle, results, logger)

	err = srv.ListenAndServe(ctx, cfg.Server.Addr)
	if err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("shut down")
}
