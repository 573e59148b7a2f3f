package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/opsnlops/mpchess/internal/config"
	"github.com/opsnlops/mpchess/pkg/analysis"
	"github.com/opsnlops/mpchess/pkg/server"
	"github.com/opsnlops/mpchess/pkg/store"
	"github.com/seekerror/logw"
)

var (
	confFile = flag.String("config", "", "Path to a TOML configuration file (defaults used if omitted)")
)

func init() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `usage: mpchessd [options]

MPCHESSD is a server-authoritative multiplayer chess server.
Options:
`)
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*confFile)
	if err != nil {
		logw.Exitf(ctx, "Failed to load configuration: %v", err)
	}

	accounts, err := store.Open(cfg.Store.Dir)
	if err != nil {
		logw.Exitf(ctx, "Failed to open account store: %v", err)
	}
	defer accounts.Close()

	var engine *analysis.Client
	if cfg.Analysis.Enabled {
		engine, err = analysis.Launch(ctx, cfg.Analysis.EnginePath)
		if err != nil {
			logw.Errorf(ctx, "Analysis engine unavailable, continuing without it: %v", err)
			engine = nil
		} else {
			defer engine.Close()
		}
	}

	srv := server.New(cfg, accounts, engine)
	if err := srv.Run(ctx); err != nil {
		logw.Exitf(ctx, "Server exited with error: %v", err)
	}
}
