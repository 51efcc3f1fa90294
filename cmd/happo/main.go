package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/lowsky/happo.io/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:".happo.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Run struct {
		Only  string `help:"Restrict rendering to a single component"`
		Async bool   `help:"Submit snap requests without awaiting comparison results"`
	} `cmd:"" help:"Run one snapshot orchestration and print the report"`

	Watch struct {
	} `cmd:"" help:"Watch the project and rebuild snapshots on change"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Version struct {
	} `cmd:"" help:"Print the version"`
}

func main() {
	kctx := kong.Parse(&CLI)

	// .env is optional; missing files are not an error.
	_ = godotenv.Load()

	switch kctx.Command() {
	case "init":
		if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", CLI.Config)
		return
	case "version":
		fmt.Println(version)
		return
	}

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch kctx.Command() {
	case "run":
		if err := runOnce(ctx, cfg, CLI.Run.Only, CLI.Run.Async); err != nil {
			slog.Error("Run failed", "error", err)
			os.Exit(1)
		}
	case "watch":
		if err := runWatch(ctx, cfg); err != nil && ctx.Err() == nil {
			slog.Error("Watch failed", "error", err)
			os.Exit(1)
		}
	}
}

func setupLogging(cfg *config.Config) {
	level := config.NormalizeLogLevel(cfg.Logging.Level)
	if CLI.Verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if config.NormalizeLogFormat(cfg.Logging.Format) == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
