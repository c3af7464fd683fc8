// Command publish commits item variant batches read from JSON files.
// Each file is one batch and is published in its own transaction.
//
// Usage:
//
//	publish [--reports DIR] [--migrate] PATH...
//
// PATH is a batch file or a directory of *.json batch files.
//
// Exit codes: 0 = every batch published, 1 = error or at least one failed
// batch, 2 = bad flags.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/heartmarshall/publishing-store/internal/app"
	"github.com/heartmarshall/publishing-store/internal/app/batchfile"
	"github.com/heartmarshall/publishing-store/internal/config"
)

// Compile-time interface assertion.
var _ batchfile.Publisher = (*app.Publisher)(nil)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code. Deferred cleanup runs before main exits.
func run(args []string) int {
	fs := flag.NewFlagSet("publish", flag.ContinueOnError)
	reportDir := fs.String("reports", "", "directory for <name>.report.json change reports")
	migrate := fs.Bool("migrate", false, "apply pending migrations before publishing")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if fs.NArg() == 0 {
		log.Print("usage: publish [--reports DIR] [--migrate] PATH...")
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		log.Printf("load config: %v", err)
		return 1
	}

	logger := app.NewLogger(cfg.Log)
	logger.Info("starting publish",
		slog.String("version", app.BuildVersion()),
		slog.String("marker_field_id", cfg.Publishing.MarkerFieldID.String()),
		slog.Bool("flush_marker", cfg.Publishing.FlushMarker),
		slog.String("isolation", cfg.Publishing.Isolation),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *migrate {
		if _, err := app.Migrate(ctx, cfg, logger); err != nil {
			logger.Error("migrate failed", slog.String("error", err.Error()))
			return 1
		}
	}

	pub, err := app.NewPublisher(ctx, cfg, logger)
	if err != nil {
		logger.Error("create publisher", slog.String("error", err.Error()))
		return 1
	}
	defer pub.Close()

	result, err := batchfile.Run(ctx, fs.Args(), *reportDir, pub, logger)
	if err != nil {
		logger.Error("publish failed", slog.String("error", err.Error()))
		return 1
	}

	if result.Errors > 0 {
		return 1
	}
	return 0
}
