// Command migrate applies pending schema migrations of the publishing store
// to the configured database.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/heartmarshall/publishing-store/internal/app"
	"github.com/heartmarshall/publishing-store/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("load config: %v", err)
		return 1
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	applied, err := app.Migrate(ctx, cfg, logger)
	if err != nil {
		logger.Error("migrate failed", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("migrations completed",
		slog.Int("applied", applied),
		slog.String("version", app.BuildVersion()),
	)
	return 0
}
