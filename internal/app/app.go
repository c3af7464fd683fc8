package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/publishing-store/internal/adapter/postgres"
	"github.com/heartmarshall/publishing-store/internal/adapter/postgres/variant"
	"github.com/heartmarshall/publishing-store/internal/config"
	"github.com/heartmarshall/publishing-store/internal/service/publishing"
)

// Publisher is a publishing service wired to PostgreSQL.
type Publisher struct {
	*publishing.Service

	pool *pgxpool.Pool
}

// NewPublisher connects to the database and wires the variant repository,
// merge engine and transaction manager into a publishing service.
// Close releases the pool.
func NewPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Publisher, error) {
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	svc, err := NewService(pool, cfg.Publishing, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &Publisher{Service: svc, pool: pool}, nil
}

// Close releases the database pool.
func (p *Publisher) Close() {
	p.pool.Close()
}

// NewService wires a publishing service on top of an existing pool.
func NewService(pool *pgxpool.Pool, cfg config.PublishingConfig, logger *slog.Logger) (*publishing.Service, error) {
	repo := variant.New(pool,
		variant.WithCommandTimeout(cfg.CommandTimeout),
		variant.WithFlushMarker(cfg.FlushMarker),
	)

	engine, err := publishing.NewEngine(logger, repo, cfg.MarkerFieldID)
	if err != nil {
		return nil, fmt.Errorf("create merge engine: %w", err)
	}

	tx := postgres.NewTxManager(pool, postgres.WithIsolation(isolationLevel(cfg.Isolation)))

	return publishing.NewService(logger, engine, tx), nil
}

func isolationLevel(s string) pgx.TxIsoLevel {
	switch s {
	case config.IsolationRepeatableRead:
		return pgx.RepeatableRead
	case config.IsolationSerializable:
		return pgx.Serializable
	default:
		return pgx.ReadCommitted
	}
}

// Migrate applies pending schema migrations.
func Migrate(ctx context.Context, cfg *config.Config, logger *slog.Logger) (int, error) {
	n, err := postgres.Migrate(ctx, cfg.Database.DSN, logger)
	if err != nil {
		return 0, fmt.Errorf("migrate: %w", err)
	}
	return n, nil
}
