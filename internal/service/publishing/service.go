package publishing

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/publishing-store/internal/domain"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

// variantStore is the storage adapter the engine merges against. Reads must
// observe the caller's transaction; ApplyWritePlan must apply the plan in
// its fixed phase order or fail as a whole.
type variantStore interface {
	ItemsByID(ctx context.Context, ids []uuid.UUID) ([]domain.Item, error)
	FieldsByItemID(ctx context.Context, p domain.Partition, itemIDs []uuid.UUID) ([]domain.Field, error)
	ApplyWritePlan(ctx context.Context, plan *domain.WritePlan) error
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ---------------------------------------------------------------------------
// Engine
// ---------------------------------------------------------------------------

// Engine merges item variant batches into a variant store. It holds no
// per-call state and never commits or rolls back: callers run it inside a
// transaction they own. Safe for concurrent use by callers with independent
// transactions.
type Engine struct {
	log           *slog.Logger
	store         variantStore
	markerFieldID uuid.UUID
	now           func() time.Time
}

// NewEngine creates a merge engine. markerFieldID names the field whose rows
// identify the (item, language, version) variants of a batch.
func NewEngine(logger *slog.Logger, store variantStore, markerFieldID uuid.UUID) (*Engine, error) {
	var errs []domain.FieldError
	if logger == nil {
		errs = append(errs, domain.FieldError{Field: "logger", Message: "required"})
	}
	if store == nil {
		errs = append(errs, domain.FieldError{Field: "store", Message: "required"})
	}
	if markerFieldID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "marker_field_id", Message: "required"})
	}
	if len(errs) > 0 {
		return nil, domain.NewValidationErrors(errs)
	}

	return &Engine{
		log:           logger.With("component", "merge_engine"),
		store:         store,
		markerFieldID: markerFieldID,
		now:           time.Now,
	}, nil
}

// MarkerFieldID returns the field id that delimits the deletion scope.
func (e *Engine) MarkerFieldID() uuid.UUID { return e.markerFieldID }

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service owns the transaction around a merge: it commits when the engine
// succeeds and rolls back otherwise.
type Service struct {
	log    *slog.Logger
	engine *Engine
	tx     txManager
}

// NewService creates a new Publishing service.
func NewService(logger *slog.Logger, engine *Engine, tx txManager) *Service {
	return &Service{
		log:    logger.With("service", "publishing"),
		engine: engine,
		tx:     tx,
	}
}
