package publishing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/heartmarshall/publishing-store/internal/domain"
	"github.com/heartmarshall/publishing-store/pkg/ctxutil"
)

// Publish merges batch in its own transaction. The transaction commits only
// when the whole merge succeeds; otherwise nothing is written and no report
// is returned.
func (s *Service) Publish(ctx context.Context, batch domain.VariantBatch) (*domain.ChangeReport, error) {
	ctx, _ = ctxutil.EnsureBatchID(ctx)
	log := s.log.With(ctxutil.LogAttrs(ctx)...)

	log.InfoContext(ctx, "publishing batch",
		slog.Int("items", len(batch.Items)),
		slog.Int("fields", len(batch.Fields)),
		slog.Bool("calculate_changes", batch.CalculateChanges),
	)

	start := time.Now()

	var report *domain.ChangeReport
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		r, err := s.engine.AddOrUpdateVariants(txCtx, batch)
		if err != nil {
			return err
		}
		report = r
		return nil
	})
	if err != nil {
		logFailure(ctx, log, err)
		return nil, fmt.Errorf("publishing.Publish: %w", err)
	}

	items, fields := report.Count()
	log.InfoContext(ctx, "batch published",
		slog.Duration("duration", time.Since(start)),
		slog.Int("item_changes", items),
		slog.Int("field_changes", fields),
	)
	if log.Enabled(ctx, slog.LevelDebug) {
		for _, c := range report.Items {
			log.DebugContext(ctx, "item change",
				slog.String("item_id", c.ID.String()),
				slog.String("edit_type", c.EditType.String()),
			)
		}
	}

	return report, nil
}

func logFailure(ctx context.Context, log *slog.Logger, err error) {
	var storageErr *domain.StorageError
	switch {
	case errors.Is(err, domain.ErrValidation):
		log.WarnContext(ctx, "batch rejected", slog.String("error", err.Error()))
	case errors.As(err, &storageErr):
		log.ErrorContext(ctx, "batch failed",
			slog.String("op", storageErr.Op),
			slog.String("code", storageErr.Code),
			slog.String("severity", storageErr.Severity),
			slog.Bool("retryable", storageErr.Retryable()),
			slog.String("error", err.Error()),
		)
	default:
		log.ErrorContext(ctx, "batch failed", slog.String("error", err.Error()))
	}
}
