package batchfile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/publishing-store/internal/domain"
)

// decodeWorkers bounds how many batch files are decoded at once.
const decodeWorkers = 4

// Publisher commits one batch and returns its change report.
type Publisher interface {
	Publish(ctx context.Context, batch domain.VariantBatch) (*domain.ChangeReport, error)
}

// Result holds publish statistics.
type Result struct {
	FilesProcessed int
	Published      int
	Errors         int
	ItemChanges    int
	FieldChanges   int
}

// Run publishes every batch file named by paths. A directory stands for the
// *.json files directly inside it. Files are decoded in parallel and
// published one at a time in path order, each in its own transaction.
// A failing file is logged and counted and the rest still run.
// When reportDir is set the change report of each published file is written
// there as <name>.report.json.
func Run(ctx context.Context, paths []string, reportDir string, pub Publisher, log *slog.Logger) (Result, error) {
	files, err := expand(paths)
	if err != nil {
		return Result{}, err
	}

	if reportDir != "" {
		if err := os.MkdirAll(reportDir, 0o755); err != nil {
			return Result{}, fmt.Errorf("create report dir: %w", err)
		}
	}

	decoded, err := readAll(ctx, files)
	if err != nil {
		return Result{}, err
	}

	var result Result
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.FilesProcessed++

		if decoded[i].err != nil {
			log.Error("read batch", slog.String("path", path), slog.String("error", decoded[i].err.Error()))
			result.Errors++
			continue
		}

		report, err := pub.Publish(ctx, decoded[i].batch)
		if err != nil {
			log.Error("publish batch", slog.String("path", path), slog.String("error", err.Error()))
			result.Errors++
			continue
		}

		result.Published++
		items, fields := report.Count()
		result.ItemChanges += items
		result.FieldChanges += fields

		if reportDir == "" {
			continue
		}
		out := filepath.Join(reportDir, strings.TrimSuffix(filepath.Base(path), ".json")+".report.json")
		if err := WriteReport(out, report); err != nil {
			return result, err
		}
	}

	log.Info("batch files processed",
		slog.Int("files", result.FilesProcessed),
		slog.Int("published", result.Published),
		slog.Int("errors", result.Errors),
		slog.Int("item_changes", result.ItemChanges),
		slog.Int("field_changes", result.FieldChanges),
	)

	return result, nil
}

type decodedFile struct {
	batch domain.VariantBatch
	err   error
}

// readAll decodes files concurrently. A file that fails to decode keeps its
// error in its slot; only context cancellation aborts the whole read.
func readAll(ctx context.Context, files []string) ([]decodedFile, error) {
	decoded := make([]decodedFile, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(decodeWorkers)

	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			batch, err := ReadBatch(path)
			decoded[i] = decodedFile{batch: batch, err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("read batch files: %w", err)
	}
	return decoded, nil
}

func expand(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(p, "*.json"))
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", p, err)
		}
		for _, m := range matches {
			if !strings.HasSuffix(m, ".report.json") {
				files = append(files, m)
			}
		}
	}
	return files, nil
}

// ReadBatch decodes the batch file at path. Unknown keys are rejected.
func ReadBatch(path string) (domain.VariantBatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.VariantBatch{}, fmt.Errorf("read %s: %w", path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var f BatchFile
	if err := dec.Decode(&f); err != nil {
		return domain.VariantBatch{}, fmt.Errorf("decode %s: %w", path, err)
	}

	return ToBatch(f), nil
}

// WriteReport writes report to path as indented JSON.
func WriteReport(path string, report *domain.ChangeReport) error {
	data, err := json.MarshalIndent(FromReport(report), "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
