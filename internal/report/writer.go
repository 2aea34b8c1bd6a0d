package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"crypto-sentinel/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Writer stores reports as CSV files under a directory.
type Writer struct {
	tracer trace.Tracer
	dir    string
}

func NewWriter(tracer trace.Tracer, dir string) *Writer {
	return &Writer{tracer: tracer, dir: dir}
}

// Write creates the directory if needed and publishes the report
// atomically: rows go to a temp file in the same directory which is synced
// and renamed into place. On any failure the temp file is removed and the
// error wraps domain.ErrIOFailure.
func (w *Writer) Write(ctx context.Context, report domain.Report) (string, error) {
	_, span := w.tracer.Start(ctx, "report.write")
	defer span.End()

	path, err := w.write(report)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.String("path", path), attribute.Int("rows", len(report.Rows)+1))
	return path, nil
}

func (w *Writer) write(report domain.Report) (path string, err error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", ioFailure("create reports dir", err)
	}

	tmp, err := os.CreateTemp(w.dir, ".report-*.csv.tmp")
	if err != nil {
		return "", ioFailure("create temp file", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	cw := csv.NewWriter(tmp)
	if err := cw.Write(Header); err != nil {
		return "", ioFailure("write header", err)
	}
	for _, row := range report.Rows {
		if err := cw.Write(record(row)); err != nil {
			return "", ioFailure("write row", err)
		}
	}
	if err := cw.Write(record(report.Summary)); err != nil {
		return "", ioFailure("write summary", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", ioFailure("flush", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", ioFailure("sync", err)
	}
	if err := tmp.Close(); err != nil {
		return "", ioFailure("close", err)
	}

	path = filepath.Join(w.dir, report.Filename())
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", ioFailure("publish", err)
	}
	committed = true
	return path, nil
}

func ioFailure(op string, err error) error {
	return fmt.Errorf("report: %w: %s: %v", domain.ErrIOFailure, op, err)
}
