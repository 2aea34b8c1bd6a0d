package repository

import (
	"context"
	"time"

	"crypto-sentinel/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
)

const createPipelineRunsTable = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
    id             BIGSERIAL   PRIMARY KEY,
    run_id         TEXT        NOT NULL,
    success        BOOLEAN     NOT NULL,
    btc_price_usd  NUMERIC,
    avg_sentiment  DOUBLE PRECISION,
    pct_positive   DOUBLE PRECISION NOT NULL DEFAULT 0,
    pct_negative   DOUBLE PRECISION NOT NULL DEFAULT 0,
    pct_neutral    DOUBLE PRECISION NOT NULL DEFAULT 0,
    post_count     INTEGER     NOT NULL DEFAULT 0,
    report_path    TEXT        NOT NULL DEFAULT '',
    report_url     TEXT        NOT NULL DEFAULT '',
    error          TEXT        NOT NULL DEFAULT '',
    started_at     TIMESTAMPTZ NOT NULL,
    finished_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pipeline_runs_started_at
    ON pipeline_runs (started_at DESC);
`

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// RunRepository stores pipeline run history.
type RunRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewRunRepository(pool PgxPool, tracer trace.Tracer) *RunRepository {
	return &RunRepository{pool: pool, tracer: tracer}
}

func (r *RunRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "run-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createPipelineRunsTable)
	return err
}

// InsertRun stores one run and returns its row id.
func (r *RunRepository) InsertRun(ctx context.Context, run domain.RunRecord) (int64, error) {
	_, span := r.tracer.Start(ctx, "run-repo.insert-run")
	defer span.End()

	price := decimal.NullDecimal{}
	if run.BTCPrice != nil {
		price = decimal.NewNullDecimal(*run.BTCPrice)
	}

	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO pipeline_runs (
		     run_id, success, btc_price_usd, avg_sentiment,
		     pct_positive, pct_negative, pct_neutral, post_count,
		     report_path, report_url, error, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id`,
		run.RunID, run.Success, price, run.AvgSentiment,
		run.PctPositive, run.PctNegative, run.PctNeutral, run.PostCount,
		run.ReportPath, run.ReportURL, run.Error, run.StartedAt.UTC(), run.FinishedAt.UTC(),
	).Scan(&id)
	return id, err
}

// ListRuns returns the most recent runs, newest first.
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	_, span := r.tracer.Start(ctx, "run-repo.list-runs")
	defer span.End()

	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, run_id, success, btc_price_usd, avg_sentiment,
		        pct_positive, pct_negative, pct_neutral, post_count,
		        report_path, report_url, error, started_at, finished_at
		 FROM pipeline_runs
		 ORDER BY started_at DESC, id DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.RunRecord
	for rows.Next() {
		var (
			rec      domain.RunRecord
			price    decimal.NullDecimal
			avg      *float64
			started  time.Time
			finished time.Time
		)
		if err := rows.Scan(
			&rec.ID, &rec.RunID, &rec.Success, &price, &avg,
			&rec.PctPositive, &rec.PctNegative, &rec.PctNeutral, &rec.PostCount,
			&rec.ReportPath, &rec.ReportURL, &rec.Error, &started, &finished,
		); err != nil {
			return nil, err
		}
		if price.Valid {
			p := price.Decimal
			rec.BTCPrice = &p
		}
		rec.AvgSentiment = avg
		rec.StartedAt = started.UTC()
		rec.FinishedAt = finished.UTC()
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}
