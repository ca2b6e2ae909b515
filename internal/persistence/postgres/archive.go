// Package postgres archives finalized report runs.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/timereport/internal/report"
)

// ErrRunNotFound is returned when no archived run matches the requested id.
var ErrRunNotFound = errors.New("report run not found")

// Archive stores report runs and their rows in Postgres.
type Archive struct {
	pool *pgxpool.Pool
}

// NewArchive constructs an Archive.
func NewArchive(pool *pgxpool.Pool) *Archive {
	return &Archive{pool: pool}
}

// Connect opens a pool against url and verifies it answers.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open archive pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping archive: %w", err)
	}
	return pool, nil
}

// Save persists the run summary and every table row inside a single transaction.
func (a *Archive) Save(ctx context.Context, summary report.RunSummary, table report.Table) (err error) {
	runID, err := uuid.Parse(summary.RunID)
	if err != nil {
		return fmt.Errorf("run id %q: %w", summary.RunID, err)
	}

	tx, err := a.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	const insertRun = `INSERT INTO report_runs (run_id, started_at, finished_at, persons, row_count, absent, skipped)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	if _, err = tx.Exec(ctx, insertRun,
		runID,
		summary.StartedAt,
		summary.FinishedAt,
		summary.Persons,
		summary.Rows,
		summary.Absent,
		summary.Skipped,
	); err != nil {
		return fmt.Errorf("insert run %s: %w", summary.RunID, err)
	}

	rows := table.Rows()
	source := pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		row := rows[i]
		return []any{
			runID,
			i,
			row.ID,
			row.DisplayName,
			row.Placeholder,
			row.Totals.OnCampus,
			row.Totals.OffCampus,
			row.Totals.SocialPractice,
			row.Totals.Total,
		}, nil
	})
	if _, err = tx.CopyFrom(ctx, pgx.Identifier{"report_rows"}, rowColumns, source); err != nil {
		return fmt.Errorf("copy rows for run %s: %w", summary.RunID, err)
	}

	return tx.Commit(ctx)
}

var rowColumns = []string{"run_id", "position", "person_id", "display_name", "placeholder", "on_campus", "off_campus", "social_practice", "total"}

// Rows loads the archived rows of a run in their original order.
func (a *Archive) Rows(ctx context.Context, id string) ([]report.Row, error) {
	runID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrRunNotFound
	}

	var exists bool
	if err := a.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM report_runs WHERE run_id=$1)`, runID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrRunNotFound
	}

	const query = `SELECT person_id, display_name, placeholder, on_campus, off_campus, social_practice, total
        FROM report_rows WHERE run_id=$1 ORDER BY position`

	rows, err := a.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []report.Row
	for rows.Next() {
		var row report.Row
		if err := rows.Scan(
			&row.ID,
			&row.DisplayName,
			&row.Placeholder,
			&row.Totals.OnCampus,
			&row.Totals.OffCampus,
			&row.Totals.SocialPractice,
			&row.Totals.Total,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
