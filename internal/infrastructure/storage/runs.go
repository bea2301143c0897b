package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/ports"
)

// RunRepository persists digest run history.
type RunRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.RunRepository = (*RunRepository)(nil)

// NewRunRepository wires a sql.DB implementation.
func NewRunRepository(db *sql.DB, driver string) *RunRepository {
	return &RunRepository{db: db, sb: builder(driver)}
}

// SaveRun appends one run record.
func (r *RunRepository) SaveRun(ctx context.Context, run domain.RunRecord) error {
	if r.db == nil {
		return nil
	}

	total := 0
	for _, n := range run.Counts {
		total += n
	}

	query, args, err := r.sb.
		Insert(runsTable).
		Columns("started_at", "discussion_count", "paper_count", "news_count", "total_items",
			"email_sent", "recipients_count", "failed_batches", "status", "error_message", "duration_ms").
		Values(run.StartedAt.UTC(),
			run.Counts[domain.SourceDiscussion],
			run.Counts[domain.SourcePaper],
			run.Counts[domain.SourceNews],
			total,
			run.EmailSent,
			run.RecipientsCount,
			run.FailedBatches,
			string(run.Status),
			run.ErrorMessage,
			run.Duration.Milliseconds()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build run insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (r *RunRepository) Recent(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if r.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	query, args, err := r.sb.
		Select("started_at", "discussion_count", "paper_count", "news_count",
			"email_sent", "recipients_count", "failed_batches", "status", "error_message", "duration_ms").
		From(runsTable).
		OrderBy("started_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build run query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []domain.RunRecord
	for rows.Next() {
		var (
			rec                     domain.RunRecord
			discussion, paper, news int
			status                  string
			durationMS              int64
		)
		if err := rows.Scan(&rec.StartedAt, &discussion, &paper, &news, &rec.EmailSent,
			&rec.RecipientsCount, &rec.FailedBatches, &status, &rec.ErrorMessage, &durationMS); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.Counts = map[domain.SourceType]int{
			domain.SourceDiscussion: discussion,
			domain.SourcePaper:      paper,
			domain.SourceNews:       news,
		}
		rec.Status = domain.RunStatus(status)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}
