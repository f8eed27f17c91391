// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reading

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taibuivan/tikkun/internal/platform/database/schema"
	"github.com/taibuivan/tikkun/internal/platform/dberr"
	"github.com/taibuivan/tikkun/internal/platform/sqlite"
	"github.com/taibuivan/tikkun/pkg/pointer"
)

// SQLiteSchema is the idempotent schema applied when the embedded store opens.
//
//go:embed schema_sqlite.sql
var SQLiteSchema string

// sqliteTimeLayout is fixed width and always UTC, so text comparison orders timestamps.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// sqlQuerier is satisfied by both [*sql.DB] and [*sql.Tx].
type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// # SQLite Repository

// sqliteRepository implements [Repository] on the embedded database.
//
// The connection pool holds a single connection and transactions begin
// IMMEDIATE (see [sqlite.Open]), so every transaction is a serialized writer.
type sqliteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository constructs a store on a database opened with [sqlite.Open]
// and [SQLiteSchema].
func NewSQLiteRepository(db *sql.DB) Repository {
	return &sqliteRepository{db: db}
}

// # Requests

func (repository *sqliteRepository) CreateRequest(context context.Context, request *Request, chapters []*Chapter) error {
	transaction, err := repository.db.BeginTx(context, nil)
	if err != nil {
		return fmt.Errorf("sqlite: failed to begin transaction: %w", err)
	}
	defer transaction.Rollback()

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		schema.ReadingRequest.Table, strings.Join(schema.ReadingRequest.Columns(), ", "))

	_, err = transaction.ExecContext(context, query,
		request.ID,
		request.Name,
		request.NameFolded,
		request.Purpose,
		request.Notes,
		request.CycleCount,
		formatTime(request.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to create request: %w", err)
	}

	statement, err := transaction.PrepareContext(context, fmt.Sprintf(
		`INSERT INTO %s (id, request_id, position, number, status) VALUES (?, ?, ?, ?, ?)`,
		schema.ReadingChapter.Table))
	if err != nil {
		return fmt.Errorf("sqlite: failed to prepare chapter insert: %w", err)
	}
	defer statement.Close()

	for position, chapter := range chapters {
		if _, err := statement.ExecContext(context, chapter.ID, chapter.RequestID, position, chapter.Number, string(chapter.Status)); err != nil {
			return fmt.Errorf("sqlite: failed to create chapter: %w", err)
		}
	}

	if err := transaction.Commit(); err != nil {
		return fmt.Errorf("sqlite: failed to commit create transaction: %w", err)
	}

	return nil
}

func (repository *sqliteRepository) ListRequests(context context.Context, filter RequestFilter) ([]*RequestSummary, error) {
	var queryBuilder strings.Builder
	var args []any

	queryBuilder.WriteString(fmt.Sprintf(`
		SELECT
			r.id, r.name, r.purpose, r.notes, r.cycle_count, r.created_at,
			COUNT(c.id) AS total_chapters,
			COALESCE(SUM(CASE WHEN c.status = 'read' THEN 1 ELSE 0 END), 0) AS read_chapters
		FROM %s r
		LEFT JOIN %s c ON c.request_id = r.id
	`, schema.ReadingRequest.Table, schema.ReadingChapter.Table))

	if filter.NameFolded != "" {
		queryBuilder.WriteString(` WHERE r.name_folded LIKE ? ESCAPE '\'`)
		args = append(args, likeContains(filter.NameFolded))
	}

	queryBuilder.WriteString(" GROUP BY r.id ORDER BY r.created_at DESC, r.id DESC")

	rows, err := repository.db.QueryContext(context, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list requests: %w", err)
	}
	defer rows.Close()

	summaries := []*RequestSummary{}
	for rows.Next() {
		var summary RequestSummary
		var createdAt string

		if err := rows.Scan(
			&summary.ID,
			&summary.Name,
			&summary.Purpose,
			&summary.Notes,
			&summary.CycleCount,
			&createdAt,
			&summary.TotalChapters,
			&summary.ReadChapters,
		); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan request: %w", err)
		}

		if summary.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, &summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate requests: %w", err)
	}

	return summaries, nil
}

func (repository *sqliteRepository) FindRequest(context context.Context, id string) (*Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`,
		strings.Join(schema.ReadingRequest.Columns(), ", "), schema.ReadingRequest.Table)

	var request Request
	var createdAt string

	err := repository.db.QueryRowContext(context, query, id).Scan(
		&request.ID,
		&request.Name,
		&request.NameFolded,
		&request.Purpose,
		&request.Notes,
		&request.CycleCount,
		&createdAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "sqlite: find request", errRequestNotFound())
	}

	if request.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}

	rows, err := repository.db.QueryContext(context,
		fmt.Sprintf(`SELECT number FROM %s WHERE request_id = ? ORDER BY position`, schema.ReadingChapter.Table), id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to load chapter indices: %w", err)
	}
	defer rows.Close()

	request.ChapterIndices = []int{}
	for rows.Next() {
		var number int
		if err := rows.Scan(&number); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan chapter index: %w", err)
		}
		request.ChapterIndices = append(request.ChapterIndices, number)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate chapter indices: %w", err)
	}

	return &request, nil
}

func (repository *sqliteRepository) DeleteRequest(context context.Context, id string) error {
	transaction, err := repository.db.BeginTx(context, nil)
	if err != nil {
		return fmt.Errorf("sqlite: failed to begin transaction: %w", err)
	}
	defer transaction.Rollback()

	if _, err := transaction.ExecContext(context,
		fmt.Sprintf(`DELETE FROM %s WHERE request_id = ?`, schema.ReadingChapter.Table), id); err != nil {
		return fmt.Errorf("sqlite: failed to delete chapters: %w", err)
	}

	result, err := transaction.ExecContext(context,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, schema.ReadingRequest.Table), id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to delete request: %w", err)
	}

	if affected, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("sqlite: failed to read affected rows: %w", err)
	} else if affected == 0 {
		return errRequestNotFound()
	}

	if err := transaction.Commit(); err != nil {
		return fmt.Errorf("sqlite: failed to commit delete transaction: %w", err)
	}

	return nil
}

// # Chapters

func (repository *sqliteRepository) FindChapter(context context.Context, id string) (*Chapter, error) {
	chapter, err := scanSQLiteChapter(repository.db.QueryRowContext(context, selectChapter+` WHERE id = ?`, id))
	if err != nil {
		return nil, dberr.Wrap(err, "sqlite: find chapter", errChapterNotFound())
	}
	return chapter, nil
}

func (repository *sqliteRepository) FindEligibleChapter(context context.Context, requestID string, staleBefore time.Time) (*Chapter, error) {
	query := selectChapter + `
		WHERE request_id = ?
		  AND status <> 'read'
		  AND (locked_at IS NULL OR locked_at <= ?)
		ORDER BY number, id
		LIMIT 1`

	chapter, err := scanSQLiteChapter(repository.db.QueryRowContext(context, query, requestID, formatTime(staleBefore)))
	if dberr.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to find eligible chapter: %w", err)
	}

	return chapter, nil
}

func (repository *sqliteRepository) LockChapter(context context.Context, chapterID, anonID string, now, staleBefore time.Time) (*Chapter, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		   SET status = 'in-progress', locked_by = ?, locked_at = ?
		 WHERE id = ?
		   AND status <> 'read'
		   AND (locked_at IS NULL OR locked_at <= ?)
		RETURNING %s
	`, schema.ReadingChapter.Table, chapterColumns)

	chapter, err := scanSQLiteChapter(repository.db.QueryRowContext(context, query,
		anonID, formatTime(now), chapterID, formatTime(staleBefore)))
	if dberr.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to lock chapter: %w", err)
	}

	return chapter, nil
}

func (repository *sqliteRepository) ReleaseChapter(context context.Context, chapterID, anonID string) (*Chapter, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		   SET status = 'released', locked_by = NULL, locked_at = NULL
		 WHERE id = ? AND status = 'in-progress' AND locked_by = ?
		RETURNING %s
	`, schema.ReadingChapter.Table, chapterColumns)

	chapter, err := scanSQLiteChapter(repository.db.QueryRowContext(context, query, chapterID, anonID))
	if err == nil {
		return chapter, nil
	}
	if !dberr.IsNoRows(err) {
		return nil, fmt.Errorf("sqlite: failed to release chapter: %w", err)
	}

	if _, err := repository.FindChapter(context, chapterID); err != nil {
		return nil, err
	}
	return nil, errNotLockHolder()
}

// CompleteChapter mirrors the PostgreSQL flow; the IMMEDIATE transaction
// already excludes every other writer, so no row lock is taken.
func (repository *sqliteRepository) CompleteChapter(context context.Context, params CompleteParams) (*Completion, error) {
	transaction, err := repository.db.BeginTx(context, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to begin transaction: %w", err)
	}
	defer transaction.Rollback()

	chapter, err := scanSQLiteChapter(transaction.QueryRowContext(context, selectChapter+` WHERE id = ?`, params.ChapterID))
	if err != nil {
		return nil, dberr.Wrap(err, "sqlite: load chapter", errChapterNotFound())
	}

	var cycleCount int
	err = transaction.QueryRowContext(context,
		fmt.Sprintf(`SELECT cycle_count FROM %s WHERE id = ?`, schema.ReadingRequest.Table),
		chapter.RequestID,
	).Scan(&cycleCount)
	if err != nil {
		return nil, dberr.Wrap(err, "sqlite: load request", errRequestNotFound())
	}

	completion := &Completion{RequestID: chapter.RequestID, CycleCount: cycleCount}

	outcome, err := resolveCompletion(chapter, params.AnonID, cycleCount)
	if err != nil {
		return nil, err
	}
	if outcome != OutcomeCompleted {
		completion.Outcome = outcome
		return completion, nil
	}

	result, err := transaction.ExecContext(context, fmt.Sprintf(`
		UPDATE %s
		   SET status = 'read', read_by = ?, read_at = ?, read_cycle = ?, locked_by = NULL, locked_at = NULL
		 WHERE id = ? AND status = 'in-progress' AND locked_by = ?
	`, schema.ReadingChapter.Table), params.AnonID, formatTime(params.Now), cycleCount, params.ChapterID, params.AnonID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to complete chapter: %w", err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to read affected rows: %w", err)
	} else if affected == 0 {
		// Unreachable while the transaction excludes other writers.
		return nil, errNotLockHolder()
	}

	if err := sqliteRecordRead(context, transaction, params); err != nil {
		return nil, err
	}

	var remaining int64
	err = transaction.QueryRowContext(context,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE request_id = ? AND status <> 'read'`, schema.ReadingChapter.Table),
		chapter.RequestID,
	).Scan(&remaining)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to count unread chapters: %w", err)
	}

	if remaining == 0 {
		if completion.CycleCount, err = sqliteResetPool(context, transaction, chapter.RequestID); err != nil {
			return nil, err
		}
		completion.CycleCompleted = true
	}

	if err := transaction.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to commit completion: %w", err)
	}

	completion.Outcome = OutcomeCompleted
	return completion, nil
}

func (repository *sqliteRepository) ResetCycle(context context.Context, requestID string, staleBefore time.Time) (int, bool, error) {
	transaction, err := repository.db.BeginTx(context, nil)
	if err != nil {
		return 0, false, fmt.Errorf("sqlite: failed to begin transaction: %w", err)
	}
	defer transaction.Rollback()

	var cycleCount int
	err = transaction.QueryRowContext(context,
		fmt.Sprintf(`SELECT cycle_count FROM %s WHERE id = ?`, schema.ReadingRequest.Table),
		requestID,
	).Scan(&cycleCount)
	if err != nil {
		return 0, false, dberr.Wrap(err, "sqlite: load request", errRequestNotFound())
	}

	var eligible bool
	err = transaction.QueryRowContext(context, fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM %s
			 WHERE request_id = ?
			   AND status <> 'read'
			   AND (locked_at IS NULL OR locked_at <= ?)
		)`, schema.ReadingChapter.Table), requestID, formatTime(staleBefore)).Scan(&eligible)
	if err != nil {
		return 0, false, fmt.Errorf("sqlite: failed to check eligible chapters: %w", err)
	}
	if eligible {
		return cycleCount, false, nil
	}

	if cycleCount, err = sqliteResetPool(context, transaction, requestID); err != nil {
		return 0, false, err
	}

	if err := transaction.Commit(); err != nil {
		return 0, false, fmt.Errorf("sqlite: failed to commit cycle reset: %w", err)
	}

	return cycleCount, true, nil
}

// # Statistics

func (repository *sqliteRepository) StatsSnapshot(context context.Context) (*StatsSnapshot, error) {
	query := fmt.Sprintf(`
		SELECT
			(SELECT COUNT(*) FROM %[1]s),
			(SELECT COALESCE(SUM(cycle_count), 0) FROM %[1]s),
			(SELECT COUNT(*) FROM %[2]s),
			c.total, c.today_count, c.today_date
		FROM %[3]s c
		WHERE c.id = ?
	`, schema.ReadingRequest.Table, schema.ReadingParticipant.Table, schema.ReadingCounter.Table)

	var snapshot StatsSnapshot
	err := repository.db.QueryRowContext(context, query, schema.ReadingCounterRowID).Scan(
		&snapshot.TotalRequests,
		&snapshot.TotalCyclesCompleted,
		&snapshot.TotalParticipants,
		&snapshot.TotalChaptersRead,
		&snapshot.TodayCount,
		&snapshot.TodayDate,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to load stats: %w", err)
	}

	return &snapshot, nil
}

func (repository *sqliteRepository) Ping(context context.Context) error {
	return sqlite.Ping(context, repository.db)
}

// # Transaction Helpers

func sqliteRecordRead(context context.Context, querier sqlQuerier, params CompleteParams) error {
	result, err := querier.ExecContext(context, fmt.Sprintf(`
		UPDATE %s
		   SET total = total + 1,
		       today_count = CASE WHEN today_date = ? THEN today_count + 1 ELSE 1 END,
		       today_date = ?
		 WHERE id = ?
	`, schema.ReadingCounter.Table), params.Today, params.Today, schema.ReadingCounterRowID)
	if err != nil {
		return fmt.Errorf("sqlite: failed to update read counter: %w", err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("sqlite: failed to read affected rows: %w", err)
	} else if affected == 0 {
		return errors.New("sqlite: read counter row is missing")
	}

	_, err = querier.ExecContext(context, fmt.Sprintf(`
		INSERT INTO %s (anon_id, first_read_at) VALUES (?, ?)
		ON CONFLICT (anon_id) DO NOTHING
	`, schema.ReadingParticipant.Table), params.AnonID, formatTime(params.Now))
	if err != nil {
		return fmt.Errorf("sqlite: failed to record participant: %w", err)
	}

	return nil
}

func sqliteResetPool(context context.Context, querier sqlQuerier, requestID string) (int, error) {
	_, err := querier.ExecContext(context, fmt.Sprintf(`
		UPDATE %s
		   SET status = 'unread', locked_by = NULL, locked_at = NULL
		 WHERE request_id = ?
	`, schema.ReadingChapter.Table), requestID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: failed to reset chapters: %w", err)
	}

	var cycleCount int
	err = querier.QueryRowContext(context, fmt.Sprintf(`
		UPDATE %s SET cycle_count = cycle_count + 1 WHERE id = ? RETURNING cycle_count
	`, schema.ReadingRequest.Table), requestID).Scan(&cycleCount)
	if err != nil {
		return 0, dberr.Wrap(err, "sqlite: increment cycle", errRequestNotFound())
	}

	return cycleCount, nil
}

// scanSQLiteChapter maps one chapter row, parsing the text timestamps.
func scanSQLiteChapter(row *sql.Row) (*Chapter, error) {
	var chapter Chapter
	var status string
	var lockedBy, lockedAt, readBy, readAt sql.NullString
	var readCycle sql.NullInt64

	if err := row.Scan(
		&chapter.ID,
		&chapter.RequestID,
		&chapter.Number,
		&status,
		&lockedBy,
		&lockedAt,
		&readBy,
		&readAt,
		&readCycle,
	); err != nil {
		return nil, err
	}

	chapter.Status = Status(status)
	chapter.LockedBy = nullableString(lockedBy)
	chapter.ReadBy = nullableString(readBy)
	if readCycle.Valid {
		chapter.ReadCycle = pointer.To(int(readCycle.Int64))
	}

	var err error
	if chapter.LockedAt, err = parseNullableTime(lockedAt); err != nil {
		return nil, err
	}
	if chapter.ReadAt, err = parseNullableTime(readAt); err != nil {
		return nil, err
	}

	return &chapter, nil
}

// formatTime formats a time.Time for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

// parseTime parses a stored timestamp back to time.Time.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return pointer.To(s.String)
}
