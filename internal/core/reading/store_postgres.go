// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reading

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/tikkun/internal/platform/database/schema"
	"github.com/taibuivan/tikkun/internal/platform/dberr"
	"github.com/taibuivan/tikkun/internal/platform/postgres"
)

// pgQuerier is satisfied by both [*pgxpool.Pool] and [pgx.Tx].
type pgQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	chapterColumns = strings.Join(schema.ReadingChapter.Columns(), ", ")
	selectChapter  = fmt.Sprintf("SELECT %s FROM %s", chapterColumns, schema.ReadingChapter.Table)
)

// # PostgreSQL Repository

// postgresRepository implements [Repository] using pgx.
type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed reading store.
func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

// # Requests

/*
CreateRequest inserts the request row and queues one chapter insert per index
in a single batch, inside one transaction.
*/
func (repository *postgresRepository) CreateRequest(context context.Context, request *Request, chapters []*Chapter) error {

	// Transaction Context Instantiation
	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return fmt.Errorf("postgres: failed to begin transaction: %w", err)
	}
	defer transaction.Rollback(context)

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, schema.ReadingRequest.Table, strings.Join(schema.ReadingRequest.Columns(), ", "))

	_, err = transaction.Exec(context, query,
		request.ID,
		request.Name,
		request.NameFolded,
		request.Purpose,
		request.Notes,
		request.CycleCount,
		request.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to create request: %w", err)
	}

	// Chapter materialization (one row per index, position keeps the original order)
	insertChapter := fmt.Sprintf(`
		INSERT INTO %s (id, request_id, position, number, status)
		VALUES ($1, $2, $3, $4, $5)
	`, schema.ReadingChapter.Table)

	batch := &pgx.Batch{}
	for position, chapter := range chapters {
		batch.Queue(insertChapter, chapter.ID, chapter.RequestID, position, chapter.Number, string(chapter.Status))
	}

	if err := transaction.SendBatch(context, batch).Close(); err != nil {
		return fmt.Errorf("postgres: failed to create chapters: %w", err)
	}

	if err := transaction.Commit(context); err != nil {
		return fmt.Errorf("postgres: failed to commit create transaction: %w", err)
	}

	return nil
}

/*
ListRequests aggregates per-request progress with a LEFT JOIN so requests
without chapters still appear.

Search uses LIKE on the folded name column; wildcard characters in the
needle are escaped.
*/
func (repository *postgresRepository) ListRequests(context context.Context, filter RequestFilter) ([]*RequestSummary, error) {
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

	// Folded substring filter
	if filter.NameFolded != "" {
		queryBuilder.WriteString(` WHERE r.name_folded LIKE $1 ESCAPE '\'`)
		args = append(args, likeContains(filter.NameFolded))
	}

	queryBuilder.WriteString(" GROUP BY r.id ORDER BY r.created_at DESC, r.id DESC")

	rows, err := repository.pool.Query(context, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list requests: %w", err)
	}
	defer rows.Close()

	summaries := []*RequestSummary{}
	for rows.Next() {
		var summary RequestSummary
		var total, read int64

		if err := rows.Scan(
			&summary.ID,
			&summary.Name,
			&summary.Purpose,
			&summary.Notes,
			&summary.CycleCount,
			&summary.CreatedAt,
			&total,
			&read,
		); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan request: %w", err)
		}

		summary.TotalChapters = int(total)
		summary.ReadChapters = int(read)
		summaries = append(summaries, &summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate requests: %w", err)
	}

	return summaries, nil
}

// FindRequest loads the request row and its chapter numbers ordered by position.
func (repository *postgresRepository) FindRequest(context context.Context, id string) (*Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`,
		strings.Join(schema.ReadingRequest.Columns(), ", "), schema.ReadingRequest.Table)

	var request Request
	err := repository.pool.QueryRow(context, query, id).Scan(
		&request.ID,
		&request.Name,
		&request.NameFolded,
		&request.Purpose,
		&request.Notes,
		&request.CycleCount,
		&request.CreatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "postgres: find request", errRequestNotFound())
	}

	indices, err := repository.chapterIndices(context, id)
	if err != nil {
		return nil, err
	}
	request.ChapterIndices = indices

	return &request, nil
}

func (repository *postgresRepository) chapterIndices(context context.Context, requestID string) ([]int, error) {
	query := fmt.Sprintf(`SELECT number FROM %s WHERE request_id = $1 ORDER BY position`, schema.ReadingChapter.Table)

	rows, err := repository.pool.Query(context, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to load chapter indices: %w", err)
	}

	indices, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to scan chapter indices: %w", err)
	}

	return indices, nil
}

// DeleteRequest removes children before the parent in one transaction.
func (repository *postgresRepository) DeleteRequest(context context.Context, id string) error {
	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return fmt.Errorf("postgres: failed to begin transaction: %w", err)
	}
	defer transaction.Rollback(context)

	if _, err := transaction.Exec(context,
		fmt.Sprintf(`DELETE FROM %s WHERE request_id = $1`, schema.ReadingChapter.Table), id); err != nil {
		return fmt.Errorf("postgres: failed to delete chapters: %w", err)
	}

	tag, err := transaction.Exec(context,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, schema.ReadingRequest.Table), id)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete request: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return errRequestNotFound()
	}

	if err := transaction.Commit(context); err != nil {
		return fmt.Errorf("postgres: failed to commit delete transaction: %w", err)
	}

	return nil
}

// # Chapters

func (repository *postgresRepository) FindChapter(context context.Context, id string) (*Chapter, error) {
	chapter, err := scanPgChapter(repository.pool.QueryRow(context, selectChapter+` WHERE id = $1`, id))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres: find chapter", errChapterNotFound())
	}
	return chapter, nil
}

func (repository *postgresRepository) FindEligibleChapter(context context.Context, requestID string, staleBefore time.Time) (*Chapter, error) {
	query := selectChapter + `
		WHERE request_id = $1
		  AND status <> 'read'
		  AND (locked_at IS NULL OR locked_at <= $2)
		ORDER BY number, id
		LIMIT 1`

	chapter, err := scanPgChapter(repository.pool.QueryRow(context, query, requestID, staleBefore))
	if dberr.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to find eligible chapter: %w", err)
	}

	return chapter, nil
}

/*
LockChapter is the compare-and-set of allocation: the WHERE clause repeats the
eligibility predicate, so under READ COMMITTED a concurrent winner makes this
update match zero rows instead of overwriting the lock.
*/
func (repository *postgresRepository) LockChapter(context context.Context, chapterID, anonID string, now, staleBefore time.Time) (*Chapter, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		   SET status = 'in-progress', locked_by = $2, locked_at = $3
		 WHERE id = $1
		   AND status <> 'read'
		   AND (locked_at IS NULL OR locked_at <= $4)
		RETURNING %s
	`, schema.ReadingChapter.Table, chapterColumns)

	chapter, err := scanPgChapter(repository.pool.QueryRow(context, query, chapterID, anonID, now, staleBefore))
	if dberr.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to lock chapter: %w", err)
	}

	return chapter, nil
}

func (repository *postgresRepository) ReleaseChapter(context context.Context, chapterID, anonID string) (*Chapter, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		   SET status = 'released', locked_by = NULL, locked_at = NULL
		 WHERE id = $1 AND status = 'in-progress' AND locked_by = $2
		RETURNING %s
	`, schema.ReadingChapter.Table, chapterColumns)

	chapter, err := scanPgChapter(repository.pool.QueryRow(context, query, chapterID, anonID))
	if err == nil {
		return chapter, nil
	}
	if !dberr.IsNoRows(err) {
		return nil, fmt.Errorf("postgres: failed to release chapter: %w", err)
	}

	// Nothing matched: tell a missing chapter apart from someone else's
	if _, err := repository.FindChapter(context, chapterID); err != nil {
		return nil, err
	}
	return nil, errNotLockHolder()
}

/*
CompleteChapter runs the whole completion in one transaction.

# Flow
 1. Resolve the chapter's request and lock the request row (FOR UPDATE), which
    serializes completions and forced resets of the same request.
 2. Decide the outcome from the chapter state; only a holder's completion writes.
 3. Conditionally mark the chapter read, bump the counter, add the participant.
 4. If no unread chapter remains, reset the pool and increment the cycle count.
*/
func (repository *postgresRepository) CompleteChapter(context context.Context, params CompleteParams) (*Completion, error) {
	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to begin transaction: %w", err)
	}
	defer transaction.Rollback(context)

	// 1. Request lock
	var requestID string
	err = transaction.QueryRow(context,
		fmt.Sprintf(`SELECT request_id FROM %s WHERE id = $1`, schema.ReadingChapter.Table),
		params.ChapterID,
	).Scan(&requestID)
	if err != nil {
		return nil, dberr.Wrap(err, "postgres: resolve chapter request", errChapterNotFound())
	}

	cycleCount, err := pgLockRequest(context, transaction, requestID)
	if err != nil {
		return nil, err
	}

	// 2. Outcome
	chapter, err := scanPgChapter(transaction.QueryRow(context, selectChapter+` WHERE id = $1`, params.ChapterID))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres: load chapter", errChapterNotFound())
	}

	completion := &Completion{RequestID: requestID, CycleCount: cycleCount}

	outcome, err := resolveCompletion(chapter, params.AnonID, cycleCount)
	if err != nil {
		return nil, err
	}
	if outcome != OutcomeCompleted {
		completion.Outcome = outcome
		return completion, nil
	}

	// 3. Conditional transition
	tag, err := transaction.Exec(context, fmt.Sprintf(`
		UPDATE %s
		   SET status = 'read', read_by = $2, read_at = $3, read_cycle = $4, locked_by = NULL, locked_at = NULL
		 WHERE id = $1 AND status = 'in-progress' AND locked_by = $2
	`, schema.ReadingChapter.Table), params.ChapterID, params.AnonID, params.Now, cycleCount)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to complete chapter: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// The lock expired and was reclaimed between load and update; re-evaluate once.
		reloaded, err := scanPgChapter(transaction.QueryRow(context, selectChapter+` WHERE id = $1`, params.ChapterID))
		if err != nil {
			return nil, dberr.Wrap(err, "postgres: reload chapter", errChapterNotFound())
		}
		outcome, err := resolveCompletion(reloaded, params.AnonID, cycleCount)
		if err != nil {
			return nil, err
		}
		if outcome == OutcomeCompleted {
			return nil, errNotLockHolder()
		}
		completion.Outcome = outcome
		return completion, nil
	}

	if err := pgRecordRead(context, transaction, params); err != nil {
		return nil, err
	}

	// 4. Cycle rollover
	var remaining int64
	err = transaction.QueryRow(context,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE request_id = $1 AND status <> 'read'`, schema.ReadingChapter.Table),
		requestID,
	).Scan(&remaining)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to count unread chapters: %w", err)
	}

	if remaining == 0 {
		if completion.CycleCount, err = pgResetPool(context, transaction, requestID); err != nil {
			return nil, err
		}
		completion.CycleCompleted = true
	}

	if err := transaction.Commit(context); err != nil {
		return nil, fmt.Errorf("postgres: failed to commit completion: %w", err)
	}

	completion.Outcome = OutcomeCompleted
	return completion, nil
}

func (repository *postgresRepository) ResetCycle(context context.Context, requestID string, staleBefore time.Time) (int, bool, error) {
	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return 0, false, fmt.Errorf("postgres: failed to begin transaction: %w", err)
	}
	defer transaction.Rollback(context)

	cycleCount, err := pgLockRequest(context, transaction, requestID)
	if err != nil {
		return 0, false, err
	}

	// Another caller may have reset or released in the meantime
	var eligible bool
	err = transaction.QueryRow(context, fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM %s
			 WHERE request_id = $1
			   AND status <> 'read'
			   AND (locked_at IS NULL OR locked_at <= $2)
		)`, schema.ReadingChapter.Table), requestID, staleBefore).Scan(&eligible)
	if err != nil {
		return 0, false, fmt.Errorf("postgres: failed to check eligible chapters: %w", err)
	}
	if eligible {
		return cycleCount, false, nil
	}

	if cycleCount, err = pgResetPool(context, transaction, requestID); err != nil {
		return 0, false, err
	}

	if err := transaction.Commit(context); err != nil {
		return 0, false, fmt.Errorf("postgres: failed to commit cycle reset: %w", err)
	}

	return cycleCount, true, nil
}

// # Statistics

func (repository *postgresRepository) StatsSnapshot(context context.Context) (*StatsSnapshot, error) {
	query := fmt.Sprintf(`
		SELECT
			(SELECT COUNT(*) FROM %[1]s),
			(SELECT COALESCE(SUM(cycle_count), 0) FROM %[1]s),
			(SELECT COUNT(*) FROM %[2]s),
			c.total, c.today_count, c.today_date
		FROM %[3]s c
		WHERE c.id = $1
	`, schema.ReadingRequest.Table, schema.ReadingParticipant.Table, schema.ReadingCounter.Table)

	var snapshot StatsSnapshot
	err := repository.pool.QueryRow(context, query, schema.ReadingCounterRowID).Scan(
		&snapshot.TotalRequests,
		&snapshot.TotalCyclesCompleted,
		&snapshot.TotalParticipants,
		&snapshot.TotalChaptersRead,
		&snapshot.TodayCount,
		&snapshot.TodayDate,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to load stats: %w", err)
	}

	return &snapshot, nil
}

func (repository *postgresRepository) Ping(context context.Context) error {
	return postgres.Ping(context, repository.pool)
}

// # Transaction Helpers

// pgLockRequest takes the row lock on the request and returns its cycle count.
func pgLockRequest(context context.Context, querier pgQuerier, requestID string) (int, error) {
	var cycleCount int
	err := querier.QueryRow(context,
		fmt.Sprintf(`SELECT cycle_count FROM %s WHERE id = $1 FOR UPDATE`, schema.ReadingRequest.Table),
		requestID,
	).Scan(&cycleCount)
	if err != nil {
		return 0, dberr.Wrap(err, "postgres: lock request", errRequestNotFound())
	}
	return cycleCount, nil
}

// pgRecordRead bumps the read counter and adds the reader to the participant set.
func pgRecordRead(context context.Context, querier pgQuerier, params CompleteParams) error {
	tag, err := querier.Exec(context, fmt.Sprintf(`
		UPDATE %s
		   SET total = total + 1,
		       today_count = CASE WHEN today_date = $2 THEN today_count + 1 ELSE 1 END,
		       today_date = $2
		 WHERE id = $1
	`, schema.ReadingCounter.Table), schema.ReadingCounterRowID, params.Today)
	if err != nil {
		return fmt.Errorf("postgres: failed to update read counter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.New("postgres: read counter row is missing; run migrations")
	}

	_, err = querier.Exec(context, fmt.Sprintf(`
		INSERT INTO %s (anon_id, first_read_at) VALUES ($1, $2)
		ON CONFLICT (anon_id) DO NOTHING
	`, schema.ReadingParticipant.Table), params.AnonID, params.Now)
	if err != nil {
		return fmt.Errorf("postgres: failed to record participant: %w", err)
	}

	return nil
}

// pgResetPool returns every chapter of the request to unread and bumps the cycle.
// readBy/readAt are kept so a late replay of the last completion is recognized.
func pgResetPool(context context.Context, querier pgQuerier, requestID string) (int, error) {
	_, err := querier.Exec(context, fmt.Sprintf(`
		UPDATE %s
		   SET status = 'unread', locked_by = NULL, locked_at = NULL
		 WHERE request_id = $1
	`, schema.ReadingChapter.Table), requestID)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to reset chapters: %w", err)
	}

	var cycleCount int
	err = querier.QueryRow(context, fmt.Sprintf(`
		UPDATE %s SET cycle_count = cycle_count + 1 WHERE id = $1 RETURNING cycle_count
	`, schema.ReadingRequest.Table), requestID).Scan(&cycleCount)
	if err != nil {
		return 0, dberr.Wrap(err, "postgres: increment cycle", errRequestNotFound())
	}

	return cycleCount, nil
}

// scanPgChapter maps one chapter row in [schema.ReadingChapterTable.Columns] order.
func scanPgChapter(row pgx.Row) (*Chapter, error) {
	var chapter Chapter
	var status string

	if err := row.Scan(
		&chapter.ID,
		&chapter.RequestID,
		&chapter.Number,
		&status,
		&chapter.LockedBy,
		&chapter.LockedAt,
		&chapter.ReadBy,
		&chapter.ReadAt,
		&chapter.ReadCycle,
	); err != nil {
		return nil, err
	}

	chapter.Status = Status(status)
	return &chapter, nil
}

// likeContains builds a LIKE pattern matching needle anywhere, with '\' as escape.
func likeContains(needle string) string {
	escaper := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + escaper.Replace(needle) + "%"
}
