// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reading_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tikkun/internal/core/reading"
	"github.com/taibuivan/tikkun/internal/platform/apperr"
	"github.com/taibuivan/tikkun/internal/platform/ctxutil"
	"github.com/taibuivan/tikkun/internal/platform/i18n"
	"github.com/taibuivan/tikkun/internal/platform/sqlite"
)

// # Fixtures

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (clock *fakeClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.now
}

func (clock *fakeClock) Advance(d time.Duration) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.now = clock.now.Add(d)
}

type fixture struct {
	service    *reading.Service
	repository reading.Repository
	clock      *fakeClock
}

type fixedCatalog int

func (catalog fixedCatalog) Len() int { return int(catalog) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSQLiteRepository(t *testing.T) reading.Repository {
	t.Helper()

	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "tikkun.db"), reading.SQLiteSchema, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return reading.NewSQLiteRepository(db)
}

func newFixture(t *testing.T, options reading.Options) *fixture {
	t.Helper()

	clock := newFakeClock()
	repository := newSQLiteRepository(t)

	options.Clock = clock.Now
	if options.Catalog == nil {
		options.Catalog = fixedCatalog(150)
	}

	return &fixture{
		service:    reading.NewService(repository, discardLogger(), options),
		repository: repository,
		clock:      clock,
	}
}

func (f *fixture) createRequest(t *testing.T, indices ...int) *reading.Request {
	t.Helper()

	request, err := f.service.CreateRequest(context.Background(), reading.CreateRequestInput{
		Name:           "Sarah bat Rivka",
		Purpose:        reading.PurposeHealing,
		ChapterIndices: indices,
	})
	require.NoError(t, err)
	return request
}

func (f *fixture) next(t *testing.T, requestID, anonID string) *reading.Chapter {
	t.Helper()

	chapter, err := f.service.NextChapter(context.Background(), requestID, anonID)
	require.NoError(t, err)
	return chapter
}

func (f *fixture) complete(t *testing.T, chapterID, anonID string) *reading.Completion {
	t.Helper()

	completion, err := f.service.CompleteChapter(context.Background(), chapterID, anonID)
	require.NoError(t, err)
	return completion
}

func (f *fixture) chapter(t *testing.T, id string) *reading.Chapter {
	t.Helper()

	chapter, err := f.repository.FindChapter(context.Background(), id)
	require.NoError(t, err)
	return chapter
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()

	appError := apperr.As(err)
	require.NotNil(t, appError, "expected an AppError, got %v", err)
	assert.Equal(t, code, appError.Code)
}

func assertLockPair(t *testing.T, chapter *reading.Chapter) {
	t.Helper()

	assert.Equal(t, chapter.LockedBy == nil, chapter.LockedAt == nil, "lockedBy and lockedAt must be set together")
	assert.Equal(t, chapter.Status == reading.StatusInProgress, chapter.LockedBy != nil, "only in-progress chapters hold a lock")
}

// # Scenarios

/*
TestScenario_FullCycle walks one reader through every chapter of a request
until the cycle rolls over.
*/
func TestScenario_FullCycle(t *testing.T) {
	f := newFixture(t, reading.Options{})
	ctx := context.Background()
	request := f.createRequest(t, 0, 1, 2)

	first := f.next(t, request.ID, "A")
	assert.Equal(t, 0, first.Number)
	assert.Equal(t, reading.StatusInProgress, first.Status)
	require.NotNil(t, first.LockedBy)
	assert.Equal(t, "A", *first.LockedBy)

	completion := f.complete(t, first.ID, "A")
	assert.Equal(t, reading.OutcomeCompleted, completion.Outcome)
	assert.False(t, completion.CycleCompleted)
	assert.Equal(t, reading.StatusRead, f.chapter(t, first.ID).Status)

	stats, err := f.service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalChaptersRead)

	second := f.next(t, request.ID, "A")
	assert.Equal(t, 1, second.Number)
	f.complete(t, second.ID, "A")

	third := f.next(t, request.ID, "A")
	assert.Equal(t, 2, third.Number)
	completion = f.complete(t, third.ID, "A")
	assert.True(t, completion.CycleCompleted)
	assert.Equal(t, 1, completion.CycleCount)

	found, err := f.service.GetRequest(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, found.CycleCount)
	assert.Equal(t, []int{0, 1, 2}, found.ChapterIndices)

	for _, id := range []string{first.ID, second.ID, third.ID} {
		chapter := f.chapter(t, id)
		assert.Equal(t, reading.StatusUnread, chapter.Status)
		assertLockPair(t, chapter)
	}

	stats, err = f.service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, reading.Stats{
		TotalRequests:        1,
		TotalChaptersRead:    3,
		TotalCyclesCompleted: 1,
		TotalParticipants:    1,
		ChaptersReadToday:    3,
	}, stats)
}

func TestNextChapter_SkipsFreshLocks(t *testing.T) {
	f := newFixture(t, reading.Options{})
	request := f.createRequest(t, 0, 1, 2)

	a := f.next(t, request.ID, "A")
	b := f.next(t, request.ID, "B")
	again := f.next(t, request.ID, "A")

	assert.Equal(t, 0, a.Number)
	assert.Equal(t, 1, b.Number)
	assert.Equal(t, 2, again.Number, "a reader's own fresh lock is not handed out twice")
}

func TestNextChapter_ReclaimsExpiredLock(t *testing.T) {
	f := newFixture(t, reading.Options{})
	request := f.createRequest(t, 0, 1)

	abandoned := f.next(t, request.ID, "A")
	require.Equal(t, 0, abandoned.Number)

	// Exactly at the timeout the lock counts as expired.
	f.clock.Advance(reading.LockTimeout)

	reclaimed := f.next(t, request.ID, "B")
	assert.Equal(t, abandoned.ID, reclaimed.ID)
	require.NotNil(t, reclaimed.LockedBy)
	assert.Equal(t, "B", *reclaimed.LockedBy)
	assert.True(t, reclaimed.LockedAt.Equal(f.clock.Now()))
}

func TestNextChapter_OwnExpiredLockIsEligible(t *testing.T) {
	f := newFixture(t, reading.Options{})
	request := f.createRequest(t, 0, 1)

	first := f.next(t, request.ID, "A")
	f.clock.Advance(reading.LockTimeout + time.Minute)

	again := f.next(t, request.ID, "A")
	assert.Equal(t, first.ID, again.ID)
}

func TestNextChapter_ForcedReset(t *testing.T) {
	f := newFixture(t, reading.Options{})
	ctx := context.Background()
	request := f.createRequest(t, 0, 1)

	first := f.next(t, request.ID, "A")
	second := f.next(t, request.ID, "B")
	require.NotEqual(t, first.ID, second.ID)

	// Both chapters are freshly locked: the pool is reset and scanned again.
	third := f.next(t, request.ID, "C")
	assert.Equal(t, 0, third.Number)
	require.NotNil(t, third.LockedBy)
	assert.Equal(t, "C", *third.LockedBy)

	found, err := f.service.GetRequest(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, found.CycleCount)

	// B's lock was cleared by the reset.
	reset := f.chapter(t, second.ID)
	assert.Equal(t, reading.StatusUnread, reset.Status)
	assertLockPair(t, reset)

	_, err = f.service.CompleteChapter(ctx, second.ID, "B")
	assertCode(t, err, "FORBIDDEN")
}

func TestNextChapter_UnknownRequest(t *testing.T) {
	f := newFixture(t, reading.Options{})

	_, err := f.service.NextChapter(context.Background(), "0194f3c2-7a41-7000-8000-000000000000", "A")
	assertCode(t, err, "NOT_FOUND")

	_, err = f.service.NextChapter(context.Background(), "not-a-uuid", "A")
	assertCode(t, err, "NOT_FOUND")
}

func TestNextChapter_ConcurrentReadersGetDistinctChapters(t *testing.T) {
	f := newFixture(t, reading.Options{})
	request := f.createRequest(t, 0, 1, 2, 3, 4, 5, 6, 7)

	// Fewer readers than chapters: no reader can lose every lock race of a scan.
	const readers = 5
	ids := make([]string, readers)
	errs := make([]error, readers)

	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			chapter, err := f.service.NextChapter(context.Background(), request.ID, string(rune('A'+i)))
			errs[i] = err
			if chapter != nil {
				ids[i] = chapter.ID
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < readers; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[ids[i]], "chapter %s handed out twice", ids[i])
		seen[ids[i]] = true
	}
}

// # Completion

func TestCompleteChapter_Idempotent(t *testing.T) {
	f := newFixture(t, reading.Options{})
	ctx := context.Background()
	request := f.createRequest(t, 0, 1)

	chapter := f.next(t, request.ID, "A")
	f.complete(t, chapter.ID, "A")

	again := f.complete(t, chapter.ID, "A")
	assert.Equal(t, reading.OutcomeAlreadyRead, again.Outcome)

	// Anyone may "complete" a chapter that is already read.
	other := f.complete(t, chapter.ID, "B")
	assert.Equal(t, reading.OutcomeAlreadyRead, other.Outcome)

	stats, err := f.service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalChaptersRead)
	assert.Equal(t, int64(0), stats.TotalCyclesCompleted)
}

func TestCompleteChapter_ReplayAfterCycleReset(t *testing.T) {
	f := newFixture(t, reading.Options{})
	ctx := context.Background()
	request := f.createRequest(t, 7)

	chapter := f.next(t, request.ID, "A")
	completion := f.complete(t, chapter.ID, "A")
	require.True(t, completion.CycleCompleted)

	replay := f.complete(t, chapter.ID, "A")
	assert.Equal(t, reading.OutcomeReplayed, replay.Outcome)
	assert.Equal(t, 1, replay.CycleCount)

	stats, err := f.service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalChaptersRead)
	assert.Equal(t, int64(1), stats.TotalCyclesCompleted)

	_, err = f.service.CompleteChapter(ctx, chapter.ID, "B")
	assertCode(t, err, "FORBIDDEN")
}

func TestCompleteChapter_PreviousReaderCannotCompleteHeldChapter(t *testing.T) {
	f := newFixture(t, reading.Options{})
	ctx := context.Background()
	request := f.createRequest(t, 0, 1)

	first := f.next(t, request.ID, "A")
	f.complete(t, first.ID, "A")
	last := f.next(t, request.ID, "A")
	require.True(t, f.complete(t, last.ID, "A").CycleCompleted)

	taken := f.next(t, request.ID, "B")
	require.Equal(t, first.ID, taken.ID)

	_, err := f.service.CompleteChapter(ctx, taken.ID, "A")
	assertCode(t, err, "FORBIDDEN")

	held := f.chapter(t, taken.ID)
	assert.Equal(t, reading.StatusInProgress, held.Status)
	require.NotNil(t, held.LockedBy)
	assert.Equal(t, "B", *held.LockedBy)

	assert.Equal(t, reading.OutcomeCompleted, f.complete(t, taken.ID, "B").Outcome)

	stats, err := f.service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalChaptersRead)
}

func TestCompleteChapter_NoReplayFromOlderCycle(t *testing.T) {
	f := newFixture(t, reading.Options{})
	ctx := context.Background()
	request := f.createRequest(t, 0, 1)

	first := f.next(t, request.ID, "A")
	f.complete(t, first.ID, "A")
	last := f.next(t, request.ID, "A")
	require.True(t, f.complete(t, last.ID, "A").CycleCompleted)

	// Both chapters freshly locked, so the next reader forces another cycle.
	f.next(t, request.ID, "B")
	f.next(t, request.ID, "C")
	f.next(t, request.ID, "D")

	found, err := f.service.GetRequest(ctx, request.ID)
	require.NoError(t, err)
	require.Equal(t, 2, found.CycleCount)

	stale := f.chapter(t, last.ID)
	require.Nil(t, stale.LockedBy)
	require.NotNil(t, stale.ReadBy)
	require.Equal(t, "A", *stale.ReadBy)

	_, err = f.service.CompleteChapter(ctx, last.ID, "A")
	assertCode(t, err, "FORBIDDEN")
}

func TestCompleteChapter_Rejects(t *testing.T) {
	f := newFixture(t, reading.Options{})
	ctx := context.Background()
	request := f.createRequest(t, 0, 1)

	chapter := f.next(t, request.ID, "A")
	untouched := f.createRequest(t, 3)
	unread, err := f.repository.FindEligibleChapter(ctx, untouched.ID, f.clock.Now())
	require.NoError(t, err)
	require.NotNil(t, unread)

	tests := []struct {
		name      string
		chapterID string
		anonID    string
		code      string
	}{
		{"other_reader", chapter.ID, "B", "FORBIDDEN"},
		{"never_allocated", unread.ID, "A", "FORBIDDEN"},
		{"unknown_chapter", "0194f3c2-7a41-7000-8000-000000000000", "A", "NOT_FOUND"},
		{"malformed_id", "42", "A", "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CompleteChapter(ctx, tt.chapterID, tt.anonID)
			assertCode(t, err, tt.code)
		})
	}

	held := f.chapter(t, chapter.ID)
	assert.Equal(t, reading.StatusInProgress, held.Status)
	assertLockPair(t, held)
}

func TestCompleteChapter_ExpiredLockStillBelongsToHolder(t *testing.T) {
	f := newFixture(t, reading.Options{})
	request := f.createRequest(t, 0, 1)

	chapter := f.next(t, request.ID, "A")
	f.clock.Advance(2 * reading.LockTimeout)

	completion := f.complete(t, chapter.ID, "A")
	assert.Equal(t, reading.OutcomeCompleted, completion.Outcome)
}

func TestCompleteChapter_TodayCounterRollsOver(t *testing.T) {
	f := newFixture(t, reading.Options{})
	ctx := context.Background()
	request := f.createRequest(t, 0, 1, 2, 3)

	f.complete(t, f.next(t, request.ID, "A").ID, "A")
	f.complete(t, f.next(t, request.ID, "A").ID, "A")

	stats, err := f.service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.ChaptersReadToday)

	f.clock.Advance(24 * time.Hour)

	stats, err = f.service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.ChaptersReadToday, "yesterday's count is not reported as today's")

	f.complete(t, f.next(t, request.ID, "B").ID, "B")

	stats, err = f.service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ChaptersReadToday)
	assert.Equal(t, int64(3), stats.TotalChaptersRead)
	assert.Equal(t, int64(2), stats.TotalParticipants)
}

func TestCompleteChapter_TodayFollowsLocation(t *testing.T) {
	jerusalem, err := time.LoadLocation("Asia/Jerusalem")
	require.NoError(t, err)

	f := newFixture(t, reading.Options{Location: jerusalem})
	ctx := context.Background()
	request := f.createRequest(t, 0, 1)

	// 21:30 UTC on 1 March is 23:30 in Jerusalem.
	f.clock.Advance(12*time.Hour + 30*time.Minute)
	f.complete(t, f.next(t, request.ID, "A").ID, "A")

	// 22:30 UTC is still 1 March in UTC but already 2 March in Jerusalem.
	f.clock.Advance(time.Hour)
	stats, err := f.service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.ChaptersReadToday)

	f.complete(t, f.next(t, request.ID, "A").ID, "A")
	stats, err = f.service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ChaptersReadToday)
}

// # Release

func TestReleaseChapter(t *testing.T) {
	f := newFixture(t, reading.Options{})
	ctx := context.Background()
	request := f.createRequest(t, 0, 1)

	chapter := f.next(t, request.ID, "A")

	_, err := f.service.ReleaseChapter(ctx, chapter.ID, "B")
	assertCode(t, err, "FORBIDDEN")

	unchanged := f.chapter(t, chapter.ID)
	assert.Equal(t, reading.StatusInProgress, unchanged.Status)
	assert.Equal(t, "A", *unchanged.LockedBy)

	released, err := f.service.ReleaseChapter(ctx, chapter.ID, "A")
	require.NoError(t, err)
	assert.Equal(t, reading.StatusReleased, released.Status)
	assertLockPair(t, released)

	// Releasing twice fails: the caller no longer holds it.
	_, err = f.service.ReleaseChapter(ctx, chapter.ID, "A")
	assertCode(t, err, "FORBIDDEN")

	// A released chapter goes back to the front of the pool.
	again := f.next(t, request.ID, "B")
	assert.Equal(t, chapter.ID, again.ID)

	_, err = f.service.ReleaseChapter(ctx, "0194f3c2-7a41-7000-8000-000000000000", "A")
	assertCode(t, err, "NOT_FOUND")
}

// # Requests

func TestCreateRequest_Validation(t *testing.T) {
	f := newFixture(t, reading.Options{Catalog: fixedCatalog(10)})

	valid := reading.CreateRequestInput{
		Name:           "  Moshe   ben Yaakov ",
		Purpose:        reading.PurposeSuccess,
		Notes:          "for the exam",
		ChapterIndices: []int{3, 1, 2},
	}

	tests := []struct {
		name   string
		mutate func(input *reading.CreateRequestInput)
		key    string
	}{
		{"empty_name", func(input *reading.CreateRequestInput) { input.Name = "   " }, i18n.KeyInvalidName},
		{"long_name", func(input *reading.CreateRequestInput) { input.Name = strings.Repeat("א", reading.MaxNameLength+1) }, i18n.KeyInvalidName},
		{"unknown_purpose", func(input *reading.CreateRequestInput) { input.Purpose = "luck" }, i18n.KeyInvalidPurpose},
		{"no_chapters", func(input *reading.CreateRequestInput) { input.ChapterIndices = nil }, i18n.KeyInvalidChapters},
		{"negative_index", func(input *reading.CreateRequestInput) { input.ChapterIndices = []int{-1} }, i18n.KeyInvalidChapters},
		{"duplicate_index", func(input *reading.CreateRequestInput) { input.ChapterIndices = []int{1, 1} }, i18n.KeyInvalidChapters},
		{"beyond_catalog", func(input *reading.CreateRequestInput) { input.ChapterIndices = []int{10} }, i18n.KeyInvalidChapters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := valid
			tt.mutate(&input)

			_, err := f.service.CreateRequest(context.Background(), input)
			assertCode(t, err, "VALIDATION_ERROR")
			assert.Equal(t, tt.key, apperr.As(err).Key)
		})
	}

	created, err := f.service.CreateRequest(context.Background(), valid)
	require.NoError(t, err)
	assert.Equal(t, "Moshe ben Yaakov", created.Name)
	assert.Equal(t, []int{3, 1, 2}, created.ChapterIndices)
	assert.Equal(t, 0, created.CycleCount)
}

func TestCreateRequest_ChaptersOrderedByNumber(t *testing.T) {
	f := newFixture(t, reading.Options{})
	request := f.createRequest(t, 9, 4, 6)

	assert.Equal(t, 4, f.next(t, request.ID, "A").Number)
	assert.Equal(t, 6, f.next(t, request.ID, "A").Number)
	assert.Equal(t, 9, f.next(t, request.ID, "A").Number)
}

func TestListRequests(t *testing.T) {
	f := newFixture(t, reading.Options{})
	ctx := context.Background()

	create := func(name string, indices ...int) *reading.Request {
		request, err := f.service.CreateRequest(ctx, reading.CreateRequestInput{
			Name: name, Purpose: reading.PurposeOther, ChapterIndices: indices,
		})
		require.NoError(t, err)
		f.clock.Advance(time.Second)
		return request
	}

	cohen := create("David COHEN", 0, 1)
	levi := create("Rachel Levi", 2)
	create("100% חיים", 3)

	f.complete(t, f.next(t, cohen.ID, "A").ID, "A")

	all, err := f.service.ListRequests(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "100% חיים", all[0].Name, "newest first")
	assert.Equal(t, levi.ID, all[1].ID)
	assert.Equal(t, cohen.ID, all[2].ID)
	assert.Equal(t, 2, all[2].TotalChapters)
	assert.Equal(t, 1, all[2].ReadChapters)

	tests := []struct {
		search string
		want   int
	}{
		{"cohen", 1},
		{"  RACHEL ", 1},
		{"%", 1},
		{"_", 0},
		{"חיים", 1},
		{"nobody", 0},
	}

	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			found, err := f.service.ListRequests(ctx, tt.search)
			require.NoError(t, err)
			assert.Len(t, found, tt.want)
		})
	}
}

func TestDeleteRequest(t *testing.T) {
	f := newFixture(t, reading.Options{})
	ctx := ctxutil.WithAdmin(context.Background())
	request := f.createRequest(t, 0, 1)
	chapter := f.next(t, request.ID, "A")

	err := f.service.DeleteRequest(context.Background(), request.ID)
	assertCode(t, err, "FORBIDDEN")

	require.NoError(t, f.service.DeleteRequest(ctx, request.ID))

	_, err = f.service.GetRequest(ctx, request.ID)
	assertCode(t, err, "NOT_FOUND")

	_, err = f.repository.FindChapter(ctx, chapter.ID)
	assertCode(t, err, "NOT_FOUND")

	err = f.service.DeleteRequest(ctx, request.ID)
	assertCode(t, err, "NOT_FOUND")
}

// # Stats Cache

type memoryCache struct {
	mu          sync.Mutex
	generation  int64
	entries     map[int64]*reading.StatsSnapshot
	invalidated int
}

func (cache *memoryCache) Get(context.Context) (*reading.StatsSnapshot, int64, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return cache.entries[cache.generation], cache.generation, nil
}

func (cache *memoryCache) Set(_ context.Context, generation int64, snapshot *reading.StatsSnapshot) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.entries == nil {
		cache.entries = make(map[int64]*reading.StatsSnapshot)
	}
	cache.entries[generation] = snapshot
	return nil
}

func (cache *memoryCache) Invalidate(context.Context) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.generation++
	cache.invalidated++
	return nil
}

// current returns the snapshot the next Stats call would be served.
func (cache *memoryCache) current() *reading.StatsSnapshot {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return cache.entries[cache.generation]
}

// snapshotHookRepository runs hook after every snapshot load.
type snapshotHookRepository struct {
	reading.Repository
	loads int
	hook  func()
}

func (repository *snapshotHookRepository) StatsSnapshot(ctx context.Context) (*reading.StatsSnapshot, error) {
	snapshot, err := repository.Repository.StatsSnapshot(ctx)
	repository.loads++
	if repository.hook != nil {
		repository.hook()
	}
	return snapshot, err
}

func TestStats_UsesCache(t *testing.T) {
	cache := &memoryCache{}
	f := newFixture(t, reading.Options{Cache: cache})
	ctx := context.Background()

	request := f.createRequest(t, 0, 1)
	assert.Equal(t, 1, cache.invalidated)

	stats, err := f.service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalRequests)
	require.NotNil(t, cache.current())

	// A cached snapshot is served as-is.
	cache.current().TotalRequests = 42
	stats, err = f.service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), stats.TotalRequests)

	// Allocation leaves the stats untouched; completion invalidates them.
	chapter := f.next(t, request.ID, "A")
	assert.NotNil(t, cache.current())
	f.complete(t, chapter.ID, "A")
	assert.Nil(t, cache.current())

	stats, err = f.service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.TotalChaptersRead)
}

/*
TestStats_InvalidationDuringLoad covers a completion that lands between the
snapshot load and the cache write: the loaded snapshot must not be served
afterwards.
*/
func TestStats_InvalidationDuringLoad(t *testing.T) {
	cache := &memoryCache{}
	repository := &snapshotHookRepository{Repository: newSQLiteRepository(t)}
	clock := newFakeClock()
	service := reading.NewService(repository, discardLogger(), reading.Options{
		Cache:   cache,
		Catalog: fixedCatalog(150),
		Clock:   clock.Now,
	})
	ctx := context.Background()

	repository.hook = func() { require.NoError(t, cache.Invalidate(ctx)) }
	_, err := service.Stats(ctx)
	require.NoError(t, err)
	assert.Nil(t, cache.current())

	repository.hook = nil
	_, err = service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repository.loads)
	assert.NotNil(t, cache.current())

	_, err = service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repository.loads)
}

func TestStatsSnapshot_Stats(t *testing.T) {
	snapshot := reading.StatsSnapshot{TotalChaptersRead: 9, TodayCount: 4, TodayDate: "2026-03-01"}

	assert.Equal(t, int64(4), snapshot.Stats("2026-03-01").ChaptersReadToday)
	assert.Equal(t, int64(0), snapshot.Stats("2026-03-02").ChaptersReadToday)
	assert.Equal(t, int64(9), snapshot.Stats("2026-03-02").TotalChaptersRead)
}
