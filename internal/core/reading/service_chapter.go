// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reading

import (
	"context"
	"log/slog"

	"github.com/taibuivan/tikkun/pkg/uuid"
)

/*
NextChapter allocates the lowest-numbered free chapter of a request to anonID.

When nothing is free, the request's cycle is reset in place (even if other
readers still hold chapters) and the scan runs once more.

Parameters:
  - context: context.Context
  - requestID: string
  - anonID: string (Anonymous reader identity)

Returns:
  - *Chapter: The chapter now locked to anonID
  - error: NotFound for an unknown request, Exhausted when nothing can be handed out
*/
func (service *Service) NextChapter(context context.Context, requestID, anonID string) (*Chapter, error) {
	if !uuid.Valid(requestID) {
		return nil, errRequestNotFound()
	}

	if _, err := service.repository.FindRequest(context, requestID); err != nil {
		return nil, err
	}

	chapter, found, err := service.allocate(context, requestID, anonID)
	if err != nil {
		return nil, err
	}

	if chapter == nil && !found {
		// Nothing eligible at all: roll the cycle over and scan again.
		cycleCount, reset, err := service.repository.ResetCycle(context, requestID, service.now().Add(-LockTimeout))
		if err != nil {
			return nil, err
		}

		if reset {
			service.invalidateStats(context)
			service.log(context).InfoContext(context, "cycle_forced_reset",
				slog.String("request_id", requestID),
				slog.Int("cycle_count", cycleCount),
			)
		}

		if chapter, _, err = service.allocate(context, requestID, anonID); err != nil {
			return nil, err
		}
	}

	if chapter == nil {
		return nil, errExhausted()
	}

	service.log(context).InfoContext(context, "chapter_allocated",
		slog.String("request_id", requestID),
		slog.String("chapter_id", chapter.ID),
		slog.Int("number", chapter.Number),
		slog.String("anon_id", anonID),
	)

	return chapter, nil
}

// allocate runs one scan phase. found reports whether any eligible candidate
// was seen, so a phase lost entirely to concurrent callers does not trigger a reset.
func (service *Service) allocate(context context.Context, requestID, anonID string) (chapter *Chapter, found bool, err error) {
	for attempt := 0; attempt < maxLockAttempts; attempt++ {
		now := service.now()
		staleBefore := now.Add(-LockTimeout)

		candidate, err := service.repository.FindEligibleChapter(context, requestID, staleBefore)
		if err != nil {
			return nil, found, err
		}
		if candidate == nil {
			return nil, found, nil
		}
		found = true

		locked, err := service.repository.LockChapter(context, candidate.ID, anonID, now, staleBefore)
		if err != nil {
			return nil, found, err
		}
		if locked != nil {
			return locked, found, nil
		}

		service.log(context).DebugContext(context, "chapter_lock_lost",
			slog.String("chapter_id", candidate.ID),
			slog.Int("attempt", attempt+1),
		)
	}

	return nil, found, nil
}

/*
ReleaseChapter hands a chapter back to the pool without reading it.

Returns:
  - *Chapter: The released chapter
  - error: NotFound for an unknown chapter, Forbidden unless anonID holds the lock
*/
func (service *Service) ReleaseChapter(context context.Context, chapterID, anonID string) (*Chapter, error) {
	if !uuid.Valid(chapterID) {
		return nil, errChapterNotFound()
	}

	chapter, err := service.repository.ReleaseChapter(context, chapterID, anonID)
	if err != nil {
		return nil, err
	}

	service.log(context).InfoContext(context, "chapter_released",
		slog.String("request_id", chapter.RequestID),
		slog.String("chapter_id", chapter.ID),
		slog.String("anon_id", anonID),
	)

	return chapter, nil
}

/*
CompleteChapter records that anonID finished reading a chapter.

Completing a chapter that is already read, or replaying a completion the
caller made before the cycle was reset, succeeds without changing anything.

Returns:
  - *Completion: The resolution and the request's cycle count
  - error: NotFound for an unknown chapter, Forbidden for anyone but the lock holder
*/
func (service *Service) CompleteChapter(context context.Context, chapterID, anonID string) (*Completion, error) {
	if !uuid.Valid(chapterID) {
		return nil, errChapterNotFound()
	}

	now := service.now()
	completion, err := service.repository.CompleteChapter(context, CompleteParams{
		ChapterID: chapterID,
		AnonID:    anonID,
		Now:       now,
		Today:     service.today(now),
	})
	if err != nil {
		return nil, err
	}

	if completion.Outcome != OutcomeCompleted {
		service.log(context).DebugContext(context, "chapter_completion_noop",
			slog.String("chapter_id", chapterID),
			slog.Int("outcome", int(completion.Outcome)),
		)
		return completion, nil
	}

	service.invalidateStats(context)

	service.log(context).InfoContext(context, "chapter_completed",
		slog.String("request_id", completion.RequestID),
		slog.String("chapter_id", chapterID),
		slog.String("anon_id", anonID),
	)

	if completion.CycleCompleted {
		service.log(context).InfoContext(context, "cycle_completed",
			slog.String("request_id", completion.RequestID),
			slog.Int("cycle_count", completion.CycleCount),
		)
	}

	return completion, nil
}
