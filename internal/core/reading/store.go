// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reading

import (
	"context"
	"time"
)

// # Reading Data Access

// Repository defines the data access contract for requests, their chapter pool
// and the read counter.
//
// Requests, chapters and the counter change together (a completion touches all
// three), so one repository owns the whole aggregate and exposes each
// transition as a single atomic operation.
type Repository interface {

	/*
		CreateRequest persists a request and its chapters in one transaction.

		Parameters:
		  - context: context.Context
		  - request: *Request (ID, names, purpose, notes, CreatedAt set)
		  - chapters: []*Chapter (one per chapter index, in index order)

		Returns:
		  - error: Storage failure
	*/
	CreateRequest(context context.Context, request *Request, chapters []*Chapter) error

	/*
		ListRequests returns request summaries, newest first.

		Parameters:
		  - context: context.Context
		  - filter: RequestFilter (optional folded name substring)

		Returns:
		  - []*RequestSummary: Requests with current-cycle progress
		  - error: Storage failure
	*/
	ListRequests(context context.Context, filter RequestFilter) ([]*RequestSummary, error)

	/*
		FindRequest returns the request with its chapter indices in creation order.

		Returns:
		  - *Request: Hydrated request
		  - error: NotFound if missing
	*/
	FindRequest(context context.Context, id string) (*Request, error)

	/*
		DeleteRequest removes the request's chapters and then the request itself,
		in one transaction.

		Returns:
		  - error: NotFound if missing
	*/
	DeleteRequest(context context.Context, id string) error

	// FindChapter returns a chapter by id, or NotFound.
	FindChapter(context context.Context, id string) (*Chapter, error)

	/*
		FindEligibleChapter returns the lowest-numbered chapter of the request that
		is not read and whose lock is absent or was taken at or before staleBefore.
		Ties on number are broken by id.

		Returns:
		  - *Chapter: The candidate, or nil when none is eligible
		  - error: Storage failure
	*/
	FindEligibleChapter(context context.Context, requestID string, staleBefore time.Time) (*Chapter, error)

	/*
		LockChapter hands the chapter to anonID with a conditional update that
		re-checks eligibility, so only one concurrent caller can win it.

		Parameters:
		  - context: context.Context
		  - chapterID: string
		  - anonID: string (New lock holder)
		  - now: time.Time (Lock timestamp)
		  - staleBefore: time.Time (Locks taken at or before this are expired)

		Returns:
		  - *Chapter: The locked chapter, or nil if another caller won the race
		  - error: Storage failure
	*/
	LockChapter(context context.Context, chapterID, anonID string, now, staleBefore time.Time) (*Chapter, error)

	/*
		ReleaseChapter returns a chapter held by anonID to the pool (status
		released, lock cleared).

		Returns:
		  - *Chapter: The released chapter
		  - error: NotFound if missing, Forbidden if anonID does not hold it
	*/
	ReleaseChapter(context context.Context, chapterID, anonID string) (*Chapter, error)

	/*
		CompleteChapter marks a chapter read, bumps the read counter, records the
		participant and rolls the cycle over when it was the request's last
		unread chapter, all in one transaction serialized per request.

		Returns:
		  - *Completion: How the call was resolved and the resulting cycle count
		  - error: NotFound if missing, Forbidden if the caller may not complete it
	*/
	CompleteChapter(context context.Context, params CompleteParams) (*Completion, error)

	/*
		ResetCycle forces a cycle rollover for a request whose pool has nothing
		eligible: every chapter returns to unread with locks cleared and the cycle
		count is incremented. If a chapter became eligible in the meantime, nothing
		changes.

		Returns:
		  - int: The request's cycle count after the call
		  - bool: Whether a reset happened
		  - error: NotFound if the request is missing
	*/
	ResetCycle(context context.Context, requestID string, staleBefore time.Time) (int, bool, error)

	// StatsSnapshot aggregates request, counter and participant totals.
	StatsSnapshot(context context.Context) (*StatsSnapshot, error)

	// Ping checks that the store is reachable.
	Ping(context context.Context) error
}
