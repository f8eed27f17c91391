// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package reading implements the shared chapter pool behind every reading request.

Anonymous readers pull chapters of a request from the pool, read them and mark
them complete. A chapter handed out is locked to its reader for [LockTimeout];
abandoned locks are reclaimed passively by later allocations. Once every
chapter of a request has been read, the cycle rolls over: the request's cycle
counter is bumped and its chapters return to the pool.

All state lives in the relational store. Every transition is a conditional
update keyed on the expected prior state, and completion plus cycle rollover
share one transaction, so concurrent handlers never need an in-process lock.
*/
package reading

import (
	"time"

	"github.com/taibuivan/tikkun/internal/platform/constants"
)

// LockTimeout is how long an allocated chapter stays reserved for its reader.
const LockTimeout = constants.ChapterLockTimeout

// maxLockAttempts bounds the find-and-lock retries of one allocation scan.
const maxLockAttempts = 5

// # Chapter Status

// Status is the lifecycle state of a chapter instance.
type Status string

const (
	StatusUnread     Status = "unread"
	StatusInProgress Status = "in-progress"
	StatusReleased   Status = "released"
	StatusRead       Status = "read"
)

// # Purposes

// Purposes a request may be dedicated to.
const (
	PurposeHealing    = "רפואה שלמה"
	PurposeSuccess    = "הצלחה"
	PurposeMatch      = "זיווג"
	PurposeHomePeace  = "שלום בית"
	PurposeLivelihood = "פרנסה"
	PurposeOther      = "אחר"
)

// Purposes lists every accepted purpose in display order.
var Purposes = []string{
	PurposeHealing,
	PurposeSuccess,
	PurposeMatch,
	PurposeHomePeace,
	PurposeLivelihood,
	PurposeOther,
}

// Field limits for request creation.
const (
	MaxNameLength  = 200
	MaxNotesLength = 2000
)

// # Entities

// Request is a named dedication whose chapters are read in endless cycles.
type Request struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Purpose        string    `json:"purpose"`
	Notes          string    `json:"notes"`
	ChapterIndices []int     `json:"chapterIndices"`
	CycleCount     int       `json:"cycleCount"`
	CreatedAt      time.Time `json:"createdAt"`

	// NameFolded is the search key derived from Name.
	NameFolded string `json:"-"`
}

// RequestSummary is a request row with its progress in the current cycle.
type RequestSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Purpose       string    `json:"purpose"`
	Notes         string    `json:"notes"`
	CycleCount    int       `json:"cycleCount"`
	TotalChapters int       `json:"totalChapters"`
	ReadChapters  int       `json:"readChapters"`
	CreatedAt     time.Time `json:"createdAt"`
}

// RequestFilter narrows the request list.
type RequestFilter struct {
	// NameFolded is a folded substring to look for; empty matches everything.
	NameFolded string
}

// Chapter is one materialized chapter of a request.
//
// LockedBy and LockedAt are set together, and only while Status is in-progress.
type Chapter struct {
	ID        string     `json:"id"`
	RequestID string     `json:"requestId"`
	Number    int        `json:"number"`
	Status    Status     `json:"status"`
	LockedBy  *string    `json:"lockedBy"`
	LockedAt  *time.Time `json:"lockedAt"`
	ReadBy    *string    `json:"readBy"`
	ReadAt    *time.Time `json:"readAt"`
	// ReadCycle is the request's cycle count at the time of the last read.
	ReadCycle *int       `json:"-"`
}

// HeldBy reports whether anonID holds the chapter's lock, fresh or expired.
func (chapter *Chapter) HeldBy(anonID string) bool {
	return chapter.LockedBy != nil && *chapter.LockedBy == anonID
}

// LastReadBy reports whether anonID is the recorded reader of the chapter.
func (chapter *Chapter) LastReadBy(anonID string) bool {
	return chapter.ReadBy != nil && *chapter.ReadBy == anonID
}

// Eligible reports whether the chapter may be handed out at staleBefore:
// not read, and either unlocked or locked no later than staleBefore.
func (chapter *Chapter) Eligible(staleBefore time.Time) bool {
	if chapter.Status == StatusRead {
		return false
	}
	return chapter.LockedAt == nil || !chapter.LockedAt.After(staleBefore)
}

// # Completion

// CompletionOutcome tells how a completion call was resolved.
type CompletionOutcome int

const (
	// OutcomeCompleted means the chapter transitioned to read in this call.
	OutcomeCompleted CompletionOutcome = iota + 1
	// OutcomeAlreadyRead means the chapter was already read; nothing changed.
	OutcomeAlreadyRead
	// OutcomeReplayed means the caller read it in the cycle that just closed
	// and nobody has picked it up since.
	OutcomeReplayed
)

// CompleteParams carries the inputs of a completion.
type CompleteParams struct {
	ChapterID string
	AnonID    string
	Now       time.Time
	// Today is the calendar date (YYYY-MM-DD) of Now in the reading time zone.
	Today string
}

// Completion is the result of a completion call.
type Completion struct {
	Outcome        CompletionOutcome
	RequestID      string
	CycleCompleted bool
	CycleCount     int
}

// readInPreviousCycle reports whether anonID read the chapter in the cycle
// before cycleCount and the chapter has not been handed out since.
func (chapter *Chapter) readInPreviousCycle(anonID string, cycleCount int) bool {
	return chapter.LockedBy == nil &&
		chapter.LastReadBy(anonID) &&
		chapter.ReadCycle != nil && *chapter.ReadCycle == cycleCount-1
}

// resolveCompletion decides what a completion by anonID does to chapter,
// given the owning request's current cycle count.
func resolveCompletion(chapter *Chapter, anonID string, cycleCount int) (CompletionOutcome, error) {
	switch {
	case chapter.Status == StatusRead:
		return OutcomeAlreadyRead, nil
	case chapter.Status == StatusInProgress && chapter.HeldBy(anonID):
		return OutcomeCompleted, nil
	case chapter.readInPreviousCycle(anonID, cycleCount):
		return OutcomeReplayed, nil
	default:
		return 0, errNotLockHolder()
	}
}

// # Statistics

// Stats is the public statistics view.
type Stats struct {
	TotalRequests        int64 `json:"totalRequests"`
	TotalChaptersRead    int64 `json:"totalChaptersRead"`
	TotalCyclesCompleted int64 `json:"totalCyclesCompleted"`
	TotalParticipants    int64 `json:"totalParticipants"`
	ChaptersReadToday    int64 `json:"chaptersReadToday"`
}

// StatsSnapshot is the raw aggregate read from the store.
//
// It keeps the counter's date rather than a derived "today" figure, so a
// cached snapshot stays correct across midnight.
type StatsSnapshot struct {
	TotalRequests        int64  `json:"totalRequests"`
	TotalChaptersRead    int64  `json:"totalChaptersRead"`
	TotalCyclesCompleted int64  `json:"totalCyclesCompleted"`
	TotalParticipants    int64  `json:"totalParticipants"`
	TodayCount           int64  `json:"todayCount"`
	TodayDate            string `json:"todayDate"`
}

// Stats derives the public view as of the calendar date today.
func (snapshot *StatsSnapshot) Stats(today string) Stats {
	stats := Stats{
		TotalRequests:        snapshot.TotalRequests,
		TotalChaptersRead:    snapshot.TotalChaptersRead,
		TotalCyclesCompleted: snapshot.TotalCyclesCompleted,
		TotalParticipants:    snapshot.TotalParticipants,
	}
	if snapshot.TodayDate == today {
		stats.ChaptersReadToday = snapshot.TodayCount
	}
	return stats
}
