// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// ReadingChapterTable represents the 'reading_chapter' table
type ReadingChapterTable struct {
	Table     string
	ID        string
	RequestID string
	Position  string
	Number    string
	Status    string
	LockedBy  string
	LockedAt  string
	ReadBy    string
	ReadAt    string
	ReadCycle string
}

// ReadingChapter is the schema definition for reading_chapter
var ReadingChapter = ReadingChapterTable{
	Table:     "reading_chapter",
	ID:        "id",
	RequestID: "request_id",
	Position:  "position",
	Number:    "number",
	Status:    "status",
	LockedBy:  "locked_by",
	LockedAt:  "locked_at",
	ReadBy:    "read_by",
	ReadAt:    "read_at",
	ReadCycle: "read_cycle",
}

// Columns lists the columns scanned into a chapter, in scan order.
func (t ReadingChapterTable) Columns() []string {
	return []string{
		t.ID, t.RequestID, t.Number, t.Status, t.LockedBy, t.LockedAt, t.ReadBy, t.ReadAt, t.ReadCycle,
	}
}
