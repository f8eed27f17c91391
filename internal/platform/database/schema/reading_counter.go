// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// ReadingCounterTable represents the singleton 'reading_counter' table
type ReadingCounterTable struct {
	Table      string
	ID         string
	Total      string
	TodayCount string
	TodayDate  string
}

// ReadingCounter is the schema definition for reading_counter
var ReadingCounter = ReadingCounterTable{
	Table:      "reading_counter",
	ID:         "id",
	Total:      "total",
	TodayCount: "today_count",
	TodayDate:  "today_date",
}

// ReadingCounterRowID is the id of the only row, created by migration.
const ReadingCounterRowID = 1

// ReadingParticipantTable represents the 'reading_participant' table
type ReadingParticipantTable struct {
	Table       string
	AnonID      string
	FirstReadAt string
}

// ReadingParticipant is the schema definition for reading_participant
var ReadingParticipant = ReadingParticipantTable{
	Table:       "reading_participant",
	AnonID:      "anon_id",
	FirstReadAt: "first_read_at",
}
