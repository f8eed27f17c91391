// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns of the reading database so that
// SQL builders in both stores refer to them symbolically.
package schema

// ReadingRequestTable represents the 'reading_request' table
type ReadingRequestTable struct {
	Table      string
	ID         string
	Name       string
	NameFolded string
	Purpose    string
	Notes      string
	CycleCount string
	CreatedAt  string
}

// ReadingRequest is the schema definition for reading_request
var ReadingRequest = ReadingRequestTable{
	Table:      "reading_request",
	ID:         "id",
	Name:       "name",
	NameFolded: "name_folded",
	Purpose:    "purpose",
	Notes:      "notes",
	CycleCount: "cycle_count",
	CreatedAt:  "created_at",
}

func (t ReadingRequestTable) Columns() []string {
	return []string{
		t.ID, t.Name, t.NameFolded, t.Purpose, t.Notes, t.CycleCount, t.CreatedAt,
	}
}
