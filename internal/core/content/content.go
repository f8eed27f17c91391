// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package content serves the read-only table of readable chapters.

The table is a JSON file loaded once at startup. A request's chapter indices
point into it by position, so entry ids must run 0, 1, 2... in file order.
*/
package content

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Entry is one readable chapter of the content table.
type Entry struct {
	ID    int    `json:"id"`
	Psalm int    `json:"psalm"`
	Title string `json:"title"`
}

// Catalog is the immutable content table.
type Catalog struct {
	entries []Entry
}

// Load reads and validates the content table at path.
func Load(path string) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("content: failed to open catalog: %w", err)
	}
	defer file.Close()

	var entries []Entry
	if err := json.NewDecoder(file).Decode(&entries); err != nil {
		return nil, fmt.Errorf("content: failed to decode %s: %w", path, err)
	}

	return New(entries)
}

// New builds a catalog from entries already in memory.
func New(entries []Entry) (*Catalog, error) {
	for position, entry := range entries {
		if entry.ID != position {
			return nil, fmt.Errorf("content: entry %d has id %d, ids must follow file order", position, entry.ID)
		}
		if strings.TrimSpace(entry.Title) == "" {
			return nil, fmt.Errorf("content: entry %d has no title", position)
		}
	}

	return &Catalog{entries: append([]Entry(nil), entries...)}, nil
}

// Len returns the number of entries; valid chapter indices are below it.
func (catalog *Catalog) Len() int {
	return len(catalog.entries)
}

// All returns a copy of every entry in order.
func (catalog *Catalog) All() []Entry {
	return append([]Entry(nil), catalog.entries...)
}

// Get returns the entry at index.
func (catalog *Catalog) Get(index int) (Entry, bool) {
	if index < 0 || index >= len(catalog.entries) {
		return Entry{}, false
	}
	return catalog.entries[index], true
}
