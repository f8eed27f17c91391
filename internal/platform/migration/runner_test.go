// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertToPgx5DSN(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@localhost:5432/tikkun":   "pgx5://u:p@localhost:5432/tikkun",
		"postgresql://u:p@localhost:5432/tikkun": "pgx5://u:p@localhost:5432/tikkun",
		"pgx5://u:p@localhost/tikkun":            "pgx5://u:p@localhost/tikkun",
		"host=localhost dbname=tikkun":           "host=localhost dbname=tikkun",
	}

	for input, want := range tests {
		assert.Equal(t, want, convertToPgx5DSN(input), input)
	}
}
