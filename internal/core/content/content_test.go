// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package content_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tikkun/internal/core/content"
)

func TestLoad_ShippedCatalog(t *testing.T) {
	catalog, err := content.Load(filepath.Join("..", "..", "..", "data", "chapters.json"))
	require.NoError(t, err)

	assert.Equal(t, 10, catalog.Len())
	first, ok := catalog.Get(0)
	require.True(t, ok)
	assert.Equal(t, 16, first.Psalm)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"malformed", `[{"id":`},
		{"gap_in_ids", `[{"id":0,"psalm":1,"title":"a"},{"id":2,"psalm":2,"title":"b"}]`},
		{"missing_title", `[{"id":0,"psalm":1,"title":" "}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "chapters.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.payload), 0o600))

			_, err := content.Load(path)
			assert.Error(t, err)
		})
	}

	_, err := content.Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestHandler(t *testing.T) {
	catalog, err := content.New([]content.Entry{
		{ID: 0, Psalm: 16, Title: "first"},
		{ID: 1, Psalm: 32, Title: "second"},
	})
	require.NoError(t, err)

	router := chi.NewRouter()
	content.NewHandler(catalog).RegisterRoutes(router)

	tests := []struct {
		path   string
		status int
	}{
		{"/chapters", http.StatusOK},
		{"/chapters/1", http.StatusOK},
		{"/chapters/2", http.StatusNotFound},
		{"/chapters/x", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, recorder.Code)
		})
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/chapters", nil))

	var body struct {
		Data []content.Entry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, catalog.All(), body.Data)
}
