package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/expanova/cita-watcher/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusNotFound, "Watcher not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var res models.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, "Not Found", res.Error)
	assert.Equal(t, "Watcher not found", res.Msg)
}

func TestWritePagination(t *testing.T) {
	tests := []struct {
		name     string
		perPage  int
		total    int64
		lastPage int64
	}{
		{"exact pages", 10, 30, 3},
		{"partial last page", 10, 31, 4},
		{"empty", 10, 0, 0},
		{"zero page size", 0, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WritePagination(rec, http.StatusOK, []string{}, 1, tt.perPage, tt.total)

			var res models.BasePaginationResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
			assert.Equal(t, tt.lastPage, res.Meta.LastPage)
			assert.Equal(t, tt.total, res.Meta.Total)
		})
	}
}
