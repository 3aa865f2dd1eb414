package utils

import (
	"encoding/json"
	"net/http"

	"github.com/expanova/cita-watcher/common/models"
	"github.com/rs/zerolog/log"
)

func writeBody(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Int("status", statusCode).Msg("Failed to encode response")
	}
}

// WriteJSON writes data wrapped in a BaseResponse
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	writeBody(w, statusCode, models.BaseResponse{Data: data})
}

// WriteMessage writes a plain message wrapped in a BaseResponse
func WriteMessage(w http.ResponseWriter, statusCode int, message string) {
	writeBody(w, statusCode, models.BaseResponse{Data: message})
}

// WriteError writes an ErrorResponse; the error field is the status text
func WriteError(w http.ResponseWriter, statusCode int, errorMessage string) {
	writeBody(w, statusCode, models.ErrorResponse{
		Error: http.StatusText(statusCode),
		Msg:   errorMessage,
	})
}

// WritePagination writes one page of data with its pagination metadata
func WritePagination(w http.ResponseWriter, statusCode int, data any, currentPage, perPage int, total int64) {
	var lastPage int64
	if perPage > 0 {
		lastPage = (total + int64(perPage) - 1) / int64(perPage)
	}

	writeBody(w, statusCode, models.BasePaginationResponse{
		Data: data,
		Meta: models.MetaResponse{
			CurrentPage: int64(currentPage),
			LastPage:    lastPage,
			PerPage:     int64(perPage),
			Total:       total,
		},
	})
}
