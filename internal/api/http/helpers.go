package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/edumark/cbt-server/internal/exam"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// storeError maps domain errors onto HTTP statuses: not-found → 404,
// completed/submitted conflicts → 409, plan bounds violations → 422,
// anything else → 400.
func storeError(w http.ResponseWriter, err error) {
	var rangeErr *exam.CountRangeError
	switch {
	case errors.Is(err, exam.ErrQuestionNotFound),
		errors.Is(err, exam.ErrExamNotFound),
		errors.Is(err, exam.ErrAttemptNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, exam.ErrAlreadyCompleted),
		errors.Is(err, exam.ErrAlreadySubmitted):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &rangeErr):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
