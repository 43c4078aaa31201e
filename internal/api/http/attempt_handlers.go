package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/edumark/cbt-server/internal/audit"
	auth "github.com/edumark/cbt-server/internal/auth/middleware"
	"github.com/edumark/cbt-server/internal/exam"
	"github.com/edumark/cbt-server/internal/rbac"
)

// POST /exams/join  { "code": "AB12CD" }
func JoinExamHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Code string `json:"code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		code := strings.ToUpper(strings.TrimSpace(req.Code))
		if code == "" {
			http.Error(w, "code required", http.StatusBadRequest)
			return
		}
		e, err := store.GetExamByCode(r.Context(), code)
		if err != nil {
			storeError(w, err)
			return
		}
		if e.Status != "published" {
			http.Error(w, "exam not open", http.StatusConflict)
			return
		}
		a, err := store.JoinExam(r.Context(), e.ID, auth.SubjectFromContext(r.Context()))
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"exam": exam.ExamSummary{
				ID: e.ID, Title: e.Title, Subject: e.Subject, Class: e.Class,
				Status: e.Status, TotalMarks: e.TotalMarks, PassingMarks: e.PassingMarks, CreatedAt: e.CreatedAt,
			},
			"durationMin": e.DurationMin,
			"attempt":     a,
		})
	}
}

func SaveResponsesHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		var resp map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&resp); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := requireOwn(r, store, id); err != nil {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		a, err := store.SaveResponses(r.Context(), id, resp)
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func SubmitAttemptHandler(store exam.Store, events *audit.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		if err := requireOwn(r, store, id); err != nil {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		a, err := store.Submit(r.Context(), id)
		if err != nil {
			storeError(w, err)
			return
		}
		if events != nil {
			_ = events.Append(r.Context(), audit.Event{
				Type: audit.EventAttemptSubmitted, Key: a.ID, Actor: a.UserID,
				Data: map[string]interface{}{"exam_id": a.ExamID, "score": a.Score},
			})
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// POST /exams/{examID}/reset  { "user_id": "..." }  (teacher action)
func ResetAttemptHandler(store exam.Store, events *audit.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID := chi.URLParam(r, "examID")
		var req struct {
			UserID string `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.UserID == "" {
			http.Error(w, "user_id required", http.StatusBadRequest)
			return
		}
		if err := store.ResetAttempt(r.Context(), examID, req.UserID); err != nil {
			storeError(w, err)
			return
		}
		if events != nil {
			_ = events.Append(r.Context(), audit.Event{
				Type: audit.EventAttemptReset, Key: examID, Actor: auth.SubjectFromContext(r.Context()),
				Data: map[string]interface{}{"user_id": req.UserID},
			})
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
	}
}

func GetAttemptHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		a, err := store.GetAttempt(r.Context(), id)
		if err != nil {
			storeError(w, err)
			return
		}
		if rbac.RoleFromContext(r.Context()) == "student" && a.UserID != auth.SubjectFromContext(r.Context()) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func ListAttemptsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := exam.AttemptListOpts{
			ExamID: r.URL.Query().Get("exam_id"),
			UserID: r.URL.Query().Get("user_id"),
			Status: r.URL.Query().Get("status"),
			Limit:  parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset: parseIntDefault(r.URL.Query().Get("offset"), 0),
		}
		// students only ever see their own attempts
		if rbac.RoleFromContext(r.Context()) == "student" {
			opts.UserID = auth.SubjectFromContext(r.Context())
		}
		list, err := store.ListAttempts(r.Context(), opts)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /attempts/{attemptID}/grades  { "<questionID>": {"marks": 3, "comment": "..."} }
func ApplyManualGradesHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		var updates map[string]exam.ManualGradeInput
		if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if len(updates) == 0 {
			http.Error(w, "no grades given", http.StatusBadRequest)
			return
		}
		a, err := store.ApplyManualGrades(r.Context(), id, updates, auth.SubjectFromContext(r.Context()))
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func requireOwn(r *http.Request, store exam.Store, attemptID string) error {
	if rbac.RoleFromContext(r.Context()) != "student" {
		return nil
	}
	a, err := store.GetAttempt(r.Context(), attemptID)
	if err != nil {
		// let the main handler surface the not-found
		return nil
	}
	if a.UserID != auth.SubjectFromContext(r.Context()) {
		return exam.ErrAttemptNotFound
	}
	return nil
}
