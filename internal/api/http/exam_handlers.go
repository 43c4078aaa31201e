package http

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/edumark/cbt-server/internal/audit"
	auth "github.com/edumark/cbt-server/internal/auth/middleware"
	"github.com/edumark/cbt-server/internal/exam"
	"github.com/edumark/cbt-server/internal/rbac"
)

type examReq struct {
	Title        string         `json:"title" validate:"required"`
	Subject      string         `json:"subject" validate:"required"`
	Class        string         `json:"class" validate:"required"`
	DurationMin  int            `json:"durationMin" validate:"required,gte=1"`
	PassingMarks *int           `json:"passingMarks"`
	Status       string         `json:"status" validate:"omitempty,oneof=draft published"`
	Selection    exam.Selection `json:"questionBankSelection"`
}

// applySelection re-derives the totals server-side: the client's figures
// are never trusted. Returns the populated exam value.
func applySelection(r *http.Request, store exam.Store, req examReq, e exam.Exam) (exam.Exam, error) {
	pool := exam.NewPool()
	for _, id := range req.Selection.Objective.Questions {
		q, err := store.GetQuestion(r.Context(), id)
		if err != nil {
			return exam.Exam{}, err
		}
		if q.Type != exam.TypeObjective {
			return exam.Exam{}, fmt.Errorf("question %s is not objective", id)
		}
		pool = pool.Add(q)
	}
	for _, id := range req.Selection.Theory.Questions {
		q, err := store.GetQuestion(r.Context(), id)
		if err != nil {
			return exam.Exam{}, err
		}
		if q.Type != exam.TypeTheory {
			return exam.Exam{}, fmt.Errorf("question %s is not theory", id)
		}
		pool = pool.Add(q)
	}
	plan := exam.Plan{
		Objective: exam.PlanCount{Count: req.Selection.Objective.Count},
		Theory:    exam.PlanCount{Count: req.Selection.Theory.Count},
	}
	marks, err := exam.DeriveMarks(pool, plan)
	if err != nil {
		return exam.Exam{}, err
	}

	e.Title = req.Title
	e.Subject = req.Subject
	e.Class = req.Class
	e.DurationMin = req.DurationMin
	e.Selection = req.Selection
	e.TotalMarks = marks.Total
	e.Estimated = marks.Estimated()
	e.PassingMarks = marks.Passing
	if req.PassingMarks != nil {
		if *req.PassingMarks < 0 || *req.PassingMarks > marks.Total {
			return exam.Exam{}, fmt.Errorf("passingMarks out of range 0..%d", marks.Total)
		}
		e.PassingMarks = *req.PassingMarks
	}
	if req.Status != "" {
		e.Status = req.Status
	}
	if e.Status == "" {
		e.Status = "draft"
	}
	return e, nil
}

func CreateExamHandler(store exam.Store, events *audit.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req examReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		e := exam.Exam{
			ID:        uuid.NewString(),
			CreatedBy: auth.SubjectFromContext(r.Context()),
			CreatedAt: time.Now().Unix(),
		}
		e, err := applySelection(r, store, req, e)
		if err != nil {
			storeError(w, err)
			return
		}
		// join codes are short, so a collision is possible; re-roll on the
		// unique constraint instead of surfacing a 500
		for tries := 0; ; tries++ {
			e.JoinCode = newJoinCode()
			err = store.PutExam(r.Context(), e)
			if err == nil {
				break
			}
			if !isUniqueViolation(err) || tries >= 4 {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}
		if events != nil && e.Status == "published" {
			_ = events.Append(r.Context(), audit.Event{
				Type: audit.EventExamPublished, Key: e.ID, Actor: e.CreatedBy,
				Data: map[string]interface{}{"title": e.Title, "totalMarks": e.TotalMarks},
			})
		}
		writeJSON(w, http.StatusCreated, e)
	}
}

func UpdateExamHandler(store exam.Store, events *audit.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "examID")
		cur, err := store.GetExam(r.Context(), id)
		if err != nil {
			storeError(w, err)
			return
		}
		sub := auth.SubjectFromContext(r.Context())
		if rbac.RoleFromContext(r.Context()) != "admin" && cur.CreatedBy != sub {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		var req examReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		wasPublished := cur.Status == "published"
		e, err := applySelection(r, store, req, cur)
		if err != nil {
			storeError(w, err)
			return
		}
		if err := store.PutExam(r.Context(), e); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if events != nil && !wasPublished && e.Status == "published" {
			_ = events.Append(r.Context(), audit.Event{
				Type: audit.EventExamPublished, Key: e.ID, Actor: sub,
				Data: map[string]interface{}{"title": e.Title, "totalMarks": e.TotalMarks},
			})
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func GetExamHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "examID")
		e, err := store.GetExam(r.Context(), id)
		if err != nil {
			storeError(w, err)
			return
		}
		// students never see the pooled ids or the join code
		if rbac.RoleFromContext(r.Context()) == "student" {
			e.JoinCode = ""
			e.Selection = exam.Selection{}
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func ListExamsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListExams(r.Context(), exam.ExamListOpts{
			Q:          strings.TrimSpace(r.URL.Query().Get("q")),
			Limit:      parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset:     parseIntDefault(r.URL.Query().Get("offset"), 0),
			ViewerID:   auth.SubjectFromContext(r.Context()),
			ViewerRole: rbac.RoleFromContext(r.Context()),
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

const joinCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789" // no 0/O, 1/I/L

func newJoinCode() string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = joinCodeAlphabet[rand.Intn(len(joinCodeAlphabet))]
	}
	return string(b)
}
