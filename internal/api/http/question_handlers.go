package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	auth "github.com/edumark/cbt-server/internal/auth/middleware"
	"github.com/edumark/cbt-server/internal/cache"
	"github.com/edumark/cbt-server/internal/exam"
)

var validate = validator.New()

type createQuestionReq struct {
	QuestionText string        `json:"questionText" validate:"required"`
	QuestionType string        `json:"questionType" validate:"required,oneof=objective theory"`
	Subject      string        `json:"subject" validate:"required"`
	Class        string        `json:"class" validate:"required"`
	Marks        int           `json:"marks" validate:"required,gte=1"`
	Options      []exam.Option `json:"options"`
	ImageKey     string        `json:"imageKey"`
}

func CreateQuestionHandler(store exam.Store, bank cache.BankCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createQuestionReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		q := exam.Question{
			ID:        uuid.NewString(),
			Type:      exam.QuestionType(req.QuestionType),
			Text:      req.QuestionText,
			Marks:     req.Marks,
			Options:   req.Options,
			Subject:   req.Subject,
			Class:     req.Class,
			ImageKey:  req.ImageKey,
			CreatedBy: auth.SubjectFromContext(r.Context()),
			CreatedAt: time.Now().Unix(),
		}
		if err := q.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := store.PutQuestion(r.Context(), q); err != nil {
			storeError(w, err)
			return
		}
		if bank != nil {
			bank.Invalidate(r.Context())
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

// GET /questions/for-selection?subject=&class=&questionType=&search=&limit=
func ListForSelectionHandler(store exam.Store, bank cache.BankCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qv := r.URL.Query()
		opts := exam.BankListOpts{
			Subject: strings.TrimSpace(qv.Get("subject")),
			Class:   strings.TrimSpace(qv.Get("class")),
			Type:    exam.QuestionType(strings.TrimSpace(qv.Get("questionType"))),
			Search:  strings.TrimSpace(qv.Get("search")),
			Limit:   parseIntDefault(qv.Get("limit"), 50),
			Offset:  parseIntDefault(qv.Get("offset"), 0),
		}
		if bank != nil {
			if qs, ok := bank.Get(r.Context(), opts); ok {
				writeJSON(w, http.StatusOK, qs)
				return
			}
		}
		qs, err := store.ListForSelection(r.Context(), opts)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if bank != nil {
			bank.Set(r.Context(), opts, qs)
		}
		writeJSON(w, http.StatusOK, qs)
	}
}
