package http

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/edumark/cbt-server/internal/exam"
)

type previewTypeReq struct {
	Questions []exam.Question `json:"questions"`
	Count     int             `json:"count"`
}

type previewReq struct {
	Objective previewTypeReq `json:"objective"`
	Theory    previewTypeReq `json:"theory"`
}

// PreviewRandomSelectionHandler materializes one random draw for teacher
// review. The sample is advisory: each student attempt later performs its
// own independent draw.
func PreviewRandomSelectionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req previewReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		pool := exam.NewPool()
		for _, q := range req.Objective.Questions {
			q.Type = exam.TypeObjective
			// unsaved questions arrive without ids; give each its own so
			// they don't collapse into one pool entry
			if q.ID == "" {
				q.ID = uuid.NewString()
			}
			pool = pool.Add(q)
		}
		for _, q := range req.Theory.Questions {
			q.Type = exam.TypeTheory
			if q.ID == "" {
				q.ID = uuid.NewString()
			}
			pool = pool.Add(q)
		}
		plan := exam.Plan{
			Objective: exam.PlanCount{Count: req.Objective.Count},
			Theory:    exam.PlanCount{Count: req.Theory.Count},
		}
		if pool.Empty() && req.Objective.Count == 0 && req.Theory.Count == 0 {
			writeJSON(w, http.StatusOK, exam.Drawn{Objective: []exam.Question{}, Theory: []exam.Question{}})
			return
		}
		drawn, err := exam.Sample(pool, plan, nil)
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, drawn)
	}
}
