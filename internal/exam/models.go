package exam

import (
	"errors"
	"fmt"
	"strings"
)

type QuestionType string

const (
	TypeObjective QuestionType = "objective"
	TypeTheory    QuestionType = "theory"
)

type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

type Question struct {
	ID        string       `json:"id"`
	Type      QuestionType `json:"questionType"`
	Text      string       `json:"questionText"`
	Marks     int          `json:"marks"`
	Options   []Option     `json:"options,omitempty"` // objective only
	Subject   string       `json:"subject"`
	Class     string       `json:"class"`
	ImageKey  string       `json:"imageKey,omitempty"`
	CreatedBy string       `json:"created_by,omitempty"`
	CreatedAt int64        `json:"created_at,omitempty"`
}

// Validate enforces the authoring rules: marks at least 1, objective
// questions carry at least two populated options with exactly one marked
// correct, theory questions carry none.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return errors.New("question text required")
	}
	if q.Marks < 1 {
		return errors.New("marks must be at least 1")
	}
	switch q.Type {
	case TypeObjective:
		populated := 0
		correct := 0
		for _, o := range q.Options {
			if strings.TrimSpace(o.Text) != "" {
				populated++
				if o.IsCorrect {
					correct++
				}
			}
		}
		if populated < 2 {
			return errors.New("objective question needs at least two options")
		}
		if correct != 1 {
			return errors.New("objective question needs exactly one correct option")
		}
	case TypeTheory:
		if len(q.Options) > 0 {
			return errors.New("theory question must not have options")
		}
	default:
		return fmt.Errorf("unknown question type: %s", q.Type)
	}
	return nil
}

// TypeSelection is what the exam record persists per type: the pooled
// question ids plus how many of them each student draws.
type TypeSelection struct {
	Questions []string `json:"questions"`
	Count     int      `json:"count"`
}

type Selection struct {
	Objective TypeSelection `json:"objective"`
	Theory    TypeSelection `json:"theory"`
}

type Exam struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Subject     string `json:"subject"`
	Class       string `json:"class"`
	JoinCode    string `json:"joinCode,omitempty"`
	DurationMin int    `json:"durationMin"`
	TotalMarks  int    `json:"totalMarks"`
	// Estimated is true when TotalMarks was derived from a mark-mixed pool
	// and different draws can score differently.
	Estimated    bool      `json:"estimated"`
	PassingMarks int       `json:"passingMarks"`
	Selection    Selection `json:"questionBankSelection"`
	Status       string    `json:"status"` // draft|published
	CreatedBy    string    `json:"created_by,omitempty"`
	CreatedAt    int64     `json:"created_at,omitempty"`
}

type ExamSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Subject      string `json:"subject"`
	Class        string `json:"class"`
	Status       string `json:"status"`
	TotalMarks   int    `json:"totalMarks"`
	PassingMarks int    `json:"passingMarks"`
	CreatedAt    int64  `json:"created_at"`
}

type Attempt struct {
	ID     string `json:"id"`
	ExamID string `json:"exam_id"`
	UserID string `json:"user_id"`
	Status string `json:"status"` // in_progress|submitted|graded
	// Questions is this attempt's own random draw, fixed at join time.
	Questions   Drawn                  `json:"questions"`
	Responses   map[string]interface{} `json:"responses"`
	AutoScore   float64                `json:"auto_score"`
	Score       float64                `json:"score"`
	StartedAt   int64                  `json:"started_at"`
	SubmittedAt int64                  `json:"submitted_at,omitempty"`
}

// Drawn is the result of one random draw: the concrete questions a single
// preview or student attempt receives.
type Drawn struct {
	Objective []Question `json:"objective"`
	Theory    []Question `json:"theory"`
}

// StripAnswers blanks the correct-option flags so a drawn set can be served
// to students.
func (d Drawn) StripAnswers() Drawn {
	out := Drawn{
		Objective: make([]Question, len(d.Objective)),
		Theory:    make([]Question, len(d.Theory)),
	}
	copy(out.Theory, d.Theory)
	for i, q := range d.Objective {
		opts := make([]Option, len(q.Options))
		for j, o := range q.Options {
			opts[j] = Option{Text: o.Text}
		}
		q.Options = opts
		out.Objective[i] = q
	}
	return out
}
