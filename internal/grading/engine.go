package grading

import (
	"context"
	"errors"
	"strings"
)

// Option mirrors an objective question's option for grading purposes.
type Option struct {
	Text      string
	IsCorrect bool
}

// Q is a minimal view of a question needed for grading.
type Q struct {
	Type    string
	Marks   float64
	Options []Option
}

// Result is the outcome of grading a single question response.
type Result struct {
	AutoMarks   float64  // marks awarded automatically
	MaxMarks    float64  // the question's marks value
	NeedsManual bool     // true if teacher review is required
	Feedback    []string // optional notes
}

// Strategy grades a single question.
type Strategy interface {
	Grade(ctx context.Context, q Q, response interface{}) (Result, error)
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(ctx context.Context, q Q, response interface{}) (Result, error)
}

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Grade(ctx context.Context, q Q, response interface{}) (Result, error) {
	s, ok := g.strategies[q.Type]
	if !ok {
		return Result{MaxMarks: q.Marks, NeedsManual: true, Feedback: []string{"no strategy available"}}, nil
	}
	return s.Grade(ctx, q, response)
}

// NewDefaultGrader installs the built-in strategies: objective questions
// are auto-marked by option match, theory questions always go to the
// teacher.
func NewDefaultGrader() Grader {
	return &defaultGrader{
		strategies: map[string]Strategy{
			"objective": objectiveStrategy{},
			"theory":    theoryStrategy{},
		},
	}
}

// --- Strategies ---

type objectiveStrategy struct{}

// The response is the index of the chosen option (JSON number) or the
// option's text. All-or-nothing: the single correct option earns the full
// marks value.
func (objectiveStrategy) Grade(_ context.Context, q Q, response interface{}) (Result, error) {
	res := Result{MaxMarks: q.Marks}
	idx, ok := optionIndex(q, response)
	if !ok {
		return res, errors.New("response must be an option index or option text")
	}
	if idx >= 0 && idx < len(q.Options) && q.Options[idx].IsCorrect {
		res.AutoMarks = q.Marks
	}
	return res, nil
}

type theoryStrategy struct{}

func (theoryStrategy) Grade(_ context.Context, q Q, _ interface{}) (Result, error) {
	return Result{MaxMarks: q.Marks, NeedsManual: true, Feedback: []string{"manual grading required"}}, nil
}

func optionIndex(q Q, response interface{}) (int, bool) {
	switch v := response.(type) {
	case int:
		return v, true
	case float64: // JSON numbers decode as float64
		return int(v), true
	case string:
		want := strings.TrimSpace(v)
		for i, o := range q.Options {
			if strings.EqualFold(strings.TrimSpace(o.Text), want) {
				return i, true
			}
		}
		return -1, true
	default:
		return 0, false
	}
}
