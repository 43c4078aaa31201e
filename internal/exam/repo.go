package exam

import (
	"context"
	"errors"
)

var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrExamNotFound     = errors.New("exam not found")
	ErrAttemptNotFound  = errors.New("attempt not found")
	// ErrAlreadyCompleted blocks re-joining an exam whose attempt was
	// already submitted; the teacher can reset the attempt to allow a
	// fresh draw.
	ErrAlreadyCompleted = errors.New("exam already completed")
	ErrAlreadySubmitted = errors.New("attempt already submitted")
)

// BankListOpts filters the question bank for the exam-creation picker.
type BankListOpts struct {
	Subject string
	Class   string
	Type    QuestionType
	Search  string
	Limit   int
	Offset  int
}

type ExamListOpts struct {
	Q          string
	Limit      int
	Offset     int
	ViewerID   string
	ViewerRole string // "student" | "teacher" | "admin"
}

type AttemptListOpts struct {
	ExamID string
	UserID string
	Status string // optional: in_progress|submitted|graded
	Limit  int
	Offset int
}

// ManualGradeInput is a teacher's mark for one theory response.
type ManualGradeInput struct {
	Marks   float64 `json:"marks"`
	Comment string  `json:"comment,omitempty"`
}

type Store interface {
	PutQuestion(ctx context.Context, q Question) error
	GetQuestion(ctx context.Context, id string) (Question, error)
	GetQuestions(ctx context.Context, ids []string) ([]Question, error)
	ListForSelection(ctx context.Context, opts BankListOpts) ([]Question, error)

	PutExam(ctx context.Context, e Exam) error
	GetExam(ctx context.Context, id string) (Exam, error)
	GetExamByCode(ctx context.Context, code string) (Exam, error)
	ListExams(ctx context.Context, opts ExamListOpts) ([]ExamSummary, error)

	// JoinExam returns the student's in-progress attempt, creating one with
	// a fresh random draw when none exists. A submitted attempt is refused
	// with ErrAlreadyCompleted.
	JoinExam(ctx context.Context, examID, userID string) (Attempt, error)
	SaveResponses(ctx context.Context, attemptID string, resp map[string]interface{}) (Attempt, error)
	// Submit grades the objective responses and closes the attempt.
	// Re-submitting returns ErrAlreadySubmitted so one submission yields
	// exactly one state transition.
	Submit(ctx context.Context, attemptID string) (Attempt, error)
	// ResetAttempt deletes the student's attempt so the next join performs
	// a fresh draw.
	ResetAttempt(ctx context.Context, examID, userID string) error
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error)
	ApplyManualGrades(ctx context.Context, attemptID string, updates map[string]ManualGradeInput, gradedBy string) (Attempt, error)
}
