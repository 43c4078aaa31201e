package exam

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edumark/cbt-server/internal/grading"
)

// memoryStore backs tests and single-machine dev runs.
type memoryStore struct {
	mu        sync.RWMutex
	questions map[string]Question
	exams     map[string]Exam
	attempts  map[string]Attempt
	manual    map[string]map[string]manualGradeRecord
	grader    grading.Grader
}

func NewInMemoryStore(grader grading.Grader) Store {
	return &memoryStore{
		questions: map[string]Question{},
		exams:     map[string]Exam{},
		attempts:  map[string]Attempt{},
		manual:    map[string]map[string]manualGradeRecord{},
		grader:    grader,
	}
}

func (m *memoryStore) PutQuestion(_ context.Context, q Question) error {
	if err := q.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt == 0 {
		q.CreatedAt = time.Now().Unix()
	}
	m.questions[q.ID] = q
	return nil
}

func (m *memoryStore) GetQuestion(_ context.Context, id string) (Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return Question{}, ErrQuestionNotFound
	}
	return q, nil
}

func (m *memoryStore) GetQuestions(_ context.Context, ids []string) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Question, 0, len(ids))
	for _, id := range ids {
		q, ok := m.questions[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
		}
		out = append(out, q)
	}
	return out, nil
}

func (m *memoryStore) ListForSelection(_ context.Context, opts BankListOpts) ([]Question, error) {
	if opts.Limit <= 0 || opts.Limit > 200 {
		opts.Limit = 50
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Question{}
	for _, q := range m.questions {
		if opts.Subject != "" && q.Subject != opts.Subject {
			continue
		}
		if opts.Class != "" && q.Class != opts.Class {
			continue
		}
		if opts.Type != "" && q.Type != opts.Type {
			continue
		}
		if opts.Search != "" && !strings.Contains(strings.ToLower(q.Text), strings.ToLower(opts.Search)) {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	if opts.Offset >= len(out) {
		return []Question{}, nil
	}
	out = out[opts.Offset:]
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *memoryStore) PutExam(_ context.Context, e Exam) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().Unix()
	}
	m.exams[e.ID] = e
	return nil
}

func (m *memoryStore) GetExam(_ context.Context, id string) (Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.exams[id]
	if !ok {
		return Exam{}, ErrExamNotFound
	}
	return e, nil
}

func (m *memoryStore) GetExamByCode(_ context.Context, code string) (Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.exams {
		if e.JoinCode == code {
			return e, nil
		}
	}
	return Exam{}, ErrExamNotFound
}

func (m *memoryStore) ListExams(_ context.Context, opts ExamListOpts) ([]ExamSummary, error) {
	if opts.Limit <= 0 || opts.Limit > 200 {
		opts.Limit = 50
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []ExamSummary{}
	for _, e := range m.exams {
		if opts.Q != "" && !strings.Contains(strings.ToLower(e.Title), strings.ToLower(opts.Q)) {
			continue
		}
		switch opts.ViewerRole {
		case "teacher":
			if e.CreatedBy != opts.ViewerID {
				continue
			}
		case "admin":
		default:
			if e.Status != "published" {
				continue
			}
		}
		out = append(out, ExamSummary{
			ID: e.ID, Title: e.Title, Subject: e.Subject, Class: e.Class,
			Status: e.Status, TotalMarks: e.TotalMarks, PassingMarks: e.PassingMarks, CreatedAt: e.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	if opts.Offset >= len(out) {
		return []ExamSummary{}, nil
	}
	out = out[opts.Offset:]
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *memoryStore) JoinExam(ctx context.Context, examID, userID string) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exams[examID]
	if !ok {
		return Attempt{}, ErrExamNotFound
	}
	for _, a := range m.attempts {
		if a.ExamID == examID && a.UserID == userID {
			if a.Status != "in_progress" {
				return Attempt{}, ErrAlreadyCompleted
			}
			a.Questions = a.Questions.StripAnswers()
			return a, nil
		}
	}
	pool := NewPool()
	for _, id := range e.Selection.Objective.Questions {
		q, ok := m.questions[id]
		if !ok {
			return Attempt{}, fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
		}
		pool = pool.Add(q)
	}
	for _, id := range e.Selection.Theory.Questions {
		q, ok := m.questions[id]
		if !ok {
			return Attempt{}, fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
		}
		pool = pool.Add(q)
	}
	plan := Plan{
		Objective: PlanCount{Count: e.Selection.Objective.Count},
		Theory:    PlanCount{Count: e.Selection.Theory.Count},
	}
	drawn, err := Sample(pool, plan, nil)
	if err != nil {
		return Attempt{}, err
	}
	a := Attempt{
		ID:        uuid.NewString(),
		ExamID:    examID,
		UserID:    userID,
		Status:    "in_progress",
		Questions: drawn,
		Responses: map[string]interface{}{},
		StartedAt: time.Now().Unix(),
	}
	m.attempts[a.ID] = a
	a.Questions = a.Questions.StripAnswers()
	return a, nil
}

func (m *memoryStore) SaveResponses(_ context.Context, attemptID string, resp map[string]interface{}) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptID]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	if a.Status != "in_progress" {
		return Attempt{}, ErrAlreadySubmitted
	}
	if a.Responses == nil {
		a.Responses = map[string]interface{}{}
	}
	for k, v := range resp {
		a.Responses[k] = v
	}
	m.attempts[attemptID] = a
	a.Questions = a.Questions.StripAnswers()
	return a, nil
}

func (m *memoryStore) Submit(ctx context.Context, attemptID string) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptID]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	if a.Status != "in_progress" {
		return Attempt{}, ErrAlreadySubmitted
	}
	score := 0.0
	for _, q := range a.Questions.Objective {
		resp, has := a.Responses[q.ID]
		if !has {
			continue
		}
		gq := grading.Q{Type: string(q.Type), Marks: float64(q.Marks), Options: gradingOptions(q.Options)}
		res, err := m.grader.Grade(ctx, gq, resp)
		if err != nil {
			continue
		}
		score += res.AutoMarks
	}
	a.AutoScore = score
	a.Score = score
	a.Status = "submitted"
	a.SubmittedAt = time.Now().Unix()
	m.attempts[attemptID] = a
	a.Questions = a.Questions.StripAnswers()
	return a, nil
}

func (m *memoryStore) ResetAttempt(_ context.Context, examID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.attempts {
		if a.ExamID == examID && a.UserID == userID {
			delete(m.attempts, id)
			delete(m.manual, id)
			return nil
		}
	}
	return ErrAttemptNotFound
}

func (m *memoryStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	a.Questions = a.Questions.StripAnswers()
	return a, nil
}

func (m *memoryStore) ListAttempts(_ context.Context, opts AttemptListOpts) ([]Attempt, error) {
	if opts.Limit <= 0 || opts.Limit > 200 {
		opts.Limit = 50
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Attempt{}
	for _, a := range m.attempts {
		if opts.ExamID != "" && a.ExamID != opts.ExamID {
			continue
		}
		if opts.UserID != "" && a.UserID != opts.UserID {
			continue
		}
		if opts.Status != "" && a.Status != opts.Status {
			continue
		}
		a.Questions = a.Questions.StripAnswers()
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt > out[j].StartedAt })
	if opts.Offset >= len(out) {
		return []Attempt{}, nil
	}
	out = out[opts.Offset:]
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *memoryStore) ApplyManualGrades(_ context.Context, attemptID string, updates map[string]ManualGradeInput, gradedBy string) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptID]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	if a.Status == "in_progress" {
		return Attempt{}, errors.New("attempt not yet submitted")
	}
	byID := map[string]Question{}
	for _, q := range a.Questions.Theory {
		byID[q.ID] = q
	}
	manual := m.manual[attemptID]
	if manual == nil {
		manual = map[string]manualGradeRecord{}
	}
	now := time.Now().Unix()
	for qid, in := range updates {
		q, ok := byID[qid]
		if !ok {
			return Attempt{}, fmt.Errorf("question %s not in this attempt", qid)
		}
		if in.Marks < 0 || in.Marks > float64(q.Marks) {
			return Attempt{}, fmt.Errorf("marks for %s out of range 0..%d", qid, q.Marks)
		}
		manual[qid] = manualGradeRecord{Marks: in.Marks, Comment: in.Comment, GradedBy: gradedBy, GradedAt: now}
	}
	m.manual[attemptID] = manual
	total := a.AutoScore
	for _, rec := range manual {
		total += rec.Marks
	}
	a.Score = total
	a.Status = "graded"
	m.attempts[attemptID] = a
	a.Questions = a.Questions.StripAnswers()
	return a, nil
}
