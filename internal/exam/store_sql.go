package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edumark/cbt-server/internal/grading"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
	grader grading.Grader
}

func NewSQLStore(db *sql.DB, driver string, grader grading.Grader) *SQLStore {
	return &SQLStore{db: db, driver: driver, grader: grader}
}

func (s *SQLStore) PutQuestion(ctx context.Context, q Question) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt == 0 {
		q.CreatedAt = time.Now().Unix()
	}
	oj, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO questions (id,qtype,text,marks,options_json,subject,class,image_key,created_by,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET qtype=EXCLUDED.qtype, text=EXCLUDED.text, marks=EXCLUDED.marks,
			options_json=EXCLUDED.options_json, subject=EXCLUDED.subject, class=EXCLUDED.class, image_key=EXCLUDED.image_key`,
		q.ID, string(q.Type), q.Text, q.Marks, string(oj), q.Subject, q.Class, q.ImageKey, q.CreatedBy, q.CreatedAt)
	return err
}

func (s *SQLStore) GetQuestion(ctx context.Context, id string) (Question, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,qtype,text,marks,options_json,subject,class,image_key,created_by,created_at
		FROM questions WHERE id=$1`, id)
	return scanQuestion(row)
}

func (s *SQLStore) GetQuestions(ctx context.Context, ids []string) ([]Question, error) {
	if len(ids) == 0 {
		return []Question{}, nil
	}
	ph := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		ph[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id,qtype,text,marks,options_json,subject,class,image_key,created_by,created_at
		FROM questions WHERE id IN (`+strings.Join(ph, ",")+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byID := map[string]Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		byID[q.ID] = q
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// preserve request order; a missing id is a hard error because exams
	// reference questions by id
	out := make([]Question, 0, len(ids))
	for _, id := range ids {
		q, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *SQLStore) ListForSelection(ctx context.Context, opts BankListOpts) ([]Question, error) {
	if opts.Limit <= 0 || opts.Limit > 200 {
		opts.Limit = 50
	}
	where := []string{"1=1"}
	args := []interface{}{}
	n := 0
	add := func(cond string, v interface{}) {
		n++
		where = append(where, fmt.Sprintf(cond, n))
		args = append(args, v)
	}
	if opts.Subject != "" {
		add("subject=$%d", opts.Subject)
	}
	if opts.Class != "" {
		add("class=$%d", opts.Class)
	}
	if opts.Type != "" {
		add("qtype=$%d", string(opts.Type))
	}
	if opts.Search != "" {
		add("text LIKE $%d", "%"+opts.Search+"%")
	}
	q := fmt.Sprintf(`SELECT id,qtype,text,marks,options_json,subject,class,image_key,created_by,created_at
		FROM questions WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		strings.Join(where, " AND "), opts.Limit, opts.Offset)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		qn, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, qn)
	}
	return out, rows.Err()
}

func (s *SQLStore) PutExam(ctx context.Context, e Exam) error {
	sj, err := json.Marshal(e.Selection)
	if err != nil {
		return err
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().Unix()
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO exams (id,title,subject,class,join_code,duration_min,total_marks,passing_marks,estimated,selection_json,status,created_by,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, subject=EXCLUDED.subject, class=EXCLUDED.class,
			duration_min=EXCLUDED.duration_min, total_marks=EXCLUDED.total_marks, passing_marks=EXCLUDED.passing_marks,
			estimated=EXCLUDED.estimated, selection_json=EXCLUDED.selection_json, status=EXCLUDED.status`,
		e.ID, e.Title, e.Subject, e.Class, e.JoinCode, e.DurationMin, e.TotalMarks, e.PassingMarks, e.Estimated,
		string(sj), e.Status, e.CreatedBy, e.CreatedAt)
	return err
}

func (s *SQLStore) GetExam(ctx context.Context, id string) (Exam, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,title,subject,class,join_code,duration_min,total_marks,passing_marks,estimated,selection_json,status,created_by,created_at
		FROM exams WHERE id=$1`, id)
	return scanExam(row)
}

func (s *SQLStore) GetExamByCode(ctx context.Context, code string) (Exam, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,title,subject,class,join_code,duration_min,total_marks,passing_marks,estimated,selection_json,status,created_by,created_at
		FROM exams WHERE join_code=$1`, code)
	return scanExam(row)
}

func (s *SQLStore) ListExams(ctx context.Context, opts ExamListOpts) ([]ExamSummary, error) {
	if opts.Limit <= 0 || opts.Limit > 200 {
		opts.Limit = 50
	}
	where := []string{"1=1"}
	args := []interface{}{}
	n := 0
	add := func(cond string, v interface{}) {
		n++
		where = append(where, fmt.Sprintf(cond, n))
		args = append(args, v)
	}
	if opts.Q != "" {
		add("title LIKE $%d", "%"+opts.Q+"%")
	}
	switch opts.ViewerRole {
	case "teacher":
		add("created_by=$%d", opts.ViewerID)
	case "admin":
		// no scoping
	default:
		add("status=$%d", "published")
	}
	q := fmt.Sprintf(`SELECT id,title,subject,class,status,total_marks,passing_marks,created_at
		FROM exams WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		strings.Join(where, " AND "), opts.Limit, opts.Offset)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ExamSummary{}
	for rows.Next() {
		var e ExamSummary
		if err := rows.Scan(&e.ID, &e.Title, &e.Subject, &e.Class, &e.Status, &e.TotalMarks, &e.PassingMarks, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) JoinExam(ctx context.Context, examID, userID string) (Attempt, error) {
	e, err := s.GetExam(ctx, examID)
	if err != nil {
		return Attempt{}, err
	}
	// resume or refuse before drawing
	row := s.db.QueryRowContext(ctx, `SELECT id,status FROM attempts WHERE exam_id=$1 AND user_id=$2`, examID, userID)
	var existingID, status string
	switch err := row.Scan(&existingID, &status); {
	case err == nil:
		if status != "in_progress" {
			return Attempt{}, ErrAlreadyCompleted
		}
		return s.GetAttempt(ctx, existingID)
	case errors.Is(err, sql.ErrNoRows):
		// fresh join
	default:
		return Attempt{}, err
	}

	drawn, err := s.drawForExam(ctx, e)
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
	qj, _ := json.Marshal(a.Questions)
	rj, _ := json.Marshal(a.Responses)
	_, err = s.db.ExecContext(ctx, `INSERT INTO attempts (id,exam_id,user_id,status,auto_score,score,questions_json,responses_json,manual_json,started_at)
		VALUES ($1,$2,$3,'in_progress',0,0,$4,$5,'{}',$6)`,
		a.ID, a.ExamID, a.UserID, string(qj), string(rj), a.StartedAt)
	if err != nil {
		return Attempt{}, err
	}
	a.Questions = a.Questions.StripAnswers()
	return a, nil
}

// drawForExam materializes the exam's pooled questions and performs this
// attempt's independent draw.
func (s *SQLStore) drawForExam(ctx context.Context, e Exam) (Drawn, error) {
	obj, err := s.GetQuestions(ctx, e.Selection.Objective.Questions)
	if err != nil {
		return Drawn{}, err
	}
	th, err := s.GetQuestions(ctx, e.Selection.Theory.Questions)
	if err != nil {
		return Drawn{}, err
	}
	pool := NewPool()
	for _, q := range obj {
		pool = pool.Add(q)
	}
	for _, q := range th {
		pool = pool.Add(q)
	}
	plan := Plan{
		Objective: PlanCount{Count: e.Selection.Objective.Count},
		Theory:    PlanCount{Count: e.Selection.Theory.Count},
	}
	return Sample(pool, plan, nil)
}

func (s *SQLStore) SaveResponses(ctx context.Context, attemptID string, resp map[string]interface{}) (Attempt, error) {
	a, _, err := s.getAttemptFull(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
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
	buf, _ := json.Marshal(a.Responses)
	if _, err := s.db.ExecContext(ctx, `UPDATE attempts SET responses_json=$1 WHERE id=$2`, string(buf), attemptID); err != nil {
		return Attempt{}, err
	}
	return s.GetAttempt(ctx, attemptID)
}

func (s *SQLStore) Submit(ctx context.Context, attemptID string) (Attempt, error) {
	a, _, err := s.getAttemptFull(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
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
		res, err := s.grader.Grade(ctx, gq, resp)
		if err != nil {
			continue
		}
		score += res.AutoMarks
	}

	buf, _ := json.Marshal(a.Responses)
	_, err = s.db.ExecContext(ctx, `UPDATE attempts SET status='submitted', auto_score=$1, score=$1, responses_json=$2, submitted_at=$3 WHERE id=$4`,
		score, string(buf), time.Now().Unix(), attemptID)
	if err != nil {
		return Attempt{}, err
	}
	return s.GetAttempt(ctx, attemptID)
}

func (s *SQLStore) ResetAttempt(ctx context.Context, examID, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM attempts WHERE exam_id=$1 AND user_id=$2`, examID, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrAttemptNotFound
	}
	return nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	a, _, err := s.getAttemptFull(ctx, id)
	if err != nil {
		return Attempt{}, err
	}
	a.Questions = a.Questions.StripAnswers()
	return a, nil
}

type manualGradeRecord struct {
	Marks    float64 `json:"marks"`
	Comment  string  `json:"comment,omitempty"`
	GradedBy string  `json:"graded_by"`
	GradedAt int64   `json:"graded_at"`
}

func (s *SQLStore) ApplyManualGrades(ctx context.Context, attemptID string, updates map[string]ManualGradeInput, gradedBy string) (Attempt, error) {
	a, manual, err := s.getAttemptFull(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.Status == "in_progress" {
		return Attempt{}, errors.New("attempt not yet submitted")
	}
	byID := map[string]Question{}
	for _, q := range a.Questions.Theory {
		byID[q.ID] = q
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
	total := a.AutoScore
	for _, rec := range manual {
		total += rec.Marks
	}
	mj, _ := json.Marshal(manual)
	_, err = s.db.ExecContext(ctx, `UPDATE attempts SET status='graded', score=$1, manual_json=$2 WHERE id=$3`,
		total, string(mj), attemptID)
	if err != nil {
		return Attempt{}, err
	}
	return s.GetAttempt(ctx, attemptID)
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	if opts.Limit <= 0 || opts.Limit > 200 {
		opts.Limit = 50
	}
	where := []string{"1=1"}
	args := []interface{}{}
	n := 0
	add := func(cond string, v interface{}) {
		n++
		where = append(where, fmt.Sprintf(cond, n))
		args = append(args, v)
	}
	if opts.ExamID != "" {
		add("exam_id=$%d", opts.ExamID)
	}
	if opts.UserID != "" {
		add("user_id=$%d", opts.UserID)
	}
	if opts.Status != "" {
		add("status=$%d", opts.Status)
	}
	q := fmt.Sprintf(`SELECT id,exam_id,user_id,status,auto_score,score,questions_json,responses_json,started_at,COALESCE(submitted_at,0)
		FROM attempts WHERE %s ORDER BY started_at DESC LIMIT %d OFFSET %d`,
		strings.Join(where, " AND "), opts.Limit, opts.Offset)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		var a Attempt
		var qj, rj string
		if err := rows.Scan(&a.ID, &a.ExamID, &a.UserID, &a.Status, &a.AutoScore, &a.Score, &qj, &rj, &a.StartedAt, &a.SubmittedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(qj), &a.Questions)
		_ = json.Unmarshal([]byte(rj), &a.Responses)
		a.Questions = a.Questions.StripAnswers()
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) getAttemptFull(ctx context.Context, id string) (Attempt, map[string]manualGradeRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,exam_id,user_id,status,auto_score,score,questions_json,responses_json,manual_json,started_at,COALESCE(submitted_at,0)
		FROM attempts WHERE id=$1`, id)
	var a Attempt
	var qj, rj, mj string
	if err := row.Scan(&a.ID, &a.ExamID, &a.UserID, &a.Status, &a.AutoScore, &a.Score, &qj, &rj, &mj, &a.StartedAt, &a.SubmittedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, nil, ErrAttemptNotFound
		}
		return Attempt{}, nil, err
	}
	if err := json.Unmarshal([]byte(qj), &a.Questions); err != nil {
		return Attempt{}, nil, err
	}
	if err := json.Unmarshal([]byte(rj), &a.Responses); err != nil {
		a.Responses = map[string]interface{}{}
	}
	manual := map[string]manualGradeRecord{}
	if err := json.Unmarshal([]byte(mj), &manual); err != nil {
		manual = map[string]manualGradeRecord{}
	}
	return a, manual, nil
}

func gradingOptions(opts []Option) []grading.Option {
	out := make([]grading.Option, len(opts))
	for i, o := range opts {
		out[i] = grading.Option{Text: o.Text, IsCorrect: o.IsCorrect}
	}
	return out
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuestion(row rowScanner) (Question, error) {
	var q Question
	var typ, oj string
	if err := row.Scan(&q.ID, &typ, &q.Text, &q.Marks, &oj, &q.Subject, &q.Class, &q.ImageKey, &q.CreatedBy, &q.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Question{}, ErrQuestionNotFound
		}
		return Question{}, err
	}
	q.Type = QuestionType(typ)
	if err := json.Unmarshal([]byte(oj), &q.Options); err != nil {
		return Question{}, err
	}
	return q, nil
}

func scanExam(row rowScanner) (Exam, error) {
	var e Exam
	var sj string
	if err := row.Scan(&e.ID, &e.Title, &e.Subject, &e.Class, &e.JoinCode, &e.DurationMin, &e.TotalMarks, &e.PassingMarks, &e.Estimated, &sj, &e.Status, &e.CreatedBy, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Exam{}, ErrExamNotFound
		}
		return Exam{}, err
	}
	if err := json.Unmarshal([]byte(sj), &e.Selection); err != nil {
		return Exam{}, err
	}
	return e, nil
}
