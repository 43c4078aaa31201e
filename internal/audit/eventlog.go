package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// Event types appended by the API layer.
const (
	EventExamPublished    = "ExamPublished"
	EventAttemptSubmitted = "AttemptSubmitted"
	EventAttemptReset     = "AttemptReset"
)

type Event struct {
	Offset    int64
	Type      string
	Key       string // natural key: examID or attemptID
	Actor     string
	Data      interface{}
	CreatedAt int64
}

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, actor, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.Type, e.Key, e.Actor, string(data), time.Now().Unix())
	return err
}
