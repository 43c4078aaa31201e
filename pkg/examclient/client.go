// Package examclient is a small HTTP client for the exam service, covering
// the authoring surface: question creation, bank search, random-draw
// preview and exam draft persistence. It defines its own payload types so
// consumers outside the module can import it.
package examclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

type Question struct {
	ID       string   `json:"id,omitempty"`
	Type     string   `json:"questionType"` // "objective" | "theory"
	Text     string   `json:"questionText"`
	Marks    int      `json:"marks"`
	Options  []Option `json:"options,omitempty"`
	Subject  string   `json:"subject"`
	Class    string   `json:"class"`
	ImageKey string   `json:"imageKey,omitempty"`
}

// Pool is the client-side working set a teacher assembles before asking
// for a preview draw.
type Pool struct {
	Objective []Question
	Theory    []Question
}

func (p Pool) Empty() bool {
	return len(p.Objective) == 0 && len(p.Theory) == 0
}

// Plan holds the per-type draw sizes.
type Plan struct {
	ObjectiveCount int
	TheoryCount    int
}

// CountRangeError reports a draw size outside 0..poolSize for its type.
type CountRangeError struct {
	Type     string
	Count    int
	PoolSize int
}

func (e *CountRangeError) Error() string {
	return fmt.Sprintf("%s count %d out of range (pool has %d)", e.Type, e.Count, e.PoolSize)
}

func (pl Plan) validate(pool Pool) error {
	if n := pl.ObjectiveCount; n < 0 || n > len(pool.Objective) {
		return &CountRangeError{Type: "objective", Count: n, PoolSize: len(pool.Objective)}
	}
	if n := pl.TheoryCount; n < 0 || n > len(pool.Theory) {
		return &CountRangeError{Type: "theory", Count: n, PoolSize: len(pool.Theory)}
	}
	return nil
}

// Drawn is one preview draw as returned by the service.
type Drawn struct {
	Objective []Question `json:"objective"`
	Theory    []Question `json:"theory"`
}

type TypeSelection struct {
	Questions []string `json:"questions"`
	Count     int      `json:"count"`
}

type Selection struct {
	Objective TypeSelection `json:"objective"`
	Theory    TypeSelection `json:"theory"`
}

type Exam struct {
	ID           string    `json:"id,omitempty"`
	Title        string    `json:"title"`
	Subject      string    `json:"subject"`
	Class        string    `json:"class"`
	JoinCode     string    `json:"joinCode,omitempty"`
	DurationMin  int       `json:"durationMin"`
	TotalMarks   int       `json:"totalMarks,omitempty"`
	Estimated    bool      `json:"estimated,omitempty"`
	PassingMarks int       `json:"passingMarks,omitempty"`
	Selection    Selection `json:"questionBankSelection"`
	Status       string    `json:"status,omitempty"`
}

type Config struct {
	BaseURL string
	Token   string // bearer token from /auth/login
	Timeout time.Duration
}

type Client struct {
	base  string
	token string
	http  *http.Client

	mu       sync.Mutex
	inFlight int
	last     *Drawn
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		base:  cfg.BaseURL,
		token: cfg.Token,
		http:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) CreateQuestion(ctx context.Context, q Question) (Question, error) {
	var out Question
	err := c.do(ctx, http.MethodPost, "/questions", q, &out)
	return out, err
}

type BankFilter struct {
	Subject string
	Class   string
	Type    string // "objective" | "theory"
	Search  string
	Limit   int
}

func (c *Client) ListForSelection(ctx context.Context, f BankFilter) ([]Question, error) {
	v := url.Values{}
	if f.Subject != "" {
		v.Set("subject", f.Subject)
	}
	if f.Class != "" {
		v.Set("class", f.Class)
	}
	if f.Type != "" {
		v.Set("questionType", f.Type)
	}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	path := "/questions/for-selection"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	var out []Question
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// PreviewRandomSelection asks the service for one advisory draw from the
// current pool. An empty pool with zero counts short-circuits locally with
// an empty sample; no request is made. Overlapping calls are not raced away
// server-side: the last response wins in LastSample.
func (c *Client) PreviewRandomSelection(ctx context.Context, pool Pool, plan Plan) (Drawn, error) {
	empty := Drawn{Objective: []Question{}, Theory: []Question{}}
	if pool.Empty() && plan.ObjectiveCount == 0 && plan.TheoryCount == 0 {
		c.mu.Lock()
		c.last = &empty
		c.mu.Unlock()
		return empty, nil
	}
	if err := plan.validate(pool); err != nil {
		return Drawn{}, err
	}

	c.mu.Lock()
	c.inFlight++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.inFlight--
		c.mu.Unlock()
	}()

	body := map[string]interface{}{
		"objective": map[string]interface{}{"questions": pool.Objective, "count": plan.ObjectiveCount},
		"theory":    map[string]interface{}{"questions": pool.Theory, "count": plan.TheoryCount},
	}
	var out Drawn
	if err := c.do(ctx, http.MethodPost, "/preview-random-selection", body, &out); err != nil {
		return Drawn{}, err
	}
	c.mu.Lock()
	c.last = &out
	c.mu.Unlock()
	return out, nil
}

// InFlight reports whether any preview request is currently outstanding,
// so callers can disable re-triggering while one is pending. Overlapping
// previews are counted: the flag stays up until the last one settles.
func (c *Client) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight > 0
}

// LastSample returns the most recent preview draw, or false when none has
// completed yet.
func (c *Client) LastSample() (Drawn, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return Drawn{}, false
	}
	return *c.last, true
}

// SaveExam creates the draft when e.ID is empty and updates it otherwise.
func (c *Client) SaveExam(ctx context.Context, e Exam) (Exam, error) {
	var out Exam
	if e.ID == "" {
		err := c.do(ctx, http.MethodPost, "/exams", e, &out)
		return out, err
	}
	err := c.do(ctx, http.MethodPut, "/exams/"+url.PathEscape(e.ID), e, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("%s %s: %s: %s", method, path, res.Status, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
