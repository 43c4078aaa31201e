package examclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func objQ(id string) Question {
	return Question{
		ID: id, Type: "objective", Text: "q " + id, Marks: 2,
		Options: []Option{{Text: "a", IsCorrect: true}, {Text: "b"}},
	}
}

func onePool(qs ...Question) Pool {
	return Pool{Objective: qs, Theory: []Question{}}
}

func TestPreviewShortCircuitsLocally(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	got, err := c.PreviewRandomSelection(context.Background(), Pool{}, Plan{})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if requests != 0 {
		t.Fatalf("empty preview must not hit the server, saw %d requests", requests)
	}
	if len(got.Objective) != 0 || len(got.Theory) != 0 {
		t.Fatalf("expected empty sample, got %+v", got)
	}
	if last, ok := c.LastSample(); !ok || len(last.Objective) != 0 {
		t.Fatalf("local short-circuit should still record the sample")
	}
}

func TestPreviewValidatesBeforeSending(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	_, err := c.PreviewRandomSelection(context.Background(), onePool(objQ("o1")), Plan{ObjectiveCount: 5})
	var cre *CountRangeError
	if !errors.As(err, &cre) {
		t.Fatalf("want CountRangeError, got %v", err)
	}
	if requests != 0 {
		t.Fatalf("invalid plan must not hit the server")
	}
}

func TestPreviewPostsPoolAndRecordsSample(t *testing.T) {
	var seen struct {
		Objective struct {
			Questions []Question `json:"questions"`
			Count     int        `json:"count"`
		} `json:"objective"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/preview-random-selection" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&seen); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(Drawn{
			Objective: []Question{objQ("o2")},
			Theory:    []Question{},
		})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Token: "tok"})
	got, err := c.PreviewRandomSelection(context.Background(), onePool(objQ("o1"), objQ("o2")), Plan{ObjectiveCount: 1})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if len(seen.Objective.Questions) != 2 || seen.Objective.Count != 1 {
		t.Fatalf("request carried pool=%d count=%d, want 2/1",
			len(seen.Objective.Questions), seen.Objective.Count)
	}
	if len(got.Objective) != 1 || got.Objective[0].ID != "o2" {
		t.Fatalf("unexpected sample %+v", got)
	}
	last, ok := c.LastSample()
	if !ok || len(last.Objective) != 1 {
		t.Fatalf("LastSample should hold the latest draw")
	}
	if c.InFlight() {
		t.Fatalf("inFlight must clear after the request completes")
	}
}

func TestInFlightStaysUpAcrossOverlappingPreviews(t *testing.T) {
	var calls int32
	firstArrived := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// hold the first request open; let later ones complete immediately
		if atomic.AddInt32(&calls, 1) == 1 {
			close(firstArrived)
			<-release
		}
		json.NewEncoder(w).Encode(Drawn{Objective: []Question{objQ("o1")}, Theory: []Question{}})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	pool := onePool(objQ("o1"))
	plan := Plan{ObjectiveCount: 1}

	firstDone := make(chan error, 1)
	go func() {
		_, err := c.PreviewRandomSelection(context.Background(), pool, plan)
		firstDone <- err
	}()
	select {
	case <-firstArrived:
	case <-time.After(5 * time.Second):
		t.Fatalf("first preview never reached the server")
	}

	if _, err := c.PreviewRandomSelection(context.Background(), pool, plan); err != nil {
		t.Fatalf("second preview: %v", err)
	}
	if !c.InFlight() {
		t.Fatalf("InFlight must stay true while the first preview is still outstanding")
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first preview: %v", err)
	}
	if c.InFlight() {
		t.Fatalf("InFlight must clear once every preview has settled")
	}
}

func TestSaveExamRoutesByID(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		json.NewEncoder(w).Encode(Exam{ID: "e1"})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	if _, err := c.SaveExam(context.Background(), Exam{Title: "new"}); err != nil {
		t.Fatalf("save new: %v", err)
	}
	if method != http.MethodPost || path != "/exams" {
		t.Fatalf("new exam should POST /exams, got %s %s", method, path)
	}

	if _, err := c.SaveExam(context.Background(), Exam{ID: "e1"}); err != nil {
		t.Fatalf("save existing: %v", err)
	}
	if method != http.MethodPut || path != "/exams/e1" {
		t.Fatalf("existing exam should PUT /exams/e1, got %s %s", method, path)
	}
}

func TestDoReportsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "count out of range", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	_, err := c.CreateQuestion(context.Background(), objQ("o1"))
	if err == nil {
		t.Fatalf("want error from 422 response")
	}
}
