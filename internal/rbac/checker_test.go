package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDefaultPolicy(t *testing.T) {
	c := NewChecker(nil)

	cases := []struct {
		role, perm string
		want       bool
	}{
		{"student", "exam:join", true},
		{"student", "attempt:view-own", true},
		{"student", "exam:create", false},
		{"student", "attempt:grade", false},
		{"teacher", "question:create", true},
		{"teacher", "attempt:reset", true},
		{"teacher", "attempt:view-own", false},
		{"admin", "exam:create", true},
		{"admin", "anything:at-all", true},
		{"nobody", "exam:view", false},
		{"", "exam:view", false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q, %q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestWildcardPrefix(t *testing.T) {
	c := NewChecker(map[string][]string{"auditor": {"exam:*"}})
	if !c.Has("auditor", "exam:view") {
		t.Fatalf("prefix wildcard should match exam:view")
	}
	if c.Has("auditor", "attempt:view-all") {
		t.Fatalf("prefix wildcard must not match other resources")
	}
}

func TestAny(t *testing.T) {
	c := NewChecker(nil)
	if !c.Any("teacher", "attempt:view-own", "attempt:view-all") {
		t.Fatalf("Any should pass when one permission matches")
	}
	if c.Any("student", "exam:create", "exam:update") {
		t.Fatalf("Any should fail when none match")
	}
}

func TestRequireMiddleware(t *testing.T) {
	called := false
	h := Require("exam:create")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest("POST", "/exams", nil)
	req = req.WithContext(WithRole(context.Background(), "teacher"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("teacher should pass exam:create, got %d", rec.Code)
	}

	called = false
	req = httptest.NewRequest("POST", "/exams", nil)
	req = req.WithContext(WithRole(context.Background(), "student"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if called || rec.Code != http.StatusForbidden {
		t.Fatalf("student must be forbidden, got %d", rec.Code)
	}
}
