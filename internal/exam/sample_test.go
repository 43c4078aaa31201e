package exam

import (
	"math/rand"
	"testing"
)

func TestSampleSizesMatchPlan(t *testing.T) {
	p := NewPool().
		Add(obj("1", 1)).Add(obj("2", 1)).Add(obj("3", 1)).Add(obj("4", 1)).
		Add(theory("5", 5)).Add(theory("6", 5))
	plan := Plan{Objective: PlanCount{Count: 2}, Theory: PlanCount{Count: 1}}

	d, err := Sample(p, plan, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(d.Objective) != 2 || len(d.Theory) != 1 {
		t.Fatalf("draw sizes %d/%d, want 2/1", len(d.Objective), len(d.Theory))
	}
}

func TestSampleMembersComeFromPool(t *testing.T) {
	p := NewPool().Add(obj("1", 1)).Add(obj("2", 1)).Add(obj("3", 1))
	plan := Plan{Objective: PlanCount{Count: 2}}

	// the draw is intentionally non-deterministic across calls; only size
	// and membership are asserted
	for i := 0; i < 20; i++ {
		d, err := Sample(p, plan, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen := map[string]bool{}
		for _, q := range d.Objective {
			if !p.Contains(q.ID, TypeObjective) {
				t.Fatalf("drew question %s not in pool", q.ID)
			}
			if seen[q.ID] {
				t.Fatalf("question %s drawn twice in one sample", q.ID)
			}
			seen[q.ID] = true
		}
	}
}

func TestSampleRejectsOutOfRangePlan(t *testing.T) {
	p := NewPool().Add(obj("1", 1))
	if _, err := Sample(p, Plan{Objective: PlanCount{Count: 5}}, nil); err == nil {
		t.Fatalf("expected bounds violation")
	}
}

func TestSampleDoesNotMutatePool(t *testing.T) {
	p := NewPool().Add(obj("1", 1)).Add(obj("2", 1)).Add(obj("3", 1))
	if _, err := Sample(p, Plan{Objective: PlanCount{Count: 3}}, rand.New(rand.NewSource(7))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Objective[0].ID != "1" || p.Objective[1].ID != "2" || p.Objective[2].ID != "3" {
		t.Fatalf("sampling reordered the pool: %+v", p.Objective)
	}
}
