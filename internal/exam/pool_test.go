package exam

import (
	"reflect"
	"testing"
)

func obj(id string, marks int) Question {
	return Question{
		ID: id, Type: TypeObjective, Text: "q-" + id, Marks: marks,
		Options: []Option{{Text: "a", IsCorrect: true}, {Text: "b"}},
	}
}

func theory(id string, marks int) Question {
	return Question{ID: id, Type: TypeTheory, Text: "q-" + id, Marks: marks}
}

func TestPoolAddIsIdempotent(t *testing.T) {
	p := NewPool().Add(obj("1", 2))
	again := p.Add(obj("1", 2))
	if !reflect.DeepEqual(p, again) {
		t.Fatalf("adding the same id twice changed the pool: %+v vs %+v", p, again)
	}
	if p.Len(TypeObjective) != 1 {
		t.Fatalf("expected 1 objective question, got %d", p.Len(TypeObjective))
	}
}

func TestPoolSameIDAcrossTypes(t *testing.T) {
	// dedup is per type list, not global
	p := NewPool().Add(obj("1", 2)).Add(theory("1", 5))
	if p.Len(TypeObjective) != 1 || p.Len(TypeTheory) != 1 {
		t.Fatalf("expected one of each, got %d/%d", p.Len(TypeObjective), p.Len(TypeTheory))
	}
}

func TestPoolRemoveAbsentIsNoop(t *testing.T) {
	p := NewPool().Add(obj("1", 2))
	got := p.Remove("nope", TypeObjective)
	if !reflect.DeepEqual(p, got) {
		t.Fatalf("removing an absent id changed the pool")
	}
	got = p.Remove("1", TypeTheory) // right id, wrong type
	if !reflect.DeepEqual(p, got) {
		t.Fatalf("removing from the wrong type list changed the pool")
	}
}

func TestPoolRemove(t *testing.T) {
	p := NewPool().Add(obj("1", 2)).Add(obj("2", 2)).Add(obj("3", 2))
	p = p.Remove("2", TypeObjective)
	if p.Len(TypeObjective) != 2 {
		t.Fatalf("expected 2 after remove, got %d", p.Len(TypeObjective))
	}
	// order of the survivors is preserved
	if p.Objective[0].ID != "1" || p.Objective[1].ID != "3" {
		t.Fatalf("remove broke ordering: %s, %s", p.Objective[0].ID, p.Objective[1].ID)
	}
}

func TestPoolResetAlwaysEmpty(t *testing.T) {
	p := NewPool().Add(obj("1", 2)).Add(theory("2", 5)).Reset()
	if !p.Empty() {
		t.Fatalf("reset pool not empty: %+v", p)
	}
	if p.Objective == nil || p.Theory == nil {
		t.Fatalf("reset pool has nil lists")
	}
}

func TestPoolOperationsDoNotMutate(t *testing.T) {
	base := NewPool().Add(obj("1", 2))
	snapshot := NewPool().Add(obj("1", 2))

	_ = base.Add(obj("2", 3))
	_ = base.Remove("1", TypeObjective)
	_ = base.Reset()

	if !reflect.DeepEqual(base, snapshot) {
		t.Fatalf("pool mutated in place: %+v", base)
	}
}

func TestPoolContains(t *testing.T) {
	p := NewPool().Add(theory("7", 5))
	if !p.Contains("7", TypeTheory) {
		t.Fatalf("expected pool to contain theory 7")
	}
	if p.Contains("7", TypeObjective) {
		t.Fatalf("type lists must be independent")
	}
}
