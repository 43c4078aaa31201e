package exam

import (
	"fmt"
	"math"
)

// PlanCount is the requested random-draw size for one question type.
type PlanCount struct {
	Count int `json:"count"`
}

// Plan holds the per-type draw sizes the teacher asked for.
type Plan struct {
	Objective PlanCount `json:"objective"`
	Theory    PlanCount `json:"theory"`
}

// CountRangeError reports a draw size outside 0..poolSize for its type.
// Out-of-range counts are rejected, never clamped: the teacher has to see
// and fix the number before the draft can advance.
type CountRangeError struct {
	Type     QuestionType
	Count    int
	PoolSize int
}

func (e *CountRangeError) Error() string {
	return fmt.Sprintf("%s count %d out of range (pool has %d)", e.Type, e.Count, e.PoolSize)
}

// Validate checks every per-type count against the pool bounds.
func (pl Plan) Validate(pool Pool) error {
	if n := pl.Objective.Count; n < 0 || n > pool.Len(TypeObjective) {
		return &CountRangeError{Type: TypeObjective, Count: n, PoolSize: pool.Len(TypeObjective)}
	}
	if n := pl.Theory.Count; n < 0 || n > pool.Len(TypeTheory) {
		return &CountRangeError{Type: TypeTheory, Count: n, PoolSize: pool.Len(TypeTheory)}
	}
	return nil
}

// TypeMarks is one type's contribution to the exam total. Estimate is true
// when the pooled questions carry mixed marks values: different students
// drawing different subsets can then score different true totals, so the
// figure is an average-based projection rather than exact.
type TypeMarks struct {
	Contribution int  `json:"contribution"`
	Estimate     bool `json:"estimate"`
}

// Marks is the derived totals figure shown to the teacher while assembling
// an exam. Passing is a seed value the teacher may override.
type Marks struct {
	Total     int       `json:"total"`
	Passing   int       `json:"passing"`
	Objective TypeMarks `json:"objective"`
	Theory    TypeMarks `json:"theory"`
}

// Estimated reports whether any per-type contribution is an estimate.
func (m Marks) Estimated() bool {
	return m.Objective.Estimate || m.Theory.Estimate
}

// DeriveMarks recomputes the totals for the given pool and plan. The plan
// is validated first; a bounds violation is returned unchanged.
//
// Per type: an empty pool or a zero count contributes 0. A pool whose
// questions all share one marks value contributes exactly value*count.
// Mixed marks contribute round-half-up(mean*count), flagged as an estimate.
// Default passing marks are floor(total/2).
func DeriveMarks(pool Pool, plan Plan) (Marks, error) {
	if err := plan.Validate(pool); err != nil {
		return Marks{}, err
	}
	var m Marks
	m.Objective = typeMarks(pool.Objective, plan.Objective.Count)
	m.Theory = typeMarks(pool.Theory, plan.Theory.Count)
	m.Total = m.Objective.Contribution + m.Theory.Contribution
	m.Passing = m.Total / 2
	return m, nil
}

func typeMarks(list []Question, count int) TypeMarks {
	if len(list) == 0 || count == 0 {
		return TypeMarks{}
	}
	uniform := true
	sum := 0
	for _, q := range list {
		sum += q.Marks
		if q.Marks != list[0].Marks {
			uniform = false
		}
	}
	if uniform {
		return TypeMarks{Contribution: list[0].Marks * count}
	}
	avg := float64(sum) / float64(len(list))
	return TypeMarks{
		Contribution: int(math.Floor(avg*float64(count) + 0.5)),
		Estimate:     true,
	}
}
