package exam

// Pool is the teacher-curated working set of candidate questions for one
// exam draft, split by type. Pool values are immutable: Add, Remove and
// Reset return a new Pool and never touch the receiver, so callers can
// compare old and new values to decide when to recompute derived marks.
type Pool struct {
	Objective []Question `json:"objective"`
	Theory    []Question `json:"theory"`
}

// NewPool returns an empty pool. Also the result of Reset: pooled
// questions are scoped to one subject+class pair, so changing either
// discards the whole working set.
func NewPool() Pool {
	return Pool{Objective: []Question{}, Theory: []Question{}}
}

// Add appends q to the list matching its type. Adding a question whose id
// is already pooled for that type is a silent no-op.
func (p Pool) Add(q Question) Pool {
	list := p.listFor(q.Type)
	for _, cur := range list {
		if cur.ID == q.ID {
			return p
		}
	}
	next := make([]Question, len(list), len(list)+1)
	copy(next, list)
	next = append(next, q)
	return p.withList(q.Type, next)
}

// Remove drops the question with the given id from the named type's list.
// Absent ids are a no-op.
func (p Pool) Remove(id string, typ QuestionType) Pool {
	list := p.listFor(typ)
	idx := -1
	for i, cur := range list {
		if cur.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return p
	}
	next := make([]Question, 0, len(list)-1)
	next = append(next, list[:idx]...)
	next = append(next, list[idx+1:]...)
	return p.withList(typ, next)
}

// Reset discards everything, yielding an empty pool.
func (p Pool) Reset() Pool {
	return NewPool()
}

// Len reports the pool size for one type.
func (p Pool) Len(typ QuestionType) int {
	return len(p.listFor(typ))
}

// Empty reports whether no questions are pooled at all.
func (p Pool) Empty() bool {
	return len(p.Objective) == 0 && len(p.Theory) == 0
}

// Contains reports whether a question id is pooled under the given type.
func (p Pool) Contains(id string, typ QuestionType) bool {
	for _, q := range p.listFor(typ) {
		if q.ID == id {
			return true
		}
	}
	return false
}

func (p Pool) listFor(typ QuestionType) []Question {
	if typ == TypeTheory {
		return p.Theory
	}
	return p.Objective
}

func (p Pool) withList(typ QuestionType, list []Question) Pool {
	if typ == TypeTheory {
		p.Theory = list
	} else {
		p.Objective = list
	}
	return p
}
