package exam

import (
	"math/rand"
	"time"
)

// Sample performs one uniform draw without replacement from the pool,
// sized by the plan. Every call is an independent draw: the teacher's
// preview and each student attempt get their own. Pass a seeded rng for
// reproducible draws; nil uses a time-seeded source.
func Sample(pool Pool, plan Plan, rng *rand.Rand) (Drawn, error) {
	if err := plan.Validate(pool); err != nil {
		return Drawn{}, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return Drawn{
		Objective: draw(pool.Objective, plan.Objective.Count, rng),
		Theory:    draw(pool.Theory, plan.Theory.Count, rng),
	}, nil
}

func draw(list []Question, count int, rng *rand.Rand) []Question {
	out := make([]Question, len(list))
	copy(out, list)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out[:count]
}
