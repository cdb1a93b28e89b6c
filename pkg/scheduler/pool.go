package scheduler

import (
	"math/rand"
	"sort"

	"food-order-loadtest/pkg/models"
)

// ActorPool is read-only after construction and safe for concurrent use.
type ActorPool struct {
	actors []models.Actor
}

func NewActorPool(actors []models.Actor) (*ActorPool, error) {
	if len(actors) == 0 {
		return nil, setupErr("Scheduler.NewActorPool", "actor pool is empty")
	}
	return &ActorPool{actors: append([]models.Actor(nil), actors...)}, nil
}

func (p *ActorPool) Len() int { return len(p.actors) }

// At picks an actor round-robin by slot.
func (p *ActorPool) At(slot int) models.Actor {
	if slot < 0 {
		slot = -slot
	}
	return p.actors[slot%len(p.actors)]
}

type Choice[T any] struct {
	Weight int `yaml:"weight"`
	Value  T   `yaml:"value"`
}

// Weighted picks values in proportion to static integer weights.
type Weighted[T any] struct {
	choices    []Choice[T]
	cumulative []int
	total      int
}

func NewWeighted[T any](choices ...Choice[T]) (*Weighted[T], error) {
	const op = "Scheduler.NewWeighted"
	w := &Weighted[T]{}
	for _, c := range choices {
		if c.Weight < 0 {
			return nil, setupErr(op, "negative weight")
		}
		if c.Weight == 0 {
			continue
		}
		w.total += c.Weight
		w.choices = append(w.choices, c)
		w.cumulative = append(w.cumulative, w.total)
	}
	if w.total == 0 {
		return nil, setupErr(op, "no choice carries weight")
	}
	return w, nil
}

func (w *Weighted[T]) Pick(r *rand.Rand) T {
	var n int
	if r == nil {
		n = rand.Intn(w.total)
	} else {
		n = r.Intn(w.total)
	}
	return w.At(n)
}

// At maps n in [0, total) to its choice.
func (w *Weighted[T]) At(n int) T {
	i := sort.SearchInts(w.cumulative, n+1)
	if i >= len(w.choices) {
		i = len(w.choices) - 1
	}
	return w.choices[i].Value
}

func (w *Weighted[T]) Total() int { return w.total }

func (w *Weighted[T]) Choices() []Choice[T] {
	return append([]Choice[T](nil), w.choices...)
}
