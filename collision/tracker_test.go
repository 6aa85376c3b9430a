package collision

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/milk9111/rigidcore/ecs"
)

const (
	e1 ecs.Entity = iota + 1
	e2
	e3
	e4
)

func pairs(ps ...Pair) []Pair { return ps }

func TestTrackerScenario(t *testing.T) {
	tr := NewTracker()

	steps := []struct {
		name     string
		despawn  []ecs.Entity
		overlaps []Pair
		want     []Event
	}{
		{"start", nil, pairs(NewPair(e1, e2)), []Event{StartedEvent(e1, e2)}},
		{"persist", nil, pairs(NewPair(e1, e2)), nil},
		{"stop", nil, nil, []Event{StoppedEvent(e1, e2)}},
		{"despawn_inactive", []ecs.Entity{e2}, pairs(NewPair(e1, e3)), []Event{StartedEvent(e1, e3)}},
	}

	for _, s := range steps {
		t.Run(s.name, func(t *testing.T) {
			for _, e := range s.despawn {
				tr.Despawn(e)
			}
			got := tr.Step(s.overlaps)
			if len(got) == 0 && len(s.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, s.want) {
				t.Fatalf("got %v, want %v", got, s.want)
			}
		})
	}
}

func TestTrackerPairOrderIsIrrelevant(t *testing.T) {
	tr := NewTracker()
	if got := tr.Step(pairs(Pair{A: e1, B: e2})); len(got) != 1 || got[0].Kind != Started {
		t.Fatalf("expected one Started, got %v", got)
	}
	if got := tr.Step(pairs(Pair{A: e2, B: e1})); len(got) != 0 {
		t.Fatalf("reversed pair must be the same pair, got %v", got)
	}
	if !tr.Active(Pair{A: e2, B: e1}) || tr.Len() != 1 {
		t.Fatalf("expected exactly one active pair")
	}
}

func TestTrackerDuplicatesCollapse(t *testing.T) {
	tr := NewTracker()
	got := tr.Step(pairs(Pair{A: e1, B: e2}, Pair{A: e2, B: e1}, Pair{A: e1, B: e2}))
	if len(got) != 1 {
		t.Fatalf("expected a single Started, got %v", got)
	}
}

func TestTrackerIgnoresSelfPairs(t *testing.T) {
	tr := NewTracker()
	if got := tr.Step(pairs(Pair{A: e1, B: e1})); len(got) != 0 {
		t.Fatalf("self pair produced events: %v", got)
	}
	if tr.Len() != 0 {
		t.Fatalf("self pair was tracked")
	}
}

func TestTrackerDespawnForcesSingleStop(t *testing.T) {
	tr := NewTracker()
	tr.Step(pairs(NewPair(e1, e2), NewPair(e3, e4)))

	tr.Despawn(e1)
	// the detector still reports e1 this step
	got := tr.Step(pairs(NewPair(e1, e2), NewPair(e3, e4), NewPair(e2, e3)))
	want := []Event{StoppedEvent(e1, e2), StartedEvent(e2, e3)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if tr.Active(NewPair(e1, e2)) {
		t.Fatal("despawned pair is still active")
	}

	if got := tr.Step(pairs(NewPair(e3, e4), NewPair(e2, e3))); len(got) != 0 {
		t.Fatalf("no further events expected, got %v", got)
	}
}

func TestTrackerDespawnedStopsComeFirst(t *testing.T) {
	tr := NewTracker()
	tr.Step(pairs(NewPair(e1, e2), NewPair(e3, e4)))
	tr.Despawn(e4)
	got := tr.Step(pairs(NewPair(e1, e3)))
	want := []Event{StoppedEvent(e3, e4), StoppedEvent(e1, e2), StartedEvent(e1, e3)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got[0] != StoppedEvent(e3, e4) {
		t.Fatalf("despawn Stopped must lead the batch, got %v", got)
	}
	for i, ev := range got {
		if ev.Kind == Started {
			for _, later := range got[i:] {
				if later.Kind == Stopped {
					t.Fatalf("Stopped after Started in %v", got)
				}
			}
		}
	}
}

func TestTrackerAliveFilter(t *testing.T) {
	alive := map[ecs.Entity]bool{e1: true, e2: true}
	tr := NewTracker(WithAliveFilter(func(e ecs.Entity) bool { return alive[e] }))
	tr.Step(pairs(NewPair(e1, e2)))

	delete(alive, e2)
	got := tr.Step(pairs(NewPair(e1, e2)))
	if !reflect.DeepEqual(got, []Event{StoppedEvent(e1, e2)}) {
		t.Fatalf("dead entity must stop its pair, got %v", got)
	}
}

func TestTrackerClearAndPartners(t *testing.T) {
	tr := NewTracker()
	tr.Step(pairs(NewPair(e1, e2), NewPair(e3, e1)))
	if got := tr.Partners(e1); !reflect.DeepEqual(got, []ecs.Entity{e2, e3}) {
		t.Fatalf("partners of e1 = %v", got)
	}
	stopped := tr.Clear()
	if len(stopped) != 2 || tr.Len() != 0 {
		t.Fatalf("Clear returned %v, len %d", stopped, tr.Len())
	}
	tr.Step(pairs(NewPair(e1, e2)))
	tr.Reset()
	if tr.Len() != 0 {
		t.Fatal("Reset left pairs behind")
	}
}

// Started minus Stopped per pair must stay in {0, 1} for any input sequence.
func TestTrackerBalanceProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tr := NewTracker()
	balance := make(map[Pair]int)
	entities := []ecs.Entity{1, 2, 3, 4, 5, 6}

	for step := 0; step < 500; step++ {
		despawned := rng.Intn(10) == 0
		if despawned {
			tr.Despawn(entities[rng.Intn(len(entities))])
		}
		var current []Pair
		n := rng.Intn(8)
		for i := 0; i < n; i++ {
			a := entities[rng.Intn(len(entities))]
			b := entities[rng.Intn(len(entities))]
			current = append(current, Pair{A: a, B: b})
		}

		apply := func(events []Event) {
			for _, ev := range events {
				switch ev.Kind {
				case Started:
					balance[ev.Pair()]++
				case Stopped:
					balance[ev.Pair()]--
				}
				if b := balance[ev.Pair()]; b < 0 || b > 1 {
					t.Fatalf("step %d: balance of %v is %d", step, ev.Pair(), b)
				}
			}
			open := 0
			for _, b := range balance {
				open += b
			}
			if open != tr.Len() {
				t.Fatalf("step %d: %d open pairs but %d active", step, open, tr.Len())
			}
		}

		apply(tr.Step(current))

		// a despawned entity may rejoin on the following pass; otherwise
		// feeding the same set again is a no-op
		again := tr.Step(current)
		if !despawned && len(again) != 0 {
			t.Fatalf("step %d: repeat produced %v", step, again)
		}
		apply(again)
		if third := tr.Step(current); len(third) != 0 {
			t.Fatalf("step %d: third identical pass produced %v", step, third)
		}
	}
}
