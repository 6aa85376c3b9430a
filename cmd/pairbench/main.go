// Profiling:
// go build ./cmd/pairbench
// ./pairbench -mode cpu
// go tool pprof -http=":8000" ./pairbench cpu.pprof

package main

import (
	"flag"
	"log"
	"math/rand"

	"github.com/milk9111/rigidcore/collision"
	"github.com/milk9111/rigidcore/ecs"
	"github.com/pkg/profile"
)

func main() {
	mode := flag.String("mode", "cpu", "profile mode: cpu or mem")
	entities := flag.Int("entities", 2000, "entities in the pool")
	pairs := flag.Int("pairs", 4000, "overlaps reported per step")
	steps := flag.Int("steps", 2000, "tracker steps")
	churn := flag.Float64("churn", 0.1, "fraction of overlaps replaced each step")
	flag.Parse()

	var p interface{ Stop() }
	switch *mode {
	case "mem":
		p = profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	default:
		p = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	}
	started, stopped := run(*entities, *pairs, *steps, *churn)
	p.Stop()

	log.Printf("pairbench: %d steps, %d started, %d stopped", *steps, started, stopped)
}

func run(numEntities, numPairs, steps int, churn float64) (started, stopped int) {
	rng := rand.New(rand.NewSource(1))
	tracker := collision.NewTracker()

	randomPair := func() collision.Pair {
		return collision.Pair{
			A: ecs.Entity(rng.Intn(numEntities) + 1),
			B: ecs.Entity(rng.Intn(numEntities) + 1),
		}
	}

	current := make([]collision.Pair, numPairs)
	for i := range current {
		current[i] = randomPair()
	}

	for step := 0; step < steps; step++ {
		for i := range current {
			if rng.Float64() < churn {
				current[i] = randomPair()
			}
		}
		if rng.Intn(20) == 0 {
			tracker.Despawn(ecs.Entity(rng.Intn(numEntities) + 1))
		}
		for _, ev := range tracker.Step(current) {
			if ev.Kind == collision.Started {
				started++
			} else {
				stopped++
			}
		}
	}
	return started, stopped
}
