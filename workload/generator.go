package workload

import (
	"log"
	"math/rand"
)

// DefaultUpperBound makes draws fall in [1, 11], so with two peers each
// unicast and the broadcast have probability 1/11 and an internal event
// 8/11.
const DefaultUpperBound = 10

// RandSource supplies uniform integers in [0, n).
type RandSource interface {
	Intn(n int) int
}

// A Generator draws random actions.
type Generator struct {
	rand       RandSource
	upperBound int
}

// NewGenerator creates a generator that draws from [1, upperBound+1].
func NewGenerator(rand RandSource, upperBound int) *Generator {
	if upperBound < 1 {
		log.Panicf("upper bound must be positive, got %d", upperBound)
	}

	return &Generator{
		rand:       rand,
		upperBound: upperBound,
	}
}

// NewSeededGenerator creates a generator backed by math/rand with the given
// seed.
func NewSeededGenerator(seed int64, upperBound int) *Generator {
	return NewGenerator(rand.New(rand.NewSource(seed)), upperBound)
}

// UpperBound returns the configured upper bound.
func (g *Generator) UpperBound() int {
	return g.upperBound
}

// Draw returns one uniform draw from [1, upperBound+1].
func (g *Generator) Draw() int {
	return 1 + g.rand.Intn(g.upperBound+1)
}

// Next draws an action and resolves peer indices to peer ports.
func (g *Generator) Next(peers []int) Action {
	action := Decide(g.Draw(), len(peers))

	ports := make([]int, len(action.Targets))
	for i, idx := range action.Targets {
		ports[i] = peers[idx]
	}

	action.Targets = ports

	return action
}
