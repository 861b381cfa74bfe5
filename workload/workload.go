// Package workload decides what a process does when it is available and has
// no pending inbound message.
package workload

import (
	"fmt"
	"log"
)

// Kind is the kind of action the workload generator picks.
type Kind int

// The kinds of actions.
const (
	Internal Kind = iota
	Unicast
	Broadcast
)

func (k Kind) String() string {
	switch k {
	case Internal:
		return "internal"
	case Unicast:
		return "unicast"
	case Broadcast:
		return "broadcast"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// An Action is the outcome of one decision. Targets is empty for internal
// events.
type Action struct {
	Kind    Kind
	Targets []int
}

// Decide maps a draw r to an action for a process with numPeers peers. Peer
// indices are returned in Targets.
//
//	1 .. N      unicast to peer r-1
//	N+1         broadcast to every peer
//	above N+1   internal event
func Decide(r, numPeers int) Action {
	if numPeers < 0 {
		log.Panicf("number of peers must not be negative, got %d", numPeers)
	}

	switch {
	case numPeers == 0 || r > numPeers+1:
		return Action{Kind: Internal}
	case r == numPeers+1:
		targets := make([]int, numPeers)
		for i := range targets {
			targets[i] = i
		}

		return Action{Kind: Broadcast, Targets: targets}
	case r >= 1:
		return Action{Kind: Unicast, Targets: []int{r - 1}}
	default:
		log.Panicf("draw %d is out of range", r)
		return Action{}
	}
}
