package scheduler

import (
	"sync"
	"sync/atomic"
)

// State is a guild's position in the scheduling state machine.
type State int32

const (
	// StateEligible guilds may be analyzed by the next tick.
	StateEligible State = iota
	// StateCooldown guilds were analyzed too recently for the hourly tick.
	StateCooldown
	// StateAnalyzing guilds have a run in flight.
	StateAnalyzing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateEligible:
		return "eligible"
	case StateCooldown:
		return "cooldown"
	case StateAnalyzing:
		return "analyzing"
	default:
		return "unknown"
	}
}

// runStates holds the in-flight flag of every guild seen so far.
type runStates struct {
	states sync.Map
}

func (r *runStates) get(guildID uint64) *atomic.Int32 {
	value, _ := r.states.LoadOrStore(guildID, new(atomic.Int32))
	return value.(*atomic.Int32)
}

// acquire moves a guild from eligible to analyzing. It fails if a run is in flight.
func (r *runStates) acquire(guildID uint64) bool {
	return r.get(guildID).CompareAndSwap(int32(StateEligible), int32(StateAnalyzing))
}

// release moves a guild back to eligible.
func (r *runStates) release(guildID uint64) {
	r.get(guildID).Store(int32(StateEligible))
}

func (r *runStates) analyzing(guildID uint64) bool {
	return State(r.get(guildID).Load()) == StateAnalyzing
}
