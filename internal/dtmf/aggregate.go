package dtmf

import "sync"

// Aggregate sums DigitsEmitted/DigitsDroppedFull across every channel's
// decoder state, so a single cmxmetrics.DTMFStatsProvider can represent
// an entire engine rather than one channel.
type Aggregate struct {
	mu     sync.Mutex
	states []*State
}

// NewAggregate creates an empty aggregate.
func NewAggregate() *Aggregate {
	return &Aggregate{}
}

// Register adds a channel's decoder state to the aggregate. Safe to
// call once per channel at creation time.
func (a *Aggregate) Register(s *State) {
	if s == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.states = append(a.states, s)
}

// DigitsEmitted implements cmxmetrics.DTMFStatsProvider.
func (a *Aggregate) DigitsEmitted() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var total uint64
	for _, s := range a.states {
		total += s.DigitsEmitted()
	}
	return total
}

// DigitsDroppedFull implements cmxmetrics.DTMFStatsProvider.
func (a *Aggregate) DigitsDroppedFull() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var total uint64
	for _, s := range a.states {
		total += s.DigitsDroppedFull()
	}
	return total
}
