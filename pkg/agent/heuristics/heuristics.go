// Package heuristics detects the two classic agent failure loops: clicking
// the same dead element over and over, and scrolling forever. The Tracker is
// a plain value owned by the controller and threaded through each step, so
// the heuristics are deterministic and testable in isolation.
package heuristics

import "fmt"

const (
	// RecentActionCap bounds the ring of remembered click actions.
	RecentActionCap = 5

	// RepeatThreshold is how many consecutive identical clicks trigger
	// corrective guidance.
	RepeatThreshold = 3

	// ScrollLimit is how many consecutive scrolls are tolerated before
	// corrective guidance.
	ScrollLimit = 10
)

// RecentAction is one remembered click.
type RecentAction struct {
	Tool   string
	Params string
	Index  int
}

// Tracker holds the loop-detection state for one run.
type Tracker struct {
	recent             []RecentAction
	consecutiveScrolls int
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{}
}

// ObserveClick records an executed click. A successful click with different
// parameters than the previous one breaks the streak and clears the ring
// before recording, so the ring only ever holds an unbroken run of identical
// clicks.
func (t *Tracker) ObserveClick(index int, params string, ok bool) {
	t.consecutiveScrolls = 0

	if ok && len(t.recent) > 0 && t.recent[len(t.recent)-1].Params != params {
		t.recent = t.recent[:0]
	}

	t.recent = append(t.recent, RecentAction{Tool: "click", Params: params, Index: index})
	if len(t.recent) > RecentActionCap {
		t.recent = t.recent[len(t.recent)-RecentActionCap:]
	}
}

// ObserveScroll records an executed scroll.
func (t *Tracker) ObserveScroll() {
	t.consecutiveScrolls++
}

// ObserveOther records any non-click, non-scroll action. A success advances
// state, so both streaks are broken.
func (t *Tracker) ObserveOther(ok bool) {
	if ok {
		t.recent = t.recent[:0]
		t.consecutiveScrolls = 0
	}
}

// Advice returns corrective transcript messages to inject before the next
// decision step. Each trigger fires once: the state that produced it is
// reset so the same advice is not repeated every step.
func (t *Tracker) Advice() []string {
	var advice []string

	if msg, ok := t.repeatAdvice(); ok {
		advice = append(advice, msg)
		t.recent = t.recent[:0]
	}

	if t.consecutiveScrolls > ScrollLimit {
		advice = append(advice,
			"You have been scrolling for a long time without finding anything. Stop scrolling and try another approach: use a search field, a navigation link, or open a different URL.")
		t.consecutiveScrolls = 0
	}

	return advice
}

func (t *Tracker) repeatAdvice() (string, bool) {
	if len(t.recent) < RepeatThreshold {
		return "", false
	}
	last := t.recent[len(t.recent)-1]
	for _, action := range t.recent[len(t.recent)-RepeatThreshold:] {
		if action.Params != last.Params {
			return "", false
		}
	}
	return fmt.Sprintf(
		"You have clicked element %d with the same parameters %d times in a row and the page did not change. Do not click it again; pick a different element or a different approach.",
		last.Index, RepeatThreshold), true
}

// RecentCount returns how many clicks the ring currently holds.
func (t *Tracker) RecentCount() int {
	return len(t.recent)
}

// ScrollCount returns the consecutive-scroll counter.
func (t *Tracker) ScrollCount() int {
	return t.consecutiveScrolls
}
