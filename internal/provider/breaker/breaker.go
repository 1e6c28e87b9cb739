// Package breaker holds the per-key circuit breaker state machine.
//
// Transitions are pure: Policy.Next takes a state, an event and the current
// time and returns the next state. Storage and locking live elsewhere.
package breaker

import (
	"time"

	"p2pquotes/internal/provider"
)

type Phase int

const (
	Closed Phase = iota
	Open
)

func (p Phase) String() string {
	if p == Open {
		return "open"
	}
	return "closed"
}

// State is the breaker state of one key. The zero value is Closed with no history.
type State struct {
	Phase       Phase
	Failures    int
	LastFailure time.Time
	OpenUntil   time.Time
	// LastGood survives resets and is the fallback of last resort.
	LastGood *provider.QuoteSet
}

// Allows reports whether a live call may be attempted at now.
// An Open breaker allows calls again once the cooldown has passed.
func (s State) Allows(now time.Time) bool {
	return s.Phase == Closed || !now.Before(s.OpenUntil)
}

type EventKind int

const (
	Success EventKind = iota
	Failure
)

// Event feeds the state machine. For Success, Data is the fresh result.
// For Failure, Data is whatever the cache holds for the key, if anything.
type Event struct {
	Kind EventKind
	Data *provider.QuoteSet
}

func Succeeded(data provider.QuoteSet) Event { return Event{Kind: Success, Data: &data} }

func Failed(cached *provider.QuoteSet) Event { return Event{Kind: Failure, Data: cached} }

// Policy holds the trip threshold and the cooldown window.
type Policy struct {
	Threshold int
	Cooldown  time.Duration
}

func DefaultPolicy() Policy { return Policy{Threshold: 5, Cooldown: 60 * time.Second} }

// Next applies ev to s at now.
func (p Policy) Next(s State, ev Event, now time.Time) State {
	switch ev.Kind {
	case Success:
		next := State{Phase: Closed, LastGood: s.LastGood}
		if ev.Data != nil {
			next.LastGood = ev.Data
		}
		return next
	case Failure:
		s.Failures++
		s.LastFailure = now
		if p.Threshold > 0 && s.Failures >= p.Threshold {
			s.Phase = Open
			s.OpenUntil = now.Add(p.Cooldown)
		}
		if ev.Data != nil {
			s.LastGood = ev.Data
		}
		return s
	}
	return s
}
