package sip

import (
	"sync"
	"sync/atomic"
	"time"
)

// SanityReport is a snapshot of sanity check statistics.
type SanityReport struct {
	Time time.Time `json:"time"`
	// Accepted is a number of messages that passed the check.
	Accepted uint64 `json:"accepted"`
	// Dropped is a number of messages discarded silently.
	Dropped uint64 `json:"dropped"`
	// Rejected is a number of requests discarded with an error reply.
	Rejected uint64 `json:"rejected"`
	// Failures is a number of discarded messages per failed rule.
	Failures map[SanityRule]uint64 `json:"failures,omitempty"`
	// Replies is a number of sent error replies per status.
	Replies map[ResponseStatus]uint64 `json:"replies,omitempty"`
}

// SanityStats records sanity check outcomes.
// The zero value is ready to use, a nil *SanityStats records nothing.
type SanityStats struct {
	accepted,
	dropped,
	rejected atomic.Uint64

	failures sync.Map // map[SanityRule]*atomic.Uint64
	replies  sync.Map // map[ResponseStatus]*atomic.Uint64
}

func (s *SanityStats) recordAccepted() {
	if s == nil {
		return
	}
	s.accepted.Add(1)
}

func (s *SanityStats) recordFailure(rule SanityRule, vrd Verdict) {
	if s == nil {
		return
	}
	counter(&s.failures, rule).Add(1)
	if sts, ok := vrd.Reply(); ok {
		s.rejected.Add(1)
		counter(&s.replies, sts).Add(1)
		return
	}
	s.dropped.Add(1)
}

func counter[K comparable](m *sync.Map, key K) *atomic.Uint64 {
	v, _ := m.LoadOrStore(key, new(atomic.Uint64))
	return v.(*atomic.Uint64) //nolint:forcetypeassert
}

// Report returns statistics collected so far.
// Call this function periodically to get updated values.
func (s *SanityStats) Report() SanityReport {
	report := SanityReport{Time: time.Now()}
	if s == nil {
		return report
	}

	report.Accepted = s.accepted.Load()
	report.Dropped = s.dropped.Load()
	report.Rejected = s.rejected.Load()
	s.failures.Range(func(key, value any) bool {
		if report.Failures == nil {
			report.Failures = make(map[SanityRule]uint64)
		}
		report.Failures[key.(SanityRule)] = value.(*atomic.Uint64).Load() //nolint:forcetypeassert
		return true
	})
	s.replies.Range(func(key, value any) bool {
		if report.Replies == nil {
			report.Replies = make(map[ResponseStatus]uint64)
		}
		report.Replies[key.(ResponseStatus)] = value.(*atomic.Uint64).Load() //nolint:forcetypeassert
		return true
	})
	return report
}
