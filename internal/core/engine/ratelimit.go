package engine

import (
	"time"

	"github.com/scrapeline/scrapeline/internal/core"
)

const (
	hourWindow   = time.Hour
	minuteWindow = time.Minute
)

// Admission is the outcome class of an admission check.
type Admission int

const (
	// AdmitProceed allows the request immediately.
	AdmitProceed Admission = iota
	// AdmitWait allows the request after an advisory pacing delay.
	AdmitWait
	// AdmitReject refuses the request; the caller skips the endpoint.
	AdmitReject
)

// Decision is the result of RateLimiter.Admit.
type Decision struct {
	Admission Admission
	Wait      time.Duration
	Reason    string
}

// RateLimiter tracks recent request instants for one API target and decides
// whether a new request may proceed, must pace, or must be rejected.
//
// The hourly and per-minute checks are circuit breakers: the caller is told
// to skip, never to retry internally. The minimum-delay check is pacing only,
// honored by waiting and not re-checked afterwards.
//
// The timestamp log is owned by exactly one executor; the limiter is not safe
// for concurrent use and is not meant to be shared.
type RateLimiter struct {
	Policy core.RateLimitPolicy
	Clock  func() time.Time

	timestamps []time.Time
}

// NewRateLimiter builds a limiter for one API target.
func NewRateLimiter(policy core.RateLimitPolicy) *RateLimiter {
	return &RateLimiter{Policy: policy}
}

// Admit decides whether a request may be dispatched now.
func (l *RateLimiter) Admit() Decision {
	now := l.now()
	l.prune(now)

	if l.Policy.RequestsPerHour > 0 && len(l.timestamps) >= l.Policy.RequestsPerHour {
		wait := hourWindow - now.Sub(l.timestamps[0])
		if wait > 0 {
			return Decision{Admission: AdmitReject, Wait: wait, Reason: "hourly limit"}
		}
	}

	recent := l.countSince(now.Add(-minuteWindow))
	if l.Policy.RequestsPerMinute > 0 && recent >= l.Policy.RequestsPerMinute {
		oldest := l.oldestSince(now.Add(-minuteWindow))
		wait := minuteWindow - now.Sub(oldest)
		if wait > 0 {
			return Decision{Admission: AdmitReject, Wait: wait, Reason: "per-minute limit"}
		}
	}

	if len(l.timestamps) > 0 && l.Policy.MinDelay > 0 {
		elapsed := now.Sub(l.timestamps[len(l.timestamps)-1])
		if elapsed < l.Policy.MinDelay {
			return Decision{Admission: AdmitWait, Wait: l.Policy.MinDelay - elapsed}
		}
	}

	return Decision{Admission: AdmitProceed}
}

// Record appends a request instant to the log. The executor calls this once
// per received HTTP response; rejected admissions and transport failures that
// never produced a response are not recorded.
func (l *RateLimiter) Record(t time.Time) {
	l.timestamps = append(l.timestamps, t)
}

// Pending returns the number of tracked instants after pruning. Exposed for
// introspection and tests.
func (l *RateLimiter) Pending() int {
	l.prune(l.now())
	return len(l.timestamps)
}

// prune drops instants older than the longest tracked window. The log stays
// ordered because Record is only ever called with non-decreasing instants.
func (l *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-hourWindow)
	idx := 0
	for idx < len(l.timestamps) && !l.timestamps[idx].After(cutoff) {
		idx++
	}
	if idx > 0 {
		l.timestamps = append(l.timestamps[:0], l.timestamps[idx:]...)
	}
}

func (l *RateLimiter) countSince(cutoff time.Time) int {
	count := 0
	for _, t := range l.timestamps {
		if t.After(cutoff) {
			count++
		}
	}
	return count
}

func (l *RateLimiter) oldestSince(cutoff time.Time) time.Time {
	for _, t := range l.timestamps {
		if t.After(cutoff) {
			return t
		}
	}
	return l.now()
}

func (l *RateLimiter) now() time.Time {
	if l != nil && l.Clock != nil {
		return l.Clock()
	}
	return time.Now().UTC()
}
