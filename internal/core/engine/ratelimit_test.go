package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scrapeline/scrapeline/internal/core"
)

func TestRateLimiterProceedsWhenIdle(t *testing.T) {
	limiter := NewRateLimiter(core.DefaultRateLimitPolicy())
	limiter.Clock = fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	decision := limiter.Admit()
	require.Equal(t, AdmitProceed, decision.Admission)
}

func TestRateLimiterPerMinuteReject(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(core.RateLimitPolicy{
		RequestsPerMinute: 3,
		RequestsPerHour:   1000,
	})
	limiter.Clock = fixedClock(now)

	for i := 0; i < 3; i++ {
		limiter.Record(now.Add(time.Duration(i) * time.Second))
	}

	decision := limiter.Admit()
	require.Equal(t, AdmitReject, decision.Admission)
	require.Equal(t, "per-minute limit", decision.Reason)
	require.Greater(t, decision.Wait, time.Duration(0))
	require.LessOrEqual(t, decision.Wait, time.Minute)
}

func TestRateLimiterHourlyReject(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(core.RateLimitPolicy{
		RequestsPerMinute: 1000,
		RequestsPerHour:   5,
	})
	limiter.Clock = fixedClock(now)

	// Spread requests outside the minute window so only the hourly limit bites.
	for i := 0; i < 5; i++ {
		limiter.Record(now.Add(-time.Duration(50-i*10) * time.Minute))
	}

	decision := limiter.Admit()
	require.Equal(t, AdmitReject, decision.Admission)
	require.Equal(t, "hourly limit", decision.Reason)
}

func TestRateLimiterPrunesOldTimestamps(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(core.RateLimitPolicy{
		RequestsPerMinute: 1000,
		RequestsPerHour:   5,
	})

	for i := 0; i < 5; i++ {
		limiter.Record(start.Add(time.Duration(i) * time.Second))
	}

	limiter.Clock = fixedClock(start)
	require.Equal(t, 5, limiter.Pending())

	// Two hours later the window is empty again.
	limiter.Clock = fixedClock(start.Add(2 * time.Hour))
	require.Equal(t, 0, limiter.Pending())
	require.Equal(t, AdmitProceed, limiter.Admit().Admission)
}

func TestRateLimiterMinDelayPacing(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(core.RateLimitPolicy{
		RequestsPerMinute: 60,
		RequestsPerHour:   1000,
		MinDelay:          2 * time.Second,
	})
	limiter.Clock = fixedClock(now)

	limiter.Record(now.Add(-500 * time.Millisecond))

	decision := limiter.Admit()
	require.Equal(t, AdmitWait, decision.Admission)
	require.Equal(t, 1500*time.Millisecond, decision.Wait)
}

func TestRateLimiterNoPacingAfterDelayElapsed(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(core.RateLimitPolicy{
		RequestsPerMinute: 60,
		RequestsPerHour:   1000,
		MinDelay:          time.Second,
	})
	limiter.Clock = fixedClock(now)

	limiter.Record(now.Add(-5 * time.Second))

	require.Equal(t, AdmitProceed, limiter.Admit().Admission)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
