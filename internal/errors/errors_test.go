package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIsSkippable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limit", &RateLimitError{Reason: "hourly limit", Wait: time.Minute}, true},
		{"http", &HTTPError{StatusCode: 500, URL: "https://x"}, true},
		{"exhausted", &TransportExhaustedError{Attempts: 4, Err: errors.New("timeout")}, true},
		{"decode", &DecodeError{ContentType: "application/json", Err: errors.New("bad")}, true},
		{"wrapped http", fmt.Errorf("fetch: %w", &HTTPError{StatusCode: 404}), true},
		{"bare transport", &TransportError{Err: errors.New("reset")}, false},
		{"plain", errors.New("boom"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, IsSkippable(tc.err))
		})
	}
}

func TestIsTransportUnwraps(t *testing.T) {
	err := fmt.Errorf("attempt: %w", &TransportError{Err: errors.New("refused")})
	require.True(t, IsTransport(err))
	require.False(t, IsTransport(errors.New("refused")))
}

func TestHTTPErrorTruncatesBody(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}

	err := &HTTPError{StatusCode: 500, Body: string(long), URL: "https://x"}
	require.Less(t, len(err.Error()), 300)
	require.Contains(t, err.Error(), "...")
}
