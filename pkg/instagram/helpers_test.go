package instagram

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"igdl/pkg/logger"
	"igdl/pkg/ratelimit"
	"igdl/pkg/retry"
)

func fastPolicy() *retry.Policy {
	p := retry.NewPolicy(3, time.Millisecond, 2*time.Millisecond, 0, 0)
	p.RateLimit = &retry.ExponentialBackoff{BaseDelay: time.Millisecond}
	p.Logger = logger.NewTestLogger()
	return p
}

// newTestSession starts an httptest server with handler and returns a
// session pointed at it
func newTestSession(t *testing.T, handler http.Handler) (*Session, *httptest.Server, *logger.TestLogger) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := logger.NewTestLogger()
	s, err := NewSession(
		WithBaseURL(srv.URL),
		WithLogger(log),
		WithRetryPolicy(fastPolicy()),
		WithRateLimiter(ratelimit.NewTokenBucket(1000, time.Minute)),
		WithTimeout(5*time.Second),
	)
	require.NoError(t, err)
	return s, srv, log
}
