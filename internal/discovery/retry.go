package discovery

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/iliyamo/localmarket/internal/metrics"
)

// withRetry calls fn up to attempts times, sleeping backoff*n after the
// n-th failure.  Waiting stops early when ctx is done.
func withRetry[T any](ctx context.Context, attempts int, backoff time.Duration, kind string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for n := 1; ; n++ {
		var v T
		if v, err = fn(ctx); err == nil {
			return v, nil
		}
		if n == attempts {
			break
		}
		metrics.SpatialQueryRetries.WithLabelValues(kind).Inc()
		zerolog.Ctx(ctx).Warn().Err(err).Str("kind", kind).Int("attempt", n).Msg("spatial query failed, retrying")

		t := time.NewTimer(backoff * time.Duration(n))
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, errors.Wrapf(ctx.Err(), "%s query abandoned after %d attempts", kind, n)
		case <-t.C:
		}
	}
	return zero, errors.Wrapf(err, "%s query failed after %d attempts", kind, attempts)
}
