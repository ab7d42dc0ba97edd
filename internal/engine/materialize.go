package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
	"github.com/irbid-geoai/geoai-monitor/internal/logger"
)

// Authorizer gates every materialization on a valid session.
type Authorizer interface {
	Authorize() error
}

// Materializer is the single point where deferred handles are evaluated.
type Materializer struct {
	auth    Authorizer
	timeout time.Duration
	backoff time.Duration
}

// NewMaterializer bounds every evaluation by timeout. A transient failure is
// retried once after backoff.
func NewMaterializer(auth Authorizer, timeout, backoff time.Duration) *Materializer {
	return &Materializer{auth: auth, timeout: timeout, backoff: backoff}
}

// Materialize evaluates d under the session, timeout and retry policy of m.
func Materialize[T any](ctx context.Context, m *Materializer, d Deferred[T]) (T, error) {
	var zero T
	if m.auth != nil {
		if err := m.auth.Authorize(); err != nil {
			return zero, err
		}
	}

	const attempts = 2
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := materializeOnce(ctx, m.timeout, d)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !apperrors.IsTransient(err) || attempt == attempts || ctx.Err() != nil {
			break
		}

		logger.WithError(err).WithFields(logrus.Fields{
			"handle":  d.Label(),
			"attempt": attempt,
		}).Warn("Transient materialization failure, retrying")

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(m.backoff):
		}
	}
	return zero, lastErr
}

func materializeOnce[T any](ctx context.Context, timeout time.Duration, d Deferred[T]) (T, error) {
	start := time.Now()
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := d.evaluate(actx)
	if err != nil {
		// A deadline hit by our own timeout, not the caller's, is transient
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = apperrors.NewTimeoutError(fmt.Sprintf("materializing %s exceeded %s", d.Label(), timeout), err)
		}
		return v, err
	}

	logger.WithFields(logrus.Fields{
		"handle":      d.Label(),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Materialized handle")
	return v, nil
}
