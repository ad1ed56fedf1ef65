package middleware

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/dynsel/dynsel/internal/domain"
	"github.com/dynsel/dynsel/internal/ports"
)

// ClassifierMiddleware wraps a classifier with cross-cutting behavior while
// preserving the single Predict capability. Middleware composes outermost
// first: Chain(a, b)(clf) routes predictions through a, then b, then clf.
type ClassifierMiddleware func(ports.Classifier) ports.Classifier

// Chain composes middlewares into a single middleware.
func Chain(middlewares ...ClassifierMiddleware) ClassifierMiddleware {
	return func(next ports.Classifier) ports.Classifier {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// WrapPool applies a middleware to every classifier in a pool, preserving
// pool order. The returned pool is a new slice; the input is not modified.
func WrapPool(pool ports.Pool, mw ClassifierMiddleware) ports.Pool {
	wrapped := make(ports.Pool, len(pool))
	for i, clf := range pool {
		wrapped[i] = mw(clf)
	}
	return wrapped
}

// rateLimitedClassifier implements rate limiting using a token bucket
// algorithm. This paces predict calls against pools backed by remote or
// otherwise expensive models.
type rateLimitedClassifier struct {
	next    ports.Classifier
	limiter *rate.Limiter
}

// RateLimitMiddleware creates middleware that enforces rate limiting using a
// token bucket algorithm. The limit parameter sets predictions per second,
// while burst allows temporary spikes above the sustained rate.
// Classifiers wrapped by the same middleware share one limiter, so the limit
// applies across the whole pool.
func RateLimitMiddleware(limit rate.Limit, burst int) ClassifierMiddleware {
	limiter := rate.NewLimiter(limit, burst)

	return func(next ports.Classifier) ports.Classifier {
		return &rateLimitedClassifier{
			next:    next,
			limiter: limiter,
		}
	}
}

// Predict waits for rate limit permission before forwarding the prediction.
// This blocks the calling goroutine until a token is available.
func (r *rateLimitedClassifier) Predict(ctx context.Context, query domain.Sample) (domain.Label, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}
	return r.next.Predict(ctx, query)
}

// normalizingClassifier folds the wrapped classifier's labels so pools with
// inconsistent label casings compare correctly against the selection set.
type normalizingClassifier struct {
	next ports.Classifier
}

// NormalizeLabelsMiddleware creates middleware that applies Unicode case
// folding to every predicted label.
func NormalizeLabelsMiddleware() ClassifierMiddleware {
	return func(next ports.Classifier) ports.Classifier {
		return &normalizingClassifier{next: next}
	}
}

// Predict forwards the prediction and folds the resulting label.
func (n *normalizingClassifier) Predict(ctx context.Context, query domain.Sample) (domain.Label, error) {
	label, err := n.next.Predict(ctx, query)
	if err != nil {
		return "", err
	}
	return domain.NormalizeLabel(string(label)), nil
}

// metricsClassifier implements prediction metrics collection.
// This provides observability into predict volume, latency, and error rates
// across the pool.
type metricsClassifier struct {
	next      ports.Classifier
	collector ports.MetricsCollector
	strategy  string
}

// MetricsMiddleware creates middleware that collects per-prediction metrics
// under the given strategy label.
func MetricsMiddleware(collector ports.MetricsCollector, strategy string) ClassifierMiddleware {
	return func(next ports.Classifier) ports.Classifier {
		return &metricsClassifier{
			next:      next,
			collector: collector,
			strategy:  strategy,
		}
	}
}

// Predict executes the prediction while recording latency and outcome.
func (m *metricsClassifier) Predict(ctx context.Context, query domain.Sample) (domain.Label, error) {
	start := time.Now()
	label, err := m.next.Predict(ctx, query)

	status := "success"
	if err != nil {
		status = "error"
	}
	m.collector.RecordCounter("predictions_total", 1,
		map[string]string{"strategy": m.strategy, "status": status})
	m.collector.RecordLatency("predict", time.Since(start),
		map[string]string{"strategy": m.strategy})

	return label, err
}
