package interpret

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/amikxn/TrialMatchAI/internal/domain"
)

// ResilientClient wraps the interpretation client with a circuit breaker
// and an optional redis cache keyed by SHA-256 of the normalized input
// text. The breaker keeps a flapping service from stalling every extraction
// attempt; the cache avoids re-interpreting the same protocol document.
type ResilientClient struct {
	client  domain.Interpreter
	breaker *gobreaker.CircuitBreaker
	cache   *redis.Client
	ttl     time.Duration
	logger  *logrus.Logger
}

// NewResilientClient creates a resilient wrapper around an interpretation
// client. cache may be nil, in which case results are never cached.
func NewResilientClient(client domain.Interpreter, cache *redis.Client, ttl time.Duration, logger *logrus.Logger) *ResilientClient {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "Interpreter",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &ResilientClient{
		client:  client,
		breaker: breaker,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
	}
}

// Interpret runs the interpretation call through the circuit breaker,
// serving and populating the cache when one is configured. Failures are
// never cached; a later retry may succeed once the service recovers.
func (r *ResilientClient) Interpret(ctx context.Context, rawText string) (*domain.InterpretedCriteria, error) {
	key := cacheKey(rawText)

	if cached, found := r.cacheGet(ctx, key); found {
		return cached, nil
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.client.Interpret(ctx, rawText)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("interpretation service unavailable (circuit breaker open)")
		}
		return nil, err
	}

	interpreted := result.(*domain.InterpretedCriteria)
	r.cacheSet(ctx, key, interpreted)
	return interpreted, nil
}

// cacheKey derives a stable redis key from the input text.
func cacheKey(rawText string) string {
	sum := sha256.Sum256([]byte(rawText))
	return "trialmatch:interpret:" + hex.EncodeToString(sum[:])
}

func (r *ResilientClient) cacheGet(ctx context.Context, key string) (*domain.InterpretedCriteria, bool) {
	if r.cache == nil {
		return nil, false
	}

	data, err := r.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.WithError(err).Debug("Interpretation cache read failed")
		}
		return nil, false
	}

	var cached domain.InterpretedCriteria
	if err := json.Unmarshal(data, &cached); err != nil {
		r.logger.WithError(err).Debug("Interpretation cache entry corrupt, ignoring")
		return nil, false
	}
	return &cached, true
}

func (r *ResilientClient) cacheSet(ctx context.Context, key string, result *domain.InterpretedCriteria) {
	if r.cache == nil {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, data, r.ttl).Err(); err != nil {
		// Cache write failures never fail the interpretation.
		r.logger.WithError(err).Debug("Interpretation cache write failed")
	}
}
