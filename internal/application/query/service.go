package query

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/prediction"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/monitoring/logging"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/monitoring/prometheus"
	"github.com/AdamCoscia/KnowledgeVIS/pkg/client"
	"github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

const cacheKeyPrefix = "query:"

// Fetcher is the prediction backend. *client.Client satisfies it.
type Fetcher interface {
	GetData(ctx context.Context, req *client.Request) (*client.Response, error)
}

// Cache stores backend responses. Both the in-process and the redis cache
// satisfy it; a Get error with code NotFound is a miss.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
}

// Result is one answered query.
type Result struct {
	Request  *client.Request
	Response *client.Response
	Dataset  *prediction.Dataset
	Cached   bool
	Duration time.Duration
}

// Service runs queries against the backend.
type Service interface {
	// Run validates q, builds the request and fetches it.
	Run(ctx context.Context, q Query) (*Result, error)
	// Fetch sends an already built request.
	Fetch(ctx context.Context, req *client.Request) (*Result, error)
	// Purge drops every cached response and reports how many were removed.
	Purge(ctx context.Context) (int64, error)
}

type serviceImpl struct {
	fetcher   Fetcher
	cache     Cache
	cacheName string
	ttl       time.Duration
	group     singleflight.Group
	logger    logging.Logger
	metrics   *prometheus.AppMetrics
}

type ServiceOption func(*serviceImpl)

// WithCache enables response caching. name labels the cache metrics.
func WithCache(c Cache, name string, ttl time.Duration) ServiceOption {
	return func(s *serviceImpl) {
		s.cache = c
		s.cacheName = name
		s.ttl = ttl
	}
}

func WithLogger(l logging.Logger) ServiceOption {
	return func(s *serviceImpl) { s.logger = l }
}

func WithMetrics(m *prometheus.AppMetrics) ServiceOption {
	return func(s *serviceImpl) { s.metrics = m }
}

func NewService(fetcher Fetcher, opts ...ServiceOption) Service {
	s := &serviceImpl{fetcher: fetcher, logger: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *serviceImpl) Run(ctx context.Context, q Query) (*Result, error) {
	req, err := BuildRequest(q)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordRejectedQuery(string(errors.GetCode(err)))
		}
		return nil, err
	}
	return s.Fetch(ctx, req)
}

func (s *serviceImpl) Fetch(ctx context.Context, req *client.Request) (*Result, error) {
	start := time.Now()
	key := cacheKey(req)

	if resp, ok := s.lookup(ctx, key); ok {
		ds, err := BuildDataset(resp)
		if err != nil {
			return nil, err
		}
		return &Result{Request: req, Response: resp, Dataset: ds, Cached: true, Duration: time.Since(start)}, nil
	}

	// Identical concurrent queries share one backend call. The call is
	// detached from any single caller so one cancellation does not fail
	// the others.
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.fetch(context.WithoutCancel(ctx), key, req)
	})
	select {
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "query cancelled")
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		resp := r.Val.(*client.Response)
		ds, err := BuildDataset(resp)
		if err != nil {
			return nil, err
		}
		if r.Shared {
			s.logger.Debug("shared in-flight query", logging.String("model", req.Model))
		}
		return &Result{Request: req, Response: resp, Dataset: ds, Duration: time.Since(start)}, nil
	}
}

func (s *serviceImpl) fetch(ctx context.Context, key string, req *client.Request) (*client.Response, error) {
	start := time.Now()
	resp, err := s.fetcher.GetData(ctx, req)
	if s.metrics != nil {
		s.metrics.RecordBackendRequest(req.Model, err, time.Since(start))
	}
	if err != nil {
		s.logger.Warn("backend query failed",
			logging.String("model", req.Model),
			logging.Duration("duration", time.Since(start)),
			logging.Err(err))
		if _, ok := err.(*errors.AppError); ok {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "backend query failed")
	}
	s.logger.Info("backend query completed",
		logging.String("model", req.Model),
		logging.Int("topk", req.TopK),
		logging.Int("predictions", len(resp.HeatMapData)),
		logging.Duration("duration", time.Since(start)))

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp, s.ttl); err != nil {
			s.logger.Warn("cache write failed", logging.String("cache", s.cacheName), logging.Err(err))
		}
	}
	return resp, nil
}

func (s *serviceImpl) lookup(ctx context.Context, key string) (*client.Response, bool) {
	if s.cache == nil {
		return nil, false
	}
	var resp client.Response
	err := s.cache.Get(ctx, key, &resp)
	hit := err == nil
	if s.metrics != nil {
		s.metrics.RecordCacheAccess(s.cacheName, hit)
	}
	if err != nil && !errors.IsCode(err, errors.ErrCodeNotFound) {
		s.logger.Warn("cache read failed", logging.String("cache", s.cacheName), logging.Err(err))
	}
	if !hit {
		return nil, false
	}
	return &resp, true
}

func (s *serviceImpl) Purge(ctx context.Context) (int64, error) {
	if s.cache == nil {
		return 0, nil
	}
	n, err := s.cache.DeleteByPrefix(ctx, cacheKeyPrefix)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeCacheError, "purge query cache")
	}
	s.logger.Info("query cache purged", logging.Int64("removed", n))
	return n, nil
}

// cacheKey hashes the request body, which fully determines the response.
func cacheKey(req *client.Request) string {
	b, _ := json.Marshal(req)
	sum := sha256.Sum256(b)
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
