package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/jobfair-forms-api/internal/models"
	appErrors "github.com/noah-isme/jobfair-forms-api/pkg/errors"
)

const publicFormKeyPrefix = "forms:public:"

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type patternDeleter interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService orchestrates cache operations and related metrics.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	s.metrics.RecordCacheOperation(true, duration)
	return true, nil
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate removes the given keys.
func (s *CacheService) Invalidate(ctx context.Context, keys ...string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.Delete(ctx, keys...); err != nil {
		s.logger.Warn("cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
		return err
	}
	return nil
}

// PublicForm returns a cached public configuration.
func (s *CacheService) PublicForm(ctx context.Context, id string) (*models.FormConfig, bool) {
	var cfg models.FormConfig
	hit, err := s.Get(ctx, publicFormKeyPrefix+id, &cfg)
	if err != nil || !hit {
		return nil, false
	}
	return &cfg, true
}

// StorePublicForm caches a resolved public configuration. Failures are logged only.
func (s *CacheService) StorePublicForm(ctx context.Context, cfg *models.FormConfig) {
	if cfg == nil {
		return
	}
	_ = s.Set(ctx, publicFormKeyPrefix+cfg.ID, cfg, 0)
}

// ForgetPublicForm drops the cached public configuration. Failures are logged only.
func (s *CacheService) ForgetPublicForm(ctx context.Context, id string) {
	_ = s.Invalidate(ctx, publicFormKeyPrefix+id)
}

// FlushPublicForms drops every cached public configuration when the repository supports pattern deletes.
func (s *CacheService) FlushPublicForms(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	deleter, ok := s.repo.(patternDeleter)
	if !ok {
		return nil
	}
	if err := deleter.DeleteByPattern(ctx, publicFormKeyPrefix+"*"); err != nil {
		s.logger.Warn("cache flush failed", zap.String("prefix", publicFormKeyPrefix), zap.Error(err))
		return err
	}
	return nil
}
