package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type patternCacheStub struct {
	*cacheRepoStub
	patterns []string
	err      error
}

func (p *patternCacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	p.patterns = append(p.patterns, pattern)
	if p.err != nil {
		return p.err
	}
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range p.entries {
		if strings.HasPrefix(key, prefix) {
			delete(p.entries, key)
		}
	}
	return nil
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	repo := newCacheRepoStub()
	svc := NewCacheService(repo, nil, time.Minute, nil, false)
	cfg := savedForm("owner-1", textField("f1", "Company", true))

	svc.StorePublicForm(context.Background(), &cfg)
	_, ok := svc.PublicForm(context.Background(), cfg.ID)
	assert.False(t, ok)
	assert.Empty(t, repo.entries)
	assert.Zero(t, repo.gets)

	var nilSvc *CacheService
	nilSvc.ForgetPublicForm(context.Background(), cfg.ID)
	assert.NoError(t, nilSvc.FlushPublicForms(context.Background()))
}

func TestCacheServicePublicFormRoundTrip(t *testing.T) {
	repo := newCacheRepoStub()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)
	cfg := savedForm("owner-1", textField("f1", "Company", true))

	_, ok := svc.PublicForm(context.Background(), cfg.ID)
	assert.False(t, ok)

	svc.StorePublicForm(context.Background(), &cfg)
	cached, ok := svc.PublicForm(context.Background(), cfg.ID)
	require.True(t, ok)
	assert.Equal(t, cfg.Title, cached.Title)
	assert.Equal(t, cfg.Fields[0].Base().Label, cached.Fields[0].Base().Label)

	svc.ForgetPublicForm(context.Background(), cfg.ID)
	_, ok = svc.PublicForm(context.Background(), cfg.ID)
	assert.False(t, ok)
}

func TestCacheServiceFlushPublicForms(t *testing.T) {
	repo := &patternCacheStub{cacheRepoStub: newCacheRepoStub()}
	repo.entries[publicFormKeyPrefix+"a"] = []byte(`{}`)
	repo.entries["other:key"] = []byte(`{}`)
	svc := NewCacheService(repo, nil, 0, nil, true)

	require.NoError(t, svc.FlushPublicForms(context.Background()))
	assert.Equal(t, []string{publicFormKeyPrefix + "*"}, repo.patterns)
	assert.NotContains(t, repo.entries, publicFormKeyPrefix+"a")
	assert.Contains(t, repo.entries, "other:key")

	repo.err = errors.New("redis down")
	assert.Error(t, svc.FlushPublicForms(context.Background()))

	plain := NewCacheService(newCacheRepoStub(), nil, 0, nil, true)
	assert.NoError(t, plain.FlushPublicForms(context.Background()))
}
