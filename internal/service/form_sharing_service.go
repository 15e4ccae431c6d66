package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/jobfair-forms-api/internal/dto"
	"github.com/noah-isme/jobfair-forms-api/internal/models"
	appErrors "github.com/noah-isme/jobfair-forms-api/pkg/errors"
)

type sharingStore interface {
	GetByID(ctx context.Context, id string) (*models.FormConfig, error)
	GetPublic(ctx context.Context, id string) (*models.FormConfig, error)
	SetPublic(ctx context.Context, id, owner string, public bool, at time.Time) error
}

// FormSharingService toggles public access and resolves public identifiers.
type FormSharingService struct {
	store   sharingStore
	cache   *CacheService
	logger  *zap.Logger
	baseURL string
	now     func() time.Time
}

// NewFormSharingService constructs the sharing controller. baseURL prefixes share links.
func NewFormSharingService(store sharingStore, cache *CacheService, baseURL string, logger *zap.Logger) *FormSharingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FormSharingService{
		store:   store,
		cache:   cache,
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// ShareURL returns the public page of a form.
func (s *FormSharingService) ShareURL(id string) string {
	return shareURL(s.baseURL, id)
}

func shareURL(base, id string) string {
	return strings.TrimRight(base, "/") + "/form/" + id
}

// EnableSharing makes the configuration publicly resolvable.
func (s *FormSharingService) EnableSharing(ctx context.Context, id, actor string) (*dto.ShareResponse, error) {
	return s.setSharing(ctx, id, actor, true)
}

// DisableSharing makes the configuration private again.
func (s *FormSharingService) DisableSharing(ctx context.Context, id, actor string) (*dto.ShareResponse, error) {
	return s.setSharing(ctx, id, actor, false)
}

func (s *FormSharingService) setSharing(ctx context.Context, id, actor string, public bool) (*dto.ShareResponse, error) {
	if !isFormID(id) {
		return nil, formNotFound()
	}
	cfg, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	if cfg.CreatedBy != actor {
		s.logger.Warn("sharing toggle rejected", zap.String("form_id", id), zap.String("actor", actor))
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the form owner can change sharing")
	}
	if cfg.IsPublic != public {
		if err := s.store.SetPublic(ctx, id, actor, public, s.now().UTC()); err != nil {
			return nil, storeError(err)
		}
	}
	s.cache.ForgetPublicForm(ctx, id)

	resp := &dto.ShareResponse{ID: id, IsPublic: public}
	if public {
		resp.ShareURL = s.ShareURL(id)
	}
	return resp, nil
}

// ResolvePublic returns the configuration only when it exists, is active and
// is public. Every other case yields the same not-found error.
func (s *FormSharingService) ResolvePublic(ctx context.Context, id string) (*models.FormConfig, error) {
	id = strings.TrimSpace(id)
	if !isFormID(id) {
		return nil, formNotFound()
	}
	if cached, ok := s.cache.PublicForm(ctx, id); ok {
		return cached, nil
	}
	cfg, err := s.store.GetPublic(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, formNotFound()
		}
		return nil, appErrors.Persistence(err, msgPersistenceFail)
	}
	s.cache.StorePublicForm(ctx, cfg)
	return cfg, nil
}
