package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/jobfair-forms-api/internal/dto"
	"github.com/noah-isme/jobfair-forms-api/internal/models"
	appErrors "github.com/noah-isme/jobfair-forms-api/pkg/errors"
)

// FormConfigStore is the full persistence collaborator for configurations.
type FormConfigStore interface {
	FormDraftStore
	ListByOwner(ctx context.Context, owner string, limit, offset int) ([]models.FormConfig, int, error)
	Delete(ctx context.Context, id, owner string) error
}

// FormServiceConfig carries deployment settings.
type FormServiceConfig struct {
	PublicBaseURL     string
	DefaultSubmitText string
}

// FormService exposes the configuration lifecycle to owners.
type FormService struct {
	store     FormConfigStore
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       FormServiceConfig
	now       func() time.Time
}

// NewFormService constructs the service.
func NewFormService(store FormConfigStore, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cfg FormServiceConfig) *FormService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FormService{store: store, cache: cache, validator: validate, logger: logger, cfg: cfg, now: time.Now}
}

func (s *FormService) builderOptions() []FormBuilderOption {
	return []FormBuilderOption{
		WithBuilderCache(s.cache),
		WithBuilderValidator(s.validator),
		WithBuilderClock(s.now),
		WithDefaultSubmitText(s.cfg.DefaultSubmitText),
	}
}

// NewBuilder starts an empty draft.
func (s *FormService) NewBuilder() *FormBuilder {
	return NewFormBuilder(s.store, s.logger, s.builderOptions()...)
}

// LoadBuilder starts a builder from an owned configuration.
func (s *FormService) LoadBuilder(ctx context.Context, id, owner string) (*FormBuilder, error) {
	return LoadFormBuilder(ctx, s.store, id, owner, s.logger, s.builderOptions()...)
}

// Create builds and saves a configuration in one call.
func (s *FormService) Create(ctx context.Context, owner string, req dto.CreateFormRequest) (models.FormConfig, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.FormConfig{}, fieldProblems("invalid form payload", validationMessages(err))
	}
	builder := s.NewBuilder()
	builder.SetMetadata(req.Title, req.Description, req.SubmitButtonText)
	problems := map[string]string{}
	for i, in := range req.Fields {
		if _, err := builder.AddField(in); err != nil {
			if appErr := appErrors.FromError(err); appErr.Fields != nil {
				for key, msg := range appErr.Fields {
					problems["fields["+strconv.Itoa(i)+"]."+key] = msg
				}
				continue
			}
			return models.FormConfig{}, err
		}
	}
	if len(problems) > 0 {
		return models.FormConfig{}, fieldProblems("invalid field", problems)
	}
	cfg, err := builder.Save(ctx, owner)
	if err != nil {
		return models.FormConfig{}, err
	}
	s.logger.Info("form created", zap.String("form_id", cfg.ID), zap.String("owner", owner), zap.Int("fields", len(cfg.Fields)))
	return cfg, nil
}

// Get returns an owned configuration.
func (s *FormService) Get(ctx context.Context, id, owner string) (*models.FormConfig, error) {
	if !isFormID(id) {
		return nil, formNotFound()
	}
	cfg, err := s.store.GetForOwner(ctx, id, owner)
	if err != nil {
		return nil, storeError(err)
	}
	return cfg, nil
}

// List returns one page of the owner's configurations, most recently updated first.
func (s *FormService) List(ctx context.Context, owner string, query dto.ListFormsQuery) ([]dto.FormSummary, *models.Pagination, error) {
	page, size := query.Page, query.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	configs, total, err := s.store.ListByOwner(ctx, owner, size, (page-1)*size)
	if err != nil {
		return nil, nil, storeError(err)
	}
	items := make([]dto.FormSummary, 0, len(configs))
	for _, cfg := range configs {
		summary := dto.FormSummary{
			ID:          cfg.ID,
			Title:       cfg.Title,
			Description: cfg.Description,
			FieldCount:  len(cfg.Fields),
			IsActive:    cfg.IsActive,
			IsPublic:    cfg.IsPublic,
			CreatedAt:   cfg.CreatedAt,
			UpdatedAt:   cfg.UpdatedAt,
		}
		if cfg.IsPublic {
			summary.ShareURL = shareURL(s.cfg.PublicBaseURL, cfg.ID)
		}
		items = append(items, summary)
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// UpdateMetadata edits title, description, submit label and active flag.
func (s *FormService) UpdateMetadata(ctx context.Context, id, owner string, req dto.UpdateFormRequest) (models.FormConfig, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.FormConfig{}, fieldProblems("invalid form payload", validationMessages(err))
	}
	return s.mutate(ctx, id, owner, func(b *FormBuilder) error {
		b.SetMetadata(req.Title, req.Description, req.SubmitButtonText)
		if req.IsActive != nil {
			b.SetActive(*req.IsActive)
		}
		return nil
	})
}

// AddField appends a field to an owned configuration and saves it.
func (s *FormService) AddField(ctx context.Context, id, owner string, in dto.FieldInput) (models.FormConfig, error) {
	return s.mutate(ctx, id, owner, func(b *FormBuilder) error {
		_, err := b.AddField(in)
		return err
	})
}

// UpdateField edits a field of an owned configuration and saves it.
func (s *FormService) UpdateField(ctx context.Context, id, owner, fieldID string, in dto.FieldInput) (models.FormConfig, error) {
	return s.mutate(ctx, id, owner, func(b *FormBuilder) error {
		_, err := b.UpdateField(fieldID, in)
		return err
	})
}

// RemoveField deletes a field of an owned configuration and saves it.
func (s *FormService) RemoveField(ctx context.Context, id, owner, fieldID string) (models.FormConfig, error) {
	return s.mutate(ctx, id, owner, func(b *FormBuilder) error {
		b.RemoveField(fieldID)
		return nil
	})
}

// MoveField moves a field one step and saves the configuration.
func (s *FormService) MoveField(ctx context.Context, id, owner, fieldID string, req dto.MoveFieldRequest) (models.FormConfig, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.FormConfig{}, fieldProblems("invalid move payload", validationMessages(err))
	}
	return s.mutate(ctx, id, owner, func(b *FormBuilder) error {
		b.MoveField(fieldID, MoveDirection(strings.ToLower(req.Direction)))
		return nil
	})
}

func (s *FormService) mutate(ctx context.Context, id, owner string, apply func(*FormBuilder) error) (models.FormConfig, error) {
	builder, err := s.LoadBuilder(ctx, id, owner)
	if err != nil {
		return models.FormConfig{}, err
	}
	if err := apply(builder); err != nil {
		return models.FormConfig{}, err
	}
	return builder.Save(ctx, owner)
}

// Duplicate copies an owned configuration.
func (s *FormService) Duplicate(ctx context.Context, id, owner string, req dto.DuplicateFormRequest) (models.FormConfig, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.FormConfig{}, fieldProblems("invalid duplicate payload", validationMessages(err))
	}
	cfg, err := s.NewBuilder().Duplicate(ctx, id, req.Title, owner)
	if err != nil {
		return models.FormConfig{}, err
	}
	s.logger.Info("form duplicated", zap.String("source_id", id), zap.String("form_id", cfg.ID))
	return cfg, nil
}

// Delete removes an owned configuration and all of its responses.
func (s *FormService) Delete(ctx context.Context, id, owner string) error {
	if !isFormID(id) {
		return formNotFound()
	}
	if err := s.store.Delete(ctx, id, owner); err != nil {
		return storeError(err)
	}
	s.cache.ForgetPublicForm(ctx, id)
	s.logger.Info("form deleted", zap.String("form_id", id), zap.String("owner", owner))
	return nil
}

// Import decodes a document and saves it as a new configuration. Decoding
// failures never touch storage.
func (s *FormService) Import(ctx context.Context, owner string, data []byte, enc TransferEncoding) (models.FormConfig, error) {
	draft, err := ImportConfig(data, enc, s.now())
	if err != nil {
		return models.FormConfig{}, configError(err)
	}
	builder := s.NewBuilder()
	builder.Seed(draft)
	builder.SetMetadata(draft.Title, draft.Description, draft.SubmitButtonText)
	if _, err := builder.SanitizeFields(); err != nil {
		return models.FormConfig{}, err
	}
	cfg, err := builder.Save(ctx, owner)
	if err != nil {
		return models.FormConfig{}, err
	}
	s.logger.Info("form imported", zap.String("form_id", cfg.ID), zap.String("owner", owner))
	return cfg, nil
}

// Export serializes an owned configuration.
func (s *FormService) Export(ctx context.Context, id, owner string, enc TransferEncoding) ([]byte, error) {
	cfg, err := s.Get(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	return ExportConfig(*cfg, enc)
}
