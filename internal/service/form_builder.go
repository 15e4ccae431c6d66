package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/noah-isme/jobfair-forms-api/internal/dto"
	"github.com/noah-isme/jobfair-forms-api/internal/models"
	appErrors "github.com/noah-isme/jobfair-forms-api/pkg/errors"
)

// MoveDirection is the direction of a single-step field move.
type MoveDirection string

const (
	MoveUp   MoveDirection = "up"
	MoveDown MoveDirection = "down"
)

// FormDraftStore is the persistence collaborator used by the builder.
type FormDraftStore interface {
	Create(ctx context.Context, cfg *models.FormConfig) error
	Update(ctx context.Context, cfg *models.FormConfig) error
	GetForOwner(ctx context.Context, id, owner string) (*models.FormConfig, error)
}

// FormBuilderOption configures a builder.
type FormBuilderOption func(*FormBuilder)

// WithBuilderCache invalidates cached public forms after updates.
func WithBuilderCache(cache *CacheService) FormBuilderOption {
	return func(b *FormBuilder) {
		b.cache = cache
	}
}

// WithBuilderValidator validates field inputs with struct tags.
func WithBuilderValidator(v *validator.Validate) FormBuilderOption {
	return func(b *FormBuilder) {
		if v != nil {
			b.validator = v
		}
	}
}

// WithBuilderClock overrides the time source.
func WithBuilderClock(now func() time.Time) FormBuilderOption {
	return func(b *FormBuilder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithDefaultSubmitText sets the submit label used when none is given.
func WithDefaultSubmitText(text string) FormBuilderOption {
	return func(b *FormBuilder) {
		if strings.TrimSpace(text) != "" {
			b.defaultSubmit = text
		}
	}
}

// FormBuilder holds one caller-local draft. Every mutation returns a snapshot.
type FormBuilder struct {
	store         FormDraftStore
	cache         *CacheService
	validator     *validator.Validate
	policy        *bluemonday.Policy
	logger        *zap.Logger
	now           func() time.Time
	defaultSubmit string

	draft     models.FormConfig
	persisted bool
}

// NewFormBuilder starts an empty draft.
func NewFormBuilder(store FormDraftStore, logger *zap.Logger, opts ...FormBuilderOption) *FormBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &FormBuilder{
		store:         store,
		validator:     validator.New(),
		policy:        bluemonday.StrictPolicy(),
		logger:        logger,
		now:           time.Now,
		defaultSubmit: models.DefaultSubmitButtonText,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.draft = models.NewFormConfig()
	b.draft.SubmitButtonText = b.defaultSubmit
	return b
}

// LoadFormBuilder starts a builder from a configuration owned by owner.
func LoadFormBuilder(ctx context.Context, store FormDraftStore, id, owner string, logger *zap.Logger, opts ...FormBuilderOption) (*FormBuilder, error) {
	b := NewFormBuilder(store, logger, opts...)
	if !isFormID(id) {
		return nil, formNotFound()
	}
	cfg, err := store.GetForOwner(ctx, id, owner)
	if err != nil {
		return nil, storeError(err)
	}
	b.draft = cfg.Clone()
	b.persisted = true
	return b, nil
}

// Seed replaces the draft. Drafts without a persisted id are created on save.
func (b *FormBuilder) Seed(cfg models.FormConfig) models.FormConfig {
	b.draft = cfg.Clone()
	if b.draft.Fields == nil {
		b.draft.Fields = models.FieldList{}
	}
	if strings.TrimSpace(b.draft.SubmitButtonText) == "" {
		b.draft.SubmitButtonText = b.defaultSubmit
	}
	b.draft.NormalizeOrder()
	b.persisted = isFormID(b.draft.ID)
	return b.Draft()
}

// Draft returns a snapshot of the working draft.
func (b *FormBuilder) Draft() models.FormConfig {
	return b.draft.Clone()
}

// SetMetadata replaces title, description and submit label.
func (b *FormBuilder) SetMetadata(title, description, submitText string) models.FormConfig {
	b.draft.Title = b.clean(title)
	b.draft.Description = b.clean(description)
	submitText = b.clean(submitText)
	if submitText == "" {
		submitText = b.defaultSubmit
	}
	b.draft.SubmitButtonText = submitText
	return b.Draft()
}

// SanitizeFields applies the author-input cleaning of AddField to every field
// already in the draft. Keys of the problem map are fields[<index>].<attr>.
func (b *FormBuilder) SanitizeFields() (models.FormConfig, error) {
	problems := map[string]string{}
	for i, field := range b.draft.Fields {
		base := field.Base()
		base.Label = b.clean(base.Label)
		base.Placeholder = b.clean(base.Placeholder)
		if base.Label == "" {
			problems[fmt.Sprintf("fields[%d].label", i)] = "label is required"
		}
		sel, ok := field.(*models.SelectField)
		if !ok {
			continue
		}
		options, optionProblems := b.cleanOptions(sel.Options)
		for key, msg := range optionProblems {
			problems[fmt.Sprintf("fields[%d].%s", i, key)] = msg
		}
		if optionProblems == nil {
			sel.Options = options
		}
	}
	if len(problems) > 0 {
		return models.FormConfig{}, fieldProblems("invalid field", problems)
	}
	return b.Draft(), nil
}

// SetActive toggles whether the form accepts public submissions once shared.
func (b *FormBuilder) SetActive(active bool) models.FormConfig {
	b.draft.IsActive = active
	return b.Draft()
}

// AddField appends a new field with a fresh id.
func (b *FormBuilder) AddField(in dto.FieldInput) (models.FormConfig, error) {
	field, err := b.buildField(in)
	if err != nil {
		return models.FormConfig{}, err
	}
	base := field.Base()
	base.ID = "field_" + uuid.NewString()
	base.Order = len(b.draft.Fields)
	b.draft.Fields = append(b.draft.Fields, field)
	return b.Draft(), nil
}

// UpdateField replaces the editable attributes of a field, keeping id, type and order.
func (b *FormBuilder) UpdateField(fieldID string, in dto.FieldInput) (models.FormConfig, error) {
	current, idx := b.draft.FieldByID(fieldID)
	if current == nil {
		return models.FormConfig{}, appErrors.Clone(appErrors.ErrNotFound, "field not found")
	}
	if strings.TrimSpace(in.Type) == "" {
		in.Type = string(current.Base().Type)
	}
	if models.FieldType(in.Type) != current.Base().Type {
		return models.FormConfig{}, fieldProblems("field type cannot be changed", map[string]string{"type": "field type cannot be changed"})
	}
	field, err := b.buildField(in)
	if err != nil {
		return models.FormConfig{}, err
	}
	base := field.Base()
	base.ID = current.Base().ID
	base.Order = current.Base().Order
	b.draft.Fields[idx] = field
	return b.Draft(), nil
}

// RemoveField drops the field if present and renormalizes order.
func (b *FormBuilder) RemoveField(fieldID string) models.FormConfig {
	if _, idx := b.draft.FieldByID(fieldID); idx >= 0 {
		fields := make(models.FieldList, 0, len(b.draft.Fields)-1)
		fields = append(fields, b.draft.Fields[:idx]...)
		fields = append(fields, b.draft.Fields[idx+1:]...)
		b.draft.Fields = fields
		b.draft.NormalizeOrder()
	}
	return b.Draft()
}

// MoveField swaps the field with its neighbour. Boundaries and unknown ids are no-ops.
func (b *FormBuilder) MoveField(fieldID string, dir MoveDirection) models.FormConfig {
	_, idx := b.draft.FieldByID(fieldID)
	target := -1
	switch dir {
	case MoveUp:
		target = idx - 1
	case MoveDown:
		target = idx + 1
	}
	if idx >= 0 && target >= 0 && target < len(b.draft.Fields) {
		fields := b.draft.Fields
		fields[idx], fields[target] = fields[target], fields[idx]
		b.draft.NormalizeOrder()
	}
	return b.Draft()
}

// Save persists the draft: a create the first time, an update afterwards.
func (b *FormBuilder) Save(ctx context.Context, owner string) (models.FormConfig, error) {
	b.draft.NormalizeOrder()
	if err := b.draft.Validate(); err != nil {
		return models.FormConfig{}, configError(err)
	}

	now := b.now().UTC()
	cfg := b.draft.Clone()
	cfg.CreatedBy = owner
	cfg.UpdatedAt = now

	if b.persisted {
		if err := b.store.Update(ctx, &cfg); err != nil {
			b.logger.Warn("form update failed", zap.String("form_id", cfg.ID), zap.Error(err))
			return models.FormConfig{}, storeError(err)
		}
		b.cache.ForgetPublicForm(ctx, cfg.ID)
	} else {
		cfg.ID = ""
		cfg.CreatedAt = now
		cfg.IsPublic = false
		if err := b.store.Create(ctx, &cfg); err != nil {
			b.logger.Warn("form create failed", zap.String("owner", owner), zap.Error(err))
			return models.FormConfig{}, appErrors.Persistence(err, msgPersistenceFail)
		}
		if cfg.ID == "" {
			return models.FormConfig{}, appErrors.Persistence(fmt.Errorf("create returned no id"), msgPersistenceFail)
		}
	}

	b.draft = cfg.Clone()
	b.persisted = true
	return cfg, nil
}

// Duplicate copies an owned configuration into a new one and persists it once.
// The builder then holds the copy.
func (b *FormBuilder) Duplicate(ctx context.Context, sourceID, title, owner string) (models.FormConfig, error) {
	if !isFormID(sourceID) {
		return models.FormConfig{}, formNotFound()
	}
	source, err := b.store.GetForOwner(ctx, sourceID, owner)
	if err != nil {
		return models.FormConfig{}, storeError(err)
	}

	draft := source.Clone()
	draft.ID = ""
	draft.IsPublic = false
	title = b.clean(title)
	if title == "" {
		title = source.Title + " (copy)"
	}
	draft.Title = title
	draft.CreatedAt = time.Time{}
	draft.UpdatedAt = time.Time{}

	b.draft = draft
	b.persisted = false
	return b.Save(ctx, owner)
}

// buildField turns a partial input into a variant record without id or order.
func (b *FormBuilder) buildField(in dto.FieldInput) (models.Field, error) {
	problems := map[string]string{}
	if err := b.validator.Struct(in); err != nil {
		for key, msg := range validationMessages(err) {
			problems[key] = msg
		}
	}
	fieldType := models.FieldType(strings.TrimSpace(in.Type))
	if !fieldType.Valid() {
		problems["type"] = fmt.Sprintf("unsupported field type %q", in.Type)
	}
	label := b.clean(in.Label)
	if label == "" {
		problems["label"] = "label is required"
	}
	if in.MinLength != nil && in.MaxLength != nil && *in.MinLength > *in.MaxLength {
		problems["minLength"] = "minLength cannot exceed maxLength"
	}
	if in.Min != nil && in.Max != nil && *in.Min > *in.Max {
		problems["min"] = "min cannot exceed max"
	}
	if len(problems) > 0 {
		return nil, fieldProblems("invalid field", problems)
	}

	field, err := models.NewField(fieldType)
	if err != nil {
		return nil, configError(err)
	}
	base := field.Base()
	base.Label = label
	base.Placeholder = b.clean(in.Placeholder)
	base.Required = in.Required

	switch f := field.(type) {
	case *models.TextField:
		f.MinLength = in.MinLength
		f.MaxLength = in.MaxLength
	case *models.NumberField:
		f.Min = in.Min
		f.Max = in.Max
	case *models.SelectField:
		options, optionProblems := b.cleanOptions(in.Options)
		if len(optionProblems) > 0 {
			return nil, fieldProblems("invalid field", optionProblems)
		}
		f.Options = options
		f.Multiple = in.Multiple
	case *models.CheckboxField:
		f.DefaultValue = in.DefaultValue
	case *models.TextareaField:
		f.Rows = in.Rows
		f.MaxLength = in.MaxLength
	case *models.FileField:
		for _, accepted := range in.AcceptedTypes {
			if accepted = strings.ToLower(strings.TrimSpace(accepted)); accepted != "" {
				f.AcceptedTypes = append(f.AcceptedTypes, accepted)
			}
		}
		f.MaxSize = in.MaxSize
	}
	// the input is partial; copy before the draft keeps it
	return field.Clone(), nil
}

func (b *FormBuilder) cleanOptions(in []models.SelectOption) ([]models.SelectOption, map[string]string) {
	options := make([]models.SelectOption, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, opt := range in {
		value := b.clean(opt.Value)
		label := b.clean(opt.Label)
		if value == "" {
			value = label
		}
		if label == "" {
			label = value
		}
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			return nil, map[string]string{"options": fmt.Sprintf("duplicate option value %q", value)}
		}
		seen[value] = struct{}{}
		options = append(options, models.SelectOption{Value: value, Label: label})
	}
	return options, nil
}

// clean strips markup and surrounding whitespace from author input.
func (b *FormBuilder) clean(raw string) string {
	return strings.TrimSpace(html.UnescapeString(b.policy.Sanitize(raw)))
}

func validationMessages(err error) map[string]string {
	out := map[string]string{}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		out["_"] = err.Error()
		return out
	}
	for _, fe := range verrs {
		key := fe.Namespace()
		if i := strings.Index(key, "."); i >= 0 {
			key = key[i+1:]
		}
		parts := strings.Split(key, ".")
		for i := range parts {
			parts[i] = lowerFirst(parts[i])
		}
		out[strings.Join(parts, ".")] = fmt.Sprintf("failed %s validation", fe.Tag())
	}
	return out
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
