package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/jobfair-forms-api/internal/models"
	appErrors "github.com/noah-isme/jobfair-forms-api/pkg/errors"
	"github.com/noah-isme/jobfair-forms-api/pkg/storage"
)

type formStoreStub struct {
	forms     map[string]models.FormConfig
	creates   int
	updates   int
	deletes   int
	shares    int
	createErr error
	updateErr error
	getErr    error
}

func newFormStoreStub(configs ...models.FormConfig) *formStoreStub {
	s := &formStoreStub{forms: map[string]models.FormConfig{}}
	for _, cfg := range configs {
		s.forms[cfg.ID] = cfg.Clone()
	}
	return s
}

func (s *formStoreStub) Create(ctx context.Context, cfg *models.FormConfig) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.creates++
	cfg.ID = uuid.NewString()
	s.forms[cfg.ID] = cfg.Clone()
	return nil
}

func (s *formStoreStub) Update(ctx context.Context, cfg *models.FormConfig) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	existing, ok := s.forms[cfg.ID]
	if !ok || existing.CreatedBy != cfg.CreatedBy {
		return fmt.Errorf("update form config: %w", sql.ErrNoRows)
	}
	s.updates++
	next := cfg.Clone()
	next.IsPublic = existing.IsPublic
	s.forms[cfg.ID] = next
	return nil
}

func (s *formStoreStub) GetByID(ctx context.Context, id string) (*models.FormConfig, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	cfg, ok := s.forms[id]
	if !ok {
		return nil, fmt.Errorf("get form config: %w", sql.ErrNoRows)
	}
	out := cfg.Clone()
	return &out, nil
}

func (s *formStoreStub) GetForOwner(ctx context.Context, id, owner string) (*models.FormConfig, error) {
	cfg, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cfg.CreatedBy != owner {
		return nil, fmt.Errorf("get owner form config: %w", sql.ErrNoRows)
	}
	return cfg, nil
}

func (s *formStoreStub) GetPublic(ctx context.Context, id string) (*models.FormConfig, error) {
	cfg, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cfg.IsPublic || !cfg.IsActive {
		return nil, fmt.Errorf("get public form config: %w", sql.ErrNoRows)
	}
	return cfg, nil
}

func (s *formStoreStub) ListByOwner(ctx context.Context, owner string, limit, offset int) ([]models.FormConfig, int, error) {
	owned := []models.FormConfig{}
	for _, cfg := range s.forms {
		if cfg.CreatedBy == owner {
			owned = append(owned, cfg.Clone())
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].UpdatedAt.After(owned[j].UpdatedAt) })
	total := len(owned)
	if offset >= total {
		return []models.FormConfig{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return owned[offset:end], total, nil
}

func (s *formStoreStub) SetPublic(ctx context.Context, id, owner string, public bool, at time.Time) error {
	cfg, ok := s.forms[id]
	if !ok || cfg.CreatedBy != owner {
		return fmt.Errorf("set form sharing: %w", sql.ErrNoRows)
	}
	s.shares++
	cfg.IsPublic = public
	cfg.UpdatedAt = at
	s.forms[id] = cfg
	return nil
}

func (s *formStoreStub) Delete(ctx context.Context, id, owner string) error {
	cfg, ok := s.forms[id]
	if !ok || cfg.CreatedBy != owner {
		return fmt.Errorf("delete form config: %w", sql.ErrNoRows)
	}
	s.deletes++
	delete(s.forms, id)
	return nil
}

type responseStoreStub struct {
	items     []models.FormResponse
	appendErr error
	listErr   error
}

func (s *responseStoreStub) Append(ctx context.Context, resp *models.FormResponse) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	resp.ID = uuid.NewString()
	resp.SubmittedAt = time.Now().UTC()
	s.items = append(s.items, *resp)
	return nil
}

func (s *responseStoreStub) ListByForm(ctx context.Context, formID string) ([]models.FormResponse, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := []models.FormResponse{}
	for _, item := range s.items {
		if item.FormConfigID == formID {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

type uploaderStub struct {
	uploads   []storage.File
	deleted   []string
	failAfter int
	deleteErr error
}

func (u *uploaderStub) Upload(ctx context.Context, file storage.File) (string, error) {
	if u.failAfter > 0 && len(u.uploads) >= u.failAfter {
		return "", fmt.Errorf("%w: host unavailable", storage.ErrRejected)
	}
	u.uploads = append(u.uploads, file)
	return fmt.Sprintf("https://cdn.example.com/%d/%s", len(u.uploads), file.Name), nil
}

func (u *uploaderStub) Delete(ctx context.Context, url string) error {
	u.deleted = append(u.deleted, url)
	return u.deleteErr
}

type cacheRepoStub struct {
	entries map[string][]byte
	gets    int
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{entries: map[string][]byte{}}
}

func (c *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	c.gets++
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *cacheRepoStub) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(c.entries, key)
	}
	return nil
}

func ptrInt(v int) *int {
	return &v
}

func ptrFloat(v float64) *float64 {
	return &v
}

func savedForm(owner string, fields ...models.Field) models.FormConfig {
	cfg := models.NewFormConfig()
	cfg.ID = uuid.NewString()
	cfg.Title = "Exhibitor registration"
	cfg.Description = "Register your stand"
	cfg.CreatedBy = owner
	cfg.CreatedAt = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	cfg.UpdatedAt = cfg.CreatedAt
	cfg.Fields = models.FieldList(fields)
	cfg.NormalizeOrder()
	return cfg
}

func textField(id, label string, required bool) *models.TextField {
	return &models.TextField{FieldBase: models.FieldBase{ID: id, Type: models.FieldTypeText, Label: label, Required: required}}
}
