package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/jobfair-forms-api/internal/models"
	"github.com/noah-isme/jobfair-forms-api/internal/service"
	appErrors "github.com/noah-isme/jobfair-forms-api/pkg/errors"
	"github.com/noah-isme/jobfair-forms-api/pkg/storage"
)

type memoryForms struct {
	mu    sync.Mutex
	items map[string]models.FormConfig
}

func (m *memoryForms) Create(ctx context.Context, cfg *models.FormConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg.ID = uuid.NewString()
	m.items[cfg.ID] = cfg.Clone()
	return nil
}

func (m *memoryForms) Update(ctx context.Context, cfg *models.FormConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.items[cfg.ID]
	if !ok || existing.CreatedBy != cfg.CreatedBy {
		return fmt.Errorf("update form config: %w", sql.ErrNoRows)
	}
	next := cfg.Clone()
	next.IsPublic = existing.IsPublic
	m.items[cfg.ID] = next
	return nil
}

func (m *memoryForms) GetByID(ctx context.Context, id string) (*models.FormConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("get form config: %w", sql.ErrNoRows)
	}
	out := cfg.Clone()
	return &out, nil
}

func (m *memoryForms) GetForOwner(ctx context.Context, id, owner string) (*models.FormConfig, error) {
	cfg, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cfg.CreatedBy != owner {
		return nil, fmt.Errorf("get owner form config: %w", sql.ErrNoRows)
	}
	return cfg, nil
}

func (m *memoryForms) GetPublic(ctx context.Context, id string) (*models.FormConfig, error) {
	cfg, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cfg.IsPublic || !cfg.IsActive {
		return nil, fmt.Errorf("get public form config: %w", sql.ErrNoRows)
	}
	return cfg, nil
}

func (m *memoryForms) ListByOwner(ctx context.Context, owner string, limit, offset int) ([]models.FormConfig, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owned := []models.FormConfig{}
	for _, cfg := range m.items {
		if cfg.CreatedBy == owner {
			owned = append(owned, cfg.Clone())
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].UpdatedAt.After(owned[j].UpdatedAt) })
	if offset >= len(owned) {
		return []models.FormConfig{}, len(owned), nil
	}
	end := offset + limit
	if end > len(owned) {
		end = len(owned)
	}
	return owned[offset:end], len(owned), nil
}

func (m *memoryForms) SetPublic(ctx context.Context, id, owner string, public bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.items[id]
	if !ok || cfg.CreatedBy != owner {
		return fmt.Errorf("set form sharing: %w", sql.ErrNoRows)
	}
	cfg.IsPublic = public
	cfg.UpdatedAt = at
	m.items[id] = cfg
	return nil
}

func (m *memoryForms) Delete(ctx context.Context, id, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.items[id]
	if !ok || cfg.CreatedBy != owner {
		return fmt.Errorf("delete form config: %w", sql.ErrNoRows)
	}
	delete(m.items, id)
	return nil
}

type memoryResponses struct {
	mu    sync.Mutex
	items []models.FormResponse
}

func (m *memoryResponses) Append(ctx context.Context, resp *models.FormResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	resp.ID = uuid.NewString()
	resp.SubmittedAt = time.Now().UTC().Add(time.Duration(len(m.items)) * time.Second)
	m.items = append(m.items, *resp)
	return nil
}

func (m *memoryResponses) ListByForm(ctx context.Context, formID string) ([]models.FormResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.FormResponse{}
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].FormConfigID == formID {
			out = append(out, m.items[i])
		}
	}
	return out, nil
}

type memoryUploader struct {
	files []storage.File
}

func (u *memoryUploader) Upload(ctx context.Context, file storage.File) (string, error) {
	u.files = append(u.files, file)
	return fmt.Sprintf("https://cdn.example.com/%d-%s", len(u.files), file.Name), nil
}

type tokenStub map[string]*models.JWTClaims

func (s tokenStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type testApp struct {
	router    *gin.Engine
	forms     *memoryForms
	responses *memoryResponses
	uploads   *memoryUploader
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	app := &testApp{
		forms:     &memoryForms{items: map[string]models.FormConfig{}},
		responses: &memoryResponses{},
		uploads:   &memoryUploader{},
	}
	tokens := tokenStub{
		"owner-1":   {UserID: "owner-1", Role: models.RoleOrganizer},
		"owner-2":   {UserID: "owner-2", Role: models.RoleAdmin},
		"exhibitor": {UserID: "company-9", Role: models.RoleCompany},
	}
	metrics := service.NewMetricsService()
	forms := service.NewFormService(app.forms, nil, nil, nil, service.FormServiceConfig{PublicBaseURL: "https://fair.example.com"})
	sharing := service.NewFormSharingService(app.forms, nil, "https://fair.example.com", nil)
	renderer := service.NewFormRenderer(nil, app.uploads, app.responses, metrics, nil)
	responses := service.NewFormResponseService(app.forms, app.responses, nil, nil, nil)

	app.router = gin.New()
	RegisterRoutes(app.router, "/api/v1", Handlers{
		Forms:     NewFormHandler(forms, renderer),
		Sharing:   NewSharingHandler(sharing),
		Responses: NewResponseHandler(responses),
		Public:    NewPublicFormHandler(sharing, renderer, 5<<20, nil),
		Metrics:   NewMetricsHandler(metrics, nil),
	}, tokens)
	return app
}

func (a *testApp) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) doJSON(t *testing.T, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	return a.do(t, method, path, token, body, "application/json")
}

type envelope struct {
	Data       json.RawMessage    `json:"data"`
	Error      *appErrors.Error   `json:"error"`
	Pagination *models.Pagination `json:"pagination"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if dest != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, dest))
	}
	return env
}

// createSharedForm creates a form owned by owner-1 and shares it.
func (a *testApp) createSharedForm(t *testing.T, fields ...map[string]interface{}) models.FormConfig {
	t.Helper()
	w := a.doJSON(t, http.MethodPost, "/api/v1/forms", "owner-1", map[string]interface{}{
		"title":  "Exhibitor registration",
		"fields": fields,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var cfg models.FormConfig
	decodeEnvelope(t, w, &cfg)

	w = a.do(t, http.MethodPost, "/api/v1/forms/"+cfg.ID+"/share", "owner-1", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return cfg
}
