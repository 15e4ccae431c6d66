package handler

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/jobfair-forms-api/internal/dto"
	"github.com/noah-isme/jobfair-forms-api/internal/models"
	"github.com/noah-isme/jobfair-forms-api/internal/service"
	appErrors "github.com/noah-isme/jobfair-forms-api/pkg/errors"
	"github.com/noah-isme/jobfair-forms-api/pkg/response"
	"github.com/noah-isme/jobfair-forms-api/pkg/storage"
)

//go:embed templates/public_form.html
var templateFS embed.FS

var publicPageTemplate = template.Must(template.New("public_form.html").Funcs(template.FuncMap{
	"value":    firstValue,
	"selected": hasValue,
	"checked":  isChecked,
}).ParseFS(templateFS, "templates/public_form.html"))

var errPayloadTooLarge = appErrors.New("PAYLOAD_TOO_LARGE", http.StatusRequestEntityTooLarge, "submission is too large")

const submittedNotice = "Thank you, your response has been recorded."

type publicFormResolver interface {
	ResolvePublic(ctx context.Context, id string) (*models.FormConfig, error)
}

type formSubmitter interface {
	Render(cfg *models.FormConfig) dto.RenderedForm
	Submit(ctx context.Context, cfg *models.FormConfig, sub service.Submission) (*models.FormResponse, error)
}

// PublicFormHandler serves shared forms to respondents as JSON and as an HTML page.
type PublicFormHandler struct {
	forms     publicFormResolver
	renderer  formSubmitter
	maxUpload int64
	logger    *zap.Logger
}

// NewPublicFormHandler constructs the public handler. maxUpload caps one submission body in bytes.
func NewPublicFormHandler(forms publicFormResolver, renderer formSubmitter, maxUpload int64, logger *zap.Logger) *PublicFormHandler {
	if maxUpload <= 0 {
		maxUpload = 20 << 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublicFormHandler{forms: forms, renderer: renderer, maxUpload: maxUpload, logger: logger}
}

// Get godoc
// @Summary Get a shared form
// @Tags Public
// @Produce json
// @Param id path string true "Form ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /public/forms/{id} [get]
func (h *PublicFormHandler) Get(c *gin.Context) {
	cfg, err := h.forms.ResolvePublic(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.renderer.Render(cfg), nil)
}

// Submit godoc
// @Summary Submit a response to a shared form
// @Description JSON bodies carry {"responses": {...}}; file fields require multipart/form-data.
// @Tags Public
// @Accept json
// @Accept mpfd
// @Produce json
// @Param id path string true "Form ID"
// @Param payload body dto.SubmitResponseRequest false "Answers keyed by field id"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /public/forms/{id}/responses [post]
func (h *PublicFormHandler) Submit(c *gin.Context) {
	cfg, err := h.forms.ResolvePublic(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	sub, err := h.readSubmission(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	resp, err := h.renderer.Submit(c.Request.Context(), cfg, sub)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.SubmissionResult{ResponseID: resp.ID, SubmittedAt: resp.SubmittedAt})
}

type publicPage struct {
	Title    string
	Form     *dto.RenderedForm
	Values   map[string][]string
	Errors   map[string]string
	Message  string
	Success  bool
	NotFound bool
}

// Page renders the shared form as HTML.
func (h *PublicFormHandler) Page(c *gin.Context) {
	cfg, err := h.forms.ResolvePublic(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	rendered := h.renderer.Render(cfg)
	h.renderPage(c, http.StatusOK, publicPage{Title: cfg.Title, Form: &rendered})
}

// PageSubmit accepts a browser form post and re-renders the page with the outcome.
func (h *PublicFormHandler) PageSubmit(c *gin.Context) {
	cfg, err := h.forms.ResolvePublic(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	rendered := h.renderer.Render(cfg)
	page := publicPage{Title: cfg.Title, Form: &rendered}

	sub, err := h.readSubmission(c)
	if err == nil {
		_, err = h.renderer.Submit(c.Request.Context(), cfg, sub)
	}
	if err != nil {
		appErr := appErrors.FromError(err)
		page.Values = sub.Values
		if page.Values == nil {
			page.Values = map[string][]string{}
		}
		page.Errors = appErr.Fields
		page.Message = appErr.Message
		if appErr.Status >= http.StatusInternalServerError {
			h.logger.Warn("public form submission failed", zap.String("form_id", cfg.ID), zap.Error(err))
		}
		h.renderPage(c, appErr.Status, page)
		return
	}
	page.Success = true
	page.Message = submittedNotice
	h.renderPage(c, http.StatusCreated, page)
}

func (h *PublicFormHandler) renderError(c *gin.Context, err error) {
	if errors.Is(err, appErrors.ErrNotFound) {
		h.renderPage(c, http.StatusNotFound, publicPage{Title: "Form not available", NotFound: true})
		return
	}
	appErr := appErrors.FromError(err)
	h.logger.Warn("public form unavailable", zap.String("form_id", c.Param("id")), zap.Error(err))
	h.renderPage(c, appErr.Status, publicPage{Title: "Form unavailable", Message: "The form cannot be loaded right now. Please try again later."})
}

func (h *PublicFormHandler) renderPage(c *gin.Context, status int, page publicPage) {
	var buf bytes.Buffer
	if err := publicPageTemplate.Execute(&buf, page); err != nil {
		h.logger.Error("render public form page", zap.Error(err))
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// readSubmission accepts multipart, urlencoded and JSON bodies.
func (h *PublicFormHandler) readSubmission(c *gin.Context) (service.Submission, error) {
	sub := service.Submission{
		Values:    map[string][]string{},
		Files:     map[string]storage.File{},
		UserAgent: c.Request.UserAgent(),
	}
	if claims := claimsFromContext(c); claims != nil && claims.UserID != "" {
		who := claims.UserID
		sub.SubmittedBy = &who
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	switch contentType := c.ContentType(); {
	case strings.HasPrefix(contentType, "multipart/"):
		form, err := c.MultipartForm()
		if err != nil {
			return sub, bodyError(err, "invalid multipart submission")
		}
		for key, values := range form.Value {
			sub.Values[key] = values
		}
		for key, headers := range form.File {
			if len(headers) == 0 || headers[0].Size == 0 {
				continue
			}
			file, err := readUpload(headers[0])
			if err != nil {
				return sub, bodyError(err, "could not read uploaded file")
			}
			sub.Files[key] = file
		}
	case contentType == "application/x-www-form-urlencoded":
		if err := c.Request.ParseForm(); err != nil {
			return sub, bodyError(err, "invalid form submission")
		}
		for key, values := range c.Request.PostForm {
			sub.Values[key] = values
		}
	default:
		var req dto.SubmitResponseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return sub, bodyError(err, "invalid submission payload")
		}
		if req.Responses == nil {
			return sub, appErrors.WithFields(appErrors.ErrValidation, "invalid submission payload", map[string]string{"responses": "responses is required"})
		}
		sub.Values = valuesFromJSON(req.Responses)
	}
	return sub, nil
}

func bodyError(err error, message string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) {
		return appErrors.Clone(errPayloadTooLarge, "")
	}
	return bindError(err, message)
}

func readUpload(header *multipart.FileHeader) (storage.File, error) {
	f, err := header.Open()
	if err != nil {
		return storage.File{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return storage.File{}, err
	}
	return storage.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        data,
	}, nil
}

// valuesFromJSON flattens decoded JSON answers into the raw text form the validator coerces.
func valuesFromJSON(in map[string]interface{}) map[string][]string {
	out := make(map[string][]string, len(in))
	for key, raw := range in {
		switch v := raw.(type) {
		case nil:
		case []interface{}:
			items := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := scalarText(item); ok {
					items = append(items, s)
				}
			}
			out[key] = items
		default:
			if s, ok := scalarText(v); ok {
				out[key] = []string{s}
			}
		}
	}
	return out
}

func scalarText(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	case json.Number:
		return t.String(), true
	}
	return "", false
}

func firstValue(values map[string][]string, id string) string {
	if list := values[id]; len(list) > 0 {
		return list[0]
	}
	return ""
}

func hasValue(values map[string][]string, id, option string) bool {
	for _, v := range values[id] {
		if v == option {
			return true
		}
	}
	return false
}

func isChecked(values map[string][]string, id string, fallback bool) bool {
	if values == nil {
		return fallback
	}
	switch strings.ToLower(firstValue(values, id)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
