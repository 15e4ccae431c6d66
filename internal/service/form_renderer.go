package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/jobfair-forms-api/internal/dto"
	"github.com/noah-isme/jobfair-forms-api/internal/models"
	appErrors "github.com/noah-isme/jobfair-forms-api/pkg/errors"
	"github.com/noah-isme/jobfair-forms-api/pkg/storage"
)

const defaultTextareaRows = 3

// ResponseAppender stores accepted submissions.
type ResponseAppender interface {
	Append(ctx context.Context, resp *models.FormResponse) error
}

// FormRenderer turns configurations into controls and runs the submission pipeline.
type FormRenderer struct {
	validator *FormValidator
	uploader  storage.Uploader
	responses ResponseAppender
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewFormRenderer constructs the renderer. uploader may be nil when no form accepts files.
func NewFormRenderer(validator *FormValidator, uploader storage.Uploader, responses ResponseAppender, metrics *MetricsService, logger *zap.Logger) *FormRenderer {
	if validator == nil {
		validator = NewFormValidator(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FormRenderer{
		validator: validator,
		uploader:  uploader,
		responses: responses,
		metrics:   metrics,
		logger:    logger,
	}
}

// Render produces one control per field, ascending by order.
func (r *FormRenderer) Render(cfg *models.FormConfig) dto.RenderedForm {
	out := dto.RenderedForm{
		ID:               cfg.ID,
		Title:            cfg.Title,
		Description:      cfg.Description,
		SubmitButtonText: cfg.SubmitLabel(),
		Controls:         make([]dto.FormControl, 0, len(cfg.Fields)),
	}
	for _, field := range cfg.SortedFields() {
		control := renderControl(field)
		if control.InputType == "file" {
			out.Multipart = true
		}
		out.Controls = append(out.Controls, control)
	}
	return out
}

func renderControl(field models.Field) dto.FormControl {
	base := field.Base()
	control := dto.FormControl{
		FieldID:     base.ID,
		Type:        base.Type,
		InputType:   string(base.Type),
		Label:       base.Label,
		Placeholder: base.Placeholder,
		Required:    base.Required,
		Attributes:  map[string]string{},
	}
	switch f := field.(type) {
	case *models.TextField:
		setInt(control.Attributes, "minlength", f.MinLength)
		setInt(control.Attributes, "maxlength", f.MaxLength)
	case *models.NumberField:
		if f.Min != nil {
			control.Attributes["min"] = formatNumber(*f.Min)
		}
		if f.Max != nil {
			control.Attributes["max"] = formatNumber(*f.Max)
		}
	case *models.SelectField:
		control.Options = append([]models.SelectOption{}, f.Options...)
		control.Multiple = f.Multiple
	case *models.CheckboxField:
		control.Checked = f.DefaultValue != nil && *f.DefaultValue
	case *models.TextareaField:
		rows := defaultTextareaRows
		if f.Rows != nil && *f.Rows > 0 {
			rows = *f.Rows
		}
		control.Attributes["rows"] = strconv.Itoa(rows)
		setInt(control.Attributes, "maxlength", f.MaxLength)
	case *models.FileField:
		control.InputType = "file"
		accept := strings.Join(f.AcceptedTypes, ",")
		if accept == "" && f.Type == models.FieldTypeImage {
			accept = "image/*"
		}
		if accept != "" {
			control.Attributes["accept"] = accept
		}
	}
	if len(control.Attributes) == 0 {
		control.Attributes = nil
	}
	return control
}

func setInt(attrs map[string]string, key string, v *int) {
	if v != nil && *v > 0 {
		attrs[key] = strconv.Itoa(*v)
	}
}

// Submit validates, uploads files sequentially and appends the response.
// Assets uploaded before a later failure are deleted again when the uploader supports it.
func (r *FormRenderer) Submit(ctx context.Context, cfg *models.FormConfig, sub Submission) (*models.FormResponse, error) {
	answers, files, problems := r.validator.Validate(cfg, sub)
	if len(problems) > 0 {
		r.metrics.RecordSubmission(SubmissionInvalid)
		return nil, fieldProblems(msgInvalidFields, problems)
	}

	uploaded := make([]string, 0, len(files))
	for _, field := range cfg.SortedFields() {
		id := field.Base().ID
		file, ok := files[id]
		if !ok {
			continue
		}
		url, err := r.upload(ctx, string(field.Base().Type), file)
		if err != nil {
			r.cleanup(ctx, cfg.ID, uploaded)
			r.metrics.RecordSubmission(SubmissionUpload)
			r.logger.Warn("form upload failed", zap.String("form_id", cfg.ID), zap.String("field_id", id), zap.Error(err))
			return nil, appErrors.Upload(err, fmt.Sprintf("could not upload %s", file.Name))
		}
		uploaded = append(uploaded, url)
		answers[id] = models.URLAnswer(url)
	}

	resp := &models.FormResponse{
		FormConfigID: cfg.ID,
		Responses:    answers,
		SubmittedBy:  sub.SubmittedBy,
	}
	if ua := strings.TrimSpace(sub.UserAgent); ua != "" {
		resp.UserAgent = &ua
	}
	if err := r.responses.Append(ctx, resp); err != nil {
		r.cleanup(ctx, cfg.ID, uploaded)
		r.metrics.RecordSubmission(SubmissionStore)
		r.logger.Error("form response append failed", zap.String("form_id", cfg.ID), zap.Error(err))
		return nil, appErrors.Persistence(err, "could not store the response")
	}
	r.metrics.RecordSubmission(SubmissionAccepted)
	return resp, nil
}

func (r *FormRenderer) upload(ctx context.Context, fieldType string, file storage.File) (string, error) {
	if r.uploader == nil {
		return "", fmt.Errorf("file uploads are not configured")
	}
	start := time.Now()
	url, err := r.uploader.Upload(ctx, file)
	r.metrics.ObserveUpload(fieldType, err == nil, time.Since(start))
	return url, err
}

func (r *FormRenderer) cleanup(ctx context.Context, formID string, urls []string) {
	remover, ok := r.uploader.(storage.Remover)
	if !ok || len(urls) == 0 {
		return
	}
	// the request context may already be cancelled
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	for _, url := range urls {
		if err := remover.Delete(cleanupCtx, url); err != nil {
			r.logger.Warn("orphaned upload left behind", zap.String("form_id", formID), zap.String("url", url), zap.Error(err))
		}
	}
}
