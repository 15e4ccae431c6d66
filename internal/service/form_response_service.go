package service

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/jobfair-forms-api/internal/dto"
	"github.com/noah-isme/jobfair-forms-api/internal/models"
	"github.com/noah-isme/jobfair-forms-api/pkg/export"
)

type ownedFormLoader interface {
	GetForOwner(ctx context.Context, id, owner string) (*models.FormConfig, error)
}

type responseLister interface {
	ListByForm(ctx context.Context, formID string) ([]models.FormResponse, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// FormResponseService is the owner-facing read path over stored responses.
type FormResponseService struct {
	forms     ownedFormLoader
	responses responseLister
	csv       csvRenderer
	pdf       pdfRenderer
	logger    *zap.Logger
}

// NewFormResponseService constructs the service. Nil renderers fall back to pkg/export.
func NewFormResponseService(forms ownedFormLoader, responses responseLister, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *FormResponseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &FormResponseService{forms: forms, responses: responses, csv: csv, pdf: pdf, logger: logger}
}

// load returns the owned configuration and its responses, newest first.
func (s *FormResponseService) load(ctx context.Context, formID, owner string) (*models.FormConfig, []models.FormResponse, error) {
	if !isFormID(formID) {
		return nil, nil, formNotFound()
	}
	cfg, err := s.forms.GetForOwner(ctx, formID, owner)
	if err != nil {
		return nil, nil, storeError(err)
	}
	responses, err := s.responses.ListByForm(ctx, cfg.ID)
	if err != nil {
		return nil, nil, storeError(err)
	}
	return cfg, responses, nil
}

// List returns the responses joined against the current field list.
func (s *FormResponseService) List(ctx context.Context, formID, owner string) ([]dto.ResponseView, error) {
	cfg, responses, err := s.load(ctx, formID, owner)
	if err != nil {
		return nil, err
	}
	fields := cfg.SortedFields()
	views := make([]dto.ResponseView, 0, len(responses))
	for _, resp := range responses {
		views = append(views, viewResponse(fields, resp))
	}
	return views, nil
}

// viewResponse interprets one answer map. Answers for removed fields are dropped.
func viewResponse(fields []models.Field, resp models.FormResponse) dto.ResponseView {
	view := dto.ResponseView{
		ID:          resp.ID,
		SubmittedAt: resp.SubmittedAt,
		SubmittedBy: resp.SubmittedBy,
		UserAgent:   resp.UserAgent,
		Answers:     make([]dto.AnswerView, 0, len(fields)),
	}
	for _, field := range fields {
		base := field.Base()
		value, ok := resp.Responses[base.ID]
		if !ok {
			continue
		}
		display, isURL := interpretAnswer(field, value)
		view.Answers = append(view.Answers, dto.AnswerView{
			FieldID: base.ID,
			Label:   base.Label,
			Type:    base.Type,
			Value:   display,
			IsURL:   isURL,
		})
	}
	return view
}

func interpretAnswer(field models.Field, value models.AnswerValue) (string, bool) {
	switch f := field.(type) {
	case *models.FileField:
		return value.Display(), value.Kind == models.AnswerString || value.Kind == models.AnswerURL
	case *models.SelectField:
		labels := make([]string, 0, len(value.List)+1)
		items := value.List
		if value.Kind != models.AnswerList {
			items = []string{value.Display()}
		}
		for _, item := range items {
			labels = append(labels, optionLabel(f, item))
		}
		return models.ListAnswer(labels).Display(), false
	}
	return value.Display(), false
}

func optionLabel(f *models.SelectField, value string) string {
	for _, opt := range f.Options {
		if opt.Value == value {
			return opt.Label
		}
	}
	return value
}

// Stats summarises the responses of the form.
func (s *FormResponseService) Stats(ctx context.Context, formID, owner string) (*dto.FormStats, error) {
	cfg, responses, err := s.load(ctx, formID, owner)
	if err != nil {
		return nil, err
	}
	stats := &dto.FormStats{
		FormID:         cfg.ID,
		TotalResponses: len(responses),
		Fields:         make([]dto.FieldStats, 0, len(cfg.Fields)),
	}
	for _, resp := range responses {
		at := resp.SubmittedAt
		if stats.LatestSubmission == nil || at.After(*stats.LatestSubmission) {
			stats.LatestSubmission = &at
		}
	}
	for _, field := range cfg.SortedFields() {
		stats.Fields = append(stats.Fields, fieldStats(field, responses))
	}
	return stats, nil
}

func fieldStats(field models.Field, responses []models.FormResponse) dto.FieldStats {
	base := field.Base()
	out := dto.FieldStats{FieldID: base.ID, Label: base.Label, Type: base.Type}
	tally := base.Type == models.FieldTypeSelect || base.Type == models.FieldTypeCheckbox
	if tally {
		out.Tallies = map[string]int{}
		if sel, ok := field.(*models.SelectField); ok {
			for _, opt := range sel.Options {
				out.Tallies[opt.Value] = 0
			}
		}
	}
	for _, resp := range responses {
		value, ok := resp.Responses[base.ID]
		if !ok || value.IsEmpty() {
			continue
		}
		out.Answered++
		if !tally {
			continue
		}
		switch value.Kind {
		case models.AnswerList:
			for _, item := range value.List {
				out.Tallies[item]++
			}
		case models.AnswerBool:
			if value.Bool {
				out.Tallies["checked"]++
			} else {
				out.Tallies["unchecked"]++
			}
		default:
			out.Tallies[value.Display()]++
		}
	}
	return out
}

// uniqueHeaders returns export column names, suffixing repeated labels.
func uniqueHeaders(fields []models.Field) []string {
	headers := make([]string, 0, len(fields))
	used := map[string]int{submittedAtHeader: 1}
	for _, field := range fields {
		label := field.Base().Label
		used[label]++
		if n := used[label]; n > 1 {
			label = label + " (" + strconv.Itoa(n) + ")"
			used[label]++
		}
		headers = append(headers, label)
	}
	return headers
}
