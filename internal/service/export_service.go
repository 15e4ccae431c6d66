package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/jobfair-forms-api/internal/models"
	"github.com/noah-isme/jobfair-forms-api/pkg/export"
)

const submittedAtHeader = "Submitted At"

// Export formats for stored responses.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// ExportResult is a rendered export ready to download.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Export renders every response of the form as CSV or PDF.
func (s *FormResponseService) Export(ctx context.Context, formID, owner, format string) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, fieldProblems("unsupported export format", map[string]string{"format": "use csv or pdf"})
	}
	cfg, responses, err := s.load(ctx, formID, owner)
	if err != nil {
		return nil, err
	}
	dataset := buildResponseDataset(cfg, responses)

	var payload []byte
	contentType := "text/csv; charset=utf-8"
	switch format {
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, cfg.Title)
		contentType = "application/pdf"
	default:
		payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s export: %w", format, err)
	}
	return &ExportResult{
		Filename:    buildExportFilename(cfg.Title, format, time.Now()),
		ContentType: contentType,
		Data:        payload,
	}, nil
}

func buildResponseDataset(cfg *models.FormConfig, responses []models.FormResponse) export.Dataset {
	fields := cfg.SortedFields()
	labels := uniqueHeaders(fields)
	dataset := export.Dataset{
		Headers: append([]string{submittedAtHeader}, labels...),
		Rows:    make([]map[string]string, 0, len(responses)),
	}
	for _, resp := range responses {
		row := map[string]string{submittedAtHeader: resp.SubmittedAt.UTC().Format(time.RFC3339)}
		for i, field := range fields {
			if value, ok := resp.Responses[field.Base().ID]; ok {
				row[labels[i]], _ = interpretAnswer(field, value)
			}
		}
		dataset.Rows = append(dataset.Rows, row)
	}
	return dataset
}

func buildExportFilename(title, format string, now time.Time) string {
	return fmt.Sprintf("%s_responses_%s.%s", sanitizeFilename(title), now.UTC().Format("20060102_150405"), format)
}

func sanitizeFilename(raw string) string {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return "form"
	}
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('_')
		}
	}
	result := strings.Trim(b.String(), "_")
	if result == "" {
		return "form"
	}
	if len(result) > 60 {
		return result[:60]
	}
	return result
}
