package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/jobfair-forms-api/internal/models"
)

// FormResponseRepository appends and lists submitted answer sets.
type FormResponseRepository struct {
	db *sqlx.DB
}

// NewFormResponseRepository constructs the repository.
func NewFormResponseRepository(db *sqlx.DB) *FormResponseRepository {
	return &FormResponseRepository{db: db}
}

// Append inserts a response. The database assigns id and submitted_at.
func (r *FormResponseRepository) Append(ctx context.Context, resp *models.FormResponse) error {
	if resp.Responses == nil {
		resp.Responses = models.Answers{}
	}
	const query = `INSERT INTO form_responses (form_config_id, responses, submitted_by, user_agent)
VALUES ($1, $2, $3, $4) RETURNING id, submitted_at`
	row := r.db.QueryRowxContext(ctx, query, resp.FormConfigID, resp.Responses, resp.SubmittedBy, resp.UserAgent)
	if err := row.Scan(&resp.ID, &resp.SubmittedAt); err != nil {
		return fmt.Errorf("append form response: %w", err)
	}
	return nil
}

// ListByForm returns every response of a form, newest first.
func (r *FormResponseRepository) ListByForm(ctx context.Context, formID string) ([]models.FormResponse, error) {
	const query = `SELECT id, form_config_id, responses, submitted_by, submitted_at, user_agent
FROM form_responses WHERE form_config_id = $1 ORDER BY submitted_at DESC`
	var responses []models.FormResponse
	if err := r.db.SelectContext(ctx, &responses, query, formID); err != nil {
		return nil, fmt.Errorf("list form responses: %w", err)
	}
	return responses, nil
}
