package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/jobfair-forms-api/internal/models"
)

const formConfigColumns = `id, title, COALESCE(description, '') AS description, fields, submit_button_text,
is_active, is_public, created_by, created_at, updated_at`

// FormConfigRepository persists form configurations.
type FormConfigRepository struct {
	db *sqlx.DB
}

// NewFormConfigRepository constructs the repository.
func NewFormConfigRepository(db *sqlx.DB) *FormConfigRepository {
	return &FormConfigRepository{db: db}
}

// Create inserts the configuration and stores the id assigned by the database.
func (r *FormConfigRepository) Create(ctx context.Context, cfg *models.FormConfig) error {
	now := time.Now().UTC()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	if cfg.UpdatedAt.IsZero() {
		cfg.UpdatedAt = cfg.CreatedAt
	}
	if cfg.Fields == nil {
		cfg.Fields = models.FieldList{}
	}
	const query = `INSERT INTO form_configs (title, description, fields, submit_button_text, is_active, is_public, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	var id string
	if err := r.db.QueryRowxContext(ctx, query,
		cfg.Title, cfg.Description, cfg.Fields, cfg.SubmitButtonText,
		cfg.IsActive, cfg.IsPublic, cfg.CreatedBy, cfg.CreatedAt, cfg.UpdatedAt,
	).Scan(&id); err != nil {
		return fmt.Errorf("create form config: %w", err)
	}
	cfg.ID = id
	return nil
}

// Update overwrites metadata and fields of a configuration owned by cfg.CreatedBy.
// Sharing state is left untouched. Returns sql.ErrNoRows when nothing matched.
func (r *FormConfigRepository) Update(ctx context.Context, cfg *models.FormConfig) error {
	if cfg.UpdatedAt.IsZero() {
		cfg.UpdatedAt = time.Now().UTC()
	}
	const query = `UPDATE form_configs SET title = $1, description = $2, fields = $3, submit_button_text = $4,
is_active = $5, updated_at = $6 WHERE id = $7 AND created_by = $8`
	res, err := r.db.ExecContext(ctx, query,
		cfg.Title, cfg.Description, cfg.Fields, cfg.SubmitButtonText,
		cfg.IsActive, cfg.UpdatedAt, cfg.ID, cfg.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("update form config: %w", err)
	}
	return expectAffected(res, "update form config")
}

// GetByID returns a configuration regardless of owner or sharing state.
func (r *FormConfigRepository) GetByID(ctx context.Context, id string) (*models.FormConfig, error) {
	query := `SELECT ` + formConfigColumns + ` FROM form_configs WHERE id = $1`
	var cfg models.FormConfig
	if err := r.db.GetContext(ctx, &cfg, query, id); err != nil {
		return nil, fmt.Errorf("get form config: %w", err)
	}
	return &cfg, nil
}

// GetForOwner returns a configuration only when owned by owner.
func (r *FormConfigRepository) GetForOwner(ctx context.Context, id, owner string) (*models.FormConfig, error) {
	query := `SELECT ` + formConfigColumns + ` FROM form_configs WHERE id = $1 AND created_by = $2`
	var cfg models.FormConfig
	if err := r.db.GetContext(ctx, &cfg, query, id, owner); err != nil {
		return nil, fmt.Errorf("get owner form config: %w", err)
	}
	return &cfg, nil
}

// GetPublic returns a configuration only when it is both public and active.
func (r *FormConfigRepository) GetPublic(ctx context.Context, id string) (*models.FormConfig, error) {
	query := `SELECT ` + formConfigColumns + ` FROM form_configs WHERE id = $1 AND is_public AND is_active`
	var cfg models.FormConfig
	if err := r.db.GetContext(ctx, &cfg, query, id); err != nil {
		return nil, fmt.Errorf("get public form config: %w", err)
	}
	return &cfg, nil
}

// ListByOwner returns one page of the owner's configurations, most recently updated first.
func (r *FormConfigRepository) ListByOwner(ctx context.Context, owner string, limit, offset int) ([]models.FormConfig, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM form_configs WHERE created_by = $1`, owner); err != nil {
		return nil, 0, fmt.Errorf("count form configs: %w", err)
	}
	query := `SELECT ` + formConfigColumns + ` FROM form_configs WHERE created_by = $1
ORDER BY updated_at DESC LIMIT $2 OFFSET $3`
	var configs []models.FormConfig
	if err := r.db.SelectContext(ctx, &configs, query, owner, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list form configs: %w", err)
	}
	return configs, total, nil
}

// SetPublic flips the sharing flag of a configuration owned by owner.
func (r *FormConfigRepository) SetPublic(ctx context.Context, id, owner string, public bool, at time.Time) error {
	const query = `UPDATE form_configs SET is_public = $1, updated_at = $2 WHERE id = $3 AND created_by = $4`
	res, err := r.db.ExecContext(ctx, query, public, at, id, owner)
	if err != nil {
		return fmt.Errorf("set form sharing: %w", err)
	}
	return expectAffected(res, "set form sharing")
}

// Delete removes the configuration and its responses in one transaction.
func (r *FormConfigRepository) Delete(ctx context.Context, id, owner string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete form tx: %w", err)
	}
	const deleteResponses = `DELETE FROM form_responses WHERE form_config_id IN
(SELECT id FROM form_configs WHERE id = $1 AND created_by = $2)`
	if _, err := tx.ExecContext(ctx, deleteResponses, id, owner); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete form responses: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM form_configs WHERE id = $1 AND created_by = $2`, id, owner)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete form config: %w", err)
	}
	if err := expectAffected(res, "delete form config"); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete form tx: %w", err)
	}
	return nil
}

func expectAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, sql.ErrNoRows)
	}
	return nil
}
