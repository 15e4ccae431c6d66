package service

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/jobfair-forms-api/internal/models"
	appErrors "github.com/noah-isme/jobfair-forms-api/pkg/errors"
)

const (
	msgFormNotFound    = "form not found"
	msgInvalidFields   = "please correct the highlighted fields"
	msgPersistenceFail = "the data service could not complete the request"
)

// isFormID reports whether id can name a persisted configuration.
func isFormID(id string) bool {
	_, err := uuid.Parse(strings.TrimSpace(id))
	return err == nil
}

func formNotFound() error {
	return appErrors.Clone(appErrors.ErrNotFound, msgFormNotFound)
}

func fieldProblems(message string, problems map[string]string) error {
	return appErrors.WithFields(appErrors.ErrValidation, message, problems)
}

// storeError maps repository failures onto the service taxonomy.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return formNotFound()
	}
	return appErrors.Persistence(err, msgPersistenceFail)
}

// configError converts decoding and form-level failures.
func configError(err error) error {
	var schemaErr *models.SchemaError
	if errors.As(err, &schemaErr) {
		fields := map[string]string{}
		if schemaErr.Path != "" {
			fields[schemaErr.Path] = schemaErr.Reason
		}
		return appErrors.WithFields(appErrors.ErrSchema, schemaErr.Error(), fields)
	}
	var cfgErr *models.ConfigError
	if errors.As(err, &cfgErr) {
		return fieldProblems("form configuration is incomplete", cfgErr.Problems)
	}
	return err
}
