package dto

import (
	"time"

	"github.com/noah-isme/jobfair-forms-api/internal/models"
)

// FieldInput is the partial field accepted by the builder. Attributes that do
// not belong to the chosen type are ignored.
type FieldInput struct {
	Type          string                `json:"type" validate:"required"`
	Label         string                `json:"label" validate:"max=200"`
	Placeholder   string                `json:"placeholder" validate:"max=200"`
	Required      bool                  `json:"required"`
	MinLength     *int                  `json:"minLength" validate:"omitempty,gte=0"`
	MaxLength     *int                  `json:"maxLength" validate:"omitempty,gte=1"`
	Min           *float64              `json:"min"`
	Max           *float64              `json:"max"`
	Options       []models.SelectOption `json:"options" validate:"omitempty,max=200"`
	Multiple      bool                  `json:"multiple"`
	DefaultValue  *bool                 `json:"defaultValue"`
	Rows          *int                  `json:"rows" validate:"omitempty,gte=1,lte=50"`
	AcceptedTypes []string              `json:"acceptedTypes" validate:"omitempty,dive,min=1"`
	MaxSize       *float64              `json:"maxSize" validate:"omitempty,gt=0"`
}

// CreateFormRequest creates a configuration in one call.
type CreateFormRequest struct {
	Title            string       `json:"title" validate:"required,max=200"`
	Description      string       `json:"description" validate:"max=2000"`
	SubmitButtonText string       `json:"submitButtonText" validate:"max=60"`
	Fields           []FieldInput `json:"fields" validate:"required,min=1,dive"`
}

// UpdateFormRequest edits form-level metadata.
type UpdateFormRequest struct {
	Title            string `json:"title" validate:"required,max=200"`
	Description      string `json:"description" validate:"max=2000"`
	SubmitButtonText string `json:"submitButtonText" validate:"max=60"`
	IsActive         *bool  `json:"isActive"`
}

// DuplicateFormRequest optionally overrides the title of the copy.
type DuplicateFormRequest struct {
	Title string `json:"title" validate:"max=200"`
}

// MoveFieldRequest moves a field one step.
type MoveFieldRequest struct {
	Direction string `json:"direction" validate:"required,oneof=up down"`
}

// ListFormsQuery holds pagination parameters for the owner listing.
type ListFormsQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// ExportQuery selects the export format.
type ExportQuery struct {
	Format string `form:"format"`
}

// FormSummary is one row of the owner listing.
type FormSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	FieldCount  int       `json:"fieldCount"`
	IsActive    bool      `json:"isActive"`
	IsPublic    bool      `json:"isPublic"`
	ShareURL    string    `json:"shareUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ShareResponse reports the sharing state after a toggle.
type ShareResponse struct {
	ID       string `json:"id"`
	IsPublic bool   `json:"isPublic"`
	ShareURL string `json:"shareUrl,omitempty"`
}

// FormControl is one input control produced from a field.
type FormControl struct {
	FieldID     string                `json:"fieldId"`
	Type        models.FieldType      `json:"type"`
	InputType   string                `json:"inputType"`
	Label       string                `json:"label"`
	Placeholder string                `json:"placeholder,omitempty"`
	Required    bool                  `json:"required"`
	Multiple    bool                  `json:"multiple,omitempty"`
	Options     []models.SelectOption `json:"options,omitempty"`
	Checked     bool                  `json:"checked,omitempty"`
	Attributes  map[string]string     `json:"attributes,omitempty"`
}

// RenderedForm is a configuration turned into ordered controls.
type RenderedForm struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	Description      string        `json:"description,omitempty"`
	SubmitButtonText string        `json:"submitButtonText"`
	Multipart        bool          `json:"multipart"`
	Controls         []FormControl `json:"controls"`
}

// SubmitResponseRequest is the JSON body of a public submission.
type SubmitResponseRequest struct {
	Responses map[string]interface{} `json:"responses" validate:"required"`
}

// SubmissionResult acknowledges a stored response.
type SubmissionResult struct {
	ResponseID  string    `json:"responseId"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// AnswerView is one answer interpreted against the current field list.
type AnswerView struct {
	FieldID string           `json:"fieldId"`
	Label   string           `json:"label"`
	Type    models.FieldType `json:"type"`
	Value   string           `json:"value"`
	IsURL   bool             `json:"isUrl,omitempty"`
}

// ResponseView is a stored response prepared for display.
type ResponseView struct {
	ID          string       `json:"id"`
	SubmittedAt time.Time    `json:"submittedAt"`
	SubmittedBy *string      `json:"submittedBy,omitempty"`
	UserAgent   *string      `json:"userAgent,omitempty"`
	Answers     []AnswerView `json:"answers"`
}

// FieldStats aggregates the answers of one field.
type FieldStats struct {
	FieldID  string           `json:"fieldId"`
	Label    string           `json:"label"`
	Type     models.FieldType `json:"type"`
	Answered int              `json:"answered"`
	Tallies  map[string]int   `json:"tallies,omitempty"`
}

// FormStats summarises the responses of a form.
type FormStats struct {
	FormID           string       `json:"formId"`
	TotalResponses   int          `json:"totalResponses"`
	LatestSubmission *time.Time   `json:"latestSubmission,omitempty"`
	Fields           []FieldStats `json:"fields"`
}
