package service

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/jobfair-forms-api/internal/models"
	"github.com/noah-isme/jobfair-forms-api/pkg/storage"
)

const (
	bytesPerMB = 1024 * 1024
	svgMIME    = "image/svg+xml"
)

// Submission is a raw answer set as received from a form post or JSON body.
type Submission struct {
	Values      map[string][]string
	Files       map[string]storage.File
	SubmittedBy *string
	UserAgent   string
}

// FormValidator coerces raw values and applies the per-type rules.
type FormValidator struct {
	validate *validator.Validate
}

// NewFormValidator constructs the validator. A nil validate falls back to validator.New().
func NewFormValidator(validate *validator.Validate) *FormValidator {
	if validate == nil {
		validate = validator.New()
	}
	return &FormValidator{validate: validate}
}

// Validate checks every field and reports all failures at once. It returns the
// coerced answers, the files still to upload and the field-id keyed problems.
func (v *FormValidator) Validate(cfg *models.FormConfig, sub Submission) (models.Answers, map[string]storage.File, map[string]string) {
	answers := models.Answers{}
	files := map[string]storage.File{}
	problems := map[string]string{}

	for _, field := range cfg.SortedFields() {
		id := field.Base().ID
		switch f := field.(type) {
		case *models.FileField:
			file, ok := sub.Files[id]
			if !ok || len(file.Data) == 0 {
				if f.Required {
					problems[id] = requiredMessage(f.Label)
				}
				continue
			}
			if file.Size <= 0 {
				file.Size = int64(len(file.Data))
			}
			if msg := checkFile(f, &file); msg != "" {
				problems[id] = msg
				continue
			}
			files[id] = file
		default:
			answer, present, msg := v.coerce(field, sub.Values[id])
			if msg != "" {
				problems[id] = msg
				continue
			}
			if present {
				answers[id] = answer
			}
		}
	}
	return answers, files, problems
}

// coerce converts raw text values for a non-file field.
func (v *FormValidator) coerce(field models.Field, raw []string) (models.AnswerValue, bool, string) {
	base := field.Base()
	first := ""
	if len(raw) > 0 {
		first = strings.TrimSpace(raw[0])
	}

	switch f := field.(type) {
	case *models.CheckboxField:
		checked, ok := parseCheckbox(first)
		if !ok {
			return models.AnswerValue{}, false, "must be checked or unchecked"
		}
		if f.Required && !checked {
			return models.AnswerValue{}, false, requiredMessage(f.Label)
		}
		return models.BoolAnswer(checked), true, ""

	case *models.SelectField:
		if f.Multiple {
			values := make([]string, 0, len(raw))
			seen := make(map[string]struct{}, len(raw))
			for _, item := range raw {
				item = strings.TrimSpace(item)
				if item == "" {
					continue
				}
				if _, dup := seen[item]; dup {
					continue
				}
				seen[item] = struct{}{}
				values = append(values, item)
			}
			if len(values) == 0 {
				if f.Required {
					return models.AnswerValue{}, false, requiredMessage(f.Label)
				}
				return models.AnswerValue{}, false, ""
			}
			for _, item := range values {
				if !f.HasOption(item) {
					return models.AnswerValue{}, false, "invalid option"
				}
			}
			return models.ListAnswer(values), true, ""
		}
		if first == "" {
			return blank(base)
		}
		if !f.HasOption(first) {
			return models.AnswerValue{}, false, "invalid option"
		}
		return models.StringAnswer(first), true, ""

	case *models.NumberField:
		if first == "" {
			return blank(base)
		}
		n, err := strconv.ParseFloat(first, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return models.AnswerValue{}, false, "must be a valid number"
		}
		if f.Min != nil && n < *f.Min {
			return models.AnswerValue{}, false, "minimum value: " + formatNumber(*f.Min)
		}
		if f.Max != nil && n > *f.Max {
			return models.AnswerValue{}, false, "maximum value: " + formatNumber(*f.Max)
		}
		return models.NumberAnswer(n), true, ""

	case *models.TextField:
		if first == "" {
			return blank(base)
		}
		if f.Type == models.FieldTypeEmail && !v.validEmail(first) {
			return models.AnswerValue{}, false, "invalid email address"
		}
		if msg := checkLength(first, f.MinLength, f.MaxLength); msg != "" {
			return models.AnswerValue{}, false, msg
		}
		return models.StringAnswer(first), true, ""

	case *models.TextareaField:
		if first == "" {
			return blank(base)
		}
		if msg := checkLength(first, nil, f.MaxLength); msg != "" {
			return models.AnswerValue{}, false, msg
		}
		return models.StringAnswer(first), true, ""
	}
	return models.AnswerValue{}, false, fmt.Sprintf("unsupported field type %q", base.Type)
}

// validEmail applies validator's email rule and also requires a dotted domain,
// so addresses such as a@localhost are rejected.
func (v *FormValidator) validEmail(value string) bool {
	if v.validate.Var(value, "email") != nil {
		return false
	}
	at := strings.LastIndex(value, "@")
	domain := value[at+1:]
	dot := strings.LastIndex(domain, ".")
	return dot > 0 && dot < len(domain)-1
}

func blank(base *models.FieldBase) (models.AnswerValue, bool, string) {
	if base.Required {
		return models.AnswerValue{}, false, requiredMessage(base.Label)
	}
	return models.AnswerValue{}, false, ""
}

func checkLength(value string, minLength, maxLength *int) string {
	n := utf8.RuneCountInString(value)
	if minLength != nil && *minLength > 0 && n < *minLength {
		return fmt.Sprintf("minimum %d characters", *minLength)
	}
	if maxLength != nil && *maxLength > 0 && n > *maxLength {
		return fmt.Sprintf("maximum %d characters", *maxLength)
	}
	return ""
}

// checkFile enforces size, accepted types and image content. It records the
// sniffed content type on the file.
func checkFile(f *models.FileField, file *storage.File) string {
	if f.MaxSize != nil && *f.MaxSize > 0 && float64(file.Size) > *f.MaxSize*bytesPerMB {
		return fmt.Sprintf("file must be smaller than %sMB", formatNumber(*f.MaxSize))
	}
	detected := mimetype.Detect(file.Data)
	if f.Type == models.FieldTypeImage && !strings.HasPrefix(detected.String(), "image/") {
		return "file must be an image"
	}
	if detected.Is(svgMIME) && !listsSVG(f.AcceptedTypes) {
		return "file type not accepted"
	}
	if len(f.AcceptedTypes) > 0 && !accepts(f.AcceptedTypes, file.Name, detected) {
		return "file type not accepted"
	}
	file.ContentType = detected.String()
	return ""
}

func accepts(accepted []string, name string, detected *mimetype.MIME) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, rule := range accepted {
		rule = strings.ToLower(strings.TrimSpace(rule))
		switch {
		case rule == "":
		case strings.HasPrefix(rule, "."):
			if ext == rule || detected.Extension() == rule {
				return true
			}
		case strings.HasSuffix(rule, "/*"):
			if strings.HasPrefix(detected.String(), strings.TrimSuffix(rule, "*")) {
				return true
			}
		default:
			if detected.Is(rule) {
				return true
			}
		}
	}
	return false
}

// listsSVG reports whether SVG is named explicitly. Wildcards such as image/* do not count.
func listsSVG(accepted []string) bool {
	for _, rule := range accepted {
		switch strings.ToLower(strings.TrimSpace(rule)) {
		case svgMIME, ".svg":
			return true
		}
	}
	return false
}

func parseCheckbox(raw string) (bool, bool) {
	switch strings.ToLower(raw) {
	case "", "false", "off", "0", "no":
		return false, true
	case "true", "on", "1", "yes":
		return true, true
	default:
		return false, false
	}
}

func requiredMessage(label string) string {
	return label + " is required"
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
