package leads

import (
	"fmt"
	"strings"

	"github.com/wolfman30/exchange-leads/internal/brand"
)

// Field names a form field. Values match the JSON keys of Submission.
type Field string

const (
	FieldName               Field = "name"
	FieldEmail              Field = "email"
	FieldPhone              Field = "phone"
	FieldCompany            Field = "company"
	FieldProjectType        Field = "projectType"
	FieldProperty           Field = "property"
	FieldEstimatedCloseDate Field = "estimatedCloseDate"
	FieldCity               Field = "city"
	FieldTimeline           Field = "timeline"
	FieldDetails            Field = "details"
)

// Fields lists every editable field in form order.
var Fields = []Field{
	FieldName,
	FieldCompany,
	FieldEmail,
	FieldPhone,
	FieldProjectType,
	FieldProperty,
	FieldEstimatedCloseDate,
	FieldCity,
	FieldTimeline,
	FieldDetails,
}

// Submission is a lead as posted by the contact form. It is never stored;
// it lives for the duration of one request.
type Submission struct {
	Name               string `json:"name"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	Company            string `json:"company,omitempty"`
	ProjectType        string `json:"projectType"`
	Service            string `json:"service,omitempty"`
	Property           string `json:"property,omitempty"`
	EstimatedCloseDate string `json:"estimatedCloseDate,omitempty"`
	City               string `json:"city,omitempty"`
	Timeline           string `json:"timeline,omitempty"`
	Details            string `json:"details,omitempty"`
	Message            string `json:"message,omitempty"`
	Variant            string `json:"variant,omitempty"`
	TurnstileToken     string `json:"turnstileToken"`
}

// Normalize trims every field, reduces phone to digits and folds the
// service/message aliases into projectType/details.
func (s Submission) Normalize() Submission {
	out := Submission{
		Name:               strings.TrimSpace(s.Name),
		Email:              strings.TrimSpace(s.Email),
		Phone:              NormalizePhone(s.Phone),
		Company:            strings.TrimSpace(s.Company),
		ProjectType:        strings.TrimSpace(s.ProjectType),
		Property:           strings.TrimSpace(s.Property),
		EstimatedCloseDate: strings.TrimSpace(s.EstimatedCloseDate),
		City:               strings.TrimSpace(s.City),
		Timeline:           strings.TrimSpace(s.Timeline),
		Details:            strings.TrimSpace(s.Details),
		Variant:            strings.TrimSpace(s.Variant),
		TurnstileToken:     strings.TrimSpace(s.TurnstileToken),
	}
	if out.ProjectType == "" {
		out.ProjectType = strings.TrimSpace(s.Service)
	}
	if out.Details == "" {
		out.Details = strings.TrimSpace(s.Message)
	}
	return out
}

// Body returns the free-text details, falling back to message.
func (s Submission) Body() string {
	if strings.TrimSpace(s.Details) != "" {
		return s.Details
	}
	return s.Message
}

// Get returns the value of a field.
func (s Submission) Get(f Field) string {
	switch f {
	case FieldName:
		return s.Name
	case FieldEmail:
		return s.Email
	case FieldPhone:
		return s.Phone
	case FieldCompany:
		return s.Company
	case FieldProjectType:
		return s.ProjectType
	case FieldProperty:
		return s.Property
	case FieldEstimatedCloseDate:
		return s.EstimatedCloseDate
	case FieldCity:
		return s.City
	case FieldTimeline:
		return s.Timeline
	case FieldDetails:
		return s.Body()
	}
	return ""
}

// Set assigns a field verbatim. Normalization is the caller's concern.
func (s *Submission) Set(f Field, value string) error {
	switch f {
	case FieldName:
		s.Name = value
	case FieldEmail:
		s.Email = value
	case FieldPhone:
		s.Phone = value
	case FieldCompany:
		s.Company = value
	case FieldProjectType:
		s.ProjectType = value
	case FieldProperty:
		s.Property = value
	case FieldEstimatedCloseDate:
		s.EstimatedCloseDate = value
	case FieldCity:
		s.City = value
	case FieldTimeline:
		s.Timeline = value
	case FieldDetails:
		s.Details = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, string(f))
	}
	return nil
}

// TemplateLead is the "lead" object handed to the email template.
type TemplateLead struct {
	Name               string `json:"name"`
	Email              string `json:"email"`
	Phone              string `json:"phone,omitempty"`
	PhonePlain         string `json:"phone_plain,omitempty"`
	ProjectType        string `json:"projectType"`
	Property           string `json:"property,omitempty"`
	EstimatedCloseDate string `json:"estimatedCloseDate,omitempty"`
	City               string `json:"city,omitempty"`
	Company            string `json:"company,omitempty"`
	Timeline           string `json:"timeline,omitempty"`
	Message            string `json:"message,omitempty"`
}

// ForTemplate converts the submission into the template's lead shape. The
// bot-challenge token is deliberately absent.
func (s Submission) ForTemplate() TemplateLead {
	plain := NormalizePhone(s.Phone)
	return TemplateLead{
		Name:               s.Name,
		Email:              s.Email,
		Phone:              brand.FormatPhone(plain),
		PhonePlain:         plain,
		ProjectType:        s.ProjectType,
		Property:           s.Property,
		EstimatedCloseDate: s.EstimatedCloseDate,
		City:               s.City,
		Company:            s.Company,
		Timeline:           s.Timeline,
		Message:            s.Body(),
	}
}

// Vars renders the template lead as a plain map so providers that serialize
// template data themselves see the same keys as the JSON tags.
func (l TemplateLead) Vars() map[string]any {
	vars := map[string]any{
		"name":        l.Name,
		"email":       l.Email,
		"projectType": l.ProjectType,
	}
	optional := map[string]string{
		"phone":              l.Phone,
		"phone_plain":        l.PhonePlain,
		"property":           l.Property,
		"estimatedCloseDate": l.EstimatedCloseDate,
		"city":               l.City,
		"company":            l.Company,
		"timeline":           l.Timeline,
		"message":            l.Message,
	}
	for k, v := range optional {
		if v != "" {
			vars[k] = v
		}
	}
	return vars
}
