package leads

import "strings"

// Variant is a named required-field set. Every page that hosts the form
// picks one instead of carrying its own copy of the form logic.
type Variant struct {
	Name     string  `json:"name"`
	Required []Field `json:"required"`
}

// Requires reports whether f must be non-empty in this variant.
func (v Variant) Requires(f Field) bool {
	for _, r := range v.Required {
		if r == f {
			return true
		}
	}
	return false
}

var (
	// VariantContact is the full contact page form.
	VariantContact = Variant{
		Name:     "contact",
		Required: []Field{FieldName, FieldEmail, FieldPhone, FieldProjectType, FieldDetails},
	}
	// VariantConsultation is the consultation request form; it asks for a
	// timeline instead of free text.
	VariantConsultation = Variant{
		Name:     "consultation",
		Required: []Field{FieldName, FieldEmail, FieldPhone, FieldProjectType, FieldTimeline},
	}
	// VariantQuick is the short inline form on service and location pages.
	VariantQuick = Variant{
		Name:     "quick",
		Required: []Field{FieldName, FieldEmail, FieldPhone, FieldProjectType},
	}
)

// Variants returns every known variant, default first.
func Variants() []Variant {
	return []Variant{VariantContact, VariantConsultation, VariantQuick}
}

// LookupVariant resolves a variant by name. Unknown or empty names resolve
// to VariantContact.
func LookupVariant(name string) Variant {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, v := range Variants() {
		if v.Name == name {
			return v
		}
	}
	return VariantContact
}

// Services are the offerings shown in the service select box. Free text is
// still accepted as projectType.
var Services = []string{
	"Property Identification",
	"Forward Exchange",
	"Reverse Exchange",
	"Improvement Exchange",
	"Timeline Management",
	"Replacement Property Analysis",
	"DST Investments",
	"Qualified Intermediary Coordination",
}

// Timelines are the suggested answers for the timeline field.
var Timelines = []string{
	"Immediate",
	"45 days",
	"180 days",
	"Planning phase",
}

// KnownService reports whether name matches a catalog entry, ignoring case.
func KnownService(name string) bool {
	for _, s := range Services {
		if strings.EqualFold(s, strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}
