package leads

import (
	"regexp"
	"strings"
	"time"

	"github.com/wolfman30/exchange-leads/internal/brand"
)

// MinPhoneDigits is the shortest phone number accepted.
const MinPhoneDigits = 10

// DateLayout is the format of estimatedCloseDate (HTML date input).
const DateLayout = "2006-01-02"

// Field error messages shown next to the offending input.
const (
	MsgNameRequired     = "Name is required."
	MsgEmailInvalid     = "Valid email is required."
	MsgPhoneInvalid     = "Enter a 10 digit phone number."
	MsgServiceRequired  = "Service type is required."
	MsgDetailsRequired  = "Details are required."
	MsgTimelineRequired = "Timeline is required."
	MsgDateInvalid      = "Enter a valid date."
	MsgRequired         = "This field is required."
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// FieldErrors maps a field to its user-facing message. Empty means valid.
type FieldErrors map[Field]string

// NormalizePhone strips every non-digit character.
func NormalizePhone(raw string) string {
	return brand.Digits(raw)
}

// ValidEmail reports whether s has a local@domain.tld shape.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// Validate checks a submission against the required-field set of v. The
// bot-challenge token is not part of field validation.
func Validate(s Submission, v Variant) FieldErrors {
	errs := FieldErrors{}

	for _, f := range v.Required {
		if strings.TrimSpace(s.Get(f)) == "" {
			errs[f] = requiredMessage(f)
		}
	}

	if email := strings.TrimSpace(s.Email); email != "" || v.Requires(FieldEmail) {
		if !ValidEmail(email) {
			errs[FieldEmail] = MsgEmailInvalid
		}
	}

	if phone := s.Phone; strings.TrimSpace(phone) != "" || v.Requires(FieldPhone) {
		if len(NormalizePhone(phone)) < MinPhoneDigits {
			errs[FieldPhone] = MsgPhoneInvalid
		}
	}

	if date := strings.TrimSpace(s.EstimatedCloseDate); date != "" {
		if _, err := time.Parse(DateLayout, date); err != nil {
			errs[FieldEstimatedCloseDate] = MsgDateInvalid
		}
	}

	return errs
}

func requiredMessage(f Field) string {
	switch f {
	case FieldName:
		return MsgNameRequired
	case FieldEmail:
		return MsgEmailInvalid
	case FieldPhone:
		return MsgPhoneInvalid
	case FieldProjectType:
		return MsgServiceRequired
	case FieldDetails:
		return MsgDetailsRequired
	case FieldTimeline:
		return MsgTimelineRequired
	default:
		return MsgRequired
	}
}
