package leads

import (
	"errors"
	"strings"
	"testing"
)

func validSubmission() Submission {
	return Submission{
		Name:           "Jane Doe",
		Email:          "jane@example.com",
		Phone:          "4155551234",
		ProjectType:    "Forward Exchange",
		Details:        "Selling a duplex",
		TurnstileToken: "tok-123",
	}
}

func TestValidate_Valid(t *testing.T) {
	if errs := Validate(validSubmission(), VariantContact); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	cases := []struct {
		field Field
		clear func(*Submission)
		want  string
	}{
		{FieldName, func(s *Submission) { s.Name = "  " }, MsgNameRequired},
		{FieldEmail, func(s *Submission) { s.Email = "" }, MsgEmailInvalid},
		{FieldPhone, func(s *Submission) { s.Phone = "" }, MsgPhoneInvalid},
		{FieldProjectType, func(s *Submission) { s.ProjectType = "" }, MsgServiceRequired},
		{FieldDetails, func(s *Submission) { s.Details = "" }, MsgDetailsRequired},
	}
	for _, tc := range cases {
		t.Run(string(tc.field), func(t *testing.T) {
			sub := validSubmission()
			tc.clear(&sub)
			errs := Validate(sub, VariantContact)
			if got := errs[tc.field]; got != tc.want {
				t.Fatalf("expected %q for %s, got %q (all: %v)", tc.want, tc.field, got, errs)
			}
		})
	}
}

func TestValidate_VariantRequirements(t *testing.T) {
	sub := validSubmission()
	sub.Details = ""

	if errs := Validate(sub, VariantQuick); len(errs) != 0 {
		t.Fatalf("quick form should not need details, got %v", errs)
	}
	errs := Validate(sub, VariantConsultation)
	if errs[FieldTimeline] != MsgTimelineRequired {
		t.Fatalf("consultation form needs a timeline, got %v", errs)
	}
	if _, ok := errs[FieldDetails]; ok {
		t.Fatal("consultation form should not need details")
	}

	sub.Timeline = "45 days"
	if errs := Validate(sub, VariantConsultation); len(errs) != 0 {
		t.Fatalf("expected valid consultation, got %v", errs)
	}
}

func TestValidate_Email(t *testing.T) {
	bad := []string{"jane", "jane@", "jane@example", "@example.com", "jane doe@example.com", "jane@exa mple.com"}
	for _, email := range bad {
		sub := validSubmission()
		sub.Email = email
		if got := Validate(sub, VariantContact)[FieldEmail]; got != MsgEmailInvalid {
			t.Errorf("email %q: expected %q, got %q", email, MsgEmailInvalid, got)
		}
	}
	good := []string{"jane@example.com", "j.doe+leads@mail.example.co"}
	for _, email := range good {
		if !ValidEmail(email) {
			t.Errorf("email %q should be valid", email)
		}
	}
}

func TestValidate_Phone(t *testing.T) {
	cases := []struct {
		in    string
		valid bool
	}{
		{"(415) 555-1234", true},
		{"415.555.1234", true},
		{"+1 415 555 1234", true},
		{"555-1234", false},
		{"phone", false},
	}
	for _, tc := range cases {
		sub := validSubmission()
		sub.Phone = tc.in
		_, bad := Validate(sub, VariantContact)[FieldPhone]
		if bad == tc.valid {
			t.Errorf("phone %q: valid=%v, got errors=%v", tc.in, tc.valid, bad)
		}
	}
	if got := NormalizePhone("(415) 555-1234"); got != "4155551234" {
		t.Fatalf("expected digits only, got %q", got)
	}
}

func TestValidate_OptionalDate(t *testing.T) {
	sub := validSubmission()
	sub.EstimatedCloseDate = "2026-03-01"
	if errs := Validate(sub, VariantContact); len(errs) != 0 {
		t.Fatalf("expected valid date, got %v", errs)
	}
	sub.EstimatedCloseDate = "03/01/2026"
	if got := Validate(sub, VariantContact)[FieldEstimatedCloseDate]; got != MsgDateInvalid {
		t.Fatalf("expected %q, got %q", MsgDateInvalid, got)
	}
}

func TestSubmission_NormalizeFoldsAliases(t *testing.T) {
	sub := Submission{
		Name:    "  Jane  ",
		Phone:   "(415) 555-1234",
		Service: "Reverse Exchange",
		Message: "Selling a duplex",
	}.Normalize()

	if sub.Name != "Jane" || sub.Phone != "4155551234" {
		t.Fatalf("unexpected normalization: %+v", sub)
	}
	if sub.ProjectType != "Reverse Exchange" || sub.Details != "Selling a duplex" {
		t.Fatalf("aliases not folded: %+v", sub)
	}
	if sub.Service != "" || sub.Message != "" {
		t.Fatalf("aliases should be cleared after folding: %+v", sub)
	}
}

func TestSubmission_SetUnknownField(t *testing.T) {
	var sub Submission
	err := sub.Set(Field("favoriteColor"), "gold")
	if !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if err := sub.Set(FieldCity, "Oakland"); err != nil || sub.City != "Oakland" {
		t.Fatalf("set city: %v %+v", err, sub)
	}
}

func TestSubmission_ForTemplateOmitsToken(t *testing.T) {
	lead := validSubmission().ForTemplate()
	if lead.Phone != "(415) 555-1234" || lead.PhonePlain != "4155551234" {
		t.Fatalf("unexpected phone formatting: %+v", lead)
	}
	if lead.Message != "Selling a duplex" {
		t.Fatalf("expected details as message, got %q", lead.Message)
	}
	for k, v := range lead.Vars() {
		if s, ok := v.(string); ok && strings.Contains(s, "tok-123") {
			t.Fatalf("token leaked into template var %s", k)
		}
	}
}

func TestLookupVariant(t *testing.T) {
	if LookupVariant("Consultation").Name != "consultation" {
		t.Fatal("lookup should ignore case")
	}
	if LookupVariant("").Name != VariantContact.Name || LookupVariant("nope").Name != VariantContact.Name {
		t.Fatal("unknown variants fall back to contact")
	}
	if !KnownService("forward exchange") || KnownService("Botox") {
		t.Fatal("unexpected catalog match")
	}
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Fields: FieldErrors{FieldPhone: MsgPhoneInvalid, FieldEmail: MsgEmailInvalid}}
	if got := err.Error(); got != "leads: invalid submission: email, phone" {
		t.Fatalf("unexpected message %q", got)
	}
}
