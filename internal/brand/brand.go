// Package brand builds the site identity and copy shared by every
// transactional email template.
package brand

import (
	"fmt"
	"strings"
)

// Identity is the process-wide site configuration the context is derived from.
type Identity struct {
	SiteName         string
	SiteURL          string
	PrimaryCity      string
	PrimaryStateAbbr string
	Phone            string
	Email            string
	OfficeAddress    string
	LogoURL          string
}

// Colors used by the email template.
const (
	ColorPrimary   = "#C9A227"
	ColorSecondary = "#0C1E2E"
	ColorDark      = "#0F0F0F"
)

// Context is the read-only set of variables the email template expects.
// JSON names match the template placeholders.
type Context struct {
	Subject         string `json:"subject"`
	Preheader       string `json:"preheader"`
	CompanyName     string `json:"company_name"`
	LogoURL         string `json:"logo_url,omitempty"`
	CityState       string `json:"city_state"`
	BrandAccent     string `json:"brand_accent"`
	CTADarkBg       string `json:"cta_dark_bg"`
	BgColor         string `json:"bg_color"`
	TextDark        string `json:"text_dark"`
	TextMuted       string `json:"text_muted"`
	TextBody        string `json:"text_body"`
	TextFaint       string `json:"text_faint"`
	BorderColor     string `json:"border_color"`
	CardHeaderBg    string `json:"card_header_bg"`
	CardHeaderText  string `json:"card_header_text"`
	HeaderTextColor string `json:"header_text_color"`
	FooterTextColor string `json:"footer_text_color"`
	HeroTitle       string `json:"hero_title"`
	HeroSubtitle    string `json:"hero_subtitle"`
	DetailsTitle    string `json:"details_title"`
	CallCTALabel    string `json:"call_cta_label"`
	CallPhone       string `json:"call_phone"`
	CallPhonePlain  string `json:"call_phone_plain"`
	SiteCTALabel    string `json:"site_cta_label"`
	SiteURL         string `json:"site_url"`
	AddressLine     string `json:"address_line"`
	FooterNote      string `json:"footer_note"`
	SupportEmail    string `json:"supportEmail"`
}

// Build derives the template context from the site identity. It takes no
// request input; callers merge lead data alongside the result.
func Build(id Identity) Context {
	return Context{
		Subject:         "We received your 1031 exchange inquiry",
		Preheader:       "Thanks for your inquiry, we have received your 1031 exchange request and will contact you within one business day.",
		CompanyName:     id.SiteName,
		LogoURL:         id.LogoURL,
		CityState:       cityState(id.PrimaryCity, id.PrimaryStateAbbr),
		BrandAccent:     ColorPrimary,
		CTADarkBg:       ColorDark,
		BgColor:         ColorDark,
		TextDark:        ColorDark,
		TextMuted:       "#666666",
		TextBody:        "#333333",
		TextFaint:       "#999999",
		BorderColor:     "#E5E5E5",
		CardHeaderBg:    "#F5F5F5",
		CardHeaderText:  ColorDark,
		HeaderTextColor: "#FFFFFF",
		FooterTextColor: "#FFFFFF",
		HeroTitle:       "Thanks for your inquiry. We received your 1031 exchange request.",
		HeroSubtitle:    "Our team will review your details and reach out within one business day to discuss your exchange strategy.",
		DetailsTitle:    "Your project details",
		CallCTALabel:    "Call Now",
		CallPhone:       FormatPhone(id.Phone),
		CallPhonePlain:  Digits(id.Phone),
		SiteCTALabel:    "Go To Site",
		SiteURL:         strings.TrimRight(id.SiteURL, "/"),
		AddressLine:     id.OfficeAddress,
		FooterNote:      "This confirmation is a transactional email related to your request.",
		SupportEmail:    id.Email,
	}
}

func cityState(city, state string) string {
	city, state = strings.TrimSpace(city), strings.TrimSpace(state)
	switch {
	case city == "":
		return state
	case state == "":
		return city
	default:
		return city + ", " + state
	}
}

// Vars returns the context as template variables.
func (c Context) Vars() map[string]any {
	vars := map[string]any{
		"subject":           c.Subject,
		"preheader":         c.Preheader,
		"company_name":      c.CompanyName,
		"city_state":        c.CityState,
		"brand_accent":      c.BrandAccent,
		"cta_dark_bg":       c.CTADarkBg,
		"bg_color":          c.BgColor,
		"text_dark":         c.TextDark,
		"text_muted":        c.TextMuted,
		"text_body":         c.TextBody,
		"text_faint":        c.TextFaint,
		"border_color":      c.BorderColor,
		"card_header_bg":    c.CardHeaderBg,
		"card_header_text":  c.CardHeaderText,
		"header_text_color": c.HeaderTextColor,
		"footer_text_color": c.FooterTextColor,
		"hero_title":        c.HeroTitle,
		"hero_subtitle":     c.HeroSubtitle,
		"details_title":     c.DetailsTitle,
		"call_cta_label":    c.CallCTALabel,
		"call_phone":        c.CallPhone,
		"call_phone_plain":  c.CallPhonePlain,
		"site_cta_label":    c.SiteCTALabel,
		"site_url":          c.SiteURL,
		"address_line":      c.AddressLine,
		"footer_note":       c.FooterNote,
		"supportEmail":      c.SupportEmail,
	}
	if c.LogoURL != "" {
		vars["logo_url"] = c.LogoURL
	}
	return vars
}

// Merge returns the brand variables with extra layered on top. Neither the
// context nor extra is modified.
func (c Context) Merge(extra map[string]any) map[string]any {
	vars := c.Vars()
	for k, v := range extra {
		vars[k] = v
	}
	return vars
}

// Digits strips everything but 0-9.
func Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatPhone renders a North American number as (415) 555-1234. Anything
// that is not 10 digits, or 11 with a leading 1, is returned trimmed.
func FormatPhone(raw string) string {
	d := Digits(raw)
	switch {
	case len(d) == 10:
		return fmt.Sprintf("(%s) %s-%s", d[:3], d[3:6], d[6:])
	case len(d) == 11 && d[0] == '1':
		return fmt.Sprintf("+1 (%s) %s-%s", d[1:4], d[4:7], d[7:])
	default:
		return strings.TrimSpace(raw)
	}
}
