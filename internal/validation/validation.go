package validation

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode"

	"petanco-intake-api/internal/messages"
)

// Schema selects the field set of an integration generation.
type Schema string

const (
	// SchemaV1 is the original field set without player_id.
	SchemaV1 Schema = "v1"
	// SchemaV2 adds a required player_id.
	SchemaV2 Schema = "v2"
)

// Field names accepted from the sender.
const (
	FieldSubject    = "subject"
	FieldName       = "name"
	FieldEmail      = "email"
	FieldTel        = "tel"
	FieldZip        = "zip"
	FieldPref       = "pref"
	FieldCity       = "city"
	FieldAddress1   = "address1"
	FieldAddress2   = "address2"
	FieldCampaignID = "campaign_id"
	FieldBenefitID  = "benefit_id"
	FieldPlayerID   = "player_id"
)

var v1Fields = []string{
	FieldSubject, FieldName, FieldEmail, FieldTel, FieldZip, FieldPref, FieldCity,
	FieldAddress1, FieldAddress2, FieldCampaignID, FieldBenefitID,
}

var v1Required = []string{
	FieldSubject, FieldName, FieldEmail, FieldTel, FieldZip, FieldPref, FieldCity,
	FieldAddress1, FieldCampaignID, FieldBenefitID,
}

// ParseSchema maps a configuration value onto a Schema.
func ParseSchema(s string) (Schema, error) {
	switch Schema(strings.ToLower(strings.TrimSpace(s))) {
	case SchemaV1:
		return SchemaV1, nil
	case SchemaV2:
		return SchemaV2, nil
	}
	return "", fmt.Errorf("unknown submission schema %q", s)
}

// Fields returns every field of the schema in canonical order.
func (s Schema) Fields() []string {
	out := append([]string(nil), v1Fields...)
	if s == SchemaV2 {
		out = append(out, FieldPlayerID)
	}
	return out
}

// Required returns the fields that must be present and non-empty.
func (s Schema) Required() []string {
	out := append([]string(nil), v1Required...)
	if s == SchemaV2 {
		out = append(out, FieldPlayerID)
	}
	return out
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// Validator checks raw submission parameters against a schema.
type Validator struct {
	schema  Schema
	catalog messages.Catalog
}

func NewValidator(schema Schema, catalog messages.Catalog) *Validator {
	return &Validator{schema: schema, catalog: catalog}
}

// Schema returns the active schema.
func (v *Validator) Schema() Schema {
	return v.schema
}

// Validate returns every field error at once. An empty map means valid.
// A missing email reports the required error only; a present but malformed
// email reports the format error.
func (v *Validator) Validate(params map[string]string) map[string]string {
	errs := make(map[string]string)

	for _, field := range v.schema.Required() {
		if isEmpty(params[field]) {
			errs[field] = v.catalog.Get(messages.FieldRequired, field)
		}
	}

	if email := params[FieldEmail]; !isEmpty(email) && !IsEmail(strings.TrimSpace(email)) {
		errs[FieldEmail] = v.catalog.Get(messages.InvalidEmail)
	}

	return errs
}

// Errors converts a field error map into ValidationError values in schema
// order.
func (v *Validator) Errors(errs map[string]string) []*ValidationError {
	out := make([]*ValidationError, 0, len(errs))
	for _, field := range v.schema.Fields() {
		if msg, ok := errs[field]; ok {
			out = append(out, &ValidationError{Field: field, Message: msg})
		}
	}
	return out
}

func isEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

var (
	emailLocalRegex = regexp.MustCompile("^[a-zA-Z0-9!#$%&'*+/=?^_`{|}~.-]+$")
	emailLabelRegex = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)
	tagRegex        = regexp.MustCompile(`<[^>]*>`)
	spaceRegex      = regexp.MustCompile(`\s+`)
	emailCharRegex  = regexp.MustCompile("[^a-zA-Z0-9!#$%&'*+/=?^_`{|}~.@-]")
)

// IsEmail reports whether s has the shape local@domain.tld with a dotted
// domain made of alphanumeric/hyphen labels.
func IsEmail(s string) bool {
	if len(s) < 6 {
		return false
	}
	at := strings.LastIndex(s, "@")
	if at < 1 || strings.Count(s, "@") != 1 {
		return false
	}
	local, domain := s[:at], s[at+1:]
	if !emailLocalRegex.MatchString(local) {
		return false
	}
	if strings.Contains(domain, "..") || strings.Trim(domain, " \t\n\r\x00\x0B.") != domain {
		return false
	}
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if strings.Trim(label, " \t\n\r\x00\x0B-") != label {
			return false
		}
		if !emailLabelRegex.MatchString(label) {
			return false
		}
	}
	return true
}

// SanitizeString removes control characters except common whitespace and
// trims the result.
func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

// SanitizeText makes a single-line, tag-free, HTML-escaped value.
func SanitizeText(s string) string {
	s = SanitizeString(s)
	s = tagRegex.ReplaceAllString(s, "")
	s = spaceRegex.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return html.EscapeString(s)
}

// SanitizeEmail drops characters that cannot appear in an address,
// lower-cases the domain and HTML-escapes what is left.
func SanitizeEmail(s string) string {
	s = SanitizeString(s)
	s = emailCharRegex.ReplaceAllString(s, "")
	if at := strings.LastIndex(s, "@"); at >= 0 {
		s = s[:at] + "@" + strings.ToLower(s[at+1:])
	}
	return html.EscapeString(s)
}
