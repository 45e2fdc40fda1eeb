// Package normalize turns validated sender parameters into the canonical
// record persisted by the message store.
package normalize

import (
	"strings"

	"petanco-intake-api/internal/messages"
	"petanco-intake-api/internal/models"
	"petanco-intake-api/internal/validation"
)

var labels = map[string]messages.Key{
	validation.FieldSubject:    messages.LabelSubject,
	validation.FieldName:       messages.LabelName,
	validation.FieldEmail:      messages.LabelEmail,
	validation.FieldTel:        messages.LabelTel,
	validation.FieldZip:        messages.LabelZip,
	validation.FieldPref:       messages.LabelPref,
	validation.FieldCity:       messages.LabelCity,
	validation.FieldAddress1:   messages.LabelAddress1,
	validation.FieldAddress2:   messages.LabelAddress2,
	validation.FieldCampaignID: messages.LabelCampaignID,
	validation.FieldBenefitID:  messages.LabelBenefitID,
	validation.FieldPlayerID:   messages.LabelPlayerID,
}

// Normalizer is safe for concurrent use.
type Normalizer struct {
	schema  validation.Schema
	catalog messages.Catalog
}

func NewNormalizer(schema validation.Schema, catalog messages.Catalog) *Normalizer {
	return &Normalizer{schema: schema, catalog: catalog}
}

// Normalize sanitizes every schema field independently and renders the body.
// params must already have passed validation.
func (n *Normalizer) Normalize(params map[string]string, meta models.Meta) models.CanonicalSubmission {
	names := n.schema.Fields()
	fields := make(models.Fields, 0, len(names))
	for _, name := range names {
		fields = append(fields, models.Field{Name: name, Value: sanitize(name, params[name])})
	}

	name := fields.Get(validation.FieldName)
	email := fields.Get(validation.FieldEmail)

	return models.CanonicalSubmission{
		Channel:     models.Channel,
		Subject:     fields.Get(validation.FieldSubject),
		FromDisplay: name + " <" + email + ">",
		FromName:    name,
		FromEmail:   email,
		Fields:      fields,
		Body:        n.Body(fields),
		Meta: models.Meta{
			RemoteIP:  validation.SanitizeText(meta.RemoteIP),
			UserAgent: validation.SanitizeText(meta.UserAgent),
		},
	}
}

// Body renders "label: value" lines in canonical field order.
func (n *Normalizer) Body(fields models.Fields) string {
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		lines = append(lines, n.catalog.Get(labels[f.Name])+": "+f.Value)
	}
	return strings.Join(lines, "\n")
}

func sanitize(name, value string) string {
	if name == validation.FieldEmail {
		return validation.SanitizeEmail(value)
	}
	return validation.SanitizeText(value)
}
