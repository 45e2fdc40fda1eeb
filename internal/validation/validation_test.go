package validation

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petanco-intake-api/internal/messages"
)

func validParams() map[string]string {
	return map[string]string{
		"subject":     "Amazonギフト券",
		"name":        "山田 太郎",
		"email":       "taro@example.com",
		"tel":         "0312345678",
		"zip":         "1000001",
		"pref":        "東京都",
		"city":        "千代田区",
		"address1":    "千代田1-1",
		"address2":    "",
		"campaign_id": "42",
		"benefit_id":  "7",
		"player_id":   "p-100",
	}
}

func TestValidate_AllPresent(t *testing.T) {
	for _, schema := range []Schema{SchemaV1, SchemaV2} {
		v := NewValidator(schema, messages.For("ja"))
		assert.Empty(t, v.Validate(validParams()), "schema %s", schema)
	}
}

func TestValidate_MissingFieldsReportedTogether(t *testing.T) {
	tests := []struct {
		name    string
		schema  Schema
		missing []string
	}{
		{"single", SchemaV1, []string{"tel"}},
		{"several", SchemaV1, []string{"subject", "zip", "benefit_id"}},
		{"email empty", SchemaV1, []string{"email"}},
		{"player id v2", SchemaV2, []string{"player_id"}},
		{"every field v2", SchemaV2, SchemaV2.Required()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validParams()
			for _, f := range tt.missing {
				delete(params, f)
			}

			errs := NewValidator(tt.schema, messages.For("en")).Validate(params)

			keys := make([]string, 0, len(errs))
			for k := range errs {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			want := append([]string(nil), tt.missing...)
			sort.Strings(want)
			assert.Equal(t, want, keys)
		})
	}
}

func TestValidate_BlankCountsAsMissing(t *testing.T) {
	params := validParams()
	params["city"] = "   "

	errs := NewValidator(SchemaV1, messages.For("ja")).Validate(params)
	require.Contains(t, errs, "city")
	assert.Equal(t, "cityは必須です。", errs["city"])
}

func TestValidate_PlayerIDIgnoredInV1(t *testing.T) {
	params := validParams()
	delete(params, "player_id")

	assert.Empty(t, NewValidator(SchemaV1, messages.For("ja")).Validate(params))
}

func TestValidate_InvalidEmail(t *testing.T) {
	params := validParams()
	params["email"] = "not-an-email"

	errs := NewValidator(SchemaV2, messages.For("en")).Validate(params)
	assert.Equal(t, map[string]string{"email": "Please enter a valid email address."}, errs)
}

func TestValidate_InvalidEmailAlongsideMissing(t *testing.T) {
	params := validParams()
	params["email"] = "foo@bar"
	delete(params, "name")

	errs := NewValidator(SchemaV1, messages.For("en")).Validate(params)
	assert.Len(t, errs, 2)
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "name")
}

func TestIsEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"taro@example.com", true},
		{"first.last+tag@sub.example.co.jp", true},
		{"a@b.co", true},
		{"not-an-email", false},
		{"a@b.c", false},
		{"@example.com", false},
		{"taro@localhost", false},
		{"taro@exa_mple.com", false},
		{"taro@example..com", false},
		{"taro@.example.com", false},
		{"taro@-example.com", false},
		{"ta ro@example.com", false},
		{"taro@@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEmail(tt.in))
		})
	}
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trims", "  hello  ", "hello"},
		{"collapses whitespace", "a \n\t b", "a b"},
		{"strips tags", "<b>bold</b> text", "bold text"},
		{"escapes html", `Tom & "Jerry"`, "Tom &amp; &#34;Jerry&#34;"},
		{"drops control chars", "ab\x00c\x07", "abc"},
		{"dangling bracket escaped", "1 < 2", "1 &lt; 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeText(tt.in))
		})
	}
}

func TestSanitizeEmail(t *testing.T) {
	assert.Equal(t, "Taro@example.com", SanitizeEmail("  Taro@EXAMPLE.com "))
	assert.Equal(t, "taro@example.com", SanitizeEmail("ta ro@exam(ple).com"))
}

func TestParseSchema(t *testing.T) {
	s, err := ParseSchema(" V2 ")
	require.NoError(t, err)
	assert.Equal(t, SchemaV2, s)

	_, err = ParseSchema("v3")
	assert.Error(t, err)
}

func TestSchemaFields_Order(t *testing.T) {
	assert.Equal(t, "address2", SchemaV1.Fields()[8])
	assert.Equal(t, "player_id", SchemaV2.Fields()[len(SchemaV2.Fields())-1])
	assert.NotContains(t, SchemaV1.Fields(), "player_id")
	assert.NotContains(t, SchemaV2.Required(), "address2")
}
