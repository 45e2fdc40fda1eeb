// Package messages holds the user-visible strings returned to the sender.
// Japanese is the default locale, matching what Petanco organizers expect.
package messages

import "fmt"

// Key identifies a message in the catalog.
type Key string

const (
	SubmissionSaved    Key = "submission_saved"
	ValidationFailed   Key = "validation_failed"
	Forbidden          Key = "rest_forbidden"
	RateLimitExceeded  Key = "rate_limit_exceeded"
	SubmissionFailed   Key = "submission_failed"
	InvalidUserAgent   Key = "invalid_user_agent"
	InvalidRequestBody Key = "invalid_request_body"
	OriginNotAllowed   Key = "origin_not_allowed"
	FieldRequired      Key = "field_required"
	InvalidEmail       Key = "invalid_email"

	LabelSubject    Key = "label_subject"
	LabelName       Key = "label_name"
	LabelEmail      Key = "label_email"
	LabelTel        Key = "label_tel"
	LabelZip        Key = "label_zip"
	LabelPref       Key = "label_pref"
	LabelCity       Key = "label_city"
	LabelAddress1   Key = "label_address1"
	LabelAddress2   Key = "label_address2"
	LabelCampaignID Key = "label_campaign_id"
	LabelBenefitID  Key = "label_benefit_id"
	LabelPlayerID   Key = "label_player_id"
)

const DefaultLocale = "ja"

var catalogs = map[string]map[Key]string{
	"ja": {
		SubmissionSaved:    "応募が正常に完了しました。",
		ValidationFailed:   "入力データが無効です。",
		Forbidden:          "アクセスが拒否されました。",
		RateLimitExceeded:  "レート制限を超えました。しばらくしてからもう一度お試しください。",
		SubmissionFailed:   "送信の保存に失敗しました。",
		InvalidUserAgent:   "有効なUser-Agentが必要です。",
		InvalidRequestBody: "リクエスト本文を解析できません。",
		OriginNotAllowed:   "オリジン不可",
		FieldRequired:      "%sは必須です。",
		InvalidEmail:       "有効なメールアドレスを入力してください。",

		LabelSubject:    "特典",
		LabelName:       "名前",
		LabelEmail:      "メール",
		LabelTel:        "電話番号",
		LabelZip:        "郵便番号",
		LabelPref:       "都道府県",
		LabelCity:       "市区町村",
		LabelAddress1:   "住所1",
		LabelAddress2:   "住所2",
		LabelCampaignID: "キャンペーンID",
		LabelBenefitID:  "特典ID",
		LabelPlayerID:   "プレイヤーID",
	},
	"en": {
		SubmissionSaved:    "Submission saved successfully.",
		ValidationFailed:   "The submitted data is invalid.",
		Forbidden:          "Access denied.",
		RateLimitExceeded:  "Rate limit exceeded. Please try again later.",
		SubmissionFailed:   "Failed to save the submission.",
		InvalidUserAgent:   "A valid User-Agent is required.",
		InvalidRequestBody: "The request body could not be parsed.",
		OriginNotAllowed:   "Origin not allowed",
		FieldRequired:      "%s is required.",
		InvalidEmail:       "Please enter a valid email address.",

		LabelSubject:    "Benefit",
		LabelName:       "Name",
		LabelEmail:      "Email",
		LabelTel:        "Phone",
		LabelZip:        "Postal code",
		LabelPref:       "Prefecture",
		LabelCity:       "City",
		LabelAddress1:   "Address 1",
		LabelAddress2:   "Address 2",
		LabelCampaignID: "Campaign ID",
		LabelBenefitID:  "Benefit ID",
		LabelPlayerID:   "Player ID",
	},
}

// Catalog resolves message keys for a single locale.
type Catalog struct {
	locale string
}

// For returns the catalog for locale, falling back to DefaultLocale.
func For(locale string) Catalog {
	if _, ok := catalogs[locale]; !ok {
		locale = DefaultLocale
	}
	return Catalog{locale: locale}
}

// Supported reports whether a catalog exists for locale.
func Supported(locale string) bool {
	_, ok := catalogs[locale]
	return ok
}

// Locale returns the resolved locale.
func (c Catalog) Locale() string {
	if c.locale == "" {
		return DefaultLocale
	}
	return c.locale
}

// Get returns the message for key, formatted with args when given.
func (c Catalog) Get(key Key, args ...interface{}) string {
	msg, ok := catalogs[c.Locale()][key]
	if !ok {
		return string(key)
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}
