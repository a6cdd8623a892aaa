package submission

import "strings"

// Upload is one optional uploaded file. A zero Upload means the part was not sent.
type Upload struct {
	Present  bool
	Filename string
	Data     []byte
}

// NewUpload marks data as a present upload.
func NewUpload(filename string, data []byte) Upload {
	return Upload{Present: true, Filename: filename, Data: data}
}

// Form holds the raw multipart values of a submission.
type Form struct {
	Name        string `form:"name" validate:"required"`
	Country     string `form:"country" validate:"required"`
	Website     string `form:"website" validate:"required"`
	Description string `form:"description"`
	Captcha     string `form:"captcha"`

	Artwork  Upload `form:"-" validate:"-"`
	Personal Upload `form:"-" validate:"-"`
}

// Request is a validated and trimmed submission, ready for image normalization.
type Request struct {
	Name          string
	Country       string
	Website       string
	Description   *string
	Artwork       Upload
	Personal      Upload
	CaptchaPassed bool
}

func (f Form) trimmed() Form {
	f.Name = strings.TrimSpace(f.Name)
	f.Country = strings.TrimSpace(f.Country)
	f.Website = strings.TrimSpace(f.Website)
	f.Description = strings.TrimSpace(f.Description)
	f.Captcha = strings.TrimSpace(f.Captcha)
	return f
}

// IsCaptchaChecked reports whether a checkbox value counts as checked.
func IsCaptchaChecked(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "true", "1", "yes", "checked":
		return true
	default:
		return false
	}
}
