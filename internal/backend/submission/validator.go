package submission

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator"
	"github.com/jo-hoe/gogallery/internal/common"
)

const (
	FieldName     = "name"
	FieldCountry  = "country"
	FieldWebsite  = "website"
	FieldArtwork  = "artworkImage"
	FieldCaptcha  = "captcha"
	FieldPersonal = "personalImage"
)

// Rules selects which required conditions a deployment enforces.
type Rules struct {
	RequireName    bool
	RequireCountry bool
	RequireWebsite bool
	RequireArtwork bool
	RequireCaptcha bool
}

// DefaultRules enforces every condition except the CAPTCHA flag.
func DefaultRules() Rules {
	return Rules{
		RequireName:    true,
		RequireCountry: true,
		RequireWebsite: true,
		RequireArtwork: true,
	}
}

func (r Rules) textFieldEnabled(field string) bool {
	switch field {
	case FieldName:
		return r.RequireName
	case FieldCountry:
		return r.RequireCountry
	case FieldWebsite:
		return r.RequireWebsite
	default:
		return true
	}
}

type Validator struct {
	rules    Rules
	validate *validator.Validate
}

func NewValidator(rules Rules) *Validator {
	v := validator.New()
	// Report fields by their form names so the message matches what the client sent.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{
		rules:    rules,
		validate: v,
	}
}

// Rules returns the conditions this validator enforces.
func (v *Validator) Rules() Rules {
	return v.rules
}

// Validate checks the form and returns a normalized request or a *common.ValidationError
// naming every failed condition.
func (v *Validator) Validate(form Form) (*Request, error) {
	form = form.trimmed()

	var missing []string
	if err := v.validate.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, fmt.Errorf("failed to validate submission: %w", err)
		}
		for _, fe := range fieldErrs {
			if v.rules.textFieldEnabled(fe.Field()) {
				missing = append(missing, fe.Field())
			}
		}
	}

	artwork := normalizeUpload(form.Artwork)
	if v.rules.RequireArtwork && !artwork.Present {
		missing = append(missing, FieldArtwork)
	}

	captchaPassed := IsCaptchaChecked(form.Captcha)
	if v.rules.RequireCaptcha && !captchaPassed {
		missing = append(missing, FieldCaptcha)
	}

	if len(missing) > 0 {
		slog.Info("submission rejected", "missing", missing)
		return nil, common.NewValidationError(missing...)
	}

	var description *string
	if form.Description != "" {
		d := form.Description
		description = &d
	}

	return &Request{
		Name:          form.Name,
		Country:       form.Country,
		Website:       form.Website,
		Description:   description,
		Artwork:       artwork,
		Personal:      normalizeUpload(form.Personal),
		CaptchaPassed: captchaPassed,
	}, nil
}

// normalizeUpload treats an empty file part the same as a missing one.
func normalizeUpload(u Upload) Upload {
	if !u.Present || len(u.Data) == 0 {
		return Upload{}
	}
	return u
}
