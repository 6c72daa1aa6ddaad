// Package validation validates console form input with go-playground/validator
// and renders field errors as English messages keyed by form field name.
package validation

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// Custom validation tags.
const (
	notBlankTag       = "notblank"
	strongPasswordTag = "strongpassword"
)

// FieldErrors maps a form field name to its first validation message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fe[k])
	}
	return strings.Join(parts, "; ")
}

// Validator wraps a configured validator.Validate and its English translator.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// New builds a Validator. Field names come from `form` tags, then `json` tags.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	_ = v.RegisterValidation(notBlankTag, notBlank)
	_ = v.RegisterValidation(strongPasswordTag, strongPassword)

	// The default translation is already registered, so the register func is a noop.
	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range []string{notBlankTag, strongPasswordTag} {
		_ = v.RegisterTranslation(tag, trans, registerFn, translateCustom)
	}

	return &Validator{validate: v, translator: trans}
}

// Struct validates s. It returns nil, FieldErrors, or a non-validation error
// (for example when s is not a struct).
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = fe.Translate(v.translator)
	}
	return out
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return fe.Field() + " cannot be blank"
	case strongPasswordTag:
		return fe.Field() + " must contain a letter and a digit"
	default:
		return fe.Error()
	}
}

func notBlank(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

func strongPassword(fl validator.FieldLevel) bool {
	str, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	var letter, digit bool
	for _, r := range str {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}
