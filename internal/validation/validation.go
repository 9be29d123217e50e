// Package validation checks the forms exchanged with the backend. The same
// rules run in the client before sending and in the stub backend on receipt.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/dekdek-app/dekdek/internal/age"
	"github.com/dekdek-app/dekdek/internal/models"
)

var (
	validate   *validator.Validate
	translator ut.Translator

	// custom validation tags
	notBlankTag  = "notblank"
	birthdayTag  = "birthday"
	aspectTag    = "aspect"
	roleTag      = "role"
	genderTag    = "gender"
	thaiPhoneTag = "thaiphone"

	thaiPhoneRe = regexp.MustCompile(`^0[0-9]{9}$`)

	// now is replaced in tests
	now = time.Now
)

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, notBlank)
	_ = validate.RegisterValidation(birthdayTag, validBirthday)
	_ = validate.RegisterValidation(aspectTag, validAspect)
	_ = validate.RegisterValidation(roleTag, validRole)
	_ = validate.RegisterValidation(genderTag, validGender)
	_ = validate.RegisterValidation(thaiPhoneTag, validThaiPhone)

	registerCustomTranslations(notBlankTag, birthdayTag, aspectTag, roleTag, genderTag, thaiPhoneTag)
}

// registerCustomTranslations registers messages for the custom tags. The
// default translations are already registered, so a noop register func is passed.
func registerCustomTranslations(tags ...string) {
	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range tags {
		_ = validate.RegisterTranslation(tag, translator, registerFn, translateCustom)
	}
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return "this field cannot be blank"
	case birthdayTag:
		return "must be a YYYY-MM-DD date that is not in the future"
	case aspectTag:
		return "must be one of GM, FM, RL, EL, PS"
	case roleTag:
		return "must be one of parent, supervisor, admin"
	case genderTag:
		return "must be male or female"
	case thaiPhoneTag:
		return "must be a 10 digit phone number starting with 0"
	default:
		return ""
	}
}

// Custom Validators

func notBlank(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return true
}

func validBirthday(fl validator.FieldLevel) bool {
	_, err := age.Calculate(fl.Field().String(), now())
	return err == nil
}

func validAspect(fl validator.FieldLevel) bool {
	return models.Aspect(fl.Field().String()).Valid()
}

func validRole(fl validator.FieldLevel) bool {
	return models.Role(fl.Field().String()).Valid()
}

func validGender(fl validator.FieldLevel) bool {
	return models.Gender(fl.Field().String()).Valid()
}

func validThaiPhone(fl validator.FieldLevel) bool {
	return thaiPhoneRe.MatchString(fl.Field().String())
}

// Errors maps field names to translated messages
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + e[f]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Struct validates a form. It returns Errors when a rule fails.
func Struct(form interface{}) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(Errors, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Translate(translator)
	}
	return out
}
