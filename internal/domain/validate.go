package domain

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const minPasswordLength = 6

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// validatorInstance returns the shared validator, reporting fields by their JSON names.
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Credentials is the register/login payload.
type Credentials struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

// NormalizeReportInput trims free-text fields so blank values fail "required".
func NormalizeReportInput(in ReportInput) ReportInput {
	in.Type = strings.TrimSpace(in.Type)
	in.Description = strings.TrimSpace(in.Description)
	in.Address = strings.TrimSpace(in.Address)
	return in
}

// ValidateReportInput checks a create/update payload. Coordinates must be present,
// finite, and within WGS-84 bounds.
func ValidateReportInput(in ReportInput) error {
	if err := toValidationError(validatorInstance().Struct(in)); err != nil {
		return err
	}
	if math.IsNaN(in.Lat()) || math.IsInf(in.Lat(), 0) {
		return NewValidationError("latitude", "must be finite")
	}
	if math.IsNaN(in.Lon()) || math.IsInf(in.Lon(), 0) {
		return NewValidationError("longitude", "must be finite")
	}
	return nil
}

// NormalizeEmail lowercases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateRegistration checks credentials and enforces the password policy:
// at least six characters with a digit, a lowercase letter, an uppercase letter,
// and a non-alphanumeric character.
func ValidateRegistration(c Credentials) error {
	verr := &ValidationError{}
	if err := toValidationError(validatorInstance().Struct(c)); err != nil {
		var ve *ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		verr.Fields = append(verr.Fields, ve.Fields...)
	}
	if c.Password != "" {
		verr.Fields = append(verr.Fields, passwordPolicy(c.Password)...)
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func passwordPolicy(password string) []FieldError {
	var (
		fields   []FieldError
		hasUpper bool
		hasLower bool
		hasDigit bool
		hasOther bool
	)
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasOther = true
		}
	}
	add := func(msg string) { fields = append(fields, FieldError{Field: "password", Message: msg}) }
	if len(password) < minPasswordLength {
		add(fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if !hasDigit {
		add("must contain a digit")
	}
	if !hasLower {
		add("must contain a lowercase letter")
	}
	if !hasUpper {
		add("must contain an uppercase letter")
	}
	if !hasOther {
		add("must contain a non-alphanumeric character")
	}
	return fields
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid e-mail address"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}
