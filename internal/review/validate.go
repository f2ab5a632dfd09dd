package review

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	gosync "sync"

	"github.com/go-playground/validator/v10"

	"github.com/nhle/guest-review/internal/model"
)

var (
	emailPattern = regexp.MustCompile(`^.+@.+\..+$`)
	phonePattern = regexp.MustCompile(`^\d{10,15}$`)
	datePattern  = regexp.MustCompile(`^(0[1-9]|[12][0-9]|3[01])-(0[1-9]|1[0-2])-[0-9]{4}$`)
)

// ValidationError lists the form fields that failed validation, keyed by
// the form field name, with a message per field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = e.Fields[k]
	}
	return "invalid review: " + strings.Join(parts, " ")
}

// IsValidationError reports whether err (or any error in its chain) is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var (
	validate     *validator.Validate
	validateOnce gosync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("guestemail", func(fl validator.FieldLevel) bool {
			return emailPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("ddmmyyyy", func(fl validator.FieldLevel) bool {
			return datePattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("department", func(fl validator.FieldLevel) bool {
			_, ok := ratingFields[model.Department(fl.Field().String())]
			return ok
		})
		validate = v
	})
	return validate
}

// formFields maps struct field names to the names used on the form.
var formFields = map[string]string{
	"Department":    "department",
	"GuestName":     "guest_name",
	"Email":         "email",
	"ReviewTakenBy": "review_taken_by",
	"Phone":         "phone",
	"DOB":           "dob",
	"Comments":      "comments",
}

// Validate checks the draft against the form rules. It returns a
// *ValidationError describing every failing field, or nil.
func (d *Draft) Validate() error {
	err := validatorInstance().Struct(d)
	if err == nil {
		return d.validateRatingKeys()
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("validating review: %w", err)
	}

	fields := formatValidationErrors(ve)
	if extra := d.validateRatingKeys(); extra != nil {
		for k, v := range extra.(*ValidationError).Fields {
			fields[k] = v
		}
	}
	return &ValidationError{Fields: fields}
}

// validateRatingKeys rejects ratings that do not belong to the department's form.
func (d *Draft) validateRatingKeys() error {
	allowed := make(map[string]bool)
	for _, f := range RatingFields(d.Department) {
		allowed[f.Key] = true
	}
	fields := make(map[string]string)
	for k := range d.Ratings {
		if !allowed[k] {
			fields["ratings."+k] = fmt.Sprintf("The %s rating does not apply to %s reviews.", k, d.Department)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string)
	for _, e := range errs {
		field := fieldName(e)
		var message string
		switch e.Tag() {
		case "required":
			message = fmt.Sprintf("The %s field is required.", strings.ReplaceAll(field, "_", " "))
		case "guestemail":
			message = "Invalid email address."
		case "phone":
			message = "Phone number must be 10 to 15 digits."
		case "ddmmyyyy":
			message = fmt.Sprintf("The %s field must be in dd-mm-yyyy format.", strings.ReplaceAll(field, "_", " "))
		case "department":
			message = fmt.Sprintf("Unknown department %q.", e.Value())
		case "min", "max":
			message = "Ratings must be between 0 and 5."
		default:
			message = fmt.Sprintf("Field validation for '%s' failed on the '%s' tag.", field, e.Tag())
		}
		out[field] = message
	}
	return out
}

// fieldName turns a validator namespace into the form field name:
// Draft.Dates[visit_date] becomes visit_date, Draft.Ratings[staff]
// becomes ratings.staff.
func fieldName(e validator.FieldError) string {
	name := e.StructField()
	if i := strings.Index(name, "["); i >= 0 {
		key := strings.TrimSuffix(name[i+1:], "]")
		switch name[:i] {
		case "Dates":
			return key
		case "Ratings":
			return "ratings." + key
		}
	}
	if f, ok := formFields[name]; ok {
		return f
	}
	return strings.ToLower(name)
}

// CheckEmail validates a single email input.
func CheckEmail(s string) error {
	if !emailPattern.MatchString(strings.TrimSpace(s)) {
		return errors.New("invalid email address")
	}
	return nil
}

// CheckPhone validates an optional phone input.
func CheckPhone(s string) error {
	if s == "" || phonePattern.MatchString(s) {
		return nil
	}
	return errors.New("phone number must be 10 to 15 digits")
}

// CheckDate validates an optional dd-mm-yyyy input.
func CheckDate(s string) error {
	if s == "" || datePattern.MatchString(s) {
		return nil
	}
	return errors.New("use dd-mm-yyyy")
}
