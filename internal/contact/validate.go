package contact

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// phonePattern is an E.164-like pattern with an optional leading plus.
var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// The builtin e164 rule requires a leading plus; imported files commonly
	// omit it, so the accepted pattern is looser.
	if err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate turns one untyped CSV record into a ContactRow or a ValidationError.
// All rule violations for the row are joined into a single message so the
// client can fix everything from one error list. Unknown fields are dropped
// silently; empty optional fields are treated as absent.
func Validate(rowNumber int, record map[string]string) (ContactRow, *ValidationError) {
	row := ContactRow{
		Name:   strings.TrimSpace(record["name"]),
		Phone:  strings.TrimSpace(record["phone"]),
		Email:  strings.TrimSpace(record["email"]),
		Source: strings.TrimSpace(record["source"]),
	}

	err := validate.Struct(row)
	if err == nil {
		return row, nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return ContactRow{}, &ValidationError{
			RowNumber:    rowNumber,
			RawRecord:    record,
			ErrorMessage: "invalid record",
		}
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fieldMessage(fe))
	}

	return ContactRow{}, &ValidationError{
		RowNumber:    rowNumber,
		RawRecord:    record,
		ErrorMessage: strings.Join(messages, "; "),
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "Name":
		if fe.Tag() == "required" {
			return "name is required"
		}
		return "name must be between 2 and 255 characters"
	case "Phone":
		if fe.Tag() == "required" {
			return "phone is required"
		}
		return "phone must be a valid E.164 number"
	case "Email":
		return "email must be a valid email address"
	case "Source":
		return "source must be at most 100 characters"
	default:
		return strings.ToLower(fe.Field()) + " is invalid"
	}
}
