package middleware

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"fnopulse/internal/dataprocessing"
	apperrors "fnopulse/internal/errors"
)

// Validator checks decoded request parameters against struct tags.
// Field names in errors come from the `query` tag, then `json`.
type Validator struct {
	validate *validator.Validate
}

// NewValidator registers the custom tags:
//
//	isodate  YYYY-MM-DD calendar date
//	symbol   exchange symbol: letters, digits, & - _ (max 32)
//	sortkey  a sortable table column
func NewValidator() *Validator {
	v := validator.New()

	_ = v.RegisterValidation("isodate", isISODate)
	_ = v.RegisterValidation("symbol", isValidSymbol)
	_ = v.RegisterValidation("sortkey", isSortKey)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"query", "json"} {
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

	return &Validator{validate: v}
}

// Struct validates s. Field failures come back as a single APIError
// listing every field.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	validationErrors := make([]apperrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, apperrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apperrors.NewValidationErrors(validationErrors)
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "isodate":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)
	case "symbol":
		return fmt.Sprintf("%s must be a valid symbol", field)
	case "sortkey":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(dataprocessing.SortKeys(), ", "))
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

// isISODate accepts real calendar dates only.
func isISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01-02", fl.Field().String())
	return err == nil
}

func isValidSymbol(fl validator.FieldLevel) bool {
	symbol := fl.Field().String()
	if symbol == "" || len(symbol) > 32 {
		return false
	}
	for _, ch := range symbol {
		switch {
		case ch >= 'A' && ch <= 'Z', ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9':
		case ch == '&' || ch == '-' || ch == '_':
		default:
			return false
		}
	}
	return true
}

func isSortKey(fl validator.FieldLevel) bool {
	return dataprocessing.IsSortKey(fl.Field().String())
}
