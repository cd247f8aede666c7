package handlers

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/trungnamdev/authapi/internal/apperr"
)

// BindJSON decodes and validates the request body against the binding tags
// on out. On failure it answers with every violated rule, not just the
// first, and reports false.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	err := ctx.ShouldBindJSON(out)

	if err != nil {
		RespondError(ctx, apperr.Validation(fieldErrors(err, out)...))

		return false
	}

	return true
}

func fieldErrors(err error, out interface{}) []apperr.FieldError {
	var validatorErrors validator.ValidationErrors

	if errors.As(err, &validatorErrors) {
		fields := make([]apperr.FieldError, 0, len(validatorErrors))

		for _, fieldError := range validatorErrors {
			fields = append(fields, apperr.FieldError{
				Field:   jsonFieldName(out, fieldError.Field()),
				Message: validationMessage(fieldError.Tag(), fieldError.Param()),
			})
		}

		return fields
	}

	// malformed JSON, type mismatches, empty body
	return []apperr.FieldError{{Message: "Invalid request body."}}
}

// jsonFieldName maps a Go struct field to its json tag so errors speak
// the wire vocabulary.
func jsonFieldName(out interface{}, fieldName string) string {
	t := reflect.TypeOf(out)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t == nil || t.Kind() != reflect.Struct {
		return fieldName
	}

	sf, ok := t.FieldByName(fieldName)

	if !ok {
		return fieldName
	}

	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")

	if name == "" || name == "-" {
		return fieldName
	}

	return name
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param + " characters"
	case "max":
		return "must be at most " + param + " characters"
	default:
		if param != "" {
			return "failed " + rule + " validation (" + param + ")"
		}
		return "failed " + rule + " validation"
	}
}
