// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// codeValidation is the API error code for every struct tag failure.
const codeValidation = "VALIDATION_ERROR"

var (
	structValidator *validator.Validate
	structOnce      sync.Once
)

// GetValidator returns the shared validator with the Mapmark tags
// (pointid, spotname, kind) registered. Safe for concurrent use.
func GetValidator() *validator.Validate {
	structOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		for tag, fn := range map[string]validator.Func{
			"pointid":  validatePointIDTag,
			"spotname": validateSpotNameTag,
			"kind":     validateKindTag,
		} {
			// Only an empty tag or nil func makes this fail.
			_ = v.RegisterValidation(tag, fn)
		}
		structValidator = v
	})
	return structValidator
}

// ValidationError is one failed struct tag.
type ValidationError struct {
	field   string
	tag     string
	param   string
	value   any
	message string
}

// Field is the Go field name that failed.
func (e *ValidationError) Field() string { return e.field }

// Tag is the failing tag, e.g. "gte" or "pointid".
func (e *ValidationError) Tag() string { return e.tag }

// Param is the tag argument, e.g. "3" for min=3.
func (e *ValidationError) Param() string { return e.param }

// Value is the rejected value.
func (e *ValidationError) Value() any { return e.value }

func (e *ValidationError) Error() string { return e.message }

// RequestValidationError collects every failed tag of one ValidateStruct call.
type RequestValidationError struct {
	errors []ValidationError
}

// Errors returns the individual failures in field order.
func (ve *RequestValidationError) Errors() []ValidationError {
	return ve.errors
}

func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(ve.errors))
	for i := range ve.errors {
		msgs[i] = ve.errors[i].message
	}
	return strings.Join(msgs, "; ")
}

// APIError is the envelope error shape. api.APIError has the same fields;
// this copy keeps validation free of an api import.
type APIError struct {
	Code    string
	Message string
	Details map[string]any
}

// ToAPIError renders the failures for an error envelope. A single failure
// reports its field, tag and value; several are listed under "fields".
func (ve *RequestValidationError) ToAPIError() *APIError {
	switch len(ve.errors) {
	case 0:
		return &APIError{Code: codeValidation, Message: "Validation failed"}
	case 1:
		fe := ve.errors[0]
		return &APIError{
			Code:    codeValidation,
			Message: fe.message,
			Details: map[string]any{"field": fe.field, "tag": fe.tag, "value": fe.value},
		}
	}

	fields := make([]map[string]any, 0, len(ve.errors))
	msgs := make([]string, 0, len(ve.errors))
	for _, fe := range ve.errors {
		fields = append(fields, map[string]any{"field": fe.field, "tag": fe.tag, "message": fe.message})
		msgs = append(msgs, fe.field+": "+fe.message)
	}
	return &APIError{
		Code:    codeValidation,
		Message: strings.Join(msgs, "; "),
		Details: map[string]any{"fields": fields},
	}
}

// ValidateStruct checks s against its validate tags. It returns nil when
// every tag passes.
//
//	if verr := validation.ValidateStruct(&doc); verr != nil {
//	    return fmt.Errorf("export: %w", verr)
//	}
func ValidateStruct(s any) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		// InvalidValidationError: s was not a struct or pointer to one.
		return &RequestValidationError{errors: []ValidationError{{
			field:   "unknown",
			tag:     "unknown",
			message: err.Error(),
		}}}
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			field:   fe.Field(),
			tag:     fe.Tag(),
			param:   fe.Param(),
			value:   fe.Value(),
			message: describe(fe),
		})
	}
	return &RequestValidationError{errors: out}
}

// tagMessages holds fmt templates keyed by tag. Each takes the field name
// and then the tag parameter.
var tagMessages = map[string]string{
	"required": "%s is required%.0s",
	"pointid":  "%s must be a canonical point id such as A-07%.0s",
	"spotname": "%s must be a spot name of at most 10 characters%.0s",
	"kind":     "%s must be one of points, spots, routes, areas%.0s",
	"oneof":    "%s must be one of: %s",
	"eq":       "%s must be %s",
	"nefield":  "%s must differ from %s",
	"gte":      "%s must be greater than or equal to %s",
	"lte":      "%s must be less than or equal to %s",
	"gt":       "%s must be greater than %s",
	"lt":       "%s must be less than %s",
}

// describe turns a field error into a sentence naming the field.
func describe(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	if tmpl, ok := tagMessages[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, field, param)
	}

	var unit string
	switch fe.Kind() {
	case reflect.String:
		unit = " characters"
	case reflect.Slice, reflect.Array:
		unit = " entries"
	}

	switch fe.Tag() {
	case "min":
		if unit == " entries" {
			return fmt.Sprintf("%s must have at least %s entries", field, param)
		}
		return fmt.Sprintf("%s must be at least %s%s", field, param, unit)
	case "max":
		if unit == " entries" {
			return fmt.Sprintf("%s must have at most %s entries", field, param)
		}
		return fmt.Sprintf("%s must be at most %s%s", field, param, unit)
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
