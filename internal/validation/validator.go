// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

// Package validation validates API request structs with go-playground/validator v10.
//
// A single validator instance is shared; it reports JSON field names and adds
// the SafePulse-specific tags:
//
//	clock       - "HH:MM" 24-hour time of day
//	timerange   - "<n>h", "<n>d" or "<n>w" lookback window
//	latlng      - "lat,lng" pair with both parts in range
//
// Example:
//
//	type AreaRiskRequest struct {
//	    Latitude  *float64 `json:"latitude" validate:"required,latitude"`
//	    Radius    float64  `json:"radius" validate:"omitempty,gt=0,lte=50000"`
//	}
//
//	if err := validation.ValidateStruct(&req); err != nil {
//	    apiErr := err.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	clockPattern     = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)
	timeRangePattern = regexp.MustCompile(`^[1-9]\d{0,3}[hdw]$`)
)

// MaxTimeRangeDays caps lookback windows at ten years.
const MaxTimeRangeDays = 3650

// TimeRangeDays converts "24h", "7d" or "4w" into whole days, rounding hour
// windows up to at least one day. It reports false for malformed windows
// and for windows longer than MaxTimeRangeDays.
func TimeRangeDays(s string) (int, bool) {
	if !timeRangePattern.MatchString(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, false
	}
	var days int
	switch s[len(s)-1] {
	case 'h':
		days = max((n+23)/24, 1)
	case 'd':
		days = n
	default:
		days = n * 7
	}
	if days > MaxTimeRangeDays {
		return 0, false
	}
	return days, true
}

// ErrorCode is the API error code for every validation failure.
const ErrorCode = "VALIDATION_ERROR"

// FieldError is one failed constraint, keyed by the JSON field name.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// RequestValidationError collects the failed fields of one request.
type RequestValidationError struct {
	Fields []FieldError
}

func (ve *RequestValidationError) Error() string {
	if len(ve.Fields) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(ve.Fields))
	for i, f := range ve.Fields {
		messages[i] = f.Message
	}
	return strings.Join(messages, "; ")
}

// APIError mirrors models.APIError; models cannot be imported here.
type APIError struct {
	Code    string
	Message string
	Details map[string]any
}

// ToAPIError shapes the failures for the response envelope. A single
// failure is reported flat; several are listed under "fields".
func (ve *RequestValidationError) ToAPIError() *APIError {
	switch len(ve.Fields) {
	case 0:
		return &APIError{Code: ErrorCode, Message: "Validation failed"}
	case 1:
		f := ve.Fields[0]
		return &APIError{
			Code:    ErrorCode,
			Message: f.Message,
			Details: map[string]any{"field": f.Field, "tag": f.Tag},
		}
	default:
		return &APIError{
			Code:    ErrorCode,
			Message: ve.Error(),
			Details: map[string]any{"fields": ve.Fields},
		}
	}
}

// GetValidator returns the shared validator with the SafePulse tags
// registered.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)

		for tag, fn := range map[string]validator.Func{
			"clock":     matches(clockPattern),
			"timerange": validTimeRange,
			"latlng": func(fl validator.FieldLevel) bool {
				_, _, err := ParseLatLng(fl.Field().String())
				return err == nil
			},
		} {
			if err := validate.RegisterValidation(tag, fn); err != nil {
				panic(fmt.Sprintf("validation: register %s: %v", tag, err))
			}
		}
	})
	return validate
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}

func validTimeRange(fl validator.FieldLevel) bool {
	_, ok := TimeRangeDays(fl.Field().String())
	return ok
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// ValidateStruct validates s and returns nil when it is valid.
func ValidateStruct(s any) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &RequestValidationError{Fields: []FieldError{{Field: "request", Tag: "invalid", Message: err.Error()}}}
	}

	out := &RequestValidationError{Fields: make([]FieldError, len(fieldErrs))}
	for i, fe := range fieldErrs {
		out.Fields[i] = FieldError{Field: fe.Field(), Tag: fe.Tag(), Message: describe(fe)}
	}
	return out
}

// ParseLatLng parses a "lat,lng" query value.
func ParseLatLng(s string) (lat, lng float64, err error) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok || strings.Contains(lngStr, ",") {
		return 0, 0, fmt.Errorf("expected \"lat,lng\", got %q", s)
	}
	if lat, err = strconv.ParseFloat(strings.TrimSpace(latStr), 64); err != nil {
		return 0, 0, fmt.Errorf("invalid latitude: %w", err)
	}
	if lng, err = strconv.ParseFloat(strings.TrimSpace(lngStr), 64); err != nil {
		return 0, 0, fmt.Errorf("invalid longitude: %w", err)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, fmt.Errorf("coordinates out of range: %q", s)
	}
	return lat, lng, nil
}

// messages are indexed by tag; %[1]s is the field and %[2]s the tag param.
var messages = map[string]string{
	"required":  "%[1]s is required",
	"latitude":  "%[1]s must be a valid latitude (-90 to 90)",
	"longitude": "%[1]s must be a valid longitude (-180 to 180)",
	"clock":     "%[1]s must be a time of day in HH:MM format",
	"timerange": "%[1]s must look like 24h, 7d or 4w and span at most 3650 days",
	"latlng":    "%[1]s must be a \"lat,lng\" pair",
	"dive":      "%[1]s contains an invalid entry",
	"oneof":     "%[1]s must be one of: %[2]s",
	"gte":       "%[1]s must be greater than or equal to %[2]s",
	"lte":       "%[1]s must be less than or equal to %[2]s",
	"gt":        "%[1]s must be greater than %[2]s",
	"lt":        "%[1]s must be less than %[2]s",
}

func describe(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	if msg, ok := messages[fe.Tag()]; ok {
		if strings.Contains(msg, "%[2]s") {
			return fmt.Sprintf(msg, field, param)
		}
		return fmt.Sprintf(msg, field)
	}

	counted := fe.Kind() == reflect.Slice || fe.Kind() == reflect.String
	switch {
	case fe.Tag() == "min" && counted:
		return fmt.Sprintf("%s must contain at least %s items", field, param)
	case fe.Tag() == "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case fe.Tag() == "max" && counted:
		return fmt.Sprintf("%s must contain at most %s items", field, param)
	case fe.Tag() == "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
