// Package validation provides input validation helpers for the TiltCheck API.
package validation

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (256KB). Observations are
// small JSON documents; anything larger is malformed or hostile.
const MaxRequestSize = 256 << 10

// MaxStringLength is the maximum length for free-form string fields.
const MaxStringLength = 512

// platformRegex validates platform identifiers (hostnames like "stake.com"
// or short app slugs).
var platformRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9.-]{0,126}[a-z0-9])?$`)

// RequestSizeMiddleware limits request body size.
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidPlatform checks if a string is an acceptable platform identifier.
func IsValidPlatform(p string) bool {
	return platformRegex.MatchString(strings.ToLower(p))
}

// SanitizeString trims whitespace, strips null bytes, and limits length.
func SanitizeString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return strings.ReplaceAll(s, "\x00", "")
}

// FieldError describes a single invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is a collection of field errors.
type Errors []FieldError

// Error implements the error interface.
func (e Errors) Error() string {
	if len(e) == 0 {
		return ""
	}
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fmt.Sprintf("%s: %s", fe.Field, fe.Message)
	}
	return strings.Join(parts, "; ")
}

// Check is a single validation check; returns nil if the field is valid.
type Check func() *FieldError

// Validate runs all checks and collects failures.
func Validate(checks ...Check) Errors {
	var errs Errors
	for _, check := range checks {
		if fe := check(); fe != nil {
			errs = append(errs, *fe)
		}
	}
	return errs
}

// Required fails when the value is empty.
func Required(field, value string) Check {
	return func() *FieldError {
		if strings.TrimSpace(value) == "" {
			return &FieldError{Field: field, Message: "is required"}
		}
		return nil
	}
}

// ValidPlatform fails when the value is not a valid platform identifier.
func ValidPlatform(field, value string) Check {
	return func() *FieldError {
		if value == "" {
			return &FieldError{Field: field, Message: "is required"}
		}
		if !IsValidPlatform(value) {
			return &FieldError{Field: field, Message: "is not a valid platform identifier"}
		}
		return nil
	}
}

// NonNegative fails when the value is negative.
func NonNegative(field string, value float64) Check {
	return func() *FieldError {
		if value < 0 {
			return &FieldError{Field: field, Message: "must not be negative"}
		}
		return nil
	}
}
