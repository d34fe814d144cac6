package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo pairs an error code with a client-facing message
type ErrorInfo struct {
	Code    string
	Message string
}

// IsDuplicateKey reports whether err is a unique constraint violation, as
// raised by postgres ("duplicate key value violates unique constraint") or
// sqlite ("UNIQUE constraint failed").
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	errLower := strings.ToLower(err.Error())
	return strings.Contains(errLower, "duplicate key") ||
		strings.Contains(errLower, "unique constraint")
}

// IsNotFound reports whether err means the row does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// ParseError maps a storage or upstream error to an ErrorInfo without
// leaking driver details to clients.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: InternalServerError, Message: "Internal server error"}
	}

	if IsNotFound(err) {
		return ErrorInfo{Code: ResourceNotFound, Message: context + " not found"}
	}

	if IsDuplicateKey(err) {
		return ErrorInfo{Code: ResourceAlreadyExists, Message: context + " already exists"}
	}

	var lookupErr *EntityLookupError
	if errors.As(err, &lookupErr) {
		return ErrorInfo{Code: IngestLookupFailed, Message: lookupErr.Error()}
	}

	var createErr *EntityCreateError
	if errors.As(err, &createErr) {
		return ErrorInfo{Code: IngestCreateFailed, Message: createErr.Error()}
	}

	errLower := strings.ToLower(err.Error())
	if strings.Contains(errLower, "foreign key constraint") {
		return ErrorInfo{Code: ResourceConflict, Message: context + " references missing data"}
	}

	if strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "Upstream service unavailable, please retry later",
		}
	}

	return ErrorInfo{Code: InternalServerError, Message: "Failed to " + context}
}

// ParseAndRespond parses err and writes it as an ErrorResponse
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	errorInfo := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{
		Error:   errorInfo.Code,
		Message: errorInfo.Message,
	})
}
