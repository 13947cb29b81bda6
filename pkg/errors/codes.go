package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
	ErrCodeStorageError       ErrorCode = "COMMON_017"
	ErrCodeMessagingError     ErrorCode = "COMMON_018"
)

// View Error Codes
const (
	ErrCodeTooFewSubjects     ErrorCode = "VIS_001"
	ErrCodeUnknownSubject     ErrorCode = "VIS_002"
	ErrCodeInvalidSharingMode ErrorCode = "VIS_003"
	ErrCodeInvalidSortMode    ErrorCode = "VIS_004"
	ErrCodeInvalidScaleMode   ErrorCode = "VIS_005"
	ErrCodeNoDataset          ErrorCode = "VIS_006"
	ErrCodeUnknownView        ErrorCode = "VIS_007"
)

// Query Error Codes
const (
	ErrCodeInvalidModel     ErrorCode = "QRY_001"
	ErrCodeInvalidTopK      ErrorCode = "QRY_002"
	ErrCodeInvalidTemplate  ErrorCode = "QRY_003"
	ErrCodeMissingSubjects  ErrorCode = "QRY_004"
	ErrCodeQueryInFlight    ErrorCode = "QRY_005"
	ErrCodeStaleResponse    ErrorCode = "QRY_006"
	ErrCodeEmptySearch      ErrorCode = "QRY_007"
	ErrCodeSessionNotFound  ErrorCode = "QRY_008"
	ErrCodePresetNotFound   ErrorCode = "QRY_009"
)

// Short aliases used by call sites that only care about the category.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeRateLimit    = ErrCodeTooManyRequests
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeFeatureDisabled:    http.StatusForbidden,
	ErrCodeStorageError:       http.StatusInternalServerError,
	ErrCodeMessagingError:     http.StatusInternalServerError,

	ErrCodeTooFewSubjects:     http.StatusUnprocessableEntity,
	ErrCodeUnknownSubject:     http.StatusBadRequest,
	ErrCodeInvalidSharingMode: http.StatusBadRequest,
	ErrCodeInvalidSortMode:    http.StatusBadRequest,
	ErrCodeInvalidScaleMode:   http.StatusBadRequest,
	ErrCodeNoDataset:          http.StatusConflict,
	ErrCodeUnknownView:        http.StatusBadRequest,

	ErrCodeInvalidModel:    http.StatusBadRequest,
	ErrCodeInvalidTopK:     http.StatusBadRequest,
	ErrCodeInvalidTemplate: http.StatusBadRequest,
	ErrCodeMissingSubjects: http.StatusBadRequest,
	ErrCodeQueryInFlight:   http.StatusConflict,
	ErrCodeStaleResponse:   http.StatusConflict,
	ErrCodeEmptySearch:     http.StatusBadRequest,
	ErrCodeSessionNotFound: http.StatusNotFound,
	ErrCodePresetNotFound:  http.StatusNotFound,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "prediction service error",
	ErrCodeFeatureDisabled:    "feature disabled",
	ErrCodeStorageError:       "storage error",
	ErrCodeMessagingError:     "messaging error",

	ErrCodeTooFewSubjects:     "too few subjects selected",
	ErrCodeUnknownSubject:     "unknown subject",
	ErrCodeInvalidSharingMode: "invalid sharing mode",
	ErrCodeInvalidSortMode:    "invalid sort mode",
	ErrCodeInvalidScaleMode:   "invalid scale mode",
	ErrCodeNoDataset:          "no dataset loaded",
	ErrCodeUnknownView:        "unknown view",

	ErrCodeInvalidModel:    "model must not be empty",
	ErrCodeInvalidTopK:     "top-k must be an integer greater than 0",
	ErrCodeInvalidTemplate: "template must contain exactly one whole-word underscore",
	ErrCodeMissingSubjects: "template with [subject] requires at least one subject",
	ErrCodeQueryInFlight:   "a query is already in flight",
	ErrCodeStaleResponse:   "response belongs to a superseded query",
	ErrCodeEmptySearch:     "at least one name is required",
	ErrCodeSessionNotFound: "session not found",
	ErrCodePresetNotFound:  "preset not found",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
