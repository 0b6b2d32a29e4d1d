package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// Codes follow the <MODULE>_<NNN> convention so the module can be recovered
// with ModuleForCode.
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
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCancelled          ErrorCode = "COMMON_017"
)

// Aliases used at call sites.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// Engine Error Codes
const (
	ErrCodeSubmitRejected ErrorCode = "ENG_001"
	ErrCodeItemPanicked   ErrorCode = "ENG_002"
	ErrCodeItemReentered  ErrorCode = "ENG_003"
	ErrCodeWaitAborted    ErrorCode = "ENG_004"
)

// Probe Error Codes
const (
	// ErrCodeProbeDegraded marks a phase that answered but not healthily.
	// Classification maps it to "degraded" rather than "unavailable".
	ErrCodeProbeDegraded     ErrorCode = "PRB_001"
	ErrCodeProbeUnreachable  ErrorCode = "PRB_002"
	ErrCodeProbeAuthFailed   ErrorCode = "PRB_003"
	ErrCodeProbeBadResponse  ErrorCode = "PRB_004"
	ErrCodeConnectorUnknown  ErrorCode = "PRB_005"
	ErrCodeConnectorMisconf  ErrorCode = "PRB_006"
	ErrCodeSessionOpenFailed ErrorCode = "PRB_007"
)

// Config Error Codes
const (
	ErrCodeConfigInvalid  ErrorCode = "CFG_001"
	ErrCodeConfigNotFound ErrorCode = "CFG_002"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeCancelled:          499,

	ErrCodeSubmitRejected: http.StatusServiceUnavailable,
	ErrCodeItemPanicked:   http.StatusInternalServerError,
	ErrCodeItemReentered:  http.StatusConflict,
	ErrCodeWaitAborted:    http.StatusInternalServerError,

	ErrCodeProbeDegraded:     http.StatusOK,
	ErrCodeProbeUnreachable:  http.StatusBadGateway,
	ErrCodeProbeAuthFailed:   http.StatusBadGateway,
	ErrCodeProbeBadResponse:  http.StatusBadGateway,
	ErrCodeConnectorUnknown:  http.StatusNotFound,
	ErrCodeConnectorMisconf:  http.StatusUnprocessableEntity,
	ErrCodeSessionOpenFailed: http.StatusBadGateway,

	ErrCodeConfigInvalid:  http.StatusUnprocessableEntity,
	ErrCodeConfigNotFound: http.StatusNotFound,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeCancelled:          "operation cancelled",

	ErrCodeSubmitRejected: "work item rejected by pool",
	ErrCodeItemPanicked:   "work item panicked",
	ErrCodeItemReentered:  "work item already started",
	ErrCodeWaitAborted:    "wait on work item aborted",

	ErrCodeProbeDegraded:     "probe degraded",
	ErrCodeProbeUnreachable:  "endpoint unreachable",
	ErrCodeProbeAuthFailed:   "endpoint authentication failed",
	ErrCodeProbeBadResponse:  "unexpected endpoint response",
	ErrCodeConnectorUnknown:  "unknown connector",
	ErrCodeConnectorMisconf:  "connector misconfigured",
	ErrCodeSessionOpenFailed: "failed to open probe session",

	ErrCodeConfigInvalid:  "invalid configuration",
	ErrCodeConfigNotFound: "configuration file not found",
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

//Personal.AI order the ending
