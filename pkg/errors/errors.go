package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorType names a failure class for logging and metric labels
type ErrorType string

const (
	ErrorTypeNetwork      ErrorType = "network"
	ErrorTypeServerError  ErrorType = "server_error"
	ErrorTypeRateLimit    ErrorType = "rate_limit"
	ErrorTypeAuth         ErrorType = "auth"
	ErrorTypeClientError  ErrorType = "client_error"
	ErrorTypeUnclassified ErrorType = "unclassified"
)

// User-facing messages produced by Classify
const (
	MessageDefault     = "An unexpected error occurred"
	MessageNetwork     = "Network error. Please check your connection."
	MessageServer      = "Server error. Please try again later."
	MessageAuth        = "Authentication required. Please log in."
	MessageForbidden   = "You do not have permission to perform this action."
	MessageNotFound    = "The requested resource was not found."
	MessageConflict    = "Conflict error."
	MessageValidation  = "Validation error."
	MessageRateLimited = "Too many requests. Please try again later."
)

// NetworkError is returned by the transport when no response was received:
// dial, DNS, TLS, timeout or a broken connection while reading the body.
type NetworkError struct {
	Message string
	Cause   error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Message != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	case e.Message != "":
		return e.Message
	case e.Cause != nil:
		return e.Cause.Error()
	default:
		return "network error"
	}
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// ResponseBody holds the parts of an error response body the classifier reads
type ResponseBody struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Raw     []byte `json:"-"`
}

// ParseResponseBody extracts message/error from a JSON object body. Bodies
// that are not JSON objects keep only Raw.
func ParseResponseBody(raw []byte) ResponseBody {
	body := ResponseBody{Raw: raw}

	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return body
	}
	if msg, ok := fields["message"].(string); ok {
		body.Message = msg
	}
	if msg, ok := fields["error"].(string); ok {
		body.Error = msg
	}
	return body
}

// HTTPError is returned by the transport when a response with a non-2xx
// status was received.
type HTTPError struct {
	StatusCode int
	Body       ResponseBody
	Method     string
	URL        string
}

func (e *HTTPError) Error() string {
	detail := e.Body.Message
	if detail == "" {
		detail = e.Body.Error
	}
	if e.Method == "" {
		return fmt.Sprintf("http status %d: %s", e.StatusCode, detail)
	}
	return fmt.Sprintf("%s %s: http status %d: %s", e.Method, e.URL, e.StatusCode, detail)
}

// ErrorInfo describes a failed operation
type ErrorInfo struct {
	Message        string `json:"message" yaml:"message"`
	// StatusCode is nil when no response was received
	StatusCode     *int   `json:"statusCode,omitempty" yaml:"status_code,omitempty"`
	IsNetworkError bool   `json:"isNetworkError" yaml:"is_network_error"`
	IsServerError  bool   `json:"isServerError" yaml:"is_server_error"`
	IsClientError  bool   `json:"isClientError" yaml:"is_client_error"`
	IsAuthError    bool   `json:"isAuthError" yaml:"is_auth_error"`
	CanRetry       bool   `json:"canRetry" yaml:"can_retry"`
	OriginalError  error  `json:"-" yaml:"-"`
}

// Class maps the flags onto a single ErrorType
func (i ErrorInfo) Class() ErrorType {
	switch {
	case i.IsNetworkError:
		return ErrorTypeNetwork
	case i.IsServerError:
		return ErrorTypeServerError
	case i.IsAuthError:
		return ErrorTypeAuth
	case i.IsClientError && i.CanRetry:
		return ErrorTypeRateLimit
	case i.IsClientError:
		return ErrorTypeClientError
	default:
		return ErrorTypeUnclassified
	}
}

// Classify inspects the error returned by a failed HTTP call. It never
// panics and performs no I/O.
func Classify(err error) ErrorInfo {
	info := ErrorInfo{
		Message:       MessageDefault,
		OriginalError: err,
	}
	if err == nil {
		return info
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr == nil {
		info.IsNetworkError = true
		info.CanRetry = true
		info.Message = networkMessage(err)
		return info
	}

	status := httpErr.StatusCode
	info.StatusCode = &status

	if msg := httpErr.Body.Message; msg != "" {
		info.Message = msg
	} else if msg := httpErr.Body.Error; msg != "" {
		info.Message = msg
	}

	switch {
	case status >= 500:
		info.IsServerError = true
		info.CanRetry = true
		info.Message = MessageServer
	case status >= 400:
		info.IsClientError = true
		switch status {
		case 401:
			info.IsAuthError = true
			info.Message = MessageAuth
		case 403:
			info.Message = MessageForbidden
		case 404:
			info.Message = MessageNotFound
		case 409:
			info.Message = bodyMessageOr(httpErr.Body, MessageConflict)
		case 422:
			info.Message = bodyMessageOr(httpErr.Body, MessageValidation)
		case 429:
			info.CanRetry = true
			info.Message = MessageRateLimited
		}
	}

	return info
}

// networkMessage uses the transport's own message when it has one
func networkMessage(err error) string {
	var netErr *NetworkError
	if errors.As(err, &netErr) && netErr != nil {
		if netErr.Message != "" {
			return netErr.Message
		}
		if netErr.Cause != nil && netErr.Cause.Error() != "" {
			return netErr.Cause.Error()
		}
		return MessageNetwork
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return MessageNetwork
}

// 409 and 422 only consult the body's message field, never its error field
func bodyMessageOr(body ResponseBody, fallback string) string {
	if body.Message != "" {
		return body.Message
	}
	return fallback
}

// IsRetryable reports whether the failure is transient
func IsRetryable(err error) bool {
	return Classify(err).CanRetry
}

// UserFriendlyMessage returns the message a caller should show the user
func UserFriendlyMessage(err error) string {
	return Classify(err).Message
}

// IsRetryableStatusCode applies the classification bands to a bare status
func IsRetryableStatusCode(statusCode int) bool {
	return statusCode >= 500 || statusCode == 429
}
