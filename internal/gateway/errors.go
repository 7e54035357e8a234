// ABOUTME: Error taxonomy for the auth and request paths
// ABOUTME: AuthError for server rejections, NetworkError for transport failures

package gateway

import (
	"encoding/json"
	"fmt"
)

// FallbackMessage is shown when the server response carries no usable
// error message.
const FallbackMessage = "Something went wrong. Please try again."

// AuthError is a server-side rejection: bad credentials, an expired or
// revoked refresh token, or a validation failure. The message is
// display-ready and not worth retrying.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%d): %s", e.StatusCode, e.Message)
}

// NetworkError is a transport-level failure: connection refused, timeout,
// or a response the client could not decode. Retryable by the caller.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// apiErrorBody matches the service's error envelope. Message may be a
// plain string or an array of validation messages.
type apiErrorBody struct {
	StatusCode int        `json:"statusCode"`
	Message    apiMessage `json:"message"`
}

type apiMessage string

func (m *apiMessage) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = apiMessage(s)
		return nil
	}
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		if len(arr) > 0 {
			*m = apiMessage(arr[0])
		}
		return nil
	}
	// Unknown message shape; leave empty and fall back later.
	return nil
}

// ErrorMessage extracts a display-ready message from a response body,
// falling back to a generic message when the body is not the expected
// envelope.
func ErrorMessage(body []byte) string {
	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return string(parsed.Message)
	}
	return FallbackMessage
}
