package api

import (
	"errors"
	"fmt"
	"strings"
)

// APIError is the structured error surfaced by the backend. Code is
// preferred for programmatic handling; Message is what the backend said.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: http %d", e.Status)
}

// CodeEmailNotVerified is the structured code the backend sends for login
// attempts with an unverified address.
const CodeEmailNotVerified = "EMAIL_NOT_VERIFIED"

// IsEmailNotVerified distinguishes "email not verified" from other 401s.
// The structured code wins; the legacy keyword scan over the message is
// kept only for backends that predate the code field.
func IsEmailNotVerified(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code != "" {
		return apiErr.Code == CodeEmailNotVerified
	}
	if apiErr.Status != 401 {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	for _, kw := range []string{"verificar", "verifica", "verify", "verification"} {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
