package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/tally/internal/domain/activity"
)

// errNotRecorded reports an append the activity log dropped.
var errNotRecorded = errors.New("activity was not recorded")

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, activity.ErrUnknownType):
		return &APIError{Code: "UNKNOWN_TYPE", Message: err.Error(), RecoveryHint: "Read tally://docs/activity-types for valid types"}
	case errors.Is(err, activity.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error(), RecoveryHint: "Provide a non-empty user_id"}
	case errors.Is(err, errNotRecorded):
		return &APIError{Code: "NOT_RECORDED", Message: "activity was not recorded", RecoveryHint: "Storage is unavailable; retry later"}
	default:
		return nil
	}
}

// toolError converts err into the error returned from a tool handler.
func toolError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
