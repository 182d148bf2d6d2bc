package errors

import "fmt"

// ErrorCode represents a wavemo error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"     // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"           // 404
	ErrSubmitInFlight    ErrorCode = "SUBMIT_IN_FLIGHT"    // 409
	ErrStepIncomplete    ErrorCode = "STEP_INCOMPLETE"     // 422
	ErrSelectionTooSmall ErrorCode = "SELECTION_TOO_SMALL" // 422
	ErrSelectionTooLarge ErrorCode = "SELECTION_TOO_LARGE" // 422
	ErrInternal          ErrorCode = "INTERNAL"            // 500
	ErrSubmitFailed      ErrorCode = "SUBMIT_FAILED"       // 502
)

// WavemoError represents a structured error with code, status, and details.
type WavemoError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *WavemoError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *WavemoError {
	return &WavemoError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing card or record.
func NewNotFound(identifier string) *WavemoError {
	return &WavemoError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewSubmitInFlight creates a 409 error for a submission attempted while
// another one is still outstanding.
func NewSubmitInFlight() *WavemoError {
	return &WavemoError{
		Code:    ErrSubmitInFlight,
		Status:  409,
		Message: "a submission is already in flight; wait for it to finish",
	}
}

// NewStepIncomplete creates a 422 error for a forward transition blocked by
// the active step's validator.
func NewStepIncomplete(msg string) *WavemoError {
	return &WavemoError{
		Code:    ErrStepIncomplete,
		Status:  422,
		Message: msg,
	}
}

// NewSelectionTooSmall creates a 422 error when fewer cards are selected
// than the operation requires.
func NewSelectionTooSmall(min, actual int) *WavemoError {
	return &WavemoError{
		Code:    ErrSelectionTooSmall,
		Status:  422,
		Message: fmt.Sprintf("too few cards selected: %d (need at least %d)", actual, min),
		Details: map[string]any{"min_cards": min, "actual_cards": actual},
	}
}

// NewSelectionTooLarge creates a 422 error when more cards are selected
// than the operation allows.
func NewSelectionTooLarge(max, actual int) *WavemoError {
	return &WavemoError{
		Code:    ErrSelectionTooLarge,
		Status:  422,
		Message: fmt.Sprintf("too many cards selected: %d (max %d)", actual, max),
		Details: map[string]any{"max_cards": max, "actual_cards": actual},
	}
}

// NewSubmitFailed creates a 502 error for a failed record submission.
// The workflow state is untouched, so the caller may simply retry.
func NewSubmitFailed(err error) *WavemoError {
	msg := "record submission failed"
	if err != nil {
		msg = fmt.Sprintf("record submission failed: %v", err)
	}
	return &WavemoError{
		Code:    ErrSubmitFailed,
		Status:  502,
		Message: msg,
		Details: map[string]any{"retryable": true},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *WavemoError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &WavemoError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a WavemoError with the given code.
func Is(err error, code ErrorCode) bool {
	if wErr, ok := err.(*WavemoError); ok {
		return wErr.Code == code
	}
	return false
}
