// Package errors holds the error types shared across the HTTP surface.
package errors

// ErrValidation reports a rejected request field. Its text goes straight
// into the HTTP response body, so it names the field and nothing internal.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return e.Field + ": " + e.Message
}

// Validation builds an ErrValidation for field.
func Validation(field, message string) *ErrValidation {
	return &ErrValidation{Field: field, Message: message}
}
