// Package validator checks request and event structs against `validate` tags.
//
// Usecases depend on the Validator interface; V10Validator is the
// go-playground/validator implementation with English messages and
// snake_case field keys.
package validator

// Validator validates a struct and returns a field-to-message error.
type Validator interface {
	Validate(data any) error
}
