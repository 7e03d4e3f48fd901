package gateway

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a decoded response against its struct tags.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// ValidateEach checks every element of a decoded list.
func ValidateEach[T any](items []T) error {
	for i := range items {
		if err := validate.Struct(&items[i]); err != nil {
			return fmt.Errorf("%w: item %d: %v", ErrMalformed, i, err)
		}
	}
	return nil
}
