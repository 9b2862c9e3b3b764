package registry

import (
	"errors"
	"fmt"
)

// ErrUnknownModel is matched by every *UnknownModelError via errors.Is.
var ErrUnknownModel = errors.New("unknown model")

// UnknownModelError is returned when a key is not in the catalogue.
type UnknownModelError struct {
	Key string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("unknown model %q", e.Key)
}

func (e *UnknownModelError) Is(target error) bool {
	return target == ErrUnknownModel
}

// DuplicateKeyError is returned by Load when two entries share a key.
type DuplicateKeyError struct {
	Key string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate model key %q", e.Key)
}
