package canonical

import "errors"

var (
	// ErrInvalidJSON indicates the input could not be decoded as a single JSON value.
	ErrInvalidJSON = errors.New("invalid json")
	// ErrInvalidNumber indicates a numeric literal that cannot be represented.
	ErrInvalidNumber = errors.New("invalid number")
	// ErrUnsupportedType indicates a decoded value of an unexpected Go type.
	ErrUnsupportedType = errors.New("unsupported type")
)
