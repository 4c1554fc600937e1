package crud

import "errors"

var (
	ErrMissingService = errors.New("crud: missing service")
	ErrInvalidConfig  = errors.New("crud: invalid configuration")
	ErrDuplicateCrud  = errors.New("crud: entity already configured")
	ErrNoManager      = errors.New("crud: no object manager for request")
)
