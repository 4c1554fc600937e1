package orm

import "errors"

var (
	ErrNotFound           = errors.New("orm: entity not found")
	ErrInvalidEntity      = errors.New("orm: invalid entity")
	ErrNoPrimaryKey       = errors.New("orm: entity has no primary key")
	ErrUnknownEntity      = errors.New("orm: unknown entity")
	ErrUnknownColumn      = errors.New("orm: unknown column")
	ErrTypeMismatch       = errors.New("orm: value type mismatch")
	ErrInvalidID          = errors.New("orm: invalid identifier")
	ErrInvalidOperator    = errors.New("orm: invalid operator")
	ErrUnsupportedDialect = errors.New("orm: unsupported dialect")
	ErrNotTracked         = errors.New("orm: entity is not managed by the unit of work")
	ErrFlushFailed        = errors.New("orm: failed to flush changes")
)
