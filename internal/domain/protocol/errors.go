package protocol

import "errors"

var (
	// ErrTableNotFound indicates the table doesn't exist for the tenant.
	ErrTableNotFound = errors.New("table not found")
	// ErrRowNotFound indicates the row index is not present in the table.
	ErrRowNotFound = errors.New("row not found")
	// ErrInvalidInput indicates invalid table or row input.
	ErrInvalidInput = errors.New("invalid protocol input")
	// ErrInvalidPort indicates a valve port outside the selectable range.
	ErrInvalidPort = errors.New("invalid port")
)
