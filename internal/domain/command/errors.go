package command

import "errors"

var (
	// ErrVolumeOutOfRange indicates a volume outside the configured limits.
	ErrVolumeOutOfRange = errors.New("volume out of range")
	// ErrEmptyProtocol indicates a submission with no steps.
	ErrEmptyProtocol = errors.New("protocol has no steps")
)
