package protocol

import (
	"fmt"
	"strings"
)

// ValidatePort checks that port is a selectable valve.
func ValidatePort(port int) error {
	if port < MinPort || port > MaxPort {
		return fmt.Errorf("%w: %d (want %d..%d)", ErrInvalidPort, port, MinPort, MaxPort)
	}
	return nil
}

// ParseCycleMarker resolves a marker name. Empty text means none.
func ParseCycleMarker(s string) (CycleMarker, error) {
	switch CycleMarker(strings.ToLower(strings.TrimSpace(s))) {
	case "", CycleNone:
		return CycleNone, nil
	case CycleStart:
		return CycleStart, nil
	case CycleEnd:
		return CycleEnd, nil
	}
	return "", fmt.Errorf("%w: unknown cycle marker %q", ErrInvalidInput, s)
}

// ValidateRepeat checks a repeat count.
func ValidateRepeat(repeat int) error {
	if repeat < 0 || repeat > MaxRepeat {
		return fmt.Errorf("%w: repeat must be in 0..%d", ErrInvalidInput, MaxRepeat)
	}
	return nil
}

// ValidateRowCount checks the number of rows a table would hold.
func ValidateRowCount(n int) error {
	if n < 0 || n > MaxRows {
		return fmt.Errorf("%w: row count must be in 0..%d", ErrInvalidInput, MaxRows)
	}
	return nil
}
