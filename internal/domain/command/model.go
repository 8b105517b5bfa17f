package command

import (
	"fmt"
	"math"
)

// Kind names a device command.
type Kind string

const (
	KindExtract  Kind = "extract"
	KindDispense Kind = "dispense"
	KindExecute  Kind = "execute"
	KindSave     Kind = "save"
)

// Limits bound single-command and step volumes, both ends exclusive.
type Limits struct {
	MinVolume float64
	MaxVolume float64
}

// DefaultLimits matches the controller's accepted range.
var DefaultLimits = Limits{MinVolume: 0, MaxVolume: 1000}

// Check returns ErrVolumeOutOfRange unless MinVolume < volume < MaxVolume.
func (l Limits) Check(volume float64) error {
	if !(volume > l.MinVolume && volume < l.MaxVolume) {
		return fmt.Errorf("%w: %g (want between %g and %g)", ErrVolumeOutOfRange, volume, l.MinVolume, l.MaxVolume)
	}
	return nil
}

// WholeMicrolitres rounds a volume to the whole microlitres the
// controller accepts.
func WholeMicrolitres(volume float64) float64 {
	return math.Round(volume)
}

// Request is a single extract or dispense.
type Request struct {
	Volume     float64
	Port       int
	SerialPort string
}

// Result reports an issued command.
type Result struct {
	Kind       Kind    `json:"kind"`
	Volume     float64 `json:"volume,omitempty"`
	Port       int     `json:"port,omitempty"`
	SerialPort string  `json:"serial_port"`
}

// SubmitRequest sends a table to the controller.
type SubmitRequest struct {
	TableID    string
	SerialPort string
}

// SubmitResult reports a completed protocol submission.
type SubmitResult struct {
	TableID    string `json:"table_id"`
	Tick       int64  `json:"tick"`
	SerialPort string `json:"serial_port"`
	Steps      int    `json:"steps"`
	Commands   int    `json:"commands"`
}

// SaveResult reports a saved protocol.
type SaveResult struct {
	TableID string `json:"table_id"`
	Rows    int    `json:"rows"`
}
