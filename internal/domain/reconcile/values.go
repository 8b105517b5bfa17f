package reconcile

import (
	"math"
	"strconv"
	"strings"
)

// maxWholeSeconds bounds durations handed to Decompose so the integer
// conversion stays exact.
const maxWholeSeconds = 1 << 53

// Values holds the raw text of a row's linked inputs as the operator typed it.
type Values struct {
	Hours   string `json:"hours"`
	Minutes string `json:"minutes"`
	Seconds string `json:"seconds"`
	Rate    string `json:"rate"`
	Volume  string `json:"volume"`
}

// Get returns the raw text of field.
func (v Values) Get(f Field) string {
	switch f {
	case FieldHours:
		return v.Hours
	case FieldMinutes:
		return v.Minutes
	case FieldSeconds:
		return v.Seconds
	case FieldRate:
		return v.Rate
	case FieldVolume:
		return v.Volume
	}
	return ""
}

// Set stores raw text into field. Unknown fields are ignored.
func (v *Values) Set(f Field, raw string) {
	switch f {
	case FieldHours:
		v.Hours = raw
	case FieldMinutes:
		v.Minutes = raw
	case FieldSeconds:
		v.Seconds = raw
	case FieldRate:
		v.Rate = raw
	case FieldVolume:
		v.Volume = raw
	}
}

// Quantities are the normalized numeric values of a row.
type Quantities struct {
	Duration float64 `json:"duration"`
	Rate     float64 `json:"rate"`
	Volume   float64 `json:"volume"`
}

// Normalize parses the raw values. Anything that is not a finite,
// non-negative number counts as zero.
func (v Values) Normalize() Quantities {
	return Quantities{
		Duration: Compose(ParseQuantity(v.Hours), ParseQuantity(v.Minutes), ParseQuantity(v.Seconds)),
		Rate:     ParseQuantity(v.Rate),
		Volume:   ParseQuantity(v.Volume),
	}
}

// ParseQuantity parses operator input, substituting zero for empty,
// unparsable, negative or non-finite text.
func ParseQuantity(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return finite(v)
}

// FormatQuantity renders a quantity the way it is written back into a field.
func FormatQuantity(v float64) string {
	return strconv.FormatFloat(finite(v), 'f', -1, 64)
}

// Compose converts hours, minutes and seconds into seconds.
func Compose(hours, minutes, seconds float64) float64 {
	return finite(hours*3600 + minutes*60 + seconds)
}

// Decompose splits a duration in seconds into whole hours, minutes and
// seconds. Fractional seconds are truncated.
func Decompose(duration float64) (hours, minutes, seconds int64) {
	d := finite(duration)
	if d > maxWholeSeconds {
		d = maxWholeSeconds
	}
	whole := int64(math.Floor(d))
	return whole / 3600, (whole % 3600) / 60, whole % 60
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
