package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownField indicates a field tag outside the row's editable set.
var ErrUnknownField = errors.New("unknown field")

// Group is one of the three linked quantities of a row.
type Group int

const (
	GroupDuration Group = iota + 1
	GroupRate
	GroupVolume
)

var groupNames = map[Group]string{
	GroupDuration: "duration",
	GroupRate:     "rate",
	GroupVolume:   "volume",
}

func (g Group) String() string {
	if name, ok := groupNames[g]; ok {
		return name
	}
	return fmt.Sprintf("group(%d)", int(g))
}

// MarshalJSON encodes the group by name.
func (g Group) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.String())
}

// UnmarshalJSON decodes a group name.
func (g *Group) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for group, n := range groupNames {
		if n == name {
			*g = group
			return nil
		}
	}
	return fmt.Errorf("unknown group %q", name)
}

// Field tags an editable input of a row. Hours, minutes and seconds are
// sub-fields of the duration group.
type Field string

const (
	FieldHours   Field = "hours"
	FieldMinutes Field = "minutes"
	FieldSeconds Field = "seconds"
	FieldRate    Field = "rate"
	FieldVolume  Field = "volume"
)

// Fields lists every editable field in display order.
var Fields = []Field{FieldHours, FieldMinutes, FieldSeconds, FieldRate, FieldVolume}

// ParseField resolves a field tag.
func ParseField(s string) (Field, error) {
	for _, f := range Fields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// Group classifies the field. Unknown fields classify to zero.
func (f Field) Group() Group {
	switch f {
	case FieldHours, FieldMinutes, FieldSeconds:
		return GroupDuration
	case FieldRate:
		return GroupRate
	case FieldVolume:
		return GroupVolume
	default:
		return 0
	}
}
