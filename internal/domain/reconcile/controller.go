package reconcile

// Options tune the recompute step.
type Options struct {
	// PreserveEdited skips a fallback recompute that would overwrite the
	// group the operator just edited.
	PreserveEdited bool
}

// Result describes what a single edit did to the row.
type Result struct {
	Field  Field `json:"field"`
	Edited Group `json:"edited"`
	// Target is the group the recency rule selected.
	Target Group `json:"target"`
	// Applied is the group actually rewritten; zero when nothing was.
	Applied Group `json:"applied,omitempty"`
	// Fallback is set when Target needed a zero divisor and volume was
	// recomputed instead.
	Fallback bool `json:"fallback"`
	// OverwroteEdit is set when the fallback rewrote the field just typed.
	OverwroteEdit bool `json:"overwrote_edit"`
	// Skipped is set when PreserveEdited suppressed that overwrite.
	Skipped    bool         `json:"skipped"`
	Quantities Quantities   `json:"quantities"`
	Recency    RecencyState `json:"recency"`
}

// RowController keeps duration, rate and volume of one row consistent
// under volume = rate * duration. It owns the row's recency state.
type RowController struct {
	values  Values
	recency RecencyState
	opts    Options
}

// NewRowController returns a controller for a fresh row: all fields empty
// and recency at its initial ordering.
func NewRowController(opts Options) *RowController {
	return &RowController{recency: NewRecencyState(), opts: opts}
}

// RestoreRowController rebuilds a controller from known field text and
// recency. An invalid recency state is replaced by the initial one.
func RestoreRowController(values Values, recency RecencyState, opts Options) *RowController {
	if !recency.valid() {
		recency = NewRecencyState()
	}
	return &RowController{values: values, recency: recency, opts: opts}
}

// Values returns the current raw field text.
func (c *RowController) Values() Values {
	return c.values
}

// Quantities returns the current normalized values.
func (c *RowController) Quantities() Quantities {
	return c.values.Normalize()
}

// Recency returns the current recency state.
func (c *RowController) Recency() RecencyState {
	return c.recency
}

// OnEdit stores raw into field and recomputes the least recently touched
// group. It never fails on numeric content; unknown fields are rejected.
func (c *RowController) OnEdit(field Field, raw string) (Result, error) {
	edited := field.Group()
	if edited == 0 {
		return Result{}, ErrUnknownField
	}

	c.values.Set(field, raw)
	q := c.values.Normalize()

	res := Result{
		Field:  field,
		Edited: edited,
		Target: NextTarget(c.recency, edited),
	}

	applied := res.Target
	switch {
	case applied == GroupRate && q.Duration == 0:
		applied = GroupVolume
		res.Fallback = true
	case applied == GroupDuration && q.Rate == 0:
		applied = GroupVolume
		res.Fallback = true
	}

	if res.Fallback && applied == edited {
		if c.opts.PreserveEdited {
			res.Skipped = true
			applied = 0
		} else {
			res.OverwroteEdit = true
		}
	}

	switch applied {
	case GroupRate:
		q.Rate = finite(q.Volume / q.Duration)
		c.values.Rate = FormatQuantity(q.Rate)
	case GroupVolume:
		q.Volume = finite(q.Rate * q.Duration)
		c.values.Volume = FormatQuantity(q.Volume)
	case GroupDuration:
		h, m, s := Decompose(q.Volume / q.Rate)
		c.values.Hours = FormatQuantity(float64(h))
		c.values.Minutes = FormatQuantity(float64(m))
		c.values.Seconds = FormatQuantity(float64(s))
		q.Duration = Compose(float64(h), float64(m), float64(s))
	}
	res.Applied = applied

	c.recency.Update(edited)
	res.Quantities = q
	res.Recency = c.recency
	return res, nil
}
