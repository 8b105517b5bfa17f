package protocol

import (
	"sync"
	"time"

	"github.com/cavrolab/flowpanel/internal/domain/reconcile"
)

type row struct {
	index    int
	fromPort int
	toPort   int
	cycle    CycleMarker
	repeat   int
	ctrl     *reconcile.RowController
}

func (r *row) view() RowView {
	return RowView{
		Index:      r.index,
		Values:     r.ctrl.Values(),
		Quantities: r.ctrl.Quantities(),
		FromPort:   r.fromPort,
		ToPort:     r.toPort,
		Cycle:      r.cycle,
		Repeat:     r.repeat,
		Recency:    r.ctrl.Recency(),
	}
}

// table is the row set of one protocol. All access goes through mu.
type table struct {
	mu        sync.Mutex
	id        string
	tenantID  string
	name      string
	createdAt time.Time
	tick      int64
	lastIndex int
	rows      []*row
}

// addRow appends a row with a fresh index. Indices are never reused.
func (t *table) addRow(opts reconcile.Options) *row {
	t.lastIndex++
	r := &row{
		index:    t.lastIndex,
		fromPort: DefaultFromPort,
		toPort:   DefaultToPort,
		cycle:    CycleNone,
		ctrl: reconcile.RestoreRowController(reconcile.Values{
			Hours:   "0",
			Minutes: "0",
			Seconds: "0",
			Rate:    "0",
			Volume:  "0",
		}, reconcile.NewRecencyState(), opts),
	}
	t.rows = append(t.rows, r)
	return r
}

func (t *table) row(index int) (*row, error) {
	for _, r := range t.rows {
		if r.index == index {
			return r, nil
		}
	}
	return nil, ErrRowNotFound
}

func (t *table) removeRow(index int) error {
	for i, r := range t.rows {
		if r.index == index {
			t.rows = append(t.rows[:i], t.rows[i+1:]...)
			return nil
		}
	}
	return ErrRowNotFound
}

func (t *table) bump() int64 {
	t.tick++
	return t.tick
}

func (t *table) rowViews() []RowView {
	views := make([]RowView, 0, len(t.rows))
	for _, r := range t.rows {
		views = append(views, r.view())
	}
	return views
}

func (t *table) view() TableView {
	return TableView{
		ID:        t.id,
		TenantID:  t.tenantID,
		Name:      t.name,
		Tick:      t.tick,
		CreatedAt: t.createdAt,
		Rows:      t.rowViews(),
	}
}

func (t *table) summary() TableSummary {
	return TableSummary{
		ID:        t.id,
		Name:      t.name,
		Tick:      t.tick,
		RowCount:  len(t.rows),
		CreatedAt: t.createdAt,
	}
}

// BuildPayload serializes rows into parallel arrays in the given order.
func BuildPayload(rows []RowView) Payload {
	p := Payload{
		Index:    make([]int, 0, len(rows)),
		Hours:    make([]float64, 0, len(rows)),
		Minutes:  make([]float64, 0, len(rows)),
		Seconds:  make([]float64, 0, len(rows)),
		Duration: make([]float64, 0, len(rows)),
		Rate:     make([]float64, 0, len(rows)),
		Volume:   make([]float64, 0, len(rows)),
		FromPort: make([]int, 0, len(rows)),
		ToPort:   make([]int, 0, len(rows)),
		Cycle:    make([]CycleMarker, 0, len(rows)),
		Repeat:   make([]int, 0, len(rows)),
	}
	for _, r := range rows {
		p.Index = append(p.Index, r.Index)
		p.Hours = append(p.Hours, reconcile.ParseQuantity(r.Values.Hours))
		p.Minutes = append(p.Minutes, reconcile.ParseQuantity(r.Values.Minutes))
		p.Seconds = append(p.Seconds, reconcile.ParseQuantity(r.Values.Seconds))
		p.Duration = append(p.Duration, r.Quantities.Duration)
		p.Rate = append(p.Rate, r.Quantities.Rate)
		p.Volume = append(p.Volume, r.Quantities.Volume)
		p.FromPort = append(p.FromPort, r.FromPort)
		p.ToPort = append(p.ToPort, r.ToPort)
		p.Cycle = append(p.Cycle, r.Cycle)
		p.Repeat = append(p.Repeat, r.Repeat)
	}
	return p
}
