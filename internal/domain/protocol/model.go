package protocol

import (
	"time"

	"github.com/cavrolab/flowpanel/internal/domain/reconcile"
)

// Valve ports selectable for a row.
const (
	MinPort = 1
	MaxPort = 9
)

// Ports assigned to a newly added row.
const (
	DefaultFromPort = MinPort
	DefaultToPort   = MaxPort
)

// Table size limits.
const (
	MaxRows   = 500
	MaxRepeat = 1000
	MaxSteps  = 10000
)

// CycleMarker marks an optional loop boundary on a row.
type CycleMarker string

const (
	CycleNone  CycleMarker = "none"
	CycleStart CycleMarker = "start"
	CycleEnd   CycleMarker = "end"
)

// RowView is a snapshot of one protocol step.
type RowView struct {
	Index      int                    `json:"index"`
	Values     reconcile.Values       `json:"values"`
	Quantities reconcile.Quantities   `json:"quantities"`
	FromPort   int                    `json:"from_port"`
	ToPort     int                    `json:"to_port"`
	Cycle      CycleMarker            `json:"cycle"`
	Repeat     int                    `json:"repeat"`
	Recency    reconcile.RecencyState `json:"recency"`
}

// TableView is a snapshot of a protocol table with rows in index order.
type TableView struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Tick      int64     `json:"tick"`
	CreatedAt time.Time `json:"created_at"`
	Rows      []RowView `json:"rows"`
}

// TableSummary is a lightweight representation for listing.
type TableSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Tick      int64     `json:"tick"`
	RowCount  int       `json:"row_count"`
	CreatedAt time.Time `json:"created_at"`
}

// EditResult reports the effect of a single field edit.
type EditResult struct {
	TableID string           `json:"table_id"`
	Tick    int64            `json:"tick"`
	Result  reconcile.Result `json:"result"`
	Row     RowView          `json:"row"`
}

// Payload is the serialized table: one array per field, all of equal
// length, in row index order.
type Payload struct {
	Index    []int         `json:"index"`
	Hours    []float64     `json:"hours"`
	Minutes  []float64     `json:"minutes"`
	Seconds  []float64     `json:"seconds"`
	Duration []float64     `json:"duration"`
	Rate     []float64     `json:"rate"`
	Volume   []float64     `json:"volume"`
	FromPort []int         `json:"from_port"`
	ToPort   []int         `json:"to_port"`
	Cycle    []CycleMarker `json:"cycle"`
	Repeat   []int         `json:"repeat"`
}

// Len returns the number of rows in the payload.
func (p Payload) Len() int {
	return len(p.Index)
}

// Step is one transfer of the expanded protocol: extract Volume from
// FromPort, then dispense it to ToPort.
type Step struct {
	Row      int     `json:"row"`
	Volume   float64 `json:"volume"`
	FromPort int     `json:"from_port"`
	ToPort   int     `json:"to_port"`
}

// Plan is the ordered list of steps a table expands to, cycles unrolled.
type Plan struct {
	TableID string `json:"table_id"`
	Tick    int64  `json:"tick"`
	Steps   []Step `json:"steps"`
}
