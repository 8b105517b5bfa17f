package mcp

import (
	"time"

	"github.com/cavrolab/flowpanel/internal/domain/activity"
	"github.com/cavrolab/flowpanel/internal/domain/protocol"
)

type CreateTableParams struct {
	Name string `json:"name" jsonschema:"display name of the protocol table"`
	Rows int    `json:"rows,omitempty" jsonschema:"number of empty rows to start with"`
}

type ListTablesParams struct{}

type TableParams struct {
	TableID string `json:"table_id" jsonschema:"table identifier returned by create_table"`
}

type RowParams struct {
	TableID string `json:"table_id" jsonschema:"table identifier"`
	Row     int    `json:"row" jsonschema:"row index"`
}

type EditFieldParams struct {
	TableID string `json:"table_id" jsonschema:"table identifier"`
	Row     int    `json:"row" jsonschema:"row index"`
	Field   string `json:"field" jsonschema:"one of hours, minutes, seconds, rate, volume"`
	Value   string `json:"value" jsonschema:"raw text as an operator would type it"`
}

type SetRouteParams struct {
	TableID  string `json:"table_id" jsonschema:"table identifier"`
	Row      int    `json:"row" jsonschema:"row index"`
	FromPort int    `json:"from_port" jsonschema:"source valve port, 1 to 9"`
	ToPort   int    `json:"to_port" jsonschema:"destination valve port, 1 to 9"`
}

type SetCycleParams struct {
	TableID string `json:"table_id" jsonschema:"table identifier"`
	Row     int    `json:"row" jsonschema:"row index"`
	Marker  string `json:"marker" jsonschema:"one of none, start, end"`
	Repeat  int    `json:"repeat,omitempty" jsonschema:"times the cycle runs, read from the start row"`
}

type SubmitProtocolParams struct {
	TableID    string `json:"table_id" jsonschema:"table identifier"`
	SerialPort string `json:"serial_port,omitempty" jsonschema:"pump serial port, defaults to the configured one"`
}

type CommandParams struct {
	Volume     float64 `json:"volume" jsonschema:"volume in microlitres"`
	Port       int     `json:"port" jsonschema:"valve port, 1 to 9"`
	SerialPort string  `json:"serial_port,omitempty" jsonschema:"pump serial port, defaults to the configured one"`
}

type ExecuteParams struct {
	SerialPort string `json:"serial_port,omitempty" jsonschema:"pump serial port, defaults to the configured one"`
}

type GetRecentActivityParams struct {
	TableID string `json:"table_id,omitempty" jsonschema:"only entries for this table"`
	Row     *int   `json:"row,omitempty" jsonschema:"only entries for this row index"`
	Type    string `json:"type,omitempty" jsonschema:"only entries of this type"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum entries, default 50"`
	Offset  int    `json:"offset,omitempty"`
}

type TableListResponse struct {
	Tables []protocol.TableSummary `json:"tables"`
}

type CloseTableResponse struct {
	TableID string `json:"table_id"`
	Closed  bool   `json:"closed"`
}

type RemoveRowResponse struct {
	TableID string `json:"table_id"`
	Row     int    `json:"row"`
	Removed bool   `json:"removed"`
}

type ActivityEntryResponse struct {
	Timestamp time.Time             `json:"timestamp"`
	Type      activity.ActivityType `json:"type"`
	TableID   string                `json:"table_id,omitempty"`
	Row       *int                  `json:"row,omitempty"`
	Summary   string                `json:"summary"`
	Details   string                `json:"details,omitempty"`
	Tick      int64                 `json:"tick,omitempty"`
}

type ActivityListResponse struct {
	Entries []ActivityEntryResponse `json:"entries"`
}
