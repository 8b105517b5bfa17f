package activity

import "time"

// ActivityType represents the type of journal event
type ActivityType string

const (
	TypeTableCreated       ActivityType = "table_created"
	TypeTableClosed        ActivityType = "table_closed"
	TypeRowAdded           ActivityType = "row_added"
	TypeRowRemoved         ActivityType = "row_removed"
	TypeReconcileOverwrite ActivityType = "reconcile_overwrite"
	TypeCommandExtract     ActivityType = "command_extract"
	TypeCommandDispense    ActivityType = "command_dispense"
	TypeCommandExecute     ActivityType = "command_execute"
	TypeProtocolSubmitted  ActivityType = "protocol_submitted"
	TypeProtocolSaved      ActivityType = "protocol_saved"
	TypeCommandFailed      ActivityType = "command_failed"
)

// ActivityEntry represents an event in the command journal
type ActivityEntry struct {
	ID           int64        `json:"id"`
	TenantID     string       `json:"tenant_id"`
	TableID      string       `json:"table_id,omitempty"`
	RowIndex     *int         `json:"row_index,omitempty"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
	Tick         int64        `json:"tick"`
}
