package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerTools adds every tool to the server. Input schemas are derived
// from the params types.
func registerTools(server *sdkmcp.Server, h *Handler) {
	// Tables
	addTool[CreateTableParams](server, h, "create_table",
		"Create a protocol table. Each row is one transfer step with its own duration, rate and volume")
	addTool[ListTablesParams](server, h, "list_tables",
		"List the protocol tables of the current tenant")
	addTool[TableParams](server, h, "get_table",
		"Get a table with all rows in index order, including each row's raw field text and recency state")
	addTool[TableParams](server, h, "close_table",
		"Discard a table and all of its rows")

	// Rows
	addTool[TableParams](server, h, "add_row",
		"Append a row. Numeric fields start at 0, from_port 1, to_port 9, no cycle marker")
	addTool[RowParams](server, h, "remove_row",
		"Remove a row. Its index is never reused")
	addTool[EditFieldParams](server, h, "edit_field",
		"Type a value into one field of a row. The least recently edited of duration, rate and volume is recomputed from volume = rate * duration")
	addTool[SetRouteParams](server, h, "set_route",
		"Select the source and destination ports of a row")
	addTool[SetCycleParams](server, h, "set_cycle",
		"Mark a row as the start or end of a repeated block, or clear the marker")
	addTool[TableParams](server, h, "get_payload",
		"Serialize a table into parallel arrays keyed by field name, in row index order")

	// Device
	addTool[SubmitProtocolParams](server, h, "submit_protocol",
		"Send a table to the pump: extract then dispense for every step, cycles unrolled, followed by execute")
	addTool[TableParams](server, h, "save_protocol",
		"Send the serialized table to the controller's save endpoint")
	addTool[CommandParams](server, h, "extract",
		"Draw a volume from a port")
	addTool[CommandParams](server, h, "dispense",
		"Push a volume out through a port")
	addTool[ExecuteParams](server, h, "execute",
		"Run the commands queued on the pump")

	// Journal
	addTool[GetRecentActivityParams](server, h, "get_recent_activity",
		"List recent journal entries, newest first")
}

func addTool[In any](server *sdkmcp.Server, h *Handler, name, description string) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        name,
		Description: description,
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, any, error) {
		params, err := json.Marshal(in)
		if err != nil {
			return nil, nil, fmt.Errorf("encode params: %w", err)
		}
		out, err := h.Handle(ctx, getTenantID(ctx), name, params)
		if err != nil {
			return nil, nil, err
		}
		return nil, out, nil
	})
}
