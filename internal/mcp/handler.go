package mcp

import (
	"context"
	"encoding/json"

	"github.com/cavrolab/flowpanel/internal/domain/activity"
	"github.com/cavrolab/flowpanel/internal/domain/command"
	"github.com/cavrolab/flowpanel/internal/domain/protocol"
)

// TableService defines protocol table operations needed by MCP.
type TableService interface {
	CreateTable(ctx context.Context, tenantID string, req protocol.CreateTableRequest) (*protocol.TableView, error)
	GetTable(ctx context.Context, tenantID, tableID string) (*protocol.TableView, error)
	ListTables(ctx context.Context, tenantID string) ([]protocol.TableSummary, error)
	CloseTable(ctx context.Context, tenantID, tableID string) error
	AddRow(ctx context.Context, tenantID, tableID string) (*protocol.RowView, error)
	RemoveRow(ctx context.Context, tenantID, tableID string, index int) error
	EditField(ctx context.Context, tenantID string, req protocol.EditFieldRequest) (*protocol.EditResult, error)
	SetRoute(ctx context.Context, tenantID string, req protocol.SetRouteRequest) (*protocol.RowView, error)
	SetCycle(ctx context.Context, tenantID string, req protocol.SetCycleRequest) (*protocol.RowView, error)
	Payload(ctx context.Context, tenantID, tableID string) (*protocol.Payload, error)
}

// CommandService defines device command operations needed by MCP.
type CommandService interface {
	Extract(ctx context.Context, tenantID string, req command.Request) (*command.Result, error)
	Dispense(ctx context.Context, tenantID string, req command.Request) (*command.Result, error)
	Execute(ctx context.Context, tenantID, serialPort string) (*command.Result, error)
	SubmitProtocol(ctx context.Context, tenantID string, req command.SubmitRequest) (*command.SubmitResult, error)
	SaveProtocol(ctx context.Context, tenantID, tableID string) (*command.SaveResult, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, tenantID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Tables   TableService
	Commands CommandService
	Activity ActivityService
}

// Handler dispatches tool calls to domain services. The MCP tools and the
// JSON-RPC endpoint share it.
type Handler struct {
	tables   TableService
	commands CommandService
	activity ActivityService
}

// NewHandler creates a new MCP handler.
func NewHandler(services Services) *Handler {
	return &Handler{
		tables:   services.Tables,
		commands: services.Commands,
		activity: services.Activity,
	}
}

// Handle dispatches a method call. Domain errors come back as *APIError.
func (h *Handler) Handle(ctx context.Context, tenantID, method string, params json.RawMessage) (any, error) {
	result, err := h.dispatch(ctx, tenantID, method, params)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

func (h *Handler) dispatch(ctx context.Context, tenantID, method string, params json.RawMessage) (any, error) {
	switch method {
	case "create_table":
		var req CreateTableParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.tables.CreateTable(ctx, tenantID, protocol.CreateTableRequest{Name: req.Name, Rows: req.Rows})
	case "list_tables":
		tables, err := h.tables.ListTables(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		return TableListResponse{Tables: tables}, nil
	case "get_table":
		var req TableParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.tables.GetTable(ctx, tenantID, req.TableID)
	case "close_table":
		var req TableParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.tables.CloseTable(ctx, tenantID, req.TableID); err != nil {
			return nil, err
		}
		return CloseTableResponse{TableID: req.TableID, Closed: true}, nil
	case "add_row":
		var req TableParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.tables.AddRow(ctx, tenantID, req.TableID)
	case "remove_row":
		var req RowParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.tables.RemoveRow(ctx, tenantID, req.TableID, req.Row); err != nil {
			return nil, err
		}
		return RemoveRowResponse{TableID: req.TableID, Row: req.Row, Removed: true}, nil
	case "edit_field":
		var req EditFieldParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.tables.EditField(ctx, tenantID, protocol.EditFieldRequest{
			TableID: req.TableID,
			Row:     req.Row,
			Field:   req.Field,
			Value:   req.Value,
		})
	case "set_route":
		var req SetRouteParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.tables.SetRoute(ctx, tenantID, protocol.SetRouteRequest{
			TableID:  req.TableID,
			Row:      req.Row,
			FromPort: req.FromPort,
			ToPort:   req.ToPort,
		})
	case "set_cycle":
		var req SetCycleParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.tables.SetCycle(ctx, tenantID, protocol.SetCycleRequest{
			TableID: req.TableID,
			Row:     req.Row,
			Marker:  req.Marker,
			Repeat:  req.Repeat,
		})
	case "get_payload":
		var req TableParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.tables.Payload(ctx, tenantID, req.TableID)
	case "submit_protocol":
		var req SubmitProtocolParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.commands.SubmitProtocol(ctx, tenantID, command.SubmitRequest{
			TableID:    req.TableID,
			SerialPort: req.SerialPort,
		})
	case "save_protocol":
		var req TableParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.commands.SaveProtocol(ctx, tenantID, req.TableID)
	case "extract", "dispense":
		var req CommandParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		cmd := command.Request{Volume: req.Volume, Port: req.Port, SerialPort: req.SerialPort}
		if method == "extract" {
			return h.commands.Extract(ctx, tenantID, cmd)
		}
		return h.commands.Dispense(ctx, tenantID, cmd)
	case "execute":
		var req ExecuteParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.commands.Execute(ctx, tenantID, req.SerialPort)
	case "get_recent_activity":
		var req GetRecentActivityParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		opts := activity.ListActivityOptions{
			TableID:  req.TableID,
			RowIndex: req.Row,
			Limit:    req.Limit,
			Offset:   req.Offset,
		}
		if req.Type != "" {
			t := activity.ActivityType(req.Type)
			opts.ActivityType = &t
		}
		entries, err := h.activity.GetRecentActivity(ctx, tenantID, opts)
		if err != nil {
			return nil, err
		}
		resp := ActivityListResponse{Entries: make([]ActivityEntryResponse, 0, len(entries))}
		for _, entry := range entries {
			resp.Entries = append(resp.Entries, ActivityEntryResponse{
				Timestamp: entry.CreatedAt,
				Type:      entry.ActivityType,
				TableID:   entry.TableID,
				Row:       entry.RowIndex,
				Summary:   entry.Summary,
				Details:   entry.Details,
				Tick:      entry.Tick,
			})
		}
		return resp, nil
	default:
		return nil, &APIError{Code: CodeUnknownMethod, Message: "unknown method: " + method, RecoveryHint: "Call tools/list for available tools"}
	}
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return invalidParams(err)
	}
	return nil
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
