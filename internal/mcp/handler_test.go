package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/cavrolab/flowpanel/internal/device"
	"github.com/cavrolab/flowpanel/internal/domain/activity"
	"github.com/cavrolab/flowpanel/internal/domain/command"
	"github.com/cavrolab/flowpanel/internal/domain/protocol"
	"github.com/cavrolab/flowpanel/internal/domain/reconcile"
	"github.com/stretchr/testify/require"
)

type commandStub struct {
	extractFn func(context.Context, string, command.Request) (*command.Result, error)
	executeFn func(context.Context, string, string) (*command.Result, error)
	submitFn  func(context.Context, string, command.SubmitRequest) (*command.SubmitResult, error)
	saveFn    func(context.Context, string, string) (*command.SaveResult, error)
}

func (c commandStub) Extract(ctx context.Context, tenantID string, req command.Request) (*command.Result, error) {
	return c.extractFn(ctx, tenantID, req)
}
func (c commandStub) Dispense(ctx context.Context, tenantID string, req command.Request) (*command.Result, error) {
	return c.extractFn(ctx, tenantID, req)
}
func (c commandStub) Execute(ctx context.Context, tenantID, serialPort string) (*command.Result, error) {
	return c.executeFn(ctx, tenantID, serialPort)
}
func (c commandStub) SubmitProtocol(ctx context.Context, tenantID string, req command.SubmitRequest) (*command.SubmitResult, error) {
	return c.submitFn(ctx, tenantID, req)
}
func (c commandStub) SaveProtocol(ctx context.Context, tenantID, tableID string) (*command.SaveResult, error) {
	return c.saveFn(ctx, tenantID, tableID)
}

type activityStub struct {
	listFn func(context.Context, string, activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

func (a activityStub) GetRecentActivity(ctx context.Context, tenantID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	return a.listFn(ctx, tenantID, opts)
}

func newTestHandler(commands commandStub, activities activityStub) *Handler {
	return NewHandler(Services{
		Tables:   protocol.NewService(nil, reconcile.Options{}, nil),
		Commands: commands,
		Activity: activities,
	})
}

func TestHandler_TableWorkflow(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant1"
	handler := newTestHandler(commandStub{}, activityStub{})

	out, err := handler.Handle(ctx, tenantID, "create_table", mustJSON(t, CreateTableParams{Name: "prime", Rows: 1}))
	require.NoError(t, err)
	tbl := out.(*protocol.TableView)
	require.Len(t, tbl.Rows, 1)

	out, err = handler.Handle(ctx, tenantID, "add_row", mustJSON(t, TableParams{TableID: tbl.ID}))
	require.NoError(t, err)
	require.Equal(t, 2, out.(*protocol.RowView).Index)

	_, err = handler.Handle(ctx, tenantID, "edit_field", mustJSON(t, EditFieldParams{TableID: tbl.ID, Row: 2, Field: "seconds", Value: "60"}))
	require.NoError(t, err)
	out, err = handler.Handle(ctx, tenantID, "edit_field", mustJSON(t, EditFieldParams{TableID: tbl.ID, Row: 2, Field: "rate", Value: "5"}))
	require.NoError(t, err)
	require.Equal(t, "300", out.(*protocol.EditResult).Row.Values.Volume)

	_, err = handler.Handle(ctx, tenantID, "set_route", mustJSON(t, SetRouteParams{TableID: tbl.ID, Row: 2, FromPort: 2, ToPort: 3}))
	require.NoError(t, err)
	_, err = handler.Handle(ctx, tenantID, "set_cycle", mustJSON(t, SetCycleParams{TableID: tbl.ID, Row: 1, Marker: "start", Repeat: 2}))
	require.NoError(t, err)

	out, err = handler.Handle(ctx, tenantID, "get_payload", mustJSON(t, TableParams{TableID: tbl.ID}))
	require.NoError(t, err)
	payload := out.(*protocol.Payload)
	require.Equal(t, []int{1, 2}, payload.Index)
	require.Equal(t, []float64{0, 300}, payload.Volume)
	require.Equal(t, []protocol.CycleMarker{protocol.CycleStart, protocol.CycleNone}, payload.Cycle)

	out, err = handler.Handle(ctx, tenantID, "list_tables", nil)
	require.NoError(t, err)
	require.Len(t, out.(TableListResponse).Tables, 1)

	out, err = handler.Handle(ctx, tenantID, "remove_row", mustJSON(t, RowParams{TableID: tbl.ID, Row: 1}))
	require.NoError(t, err)
	require.True(t, out.(RemoveRowResponse).Removed)

	out, err = handler.Handle(ctx, tenantID, "close_table", mustJSON(t, TableParams{TableID: tbl.ID}))
	require.NoError(t, err)
	require.True(t, out.(CloseTableResponse).Closed)
}

func TestHandler_CommandsAndActivity(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant1"
	row := 2

	var gotOpts activity.ListActivityOptions
	handler := newTestHandler(
		commandStub{
			extractFn: func(_ context.Context, _ string, req command.Request) (*command.Result, error) {
				return &command.Result{Kind: command.KindExtract, Volume: req.Volume, Port: req.Port}, nil
			},
			executeFn: func(_ context.Context, _ string, serialPort string) (*command.Result, error) {
				return &command.Result{Kind: command.KindExecute, SerialPort: serialPort}, nil
			},
			submitFn: func(_ context.Context, _ string, req command.SubmitRequest) (*command.SubmitResult, error) {
				return &command.SubmitResult{TableID: req.TableID, SerialPort: req.SerialPort}, nil
			},
			saveFn: func(_ context.Context, _ string, tableID string) (*command.SaveResult, error) {
				return &command.SaveResult{TableID: tableID}, nil
			},
		},
		activityStub{listFn: func(_ context.Context, _ string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
			gotOpts = opts
			return []activity.ActivityEntry{{ActivityType: activity.TypeRowAdded, RowIndex: &row, Summary: "added row 2"}}, nil
		}},
	)

	out, err := handler.Handle(ctx, tenantID, "extract", mustJSON(t, CommandParams{Volume: 50, Port: 4}))
	require.NoError(t, err)
	require.Equal(t, 4, out.(*command.Result).Port)

	_, err = handler.Handle(ctx, tenantID, "dispense", mustJSON(t, CommandParams{Volume: 50, Port: 4}))
	require.NoError(t, err)

	out, err = handler.Handle(ctx, tenantID, "execute", mustJSON(t, ExecuteParams{SerialPort: "COM1"}))
	require.NoError(t, err)
	require.Equal(t, "COM1", out.(*command.Result).SerialPort)

	out, err = handler.Handle(ctx, tenantID, "submit_protocol", mustJSON(t, SubmitProtocolParams{TableID: "t1", SerialPort: "COM2"}))
	require.NoError(t, err)
	require.Equal(t, "COM2", out.(*command.SubmitResult).SerialPort)

	_, err = handler.Handle(ctx, tenantID, "save_protocol", mustJSON(t, TableParams{TableID: "t1"}))
	require.NoError(t, err)

	out, err = handler.Handle(ctx, tenantID, "get_recent_activity", mustJSON(t, GetRecentActivityParams{TableID: "t1", Row: &row, Type: "row_added", Limit: 5}))
	require.NoError(t, err)
	entries := out.(ActivityListResponse).Entries
	require.Len(t, entries, 1)
	require.Equal(t, 2, *entries[0].Row)
	require.Equal(t, "t1", gotOpts.TableID)
	require.Equal(t, 5, gotOpts.Limit)
	require.NotNil(t, gotOpts.ActivityType)
	require.Equal(t, activity.TypeRowAdded, *gotOpts.ActivityType)
}

func TestHandler_ErrorMapping(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant1"
	handler := newTestHandler(commandStub{
		extractFn: func(_ context.Context, _ string, _ command.Request) (*command.Result, error) {
			return nil, fmt.Errorf("extract: %w", &device.StatusError{Endpoint: "extract", StatusCode: 503})
		},
		executeFn: func(_ context.Context, _ string, _ string) (*command.Result, error) {
			return nil, errors.New("boom")
		},
		submitFn: func(_ context.Context, _ string, _ command.SubmitRequest) (*command.SubmitResult, error) {
			return nil, fmt.Errorf("step 1 (row 1): %w", command.ErrVolumeOutOfRange)
		},
	}, activityStub{})

	tests := []struct {
		method string
		params any
		code   string
	}{
		{"get_table", TableParams{TableID: "missing"}, CodeTableNotFound},
		{"edit_field", EditFieldParams{TableID: "missing", Field: "pressure"}, CodeInvalidInput},
		{"extract", CommandParams{Volume: 1, Port: 1}, CodeDeviceUnavailable},
		{"submit_protocol", SubmitProtocolParams{TableID: "t1"}, CodeVolumeOutOfRange},
		{"reticulate", nil, CodeUnknownMethod},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			var params json.RawMessage
			if tt.params != nil {
				params = mustJSON(t, tt.params)
			}
			_, err := handler.Handle(ctx, tenantID, tt.method, params)
			require.Error(t, err)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			require.Equal(t, tt.code, apiErr.Code)
			require.NotEmpty(t, apiErr.RecoveryHint)
		})
	}

	_, err := handler.Handle(ctx, tenantID, "execute", nil)
	require.EqualError(t, err, "boom")

	_, err = handler.Handle(ctx, tenantID, "get_table", json.RawMessage(`{"table_id":`))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, CodeInvalidInput, apiErr.Code)
}

func TestHandler_RowNotFoundAndPort(t *testing.T) {
	ctx := context.Background()
	handler := newTestHandler(commandStub{}, activityStub{})

	out, err := handler.Handle(ctx, "tenant1", "create_table", mustJSON(t, CreateTableParams{Name: "x", Rows: 1}))
	require.NoError(t, err)
	tableID := out.(*protocol.TableView).ID

	_, err = handler.Handle(ctx, "tenant1", "remove_row", mustJSON(t, RowParams{TableID: tableID, Row: 9}))
	require.Equal(t, CodeRowNotFound, MapError(err).Code)

	_, err = handler.Handle(ctx, "tenant1", "set_route", mustJSON(t, SetRouteParams{TableID: tableID, Row: 1, FromPort: 0, ToPort: 9}))
	require.Equal(t, CodeInvalidPort, MapError(err).Code)
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
