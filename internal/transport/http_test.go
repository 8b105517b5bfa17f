package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type testHandler struct {
	tenant string
	method string
	params map[string]any
	result any
	err    error
}

func (h *testHandler) Handle(_ context.Context, tenantID, method string, params json.RawMessage) (any, error) {
	h.tenant = tenantID
	h.method = method
	h.params = map[string]any{}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &h.params); err != nil {
			return nil, err
		}
	}
	if h.err != nil {
		return nil, h.err
	}
	if h.result != nil {
		return h.result, nil
	}
	return map[string]string{"tenant": tenantID}, nil
}

type stubCodedError struct {
	code string
}

func (e *stubCodedError) Error() string             { return e.code }
func (e *stubCodedError) CodeValue() string         { return e.code }
func (e *stubCodedError) MessageValue() string      { return "message for " + e.code }
func (e *stubCodedError) RecoveryHintValue() string { return "hint" }

type staticResolver struct {
	tenant string
}

func (r *staticResolver) ResolveTenant(_ context.Context, token string) (string, error) {
	if token != "good" {
		return "", ErrUnauthorized
	}
	return r.tenant, nil
}

func doRequest(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestHTTPServer_Health(t *testing.T) {
	server := httptest.NewServer(NewServer(&testHandler{}, Options{}))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPServer_Index(t *testing.T) {
	rec := doRequest(t, NewServer(&testHandler{}, Options{}), http.MethodGet, "/", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	require.Contains(t, rec.Body.String(), "<title>flowpanel</title>")
}

func TestHTTPServer_CreateTable(t *testing.T) {
	handler := &testHandler{}
	router := NewServer(handler, Options{})

	rec := doRequest(t, router, http.MethodPost, "/api/tables", `{"name":"wash","rows":3}`, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "create_table", handler.method)
	require.Equal(t, DefaultTenant, handler.tenant)
	require.Equal(t, "wash", handler.params["name"])
	require.Equal(t, float64(3), handler.params["rows"])
}

func TestHTTPServer_PathParamsMerged(t *testing.T) {
	handler := &testHandler{}
	router := NewServer(handler, Options{})

	rec := doRequest(t, router, http.MethodPut, "/api/tables/t1/rows/2/fields/rate", `{"value":"5"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "edit_field", handler.method)
	require.Equal(t, map[string]any{
		"table_id": "t1",
		"row":      float64(2),
		"field":    "rate",
		"value":    "5",
	}, handler.params)
}

func TestHTTPServer_PathOverridesBody(t *testing.T) {
	handler := &testHandler{}
	router := NewServer(handler, Options{})

	rec := doRequest(t, router, http.MethodPut, "/api/tables/t1/rows/0/route", `{"table_id":"other","from_port":2,"to_port":5}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "set_route", handler.method)
	require.Equal(t, "t1", handler.params["table_id"])
	require.Equal(t, float64(2), handler.params["from_port"])
}

func TestHTTPServer_Routes(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   string
		status int
	}{
		{http.MethodGet, "/api/tables", "list_tables", http.StatusOK},
		{http.MethodGet, "/api/tables/t1", "get_table", http.StatusOK},
		{http.MethodDelete, "/api/tables/t1", "close_table", http.StatusOK},
		{http.MethodPost, "/api/tables/t1/rows", "add_row", http.StatusCreated},
		{http.MethodDelete, "/api/tables/t1/rows/3", "remove_row", http.StatusOK},
		{http.MethodPut, "/api/tables/t1/rows/3/cycle", "set_cycle", http.StatusOK},
		{http.MethodGet, "/api/tables/t1/payload", "get_payload", http.StatusOK},
		{http.MethodPost, "/api/tables/t1/submit", "submit_protocol", http.StatusOK},
		{http.MethodPost, "/api/tables/t1/save", "save_protocol", http.StatusOK},
		{http.MethodPost, "/api/commands/extract", "extract", http.StatusOK},
		{http.MethodPost, "/api/commands/dispense", "dispense", http.StatusOK},
		{http.MethodPost, "/api/commands/execute", "execute", http.StatusOK},
		{http.MethodGet, "/api/activity", "get_recent_activity", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			handler := &testHandler{}
			rec := doRequest(t, NewServer(handler, Options{}), tt.method, tt.path, "", nil)
			require.Equal(t, tt.status, rec.Code)
			require.Equal(t, tt.want, handler.method)
		})
	}
}

func TestHTTPServer_ActivityQuery(t *testing.T) {
	handler := &testHandler{}
	router := NewServer(handler, Options{})

	rec := doRequest(t, router, http.MethodGet, "/api/activity?table_id=t1&row=2&type=command_failed&limit=5", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]any{
		"table_id": "t1",
		"row":      float64(2),
		"type":     "command_failed",
		"limit":    float64(5),
	}, handler.params)
}

func TestHTTPServer_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"row not a number", http.MethodDelete, "/api/tables/t1/rows/abc", ""},
		{"limit not a number", http.MethodGet, "/api/activity?limit=lots", ""},
		{"malformed body", http.MethodPost, "/api/tables", `{"name":`},
		{"array body", http.MethodPost, "/api/tables", `[1,2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &testHandler{}
			rec := doRequest(t, NewServer(handler, Options{}), tt.method, tt.path, tt.body, nil)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, "INVALID_INPUT", decodeError(t, rec).Code)
			require.Empty(t, handler.method)
		})
	}
}

func TestHTTPServer_ErrorStatus(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{"TABLE_NOT_FOUND", http.StatusNotFound},
		{"ROW_NOT_FOUND", http.StatusNotFound},
		{"UNKNOWN_METHOD", http.StatusNotFound},
		{"INVALID_INPUT", http.StatusBadRequest},
		{"INVALID_PORT", http.StatusBadRequest},
		{"EMPTY_PROTOCOL", http.StatusBadRequest},
		{"VOLUME_OUT_OF_RANGE", http.StatusUnprocessableEntity},
		{"DEVICE_UNAVAILABLE", http.StatusBadGateway},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			handler := &testHandler{err: &stubCodedError{code: tt.code}}
			rec := doRequest(t, NewServer(handler, Options{}), http.MethodGet, "/api/tables/t1", "", nil)

			require.Equal(t, tt.status, rec.Code)
			detail := decodeError(t, rec)
			require.Equal(t, tt.code, detail.Code)
			require.Equal(t, "message for "+tt.code, detail.Message)
			require.Equal(t, "hint", detail.RecoveryHint)
		})
	}
}

func TestHTTPServer_UncodedErrorIsHidden(t *testing.T) {
	handler := &testHandler{err: errors.New("database is on fire")}
	rec := doRequest(t, NewServer(handler, Options{}), http.MethodGet, "/api/tables", "", nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	detail := decodeError(t, rec)
	require.Equal(t, "INTERNAL", detail.Code)
	require.NotContains(t, rec.Body.String(), "fire")
}

func TestHTTPServer_RPC(t *testing.T) {
	handler := &testHandler{}
	router := NewServer(handler, Options{})

	rec := doRequest(t, router, http.MethodPost, "/rpc", `{"jsonrpc":"2.0","method":"list_tables","id":1}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "list_tables", handler.method)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Nil(t, resp.Error)
	require.Equal(t, map[string]any{"tenant": DefaultTenant}, resp.Result)
}

func TestHTTPServer_RPCErrors(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"UNKNOWN_METHOD", ErrMethodNotFound},
		{"INVALID_PORT", ErrInvalidParams},
		{"DEVICE_UNAVAILABLE", ErrApplication},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			handler := &testHandler{err: &stubCodedError{code: tt.code}}
			rec := doRequest(t, NewServer(handler, Options{}), http.MethodPost, "/rpc", `{"jsonrpc":"2.0","method":"x","id":7}`, nil)

			var resp struct {
				Error struct {
					Code int         `json:"code"`
					Data errorDetail `json:"data"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.Equal(t, tt.want, resp.Error.Code)
			require.Equal(t, tt.code, resp.Error.Data.Code)
		})
	}
}

func TestHTTPServer_RPCInvalidRequest(t *testing.T) {
	handler := &testHandler{}
	rec := doRequest(t, NewServer(handler, Options{}), http.MethodPost, "/rpc", `{"jsonrpc":"1.0","method":"x"}`, nil)

	require.Contains(t, rec.Body.String(), `"code":-32600`)
	require.Empty(t, handler.method)
}

func TestHTTPServer_AuthGuardsAPI(t *testing.T) {
	handler := &testHandler{}
	router := NewServer(handler, Options{Auth: AuthMiddleware(&staticResolver{tenant: "lab"})})

	rec := doRequest(t, router, http.MethodGet, "/api/tables", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Code)

	rec = doRequest(t, router, http.MethodPost, "/rpc", `{"jsonrpc":"2.0","method":"list_tables","id":1}`, map[string]string{"Authorization": "Bearer bad"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/tables", "", map[string]string{"Authorization": "Bearer good"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "lab", handler.tenant)

	rec = doRequest(t, router, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTPServer_MountsMCP(t *testing.T) {
	called := false
	mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusAccepted)
	})
	router := NewServer(&testHandler{}, Options{
		Auth: AuthMiddleware(&staticResolver{tenant: "lab"}),
		MCP:  mcpHandler,
	})

	rec := doRequest(t, router, http.MethodPost, "/mcp", `{}`, nil)

	require.True(t, called)
	require.Equal(t, http.StatusAccepted, rec.Code)
}
