package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/cavrolab/flowpanel/internal/domain/activity"
	"github.com/cavrolab/flowpanel/internal/testserver"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

func call(t *testing.T, ts *testserver.TestServer, token, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.Server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestREST_RequiresKey(t *testing.T) {
	ts := testserver.New(t, "key-a", "lab-a")

	status, body := call(t, ts, "", http.MethodGet, "/api/tables", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "UNAUTHORIZED", body["error"].(map[string]any)["code"])

	status, _ = call(t, ts, "wrong", http.MethodGet, "/api/tables", nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestREST_EditAndSubmit(t *testing.T) {
	ts := testserver.New(t, "key-a", "lab-a")

	status, table := call(t, ts, ts.Token, http.MethodPost, "/api/tables", map[string]any{"name": "rinse", "rows": 1})
	require.Equal(t, http.StatusCreated, status)
	id := table["id"].(string)

	status, _ = call(t, ts, ts.Token, http.MethodPut, "/api/tables/"+id+"/rows/1/fields/seconds", map[string]any{"value": "10"})
	require.Equal(t, http.StatusOK, status)
	status, edit := call(t, ts, ts.Token, http.MethodPut, "/api/tables/"+id+"/rows/1/fields/rate", map[string]any{"value": "2"})
	require.Equal(t, http.StatusOK, status)
	row := edit["row"].(map[string]any)
	require.Equal(t, "20", row["values"].(map[string]any)["volume"])
	require.Equal(t, "volume", edit["result"].(map[string]any)["applied"])

	status, _ = call(t, ts, ts.Token, http.MethodPut, "/api/tables/"+id+"/rows/1/route", map[string]any{"from_port": 2, "to_port": 5})
	require.Equal(t, http.StatusOK, status)

	status, submitted := call(t, ts, ts.Token, http.MethodPost, "/api/tables/"+id+"/submit", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(1), submitted["steps"])
	require.Equal(t, float64(3), submitted["commands"])

	require.Equal(t, []string{
		"/extract?port=2&serial_port=%2Fdev%2FttyUSB0&volume=20",
		"/dispense?port=5&serial_port=%2Fdev%2FttyUSB0&volume=20",
		"/execute?serial_port=%2Fdev%2FttyUSB0",
	}, ts.Pump.Requests())

	status, journal := call(t, ts, ts.Token, http.MethodGet, "/api/activity?table_id="+id+"&type="+string(activity.TypeProtocolSubmitted), nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, journal["entries"], 1)
}

func TestREST_TenantsAreIsolated(t *testing.T) {
	ts := testserver.New(t, "key-a", "lab-a")
	require.NoError(t, ts.AddAPIKey("key-b", "lab-b"))

	_, table := call(t, ts, ts.Token, http.MethodPost, "/api/tables", map[string]any{"name": "mine"})
	id := table["id"].(string)

	status, body := call(t, ts, "key-b", http.MethodGet, "/api/tables/"+id, nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "TABLE_NOT_FOUND", body["error"].(map[string]any)["code"])

	_, list := call(t, ts, "key-b", http.MethodGet, "/api/tables", nil)
	require.Empty(t, list["tables"])
}

func TestREST_DeviceFailure(t *testing.T) {
	ts := testserver.New(t, "key-a", "lab-a")
	ts.Pump.SetFailing(true)

	status, body := call(t, ts, ts.Token, http.MethodPost, "/api/commands/extract", map[string]any{"volume": 50, "port": 1})

	require.Equal(t, http.StatusBadGateway, status)
	require.Equal(t, "DEVICE_UNAVAILABLE", body["error"].(map[string]any)["code"])
}

func TestREST_VolumeOutOfRange(t *testing.T) {
	ts := testserver.New(t, "key-a", "lab-a")

	status, body := call(t, ts, ts.Token, http.MethodPost, "/api/commands/dispense", map[string]any{"volume": 1000, "port": 1})

	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Equal(t, "VOLUME_OUT_OF_RANGE", body["error"].(map[string]any)["code"])
	require.Empty(t, ts.Pump.Requests())
}

type bearerTransport struct {
	token string
}

func (b *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return http.DefaultTransport.RoundTrip(req)
}

func TestMCP_StreamableHTTP(t *testing.T) {
	ts := testserver.New(t, "key-a", "lab-a")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.Server.URL + "/mcp",
		HTTPClient: &http.Client{Transport: &bearerTransport{token: ts.Token}},
		MaxRetries: -1,
	}, nil)
	require.NoError(t, err)
	defer session.Close()

	result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "create_table",
		Arguments: map[string]any{"name": "over mcp", "rows": 2},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	// The table belongs to the key's tenant, so REST sees it too.
	_, list := call(t, ts, ts.Token, http.MethodGet, "/api/tables", nil)
	tables := list["tables"].([]any)
	require.Len(t, tables, 1)
	require.Equal(t, "over mcp", tables[0].(map[string]any)["name"])
}
