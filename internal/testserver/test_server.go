package testserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/cavrolab/flowpanel/internal/app"
	"github.com/cavrolab/flowpanel/internal/config"
	"github.com/cavrolab/flowpanel/internal/sqlite"
	"github.com/stretchr/testify/require"
)

// TestServer runs the full HTTP stack against an in-memory database and a
// fake pump controller.
type TestServer struct {
	Server   *httptest.Server
	Pump     *FakePump
	DB       *sqlite.DB
	App      *app.App
	Token    string
	TenantID string
}

// New starts a server with bearer auth enabled and registers token for
// tenantID.
func New(t *testing.T, token, tenantID string) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	pump := newFakePump()

	cfg := config.Default()
	cfg.Auth.Enabled = true
	cfg.Device.BaseURL = pump.server.URL
	cfg.Device.SerialPort = "/dev/ttyUSB0"

	application := app.New(cfg, db, "test", nil)
	server := httptest.NewServer(application.Router())

	ts := &TestServer{
		Server:   server,
		Pump:     pump,
		DB:       db,
		App:      application,
		Token:    token,
		TenantID: tenantID,
	}

	require.NoError(t, ts.AddAPIKey(token, tenantID))

	t.Cleanup(func() {
		server.Close()
		pump.server.Close()
		_ = db.Close()
	})

	return ts
}

// AddAPIKey registers another bearer token.
func (ts *TestServer) AddAPIKey(token, tenantID string) error {
	return ts.App.Keys.Add(context.Background(), token, tenantID, "test")
}

// FakePump records the requests the device client sends.
type FakePump struct {
	server *httptest.Server

	mu       sync.Mutex
	requests []string
	failing  bool
}

func newFakePump() *FakePump {
	p := &FakePump{}
	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.requests = append(p.requests, r.URL.Path+"?"+r.URL.RawQuery)
		if p.failing {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	return p
}

// Requests returns the received request paths with their query strings.
func (p *FakePump) Requests() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.requests...)
}

// SetFailing makes every following request answer 500.
func (p *FakePump) SetFailing(failing bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failing = failing
}
