package testserver

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rpggio/tally/internal/domain/activity"
	"github.com/rpggio/tally/internal/mcp"
	"github.com/rpggio/tally/internal/sqlite"
	"github.com/rpggio/tally/internal/telemetry"
	"github.com/rpggio/tally/internal/transport"
	"github.com/stretchr/testify/require"
)

// TestServer runs the full HTTP stack over an in-memory SQLite slot store.
type TestServer struct {
	Server    *httptest.Server
	Activity  *activity.Service
	Registry  *prometheus.Registry
	Token     string
	Principal string
}

func New(t *testing.T, token, principal string, opts ...activity.Option) *TestServer {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	store := sqlite.NewSlotStore(db)

	registry := prometheus.NewRegistry()
	metrics := telemetry.New(registry)
	activitySvc := activity.NewService(store, nil, append([]activity.Option{activity.WithObserver(metrics.Observe)}, opts...)...)
	metrics.TrackLog(activitySvc)

	resolver := transport.NewKeyResolver(map[string]string{transport.HashToken(token): principal})
	mcpServer := mcp.NewServer(mcp.Config{
		Activity:      activitySvc,
		Resolver:      resolver,
		AuthEnabled:   true,
		TransportMode: "http",
	})

	server := httptest.NewServer(transport.NewServer(activitySvc, transport.ServerOptions{
		Auth:    transport.AuthMiddleware(resolver),
		Metrics: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		MCP:     mcp.NewHTTPHandler(mcpServer),
	}))

	t.Cleanup(func() {
		server.Close()
		_ = store.Close()
	})

	return &TestServer{
		Server:    server,
		Activity:  activitySvc,
		Registry:  registry,
		Token:     token,
		Principal: principal,
	}
}

// URL joins path onto the server's base URL.
func (ts *TestServer) URL(path string) string {
	return ts.Server.URL + path
}
