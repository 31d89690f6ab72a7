package transport

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rpggio/tally/internal/domain/activity"
	"github.com/rpggio/tally/internal/kv/memory"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts ServerOptions) (*httptest.Server, *activity.Service) {
	t.Helper()
	store := memory.New()
	t.Cleanup(func() { _ = store.Close() })

	var clock int64 = 1_700_000_000_000
	svc := activity.NewService(store, nil, activity.WithClock(func() time.Time {
		clock++
		return time.UnixMilli(clock)
	}))

	server := httptest.NewServer(NewServer(svc, opts))
	t.Cleanup(server.Close)
	return server, svc
}

func doRequest(t *testing.T, method, url string, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHTTPServer_Health(t *testing.T) {
	server, _ := newTestServer(t, ServerOptions{})

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPServer_AppendAndSummary(t *testing.T) {
	server, _ := newTestServer(t, ServerOptions{})
	base := server.URL + "/v1/users/u1"

	resp := doRequest(t, http.MethodPost, base+"/activities", `{"type":"upvote","data":{"issueId":"i1"}}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	entry := decode[activity.ActivityEntry](t, resp)
	require.Equal(t, "u1", entry.UserID)
	require.Equal(t, activity.TypeUpvote, entry.Type)
	require.NotEmpty(t, entry.ID)

	resp = doRequest(t, http.MethodPost, base+"/activities", `{"type":"comment","data":{"issueId":"i1","commentId":"c1","content":"hi"}}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, base+"/summary", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decode[activity.Summary](t, resp)
	require.Equal(t, 1, summary.UpvotesGiven)
	require.Equal(t, 1, summary.CommentsMade)
	require.Equal(t, 2, summary.TotalEngagement)
	require.Len(t, summary.Activities, 2)
	require.Equal(t, activity.TypeComment, summary.Activities[0].Type)
}

func TestHTTPServer_AppendRejectsBadInput(t *testing.T) {
	server, _ := newTestServer(t, ServerOptions{})
	url := server.URL + "/v1/users/u1/activities"

	resp := doRequest(t, http.MethodPost, url, `not json`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "INVALID_BODY", decode[errorResponse](t, resp).Code)

	resp = doRequest(t, http.MethodPost, url, `{"type":"bookmark"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "UNKNOWN_TYPE", decode[errorResponse](t, resp).Code)
}

func TestHTTPServer_AppendDroppedIsUnavailable(t *testing.T) {
	store := memory.New()
	svc := activity.NewService(store, nil)
	require.NoError(t, store.Close())

	server := httptest.NewServer(NewServer(svc, ServerOptions{}))
	t.Cleanup(server.Close)

	resp := doRequest(t, http.MethodPost, server.URL+"/v1/users/u1/activities", `{"type":"upvote","data":{"issueId":"i1"}}`)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, "NOT_RECORDED", decode[errorResponse](t, resp).Code)
}

func TestHTTPServer_List(t *testing.T) {
	server, svc := newTestServer(t, ServerOptions{})
	ctx := t.Context()
	for _, issue := range []string{"i1", "i2", "i3"} {
		_, ok := svc.Append(ctx, "u1", activity.TypeUpvote, activity.ActivityData{IssueID: issue})
		require.True(t, ok)
	}
	_, ok := svc.Append(ctx, "u1", activity.TypeComment, activity.ActivityData{IssueID: "i1", CommentID: "c1"})
	require.True(t, ok)

	resp := doRequest(t, http.MethodGet, server.URL+"/v1/users/u1/activities?type=upvote&limit=2&offset=1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := decode[[]activity.ActivityEntry](t, resp)
	require.Len(t, entries, 2)
	require.Equal(t, "i2", entries[0].Data.IssueID)
	require.Equal(t, "i1", entries[1].Data.IssueID)

	resp = doRequest(t, http.MethodGet, server.URL+"/v1/users/u1/activities?type=comment,upvote", "")
	require.Len(t, decode[[]activity.ActivityEntry](t, resp), 4)

	resp = doRequest(t, http.MethodGet, server.URL+"/v1/users/u1/activities?limit=-1", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, server.URL+"/v1/users/u1/activities?type=bogus", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTPServer_ListUnknownUserIsEmpty(t *testing.T) {
	server, _ := newTestServer(t, ServerOptions{})

	resp := doRequest(t, http.MethodGet, server.URL+"/v1/users/nobody/activities", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(body))
}

func TestHTTPServer_Export(t *testing.T) {
	server, svc := newTestServer(t, ServerOptions{})
	_, ok := svc.Append(t.Context(), "u1", activity.TypeUpvote, activity.ActivityData{IssueID: "i1"})
	require.True(t, ok)

	resp := doRequest(t, http.MethodGet, server.URL+"/v1/users/u1/export", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.Contains(t, resp.Header.Get("Content-Disposition"), "activity-u1.json")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, svc.ExportForUser(t.Context(), "u1"), string(body))
}

func TestHTTPServer_ClearAndStats(t *testing.T) {
	server, svc := newTestServer(t, ServerOptions{})
	ctx := t.Context()
	for _, user := range []string{"u1", "u1", "u2"} {
		_, ok := svc.Append(ctx, user, activity.TypeUpvote, activity.ActivityData{IssueID: "i1"})
		require.True(t, ok)
	}

	resp := doRequest(t, http.MethodDelete, server.URL+"/v1/users/u1/activities", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 2, decode[ClearResponse](t, resp).Removed)

	resp = doRequest(t, http.MethodGet, server.URL+"/v1/stats", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode[activity.LogStats](t, resp)
	require.Equal(t, 1, stats.Entries)
	require.Equal(t, 1, stats.Users)
	require.Equal(t, activity.MaxActivities, stats.MaxEntries)
}

func TestHTTPServer_AuthGuardsAPI(t *testing.T) {
	resolver := NewKeyResolver(map[string]string{HashToken("secret"): "moderator"})
	server, _ := newTestServer(t, ServerOptions{Auth: AuthMiddleware(resolver)})

	resp := doRequest(t, http.MethodGet, server.URL+"/v1/stats", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/v1/stats", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret")
	authed, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer authed.Body.Close()
	require.Equal(t, http.StatusOK, authed.StatusCode)

	health := doRequest(t, http.MethodGet, server.URL+"/health", "")
	require.Equal(t, http.StatusOK, health.StatusCode)
}

func TestHTTPServer_MountsMetricsAndMCP(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("metrics"))
	})
	mcpCalled := false
	mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mcpCalled = true
		w.WriteHeader(http.StatusAccepted)
	})
	server, _ := newTestServer(t, ServerOptions{Metrics: metrics, MCP: mcpHandler})

	resp := doRequest(t, http.MethodGet, server.URL+"/metrics", "")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "metrics", string(body))

	resp = doRequest(t, http.MethodPost, server.URL+"/mcp", `{}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.True(t, mcpCalled)
}
