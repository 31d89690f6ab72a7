package functional_test

import (
	"context"
	"os"
	"os/exec"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/tally/internal/domain/activity"
	"github.com/stretchr/testify/require"
)

func newStdioSession(t *testing.T) *sdkmcp.ClientSession {
	t.Helper()

	binaryPath := "../../bin/tally-server"
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		t.Skip("Server binary not found. Run 'go build -o bin/tally-server ./cmd/server' first.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	cmd := exec.CommandContext(ctx, binaryPath)
	cmd.Env = append(os.Environ(),
		"TALLY_CONFIG_PATH=",
		"TALLY_TRANSPORT_MODE=stdio",
		"TALLY_STORAGE_BACKEND=memory",
		"TALLY_AUTH_ENABLED=false",
	)

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &sdkmcp.CommandTransport{Command: cmd}, nil)
	if err != nil {
		cancel()
		t.Fatalf("Failed to connect: %v", err)
	}

	t.Cleanup(func() {
		_ = session.Close()
		cancel()
	})
	return session
}

func TestStdioFunctional_ClearUser(t *testing.T) {
	session := newStdioSession(t)

	var entry activity.ActivityEntry
	callTool(t, session, "log_activity", map[string]any{"user_id": "u1", "type": "like_comment", "comment_id": "c1"}, &entry)
	callTool(t, session, "log_activity", map[string]any{"user_id": "u2", "type": "like_comment", "comment_id": "c1"}, &entry)

	var cleared struct {
		Removed int `json:"removed"`
	}
	callTool(t, session, "clear_user_activity", map[string]any{"user_id": "u1", "confirm": true}, &cleared)
	require.Equal(t, 1, cleared.Removed)

	var listed struct {
		Count int `json:"count"`
	}
	callTool(t, session, "list_user_activity", map[string]any{"user_id": "u2"}, &listed)
	require.Equal(t, 1, listed.Count)
}
