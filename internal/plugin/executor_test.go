package plugin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// scriptPlugin writes a shell script into a temp dir and returns it as a plugin.
func scriptPlugin(t *testing.T, name, script string) *Plugin {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	tmpDir := t.TempDir()
	scriptPath := filepath.Join(tmpDir, name+".sh")
	if err := os.WriteFile(scriptPath, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	return &Plugin{
		Manifest: Manifest{
			Name:       name,
			Version:    "1.0.0",
			Executable: name + ".sh",
		},
		Path:       tmpDir,
		Executable: scriptPath,
	}
}

func testRequest() *Request {
	at := time.Date(2026, 3, 2, 10, 0, 5, 0, time.UTC)
	return &Request{
		Event:     "raised",
		Alert:     "WRIST_TOO_HIGH",
		EpisodeID: "ep-1",
		At:        at,
		Since:     at.Add(-5 * time.Second),
		Message:   "Wrist too high",
		Config:    json.RawMessage(`{"sound":"Ping"}`),
	}
}

func TestExecutor_Execute(t *testing.T) {
	plugin := scriptPlugin(t, "test-plugin", `#!/bin/sh
cat <<'EOF'
{"success":true,"data":{"message":"hello world"}}
EOF
`)

	executor := NewExecutor(5 * time.Second)
	response, err := executor.Execute(context.Background(), plugin, testRequest())
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if !response.Success {
		t.Errorf("expected success=true, got false")
	}
	if response.Error != "" {
		t.Errorf("expected empty error, got %q", response.Error)
	}

	var data map[string]interface{}
	if err := json.Unmarshal(response.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}
	if data["message"] != "hello world" {
		t.Errorf("expected message 'hello world', got %v", data["message"])
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	// Echo the request back in the response
	plugin := scriptPlugin(t, "echo-plugin", `#!/bin/sh
INPUT=$(cat)
echo "{\"success\":true,\"data\":{\"received\":$INPUT}}"
`)

	executor := NewExecutor(5 * time.Second)
	response, err := executor.Execute(context.Background(), plugin, testRequest())
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	var data struct {
		Received Request `json:"received"`
	}
	if err := json.Unmarshal(response.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}

	got := data.Received
	if got.Event != "raised" || got.Alert != "WRIST_TOO_HIGH" || got.EpisodeID != "ep-1" {
		t.Errorf("received = %+v", got)
	}
	if string(got.Config) != `{"sound":"Ping"}` {
		t.Errorf("config = %s", got.Config)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	plugin := scriptPlugin(t, "slow-plugin", `#!/bin/sh
sleep 10
echo '{"success":true}'
`)

	executor := NewExecutor(100 * time.Millisecond)
	start := time.Now()
	_, err := executor.Execute(context.Background(), plugin, testRequest())

	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !strings.Contains(err.Error(), "timeout") {
		t.Errorf("expected timeout error, got: %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("Execute() took %v, the plugin was not killed", time.Since(start))
	}
}

func TestExecutor_ContextCancelled(t *testing.T) {
	plugin := scriptPlugin(t, "slow-plugin", `#!/bin/sh
sleep 10
`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	executor := NewExecutor(5 * time.Second)
	if _, err := executor.Execute(ctx, plugin, testRequest()); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestExecutor_Execute_ErrorResponse(t *testing.T) {
	plugin := scriptPlugin(t, "error-plugin", `#!/bin/sh
echo '{"success":false,"error":"something went wrong"}'
`)

	executor := NewExecutor(5 * time.Second)
	response, err := executor.Execute(context.Background(), plugin, testRequest())
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if response.Success {
		t.Errorf("expected success=false, got true")
	}
	if response.Error != "something went wrong" {
		t.Errorf("expected error 'something went wrong', got %q", response.Error)
	}
}

func TestExecutor_Execute_Failures(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{
			name:   "invalid json",
			script: "#!/bin/sh\necho 'not valid json'\n",
			want:   "failed to parse response",
		},
		{
			name:   "non-zero exit",
			script: "#!/bin/sh\necho 'Error: something failed' >&2\nexit 1\n",
			want:   "something failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plugin := scriptPlugin(t, "bad-plugin", tt.script)

			_, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, testRequest())
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestNewExecutor(t *testing.T) {
	executor := NewExecutor(3 * time.Second)
	if executor == nil {
		t.Fatal("NewExecutor() returned nil")
	}
	if executor.timeout != 3*time.Second {
		t.Errorf("expected timeout=3s, got %v", executor.timeout)
	}
}
