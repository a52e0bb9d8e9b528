package integration

import (
	"encoding/json"
	"net"
	"net/http"
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"
)

const binaryPath = "../cmd/authredirect/authredirect"

// writeTestConfig writes a config map to a temporary JSON file and returns its path.
// The file is automatically cleaned up when the test finishes.
func writeTestConfig(t *testing.T, cfg map[string]any) string {
	t.Helper()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal test config: %v", err)
	}
	f, err := os.CreateTemp(t.TempDir(), "config-*.json")
	if err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}
	if _, err := f.Write(data); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Failed to close temp config: %v", err)
	}
	return f.Name()
}

// buildTestConfig builds a complete authredirect config map
func buildTestConfig(baseURL, addr string, storage map[string]any) map[string]any {
	cfg := map[string]any{
		"version": "v0.0.1-DEV_EDITION",
		"baseURL": baseURL,
		"timeout": "5s",
		"server": map[string]any{
			"addr":         addr,
			"cookieMaxAge": "1h",
		},
	}
	if storage != nil {
		cfg["storage"] = storage
	}
	return cfg
}

// freeAddr reserves a loopback port and releases it for the server to bind
func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to reserve port: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

// runCLI runs the binary to completion and returns its combined output
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, append([]string{"--env-file", ""}, args...)...)
	cmd.Env = append(os.Environ(), "AUTHREDIRECT_ENV=development")
	out, err := cmd.Output()
	return string(out), err
}

// startServer starts "authredirect serve" with the given config
func startServer(t *testing.T, configPath string) *exec.Cmd {
	t.Helper()
	cmd := exec.Command(binaryPath, "--env-file", "", "--config", configPath, "serve")
	cmd.Env = append(os.Environ(), "AUTHREDIRECT_ENV=development")

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cmd.Env = append(cmd.Env, "LOG_LEVEL="+logLevel)
	}
	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		cmd.Env = append(cmd.Env, "LOG_FORMAT="+logFormat)
	}

	if logFile := os.Getenv("AUTHREDIRECT_LOG_FILE"); logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			cmd.Stderr = f
			cmd.Stdout = f
			t.Cleanup(func() { f.Close() })
		}
	}

	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start authredirect: %v", err)
	}

	t.Cleanup(func() {
		stopServer(cmd)
	})
	return cmd
}

// stopServer stops the server gracefully and returns its exit error
func stopServer(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil || cmd.ProcessState != nil {
		return nil
	}

	if err := cmd.Process.Signal(syscall.SIGINT); err != nil {
		_ = cmd.Process.Kill()
		return cmd.Wait()
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		_ = cmd.Process.Kill()
		return <-done
	}
}

// waitForServer waits for /health to answer on addr
func waitForServer(t *testing.T, addr string) {
	t.Helper()
	for i := 0; i < 50; i++ {
		resp, err := http.Get("http://" + addr + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("authredirect failed to become ready after 5 seconds")
}

// noRedirectClient returns redirects to the caller instead of following them
func noRedirectClient() *http.Client {
	return &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
