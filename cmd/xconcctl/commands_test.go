package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI 以 error 级别日志运行命令，返回退出码与 stdout、stderr。
func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	argv := append([]string{"xconcctl", "--log-level", "error"}, args...)
	code := run(context.Background(), argv, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestConfig_Defaults(t *testing.T) {
	code, out, _ := runCLI(t, "config")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "core_size: 3")
	assert.Contains(t, out, "rejection_policy: abort")
	assert.Contains(t, out, "level: error")
}

func TestConfig_FromFileAsJSON(t *testing.T) {
	path := writeConfig(t, "xconc.yaml", "pool:\n  core_size: 2\n  max_size: 4\n  rejection_policy: discard_oldest\n")

	code, out, _ := runCLI(t, "--config", path, "config", "--format", "json")
	require.Equal(t, 0, code)
	assert.Contains(t, out, `"core_size":2`)
	assert.Contains(t, out, `"rejection_policy":"discard_oldest"`)
}

func TestConfig_Errors(t *testing.T) {
	code, _, stderr := runCLI(t, "config", "--format", "toml")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "参数错误")

	code, _, _ = runCLI(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "config")
	assert.Equal(t, 1, code)

	bad := writeConfig(t, "bad.yaml", "pool:\n  core_size: 9\n  max_size: 2\n")
	code, _, _ = runCLI(t, "--config", bad, "config")
	assert.Equal(t, 1, code)
}

func TestGlobalFlags_InvalidLogLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"xconcctl", "--log-level", "loud", "config"}, &stdout, &stderr)
	assert.Equal(t, 2, code)
}

func TestGlobalFlags_LogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "xconcctl.log")
	var stdout, stderr bytes.Buffer
	code := run(context.Background(),
		[]string{"xconcctl", "--log-level", "info", "--log-format", "json", "--log-file", logFile,
			"pool", "--tasks", "2", "--task-duration", "1ms"},
		&stdout, &stderr)
	require.Equal(t, 0, code)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"xconcctl"`)
	assert.Empty(t, stderr.String())
}

func TestPool_CompletesAllTasks(t *testing.T) {
	code, out, _ := runCLI(t, "pool", "--tasks", "10", "--task-duration", "1ms",
		"--core", "2", "--max", "2", "--queue", "20")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "state=terminated submitted=10 completed=10 failed=0 rejected=0")
}

func TestPool_AbortRejects(t *testing.T) {
	code, out, _ := runCLI(t, "pool", "--tasks", "5", "--task-duration", "200ms",
		"--core", "1", "--max", "1", "--queue", "0", "--policy", "abort")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "completed=1 failed=0 rejected=4")
}

func TestPool_CallerRuns(t *testing.T) {
	code, out, _ := runCLI(t, "pool", "--tasks", "5", "--task-duration", "50ms",
		"--core", "1", "--max", "1", "--queue", "0", "--policy", "caller_runs")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "rejected=0")
	// worker 空闲后会接走后续任务，调用方执行的数量取决于调度。
	assert.Regexp(t, `caller_runs=[1-4]`, out)
}

func TestPool_ForcedShutdownDiscardsQueue(t *testing.T) {
	code, out, _ := runCLI(t, "pool", "--tasks", "6", "--task-duration", "10s",
		"--core", "1", "--max", "1", "--queue", "10", "--shutdown-timeout", "50ms")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "state=terminated")
	assert.Contains(t, out, "discarded=5")
}

func TestPool_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown policy", []string{"pool", "--policy", "drop_everything"}},
		{"core above max", []string{"pool", "--core", "4", "--max", "2"}},
		{"negative tasks", []string{"pool", "--tasks", "-1"}},
		{"watch without config", []string{"pool", "--watch"}},
		{"unknown flag", []string{"pool", "--no-such-flag"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := runCLI(t, tt.args...)
			assert.Equal(t, 2, code)
		})
	}
}

func TestBuffer_AllItemsConsumed(t *testing.T) {
	code, out, _ := runCLI(t, "buffer", "--capacity", "2", "--producers", "3", "--consumers", "2", "--items", "10")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "produced=30 consumed=30 checksum_ok=true")
}

func TestBuffer_UsageErrors(t *testing.T) {
	code, _, _ := runCLI(t, "buffer", "--capacity", "0")
	assert.Equal(t, 2, code)

	code, _, _ = runCLI(t, "buffer", "--producers", "0")
	assert.Equal(t, 2, code)
}

func TestDeadlock_InProcess(t *testing.T) {
	code, out, _ := runCLI(t, "deadlock", "--timeout-a", "300ms", "--timeout-b", "300ms", "--hold", "50ms")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "worker 1 round 1:")
	assert.Contains(t, out, "worker 2 round 1:")
	assert.Regexp(t, `acquired=\d gave_up=\d`, out)
}

func TestDeadlock_OppositeOrderTimesOutInsteadOfHanging(t *testing.T) {
	// 两个 worker 都在持有第一把锁时等待对方的锁，先超时的一方放弃并释放。
	code, out, _ := runCLI(t, "deadlock", "--timeout-a", "1s", "--timeout-b", "100ms", "--hold", "300ms")
	require.Equal(t, 0, code)
	assert.Regexp(t, `worker \d round 1: lock lock-[ab] \(B\) timed out, gave up`, out)
	assert.Regexp(t, `acquired=[01] gave_up=[12]`, out)
}

func TestDeadlock_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	code, out, _ := runCLI(t, "deadlock", "--redis", mr.Addr(),
		"--timeout-a", "500ms", "--timeout-b", "500ms", "--hold", "10ms", "--retry", "--rounds", "2")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "worker 2 round 2:")
}

func TestDeadlock_UsageErrors(t *testing.T) {
	code, _, _ := runCLI(t, "deadlock", "--lock-a", "x", "--lock-b", "x")
	assert.Equal(t, 2, code)

	code, _, _ = runCLI(t, "deadlock", "--rounds", "0")
	assert.Equal(t, 2, code)

	code, _, stderr := runCLI(t, "deadlock", "--redis", "127.0.0.1:6379", "--etcd", "127.0.0.1:2379")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "mutually exclusive")
}

func TestDeadlock_RedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	code, _, _ := runCLI(t, "deadlock", "--redis", addr)
	assert.Equal(t, 1, code)
}

func TestDeadlock_EtcdUnavailable(t *testing.T) {
	path := writeConfig(t, "xconc.yaml", "lock:\n  etcd:\n    dial_timeout: 200ms\n")

	code, _, _ := runCLI(t, "--config", path, "deadlock", "--etcd", "127.0.0.1:1")
	assert.Equal(t, 1, code)
}
