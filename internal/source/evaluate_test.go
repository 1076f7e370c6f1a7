package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	return NewEvaluator(Env{
		Shell:        "/bin/sh",
		WorkDir:      t.TempDir(),
		PollInterval: 10 * time.Millisecond,
	})
}

func TestEvaluateLiteral(t *testing.T) {
	res, err := testEvaluator(t).Evaluate(Literal("x"))
	require.NoError(t, err)
	assert.Equal(t, "x", res.Text)
	assert.Empty(t, res.Warning)
}

func TestEvaluateFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "value.txt")
	require.NoError(t, os.WriteFile(path, []byte("file content\n"), 0o644))

	res, err := NewEvaluator(Env{Shell: "/bin/sh"}).Evaluate(File(path))
	require.NoError(t, err)
	assert.Equal(t, "file content\n", res.Text)
}

func TestEvaluateFileRelativeToWorkDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rel.txt"), []byte("rel"), 0o644))

	ev := NewEvaluator(Env{Shell: "/bin/sh", WorkDir: dir})
	res, err := ev.Evaluate(File("rel.txt"))
	require.NoError(t, err)
	assert.Equal(t, "rel", res.Text)
}

func TestEvaluateFileNotFound(t *testing.T) {
	_, err := testEvaluator(t).Evaluate(File("does/not/exist.txt"))
	require.Error(t, err)

	var evalErr *EvalError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, KindNotFound, evalErr.Kind)
	assert.Contains(t, evalErr.Error(), "does/not/exist.txt")
}

func TestEvaluateCommand(t *testing.T) {
	res, err := testEvaluator(t).Evaluate(CommandWithTimeout("echo hello", 5))
	require.NoError(t, err)
	assert.Equal(t, "hello", strings.TrimSpace(res.Text))
	assert.Empty(t, res.Warning)
}

func TestEvaluateCommandNonZeroExit(t *testing.T) {
	// diff/grep-style tools use non-zero exit to mean "no match"; the
	// output must survive and the exit becomes a warning, not an error.
	res, err := testEvaluator(t).Evaluate(CommandWithTimeout("sh -c 'echo output; exit 1'", 5))
	require.NoError(t, err)
	assert.Contains(t, res.Text, "output")
	assert.Contains(t, res.Warning, "status 1")
}

func TestEvaluateCommandStderrNotCaptured(t *testing.T) {
	res, err := testEvaluator(t).Evaluate(CommandWithTimeout("echo visible; echo hidden >&2", 5))
	require.NoError(t, err)
	assert.Contains(t, res.Text, "visible")
	assert.NotContains(t, res.Text, "hidden")
}

func TestEvaluateCommandTimeout(t *testing.T) {
	start := time.Now()
	_, err := testEvaluator(t).Evaluate(CommandWithTimeout("sleep 10", 1))
	elapsed := time.Since(start)

	require.Error(t, err)
	var evalErr *EvalError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, KindTimeout, evalErr.Kind)
	assert.Equal(t, time.Second, evalErr.Timeout)
	// The bound is on the timeout, not on the command's own duration.
	assert.Less(t, elapsed, 3*time.Second)
}

func TestEvaluateCommandSpawnFailure(t *testing.T) {
	ev := NewEvaluator(Env{Shell: "/nonexistent/shell", PollInterval: 10 * time.Millisecond})
	_, err := ev.Evaluate(Command("echo hi"))
	require.Error(t, err)

	var evalErr *EvalError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, KindSpawn, evalErr.Kind)
}

func TestEvaluateCommandRunsInWorkDir(t *testing.T) {
	dir := t.TempDir()
	ev := NewEvaluator(Env{Shell: "/bin/sh", WorkDir: dir, PollInterval: 10 * time.Millisecond})
	res, err := ev.Evaluate(CommandWithTimeout("pwd", 5))
	require.NoError(t, err)

	got, evalErr := filepath.EvalSymlinks(strings.TrimSpace(res.Text))
	require.NoError(t, evalErr)
	want, evalErr := filepath.EvalSymlinks(dir)
	require.NoError(t, evalErr)
	assert.Equal(t, want, got)
}

func TestDefaultEnvShellOverride(t *testing.T) {
	t.Setenv("SKALD_SHELL", "/bin/dash")
	assert.Equal(t, "/bin/dash", DefaultEnv().Shell)

	t.Setenv("SKALD_SHELL", "")
	t.Setenv("SHELL", "/bin/zsh")
	assert.Equal(t, "/bin/zsh", DefaultEnv().Shell)

	t.Setenv("SHELL", "")
	assert.Equal(t, "/bin/sh", DefaultEnv().Shell)
}
