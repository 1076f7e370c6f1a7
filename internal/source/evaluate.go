package source

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/skald-ai/skald/internal/logging"
)

// ErrKind classifies evaluation failures.
type ErrKind int

const (
	// KindNotFound means a file source's path does not exist.
	KindNotFound ErrKind = iota
	// KindPermission means a file source's path is not readable.
	KindPermission
	// KindIO covers any other filesystem or wait failure.
	KindIO
	// KindSpawn means the command or shell could not be started.
	KindSpawn
	// KindTimeout means a command exceeded its wall-clock bound and was killed.
	KindTimeout
)

// EvalError describes a failed source evaluation. A command's non-zero exit
// status is deliberately not represented here: it is a successful evaluation
// whose Result carries a warning instead.
type EvalError struct {
	Kind    ErrKind
	Source  Source
	Timeout time.Duration // set when Kind is KindTimeout
	Err     error
}

func (e *EvalError) Error() string {
	switch e.Kind {
	case KindTimeout:
		return fmt.Sprintf("command %q timed out after %s", e.Source.Text(), e.Timeout)
	case KindSpawn:
		return fmt.Sprintf("failed to spawn command %q: %v", e.Source.Text(), e.Err)
	case KindNotFound, KindPermission, KindIO:
		if e.Source.Type() == TypeFile {
			return fmt.Sprintf("failed to read file %q: %v", e.Source.Text(), e.Err)
		}
	}
	return fmt.Sprintf("evaluation failed: %v", e.Err)
}

func (e *EvalError) Unwrap() error { return e.Err }

// Env is the externally-injected execution environment for an Evaluator.
// Resolving it per evaluator, rather than reading process globals at call
// sites, keeps tests deterministic.
type Env struct {
	// Shell is the program used to run command sources via `shell -c`.
	Shell string
	// WorkDir is where files are resolved and commands run. Empty means
	// the current process working directory.
	WorkDir string
	// PollInterval is how often a running command is checked against its
	// deadline.
	PollInterval time.Duration
}

// DefaultEnv resolves the user's preferred shell from SKALD_SHELL, then
// SHELL, falling back to /bin/sh.
func DefaultEnv() Env {
	shell := os.Getenv("SKALD_SHELL")
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}
	return Env{
		Shell:        shell,
		PollInterval: 50 * time.Millisecond,
	}
}

// Evaluator produces the current text value of a Source. It owns the only
// side-effecting logic in the variable system: filesystem reads and process
// spawns.
type Evaluator struct {
	env Env
}

// NewEvaluator creates an evaluator bound to the given environment.
func NewEvaluator(env Env) *Evaluator {
	if env.Shell == "" {
		env.Shell = DefaultEnv().Shell
	}
	if env.PollInterval <= 0 {
		env.PollInterval = 50 * time.Millisecond
	}
	return &Evaluator{env: env}
}

// Result is a successful evaluation. Warning is non-empty when a command
// exited non-zero; its output is still returned because tools like diff and
// grep use a non-zero exit to mean "no match", not "broken".
type Result struct {
	Text    string
	Warning string
}

// Evaluate returns the current value of src. Literal sources cannot fail;
// file and command failures come back as *EvalError.
func (ev *Evaluator) Evaluate(src Source) (Result, error) {
	switch src.Type() {
	case TypeLiteral:
		return Result{Text: src.Text()}, nil
	case TypeFile:
		return ev.readFile(src)
	case TypeCommand:
		return ev.runCommand(src)
	}
	return Result{}, &EvalError{Kind: KindIO, Source: src, Err: fmt.Errorf("unknown source type %d", src.Type())}
}

func (ev *Evaluator) readFile(src Source) (Result, error) {
	path := src.Text()
	if ev.env.WorkDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(ev.env.WorkDir, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		kind := KindIO
		switch {
		case errors.Is(err, fs.ErrNotExist):
			kind = KindNotFound
		case errors.Is(err, fs.ErrPermission):
			kind = KindPermission
		}
		return Result{}, &EvalError{Kind: kind, Source: src, Err: err}
	}
	// Bytes pass through as opaque text; no re-encoding.
	return Result{Text: string(data)}, nil
}

func (ev *Evaluator) runCommand(src Source) (Result, error) {
	timeout := time.Duration(src.TimeoutSecs()) * time.Second

	cmd := exec.Command(ev.env.Shell, "-c", src.Text())
	cmd.Dir = ev.env.WorkDir
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Own process group so a timeout kill reaches child processes too.
	if runtime.GOOS != "windows" {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}

	if err := cmd.Start(); err != nil {
		return Result{}, &EvalError{Kind: KindSpawn, Source: src, Err: err}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	deadline := time.Now().Add(timeout)
	tick := time.NewTicker(ev.env.PollInterval)
	defer tick.Stop()

	for {
		select {
		case err := <-done:
			if err != nil {
				var exitErr *exec.ExitError
				if !errors.As(err, &exitErr) {
					return Result{}, &EvalError{Kind: KindIO, Source: src, Err: err}
				}
				// Non-zero exit is a soft condition: keep the output.
				warning := fmt.Sprintf("command exited with status %d", exitErr.ExitCode())
				logging.Warn().
					Str("command", src.Text()).
					Int("exit", exitErr.ExitCode()).
					Msg("command source exited non-zero")
				return Result{Text: stdout.String(), Warning: warning}, nil
			}
			return Result{Text: stdout.String()}, nil

		case <-tick.C:
			if time.Now().After(deadline) {
				ev.kill(cmd)
				return Result{}, &EvalError{Kind: KindTimeout, Source: src, Timeout: timeout}
			}
		}
	}
}

// kill forcibly terminates the command's process group.
func (ev *Evaluator) kill(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid

	if runtime.GOOS == "windows" {
		_ = cmd.Process.Kill()
		return
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		_ = cmd.Process.Kill()
	}
}
