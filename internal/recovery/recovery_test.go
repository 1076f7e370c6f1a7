package recovery

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/skald-ai/skald/internal/source"
	"github.com/skald-ai/skald/internal/template"
	"github.com/skald-ai/skald/internal/variable"
)

func testEvaluator(t *testing.T, workDir string) *source.Evaluator {
	t.Helper()
	return source.NewEvaluator(source.Env{
		Shell:        "/bin/sh",
		WorkDir:      workDir,
		PollInterval: 10 * time.Millisecond,
	})
}

func TestResolveCleanSubstitution(t *testing.T) {
	tbl := variable.NewTable()
	tbl.Set(variable.New("x", source.Literal("1")))

	decider := Fixed(ChoiceAbort) // must never be consulted
	out, err := Resolve("v={{x}}", tbl, testEvaluator(t, t.TempDir()), decider)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if out.Action != ActionSend || out.Text != "v=1" {
		t.Errorf("got action %d text %q", out.Action, out.Text)
	}
}

func TestResolveSkipStripsAllTokens(t *testing.T) {
	tbl := variable.NewTable()
	tbl.Set(variable.New("ok", source.Literal("fine")))
	tbl.Set(variable.New("bad", source.File("missing.txt")))

	out, err := Resolve("a {{ok}} b {{bad}} c", tbl, testEvaluator(t, t.TempDir()), Fixed(ChoiceSkip))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	// Skip sends something rather than a misleading partial: succeeded
	// tokens are stripped along with the failed ones.
	if out.Text != "a  b  c" {
		t.Errorf("got %q", out.Text)
	}
}

func TestResolveAbort(t *testing.T) {
	tbl := variable.NewTable()
	tbl.Set(variable.New("bad", source.File("missing.txt")))

	out, err := Resolve("{{bad}}", tbl, testEvaluator(t, t.TempDir()), Fixed(ChoiceAbort))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if out.Action != ActionAbort || out.Text != "" {
		t.Errorf("got action %d text %q", out.Action, out.Text)
	}
}

func TestResolveEditSource(t *testing.T) {
	tbl := variable.NewTable()
	tbl.Set(variable.New("bad", source.File("missing.txt")))

	out, err := Resolve("{{bad}}", tbl, testEvaluator(t, t.TempDir()), Fixed(ChoiceEditSource))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if out.Action != ActionEdit {
		t.Errorf("got action %d", out.Action)
	}
}

func TestResolveRetryAfterTransientFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "late.txt")
	tbl := variable.NewTable()
	tbl.Set(variable.New("late", source.File(path)))

	// First decision fixes the problem and retries, mimicking a lock
	// file clearing between attempts.
	attempts := 0
	decider := DeciderFunc(func(failures []template.Failure) (Choice, error) {
		attempts++
		if err := os.WriteFile(path, []byte("arrived"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		return ChoiceRetry, nil
	})

	out, err := Resolve("{{late}}", tbl, testEvaluator(t, dir), decider)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if attempts != 1 {
		t.Errorf("decider consulted %d times, want 1", attempts)
	}
	if out.Action != ActionSend || out.Text != "arrived" {
		t.Errorf("got action %d text %q", out.Action, out.Text)
	}
}

func TestResolveReportsAllFailuresInOneDecision(t *testing.T) {
	tbl := variable.NewTable()
	tbl.Set(variable.New("a", source.File("missing_a")))
	tbl.Set(variable.New("b", source.File("missing_b")))

	var seen int
	decider := DeciderFunc(func(failures []template.Failure) (Choice, error) {
		seen = len(failures)
		return ChoiceAbort, nil
	})

	if _, err := Resolve("{{a}} {{b}}", tbl, testEvaluator(t, t.TempDir()), decider); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if seen != 2 {
		t.Errorf("decider saw %d failures, want 2", seen)
	}
}
