package variable

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skald-ai/skald/internal/source"
)

func testEvaluator(t *testing.T) *source.Evaluator {
	t.Helper()
	return source.NewEvaluator(source.Env{
		Shell:        "/bin/sh",
		WorkDir:      t.TempDir(),
		PollInterval: 10 * time.Millisecond,
	})
}

func TestNewBindingIsLive(t *testing.T) {
	b := New("ctx", source.Literal("value"))
	assert.Equal(t, "ctx", b.Name())
	assert.False(t, b.IsFrozen())
	assert.Equal(t, "[static]", b.Status())
}

func TestFreezeUnfreeze(t *testing.T) {
	ev := testEvaluator(t)
	b := New("f", source.File(writeTemp(t, "first")))

	require.NoError(t, b.Freeze(ev))
	assert.True(t, b.IsFrozen())
	assert.Equal(t, "[frozen]", b.Status())
	val, ok := b.FrozenValue()
	assert.True(t, ok)
	assert.Equal(t, "first", val)

	b.Unfreeze()
	assert.False(t, b.IsFrozen())
	assert.Equal(t, "[live]", b.Status())
}

func TestFreezeTwiceKeepsLatest(t *testing.T) {
	ev := testEvaluator(t)
	path := writeTemp(t, "old")
	b := New("f", source.File(path))

	require.NoError(t, b.Freeze(ev))
	require.NoError(t, os.WriteFile(path, []byte("new"), 0o644))
	require.NoError(t, b.Freeze(ev))

	val, _ := b.FrozenValue()
	assert.Equal(t, "new", val)
}

func TestFreezeFailureLeavesBindingIntact(t *testing.T) {
	ev := testEvaluator(t)

	// A live binding stays live.
	live := New("x", source.File("no/such/file"))
	require.Error(t, live.Freeze(ev))
	assert.False(t, live.IsFrozen())

	// A frozen binding keeps its previous snapshot.
	path := writeTemp(t, "kept")
	frozen := New("y", source.File(path))
	require.NoError(t, frozen.Freeze(ev))
	require.NoError(t, os.Remove(path))
	require.Error(t, frozen.Freeze(ev))
	val, ok := frozen.FrozenValue()
	assert.True(t, ok)
	assert.Equal(t, "kept", val)
}

func TestUnfreezeNeverFrozenIsNoop(t *testing.T) {
	b := New("x", source.Literal("v"))
	b.Unfreeze()
	assert.False(t, b.IsFrozen())
}

func TestReload(t *testing.T) {
	ev := testEvaluator(t)
	path := writeTemp(t, "v1")
	b := New("r", source.File(path))

	// Live reload is a documented no-op: live bindings evaluate per use.
	require.NoError(t, b.Reload(ev))
	assert.False(t, b.IsFrozen())

	require.NoError(t, b.Freeze(ev))
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	require.NoError(t, b.Reload(ev))
	val, _ := b.FrozenValue()
	assert.Equal(t, "v2", val)
}

func TestValueUsesSnapshotWhenFrozen(t *testing.T) {
	ev := testEvaluator(t)
	path := writeTemp(t, "snapshot")
	b := New("v", source.File(path))

	require.NoError(t, b.Freeze(ev))
	require.NoError(t, os.WriteFile(path, []byte("changed"), 0o644))

	res, err := b.Value(ev)
	require.NoError(t, err)
	assert.Equal(t, "snapshot", res.Text)

	b.Unfreeze()
	res, err = b.Value(ev)
	require.NoError(t, err)
	assert.Equal(t, "changed", res.Text)
}

func TestBindingJSONRoundTrip(t *testing.T) {
	ev := testEvaluator(t)
	b := New("code", source.File(writeTemp(t, "body")))
	require.NoError(t, b.Freeze(ev))

	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"frozen":true`)

	var decoded Binding
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, b.Name(), decoded.Name())
	assert.Equal(t, b.Source(), decoded.Source())
	assert.True(t, decoded.IsFrozen())
	val, _ := decoded.FrozenValue()
	assert.Equal(t, "body", val)
}

func TestDeriveName(t *testing.T) {
	assert.Equal(t, "main", DeriveName("src/main.go"))
	assert.Equal(t, "my_notes", DeriveName("my notes.txt"))
	assert.Equal(t, "data", DeriveName("/tmp/data"))
	assert.Equal(t, "_gitignore", DeriveName(".gitignore"))
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "value.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
