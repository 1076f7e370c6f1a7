package source

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLiteral(t *testing.T) {
	src, err := Parse("=hello world")
	require.NoError(t, err)
	assert.Equal(t, TypeLiteral, src.Type())
	assert.Equal(t, "hello world", src.Text())
}

func TestParseLiteralEmptyPayload(t *testing.T) {
	src, err := Parse("=")
	require.NoError(t, err)
	assert.Equal(t, TypeLiteral, src.Type())
	assert.Equal(t, "", src.Text())
}

func TestParseFile(t *testing.T) {
	src, err := Parse("@src/main.go")
	require.NoError(t, err)
	assert.Equal(t, TypeFile, src.Type())
	assert.Equal(t, "src/main.go", src.Text())
}

func TestParseCommand(t *testing.T) {
	src, err := Parse("!echo hello")
	require.NoError(t, err)
	assert.Equal(t, TypeCommand, src.Type())
	assert.Equal(t, "echo hello", src.Text())
	assert.Equal(t, DefaultCommandTimeout, src.TimeoutSecs())
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{"no_prefix", "", "#foo", " =leading space"} {
		_, err := Parse(input)
		require.Error(t, err, "input %q", input)
		var perr *ParseError
		require.ErrorAs(t, err, &perr)
		// The message is user-facing contract: it must enumerate the
		// three valid prefixes.
		for _, prefix := range []string{"=text", "@path", "!cmd"} {
			assert.Contains(t, perr.Error(), prefix)
		}
	}
}

func TestRenderRoundTrip(t *testing.T) {
	for _, src := range []Source{
		Literal("some text"),
		Literal(""),
		File("notes/today.md"),
		Command("git diff --stat"),
	} {
		parsed, err := Parse(src.Render())
		require.NoError(t, err)
		assert.Equal(t, src, parsed)
	}
}

func TestCommandWithTimeout(t *testing.T) {
	src := CommandWithTimeout("sleep 5", 120)
	assert.Equal(t, TypeCommand, src.Type())
	assert.Equal(t, 120, src.TimeoutSecs())

	// Non-positive timeouts fall back to the default.
	src = CommandWithTimeout("true", 0)
	assert.Equal(t, DefaultCommandTimeout, src.TimeoutSecs())
}

func TestJSONRoundTrip(t *testing.T) {
	for _, src := range []Source{
		Literal("x"),
		File("a/b.txt"),
		Command("echo hi"),
		CommandWithTimeout("make build", 300),
	} {
		data, err := json.Marshal(src)
		require.NoError(t, err)

		var decoded Source
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, src, decoded)
	}
}

func TestJSONStringForm(t *testing.T) {
	data, err := json.Marshal(File("main.go"))
	require.NoError(t, err)
	assert.Equal(t, `"@main.go"`, string(data))

	// Default-timeout commands stay in the compact string form.
	data, err = json.Marshal(Command("ls"))
	require.NoError(t, err)
	assert.Equal(t, `"!ls"`, string(data))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "short", Literal("short").Label())
	long := Literal("this literal is longer than twenty chars")
	assert.Equal(t, "this literal is long...", long.Label())
	assert.Equal(t, "path/to/file.txt", File("path/to/file.txt").Label())
}
