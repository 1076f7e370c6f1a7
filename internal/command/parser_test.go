package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, input string) *Command {
	t.Helper()
	cmd, err := Parse(input)
	require.NoError(t, err)
	require.NotNil(t, cmd)
	return cmd
}

func TestNotACommand(t *testing.T) {
	cmd, err := Parse("hello world")
	assert.NoError(t, err)
	assert.Nil(t, cmd)
}

func TestBareCommands(t *testing.T) {
	cases := map[string]Kind{
		"/help":      KindHelp,
		"/commands":  KindHelp,
		"/quit":      KindQuit,
		"/exit":      KindQuit,
		"/clear":     KindClear,
		"/status":    KindStatus,
		"/history":   KindHistory,
		"/models":    KindModels,
		"/vars":      KindVars,
		"/variables": KindVars,
	}
	for input, want := range cases {
		assert.Equal(t, want, mustParse(t, input).Kind, input)
	}
}

func TestWhitespaceTolerated(t *testing.T) {
	assert.Equal(t, KindHelp, mustParse(t, "  /help  ").Kind)
	cmd := mustParse(t, "/model   gpt-4   ")
	assert.Equal(t, "gpt-4", cmd.Text)
}

func TestModel(t *testing.T) {
	cmd := mustParse(t, "/model claude-sonnet-4-20250514")
	assert.Equal(t, KindModel, cmd.Kind)
	assert.Equal(t, "claude-sonnet-4-20250514", cmd.Text)

	_, err := Parse("/model")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Error(), "/model <name>")
}

func TestNumericArguments(t *testing.T) {
	assert.Equal(t, 0.7, mustParse(t, "/temp 0.7").Value)
	assert.Equal(t, 8192, mustParse(t, "/max-tokens 8192").Number)
	assert.Equal(t, 5, mustParse(t, "/goto 5").Number)

	cmd := mustParse(t, "/undo")
	assert.Equal(t, 1, cmd.Number)
	assert.Equal(t, 3, mustParse(t, "/undo 3").Number)

	for _, bad := range []string{"/temp abc", "/max-tokens 0", "/goto", "/undo -1"} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestSearch(t *testing.T) {
	cmd := mustParse(t, "/search hello world")
	assert.Equal(t, KindSearch, cmd.Kind)
	assert.Equal(t, "hello world", cmd.Text)
}

func TestChatCommands(t *testing.T) {
	assert.Equal(t, KindChatNew, mustParse(t, "/chat new").Kind)
	assert.Equal(t, KindChatList, mustParse(t, "/chat list").Kind)

	cmd := mustParse(t, "/chat save my-session")
	assert.Equal(t, KindChatSave, cmd.Kind)
	assert.Equal(t, "my-session", cmd.Name)

	cmd = mustParse(t, `/chat save "session with spaces"`)
	assert.Equal(t, "session with spaces", cmd.Name)

	cmd = mustParse(t, "/chat load my-session")
	assert.Equal(t, KindChatLoad, cmd.Kind)
	assert.Equal(t, SessionRef{Name: "my-session"}, cmd.Session)

	cmd = mustParse(t, "/chat load #3")
	assert.Equal(t, SessionRef{Index: 3}, cmd.Session)

	cmd = mustParse(t, `/chat load "#special"`)
	assert.Equal(t, SessionRef{Name: "#special"}, cmd.Session)

	cmd = mustParse(t, "/chat continue")
	assert.Equal(t, KindChatContinue, cmd.Kind)
	assert.Equal(t, SessionRef{}, cmd.Session)

	cmd = mustParse(t, "/chat continue #2")
	assert.Equal(t, KindChatContinue, cmd.Kind)
	assert.Equal(t, SessionRef{Index: 2}, cmd.Session)

	cmd = mustParse(t, "/chat merge other")
	assert.Equal(t, KindChatMerge, cmd.Kind)
	assert.Equal(t, SessionRef{Name: "other"}, cmd.Session)

	_, err := Parse("/chat merge")
	assert.Error(t, err)

	cmd = mustParse(t, "/chat fork")
	assert.Equal(t, KindChatFork, cmd.Kind)
	assert.Empty(t, cmd.Name)
	assert.Equal(t, "branch", mustParse(t, "/chat fork branch").Name)

	cmd = mustParse(t, "/chat rename fresh-name")
	assert.Equal(t, KindChatRename, cmd.Kind)
	assert.Equal(t, "fresh-name", cmd.NewName)

	_, err = Parse("/chat load #abc")
	assert.Error(t, err)

	_, err = Parse("/chat bogus")
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	cmd := mustParse(t, "/load @config.json")
	assert.Equal(t, KindLoad, cmd.Kind)
	assert.Equal(t, "@config.json", cmd.Source)
	assert.Empty(t, cmd.Name)

	cmd = mustParse(t, "/load !git diff changes")
	assert.Equal(t, "!git", cmd.Source)

	cmd = mustParse(t, `/load "!git diff" changes`)
	assert.Equal(t, "!git diff", cmd.Source)
	assert.Equal(t, "changes", cmd.Name)

	cmd = mustParse(t, `/load "@my file.txt" myvar`)
	assert.Equal(t, "@my file.txt", cmd.Source)
	assert.Equal(t, "myvar", cmd.Name)

	_, err := Parse("/load")
	assert.Error(t, err)
}

func TestVarCommands(t *testing.T) {
	cases := map[string]Kind{
		"/var show myvar":     KindVarShow,
		"/var delete myvar":   KindVarDelete,
		"/var freeze myvar":   KindVarFreeze,
		"/var unfreeze myvar": KindVarUnfreeze,
		"/var reload myvar":   KindVarReload,
	}
	for input, want := range cases {
		cmd := mustParse(t, input)
		assert.Equal(t, want, cmd.Kind, input)
		assert.Equal(t, "myvar", cmd.Name, input)
	}

	cmd := mustParse(t, "/var reload")
	assert.Equal(t, KindVarReload, cmd.Kind)
	assert.Empty(t, cmd.Name)

	_, err := Parse("/var freeze")
	assert.Error(t, err)
	_, err = Parse("/var bogus x")
	assert.Error(t, err)
}

func TestPromptsCommands(t *testing.T) {
	assert.Equal(t, KindPromptsList, mustParse(t, "/prompts").Kind)
	assert.Equal(t, KindPromptsList, mustParse(t, "/prompts list").Kind)

	cmd := mustParse(t, "/prompts show reviewer")
	assert.Equal(t, KindPromptsShow, cmd.Kind)
	assert.Equal(t, "reviewer", cmd.Name)

	cmd = mustParse(t, `/prompts save "code review" You review code carefully.`)
	assert.Equal(t, KindPromptsSave, cmd.Kind)
	assert.Equal(t, "code review", cmd.Name)
	assert.Equal(t, "You review code carefully.", cmd.Text)

	cmd = mustParse(t, "/prompts save draft")
	assert.Equal(t, "draft", cmd.Name)
	assert.Empty(t, cmd.Text)

	cmd = mustParse(t, "/prompts rename old new")
	assert.Equal(t, KindPromptsRename, cmd.Kind)
	assert.Equal(t, "old", cmd.Name)
	assert.Equal(t, "new", cmd.NewName)

	cmd = mustParse(t, "/prompts export")
	assert.Equal(t, KindPromptsExport, cmd.Kind)
	assert.Empty(t, cmd.Name)
	assert.Equal(t, "out.json", mustParse(t, "/prompts export out.json").Name)

	cmd = mustParse(t, "/prompts edit reviewer Be ruthless about naming.")
	assert.Equal(t, KindPromptsEdit, cmd.Kind)
	assert.Equal(t, "reviewer", cmd.Name)
	assert.Equal(t, "Be ruthless about naming.", cmd.Text)

	_, err := Parse("/prompts rename onlyone")
	assert.Error(t, err)
	_, err = Parse("/prompts edit onlyname")
	assert.Error(t, err)
}

func TestBlocksAndInputHistory(t *testing.T) {
	assert.Equal(t, KindBlocks, mustParse(t, "/blocks").Kind)
	assert.Equal(t, KindInputHistory, mustParse(t, "/input-history").Kind)
	assert.Equal(t, KindInputHistoryClear, mustParse(t, "/input-history clear").Kind)
	assert.Equal(t, KindInputHistoryStats, mustParse(t, "/input-history stats").Kind)

	_, err := Parse("/input-history bogus")
	assert.Error(t, err)
}

func TestUnknownCommandSuggestion(t *testing.T) {
	_, err := Parse("/hlep")
	var uerr *UnknownError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "/help", uerr.Suggestion)
	assert.Contains(t, uerr.Error(), "did you mean /help?")

	_, err = Parse("/zzzzzzzz")
	require.True(t, errors.As(err, &uerr))
	assert.Empty(t, uerr.Suggestion)
	assert.Contains(t, uerr.Error(), "try /help")
}

func TestSplitArgs(t *testing.T) {
	assert.Equal(t, []string{"a", "b c", "d"}, splitArgs(`a "b c" d`))
	assert.Equal(t, []string{"it's", "x"}, splitArgs(`"it's" x`))
	assert.Nil(t, splitArgs(""))
	assert.Equal(t, []string{""}, splitArgs(`""`))
}
