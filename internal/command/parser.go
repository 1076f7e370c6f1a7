// Package command parses the REPL's slash commands.
package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Kind identifies a slash command.
type Kind int

const (
	KindUnknown Kind = iota
	KindHelp
	KindQuit
	KindClear
	KindStatus
	KindHistory
	KindModels
	KindModel
	KindSystem
	KindTemperature
	KindMaxTokens
	KindUndo
	KindGoto
	KindSearch
	KindChatNew
	KindChatSave
	KindChatLoad
	KindChatList
	KindChatDelete
	KindChatContinue
	KindChatMerge
	KindChatFork
	KindChatRename
	KindBlocks
	KindLoad
	KindVars
	KindVarShow
	KindVarDelete
	KindVarFreeze
	KindVarUnfreeze
	KindVarReload
	KindPromptsList
	KindPromptsShow
	KindPromptsSave
	KindPromptsEdit
	KindPromptsApply
	KindPromptsDelete
	KindPromptsRename
	KindPromptsSearch
	KindPromptsImport
	KindPromptsExport
	KindInputHistory
	KindInputHistoryClear
	KindInputHistoryStats
)

// SessionRef points at a saved session, either by name or by a #n index
// into the recent-sessions listing.
type SessionRef struct {
	Name  string
	Index int // 1-based when > 0, Name is empty then
}

// parseSessionRef reads the raw (possibly quoted) argument. A bare #n is
// an index into the recent listing; quoting makes anything, including a
// leading #, a plain name.
func parseSessionRef(arg string) (SessionRef, error) {
	if rest, ok := strings.CutPrefix(arg, "#"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 {
			return SessionRef{}, fmt.Errorf("invalid session reference %q, expected #<number>", arg)
		}
		return SessionRef{Index: n}, nil
	}
	return SessionRef{Name: unquote(arg)}, nil
}

// Command is one parsed slash command. Which fields are set depends on
// Kind.
type Command struct {
	Kind    Kind
	Text    string     // free-form argument: model name, search term, system prompt
	Name    string     // binding, session, or prompt name
	NewName string     // rename target
	Source  string     // raw source descriptor for /load
	Number  int        // /goto target or /undo count
	Value   float64    // /temp
	Session SessionRef // /chat load, /chat delete
}

// ParseError reports malformed arguments to a recognized command.
type ParseError struct {
	Usage string
}

func (e *ParseError) Error() string {
	return "usage: " + e.Usage
}

// UnknownError reports an unrecognized command, with a nearest-match
// suggestion when one is close enough.
type UnknownError struct {
	Input      string
	Suggestion string
}

func (e *UnknownError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown command %s, did you mean %s?", e.Input, e.Suggestion)
	}
	return fmt.Sprintf("unknown command %s, try /help", e.Input)
}

// Parse interprets a line of REPL input as a slash command. It returns
// (nil, nil) when the line is not a command at all, so it should flow to
// the model as a message.
func Parse(input string) (*Command, error) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return nil, nil
	}

	head, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	switch head {
	case "/help", "/commands":
		return &Command{Kind: KindHelp}, nil
	case "/quit", "/exit":
		return &Command{Kind: KindQuit}, nil
	case "/clear":
		return &Command{Kind: KindClear}, nil
	case "/status":
		return &Command{Kind: KindStatus}, nil
	case "/history":
		return &Command{Kind: KindHistory}, nil
	case "/blocks":
		return &Command{Kind: KindBlocks}, nil
	case "/input-history":
		switch rest {
		case "":
			return &Command{Kind: KindInputHistory}, nil
		case "clear":
			return &Command{Kind: KindInputHistoryClear}, nil
		case "stats":
			return &Command{Kind: KindInputHistoryStats}, nil
		}
		return nil, &ParseError{Usage: "/input-history [clear|stats]"}
	case "/models":
		return &Command{Kind: KindModels}, nil
	case "/model":
		if rest == "" {
			return nil, &ParseError{Usage: "/model <name>"}
		}
		return &Command{Kind: KindModel, Text: rest}, nil
	case "/system":
		return &Command{Kind: KindSystem, Text: unquote(rest)}, nil
	case "/temp":
		v, err := strconv.ParseFloat(rest, 64)
		if err != nil {
			return nil, &ParseError{Usage: "/temp <0.0-2.0>"}
		}
		return &Command{Kind: KindTemperature, Value: v}, nil
	case "/max-tokens":
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 {
			return nil, &ParseError{Usage: "/max-tokens <n>"}
		}
		return &Command{Kind: KindMaxTokens, Number: n}, nil
	case "/undo":
		count := 1
		if rest != "" {
			n, err := strconv.Atoi(rest)
			if err != nil || n < 1 {
				return nil, &ParseError{Usage: "/undo [count]"}
			}
			count = n
		}
		return &Command{Kind: KindUndo, Number: count}, nil
	case "/goto":
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 {
			return nil, &ParseError{Usage: "/goto <message-number>"}
		}
		return &Command{Kind: KindGoto, Number: n}, nil
	case "/search":
		if rest == "" {
			return nil, &ParseError{Usage: "/search <term>"}
		}
		return &Command{Kind: KindSearch, Text: unquote(rest)}, nil
	case "/chat":
		return parseChat(rest)
	case "/load":
		return parseLoad(rest)
	case "/vars", "/variables":
		return &Command{Kind: KindVars}, nil
	case "/var":
		return parseVar(rest)
	case "/prompts":
		return parsePrompts(rest)
	}

	return nil, &UnknownError{Input: head, Suggestion: Suggest(head)}
}

func parseChat(rest string) (*Command, error) {
	sub, arg, _ := strings.Cut(rest, " ")
	arg = strings.TrimSpace(arg)

	switch sub {
	case "new":
		return &Command{Kind: KindChatNew}, nil
	case "list":
		return &Command{Kind: KindChatList}, nil
	case "save":
		if arg == "" {
			return nil, &ParseError{Usage: "/chat save <name>"}
		}
		return &Command{Kind: KindChatSave, Name: unquote(arg)}, nil
	case "load":
		if arg == "" {
			return nil, &ParseError{Usage: "/chat load <name|#n>"}
		}
		ref, err := parseSessionRef(arg)
		if err != nil {
			return nil, err
		}
		return &Command{Kind: KindChatLoad, Session: ref}, nil
	case "delete":
		if arg == "" {
			return nil, &ParseError{Usage: "/chat delete <name|#n>"}
		}
		ref, err := parseSessionRef(arg)
		if err != nil {
			return nil, err
		}
		return &Command{Kind: KindChatDelete, Session: ref}, nil
	case "continue":
		// Bare "/chat continue" resumes the most recently updated session.
		cmd := &Command{Kind: KindChatContinue}
		if arg != "" {
			ref, err := parseSessionRef(arg)
			if err != nil {
				return nil, err
			}
			cmd.Session = ref
		}
		return cmd, nil
	case "merge":
		if arg == "" {
			return nil, &ParseError{Usage: "/chat merge <name|#n>"}
		}
		ref, err := parseSessionRef(arg)
		if err != nil {
			return nil, err
		}
		return &Command{Kind: KindChatMerge, Session: ref}, nil
	case "fork":
		return &Command{Kind: KindChatFork, Name: unquote(arg)}, nil
	case "rename":
		if arg == "" {
			return nil, &ParseError{Usage: "/chat rename <new-name>"}
		}
		return &Command{Kind: KindChatRename, NewName: unquote(arg)}, nil
	}
	return nil, &ParseError{Usage: "/chat new|save|load|list|delete|continue|merge|fork|rename"}
}

// parseLoad handles "/load SOURCE [name]". The source descriptor keeps its
// prefix; a bare path is shorthand for a file source.
func parseLoad(rest string) (*Command, error) {
	args := splitArgs(rest)
	if len(args) == 0 {
		return nil, &ParseError{Usage: "/load <source> [name]"}
	}
	cmd := &Command{Kind: KindLoad, Source: args[0]}
	if len(args) > 1 {
		cmd.Name = args[1]
	}
	return cmd, nil
}

func parseVar(rest string) (*Command, error) {
	sub, arg, _ := strings.Cut(rest, " ")
	arg = unquote(strings.TrimSpace(arg))

	named := func(kind Kind, usage string) (*Command, error) {
		if arg == "" {
			return nil, &ParseError{Usage: usage}
		}
		return &Command{Kind: kind, Name: arg}, nil
	}

	switch sub {
	case "show":
		return named(KindVarShow, "/var show <name>")
	case "delete":
		return named(KindVarDelete, "/var delete <name>")
	case "freeze":
		return named(KindVarFreeze, "/var freeze <name>")
	case "unfreeze":
		return named(KindVarUnfreeze, "/var unfreeze <name>")
	case "reload":
		// Name optional: bare "/var reload" refreshes every frozen binding.
		return &Command{Kind: KindVarReload, Name: arg}, nil
	}
	return nil, &ParseError{Usage: "/var show|delete|freeze|unfreeze|reload <name>"}
}

func parsePrompts(rest string) (*Command, error) {
	sub, arg, _ := strings.Cut(rest, " ")
	arg = strings.TrimSpace(arg)

	switch sub {
	case "", "list":
		return &Command{Kind: KindPromptsList}, nil
	case "edit":
		args := splitArgs(arg)
		if len(args) < 2 {
			return nil, &ParseError{Usage: "/prompts edit <name> <content>"}
		}
		return &Command{Kind: KindPromptsEdit, Name: args[0], Text: strings.Join(args[1:], " ")}, nil
	case "show", "apply", "delete", "search", "import":
		if arg == "" {
			return nil, &ParseError{Usage: "/prompts " + sub + " <name>"}
		}
		kinds := map[string]Kind{
			"show":   KindPromptsShow,
			"apply":  KindPromptsApply,
			"delete": KindPromptsDelete,
			"search": KindPromptsSearch,
			"import": KindPromptsImport,
		}
		return &Command{Kind: kinds[sub], Name: unquote(arg)}, nil
	case "save":
		args := splitArgs(arg)
		if len(args) == 0 {
			return nil, &ParseError{Usage: "/prompts save <name> [content]"}
		}
		cmd := &Command{Kind: KindPromptsSave, Name: args[0]}
		if len(args) > 1 {
			cmd.Text = strings.Join(args[1:], " ")
		}
		return cmd, nil
	case "rename":
		args := splitArgs(arg)
		if len(args) != 2 {
			return nil, &ParseError{Usage: "/prompts rename <old> <new>"}
		}
		return &Command{Kind: KindPromptsRename, Name: args[0], NewName: args[1]}, nil
	case "export":
		return &Command{Kind: KindPromptsExport, Name: unquote(arg)}, nil
	}
	return nil, &ParseError{Usage: "/prompts list|show|save|edit|apply|delete|rename|search|import|export"}
}

var commandNames = []string{
	"/help", "/quit", "/exit", "/clear", "/status", "/history", "/models",
	"/model", "/system", "/temp", "/max-tokens", "/undo", "/goto", "/search",
	"/blocks", "/chat", "/load", "/vars", "/var", "/prompts", "/input-history",
}

// Suggest returns the known command closest to input, or "" when nothing
// is close enough to be a plausible typo.
func Suggest(input string) string {
	best := ""
	bestDist := 3 // farther than that is not a typo
	for _, name := range commandNames {
		if d := levenshtein.ComputeDistance(input, name); d < bestDist {
			best, bestDist = name, d
		}
	}
	return best
}

// splitArgs splits on whitespace, keeping quoted segments (single or
// double quotes) together and stripping the quotes.
func splitArgs(s string) []string {
	var args []string
	var cur strings.Builder
	var quote rune
	inArg := false

	flush := func() {
		if inArg {
			args = append(args, cur.String())
			cur.Reset()
			inArg = false
		}
	}

	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inArg = true
		case r == ' ' || r == '\t':
			flush()
		default:
			cur.WriteRune(r)
			inArg = true
		}
	}
	flush()
	return args
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
