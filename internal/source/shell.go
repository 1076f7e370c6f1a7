package source

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// CommandName returns the leading command word of a shell command line,
// e.g. "git" for "git status | head". It returns "" when the line does
// not parse or contains no call.
func CommandName(cmdLine string) string {
	parser := syntax.NewParser(syntax.Variant(syntax.LangPOSIX))
	file, err := parser.Parse(strings.NewReader(cmdLine), "")
	if err != nil {
		return ""
	}

	var name string
	syntax.Walk(file, func(node syntax.Node) bool {
		if name != "" {
			return false
		}
		if call, ok := node.(*syntax.CallExpr); ok && len(call.Args) > 0 {
			name = wordToString(call.Args[0])
			return false
		}
		return true
	})
	return name
}

// CheckSyntax parses cmdLine as a POSIX shell command and returns the
// parser's diagnostic if it is malformed. A syntax error does not prevent
// evaluation — the shell gets the final say — but surfacing it when a
// command binding is created saves a round-trip through a failing send.
func CheckSyntax(cmdLine string) error {
	parser := syntax.NewParser(syntax.Variant(syntax.LangPOSIX))
	_, err := parser.Parse(strings.NewReader(cmdLine), "")
	return err
}

func wordToString(word *syntax.Word) string {
	var sb strings.Builder
	for _, part := range word.Parts {
		if lit, ok := part.(*syntax.Lit); ok {
			sb.WriteString(lit.Value)
		}
	}
	return sb.String()
}
