// Package template substitutes {{...}} tokens in outgoing message templates.
//
// Templates themselves are owned by the caller and stored verbatim;
// substitution always produces a new string so a send can be replayed
// against current state.
package template

import (
	"regexp"
	"strings"

	"github.com/skald-ai/skald/internal/logging"
	"github.com/skald-ai/skald/internal/source"
	"github.com/skald-ai/skald/internal/variable"
)

// inlineToken matches ad-hoc source tokens such as {{@notes.md}} or
// {{!git status}}. Tokens without a source prefix are named references and
// are handled by the table pass; anything matching neither shape passes
// through untouched. The payload may not itself contain braces, so a
// token like {{!awk '{print $1}'}} is not recognized and is sent as
// literal text; bind the command to a named variable instead.
var inlineToken = regexp.MustCompile(`\{\{([=@!][^{}]*)\}\}`)

// Failure pairs one failing token with its error.
type Failure struct {
	// Token is the full token text as it appears in the template,
	// e.g. "{{ctx}}" or "{{@missing.txt}}".
	Token string
	Err   error
}

// Result of one substitution call. Text is meaningful only when OK.
type Result struct {
	Text     string
	Warnings []string
	Failures []Failure
}

// OK reports whether every referenced token substituted cleanly.
func (r Result) OK() bool { return len(r.Failures) == 0 }

// Marker returns the named token for a binding name.
func Marker(name string) string { return "{{" + name + "}}" }

// Substitute replaces tokens in tpl using two passes over one working copy:
// first named {{name}} markers resolved against the table (frozen snapshot
// or live evaluation, each referenced binding evaluated exactly once, all
// occurrences replaced), then inline {{<prefix>...}} tokens parsed and
// evaluated fresh. Failures are collected per token rather than
// short-circuiting, so the caller can present the complete picture; tpl is
// never modified.
func Substitute(tpl string, table *variable.Table, ev *source.Evaluator) Result {
	var res Result
	working := tpl

	// Named pass. Bindings whose marker does not appear are not evaluated
	// at all; an unreferenced command source must not run.
	for _, b := range table.Bindings() {
		marker := Marker(b.Name())
		if !strings.Contains(working, marker) {
			continue
		}
		val, err := b.Value(ev)
		if err != nil {
			logging.Debug().Str("variable", b.Name()).Err(err).Msg("variable evaluation failed")
			res.Failures = append(res.Failures, Failure{Token: marker, Err: err})
			continue
		}
		if val.Warning != "" {
			res.Warnings = append(res.Warnings, b.Name()+": "+val.Warning)
		}
		working = strings.ReplaceAll(working, marker, val.Text)
	}

	// Inline pass. Each distinct token is evaluated once and replaced
	// everywhere; inline sources have no identity and cannot be frozen.
	evaluated := make(map[string]bool)
	for _, match := range inlineToken.FindAllStringSubmatch(working, -1) {
		token, spec := match[0], match[1]
		if evaluated[token] {
			continue
		}
		evaluated[token] = true

		src, err := source.Parse(spec)
		if err != nil {
			res.Failures = append(res.Failures, Failure{Token: token, Err: err})
			continue
		}
		val, err := ev.Evaluate(src)
		if err != nil {
			logging.Debug().Str("token", token).Err(err).Msg("inline source evaluation failed")
			res.Failures = append(res.Failures, Failure{Token: token, Err: err})
			continue
		}
		if val.Warning != "" {
			res.Warnings = append(res.Warnings, token+": "+val.Warning)
		}
		working = strings.ReplaceAll(working, token, val.Text)
	}

	if res.OK() {
		res.Text = working
	}
	return res
}

// StripTokens removes every substitution candidate from tpl: named markers
// for bindings present in the table and all inline tokens, each replaced
// with the empty string. This is the recovery "skip" path — it prefers
// sending something over sending a misleading partial substitution, so
// tokens that would have succeeded are dropped too.
func StripTokens(tpl string, table *variable.Table) string {
	out := tpl
	for _, name := range table.Names() {
		out = strings.ReplaceAll(out, Marker(name), "")
	}
	return inlineToken.ReplaceAllString(out, "")
}
