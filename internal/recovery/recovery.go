// Package recovery drives the decision protocol that runs when template
// substitution fails. The controller performs no console I/O itself: the
// decision comes from an injected Decider, so batch callers can supply a
// fixed policy and the interactive REPL can prompt.
package recovery

import (
	"fmt"

	"github.com/skald-ai/skald/internal/source"
	"github.com/skald-ai/skald/internal/template"
	"github.com/skald-ai/skald/internal/variable"
)

// Choice is the user's answer to a failed substitution. All failing tokens
// share one decision; the protocol has no per-token partial application.
type Choice int

const (
	// ChoiceSkip sends the template with every candidate token stripped.
	ChoiceSkip Choice = iota
	// ChoiceAbort cancels the outbound send entirely.
	ChoiceAbort
	// ChoiceRetry re-runs substitution from scratch against the original
	// template, for transient failures expected to clear.
	ChoiceRetry
	// ChoiceEditSource abandons this send and hands control back to
	// template composition.
	ChoiceEditSource
)

// Decider chooses how to proceed given the complete set of failures from
// one substitution call.
type Decider interface {
	Decide(failures []template.Failure) (Choice, error)
}

// DeciderFunc adapts a function to the Decider interface.
type DeciderFunc func(failures []template.Failure) (Choice, error)

// Decide implements Decider.
func (f DeciderFunc) Decide(failures []template.Failure) (Choice, error) {
	return f(failures)
}

// Fixed returns a Decider that always answers choice, for non-interactive
// callers.
func Fixed(choice Choice) Decider {
	return DeciderFunc(func([]template.Failure) (Choice, error) {
		return choice, nil
	})
}

// Action is the terminal disposition of a resolve.
type Action int

const (
	// ActionSend means Text holds the string to send.
	ActionSend Action = iota
	// ActionAbort means the caller must cancel the outbound operation.
	ActionAbort
	// ActionEdit means the caller should resume template composition.
	ActionEdit
)

// Outcome is the result of resolving one template.
type Outcome struct {
	Action   Action
	Text     string // set when Action is ActionSend
	Warnings []string
}

// Resolve substitutes tpl against the table, consulting decider whenever
// failures remain. Retry re-enters substitution on the original, unmodified
// template; Skip strips all candidate tokens; Abort and EditSource return
// without producing text. Evaluations that already completed are not
// rolled back by Abort — it only prevents the result from being used.
func Resolve(tpl string, table *variable.Table, ev *source.Evaluator, decider Decider) (Outcome, error) {
	for {
		res := template.Substitute(tpl, table, ev)
		if res.OK() {
			return Outcome{Action: ActionSend, Text: res.Text, Warnings: res.Warnings}, nil
		}

		choice, err := decider.Decide(res.Failures)
		if err != nil {
			return Outcome{}, fmt.Errorf("recovery decision: %w", err)
		}

		switch choice {
		case ChoiceSkip:
			return Outcome{Action: ActionSend, Text: template.StripTokens(tpl, table), Warnings: res.Warnings}, nil
		case ChoiceAbort:
			return Outcome{Action: ActionAbort}, nil
		case ChoiceRetry:
			continue
		case ChoiceEditSource:
			return Outcome{Action: ActionEdit}, nil
		default:
			return Outcome{}, fmt.Errorf("unknown recovery choice %d", choice)
		}
	}
}
