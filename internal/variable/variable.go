// Package variable implements named prompt variables: bindings from a name
// to a value source, with an explicit live/frozen state machine.
package variable

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/skald-ai/skald/internal/source"
)

// Binding pairs a user-chosen name with a value source and an optional
// frozen snapshot. A binding with no snapshot is live: its source is
// re-evaluated on every use. A frozen binding serves its snapshot until
// unfrozen or reloaded.
type Binding struct {
	name        string
	source      source.Source
	frozenValue *string
}

// New creates a live binding.
func New(name string, src source.Source) *Binding {
	return &Binding{name: name, source: src}
}

// Name returns the binding's name.
func (b *Binding) Name() string { return b.name }

// Source returns the binding's value source.
func (b *Binding) Source() source.Source { return b.source }

// IsFrozen reports whether the binding serves a snapshot.
func (b *Binding) IsFrozen() bool { return b.frozenValue != nil }

// FrozenValue returns the snapshot, if any.
func (b *Binding) FrozenValue() (string, bool) {
	if b.frozenValue == nil {
		return "", false
	}
	return *b.frozenValue, true
}

// Freeze evaluates the source now and pins the result. On failure the
// binding is left exactly as it was: a live binding stays live, a frozen
// one keeps its previous snapshot. Freezing a literal is permitted but a
// no-op in effect; the text is already a constant.
func (b *Binding) Freeze(ev *source.Evaluator) error {
	res, err := ev.Evaluate(b.source)
	if err != nil {
		return err
	}
	b.frozenValue = &res.Text
	return nil
}

// SetFrozen pins an already-evaluated value without re-evaluating the
// source. Used when copying bindings between sessions.
func (b *Binding) SetFrozen(value string) {
	b.frozenValue = &value
}

// Unfreeze clears the snapshot, reverting to per-use evaluation. It is a
// no-op on a live binding.
func (b *Binding) Unfreeze() {
	b.frozenValue = nil
}

// Reload refreshes the snapshot of a frozen binding. On a live binding it
// is a documented no-op: live bindings already evaluate on every use.
func (b *Binding) Reload(ev *source.Evaluator) error {
	if !b.IsFrozen() {
		return nil
	}
	return b.Freeze(ev)
}

// Value returns the binding's current value: the snapshot when frozen,
// otherwise a fresh evaluation.
func (b *Binding) Value(ev *source.Evaluator) (source.Result, error) {
	if b.frozenValue != nil {
		return source.Result{Text: *b.frozenValue}, nil
	}
	return ev.Evaluate(b.source)
}

// Status returns the display state: [static] for literals, else [frozen]
// or [live].
func (b *Binding) Status() string {
	switch {
	case b.source.Type() == source.TypeLiteral:
		return "[static]"
	case b.IsFrozen():
		return "[frozen]"
	default:
		return "[live]"
	}
}

// bindingJSON is the persisted wire shape of one binding.
type bindingJSON struct {
	Name        string        `json:"name"`
	Source      source.Source `json:"source"`
	Frozen      bool          `json:"frozen"`
	FrozenValue *string       `json:"frozen_value"`
}

// MarshalJSON encodes the persisted shape
// {"name", "source", "frozen", "frozen_value"}.
func (b *Binding) MarshalJSON() ([]byte, error) {
	return json.Marshal(bindingJSON{
		Name:        b.name,
		Source:      b.source,
		Frozen:      b.frozenValue != nil,
		FrozenValue: b.frozenValue,
	})
}

// UnmarshalJSON decodes the persisted shape. The frozen state follows the
// presence of frozen_value so the two can never disagree.
func (b *Binding) UnmarshalJSON(data []byte) error {
	var raw bindingJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.name = raw.Name
	b.source = raw.Source
	b.frozenValue = raw.FrozenValue
	return nil
}

// DeriveName produces a variable name from a file path: the base name
// without extension, with non-identifier characters mapped to underscores.
func DeriveName(path string) string {
	base := filepath.Base(path)
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	var sb strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	if sb.Len() == 0 {
		return "_"
	}
	return sb.String()
}
