package variable

import (
	"encoding/json"
	"sort"

	"github.com/skald-ai/skald/internal/logging"
	"github.com/skald-ai/skald/internal/source"
)

// Table maps variable names to bindings. Names are unique and
// case-sensitive; iteration order is not significant, so accessors that
// enumerate return names sorted for stable display.
//
// A table is owned by the session that contains it and assumes a single
// writer; the surrounding session manager serializes access if it ever
// grows concurrent callers.
type Table struct {
	bindings map[string]*Binding
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{bindings: make(map[string]*Binding)}
}

// Get returns the binding for name, if present.
func (t *Table) Get(name string) (*Binding, bool) {
	b, ok := t.bindings[name]
	return b, ok
}

// Set inserts or replaces a binding under its own name.
func (t *Table) Set(b *Binding) {
	if t.bindings == nil {
		t.bindings = make(map[string]*Binding)
	}
	t.bindings[b.Name()] = b
}

// Delete removes a binding, reporting whether it existed.
func (t *Table) Delete(name string) bool {
	if _, ok := t.bindings[name]; !ok {
		return false
	}
	delete(t.bindings, name)
	return true
}

// Len returns the number of bindings.
func (t *Table) Len() int { return len(t.bindings) }

// Names returns all binding names, sorted.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.bindings))
	for name := range t.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bindings returns all bindings in name order.
func (t *Table) Bindings() []*Binding {
	out := make([]*Binding, 0, len(t.bindings))
	for _, name := range t.Names() {
		out = append(out, t.bindings[name])
	}
	return out
}

// MarshalJSON encodes the current wire shape: a map of name to binding.
func (t *Table) MarshalJSON() ([]byte, error) {
	if t.bindings == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(t.bindings)
}

// UnmarshalJSON decodes either the current wire shape (name -> binding
// object) or the legacy one (file path -> variable name). Legacy entries
// become live File bindings; text the old format had already expanded
// into messages is left as-is and never reverse-mapped to a source.
func (t *Table) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	t.bindings = make(map[string]*Binding, len(raw))
	if len(raw) == 0 {
		return nil
	}

	if isLegacyShape(raw) {
		for path, rawName := range raw {
			var name string
			if err := json.Unmarshal(rawName, &name); err != nil {
				return err
			}
			t.bindings[name] = New(name, source.File(path))
		}
		logging.Info().Int("count", len(t.bindings)).Msg("migrated legacy variable table")
		return nil
	}

	for name, rawBinding := range raw {
		b := &Binding{}
		if err := json.Unmarshal(rawBinding, b); err != nil {
			return err
		}
		if b.name == "" {
			b.name = name
		}
		t.bindings[b.name] = b
	}
	return nil
}

// isLegacyShape reports whether every value is a JSON string, the shape of
// the old path->name format. The current shape's values are objects.
func isLegacyShape(raw map[string]json.RawMessage) bool {
	for _, v := range raw {
		trimmed := trimLeftSpace(v)
		if len(trimmed) == 0 || trimmed[0] != '"' {
			return false
		}
	}
	return true
}

func trimLeftSpace(b []byte) []byte {
	for len(b) > 0 {
		switch b[0] {
		case ' ', '\t', '\n', '\r':
			b = b[1:]
		default:
			return b
		}
	}
	return b
}
