package history

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/skald-ai/skald/internal/storage"
)

const inputDocument = "input_history"

// maxInputEntries caps the persisted input log; older entries are dropped
// from the front.
const maxInputEntries = 1000

// InputEntry is one line the user typed, with when they typed it.
type InputEntry struct {
	Input     string    `json:"input"`
	Timestamp time.Time `json:"timestamp"`
}

// InputHistory is the persistent log of REPL input lines, for recall
// across sessions.
type InputHistory struct {
	Entries []InputEntry `json:"entries"`

	store *storage.Store
}

// LoadInput reads the input log from the store, returning an empty log
// when none has been written yet.
func LoadInput(store *storage.Store) (*InputHistory, error) {
	h := &InputHistory{store: store}
	err := store.Get(inputDocument, h)
	if errors.Is(err, storage.ErrNotFound) {
		return h, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load input history: %w", err)
	}
	h.store = store
	return h, nil
}

// Save writes the log back to the store.
func (h *InputHistory) Save() error {
	return h.store.Put(inputDocument, h)
}

// Record appends an input line. Blank lines and a line identical to the
// previous one are skipped; the log is trimmed to its cap.
func (h *InputHistory) Record(input string) {
	if strings.TrimSpace(input) == "" {
		return
	}
	if n := len(h.Entries); n > 0 && h.Entries[n-1].Input == input {
		return
	}
	h.Entries = append(h.Entries, InputEntry{Input: input, Timestamp: time.Now().UTC()})
	if len(h.Entries) > maxInputEntries {
		h.Entries = h.Entries[len(h.Entries)-maxInputEntries:]
	}
}

// Len returns the number of recorded lines.
func (h *InputHistory) Len() int { return len(h.Entries) }

// Recent returns up to limit entries, newest last.
func (h *InputHistory) Recent(limit int) []InputEntry {
	if limit <= 0 || limit >= len(h.Entries) {
		return h.Entries
	}
	return h.Entries[len(h.Entries)-limit:]
}

// Clear drops every entry and persists the empty log.
func (h *InputHistory) Clear() error {
	h.Entries = nil
	return h.Save()
}

// InputStats summarizes the log for /input-history stats.
type InputStats struct {
	Total  int
	Unique int
	Oldest time.Time
	Newest time.Time
}

// Stats computes summary statistics over the log.
func (h *InputHistory) Stats() InputStats {
	st := InputStats{Total: len(h.Entries)}
	if st.Total == 0 {
		return st
	}
	seen := make(map[string]struct{}, len(h.Entries))
	for _, e := range h.Entries {
		seen[e.Input] = struct{}{}
	}
	st.Unique = len(seen)
	st.Oldest = h.Entries[0].Timestamp
	st.Newest = h.Entries[len(h.Entries)-1].Timestamp
	return st
}
