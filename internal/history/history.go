// Package history persists the current chat session and a library of
// saved sessions.
package history

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/skald-ai/skald/internal/session"
	"github.com/skald-ai/skald/internal/storage"
)

const document = "history"

// History is the persisted session state: the in-progress conversation
// plus saved, named conversations.
type History struct {
	Current *session.Session            `json:"current_session"`
	Saved   map[string]*session.Session `json:"saved_sessions"`

	store *storage.Store
}

// Load reads history from the store, returning an empty history when none
// has been written yet.
func Load(store *storage.Store) (*History, error) {
	h := &History{Saved: make(map[string]*session.Session), store: store}
	err := store.Get(document, h)
	if errors.Is(err, storage.ErrNotFound) {
		return h, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	if h.Saved == nil {
		h.Saved = make(map[string]*session.Session)
	}
	h.store = store
	return h, nil
}

// Save writes the history back to the store.
func (h *History) Save() error {
	return h.store.Put(document, h)
}

// SetCurrent records the in-progress session.
func (h *History) SetCurrent(s *session.Session) {
	h.Current = s
}

// SaveSession stores the session under name and persists.
func (h *History) SaveSession(name string, s *session.Session) error {
	s.Name = name
	h.Saved[name] = s
	return h.Save()
}

// Get returns the saved session with the given name.
func (h *History) Get(name string) (*session.Session, bool) {
	s, ok := h.Saved[name]
	return s, ok
}

// Delete removes a saved session, reporting whether it existed.
func (h *History) Delete(name string) (bool, error) {
	if _, ok := h.Saved[name]; !ok {
		return false, nil
	}
	delete(h.Saved, name)
	return true, h.Save()
}

// Names returns all saved session names, sorted.
func (h *History) Names() []string {
	names := make([]string, 0, len(h.Saved))
	for name := range h.Saved {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Recent returns up to limit saved sessions, most recently updated first.
func (h *History) Recent(limit int) []*session.Session {
	sessions := make([]*session.Session, 0, len(h.Saved))
	for _, s := range h.Saved {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions
}

// MostRecent returns the most recently updated saved session, if any.
func (h *History) MostRecent() (*session.Session, bool) {
	recent := h.Recent(1)
	if len(recent) == 0 {
		return nil, false
	}
	return recent[0], true
}

// AutoSave persists the session under an automatic name when it qualifies,
// returning the name used.
func (h *History) AutoSave(s *session.Session) (string, error) {
	if !s.ShouldAutoSave() {
		return "", nil
	}
	name := s.AutoName()
	if err := h.SaveSession(name, s); err != nil {
		return "", err
	}
	return name, nil
}

// SearchResult is one message matching a search term.
type SearchResult struct {
	SessionName   string
	MessageNumber int
	Role          session.Role
	Excerpt       string
}

// Search scans the current session and every saved session for messages
// containing term (case-insensitive). Results list the current session
// first, then saved sessions by name.
func (h *History) Search(term string, current *session.Session) []SearchResult {
	lower := strings.ToLower(term)

	var results []SearchResult
	if current != nil {
		results = append(results, searchMessages("current", current.Messages, lower)...)
	}

	for _, name := range h.Names() {
		results = append(results, searchMessages(name, h.Saved[name].Messages, lower)...)
	}
	return results
}

func searchMessages(sessionName string, messages []session.NumberedMessage, lowerTerm string) []SearchResult {
	var results []SearchResult
	for _, msg := range messages {
		if !strings.Contains(strings.ToLower(msg.Message.Content), lowerTerm) {
			continue
		}
		results = append(results, SearchResult{
			SessionName:   sessionName,
			MessageNumber: msg.Number,
			Role:          msg.Message.Role,
			Excerpt:       excerpt(msg.Message.Content, lowerTerm),
		})
	}
	return results
}

const (
	excerptLength = 120
	contextLength = 40
)

// excerpt returns a short window of content around the first match, with
// the matched term marked and ellipses at clipped edges.
func excerpt(content, lowerTerm string) string {
	lower := strings.ToLower(content)
	start := strings.Index(lower, lowerTerm)
	if start < 0 {
		if len(content) > excerptLength {
			return content[:excerptLength] + "..."
		}
		return content
	}
	end := start + len(lowerTerm)

	from := start - contextLength
	if from < 0 {
		from = 0
	}
	to := end + contextLength
	if to > len(content) {
		to = len(content)
	}

	var sb strings.Builder
	if from > 0 {
		sb.WriteString("...")
	}
	sb.WriteString(content[from:start])
	sb.WriteString("**")
	sb.WriteString(content[start:end])
	sb.WriteString("**")
	sb.WriteString(content[end:to])
	if to < len(content) {
		sb.WriteString("...")
	}
	return sb.String()
}
