// Package prompts manages a persisted library of named system prompts.
package prompts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/skald-ai/skald/internal/logging"
	"github.com/skald-ai/skald/internal/storage"
)

const document = "prompts"

// Prompt is a reusable system prompt with bookkeeping for how often it is
// applied.
type Prompt struct {
	Name        string    `json:"name"`
	Content     string    `json:"content"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	UsageCount  int       `json:"usage_count"`
}

// NewPrompt creates a prompt with creation timestamps set to now.
func NewPrompt(name, content string) *Prompt {
	now := time.Now()
	return &Prompt{
		Name:      name,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Library is the set of saved prompts, persisted as a single document.
type Library struct {
	Prompts map[string]*Prompt `json:"prompts"`

	store *storage.Store
}

// Load reads the library from the store, returning an empty one when
// nothing has been saved yet.
func Load(store *storage.Store) (*Library, error) {
	lib := &Library{Prompts: make(map[string]*Prompt), store: store}
	err := store.Get(document, lib)
	if errors.Is(err, storage.ErrNotFound) {
		return lib, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt library: %w", err)
	}
	if lib.Prompts == nil {
		lib.Prompts = make(map[string]*Prompt)
	}
	lib.store = store
	return lib, nil
}

func (l *Library) save() error {
	return l.store.Put(document, l)
}

// Save stores content under name, replacing any existing prompt.
func (l *Library) Save(name, content string) error {
	l.Prompts[name] = NewPrompt(name, content)
	return l.save()
}

// Get returns the named prompt.
func (l *Library) Get(name string) (*Prompt, bool) {
	p, ok := l.Prompts[name]
	return p, ok
}

// Apply returns the named prompt's content and bumps its usage count.
// The count update is persisted best-effort.
func (l *Library) Apply(name string) (string, bool) {
	p, ok := l.Prompts[name]
	if !ok {
		return "", false
	}
	p.UsageCount++
	p.UpdatedAt = time.Now()
	if err := l.save(); err != nil {
		logging.Warn().Err(err).Str("prompt", name).Msg("failed to persist usage count")
	}
	return p.Content, true
}

// UpdateContent replaces the content of an existing prompt, reporting
// whether it existed.
func (l *Library) UpdateContent(name, content string) (bool, error) {
	p, ok := l.Prompts[name]
	if !ok {
		return false, nil
	}
	p.Content = content
	p.UpdatedAt = time.Now()
	return true, l.save()
}

// Delete removes a prompt, reporting whether it existed.
func (l *Library) Delete(name string) (bool, error) {
	if _, ok := l.Prompts[name]; !ok {
		return false, nil
	}
	delete(l.Prompts, name)
	return true, l.save()
}

// Rename moves a prompt to a new name. It reports false when oldName is
// absent and errors when newName is already taken.
func (l *Library) Rename(oldName, newName string) (bool, error) {
	p, ok := l.Prompts[oldName]
	if !ok {
		return false, nil
	}
	if _, taken := l.Prompts[newName]; taken {
		return false, fmt.Errorf("prompt %q already exists", newName)
	}
	delete(l.Prompts, oldName)
	p.Name = newName
	p.UpdatedAt = time.Now()
	l.Prompts[newName] = p
	return true, l.save()
}

// Names returns prompt names ordered by usage count descending, ties
// broken alphabetically.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.Prompts))
	for name := range l.Prompts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := l.Prompts[names[i]], l.Prompts[names[j]]
		if a.UsageCount != b.UsageCount {
			return a.UsageCount > b.UsageCount
		}
		return names[i] < names[j]
	})
	return names
}

// SearchResult is one prompt matching a search term, with the fields the
// term was found in.
type SearchResult struct {
	Prompt        *Prompt
	Relevance     int
	MatchedFields []string
}

// Search finds prompts whose name, description, tags, or content contain
// term (case-insensitive), ranked by where the match occurred.
func (l *Library) Search(term string) []SearchResult {
	lower := strings.ToLower(term)

	var results []SearchResult
	for name, p := range l.Prompts {
		score := 0
		var fields []string
		if strings.Contains(strings.ToLower(name), lower) {
			score += 10
			fields = append(fields, "name")
		}
		if strings.Contains(strings.ToLower(p.Content), lower) {
			score += 5
			fields = append(fields, "content")
		}
		if strings.Contains(strings.ToLower(p.Description), lower) && p.Description != "" {
			score += 7
			fields = append(fields, "description")
		}
		for _, tag := range p.Tags {
			if strings.Contains(strings.ToLower(tag), lower) {
				score += 8
				fields = append(fields, "tags")
				break
			}
		}
		if score > 0 {
			results = append(results, SearchResult{Prompt: p, Relevance: score, MatchedFields: fields})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Relevance != b.Relevance {
			return a.Relevance > b.Relevance
		}
		if a.Prompt.UsageCount != b.Prompt.UsageCount {
			return a.Prompt.UsageCount > b.Prompt.UsageCount
		}
		return a.Prompt.Name < b.Prompt.Name
	})
	return results
}

// Export writes all prompts as pretty JSON to path, or returns the JSON
// when path is empty.
func (l *Library) Export(path string) (string, error) {
	data, err := json.MarshalIndent(l.Prompts, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode prompts: %w", err)
	}
	if path == "" {
		return string(data), nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return fmt.Sprintf("Exported %d prompts to %s", len(l.Prompts), path), nil
}

// ImportResult summarizes an Import call.
type ImportResult struct {
	Imported    int
	Skipped     int
	Overwritten int
}

// Import merges prompts from a JSON file. Existing names are skipped
// unless overwrite is set.
func (l *Library) Import(path string, overwrite bool) (ImportResult, error) {
	var res ImportResult
	data, err := os.ReadFile(path)
	if err != nil {
		return res, fmt.Errorf("failed to read %s: %w", path, err)
	}
	incoming := make(map[string]*Prompt)
	if err := json.Unmarshal(data, &incoming); err != nil {
		return res, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for name, p := range incoming {
		if _, exists := l.Prompts[name]; exists {
			if !overwrite {
				res.Skipped++
				continue
			}
			res.Overwritten++
		} else {
			res.Imported++
		}
		l.Prompts[name] = p
	}

	if res.Imported > 0 || res.Overwritten > 0 {
		if err := l.save(); err != nil {
			return res, err
		}
	}
	return res, nil
}

// UniqueName returns base when free, otherwise "base (2)", "base (3)", and
// so on.
func (l *Library) UniqueName(base string) string {
	if _, taken := l.Prompts[base]; !taken {
		return base
	}
	for i := 2; i <= 999; i++ {
		candidate := fmt.Sprintf("%s (%d)", base, i)
		if _, taken := l.Prompts[candidate]; !taken {
			return candidate
		}
	}
	return fmt.Sprintf("%s (%s)", base, time.Now().Format("15:04:05"))
}
