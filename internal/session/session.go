// Package session models a chat conversation: numbered messages with
// extracted code blocks, plus the variable table that travels with the
// conversation.
package session

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/skald-ai/skald/internal/variable"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation. Content is the template form;
// variable tokens are substituted at send time, never here.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CodeBlock is a fenced code block extracted from a message.
type CodeBlock struct {
	Number   int    `json:"number"`
	Language string `json:"language,omitempty"`
	Content  string `json:"content"`
}

// NumberedMessage wraps a message with its position and metadata.
type NumberedMessage struct {
	Number     int         `json:"number"`
	Message    Message     `json:"message"`
	Timestamp  time.Time   `json:"timestamp"`
	CodeBlocks []CodeBlock `json:"code_blocks,omitempty"`
	Provider   string      `json:"provider,omitempty"`
	Model      string      `json:"model,omitempty"`
}

// Session is one conversation and its settings. The variable table is
// owned by the session: one interactive user, one substitution in flight.
type Session struct {
	ID             string            `json:"id"`
	Name           string            `json:"name,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	Messages       []NumberedMessage `json:"messages"`
	Model          string            `json:"model"`
	Provider       string            `json:"provider,omitempty"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens"`
	SystemPrompt   string            `json:"system_prompt,omitempty"`
	Variables      *variable.Table   `json:"variables"`
	HasInteraction bool              `json:"has_llm_interaction"`
}

var codeBlockRe = regexp.MustCompile("(?s)```(\\w+)?\\n(.*?)\\n```")

// New creates an empty session for the given model and settings.
func New(model string, temperature float64, maxTokens int) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:          ulid.Make().String(),
		CreatedAt:   now,
		UpdatedAt:   now,
		Model:       model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Variables:   variable.NewTable(),
	}
}

// UnmarshalJSON decodes a stored session. Documents written before
// variables existed, or with "variables" set to null, come back with an
// empty table rather than a nil one.
func (s *Session) UnmarshalJSON(data []byte) error {
	type sessionAlias Session
	var a sessionAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if a.Variables == nil {
		a.Variables = variable.NewTable()
	}
	*s = Session(a)
	return nil
}

// AddMessage appends a message and returns its number.
func (s *Session) AddMessage(msg Message) int {
	return s.AddMessageWithMeta(msg, "", "")
}

// AddMessageWithMeta appends a message tagged with the provider and model
// that produced it.
func (s *Session) AddMessageWithMeta(msg Message, provider, model string) int {
	number := len(s.Messages) + 1
	s.Messages = append(s.Messages, NumberedMessage{
		Number:     number,
		Message:    msg,
		Timestamp:  time.Now().UTC(),
		CodeBlocks: extractCodeBlocks(msg.Content),
		Provider:   provider,
		Model:      model,
	})
	s.UpdatedAt = time.Now().UTC()
	return number
}

func extractCodeBlocks(content string) []CodeBlock {
	var blocks []CodeBlock
	number := 1
	for _, m := range codeBlockRe.FindAllStringSubmatch(content, -1) {
		if len(m[2]) == 0 {
			continue
		}
		blocks = append(blocks, CodeBlock{Number: number, Language: m[1], Content: m[2]})
		number++
	}
	return blocks
}

// Undo removes the last count messages.
func (s *Session) Undo(count int) error {
	if count > len(s.Messages) {
		return fmt.Errorf("cannot undo %d messages, only %d available", count, len(s.Messages))
	}
	s.Messages = s.Messages[:len(s.Messages)-count]
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Goto truncates the conversation back to the given message number.
func (s *Session) Goto(number int) error {
	if number <= 0 || number > len(s.Messages) {
		return fmt.Errorf("invalid message number: %d", number)
	}
	s.Messages = s.Messages[:number]
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Blocks returns all code blocks across the conversation, renumbered in
// order of appearance.
func (s *Session) Blocks() []CodeBlock {
	var out []CodeBlock
	for _, msg := range s.Messages {
		for _, b := range msg.CodeBlocks {
			b.Number = len(out) + 1
			out = append(out, b)
		}
	}
	return out
}

// MarkInteraction records that the session has talked to a provider,
// making it eligible for auto-save.
func (s *Session) MarkInteraction() {
	s.HasInteraction = true
}

// ShouldAutoSave reports whether the session is worth persisting under an
// automatic name.
func (s *Session) ShouldAutoSave() bool {
	return s.HasInteraction && len(s.Messages) > 0
}

// AutoName derives a save name from the creation time.
func (s *Session) AutoName() string {
	return s.CreatedAt.Format("2006-01-02_15:04:05")
}

// Fork returns a new unnamed session sharing this one's messages and
// settings but with a fresh identity. The variable table is copied so the
// fork and the original diverge independently.
func (s *Session) Fork() *Session {
	forked := New(s.Model, s.Temperature, s.MaxTokens)
	forked.Provider = s.Provider
	forked.SystemPrompt = s.SystemPrompt
	forked.Messages = append([]NumberedMessage(nil), s.Messages...)
	for _, b := range s.Variables.Bindings() {
		copied := variable.New(b.Name(), b.Source())
		if val, ok := b.FrozenValue(); ok {
			copied.SetFrozen(val)
		}
		forked.Variables.Set(copied)
	}
	return forked
}

// Merge appends the other session's messages onto this one, renumbering
// as it goes.
func (s *Session) Merge(other *Session) {
	for _, msg := range other.Messages {
		msg.Number = len(s.Messages) + 1
		s.Messages = append(s.Messages, msg)
	}
	if len(other.Messages) > 0 {
		s.HasInteraction = true
	}
	s.UpdatedAt = time.Now().UTC()
}
