package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skald-ai/skald/internal/command"
	"github.com/skald-ai/skald/internal/config"
	"github.com/skald-ai/skald/internal/history"
	"github.com/skald-ai/skald/internal/logging"
	"github.com/skald-ai/skald/internal/prompts"
	"github.com/skald-ai/skald/internal/provider"
	"github.com/skald-ai/skald/internal/recovery"
	"github.com/skald-ai/skald/internal/session"
	"github.com/skald-ai/skald/internal/source"
	"github.com/skald-ai/skald/internal/storage"
	"github.com/skald-ai/skald/internal/template"
	"github.com/skald-ai/skald/internal/variable"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runChat(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

const helpText = `Commands:
  /help                      show this help
  /quit                      save and exit
  /clear                     start a fresh conversation
  /status                    show session settings
  /history                   show the conversation so far
  /undo [n]                  drop the last n messages
  /goto <n>                  truncate after message n
  /blocks                    list code blocks in the conversation
  /search <term>             search all sessions
  /input-history             show recent input lines; also clear|stats

  /model <name>              switch model
  /models                    list available models
  /system [text]             show or set the system prompt
  /temp <t>                  set sampling temperature
  /max-tokens <n>            set the response token limit

  /chat new|save <name>|load <name|#n>|list|delete <name|#n>|
        continue [name|#n]|merge <name|#n>|fork [name]|rename <name>

  /load <source> [name]      bind a variable: =text, @path, or !command
  /vars                      list variables
  /var show <name>           show a variable and its current value
  /var delete <name>         remove a variable
  /var freeze <name>         pin a variable to its current value
  /var unfreeze <name>       let a variable go live again
  /var reload [name]         refresh frozen snapshots

  /prompts [list]            prompt library; also show|save|edit|apply|
                             delete|rename|search|import|export

Reference a variable in a message as {{name}}, or inline a one-off value
as {{=text}}, {{@path}}, or {{!command}}. End a line with \ to continue
on the next line.`

// repl holds the state of one interactive run.
type repl struct {
	cfg       *config.Config
	evaluator *source.Evaluator
	history   *history.History
	prompts   *prompts.Library
	session   *session.Session
	inputs    *history.InputHistory
	providers map[string]provider.Provider
	reader    *bufio.Reader
	out       io.Writer
}

func runChat() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return fmt.Errorf("failed to create data directories: %w", err)
	}
	store := storage.New(paths.StoragePath())

	hist, err := history.Load(store)
	if err != nil {
		return err
	}
	library, err := prompts.Load(store)
	if err != nil {
		return err
	}
	inputs, err := history.LoadInput(store)
	if err != nil {
		return err
	}

	env := source.DefaultEnv()
	if cfg.Shell != "" {
		env.Shell = cfg.Shell
	}

	sess := session.New(cfg.Model, cfg.Temperature, cfg.MaxTokens)
	sess.SystemPrompt = cfg.SystemPrompt

	r := &repl{
		cfg:       cfg,
		evaluator: source.NewEvaluator(env),
		history:   hist,
		prompts:   library,
		session:   sess,
		inputs:    inputs,
		providers: make(map[string]provider.Provider),
		reader:    bufio.NewReader(os.Stdin),
		out:       os.Stdout,
	}
	return r.run()
}

func (r *repl) run() error {
	fmt.Fprintf(r.out, "skald %s — model %s. /help for commands.\n", Version, r.session.Model)

	for {
		line, err := r.readMultiline()
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.autoSave()
				return nil
			}
			return err
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		r.recordInput(input)

		cmd, err := command.Parse(input)
		if err != nil {
			fmt.Fprintln(r.out, err)
			continue
		}
		if cmd == nil {
			r.send(input)
			continue
		}
		if cmd.Kind == command.KindQuit {
			r.autoSave()
			return nil
		}
		r.dispatch(cmd)
	}
}

func (r *repl) readMultiline() (string, error) {
	var lines []string
	for {
		if len(lines) == 0 {
			fmt.Fprint(r.out, "> ")
		} else {
			fmt.Fprint(r.out, "... ")
		}
		line, err := r.reader.ReadString('\n')
		if err != nil {
			if len(lines) == 0 {
				return "", err
			}
			return strings.Join(lines, "\n"), nil
		}
		line = strings.TrimRight(line, "\r\n")
		if strings.HasSuffix(line, "\\") {
			lines = append(lines, strings.TrimSuffix(line, "\\"))
			continue
		}
		lines = append(lines, line)
		return strings.Join(lines, "\n"), nil
	}
}

// recordInput appends the line to the persistent input log.
func (r *repl) recordInput(input string) {
	r.inputs.Record(input)
	if err := r.inputs.Save(); err != nil {
		logging.Warn().Err(err).Msg("failed to persist input history")
	}
}

// send substitutes variables into the input and streams the model reply.
func (r *repl) send(input string) {
	outcome, err := recovery.Resolve(input, r.session.Variables, r.evaluator, recovery.DeciderFunc(r.decide))
	if err != nil {
		fmt.Fprintln(r.out, err)
		return
	}
	switch outcome.Action {
	case recovery.ActionAbort:
		fmt.Fprintln(r.out, "Send aborted.")
		return
	case recovery.ActionEdit:
		fmt.Fprintln(r.out, "Send cancelled; adjust the variable sources and resend.")
		return
	}
	for _, warning := range outcome.Warnings {
		fmt.Fprintf(r.out, "warning: %s\n", warning)
	}

	providerName, p, err := r.providerForModel(r.session.Model)
	if err != nil {
		fmt.Fprintln(r.out, err)
		return
	}

	r.session.AddMessageWithMeta(session.Message{Role: session.RoleUser, Content: outcome.Text}, providerName, r.session.Model)

	req := provider.Request{
		Model:       r.session.Model,
		Messages:    r.providerMessages(),
		System:      r.session.SystemPrompt,
		Temperature: r.session.Temperature,
		MaxTokens:   r.session.MaxTokens,
	}
	reply, err := p.Stream(context.Background(), req, func(delta string) {
		fmt.Fprint(r.out, delta)
	})
	fmt.Fprintln(r.out)
	if err != nil {
		fmt.Fprintf(r.out, "error: %v\n", err)
		if reply == "" {
			return
		}
	}

	r.session.AddMessageWithMeta(session.Message{Role: session.RoleAssistant, Content: reply}, providerName, r.session.Model)
	r.session.MarkInteraction()
	r.history.SetCurrent(r.session)
	if err := r.history.Save(); err != nil {
		logging.Warn().Err(err).Msg("failed to persist history")
	}
}

// decide prompts the user for the four-way recovery choice.
func (r *repl) decide(failures []template.Failure) (recovery.Choice, error) {
	fmt.Fprintf(r.out, "%d variable(s) failed to evaluate:\n", len(failures))
	for _, f := range failures {
		fmt.Fprintf(r.out, "  %s: %v\n", f.Token, f.Err)
	}
	for {
		fmt.Fprint(r.out, "[s]kip all variables, [a]bort, [r]etry, [e]dit sources? ")
		line, err := r.reader.ReadString('\n')
		if err != nil {
			return recovery.ChoiceAbort, nil
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "s", "skip":
			return recovery.ChoiceSkip, nil
		case "a", "abort":
			return recovery.ChoiceAbort, nil
		case "r", "retry":
			return recovery.ChoiceRetry, nil
		case "e", "edit":
			return recovery.ChoiceEditSource, nil
		}
	}
}

func (r *repl) providerMessages() []provider.Message {
	messages := make([]provider.Message, 0, len(r.session.Messages))
	for _, m := range r.session.Messages {
		messages = append(messages, provider.Message{
			Role:    string(m.Message.Role),
			Content: m.Message.Content,
		})
	}
	return messages
}

func (r *repl) providerForModel(model string) (string, provider.Provider, error) {
	name, ok := provider.ForModel(model)
	if !ok {
		return "", nil, fmt.Errorf("no provider knows model %q, see /models", model)
	}
	if p, ok := r.providers[name]; ok {
		return name, p, nil
	}
	apiKey := r.cfg.APIKey(name)
	if apiKey == "" {
		return "", nil, fmt.Errorf("no API key configured for %s", name)
	}
	p, err := provider.New(name, provider.Options{APIKey: apiKey, BaseURL: r.cfg.Provider[name].BaseURL})
	if err != nil {
		return "", nil, err
	}
	r.providers[name] = p
	return name, p, nil
}

func (r *repl) autoSave() {
	name, err := r.autoSaveSession()
	if err != nil {
		fmt.Fprintf(r.out, "warning: failed to save session: %v\n", err)
		return
	}
	if name != "" {
		fmt.Fprintf(r.out, "Session saved as %q.\n", name)
	}
}

func (r *repl) autoSaveSession() (string, error) {
	if r.session.Name != "" {
		return r.session.Name, r.history.SaveSession(r.session.Name, r.session)
	}
	return r.history.AutoSave(r.session)
}

func (r *repl) dispatch(cmd *command.Command) {
	switch cmd.Kind {
	case command.KindHelp:
		fmt.Fprintln(r.out, helpText)
	case command.KindClear:
		r.newSession()
		fmt.Fprintln(r.out, "Started a fresh conversation.")
	case command.KindStatus:
		r.showStatus()
	case command.KindHistory:
		r.showHistory()
	case command.KindBlocks:
		r.showBlocks()
	case command.KindInputHistory:
		r.showInputHistory()
	case command.KindInputHistoryClear:
		if err := r.inputs.Clear(); err != nil {
			fmt.Fprintln(r.out, err)
			return
		}
		fmt.Fprintln(r.out, "Input history cleared.")
	case command.KindInputHistoryStats:
		r.showInputStats()
	case command.KindModels:
		r.showModels()
	case command.KindModel:
		if _, ok := provider.ForModel(cmd.Text); !ok {
			fmt.Fprintf(r.out, "unknown model %q, see /models\n", cmd.Text)
			return
		}
		r.session.Model = cmd.Text
		fmt.Fprintf(r.out, "Model set to %s.\n", cmd.Text)
	case command.KindSystem:
		if cmd.Text == "" {
			if r.session.SystemPrompt == "" {
				fmt.Fprintln(r.out, "No system prompt set.")
			} else {
				fmt.Fprintln(r.out, r.session.SystemPrompt)
			}
			return
		}
		r.session.SystemPrompt = cmd.Text
		fmt.Fprintln(r.out, "System prompt updated.")
	case command.KindTemperature:
		r.session.Temperature = cmd.Value
		fmt.Fprintf(r.out, "Temperature set to %g.\n", cmd.Value)
	case command.KindMaxTokens:
		r.session.MaxTokens = cmd.Number
		fmt.Fprintf(r.out, "Max tokens set to %d.\n", cmd.Number)
	case command.KindUndo:
		if err := r.session.Undo(cmd.Number); err != nil {
			fmt.Fprintln(r.out, err)
			return
		}
		fmt.Fprintf(r.out, "Removed %d message(s).\n", cmd.Number)
	case command.KindGoto:
		if err := r.session.Goto(cmd.Number); err != nil {
			fmt.Fprintln(r.out, err)
			return
		}
		fmt.Fprintf(r.out, "Conversation truncated after message %d.\n", cmd.Number)
	case command.KindSearch:
		r.showSearch(cmd.Text)
	case command.KindChatNew:
		r.autoSave()
		r.newSession()
		fmt.Fprintln(r.out, "Started a new session.")
	case command.KindChatSave:
		if err := r.history.SaveSession(cmd.Name, r.session); err != nil {
			fmt.Fprintln(r.out, err)
			return
		}
		fmt.Fprintf(r.out, "Session saved as %q.\n", cmd.Name)
	case command.KindChatLoad:
		r.loadSession(cmd.Session)
	case command.KindChatList:
		r.listSessions()
	case command.KindChatDelete:
		r.deleteSession(cmd.Session)
	case command.KindChatContinue:
		r.continueSession(cmd.Session)
	case command.KindChatMerge:
		r.mergeSession(cmd.Session)
	case command.KindChatFork:
		forked := r.session.Fork()
		forked.Name = cmd.Name
		r.session = forked
		if cmd.Name != "" {
			fmt.Fprintf(r.out, "Forked into %q.\n", cmd.Name)
		} else {
			fmt.Fprintln(r.out, "Forked the conversation.")
		}
	case command.KindChatRename:
		r.session.Name = cmd.NewName
		fmt.Fprintf(r.out, "Session renamed to %q.\n", cmd.NewName)
	case command.KindLoad:
		r.bindVariable(cmd.Source, cmd.Name)
	case command.KindVars:
		r.listVariables()
	case command.KindVarShow:
		r.showVariable(cmd.Name)
	case command.KindVarDelete:
		if r.session.Variables.Delete(cmd.Name) {
			fmt.Fprintf(r.out, "Deleted %s.\n", cmd.Name)
		} else {
			fmt.Fprintf(r.out, "No variable named %q.\n", cmd.Name)
		}
	case command.KindVarFreeze:
		r.freezeVariable(cmd.Name)
	case command.KindVarUnfreeze:
		r.unfreezeVariable(cmd.Name)
	case command.KindVarReload:
		r.reloadVariables(cmd.Name)
	default:
		r.dispatchPrompts(cmd)
	}
}

func (r *repl) newSession() {
	sess := session.New(r.session.Model, r.session.Temperature, r.session.MaxTokens)
	sess.SystemPrompt = r.session.SystemPrompt
	r.session = sess
}

func (r *repl) showStatus() {
	providerName, _ := provider.ForModel(r.session.Model)
	fmt.Fprintf(r.out, "model:       %s (%s)\n", r.session.Model, providerName)
	fmt.Fprintf(r.out, "temperature: %g\n", r.session.Temperature)
	fmt.Fprintf(r.out, "max tokens:  %d\n", r.session.MaxTokens)
	fmt.Fprintf(r.out, "messages:    %d\n", len(r.session.Messages))
	fmt.Fprintf(r.out, "variables:   %d\n", r.session.Variables.Len())
	if r.session.Name != "" {
		fmt.Fprintf(r.out, "session:     %s\n", r.session.Name)
	}
}

func (r *repl) showHistory() {
	if len(r.session.Messages) == 0 {
		fmt.Fprintln(r.out, "No messages yet.")
		return
	}
	for _, m := range r.session.Messages {
		fmt.Fprintf(r.out, "[%d] %s: %s\n", m.Number, m.Message.Role, m.Message.Content)
	}
}

func (r *repl) showBlocks() {
	blocks := r.session.Blocks()
	if len(blocks) == 0 {
		fmt.Fprintln(r.out, "No code blocks in this conversation.")
		return
	}
	for _, b := range blocks {
		lang := b.Language
		if lang == "" {
			lang = "text"
		}
		fmt.Fprintf(r.out, "[%d] %s (%d bytes)\n", b.Number, lang, len(b.Content))
	}
}

const inputHistoryDisplayLimit = 20

func (r *repl) showInputHistory() {
	if r.inputs.Len() == 0 {
		fmt.Fprintln(r.out, "No input recorded yet.")
		return
	}
	for _, e := range r.inputs.Recent(inputHistoryDisplayLimit) {
		fmt.Fprintf(r.out, "%s  %s\n", e.Timestamp.Local().Format("2006-01-02 15:04"), e.Input)
	}
}

func (r *repl) showInputStats() {
	st := r.inputs.Stats()
	if st.Total == 0 {
		fmt.Fprintln(r.out, "No input recorded yet.")
		return
	}
	fmt.Fprintf(r.out, "entries: %d (%d unique)\n", st.Total, st.Unique)
	fmt.Fprintf(r.out, "oldest:  %s\n", st.Oldest.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(r.out, "newest:  %s\n", st.Newest.Local().Format("2006-01-02 15:04"))
}

func (r *repl) showModels() {
	for _, name := range []string{"anthropic", "openai", "gemini"} {
		p, err := provider.New(name, provider.Options{})
		if err != nil {
			continue
		}
		fmt.Fprintf(r.out, "%s:\n", name)
		for _, model := range p.Models() {
			marker := " "
			if model == r.session.Model {
				marker = "*"
			}
			fmt.Fprintf(r.out, " %s %s\n", marker, model)
		}
	}
}

func (r *repl) showSearch(term string) {
	results := r.history.Search(term, r.session)
	if len(results) == 0 {
		fmt.Fprintf(r.out, "No matches for %q.\n", term)
		return
	}
	for _, res := range results {
		fmt.Fprintf(r.out, "%s [%d] %s: %s\n", res.SessionName, res.MessageNumber, res.Role, res.Excerpt)
	}
}

// resolveRef maps a name-or-#n session reference to a saved session name.
func (r *repl) resolveRef(ref command.SessionRef) (string, error) {
	if ref.Index > 0 {
		recent := r.history.Recent(0)
		if ref.Index > len(recent) {
			return "", fmt.Errorf("only %d saved session(s)", len(recent))
		}
		return recent[ref.Index-1].Name, nil
	}
	if _, ok := r.history.Get(ref.Name); !ok {
		return "", fmt.Errorf("no session named %q", ref.Name)
	}
	return ref.Name, nil
}

func (r *repl) loadSession(ref command.SessionRef) {
	name, err := r.resolveRef(ref)
	if err != nil {
		fmt.Fprintln(r.out, err)
		return
	}
	r.autoSave()
	loaded, _ := r.history.Get(name)
	r.session = loaded
	fmt.Fprintf(r.out, "Loaded session %q (%d messages).\n", name, len(loaded.Messages))
}

// continueSession resumes a saved session; with no reference it picks the
// most recently updated one.
func (r *repl) continueSession(ref command.SessionRef) {
	if ref.Name == "" && ref.Index == 0 {
		latest, ok := r.history.MostRecent()
		if !ok {
			fmt.Fprintln(r.out, "No saved sessions to continue.")
			return
		}
		ref = command.SessionRef{Name: latest.Name}
	}
	r.loadSession(ref)
}

// mergeSession appends a saved session's messages onto the current one.
func (r *repl) mergeSession(ref command.SessionRef) {
	name, err := r.resolveRef(ref)
	if err != nil {
		fmt.Fprintln(r.out, err)
		return
	}
	other, _ := r.history.Get(name)
	before := len(r.session.Messages)
	r.session.Merge(other)
	fmt.Fprintf(r.out, "Merged %d message(s) from %q.\n", len(r.session.Messages)-before, name)
}

func (r *repl) listSessions() {
	sessions := r.history.Recent(0)
	if len(sessions) == 0 {
		fmt.Fprintln(r.out, "No saved sessions.")
		return
	}
	for i, s := range sessions {
		fmt.Fprintf(r.out, "#%d %s (%d messages, updated %s)\n",
			i+1, s.Name, len(s.Messages), s.UpdatedAt.Format("2006-01-02 15:04"))
	}
}

func (r *repl) deleteSession(ref command.SessionRef) {
	name, err := r.resolveRef(ref)
	if err != nil {
		fmt.Fprintln(r.out, err)
		return
	}
	if _, err := r.history.Delete(name); err != nil {
		fmt.Fprintln(r.out, err)
		return
	}
	fmt.Fprintf(r.out, "Deleted session %q.\n", name)
}

// bindVariable creates a binding from a source descriptor. A bare path is
// shorthand for a file source.
func (r *repl) bindVariable(raw, name string) {
	if !strings.HasPrefix(raw, "=") && !strings.HasPrefix(raw, "@") && !strings.HasPrefix(raw, "!") {
		raw = "@" + raw
	}
	src, err := source.Parse(raw)
	if err != nil {
		fmt.Fprintln(r.out, err)
		return
	}
	if src.Type() == source.TypeCommand {
		if src.TimeoutSecs() == source.DefaultCommandTimeout && r.cfg.CommandTimeoutSecs != source.DefaultCommandTimeout {
			src = source.CommandWithTimeout(src.Text(), r.cfg.CommandTimeoutSecs)
		}
		if err := source.CheckSyntax(src.Text()); err != nil {
			fmt.Fprintf(r.out, "warning: %v\n", err)
		}
	}

	if name == "" {
		switch src.Type() {
		case source.TypeFile:
			name = variable.DeriveName(src.Text())
		case source.TypeCommand:
			name = source.CommandName(src.Text())
		}
		if name == "" {
			fmt.Fprintln(r.out, "a name is required for this source, use /load <source> <name>")
			return
		}
	}

	binding := variable.New(name, src)
	r.session.Variables.Set(binding)

	// Evaluate once up front so broken sources surface immediately.
	result, err := binding.Value(r.evaluator)
	if err != nil {
		fmt.Fprintf(r.out, "Bound %s %s = %s (warning: %v)\n", binding.Status(), name, src.Label(), err)
		return
	}
	if result.Warning != "" {
		fmt.Fprintf(r.out, "warning: %s\n", result.Warning)
	}
	fmt.Fprintf(r.out, "Bound %s %s = %s (%d bytes)\n", binding.Status(), name, src.Label(), len(result.Text))
}

func (r *repl) listVariables() {
	bindings := r.session.Variables.Bindings()
	if len(bindings) == 0 {
		fmt.Fprintln(r.out, "No variables bound. Use /load <source> [name].")
		return
	}
	for _, b := range bindings {
		fmt.Fprintf(r.out, "%s %s = %s\n", b.Status(), b.Name(), b.Source().Label())
	}
}

func (r *repl) showVariable(name string) {
	b, ok := r.session.Variables.Get(name)
	if !ok {
		fmt.Fprintf(r.out, "No variable named %q.\n", name)
		return
	}
	fmt.Fprintf(r.out, "%s %s = %s\n", b.Status(), b.Name(), b.Source().Render())
	result, err := b.Value(r.evaluator)
	if err != nil {
		fmt.Fprintf(r.out, "value unavailable: %v\n", err)
		return
	}
	text := result.Text
	if len(text) > 500 {
		text = text[:500] + fmt.Sprintf("... (%d bytes total)", len(result.Text))
	}
	fmt.Fprintln(r.out, text)
}

func (r *repl) freezeVariable(name string) {
	b, ok := r.session.Variables.Get(name)
	if !ok {
		fmt.Fprintf(r.out, "No variable named %q.\n", name)
		return
	}
	if err := b.Freeze(r.evaluator); err != nil {
		fmt.Fprintf(r.out, "freeze failed, %s is unchanged: %v\n", name, err)
		return
	}
	fmt.Fprintf(r.out, "%s is now frozen.\n", name)
}

func (r *repl) unfreezeVariable(name string) {
	b, ok := r.session.Variables.Get(name)
	if !ok {
		fmt.Fprintf(r.out, "No variable named %q.\n", name)
		return
	}
	b.Unfreeze()
	fmt.Fprintf(r.out, "%s is live again.\n", name)
}

// reloadVariables refreshes one binding, or every frozen binding when name
// is empty.
func (r *repl) reloadVariables(name string) {
	if name != "" {
		b, ok := r.session.Variables.Get(name)
		if !ok {
			fmt.Fprintf(r.out, "No variable named %q.\n", name)
			return
		}
		if err := b.Reload(r.evaluator); err != nil {
			fmt.Fprintf(r.out, "reload failed, %s keeps its old value: %v\n", name, err)
			return
		}
		fmt.Fprintf(r.out, "Reloaded %s.\n", name)
		return
	}
	reloaded := 0
	for _, b := range r.session.Variables.Bindings() {
		if !b.IsFrozen() {
			continue
		}
		if err := b.Reload(r.evaluator); err != nil {
			fmt.Fprintf(r.out, "reload failed, %s keeps its old value: %v\n", b.Name(), err)
			continue
		}
		reloaded++
	}
	fmt.Fprintf(r.out, "Reloaded %d frozen variable(s).\n", reloaded)
}

func (r *repl) dispatchPrompts(cmd *command.Command) {
	switch cmd.Kind {
	case command.KindPromptsList:
		names := r.prompts.Names()
		if len(names) == 0 {
			fmt.Fprintln(r.out, "No saved prompts.")
			return
		}
		for _, name := range names {
			p, _ := r.prompts.Get(name)
			fmt.Fprintf(r.out, "%s (used %d times)\n", name, p.UsageCount)
		}
	case command.KindPromptsShow:
		p, ok := r.prompts.Get(cmd.Name)
		if !ok {
			fmt.Fprintf(r.out, "No prompt named %q.\n", cmd.Name)
			return
		}
		fmt.Fprintln(r.out, p.Content)
	case command.KindPromptsSave:
		content := cmd.Text
		if content == "" {
			content = r.session.SystemPrompt
		}
		if content == "" {
			fmt.Fprintln(r.out, "Nothing to save: no content given and no system prompt set.")
			return
		}
		// A colliding name gets a numbered variant instead of
		// clobbering the existing prompt; /prompts edit overwrites.
		name := r.prompts.UniqueName(cmd.Name)
		if err := r.prompts.Save(name, content); err != nil {
			fmt.Fprintln(r.out, err)
			return
		}
		fmt.Fprintf(r.out, "Prompt %q saved.\n", name)
	case command.KindPromptsEdit:
		ok, err := r.prompts.UpdateContent(cmd.Name, cmd.Text)
		if err != nil {
			fmt.Fprintln(r.out, err)
			return
		}
		if !ok {
			fmt.Fprintf(r.out, "No prompt named %q.\n", cmd.Name)
			return
		}
		fmt.Fprintf(r.out, "Prompt %q updated.\n", cmd.Name)
	case command.KindPromptsApply:
		content, ok := r.prompts.Apply(cmd.Name)
		if !ok {
			fmt.Fprintf(r.out, "No prompt named %q.\n", cmd.Name)
			return
		}
		r.session.SystemPrompt = content
		fmt.Fprintf(r.out, "System prompt set from %q.\n", cmd.Name)
	case command.KindPromptsDelete:
		ok, err := r.prompts.Delete(cmd.Name)
		if err != nil {
			fmt.Fprintln(r.out, err)
			return
		}
		if !ok {
			fmt.Fprintf(r.out, "No prompt named %q.\n", cmd.Name)
			return
		}
		fmt.Fprintf(r.out, "Prompt %q deleted.\n", cmd.Name)
	case command.KindPromptsRename:
		ok, err := r.prompts.Rename(cmd.Name, cmd.NewName)
		if err != nil {
			fmt.Fprintln(r.out, err)
			return
		}
		if !ok {
			fmt.Fprintf(r.out, "No prompt named %q.\n", cmd.Name)
			return
		}
		fmt.Fprintf(r.out, "Renamed %q to %q.\n", cmd.Name, cmd.NewName)
	case command.KindPromptsSearch:
		results := r.prompts.Search(cmd.Name)
		if len(results) == 0 {
			fmt.Fprintf(r.out, "No prompts match %q.\n", cmd.Name)
			return
		}
		for _, res := range results {
			fmt.Fprintf(r.out, "%s (matched %s)\n", res.Prompt.Name, strings.Join(res.MatchedFields, ", "))
		}
	case command.KindPromptsImport:
		res, err := r.prompts.Import(cmd.Name, false)
		if err != nil {
			fmt.Fprintln(r.out, err)
			return
		}
		fmt.Fprintf(r.out, "Imported %d, skipped %d existing.\n", res.Imported, res.Skipped)
	case command.KindPromptsExport:
		out, err := r.prompts.Export(cmd.Name)
		if err != nil {
			fmt.Fprintln(r.out, err)
			return
		}
		fmt.Fprintln(r.out, out)
	default:
		fmt.Fprintln(r.out, "Unhandled command, see /help.")
	}
}
