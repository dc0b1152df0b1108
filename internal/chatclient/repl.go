package chatclient

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/opencode-ai/companion/internal/storage"
	"github.com/opencode-ai/companion/pkg/types"
)

func newSessionID() string {
	return "chat_" + strings.ToLower(ulid.Make().String())
}

// REPL is an interactive chat session.
type REPL struct {
	opts     Options
	state    State
	store    *storage.Storage
	client   *Client
	renderer *Renderer
}

// New builds a REPL. It does not contact the server.
func New(opts Options, out, errOut io.Writer) *REPL {
	var store *storage.Storage
	if opts.StateDir != "" {
		store = storage.New(opts.StateDir)
	}
	opts, st := opts.resolve(store)
	return &REPL{
		opts:     opts,
		state:    st,
		store:    store,
		client:   NewClient(opts.URL),
		renderer: NewRenderer(out, errOut, opts),
	}
}

// State returns the current session settings.
func (r *REPL) State() State { return r.state }

func readMultiline(reader *bufio.Reader, out io.Writer, prompt string) (string, error) {
	var lines []string
	for {
		p := prompt
		if len(lines) > 0 {
			p = "... "
		}
		fmt.Fprint(out, p)
		line, err := reader.ReadString('\n')
		if err != nil {
			if len(lines) == 0 && line == "" {
				return "", err
			}
			return strings.Join(append(lines, strings.TrimRight(line, "\r\n")), "\n"), nil
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

// Run reads lines from in until /exit or EOF.
func (r *REPL) Run(ctx context.Context, in io.Reader) error {
	if err := r.client.Health(ctx); err != nil {
		return err
	}
	r.renderer.Banner(r.opts.URL, r.state)
	r.persist()

	reader := bufio.NewReader(in)
	prompt := ""
	if !r.opts.Quiet && !r.opts.JSON {
		prompt = "you › "
	}

	for {
		line, err := readMultiline(reader, r.renderer.out, prompt)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "/") {
			if done := r.handleCommand(ctx, parseCommand(trimmed)); done {
				return nil
			}
			continue
		}

		if err := r.Send(ctx, trimmed); err != nil {
			r.renderer.Error(err)
		}
	}
}

// Send streams one message and renders the reply.
func (r *REPL) Send(ctx context.Context, text string) error {
	req := &types.ChatRequest{
		Message:     text,
		Personality: r.state.Personality,
		Mood:        r.state.Mood,
		SessionID:   r.state.SessionID,
	}
	r.renderer.Trace("send", map[string]any{"sessionID": req.SessionID, "personality": req.Personality, "mood": req.Mood})
	err := r.client.Stream(ctx, req, func(chunk types.StreamChunk) {
		r.renderer.Chunk(r.state.Personality, chunk)
	})
	if err != nil {
		return err
	}
	r.persist()
	return nil
}

func (r *REPL) persist() {
	if err := SaveState(r.store, r.opts.URL, r.state); err != nil {
		r.renderer.Trace("state persistence failed", map[string]any{"error": err.Error()})
	}
}

// handleCommand runs a slash command. Returns true on /exit.
func (r *REPL) handleCommand(ctx context.Context, cmd command) bool {
	if cmd.err != "" {
		r.renderer.Info("%s", cmd.err)
		return false
	}

	switch cmd.kind {
	case cmdExit:
		return true
	case cmdHelp:
		r.renderer.Help(helpText)
	case cmdPersonality:
		list, err := r.client.Personalities(ctx)
		if err != nil {
			r.renderer.Error(err)
			return false
		}
		for _, p := range list {
			if p.ID == cmd.arg {
				r.state.Personality = p.ID
				r.persist()
				r.renderer.Info("personality: %s (%s)", p.ID, p.Name)
				return false
			}
		}
		r.renderer.Info("unknown personality %q; try /personalities", cmd.arg)
	case cmdPersonalities:
		list, err := r.client.Personalities(ctx)
		if err != nil {
			r.renderer.Error(err)
			return false
		}
		r.renderer.Personalities(list, r.state.Personality)
	case cmdMood:
		r.state.Mood = cmd.mood
		r.persist()
		r.renderer.Info("mood: %d", cmd.mood)
	case cmdSession:
		if cmd.arg == "" {
			r.state.SessionID = newSessionID()
		} else {
			r.state.SessionID = cmd.arg
		}
		r.persist()
		r.renderer.Info("session: %s", r.state.SessionID)
	case cmdClear:
		cleared, err := r.client.ClearSession(ctx, r.state.SessionID)
		if err != nil {
			r.renderer.Error(err)
			return false
		}
		if cleared {
			r.renderer.Info("history cleared")
		} else {
			r.renderer.Info("nothing to clear")
		}
	case cmdHistory:
		turns, err := r.client.History(ctx, r.state.SessionID)
		if err != nil {
			r.renderer.Error(err)
			return false
		}
		r.renderer.History(turns)
	default:
		r.renderer.Help(fmt.Sprintf("Unknown command: %s\n%s", cmd.arg, helpText))
	}
	return false
}
