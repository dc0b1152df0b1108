package chatclient

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/opencode-ai/companion/pkg/types"
)

// Renderer prints the conversation.
type Renderer struct {
	out     io.Writer
	errOut  io.Writer
	quiet   bool
	json    bool
	verbose bool

	streaming bool
}

// NewRenderer creates a renderer writing to out and errOut.
func NewRenderer(out, errOut io.Writer, opts Options) *Renderer {
	color.NoColor = opts.NoColor || color.NoColor
	return &Renderer{out: out, errOut: errOut, quiet: opts.Quiet, json: opts.JSON, verbose: opts.Verbose}
}

func (r *Renderer) emitJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Fprintln(r.out, string(b))
}

// Banner prints the connection line.
func (r *Renderer) Banner(url string, st State) {
	if r.quiet || r.json {
		return
	}
	fmt.Fprintln(r.errOut, color.New(color.FgHiBlack).Sprintf("Connected to %s (session %s, %s, mood %d)", url, st.SessionID, st.Personality, st.Mood))
	fmt.Fprintln(r.errOut, color.New(color.FgHiBlack).Sprint("Type /help for commands."))
}

// Info prints a status line.
func (r *Renderer) Info(format string, args ...any) {
	if r.json {
		r.emitJSON(map[string]string{"type": "info", "text": fmt.Sprintf(format, args...)})
		return
	}
	fmt.Fprintln(r.out, color.New(color.FgHiBlack).Sprintf(format, args...))
}

// Help prints text unless quiet.
func (r *Renderer) Help(text string) {
	if r.quiet {
		return
	}
	fmt.Fprintln(r.out, text)
}

// Error prints an error.
func (r *Renderer) Error(err error) {
	if r.json {
		r.emitJSON(map[string]string{"type": "error", "text": err.Error()})
		return
	}
	fmt.Fprintln(r.errOut, color.New(color.FgRed).Sprintf("error: %v", err))
}

// Trace prints details when verbose.
func (r *Renderer) Trace(msg string, details map[string]any) {
	if !r.verbose {
		return
	}
	fmt.Fprintln(r.errOut, color.New(color.FgHiBlack).Sprintf("[trace] %s %v", msg, details))
}

// Chunk renders one stream event.
func (r *Renderer) Chunk(personality string, chunk types.StreamChunk) {
	if r.json {
		r.emitJSON(chunk)
		return
	}

	label := color.New(color.FgGreen, color.Bold).Sprintf("%s ›", personality)
	switch chunk.Type {
	case types.ChunkStart:
		fmt.Fprintf(r.out, "%s ", label)
		r.streaming = true
	case types.ChunkText:
		if chunk.Metadata != nil && chunk.Metadata.Revision {
			// Earlier text was superseded; restart the line.
			fmt.Fprintf(r.out, "\n%s %s", color.New(color.FgYellow).Sprint("(revised)"), chunk.Content)
			return
		}
		fmt.Fprint(r.out, chunk.Content)
	case types.ChunkEnd:
		fmt.Fprintln(r.out)
		r.streaming = false
		if chunk.Metadata != nil {
			r.Trace("end", map[string]any{
				"confidence":   chunk.Metadata.Confidence,
				"responseTime": chunk.Metadata.ResponseTime,
				"method":       chunk.Metadata.Method,
			})
		}
	case types.ChunkError:
		if r.streaming {
			fmt.Fprintln(r.out)
		}
		r.streaming = false
		fmt.Fprintln(r.out, color.New(color.FgRed).Sprint(chunk.Content))
	}
}

// History prints stored turns.
func (r *Renderer) History(turns []types.Turn) {
	if r.json {
		r.emitJSON(map[string]any{"type": "history", "turns": turns})
		return
	}
	if len(turns) == 0 {
		r.Info("(no history)")
		return
	}
	for _, t := range turns {
		role := color.New(color.FgCyan).Sprint(string(t.Role))
		fmt.Fprintf(r.out, "%s: %s\n", role, strings.TrimSpace(t.Content))
	}
}

// Personalities prints the personality list, marking the current one.
func (r *Renderer) Personalities(list []types.PersonalityInfo, current string) {
	if r.json {
		r.emitJSON(map[string]any{"type": "personalities", "personalities": list})
		return
	}
	for _, p := range list {
		marker := " "
		if p.ID == current {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s %-14s %s\n", marker, color.New(color.Bold).Sprint(p.ID), p.Description)
	}
}
