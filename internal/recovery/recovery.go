// Package recovery salvages replies in which the model wrote a tool call as
// plain text instead of using the structured tool-calling channel.
package recovery

import (
	"context"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/opencode-ai/companion/internal/logging"
)

const (
	// DefaultTool handles media requests whose markup names no usable tool.
	DefaultTool = "play_music"

	// MaxNameDistance is the largest edit distance accepted when matching a
	// written tool name to a registered one.
	MaxNameDistance = 2

	// Apology replaces a malformed reply that could not be recovered.
	Apology = "Sorry, I couldn't complete that request. If you asked for music, make sure Spotify is connected and try again."
)

// Recoverer detects and repairs malformed tool-call text.
type Recoverer interface {
	Detect(text string) bool
	Recover(ctx context.Context, text, userText string) string
}

// Invoker runs tools by name.
type Invoker interface {
	IDs() []string
	Invoke(ctx context.Context, id, input string) (string, error)
}

// Recovery is the default Recoverer.
type Recovery struct {
	tools Invoker
}

// New creates a Recovery that invokes tools through tools.
func New(tools Invoker) *Recovery {
	return &Recovery{tools: tools}
}

var markers = []*regexp.Regexp{
	regexp.MustCompile(`<function=`),
	regexp.MustCompile(`<tool_call>`),
	regexp.MustCompile(`\[TOOL_CALLS\]`),
	regexp.MustCompile(`<\|python_tag\|>`),
	regexp.MustCompile(`\{\s*"name"\s*:\s*"[^"]*"\s*,\s*"(?:arguments|parameters)"\s*:`),
}

// Detect reports whether text contains tool-call pseudo-markup.
func (r *Recovery) Detect(text string) bool {
	for _, m := range markers {
		if m.MatchString(text) {
			return true
		}
	}
	return false
}

var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`<function=([\w.-]+)`),
	regexp.MustCompile(`"name"\s*:\s*"([\w.-]+)"`),
	regexp.MustCompile(`<\|python_tag\|>\s*([\w.-]+)\s*\(`),
	regexp.MustCompile(`\b([a-z][a-z0-9]*(?:_[a-z0-9]+)+)\s*\(`),
}

// toolName returns the tool name written in the markup, if any.
func toolName(text string) string {
	for _, p := range namePatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

var mediaKeywords = []string{
	"play", "song", "music", "track", "listen", "spotify", "album",
	"artist", "playlist", "tune", "pause", "skip",
}

// IsMediaRequest reports whether userText asks for music playback.
func IsMediaRequest(userText string) bool {
	words := strings.FieldsFunc(strings.ToLower(userText), func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
	for _, w := range words {
		for _, k := range mediaKeywords {
			if w == k || (len(w) > len(k) && strings.HasPrefix(w, k) && (strings.HasSuffix(w, "s") || strings.HasSuffix(w, "ing"))) {
				return true
			}
		}
	}
	return false
}

// argPatterns are tried in order; each yields one or two capture groups.
var argPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"(?:input|query|q|song|song_name|track|track_name|title|search|search_query|action)"\s*:\s*"([^"]+)"`),
	regexp.MustCompile(`<parameter=\w+>\s*([^<]+?)\s*</parameter>`),
	regexp.MustCompile(`\w+\(\s*(?:\w+\s*=\s*)?["']([^"']+)["']\s*\)`),
	regexp.MustCompile(`(?i)\bplay\s+(?:the\s+song\s+|the\s+track\s+|me\s+|some\s+)?(.+?)\s+by\s+(.+?)(?:\s+on\s+spotify)?\s*(?:[.!?]|$)`),
	regexp.MustCompile(`(?i)\bplay\s+(?:the\s+song\s+|the\s+track\s+|me\s+|some\s+)?(.+?)(?:\s+on\s+spotify)?\s*(?:[.!?]|$)`),
}

var controlPattern = regexp.MustCompile(`(?i)\b(pause|resume|next|previous|skip|stop|unpause)\b`)

// ExtractArgument finds the tool argument in the malformed text first and
// the user's text second. It returns "" when nothing matches.
func ExtractArgument(text, userText string) string {
	for _, source := range []string{text, userText} {
		if source == "" {
			continue
		}
		for _, p := range argPatterns {
			m := p.FindStringSubmatch(source)
			if m == nil {
				continue
			}
			arg := strings.TrimSpace(m[1])
			if len(m) > 2 && strings.TrimSpace(m[2]) != "" {
				arg += " by " + strings.TrimSpace(m[2])
			}
			if arg != "" {
				return arg
			}
		}
	}
	return ""
}

// matchTool returns the registered tool closest to name within
// MaxNameDistance, or "".
func (r *Recovery) matchTool(name string) string {
	if name == "" {
		return ""
	}
	best, bestDist := "", MaxNameDistance+1
	for _, id := range r.tools.IDs() {
		d := levenshtein.ComputeDistance(strings.ToLower(name), id)
		if d < bestDist {
			best, bestDist = id, d
		}
	}
	return best
}

func (r *Recovery) registered(id string) bool {
	for _, t := range r.tools.IDs() {
		if t == id {
			return true
		}
	}
	return false
}

// Recover resolves the intended tool call, runs it and returns its result.
// It returns Apology when the call cannot be reconstructed.
func (r *Recovery) Recover(ctx context.Context, text, userText string) string {
	log := logging.Component("recovery")

	written := toolName(text)
	target := r.matchTool(written)
	if target == "" && IsMediaRequest(userText) && r.registered(DefaultTool) {
		target = DefaultTool
	}
	if target == "" {
		log.Warn().Str("written", written).Msg("no tool matches malformed call")
		return Apology
	}

	var arg string
	if target == "control_music" {
		if m := controlPattern.FindStringSubmatch(text + " " + userText); m != nil {
			arg = strings.ToLower(m[1])
		}
	}
	if arg == "" {
		arg = ExtractArgument(text, userText)
	}
	if arg == "" {
		log.Warn().Str("tool", target).Msg("could not extract argument from malformed call")
		return Apology
	}

	out, err := r.tools.Invoke(ctx, target, arg)
	if err != nil {
		log.Warn().Err(err).Str("tool", target).Msg("recovered tool call failed")
		return Apology
	}
	log.Info().Str("tool", target).Str("written", written).Msg("recovered malformed tool call")
	return out
}
