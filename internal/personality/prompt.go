package personality

import (
	"fmt"
	"strings"
	"time"
)

// Tier is a mood bucket.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// TierFor buckets a mood in [0,100]: <=30 low, <=70 medium, otherwise high.
func TierFor(mood int) Tier {
	switch {
	case mood <= 30:
		return TierLow
	case mood <= 70:
		return TierMedium
	default:
		return TierHigh
	}
}

// Directives appended to every system prompt.
var directives = []string{
	"Keep a natural, conversational tone. Talk like a person, not a document.",
	"Only use a tool when the user clearly asks for something a tool provides. Never describe a tool call in text; invoke the tool instead.",
	"Your replies are read aloud. Do not use markdown, lists, emoji or code blocks. Write numbers, symbols and abbreviations the way they are spoken.",
	"Keep replies under three sentences unless the user asks for more detail.",
}

// Builder renders system prompts from a registry.
type Builder struct {
	registry *Registry
	now      func() time.Time
}

// NewBuilder creates a prompt builder reading the wall clock.
func NewBuilder(registry *Registry) *Builder {
	return &Builder{registry: registry, now: time.Now}
}

// WithClock returns a copy of the builder that reads time from now.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	return &Builder{registry: b.registry, now: now}
}

// Build renders the system prompt for a personality and mood.
func (b *Builder) Build(personalityID string, mood int) (string, error) {
	d, err := b.registry.Get(personalityID)
	if err != nil {
		return "", err
	}

	parts := []string{
		fmt.Sprintf("You are %s, a voice companion. Stay in character for the whole conversation.", d.Name),
		d.Prompt,
		"Current date and time: " + b.now().Format("Monday, January 2, 2006 at 3:04 PM MST") + ".",
		d.Moods.Fragment(TierFor(mood)),
		strings.Join(directives, "\n"),
	}

	return strings.Join(parts, "\n\n"), nil
}
