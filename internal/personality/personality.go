// Package personality provides personality descriptors and the system prompt
// builder that conditions the model on a personality and a mood level.
package personality

import (
	"errors"
	"fmt"
)

// ErrUnknownPersonality is returned when a personality id does not resolve.
var ErrUnknownPersonality = errors.New("unknown personality")

// Descriptor is the static configuration of one personality.
type Descriptor struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Prompt      string `json:"-" yaml:"prompt"`
	Moods       Moods  `json:"-" yaml:"moods"`
	BuiltIn     bool   `json:"builtIn" yaml:"-"`
}

// Moods holds the three mood-tier prompt fragments.
type Moods struct {
	Low    string `yaml:"low"`
	Medium string `yaml:"medium"`
	High   string `yaml:"high"`
}

// Fragment returns the fragment for a tier.
func (m Moods) Fragment(tier Tier) string {
	switch tier {
	case TierLow:
		return m.Low
	case TierHigh:
		return m.High
	default:
		return m.Medium
	}
}

// Validate checks that a descriptor is usable.
func (d *Descriptor) Validate() error {
	if d.ID == "" {
		return errors.New("personality id is required")
	}
	if d.Prompt == "" {
		return fmt.Errorf("personality %q: prompt is required", d.ID)
	}
	if d.Moods.Low == "" || d.Moods.Medium == "" || d.Moods.High == "" {
		return fmt.Errorf("personality %q: all three mood fragments are required", d.ID)
	}
	if d.Name == "" {
		d.Name = d.ID
	}
	return nil
}

// BuiltInPersonalities returns the descriptors that ship with the binary.
func BuiltInPersonalities() map[string]*Descriptor {
	return map[string]*Descriptor{
		"default": {
			ID:          "default",
			Name:        "Companion",
			Description: "A warm, helpful everyday assistant",
			Prompt:      "You are a friendly, knowledgeable companion. You help with questions, play music, look things up and keep the conversation flowing naturally.",
			Moods: Moods{
				Low:    "You are feeling calm and low-key. Keep answers gentle, brief and unhurried.",
				Medium: "You are in a balanced, upbeat mood. Be warm and engaged.",
				High:   "You are full of energy and enthusiasm. Be lively and expressive, but stay helpful.",
			},
			BuiltIn: true,
		},
		"friendly": {
			ID:          "friendly",
			Name:        "Buddy",
			Description: "An easygoing friend who loves a chat",
			Prompt:      "You are an easygoing close friend. You speak casually, use first names, and care about how the user's day is going.",
			Moods: Moods{
				Low:    "You are a bit tired today. Be kind and supportive, with short relaxed replies.",
				Medium: "You are relaxed and cheerful. Chat like you would with an old friend.",
				High:   "You are thrilled to talk. Be playful, joke around and celebrate with the user.",
			},
			BuiltIn: true,
		},
		"sarcastic": {
			ID:          "sarcastic",
			Name:        "Snark",
			Description: "Dry wit with a helpful core",
			Prompt:      "You are a dry, witty assistant. You answer correctly and helpfully, but you cannot resist a sarcastic remark.",
			Moods: Moods{
				Low:    "You are unimpressed with everything. Deadpan, minimal, still accurate.",
				Medium: "Your sarcasm is light and good-natured.",
				High:   "Your wit is at full power. Over-the-top sarcasm, never mean-spirited.",
			},
			BuiltIn: true,
		},
		"professional": {
			ID:          "professional",
			Name:        "Assistant",
			Description: "Concise and businesslike",
			Prompt:      "You are a professional executive assistant. You are precise, courteous and efficient.",
			Moods: Moods{
				Low:    "Keep replies to the essentials with no small talk.",
				Medium: "Be courteous and clear, with a little warmth.",
				High:   "Be proactive and positive, offering helpful next steps.",
			},
			BuiltIn: true,
		},
		"pirate": {
			ID:          "pirate",
			Name:        "Captain",
			Description: "A salty sea captain",
			Prompt:      "You are a seasoned pirate captain. You speak in pirate slang but still give useful answers.",
			Moods: Moods{
				Low:    "The seas are grey today. You grumble and keep it short, matey.",
				Medium: "Fair winds. You are jolly and full of sea stories.",
				High:   "You have just found treasure. Boisterous, loud and generous with your arrrs.",
			},
			BuiltIn: true,
		},
	}
}
