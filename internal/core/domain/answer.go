package domain

import "strings"

// Mode selects the answer style.
type Mode string

// Available answer modes.
const (
	ModeInterview      Mode = "interview"
	ModeStory          Mode = "story"
	ModeTLDR           Mode = "tldr"
	ModeHumbleBrag     Mode = "humblebrag"
	ModeSelfReflection Mode = "selfreflection"
)

// DefaultMode is used when a request names no mode.
const DefaultMode = ModeInterview

// Modes lists every answer mode in display order.
var Modes = []Mode{ModeInterview, ModeStory, ModeTLDR, ModeHumbleBrag, ModeSelfReflection}

// ParseMode normalises a mode key or display name ("TL;DR", "Humble Brag",
// "Self-Reflection") to a Mode. Empty input yields DefaultMode. Unknown
// values are returned as-is so callers can still send them through.
func ParseMode(s string) Mode {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return DefaultMode
	}
	key = strings.NewReplacer(" ", "", "-", "", ";", "", "_", "").Replace(key)
	return Mode(key)
}

// IsValid returns true if the mode is recognised.
func (m Mode) IsValid() bool {
	switch m {
	case ModeInterview, ModeStory, ModeTLDR, ModeHumbleBrag, ModeSelfReflection:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (m Mode) String() string {
	return string(m)
}

// Description returns a human-readable name for the mode.
func (m Mode) Description() string {
	switch m {
	case ModeInterview:
		return "Interview"
	case ModeStory:
		return "Story"
	case ModeTLDR:
		return "TL;DR"
	case ModeHumbleBrag:
		return "Humble Brag"
	case ModeSelfReflection:
		return "Self-Reflection"
	default:
		return "Unknown"
	}
}

// Answer is a composed reply.
type Answer struct {
	// Answer is the model output, verbatim.
	Answer string `json:"answer"`

	// Sources are the titles of the matches used as context, in rank order.
	// Empty (never nil) when no context was used.
	Sources []string `json:"sources"`
}
