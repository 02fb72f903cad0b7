package overlay

import (
	"strings"

	"gajaoverlay/internal/config"
)

// Keywords are the configurable allow-lists used to derive activity flags
// from a free-text status label and to filter placeholder display text.
type Keywords struct {
	Listening    []string
	Speaking     []string
	Wake         []string
	Idle         []string
	Placeholders []string
}

// KeywordsFromConfig copies the keyword tables out of cfg.
func KeywordsFromConfig(cfg *config.Config) Keywords {
	return Keywords{
		Listening:    append([]string(nil), cfg.Keywords.Listening...),
		Speaking:     append([]string(nil), cfg.Keywords.Speaking...),
		Wake:         append([]string(nil), cfg.Keywords.Wake...),
		Idle:         append([]string(nil), cfg.Keywords.Idle...),
		Placeholders: append([]string(nil), cfg.Overlay.PlaceholderTexts...),
	}
}

// deriveFlags computes the activity flags from a status label. Idle-class
// keywords force everything false; wake detection implies listening and
// suppresses speaking.
func (k Keywords) deriveFlags(label string) (listening, speaking, wake bool) {
	lower := strings.ToLower(label)
	if containsAny(lower, k.Idle) {
		return false, false, false
	}
	wake = containsAny(lower, k.Wake)
	listening = wake || containsAny(lower, k.Listening)
	speaking = !wake && containsAny(lower, k.Speaking)
	return listening, speaking, wake
}

// meaningful reports whether text should keep the overlay visible on its
// own: non-empty and not a known placeholder.
func (k Keywords) meaningful(text string) bool {
	if text == "" {
		return false
	}
	for _, p := range k.Placeholders {
		if strings.EqualFold(text, p) {
			return false
		}
	}
	return true
}

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" && strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
