// Package classify assigns one coarse event-type label to a headline.
package classify

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lueurxax/storypulse/internal/core/domain"
)

type rule struct {
	eventType string
	keywords  []string
}

// taxonomy is scanned in order; the first rule with a keyword hit wins.
// Keyword sets overlap (a transfer headline can mention a contract), so the
// order is load-bearing and must stay identical across runs.
var taxonomy = []rule{
	{domain.EventTransfer, []string{
		"transfer", "sign", "set to join", "to join", "imminent",
		"here we go", "medical", "fee agreed", "bid", "swoop", "loan move",
		"deal", "move to",
	}},
	{domain.EventInjury, []string{
		"injury", "injured", "ruled out", "sidelined", "hamstring", "knee",
		"out for", "fitness doubt", "scan",
	}},
	{domain.EventSuspension, []string{
		"suspended", "suspension", "ban", "banned", "red card", "charge",
	}},
	{domain.EventManagerial, []string{
		"sacked", "appointed", "new manager", "head coach", "takes charge",
		"interim boss", "resigns",
	}},
	{domain.EventContract, []string{
		"contract", "extension", "renewal", "new terms", "pens",
	}},
	{domain.EventResult, []string{
		"full-time", "full time", "ft:", "beats", "beat", "draw with",
		"wins", "win over", "defeats", "thrash", "victory over",
	}},
	{domain.EventPreview, []string{
		"preview", "team news", "predicted lineup", "predicted line-up",
		"how to watch", "kick-off", "kick off", "faces", "hosts",
	}},
	{domain.EventReaction, []string{
		"reaction", "reacts", "says", "admits", "hails", "slams",
		"aftermath", "player ratings", "verdict",
	}},
}

// Classify returns exactly one event-type label for a title, falling back to
// the general breaking label when nothing in the taxonomy matches.
func Classify(title string) string {
	lower := strings.ToLower(title)

	for _, r := range taxonomy {
		for _, keyword := range r.keywords {
			if hasKeyword(lower, keyword) {
				return r.eventType
			}
		}
	}

	return domain.EventBreaking
}

// hasKeyword reports whether keyword occurs in lower starting at a word
// boundary. Suffixes are allowed so "sign" covers signs, signed and signing,
// while the boundary keeps it from firing inside resign or design.
func hasKeyword(lower, keyword string) bool {
	for start := 0; start <= len(lower)-len(keyword); {
		i := strings.Index(lower[start:], keyword)
		if i < 0 {
			return false
		}

		idx := start + i
		if idx == 0 {
			return true
		}

		prev, _ := utf8.DecodeLastRuneInString(lower[:idx])
		if !unicode.IsLetter(prev) && !unicode.IsDigit(prev) {
			return true
		}

		start = idx + 1
	}

	return false
}

// IsMatchEvent reports whether an event type groups stories by club pair.
func IsMatchEvent(eventType string) bool {
	switch eventType {
	case domain.EventPreview, domain.EventResult, domain.EventReaction:
		return true
	default:
		return false
	}
}
