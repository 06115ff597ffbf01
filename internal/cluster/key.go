package cluster

import (
	"strings"
	"time"
	"unicode"

	"github.com/lueurxax/storypulse/internal/core/domain"
)

const (
	keySeparator = "|"
	dayFormat    = "2006-01-02"
)

// BuildKey combines subject, event type and calendar day into the grouping
// key. It is a pure function of its inputs: identical items must land in the
// identical cluster across runs and restarts.
func BuildKey(subject domain.Subject, eventType string, publishedAt time.Time) string {
	return Slug(subject.Key) + keySeparator +
		strings.ToLower(eventType) + keySeparator +
		publishedAt.UTC().Format(dayFormat)
}

// Slug lowercases s and collapses runs of non-alphanumeric runes into single
// hyphens.
func Slug(s string) string {
	var b strings.Builder

	b.Grow(len(s))

	pendingHyphen := false

	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}

			pendingHyphen = false

			b.WriteRune(r)

			continue
		}

		pendingHyphen = true
	}

	return b.String()
}
