package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	feedFieldCount = 3
	minTier        = 1
	maxTier        = 3
)

// FeedSource is one configured feed in "url|source|tier" form.
type FeedSource struct {
	URL    string
	Source string
	Tier   int
}

// ParseFeedSpecs parses the comma-separated feed list from configuration.
// Source names are normalized to title case so "sky sports" and "Sky Sports"
// collapse to one source.
func ParseFeedSpecs(raw string) ([]FeedSource, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	titler := cases.Title(language.English)

	var feeds []FeedSource

	for _, spec := range strings.Split(raw, ",") {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}

		parts := strings.Split(spec, "|")
		if len(parts) != feedFieldCount {
			return nil, fmt.Errorf("feed spec %q: want url|source|tier", spec)
		}

		tier, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			return nil, fmt.Errorf("feed spec %q: tier: %w", spec, err)
		}

		if tier < minTier || tier > maxTier {
			return nil, fmt.Errorf("feed spec %q: tier %d out of range", spec, tier)
		}

		url := strings.TrimSpace(parts[0])
		if url == "" {
			return nil, fmt.Errorf("feed spec %q: empty url", spec)
		}

		source := titler.String(strings.ToLower(strings.TrimSpace(parts[1])))
		if source == "" {
			return nil, fmt.Errorf("feed spec %q: empty source", spec)
		}

		feeds = append(feeds, FeedSource{URL: url, Source: source, Tier: tier})
	}

	return feeds, nil
}
