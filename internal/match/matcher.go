// Package match scans headline text against the entity registry and returns
// ordered, disambiguated entity matches.
//
// Alias scanning is a single Aho-Corasick pass over the lowercased title;
// word-boundary, short-alias and ambiguity rules are applied as post-filters
// on the raw automaton hits.
package match

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/coregx/ahocorasick"

	"github.com/lueurxax/storypulse/internal/core/domain"
	"github.com/lueurxax/storypulse/internal/core/errors"
)

// Options tunes the matcher guards. Zero values fall back to defaults.
type Options struct {
	// MinAliasLen rejects aliases shorter than this unless allow-listed.
	MinAliasLen int

	// ShortAliasAllowlist lists short aliases (acronyms) that are accepted
	// despite MinAliasLen. Compared case-insensitively.
	ShortAliasAllowlist []string

	// AmbiguousAliases lists aliases shared by multiple entities. Such an
	// alias only matches an entity when that entity's full name also appears
	// literally in the title. Merged over the built-in table.
	AmbiguousAliases []string
}

const defaultMinAliasLen = 4

type patternRef struct {
	entityIdx  int
	alias      string
	aliasOrder int
}

// Matcher is an immutable registry snapshot compiled for scanning.
type Matcher struct {
	entities    []domain.Entity
	ac          *ahocorasick.Automaton
	refs        [][]patternRef
	minAliasLen int
	shortAllow  map[string]struct{}
	ambiguous   map[string]struct{}
}

// New compiles the registry into a matcher. Entities without a name are
// skipped; the caller is expected to count them as input errors.
func New(entities []domain.Entity, opts Options) (*Matcher, error) {
	minLen := opts.MinAliasLen
	if minLen <= 0 {
		minLen = defaultMinAliasLen
	}

	shortAllow := make(map[string]struct{}, len(opts.ShortAliasAllowlist))
	for _, alias := range opts.ShortAliasAllowlist {
		shortAllow[strings.ToLower(strings.TrimSpace(alias))] = struct{}{}
	}

	ambiguous := make(map[string]struct{}, len(defaultAmbiguousAliases))
	for _, alias := range defaultAmbiguousAliases {
		ambiguous[alias] = struct{}{}
	}

	for _, alias := range opts.AmbiguousAliases {
		ambiguous[strings.ToLower(strings.TrimSpace(alias))] = struct{}{}
	}

	m := &Matcher{
		minAliasLen: minLen,
		shortAllow:  shortAllow,
		ambiguous:   ambiguous,
	}

	patternIndex := make(map[string]int)

	var patterns []string

	for _, entity := range entities {
		if strings.TrimSpace(entity.Name) == "" {
			continue
		}

		idx := len(m.entities)
		m.entities = append(m.entities, entity)

		// Entity name scans first, then declared aliases in order.
		aliases := append([]string{entity.Name}, entity.Aliases...)
		for order, alias := range aliases {
			pattern := strings.ToLower(strings.TrimSpace(alias))
			if pattern == "" {
				continue
			}

			pIdx, ok := patternIndex[pattern]
			if !ok {
				pIdx = len(patterns)
				patterns = append(patterns, pattern)
				patternIndex[pattern] = pIdx
				m.refs = append(m.refs, nil)
			}

			m.refs[pIdx] = append(m.refs[pIdx], patternRef{
				entityIdx:  idx,
				alias:      strings.TrimSpace(alias),
				aliasOrder: order,
			})
		}
	}

	if len(m.entities) == 0 {
		return nil, errors.ErrRegistryEmpty
	}

	automaton, err := ahocorasick.NewBuilder().
		AddStrings(patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build alias automaton: %w", err)
	}

	m.ac = automaton

	return m, nil
}

// candidate tracks the winning alias for one entity during a scan.
type candidate struct {
	alias      string
	aliasOrder int
	position   int
}

// Match returns entities found in the title, ordered by first occurrence.
// An empty result marks the story as an orphan for downstream grouping.
func (m *Matcher) Match(title string) []domain.MatchedEntity {
	lower := strings.ToLower(title)
	hits := m.ac.FindAllOverlapping([]byte(lower))

	best := make(map[int]candidate)

	for _, hit := range hits {
		if !isWordBounded(lower, hit.Start, hit.End) {
			continue
		}

		pattern := lower[hit.Start:hit.End]

		for _, ref := range m.refs[hit.PatternID] {
			if !m.aliasAllowed(pattern, lower, m.entities[ref.entityIdx].Name) {
				continue
			}

			cur, seen := best[ref.entityIdx]
			if !seen || ref.aliasOrder < cur.aliasOrder ||
				(ref.aliasOrder == cur.aliasOrder && hit.Start < cur.position) {
				best[ref.entityIdx] = candidate{
					alias:      ref.alias,
					aliasOrder: ref.aliasOrder,
					position:   hit.Start,
				}
			}
		}
	}

	matched := make([]domain.MatchedEntity, 0, len(best))
	for entityIdx, cand := range best {
		matched = append(matched, domain.MatchedEntity{
			Entity:   m.entities[entityIdx],
			Alias:    cand.alias,
			Position: cand.position,
		})
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Position != matched[j].Position {
			return matched[i].Position < matched[j].Position
		}

		return matched[i].Entity.Name < matched[j].Entity.Name
	})

	return matched
}

// aliasAllowed applies the short-alias and ambiguity guards for one pattern.
// An ambiguous alias only counts for the entity whose own full name appears
// in the title, so "United" never attributes a Manchester United headline to
// Newcastle United.
func (m *Matcher) aliasAllowed(pattern, lowerTitle, entityName string) bool {
	if utf8.RuneCountInString(pattern) < m.minAliasLen {
		if _, ok := m.shortAllow[pattern]; !ok {
			return false
		}
	}

	if _, ambiguous := m.ambiguous[pattern]; !ambiguous {
		return true
	}

	return strings.Contains(lowerTitle, strings.ToLower(entityName))
}

// isWordBounded reports whether s[start:end] is delimited by non-word runes.
func isWordBounded(s string, start, end int) bool {
	if start > 0 {
		prev, _ := utf8.DecodeLastRuneInString(s[:start])
		if unicode.IsLetter(prev) || unicode.IsDigit(prev) {
			return false
		}
	}

	if end < len(s) {
		next, _ := utf8.DecodeRuneInString(s[end:])
		if unicode.IsLetter(next) || unicode.IsDigit(next) {
			return false
		}
	}

	return true
}
