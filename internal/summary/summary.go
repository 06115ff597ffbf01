// Package summary merges near-duplicate claims across sources, ranks them,
// detects numeric and status conflicts, and emits a deterministic narrative.
//
// Generate is a pure function of its inputs: no randomness and no wall clock
// beyond the timestamps already provided, so the same item set always yields
// the same summary byte for byte.
package summary

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/lueurxax/storypulse/internal/core/domain"
)

const (
	defaultMergeOverlap = 0.6
	defaultTopClaims    = 5
	narrativeClaims     = 3
	minClaimWordLen     = 4

	highConfidenceCutoff   = 0.8
	mediumConfidenceCutoff = 0.5

	feeConflictTopic    = "transfer fee"
	statusConflictTopic = "deal status"
)

// currencyRe captures money amounts like "€60m", "£40 million" or "$1.2bn".
var currencyRe = regexp.MustCompile(`(?i)[€£$]\s?\d+(?:[.,]\d+)?\s?(?:m|bn|k|million|billion)?`)

// attributionRe matches a trailing " — Source" style suffix. Only the last
// dash segment is stripped, and only when something remains before it.
var attributionRe = regexp.MustCompile(`\s+[—–-]\s+[^—–-]+$`)

var confirmVocab = []string{"confirmed", "done deal", "completed", "signs", "agreed", "official"}

var denyVocab = []string{"denied", "collapsed", "called off", "falls through", "rejected", "off the table"}

// Options tunes the empirically chosen merge constants.
type Options struct {
	// MergeOverlap is the word-overlap ratio above which two claims merge.
	MergeOverlap float64

	// TopClaims caps the ranked claim list.
	TopClaims int
}

// mergedClaim is a claim during the merge phase, keeping the representative
// word set for subsequent overlap checks.
type mergedClaim struct {
	text    string
	words   map[string]struct{}
	amounts map[string]struct{}
	sources []string
	seen    map[string]struct{}
	tier    int
}

// Generate builds the full summary for one cluster's member items.
func Generate(clusterKey string, items []domain.NewsItem, opts Options) domain.ClusterSummary {
	overlap := opts.MergeOverlap
	if overlap <= 0 {
		overlap = defaultMergeOverlap
	}

	topN := opts.TopClaims
	if topN <= 0 {
		topN = defaultTopClaims
	}

	ordered := make([]domain.NewsItem, len(items))
	copy(ordered, items)
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].PublishedAt.Equal(ordered[j].PublishedAt) {
			return ordered[i].PublishedAt.Before(ordered[j].PublishedAt)
		}

		return ordered[i].ID < ordered[j].ID
	})

	merged := mergeClaims(ordered, overlap)
	ranked := rankClaims(merged)

	top := ranked
	if len(top) > topN {
		top = top[:topN]
	}

	conflicts := detectConflicts(top)
	ratio := consistencyRatio(merged, ordered)

	integrity := domain.SignalIntegrity{
		HasConflict:      len(conflicts) > 0,
		ConsistencyRatio: ratio,
		Confidence:       confidence(ratio),
	}

	for _, item := range ordered {
		switch item.SourceTier {
		case 1:
			integrity.Tier1Count++
		case 2:
			integrity.Tier2Count++
		default:
			integrity.Tier3Count++
		}
	}

	return domain.ClusterSummary{
		ClusterKey: clusterKey,
		Claims:     top,
		Conflicts:  conflicts,
		Integrity:  integrity,
		Narrative:  narrative(top, conflicts),
	}
}

// StripAttribution removes a trailing " — Source" suffix from a headline.
func StripAttribution(title string) string {
	stripped := attributionRe.ReplaceAllString(title, "")

	stripped = strings.TrimSpace(stripped)
	if stripped == "" {
		return strings.TrimSpace(title)
	}

	return stripped
}

func mergeClaims(items []domain.NewsItem, overlap float64) []*mergedClaim {
	var claims []*mergedClaim

	for _, item := range items {
		text := StripAttribution(item.Title)
		words := claimWords(text)
		amounts := claimAmounts(text)

		var target *mergedClaim

		// Claims that disagree on a money figure stay separate so the fee
		// conflict check sees every version.
		for _, existing := range claims {
			if overlapRatio(existing.words, words) > overlap && amountsAgree(existing.amounts, amounts) {
				target = existing
				break
			}
		}

		if target == nil {
			claims = append(claims, &mergedClaim{
				text:    text,
				words:   words,
				amounts: amounts,
				sources: []string{item.Source},
				seen:    map[string]struct{}{item.Source: {}},
				tier:    item.SourceTier,
			})

			continue
		}

		for norm := range amounts {
			target.amounts[norm] = struct{}{}
		}

		if _, ok := target.seen[item.Source]; !ok {
			target.seen[item.Source] = struct{}{}
			target.sources = append(target.sources, item.Source)
		}

		if item.SourceTier < target.tier {
			target.tier = item.SourceTier
		}
	}

	return claims
}

// claimAmounts returns the normalized money figures mentioned in a claim.
func claimAmounts(text string) map[string]struct{} {
	amounts := make(map[string]struct{})

	for _, a := range currencyRe.FindAllString(text, -1) {
		amounts[normalizeAmount(a)] = struct{}{}
	}

	return amounts
}

// amountsAgree reports whether two claims can merge without losing a money
// figure. A claim with no amount agrees with anything.
func amountsAgree(a, b map[string]struct{}) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}

	if len(a) != len(b) {
		return false
	}

	for norm := range a {
		if _, ok := b[norm]; !ok {
			return false
		}
	}

	return true
}

// claimWords returns the distinct lowercased words longer than three runes.
func claimWords(text string) map[string]struct{} {
	words := make(map[string]struct{})

	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(w)) >= minClaimWordLen {
			words[w] = struct{}{}
		}
	}

	return words
}

// overlapRatio is shared words divided by the smaller claim's distinct count.
func overlapRatio(a, b map[string]struct{}) float64 {
	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}

	if smaller == 0 {
		return 0
	}

	shared := 0

	for w := range a {
		if _, ok := b[w]; ok {
			shared++
		}
	}

	return float64(shared) / float64(smaller)
}

// rankClaims orders by tier ascending, then source count descending, then
// text for a stable total order.
func rankClaims(claims []*mergedClaim) []domain.Claim {
	ranked := make([]domain.Claim, 0, len(claims))
	for _, c := range claims {
		ranked = append(ranked, domain.Claim{Text: c.text, Sources: c.sources, BestTier: c.tier})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].BestTier != ranked[j].BestTier {
			return ranked[i].BestTier < ranked[j].BestTier
		}

		if len(ranked[i].Sources) != len(ranked[j].Sources) {
			return len(ranked[i].Sources) > len(ranked[j].Sources)
		}

		return ranked[i].Text < ranked[j].Text
	})

	return ranked
}

func detectConflicts(top []domain.Claim) []domain.Conflict {
	var conflicts []domain.Conflict

	if c, ok := feeConflict(top); ok {
		conflicts = append(conflicts, c)
	}

	if c, ok := statusConflict(top); ok {
		conflicts = append(conflicts, c)
	}

	return conflicts
}

// feeConflict fires when two or more top claims carry differing amounts.
func feeConflict(top []domain.Claim) (domain.Conflict, bool) {
	type version struct {
		display string
		sources []string
	}

	versions := make(map[string]*version)

	var order []string

	claimsWithAmount := 0

	for _, claim := range top {
		amounts := currencyRe.FindAllString(claim.Text, -1)
		if len(amounts) == 0 {
			continue
		}

		claimsWithAmount++

		for _, amount := range amounts {
			norm := normalizeAmount(amount)

			v, ok := versions[norm]
			if !ok {
				v = &version{display: strings.TrimSpace(amount)}
				versions[norm] = v
				order = append(order, norm)
			}

			v.sources = mergeSources(v.sources, claim.Sources)
		}
	}

	if claimsWithAmount < 2 || len(versions) < 2 {
		return domain.Conflict{}, false
	}

	conflict := domain.Conflict{Topic: feeConflictTopic}
	for _, norm := range order {
		conflict.Versions = append(conflict.Versions, domain.ConflictVersion{
			Value:   versions[norm].display,
			Sources: versions[norm].sources,
		})
	}

	return conflict, true
}

// normalizeAmount collapses spacing and case so "€60 M" and "€60m" count as
// the same figure.
func normalizeAmount(amount string) string {
	return strings.ToLower(strings.ReplaceAll(amount, " ", ""))
}

// statusConflict fires when the top claims carry both confirm and deny
// vocabulary.
func statusConflict(top []domain.Claim) (domain.Conflict, bool) {
	var confirmSources, denySources []string

	for _, claim := range top {
		lower := strings.ToLower(claim.Text)

		if containsAny(lower, confirmVocab) {
			confirmSources = mergeSources(confirmSources, claim.Sources)
		}

		if containsAny(lower, denyVocab) {
			denySources = mergeSources(denySources, claim.Sources)
		}
	}

	if len(confirmSources) == 0 || len(denySources) == 0 {
		return domain.Conflict{}, false
	}

	return domain.Conflict{
		Topic: statusConflictTopic,
		Versions: []domain.ConflictVersion{
			{Value: "confirmed", Sources: confirmSources},
			{Value: "denied", Sources: denySources},
		},
	}, true
}

// consistencyRatio is the largest merged claim's source set over the distinct
// sources across the whole group.
func consistencyRatio(claims []*mergedClaim, items []domain.NewsItem) float64 {
	distinct := make(map[string]struct{})
	for _, item := range items {
		distinct[item.Source] = struct{}{}
	}

	if len(distinct) == 0 {
		return 0
	}

	largest := 0

	for _, c := range claims {
		if len(c.sources) > largest {
			largest = len(c.sources)
		}
	}

	return float64(largest) / float64(len(distinct))
}

func confidence(ratio float64) domain.Confidence {
	switch {
	case ratio > highConfidenceCutoff:
		return domain.ConfidenceHigh
	case ratio > mediumConfidenceCutoff:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

func narrative(top []domain.Claim, conflicts []domain.Conflict) string {
	parts := make([]string, 0, narrativeClaims+1)

	for i, claim := range top {
		if i == narrativeClaims {
			break
		}

		parts = append(parts, fmt.Sprintf("%s: %s", claim.Sources[0], claim.Text))
	}

	for _, conflict := range conflicts {
		if len(conflict.Versions) < 2 {
			continue
		}

		parts = append(parts, fmt.Sprintf("reports differ on %s — %s vs %s",
			conflict.Topic, conflict.Versions[0].Value, conflict.Versions[1].Value))

		break
	}

	return strings.Join(parts, ". ")
}

func containsAny(s string, vocab []string) bool {
	for _, v := range vocab {
		if strings.Contains(s, v) {
			return true
		}
	}

	return false
}

// mergeSources appends new sources preserving first-seen order.
func mergeSources(existing, add []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		seen[s] = struct{}{}
	}

	for _, s := range add {
		if _, ok := seen[s]; ok {
			continue
		}

		seen[s] = struct{}{}

		existing = append(existing, s)
	}

	return existing
}
