package summary

import (
	"reflect"
	"testing"
	"time"

	"github.com/lueurxax/storypulse/internal/core/domain"
)

var summaryTestDay = time.Date(2026, 8, 14, 9, 0, 0, 0, time.UTC)

func item(id, title, source string, tier int, offset time.Duration) domain.NewsItem {
	return domain.NewsItem{
		ID:          id,
		Title:       title,
		Source:      source,
		SourceTier:  tier,
		PublishedAt: summaryTestDay.Add(offset),
	}
}

func TestGenerateMergesAgreeingSources(t *testing.T) {
	items := []domain.NewsItem{
		item("a", "Haaland agrees €50m move to Manchester City", "Sky Sports", 1, 0),
		item("b", "Haaland agrees €50m Manchester City move", "TalkSport", 2, 5*time.Minute),
		item("c", "Haaland agrees €50m move to Manchester City — SportBible", "SportBible", 3, 10*time.Minute),
	}

	got := Generate("erling-haaland|transfer|2026-08-14", items, Options{})

	if len(got.Claims) != 1 {
		t.Fatalf("expected 1 merged claim, got %d: %+v", len(got.Claims), got.Claims)
	}

	claim := got.Claims[0]

	if claim.Text != "Haaland agrees €50m move to Manchester City" {
		t.Fatalf("unexpected representative text %q", claim.Text)
	}

	if claim.BestTier != 1 {
		t.Fatalf("expected best tier 1, got %d", claim.BestTier)
	}

	wantSources := []string{"Sky Sports", "TalkSport", "SportBible"}
	if !reflect.DeepEqual(claim.Sources, wantSources) {
		t.Fatalf("expected sources %v, got %v", wantSources, claim.Sources)
	}

	if len(got.Conflicts) != 0 || got.Integrity.HasConflict {
		t.Fatalf("expected no conflicts, got %+v", got.Conflicts)
	}

	if got.Integrity.ConsistencyRatio != 1.0 {
		t.Fatalf("expected consistency 1.0, got %f", got.Integrity.ConsistencyRatio)
	}

	if got.Integrity.Confidence != domain.ConfidenceHigh {
		t.Fatalf("expected HIGH confidence, got %s", got.Integrity.Confidence)
	}

	if got.Integrity.Tier1Count != 1 || got.Integrity.Tier2Count != 1 || got.Integrity.Tier3Count != 1 {
		t.Fatalf("unexpected tier counts %+v", got.Integrity)
	}
}

func TestGenerateFeeConflict(t *testing.T) {
	items := []domain.NewsItem{
		item("a", "Club agree €60m fee for striker", "BBC Sport", 1, 0),
		item("b", "Striker deal will cost €80m say sources", "Mirror", 3, 10*time.Minute),
	}

	got := Generate("key", items, Options{})

	if len(got.Claims) != 2 {
		t.Fatalf("expected 2 separate claims, got %d", len(got.Claims))
	}

	if len(got.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %+v", got.Conflicts)
	}

	conflict := got.Conflicts[0]
	if conflict.Topic != "transfer fee" {
		t.Fatalf("expected transfer fee conflict, got %q", conflict.Topic)
	}

	if len(conflict.Versions) != 2 {
		t.Fatalf("expected 2 versions, got %+v", conflict.Versions)
	}

	// Versions follow claim rank order: the tier-1 amount first.
	if conflict.Versions[0].Value != "€60m" || conflict.Versions[1].Value != "€80m" {
		t.Fatalf("unexpected version order %+v", conflict.Versions)
	}

	if !got.Integrity.HasConflict {
		t.Fatal("expected HasConflict")
	}

	if got.Integrity.Confidence != domain.ConfidenceLow {
		t.Fatalf("expected LOW confidence at ratio 0.5, got %s", got.Integrity.Confidence)
	}
}

func TestGenerateNearIdenticalTitlesKeepFeeConflict(t *testing.T) {
	// The titles share every scoring word, so only the amount guard keeps
	// them from merging into one claim that hides the second figure.
	items := []domain.NewsItem{
		item("a", "Rice signs for €60m", "Sky Sports", 1, 0),
		item("b", "Rice signs for €80m", "Mirror", 3, 10*time.Minute),
	}

	got := Generate("key", items, Options{})

	if len(got.Claims) != 2 {
		t.Fatalf("expected 2 separate claims, got %d: %+v", len(got.Claims), got.Claims)
	}

	if len(got.Conflicts) != 1 || got.Conflicts[0].Topic != "transfer fee" {
		t.Fatalf("expected a transfer fee conflict, got %+v", got.Conflicts)
	}

	conflict := got.Conflicts[0]
	if len(conflict.Versions) != 2 {
		t.Fatalf("expected 2 versions, got %+v", conflict.Versions)
	}

	if conflict.Versions[0].Value != "€60m" || conflict.Versions[1].Value != "€80m" {
		t.Fatalf("unexpected versions %+v", conflict.Versions)
	}

	if !reflect.DeepEqual(conflict.Versions[0].Sources, []string{"Sky Sports"}) {
		t.Fatalf("unexpected €60m sources %+v", conflict.Versions[0].Sources)
	}

	if !reflect.DeepEqual(conflict.Versions[1].Sources, []string{"Mirror"}) {
		t.Fatalf("unexpected €80m sources %+v", conflict.Versions[1].Sources)
	}
}

func TestGenerateSameAmountMergesAcrossPhrasings(t *testing.T) {
	// Identical figures are no reason to keep near-duplicate claims apart.
	items := []domain.NewsItem{
		item("a", "Rice signs for €60m", "Sky Sports", 1, 0),
		item("b", "Rice signs for €60m", "BBC Sport", 1, 5*time.Minute),
	}

	got := Generate("key", items, Options{})

	if len(got.Claims) != 1 {
		t.Fatalf("expected 1 merged claim, got %d: %+v", len(got.Claims), got.Claims)
	}

	wantSources := []string{"Sky Sports", "BBC Sport"}
	if !reflect.DeepEqual(got.Claims[0].Sources, wantSources) {
		t.Fatalf("expected sources %v, got %v", wantSources, got.Claims[0].Sources)
	}
}

func TestGenerateSameAmountIsNotAConflict(t *testing.T) {
	items := []domain.NewsItem{
		item("a", "Club agree €60m fee for striker", "BBC Sport", 1, 0),
		item("b", "Sources say winger will cost €60 m", "Mirror", 3, 10*time.Minute),
	}

	got := Generate("key", items, Options{})

	// "€60m" and "€60 m" normalize to the same figure.
	if len(got.Conflicts) != 0 {
		t.Fatalf("expected no conflict for matching amounts, got %+v", got.Conflicts)
	}
}

func TestGenerateStatusConflict(t *testing.T) {
	items := []domain.NewsItem{
		item("a", "Transfer confirmed as striker signs", "Sky Sports", 1, 0),
		item("b", "Move collapsed at final hour", "Mirror", 3, 20*time.Minute),
	}

	got := Generate("key", items, Options{})

	if len(got.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %+v", got.Conflicts)
	}

	conflict := got.Conflicts[0]
	if conflict.Topic != "deal status" {
		t.Fatalf("expected deal status conflict, got %q", conflict.Topic)
	}

	if conflict.Versions[0].Value != "confirmed" || conflict.Versions[1].Value != "denied" {
		t.Fatalf("unexpected versions %+v", conflict.Versions)
	}

	if !reflect.DeepEqual(conflict.Versions[0].Sources, []string{"Sky Sports"}) {
		t.Fatalf("unexpected confirm sources %+v", conflict.Versions[0].Sources)
	}

	if !reflect.DeepEqual(conflict.Versions[1].Sources, []string{"Mirror"}) {
		t.Fatalf("unexpected deny sources %+v", conflict.Versions[1].Sources)
	}
}

func TestGenerateMediumConfidence(t *testing.T) {
	items := []domain.NewsItem{
		item("a", "Defender sidelined with knee problem until October", "BBC Sport", 1, 0),
		item("b", "Defender sidelined until October with knee problem", "Sky Sports", 1, 5*time.Minute),
		item("c", "Manager hints at surprise formation change", "Mirror", 3, 10*time.Minute),
	}

	got := Generate("key", items, Options{})

	// Two of three sources back the largest claim.
	if got.Integrity.ConsistencyRatio < 0.66 || got.Integrity.ConsistencyRatio > 0.67 {
		t.Fatalf("expected consistency 2/3, got %f", got.Integrity.ConsistencyRatio)
	}

	if got.Integrity.Confidence != domain.ConfidenceMedium {
		t.Fatalf("expected MEDIUM confidence, got %s", got.Integrity.Confidence)
	}
}

func TestGenerateNarrative(t *testing.T) {
	items := []domain.NewsItem{
		item("a", "Club agree €60m fee for striker", "BBC Sport", 1, 0),
		item("b", "Striker deal will cost €80m say sources", "Mirror", 3, 10*time.Minute),
	}

	got := Generate("key", items, Options{})

	want := "BBC Sport: Club agree €60m fee for striker. " +
		"Mirror: Striker deal will cost €80m say sources. " +
		"reports differ on transfer fee — €60m vs €80m"
	if got.Narrative != want {
		t.Fatalf("unexpected narrative:\n got %q\nwant %q", got.Narrative, want)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	items := []domain.NewsItem{
		item("a", "Haaland agrees €50m move to Manchester City", "Sky Sports", 1, 0),
		item("b", "Striker deal will cost €80m say sources", "Mirror", 3, 10*time.Minute),
		item("c", "Transfer confirmed as striker signs", "BBC Sport", 1, 20*time.Minute),
	}

	first := Generate("key", items, Options{})

	// Input order must not matter.
	shuffled := []domain.NewsItem{items[2], items[0], items[1]}

	for i := 0; i < 5; i++ {
		again := Generate("key", shuffled, Options{})
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d: summary not deterministic:\n first %+v\nagain %+v", i, first, again)
		}
	}
}

func TestGenerateTopClaimsCap(t *testing.T) {
	items := []domain.NewsItem{
		item("a", "Striker nears record move abroad", "BBC Sport", 1, 0),
		item("b", "Keeper signs contract extension today", "Sky Sports", 1, time.Minute),
		item("c", "Manager praises academy graduates again", "Mirror", 3, 2*time.Minute),
	}

	got := Generate("key", items, Options{TopClaims: 2})

	if len(got.Claims) != 2 {
		t.Fatalf("expected claim list capped at 2, got %d", len(got.Claims))
	}
}

func TestStripAttribution(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Haaland agrees move — Sky Sports", "Haaland agrees move"},
		{"Haaland agrees move - report", "Haaland agrees move"},
		{"Haaland agrees move", "Haaland agrees move"},
		{"— Sky Sports", "— Sky Sports"},
	}

	for _, tt := range tests {
		if got := StripAttribution(tt.in); got != tt.want {
			t.Fatalf("StripAttribution(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
