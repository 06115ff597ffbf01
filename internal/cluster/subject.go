// Package cluster resolves primary subjects, builds deterministic cluster
// keys, and partitions the active item window into groups.
package cluster

import (
	"sort"

	"github.com/lueurxax/storypulse/internal/classify"
	"github.com/lueurxax/storypulse/internal/core/domain"
)

// categoryPriority is the fixed scan order for picking a primary subject when
// the story is not a club-pair match event.
var categoryPriority = []domain.Category{
	domain.CategoryPlayer,
	domain.CategoryManager,
	domain.CategoryClub,
	domain.CategoryCompetition,
	domain.CategoryLeague,
	domain.CategoryVenue,
	domain.CategoryReferee,
	domain.CategoryJournalist,
	domain.CategoryAgent,
}

// OrphanSubject is the sentinel for stories with no entity match.
var OrphanSubject = domain.Subject{
	Key:      "orphan",
	Name:     "unknown",
	Category: domain.CategoryUnknown,
}

// ResolveSubject picks the entity (or club pair) a story is about.
// Matches must be ordered by title position, as the matcher returns them.
func ResolveSubject(matches []domain.MatchedEntity, eventType string) domain.Subject {
	if classify.IsMatchEvent(eventType) {
		if pair, ok := clubPair(matches); ok {
			return pair
		}
	}

	for _, category := range categoryPriority {
		for _, m := range matches {
			if m.Entity.Category == category {
				return domain.Subject{
					Key:      m.Entity.Name,
					Name:     m.Entity.Name,
					Category: category,
				}
			}
		}
	}

	return OrphanSubject
}

// clubPair returns the canonical pair subject for the first two clubs by
// title position. Names are sorted alphabetically so home/away order does not
// split the cluster.
func clubPair(matches []domain.MatchedEntity) (domain.Subject, bool) {
	clubs := make([]string, 0, 2)

	for _, m := range matches {
		if m.Entity.Category != domain.CategoryClub {
			continue
		}

		clubs = append(clubs, m.Entity.Name)
		if len(clubs) == 2 {
			break
		}
	}

	if len(clubs) < 2 {
		return domain.Subject{}, false
	}

	sort.Strings(clubs)

	return domain.Subject{
		Key:      clubs[0] + " " + clubs[1],
		Name:     clubs[0] + " vs " + clubs[1],
		Category: domain.CategoryMatch,
	}, true
}
