package cluster

import (
	"sort"

	"github.com/lueurxax/storypulse/internal/core/domain"
)

// EntityMatcher scans a title against the registry snapshot.
type EntityMatcher interface {
	Match(title string) []domain.MatchedEntity
}

// Classifier assigns one event-type label to a title.
type Classifier func(title string) string

// Group is one cluster-key bucket of the active window.
type Group struct {
	Key       string
	Subject   domain.Subject
	EventType string
	Items     []domain.NewsItem
	Entities  []string
}

// Partition classifies and keys every item independently, then buckets by
// exact key equality. Items with an empty id or title are returned in skipped
// for the caller to count. Groups come back sorted by key and group items
// sorted by publish time, so a pass over the same inputs is reproducible.
func Partition(items []domain.NewsItem, matcher EntityMatcher, classifier Classifier) (groups []Group, skipped int) {
	byKey := make(map[string]*Group)
	entitiesByKey := make(map[string]map[string]struct{})

	for _, item := range items {
		if item.ID == "" || item.Title == "" || item.PublishedAt.IsZero() {
			skipped++
			continue
		}

		matches := matcher.Match(item.Title)
		eventType := classifier(item.Title)
		subject := ResolveSubject(matches, eventType)
		key := BuildKey(subject, eventType, item.PublishedAt)

		item.EventType = eventType
		item.ClusterKey = key

		g, ok := byKey[key]
		if !ok {
			g = &Group{Key: key, Subject: subject, EventType: eventType}
			byKey[key] = g
			entitiesByKey[key] = make(map[string]struct{})
		}

		g.Items = append(g.Items, item)

		for _, m := range matches {
			entitiesByKey[key][m.Entity.Name] = struct{}{}
		}
	}

	groups = make([]Group, 0, len(byKey))

	for key, g := range byKey {
		names := make([]string, 0, len(entitiesByKey[key]))
		for name := range entitiesByKey[key] {
			names = append(names, name)
		}

		sort.Strings(names)
		g.Entities = names

		sort.Slice(g.Items, func(i, j int) bool {
			if !g.Items[i].PublishedAt.Equal(g.Items[j].PublishedAt) {
				return g.Items[i].PublishedAt.Before(g.Items[j].PublishedAt)
			}

			return g.Items[i].ID < g.Items[j].ID
		})

		groups = append(groups, *g)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })

	return groups, skipped
}
