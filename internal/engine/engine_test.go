package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/storypulse/internal/core/domain"
	"github.com/lueurxax/storypulse/internal/core/errors"
	"github.com/lueurxax/storypulse/internal/platform/config"
)

var engineTestNow = time.Date(2026, 8, 14, 12, 0, 0, 0, time.UTC)

// fakeRepo is an in-memory Repository for pass tests. Methods are
// mutex-guarded because groups persist concurrently.
type fakeRepo struct {
	mu sync.Mutex

	entities  []domain.Entity
	items     []domain.NewsItem
	clusters  map[string]*domain.StoryCluster
	summaries map[string]*domain.ClusterSummary
	annotated map[string]string
	covered   map[string]struct{}
	notified  map[string]int

	lockHeld     bool
	externalLock bool
	pruneCutoff  time.Time
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		clusters:  make(map[string]*domain.StoryCluster),
		summaries: make(map[string]*domain.ClusterSummary),
		annotated: make(map[string]string),
		covered:   make(map[string]struct{}),
		notified:  make(map[string]int),
	}
}

func (f *fakeRepo) GetEntities(_ context.Context) ([]domain.Entity, error) {
	return f.entities, nil
}

func (f *fakeRepo) GetItemsSince(_ context.Context, since time.Time) ([]domain.NewsItem, error) {
	var out []domain.NewsItem

	for _, item := range f.items {
		if !item.PublishedAt.Before(since) {
			out = append(out, item)
		}
	}

	return out, nil
}

func (f *fakeRepo) GetCluster(_ context.Context, key string) (*domain.StoryCluster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.clusters[key]
	if !ok {
		return nil, errors.ErrClusterNotFound
	}

	clone := *c

	return &clone, nil
}

func (f *fakeRepo) UpsertCluster(_ context.Context, c *domain.StoryCluster) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	clone := *c
	f.clusters[c.Key] = &clone

	return nil
}

func (f *fakeRepo) UpsertSummary(_ context.Context, s *domain.ClusterSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	clone := *s
	f.summaries[s.ClusterKey] = &clone

	return nil
}

func (f *fakeRepo) AnnotateItems(_ context.Context, ids []string, clusterKey, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, id := range ids {
		f.annotated[id] = clusterKey
	}

	return nil
}

func (f *fakeRepo) GetCoveredClusterKeys(_ context.Context) (map[string]struct{}, error) {
	return f.covered, nil
}

func (f *fakeRepo) WasNotified(_ context.Context, clusterKey string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.notified[clusterKey] > 0, nil
}

func (f *fakeRepo) RecordNotification(_ context.Context, clusterKey string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.notified[clusterKey]++

	return nil
}

func (f *fakeRepo) PruneStaleClusters(_ context.Context, olderThan time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pruneCutoff = olderThan
	pruned := 0

	for key, c := range f.clusters {
		if c.LastItemAt.Before(olderThan) {
			delete(f.clusters, key)
			delete(f.summaries, key)

			pruned++
		}
	}

	return pruned, nil
}

func (f *fakeRepo) TryAcquirePassLock(_ context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.lockHeld || f.externalLock {
		return false, nil
	}

	f.lockHeld = true

	return true, nil
}

func (f *fakeRepo) ReleasePassLock(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lockHeld = false

	return nil
}

// fakeNotifier records deliveries on a channel so tests can wait for the
// detached dispatch goroutine.
type fakeNotifier struct {
	deliveries chan string
}

func (f *fakeNotifier) NotifyBreaking(_ context.Context, clusterKey, _ string, _ int) error {
	f.deliveries <- clusterKey

	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		PassInterval:        5 * time.Minute,
		ItemWindow:          24 * time.Hour,
		StalenessHorizon:    48 * time.Hour,
		DecayHours:          18,
		WorkerPoolSize:      4,
		LoadTimeout:         15 * time.Second,
		PersistTimeout:      10 * time.Second,
		ShortAliasMinLen:    4,
		ShortAliasAllowlist: []string{"FIFA", "UEFA", "VAR"},
		ClaimMergeOverlap:   0.6,
		TopClaims:           5,
		BreakingThreshold:   70,
		BreakingRecency:     10 * time.Minute,
		NotifyTimeout:       time.Second,
	}
}

func newTestEngine(repo *fakeRepo, notifier Notifier) *Engine {
	logger := zerolog.Nop()
	e := New(testConfig(), repo, notifier, &logger)
	e.now = func() time.Time { return engineTestNow }

	return e
}

func transferEntities() []domain.Entity {
	return []domain.Entity{
		{Name: "Erling Haaland", Category: domain.CategoryPlayer, Aliases: []string{"Haaland"}},
		{Name: "Manchester City", Category: domain.CategoryClub, Aliases: []string{"Man City"}},
	}
}

func transferItems() []domain.NewsItem {
	return []domain.NewsItem{
		{
			ID: "a", Title: "Haaland agrees €50m move to Manchester City",
			Source: "Sky Sports", SourceTier: 1,
			PublishedAt: engineTestNow.Add(-9 * time.Minute),
		},
		{
			ID: "b", Title: "Haaland agrees €50m move to Manchester City, sources say",
			Source: "TalkSport", SourceTier: 2,
			PublishedAt: engineTestNow.Add(-6 * time.Minute),
		},
		{
			ID: "c", Title: "Haaland agrees €50m move to Manchester City — SportBible",
			Source: "SportBible", SourceTier: 3,
			PublishedAt: engineTestNow.Add(-3 * time.Minute),
		},
	}
}

func waitForDelivery(t *testing.T, notifier *fakeNotifier) string {
	t.Helper()

	select {
	case key := <-notifier.deliveries:
		return key
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification delivery")

		return ""
	}
}

func TestRunPassCreatesClusterAndNotifies(t *testing.T) {
	repo := newFakeRepo()
	repo.entities = transferEntities()
	repo.items = transferItems()

	notifier := &fakeNotifier{deliveries: make(chan string, 1)}
	e := newTestEngine(repo, notifier)

	report, err := e.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass returned error: %v", err)
	}

	if report.ItemsProcessed != 3 || report.GroupsFound != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	if report.ClustersCreated != 1 || report.ClustersUpdated != 0 || report.SummariesWritten != 1 {
		t.Fatalf("unexpected persistence counts: %+v", report)
	}

	wantKey := "erling-haaland|transfer|2026-08-14"

	c, ok := repo.clusters[wantKey]
	if !ok {
		t.Fatalf("cluster %q not stored, have %v", wantKey, keysOf(repo.clusters))
	}

	if c.Tier1Count != 1 || c.Tier2Count != 1 || c.Tier3Count != 1 {
		t.Fatalf("unexpected tier counts %d/%d/%d", c.Tier1Count, c.Tier2Count, c.Tier3Count)
	}

	if c.ConsistencyRatio != 1.0 {
		t.Fatalf("expected consistency 1.0, got %f", c.ConsistencyRatio)
	}

	if c.SubjectName != "Erling Haaland" || c.SubjectCategory != domain.CategoryPlayer {
		t.Fatalf("unexpected subject %s/%s", c.SubjectName, c.SubjectCategory)
	}

	// Tier-1 headline wins, attribution stripped upstream has nothing to do
	// here since the tier-1 title carries no suffix.
	if c.Title != "Haaland agrees €50m move to Manchester City" {
		t.Fatalf("unexpected cluster title %q", c.Title)
	}

	if c.Score < 70 {
		t.Fatalf("expected a breaking score, got %d", c.Score)
	}

	if c.PeakScore != c.Score || !c.PeakAt.Equal(engineTestNow) {
		t.Fatalf("unexpected peak %d at %s", c.PeakScore, c.PeakAt)
	}

	if report.NotificationsFired != 1 {
		t.Fatalf("expected 1 notification, got %d", report.NotificationsFired)
	}

	if got := waitForDelivery(t, notifier); got != wantKey {
		t.Fatalf("notification for %q, want %q", got, wantKey)
	}

	if _, ok := repo.summaries[wantKey]; !ok {
		t.Fatalf("summary for %q not stored", wantKey)
	}

	for _, id := range []string{"a", "b", "c"} {
		if repo.annotated[id] != wantKey {
			t.Fatalf("item %s not annotated with %q", id, wantKey)
		}
	}
}

func keysOf(m map[string]*domain.StoryCluster) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	return keys
}

func TestRunPassSecondPassUpdates(t *testing.T) {
	repo := newFakeRepo()
	repo.entities = transferEntities()
	repo.items = transferItems()

	notifier := &fakeNotifier{deliveries: make(chan string, 2)}
	e := newTestEngine(repo, notifier)

	if _, err := e.RunPass(context.Background()); err != nil {
		t.Fatalf("first pass: %v", err)
	}

	waitForDelivery(t, notifier)

	report, err := e.RunPass(context.Background())
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}

	if report.ClustersCreated != 0 || report.ClustersUpdated != 1 {
		t.Fatalf("expected update, not create: %+v", report)
	}

	// The cluster was already notified; the second pass must not fire again.
	if report.NotificationsFired != 0 {
		t.Fatalf("expected no repeat notification, got %d", report.NotificationsFired)
	}

	if repo.notified["erling-haaland|transfer|2026-08-14"] != 1 {
		t.Fatalf("expected exactly one recorded attempt, got %d",
			repo.notified["erling-haaland|transfer|2026-08-14"])
	}
}

func TestRunPassLocked(t *testing.T) {
	repo := newFakeRepo()
	repo.externalLock = true

	e := newTestEngine(repo, nil)

	if _, err := e.RunPass(context.Background()); !errors.Is(err, errors.ErrPassInProgress) {
		t.Fatalf("expected ErrPassInProgress, got %v", err)
	}
}

func TestRunPassEmptyWindowStillPrunes(t *testing.T) {
	repo := newFakeRepo()
	repo.entities = transferEntities()

	stale := &domain.StoryCluster{
		Key:        "stale|transfer|2026-08-12",
		LastItemAt: engineTestNow.Add(-49 * time.Hour),
	}
	fresh := &domain.StoryCluster{
		Key:        "fresh|transfer|2026-08-13",
		LastItemAt: engineTestNow.Add(-47 * time.Hour),
	}
	repo.clusters[stale.Key] = stale
	repo.clusters[fresh.Key] = fresh

	e := newTestEngine(repo, nil)

	report, err := e.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass returned error: %v", err)
	}

	if report.ItemsProcessed != 0 || report.GroupsFound != 0 {
		t.Fatalf("expected empty window, got %+v", report)
	}

	if report.ClustersPruned != 1 {
		t.Fatalf("expected 1 pruned cluster, got %d", report.ClustersPruned)
	}

	if !repo.pruneCutoff.Equal(engineTestNow.Add(-48 * time.Hour)) {
		t.Fatalf("unexpected prune cutoff %s", repo.pruneCutoff)
	}

	if _, ok := repo.clusters[stale.Key]; ok {
		t.Fatal("stale cluster survived prune")
	}

	if _, ok := repo.clusters[fresh.Key]; !ok {
		t.Fatal("fresh cluster was pruned")
	}
}

func TestRunPassOrphanClusterNeverNotifies(t *testing.T) {
	repo := newFakeRepo()
	repo.entities = transferEntities()
	repo.items = []domain.NewsItem{
		{
			ID: "x", Title: "Done deal agreed after medical completed",
			Source: "Sky Sports", SourceTier: 1,
			PublishedAt: engineTestNow.Add(-8 * time.Minute),
		},
		{
			ID: "y", Title: "Done deal agreed after medical completed today",
			Source: "BBC Sport", SourceTier: 1,
			PublishedAt: engineTestNow.Add(-5 * time.Minute),
		},
		{
			ID: "z", Title: "Done deal agreed after medical was completed",
			Source: "The Athletic", SourceTier: 1,
			PublishedAt: engineTestNow.Add(-2 * time.Minute),
		},
	}

	notifier := &fakeNotifier{deliveries: make(chan string, 1)}
	e := newTestEngine(repo, notifier)

	report, err := e.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass returned error: %v", err)
	}

	if report.GroupsFound != 1 || report.ClustersCreated != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	c := repo.clusters["orphan|transfer|2026-08-14"]
	if c == nil {
		t.Fatalf("orphan cluster not stored, have %v", keysOf(repo.clusters))
	}

	if c.Score < 70 {
		t.Fatalf("test needs a breaking-level orphan, got score %d", c.Score)
	}

	// Orphans persist for the API but never page anyone.
	if report.NotificationsFired != 0 {
		t.Fatalf("expected no notifications for orphan, got %d", report.NotificationsFired)
	}
}

func TestRunPassSkipsStaleBreakingCluster(t *testing.T) {
	repo := newFakeRepo()
	repo.entities = transferEntities()

	items := transferItems()
	for i := range items {
		items[i].PublishedAt = engineTestNow.Add(-20 * time.Minute)
	}

	repo.items = items

	notifier := &fakeNotifier{deliveries: make(chan string, 1)}
	e := newTestEngine(repo, notifier)

	report, err := e.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass returned error: %v", err)
	}

	// Last item is older than the recency window, so even a breaking score
	// stays silent.
	if report.NotificationsFired != 0 {
		t.Fatalf("expected no notification beyond recency window, got %d", report.NotificationsFired)
	}
}

func TestRunPassSkipsCoveredCluster(t *testing.T) {
	repo := newFakeRepo()
	repo.entities = transferEntities()
	repo.items = transferItems()
	repo.covered["erling-haaland|transfer|2026-08-14"] = struct{}{}

	notifier := &fakeNotifier{deliveries: make(chan string, 1)}
	e := newTestEngine(repo, notifier)

	report, err := e.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass returned error: %v", err)
	}

	if report.NotificationsFired != 0 {
		t.Fatalf("expected covered cluster to stay silent, got %d", report.NotificationsFired)
	}
}

func TestRunPassSkipsMalformedItems(t *testing.T) {
	repo := newFakeRepo()
	repo.entities = transferEntities()
	repo.items = append(transferItems(), domain.NewsItem{
		ID: "", Title: "no id", Source: "X", SourceTier: 3,
		PublishedAt: engineTestNow.Add(-time.Minute),
	})

	notifier := &fakeNotifier{deliveries: make(chan string, 1)}
	e := newTestEngine(repo, notifier)

	report, err := e.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass returned error: %v", err)
	}

	if report.ItemsSkipped != 1 {
		t.Fatalf("expected 1 skipped item, got %d", report.ItemsSkipped)
	}

	if report.GroupsFound != 1 {
		t.Fatalf("expected the valid items to still group, got %+v", report)
	}

	waitForDelivery(t, notifier)
}
