// Package domain holds the value types shared across the correlation engine.
package domain

import "time"

// Category classifies registry entities.
type Category string

const (
	CategoryPlayer       Category = "player"
	CategoryClub         Category = "club"
	CategoryManager      Category = "manager"
	CategoryMatch        Category = "match"
	CategoryLeague       Category = "league"
	CategoryCompetition  Category = "competition"
	CategoryOrganization Category = "organization"
	CategoryVenue        Category = "venue"
	CategoryReferee      Category = "referee"
	CategoryJournalist   Category = "journalist"
	CategoryAgent        Category = "agent"
	CategoryUnknown      Category = "unknown"
)

// Event type labels produced by the classifier.
const (
	EventTransfer   = "transfer"
	EventInjury     = "injury"
	EventSuspension = "suspension"
	EventPreview    = "preview"
	EventResult     = "result"
	EventReaction   = "reaction"
	EventManagerial = "managerial"
	EventContract   = "contract"
	EventBreaking   = "breaking"
)

// TrendLabel describes cluster momentum derived from velocity and decay.
type TrendLabel string

const (
	TrendStable  TrendLabel = "STABLE"
	TrendRising  TrendLabel = "RISING"
	TrendSpiking TrendLabel = "SPIKING"
	TrendFading  TrendLabel = "FADING"
)

// Confidence is the qualitative signal-integrity label.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// Cluster lifecycle status.
const (
	ClusterStatusActive = "active"
	ClusterStatusPruned = "pruned"
)

// NewsItem is one ingested headline. The engine only writes the cluster key
// and event type annotations; everything else is owned by the ingester.
type NewsItem struct {
	ID          string
	Title       string
	Source      string
	SourceTier  int
	PublishedAt time.Time
	Body        string
	ClusterKey  string
	EventType   string
}

// Entity is a named real-world subject from the registry.
type Entity struct {
	Name     string
	Category Category
	Aliases  []string
	Metadata map[string]string
}

// MatchedEntity records one alias hit for an entity in a title.
// Position is the byte offset of the first occurrence in the title.
type MatchedEntity struct {
	Entity   Entity
	Alias    string
	Position int
}

// Subject is what a story is primarily about. For match-type events the
// subject is a canonical club pair; with no matches it is the orphan sentinel.
type Subject struct {
	Key      string
	Name     string
	Category Category
}

// StoryCluster is the durable aggregate for one (subject, event, day) bucket.
type StoryCluster struct {
	Key              string
	Title            string
	EventType        string
	SubjectName      string
	SubjectCategory  Category
	Entities         []string
	SourceCount      int
	Tier1Count       int
	Tier2Count       int
	Tier3Count       int
	HasConflict      bool
	Velocity30m      int
	VelocityPrev30m  int
	Acceleration     float64
	Trend            TrendLabel
	ConsistencyRatio float64
	Score            int
	PeakScore        int
	PeakAt           time.Time
	FirstSeenAt      time.Time
	LastItemAt       time.Time
	ItemIDs          []string
	Status           string
	UpdatedAt        time.Time
}

// Claim is one merged cross-source assertion.
type Claim struct {
	Text     string   `json:"text"`
	Sources  []string `json:"sources"`
	BestTier int      `json:"best_tier"`
}

// ConflictVersion is one side of a detected disagreement.
type ConflictVersion struct {
	Value   string   `json:"value"`
	Sources []string `json:"sources"`
}

// Conflict records cross-source disagreement on a topic.
type Conflict struct {
	Topic    string            `json:"topic"`
	Versions []ConflictVersion `json:"versions"`
}

// SignalIntegrity is the machine-readable confidence block of a summary.
type SignalIntegrity struct {
	Tier1Count       int        `json:"tier1_count"`
	Tier2Count       int        `json:"tier2_count"`
	Tier3Count       int        `json:"tier3_count"`
	HasConflict      bool       `json:"has_conflict"`
	ConsistencyRatio float64    `json:"consistency_ratio"`
	Confidence       Confidence `json:"confidence"`
}

// ClusterSummary is regenerated in full on every pass that touches a cluster.
type ClusterSummary struct {
	ClusterKey  string
	Claims      []Claim
	Conflicts   []Conflict
	Integrity   SignalIntegrity
	Narrative   string
	GeneratedAt time.Time
}

// PassReport is returned by one engine pass.
type PassReport struct {
	ItemsProcessed     int           `json:"items_processed"`
	ItemsSkipped       int           `json:"items_skipped"`
	GroupsFound        int           `json:"groups_found"`
	ClustersCreated    int           `json:"clusters_created"`
	ClustersUpdated    int           `json:"clusters_updated"`
	SummariesWritten   int           `json:"summaries_written"`
	NotificationsFired int           `json:"notifications_fired"`
	ClustersPruned     int           `json:"clusters_pruned"`
	Errors             int           `json:"errors"`
	StartedAt          time.Time     `json:"started_at"`
	Duration           time.Duration `json:"duration"`
}
