package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PassesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storypulse_passes_total",
		Help: "The total number of engine passes by outcome",
	}, []string{"status"})

	PassDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storypulse_pass_duration_seconds",
		Help:    "Duration in seconds of one engine pass",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	ItemsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storypulse_items_processed_total",
		Help: "The total number of news items classified and grouped",
	})

	ItemsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storypulse_items_skipped_total",
		Help: "The total number of malformed records skipped by reason",
	}, []string{"reason"})

	GroupsFound = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storypulse_groups_found",
		Help: "Number of cluster-key groups in the latest pass",
	})

	ClustersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storypulse_clusters_created_total",
		Help: "The total number of story clusters created",
	})

	ClustersUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storypulse_clusters_updated_total",
		Help: "The total number of story cluster upserts against existing keys",
	})

	SummariesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storypulse_summaries_written_total",
		Help: "The total number of cluster summaries regenerated",
	})

	GroupErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storypulse_group_errors_total",
		Help: "Total number of per-group processing errors by stage",
	}, []string{"stage"})

	NotificationsFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storypulse_notifications_total",
		Help: "The total number of breaking-news notification attempts by outcome",
	}, []string{"status"})

	ClustersPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storypulse_clusters_pruned_total",
		Help: "The total number of stale story clusters removed",
	})

	BreakingClusters = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storypulse_breaking_clusters",
		Help: "Number of clusters at or above the breaking threshold in the latest pass",
	})

	FeedItemsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storypulse_feed_items_ingested_total",
		Help: "The total number of feed items stored by source",
	}, []string{"source"})

	FeedFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storypulse_feed_fetch_errors_total",
		Help: "Total number of feed fetch failures by source",
	}, []string{"source"})
)
