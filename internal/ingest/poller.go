// Package ingest polls configured RSS/Atom feeds and stores new headlines
// for the correlation engine to pick up on its next pass.
package ingest

import (
	"context"
	stdhtml "html"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/lueurxax/storypulse/internal/core/domain"
	"github.com/lueurxax/storypulse/internal/platform/config"
	"github.com/lueurxax/storypulse/internal/platform/observability"
	"github.com/lueurxax/storypulse/internal/platform/worker"
)

const pollerBurst = 1

// Repository is the storage surface the poller needs.
type Repository interface {
	InsertItem(ctx context.Context, item *domain.NewsItem, externalID string) (bool, error)
}

// Poller fetches every configured feed on a fixed interval.
type Poller struct {
	feeds   []FeedSource
	repo    Repository
	parser  *gofeed.Parser
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zerolog.Logger

	interval time.Duration
	now      func() time.Time
}

// New builds a Poller from configuration. An empty feed list is valid; the
// poller then runs as a no-op so the engine mode can stay wired the same way.
func New(cfg *config.Config, repo Repository, logger *zerolog.Logger) (*Poller, error) {
	feeds, err := ParseFeedSpecs(cfg.IngestFeeds)
	if err != nil {
		return nil, err
	}

	rps := cfg.IngestRPS
	if rps <= 0 {
		rps = 1
	}

	return &Poller{
		feeds:    feeds,
		repo:     repo,
		parser:   gofeed.NewParser(),
		limiter:  rate.NewLimiter(rate.Limit(rps), pollerBurst),
		timeout:  cfg.IngestTimeout,
		logger:   logger,
		interval: cfg.IngestInterval,
		now:      time.Now,
	}, nil
}

// Run polls all feeds until the context is canceled.
func (p *Poller) Run(ctx context.Context) error {
	return worker.Loop(ctx, worker.Config{
		Name:         "ingest",
		PollInterval: p.interval,
		Process:      p.PollOnce,
		Logger:       p.logger,
	})
}

// PollOnce fetches every configured feed once.
func (p *Poller) PollOnce(ctx context.Context) error {
	for _, feed := range p.feeds {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}

		stored, err := p.pollFeed(ctx, feed)
		if err != nil {
			observability.FeedFetchErrors.WithLabelValues(feed.Source).Inc()
			p.logger.Warn().Err(err).Str("source", feed.Source).Str("url", feed.URL).Msg("feed fetch failed")

			continue
		}

		if stored > 0 {
			p.logger.Info().Str("source", feed.Source).Int("stored", stored).Msg("feed items ingested")
		}
	}

	return nil
}

func (p *Poller) pollFeed(ctx context.Context, source FeedSource) (int, error) {
	// A panic on one feed must not take down the poll loop.
	defer worker.RecoverPanic(p.logger, "poll "+source.Source)

	fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	feed, err := p.parser.ParseURLWithContext(source.URL, fetchCtx)
	if err != nil {
		return 0, err
	}

	stored := 0

	for _, entry := range feed.Items {
		title := CleanText(entry.Title)
		if title == "" {
			continue
		}

		item := domain.NewsItem{
			Title:       title,
			Source:      source.Source,
			SourceTier:  source.Tier,
			PublishedAt: p.publishedAt(entry),
			Body:        CleanText(entry.Description),
		}

		created, err := p.repo.InsertItem(ctx, &item, externalID(entry))
		if err != nil {
			return stored, err
		}

		if created {
			stored++

			observability.FeedItemsIngested.WithLabelValues(source.Source).Inc()
		}
	}

	return stored, nil
}

// publishedAt prefers the parsed feed timestamp, falls back to lenient
// parsing of the raw field, and finally to the poll time so an item without
// any usable date still enters the current window.
func (p *Poller) publishedAt(entry *gofeed.Item) time.Time {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed.UTC()
	}

	if entry.Published != "" {
		if t, err := dateparse.ParseAny(entry.Published); err == nil {
			return t.UTC()
		}
	}

	if entry.UpdatedParsed != nil {
		return entry.UpdatedParsed.UTC()
	}

	return p.now().UTC()
}

func externalID(entry *gofeed.Item) string {
	if entry.GUID != "" {
		return entry.GUID
	}

	return entry.Link
}

// CleanText strips markup from feed fields, which often carry embedded HTML.
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if !strings.ContainsRune(s, '<') {
		return collapseSpace(stdhtml.UnescapeString(s))
	}

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return collapseSpace(s)
	}

	var b strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return collapseSpace(b.String())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
