// Package pipeline wires the GitHub client, storage and the three stages
// (crawl, enrich, report) into a single run.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"stargazers/pkg/checkpoint"
	"stargazers/pkg/config"
	"stargazers/pkg/crawler"
	"stargazers/pkg/enricher"
	"stargazers/pkg/github"
	"stargazers/pkg/logger"
	"stargazers/pkg/models"
	"stargazers/pkg/ratelimit"
	"stargazers/pkg/report"
	"stargazers/pkg/storage"
	"stargazers/pkg/ui"
)

// Scope selects which checkpoints Reset deletes
type Scope int

const (
	ScopeCrawl Scope = 1 << iota
	ScopeEnrich

	ScopeAll = ScopeCrawl | ScopeEnrich
)

// Summary describes a completed run
type Summary struct {
	RunID      string
	Repo       models.RepoID
	Stargazers int
	Users      int
	Entries    []models.RankedEntry
	Duration   time.Duration
}

// Pipeline runs the crawl, enrich and report stages against one store
type Pipeline struct {
	cfg        *config.Config
	client     *github.Client
	store      storage.Store
	ownsStore  bool
	classifier *ratelimit.Classifier
	tracker    *ui.StatusTracker
	logger     logger.Logger
}

type options struct {
	store      storage.Store
	httpClient *http.Client
	notifier   ratelimit.Notifier
	tracker    *ui.StatusTracker
	logger     logger.Logger
}

type Option func(*options)

// WithStore uses an existing store instead of opening the configured one.
// The caller keeps ownership and Close leaves it open.
func WithStore(s storage.Store) Option {
	return func(o *options) { o.store = s }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithNotifier receives rate limit notices
func WithNotifier(n ratelimit.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithTracker reports page and batch progress
func WithTracker(t *ui.StatusTracker) Option {
	return func(o *options) { o.tracker = t }
}

func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New builds a pipeline from a validated configuration
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Pipeline, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logger.GetLogger()
	}

	client := github.NewClient(&cfg.GitHub, o.logger)
	if o.httpClient != nil {
		client.SetHTTPClient(o.httpClient)
	}

	p := &Pipeline{
		cfg:        cfg,
		client:     client,
		store:      o.store,
		classifier: ratelimit.NewClassifier(client.Authenticated(), o.logger, o.notifier),
		tracker:    o.tracker,
		logger:     o.logger.WithField("component", "pipeline"),
	}
	for _, w := range cfg.Warnings {
		p.logger.Warn(w)
	}

	if p.store == nil {
		store, err := storage.Open(ctx, &cfg.Storage, o.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		p.store = store
		p.ownsStore = true
	}

	logger.LogComponentStart(o.logger, "pipeline", map[string]interface{}{
		"storage":       cfg.Storage.Backend,
		"batch_size":    cfg.EffectiveBatchSize(),
		"authenticated": client.Authenticated(),
	})
	return p, nil
}

// Run crawls, enriches and ranks the repository's stargazers. Every stage
// resumes from its own checkpoint.
func (p *Pipeline) Run(ctx context.Context, repo models.RepoID) (*Summary, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := p.logger.WithFields(map[string]interface{}{
		"run_id": runID,
		"repo":   repo.String(),
	})
	log.Info("Run started")

	stargazers, err := p.newCrawler(log).CrawlAll(ctx, repo)
	if err != nil {
		return nil, err
	}
	logger.LogStageProgress(log, "crawl", len(stargazers), len(stargazers))

	users, err := p.newEnricher(log).EnrichAll(ctx, repo)
	if err != nil {
		return nil, err
	}
	logger.LogStageProgress(log, "enrich", len(users), len(stargazers))

	entries, err := report.NewReporter(p.store, log).Report(ctx, repo)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		RunID:      runID,
		Repo:       repo,
		Stargazers: len(stargazers),
		Users:      len(users),
		Entries:    entries,
		Duration:   time.Since(start),
	}
	log.InfoWithFields("Run complete", map[string]interface{}{
		"stargazers":  summary.Stargazers,
		"users":       summary.Users,
		"duration_ms": summary.Duration.Milliseconds(),
	})
	return summary, nil
}

// Crawl runs only the stargazer crawl
func (p *Pipeline) Crawl(ctx context.Context, repo models.RepoID) ([]models.Stargazer, error) {
	return p.newCrawler(p.runLogger(repo)).CrawlAll(ctx, repo)
}

// Enrich runs only the detail enrichment
func (p *Pipeline) Enrich(ctx context.Context, repo models.RepoID) ([]models.User, error) {
	return p.newEnricher(p.runLogger(repo)).EnrichAll(ctx, repo)
}

// Report recomputes the follower ranking from stored details
func (p *Pipeline) Report(ctx context.Context, repo models.RepoID) ([]models.RankedEntry, error) {
	return report.NewReporter(p.store, p.runLogger(repo)).Report(ctx, repo)
}

// Reset deletes the checkpoints selected by scope. Collected sets are kept.
func (p *Pipeline) Reset(ctx context.Context, repo models.RepoID, scope Scope) error {
	cp := checkpoint.NewManager(p.store, p.logger)
	if scope&ScopeCrawl != 0 {
		if err := cp.ResetCrawl(ctx, repo); err != nil {
			return err
		}
	}
	if scope&ScopeEnrich != 0 {
		if err := cp.ResetBatch(ctx, repo); err != nil {
			return err
		}
	}
	p.logger.InfoWithFields("Checkpoints reset", map[string]interface{}{
		"repo":   repo.String(),
		"crawl":  scope&ScopeCrawl != 0,
		"enrich": scope&ScopeEnrich != 0,
	})
	return nil
}

// Store returns the backing store
func (p *Pipeline) Store() storage.Store {
	return p.store
}

// Close releases the store when the pipeline opened it
func (p *Pipeline) Close() error {
	logger.LogComponentStop(p.logger, "pipeline", "closed")
	if p.ownsStore {
		return p.store.Close()
	}
	return nil
}

func (p *Pipeline) runLogger(repo models.RepoID) logger.Logger {
	return p.logger.WithFields(map[string]interface{}{
		"run_id": uuid.NewString(),
		"repo":   repo.String(),
	})
}

func (p *Pipeline) newCrawler(log logger.Logger) *crawler.Crawler {
	var opts []crawler.Option
	if p.tracker != nil {
		opts = append(opts, crawler.WithProgress(p.tracker.CrawlPage))
	}
	return crawler.New(p.client, p.store, p.classifier, log, opts...)
}

func (p *Pipeline) newEnricher(log logger.Logger) *enricher.Enricher {
	var opts []enricher.Option
	if p.tracker != nil {
		opts = append(opts, enricher.WithProgress(p.tracker.EnrichBatch))
	}
	return enricher.New(p.client, p.store, p.classifier, p.cfg.EffectiveBatchSize(), log, opts...)
}
