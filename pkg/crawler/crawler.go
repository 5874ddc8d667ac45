// Package crawler walks a repository's paginated stargazer listing and
// persists every page as it arrives, so an interrupted crawl resumes at the
// last recorded page.
package crawler

import (
	"context"
	"fmt"

	"stargazers/pkg/checkpoint"
	"stargazers/pkg/config"
	apperrors "stargazers/pkg/errors"
	"stargazers/pkg/github"
	"stargazers/pkg/logger"
	"stargazers/pkg/models"
	"stargazers/pkg/ratelimit"
	"stargazers/pkg/storage"
)

// StargazerLister fetches one page of the stargazer listing
type StargazerLister interface {
	ListStargazers(ctx context.Context, repo models.RepoID, page, perPage int) (*github.StargazerPage, error)
}

// ProgressFunc is called after each page is persisted
type ProgressFunc func(page, items, total int)

// Crawler fetches the full stargazer set of a repository
type Crawler struct {
	client      StargazerLister
	store       storage.Store
	checkpoints *checkpoint.Manager
	classifier  *ratelimit.Classifier
	perPage     int
	progress    ProgressFunc
	logger      logger.Logger
}

type Option func(*Crawler)

// WithPerPage overrides the listing page size
func WithPerPage(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.perPage = n
		}
	}
}

func WithProgress(fn ProgressFunc) Option {
	return func(c *Crawler) { c.progress = fn }
}

// New creates a crawler
func New(client StargazerLister, store storage.Store, classifier *ratelimit.Classifier, log logger.Logger, opts ...Option) *Crawler {
	if log == nil {
		log = logger.GetLogger()
	}
	if classifier == nil {
		classifier = ratelimit.NewClassifier(false, log, nil)
	}
	log = log.WithField("component", "crawler")
	c := &Crawler{
		client:      client,
		store:       store,
		checkpoints: checkpoint.NewManager(store, log),
		classifier:  classifier,
		perPage:     config.StargazersPerPage,
		logger:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CrawlAll fetches pages until an empty one is seen, appending each page to
// the stargazer set before advancing the checkpoint. A crawl whose
// checkpoint already records the last page does nothing. On resume the
// checkpointed page is fetched again, so entries of a page interrupted
// mid-write may appear twice.
func (c *Crawler) CrawlAll(ctx context.Context, repo models.RepoID) ([]models.Stargazer, error) {
	if repo.IsZero() {
		return nil, apperrors.Configuration("repository owner and name are required")
	}
	log := c.logger.WithField("repo", repo.String())

	// a malformed set cannot be appended to, so the crawl starts over
	_, _, reset, err := storage.ReadItemsOrReset[models.Stargazer](ctx, c.store, repo, storage.SetStargazers, log)
	if err != nil {
		return nil, err
	}
	if reset {
		if err := c.checkpoints.ResetCrawl(ctx, repo); err != nil {
			return nil, err
		}
	}

	cp, err := c.checkpoints.LoadCrawl(ctx, repo)
	if err != nil {
		return nil, err
	}

	page := 1
	if cp.CurrentPage >= 1 {
		page = cp.CurrentPage
		if !cp.IsLastPage {
			log.InfoWithFields("Resuming crawl", map[string]interface{}{"page": page})
		}
	}

	fetched := 0
	for !cp.IsLastPage {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := c.client.ListStargazers(ctx, repo, page, c.perPage)
		if err != nil {
			return nil, c.classifier.Handle(err)
		}

		if err := storage.AppendItems(ctx, c.store, repo, storage.SetStargazers, result.Items); err != nil {
			return nil, fmt.Errorf("failed to persist page %d: %w", page, err)
		}
		cp = checkpoint.Crawl{CurrentPage: page, IsLastPage: len(result.Items) == 0}
		if err := c.checkpoints.SaveCrawl(ctx, repo, cp); err != nil {
			return nil, err
		}

		fetched += len(result.Items)
		log.DebugWithFields("Page fetched", map[string]interface{}{
			"page":  page,
			"items": len(result.Items),
		})
		if c.progress != nil {
			c.progress(page, len(result.Items), fetched)
		}
		page++
	}

	stargazers, err := c.readSet(ctx, repo, log)
	if err != nil {
		return nil, err
	}
	log.InfoWithFields("Crawl complete", map[string]interface{}{
		"fetched": fetched,
		"total":   len(stargazers),
	})
	return stargazers, nil
}

func (c *Crawler) readSet(ctx context.Context, repo models.RepoID, log logger.Logger) ([]models.Stargazer, error) {
	stargazers, _, err := storage.ReadItems[models.Stargazer](ctx, c.store, repo, storage.SetStargazers)
	if err != nil {
		if !apperrors.IsRecoverable(err) {
			return nil, err
		}
		log.WithError(err).Warn("Stargazer set is malformed, treating it as empty")
		return []models.Stargazer{}, nil
	}
	if stargazers == nil {
		stargazers = []models.Stargazer{}
	}
	return stargazers, nil
}
