// Package enricher fetches full user profiles for a crawled stargazer set in
// fixed-size batches, checkpointing after each batch is persisted.
package enricher

import (
	"context"
	"fmt"

	"stargazers/internal/fetchpool"
	"stargazers/pkg/checkpoint"
	apperrors "stargazers/pkg/errors"
	"stargazers/pkg/logger"
	"stargazers/pkg/models"
	"stargazers/pkg/ratelimit"
	"stargazers/pkg/storage"
)

// ProgressFunc is called after each batch is persisted
type ProgressFunc func(batchIndex, batches, users int)

// Enricher turns the stargazer set into the detail set
type Enricher struct {
	pool        *fetchpool.Pool
	store       storage.Store
	checkpoints *checkpoint.Manager
	classifier  *ratelimit.Classifier
	batchSize   int
	progress    ProgressFunc
	logger      logger.Logger
}

type Option func(*Enricher)

func WithProgress(fn ProgressFunc) Option {
	return func(e *Enricher) { e.progress = fn }
}

// New creates an enricher fetching batchSize profiles per batch
func New(client fetchpool.UserFetcher, store storage.Store, classifier *ratelimit.Classifier, batchSize int, log logger.Logger, opts ...Option) *Enricher {
	if log == nil {
		log = logger.GetLogger()
	}
	if classifier == nil {
		classifier = ratelimit.NewClassifier(false, log, nil)
	}
	if batchSize < 1 {
		batchSize = 1
	}
	log = log.WithField("component", "enricher")
	e := &Enricher{
		pool:        fetchpool.New(batchSize, client, log),
		store:       store,
		checkpoints: checkpoint.NewManager(store, log),
		classifier:  classifier,
		batchSize:   batchSize,
		logger:      log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BatchCount returns the number of batches for n stargazers
func BatchCount(n, batchSize int) int {
	if n <= 0 || batchSize <= 0 {
		return 0
	}
	return (n + batchSize - 1) / batchSize
}

// EnrichAll fetches every batch after the last completed one. Each batch's
// profiles are appended to the detail set before the batch index is
// recorded, so a failure leaves the checkpoint at the last fully persisted
// batch.
func (e *Enricher) EnrichAll(ctx context.Context, repo models.RepoID) ([]models.User, error) {
	if repo.IsZero() {
		return nil, apperrors.Configuration("repository owner and name are required")
	}
	log := e.logger.WithField("repo", repo.String())

	stargazers, found, reset, err := storage.ReadItemsOrReset[models.Stargazer](ctx, e.store, repo, storage.SetStargazers, log)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.Precondition("stargazer set for %s does not exist, crawl stargazers first", repo)
	}
	if reset {
		log.Warn("Stargazer set was reset, the next crawl starts from page 1")
		if err := e.checkpoints.ResetCrawl(ctx, repo); err != nil {
			return nil, err
		}
	}

	_, _, reset, err = storage.ReadItemsOrReset[models.User](ctx, e.store, repo, storage.SetDetailedUsers, log)
	if err != nil {
		return nil, err
	}
	if reset {
		if err := e.checkpoints.ResetBatch(ctx, repo); err != nil {
			return nil, err
		}
	}

	cp, err := e.checkpoints.LoadBatch(ctx, repo)
	if err != nil {
		return nil, err
	}

	batches := BatchCount(len(stargazers), e.batchSize)
	start := cp.NextIndex()
	if start > 0 && start < batches {
		log.InfoWithFields("Resuming enrichment", map[string]interface{}{
			"batch":   start,
			"batches": batches,
		})
	}

	for i := start; i < batches; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lo := i * e.batchSize
		hi := min(lo+e.batchSize, len(stargazers))

		users, err := e.pool.FetchBatch(ctx, stargazers[lo:hi])
		if err != nil {
			return nil, e.classifier.Handle(err)
		}

		if err := storage.AppendItems(ctx, e.store, repo, storage.SetDetailedUsers, users); err != nil {
			return nil, fmt.Errorf("failed to persist batch %d: %w", i, err)
		}
		if err := e.checkpoints.SaveBatch(ctx, repo, checkpoint.Batch{LastCompletedBatchIndex: i}); err != nil {
			return nil, err
		}

		log.DebugWithFields("Batch persisted", map[string]interface{}{
			"batch":   i,
			"batches": batches,
			"users":   len(users),
		})
		if e.progress != nil {
			e.progress(i, batches, hi)
		}
	}

	users, found, err := storage.ReadItems[models.User](ctx, e.store, repo, storage.SetDetailedUsers)
	if err != nil {
		if !apperrors.IsRecoverable(err) {
			return nil, err
		}
		log.WithError(err).Warn("Detail set is malformed, treating it as empty")
		users = nil
	}
	if users == nil {
		users = []models.User{}
	}
	// a repository without stargazers still gets an (empty) detail set
	if !found {
		if err := storage.ReplaceItems(ctx, e.store, repo, storage.SetDetailedUsers, users); err != nil {
			return nil, fmt.Errorf("failed to persist detail set: %w", err)
		}
	}

	log.InfoWithFields("Enrichment complete", map[string]interface{}{
		"batches": batches,
		"users":   len(users),
	})
	return users, nil
}
