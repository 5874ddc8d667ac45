// Package fetchpool fetches the profiles of one enrichment batch concurrently.
package fetchpool

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/pool"

	"stargazers/pkg/logger"
	"stargazers/pkg/models"
)

// UserFetcher fetches a single user profile
type UserFetcher interface {
	GetUser(ctx context.Context, login string) (*models.User, error)
}

// Pool runs at most size profile requests at a time
type Pool struct {
	size   int
	client UserFetcher
	logger logger.Logger
}

// New creates a fetch pool. A size below 1 is treated as 1.
func New(size int, client UserFetcher, log logger.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Pool{size: size, client: client, logger: log.WithField("component", "fetchpool")}
}

// FetchBatch fetches every member of batch and returns the profiles in
// batch order. The first failure cancels the remaining requests and is
// returned; no partial results are returned.
func (p *Pool) FetchBatch(ctx context.Context, batch []models.Stargazer) ([]models.User, error) {
	results := make([]models.User, len(batch))
	start := time.Now()

	wp := pool.New().
		WithMaxGoroutines(p.size).
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()

	for i, member := range batch {
		wp.Go(func(ctx context.Context) error {
			user, err := p.client.GetUser(ctx, member.Login)
			if err != nil {
				return err
			}
			results[i] = *user
			return nil
		})
	}

	if err := wp.Wait(); err != nil {
		p.logger.WithError(err).DebugWithFields("Batch failed", map[string]interface{}{
			"size":     len(batch),
			"duration": time.Since(start),
		})
		return nil, err
	}

	p.logger.DebugWithFields("Batch fetched", map[string]interface{}{
		"size":     len(batch),
		"duration": time.Since(start),
	})
	return results, nil
}
