// Package report ranks enriched stargazers by follower count.
package report

import (
	"context"
	"fmt"
	"sort"

	"stargazers/pkg/checkpoint"
	apperrors "stargazers/pkg/errors"
	"stargazers/pkg/logger"
	"stargazers/pkg/models"
	"stargazers/pkg/storage"
)

// Rank projects users to ranked entries sorted by followers, highest first.
// The sort is stable: users with equal counts keep their detail set order.
func Rank(users []models.User) []models.RankedEntry {
	entries := make([]models.RankedEntry, len(users))
	for i, u := range users {
		entries[i] = models.RankedEntry{
			Login:     u.Login,
			Followers: u.Followers,
			Company:   u.Company,
			Location:  u.Location,
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Followers > entries[j].Followers
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// Top returns the first n entries of a ranked list
func Top(entries []models.RankedEntry, n int) []models.RankedEntry {
	if n < 0 {
		n = 0
	}
	if n > len(entries) {
		n = len(entries)
	}
	return entries[:n]
}

// Reporter recomputes and persists the follower ranking of a repository
type Reporter struct {
	store  storage.Store
	logger logger.Logger
}

func NewReporter(store storage.Store, log logger.Logger) *Reporter {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Reporter{store: store, logger: log.WithField("component", "reporter")}
}

// Report re-reads the detail set, ranks it and overwrites the follower
// report. It fails with a precondition error when no detail set exists.
func (r *Reporter) Report(ctx context.Context, repo models.RepoID) ([]models.RankedEntry, error) {
	log := r.logger.WithField("repo", repo.String())

	users, found, reset, err := storage.ReadItemsOrReset[models.User](ctx, r.store, repo, storage.SetDetailedUsers, log)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.Precondition("detail set for %s does not exist, enrich stargazers first", repo)
	}
	if reset {
		// the emptied detail set only fills again if enrichment starts over
		if err := checkpoint.NewManager(r.store, r.logger).ResetBatch(ctx, repo); err != nil {
			return nil, err
		}
	}

	entries := Rank(users)
	if err := storage.ReplaceItems(ctx, r.store, repo, storage.SetFollowers, entries); err != nil {
		return nil, fmt.Errorf("failed to persist follower report: %w", err)
	}

	log.InfoWithFields("Follower report written", map[string]interface{}{"entries": len(entries)})
	return entries, nil
}
