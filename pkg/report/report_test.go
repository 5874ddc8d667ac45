package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stargazers/internal/githubtest"
	"stargazers/pkg/checkpoint"
	apperrors "stargazers/pkg/errors"
	"stargazers/pkg/logger"
	"stargazers/pkg/models"
	"stargazers/pkg/storage"
)

var testRepo = models.RepoID{Owner: "nvh95", Repo: "jest-preview"}

func users(pairs ...interface{}) []models.User {
	var out []models.User
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, githubtest.MakeUser(pairs[i].(string), pairs[i+1].(int)))
	}
	return out
}

func TestRankIsStable(t *testing.T) {
	entries := Rank(users("a", 10, "b", 30, "c", 10))

	require.Len(t, entries, 3)
	assert.Equal(t, []string{"b", "a", "c"}, []string{entries[0].Login, entries[1].Login, entries[2].Login})
	assert.Equal(t, []int{1, 2, 3}, []int{entries[0].Rank, entries[1].Rank, entries[2].Rank})
	assert.Equal(t, 30, entries[0].Followers)
}

func TestRankProjectsFields(t *testing.T) {
	location := "Hanoi"
	u := githubtest.MakeUser("nvh95", 1200)
	u.Location = &location

	entries := Rank([]models.User{u})
	require.Len(t, entries, 1)
	assert.Equal(t, models.RankedEntry{Rank: 1, Login: "nvh95", Followers: 1200, Company: u.Company, Location: &location}, entries[0])
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank(nil))
}

func TestTop(t *testing.T) {
	var in []models.User
	for i := 0; i < 25; i++ {
		in = append(in, githubtest.MakeUser(string(rune('a'+i)), i))
	}
	full := Rank(in)

	top := Top(full, 10)
	require.Len(t, top, 10)
	assert.Equal(t, full[:10], top)
	assert.Equal(t, 10, top[9].Rank)

	assert.Len(t, Top(full[:3], 10), 3)
	assert.Empty(t, Top(full, -1))
}

func TestReporter(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := storage.NewFileStore(dir, filepath.Join(dir, ".cache"), nil)
	require.NoError(t, err)
	r := NewReporter(store, logger.NewTestLogger())

	_, err = r.Report(ctx, testRepo)
	assert.True(t, errors.Is(err, apperrors.ErrPrecondition))

	require.NoError(t, storage.AppendItems(ctx, store, testRepo, storage.SetDetailedUsers, users("a", 1, "b", 2)))
	entries, err := r.Report(ctx, testRepo)
	require.NoError(t, err)
	assert.Equal(t, "b", entries[0].Login)

	// the report is recomputed from the current detail set on every run
	require.NoError(t, storage.AppendItems(ctx, store, testRepo, storage.SetDetailedUsers, users("c", 3)))
	entries, err = r.Report(ctx, testRepo)
	require.NoError(t, err)

	persisted, found, err := storage.ReadItems[models.RankedEntry](ctx, store, testRepo, storage.SetFollowers)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, entries, persisted)
	assert.Equal(t, []string{"c", "b", "a"}, []string{persisted[0].Login, persisted[1].Login, persisted[2].Login})
}

func TestReporterOverwritesMalformedDetailSet(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := storage.NewFileStore(dir, filepath.Join(dir, ".cache"), nil)
	require.NoError(t, err)
	cps := checkpoint.NewManager(store, nil)
	require.NoError(t, cps.SaveBatch(ctx, testRepo, checkpoint.Batch{LastCompletedBatchIndex: 3}))

	path := store.SetPath(testRepo, storage.SetDetailedUsers)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`[{"login":42}]`), 0o644))

	entries, err := NewReporter(store, logger.NewTestLogger()).Report(ctx, testRepo)
	require.NoError(t, err)
	assert.Empty(t, entries)

	detail, found, err := storage.ReadItems[models.User](ctx, store, testRepo, storage.SetDetailedUsers)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, detail)

	batch, err := cps.LoadBatch(ctx, testRepo)
	require.NoError(t, err)
	assert.Equal(t, checkpoint.NoBatchCompleted, batch.LastCompletedBatchIndex)
}
