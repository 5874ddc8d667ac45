package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stargazers/internal/githubtest"
	"stargazers/pkg/checkpoint"
	"stargazers/pkg/config"
	apperrors "stargazers/pkg/errors"
	"stargazers/pkg/logger"
	"stargazers/pkg/models"
	"stargazers/pkg/storage"
)

var repo = models.RepoID{Owner: "octo", Repo: "hello"}

func testConfig(t *testing.T, srv *githubtest.Server) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.GitHub.Owner = repo.Owner
	cfg.GitHub.Repo = repo.Repo
	cfg.GitHub.BaseURL = srv.URL()
	cfg.GitHub.Token = "ghp_test"
	cfg.GitHub.RequestTimeout = 5 * time.Second
	cfg.Enrich.BatchSize = 50
	cfg.Storage.OutputDir = filepath.Join(dir, "out")
	cfg.Storage.CacheDir = filepath.Join(dir, "cache")
	return cfg
}

func newPipeline(t *testing.T, cfg *config.Config, opts ...Option) (*Pipeline, *logger.TestLogger) {
	t.Helper()
	log := logger.NewTestLogger()
	p, err := New(context.Background(), cfg, append([]Option{WithLogger(log)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p, log
}

func TestRunEndToEnd(t *testing.T) {
	srv := githubtest.NewServer()
	defer srv.Close()

	pages := githubtest.PageSizes("user", 100, 30)
	srv.SetStargazerPages(repo, pages...)
	srv.AddUsers(
		githubtest.MakeUser("user-7", 900),
		githubtest.MakeUser("user-120", 5000),
		githubtest.MakeUser("user-3", 900),
	)

	cfg := testConfig(t, srv)
	p, log := newPipeline(t, cfg)

	summary, err := p.Run(context.Background(), repo)
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 130, summary.Stargazers)
	assert.Equal(t, 130, summary.Users)
	require.Len(t, summary.Entries, 130)

	assert.Equal(t, "user-120", summary.Entries[0].Login)
	assert.Equal(t, 1, summary.Entries[0].Rank)
	assert.Equal(t, "user-3", summary.Entries[1].Login)
	assert.Equal(t, "user-7", summary.Entries[2].Login)

	assert.Equal(t, []int{1, 2, 3}, srv.PageRequests(repo))
	assert.Equal(t, "Bearer ghp_test", srv.LastAuthorization())
	assert.True(t, log.HasMessage("Run complete"))

	for _, set := range []string{"stargazers", "detailed_users", "followers"} {
		path := filepath.Join(cfg.Storage.OutputDir, "octo-hello", "output_"+set+".json")
		_, err := os.Stat(path)
		assert.NoError(t, err, set)
	}
}

func TestRunIsIdempotentOnceComplete(t *testing.T) {
	srv := githubtest.NewServer()
	defer srv.Close()
	srv.SetStargazerPages(repo, githubtest.PageSizes("user", 10)...)

	p, _ := newPipeline(t, testConfig(t, srv))

	_, err := p.Run(context.Background(), repo)
	require.NoError(t, err)
	requests := srv.TotalRequests()

	summary, err := p.Run(context.Background(), repo)
	require.NoError(t, err)
	assert.Equal(t, requests, srv.TotalRequests())
	assert.Equal(t, 10, summary.Users)
}

func TestRunResumesAfterRateLimit(t *testing.T) {
	srv := githubtest.NewServer()
	defer srv.Close()
	srv.SetStargazerPages(repo, githubtest.PageSizes("user", 100, 30)...)
	reset := time.Now().Add(time.Hour).Truncate(time.Second)
	srv.RateLimitAfter(1, reset)

	var notified []*apperrors.RateLimitError
	cfg := testConfig(t, srv)
	p, _ := newPipeline(t, cfg, WithNotifier(func(err *apperrors.RateLimitError) {
		notified = append(notified, err)
	}))

	_, err := p.Run(context.Background(), repo)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrRateLimit)

	var rl *apperrors.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.True(t, rl.Authenticated)
	assert.True(t, rl.ResetAt.Equal(reset))
	require.Len(t, notified, 1)

	cp, err := checkpoint.NewManager(p.Store(), nil).LoadCrawl(context.Background(), repo)
	require.NoError(t, err)
	assert.Equal(t, checkpoint.Crawl{CurrentPage: 1, IsLastPage: false}, cp)

	srv.ClearRateLimit()
	summary, err := p.Run(context.Background(), repo)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 1, 2, 3}, srv.PageRequests(repo))
	assert.Equal(t, 230, summary.Stargazers)
	assert.Equal(t, 230, summary.Users)
}

func TestEnrichRateLimitKeepsLastCompletedBatch(t *testing.T) {
	srv := githubtest.NewServer()
	defer srv.Close()
	srv.SetStargazerPages(repo, githubtest.PageSizes("user", 100)...)

	cfg := testConfig(t, srv)
	p, _ := newPipeline(t, cfg)

	_, err := p.Crawl(context.Background(), repo)
	require.NoError(t, err)

	srv.RateLimitAfter(60, time.Now().Add(time.Hour))
	_, err = p.Enrich(context.Background(), repo)
	require.ErrorIs(t, err, apperrors.ErrRateLimit)

	batch, err := checkpoint.NewManager(p.Store(), nil).LoadBatch(context.Background(), repo)
	require.NoError(t, err)
	assert.Equal(t, 0, batch.LastCompletedBatchIndex)

	users, found, err := storage.ReadItems[models.User](context.Background(), p.Store(), repo, storage.SetDetailedUsers)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, users, 50)
}

func TestReportRequiresDetailSet(t *testing.T) {
	srv := githubtest.NewServer()
	defer srv.Close()

	p, _ := newPipeline(t, testConfig(t, srv))

	_, err := p.Report(context.Background(), repo)
	assert.ErrorIs(t, err, apperrors.ErrPrecondition)

	_, err = p.Enrich(context.Background(), repo)
	assert.ErrorIs(t, err, apperrors.ErrPrecondition)
	assert.Zero(t, srv.TotalRequests())
}

func TestReset(t *testing.T) {
	srv := githubtest.NewServer()
	defer srv.Close()
	srv.SetStargazerPages(repo, githubtest.PageSizes("user", 10)...)

	store, err := storage.NewFileStore(t.TempDir(), t.TempDir(), logger.NewNopLogger())
	require.NoError(t, err)
	p, _ := newPipeline(t, testConfig(t, srv), WithStore(store))

	_, err = p.Run(context.Background(), repo)
	require.NoError(t, err)

	cps := checkpoint.NewManager(store, nil)
	require.NoError(t, p.Reset(context.Background(), repo, ScopeEnrich))

	crawl, err := cps.LoadCrawl(context.Background(), repo)
	require.NoError(t, err)
	assert.True(t, crawl.IsLastPage)
	batch, err := cps.LoadBatch(context.Background(), repo)
	require.NoError(t, err)
	assert.Equal(t, checkpoint.NoBatchCompleted, batch.LastCompletedBatchIndex)

	require.NoError(t, p.Reset(context.Background(), repo, ScopeAll))
	crawl, err = cps.LoadCrawl(context.Background(), repo)
	require.NoError(t, err)
	assert.Equal(t, checkpoint.Crawl{}, crawl)

	_, err = p.Crawl(context.Background(), repo)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 1, 2}, srv.PageRequests(repo))
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	srv := githubtest.NewServer()
	defer srv.Close()

	cfg := testConfig(t, srv)
	cfg.Storage.Backend = "etcd"
	_, err := New(context.Background(), cfg, WithLogger(logger.NewNopLogger()))
	assert.Error(t, err)
}

func TestRunRepositoryWithoutStargazers(t *testing.T) {
	srv := githubtest.NewServer()
	defer srv.Close()
	srv.SetStargazerPages(repo)

	p, _ := newPipeline(t, testConfig(t, srv))

	summary, err := p.Run(context.Background(), repo)
	require.NoError(t, err)
	assert.Zero(t, summary.Stargazers)
	assert.Empty(t, summary.Entries)
	assert.Equal(t, []int{1}, srv.PageRequests(repo))
}

func TestNewLogsConfigWarnings(t *testing.T) {
	srv := githubtest.NewServer()
	defer srv.Close()

	t.Setenv("BATCH_SIZE", "lots")
	cfg := testConfig(t, srv)
	require.NoError(t, cfg.LoadFromEnv())

	_, log := newPipeline(t, cfg)
	assert.True(t, log.HasMessage(`ignoring BATCH_SIZE "lots", using the default batch size`))
	assert.Equal(t, config.DefaultAuthenticatedBatchSize, cfg.EffectiveBatchSize())
}
