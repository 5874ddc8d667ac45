package github

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stargazers/internal/githubtest"
	"stargazers/pkg/config"
	apperrors "stargazers/pkg/errors"
	"stargazers/pkg/logger"
	"stargazers/pkg/models"
	"stargazers/pkg/ratelimit"
)

var testRepo = models.RepoID{Owner: "nvh95", Repo: "jest-preview"}

func newTestClient(t *testing.T, baseURL, token string) *Client {
	t.Helper()
	cfg := config.DefaultConfig().GitHub
	cfg.BaseURL = baseURL
	cfg.Token = token
	return NewClient(&cfg, logger.NewTestLogger())
}

func TestListStargazers(t *testing.T) {
	srv := githubtest.NewServer()
	defer srv.Close()
	srv.SetStargazerPages(testRepo, githubtest.PageSizes("user", 100, 37)...)

	client := newTestClient(t, srv.URL(), "")

	page, err := client.ListStargazers(context.Background(), testRepo, 2, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Items, 37)
	assert.Equal(t, "user-100", page.Items[0].Login)
	assert.True(t, page.RateLimit.Known)
	assert.Equal(t, 59, page.RateLimit.Remaining)

	page, err = client.ListStargazers(context.Background(), testRepo, 3, 100)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, []int{2, 3}, srv.PageRequests(testRepo))
}

func TestAuthorizationHeader(t *testing.T) {
	srv := githubtest.NewServer()
	defer srv.Close()

	_, err := newTestClient(t, srv.URL(), "ghp_secret").GetUser(context.Background(), "octocat")
	require.NoError(t, err)
	assert.Equal(t, "Bearer ghp_secret", srv.LastAuthorization())

	_, err = newTestClient(t, srv.URL(), "").GetUser(context.Background(), "octocat")
	require.NoError(t, err)
	assert.Empty(t, srv.LastAuthorization())
}

func TestGetUser(t *testing.T) {
	srv := githubtest.NewServer()
	defer srv.Close()
	srv.AddUsers(githubtest.MakeUser("octocat", 4200))

	client := newTestClient(t, srv.URL(), "")
	user, err := client.GetUser(context.Background(), "octocat")
	require.NoError(t, err)
	assert.Equal(t, "octocat", user.Login)
	assert.Equal(t, 4200, user.Followers)
	require.NotNil(t, user.Company)
	assert.Equal(t, "Acme", *user.Company)
	assert.Nil(t, user.Location)
	assert.Equal(t, 1, srv.RequestCount("/users/octocat"))
}

func TestRateLimitedResponse(t *testing.T) {
	srv := githubtest.NewServer()
	defer srv.Close()
	reset := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	srv.RateLimitAfter(0, reset)

	client := newTestClient(t, srv.URL(), "")
	_, err := client.GetUser(context.Background(), "octocat")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "API rate limit exceeded", apiErr.Message)
	assert.True(t, apiErr.RateLimit.Exhausted())
	assert.Equal(t, reset.Unix(), apiErr.RateLimit.Reset.Unix())
	assert.True(t, errors.Is(err, apperrors.ErrTransport))

	cl := ratelimit.Classify(err)
	assert.Equal(t, ratelimit.ClassRateLimited, cl.Class)
}

func TestCheckResponseStatus(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantErr    bool
		wantMsg    string
	}{
		{name: "ok", statusCode: http.StatusOK, body: `[]`},
		{name: "not found", statusCode: http.StatusNotFound, body: `{"message":"Not Found"}`, wantErr: true, wantMsg: "Not Found"},
		{name: "server error without body", statusCode: http.StatusBadGateway, body: ``, wantErr: true, wantMsg: "Bad Gateway"},
		{name: "forbidden with quota left", statusCode: http.StatusForbidden, body: `{"message":"Resource not accessible"}`, wantErr: true, wantMsg: "Resource not accessible"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set(ratelimit.HeaderRemaining, "10")
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL, "")
			_, err := client.ListStargazers(context.Background(), testRepo, 1, 100)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.statusCode, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			assert.Equal(t, ratelimit.ClassOther, ratelimit.Classify(err).Class)
		})
	}
}

func TestNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := newTestClient(t, url, "")
	_, err := client.GetUser(context.Background(), "octocat")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrTransport))
	assert.Equal(t, ratelimit.ClassOther, ratelimit.Classify(err).Class)
}

func TestContextCancelled(t *testing.T) {
	srv := githubtest.NewServer()
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(t, srv.URL(), "").GetUser(ctx, "octocat")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStargazersURL(t *testing.T) {
	got := StargazersURL("https://api.github.com", testRepo, 4, 100)
	assert.Equal(t, "https://api.github.com/repos/nvh95/jest-preview/stargazers?page=4&per_page=100", got)
	assert.Equal(t, "https://api.github.com/users/octocat", UserURL("https://api.github.com", "octocat"))
}
