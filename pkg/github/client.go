package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"stargazers/pkg/config"
	apperrors "stargazers/pkg/errors"
	"stargazers/pkg/logger"
	"stargazers/pkg/models"
	"stargazers/pkg/ratelimit"
)

// Client is a minimal GitHub REST client for stargazer listings and user profiles
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	token      string
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// StargazerPage is one page of the stargazer listing
type StargazerPage struct {
	Page      int
	Items     []models.Stargazer
	RateLimit ratelimit.Status
}

// NewClient creates a client from the GitHub configuration
func NewClient(cfg *config.GitHubConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "stargazers"
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		headers: map[string]string{
			"Accept":               "application/vnd.github+json",
			"X-GitHub-Api-Version": "2022-11-28",
			"User-Agent":           userAgent,
		},
		baseURL: baseURL,
		token:   cfg.Token,
		limiter: ratelimit.NewLimiter(cfg.RequestsPerMinute),
		logger:  log.WithField("component", "github"),
	}
}

// SetHTTPClient replaces the underlying http.Client
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// Authenticated reports whether requests carry a token
func (c *Client) Authenticated() bool {
	return c.token != ""
}

// ListStargazers fetches one page of a repository's stargazers
func (c *Client) ListStargazers(ctx context.Context, repo models.RepoID, page, perPage int) (*StargazerPage, error) {
	var items []models.Stargazer
	status, err := c.getJSON(ctx, StargazersURL(c.baseURL, repo, page, perPage), &items)
	if err != nil {
		return nil, fmt.Errorf("failed to list stargazers page %d: %w", page, err)
	}
	return &StargazerPage{Page: page, Items: items, RateLimit: status}, nil
}

// GetUser fetches the full profile of a login
func (c *Client) GetUser(ctx context.Context, login string) (*models.User, error) {
	var user models.User
	if _, err := c.getJSON(ctx, UserURL(c.baseURL, login), &user); err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", login, err)
	}
	return &user, nil
}

func (c *Client) getJSON(ctx context.Context, url string, target interface{}) (ratelimit.Status, error) {
	resp, err := c.do(ctx, url)
	if err != nil {
		return ratelimit.Status{}, err
	}
	defer resp.Body.Close()

	status := ratelimit.ParseHeaders(resp.Header)
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return status, apperrors.Wrap(apperrors.ErrorTypeTransport, err, "failed to read response body")
	}

	if err := checkResponseStatus(resp, url, body, status); err != nil {
		return status, err
	}

	if err := sonic.Unmarshal(body, target); err != nil {
		return status, apperrors.Wrap(apperrors.ErrorTypeTransport, err, "failed to decode response")
	}
	return status, nil
}

// do performs a GET with the configured headers
func (c *Client) do(ctx context.Context, url string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrorTypeTransport, err, "failed to create request")
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"url":      url,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return nil, apperrors.Wrap(apperrors.ErrorTypeTransport, err, "network error")
	}

	logger.LogRequest(c.logger, req.Method, url, resp.StatusCode, time.Since(start))
	return resp, nil
}

type errorBody struct {
	Message          string `json:"message"`
	DocumentationURL string `json:"documentation_url"`
}

// checkResponseStatus converts non-2xx responses into *APIError
func checkResponseStatus(resp *http.Response, url string, body []byte, status ratelimit.Status) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		URL:        url,
		RateLimit:  status,
	}
	var eb errorBody
	if err := sonic.Unmarshal(body, &eb); err == nil {
		apiErr.Message = eb.Message
		apiErr.DocumentationURL = eb.DocumentationURL
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
