// Package githubtest provides a fake GitHub REST API for tests.
package githubtest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"stargazers/pkg/models"
)

// Server simulates the stargazer listing and user profile endpoints
type Server struct {
	server *httptest.Server

	mu             sync.Mutex
	pages          map[string][][]models.Stargazer
	users          map[string]models.User
	failures       map[string]int
	delays         map[string]time.Duration
	requests       map[string]int
	pageRequests   map[string][]int
	total          int
	rateLimitAfter int
	resetAt        time.Time
	lastAuth       string
}

// NewServer starts a fake API server
func NewServer() *Server {
	s := &Server{
		pages:          make(map[string][][]models.Stargazer),
		users:          make(map[string]models.User),
		failures:       make(map[string]int),
		delays:         make(map[string]time.Duration),
		requests:       make(map[string]int),
		pageRequests:   make(map[string][]int),
		rateLimitAfter: -1,
		resetAt:        time.Now().Add(time.Hour).Truncate(time.Second),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/{owner}/{repo}/stargazers", s.handleStargazers)
	mux.HandleFunc("GET /users/{login}", s.handleUser)
	s.server = httptest.NewServer(mux)
	return s
}

func (s *Server) URL() string {
	return s.server.URL
}

func (s *Server) Close() {
	s.server.Close()
}

// SetStargazerPages configures the pages returned for a repository. Pages
// past the last configured one are empty.
func (s *Server) SetStargazerPages(repo models.RepoID, pages ...[]models.Stargazer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[repo.String()] = pages
}

// AddUsers registers profiles. Unregistered logins get a profile with zero followers.
func (s *Server) AddUsers(users ...models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range users {
		s.users[u.Login] = u
	}
}

// RateLimitAfter makes every request after the first n fail with an
// exhausted quota until ClearRateLimit is called.
func (s *Server) RateLimitAfter(n int, reset time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateLimitAfter = s.total + n
	s.resetAt = reset
}

func (s *Server) ClearRateLimit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateLimitAfter = -1
}

// FailUser makes profile requests for login fail with status
func (s *Server) FailUser(login string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[login] = status
}

// SetDelay delays profile responses for login
func (s *Server) SetDelay(login string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[login] = d
}

// RequestCount returns how many requests hit path
func (s *Server) RequestCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

func (s *Server) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// PageRequests returns the page numbers requested for repo, in order
func (s *Server) PageRequests(repo models.RepoID) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.pageRequests[repo.String()]...)
}

// LastAuthorization returns the Authorization header of the latest request
func (s *Server) LastAuthorization() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuth
}

// record counts the request and reports whether it should be rate limited
func (s *Server) record(r *http.Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.requests[r.URL.Path]++
	s.lastAuth = r.Header.Get("Authorization")
	return s.rateLimitAfter >= 0 && s.total > s.rateLimitAfter
}

func (s *Server) writeQuota(w http.ResponseWriter, remaining int) {
	w.Header().Set("X-RateLimit-Limit", "60")
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(s.resetAt.Unix(), 10))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *Server) writeRateLimited(w http.ResponseWriter) {
	s.writeQuota(w, 0)
	s.writeJSON(w, http.StatusForbidden, map[string]string{
		"message":           "API rate limit exceeded",
		"documentation_url": "https://docs.github.com/rest/overview/resources-in-the-rest-api#rate-limiting",
	})
}

func (s *Server) handleStargazers(w http.ResponseWriter, r *http.Request) {
	limited := s.record(r)
	repo := models.RepoID{Owner: r.PathValue("owner"), Repo: r.PathValue("repo")}
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	s.mu.Lock()
	s.pageRequests[repo.String()] = append(s.pageRequests[repo.String()], page)
	pages, known := s.pages[repo.String()]
	s.mu.Unlock()

	if limited {
		s.writeRateLimited(w)
		return
	}
	if !known {
		s.writeQuota(w, 59)
		s.writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}

	items := []models.Stargazer{}
	if page <= len(pages) && pages[page-1] != nil {
		items = pages[page-1]
	}
	s.writeQuota(w, 59)
	s.writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	limited := s.record(r)
	login := r.PathValue("login")

	s.mu.Lock()
	user, known := s.users[login]
	status := s.failures[login]
	delay := s.delays[login]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if limited {
		s.writeRateLimited(w)
		return
	}
	if status != 0 {
		s.writeQuota(w, 59)
		s.writeJSON(w, status, map[string]string{"message": http.StatusText(status)})
		return
	}
	if !known {
		user = MakeUser(login, 0)
	}
	s.writeQuota(w, 59)
	s.writeJSON(w, http.StatusOK, user)
}

// MakeStargazers returns n stargazers named prefix-<offset+i>
func MakeStargazers(prefix string, offset, n int) []models.Stargazer {
	out := make([]models.Stargazer, n)
	for i := range out {
		login := fmt.Sprintf("%s-%d", prefix, offset+i)
		out[i] = models.Stargazer{
			Login:   login,
			ID:      int64(offset + i + 1),
			URL:     "https://api.github.com/users/" + login,
			HTMLURL: "https://github.com/" + login,
			Type:    "User",
		}
	}
	return out
}

// PageSizes builds consecutive pages of the given sizes
func PageSizes(prefix string, sizes ...int) [][]models.Stargazer {
	pages := make([][]models.Stargazer, len(sizes))
	offset := 0
	for i, n := range sizes {
		pages[i] = MakeStargazers(prefix, offset, n)
		offset += n
	}
	return pages
}

// MakeUser returns a profile with the given follower count
func MakeUser(login string, followers int) models.User {
	company := "Acme"
	return models.User{
		Stargazer: models.Stargazer{
			Login: login,
			URL:   "https://api.github.com/users/" + login,
			Type:  "User",
		},
		Company:   &company,
		Followers: followers,
		CreatedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}
