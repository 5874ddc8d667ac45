package ui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// StatusTracker reports crawl and enrichment progress
type StatusTracker struct {
	mu         sync.Mutex
	stargazers int
	users      int
}

func NewStatusTracker() *StatusTracker {
	return &StatusTracker{}
}

// CrawlPage records a persisted stargazer page. Its signature matches the
// crawler's progress callback.
func (st *StatusTracker) CrawlPage(page, items, total int) {
	st.mu.Lock()
	st.stargazers = total
	st.mu.Unlock()

	printf(false, "%s page %d: +%d stargazers (%s total)\n",
		Magenta("[CRAWL]"), page, items, humanize.Comma(int64(total)))
}

// EnrichBatch records a persisted detail batch. Its signature matches the
// enricher's progress callback.
func (st *StatusTracker) EnrichBatch(batchIndex, batches, users int) {
	st.mu.Lock()
	st.users = users
	st.mu.Unlock()

	printf(false, "%s %s %s users\n",
		Green("[ENRICH]"), BatchProgress(batchIndex+1, batches), humanize.Comma(int64(users)))
}

// BatchProgress renders a fixed width bar for done out of total
func BatchProgress(done, total int) string {
	filled := 0
	if total > 0 {
		filled = done * barWidth / total
	}
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, barWidth-filled)
	return fmt.Sprintf("[%s] %d/%d", bar, done, total)
}

// Stargazers returns the stargazer total reported so far
func (st *StatusTracker) Stargazers() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.stargazers
}

// Users returns the enriched user total reported so far
func (st *StatusTracker) Users() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.users
}
