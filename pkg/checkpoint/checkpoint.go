package checkpoint

import (
	"context"
	"fmt"
	"strconv"

	"stargazers/pkg/logger"
	"stargazers/pkg/models"
	"stargazers/pkg/storage"
)

// Store keys. They double as file names in the file backend.
const (
	KeyCurrentPage = "currentPage"
	KeyIsLastPage  = "isLastPage"
	KeyBatchIndex  = "batchIndex"
)

// NoBatchCompleted is the batch index before any batch finished
const NoBatchCompleted = -1

// Crawl is the resume position of the stargazer crawl. CurrentPage is 0
// until the first page has been fetched.
type Crawl struct {
	CurrentPage int
	IsLastPage  bool
}

// Batch is the resume position of the detail enrichment
type Batch struct {
	LastCompletedBatchIndex int
}

// NextIndex is the first batch still to fetch
func (b Batch) NextIndex() int {
	return b.LastCompletedBatchIndex + 1
}

// Manager reads and writes typed checkpoints through a storage.Store.
// Unparseable values are logged and treated as absent.
type Manager struct {
	store  storage.Store
	logger logger.Logger
}

// NewManager creates a new checkpoint manager
func NewManager(store storage.Store, log logger.Logger) *Manager {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Manager{store: store, logger: log.WithField("component", "checkpoint")}
}

// LoadCrawl returns the crawl checkpoint, or the zero value when none exists
func (m *Manager) LoadCrawl(ctx context.Context, repo models.RepoID) (Crawl, error) {
	var cp Crawl

	page, found, err := m.store.ReadCheckpoint(ctx, repo, KeyCurrentPage)
	if err != nil {
		return cp, fmt.Errorf("failed to load crawl checkpoint: %w", err)
	}
	if found {
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			m.discard(repo, KeyCurrentPage, page)
		} else {
			cp.CurrentPage = n
		}
	}

	last, found, err := m.store.ReadCheckpoint(ctx, repo, KeyIsLastPage)
	if err != nil {
		return cp, fmt.Errorf("failed to load crawl checkpoint: %w", err)
	}
	if found {
		b, err := strconv.ParseBool(last)
		if err != nil {
			m.discard(repo, KeyIsLastPage, last)
		} else {
			cp.IsLastPage = b
		}
	}

	return cp, nil
}

// SaveCrawl persists the crawl checkpoint
func (m *Manager) SaveCrawl(ctx context.Context, repo models.RepoID, cp Crawl) error {
	if err := m.store.WriteCheckpoint(ctx, repo, KeyCurrentPage, strconv.Itoa(cp.CurrentPage)); err != nil {
		return fmt.Errorf("failed to save crawl checkpoint: %w", err)
	}
	if err := m.store.WriteCheckpoint(ctx, repo, KeyIsLastPage, strconv.FormatBool(cp.IsLastPage)); err != nil {
		return fmt.Errorf("failed to save crawl checkpoint: %w", err)
	}
	return nil
}

// LoadBatch returns the batch checkpoint, or NoBatchCompleted when none exists
func (m *Manager) LoadBatch(ctx context.Context, repo models.RepoID) (Batch, error) {
	cp := Batch{LastCompletedBatchIndex: NoBatchCompleted}

	value, found, err := m.store.ReadCheckpoint(ctx, repo, KeyBatchIndex)
	if err != nil {
		return cp, fmt.Errorf("failed to load batch checkpoint: %w", err)
	}
	if !found {
		return cp, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil || n < NoBatchCompleted {
		m.discard(repo, KeyBatchIndex, value)
		return cp, nil
	}
	cp.LastCompletedBatchIndex = n
	return cp, nil
}

// SaveBatch persists the index of the last fully completed batch
func (m *Manager) SaveBatch(ctx context.Context, repo models.RepoID, cp Batch) error {
	if err := m.store.WriteCheckpoint(ctx, repo, KeyBatchIndex, strconv.Itoa(cp.LastCompletedBatchIndex)); err != nil {
		return fmt.Errorf("failed to save batch checkpoint: %w", err)
	}
	return nil
}

// ResetCrawl deletes the crawl checkpoint so the next crawl starts at page 1
func (m *Manager) ResetCrawl(ctx context.Context, repo models.RepoID) error {
	for _, key := range []string{KeyCurrentPage, KeyIsLastPage} {
		if err := m.store.DeleteCheckpoint(ctx, repo, key); err != nil {
			return fmt.Errorf("failed to reset crawl checkpoint: %w", err)
		}
	}
	return nil
}

// ResetBatch deletes the batch checkpoint so enrichment starts at batch 0
func (m *Manager) ResetBatch(ctx context.Context, repo models.RepoID) error {
	if err := m.store.DeleteCheckpoint(ctx, repo, KeyBatchIndex); err != nil {
		return fmt.Errorf("failed to reset batch checkpoint: %w", err)
	}
	return nil
}

func (m *Manager) discard(repo models.RepoID, key, value string) {
	m.logger.WarnWithFields("Ignoring malformed checkpoint value", map[string]interface{}{
		"repo":  repo.String(),
		"key":   key,
		"value": value,
	})
}
