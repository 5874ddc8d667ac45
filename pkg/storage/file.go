package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bytedance/sonic"

	apperrors "stargazers/pkg/errors"
	"stargazers/pkg/logger"
	"stargazers/pkg/models"
)

// FileStore keeps sets as JSON arrays under outputDir/<owner>-<repo>/ and
// checkpoints as small text files under cacheDir/<owner>-<repo>/.
type FileStore struct {
	outputDir string
	cacheDir  string
	logger    logger.Logger
	mu        sync.Mutex
}

// NewFileStore creates a file-backed store
func NewFileStore(outputDir, cacheDir string, log logger.Logger) (*FileStore, error) {
	if outputDir == "" || cacheDir == "" {
		return nil, apperrors.Configuration("file storage requires output and cache directories")
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &FileStore{outputDir: outputDir, cacheDir: cacheDir, logger: log}, nil
}

// SetPath returns the file a set is stored in
func (s *FileStore) SetPath(repo models.RepoID, set SetName) string {
	return filepath.Join(s.outputDir, repo.Key(), fmt.Sprintf("output_%s.json", set))
}

// CheckpointPath returns the file a checkpoint value is stored in
func (s *FileStore) CheckpointPath(repo models.RepoID, name string) string {
	return filepath.Join(s.cacheDir, repo.Key(), name)
}

func (s *FileStore) ReadSet(ctx context.Context, repo models.RepoID, set SetName) ([]json.RawMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readSet(repo, set)
}

func (s *FileStore) readSet(repo models.RepoID, set SetName) ([]json.RawMessage, bool, error) {
	path := s.SetPath(repo, set)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var items []json.RawMessage
	if err := sonic.Unmarshal(data, &items); err != nil {
		return nil, true, apperrors.MalformedCache(err, "%s", path)
	}
	return items, true, nil
}

func (s *FileStore) AppendSet(ctx context.Context, repo models.RepoID, set SetName, items []json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, _, err := s.readSet(repo, set)
	if err != nil {
		if !apperrors.IsRecoverable(err) {
			return err
		}
		s.logger.WithError(err).WarnWithFields("Malformed set will be overwritten", map[string]interface{}{
			"repo": repo.String(),
			"set":  string(set),
		})
		existing = nil
	}
	return s.writeSet(repo, set, append(existing, items...))
}

func (s *FileStore) ReplaceSet(ctx context.Context, repo models.RepoID, set SetName, items []json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeSet(repo, set, items)
}

func (s *FileStore) writeSet(repo models.RepoID, set SetName, items []json.RawMessage) error {
	if items == nil {
		items = []json.RawMessage{}
	}
	data, err := sonic.ConfigStd.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", set, err)
	}
	return writeAtomic(s.SetPath(repo, set), data)
}

func (s *FileStore) ReadCheckpoint(ctx context.Context, repo models.RepoID, name string) (string, bool, error) {
	path := s.CheckpointPath(repo, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read checkpoint %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), true, nil
}

func (s *FileStore) WriteCheckpoint(ctx context.Context, repo models.RepoID, name, value string) error {
	return writeAtomic(s.CheckpointPath(repo, name), []byte(value))
}

func (s *FileStore) DeleteCheckpoint(ctx context.Context, repo models.RepoID, name string) error {
	err := os.Remove(s.CheckpointPath(repo, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete checkpoint %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

// writeAtomic writes to a temp file in the target directory and renames it
// over the target, so readers never see a partial file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
