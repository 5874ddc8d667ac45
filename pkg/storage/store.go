package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"stargazers/pkg/config"
	"stargazers/pkg/logger"
	"stargazers/pkg/models"
)

// SetName names one of the persisted per-repository sets
type SetName string

const (
	SetStargazers    SetName = "stargazers"
	SetDetailedUsers SetName = "detailed_users"
	SetFollowers     SetName = "followers"
)

// Store persists ordered sets and scalar checkpoints keyed by repository.
//
// ReadSet reports found=false when the set was never written. A set whose
// persisted form cannot be parsed is returned as found with an
// errors.ErrMalformedCache error; AppendSet treats such a set as empty and
// overwrites it.
type Store interface {
	ReadSet(ctx context.Context, repo models.RepoID, set SetName) ([]json.RawMessage, bool, error)
	AppendSet(ctx context.Context, repo models.RepoID, set SetName, items []json.RawMessage) error
	ReplaceSet(ctx context.Context, repo models.RepoID, set SetName, items []json.RawMessage) error

	ReadCheckpoint(ctx context.Context, repo models.RepoID, name string) (string, bool, error)
	WriteCheckpoint(ctx context.Context, repo models.RepoID, name, value string) error
	DeleteCheckpoint(ctx context.Context, repo models.RepoID, name string) error

	Close() error
}

// Open creates the backend selected by the storage configuration
func Open(ctx context.Context, cfg *config.StorageConfig, log logger.Logger) (Store, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithFields(map[string]interface{}{"component": "storage", "backend": cfg.Backend})

	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.OutputDir, cfg.CacheDir, log)
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath, log)
	case "redis":
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPrefix, log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
