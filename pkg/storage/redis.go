package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/rueidis"

	apperrors "stargazers/pkg/errors"
	"stargazers/pkg/logger"
	"stargazers/pkg/models"
)

// RedisStore keeps sets as lists and checkpoints as strings under
// <prefix>:<owner>-<repo>:. Set existence is tracked in a per-repo
// membership set so empty sets survive.
type RedisStore struct {
	client rueidis.Client
	prefix string
	owned  bool
	logger logger.Logger
}

// NewRedisStore connects to addr and verifies the connection
func NewRedisStore(ctx context.Context, addr, prefix string, log logger.Logger) (*RedisStore, error) {
	if addr == "" {
		return nil, apperrors.Configuration("redis storage requires an address")
	}
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{addr},
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	s := NewRedisStoreWithClient(client, prefix, log)
	s.owned = true
	return s, nil
}

// NewRedisStoreWithClient wraps an existing client. Close does not close it.
func NewRedisStoreWithClient(client rueidis.Client, prefix string, log logger.Logger) *RedisStore {
	if prefix == "" {
		prefix = "stargazers"
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &RedisStore{client: client, prefix: prefix, logger: log}
}

func (s *RedisStore) setKey(repo models.RepoID, set SetName) string {
	return fmt.Sprintf("%s:%s:set:%s", s.prefix, repo.Key(), set)
}

func (s *RedisStore) membersKey(repo models.RepoID) string {
	return fmt.Sprintf("%s:%s:sets", s.prefix, repo.Key())
}

func (s *RedisStore) checkpointKey(repo models.RepoID, name string) string {
	return fmt.Sprintf("%s:%s:checkpoint:%s", s.prefix, repo.Key(), name)
}

func (s *RedisStore) ReadSet(ctx context.Context, repo models.RepoID, set SetName) ([]json.RawMessage, bool, error) {
	found, err := s.client.Do(ctx, s.client.B().Sismember().Key(s.membersKey(repo)).Member(string(set)).Build()).AsBool()
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up set: %w", err)
	}
	if !found {
		return nil, false, nil
	}

	values, err := s.client.Do(ctx, s.client.B().Lrange().Key(s.setKey(repo, set)).Start(0).Stop(-1).Build()).AsStrSlice()
	if err != nil {
		return nil, true, fmt.Errorf("failed to read set items: %w", err)
	}

	items := make([]json.RawMessage, len(values))
	for i, v := range values {
		items[i] = json.RawMessage(v)
	}
	if !validItems(items) {
		return nil, true, apperrors.MalformedCache(nil, "%s set of %s", set, repo)
	}
	return items, true, nil
}

func (s *RedisStore) AppendSet(ctx context.Context, repo models.RepoID, set SetName, items []json.RawMessage) error {
	_, _, err := s.ReadSet(ctx, repo, set)
	if err != nil {
		if !apperrors.IsRecoverable(err) {
			return err
		}
		s.logger.WithError(err).WarnWithFields("Malformed set will be overwritten", map[string]interface{}{
			"repo": repo.String(),
			"set":  string(set),
		})
		return s.ReplaceSet(ctx, repo, set, items)
	}
	return s.exec(ctx, s.writeCommands(repo, set, items, false))
}

func (s *RedisStore) ReplaceSet(ctx context.Context, repo models.RepoID, set SetName, items []json.RawMessage) error {
	return s.exec(ctx, s.writeCommands(repo, set, items, true))
}

func (s *RedisStore) writeCommands(repo models.RepoID, set SetName, items []json.RawMessage, replace bool) []rueidis.Completed {
	key := s.setKey(repo, set)
	cmds := []rueidis.Completed{s.client.B().Multi().Build()}
	if replace {
		cmds = append(cmds, s.client.B().Del().Key(key).Build())
	}
	if len(items) > 0 {
		elems := make([]string, len(items))
		for i, item := range items {
			elems[i] = string(item)
		}
		cmds = append(cmds, s.client.B().Rpush().Key(key).Element(elems...).Build())
	}
	cmds = append(cmds,
		s.client.B().Sadd().Key(s.membersKey(repo)).Member(string(set)).Build(),
		s.client.B().Exec().Build(),
	)
	return cmds
}

func (s *RedisStore) exec(ctx context.Context, cmds []rueidis.Completed) error {
	for _, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("failed to write set: %w", err)
		}
	}
	return nil
}

func (s *RedisStore) ReadCheckpoint(ctx context.Context, repo models.RepoID, name string) (string, bool, error) {
	value, err := s.client.Do(ctx, s.client.B().Get().Key(s.checkpointKey(repo, name)).Build()).ToString()
	if rueidis.IsRedisNil(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	return value, true, nil
}

func (s *RedisStore) WriteCheckpoint(ctx context.Context, repo models.RepoID, name, value string) error {
	err := s.client.Do(ctx, s.client.B().Set().Key(s.checkpointKey(repo, name)).Value(value).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

func (s *RedisStore) DeleteCheckpoint(ctx context.Context, repo models.RepoID, name string) error {
	err := s.client.Do(ctx, s.client.B().Del().Key(s.checkpointKey(repo, name)).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	if s.owned {
		s.client.Close()
	}
	return nil
}
