package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"

	apperrors "stargazers/pkg/errors"
	"stargazers/pkg/logger"
	"stargazers/pkg/models"
)

// ReadItems reads and decodes a set. A malformed set is returned as found
// with an ErrMalformedCache error so callers can decide to treat it as empty.
func ReadItems[T any](ctx context.Context, s Store, repo models.RepoID, set SetName) ([]T, bool, error) {
	raw, found, err := s.ReadSet(ctx, repo, set)
	if err != nil || !found {
		return nil, found, err
	}

	items := make([]T, 0, len(raw))
	for i, r := range raw {
		var item T
		if err := sonic.Unmarshal(r, &item); err != nil {
			return nil, true, apperrors.MalformedCache(err, "%s item %d of %s", set, i, repo)
		}
		items = append(items, item)
	}
	return items, true, nil
}

// ReadItemsOrReset reads a set like ReadItems, but a malformed set is
// logged and overwritten with an empty one. reset reports whether that
// happened so the caller can rewind its checkpoint.
func ReadItemsOrReset[T any](ctx context.Context, s Store, repo models.RepoID, set SetName, log logger.Logger) (items []T, found, reset bool, err error) {
	items, found, err = ReadItems[T](ctx, s, repo, set)
	if err == nil {
		return items, found, false, nil
	}
	if !apperrors.IsRecoverable(err) {
		return nil, found, false, err
	}

	log.WithError(err).WarnWithFields("Malformed set reset to empty", map[string]interface{}{
		"repo": repo.String(),
		"set":  string(set),
	})
	if err := s.ReplaceSet(ctx, repo, set, nil); err != nil {
		return nil, true, false, fmt.Errorf("failed to reset malformed %s: %w", set, err)
	}
	return []T{}, true, true, nil
}

// AppendItems encodes and appends items to a set. An existing set whose
// items do not decode as T is treated as empty and overwritten.
func AppendItems[T any](ctx context.Context, s Store, repo models.RepoID, set SetName, items []T) error {
	raw, err := encodeItems(items)
	if err != nil {
		return err
	}

	if _, _, err := ReadItems[T](ctx, s, repo, set); err != nil {
		if !apperrors.IsRecoverable(err) {
			return err
		}
		return s.ReplaceSet(ctx, repo, set, raw)
	}
	return s.AppendSet(ctx, repo, set, raw)
}

// ReplaceItems encodes items and overwrites a set
func ReplaceItems[T any](ctx context.Context, s Store, repo models.RepoID, set SetName, items []T) error {
	raw, err := encodeItems(items)
	if err != nil {
		return err
	}
	return s.ReplaceSet(ctx, repo, set, raw)
}

func encodeItems[T any](items []T) ([]json.RawMessage, error) {
	raw := make([]json.RawMessage, len(items))
	for i, item := range items {
		b, err := sonic.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("failed to encode item %d: %w", i, err)
		}
		raw[i] = b
	}
	return raw, nil
}

// validItems reports whether every stored item is well-formed JSON
func validItems(items []json.RawMessage) bool {
	for _, item := range items {
		if !sonic.Valid(item) {
			return false
		}
	}
	return true
}
