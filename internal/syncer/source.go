package syncer

import (
	"context"
	"encoding/json"
	"fmt"
)

// Doc is one versioned document as exchanged with the remote store.
type Doc struct {
	ID      string
	Version int64
	Payload []byte
}

// Source is a local collection taking part in the sync.
type Source interface {
	Collection() string
	Pending(ctx context.Context, userID uint64) ([]Doc, error)
	MarkSynced(ctx context.Context, userID uint64, id string, version int64) error
	LocalVersions(ctx context.Context, userID uint64) (map[string]int64, error)
	ApplyRemote(ctx context.Context, userID uint64, d Doc) error
}

// Repo is the shape of the sync methods on the repositories.
type Repo[T any] interface {
	PendingSync(ctx context.Context, userID uint64) ([]T, error)
	MarkSynced(ctx context.Context, userID uint64, id string, version int64) error
	Versions(ctx context.Context, userID uint64) (map[string]int64, error)
	ApplyRemote(ctx context.Context, userID uint64, v T) error
}

// Bind turns a repository of T into a Source. key extracts the id and the
// version of a row; rows travel as JSON.
func Bind[T any](collection string, repo Repo[T], key func(T) (string, int64)) Source {
	return &bound[T]{collection: collection, repo: repo, key: key}
}

type bound[T any] struct {
	collection string
	repo       Repo[T]
	key        func(T) (string, int64)
}

func (b *bound[T]) Collection() string { return b.collection }

func (b *bound[T]) Pending(ctx context.Context, userID uint64) ([]Doc, error) {
	rows, err := b.repo.PendingSync(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Doc, 0, len(rows))
	for _, row := range rows {
		id, version := b.key(row)
		payload, err := json.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("encode %s/%s: %w", b.collection, id, err)
		}
		out = append(out, Doc{ID: id, Version: version, Payload: payload})
	}
	return out, nil
}

func (b *bound[T]) MarkSynced(ctx context.Context, userID uint64, id string, version int64) error {
	return b.repo.MarkSynced(ctx, userID, id, version)
}

func (b *bound[T]) LocalVersions(ctx context.Context, userID uint64) (map[string]int64, error) {
	return b.repo.Versions(ctx, userID)
}

func (b *bound[T]) ApplyRemote(ctx context.Context, userID uint64, d Doc) error {
	var row T
	if err := json.Unmarshal(d.Payload, &row); err != nil {
		return fmt.Errorf("decode %s/%s: %w", b.collection, d.ID, err)
	}
	if id, version := b.key(row); id != d.ID || version != d.Version {
		return fmt.Errorf("decode %s/%s: payload is %s v%d, index says v%d", b.collection, d.ID, id, version, d.Version)
	}
	return b.repo.ApplyRemote(ctx, userID, row)
}
