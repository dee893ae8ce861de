// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/torikomi/internal/platform/apperr"
	"github.com/taibuivan/torikomi/internal/platform/constants"
	"github.com/taibuivan/torikomi/pkg/slice"
)

// RedisImageStore implements [ImageStore] on Redis. Documents are stored
// whole under one key per chapter and replaced atomically by SET; there is
// no partial-document update path.
type RedisImageStore struct {
	client *redis.Client
}

// NewImageStore creates a Redis-backed image document store.
func NewImageStore(client *redis.Client) *RedisImageStore {
	return &RedisImageStore{client: client}
}

// imageKey builds the document key for a chapter.
func imageKey(chapterID string) string {
	return constants.RedisPrefixImages + chapterID
}

/*
ExistingIDs reports which chapter ids already hold a stored document.

Description: Runs a single pipelined EXISTS pass so the duplicate-insert
guard costs one round-trip regardless of batch size.

Parameters:
  - context: context.Context
  - chapterIDs: Candidate chapter ids.

Returns:
  - map[string]bool: True for each id with a stored document.
  - error: Connectivity errors.
*/
func (store *RedisImageStore) ExistingIDs(context context.Context, chapterIDs []string) (map[string]bool, error) {

	existing := make(map[string]bool, len(chapterIDs))
	if len(chapterIDs) == 0 {
		return existing, nil
	}

	// Pipeline the existence checks
	pipe := store.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(chapterIDs))
	for i, id := range chapterIDs {
		cmds[i] = pipe.Exists(context, imageKey(id))
	}
	if _, err := pipe.Exec(context); err != nil {
		return nil, fmt.Errorf("redis_images_exists_failed: %w", err)
	}

	// Collect per-key results
	for i, cmd := range cmds {
		if cmd.Val() > 0 {
			existing[chapterIDs[i]] = true
		}
	}
	return existing, nil
}

/*
BulkInsert stores image documents, overwriting any that already exist.

Description: Documents are chunked and each chunk submitted as one pipelined
SET batch; chunks run on a small worker group so large cycles finish in a
handful of round-trips without flooding the server.

Parameters:
  - ctx: context.Context
  - sets: The documents to store.

Returns:
  - error: The first marshalling or pipeline failure.
*/
func (store *RedisImageStore) BulkInsert(ctx context.Context, sets []ImageSet) error {

	if len(sets) == 0 {
		return nil
	}

	// Chunked parallel pipelines
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(constants.ImageBatchWorkers)

	for _, chunk := range slice.Chunk(sets, constants.ImageBatchSize) {
		group.Go(func() error {
			pipe := store.client.Pipeline()
			for _, set := range chunk {
				payload, err := json.Marshal(set)
				if err != nil {
					return fmt.Errorf("redis_images_marshal_failed: %w", err)
				}
				pipe.Set(groupCtx, imageKey(set.ChapterID), payload, 0)
			}
			if _, err := pipe.Exec(groupCtx); err != nil {
				return fmt.Errorf("redis_images_set_failed: %w", err)
			}
			return nil
		})
	}

	return group.Wait()
}

/*
Get loads the image document for a single chapter.

Description: Read path for the API; the ingestion pipeline only ever touches
documents in bulk.

Returns:
  - *ImageSet: The stored document.
  - error: apperr.NotFound when no document exists for the chapter.
*/
func (store *RedisImageStore) Get(context context.Context, chapterID string) (*ImageSet, error) {

	payload, err := store.client.Get(context, imageKey(chapterID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.NotFound("chapter images")
		}
		return nil, fmt.Errorf("redis_images_get_failed: %w", err)
	}

	var set ImageSet
	if err := json.Unmarshal(payload, &set); err != nil {
		return nil, fmt.Errorf("redis_images_decode_failed: %w", err)
	}
	return &set, nil
}

/*
Delete removes image documents by chapter id.

Description: Absent keys are not errors; DEL simply reports zero removals.
*/
func (store *RedisImageStore) Delete(context context.Context, chapterIDs []string) error {

	if len(chapterIDs) == 0 {
		return nil
	}

	keys := slice.Map(chapterIDs, imageKey)
	if err := store.client.Del(context, keys...).Err(); err != nil {
		return fmt.Errorf("redis_images_delete_failed: %w", err)
	}
	return nil
}

/*
Snapshot loads existing documents for the given chapter ids.

Description: Absent and unparseable documents are omitted rather than
failing; a snapshot only needs to capture what can actually be restored.

Returns:
  - []ImageSet: The documents present at snapshot time.
  - error: Connectivity errors.
*/
func (store *RedisImageStore) Snapshot(context context.Context, chapterIDs []string) ([]ImageSet, error) {

	if len(chapterIDs) == 0 {
		return nil, nil
	}

	// Pipeline the reads
	pipe := store.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(chapterIDs))
	for i, id := range chapterIDs {
		cmds[i] = pipe.Get(context, imageKey(id))
	}
	if _, err := pipe.Exec(context); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis_images_snapshot_failed: %w", err)
	}

	// Decode whatever was present
	var sets []ImageSet
	for _, cmd := range cmds {
		payload, err := cmd.Bytes()
		if err != nil {
			continue
		}
		var set ImageSet
		if err := json.Unmarshal(payload, &set); err != nil {
			continue
		}
		sets = append(sets, set)
	}
	return sets, nil
}
