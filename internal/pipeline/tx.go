// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package pipeline drives one ingestion cycle: fetch, reconcile, and the
cross-store apply with compensation.

The relational store and the document store share no native transaction
boundary. The [Manager] bridges that gap with a compensation stack: before
every write step it records enough prior state to reverse the step, and on
any downstream failure it replays the recorded operations in LIFO order
across both stores. A cycle as a whole either fully applies or is
compensated back to its pre-cycle observable state, modulo the best-effort
limits documented on [Manager.Rollback].
*/
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/taibuivan/torikomi/internal/catalog"
	"github.com/taibuivan/torikomi/internal/platform/ctxutil"
)

// # Compensation Stack

// compensation is one reversible write step. Entries are pushed in write
// order and reverted in reverse.
type compensation interface {
	revert(ctx context.Context, session catalog.Session, images catalog.ImageStore) error
}

// mangaOp reverses a manga write step: rows inserted by the step are
// deleted, rows that existed before are restored to their recorded values.
type mangaOp struct {
	prior    []catalog.Manga
	inserted []string
}

func (op mangaOp) revert(ctx context.Context, session catalog.Session, _ catalog.ImageStore) error {
	if err := session.Mangas().Delete(ctx, op.inserted); err != nil {
		return err
	}
	// Guard against an id recorded in both buckets being deleted and then
	// restored, or restored and then deleted.
	restore := priorNotInserted(op.prior, op.inserted, func(m catalog.Manga) string { return m.ID })
	return session.Mangas().Restore(ctx, restore)
}

// chapterOp reverses a chapter write step. Prior rows are restored first:
// restoration is keyed by slot, so a slot whose row was replaced in place
// reverts to its old identity before the inserted-id delete runs, and the
// delete then only removes genuinely new rows.
type chapterOp struct {
	prior    []catalog.Chapter
	inserted []string
}

func (op chapterOp) revert(ctx context.Context, session catalog.Session, _ catalog.ImageStore) error {
	restore := priorNotInserted(op.prior, op.inserted, func(c catalog.Chapter) string { return c.ID })
	if err := session.Chapters().Restore(ctx, restore); err != nil {
		return err
	}
	return session.Chapters().Delete(ctx, op.inserted)
}

// imageOp reverses a document write step: newly inserted documents are
// deleted, deleted documents are re-inserted whole (documents are only ever
// whole-replaced, never updated in place).
type imageOp struct {
	prior    []catalog.ImageSet
	inserted []string
}

func (op imageOp) revert(ctx context.Context, _ catalog.Session, images catalog.ImageStore) error {
	if err := images.Delete(ctx, op.inserted); err != nil {
		return err
	}
	return images.BulkInsert(ctx, op.prior)
}

// priorNotInserted drops prior records whose id also appears in the inserted
// bucket.
func priorNotInserted[T any](prior []T, inserted []string, id func(T) string) []T {
	if len(inserted) == 0 {
		return prior
	}
	insertedSet := make(map[string]bool, len(inserted))
	for _, v := range inserted {
		insertedSet[v] = true
	}
	var kept []T
	for _, record := range prior {
		if !insertedSet[id(record)] {
			kept = append(kept, record)
		}
	}
	return kept
}

// # Manager

// managerState tracks the cycle lifecycle. Terminal states discard the
// compensation stack.
type managerState int

const (
	stateIdle managerState = iota
	stateBegan
	stateCommitted
	stateRolledBack
)

// ErrManagerState is returned when an operation is invoked outside its legal
// lifecycle state, e.g. a second Begin within one cycle.
var ErrManagerState = errors.New("pipeline: operation not valid in current manager state")

// Manager owns the relational session, the document store handle, and the
// compensation stack for exactly one ingestion cycle. It must not be shared
// across concurrent cycles.
type Manager struct {
	factory catalog.SessionFactory
	images  catalog.ImageStore

	state       managerState
	session     catalog.Session
	sessionDead bool
	stack       []compensation
}

// NewManager constructs a manager for one cycle.
func NewManager(factory catalog.SessionFactory, images catalog.ImageStore) *Manager {
	return &Manager{factory: factory, images: images}
}

/*
Begin opens the relational session and clears the compensation stack.

Description: Callable exactly once per cycle; a second call reports
ErrManagerState rather than silently resetting recorded compensation.
*/
func (manager *Manager) Begin(ctx context.Context) error {
	if manager.state != stateIdle {
		return fmt.Errorf("%w: begin after begin", ErrManagerState)
	}

	session, err := manager.factory.Begin(ctx)
	if err != nil {
		return err
	}

	manager.session = session
	manager.stack = nil
	manager.state = stateBegan
	return nil
}

// Session exposes the cycle's relational session to the writer. Valid only
// between Begin and Commit/Rollback.
func (manager *Manager) Session() catalog.Session {
	return manager.session
}

// Images exposes the cycle's document store handle to the writer.
func (manager *Manager) Images() catalog.ImageStore {
	return manager.images
}

/*
RegisterMangaWrites records compensation for an upcoming manga write step.

Description: Must be called before the write is issued. The current rows for
every touched id are snapshotted; ids with no current row are recorded as
new, which is what distinguishes delete-on-rollback from restore.

Parameters:
  - ctx: context.Context
  - touchedIDs: Every manga id the step will insert or update.
*/
func (manager *Manager) RegisterMangaWrites(ctx context.Context, touchedIDs []string) error {
	if manager.state != stateBegan {
		return fmt.Errorf("%w: register before begin", ErrManagerState)
	}

	prior, err := manager.session.Mangas().Snapshot(ctx, touchedIDs)
	if err != nil {
		return err
	}

	manager.push(mangaOp{
		prior:    prior,
		inserted: missingIDs(touchedIDs, prior, func(m catalog.Manga) string { return m.ID }),
	})
	return nil
}

/*
RegisterChapterWrites records compensation for an upcoming chapter write
step, in the same pre-write snapshot discipline as manga.

Parameters:
  - ctx: context.Context
  - touchedIDs: Ids the step will insert plus the old ids of rows it will
    replace in place.
*/
func (manager *Manager) RegisterChapterWrites(ctx context.Context, touchedIDs []string) error {
	if manager.state != stateBegan {
		return fmt.Errorf("%w: register before begin", ErrManagerState)
	}

	prior, err := manager.session.Chapters().Snapshot(ctx, touchedIDs)
	if err != nil {
		return err
	}

	manager.push(chapterOp{
		prior:    prior,
		inserted: missingIDs(touchedIDs, prior, func(c catalog.Chapter) string { return c.ID }),
	})
	return nil
}

/*
RegisterImageInserts records compensation for an upcoming document insert
step: every id that gains a document is deleted again on rollback.
*/
func (manager *Manager) RegisterImageInserts(ctx context.Context, chapterIDs []string) error {
	if manager.state != stateBegan {
		return fmt.Errorf("%w: register before begin", ErrManagerState)
	}

	manager.push(imageOp{inserted: chapterIDs})
	return nil
}

/*
RegisterImageDeletes records compensation for an upcoming document delete
step: the documents about to be removed are snapshotted whole so rollback
can re-insert them.
*/
func (manager *Manager) RegisterImageDeletes(ctx context.Context, chapterIDs []string) error {
	if manager.state != stateBegan {
		return fmt.Errorf("%w: register before begin", ErrManagerState)
	}

	prior, err := manager.images.Snapshot(ctx, chapterIDs)
	if err != nil {
		return err
	}

	manager.push(imageOp{prior: prior})
	return nil
}

/*
Commit makes the cycle's relational writes durable and discards the
compensation stack.

Description: Document writes already took effect step by step and are not
re-committed; commit only releases their compensation records. A relational
commit failure does not leave the system undefined: it triggers an automatic
full rollback on a fresh session before the failure is surfaced.
*/
func (manager *Manager) Commit(ctx context.Context) error {
	if manager.state != stateBegan {
		return fmt.Errorf("%w: commit before begin", ErrManagerState)
	}

	if err := manager.session.Commit(ctx); err != nil {
		manager.sessionDead = true
		if rbErr := manager.Rollback(ctx); rbErr != nil {
			return errors.Join(
				fmt.Errorf("pipeline: commit failed: %w", err),
				fmt.Errorf("pipeline: rollback after failed commit: %w", rbErr),
			)
		}
		return fmt.Errorf("pipeline: commit failed, cycle rolled back: %w", err)
	}

	manager.stack = nil
	manager.state = stateCommitted
	return nil
}

/*
Rollback reverses every recorded operation in LIFO order across both stores.

Description: Best-effort: one entry's failure is logged and the loop
continues, because abandoning the rest of the stack would strand more state
than the failed entry itself. After the stack drains, the relational session
is committed to persist the reversal. If the original session died (a failed
commit), a fresh session carries the relational reversal; if even the
reversal commit fails the session is abandoned with an explicit rollback and
the error surfaces. In that last case, a residual document-store discrepancy
can remain; that limitation is logged rather than hidden.

Returns:
  - error: The reversal-commit failure, or nil once the reversal persisted.
*/
func (manager *Manager) Rollback(ctx context.Context) error {
	if manager.state != stateBegan {
		return fmt.Errorf("%w: rollback before begin", ErrManagerState)
	}
	logger := ctxutil.GetLogger(ctx)

	session, err := manager.rollbackSession(ctx)
	if err != nil {
		// Without a relational session only document reversals can proceed.
		logger.Error("rollback_session_unavailable", slog.String("error", err.Error()))
	}

	failures := 0
	for i := len(manager.stack) - 1; i >= 0; i-- {
		entry := manager.stack[i]

		if _, isImage := entry.(imageOp); !isImage && session == nil {
			failures++
			continue
		}
		if err := entry.revert(ctx, session, manager.images); err != nil {
			failures++
			logger.Error("rollback_step_failed",
				slog.Int("stack_index", i),
				slog.String("error", err.Error()))
		}
	}

	manager.stack = nil
	manager.state = stateRolledBack

	if session != nil {
		if err := session.Commit(ctx); err != nil {
			_ = session.Rollback(ctx)
			logger.Error("rollback_commit_failed", slog.String("error", err.Error()))
			return fmt.Errorf("pipeline: failed to persist reversal: %w", err)
		}
	}

	if failures > 0 {
		logger.Warn("rollback_partial", slog.Int("failed_steps", failures))
	}
	return nil
}

// rollbackSession returns the session reversal should run on, replacing a
// dead one with a fresh session.
func (manager *Manager) rollbackSession(ctx context.Context) (catalog.Session, error) {
	if !manager.sessionDead {
		return manager.session, nil
	}
	_ = manager.session.Rollback(ctx)
	return manager.factory.Begin(ctx)
}

func (manager *Manager) push(entry compensation) {
	manager.stack = append(manager.stack, entry)
}

// missingIDs returns the touched ids with no snapshotted row.
func missingIDs[T any](touched []string, prior []T, id func(T) string) []string {
	priorSet := make(map[string]bool, len(prior))
	for _, record := range prior {
		priorSet[id(record)] = true
	}
	var missing []string
	for _, v := range touched {
		if !priorSet[v] {
			missing = append(missing, v)
		}
	}
	return missing
}
