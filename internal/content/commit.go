package content

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// Action is a terminal action that takes an item out of its browser list.
type Action string

const (
	ActionApprove          Action = "approve"
	ActionReject           Action = "reject"
	ActionSendToModeration Action = "send_to_moderation"
	ActionPublish          Action = "publish"
	ActionDelete           Action = "delete"
)

// Transition is a status change request for one item.
type Transition struct {
	Action  Action
	ActorID int64
	Comment string // required for ActionReject
}

// Store persists item edits and status transitions.
type Store interface {
	ChangeItem(ctx context.Context, ref ItemRef, ch Change) error
	DeleteItemImage(ctx context.Context, ref ItemRef) error
	TransitionItem(ctx context.Context, ref ItemRef, t Transition) error
}

// MediaFetcher downloads an image uploaded to Telegram.
type MediaFetcher interface {
	FetchMedia(ctx context.Context, fileID string) (File, error)
}

// CommitResult describes what a commit did.
type CommitResult struct {
	Saved   bool
	Ref     ItemRef
	Change  Change
	History []EditRecord
}

// Committer applies the working snapshot of a workspace to the backend.
type Committer struct {
	store Store
	media MediaFetcher
}

func NewCommitter(store Store, media MediaFetcher) *Committer {
	return &Committer{store: store, media: media}
}

// Commit saves the pending change of the current item. Without changes it
// does nothing and returns Saved=false. Otherwise it issues at most one
// image deletion followed by exactly one change call, then folds Working
// into Original. A successful image deletion is reflected in Original
// right away, so a failed change call is retried without deleting again.
func (c *Committer) Commit(ctx context.Context, w *Workspace) (CommitResult, error) {
	it, ok := w.Browser.Current()
	if !ok {
		return CommitResult{}, ErrEmptyList
	}
	res := CommitResult{Ref: it.Ref()}
	if !w.Editor.Active() || !w.HasChanges() {
		return res, nil
	}
	ch := w.Editor.Diff(w.Options.Compare)
	if ch.Image == ImageDelete {
		if err := c.store.DeleteItemImage(ctx, res.Ref); err != nil {
			return res, fmt.Errorf("failed to delete image of %s %d: %w", res.Ref.Kind, res.Ref.ID, err)
		}
		w.Editor.Original.Media = NoMedia()
		w.Browser.replaceCurrent(*w.Editor.Original)
	}
	if err := c.change(ctx, res.Ref, ch); err != nil {
		return res, err
	}
	res.Saved = true
	res.Change = ch
	res.History = w.Editor.History
	w.Editor.fold()
	w.Browser.replaceCurrent(*w.Editor.Original)
	return res, nil
}

// CommitAndTransition commits pending edits (except for deletion), runs the
// transition and removes the item from the list. When the transition fails
// the item stays selected; with RollbackOnTransitionFailure set the text
// part of the commit is reverted on the backend and in the Original
// snapshot. Image changes are not reverted: the previous image is gone from
// the backend once the commit deleted or replaced it.
func (c *Committer) CommitAndTransition(ctx context.Context, w *Workspace, t Transition) (CommitResult, error) {
	it, ok := w.Browser.Current()
	if !ok {
		return CommitResult{}, ErrEmptyList
	}
	ref := it.Ref()
	res := CommitResult{Ref: ref}

	var before Snapshot
	if w.Editor.Original != nil {
		before = w.Editor.Original.Clone()
	}
	if t.Action != ActionDelete {
		var err error
		res, err = c.Commit(ctx, w)
		if err != nil {
			return res, err
		}
	}

	if err := c.store.TransitionItem(ctx, ref, t); err != nil {
		err = fmt.Errorf("failed to %s %s %d: %w", t.Action, ref.Kind, ref.ID, err)
		if res.Saved && w.Options.RollbackOnTransitionFailure {
			if rbErr := c.rollback(ctx, w, ref, before); rbErr != nil {
				return res, errors.Join(err, rbErr)
			}
		}
		return res, err
	}
	w.RemoveCurrent()
	return res, nil
}

func (c *Committer) rollback(ctx context.Context, w *Workspace, ref ItemRef, before Snapshot) error {
	committed := w.Editor.Original.Media
	if !before.Media.Equal(committed) {
		log.Printf("[Committer] Image of %s %d cannot be rolled back, keeping %s", ref.Kind, ref.ID, committed)
	}
	before.Media = committed

	inverse := Diff(*w.Editor.Original, before, w.Options.Compare)
	if !inverse.Empty() {
		if err := c.change(ctx, ref, inverse); err != nil {
			return fmt.Errorf("failed to roll back %s %d: %w", ref.Kind, ref.ID, err)
		}
	}
	w.Editor.Original = &before
	w.Browser.replaceCurrent(before)
	return nil
}

// change sends one change call, downloading an uploaded image first.
func (c *Committer) change(ctx context.Context, ref ItemRef, ch Change) error {
	if fileID := ch.Media.FileID(); fileID != "" && (ch.Image == ImageAttach || ch.Image == ImageReplace) {
		if c.media == nil {
			return fmt.Errorf("no media fetcher configured for uploaded image %s", fileID)
		}
		f, err := c.media.FetchMedia(ctx, fileID)
		if err != nil {
			return fmt.Errorf("failed to download uploaded image: %w", err)
		}
		ch.ImageFile = &f
	}
	if err := c.store.ChangeItem(ctx, ref, ch); err != nil {
		return fmt.Errorf("failed to change %s %d: %w", ref.Kind, ref.ID, err)
	}
	return nil
}
