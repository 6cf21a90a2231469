package content

import (
	"context"
	"fmt"
)

// Direction is a navigation direction in the browser list.
type Direction int

const (
	Prev Direction = -1
	Next Direction = 1
)

// Browser is an ordered list of items with a current position.
// While the list is non-empty, 0 <= Index < len(Items).
type Browser struct {
	Items []Item `json:"items"`
	Index int    `json:"index"`
}

func (b *Browser) Len() int    { return len(b.Items) }
func (b *Browser) Empty() bool { return len(b.Items) == 0 }

// Current returns the item at the current index.
func (b *Browser) Current() (Item, bool) {
	if b.Empty() {
		return Item{}, false
	}
	return b.Items[b.Index], true
}

// Seed replaces the list. The index is kept when still valid, else reset to 0.
func (b *Browser) Seed(items []Item) {
	b.Items = items
	if b.Index < 0 || b.Index >= len(items) {
		b.Index = 0
	}
}

// Navigate moves one step in dir. At a boundary it returns the unchanged
// index and false.
func (b *Browser) Navigate(dir Direction) (int, bool) {
	target := b.Index + int(dir)
	if b.Empty() || target < 0 || target >= len(b.Items) {
		return b.Index, false
	}
	b.Index = target
	return b.Index, true
}

// RemoveCurrent drops the current item and clamps the index.
// It reports whether the list still has items.
func (b *Browser) RemoveCurrent() bool {
	if b.Empty() {
		return false
	}
	b.Items = append(b.Items[:b.Index:b.Index], b.Items[b.Index+1:]...)
	if len(b.Items) == 0 {
		b.Index = 0
		return false
	}
	if b.Index >= len(b.Items) {
		b.Index = len(b.Items) - 1
	}
	return true
}

// replaceCurrent stores the committed snapshot back into the list so that
// navigating away and back shows the saved values.
func (b *Browser) replaceCurrent(s Snapshot) {
	if b.Empty() {
		return
	}
	it := &b.Items[b.Index]
	it.Name = s.Name
	it.Text = s.Text
	it.Tags = s.Clone().Tags
	it.Media = s.Media
	it.Settings = s.Settings
}

// Source lists items of a kind for an organization.
type Source interface {
	ListItems(ctx context.Context, kind Kind, organizationID int64) ([]Item, error)
}

// Workspace ties a Browser to an Editor: the editor always follows the
// browser's current item.
type Workspace struct {
	Kind    Kind    `json:"kind"`
	Filter  Status  `json:"filter"`
	Browser Browser `json:"browser"`
	Editor  Editor  `json:"editor"`
	Options Options `json:"options"`
}

// Options are the per-workspace behaviour switches.
type Options struct {
	Compare                     CompareOptions `json:"compare"`
	RollbackOnTransitionFailure bool           `json:"rollback_on_transition_failure"`
}

// NewWorkspace creates an empty workspace for items of kind with status filter.
func NewWorkspace(kind Kind, filter Status, opts Options) *Workspace {
	return &Workspace{Kind: kind, Filter: filter, Options: opts, Editor: Editor{Rules: RulesFor(kind)}}
}

// Load fetches the organization's items, keeps those matching the filter and
// selects the current one. It returns (false, 0) when there are none.
func (w *Workspace) Load(ctx context.Context, src Source, organizationID int64) (bool, int, error) {
	all, err := src.ListItems(ctx, w.Kind, organizationID)
	if err != nil {
		return false, 0, fmt.Errorf("failed to list %s items for organization %d: %w", w.Kind, organizationID, err)
	}
	items := make([]Item, 0, len(all))
	for _, it := range all {
		if w.Filter == "" || it.Status == w.Filter {
			items = append(items, it)
		}
	}
	w.Browser.Seed(items)
	if len(items) == 0 {
		w.Editor.Clear()
		return false, 0, nil
	}
	w.begin()
	return true, len(items), nil
}

// Navigate moves in dir. A successful move discards the working snapshot
// and starts editing the new current item. At a boundary nothing changes.
func (w *Workspace) Navigate(dir Direction) (int, bool) {
	idx, moved := w.Browser.Navigate(dir)
	if !moved {
		return idx, false
	}
	w.Editor.Clear()
	w.begin()
	return idx, true
}

// RemoveCurrent drops the current item. When the list becomes empty both
// snapshots are cleared, otherwise the editor moves to the new current item.
func (w *Workspace) RemoveCurrent() bool {
	left := w.Browser.RemoveCurrent()
	w.Editor.Clear()
	if left {
		w.begin()
	}
	return left
}

// Current returns the selected item with the working snapshot applied.
func (w *Workspace) Current() (Item, bool) {
	it, ok := w.Browser.Current()
	if !ok {
		return Item{}, false
	}
	if w.Editor.Active() {
		s := w.Editor.Current()
		it.Name, it.Text, it.Tags, it.Media, it.Settings = s.Name, s.Text, s.Tags, s.Media, s.Settings
	}
	return it, true
}

// HasChanges reports whether the current item has unsaved edits.
func (w *Workspace) HasChanges() bool {
	return w.Editor.HasChanges(w.Options.Compare)
}

func (w *Workspace) begin() {
	if it, ok := w.Browser.Current(); ok {
		if w.Editor.Rules == (Rules{}) {
			w.Editor.Rules = RulesFor(w.Kind)
		}
		w.Editor.Begin(it)
	}
}
