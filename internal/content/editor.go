package content

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNoItem is returned when an edit is attempted with no item selected.
	ErrNoItem = errors.New("no item selected")
	// ErrEmptyList is returned by operations that need a current item on an empty list.
	ErrEmptyList = errors.New("item list is empty")
)

// EditRecord is one accepted edit of the working snapshot.
type EditRecord struct {
	Field Field     `json:"field"`
	Old   string    `json:"old"`
	New   string    `json:"new"`
	At    time.Time `json:"at"`
}

// Editor keeps the Original and Working snapshots of the selected item.
// The zero value is an editor with nothing selected.
type Editor struct {
	ItemID   int64        `json:"item_id"`
	Rules    Rules        `json:"rules"`
	Original *Snapshot    `json:"original,omitempty"`
	Working  *Snapshot    `json:"working,omitempty"`
	History  []EditRecord `json:"history,omitempty"`

	now func() time.Time
}

// Begin selects item. Switching to another item replaces Original and drops
// Working and the history; Working is cloned from Original if absent.
func (e *Editor) Begin(item Item) {
	if e.Original == nil || e.ItemID != item.ID {
		o := item.Snapshot()
		e.ItemID = item.ID
		e.Original = &o
		e.Working = nil
		e.History = nil
	}
	if e.Rules == (Rules{}) {
		e.Rules = RulesFor(item.Kind)
	}
	if e.Working == nil {
		w := e.Original.Clone()
		e.Working = &w
	}
}

// Discard drops the working snapshot. The next Begin starts from Original.
func (e *Editor) Discard() {
	e.Working = nil
	e.History = nil
}

// Clear drops both snapshots.
func (e *Editor) Clear() {
	e.ItemID = 0
	e.Original = nil
	e.Working = nil
	e.History = nil
}

// Active reports whether an item is selected.
func (e *Editor) Active() bool { return e.Original != nil && e.Working != nil }

// Current returns the working snapshot, or the zero snapshot if none.
func (e *Editor) Current() Snapshot {
	if e.Working == nil {
		return Snapshot{}
	}
	return *e.Working
}

// EditField validates raw input for a text field and applies it to Working.
// Invalid input leaves Working untouched and returns a *ValidationError.
func (e *Editor) EditField(field Field, raw string) error {
	if !e.Active() {
		return ErrNoItem
	}
	switch field {
	case FieldName:
		v, err := e.Rules.ValidateName(raw)
		if err != nil {
			return err
		}
		e.record(field, e.Working.Name, v)
		e.Working.Name = v
	case FieldText:
		v, err := e.Rules.ValidateText(raw)
		if err != nil {
			return err
		}
		e.record(field, e.Working.Text, v)
		e.Working.Text = v
	case FieldTags:
		v, err := e.Rules.ValidateTags(raw)
		if err != nil {
			return err
		}
		e.record(field, strings.Join(e.Working.Tags, ", "), strings.Join(v, ", "))
		e.Working.Tags = v
	default:
		return fmt.Errorf("field %q is not a text field", field)
	}
	return nil
}

// ReplaceText sets name, text and tags at once, for regenerated content.
// It bypasses input validation since the values come from the backend.
func (e *Editor) ReplaceText(g Generated) error {
	if !e.Active() {
		return ErrNoItem
	}
	if g.Name != "" {
		e.record(FieldName, e.Working.Name, g.Name)
		e.Working.Name = g.Name
	}
	e.record(FieldText, e.Working.Text, g.Text)
	e.Working.Text = g.Text
	if g.Tags != nil {
		e.record(FieldTags, strings.Join(e.Working.Tags, ", "), strings.Join(g.Tags, ", "))
		e.Working.Tags = append([]string(nil), g.Tags...)
	}
	return nil
}

// SetImage replaces the working image reference.
func (e *Editor) SetImage(m Media) error {
	if !e.Active() {
		return ErrNoItem
	}
	e.record(FieldImage, e.Working.Media.String(), m.String())
	e.Working.Media = m
	return nil
}

// ClearImage removes the working image.
func (e *Editor) ClearImage() error {
	return e.SetImage(NoMedia())
}

// SetSettings replaces the working publish settings.
func (e *Editor) SetSettings(s PublishSettings) error {
	if !e.Active() {
		return ErrNoItem
	}
	e.Working.Settings = s
	return nil
}

// HasChanges reports whether Working differs from Original.
func (e *Editor) HasChanges(opts CompareOptions) bool {
	if !e.Active() {
		return false
	}
	return !Diff(*e.Original, *e.Working, opts).Empty()
}

// Diff returns the pending change, or an empty change if nothing is selected.
func (e *Editor) Diff(opts CompareOptions) Change {
	if !e.Active() {
		return Change{}
	}
	return Diff(*e.Original, *e.Working, opts)
}

// fold makes Working the new Original after a successful commit.
func (e *Editor) fold() {
	o := e.Working.Clone()
	w := o.Clone()
	e.Original = &o
	e.Working = &w
	e.History = nil
}

func (e *Editor) record(field Field, old, new string) {
	if old == new {
		return
	}
	now := time.Now
	if e.now != nil {
		now = e.now
	}
	e.History = append(e.History, EditRecord{Field: field, Old: old, New: new, At: now()})
}
