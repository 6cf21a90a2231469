package content

import (
	"slices"
)

// CompareOptions controls how snapshots are compared.
type CompareOptions struct {
	// TagOrderSensitive compares tags as ordered lists. When false they are
	// compared as sets, so reordering or repeating a tag is not a change.
	TagOrderSensitive bool
}

// ImageAction is the resolved image delta between two snapshots.
type ImageAction uint8

const (
	ImageKeep ImageAction = iota
	ImageAttach
	ImageReplace
	ImageDelete
)

func (a ImageAction) String() string {
	switch a {
	case ImageAttach:
		return "attach"
	case ImageReplace:
		return "replace"
	case ImageDelete:
		return "delete"
	default:
		return "keep"
	}
}

// ResolveImageDelta maps (before, after) to exactly one image action.
func ResolveImageDelta(before, after Media) ImageAction {
	switch {
	case !before.Present() && !after.Present():
		return ImageKeep
	case !before.Present():
		return ImageAttach
	case !after.Present():
		return ImageDelete
	case before.Equal(after):
		return ImageKeep
	default:
		return ImageReplace
	}
}

// TagsEqual compares two tag lists according to opts.
func TagsEqual(a, b []string, opts CompareOptions) bool {
	if opts.TagOrderSensitive {
		return slices.Equal(a, b)
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	seen := make(map[string]struct{}, len(b))
	for _, t := range b {
		if _, ok := set[t]; !ok {
			return false
		}
		seen[t] = struct{}{}
	}
	return len(seen) == len(set)
}

// Change is the minimal update payload for one item. Nil pointers and a
// nil Tags slice with TagsChanged false mean "leave unchanged".
type Change struct {
	Name        *string
	Text        *string
	Tags        []string
	TagsChanged bool
	Settings    *PublishSettings
	Image       ImageAction
	Media       Media // the new image for attach/replace
	ImageFile   *File // bytes of an uploaded image, filled by the committer
}

// Empty reports whether the change carries nothing.
func (c Change) Empty() bool {
	return c.Name == nil && c.Text == nil && !c.TagsChanged && c.Settings == nil && c.Image == ImageKeep
}

// Fields lists the names of the fields the change touches, for logging.
func (c Change) Fields() []Field {
	var out []Field
	if c.Name != nil {
		out = append(out, FieldName)
	}
	if c.Text != nil {
		out = append(out, FieldText)
	}
	if c.TagsChanged {
		out = append(out, FieldTags)
	}
	if c.Settings != nil {
		out = append(out, FieldSettings)
	}
	if c.Image != ImageKeep {
		out = append(out, FieldImage)
	}
	return out
}

// Diff computes the change that turns original into working.
func Diff(original, working Snapshot, opts CompareOptions) Change {
	var ch Change
	if original.Name != working.Name {
		v := working.Name
		ch.Name = &v
	}
	if original.Text != working.Text {
		v := working.Text
		ch.Text = &v
	}
	if !TagsEqual(original.Tags, working.Tags, opts) {
		ch.Tags = slices.Clone(working.Tags)
		if ch.Tags == nil {
			ch.Tags = []string{}
		}
		ch.TagsChanged = true
	}
	if original.Settings != working.Settings {
		v := working.Settings
		ch.Settings = &v
	}
	ch.Image = ResolveImageDelta(original.Media, working.Media)
	if ch.Image == ImageAttach || ch.Image == ImageReplace {
		ch.Media = working.Media
	}
	return ch
}
