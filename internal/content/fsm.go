package content

import (
	"errors"
	"fmt"
)

// State is a conversation state of a workflow.
type State uint8

const (
	StateIdle State = iota
	StateViewing
	StateEditingName
	StateEditingText
	StateEditingTags
	StateEditingImage
	StateTerminal
	StateEmpty
	StateRejectComment
	StateRegeneratePrompt
	StateImagePrompt
	StateSelectNetworks
	StateChooseCategory
	StateGenerateInput
	StateGeneratePreview
	StateAwaitVideoLink

	stateCount
)

var stateNames = [stateCount]string{
	"idle", "viewing", "editing_name", "editing_text", "editing_tags", "editing_image",
	"terminal", "empty", "reject_comment", "regenerate_prompt", "image_prompt",
	"select_networks", "choose_category", "generate_input", "generate_preview", "await_video_link",
}

func (s State) String() string {
	if s < stateCount {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Editing reports whether s waits for a field value.
func (s State) Editing() bool {
	return s >= StateEditingName && s <= StateEditingImage
}

// Event drives a state change.
type Event uint8

const (
	EventLoaded Event = iota
	EventEmptied
	EventEditName
	EventEditText
	EventEditTags
	EventEditImage
	EventFieldSaved
	EventCancel
	EventTerminal
	EventReject
	EventRegenerate
	EventImagePrompt
	EventSelectNetworks
	EventChooseCategory
	EventInputAccepted
	EventGenerated
	EventAskVideoLink
	EventClose

	eventCount
)

var eventNames = [eventCount]string{
	"loaded", "emptied", "edit_name", "edit_text", "edit_tags", "edit_image", "field_saved",
	"cancel", "terminal", "reject", "regenerate", "image_prompt", "select_networks",
	"choose_category", "input_accepted", "generated", "ask_video_link", "close",
}

func (e Event) String() string {
	if e < eventCount {
		return eventNames[e]
	}
	return fmt.Sprintf("Event(%d)", uint8(e))
}

// EditEvent returns the event that starts editing field.
func EditEvent(f Field) (Event, bool) {
	switch f {
	case FieldName:
		return EventEditName, true
	case FieldText:
		return EventEditText, true
	case FieldTags:
		return EventEditTags, true
	case FieldImage:
		return EventEditImage, true
	}
	return 0, false
}

// EditedField returns the field a state is editing.
func EditedField(s State) (Field, bool) {
	switch s {
	case StateEditingName:
		return FieldName, true
	case StateEditingText:
		return FieldText, true
	case StateEditingTags:
		return FieldTags, true
	case StateEditingImage:
		return FieldImage, true
	}
	return "", false
}

// Rule is one row of a transition table.
type Rule struct {
	From State
	On   Event
	To   State
}

// ErrInvalidTransition is returned by Fire for events not allowed in a state.
var ErrInvalidTransition = errors.New("invalid transition")

type ruleKey struct {
	from State
	on   Event
}

// Machine is a validated transition table.
type Machine struct {
	name  string
	table map[ruleKey]State
}

// ItemRules is the base per-item table shared by the browsing workflows.
var ItemRules = []Rule{
	{StateIdle, EventLoaded, StateViewing},
	{StateIdle, EventEmptied, StateEmpty},
	{StateViewing, EventLoaded, StateViewing},
	{StateViewing, EventEmptied, StateEmpty},
	{StateViewing, EventEditName, StateEditingName},
	{StateViewing, EventEditText, StateEditingText},
	{StateViewing, EventEditTags, StateEditingTags},
	{StateViewing, EventEditImage, StateEditingImage},
	{StateEditingName, EventFieldSaved, StateViewing},
	{StateEditingText, EventFieldSaved, StateViewing},
	{StateEditingTags, EventFieldSaved, StateViewing},
	{StateEditingImage, EventFieldSaved, StateViewing},
	{StateEditingName, EventCancel, StateViewing},
	{StateEditingText, EventCancel, StateViewing},
	{StateEditingTags, EventCancel, StateViewing},
	{StateEditingImage, EventCancel, StateViewing},
	{StateViewing, EventTerminal, StateTerminal},
	{StateTerminal, EventLoaded, StateViewing},
	{StateTerminal, EventEmptied, StateEmpty},
	{StateEmpty, EventLoaded, StateViewing},
	{StateViewing, EventClose, StateIdle},
	{StateEmpty, EventClose, StateIdle},
}

// NewMachine builds a machine from one or more rule sets. Unknown states or
// events and conflicting rows are rejected.
func NewMachine(name string, sets ...[]Rule) (*Machine, error) {
	m := &Machine{name: name, table: make(map[ruleKey]State)}
	for _, set := range sets {
		for _, r := range set {
			if r.From >= stateCount || r.To >= stateCount {
				return nil, fmt.Errorf("machine %s: unknown state in rule %v", name, r)
			}
			if r.On >= eventCount {
				return nil, fmt.Errorf("machine %s: unknown event in rule %v", name, r)
			}
			k := ruleKey{r.From, r.On}
			if to, ok := m.table[k]; ok && to != r.To {
				return nil, fmt.Errorf("machine %s: conflicting rules for %s on %s: %s and %s", name, r.From, r.On, to, r.To)
			}
			m.table[k] = r.To
		}
	}
	return m, nil
}

// MustMachine is NewMachine that panics on an invalid table.
func MustMachine(name string, sets ...[]Rule) *Machine {
	m, err := NewMachine(name, sets...)
	if err != nil {
		panic(err)
	}
	return m
}

// Fire returns the state reached from "from" on event, or ErrInvalidTransition.
func (m *Machine) Fire(from State, on Event) (State, error) {
	to, ok := m.table[ruleKey{from, on}]
	if !ok {
		return from, fmt.Errorf("%s: %s on %s: %w", m.name, on, from, ErrInvalidTransition)
	}
	return to, nil
}

// Can reports whether event is allowed in state.
func (m *Machine) Can(from State, on Event) bool {
	_, ok := m.table[ruleKey{from, on}]
	return ok
}
