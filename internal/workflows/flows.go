package workflows

import (
	"kontur-content-bot/internal/backend"
	"kontur-content-bot/internal/content"
	"kontur-content-bot/internal/session"
)

// flow describes one workflow: what it browses and which actions it offers.
type flow struct {
	machine *content.Machine
	// home is the state the card returns to after an edit.
	home content.State

	// Browsing workflows only.
	kind   content.Kind
	filter content.Status

	fields      []content.Field
	regenerate  bool
	imagePrompt bool
	removeImage bool
	networks    bool
	actions     []content.Action
}

func editRules(home content.State) []content.Rule {
	var rules []content.Rule
	for _, st := range []content.State{content.StateEditingName, content.StateEditingText, content.StateEditingTags, content.StateEditingImage} {
		field, _ := content.EditedField(st)
		ev, _ := content.EditEvent(field)
		rules = append(rules,
			content.Rule{From: home, On: ev, To: st},
			content.Rule{From: st, On: content.EventFieldSaved, To: home},
			content.Rule{From: st, On: content.EventCancel, To: home},
		)
	}
	return rules
}

func promptRules(home, prompt content.State, enter content.Event) []content.Rule {
	return []content.Rule{
		{From: home, On: enter, To: prompt},
		{From: prompt, On: content.EventFieldSaved, To: home},
		{From: prompt, On: content.EventCancel, To: home},
	}
}

var (
	rejectRules = []content.Rule{
		{From: content.StateViewing, On: content.EventReject, To: content.StateRejectComment},
		{From: content.StateRejectComment, On: content.EventCancel, To: content.StateViewing},
		{From: content.StateRejectComment, On: content.EventTerminal, To: content.StateTerminal},
	}

	generateRules = []content.Rule{
		{From: content.StateIdle, On: content.EventChooseCategory, To: content.StateChooseCategory},
		{From: content.StateChooseCategory, On: content.EventInputAccepted, To: content.StateGenerateInput},
		{From: content.StateChooseCategory, On: content.EventClose, To: content.StateIdle},
		{From: content.StateGenerateInput, On: content.EventGenerated, To: content.StateGeneratePreview},
		{From: content.StateGenerateInput, On: content.EventClose, To: content.StateIdle},
		{From: content.StateGeneratePreview, On: content.EventTerminal, To: content.StateTerminal},
		{From: content.StateGeneratePreview, On: content.EventClose, To: content.StateIdle},
		{From: content.StateTerminal, On: content.EventClose, To: content.StateIdle},
	}

	videoLinkRules = []content.Rule{
		{From: content.StateIdle, On: content.EventAskVideoLink, To: content.StateAwaitVideoLink},
		{From: content.StateAwaitVideoLink, On: content.EventInputAccepted, To: content.StateTerminal},
		{From: content.StateAwaitVideoLink, On: content.EventCancel, To: content.StateIdle},
		{From: content.StateAwaitVideoLink, On: content.EventClose, To: content.StateIdle},
		{From: content.StateTerminal, On: content.EventClose, To: content.StateIdle},
	}
)

var (
	textFields        = []content.Field{content.FieldName, content.FieldText, content.FieldTags}
	publicationFields = []content.Field{content.FieldName, content.FieldText, content.FieldTags, content.FieldImage}
)

var flows = map[session.Flow]*flow{
	session.FlowModeration: {
		machine: content.MustMachine("moderation",
			content.ItemRules,
			rejectRules,
			promptRules(content.StateViewing, content.StateImagePrompt, content.EventImagePrompt),
		),
		home:        content.StateViewing,
		kind:        content.KindPublication,
		filter:      content.StatusModeration,
		fields:      publicationFields,
		imagePrompt: true,
		actions:     []content.Action{content.ActionApprove, content.ActionReject},
	},
	session.FlowDrafts: {
		machine: content.MustMachine("drafts",
			content.ItemRules,
			promptRules(content.StateViewing, content.StateRegeneratePrompt, content.EventRegenerate),
			promptRules(content.StateViewing, content.StateImagePrompt, content.EventImagePrompt),
			promptRules(content.StateViewing, content.StateSelectNetworks, content.EventSelectNetworks),
		),
		home:        content.StateViewing,
		kind:        content.KindPublication,
		filter:      content.StatusDraft,
		fields:      publicationFields,
		regenerate:  true,
		imagePrompt: true,
		removeImage: true,
		networks:    true,
		actions:     []content.Action{content.ActionSendToModeration, content.ActionPublish, content.ActionDelete},
	},
	session.FlowVideoCuts: {
		machine: content.MustMachine("video_cuts",
			content.ItemRules,
			promptRules(content.StateViewing, content.StateSelectNetworks, content.EventSelectNetworks),
		),
		home:     content.StateViewing,
		kind:     content.KindVideoCut,
		filter:   content.StatusDraft,
		fields:   textFields,
		networks: true,
		actions:  []content.Action{content.ActionSendToModeration, content.ActionPublish, content.ActionDelete},
	},
	session.FlowGenerate: {
		machine: content.MustMachine("generate",
			generateRules,
			editRules(content.StateGeneratePreview),
			promptRules(content.StateGeneratePreview, content.StateRegeneratePrompt, content.EventRegenerate),
			promptRules(content.StateGeneratePreview, content.StateImagePrompt, content.EventImagePrompt),
			promptRules(content.StateGeneratePreview, content.StateSelectNetworks, content.EventSelectNetworks),
		),
		home:        content.StateGeneratePreview,
		kind:        content.KindPublication,
		fields:      publicationFields,
		regenerate:  true,
		imagePrompt: true,
		removeImage: true,
		networks:    true,
		actions:     []content.Action{createDraft, content.ActionSendToModeration, content.ActionPublish},
	},
	session.FlowGenerateVideoCut: {
		machine: content.MustMachine("generate_video_cut", videoLinkRules),
	},
}

// createDraft saves a generated publication without sending it anywhere.
const createDraft content.Action = "save_draft"

// browsing reports whether f lists backend items.
func (f *flow) browsing() bool { return f.filter != "" }

func (f *flow) editable(field content.Field) bool {
	for _, x := range f.fields {
		if x == field {
			return true
		}
	}
	return false
}

func (f *flow) offers(a content.Action) bool {
	for _, x := range f.actions {
		if x == a {
			return true
		}
	}
	return false
}

// networksFor lists the networks an item kind can be published to.
func networksFor(kind content.Kind) []string {
	if kind == content.KindVideoCut {
		return []string{backend.NetworkYouTube, backend.NetworkInstagram}
	}
	return []string{backend.NetworkTelegram, backend.NetworkVKontakte}
}

func networkSelected(s content.PublishSettings, network string) bool {
	switch network {
	case backend.NetworkTelegram:
		return s.Telegram
	case backend.NetworkVKontakte:
		return s.VKontakte
	case backend.NetworkYouTube:
		return s.YouTube
	case backend.NetworkInstagram:
		return s.Instagram
	}
	return false
}

func toggleNetwork(s content.PublishSettings, network string) content.PublishSettings {
	switch network {
	case backend.NetworkTelegram:
		s.Telegram = !s.Telegram
	case backend.NetworkVKontakte:
		s.VKontakte = !s.VKontakte
	case backend.NetworkYouTube:
		s.YouTube = !s.YouTube
	case backend.NetworkInstagram:
		s.Instagram = !s.Instagram
	}
	return s
}

// restrictSettings keeps only the networks of kind.
func restrictSettings(s content.PublishSettings, kind content.Kind) content.PublishSettings {
	if kind == content.KindVideoCut {
		return content.PublishSettings{YouTube: s.YouTube, Instagram: s.Instagram}
	}
	return content.PublishSettings{Telegram: s.Telegram, VKontakte: s.VKontakte}
}
