package workflows

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"kontur-content-bot/internal/content"
	"kontur-content-bot/internal/locales"
	"kontur-content-bot/internal/session"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

const maxCardText = 3000

// card is what the bot shows for the current state of a workflow.
type card struct {
	photo    *telego.InputFile
	text     string // MarkdownV2
	keyboard *telego.InlineKeyboardMarkup

	prompt         string // plain text, sent below the card
	promptKeyboard *telego.InlineKeyboardMarkup
}

// render shows the current state of the session's workflow.
func (m *Manager) render(ctx context.Context, t *turn) error {
	c, err := m.buildCard(ctx, t)
	if err != nil {
		return err
	}
	return m.show(ctx, t, c)
}

func (m *Manager) buildCard(ctx context.Context, t *turn) (card, error) {
	f, ok := flows[t.sess.Flow]
	if !ok {
		return card{}, fmt.Errorf("no flow %q to render", t.sess.Flow)
	}
	switch t.sess.State {
	case content.StateChooseCategory:
		return m.categoryCard(ctx, t)
	case content.StateGenerateInput:
		name := ""
		if t.sess.Generation != nil {
			name = t.sess.Generation.CategoryName
		}
		return card{
			text:     escapeMarkdownV2(locales.GetMessage(t.loc, "MsgGenerateInput", map[string]interface{}{"Category": name}, nil)),
			keyboard: tu.InlineKeyboard(tu.InlineKeyboardRow(button(t.loc, "BtnCancel", cbClose, 0, ""))),
		}, nil
	case content.StateAwaitVideoLink:
		return card{
			text:     escapeMarkdownV2(locales.GetMessage(t.loc, "MsgVideoLinkPrompt", nil, nil)),
			keyboard: tu.InlineKeyboard(tu.InlineKeyboardRow(button(t.loc, "BtnCancel", cbCancel, 0, ""))),
		}, nil
	}

	if t.sess.Workspace == nil {
		return card{}, fmt.Errorf("state %s of flow %s has no workspace", t.sess.State, t.sess.Flow)
	}
	vm := content.BuildView(t.sess.Workspace, t.sess.State)
	if vm.Empty {
		return card{
			text:     escapeMarkdownV2(locales.GetMessage(t.loc, emptyMessage(t.sess.Flow), nil, nil)),
			keyboard: tu.InlineKeyboard(tu.InlineKeyboardRow(button(t.loc, "BtnClose", cbClose, 0, ""))),
		}, nil
	}

	c := card{text: m.itemText(t, f, vm), photo: itemPhoto(vm.Item)}
	switch st := t.sess.State; {
	case st == f.home:
		c.keyboard = m.actionKeyboard(t, f, vm)
	case st == content.StateSelectNetworks:
		c.keyboard = networksKeyboard(t, vm)
	default:
		c.prompt, c.promptKeyboard = promptFor(t, vm)
	}
	return c, nil
}

func emptyMessage(fl session.Flow) string {
	switch fl {
	case session.FlowModeration:
		return "MsgModerationEmpty"
	case session.FlowVideoCuts:
		return "MsgVideoCutsEmpty"
	default:
		return "MsgDraftsEmpty"
	}
}

func itemPhoto(it content.Item) *telego.InputFile {
	switch it.Media.Kind() {
	case content.MediaRemote:
		f := tu.FileFromURL(it.Media.URL())
		return &f
	case content.MediaUpload:
		f := tu.FileFromID(it.Media.FileID())
		return &f
	}
	return nil
}

func (m *Manager) itemText(t *turn, f *flow, vm content.ViewModel) string {
	it := vm.Item
	var b strings.Builder
	b.WriteString("*" + escapeMarkdownV2(it.Name) + "*\n\n")
	b.WriteString(escapeMarkdownV2(truncate(it.Text, maxCardText)) + "\n\n")
	if vm.TagsText != "" {
		b.WriteString(escapeMarkdownV2(vm.TagsText) + "\n")
	} else {
		b.WriteString("_" + escapeMarkdownV2(locales.GetMessage(t.loc, "MsgNoTags", nil, nil)) + "_\n")
	}
	if it.VideoURL != "" {
		b.WriteString(escapeMarkdownV2(locales.GetMessage(t.loc, "MsgVideoLink", map[string]interface{}{"URL": it.VideoURL}, nil)) + "\n")
	}
	if f.networks {
		b.WriteString(escapeMarkdownV2(networksLine(t.loc, it)) + "\n")
	}
	if t.sess.Flow == session.FlowModeration {
		b.WriteString(escapeMarkdownV2(waitingLine(t.loc, it, m.now())) + "\n")
	}
	if f.browsing() {
		b.WriteString(escapeMarkdownV2(locales.GetMessage(t.loc, "MsgPosition", map[string]interface{}{
			"Position": vm.Position,
			"Total":    vm.Total,
		}, nil)) + "\n")
	}
	if vm.HasChanges {
		b.WriteString(escapeMarkdownV2(locales.GetMessage(t.loc, "MsgUnsavedChanges", nil, nil)) + "\n")
	}
	return b.String()
}

func networksLine(loc *i18n.Localizer, it content.Item) string {
	var names []string
	for _, n := range networksFor(it.Kind) {
		if networkSelected(it.Settings, n) {
			names = append(names, locales.GetMessage(loc, networkMessage(n), nil, nil))
		}
	}
	if len(names) == 0 {
		return locales.GetMessage(loc, "MsgNoNetworks", nil, nil)
	}
	return locales.GetMessage(loc, "MsgNetworks", map[string]interface{}{"Networks": strings.Join(names, ", ")}, nil)
}

func networkMessage(network string) string {
	return "Network_" + network
}

func (m *Manager) actionKeyboard(t *turn, f *flow, vm content.ViewModel) *telego.InlineKeyboardMarkup {
	id := vm.Item.ID
	var rows [][]telego.InlineKeyboardButton

	var edit []telego.InlineKeyboardButton
	for _, field := range f.fields {
		edit = append(edit, button(t.loc, "BtnEdit_"+string(field), cbEdit, id, string(field)))
	}
	rows = append(rows, edit)

	var extra []telego.InlineKeyboardButton
	if f.regenerate {
		extra = append(extra, button(t.loc, "BtnRegenerate", cbRegenerate, id, ""))
	}
	if f.imagePrompt {
		extra = append(extra, button(t.loc, "BtnGenerateImage", cbImagePrompt, id, ""))
	}
	if f.removeImage && vm.HasImage {
		extra = append(extra, button(t.loc, "BtnRemoveImage", cbRemoveImage, id, ""))
	}
	if f.networks {
		extra = append(extra, button(t.loc, "BtnNetworks", cbNetworks, id, ""))
	}
	if len(extra) > 0 {
		rows = append(rows, extra)
	}

	if f.browsing() && vm.HasChanges {
		rows = append(rows, tu.InlineKeyboardRow(button(t.loc, "BtnSave", cbSave, id, "")))
	}

	var actions []telego.InlineKeyboardButton
	for _, a := range f.actions {
		switch {
		case a == content.ActionReject:
			actions = append(actions, button(t.loc, "BtnReject", cbReject, id, ""))
		case a == content.ActionPublish && t.sess.RequiredModeration:
			// publishing directly is reserved for employees without moderation
		default:
			actions = append(actions, button(t.loc, "BtnAction_"+string(a), cbTransition, id, string(a)))
		}
	}
	rows = append(rows, actions)

	if f.browsing() {
		var nav []telego.InlineKeyboardButton
		if vm.HasPrev {
			nav = append(nav, button(t.loc, "BtnPrev", cbPrev, id, ""))
		}
		if vm.HasNext {
			nav = append(nav, button(t.loc, "BtnNext", cbNext, id, ""))
		}
		if len(nav) > 0 {
			rows = append(rows, nav)
		}
	}
	rows = append(rows, tu.InlineKeyboardRow(button(t.loc, "BtnClose", cbClose, id, "")))
	return tu.InlineKeyboard(rows...)
}

func networksKeyboard(t *turn, vm content.ViewModel) *telego.InlineKeyboardMarkup {
	id := vm.Item.ID
	var rows [][]telego.InlineKeyboardButton
	for _, n := range t.sess.Networks {
		label := locales.GetMessage(t.loc, networkMessage(n), nil, nil)
		if networkSelected(vm.Item.Settings, n) {
			label = "✅ " + label
		}
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(label).WithCallbackData(callbackData(cbToggleNetwork, id, n)),
		))
	}
	rows = append(rows, tu.InlineKeyboardRow(
		button(t.loc, "BtnDone", cbNetworksDone, id, ""),
		button(t.loc, "BtnCancel", cbCancel, id, ""),
	))
	return tu.InlineKeyboard(rows...)
}

func promptFor(t *turn, vm content.ViewModel) (string, *telego.InlineKeyboardMarkup) {
	id := vm.Item.ID
	rules := t.sess.Workspace.Editor.Rules
	cancel := button(t.loc, "BtnCancel", cbCancel, id, "")
	var msgID string
	data := map[string]interface{}{}
	var extra []telego.InlineKeyboardButton

	switch t.sess.State {
	case content.StateEditingName:
		msgID = "MsgPromptName"
		data["Max"] = rules.NameMax
	case content.StateEditingText:
		msgID = "MsgPromptText"
		data["Min"], data["Max"] = max(rules.TextMin, 1), rules.TextMax
	case content.StateEditingTags:
		msgID = "MsgPromptTags"
		data["Max"] = rules.TagsMax
	case content.StateEditingImage:
		msgID = "MsgPromptImage"
		data["MaxMB"] = content.MaxImageBytes >> 20
	case content.StateRejectComment:
		msgID = "MsgPromptRejectComment"
		data["Min"], data["Max"] = content.CommentMin, content.CommentMax
	case content.StateRegeneratePrompt:
		msgID = "MsgPromptRegenerate"
		data["Min"], data["Max"] = content.PromptMin, content.PromptMax
		extra = append(extra, button(t.loc, "BtnWithoutPrompt", cbRegenerateNow, id, ""))
	case content.StateImagePrompt:
		msgID = "MsgPromptImageGeneration"
		data["Min"], data["Max"] = content.PromptMin, content.PromptMax
		extra = append(extra, button(t.loc, "BtnWithoutPrompt", cbImageNow, id, ""))
	default:
		return "", nil
	}
	return locales.GetMessage(t.loc, msgID, data, nil), tu.InlineKeyboard(append(extra, cancel))
}

func (m *Manager) categoryCard(ctx context.Context, t *turn) (card, error) {
	cats, err := m.gateway.CategoriesByOrganization(ctx, t.sess.OrganizationID)
	if err != nil {
		return card{}, fmt.Errorf("failed to list categories of organization %d: %w", t.sess.OrganizationID, err)
	}
	var rows [][]telego.InlineKeyboardButton
	for _, c := range cats {
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(c.Name).WithCallbackData(callbackData(cbChooseCategory, 0, fmt.Sprint(c.ID))),
		))
	}
	rows = append(rows, tu.InlineKeyboardRow(button(t.loc, "BtnCancel", cbClose, 0, "")))
	msgID := "MsgChooseCategory"
	if len(cats) == 0 {
		msgID = "MsgNoCategories"
	}
	return card{
		text:     escapeMarkdownV2(locales.GetMessage(t.loc, msgID, nil, nil)),
		keyboard: tu.InlineKeyboard(rows...),
	}, nil
}

func button(loc *i18n.Localizer, msgID, action string, itemID int64, arg string) telego.InlineKeyboardButton {
	return tu.InlineKeyboardButton(locales.GetMessage(loc, msgID, nil, nil)).
		WithCallbackData(callbackData(action, itemID, arg))
}

// show replaces the previously rendered card with c. A single text message
// is edited in place.
func (m *Manager) show(ctx context.Context, t *turn, c card) error {
	if c.photo == nil && c.prompt == "" && len(t.sess.CardMessageIDs) == 1 {
		params := &telego.EditMessageTextParams{
			ChatID:      tu.ID(t.chatID),
			MessageID:   t.sess.CardMessageIDs[0],
			Text:        c.text,
			ParseMode:   telego.ModeMarkdownV2,
			ReplyMarkup: c.keyboard,
		}
		_, err := m.bot.EditMessageText(ctx, params)
		if err == nil || strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		log.Printf("%s Editing card message %d failed, sending a new one: %v", t.logPrefix(), params.MessageID, err)
	}

	m.clearCard(ctx, t)
	var ids []int
	text := c.text
	if c.photo != nil {
		msg, err := m.bot.SendPhoto(ctx, tu.Photo(tu.ID(t.chatID), *c.photo))
		if err != nil {
			log.Printf("%s Error sending card image: %v", t.logPrefix(), err)
			text = "_" + escapeMarkdownV2(locales.GetMessage(t.loc, "MsgImageUnavailable", nil, nil)) + "_\n\n" + text
		} else {
			ids = append(ids, msg.MessageID)
		}
	}

	params := tu.Message(tu.ID(t.chatID), text).WithParseMode(telego.ModeMarkdownV2)
	if c.keyboard != nil {
		params = params.WithReplyMarkup(c.keyboard)
	}
	msg, err := m.bot.SendMessage(ctx, params)
	if err != nil {
		t.sess.CardMessageIDs = ids
		return fmt.Errorf("failed to send card: %w", err)
	}
	ids = append(ids, msg.MessageID)

	if c.prompt != "" {
		params := tu.Message(tu.ID(t.chatID), c.prompt)
		if c.promptKeyboard != nil {
			params = params.WithReplyMarkup(c.promptKeyboard)
		}
		msg, err := m.bot.SendMessage(ctx, params)
		if err != nil {
			t.sess.CardMessageIDs = ids
			return fmt.Errorf("failed to send prompt: %w", err)
		}
		ids = append(ids, msg.MessageID)
	}
	t.sess.CardMessageIDs = ids
	return nil
}

// clearCard deletes the messages of the last rendered card.
func (m *Manager) clearCard(ctx context.Context, t *turn) {
	for _, id := range t.sess.CardMessageIDs {
		if err := m.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{ChatID: tu.ID(t.chatID), MessageID: id}); err != nil {
			log.Printf("%s Error deleting card message %d: %v", t.logPrefix(), id, err)
		}
	}
	t.sess.CardMessageIDs = nil
}

func waitingLine(loc *i18n.Localizer, it content.Item, now time.Time) string {
	unit, n := content.WaitingTime(it.CreatedAt, now)
	var waiting string
	switch unit {
	case content.WaitHours:
		waiting = locales.Plural(loc, "MsgWaitingHours", n)
	case content.WaitDays:
		waiting = locales.Plural(loc, "MsgWaitingDays", n)
	default:
		waiting = locales.GetMessage(loc, "MsgWaitingUnderHour", nil, nil)
	}
	return locales.GetMessage(loc, "MsgWaiting", map[string]interface{}{"Waiting": waiting}, nil)
}
