package workflows

import (
	"context"
	"log"

	"kontur-content-bot/internal/content"
	"kontur-content-bot/internal/locales"
	"kontur-content-bot/internal/session"

	"github.com/mymmrac/telego"
)

// HandleCallbackQuery processes a button of a workflow card. It reports
// false for callback data that does not belong to the workflows.
func (m *Manager) HandleCallbackQuery(ctx context.Context, query telego.CallbackQuery) (bool, error) {
	if !isWorkflowCallback(query.Data) {
		return false, nil
	}
	chatID := query.From.ID
	if query.Message != nil {
		chatID = query.Message.GetChat().ID
	}
	cb, parseErr := parseCallback(query.Data)

	err := m.withSession(ctx, chatID, query.From, query.ID, func(t *turn) error {
		if parseErr != nil {
			t.discard = true
			return parseErr
		}
		if !t.sess.Active() || !m.matchesCard(t, cb) {
			t.discard = true
			m.notifyID(ctx, t, "MsgSessionExpired", true)
			return nil
		}
		if m.debug {
			log.Printf("%s Callback %s item=%d arg=%q", t.logPrefix(), cb.action, cb.itemID, cb.arg)
		}
		return m.dispatch(ctx, t, cb)
	})
	return true, err
}

// matchesCard reports whether the button belongs to the card of the
// current item. Old cards stay in the chat history after navigation.
func (m *Manager) matchesCard(t *turn, cb callback) bool {
	if cb.action == cbClose {
		return true
	}
	var current int64
	if ws := t.sess.Workspace; ws != nil {
		if it, ok := ws.Browser.Current(); ok {
			current = it.ID
		}
	}
	return cb.itemID == current
}

func (m *Manager) dispatch(ctx context.Context, t *turn, cb callback) error {
	f := flows[t.sess.Flow]
	st := t.sess.State
	atHome := st == f.home && t.sess.Workspace != nil

	switch {
	case cb.action == cbClose:
		return m.closeFlow(ctx, t)
	case cb.action == cbCancel:
		return m.cancelInput(ctx, t)

	case (cb.action == cbPrev || cb.action == cbNext) && atHome && f.browsing():
		dir := content.Next
		if cb.action == cbPrev {
			dir = content.Prev
		}
		return m.navigate(ctx, t, dir)
	case cb.action == cbEdit && atHome:
		return m.startEdit(ctx, t, f, content.Field(cb.arg))
	case cb.action == cbSave && atHome && f.browsing():
		return m.save(ctx, t)

	case cb.action == cbReject && atHome && f.offers(content.ActionReject):
		return m.startReject(ctx, t)
	case cb.action == cbTransition && atHome && f.offers(content.Action(cb.arg)):
		action := content.Action(cb.arg)
		switch {
		case action == content.ActionReject:
			return m.startReject(ctx, t)
		case f.browsing():
			return m.transition(ctx, t, action, "")
		default:
			return m.createPublication(ctx, t, action)
		}

	case cb.action == cbRegenerate && atHome && f.regenerate:
		return m.enter(ctx, t, content.EventRegenerate)
	case cb.action == cbRegenerateNow && st == content.StateRegeneratePrompt:
		return m.regenerate(ctx, t, "")
	case cb.action == cbImagePrompt && atHome && f.imagePrompt:
		return m.enter(ctx, t, content.EventImagePrompt)
	case cb.action == cbImageNow && st == content.StateImagePrompt:
		return m.generateImage(ctx, t, "")
	case cb.action == cbRemoveImage && atHome && f.removeImage:
		return m.removeImage(ctx, t)

	case cb.action == cbNetworks && atHome && f.networks:
		return m.startNetworks(ctx, t)
	case cb.action == cbToggleNetwork && st == content.StateSelectNetworks:
		return m.toggleNetwork(ctx, t, cb.arg)
	case cb.action == cbNetworksDone && st == content.StateSelectNetworks:
		return m.finishNetworks(ctx, t, false)

	case cb.action == cbChooseCategory && st == content.StateChooseCategory:
		return m.chooseCategory(ctx, t, cb.arg)
	}

	log.Printf("%s Callback %s not available", t.logPrefix(), cb.action)
	t.discard = true
	m.notifyID(ctx, t, "MsgActionUnavailable", false)
	return nil
}

// enter switches to a prompt state.
func (m *Manager) enter(ctx context.Context, t *turn, event content.Event) error {
	if !t.can(event) {
		m.notifyID(ctx, t, "MsgActionUnavailable", false)
		return nil
	}
	if err := m.fire(t, event); err != nil {
		return err
	}
	return m.render(ctx, t)
}

// cancelInput leaves the input state without applying anything.
func (m *Manager) cancelInput(ctx context.Context, t *turn) error {
	switch st := t.sess.State; {
	case st == content.StateSelectNetworks:
		return m.finishNetworks(ctx, t, true)
	case st == content.StateAwaitVideoLink, t.sess.Flow == session.FlowGenerateVideoCut:
		m.clearCard(ctx, t)
		t.sess.Reset()
		m.send(ctx, t, locales.GetMessage(t.loc, "MsgCancelled", nil, nil))
		return nil
	case t.can(content.EventCancel):
		if err := m.fire(t, content.EventCancel); err != nil {
			return err
		}
		return m.render(ctx, t)
	}
	m.notifyID(ctx, t, "MsgActionUnavailable", false)
	return nil
}
