package workflows

import (
	"context"
	"errors"
	"fmt"
	"log"

	"kontur-content-bot/internal/content"
	"kontur-content-bot/internal/locales"
	"kontur-content-bot/internal/session"

	"github.com/mymmrac/telego"
)

// StartBrowsing opens a browsing workflow (moderation, drafts or video cuts)
// for the chat of message.
func (m *Manager) StartBrowsing(ctx context.Context, message telego.Message, fl session.Flow) error {
	f, ok := flows[fl]
	if !ok || !f.browsing() {
		return fmt.Errorf("flow %q is not a browsing workflow", fl)
	}
	if message.From == nil {
		return nil
	}
	return m.withSession(ctx, message.Chat.ID, *message.From, "", func(t *turn) error {
		linked, err := m.identify(ctx, t)
		if !linked {
			return err
		}
		m.clearCard(ctx, t)
		t.sess.Reset()
		t.sess.Flow = fl

		ws := content.NewWorkspace(f.kind, f.filter, m.options)
		found, total, err := ws.Load(ctx, m.gateway, t.sess.OrganizationID)
		if err != nil {
			t.sess.Reset()
			return m.fail(ctx, t, err)
		}
		t.sess.Workspace = ws
		event := content.EventEmptied
		if found {
			event = content.EventLoaded
		}
		if err := m.fire(t, event); err != nil {
			return err
		}
		log.Printf("%s Loaded %d %s items with status %s", t.logPrefix(), total, f.kind, f.filter)

		if found && fl == session.FlowModeration {
			m.send(ctx, t, m.queueHeader(t, ws))
		}
		return m.render(ctx, t)
	})
}

func (m *Manager) queueHeader(t *turn, ws *content.Workspace) string {
	period := content.PeriodOf(ws.Browser.Items, m.now())
	return locales.GetMessage(t.loc, "MsgModerationQueue", map[string]interface{}{
		"Count":  ws.Browser.Len(),
		"Period": locales.GetMessage(t.loc, "Period_"+string(period), nil, nil),
	}, nil)
}

// navigate moves to the previous or next item, discarding unsaved edits.
func (m *Manager) navigate(ctx context.Context, t *turn, dir content.Direction) error {
	ws := t.sess.Workspace
	hadChanges := ws.HasChanges()
	if _, moved := ws.Navigate(dir); !moved {
		m.notifyID(ctx, t, "MsgNoMoreItems", false)
		return nil
	}
	if hadChanges {
		m.notifyID(ctx, t, "MsgChangesDiscarded", false)
	}
	return m.render(ctx, t)
}

// startEdit switches to the input state of field.
func (m *Manager) startEdit(ctx context.Context, t *turn, f *flow, field content.Field) error {
	ev, ok := content.EditEvent(field)
	if !ok || !f.editable(field) {
		m.notifyID(ctx, t, "MsgActionUnavailable", false)
		return nil
	}
	if err := m.fire(t, ev); err != nil {
		m.notifyID(ctx, t, "MsgActionUnavailable", false)
		return nil
	}
	return m.render(ctx, t)
}

// applyText handles text typed while a field is being edited. Invalid input
// keeps the state and repeats the requirements.
func (m *Manager) applyText(ctx context.Context, t *turn, field content.Field, raw string) error {
	if err := t.sess.Workspace.Editor.EditField(field, raw); err != nil {
		if msg, ok := validationMessage(t.loc, err); ok {
			m.send(ctx, t, msg)
			return nil
		}
		return err
	}
	if err := m.fire(t, content.EventFieldSaved); err != nil {
		return err
	}
	return m.render(ctx, t)
}

// applyImage handles a photo or image document sent while editing the image.
func (m *Manager) applyImage(ctx context.Context, t *turn, fileID string, size int64, mimeType string) error {
	if err := content.ValidateImageUpload(size, mimeType); err != nil {
		if msg, ok := validationMessage(t.loc, err); ok {
			m.send(ctx, t, msg)
			return nil
		}
		return err
	}
	if err := t.sess.Workspace.Editor.SetImage(content.UploadedMedia(fileID)); err != nil {
		return err
	}
	if err := m.fire(t, content.EventFieldSaved); err != nil {
		return err
	}
	return m.render(ctx, t)
}

// removeImage clears the working image.
func (m *Manager) removeImage(ctx context.Context, t *turn) error {
	if err := t.sess.Workspace.Editor.ClearImage(); err != nil {
		return err
	}
	return m.render(ctx, t)
}

// save commits the pending edits of the current item.
func (m *Manager) save(ctx context.Context, t *turn) error {
	res, err := m.committer.Commit(ctx, t.sess.Workspace)
	if err != nil {
		if errors.Is(err, content.ErrEmptyList) {
			m.notifyID(ctx, t, "MsgActionUnavailable", false)
			return nil
		}
		return m.fail(ctx, t, err)
	}
	if !res.Saved {
		m.notifyID(ctx, t, "MsgNoChanges", false)
		return nil
	}
	m.logEdits(ctx, t, res)
	m.notifyID(ctx, t, "MsgSaved", false)
	return m.render(ctx, t)
}

// transition commits pending edits and applies a terminal action to the
// current item. On failure the item stays selected.
func (m *Manager) transition(ctx context.Context, t *turn, action content.Action, comment string) error {
	ws := t.sess.Workspace
	current, ok := ws.Current()
	if !ok {
		m.notifyID(ctx, t, "MsgActionUnavailable", false)
		return nil
	}
	if action == content.ActionPublish {
		if t.sess.RequiredModeration {
			m.notifyID(ctx, t, "MsgPublishNotAllowed", true)
			return nil
		}
		if !current.Settings.Any() {
			m.notifyID(ctx, t, "MsgSelectNetworksFirst", true)
			return nil
		}
	}

	res, err := m.committer.CommitAndTransition(ctx, ws, content.Transition{
		Action:  action,
		ActorID: t.sess.EmployeeID,
		Comment: comment,
	})
	m.logEdits(ctx, t, res)
	m.logTransition(ctx, t, current.Ref(), action, comment, res.Saved, err)
	if err != nil {
		if t.sess.State == content.StateRejectComment {
			if fireErr := m.fire(t, content.EventCancel); fireErr != nil {
				log.Printf("%s Error leaving reject comment after failed %s: %v", t.logPrefix(), action, fireErr)
			}
		}
		failErr := m.fail(ctx, t, err)
		return errors.Join(failErr, m.render(ctx, t))
	}

	if err := m.fire(t, content.EventTerminal); err != nil {
		return err
	}
	next := content.EventLoaded
	if ws.Browser.Empty() {
		next = content.EventEmptied
	}
	if err := m.fire(t, next); err != nil {
		return err
	}
	log.Printf("%s %s %d: %s done", t.logPrefix(), current.Kind, current.ID, action)
	m.notifyID(ctx, t, "MsgDone_"+string(action), false)
	return m.render(ctx, t)
}

// startReject asks for the rejection comment.
func (m *Manager) startReject(ctx context.Context, t *turn) error {
	if err := m.fire(t, content.EventReject); err != nil {
		m.notifyID(ctx, t, "MsgActionUnavailable", false)
		return nil
	}
	return m.render(ctx, t)
}

// reject validates the comment and rejects the current item.
func (m *Manager) reject(ctx context.Context, t *turn, raw string) error {
	comment, err := content.ValidateComment(raw)
	if err != nil {
		msg, _ := validationMessage(t.loc, err)
		m.send(ctx, t, msg)
		return nil
	}
	return m.transition(ctx, t, content.ActionReject, comment)
}

// startNetworks offers the organization's connected networks for selection.
func (m *Manager) startNetworks(ctx context.Context, t *turn) error {
	current, ok := t.sess.Workspace.Current()
	if !ok {
		m.notifyID(ctx, t, "MsgActionUnavailable", false)
		return nil
	}
	nets, err := m.gateway.SocialNetworksByOrganization(ctx, t.sess.OrganizationID)
	if err != nil {
		return m.fail(ctx, t, fmt.Errorf("failed to list social networks: %w", err))
	}
	var connected []string
	for _, n := range networksFor(current.Kind) {
		if nets.Connected(n) {
			connected = append(connected, n)
		}
	}
	if len(connected) == 0 {
		m.notifyID(ctx, t, "MsgNoNetworksConnected", true)
		return nil
	}
	if err := m.fire(t, content.EventSelectNetworks); err != nil {
		m.notifyID(ctx, t, "MsgActionUnavailable", false)
		return nil
	}
	backup := current.Settings
	t.sess.Networks = connected
	t.sess.SettingsBackup = &backup
	return m.render(ctx, t)
}

func (m *Manager) toggleNetwork(ctx context.Context, t *turn, network string) error {
	allowed := false
	for _, n := range t.sess.Networks {
		allowed = allowed || n == network
	}
	if !allowed {
		m.notifyID(ctx, t, "MsgActionUnavailable", false)
		return nil
	}
	current, _ := t.sess.Workspace.Current()
	if err := t.sess.Workspace.Editor.SetSettings(toggleNetwork(current.Settings, network)); err != nil {
		return err
	}
	return m.render(ctx, t)
}

func (m *Manager) finishNetworks(ctx context.Context, t *turn, cancel bool) error {
	if cancel && t.sess.SettingsBackup != nil {
		if err := t.sess.Workspace.Editor.SetSettings(*t.sess.SettingsBackup); err != nil {
			return err
		}
	}
	ev := content.EventFieldSaved
	if cancel {
		ev = content.EventCancel
	}
	if err := m.fire(t, ev); err != nil {
		return err
	}
	t.sess.Networks = nil
	t.sess.SettingsBackup = nil
	return m.render(ctx, t)
}

// regenerate rewrites the working text through the backend.
func (m *Manager) regenerate(ctx context.Context, t *turn, prompt string) error {
	current, ok := t.sess.Workspace.Current()
	if !ok {
		return content.ErrNoItem
	}
	m.notifyID(ctx, t, "MsgGenerating", false)
	g, err := m.gateway.RegenerateText(ctx, categoryOf(t, current), current.Text, prompt)
	if err != nil {
		return m.fail(ctx, t, fmt.Errorf("failed to regenerate text: %w", err))
	}
	if err := t.sess.Workspace.Editor.ReplaceText(g); err != nil {
		return err
	}
	if err := m.fire(t, content.EventFieldSaved); err != nil {
		return err
	}
	return m.render(ctx, t)
}

// generateImage replaces the working image with a generated one.
func (m *Manager) generateImage(ctx context.Context, t *turn, prompt string) error {
	current, ok := t.sess.Workspace.Current()
	if !ok {
		return content.ErrNoItem
	}
	m.notifyID(ctx, t, "MsgGeneratingImage", false)
	url, err := m.gateway.GenerateImage(ctx, categoryOf(t, current), current.Text, current.Reference, prompt)
	if err != nil {
		return m.fail(ctx, t, fmt.Errorf("failed to generate image: %w", err))
	}
	if err := t.sess.Workspace.Editor.SetImage(content.RemoteMedia(url)); err != nil {
		return err
	}
	if err := m.fire(t, content.EventFieldSaved); err != nil {
		return err
	}
	return m.render(ctx, t)
}

// promptInput validates a generation prompt typed by the user and runs fn.
func (m *Manager) promptInput(ctx context.Context, t *turn, raw string, fn func(context.Context, *turn, string) error) error {
	prompt, err := content.ValidatePrompt(raw)
	if err != nil {
		msg, _ := validationMessage(t.loc, err)
		m.send(ctx, t, msg)
		return nil
	}
	return fn(ctx, t, prompt)
}

func categoryOf(t *turn, it content.Item) int64 {
	if it.CategoryID == 0 && t.sess.Generation != nil {
		return t.sess.Generation.CategoryID
	}
	return it.CategoryID
}

// closeFlow leaves the workflow.
func (m *Manager) closeFlow(ctx context.Context, t *turn) error {
	m.clearCard(ctx, t)
	discarded := t.sess.Workspace != nil && t.sess.Workspace.HasChanges()
	t.sess.Reset()
	if discarded {
		m.send(ctx, t, locales.GetMessage(t.loc, "MsgClosedDiscarded", nil, nil))
	} else {
		m.send(ctx, t, locales.GetMessage(t.loc, "MsgClosed", nil, nil))
	}
	return nil
}
