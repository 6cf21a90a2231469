package workflows

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"kontur-content-bot/internal/backend"
	"kontur-content-bot/internal/content"
	"kontur-content-bot/internal/locales"
	"kontur-content-bot/internal/session"

	"github.com/mymmrac/telego"
)

// StartGenerate opens the publication generator: category, source text or
// voice, preview with editing, then creation on the backend.
func (m *Manager) StartGenerate(ctx context.Context, message telego.Message) error {
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
		t.sess.Flow = session.FlowGenerate
		if err := m.fire(t, content.EventChooseCategory); err != nil {
			return err
		}
		if err := m.render(ctx, t); err != nil {
			t.sess.Reset()
			return m.fail(ctx, t, err)
		}
		return nil
	})
}

// chooseCategory stores the selected category and asks for the source.
func (m *Manager) chooseCategory(ctx context.Context, t *turn, arg string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid category id %q: %w", arg, err)
	}
	cat, err := m.gateway.CategoryByID(ctx, id)
	if err != nil {
		return m.fail(ctx, t, fmt.Errorf("failed to get category %d: %w", id, err))
	}
	if cat.OrganizationID != 0 && cat.OrganizationID != t.sess.OrganizationID {
		m.notifyID(ctx, t, "MsgActionUnavailable", true)
		return nil
	}
	t.sess.Generation = &session.Generation{CategoryID: cat.ID, CategoryName: cat.Name}
	if err := m.fire(t, content.EventInputAccepted); err != nil {
		return err
	}
	return m.render(ctx, t)
}

// generateFromText generates a publication from the source text.
func (m *Manager) generateFromText(ctx context.Context, t *turn, raw string) error {
	reference, err := content.ValidateReference(raw)
	if err != nil {
		msg, _ := validationMessage(t.loc, err)
		m.send(ctx, t, msg)
		return nil
	}
	return m.generate(ctx, t, reference)
}

// generateFromVoice transcribes a voice or audio message and generates a
// publication from the transcript.
func (m *Manager) generateFromVoice(ctx context.Context, t *turn, fileID string) error {
	m.notifyID(ctx, t, "MsgTranscribing", false)
	audio, err := m.media.FetchMedia(ctx, fileID)
	if err != nil {
		return m.fail(ctx, t, err)
	}
	transcript, err := m.gateway.TranscribeAudio(ctx, t.sess.OrganizationID, audio)
	if err != nil {
		return m.fail(ctx, t, fmt.Errorf("failed to transcribe audio: %w", err))
	}
	reference, err := content.ValidateReference(transcript)
	if err != nil {
		m.notifyID(ctx, t, "MsgTranscriptTooShort", false)
		return nil
	}
	return m.generate(ctx, t, reference)
}

func (m *Manager) generate(ctx context.Context, t *turn, reference string) error {
	gen := t.sess.Generation
	if gen == nil {
		return fmt.Errorf("generation started without a category")
	}
	m.notifyID(ctx, t, "MsgGenerating", false)
	g, err := m.gateway.GenerateText(ctx, gen.CategoryID, reference)
	if err != nil {
		return m.fail(ctx, t, fmt.Errorf("failed to generate text: %w", err))
	}

	var settings content.PublishSettings
	nets, err := m.gateway.SocialNetworksByOrganization(ctx, t.sess.OrganizationID)
	if err != nil {
		log.Printf("%s Error listing social networks, nothing preselected: %v", t.logPrefix(), err)
	} else {
		settings = restrictSettings(nets.DefaultSettings(), content.KindPublication)
	}

	gen.Reference = reference
	item := content.Item{
		Kind:           content.KindPublication,
		OrganizationID: t.sess.OrganizationID,
		CreatorID:      t.sess.EmployeeID,
		CategoryID:     gen.CategoryID,
		Status:         content.StatusDraft,
		Reference:      reference,
		CreatedAt:      m.now(),
		Name:           g.Name,
		Text:           g.Text,
		Tags:           g.Tags,
		Settings:       settings,
	}
	ws := content.NewWorkspace(content.KindPublication, "", m.options)
	ws.Editor.Rules = content.GeneratedRules
	ws.Browser.Seed([]content.Item{item})
	ws.Editor.Begin(item)
	t.sess.Workspace = ws

	if err := m.fire(t, content.EventGenerated); err != nil {
		return err
	}
	return m.render(ctx, t)
}

// statusFor maps a creation action to the status of the new publication.
func statusFor(a content.Action) (content.Status, bool) {
	switch a {
	case createDraft:
		return content.StatusDraft, true
	case content.ActionSendToModeration:
		return content.StatusModeration, true
	case content.ActionPublish:
		return content.StatusApproved, true
	}
	return "", false
}

// createPublication creates the previewed publication on the backend.
func (m *Manager) createPublication(ctx context.Context, t *turn, action content.Action) error {
	status, ok := statusFor(action)
	if !ok {
		m.notifyID(ctx, t, "MsgActionUnavailable", false)
		return nil
	}
	it, ok := t.sess.Workspace.Current()
	if !ok {
		return content.ErrNoItem
	}
	if action == content.ActionPublish {
		if t.sess.RequiredModeration {
			m.notifyID(ctx, t, "MsgPublishNotAllowed", true)
			return nil
		}
		if !it.Settings.Any() {
			m.notifyID(ctx, t, "MsgSelectNetworksFirst", true)
			return nil
		}
	}

	p := backend.NewPublication{
		OrganizationID: t.sess.OrganizationID,
		CategoryID:     it.CategoryID,
		CreatorID:      t.sess.EmployeeID,
		Reference:      it.Reference,
		Name:           it.Name,
		Text:           it.Text,
		Tags:           it.Tags,
		Status:         status,
		ImageURL:       it.Media.URL(),
		Settings:       it.Settings,
	}
	if fileID := it.Media.FileID(); fileID != "" {
		f, err := m.media.FetchMedia(ctx, fileID)
		if err != nil {
			return m.fail(ctx, t, err)
		}
		p.Image = &f
	}

	id, err := m.gateway.CreatePublication(ctx, p)
	ref := content.ItemRef{Kind: content.KindPublication, ID: id}
	m.logTransition(ctx, t, ref, action, "", err == nil, err)
	if err != nil {
		return m.fail(ctx, t, fmt.Errorf("failed to create publication: %w", err))
	}
	if err := m.fire(t, content.EventTerminal); err != nil {
		return err
	}
	log.Printf("%s Created publication %d with status %s", t.logPrefix(), id, status)

	m.clearCard(ctx, t)
	t.sess.Reset()
	m.notify(ctx, t, locales.GetMessage(t.loc, "MsgCreated_"+string(status), map[string]interface{}{"Name": it.Name}, nil), false)
	return nil
}
