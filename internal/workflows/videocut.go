package workflows

import (
	"context"
	"fmt"
	"log"

	"kontur-content-bot/internal/content"
	"kontur-content-bot/internal/locales"
	"kontur-content-bot/internal/session"

	"github.com/mymmrac/telego"
)

// StartVideoCut asks for a YouTube link to cut into short videos.
func (m *Manager) StartVideoCut(ctx context.Context, message telego.Message) error {
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
		t.sess.Flow = session.FlowGenerateVideoCut
		if err := m.fire(t, content.EventAskVideoLink); err != nil {
			return err
		}
		return m.render(ctx, t)
	})
}

// requestVideoCut sends the link to the backend. The cuts show up later in
// the video drafts.
func (m *Manager) requestVideoCut(ctx context.Context, t *turn, raw string) error {
	link, err := content.ValidateYouTubeURL(raw)
	if err != nil {
		msg, _ := validationMessage(t.loc, err)
		m.send(ctx, t, msg)
		return nil
	}
	if err := m.gateway.GenerateVideoCut(ctx, t.sess.OrganizationID, t.sess.EmployeeID, link); err != nil {
		return m.fail(ctx, t, fmt.Errorf("failed to request video cut: %w", err))
	}
	if err := m.fire(t, content.EventInputAccepted); err != nil {
		return err
	}
	log.Printf("%s Requested video cut of %s", t.logPrefix(), link)
	m.clearCard(ctx, t)
	t.sess.Reset()
	m.send(ctx, t, locales.GetMessage(t.loc, "MsgVideoCutRequested", nil, nil))
	return nil
}
