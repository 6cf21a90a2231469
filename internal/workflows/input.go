package workflows

import (
	"context"
	"errors"
	"strings"

	"kontur-content-bot/internal/content"
	"kontur-content-bot/internal/locales"

	"github.com/mymmrac/telego"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// HandleMessage feeds a non-command message to the chat's workflow. It
// reports false when no workflow waits for input.
func (m *Manager) HandleMessage(ctx context.Context, message telego.Message) (bool, error) {
	if message.From == nil {
		return false, nil
	}
	handled := false
	err := m.withSession(ctx, message.Chat.ID, *message.From, "", func(t *turn) error {
		if !t.sess.Active() {
			t.discard = true
			return nil
		}
		handled = true
		return m.input(ctx, t, message)
	})
	return handled, err
}

func (m *Manager) input(ctx context.Context, t *turn, message telego.Message) error {
	text := strings.TrimSpace(message.Text)

	switch st := t.sess.State; st {
	case content.StateEditingName, content.StateEditingText, content.StateEditingTags:
		if text == "" {
			m.notifyID(ctx, t, "MsgSendText", false)
			return nil
		}
		field, _ := content.EditedField(st)
		return m.applyText(ctx, t, field, message.Text)
	case content.StateEditingImage:
		fileID, size, mimeType, ok := imageOf(message)
		if !ok {
			m.notifyID(ctx, t, "MsgSendImage", false)
			return nil
		}
		return m.applyImage(ctx, t, fileID, size, mimeType)
	case content.StateRejectComment:
		return m.reject(ctx, t, message.Text)
	case content.StateRegeneratePrompt:
		return m.promptInput(ctx, t, message.Text, m.regenerate)
	case content.StateImagePrompt:
		return m.promptInput(ctx, t, message.Text, m.generateImage)
	case content.StateGenerateInput:
		if fileID, ok := audioOf(message); ok {
			return m.generateFromVoice(ctx, t, fileID)
		}
		if text == "" {
			m.notifyID(ctx, t, "MsgSendReference", false)
			return nil
		}
		return m.generateFromText(ctx, t, message.Text)
	case content.StateAwaitVideoLink:
		return m.requestVideoCut(ctx, t, message.Text)
	}

	t.discard = true
	m.notifyID(ctx, t, "MsgUseButtons", false)
	return nil
}

// imageOf returns the largest photo size or an image document.
func imageOf(message telego.Message) (string, int64, string, bool) {
	if n := len(message.Photo); n > 0 {
		p := message.Photo[n-1]
		return p.FileID, int64(p.FileSize), "image/jpeg", true
	}
	if d := message.Document; d != nil {
		return d.FileID, d.FileSize, d.MimeType, true
	}
	return "", 0, "", false
}

func audioOf(message telego.Message) (string, bool) {
	if v := message.Voice; v != nil {
		return v.FileID, true
	}
	if a := message.Audio; a != nil {
		return a.FileID, true
	}
	return "", false
}

// validationMessage describes a rejected input to the user.
func validationMessage(loc *i18n.Localizer, err error) (string, bool) {
	var ve *content.ValidationError
	if !errors.As(err, &ve) {
		return "", false
	}
	limit := ve.Limit
	if ve.Reason == content.ReasonTooLarge {
		limit = ve.Limit >> 20
	}
	return locales.GetMessage(loc, "MsgInvalid_"+string(ve.Reason), map[string]interface{}{
		"Field": locales.GetMessage(loc, "Field_"+string(ve.Field), nil, nil),
		"Limit": limit,
	}, nil), true
}
