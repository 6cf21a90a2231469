package handlers

import (
	"context"
	"fmt"
	"log"

	"kontur-content-bot/internal/locales"
	telegoapi "kontur-content-bot/pkg/telegoapi"

	"github.com/mymmrac/telego"
)

// ProcessWorkflowMessage offers a non-command message to the chat's
// workflow. It reports whether a workflow consumed it.
func (h *MessageHandler) ProcessWorkflowMessage(ctx context.Context, message telego.Message) (bool, error) {
	processed, err := h.workflows.HandleMessage(ctx, message)
	if processed {
		h.RecordUserActivity(ctx, message.From, ActionWorkflowInput, map[string]interface{}{
			"chat_id":    message.Chat.ID,
			"message_id": message.MessageID,
		})
	}
	if err != nil {
		return processed, fmt.Errorf("workflow failed to handle message: %w", err)
	}
	return processed, nil
}

// HandleText answers messages that no workflow waits for.
func (h *MessageHandler) HandleText(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	log.Printf("[HandleText Chat:%d] Message %d outside of a workflow", message.Chat.ID, message.MessageID)
	return h.sendSuccess(ctx, bot, message.Chat.ID, locales.GetMessage(h.getLocalizer(message.From), "MsgUseCommands", nil, nil))
}

// HandleUnknownCommand answers commands the bot does not know.
func (h *MessageHandler) HandleUnknownCommand(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	return h.sendSuccess(ctx, bot, message.Chat.ID, locales.GetMessage(h.getLocalizer(message.From), "MsgErrorUnknownCommand", nil, nil))
}
