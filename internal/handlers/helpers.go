package handlers

import (
	"context"
	"log"

	"kontur-content-bot/internal/locales"
	telegoapi "kontur-content-bot/pkg/telegoapi"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// sendSuccess sends a plain text message to the user.
func (h *MessageHandler) sendSuccess(ctx context.Context, bot telegoapi.BotAPI, chatID int64, text string) error {
	_, err := bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text))
	if err != nil {
		log.Printf("Error sending success message to chat %d: %v", chatID, err)
	}
	return nil
}

// sendError logs originalErr, sends a generic localized error message and
// returns originalErr so that the update loop can report it.
func (h *MessageHandler) sendError(ctx context.Context, bot telegoapi.BotAPI, message telego.Message, originalErr error) error {
	log.Printf("Error for user in chat %d: %v", message.Chat.ID, originalErr)

	errMsg := locales.GetMessage(h.getLocalizer(message.From), "MsgErrorGeneral", nil, nil)
	if _, sendErr := bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), errMsg)); sendErr != nil {
		log.Printf("Error sending generic error message to chat %d: %v", message.Chat.ID, sendErr)
	}
	return originalErr
}

// getLocalizer returns a localizer for the user's language, falling back to the default.
func (h *MessageHandler) getLocalizer(user *telego.User) *i18n.Localizer {
	if user != nil && user.LanguageCode != "" {
		return locales.NewLocalizer(user.LanguageCode)
	}
	return locales.NewLocalizer()
}

// GetLocalizer is getLocalizer for other packages.
func (h *MessageHandler) GetLocalizer(user *telego.User) *i18n.Localizer {
	return h.getLocalizer(user)
}

// RecordUserActivity combines updating user info and logging the action.
func (h *MessageHandler) RecordUserActivity(ctx context.Context, user *telego.User, action string, details map[string]interface{}) {
	if user == nil {
		log.Printf("Attempted to record activity for nil user, action: %s", action)
		return
	}

	if err := h.userRepo.UpdateUser(ctx, user.ID, user.Username, user.FirstName, user.LastName, action); err != nil {
		log.Printf("Error updating user %d (%s) in DB during action %s: %v", user.ID, user.Username, action, err)
	}
	if err := h.actionLogger.LogUserAction(user.ID, action, details); err != nil {
		log.Printf("Error logging action %s for user %d (%s): %v", action, user.ID, user.Username, err)
	}
}

// HandleCallbackQuery delegates button presses to the workflows. Unknown
// buttons are acknowledged so that the client stops waiting.
func (h *MessageHandler) HandleCallbackQuery(ctx context.Context, bot telegoapi.BotAPI, query telego.CallbackQuery) error {
	processed, err := h.workflows.HandleCallbackQuery(ctx, query)
	if processed {
		h.RecordUserActivity(ctx, &query.From, ActionWorkflowCallback, map[string]interface{}{
			"data": query.Data,
		})
		return err
	}

	log.Printf("Callback query %s not processed by any manager. Data: %s", query.ID, query.Data)
	answer := locales.GetMessage(h.getLocalizer(&query.From), "MsgCallbackNotHandled", nil, nil)
	if ackErr := bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{CallbackQueryID: query.ID, Text: answer}); ackErr != nil {
		log.Printf("Error answering callback query %s: %v", query.ID, ackErr)
	}
	return err
}
