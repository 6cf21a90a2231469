package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"kontur-content-bot/internal/auth"
	"kontur-content-bot/internal/locales"
	"kontur-content-bot/internal/session"
	telegoapi "kontur-content-bot/pkg/telegoapi"

	"github.com/mymmrac/telego"
)

// HandleStart handles the /start command.
// "/start <account id>" links the chat to the employee with that account;
// a bare /start greets a linked employee or explains how to link.
func (h *MessageHandler) HandleStart(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	if err := h.setupCommands(ctx, bot); err != nil {
		log.Printf("[Cmd:start Chat:%d] %v", message.Chat.ID, err)
	}
	localizer := h.getLocalizer(message.From)

	args := strings.Fields(message.Text)
	if len(args) < 2 {
		h.RecordUserActivity(ctx, message.From, ActionCommandStart, map[string]interface{}{
			"chat_id": message.Chat.ID,
		})
		id, err := h.identities.Resolve(ctx, message.Chat.ID)
		if errors.Is(err, auth.ErrNotLinked) {
			return h.sendSuccess(ctx, bot, message.Chat.ID, locales.GetMessage(localizer, "MsgLinkUsage", nil, nil))
		}
		if err != nil {
			return h.sendError(ctx, bot, message, fmt.Errorf("failed to resolve identity: %w", err))
		}
		return h.sendSuccess(ctx, bot, message.Chat.ID, locales.GetMessage(localizer, "MsgStart", map[string]interface{}{
			"Name": id.Employee.Name,
		}, nil))
	}

	accountID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || accountID <= 0 {
		log.Printf("[Cmd:start Chat:%d] Invalid account id %q", message.Chat.ID, args[1])
		return h.sendSuccess(ctx, bot, message.Chat.ID, locales.GetMessage(localizer, "MsgLinkUsage", nil, nil))
	}
	lang := ""
	if message.From != nil {
		lang = message.From.LanguageCode
	}
	id, err := h.identities.Link(ctx, message.Chat.ID, accountID, lang)
	if errors.Is(err, auth.ErrNotLinked) {
		return h.sendSuccess(ctx, bot, message.Chat.ID, locales.GetMessage(localizer, "MsgLinkFailed", nil, nil))
	}
	if err != nil {
		return h.sendError(ctx, bot, message, fmt.Errorf("failed to link account %d: %w", accountID, err))
	}

	h.RecordUserActivity(ctx, message.From, ActionLinkAccount, map[string]interface{}{
		"chat_id":         message.Chat.ID,
		"account_id":      accountID,
		"organization_id": id.OrganizationID,
	})
	return h.sendSuccess(ctx, bot, message.Chat.ID, locales.GetMessage(localizer, "MsgLinked", map[string]interface{}{
		"Name": id.Employee.Name,
	}, nil))
}

// HandleHelp lists the available commands.
func (h *MessageHandler) HandleHelp(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	localizer := h.getLocalizer(message.From)

	var helpText strings.Builder
	helpText.WriteString(locales.GetMessage(localizer, "MsgHelpHeader", nil, nil) + "\n")
	for _, cmd := range h.commands {
		helpText.WriteString(fmt.Sprintf("/%s - %s\n", cmd.Command, locales.GetMessage(localizer, cmd.Description, nil, nil)))
	}
	helpText.WriteString(locales.GetMessage(localizer, "MsgHelpFooter", nil, nil))

	h.RecordUserActivity(ctx, message.From, ActionCommandHelp, map[string]interface{}{
		"chat_id": message.Chat.ID,
	})
	return h.sendSuccess(ctx, bot, message.Chat.ID, helpText.String())
}

// HandleVersion handles the /version command.
func (h *MessageHandler) HandleVersion(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	versionText := locales.GetMessage(h.getLocalizer(message.From), "MsgVersion", map[string]interface{}{
		"Version": h.version,
	}, nil)

	h.RecordUserActivity(ctx, message.From, ActionCommandVersion, map[string]interface{}{
		"chat_id": message.Chat.ID,
		"version": h.version,
	})
	return h.sendSuccess(ctx, bot, message.Chat.ID, versionText)
}

// HandleModeration opens the moderation queue.
func (h *MessageHandler) HandleModeration(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	h.recordCommand(ctx, message, ActionCommandModeration)
	return h.workflows.StartBrowsing(ctx, message, session.FlowModeration)
}

// HandleDrafts opens the publication drafts.
func (h *MessageHandler) HandleDrafts(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	h.recordCommand(ctx, message, ActionCommandDrafts)
	return h.workflows.StartBrowsing(ctx, message, session.FlowDrafts)
}

// HandleVideos opens the video cut drafts.
func (h *MessageHandler) HandleVideos(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	h.recordCommand(ctx, message, ActionCommandVideos)
	return h.workflows.StartBrowsing(ctx, message, session.FlowVideoCuts)
}

// HandleGenerate starts generating a publication.
func (h *MessageHandler) HandleGenerate(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	h.recordCommand(ctx, message, ActionCommandGenerate)
	return h.workflows.StartGenerate(ctx, message)
}

// HandleCut asks for a YouTube link to cut.
func (h *MessageHandler) HandleCut(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	h.recordCommand(ctx, message, ActionCommandCut)
	return h.workflows.StartVideoCut(ctx, message)
}

// HandleCancel leaves the current workflow.
func (h *MessageHandler) HandleCancel(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	h.recordCommand(ctx, message, ActionCommandCancel)
	return h.workflows.Cancel(ctx, message)
}

// HandleUnlink removes the binding of the chat and drops its session.
func (h *MessageHandler) HandleUnlink(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	if err := h.identities.Unlink(ctx, message.Chat.ID); err != nil {
		return h.sendError(ctx, bot, message, err)
	}
	if err := h.workflows.Forget(ctx, message.Chat.ID); err != nil {
		log.Printf("[Cmd:unlink Chat:%d] %v", message.Chat.ID, err)
	}
	h.recordCommand(ctx, message, ActionCommandUnlink)
	return h.sendSuccess(ctx, bot, message.Chat.ID, locales.GetMessage(h.getLocalizer(message.From), "MsgUnlinked", nil, nil))
}

func (h *MessageHandler) recordCommand(ctx context.Context, message telego.Message, action string) {
	h.RecordUserActivity(ctx, message.From, action, map[string]interface{}{
		"chat_id": message.Chat.ID,
	})
}

// setupCommands registers the bot's commands with Telegram, with
// descriptions in the default language.
func (h *MessageHandler) setupCommands(ctx context.Context, bot telegoapi.BotAPI) error {
	if len(h.commands) == 0 {
		log.Println("No commands defined in handler, skipping SetMyCommands.")
		return nil
	}
	localizer := locales.NewLocalizer()

	commands := make([]telego.BotCommand, 0, len(h.commands))
	for _, cmd := range h.commands {
		commands = append(commands, telego.BotCommand{
			Command:     cmd.Command,
			Description: locales.GetMessage(localizer, cmd.Description, nil, nil),
		})
	}
	if err := bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{Commands: commands}); err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}
	log.Printf("Successfully set %d bot commands.", len(commands))
	return nil
}

// SetupCommands is setupCommands for the bot start-up.
func (h *MessageHandler) SetupCommands(ctx context.Context, bot telegoapi.BotAPI) error {
	return h.setupCommands(ctx, bot)
}
