package handlers

import (
	"context"
	"fmt"

	"kontur-content-bot/internal/auth"
	"kontur-content-bot/internal/database"
	telegoapi "kontur-content-bot/pkg/telegoapi"

	"github.com/mymmrac/telego"
)

// Command represents a bot command, mapping the command string to its description and handler function.
type Command struct {
	Command     string // The command string (e.g., "start").
	Description string // Message ID of the description shown in the menu and in /help.
	Handler     func(context.Context, telegoapi.BotAPI, telego.Message) error
}

// MessageHandler handles commands and the messages no workflow consumed.
type MessageHandler struct {
	version  string
	commands []Command

	actionLogger database.UserActionLogger
	userRepo     database.UserRepository
	identities   auth.IdentityResolver
	workflows    WorkflowManager
}

// NewMessageHandler creates and initializes a new MessageHandler instance.
func NewMessageHandler(
	version string,
	actionLogger database.UserActionLogger,
	userRepo database.UserRepository,
	identities auth.IdentityResolver,
	workflows WorkflowManager,
) (*MessageHandler, error) {
	if actionLogger == nil || userRepo == nil {
		return nil, fmt.Errorf("user loggers cannot be nil")
	}
	if identities == nil {
		return nil, fmt.Errorf("identity resolver cannot be nil")
	}
	if workflows == nil {
		return nil, fmt.Errorf("workflow manager cannot be nil")
	}
	if version == "" {
		version = "dev"
	}
	h := &MessageHandler{
		version:      version,
		actionLogger: actionLogger,
		userRepo:     userRepo,
		identities:   identities,
		workflows:    workflows,
	}
	h.commands = []Command{
		{Command: "start", Description: "CmdStartDesc", Handler: h.HandleStart},
		{Command: "moderation", Description: "CmdModerationDesc", Handler: h.HandleModeration},
		{Command: "drafts", Description: "CmdDraftsDesc", Handler: h.HandleDrafts},
		{Command: "videos", Description: "CmdVideosDesc", Handler: h.HandleVideos},
		{Command: "generate", Description: "CmdGenerateDesc", Handler: h.HandleGenerate},
		{Command: "cut", Description: "CmdCutDesc", Handler: h.HandleCut},
		{Command: "cancel", Description: "CmdCancelDesc", Handler: h.HandleCancel},
		{Command: "help", Description: "CmdHelpDesc", Handler: h.HandleHelp},
		{Command: "version", Description: "CmdVersionDesc", Handler: h.HandleVersion},
		{Command: "unlink", Description: "CmdUnlinkDesc", Handler: h.HandleUnlink},
	}
	return h, nil
}

// GetCommandHandler retrieves the handler function associated with a specific command string (e.g., "start").
// It returns nil if the command is not found.
func (h *MessageHandler) GetCommandHandler(command string) func(context.Context, telegoapi.BotAPI, telego.Message) error {
	for _, cmd := range h.commands {
		if cmd.Command == command {
			return cmd.Handler
		}
	}
	return nil
}
