package handlers

import (
	"context"

	"kontur-content-bot/internal/session"

	"github.com/mymmrac/telego"
)

// WorkflowManager defines the workflow operations used by MessageHandler.
type WorkflowManager interface {
	StartBrowsing(ctx context.Context, message telego.Message, fl session.Flow) error
	StartGenerate(ctx context.Context, message telego.Message) error
	StartVideoCut(ctx context.Context, message telego.Message) error
	Cancel(ctx context.Context, message telego.Message) error
	Forget(ctx context.Context, chatID int64) error
	HandleMessage(ctx context.Context, message telego.Message) (processed bool, err error)
	HandleCallbackQuery(ctx context.Context, query telego.CallbackQuery) (processed bool, err error)
}
