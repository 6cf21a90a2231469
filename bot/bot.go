package bot

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"kontur-content-bot/internal/locales"
	"kontur-content-bot/internal/mediagroups"
	telegoapi "kontur-content-bot/pkg/telegoapi"

	"github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/ratelimit"
)

const updateTimeout = 90 * time.Second

// UpdateHandler is the part of handlers.MessageHandler the update loop uses.
type UpdateHandler interface {
	GetCommandHandler(command string) func(context.Context, telegoapi.BotAPI, telego.Message) error
	HandleUnknownCommand(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error
	ProcessWorkflowMessage(ctx context.Context, message telego.Message) (bool, error)
	HandleText(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error
	HandleCallbackQuery(ctx context.Context, bot telegoapi.BotAPI, query telego.CallbackQuery) error
	GetLocalizer(user *telego.User) *i18n.Localizer
}

// Bot runs the update loop and routes updates to the handler.
type Bot struct {
	bot         telegoapi.BotAPI
	updatesChan <-chan telego.Update
	debug       bool
	handler     UpdateHandler
	mediaGroups *mediagroups.Collector
	ratelimiter ratelimit.Limiter
}

// BotDeps holds the dependencies required by the Bot.
type BotDeps struct {
	Bot              telegoapi.BotAPI
	UpdatesChan      <-chan telego.Update
	Debug            bool
	Handler          UpdateHandler
	MediaGroups      *mediagroups.Collector
	UpdatesPerSecond int
}

// New creates a new Bot instance from its dependencies.
func New(deps BotDeps) (*Bot, error) {
	if deps.Bot == nil {
		return nil, fmt.Errorf("telego bot (BotAPI) instance cannot be nil")
	}
	if deps.Handler == nil {
		return nil, fmt.Errorf("message handler cannot be nil")
	}
	if deps.MediaGroups == nil {
		return nil, fmt.Errorf("media group collector cannot be nil")
	}
	if deps.UpdatesChan == nil {
		return nil, fmt.Errorf("updates channel cannot be nil")
	}
	rate := deps.UpdatesPerSecond
	if rate <= 0 {
		rate = 20
	}

	return &Bot{
		bot:         deps.Bot,
		updatesChan: deps.UpdatesChan,
		debug:       deps.Debug,
		handler:     deps.Handler,
		mediaGroups: deps.MediaGroups,
		ratelimiter: ratelimit.New(rate),
	}, nil
}

// commandName extracts "start" from "/start@kontur_bot 42".
func commandName(text string) string {
	if !strings.HasPrefix(text, "/") || len(text) < 2 {
		return ""
	}
	name := strings.Fields(text)[0][1:]
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name)
}

// report logs a handler failure and sends it to Sentry.
func report(logPrefix string, err error) {
	log.Printf("%s Handler error: %v", logPrefix, err)
	sentry.CaptureException(fmt.Errorf("%s handler error: %w", logPrefix, err))
}

// handleCommandUpdate processes a message identified as a command.
func (b *Bot) handleCommandUpdate(ctx context.Context, message telego.Message) {
	command := commandName(message.Text)
	logPrefix := fmt.Sprintf("[Cmd:%s Chat:%d]", command, message.Chat.ID)

	handlerFunc := b.handler.GetCommandHandler(command)
	if handlerFunc == nil {
		log.Printf("%s No handler found", logPrefix)
		if err := b.handler.HandleUnknownCommand(ctx, b.bot, message); err != nil {
			report(logPrefix, err)
		}
		return
	}
	if b.debug {
		log.Printf("%s Executing handler", logPrefix)
	}
	if err := handlerFunc(ctx, b.bot, message); err != nil {
		report(logPrefix, err)
	}
}

// handleMessageUpdate offers a message to the chat's workflow first and
// falls back to the generic text answer.
func (b *Bot) handleMessageUpdate(ctx context.Context, message telego.Message) {
	logPrefix := fmt.Sprintf("[Msg Chat:%d Msg:%d]", message.Chat.ID, message.MessageID)

	processed, err := b.handler.ProcessWorkflowMessage(ctx, message)
	if err != nil {
		report(logPrefix, err)
	}
	if processed {
		if b.debug {
			log.Printf("%s Processed by workflow", logPrefix)
		}
		return
	}
	if err := b.handler.HandleText(ctx, b.bot, message); err != nil {
		report(logPrefix, err)
	}
}

// handleAlbum is the collector's callback for a completed album. An image
// field takes one image, so the first one is used.
func (b *Bot) handleAlbum(ctx context.Context, groupID string, messages []telego.Message) error {
	if len(messages) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	first := messages[0]
	if first.Caption == "" {
		for _, m := range messages[1:] {
			if m.Caption != "" {
				first.Caption = m.Caption
				break
			}
		}
	}
	log.Printf("[Album Group:%s Chat:%d] Using message %d of %d", groupID, first.Chat.ID, first.MessageID, len(messages))

	processed, err := b.handler.ProcessWorkflowMessage(ctx, first)
	if err != nil {
		return err
	}
	if !processed {
		return b.handler.HandleText(ctx, b.bot, first)
	}
	if len(messages) > 1 {
		text := locales.GetMessage(b.handler.GetLocalizer(first.From), "MsgAlbumSingleImage", nil, nil)
		if _, err := b.bot.SendMessage(ctx, tu.Message(tu.ID(first.Chat.ID), text)); err != nil {
			log.Printf("[Album Group:%s] Failed to send album notice: %v", groupID, err)
		}
	}
	return nil
}

// handleCallbackQuery processes an incoming callback query.
func (b *Bot) handleCallbackQuery(ctx context.Context, query telego.CallbackQuery) {
	logPrefix := fmt.Sprintf("[Callback User:%d QueryID:%s]", query.From.ID, query.ID)
	if b.debug {
		log.Printf("%s Received callback query with data: %q", logPrefix, query.Data)
	}
	if err := b.handler.HandleCallbackQuery(ctx, b.bot, query); err != nil {
		report(logPrefix, err)
	}
}

// processUpdate routes incoming updates to the appropriate handlers.
func (b *Bot) processUpdate(ctx context.Context, update telego.Update) {
	b.ratelimiter.Take()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC recovered in processUpdate: %v\n%s", r, debug.Stack())
			sentry.CurrentHub().Recover(r)
			sentry.Flush(time.Second * 2)
		}
	}()

	processingCtx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	switch {
	case update.Message != nil:
		message := *update.Message
		if message.From == nil {
			log.Printf("Ignoring message %d from chat %d without sender", message.MessageID, message.Chat.ID)
			return
		}
		if message.Chat.Type != "" && message.Chat.Type != telego.ChatTypePrivate {
			if b.debug {
				log.Printf("Ignoring message %d from non-private chat %d", message.MessageID, message.Chat.ID)
			}
			return
		}

		switch {
		case commandName(message.Text) != "":
			b.handleCommandUpdate(processingCtx, message)
		case message.MediaGroupID != "":
			b.mediaGroups.Add(processingCtx, message, b.handleAlbum)
		default:
			b.handleMessageUpdate(processingCtx, message)
		}

	case update.CallbackQuery != nil:
		b.handleCallbackQuery(processingCtx, *update.CallbackQuery)

	default:
		if b.debug {
			log.Printf("Ignoring unhandled update type (ID: %d)", update.UpdateID)
		}
	}
}

// Start runs the update loop until ctx is done or the updates channel closes.
func (b *Bot) Start(ctx context.Context) {
	log.Println("Listening for updates...")

	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		log.Println("All update processing finished.")
	}()

	for {
		select {
		case <-ctx.Done():
			log.Println("Context done, stopping update processing...")
			return
		case update, ok := <-b.updatesChan:
			if !ok {
				log.Println("Updates channel closed.")
				return
			}
			wg.Add(1)
			go func(up telego.Update) {
				defer wg.Done()
				b.processUpdate(ctx, up)
			}(update)
		}
	}
}

// Stop drops albums that are still being collected.
func (b *Bot) Stop() {
	b.mediaGroups.Shutdown()
}
