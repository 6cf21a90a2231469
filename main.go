package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	appbot "kontur-content-bot/bot"
	"kontur-content-bot/internal/auth"
	"kontur-content-bot/internal/backend"
	"kontur-content-bot/internal/config"
	"kontur-content-bot/internal/content"
	"kontur-content-bot/internal/database"
	"kontur-content-bot/internal/handlers"
	"kontur-content-bot/internal/locales"
	"kontur-content-bot/internal/mediagroups"
	"kontur-content-bot/internal/session"
	"kontur-content-bot/internal/workflows"
	telegoapi "kontur-content-bot/pkg/telegoapi"

	sentry "github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	if err := locales.Init(cfg.DefaultLanguage); err != nil {
		log.Fatalf("Failed to initialize locales: %v", err)
	}

	err = sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.AppEnv,
		Release:          cfg.Version,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// MongoDB: chat bindings, user activity and the audit trail
	connectCtx, cancelConnect := context.WithTimeout(ctx, 15*time.Second)
	client, db, err := database.ConnectDB(connectCtx, cfg.MongoDBURI, cfg.MongoDBDatabase)
	if err == nil {
		err = database.EnsureIndexes(connectCtx, db)
	}
	cancelConnect()
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
			sentry.CaptureException(err)
		} else {
			log.Println("Disconnected from MongoDB.")
		}
	}()
	mongoLogger := database.NewMongoLogger(db)
	stateRepo := database.NewMongoStateRepository(db)

	// Sessions survive restarts only with Redis
	var sessions session.Store
	if cfg.RedisURL != "" {
		redisStore, err := session.NewRedisStore(cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			sentry.CaptureException(err)
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer func() {
			if err := redisStore.Close(); err != nil {
				log.Printf("Error closing Redis client: %v", err)
			}
		}()
		sessions = redisStore
	} else {
		sessions = session.NewMemoryStore(cfg.SessionTTL)
	}

	backendOpts := []backend.Option{backend.WithTimeout(cfg.BackendTimeout), backend.WithDebug(cfg.Debug)}
	contentClient := backend.NewContentClient(cfg.ContentServiceURL, backendOpts...)
	employeeClient := backend.NewEmployeeClient(cfg.EmployeeServiceURL, backendOpts...)

	botOpts := []telego.BotOption{telego.WithDefaultLogger(false, false)}
	if cfg.Debug {
		botOpts = []telego.BotOption{telego.WithDefaultDebugLogger()}
	}
	if cfg.TelegramAPIURL != "" {
		botOpts = append(botOpts, telego.WithAPIServer(cfg.TelegramAPIURL))
	}
	tgBot, err := telego.NewBot(cfg.BotToken, botOpts...)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to create telego bot: %v", err)
	}
	me, err := tgBot.GetMe(ctx)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to get bot info: %v", err)
	}
	log.Printf("Authorized as @%s (version %s)", me.Username, cfg.Version)

	var api telegoapi.BotAPI = appbot.NewRetryingBot(tgBot, 3)

	identities, err := auth.NewResolver(stateRepo, employeeClient)
	if err != nil {
		log.Fatal(err)
	}

	workflowManager, err := workflows.NewManager(workflows.Deps{
		Bot:        api,
		Gateway:    contentClient,
		Media:      telegoapi.NewFileDownloader(api),
		Sessions:   sessions,
		Identities: identities,
		Audit:      mongoLogger,
		Options: content.Options{
			Compare:                     content.CompareOptions{TagOrderSensitive: cfg.TagOrderSensitive},
			RollbackOnTransitionFailure: cfg.RollbackOnTransitionFailure,
		},
		Debug: cfg.Debug,
	})
	if err != nil {
		log.Fatal(err)
	}

	messageHandler, err := handlers.NewMessageHandler(cfg.Version, mongoLogger, mongoLogger, identities, workflowManager)
	if err != nil {
		log.Fatal(err)
	}
	if err := messageHandler.SetupCommands(ctx, api); err != nil {
		log.Printf("Warning: %v", err)
	}

	updates, err := tgBot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		AllowedUpdates: []string{"message", "callback_query"},
	})
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to start long polling: %v", err)
	}

	appBot, err := appbot.New(appbot.BotDeps{
		Bot:              api,
		UpdatesChan:      updates,
		Debug:            cfg.Debug,
		Handler:          messageHandler,
		MediaGroups:      mediagroups.NewCollector(cfg.AlbumDelay, mediagroups.DefaultMaxGroupSize),
		UpdatesPerSecond: cfg.UpdatesPerSecond,
	})
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}

	appBot.Start(ctx)

	log.Println("Shutting down bot...")
	appBot.Stop()
	log.Println("Bot shutdown complete.")
}
