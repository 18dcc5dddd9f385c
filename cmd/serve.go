package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/lingobot/internal/api"
	"github.com/lingobot/internal/config"
	"github.com/lingobot/internal/conversation"
	"github.com/lingobot/internal/database"
	"github.com/lingobot/internal/fastpath"
	"github.com/lingobot/internal/intake"
	"github.com/lingobot/internal/llm"
	"github.com/lingobot/internal/pipeline"
	"github.com/lingobot/internal/platform"
	"github.com/lingobot/internal/retry"
	"github.com/lingobot/internal/storage"
	"github.com/lingobot/internal/tasks"
	"github.com/lingobot/internal/transcribe"
)

// ServeCommand returns the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the webhook API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "port",
				Usage: "Override the configured listen port",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if port := c.Int("port"); port != 0 {
		cfg.Server.Port = port
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	convo, err := openConversationStore(cfg, logger)
	if err != nil {
		return err
	}

	retryConfig := retry.Config{
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  cfg.Retry.BaseDelay,
		MaxDelay:   cfg.Retry.MaxDelay,
		Multiplier: cfg.Retry.Multiplier,
		Jitter:     true,
		LogRetries: true,
	}

	backend, err := llm.NewLangChainBackend(context.Background(), llm.Options{
		Provider:    llm.Provider(cfg.AI.Provider),
		APIKey:      cfg.AI.APIKey,
		BaseURL:     cfg.AI.BaseURL,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
	})
	if err != nil {
		return fmt.Errorf("failed to create inference backend: %w", err)
	}
	inference := llm.NewResilientClient(backend, retryConfig, cfg.AI.Timeout, logger)

	transcriber := transcribe.NewResilientClient(
		transcribe.NewClient(cfg.Transcription.Endpoint, cfg.Transcription.APIKey, &http.Client{Timeout: cfg.Transcription.Timeout}, logger),
		retryConfig, cfg.Transcription.Timeout, logger,
	)

	messaging := platform.NewWhatsAppClient(platform.WhatsAppOptions{
		BaseURL:       cfg.WhatsApp.GraphURL,
		AccessToken:   cfg.WhatsApp.AccessToken,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		Timeout:       cfg.Audio.MediaTimeout,
	}, logger)

	objects := storage.NewHTTPStore(storage.HTTPStoreOptions{
		BaseURL: cfg.Storage.BaseURL,
		APIKey:  cfg.Storage.APIKey,
		Bucket:  cfg.Storage.Bucket,
		Timeout: cfg.Audio.MediaTimeout,
	}, logger)

	supervisor := tasks.NewSupervisor(logger)
	stats := intake.NewStats()

	router := fastpath.NewRouter(inference, convo, supervisor, stats, fastpath.Options{
		ContextPairs:   cfg.Chat.ContextPairs,
		PersistTimeout: cfg.Chat.PersistTimeout,
	}, logger)

	audio := pipeline.New(messaging, objects, transcriber, inference, convo, supervisor, pipeline.Options{
		TempDir:        cfg.Audio.TempDir,
		MediaTimeout:   cfg.Audio.MediaTimeout,
		PersistTimeout: cfg.Chat.PersistTimeout,
		LongAudio:      cfg.Audio.LongThreshold,
	}, logger)

	dispatcher := intake.NewDispatcher(router, audio, stats, logger)
	responder := platform.NewResponseDispatcher(messaging, logger)

	server := api.NewServer(api.Options{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		VerifyToken:    cfg.WhatsApp.VerifyToken,
		AppSecret:      cfg.WhatsApp.AppSecret,
		JWTSecret:      cfg.Auth.JWTSecret,
		PersistTimeout: cfg.Chat.PersistTimeout,
	}, dispatcher, responder, convo, supervisor, stats)

	logger.Info().Int("port", cfg.Server.Port).Msg("starting webhook server")
	return server.Start()
}

// openConversationStore connects to Postgres when a DATABASE_URL is
// available and falls back to the in-process store otherwise.
func openConversationStore(cfg *config.Config, logger zerolog.Logger) (conversation.Store, error) {
	db, err := database.Connect(cfg.Database.URL)
	if err != nil {
		if errors.Is(err, database.ErrNoDatabaseURL) {
			logger.Warn().Msg("no database configured, conversation history will not survive restarts")
			return conversation.NewMemoryStore(), nil
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info().Msg("connected to conversation database")
	return conversation.NewPostgresStore(db), nil
}
