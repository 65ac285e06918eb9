package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/satriahrh/lingualverse/adapters/gateway"
	"github.com/satriahrh/lingualverse/adapters/llm"
	"github.com/satriahrh/lingualverse/adapters/stt"
	"github.com/satriahrh/lingualverse/adapters/tts"
	"github.com/satriahrh/lingualverse/domain/repositories"
	"github.com/satriahrh/lingualverse/internal/api"
	"github.com/satriahrh/lingualverse/internal/audio"
	"github.com/satriahrh/lingualverse/internal/config"
	"github.com/satriahrh/lingualverse/internal/intent"
	"github.com/satriahrh/lingualverse/internal/orchestrator"
	"github.com/satriahrh/lingualverse/internal/saga"
	"github.com/satriahrh/lingualverse/internal/status"
	"github.com/satriahrh/lingualverse/internal/websocket"
)

func main() {
	envFile := flag.String("env", ".env", "dotenv file to load before reading the environment")
	logLevel := flag.String("log-level", "", "override LOG_LEVEL (debug or info)")
	flag.Parse()

	envErr := godotenv.Load(*envFile)
	if *logLevel != "" {
		os.Setenv("LOG_LEVEL", *logLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		// logger is not configured yet
		zap.NewExample().Fatal("Failed to load configuration", zap.Error(err))
	}

	var logger *zap.Logger
	if cfg.IsDevelopment() {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	if envErr != nil {
		logger.Info("No dotenv file loaded", zap.String("file", *envFile), zap.Error(envErr))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize adapters
	gw, err := gateway.NewClient(gateway.Config{
		BaseURL:    cfg.Gateway.URL,
		Timeout:    cfg.Gateway.Timeout,
		SocksProxy: cfg.Gateway.SocksProxy,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create gateway client", zap.Error(err))
	}

	clips := audio.NewLibrary(cfg.AudioLibrarySize, logger)

	text, err := newTextProcessor(ctx, cfg, gw, logger)
	if err != nil {
		logger.Fatal("Failed to create text processor", zap.Error(err))
	}

	speechToText, closeSTT, err := newSpeechToText(ctx, cfg, gw, logger)
	if err != nil {
		logger.Fatal("Failed to create speech-to-text", zap.Error(err))
	}
	defer closeSTT()

	textToSpeech, err := newTextToSpeech(cfg, gw, clips, logger)
	if err != nil {
		logger.Fatal("Failed to create text-to-speech", zap.Error(err))
	}

	router := intent.NewRouter(disabledActions(cfg.Features)...)
	logger.Info("Intent rules enabled", zap.Any("actions", router.Actions()))

	sagas := saga.NewManager(logger)
	go sagas.LogEvents(ctx)

	hub := websocket.NewHub(websocket.Dependencies{
		Text:   text,
		TTS:    textToSpeech,
		STT:    speechToText,
		Sagas:  sagas,
		Router: router,
		Options: orchestrator.Options{
			DegradeOnSpeechFailure: cfg.Orchestrator.DegradeOnTTSFailure,
			Timeout:                cfg.Orchestrator.RequestTimeout,
		},
		SpeechEnabled: cfg.Features.Speech,
		SpeechLocale:  cfg.SpeechLanguage,
	}, logger)
	go hub.Run(ctx)

	monitor := status.NewMonitor(gw, cfg.StatusPollInterval, logger)
	monitor.OnChange(hub.BroadcastStatus)
	monitor.Start()
	defer monitor.Stop()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api.InitRoutes(e, hub, monitor, clips, logger)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("gateway", gw.BaseURL()),
		zap.String("textProvider", cfg.Text.Provider),
		zap.String("sttProvider", cfg.Speech.Provider),
		zap.String("ttsProvider", cfg.Voice.Provider))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newTextProcessor(ctx context.Context, cfg *config.Config, gw *gateway.Client, logger *zap.Logger) (repositories.TextProcessor, error) {
	if cfg.Text.Provider != config.ProviderGemini {
		return gw, nil
	}
	return llm.NewGeminiText(ctx, llm.GeminiConfig{
		APIKey: cfg.Text.GeminiAPIKey,
		Model:  cfg.Text.GeminiModel,
	}, logger)
}

func newSpeechToText(ctx context.Context, cfg *config.Config, gw *gateway.Client, logger *zap.Logger) (repositories.SpeechToText, func(), error) {
	if cfg.Speech.Provider != config.ProviderGoogle {
		return gw, func() {}, nil
	}
	google, err := stt.NewGoogleSpeechToText(ctx, repositories.AudioConfig{
		SampleRate: cfg.Speech.SampleRate,
		Encoding:   cfg.Speech.Encoding,
		Language:   cfg.Speech.Language,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return google, func() {
		if err := google.Close(); err != nil {
			logger.Warn("Failed to close speech client", zap.Error(err))
		}
	}, nil
}

func newTextToSpeech(cfg *config.Config, gw *gateway.Client, clips *audio.Library, logger *zap.Logger) (repositories.TextToSpeech, error) {
	if cfg.Voice.Provider != config.ProviderElevenLabs {
		return gw, nil
	}
	elevenCfg := tts.NewElevenLabsConfigFromEnv()
	elevenCfg.PublicBaseURL = cfg.PublicBaseURL
	return tts.NewElevenLabsTTS(elevenCfg, clips, logger)
}

// disabledActions turns feature flags off in the intent router; disabled
// intents fall through to the default multilingual reply
func disabledActions(features config.FeatureFlags) []intent.Action {
	var disabled []intent.Action
	if !features.Translation {
		disabled = append(disabled, intent.ActionTranslate)
	}
	if !features.Grammar {
		disabled = append(disabled, intent.ActionCorrect)
	}
	if !features.Sentiment {
		disabled = append(disabled, intent.ActionSentiment)
	}
	return disabled
}
