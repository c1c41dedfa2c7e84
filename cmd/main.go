package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	grpcapi "ai-speech-blockifier/internal/api/grpc"
	"ai-speech-blockifier/internal/app"
	"ai-speech-blockifier/internal/config"
	"ai-speech-blockifier/internal/events"
	httpapi "ai-speech-blockifier/internal/http"
	"ai-speech-blockifier/internal/observability"
	"ai-speech-blockifier/internal/observability/metrics"
	"ai-speech-blockifier/internal/schema"
	"ai-speech-blockifier/internal/service/blockify"
	"ai-speech-blockifier/internal/service/stt"
	"ai-speech-blockifier/internal/service/stt/assemblyai"
	"ai-speech-blockifier/internal/service/stt/deepgram"
	"ai-speech-blockifier/internal/service/stt/google"
	"ai-speech-blockifier/internal/service/stt/mock"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := config.Load()
	application := app.New(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, application); err != nil {
		log.Fatal().Err(err).Msg("Service stopped with error")
	}
}

func run(ctx context.Context, application *app.Application) error {
	cfg := application.Cfg
	m := metrics.DefaultMetrics

	provider, closeProvider, err := newProvider(ctx, cfg, m)
	if err != nil {
		return fmt.Errorf("create %s provider: %w", cfg.STT.Provider, err)
	}
	defer closeProvider()

	// Create Kafka publisher with separate topics for documents and failures
	publisher := events.New(&events.Config{
		Enabled:        cfg.Kafka.Enabled,
		Brokers:        cfg.Kafka.Brokers,
		TopicDocuments: cfg.Kafka.TopicDocuments,
		TopicFailures:  cfg.Kafka.TopicFailures,
		Principal:      cfg.Kafka.Principal,
	})
	defer publisher.Close()

	handler, err := blockify.New(provider, blockify.Config{
		Options: stt.Options{
			LanguageCode:      cfg.STT.LanguageCode,
			SpeakerDetection:  cfg.STT.SpeakerDetection,
			AudioIntelligence: cfg.STT.AudioIntelligence,
			Summarize:         cfg.STT.Summarize,
		},
		Limits:    blockify.Limits{MaxAudioBytes: cfg.Limits.MaxAudioBytes},
		Validator: schema.New(),
		Publisher: publisher,
		Metrics:   m,
	})
	if err != nil {
		return err
	}

	var ready atomic.Bool

	obs := observability.NewServer(cfg.Observability.MetricsAddr, nil, ready.Load)
	obs.Start()

	httpServer := &http.Server{
		Addr: ":" + cfg.Service.HTTPPort,
		Handler: httpapi.NewRouter(httpapi.RouterConfig{
			Blockifier:    handler,
			MaxAudioBytes: cfg.Limits.MaxAudioBytes,
			Ready:         ready.Load,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+cfg.Service.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	grpcServer := grpcapi.New(m)

	errCh := make(chan error, 2)
	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("HTTP API listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()

	if err := application.Start(); err != nil {
		return err
	}
	ready.Store(true)
	grpcServer.SetServing(true)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	ready.Store(false)
	application.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	grpcServer.GracefulStop()
	if err := obs.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Observability server shutdown failed")
	}

	log.Info().Int("inFlight", handler.InFlight()).Msg("Shutdown complete")
	return serveErr
}

// newProvider builds the configured STT provider and a func releasing it.
func newProvider(ctx context.Context, cfg *config.Configuration, m *metrics.Metrics) (stt.Provider, func(), error) {
	noop := func() {}

	switch cfg.STT.Provider {
	case config.ProviderAssemblyAI:
		return assemblyai.New(assemblyai.Config{
			BaseURL:  cfg.AssemblyAI.BaseURL,
			APIToken: cfg.AssemblyAI.APIToken,
			Timeout:  cfg.STT.RequestTimeout,
		}, nil, m), noop, nil

	case config.ProviderDeepgram:
		return deepgram.New(deepgram.Config{
			BaseURL:  cfg.Deepgram.BaseURL,
			APIToken: cfg.Deepgram.APIToken,
			Model:    cfg.Deepgram.Model,
			Timeout:  cfg.STT.RequestTimeout,
		}, nil, m), noop, nil

	case config.ProviderGoogle:
		gcfg := google.DefaultConfig()
		gcfg.LanguageCode = cfg.STT.LanguageCode
		gcfg.SampleRateHz = int32(cfg.Google.SampleRateHz)
		gcfg.AudioEncoding = cfg.Google.AudioEncoding
		gcfg.APIKey = cfg.Google.APIKey
		gcfg.CredentialsFile = cfg.Google.CredentialsFile

		adapter, err := google.New(ctx, gcfg, m)
		if err != nil {
			return nil, noop, err
		}
		return adapter, func() {
			if err := adapter.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close Google STT client")
			}
		}, nil

	case config.ProviderMock:
		return mock.New(mock.DefaultConfig()), noop, nil

	default:
		return nil, noop, fmt.Errorf("%w: unknown provider %q", config.ErrInvalidConfig, cfg.STT.Provider)
	}
}
