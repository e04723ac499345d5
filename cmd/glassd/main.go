package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/skvn/glassd/internal/agent"
	"github.com/skvn/glassd/internal/audio"
	"github.com/skvn/glassd/internal/capture"
	"github.com/skvn/glassd/internal/config"
	"github.com/skvn/glassd/internal/history"
	"github.com/skvn/glassd/internal/httpapi"
	"github.com/skvn/glassd/internal/media"
	"github.com/skvn/glassd/internal/observability"
	"github.com/skvn/glassd/internal/voice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := history.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("history store init failed: %v", err)
	}
	defer store.Close()
	log.Printf("history store: %s", store.Mode())

	adapter, err := agent.NewAdapter(agent.Config{
		Mode:    cfg.AgentMode,
		HTTPURL: cfg.AgentHTTPURL,
	})
	if err != nil {
		log.Fatalf("agent adapter init failed: %v", err)
	}

	vision := agent.NewVisionClient(agent.VisionConfig{
		APIKey: cfg.OpenAIAPIKey,
		Model:  cfg.OpenAIVisionModel,
	})

	newDevice, err := audio.NewDeviceFactory(cfg.AudioBackend)
	if err != nil {
		log.Fatalf("audio backend init failed: %v", err)
	}
	log.Printf("audio backend: %s", newDevice().Name())

	format := audio.Format{
		SampleRate:    cfg.TTSSampleRate,
		Channels:      cfg.TTSChannels,
		BitsPerSample: cfg.TTSBitsPerSample,
		FrameBytes:    cfg.TTSFrameBytes,
	}
	synthesizer := voice.NewDeepgramSynthesizer(voice.DeepgramConfig{
		APIKey:     cfg.DeepgramAPIKey,
		BaseURL:    cfg.DeepgramTTSURL,
		Model:      cfg.DeepgramTTSModel,
		HistoryDir: cfg.HistoryDir,
		Format:     format,
	}, newDevice, metrics)

	transcriber := voice.NewElevenLabsTranscriber(voice.ElevenLabsConfig{
		APIKey:  cfg.ElevenLabsAPIKey,
		BaseURL: cfg.ElevenLabsBaseURL,
		ModelID: cfg.ElevenLabsSTTModel,
	})

	tracker := capture.NewTracker(cfg.PendingImageTimeout)
	tracker.SetEventHook(func(event string) {
		metrics.CaptureEvents.WithLabelValues(event).Inc()
	})

	library, err := media.NewLibrary(cfg.UploadDir, cfg.HistoryDir)
	if err != nil {
		log.Fatalf("media library init failed: %v", err)
	}

	api := httpapi.New(cfg, tracker, library, transcriber, synthesizer, adapter, vision, store, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	library.StartJanitor(runCtx, cfg.RetentionSweepInterval, media.RetentionPolicy{
		MaxAge:   cfg.RetentionMaxAge,
		MaxFiles: cfg.RetentionMaxFiles,
	}, func(err error) {
		log.Printf("media retention sweep failed: %v", err)
	})

	if cfg.StartupPrompt != "" {
		go runStartupPrompt(runCtx, cfg.StartupPrompt, adapter, synthesizer)
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}
	api.Close()

	log.Printf("shutdown complete")
}

// runStartupPrompt greets the wearer once the process is up. Best effort:
// any failure is logged and the server keeps going.
func runStartupPrompt(ctx context.Context, prompt string, adapter agent.Adapter, synthesizer voice.Synthesizer) {
	res, err := adapter.StreamQuery(ctx, agent.QueryRequest{Input: prompt}, nil)
	if err != nil {
		log.Printf("startup prompt failed: %v", err)
		return
	}
	if _, err := synthesizer.Speak(ctx, res.Text); err != nil {
		log.Printf("startup prompt playback failed: %v", err)
	}
}
