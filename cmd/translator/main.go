// Translator server - captures the screen, translates on-screen text and serves the overlay
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GriffinCanCode/autotranslator/internal/capture"
	"github.com/GriffinCanCode/autotranslator/internal/config"
	"github.com/GriffinCanCode/autotranslator/internal/grpcclient"
	"github.com/GriffinCanCode/autotranslator/internal/history"
	"github.com/GriffinCanCode/autotranslator/internal/lang"
	"github.com/GriffinCanCode/autotranslator/internal/notify"
	"github.com/GriffinCanCode/autotranslator/internal/ocr"
	"github.com/GriffinCanCode/autotranslator/internal/overlay"
	"github.com/GriffinCanCode/autotranslator/internal/pipeline"
	"github.com/GriffinCanCode/autotranslator/internal/resilience"
	"github.com/GriffinCanCode/autotranslator/internal/syncx"
	"github.com/GriffinCanCode/autotranslator/internal/translate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	level, _ := cfg.SlogLevel()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
	slog.Debug("configuration loaded", "config", cfg.String())

	// Connect to inference gRPC server
	gcfg := grpcclient.DefaultConfig(cfg.InferenceAddr)
	gcfg.RequireWifi = cfg.RequireWifi
	inference, err := grpcclient.New(gcfg)
	if err != nil {
		slog.Error("failed to connect to inference server", "addr", cfg.InferenceAddr, "error", err)
		os.Exit(1)
	}
	defer func() { _ = inference.Close() }()

	extractor, err := newExtractor(cfg, inference)
	if err != nil {
		slog.Error("failed to create text extractor", "engine", cfg.OCREngine, "error", err)
		os.Exit(1)
	}
	if c, ok := extractor.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}

	var detector lang.Detector = inference
	if cfg.Detector == "local" {
		detector = lang.NewLocalDetector()
	}

	var (
		factory    translate.Factory         = inference
		downloader translate.ModelDownloader = inference
	)
	if cfg.Translator == "stub" {
		stub := translate.NewStubFactory(nil)
		factory, downloader = stub, stub
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := notify.NewBroadcaster()
	notifiers := notify.Multi{bus}
	if cfg.MQTTBrokerURL != "" {
		relay := notify.NewMQTTRelay(notify.MQTTConfig{
			BrokerURL:   cfg.MQTTBrokerURL,
			ClientID:    cfg.MQTTClientID,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
			TopicPrefix: cfg.MQTTTopicPrefix,
		})
		if err := relay.Connect(ctx); err != nil {
			slog.Warn("mqtt relay disabled", "broker", cfg.MQTTBrokerURL, "error", err)
		} else {
			notifiers = append(notifiers, relay)
		}
	}

	state := syncx.NewCell(translate.Result{})
	hist := history.NewStore(cfg.HistorySize)
	opts := capture.Options{Display: cfg.Display, ADBPath: cfg.ADBPath, Serial: cfg.ADBSerial}

	pipe := pipeline.New(pipeline.Config{
		Interval:          cfg.CaptureInterval(),
		Target:            cfg.TargetLanguage,
		MaxWidth:          cfg.MaxWidth,
		MaxHeight:         cfg.MaxHeight,
		SkipSimilarFrames: cfg.SkipSimilarFrames,
	}, pipeline.Deps{
		Open:        func() (capture.Source, error) { return capture.Open(cfg.CaptureSource, opts) },
		OCR:         extractor,
		Detector:    detector,
		Translators: translate.NewCache(factory),
		State:       state,
		History:     hist,
		Notifier:    notifiers,
	})

	srv := overlay.New(pipe, state, hist, bus,
		overlay.WithPosition(overlay.Position{X: cfg.OverlayX, Y: cfg.OverlayY}),
		overlay.WithStatus("inference", func() any {
			return map[string]any{"connection": inference.ConnState(), "breakers": inference.Breakers()}
		}),
	)
	go srv.Run(ctx)

	if cfg.PrefetchModels {
		go translate.Prefetch(ctx, downloader, cfg.PrefetchLanguages, cfg.TargetLanguage, resilience.ModelRetryConfig())
	}

	if cfg.AutoStart {
		if err := pipe.Start(ctx); err != nil {
			slog.Error("capture start failed", "source", cfg.CaptureSource, "error", err)
		}
	}

	// Start HTTP server
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("translator server starting", "http", cfg.HTTPAddr, "inference", cfg.InferenceAddr, "source", cfg.CaptureSource)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")
	if err := pipe.Stop(); err != nil && !errors.Is(err, pipeline.ErrNotRunning) {
		slog.Error("capture stop error", "error", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	slog.Info("shutdown complete")
}

func newExtractor(cfg *config.Config, inference *grpcclient.Client) (ocr.Extractor, error) {
	if cfg.OCREngine == ocr.EngineTesseract {
		return ocr.NewTesseract(cfg.TesseractLangs)
	}
	return ocr.NewRemote(inference), nil
}
