package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parking-attendant/internal/barcode"
	"parking-attendant/internal/camera"
	"parking-attendant/internal/config"
	"parking-attendant/internal/events"
	"parking-attendant/internal/logging"
	"parking-attendant/internal/ocr"
	"parking-attendant/internal/parking"
	"parking-attendant/internal/server"

	"golang.org/x/sync/errgroup"
)

var (
	mode = flag.String("mode", "cli", "Mode to run: cli, server, or both")
	port = flag.String("port", "", "Port for HTTP server (overrides PORT)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Port = *port
	}

	logging.Init(cfg.IsDevelopment())

	if err := run(cfg); err != nil {
		logging.Error(context.Background()).Err(err).Msg("parking attendant stopped")
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	telemetry, err := parking.NewTelemetryProvider(ctx, cfg.OTelServiceName, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer shutdownTelemetry(telemetry)

	desk, closeDesk, err := newDesk(ctx, cfg, telemetry)
	if err != nil {
		return err
	}
	defer closeDesk()

	switch *mode {
	case "cli":
		runCLI(ctx, desk, telemetry)
		return nil
	case "server":
		return runServer(ctx, cfg, desk)
	case "both":
		return runBoth(ctx, cancel, cfg, desk, telemetry)
	default:
		return fmt.Errorf("invalid mode: %s. Must be cli, server, or both", *mode)
	}
}

// newDesk wires the attendant, the capturer and their collaborators around
// one registry and one form.
func newDesk(ctx context.Context, cfg *config.Config, telemetry *parking.TelemetryProvider) (*parking.Desk, func(), error) {
	registry, err := parking.NewInstrumentedRegistry(parking.NewSessionRegistry(), telemetry)
	if err != nil {
		return nil, nil, fmt.Errorf("create session registry: %w", err)
	}

	form := &parking.Form{}
	tickets := parking.NewTicketFormatter(barcode.NewCode128Encoder(parking.BarcodeWidth, parking.BarcodeHeight))
	opts := []parking.AttendantOption{
		parking.WithMoneyFormatter(parking.NewMoneyFormatter(cfg.CurrencySymbol)),
	}

	closer := func() {}
	if cfg.EventsEnabled() {
		publisher, err := events.NewPublisher(cfg.RabbitMQURL, cfg.EventsQueue)
		if err != nil {
			logging.Warn(ctx).Err(err).Msg("event publishing disabled")
		} else {
			logging.Info(ctx).Str("queue", cfg.EventsQueue).Msg("publishing parking events")
			opts = append(opts, parking.WithEventPublisher(publisher))
			closer = func() {
				if err := publisher.Close(); err != nil {
					logging.Warn(context.Background()).Err(err).Msg("close event publisher")
				}
			}
		}
	}

	attendant, err := parking.NewAttendant(registry, parking.NewFeeCalculator(parking.Money(cfg.BaseRate)), tickets, form, telemetry, opts...)
	if err != nil {
		closer()
		return nil, nil, fmt.Errorf("create attendant: %w", err)
	}

	capturer, err := parking.NewCapturer(newCamera(cfg), newRecognizer(cfg), form, cfg.CameraDevice, cfg.CaptureKeyWait, telemetry)
	if err != nil {
		closer()
		return nil, nil, fmt.Errorf("create capturer: %w", err)
	}

	return parking.NewDesk(attendant, capturer, registry, form), closer, nil
}

func newCamera(cfg *config.Config) parking.Camera {
	switch cfg.CameraBackend {
	case config.CameraSnapshot:
		return camera.NewSnapshotCamera(cfg.CameraURL, cfg.CameraUsername, cfg.CameraPassword, cfg.CameraTimeout)
	case config.CameraStill:
		return camera.NewStillCamera(cfg.CameraStillPath)
	}
	return nil
}

func newRecognizer(cfg *config.Config) parking.TextRecognizer {
	if cfg.OCRBackend == config.OCRAnthropic {
		return ocr.NewAnthropicRecognizer(cfg.AnthropicAPIKey, cfg.OCRModel)
	}
	return ocr.NewTesseract(cfg.TesseractPath)
}

func runCLI(ctx context.Context, desk *parking.Desk, telemetry *parking.TelemetryProvider) {
	shell := parking.NewShell(desk, os.Stdin, os.Stdout, telemetry)
	shell.Run(ctx)
	logging.Info(ctx).Msg("CLI exited")
}

func runServer(ctx context.Context, cfg *config.Config, desk *parking.Desk) error {
	srv := server.NewServer(cfg.Port, desk, cfg.OTelServiceName)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		return shutdownServer(srv)
	})

	return g.Wait()
}

// runBoth stops the server once the shell ends, and the shell once the
// server fails.
func runBoth(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, desk *parking.Desk, telemetry *parking.TelemetryProvider) error {
	srv := server.NewServer(cfg.Port, desk, cfg.OTelServiceName)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		runCLI(gctx, desk, telemetry)
		cancel()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return shutdownServer(srv)
	})

	return g.Wait()
}

func shutdownServer(srv *server.Server) error {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func shutdownTelemetry(telemetry *parking.TelemetryProvider) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logging.Info(ctx).Msg("shutting down telemetry")
	if err := telemetry.Shutdown(ctx); err != nil {
		logging.Error(ctx).Err(err).Msg("shutting down telemetry")
	}
}
