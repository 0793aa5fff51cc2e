package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/alerter"
	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/api"
	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/config"
	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/notifier"
	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/poller"
	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/recorder"
	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/store"
	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/transport"
	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/version"
)

func main() {
	configPath := flag.String("config", "settings.yaml", "Path to settings file")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	// Log buffer for the /api/logs endpoint (captures last 1000 entries)
	logBuffer := api.NewLogBuffer(1000)

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logLevelParsed, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		logLevelParsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevelParsed)

	multiWriter := io.MultiWriter(os.Stdout, logBuffer)
	logger := zerolog.New(multiWriter).With().
		Timestamp().
		Str("version", version.GetVersion()).
		Logger()

	logger.Info().Msg("Starting PowerTag monitor")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("config_path", *configPath).
			Msg("Failed to load configuration")
	}

	registers, err := cfg.BuildRegisterMap()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid register map")
	}

	logger.Info().
		Int("gateways", len(cfg.Modbus.Gateways)).
		Int("powertags", len(cfg.PowerTags)).
		Int("registers", registers.Len()).
		Msg("Configuration loaded")

	// One Modbus TCP transport per gateway, shared by both bank loops.
	transports := make(map[string]transport.Transport, len(cfg.Modbus.Gateways))
	for _, gw := range cfg.Modbus.Gateways {
		transports[gw.Name] = transport.NewModbusTCP(gw.Address, cfg.Modbus.Port, cfg.Timeout(), logger)
	}

	discord := notifier.NewNotifier(cfg.DiscordWebhook, logger)
	discord.SendStartup(cfg.Thresholds)

	alertEngine := alerter.NewEngine(cfg.Thresholds, cfg.Cooldown(), discord, logger)
	readings := store.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup

	rec := recorder.New(cfg.Storage, logger)
	if rec != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Run(ctx)
		}()
	}

	var tap poller.Tap
	if rec != nil {
		tap = rec
	}
	p := poller.New(cfg, registers, transports, alertEngine, readings, tap, logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.Run(ctx)
	}()

	apiServer := api.NewServer(readings, alertEngine, cfg.APIPort, logger)
	apiServer.SetLogBuffer(logBuffer)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error().
				Err(err).
				Msg("API server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info().Msg("PowerTag monitor running, press Ctrl+C to stop")
	<-sigChan
	logger.Info().Msg("Shutting down...")

	cancel()
	wg.Wait()

	for name, tr := range transports {
		if err := tr.Close(); err != nil {
			logger.Error().
				Err(err).
				Str("gateway", name).
				Msg("Error closing transport")
		}
	}

	discord.SendShutdown()
	logger.Info().Msg("PowerTag monitor stopped")
}
