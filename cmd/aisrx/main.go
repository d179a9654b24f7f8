package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/satellite-imsat/Projet-3A-SDR/internal/app"
	"github.com/satellite-imsat/Projet-3A-SDR/internal/mdns"
	"github.com/satellite-imsat/Projet-3A-SDR/internal/sdr"
	"github.com/satellite-imsat/Projet-3A-SDR/internal/telemetry"
)

func main() {
	const configPath = "aisrx.yaml"

	persistentCfg, err := loadOrCreateConfig(configPath)
	if err != nil {
		log.Fatal("load config", "err", err)
	}

	cfg, err := parseConfig(os.Args[1:], os.LookupEnv, persistentCfg)
	if err != nil {
		if err == pflag.ErrHelp {
			return
		}
		log.Fatal("parse config", "err", err)
	}
	if err := saveConfig(configPath, persistentFromCLI(cfg)); err != nil {
		log.Fatal("save config", "err", err)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "aisrx",
	})
	if level, err := log.ParseLevel(cfg.logLevel); err == nil {
		logger.SetLevel(level)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	source, err := selectSource(&cfg, logger)
	if err != nil {
		logger.Fatal("select source", "err", err)
	}
	defer source.Close()

	var reporters []telemetry.Reporter
	if cfg.webAddr != "" {
		hub := telemetry.NewHub(cfg.historyLimit)
		reporters = append(reporters, hub)
		go telemetry.NewWebServer(cfg.webAddr, hub, logger).Start(ctx)
		logger.Info("web interface up", "url", "http://localhost"+cfg.webAddr)
	}
	reporters = append(reporters, telemetry.NewLogReporter(logger))

	receiver, err := app.NewReceiver(source, telemetry.MultiReporter(reporters), logger, app.Config{
		SizeSignal:          cfg.sizeSignal,
		TimeDelay:           cfg.timeDelay,
		SampleRate:          cfg.sampleRate,
		CenterFreq:          cfg.centerFreq,
		AutoGain:            cfg.autoGain,
		CompensateFreqShift: cfg.compensate,
		Addr:                cfg.addr,
	})
	if err != nil {
		logger.Fatal("build receiver", "err", err)
	}

	if err := receiver.Init(ctx); err != nil {
		logger.Fatal("init receiver", "err", err)
	}

	logger.Info("receiver started", "freq_hz", cfg.centerFreq, "rate_hz", cfg.sampleRate)
	if err := receiver.Run(ctx); err != nil && err != context.Canceled {
		logger.Fatal("run receiver", "err", err)
	}
}

type cliConfig struct {
	sampleRate   int
	centerFreq   int
	sizeSignal   int
	timeDelay    int
	autoGain     bool
	compensate   bool
	source       string
	addr         string
	discover     bool
	discoverWait int
	webAddr      string
	historyLimit int
	logLevel     string
}

type persistentConfig struct {
	SampleRate   int    `yaml:"sample_rate"`
	CenterFreq   int    `yaml:"center_freq"`
	SizeSignal   int    `yaml:"size_signal"`
	TimeDelay    int    `yaml:"time_delay"`
	AutoGain     bool   `yaml:"auto_gain"`
	Compensate   bool   `yaml:"compensate_freq_shift"`
	Source       string `yaml:"source"`
	Addr         string `yaml:"addr"`
	WebAddr      string `yaml:"web_addr"`
	HistoryLimit int    `yaml:"history_limit"`
	LogLevel     string `yaml:"log_level"`
}

func parseConfig(args []string, lookup func(string) (string, bool), defaults persistentConfig) (cliConfig, error) {
	cfg := cliConfig{}
	fs := pflag.NewFlagSet("aisrx", pflag.ContinueOnError)
	fs.IntVar(&cfg.sampleRate, "sample-rate", envInt(lookup, "AISRX_SAMPLE_RATE", defaults.SampleRate), "Sample rate in Hz")
	fs.IntVar(&cfg.centerFreq, "center-freq", envInt(lookup, "AISRX_CENTER_FREQ", defaults.CenterFreq), "Tuner frequency in Hz")
	fs.IntVar(&cfg.sizeSignal, "size-signal", envInt(lookup, "AISRX_SIZE_SIGNAL", defaults.SizeSignal), "Samples per acquisition window")
	fs.IntVar(&cfg.timeDelay, "time-delay", envInt(lookup, "AISRX_TIME_DELAY", defaults.TimeDelay), "Discriminator delay in samples")
	fs.BoolVar(&cfg.autoGain, "auto-gain", defaults.AutoGain, "Enable hardware AGC")
	fs.BoolVar(&cfg.compensate, "compensate", defaults.Compensate, "Estimate and remove carrier offset per window")
	fs.StringVar(&cfg.source, "source", envString(lookup, "AISRX_SOURCE", defaults.Source), "Signal source (rtltcp|mock)")
	fs.StringVar(&cfg.addr, "addr", envString(lookup, "AISRX_ADDR", defaults.Addr), "rtl_tcp server address")
	fs.BoolVar(&cfg.discover, "discover", false, "Find an rtl_tcp server through mDNS")
	fs.IntVar(&cfg.discoverWait, "discover-wait", 3, "mDNS browse time in seconds")
	fs.StringVar(&cfg.webAddr, "web-addr", envString(lookup, "AISRX_WEB_ADDR", defaults.WebAddr), "Web telemetry listen address, empty to disable")
	fs.IntVar(&cfg.historyLimit, "history-limit", defaults.HistoryLimit, "Maximum frames to keep in web history")
	fs.StringVar(&cfg.logLevel, "log-level", envString(lookup, "AISRX_LOG_LEVEL", defaults.LogLevel), "Log level (debug|info|warn|error)")

	if err := fs.Parse(args); err != nil {
		return cliConfig{}, err
	}
	return cfg, nil
}

func persistentFromCLI(cfg cliConfig) persistentConfig {
	return persistentConfig{
		SampleRate:   cfg.sampleRate,
		CenterFreq:   cfg.centerFreq,
		SizeSignal:   cfg.sizeSignal,
		TimeDelay:    cfg.timeDelay,
		AutoGain:     cfg.autoGain,
		Compensate:   cfg.compensate,
		Source:       cfg.source,
		Addr:         cfg.addr,
		WebAddr:      cfg.webAddr,
		HistoryLimit: cfg.historyLimit,
		LogLevel:     cfg.logLevel,
	}
}

func loadOrCreateConfig(path string) (persistentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := defaultPersistentConfig()
			if saveErr := saveConfig(path, cfg); saveErr != nil {
				return persistentConfig{}, saveErr
			}
			return cfg, nil
		}
		return persistentConfig{}, err
	}

	var cfg persistentConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return persistentConfig{}, err
	}
	return cfg, nil
}

func saveConfig(path string, cfg persistentConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultPersistentConfig() persistentConfig {
	return persistentConfig{
		SampleRate:   960000,
		CenterFreq:   162025000,
		SizeSignal:   64000,
		TimeDelay:    100,
		AutoGain:     true,
		Source:       "mock",
		Addr:         "127.0.0.1:1234",
		WebAddr:      ":8080",
		HistoryLimit: 500,
		LogLevel:     "info",
	}
}

func envInt(lookup func(string) (string, bool), key string, def int) int {
	if val, ok := lookup(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func envString(lookup func(string) (string, bool), key, def string) string {
	if val, ok := lookup(key); ok {
		return val
	}
	return def
}

func selectSource(cfg *cliConfig, logger *log.Logger) (sdr.Source, error) {
	switch cfg.source {
	case "mock":
		return sdr.NewMock(cfg.timeDelay), nil
	case "rtltcp":
		if cfg.discover {
			hosts, err := mdns.DiscoverRTLTCP(cfg.discoverWait)
			if err != nil {
				return nil, fmt.Errorf("mdns browse: %w", err)
			}
			if len(hosts) == 0 {
				return nil, fmt.Errorf("no rtl_tcp server advertised on the local network")
			}
			cfg.addr = hosts[0].Addr()
			logger.Info("discovered rtl_tcp server", "instance", hosts[0].Instance, "addr", cfg.addr)
		}
		return sdr.NewRTLTCP(logger), nil
	default:
		return nil, fmt.Errorf("unknown source %s", cfg.source)
	}
}
