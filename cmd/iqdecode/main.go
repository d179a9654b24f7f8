// iqdecode replays a raw IQ capture through the full receive chain and
// prints every synchronized frame. Useful for regression runs on recorded
// bursts without a radio attached.
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/satellite-imsat/Projet-3A-SDR/internal/app"
	"github.com/satellite-imsat/Projet-3A-SDR/internal/sdr"
	"github.com/satellite-imsat/Projet-3A-SDR/internal/telemetry"
)

func main() {
	var (
		path       = pflag.String("file", "", "Raw interleaved IQ capture, one unsigned byte per component")
		sizeSignal = pflag.Int("size-signal", 64000, "Samples per acquisition window")
		timeDelay  = pflag.Int("time-delay", 100, "Discriminator delay in samples")
		sampleRate = pflag.Int("sample-rate", 960000, "Sample rate the capture was taken at, Hz")
		compensate = pflag.Bool("compensate", false, "Estimate and remove carrier offset per window")
		logLevel   = pflag.String("log-level", "info", "Log level (debug|info|warn|error)")
	)
	pflag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "iqdecode"})
	if level, err := log.ParseLevel(*logLevel); err == nil {
		logger.SetLevel(level)
	}
	if *path == "" {
		logger.Fatal("a capture file is required, see --file")
	}

	source := sdr.NewFileSource()
	defer source.Close()

	receiver, err := app.NewReceiver(source, telemetry.NewLogReporter(logger), logger, app.Config{
		SizeSignal:          *sizeSignal,
		TimeDelay:           *timeDelay,
		SampleRate:          *sampleRate,
		CompensateFreqShift: *compensate,
		Path:                *path,
	})
	if err != nil {
		logger.Fatal("build receiver", "err", err)
	}

	ctx := context.Background()
	if err := receiver.Init(ctx); err != nil {
		logger.Fatal("open capture", "err", err)
	}
	if err := receiver.Run(ctx); err != nil {
		logger.Fatal("decode capture", "err", err)
	}
}
