// Package app wires the signal source into the demodulation and framing
// pipeline and reports decoded frames.
package app

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/satellite-imsat/Projet-3A-SDR/internal/ais"
	"github.com/satellite-imsat/Projet-3A-SDR/internal/dsp"
	"github.com/satellite-imsat/Projet-3A-SDR/internal/framing"
	"github.com/satellite-imsat/Projet-3A-SDR/internal/sdr"
	"github.com/satellite-imsat/Projet-3A-SDR/internal/telemetry"
)

// Config captures application level configuration.
type Config struct {
	SizeSignal          int   // samples per acquisition window
	TimeDelay           int   // discriminator delay, samples per symbol
	SampleRate          int   // Hz
	CenterFreq          int   // Hz
	AutoGain            bool  // hardware AGC on the tuner
	CompensateFreqShift bool  // estimate and remove carrier offset per window
	ExpectedType        int64 // message type accepted by validation

	Addr string // rtl_tcp server, host:port
	Path string // capture file for offline decoding
}

func (c *Config) setDefaults() {
	if c.SizeSignal == 0 {
		c.SizeSignal = 64000
	}
	if c.TimeDelay == 0 {
		c.TimeDelay = 100
	}
	if c.SampleRate == 0 {
		c.SampleRate = 960000
	}
	if c.CenterFreq == 0 {
		c.CenterFreq = 162025000
	}
	if c.ExpectedType == 0 {
		c.ExpectedType = ais.PositionReport
	}
}

func (c Config) validate() error {
	if c.SizeSignal <= 0 || c.TimeDelay <= 0 || c.SampleRate <= 0 || c.CenterFreq <= 0 {
		return errors.New("app: size, delay, rate and frequency must be positive")
	}
	if c.SizeSignal%c.TimeDelay != 0 {
		return fmt.Errorf("app: signal size %d is not a multiple of the symbol period %d", c.SizeSignal, c.TimeDelay)
	}
	bits := c.SizeSignal/c.TimeDelay - 2
	if bits < framing.CandidateBits {
		return fmt.Errorf("app: %d samples at %d per symbol yield %d bits, synchronization needs %d",
			c.SizeSignal, c.TimeDelay, bits, framing.CandidateBits)
	}
	return nil
}

// Receiver wires a signal source into the demodulation pipeline.
type Receiver struct {
	source   sdr.Source
	reporter telemetry.Reporter
	logger   *log.Logger
	cfg      Config
	demod    *dsp.Demodulator
}

// NewReceiver builds a receiver around the given source and reporter.
func NewReceiver(source sdr.Source, reporter telemetry.Reporter, logger *log.Logger, cfg Config) (*Receiver, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	logger = logger.With("subsystem", "receiver")
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	demod, err := dsp.NewDemodulator(cfg.TimeDelay)
	if err != nil {
		return nil, err
	}
	return &Receiver{
		source:   source,
		reporter: reporter,
		logger:   logger,
		cfg:      cfg,
		demod:    demod,
	}, nil
}

// Init configures the signal source.
func (r *Receiver) Init(ctx context.Context) error {
	err := r.source.Init(ctx, sdr.Config{
		SampleRate: r.cfg.SampleRate,
		CenterFreq: r.cfg.CenterFreq,
		SizeSignal: r.cfg.SizeSignal,
		AutoGain:   r.cfg.AutoGain,
		Addr:       r.cfg.Addr,
		Path:       r.cfg.Path,
	})
	if err != nil {
		return fmt.Errorf("init source: %w", err)
	}
	return nil
}

// Run acquires and processes windows until the context is canceled or the
// source is exhausted.
func (r *Receiver) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		samples, err := r.source.Read(ctx)
		if errors.Is(err, io.EOF) {
			r.logger.Info("source exhausted")
			return nil
		}
		if err != nil {
			return fmt.Errorf("receive samples: %w", err)
		}
		if len(samples) == 0 {
			r.logger.Warn("received empty buffer")
			continue
		}
		r.ProcessSamples(samples)
	}
}

// ProcessSamples runs one acquisition window through demodulation, frame
// synchronization and validation, reporting every synchronized frame. The
// returned events mirror what was reported.
func (r *Receiver) ProcessSamples(samples []complex64) []telemetry.Event {
	if r.cfg.CompensateFreqShift {
		shift := dsp.CompensateFreqShift(samples, float64(r.cfg.SampleRate))
		r.logger.Debug("compensated carrier offset", "hz", shift)
	}

	// The power changepoint has to be taken before demodulation consumes
	// the working buffer.
	burstAt := -1
	if r.logger.GetLevel() <= log.DebugLevel {
		if t, err := dsp.EstimateChangepoint(samples); err == nil {
			burstAt = t
		}
	}

	bits := r.demod.Demodulate(samples)
	frames := framing.Scan(bits)
	if len(frames) == 0 && burstAt >= 0 {
		r.logger.Debug("power step without frame sync", "changepoint", burstAt)
	}

	events := make([]telemetry.Event, 0, len(frames))
	for _, frame := range frames {
		ev := r.validate(frame)
		events = append(events, ev)
		if r.reporter != nil {
			r.reporter.FrameDecoded(ev)
		}
	}
	return events
}

func (r *Receiver) validate(frame framing.Frame) telemetry.Event {
	ev := telemetry.Event{
		Timestamp: time.Now(),
		Offset:    frame.Offset,
		Bits:      len(frame.Payload),
	}

	msgType, err := ais.MessageType(frame.Payload)
	if err != nil {
		r.logger.Warn("frame too short for a message type", "offset", frame.Offset, "bits", len(frame.Payload))
		return ev
	}
	ev.Type = msgType
	ev.Valid = msgType == r.cfg.ExpectedType

	ev.Payload = hex.EncodeToString(framing.Pack(frame.Payload))
	return ev
}
