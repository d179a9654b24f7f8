package sdr

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/charmbracelet/log"
)

// rtl_tcp command identifiers, one byte followed by a big-endian uint32
// parameter.
const (
	cmdSetFrequency  = 0x01
	cmdSetSampleRate = 0x02
	cmdSetGainMode   = 0x03
)

// rtltcpMagic opens every rtl_tcp session, followed by tuner type and gain
// count as big-endian uint32 values.
const rtltcpMagic = "RTL0"

// RTLTCP streams interleaved unsigned IQ bytes from an rtl_tcp server and
// converts them into complex acquisitions. Lost connections are re-dialed
// with exponential backoff.
type RTLTCP struct {
	cfg    Config
	conn   net.Conn
	buf    []byte
	logger *log.Logger
}

// NewRTLTCP builds an unconnected rtl_tcp source. A nil logger silences
// reconnect reporting.
func NewRTLTCP(logger *log.Logger) *RTLTCP {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &RTLTCP{logger: logger}
}

// Init dials the server, checks the protocol header and pushes the tuner
// configuration.
func (r *RTLTCP) Init(ctx context.Context, cfg Config) error {
	if cfg.Addr == "" {
		return fmt.Errorf("sdr: rtl_tcp source needs a server address")
	}
	if cfg.SizeSignal <= 0 {
		return fmt.Errorf("sdr: acquisition size must be positive, got %d", cfg.SizeSignal)
	}
	r.cfg = cfg
	r.buf = make([]byte, 2*cfg.SizeSignal)
	return r.connect(ctx)
}

func (r *RTLTCP) connect(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = 30 * time.Second

	var conn net.Conn
	dial := func() error {
		d := net.Dialer{Timeout: 5 * time.Second}
		c, err := d.DialContext(ctx, "tcp", r.cfg.Addr)
		if err != nil {
			r.logger.Warn("rtl_tcp dial failed, retrying", "addr", r.cfg.Addr, "err", err)
			return err
		}
		conn = c
		return nil
	}
	if err := backoff.Retry(dial, backoff.WithContext(policy, ctx)); err != nil {
		return fmt.Errorf("sdr: connect %s: %w", r.cfg.Addr, err)
	}

	var header [12]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		conn.Close()
		return fmt.Errorf("sdr: read rtl_tcp header: %w", err)
	}
	if string(header[:4]) != rtltcpMagic {
		conn.Close()
		return fmt.Errorf("sdr: %s is not an rtl_tcp server (header %q)", r.cfg.Addr, header[:4])
	}
	r.conn = conn
	r.logger.Info("rtl_tcp connected",
		"addr", r.cfg.Addr,
		"tuner", binary.BigEndian.Uint32(header[4:8]),
		"gains", binary.BigEndian.Uint32(header[8:12]))

	if err := r.tune(); err != nil {
		conn.Close()
		r.conn = nil
		return err
	}
	return nil
}

func (r *RTLTCP) tune() error {
	if err := r.command(cmdSetSampleRate, uint32(r.cfg.SampleRate)); err != nil {
		return fmt.Errorf("sdr: set sample rate: %w", err)
	}
	if err := r.command(cmdSetFrequency, uint32(r.cfg.CenterFreq)); err != nil {
		return fmt.Errorf("sdr: set frequency: %w", err)
	}
	gainMode := uint32(1)
	if r.cfg.AutoGain {
		gainMode = 0
	}
	if err := r.command(cmdSetGainMode, gainMode); err != nil {
		return fmt.Errorf("sdr: set gain mode: %w", err)
	}
	return nil
}

func (r *RTLTCP) command(id byte, param uint32) error {
	var msg [5]byte
	msg[0] = id
	binary.BigEndian.PutUint32(msg[1:], param)
	_, err := r.conn.Write(msg[:])
	return err
}

// Read blocks until one full acquisition of interleaved bytes arrived and
// returns it converted to complex samples. A broken stream is re-dialed
// and the acquisition restarted on the fresh connection; the error is
// only reported when the retried read breaks too, with the session
// reconnected for the next call.
func (r *RTLTCP) Read(ctx context.Context) ([]complex64, error) {
	if r.conn == nil {
		return nil, fmt.Errorf("sdr: rtl_tcp source not connected")
	}
	for attempt := 0; ; attempt++ {
		if deadline, ok := ctx.Deadline(); ok {
			r.conn.SetReadDeadline(deadline)
		}
		_, err := io.ReadFull(r.conn, r.buf)
		if err == nil {
			return ConvertIQ(r.buf)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Warn("rtl_tcp stream broken, reconnecting", "err", err)
		r.conn.Close()
		r.conn = nil
		if rerr := r.connect(ctx); rerr != nil {
			return nil, fmt.Errorf("sdr: reconnect after stream error %v: %w", err, rerr)
		}
		if attempt > 0 {
			return nil, fmt.Errorf("sdr: acquisition lost: %w", err)
		}
	}
}

// Close drops the server connection.
func (r *RTLTCP) Close() error {
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn = nil
	return err
}
