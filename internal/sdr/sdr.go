// Package sdr provides baseband sample sources for the receiver: a network
// rtl_tcp client, raw capture files, and a synthesized source for tests.
package sdr

import (
	"context"
	"fmt"
)

// Config carries the parameters shared by all sample sources.
type Config struct {
	SampleRate int    // samples per second
	CenterFreq int    // tuner frequency in Hz
	SizeSignal int    // complex samples per acquisition
	AutoGain   bool   // let the tuner pick its own gain
	Addr       string // rtl_tcp server, host:port
	Path       string // capture file path
}

// Source produces one acquisition window of SizeSignal baseband samples
// per Read. Read returns io.EOF once a finite source is exhausted.
type Source interface {
	Init(ctx context.Context, cfg Config) error
	Read(ctx context.Context) ([]complex64, error)
	Close() error
}

// ConvertIQ maps interleaved in-phase/quadrature byte pairs onto complex
// samples. Byte values feed the components directly, with no scaling or
// recentering.
func ConvertIQ(buf []byte) ([]complex64, error) {
	if len(buf)%2 != 0 {
		return nil, fmt.Errorf("sdr: IQ buffer of %d bytes is not a whole number of I/Q pairs", len(buf))
	}
	out := make([]complex64, len(buf)/2)
	for i := range out {
		out[i] = complex(float32(buf[2*i]), float32(buf[2*i+1]))
	}
	return out, nil
}
