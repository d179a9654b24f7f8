package sdr

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/satellite-imsat/Projet-3A-SDR/internal/framing"
)

// endFlag is the HDLC closing flag appended after the stuffed body.
var endFlag = []byte{0, 1, 1, 1, 1, 1, 1, 0}

// Mock synthesizes one GMSK burst per acquisition, surrounded by idle
// bits, so the whole receive chain can run without a radio. The burst is
// built the way a transmitter would: data-domain bits are stuffed, framed,
// NRZI line-coded and mapped onto a phase ramp of plus or minus pi/2 per
// symbol.
type Mock struct {
	SamplesPerSymbol int     // demodulator delay the samples are built for
	BurstSymbol      int     // symbol index where the training sequence starts
	Payload          []byte  // data-domain bits; a default is generated when nil
	Amplitude        float64 // carrier amplitude
	Noise            float64 // Gaussian noise standard deviation, 0 for clean
	Seed             int64

	cfg Config
	rng *rand.Rand
}

// NewMock builds a mock source producing bursts decodable with the given
// demodulator delay.
func NewMock(samplesPerSymbol int) *Mock {
	return &Mock{
		SamplesPerSymbol: samplesPerSymbol,
		BurstSymbol:      100,
		Amplitude:        100,
		Seed:             1,
	}
}

// Init validates the acquisition geometry against the burst placement.
func (m *Mock) Init(_ context.Context, cfg Config) error {
	if m.SamplesPerSymbol <= 0 {
		return fmt.Errorf("sdr: mock needs a positive samples-per-symbol, got %d", m.SamplesPerSymbol)
	}
	symbols := cfg.SizeSignal / m.SamplesPerSymbol
	if m.BurstSymbol < 8 || m.ExpectedOffset()+framing.CandidateBits > symbols-2 {
		return fmt.Errorf("sdr: burst at symbol %d does not fit %d demodulated bits", m.BurstSymbol, symbols-2)
	}
	m.cfg = cfg
	m.rng = rand.New(rand.NewSource(m.Seed))
	if m.Payload == nil {
		m.Payload = randomBits(m.rng, 168)
	}
	return nil
}

// Read synthesizes one acquisition window.
func (m *Mock) Read(ctx context.Context) ([]complex64, error) {
	if m.rng == nil {
		return nil, fmt.Errorf("sdr: mock source not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	symbols := m.cfg.SizeSignal / m.SamplesPerSymbol
	decoded := make([]byte, symbols)
	for i := range decoded {
		decoded[i] = 1 // idle: no line transitions
	}
	copy(decoded[m.BurstSymbol:], Burst(m.Payload))

	// The demodulator emits raw symbol k+1 as decision k, so prepend one
	// filler symbol to line the burst up with ExpectedOffset.
	raw := append([]byte{0}, NRZIEncode(decoded)...)
	samples := Modulate(raw[:symbols], m.SamplesPerSymbol, m.Amplitude)
	if m.Noise > 0 {
		for i := range samples {
			samples[i] += complex(float32(m.rng.NormFloat64()*m.Noise), float32(m.rng.NormFloat64()*m.Noise))
		}
	}
	return samples, nil
}

// Close is a no-op.
func (m *Mock) Close() error { return nil }

// ExpectedOffset returns the bit offset in the demodulated stream where
// the frame synchronizer will match the burst. The synchronizer checks
// the training pattern 8 bits into its window, so the match lands 8 bits
// before the burst itself.
func (m *Mock) ExpectedOffset() int {
	return m.BurstSymbol - 8
}

// Burst returns the decoded-domain bit stream of one transmission: the
// training sequence with start flag, the stuffed body (payload plus a
// zeroed checksum region), and the closing flag.
func Burst(payload []byte) []byte {
	body := make([]byte, 0, len(payload)+framing.ChecksumBits)
	body = append(body, payload...)
	body = append(body, make([]byte, framing.ChecksumBits)...)

	out := framing.PreamblePattern()
	out = append(out, Stuff(body)...)
	out = append(out, endFlag...)
	return out
}

// Stuff inserts a zero after every run of five consecutive ones, the
// transmitter-side counterpart of framing.Destuff.
func Stuff(bits []byte) []byte {
	out := make([]byte, 0, len(bits)+len(bits)/5)
	run := 0
	for _, b := range bits {
		out = append(out, b)
		if b == 1 {
			run++
			if run == 5 {
				out = append(out, 0)
				run = 0
			}
		} else {
			run = 0
		}
	}
	return out
}

// NRZIEncode maps data-domain bits onto line bits: a 1 keeps the line
// level, a 0 toggles it. framing.NRZIDecode reverses it.
func NRZIEncode(bits []byte) []byte {
	out := make([]byte, len(bits))
	state := byte(0)
	for i, b := range bits {
		if b == 0 {
			state = 1 - state
		}
		out[i] = state
	}
	return out
}

// Modulate maps line bits onto complex samples, one symbol per
// samplesPerSymbol samples. A 1 symbol lowers the carrier phase by pi/2
// over its period and a 0 raises it, so the delay discriminator recovers
// the symbol sign.
func Modulate(raw []byte, samplesPerSymbol int, amplitude float64) []complex64 {
	step := math.Pi / 2 / float64(samplesPerSymbol)
	out := make([]complex64, 0, len(raw)*samplesPerSymbol)
	phase := 0.0
	for _, b := range raw {
		inc := step
		if b == 1 {
			inc = -step
		}
		for s := 0; s < samplesPerSymbol; s++ {
			phase += inc
			out = append(out, complex(float32(amplitude*math.Cos(phase)), float32(amplitude*math.Sin(phase))))
		}
	}
	return out
}

func randomBits(rng *rand.Rand, n int) []byte {
	bits := make([]byte, n)
	for i := range bits {
		bits[i] = byte(rng.Intn(2))
	}
	return bits
}
