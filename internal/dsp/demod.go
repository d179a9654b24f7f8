package dsp

import "fmt"

// A Demodulator converts buffers of complex baseband samples into hard bit
// decisions using delay-conjugate-multiply differential phase detection:
// each sample is multiplied, conjugated, with a copy of the signal delayed
// by one symbol period, so the argument of the product tracks the
// instantaneous frequency offset. This is the classic delay-line
// discriminator for GMSK-style signals and needs no carrier reference.
type Demodulator struct {
	delay int
}

// NewDemodulator builds a demodulator with the given delay in samples
// (one symbol period).
func NewDemodulator(delay int) (*Demodulator, error) {
	if delay <= 0 {
		return nil, fmt.Errorf("dsp: demodulator delay must be positive, got %d", delay)
	}
	return &Demodulator{delay: delay}, nil
}

// Delay returns the configured delay in samples.
func (d *Demodulator) Delay() int {
	return d.delay
}

// OutputBits reports how many decisions Demodulate produces for n input
// samples. For n divisible by the delay this is n/delay - 2.
func (d *Demodulator) OutputBits(n int) int {
	if n < 3*d.delay {
		return 0
	}
	return (n - 2*d.delay) / d.delay
}

// DelayedCopy returns a copy of samples shifted right by delay entries.
// The first delay entries are the zero value; entry i >= delay equals
// samples[i-delay].
func DelayedCopy(samples []complex64, delay int) []complex64 {
	delayed := make([]complex64, len(samples))
	if delay < 0 {
		delay = 0
	}
	for i := delay; i < len(samples); i++ {
		delayed[i] = samples[i-delay]
	}
	return delayed
}

// Demodulate produces one hard decision per symbol period. The working
// buffer is overwritten in place with the per-sample phase-difference
// signal conj(x[i]) * x[i-delay]; callers must treat it as consumed once
// this returns. A decision is 1 when the phase difference is positive.
// A degenerate all-zero buffer decodes to all-zero decisions.
func (d *Demodulator) Demodulate(samples []complex64) []byte {
	delayed := DelayedCopy(samples, d.delay)
	for i := range samples {
		samples[i] = Conj(samples[i]) * delayed[i]
	}

	bits := make([]byte, 0, d.OutputBits(len(samples)))
	for i := 2*d.delay - 1; i < len(samples)-d.delay; i += d.delay {
		if Arg(samples[i]) > 0 {
			bits = append(bits, 1)
		} else {
			bits = append(bits, 0)
		}
	}
	return bits
}
