// Package framing implements the bit-level transforms between raw
// demodulator decisions and a byte-aligned AIS message payload: NRZI line
// decoding, frame delimiter stripping, bit destuffing, checksum trimming
// and per-byte bit order correction.
//
// Bits are bytes holding 0 or 1. Every transform takes a caller-owned
// vector and returns a freshly allocated output (NRZI decoding works in
// place); outputs never grow past their input.
package framing

import (
	"errors"
	"fmt"
)

// Protocol framing widths, in bits.
const (
	PreambleFlagBits = 32  // training sequence plus HDLC start flag
	EndFlagBits      = 8   // HDLC closing flag
	ChecksumBits     = 16  // CRC region, trimmed but not verified here
	CandidateBits    = 256 // window inspected at each scan offset
)

// preamblePattern is the NRZI-decoded training sequence: alternating bits
// closing with the 01111110 flag.
var preamblePattern = [PreambleFlagBits]byte{
	0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1,
	0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 1, 1, 1, 1, 1, 0,
}

// PreamblePattern returns a copy of the expected training-plus-flag
// pattern.
func PreamblePattern() []byte {
	out := make([]byte, PreambleFlagBits)
	copy(out, preamblePattern[:])
	return out
}

// ErrNotByteAligned reports a transform that needs whole octets being
// handed a bit vector whose length is not a multiple of 8.
var ErrNotByteAligned = errors.New("framing: bit vector length not a multiple of 8")

// FlipBits reverses the bit order inside each consecutive group of 8 bits.
// The input length must be a multiple of 8; callers truncate the working
// length beforehand, discarding trailing bits of a partial byte.
func FlipBits(bits []byte) ([]byte, error) {
	if len(bits)%8 != 0 {
		return nil, fmt.Errorf("%w: %d bits", ErrNotByteAligned, len(bits))
	}
	out := make([]byte, len(bits))
	for i := 0; i < len(bits); i += 8 {
		for j := 0; j < 8; j++ {
			out[i+j] = bits[i+7-j]
		}
	}
	return out, nil
}

// NRZIDecode reverses non-return-to-zero-inverted line coding in place.
// The running state starts at zero on every call: a bit equal to the state
// decodes to 1, a transition decodes to 0 and moves the state.
func NRZIDecode(bits []byte) {
	state := byte(0)
	for i, b := range bits {
		if b != state {
			state = b
			bits[i] = 0
		} else {
			bits[i] = 1
		}
	}
}

// StripPreamble drops the first PreambleFlagBits bits and returns a copy
// of the n bits that follow.
func StripPreamble(bits []byte, n int) ([]byte, error) {
	if n < 0 || PreambleFlagBits+n > len(bits) {
		return nil, fmt.Errorf("framing: cannot take %d bits past a %d bit preamble from %d bits",
			n, PreambleFlagBits, len(bits))
	}
	out := make([]byte, n)
	copy(out, bits[PreambleFlagBits:PreambleFlagBits+n])
	return out, nil
}

// Destuff removes the zero bit the transmitter inserts after every run of
// five consecutive ones. The returned vector is the input minus the
// removed bits, never longer.
func Destuff(bits []byte) []byte {
	const run = 5
	out := make([]byte, 0, len(bits))
	start := 0
	i := run - 1
	for i < len(bits) {
		if allOnes(bits[i-run+1 : i+1]) {
			out = append(out, bits[start:i+1]...)
			start = i + 2
			i += run + 1
		} else {
			i++
		}
	}
	if start < len(bits) {
		out = append(out, bits[start:]...)
	}
	return out
}

func allOnes(bits []byte) bool {
	for _, b := range bits {
		if b != 1 {
			return false
		}
	}
	return true
}

// TrimChecksum returns a copy of the first n bits, discarding the trailing
// checksum region. The caller supplies n already reduced by ChecksumBits.
func TrimChecksum(bits []byte, n int) ([]byte, error) {
	if n < 0 || n > len(bits) {
		return nil, fmt.Errorf("framing: trim length %d out of range for %d bits", n, len(bits))
	}
	out := make([]byte, n)
	copy(out, bits[:n])
	return out, nil
}

// Pack folds a bit vector into octets, most significant bit first, for
// display and logging. Trailing bits of a partial byte are dropped.
func Pack(bits []byte) []byte {
	out := make([]byte, len(bits)/8)
	for i := range out {
		var b byte
		for j := 0; j < 8; j++ {
			b <<= 1
			if bits[8*i+j] != 0 {
				b |= 1
			}
		}
		out[i] = b
	}
	return out
}
