package framing

import "fmt"

// A Frame is a byte-aligned payload recovered from the demodulated stream.
type Frame struct {
	Offset  int    // bit offset of the candidate window in the stream
	Payload []byte // decoded payload bits, length a multiple of 8
}

// Scan slides a CandidateBits window over the demodulated bit stream and
// decodes every offset where the NRZI-decoded window carries the preamble
// pattern. Offsets are tried independently; a match does not advance the
// scan past its frame, so overlapping windows of the same transmission can
// each produce a frame.
func Scan(bits []byte) []Frame {
	var frames []Frame
	for offset := 0; offset+CandidateBits <= len(bits); offset++ {
		payload, ok, err := DecodeCandidate(bits[offset : offset+CandidateBits])
		if err != nil || !ok {
			continue
		}
		frames = append(frames, Frame{Offset: offset, Payload: payload})
	}
	return frames
}

// DecodeCandidate NRZI-decodes a copy of one CandidateBits window,
// verifies the preamble pattern at bit 8, and on a match runs the full
// transform chain: strip delimiters, destuff, trim the checksum, truncate
// to whole octets, correct bit order. ok reports whether the window
// synchronized; err reports a candidate the pipeline had to reject.
func DecodeCandidate(window []byte) (payload []byte, ok bool, err error) {
	if len(window) != CandidateBits {
		return nil, false, fmt.Errorf("framing: candidate window is %d bits, want %d", len(window), CandidateBits)
	}

	decoded := make([]byte, CandidateBits)
	copy(decoded, window)
	NRZIDecode(decoded)

	for j, want := range preamblePattern {
		if decoded[8+j] != want {
			return nil, false, nil
		}
	}

	working := CandidateBits - PreambleFlagBits - EndFlagBits
	stripped, err := StripPreamble(decoded, working)
	if err != nil {
		return nil, false, err
	}

	destuffed := Destuff(stripped)
	if len(destuffed) < ChecksumBits {
		return nil, false, fmt.Errorf("framing: %d bits left after destuffing, checksum needs %d",
			len(destuffed), ChecksumBits)
	}
	body, err := TrimChecksum(destuffed, len(destuffed)-ChecksumBits)
	if err != nil {
		return nil, false, err
	}

	payload, err = FlipBits(body[:len(body)/8*8])
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}
