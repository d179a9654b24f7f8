package framing

import (
	"testing"
)

// nrziEncode is the transmitter-side inverse of NRZIDecode: a 1 keeps the
// line level, a 0 toggles it, starting from a low line.
func nrziEncode(bits []byte) []byte {
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

// burstWindow builds one candidate window whose decoded content carries
// the training pattern at bit 8 followed by an all-zero body.
func burstWindow() []byte {
	decoded := make([]byte, CandidateBits)
	for i := 0; i < 8; i++ {
		decoded[i] = 1
	}
	copy(decoded[8:], PreamblePattern())
	return nrziEncode(decoded)
}

func TestDecodeCandidateMatch(t *testing.T) {
	payload, ok, err := DecodeCandidate(burstWindow())
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("candidate did not synchronize")
	}
	if len(payload) != 192 {
		t.Fatalf("payload is %d bits, want 192", len(payload))
	}
	if len(payload)%8 != 0 {
		t.Fatalf("payload is %d bits, not byte aligned", len(payload))
	}

	// The start flag loses one bit to destuffing, so the first payload
	// byte is the shifted flag with its bits reversed.
	packed := Pack(payload)
	if packed[0] != 0x3e {
		t.Fatalf("leading payload byte %#02x, want 0x3e", packed[0])
	}
	for i, b := range packed[1:] {
		if b != 0 {
			t.Fatalf("payload byte %d = %#02x, want zero body", i+1, b)
		}
	}
}

func TestDecodeCandidateMismatch(t *testing.T) {
	window := burstWindow()
	window[20] ^= 1

	payload, ok, err := DecodeCandidate(window)
	if err != nil {
		t.Fatal(err)
	}
	if ok || payload != nil {
		t.Fatal("corrupted candidate synchronized")
	}
}

func TestDecodeCandidateWrongSize(t *testing.T) {
	if _, _, err := DecodeCandidate(make([]byte, CandidateBits-1)); err == nil {
		t.Fatal("short window accepted")
	}
}

func TestScanFindsOffset(t *testing.T) {
	const offset = 37
	decoded := make([]byte, 400)
	for i := range decoded {
		decoded[i] = 1
	}
	copy(decoded[offset+8:], PreamblePattern())
	for i := offset + 8 + PreambleFlagBits; i < offset+CandidateBits; i++ {
		decoded[i] = 0
	}
	stream := nrziEncode(decoded)

	frames := Scan(stream)
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if frames[0].Offset != offset {
		t.Fatalf("frame at offset %d, want %d", frames[0].Offset, offset)
	}
	if len(frames[0].Payload) == 0 {
		t.Fatal("frame carries no payload")
	}
}

func TestScanShortStream(t *testing.T) {
	if frames := Scan(make([]byte, CandidateBits-1)); frames != nil {
		t.Fatalf("short stream produced %d frames", len(frames))
	}
}

func TestScanOverlappingMatches(t *testing.T) {
	// Two windows of the same idle-padded stream can both carry the
	// pattern when a second copy sits exactly one window later.
	decoded := make([]byte, 2*CandidateBits+16)
	for i := range decoded {
		decoded[i] = 1
	}
	copy(decoded[8:], PreamblePattern())
	copy(decoded[8+CandidateBits:], PreamblePattern())
	stream := nrziEncode(decoded)

	frames := Scan(stream)
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if frames[0].Offset != 0 || frames[1].Offset != CandidateBits {
		t.Fatalf("offsets %d and %d, want 0 and %d", frames[0].Offset, frames[1].Offset, CandidateBits)
	}
}
