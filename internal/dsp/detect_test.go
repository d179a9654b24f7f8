package dsp

import (
	"math"
	"math/rand"
	"testing"
)

// burstSignal is noise of unit power with a strong constant-envelope
// burst starting at step.
func burstSignal(n, step int, burstAmp float64, seed int64) []complex64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]complex64, n)
	for i := range out {
		amp := 1.0
		if i >= step {
			amp = burstAmp
		}
		phase := rng.Float64() * 2 * math.Pi
		out[i] = complex(float32(amp*math.Cos(phase)), float32(amp*math.Sin(phase)))
	}
	return out
}

func TestEstimateChangepoint(t *testing.T) {
	cases := []struct {
		name string
		n    int
		step int
	}{
		{"early burst", 400, 60},
		{"centered burst", 400, 200},
		{"late burst", 400, 350},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EstimateChangepoint(burstSignal(tc.n, tc.step, 20, 3))
			if err != nil {
				t.Fatal(err)
			}
			if got < tc.step-2 || got > tc.step+2 {
				t.Fatalf("changepoint at %d, want near %d", got, tc.step)
			}
		})
	}
}

func TestEstimateChangepointTooShort(t *testing.T) {
	if _, err := EstimateChangepoint(make([]complex64, 2*changepointGuard)); err == nil {
		t.Fatal("short buffer accepted")
	}
}

func TestEstimateChangepointSilentBuffer(t *testing.T) {
	if _, err := EstimateChangepoint(make([]complex64, 100)); err == nil {
		t.Fatal("all-zero buffer produced a changepoint")
	}
}

func TestEstimateChangepointSteadySignal(t *testing.T) {
	// No power step: any index is acceptable, but the estimate must
	// stay inside the guarded range.
	got, err := EstimateChangepoint(burstSignal(200, 200, 1, 7))
	if err != nil {
		t.Fatal(err)
	}
	if got < changepointGuard || got >= 200-changepointGuard {
		t.Fatalf("changepoint %d outside guarded range", got)
	}
}
