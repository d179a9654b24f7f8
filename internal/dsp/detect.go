package dsp

import (
	"fmt"
	"math"
)

// changepointGuard keeps the likelihood away from the buffer edges, where
// one of the two power sums covers too few samples to estimate anything.
const changepointGuard = 10

// EstimateChangepoint returns the index at which the power of samples
// most likely steps, the maximum-likelihood changepoint of a burst
// appearing in noise. It complements the preamble scan: the scan needs a
// decodable bit pattern while the power estimate flags any energy step,
// synchronized or not. Buffers too short to hold a changepoint, and
// buffers whose power sums degenerate to zero on every split, are errors.
func EstimateChangepoint(samples []complex64) (int, error) {
	n := len(samples)
	if n <= 2*changepointGuard {
		return 0, fmt.Errorf("dsp: %d samples cannot hold a changepoint, need more than %d", n, 2*changepointGuard)
	}

	total := SquaredNormSum(samples)
	best := -1
	bestLL := math.Inf(-1)
	var head float64
	for t := 1; t < n-changepointGuard; t++ {
		head += SquaredNorm(samples[t-1])
		if t < changepointGuard {
			continue
		}
		tail := total - head
		if head <= 0 || tail <= 0 {
			continue
		}
		if ll := changepointLikelihood(head, tail, t, n); ll > bestLL {
			bestLL = ll
			best = t
		}
	}
	if best < 0 {
		return 0, fmt.Errorf("dsp: no power changepoint in %d samples", n)
	}
	return best, nil
}

// changepointLikelihood evaluates the marginal log-likelihood of a
// variance change at split t, with head and tail the power sums on each
// side of the split.
func changepointLikelihood(head, tail float64, t, n int) float64 {
	lgHead, _ := math.Lgamma(0.5 * float64(t+5))
	lgTail, _ := math.Lgamma(0.5 * float64(n-t-3))
	return -0.5*float64(t+5)*math.Log(head) -
		0.5*float64(n-t-7)*math.Log(tail) +
		lgHead + lgTail
}
