package dsp

import "math"

// PhasorGain scales UnitPhasor output so that downstream magnitude
// comparisons stay well above unity. Callers that need calibrated
// magnitude divide it back out.
const PhasorGain = 1000.0

// Arg returns the argument of c in (-pi, pi]. Arg of the zero value is 0,
// matching atan2(0, 0).
func Arg(c complex64) float64 {
	return math.Atan2(float64(imag(c)), float64(real(c)))
}

// Conj returns the complex conjugate of c.
func Conj(c complex64) complex64 {
	return complex(real(c), -imag(c))
}

// SquaredNorm returns real^2 + imag^2 of c.
func SquaredNorm(c complex64) float64 {
	re := float64(real(c))
	im := float64(imag(c))
	return re*re + im*im
}

// SquaredNormSum returns the sum of SquaredNorm over all entries of seq.
func SquaredNormSum(seq []complex64) float64 {
	var sum float64
	for _, c := range seq {
		sum += SquaredNorm(c)
	}
	return sum
}

// UnitPhasor returns a phasor at phase -2*pi*freq*t with magnitude
// PhasorGain.
func UnitPhasor(freq, t float64) complex64 {
	phase := -2 * math.Pi * freq * t
	return complex(float32(math.Cos(phase)*PhasorGain), float32(math.Sin(phase)*PhasorGain))
}
