package dsp

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// fftShift reorders FFT output so that DC sits in the middle of the slice.
func fftShift(data []complex128) []complex128 {
	n := len(data)
	if n == 0 {
		return []complex128{}
	}
	half := n / 2
	return append(data[half:], data[:half]...)
}

// EstimateFreqShift returns the power-weighted mean frequency of samples in
// Hz. A clean baseband capture centers on 0; a residual carrier offset
// pulls the estimate toward the offset.
func EstimateFreqShift(samples []complex64, sampleRate float64) float64 {
	n := len(samples)
	if n < 2 || sampleRate == 0 {
		return 0
	}
	buf := make([]complex128, n)
	for i, s := range samples {
		buf[i] = complex128(s)
	}
	coeffs := fourier.NewCmplxFFT(n).Coefficients(nil, buf)
	shifted := fftShift(coeffs)

	// Bin frequencies span [-rate/2, rate/2] inclusive on both ends.
	var total, weighted float64
	for i, c := range shifted {
		power := real(c)*real(c) + imag(c)*imag(c)
		freq := (float64(i)/float64(n-1) - 0.5) * sampleRate
		total += power
		weighted += power * freq
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// ShiftFrequency mixes samples down by shift Hz in place.
func ShiftFrequency(samples []complex64, shift, sampleRate float64) {
	if sampleRate == 0 || shift == 0 {
		return
	}
	for i := range samples {
		t := float64(i) / sampleRate
		p := UnitPhasor(shift, t)
		samples[i] *= complex(real(p)/PhasorGain, imag(p)/PhasorGain)
	}
}

// CompensateFreqShift measures the residual carrier offset of samples,
// mixes it out in place, and returns the measured shift in Hz.
func CompensateFreqShift(samples []complex64, sampleRate float64) float64 {
	shift := EstimateFreqShift(samples, sampleRate)
	ShiftFrequency(samples, shift, sampleRate)
	return shift
}
