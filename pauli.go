package qobs

import (
	"fmt"
	"math"
)

/*
SigmaX is the site-averaged Pauli X operator. Its local estimate at s is
the mean over sites of Re[ψ(s with site i flipped) / ψ(s)].
*/
type SigmaX struct {
	ObservableBase
	Absolute bool
}

func NewSigmaX(absolute bool) *SigmaX {
	return &SigmaX{ObservableBase: NewObservableBase("SigmaX", "X"), Absolute: absolute}
}

func (o *SigmaX) Apply(psi WaveFunction, samples Samples) ([]float64, error) {
	return flipEstimate(psi, samples, o.Absolute, func(float64) complex128 { return 1 })
}

/*
SigmaY is the site-averaged Pauli Y operator. Flipping site i of s picks up
the matrix element ⟨s|σʸ|s'⟩ = i·(2sᵢ-1).
*/
type SigmaY struct {
	ObservableBase
	Absolute bool
}

func NewSigmaY(absolute bool) *SigmaY {
	return &SigmaY{ObservableBase: NewObservableBase("SigmaY", "Y"), Absolute: absolute}
}

func (o *SigmaY) Apply(psi WaveFunction, samples Samples) ([]float64, error) {
	return flipEstimate(psi, samples, o.Absolute, func(site float64) complex128 {
		return complex(0, toPM1(site))
	})
}

/*
SigmaZ is the site-averaged Pauli Z operator. It is diagonal, so the wave
function is not consulted and may be nil.
*/
type SigmaZ struct {
	ObservableBase
	Absolute bool
}

func NewSigmaZ(absolute bool) *SigmaZ {
	return &SigmaZ{ObservableBase: NewObservableBase("SigmaZ", "Z"), Absolute: absolute}
}

func (o *SigmaZ) Apply(_ WaveFunction, samples Samples) ([]float64, error) {
	if err := samples.Validate(); err != nil {
		return nil, err
	}

	out := make([]float64, len(samples))
	for i, row := range samples {
		var sum float64
		for _, v := range row {
			sum += toPM1(v)
		}
		out[i] = sum / float64(len(row))
		if o.Absolute {
			out[i] = math.Abs(out[i])
		}
	}
	return out, nil
}

/*
flipEstimate evaluates an off-diagonal single-site operator whose only
non-zero elements connect s to s with one site flipped. coeff returns the
matrix element given the value of the flipped site in s.
*/
func flipEstimate(
	psi WaveFunction,
	samples Samples,
	absolute bool,
	coeff func(site float64) complex128,
) ([]float64, error) {
	if psi == nil {
		return nil, ErrNilWaveFunction
	}
	if err := samples.Validate(); err != nil {
		return nil, err
	}
	if samples.Sites() != psi.NumSites() {
		return nil, fmt.Errorf(
			"samples have %d sites, wave function %d: %w",
			samples.Sites(), psi.NumSites(), ErrSiteMismatch,
		)
	}

	out := make([]float64, len(samples))
	for i, row := range samples {
		denom := psi.Amplitude(row)
		if denom == 0 {
			return nil, fmt.Errorf("sample %d: %w", i, ErrZeroAmplitude)
		}

		var numer complex128
		for site := range row {
			numer += coeff(row[site]) * psi.Amplitude(FlipSpin(site, row))
		}

		out[i] = real(numer/denom) / float64(len(row))
		if absolute {
			out[i] = math.Abs(out[i])
		}
	}
	return out, nil
}
