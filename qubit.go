package qobs

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"
)

// Qubit is a single site in the state α|0⟩ + β|1⟩.
type Qubit struct {
	alpha complex128 // |0⟩ amplitude
	beta  complex128 // |1⟩ amplitude
}

func NewQubit(alpha, beta complex128) *Qubit {
	return &Qubit{alpha: alpha, beta: beta}
}

func (q *Qubit) ApplyHadamard() {
	// H = 1/√2 * [1  1]
	//           [1 -1]
	newAlpha := (q.alpha + q.beta) / complex(math.Sqrt(2), 0)
	newBeta := (q.alpha - q.beta) / complex(math.Sqrt(2), 0)
	q.alpha = newAlpha
	q.beta = newBeta
}

func (q *Qubit) ApplyX() {
	q.alpha, q.beta = q.beta, q.alpha
}

// Amplitude returns the amplitude of the given site value (0 or 1).
func (q *Qubit) Amplitude(bit float64) complex128 {
	if bit != 0 {
		return q.beta
	}
	return q.alpha
}

func (q *Qubit) norm() float64 {
	a, b := cmplx.Abs(q.alpha), cmplx.Abs(q.beta)
	return a*a + b*b
}

/*
ProductState is an unentangled state of independent qubits. Its amplitude
is the product of the per-site amplitudes, normalised per site.
*/
type ProductState struct {
	qubits []*Qubit
	norms  []float64
	random *randomSource
}

func NewProductState(qubits []*Qubit, opts ...SamplerOption) (*ProductState, error) {
	if len(qubits) == 0 {
		return nil, fmt.Errorf("product state needs at least one qubit: %w", ErrInvalidStatevector)
	}

	norms := make([]float64, len(qubits))
	for i, q := range qubits {
		norms[i] = q.norm()
		if norms[i] == 0 {
			return nil, fmt.Errorf("qubit %d has zero norm: %w", i, ErrInvalidStatevector)
		}
	}

	return &ProductState{qubits: qubits, norms: norms, random: newRandomSource(opts)}, nil
}

func (ps *ProductState) NumSites() int { return len(ps.qubits) }

func (ps *ProductState) Amplitude(config []float64) complex128 {
	if len(config) != len(ps.qubits) {
		return 0
	}
	amp := complex(1, 0)
	for i, q := range ps.qubits {
		amp *= q.Amplitude(config[i]) / complex(math.Sqrt(ps.norms[i]), 0)
	}
	return amp
}

func (ps *ProductState) Sample(ctx context.Context, n int) (Samples, error) {
	if n <= 0 {
		return nil, fmt.Errorf("sample count %d: %w", n, ErrInvalidOption)
	}

	pOne := make([]float64, len(ps.qubits))
	for i, q := range ps.qubits {
		b := cmplx.Abs(q.beta)
		pOne[i] = b * b / ps.norms[i]
	}

	out := make(Samples, n)
	for i := range out {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		row := make([]float64, len(pOne))
		for j, p := range pOne {
			if ps.random.Float64() < p {
				row[j] = 1
			}
		}
		out[i] = row
	}
	return out, nil
}
