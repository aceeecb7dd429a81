package qobs

import "fmt"

/*
NeighbourInteraction measures the site-averaged correlation σᶻᵢσᶻᵢ₊c
between spins C sites apart. With Periodic set the chain wraps around,
otherwise only the L-C pairs inside the chain contribute.
*/
type NeighbourInteraction struct {
	ObservableBase
	Periodic bool
	C        int
}

func NewNeighbourInteraction(periodic bool, c int) (*NeighbourInteraction, error) {
	if c < 1 {
		return nil, fmt.Errorf("neighbour distance %d: %w", c, ErrInvalidOption)
	}

	return &NeighbourInteraction{
		ObservableBase: NewObservableBase(neighbourName(periodic, c), neighbourSymbol(c)),
		Periodic:       periodic,
		C:              c,
	}, nil
}

func (o *NeighbourInteraction) Apply(_ WaveFunction, samples Samples) ([]float64, error) {
	if o.C < 1 {
		return nil, fmt.Errorf("neighbour distance %d: %w", o.C, ErrInvalidOption)
	}
	if err := samples.Validate(); err != nil {
		return nil, err
	}

	sites := samples.Sites()
	terms := sites
	if !o.Periodic {
		terms = sites - o.C
	}
	if terms <= 0 {
		return nil, fmt.Errorf("%d sites with distance %d: %w", sites, o.C, ErrNoInteractionTerms)
	}

	out := make([]float64, len(samples))
	for i, row := range samples {
		var sum float64
		for j := 0; j < terms; j++ {
			sum += toPM1(row[j]) * toPM1(row[(j+o.C)%sites])
		}
		out[i] = sum / float64(terms)
	}
	return out, nil
}

func neighbourName(periodic bool, c int) string {
	return fmt.Sprintf("NeighbourInteraction(periodic=%t, c=%d)", periodic, c)
}

func neighbourSymbol(c int) string {
	return fmt.Sprintf("(∑ σᶻᵢσᶻᵢ₊%d)", c)
}
