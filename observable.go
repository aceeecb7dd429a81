package qobs

import (
	"fmt"
	"strings"
)

/*
Observable is a physical quantity that can be estimated from samples of a
wave function. Apply returns one local estimate per sample; the expectation
value is the mean of those estimates over samples drawn from |ψ|².
*/
type Observable interface {
	Name() string
	Symbol() string
	Apply(psi WaveFunction, samples Samples) ([]float64, error)
}

/*
ObservableBase carries the naming shared by all observables. Concrete
observables embed it and provide Apply.
*/
type ObservableBase struct {
	name   string
	symbol string
}

func NewObservableBase(name, symbol string) ObservableBase {
	return ObservableBase{name: name, symbol: symbol}
}

func (b ObservableBase) Name() string   { return b.name }
func (b ObservableBase) Symbol() string { return b.symbol }
func (b ObservableBase) String() string { return b.name }

// StatisticsFromSamples applies obs to samples sequentially and summarises it.
func StatisticsFromSamples(obs Observable, psi WaveFunction, samples Samples) (Statistics, error) {
	values, err := obs.Apply(psi, samples)
	if err != nil {
		return Statistics{}, fmt.Errorf("%s: %w", obs.Name(), err)
	}
	return Summarize(values), nil
}

/*
SumObservable adds the local estimates of its terms sample by sample.
*/
type SumObservable struct {
	ObservableBase
	terms []Observable
}

/*
Sum builds an observable whose local estimate is the sum of the terms'
estimates. The name defaults to the joined term names; use Named to
override it.
*/
func Sum(terms ...Observable) *SumObservable {
	names := make([]string, len(terms))
	symbols := make([]string, len(terms))
	for i, t := range terms {
		names[i] = t.Name()
		symbols[i] = t.Symbol()
	}

	return &SumObservable{
		ObservableBase: NewObservableBase(
			strings.Join(names, " + "),
			strings.Join(symbols, " + "),
		),
		terms: terms,
	}
}

// Named returns a copy of the sum under a different name.
func (o *SumObservable) Named(name string) *SumObservable {
	return &SumObservable{
		ObservableBase: NewObservableBase(name, o.symbol),
		terms:          o.terms,
	}
}

func (o *SumObservable) Apply(psi WaveFunction, samples Samples) ([]float64, error) {
	if len(o.terms) == 0 {
		return nil, fmt.Errorf("sum has no terms: %w", ErrInvalidOption)
	}

	var total []float64
	for _, term := range o.terms {
		values, err := term.Apply(psi, samples)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", term.Name(), err)
		}
		if len(values) != len(samples) {
			return nil, fmt.Errorf(
				"%s returned %d estimates for %d samples: %w",
				term.Name(), len(values), len(samples), ErrEstimateCount,
			)
		}
		if total == nil {
			total = values
			continue
		}
		for i, v := range values {
			total[i] += v
		}
	}
	return total, nil
}

// ScaledObservable multiplies another observable's estimates by a constant.
type ScaledObservable struct {
	ObservableBase
	factor float64
	inner  Observable
}

func Scale(factor float64, obs Observable) *ScaledObservable {
	return &ScaledObservable{
		ObservableBase: NewObservableBase(
			fmt.Sprintf("%g*%s", factor, obs.Name()),
			fmt.Sprintf("%g·%s", factor, obs.Symbol()),
		),
		factor: factor,
		inner:  obs,
	}
}

func (o *ScaledObservable) Apply(psi WaveFunction, samples Samples) ([]float64, error) {
	values, err := o.inner.Apply(psi, samples)
	if err != nil {
		return nil, err
	}
	for i := range values {
		values[i] *= o.factor
	}
	return values, nil
}

/*
TFIMEnergy is the transverse-field Ising energy per site,
-J·⟨σᶻσᶻ⟩ - h·⟨σˣ⟩, on a chain with nearest-neighbour coupling.
*/
func TFIMEnergy(coupling, field float64, periodic bool) *SumObservable {
	zz := &NeighbourInteraction{
		ObservableBase: NewObservableBase(neighbourName(periodic, 1), neighbourSymbol(1)),
		Periodic:       periodic,
		C:              1,
	}
	return Sum(Scale(-coupling, zz), Scale(-field, NewSigmaX(false))).Named("Energy")
}
