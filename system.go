package qobs

import (
	"context"
	"fmt"

	"github.com/theapemachine/errnie"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

/*
System groups observables that are measured together. Every observable
in a system is evaluated on the same samples, so one sampling pass serves
all of them.
*/
type System struct {
	order       []string
	observables map[string]Observable
}

// NewSystem builds a system; observable names must be unique.
func NewSystem(observables ...Observable) (*System, error) {
	s := &System{
		order:       make([]string, 0, len(observables)),
		observables: make(map[string]Observable, len(observables)),
	}

	for _, obs := range observables {
		name := obs.Name()
		if _, ok := s.observables[name]; ok {
			return nil, fmt.Errorf("%q: %w", name, ErrDuplicateObservable)
		}
		s.order = append(s.order, name)
		s.observables[name] = obs
	}
	return s, nil
}

// Names returns the observable names in insertion order.
func (s *System) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Observables returns the observables in insertion order.
func (s *System) Observables() []Observable {
	out := make([]Observable, len(s.order))
	for i, name := range s.order {
		out[i] = s.observables[name]
	}
	return out
}

func (s *System) Observable(name string) (Observable, bool) {
	obs, ok := s.observables[name]
	return obs, ok
}

// StatisticsFromSamples evaluates every observable on samples.
func (s *System) StatisticsFromSamples(
	ctx context.Context, est *Estimator, psi WaveFunction, samples Samples,
) (map[string]Statistics, error) {
	ctx, span := tracer.Start(ctx, "System.StatisticsFromSamples", trace.WithAttributes(
		attribute.StringSlice("observables", s.order),
		attribute.Int("samples", len(samples)),
	))
	defer span.End()

	errnie.Info("System - evaluating %d observables on %d samples", len(s.order), len(samples))

	out, err := s.evaluate(ctx, est, psi, samples)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return out, nil
}

// Statistics samples model once per batch and evaluates every observable.
func (s *System) Statistics(
	ctx context.Context, est *Estimator, model Model, opts StatisticsOptions,
) (map[string]Statistics, error) {
	ctx, span := tracer.Start(ctx, "System.Statistics", trace.WithAttributes(
		attribute.StringSlice("observables", s.order),
		attribute.Int("num_samples", opts.NumSamples),
		attribute.Int("num_chains", opts.NumChains),
	))
	defer span.End()

	errnie.Info("System - sampling %d configurations for %d observables", opts.NumSamples, len(s.order))

	totals := make(map[string]Statistics, len(s.order))
	err := est.sampleBatches(ctx, model, opts, func(samples Samples) error {
		batch, err := s.evaluate(ctx, est, model, samples)
		if err != nil {
			return err
		}
		for name, stats := range batch {
			totals[name] = totals[name].Merge(stats)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return totals, nil
}

func (s *System) evaluate(
	ctx context.Context, est *Estimator, psi WaveFunction, samples Samples,
) (map[string]Statistics, error) {
	out := make(map[string]Statistics, len(s.order))
	for _, name := range s.order {
		stats, err := est.statisticsFromSamples(ctx, s.observables[name], psi, samples)
		if err != nil {
			return nil, err
		}
		out[name] = stats
	}
	return out, nil
}
