package qobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/theapemachine/qobs")

/*
StatisticsOptions controls how many samples are drawn. NumChains is the
size of each sampling batch; zero draws everything in one batch.
*/
type StatisticsOptions struct {
	NumSamples int
	NumChains  int
}

func (o StatisticsOptions) validate() error {
	if o.NumSamples <= 0 {
		return fmt.Errorf("num samples %d: %w", o.NumSamples, ErrInvalidOption)
	}
	if o.NumChains < 0 {
		return fmt.Errorf("num chains %d: %w", o.NumChains, ErrInvalidOption)
	}
	return nil
}

func (o StatisticsOptions) batchSize() int {
	if o.NumChains == 0 || o.NumChains > o.NumSamples {
		return o.NumSamples
	}
	return o.NumChains
}

/*
Estimator evaluates observables over large sample sets by splitting them
into chunks, estimating each chunk on the worker pool and merging the
partial statistics.
*/
type Estimator struct {
	config *Config
	pool   *Q
}

func NewEstimator(ctx context.Context, config *Config) *Estimator {
	if config == nil {
		config = NewConfig()
	}
	return &Estimator{
		config: config,
		pool:   NewQ(ctx, config.Workers, config),
	}
}

// StatisticsFromSamples estimates obs on an existing batch of samples.
func (e *Estimator) StatisticsFromSamples(
	ctx context.Context, obs Observable, psi WaveFunction, samples Samples,
) (Statistics, error) {
	ctx, span := tracer.Start(ctx, "Estimator.StatisticsFromSamples", trace.WithAttributes(
		attribute.String("observable", obs.Name()),
		attribute.Int("samples", len(samples)),
	))
	defer span.End()

	stats, err := e.statisticsFromSamples(ctx, obs, psi, samples)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return stats, err
}

// Sample draws n samples from model and returns obs's local estimates.
func (e *Estimator) Sample(ctx context.Context, obs Observable, model Model, n int) ([]float64, error) {
	samples, err := model.Sample(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("sample: %w", err)
	}
	return obs.Apply(model, samples)
}

// Statistics draws fresh samples from model and estimates obs on them.
func (e *Estimator) Statistics(
	ctx context.Context, obs Observable, model Model, opts StatisticsOptions,
) (Statistics, error) {
	ctx, span := tracer.Start(ctx, "Estimator.Statistics", trace.WithAttributes(
		attribute.String("observable", obs.Name()),
		attribute.Int("num_samples", opts.NumSamples),
		attribute.Int("num_chains", opts.NumChains),
	))
	defer span.End()

	var total Statistics
	err := e.sampleBatches(ctx, model, opts, func(samples Samples) error {
		stats, err := e.statisticsFromSamples(ctx, obs, model, samples)
		if err != nil {
			return err
		}
		total = total.Merge(stats)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Statistics{}, err
	}
	return total, nil
}

// Metrics returns a snapshot of the pool's job metrics.
func (e *Estimator) Metrics() MetricsSnapshot {
	return e.pool.Metrics().Snapshot()
}

func (e *Estimator) Close() {
	e.pool.Close()
}

func (e *Estimator) statisticsFromSamples(
	ctx context.Context, obs Observable, psi WaveFunction, samples Samples,
) (Statistics, error) {
	if err := samples.Validate(); err != nil {
		return Statistics{}, fmt.Errorf("%s: %w", obs.Name(), err)
	}

	chunks := samples.chunks(e.config.ChunkSize)
	runID := uuid.NewString()

	type pendingChunk struct {
		id     string
		result chan Result
	}

	// Scheduling may block on a full queue, so it runs alongside the merge.
	pending := make(chan pendingChunk, len(chunks))
	go func() {
		defer close(pending)
		for i, chunk := range chunks {
			if ctx.Err() != nil {
				return
			}
			id := fmt.Sprintf("%s/%d", runID, i)
			pending <- pendingChunk{
				id: id,
				result: e.pool.Schedule(id, func() (any, error) {
					values, err := obs.Apply(psi, chunk)
					if err != nil {
						return nil, err
					}
					return Summarize(values), nil
				}, WithTTL(e.config.ResultTTL)),
			}
		}
	}()

	var total Statistics
	for p := range pending {
		select {
		case <-ctx.Done():
			return Statistics{}, ctx.Err()
		case res := <-p.result:
			e.pool.space.Forget(p.id)
			if res.Error != nil {
				return Statistics{}, fmt.Errorf("%s: %w", obs.Name(), res.Error)
			}
			total = total.Merge(res.Value.(Statistics))
		}
	}

	if err := ctx.Err(); err != nil {
		return Statistics{}, err
	}
	return total, nil
}

func (e *Estimator) sampleBatches(
	ctx context.Context, sampler Sampler, opts StatisticsOptions, fn func(Samples) error,
) error {
	if err := opts.validate(); err != nil {
		return err
	}

	batch := opts.batchSize()
	for remaining := opts.NumSamples; remaining > 0; remaining -= batch {
		samples, err := sampler.Sample(ctx, min(batch, remaining))
		if err != nil {
			return fmt.Errorf("sample: %w", err)
		}
		if err := fn(samples); err != nil {
			return err
		}
	}
	return nil
}
