package qobs

import "errors"

var (
	ErrEmptySamples        = errors.New("no samples")
	ErrRaggedSamples       = errors.New("samples have differing widths")
	ErrInvalidSample       = errors.New("sample entries must be 0 or 1")
	ErrSiteMismatch        = errors.New("sample width does not match wave function")
	ErrNilWaveFunction     = errors.New("observable requires a wave function")
	ErrZeroAmplitude       = errors.New("sampled configuration has zero amplitude")
	ErrNoInteractionTerms  = errors.New("no interaction terms for this lattice size")
	ErrInvalidStatevector  = errors.New("invalid state vector")
	ErrDuplicateObservable = errors.New("duplicate observable name")
	ErrInvalidOption       = errors.New("invalid option")
	ErrEstimateCount       = errors.New("estimate count does not match samples")

	// Pool errors.
	ErrPoolClosed        = errors.New("pool is closed")
	ErrSchedulingTimeout = errors.New("no available workers")
	ErrJobTimeout        = errors.New("job timed out")
	ErrJobPanicked       = errors.New("job panicked")
)
