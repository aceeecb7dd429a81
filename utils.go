package qobs

import "fmt"

/*
Samples is a batch of basis configurations, one row per sample and one
column per site. Rows use the 0/1 encoding unless converted with ToPM1.
*/
type Samples [][]float64

// Sites returns the width of the batch, or 0 for an empty batch.
func (s Samples) Sites() int {
	if len(s) == 0 {
		return 0
	}
	return len(s[0])
}

/*
Validate checks that the batch is non-empty, rectangular and holds only
0/1 entries.
*/
func (s Samples) Validate() error {
	if len(s) == 0 || len(s[0]) == 0 {
		return ErrEmptySamples
	}

	width := len(s[0])
	for i, row := range s {
		if len(row) != width {
			return fmt.Errorf("row %d has %d sites, want %d: %w", i, len(row), width, ErrRaggedSamples)
		}
		for j, v := range row {
			if v != 0 && v != 1 {
				return fmt.Errorf("row %d site %d = %v: %w", i, j, v, ErrInvalidSample)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the batch.
func (s Samples) Clone() Samples {
	return mapSamples(s, func(v float64) float64 { return v })
}

/*
chunks splits the batch into consecutive slices of at most size rows.
The rows are shared with the receiver.
*/
func (s Samples) chunks(size int) []Samples {
	if size <= 0 || size >= len(s) {
		return []Samples{s}
	}

	out := make([]Samples, 0, (len(s)+size-1)/size)
	for start := 0; start < len(s); start += size {
		end := min(start+size, len(s))
		out = append(out, s[start:end])
	}
	return out
}

// To01 maps samples from the ±1 encoding to 0/1.
func To01(samples Samples) Samples {
	return mapSamples(samples, func(v float64) float64 { return (v + 1) / 2 })
}

// ToPM1 maps samples from the 0/1 encoding to ±1, sending 0 to -1.
func ToPM1(samples Samples) Samples {
	return mapSamples(samples, toPM1)
}

// FlipSpin returns a copy of config with the given site flipped.
func FlipSpin(site int, config []float64) []float64 {
	out := make([]float64, len(config))
	copy(out, config)
	out[site] = 1 - out[site]
	return out
}

func toPM1(v float64) float64 {
	return 2*v - 1
}

func mapSamples(samples Samples, fn func(float64) float64) Samples {
	if samples == nil {
		return nil
	}

	out := make(Samples, len(samples))
	for i, row := range samples {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = fn(v)
		}
	}
	return out
}
