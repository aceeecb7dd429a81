package qobs

import (
	"fmt"
	"math"
)

/*
Statistics summarises the local estimates of an observable. Variance is
the unbiased sample variance and StdError the standard error of the mean.
*/
type Statistics struct {
	Mean       float64
	Variance   float64
	StdError   float64
	NumSamples int
}

// Summarize computes the statistics of a set of local estimates.
func Summarize(values []float64) Statistics {
	if len(values) == 0 {
		return Statistics{}
	}

	// Welford's running update.
	var mean, m2 float64
	for i, v := range values {
		delta := v - mean
		mean += delta / float64(i+1)
		m2 += delta * (v - mean)
	}

	return fromMoments(len(values), mean, m2)
}

/*
Merge combines the statistics of two disjoint batches using the pairwise
update of Chan, Golub and LeVeque.
*/
func (s Statistics) Merge(other Statistics) Statistics {
	if other.NumSamples == 0 {
		return s
	}
	if s.NumSamples == 0 {
		return other
	}

	na, nb := float64(s.NumSamples), float64(other.NumSamples)
	n := na + nb
	delta := other.Mean - s.Mean

	mean := s.Mean + delta*nb/n
	m2 := s.m2() + other.m2() + delta*delta*na*nb/n

	return fromMoments(s.NumSamples+other.NumSamples, mean, m2)
}

func (s Statistics) String() string {
	return fmt.Sprintf("%.6f ± %.6f (n=%d)", s.Mean, s.StdError, s.NumSamples)
}

func (s Statistics) m2() float64 {
	if s.NumSamples < 2 {
		return 0
	}
	return s.Variance * float64(s.NumSamples-1)
}

func fromMoments(n int, mean, m2 float64) Statistics {
	stats := Statistics{Mean: mean, NumSamples: n}
	if n < 2 {
		return stats
	}

	stats.Variance = math.Max(0, m2/float64(n-1))
	stats.StdError = math.Sqrt(stats.Variance / float64(n))
	return stats
}
