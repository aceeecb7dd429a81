package qobs

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"math/bits"
	"math/cmplx"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"sync"
)

/*
WaveFunction gives the amplitude ψ(s) of a basis configuration s in the
0/1 encoding. Implementations must be safe for concurrent reads.
*/
type WaveFunction interface {
	NumSites() int
	Amplitude(config []float64) complex128
}

// Sampler draws configurations from the Born distribution |ψ(s)|².
type Sampler interface {
	Sample(ctx context.Context, n int) (Samples, error)
}

// Model is a wave function that can also be sampled.
type Model interface {
	WaveFunction
	Sampler
}

// SamplerOption configures the random source of a sampled state.
type SamplerOption func(*randomSource)

// WithSeed makes sampling reproducible.
func WithSeed(seed uint64) SamplerOption {
	return func(r *randomSource) {
		r.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

type randomSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newRandomSource(opts []SamplerOption) *randomSource {
	r := &randomSource{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *randomSource) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

/*
Statevector is an exact wave function over all 2^N basis states. The basis
index of a configuration reads site 0 as the most significant bit.
*/
type Statevector struct {
	sites      int
	amplitudes []complex128
	cumulative []float64
	random     *randomSource
}

/*
NewStatevector normalises amps and prepares the state for sampling. The
length must be a power of two covering at least one site.
*/
func NewStatevector(amps []complex128, opts ...SamplerOption) (*Statevector, error) {
	if len(amps) < 2 || bits.OnesCount(uint(len(amps))) != 1 {
		return nil, fmt.Errorf("%d amplitudes is not a power of two: %w", len(amps), ErrInvalidStatevector)
	}

	var norm float64
	for _, a := range amps {
		p := cmplx.Abs(a)
		norm += p * p
	}
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, fmt.Errorf("norm %v: %w", norm, ErrInvalidStatevector)
	}

	scale := complex(1/math.Sqrt(norm), 0)
	sv := &Statevector{
		sites:      bits.TrailingZeros(uint(len(amps))),
		amplitudes: make([]complex128, len(amps)),
		cumulative: make([]float64, len(amps)),
		random:     newRandomSource(opts),
	}

	var cumulative float64
	for i, a := range amps {
		sv.amplitudes[i] = a * scale
		p := cmplx.Abs(sv.amplitudes[i])
		cumulative += p * p
		sv.cumulative[i] = cumulative
	}
	// Pin the last bucket to exactly 1 so every draw in [0, 1) lands.
	for i := range sv.cumulative {
		sv.cumulative[i] /= cumulative
	}

	return sv, nil
}

func (sv *Statevector) NumSites() int { return sv.sites }

// Amplitude returns ψ(config); configurations of the wrong width have none.
func (sv *Statevector) Amplitude(config []float64) complex128 {
	if len(config) != sv.sites {
		return 0
	}
	return sv.amplitudes[sv.Index(config)]
}

// Amplitudes returns a copy of the normalised amplitudes.
func (sv *Statevector) Amplitudes() []complex128 {
	out := make([]complex128, len(sv.amplitudes))
	copy(out, sv.amplitudes)
	return out
}

// Probabilities returns |ψ|² for every basis state.
func (sv *Statevector) Probabilities() []float64 {
	probs := make([]float64, len(sv.amplitudes))
	for i, a := range sv.amplitudes {
		p := cmplx.Abs(a)
		probs[i] = p * p
	}
	return probs
}

// Index returns the basis index of a configuration.
func (sv *Statevector) Index(config []float64) int {
	idx := 0
	for _, v := range config {
		idx <<= 1
		if v != 0 {
			idx |= 1
		}
	}
	return idx
}

// Config returns the configuration with the given basis index.
func (sv *Statevector) Config(index int) []float64 {
	config := make([]float64, sv.sites)
	for j := sv.sites - 1; j >= 0; j-- {
		config[j] = float64(index & 1)
		index >>= 1
	}
	return config
}

/*
Sample measures the state n times. The state itself is left untouched;
each draw picks the first basis state whose cumulative probability
exceeds a uniform variate.
*/
func (sv *Statevector) Sample(ctx context.Context, n int) (Samples, error) {
	if n <= 0 {
		return nil, fmt.Errorf("sample count %d: %w", n, ErrInvalidOption)
	}

	out := make(Samples, n)
	for i := range out {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		r := sv.random.Float64()
		idx := sort.Search(len(sv.cumulative), func(k int) bool {
			return sv.cumulative[k] > r
		})
		out[i] = sv.Config(idx)
	}
	return out, nil
}

/*
LoadStatevector reads one amplitude per line, either "re" or "re im".
Blank lines and lines starting with '#' are skipped.
*/
func LoadStatevector(r io.Reader, opts ...SamplerOption) (*Statevector, error) {
	var amps []complex128

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) > 2 {
			return nil, fmt.Errorf("line %d: expected 1 or 2 columns, got %d: %w", line, len(fields), ErrInvalidStatevector)
		}

		parts := make([]float64, 2)
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			parts[i] = v
		}
		amps = append(amps, complex(parts[0], parts[1]))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return NewStatevector(amps, opts...)
}

// LoadSamples reads whitespace separated 0/1 rows.
func LoadSamples(r io.Reader) (Samples, error) {
	var samples Samples

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		row := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			row[i] = v
		}
		samples = append(samples, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if err := samples.Validate(); err != nil {
		return nil, err
	}
	return samples, nil
}
