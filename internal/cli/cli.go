// Package cli implements the qobs command: estimate observables of a state
// vector from drawn or recorded samples.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/log"
	flags "github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/theapemachine/qobs"
	"github.com/theapemachine/qobs/store"
)

// Options are the command line flags of qobs.
type Options struct {
	Psi         string  `long:"psi" description:"state vector file, one amplitude (re [im]) per line" required:"true"`
	Samples     string  `long:"samples" description:"sample file of whitespace separated 0/1 rows; drawn from --psi when empty"`
	NumSamples  int     `long:"num-samples" description:"number of samples to draw" default:"1000"`
	NumChains   int     `long:"num-chains" description:"samples drawn per batch, 0 for one batch" default:"0"`
	Observables string  `long:"observables" description:"comma separated list of x, y, z, zz, energy" default:"x,y,z,zz"`
	Periodic    bool    `long:"periodic" description:"periodic boundary conditions for interactions"`
	C           int     `long:"c" description:"neighbour distance for zz" default:"1"`
	Absolute    bool    `long:"absolute" description:"report absolute Pauli estimates"`
	Coupling    float64 `long:"coupling" description:"Ising coupling J for energy" default:"1"`
	Field       float64 `long:"field" description:"transverse field h for energy" default:"1"`
	Seed        uint64  `long:"seed" description:"sampling seed, 0 for a random seed"`
	Workers     int     `long:"workers" description:"estimator workers, overrides QOBS_WORKERS"`
	ChunkSize   int     `long:"chunk-size" description:"samples per estimator job, overrides QOBS_CHUNK_SIZE"`
	DB          string  `long:"db" description:"SQLite file to record the run in"`
	Label       string  `long:"label" description:"label stored with the run"`
	Verbose     bool    `short:"v" long:"verbose" description:"debug logging"`
}

// ParseOptions parses command line arguments.
func ParseOptions(args []string) (Options, error) {
	var opts Options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "qobs"

	if _, err := parser.ParseArgs(args); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// IsHelp reports whether err is the request for usage output.
func IsHelp(err error) bool {
	var ferr *flags.Error
	return errors.As(err, &ferr) && ferr.Type == flags.ErrHelp
}

// Run evaluates the requested observables and writes a table to out.
func Run(ctx context.Context, opts Options, out io.Writer) error {
	if opts.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := qobs.LoadConfig()
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}
	if opts.ChunkSize > 0 {
		cfg.ChunkSize = opts.ChunkSize
	}

	psi, err := loadStatevector(opts.Psi, opts.Seed)
	if err != nil {
		return err
	}
	log.Debug("loaded state", "sites", psi.NumSites(), "path", opts.Psi)

	observables, err := BuildObservables(opts)
	if err != nil {
		return err
	}
	system, err := qobs.NewSystem(observables...)
	if err != nil {
		return errors.Wrap(err, "build system")
	}

	est := qobs.NewEstimator(ctx, cfg)
	defer est.Close()

	var (
		results    map[string]qobs.Statistics
		numSamples int
	)
	if opts.Samples != "" {
		samples, err := loadSamples(opts.Samples)
		if err != nil {
			return err
		}
		numSamples = len(samples)
		results, err = system.StatisticsFromSamples(ctx, est, psi, samples)
		if err != nil {
			return errors.Wrap(err, "estimate")
		}
	} else {
		numSamples = opts.NumSamples
		results, err = system.Statistics(ctx, est, psi, qobs.StatisticsOptions{
			NumSamples: opts.NumSamples,
			NumChains:  opts.NumChains,
		})
		if err != nil {
			return errors.Wrap(err, "estimate")
		}
	}

	if err := writeTable(out, system.Names(), results); err != nil {
		return err
	}
	log.Debug("estimator metrics", "jobs", est.Metrics().JobCount, "avg", est.Metrics().AverageJobLatency)

	if opts.DB == "" {
		return nil
	}
	return saveRun(ctx, opts, psi.NumSites(), numSamples, system.Names(), results, out)
}

// BuildObservables maps the --observables list onto observables.
func BuildObservables(opts Options) ([]qobs.Observable, error) {
	var out []qobs.Observable
	for _, key := range strings.Split(opts.Observables, ",") {
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "":
			continue
		case "x":
			out = append(out, qobs.NewSigmaX(opts.Absolute))
		case "y":
			out = append(out, qobs.NewSigmaY(opts.Absolute))
		case "z":
			out = append(out, qobs.NewSigmaZ(opts.Absolute))
		case "zz":
			obs, err := qobs.NewNeighbourInteraction(opts.Periodic, opts.C)
			if err != nil {
				return nil, errors.Wrap(err, "zz")
			}
			out = append(out, obs)
		case "energy":
			out = append(out, qobs.TFIMEnergy(opts.Coupling, opts.Field, opts.Periodic))
		default:
			return nil, errors.Errorf("unknown observable %q", key)
		}
	}

	if len(out) == 0 {
		return nil, errors.New("no observables requested")
	}
	return out, nil
}

func loadStatevector(path string, seed uint64) (*qobs.Statevector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open state vector")
	}
	defer f.Close()

	var opts []qobs.SamplerOption
	if seed != 0 {
		opts = append(opts, qobs.WithSeed(seed))
	}

	psi, err := qobs.LoadStatevector(f, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "load state vector %s", path)
	}
	return psi, nil
}

func loadSamples(path string) (qobs.Samples, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open samples")
	}
	defer f.Close()

	samples, err := qobs.LoadSamples(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load samples %s", path)
	}
	return samples, nil
}

func writeTable(out io.Writer, names []string, results map[string]qobs.Statistics) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OBSERVABLE\tMEAN\tVARIANCE\tSTD ERROR\tSAMPLES")
	for _, name := range names {
		st := results[name]
		fmt.Fprintf(tw, "%s\t%.6f\t%.6f\t%.6f\t%d\n", name, st.Mean, st.Variance, st.StdError, st.NumSamples)
	}
	return errors.Wrap(tw.Flush(), "write table")
}

func saveRun(
	ctx context.Context,
	opts Options,
	sites, numSamples int,
	names []string,
	results map[string]qobs.Statistics,
	out io.Writer,
) error {
	db, err := store.Open(opts.DB)
	if err != nil {
		return errors.Wrap(err, "open run store")
	}
	defer db.Close()

	run := store.Run{
		Label:      opts.Label,
		NumSites:   sites,
		NumSamples: numSamples,
	}
	for _, name := range names {
		run.Entries = append(run.Entries, store.Entry{Observable: name, Statistics: results[name]})
	}

	run, err = db.SaveRun(ctx, run)
	if err != nil {
		return errors.Wrap(err, "save run")
	}

	log.Info("saved run", "id", run.ID, "db", opts.DB)
	fmt.Fprintf(out, "run %s\n", run.ID)
	return nil
}
