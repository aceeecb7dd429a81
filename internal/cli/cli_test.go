package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/theapemachine/qobs/store"
)

func writeFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestParseOptions(t *testing.T) {
	Convey("Given command line arguments", t, func() {
		opts, err := ParseOptions([]string{"--psi", "psi.txt", "--observables", "z,energy", "--periodic"})

		So(err, ShouldBeNil)
		So(opts.Psi, ShouldEqual, "psi.txt")
		So(opts.NumSamples, ShouldEqual, 1000)
		So(opts.C, ShouldEqual, 1)
		So(opts.Periodic, ShouldBeTrue)
	})

	Convey("A missing state vector should be an error", t, func() {
		_, err := ParseOptions(nil)
		So(err, ShouldNotBeNil)
		So(IsHelp(err), ShouldBeFalse)
	})

	Convey("Help should be recognised", t, func() {
		_, err := ParseOptions([]string{"--help"})
		So(IsHelp(err), ShouldBeTrue)
	})
}

func TestBuildObservables(t *testing.T) {
	Convey("Given an observable list", t, func() {
		obs, err := BuildObservables(Options{Observables: "x, Y,z,zz,energy", C: 1})
		So(err, ShouldBeNil)
		So(obs, ShouldHaveLength, 5)
		So(obs[4].Name(), ShouldEqual, "Energy")

		_, err = BuildObservables(Options{Observables: "w"})
		So(err, ShouldNotBeNil)

		_, err = BuildObservables(Options{Observables: "zz", C: 0})
		So(err, ShouldNotBeNil)

		_, err = BuildObservables(Options{Observables: " , "})
		So(err, ShouldNotBeNil)
	})
}

func TestRun(t *testing.T) {
	Convey("Given a |+⟩|+⟩ state vector", t, func() {
		dir := t.TempDir()
		psi := writeFile(t, dir, "psi.txt", "1\n1\n1\n1\n")
		var out bytes.Buffer

		Convey("Drawing samples should estimate X = 1", func() {
			err := Run(context.Background(), Options{
				Psi:         psi,
				NumSamples:  200,
				Observables: "x,z",
				C:           1,
				Seed:        4,
			}, &out)

			So(err, ShouldBeNil)
			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			So(lines, ShouldHaveLength, 3)
			So(lines[1], ShouldStartWith, "SigmaX")
			So(lines[1], ShouldContainSubstring, "1.000000")
			So(lines[1], ShouldEndWith, "200")
		})

		Convey("Recorded samples should be used and the run stored", func() {
			samples := writeFile(t, dir, "samples.txt", "0 0\n1 1\n0 1\n")
			dbPath := filepath.Join(dir, "runs.db")

			err := Run(context.Background(), Options{
				Psi:         psi,
				Samples:     samples,
				Observables: "z,zz",
				C:           1,
				DB:          dbPath,
				Label:       "cli",
			}, &out)
			So(err, ShouldBeNil)
			So(out.String(), ShouldContainSubstring, "NeighbourInteraction(periodic=false, c=1)")
			So(out.String(), ShouldContainSubstring, "run ")

			db, err := store.Open(dbPath)
			So(err, ShouldBeNil)
			defer db.Close()

			runs, err := db.ListRuns(context.Background(), 1)
			So(err, ShouldBeNil)
			So(runs, ShouldHaveLength, 1)
			So(runs[0].Label, ShouldEqual, "cli")
			So(runs[0].NumSamples, ShouldEqual, 3)
			So(runs[0].Entries[0].Statistics.Mean, ShouldAlmostEqual, 0)
		})

		Convey("A missing state file should fail", func() {
			err := Run(context.Background(), Options{Psi: filepath.Join(dir, "nope"), Observables: "z"}, &out)
			So(err, ShouldNotBeNil)
		})
	})
}
