package qobs

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestConfig(t *testing.T) {
	Convey("Given no environment overrides", t, func() {
		cfg, err := LoadConfig()

		Convey("It should match the defaults", func() {
			So(err, ShouldBeNil)
			So(cfg, ShouldResemble, NewConfig())
		})
	})

	Convey("Given environment overrides", t, func() {
		t.Setenv("QOBS_WORKERS", "8")
		t.Setenv("QOBS_CHUNK_SIZE", "64")
		t.Setenv("QOBS_JOB_TIMEOUT", "2s")

		cfg, err := LoadConfig()

		Convey("They should replace the defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.Workers, ShouldEqual, 8)
			So(cfg.ChunkSize, ShouldEqual, 64)
			So(cfg.JobTimeout, ShouldEqual, 2*time.Second)
			So(cfg.SchedulingTimeout, ShouldEqual, 10*time.Second)
		})
	})

	Convey("Given invalid overrides", t, func() {
		Convey("A malformed value should fail to parse", func() {
			t.Setenv("QOBS_WORKERS", "many")
			_, err := LoadConfig()
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "parse env:")
		})

		Convey("A non-positive worker count should be rejected", func() {
			t.Setenv("QOBS_WORKERS", "0")
			_, err := LoadConfig()
			So(errors.Is(err, ErrInvalidOption), ShouldBeTrue)
		})
	})
}
