package qobs

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestEncodings(t *testing.T) {
	Convey("Given samples in the 0/1 encoding", t, func() {
		samples := Samples{{0, 1, 1}, {1, 0, 0}}

		Convey("ToPM1 should send 0 to -1 and 1 to +1", func() {
			So(ToPM1(samples), ShouldResemble, Samples{{-1, 1, 1}, {1, -1, -1}})
		})

		Convey("To01 should invert ToPM1", func() {
			So(To01(ToPM1(samples)), ShouldResemble, samples)
		})

		Convey("The input should not be modified", func() {
			ToPM1(samples)
			So(samples, ShouldResemble, Samples{{0, 1, 1}, {1, 0, 0}})
		})
	})

	Convey("FlipSpin should flip a single site of a copy", t, func() {
		config := []float64{0, 1, 0}
		So(FlipSpin(1, config), ShouldResemble, []float64{0, 0, 0})
		So(FlipSpin(2, config), ShouldResemble, []float64{0, 1, 1})
		So(config, ShouldResemble, []float64{0, 1, 0})
	})
}

func TestSamplesValidate(t *testing.T) {
	Convey("Given sample batches", t, func() {
		So(Samples{{0, 1}, {1, 1}}.Validate(), ShouldBeNil)
		So(errors.Is(Samples{}.Validate(), ErrEmptySamples), ShouldBeTrue)
		So(errors.Is(Samples{{}}.Validate(), ErrEmptySamples), ShouldBeTrue)
		So(errors.Is(Samples{{0, 1}, {1}}.Validate(), ErrRaggedSamples), ShouldBeTrue)
		So(errors.Is(Samples{{0, 2}}.Validate(), ErrInvalidSample), ShouldBeTrue)
		So(errors.Is(Samples{{-1, 1}}.Validate(), ErrInvalidSample), ShouldBeTrue)
	})

	Convey("Chunking should cover every row once", t, func() {
		samples := Samples{{0}, {1}, {0}, {1}, {1}}
		chunks := samples.chunks(2)

		So(len(chunks), ShouldEqual, 3)
		So(len(chunks[2]), ShouldEqual, 1)
		So(samples.chunks(0), ShouldHaveLength, 1)
		So(samples.chunks(10), ShouldHaveLength, 1)
	})
}
