package qobs

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNeighbourInteraction(t *testing.T) {
	Convey("Given a three-site sample (-1, -1, +1)", t, func() {
		samples := Samples{{0, 0, 1}}

		Convey("Open boundaries should average the two inner bonds", func() {
			obs, err := NewNeighbourInteraction(false, 1)
			So(err, ShouldBeNil)

			values, err := obs.Apply(nil, samples)
			So(err, ShouldBeNil)
			So(values[0], ShouldAlmostEqual, 0)
		})

		Convey("Periodic boundaries should include the wrapping bond", func() {
			obs, err := NewNeighbourInteraction(true, 1)
			So(err, ShouldBeNil)

			values, err := obs.Apply(nil, samples)
			So(err, ShouldBeNil)
			So(values[0], ShouldAlmostEqual, -1.0/3.0)
		})

		Convey("A longer range should pair distant sites", func() {
			obs, err := NewNeighbourInteraction(false, 2)
			So(err, ShouldBeNil)

			values, err := obs.Apply(nil, samples)
			So(err, ShouldBeNil)
			So(values[0], ShouldAlmostEqual, -1)
		})

		Convey("Open boundaries without any bond should fail", func() {
			obs, err := NewNeighbourInteraction(false, 3)
			So(err, ShouldBeNil)

			_, err = obs.Apply(nil, samples)
			So(errors.Is(err, ErrNoInteractionTerms), ShouldBeTrue)
		})
	})

	Convey("Given a ferromagnetic sample", t, func() {
		obs, err := NewNeighbourInteraction(true, 1)
		So(err, ShouldBeNil)

		values, err := obs.Apply(nil, Samples{{1, 1, 1, 1}, {0, 0, 0, 0}})
		So(err, ShouldBeNil)
		So(values, ShouldResemble, []float64{1, 1})
	})

	Convey("A non-positive distance should be rejected", t, func() {
		_, err := NewNeighbourInteraction(true, 0)
		So(errors.Is(err, ErrInvalidOption), ShouldBeTrue)
	})

	Convey("The name should carry the configuration", t, func() {
		obs, err := NewNeighbourInteraction(true, 2)
		So(err, ShouldBeNil)
		So(obs.Name(), ShouldEqual, "NeighbourInteraction(periodic=true, c=2)")
	})
}
