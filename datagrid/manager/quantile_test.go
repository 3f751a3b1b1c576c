package manager

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func quantileRanges(b QuantileBuilder) [][3]int {
	var ranges [][3]int
	for i := 0; i < b.QuantileNumber(); i++ {
		ranges = append(ranges, [3]int{b.FirstIndexAt(i), b.LastIndexAt(i), b.FrequencyAt(i)})
	}
	return ranges
}

func TestIntervalQuantileBuilder(t *testing.T) {
	Convey("equal frequencies are cut at the median", t, func() {
		b := NewIntervalQuantileBuilder([]int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1})
		So(b.ValueNumber(), ShouldEqual, 10)
		So(b.InstanceNumber(), ShouldEqual, 10)
		So(b.ComputeQuantiles(2), ShouldEqual, 2)
		So(quantileRanges(b), ShouldResemble, [][3]int{{0, 4, 5}, {5, 9, 5}})

		Convey("one quantile covers every value", func() {
			So(b.ComputeQuantiles(1), ShouldEqual, 1)
			So(quantileRanges(b), ShouldResemble, [][3]int{{0, 9, 10}})
		})
	})

	Convey("a heavy value absorbs the quantiles that fall inside it", t, func() {
		b := NewIntervalQuantileBuilder([]int{1, 8, 1})
		So(b.ComputeQuantiles(4), ShouldEqual, 3)
		So(quantileRanges(b), ShouldResemble, [][3]int{{0, 0, 1}, {1, 1, 8}, {2, 2, 1}})
	})

	Convey("more quantiles than values gives one value per quantile", t, func() {
		b := NewIntervalQuantileBuilder([]int{3, 3, 3})
		So(b.ComputeQuantiles(8), ShouldEqual, 3)
		total := 0
		for i := 0; i < b.QuantileNumber(); i++ {
			total += b.FrequencyAt(i)
		}
		So(total, ShouldEqual, 9)
	})

	Convey("frequencies must be positive", t, func() {
		So(func() { NewIntervalQuantileBuilder([]int{1, 0}) }, ShouldPanic)
	})
}

func TestGroupQuantileBuilder(t *testing.T) {
	Convey("frequent values stay alone, the rest are grouped", t, func() {
		b := NewGroupQuantileBuilder([]int{100, 100, 1, 1, 1})
		So(b.ComputeQuantiles(4), ShouldEqual, 3)
		So(quantileRanges(b), ShouldResemble, [][3]int{{0, 0, 100}, {1, 1, 100}, {2, 4, 3}})

		Convey("too few quantiles leave a single group", func() {
			So(b.ComputeQuantiles(2), ShouldEqual, 1)
			So(quantileRanges(b), ShouldResemble, [][3]int{{0, 4, 203}})
		})
	})

	Convey("every value frequent enough gives singletons", t, func() {
		b := NewGroupQuantileBuilder([]int{5, 5, 5})
		So(b.ComputeQuantiles(4), ShouldEqual, 3)
		So(quantileRanges(b), ShouldResemble, [][3]int{{0, 0, 5}, {1, 1, 5}, {2, 2, 5}})
	})

	Convey("frequencies must be decreasing", t, func() {
		So(func() { NewGroupQuantileBuilder([]int{1, 2}) }, ShouldPanic)
	})
}
