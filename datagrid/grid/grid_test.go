package grid

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/costs"
)

// sampleGrid X连续4个区间，Y离散3个组 {a} {b} {c,d,e,*}，两个目标值
func sampleGrid(t *testing.T) *DataGrid {
	g := NewDataGrid()
	g.SetTargetValues([]string{"A", "B"})
	x := g.AddAttribute("X", common.Continuous)
	x.InitialValueNumber, x.GranularizedValueNumber = 8, 8
	bounds := []float64{common.MinLowerBound, 2.5, 4.5, 6.5, common.MaxUpperBound}
	for i := 0; i < 4; i++ {
		p := x.AddPart()
		p.Interval.Lower, p.Interval.Upper = bounds[i], bounds[i+1]
	}
	y := g.AddAttribute("Y", common.Symbol)
	y.InitialValueNumber, y.GranularizedValueNumber = 5, 5
	y.AddPart().ValueSet.AddValue("a", 100)
	y.AddPart().ValueSet.AddValue("b", 100)
	garbage := y.AddPart()
	garbage.ValueSet.AddValue("c", 1)
	garbage.ValueSet.AddValue("d", 1)
	garbage.ValueSet.AddValue("e", 1)
	garbage.ValueSet.AddValue(common.StarValue, 0)

	g.BuildIndexingStructure()
	for i, xp := range x.Parts() {
		for j, yp := range y.Parts() {
			c := g.AddCell([]*Part{xp, yp})
			c.AddTargetFrequency((i+j)%2, 10+i)
			if j == 2 {
				c.AddTargetFrequency(1, 1)
			}
		}
	}
	require.NoError(t, g.Check())
	return g
}

func TestDataGridStructure(t *testing.T) {
	Convey("a grid keeps part and grid frequencies in sync with its cells", t, func() {
		g := sampleGrid(t)
		x, y := g.SearchAttribute("X"), g.SearchAttribute("Y")
		So(g.CellNumber(), ShouldEqual, 12)
		So(g.InformativeAttributeNumber(), ShouldEqual, 2)
		So(g.LnGridSize(), ShouldAlmostEqual, math.Log(12), 1e-12)

		total := 0
		for _, p := range x.Parts() {
			total += p.Frequency()
		}
		So(total, ShouldEqual, g.GridFrequency())

		Convey("cells are found by their tuple of parts", func() {
			c := g.LookupCell([]*Part{x.PartAt(1), y.PartAt(2)})
			So(c, ShouldNotBeNil)
			So(c.Frequency(), ShouldEqual, 12)
			So(g.LookupOrAddCell([]*Part{x.PartAt(1), y.PartAt(2)}), ShouldEqual, c)
		})

		Convey("values and numbers are looked up in their parts", func() {
			So(y.LookupSymbolPart("d"), ShouldEqual, y.PartAt(2))
			So(y.LookupSymbolPart("unseen"), ShouldEqual, y.PartAt(2))
			So(x.LookupContinuousPart(3), ShouldEqual, x.PartAt(1))
			So(x.LookupContinuousPart(100), ShouldEqual, x.PartAt(3))
			So(x.LookupContinuousPart(-100), ShouldEqual, x.PartAt(0))
		})

		Convey("merging two intervals keeps the frequencies", func() {
			before := g.GridFrequency()
			f0, f1 := x.PartAt(0).Frequency(), x.PartAt(1).Frequency()
			merged := g.MergeParts(x.PartAt(0), x.PartAt(1))
			So(merged, ShouldHaveLength, 3)
			So(x.PartNumber(), ShouldEqual, 3)
			So(x.PartAt(0).Frequency(), ShouldEqual, f0+f1)
			So(x.PartAt(0).Interval.Upper, ShouldEqual, 4.5)
			So(g.GridFrequency(), ShouldEqual, before)
			So(g.CellNumber(), ShouldEqual, 9)
			So(g.Check(), ShouldBeNil)
		})

		Convey("deleting a cell removes its frequency from parts and grid", func() {
			c := g.LookupCell([]*Part{x.PartAt(3), y.PartAt(0)})
			before := g.GridFrequency()
			g.DeleteCell(c)
			So(g.GridFrequency(), ShouldEqual, before-c.Frequency())
			So(g.LookupCell([]*Part{x.PartAt(3), y.PartAt(0)}), ShouldBeNil)
			So(g.CellNumber(), ShouldEqual, 11)
			So(g.Check(), ShouldBeNil)
		})
	})
}

func TestGarbagePart(t *testing.T) {
	g := sampleGrid(t)
	y := g.SearchAttribute("Y")

	// 初始值最多的组是垃圾组，而不是频数最大的 {a} 或 {b}
	garbage := y.ComputeGarbagePart()
	require.NotNil(t, garbage)
	require.True(t, garbage.ValueSet.IsDefaultPart())
	require.Equal(t, 3, garbage.ValueSet.TrueValueNumber())

	y.SetGarbagePart(garbage)
	require.Equal(t, 3, y.GarbageModalityNumber())
	require.Equal(t, 3, y.CostParams().GarbageModalityNumber)

	// 合并之后垃圾组跟随目标部分
	g.MergeParts(y.PartAt(0), garbage)
	require.Equal(t, y.PartAt(0), y.GarbagePart())
	require.Equal(t, 4, y.GarbageModalityNumber())
	require.NoError(t, g.Check())

	x := g.SearchAttribute("X")
	require.Panics(t, func() { x.SetGarbagePart(x.PartAt(0)) })

	many := GarbageCandidate{ValueNumber: 3, Modalities: 1, Frequency: 3}
	frequent := GarbageCandidate{ValueNumber: 1, Modalities: 1, Frequency: 100}
	require.True(t, many.Before(frequent))
	require.False(t, frequent.Before(many))
	require.True(t, frequent.Before(GarbageCandidate{ValueNumber: 1, Modalities: 1, Frequency: 99}))
	require.Equal(t, GarbageCandidate{ValueNumber: 4, Modalities: 2, Frequency: 103}, many.Union(frequent))
}

func TestValueSet(t *testing.T) {
	s := &ValueSet{}
	s.AddValue("x", 3)
	s.AddValue(common.StarValue, 0)
	s.AddValue("y", 7)
	s.AddValue("z", 1)
	require.Equal(t, 3, s.Modalities)
	require.Equal(t, 3, s.TrueValueNumber())

	s.SortValues()
	require.Equal(t, "y", s.Values[0].Value)
	require.Equal(t, common.StarValue, s.Values[3].Value)

	removed := s.ConvertToCleanedValueSet()
	require.Equal(t, 2, removed.TrueValueNumber())
	require.Equal(t, 1, s.Modalities)
	require.Equal(t, 3, s.ValueNumber)
	require.Equal(t, 11, s.TotalFrequency())
	require.True(t, s.IsDefaultPart())

	// 初始值个数随合并累加，不受partile模态数影响
	merged := &ValueSet{}
	merged.AddValue("w", 2)
	merged.Import(s)
	require.Equal(t, 2, merged.Modalities)
	require.Equal(t, 4, merged.ValueNumber)
	require.Equal(t, 0, s.ValueNumber)
	copied := &ValueSet{}
	copied.CopyFrom(merged)
	require.Equal(t, 4, copied.ValueNumber)

	interval := &Interval{Lower: common.MinLowerBound, Upper: 1}
	require.True(t, interval.Contains(math.Inf(-1)))
	require.True(t, interval.Contains(1))
	require.False(t, interval.Contains(1.5))
	require.Equal(t, "]-inf;1]", interval.String())
}

func TestCostEvaluator(t *testing.T) {
	Convey("total cost decomposes into cumulative, values and missing attributes", t, func() {
		g := sampleGrid(t)
		evaluator := NewCostEvaluator(costs.NewClassificationCosts())
		evaluator.InitializeDefaultCosts(g)
		So(evaluator.TotalAttributeNumber(), ShouldEqual, 2)
		So(evaluator.CheckDataGrid(g), ShouldBeNil)

		total := evaluator.ComputeDataGridTotalCost(g)
		So(total, ShouldAlmostEqual, evaluator.ComputeDataGridCumulativeCost(g), 1e-9)

		Convey("a grid with the terminal partition costs the default cost", func() {
			terminal := NewDataGrid()
			terminal.SetTargetValues(g.TargetValues())
			for _, a := range g.Attributes() {
				ta := terminal.AddAttribute(a.Name, a.Type)
				ta.InitialValueNumber, ta.GranularizedValueNumber = a.InitialValueNumber, a.GranularizedValueNumber
				p := ta.AddPart()
				if a.Type == common.Symbol {
					for _, sp := range a.Parts() {
						p.ValueSet.UpgradeFrom(sp.ValueSet)
					}
				}
			}
			parts := []*Part{terminal.AttributeAt(0).PartAt(0), terminal.AttributeAt(1).PartAt(0)}
			c := terminal.AddCell(parts)
			for _, gc := range g.Cells() {
				for i, f := range gc.TargetFrequencies() {
					c.AddTargetFrequency(i, f)
				}
			}
			So(terminal.Check(), ShouldBeNil)
			So(evaluator.ComputeDataGridTotalCost(terminal), ShouldAlmostEqual, evaluator.TotalDefaultCost(), 1e-9)
			So(evaluator.ComputeDataGridCompressionCoefficient(terminal), ShouldAlmostEqual, 0, 1e-12)
		})

		Convey("a grid without an attribute pays its default cost", func() {
			partial := NewDataGrid()
			partial.SetTargetValues(g.TargetValues())
			a := partial.AddAttribute("Y", common.Symbol)
			a.InitialValueNumber, a.GranularizedValueNumber = 5, 5
			a.AddPart().ValueSet.AddValue(common.StarValue, 0)
			c := partial.AddCell([]*Part{a.PartAt(0)})
			c.AddTargetFrequency(0, 1)
			So(evaluator.CheckDataGrid(partial), ShouldBeNil)
			So(evaluator.ComputeMissingAttributeCost(partial), ShouldAlmostEqual, evaluator.AttributeDefaultCostAt(0), 1e-12)
		})

		Convey("attributes out of order are rejected", func() {
			reversed := NewDataGrid()
			reversed.AddAttribute("Y", common.Symbol)
			reversed.AddAttribute("X", common.Continuous)
			So(evaluator.CheckDataGrid(reversed), ShouldNotBeNil)
		})
	})

	require.Panics(t, func() { NewCostEvaluator(costs.NewClusteringCosts()).TotalDefaultCost() })
}
