package postopt

import (
	"context"
	"strconv"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats/scalar"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/conf/optimization"
	"modl-grid/datagrid/costs"
	"modl-grid/datagrid/grid"
	"modl-grid/datagrid/manager"
)

// pureTable X取1..10，前5行为A类，后5行为B类
func pureTable() *manager.TupleTable {
	table := &manager.TupleTable{
		Columns:    []string{"X", "Class"},
		Types:      []common.AttributeType{common.Continuous, common.Symbol},
		TargetName: "Class",
	}
	for i := 1; i <= 10; i++ {
		class := "A"
		if i > 5 {
			class = "B"
		}
		table.Rows = append(table.Rows, []string{strconv.Itoa(i), class})
	}
	return table
}

// groupTable Y的值p、q属于A类，r、s属于B类，每个值20次
func groupTable() *manager.TupleTable {
	table := &manager.TupleTable{
		Columns:    []string{"Y", "Class"},
		Types:      []common.AttributeType{common.Symbol, common.Symbol},
		TargetName: "Class",
	}
	for _, value := range []string{"p", "q", "r", "s"} {
		class := "A"
		if value == "r" || value == "s" {
			class = "B"
		}
		for i := 0; i < 20; i++ {
			table.Rows = append(table.Rows, []string{value, class})
		}
	}
	return table
}

// rareTable 在groupTable之外加上6个只出现一次的值u1..u6，类别交替
func rareTable() *manager.TupleTable {
	table := groupTable()
	for i := 1; i <= 6; i++ {
		class := "A"
		if i%2 == 0 {
			class = "B"
		}
		table.Rows = append(table.Rows, []string{"u" + strconv.Itoa(i), class})
	}
	return table
}

// mixedTable X连续、Y离散、Class目标
func mixedTable() *manager.TupleTable {
	ys := []string{"a", "a", "a", "a", "b", "b", "b", "c", "c", "d", "a", "b"}
	table := &manager.TupleTable{
		Columns:    []string{"X", "Y", "Class"},
		Types:      []common.AttributeType{common.Continuous, common.Symbol, common.Symbol},
		TargetName: "Class",
	}
	for i, y := range ys {
		class := "A"
		if i%3 == 0 || i > 8 {
			class = "B"
		}
		table.Rows = append(table.Rows, []string{strconv.Itoa(i % 7), y, class})
	}
	return table
}

func build(t *testing.T, table *manager.TupleTable) *grid.DataGrid {
	g, err := manager.BuildDataGridFromTuples(table)
	require.NoError(t, err)
	return g
}

func newEvaluator(dataGridCosts costs.DataGridCosts, reference *grid.DataGrid) *grid.CostEvaluator {
	evaluator := grid.NewCostEvaluator(dataGridCosts)
	evaluator.InitializeDefaultCosts(reference)
	return evaluator
}

// continuousGrid 属性name按区间频数切分，其它属性与reference相同
func continuousGrid(reference *grid.DataGrid, name string, frequencies []int) *grid.DataGrid {
	target := grid.NewDataGrid()
	m := manager.NewManager(reference)
	m.ExportAttributes(target)
	for _, a := range target.Attributes() {
		if a.Name == name {
			manager.BuildPartsOfContinuousAttributeFromFrequencies(reference.SearchAttribute(name), a, frequencies)
		} else {
			m.ExportPartsForAttribute(target, a.Name)
		}
	}
	m.ExportCells(target)
	return target
}

func symbolGrid(reference *grid.DataGrid, name string, groups []int, groupNumber int) *grid.DataGrid {
	return symbolGridWithGarbage(reference, name, groups, groupNumber, 0)
}

// symbolGridWithGarbage garbageModalityNumber大于0时初始值最多的组是垃圾组
func symbolGridWithGarbage(reference *grid.DataGrid, name string, groups []int, groupNumber, garbageModalityNumber int) *grid.DataGrid {
	target := grid.NewDataGrid()
	m := manager.NewManager(reference)
	m.ExportAttributes(target)
	for _, a := range target.Attributes() {
		if a.Name == name {
			manager.BuildPartsOfSymbolAttributeFromGroups(reference.SearchAttribute(name), a, groups, groupNumber, garbageModalityNumber)
		} else {
			m.ExportPartsForAttribute(target, a.Name)
		}
	}
	m.ExportCells(target)
	return target
}

func TestPartFrequencyVector(t *testing.T) {
	Convey("frequencies are conserved by add and remove", t, func() {
		reference := build(t, mixedTable())
		univariate := buildUnivariateDataGrid(reference, reference, "Y")
		vectors := buildPartFrequencyVectors(univariate, univariate.SearchAttribute("Y"))
		So(len(vectors), ShouldEqual, 4)

		total := 0
		modalities := 0
		for _, v := range vectors {
			So(v.Check(), ShouldBeNil)
			total += v.TotalFrequency()
			modalities += v.ModalityNumber()
		}
		So(total, ShouldEqual, reference.GridFrequency())
		So(modalities, ShouldEqual, 4)

		union := vectors[0].Clone()
		for _, v := range vectors[1:] {
			union.Add(v)
		}
		So(union.Check(), ShouldBeNil)
		So(union.TotalFrequency(), ShouldEqual, total)
		So(union.ModalityNumber(), ShouldEqual, 4)

		union.Remove(vectors[2])
		So(union.Check(), ShouldBeNil)
		So(union.TotalFrequency(), ShouldEqual, total-vectors[2].TotalFrequency())
		So(union.ModalityNumber(), ShouldEqual, 3)

		Convey("removing a part that is not included panics", func() {
			d := vectors[3].Clone()
			So(func() { d.Remove(vectors[2]) }, ShouldPanic)
		})

		Convey("a clone does not share its cells", func() {
			clone := vectors[0].Clone()
			clone.Add(vectors[1])
			So(vectors[0].Check(), ShouldBeNil)
			So(vectors[0].TotalFrequency(), ShouldBeLessThan, clone.TotalFrequency())
		})
	})

	Convey("cells with the same exogenous signature share a key", t, func() {
		reference := build(t, mixedTable())
		terminal := grid.NewDataGrid()
		manager.NewManager(reference).ExportTerminalDataGrid(terminal)
		univariate := buildUnivariateDataGrid(reference, terminal, "X")
		vectors := buildPartFrequencyVectors(univariate, univariate.SearchAttribute("X"))
		keys := make(map[string]bool)
		for _, v := range vectors {
			for _, key := range v.Keys() {
				keys[key] = true
			}
		}
		So(len(keys), ShouldEqual, 1)
	})
}

func TestUnivariateCosts(t *testing.T) {
	checkAdditivity := func(t *testing.T, evaluator *grid.CostEvaluator, reference, optimized *grid.DataGrid, name string) {
		univariate := buildUnivariateDataGrid(reference, optimized, name)
		attribute := univariate.SearchAttribute(name)
		c := NewUnivariateCosts(evaluator, univariate, name)
		fine := buildPartFrequencyVectors(univariate, attribute)
		groupOf, groupNumber := initialGroups(attribute, optimized.SearchAttribute(name))
		groups := make([]*PartFrequencyVector, groupNumber)
		for i, group := range groupOf {
			if groups[group] == nil {
				groups[group] = fine[i].Clone()
			} else {
				groups[group].Add(fine[i])
			}
		}
		expected := evaluator.ComputeDataGridTotalCost(optimized)
		actual := c.ComputePartitionGlobalCost(groups, optimized.SearchAttribute(name).GarbageModalityNumber())
		require.True(t, scalar.EqualWithinRel(expected, actual, 1e-9), "%s: expected %f, got %f", name, expected, actual)
	}

	t.Run("classification", func(t *testing.T) {
		reference := build(t, mixedTable())
		evaluator := newEvaluator(costs.NewClassificationCosts(), reference)
		checkAdditivity(t, evaluator, reference, reference, "X")
		checkAdditivity(t, evaluator, reference, reference, "Y")

		coarse := continuousGrid(reference, "X", []int{5, 7})
		checkAdditivity(t, evaluator, reference, coarse, "X")
		checkAdditivity(t, evaluator, reference, coarse, "Y")

		terminal := grid.NewDataGrid()
		manager.NewManager(reference).ExportTerminalDataGrid(terminal)
		checkAdditivity(t, evaluator, reference, terminal, "X")
		checkAdditivity(t, evaluator, reference, terminal, "Y")
	})

	t.Run("clustering", func(t *testing.T) {
		table := mixedTable()
		table.TargetName = ""
		reference := build(t, table)
		evaluator := newEvaluator(costs.NewClusteringCosts(), reference)
		checkAdditivity(t, evaluator, reference, reference, "Class")
		coarse := symbolGrid(reference, "Y", []int{0, 1, 1, 1}, 2)
		checkAdditivity(t, evaluator, reference, coarse, "Y")
		checkAdditivity(t, evaluator, reference, coarse, "X")
	})

	t.Run("regression target", func(t *testing.T) {
		table := &manager.TupleTable{
			Columns: []string{"X", "Z"},
			Types:   []common.AttributeType{common.Continuous, common.Continuous},
		}
		for i := 1; i <= 8; i++ {
			table.Rows = append(table.Rows, []string{strconv.Itoa(i), strconv.Itoa(i * i % 5)})
		}
		reference := build(t, table)
		reference.SearchAttribute("Z").TargetFunction = true
		evaluator := newEvaluator(costs.NewRegressionCosts(), reference)

		coarse := continuousGrid(reference, "Z", []int{4, 4})
		checkAdditivity(t, evaluator, reference, coarse, "Z")
		checkAdditivity(t, evaluator, reference, coarse, "X")
		checkAdditivity(t, evaluator, reference, reference, "Z")
	})
}

func TestPostOptimizeDiscretization(t *testing.T) {
	Convey("deep post-optimization of the null grid finds the pure cut", t, func() {
		reference := build(t, pureTable())
		evaluator := newEvaluator(costs.NewClassificationCosts(), reference)
		optimized := grid.NewDataGrid()
		manager.NewManager(reference).ExportTerminalDataGrid(optimized)
		nullCost := evaluator.ComputeDataGridTotalCost(optimized)

		cost := NewPostOptimizer(evaluator, nil).PostOptimizeDataGrid(reference, optimized, true)
		x := optimized.SearchAttribute("X")
		So(x.PartNumber(), ShouldEqual, 2)
		x.SortParts()
		So(x.PartAt(0).Interval.Upper, ShouldEqual, 5.5)
		So(cost, ShouldBeLessThan, nullCost)
		So(cost, ShouldAlmostEqual, evaluator.ComputeDataGridTotalCost(optimized), 1e-9)
		So(manager.NewManager(reference).CheckDataGrid(optimized), ShouldBeNil)

		Convey("running again on the optimum changes nothing", func() {
			again := NewPostOptimizer(evaluator, nil).PostOptimizeDataGrid(reference, optimized, true)
			So(scalar.EqualWithinRel(again, cost, common.Epsilon), ShouldBeTrue)
			So(optimized.SearchAttribute("X").PartNumber(), ShouldEqual, 2)
		})
	})

	Convey("light post-optimization moves a boundary", t, func() {
		reference := build(t, pureTable())
		evaluator := newEvaluator(costs.NewClassificationCosts(), reference)
		optimized := continuousGrid(reference, "X", []int{3, 7})
		initialCost := evaluator.ComputeDataGridTotalCost(optimized)

		cost := NewPostOptimizer(evaluator, nil).PostOptimizeDataGrid(reference, optimized, false)
		x := optimized.SearchAttribute("X")
		So(x.PartNumber(), ShouldEqual, 2)
		x.SortParts()
		So(x.PartAt(0).Interval.Upper, ShouldEqual, 5.5)
		So(cost, ShouldBeLessThan, initialCost)
	})

	Convey("light post-optimization keeps a single interval", t, func() {
		reference := build(t, pureTable())
		evaluator := newEvaluator(costs.NewClassificationCosts(), reference)
		optimized := grid.NewDataGrid()
		manager.NewManager(reference).ExportTerminalDataGrid(optimized)
		nullCost := evaluator.ComputeDataGridTotalCost(optimized)

		cost := NewPostOptimizer(evaluator, nil).PostOptimizeDataGrid(reference, optimized, false)
		So(optimized.SearchAttribute("X").PartNumber(), ShouldEqual, 1)
		So(cost, ShouldAlmostEqual, nullCost, 1e-9)
	})
}

func TestPostOptimizeGrouping(t *testing.T) {
	Convey("values move to the group of their class", t, func() {
		reference := build(t, groupTable())
		evaluator := newEvaluator(costs.NewClassificationCosts(), reference)
		optimized := symbolGrid(reference, "Y", []int{0, 1, 0, 1}, 2)
		initialCost := evaluator.ComputeDataGridTotalCost(optimized)

		cost := NewPostOptimizer(evaluator, nil).PostOptimizeDataGrid(reference, optimized, false)
		y := optimized.SearchAttribute("Y")
		So(y.PartNumber(), ShouldEqual, 2)
		So(cost, ShouldBeLessThan, initialCost)
		y.BuildIndexingStructure()
		So(y.LookupSymbolPart("p") == y.LookupSymbolPart("q"), ShouldBeTrue)
		So(y.LookupSymbolPart("r") == y.LookupSymbolPart("s"), ShouldBeTrue)
		So(y.LookupSymbolPart("p") == y.LookupSymbolPart("r"), ShouldBeFalse)
		for _, c := range optimized.Cells() {
			So(c.TargetFrequencies(), ShouldContain, 0)
		}

		Convey("the optimum is stable", func() {
			again := NewPostOptimizer(evaluator, nil).PostOptimizeDataGrid(reference, optimized, true)
			So(again, ShouldAlmostEqual, cost, 1e-9)
			So(optimized.SearchAttribute("Y").PartNumber(), ShouldEqual, 2)
		})
	})

	Convey("with a garbage group, the garbage is rescanned after the pass", t, func() {
		optimization.Debug = true
		defer func() { optimization.Debug = false }()

		reference := build(t, rareTable())
		evaluator := newEvaluator(costs.NewClassificationCosts(), reference)
		// {p,q} {r,s} 以及所有稀有值，稀有值的组是垃圾组
		var groups []int
		for _, part := range reference.SearchAttribute("Y").Parts() {
			group := 2
			for _, v := range part.ValueSet.Values {
				switch v.Value {
				case "p", "q":
					group = 0
				case "r", "s":
					group = 1
				}
			}
			groups = append(groups, group)
		}
		optimized := symbolGridWithGarbage(reference, "Y", groups, 3, 1)
		y := optimized.SearchAttribute("Y")
		require.NotNil(t, y.GarbagePart())
		So(y.GarbagePart().ValueSet.ValueNumber, ShouldEqual, 6)
		initialCost := evaluator.ComputeDataGridTotalCost(optimized)

		cost := NewPostOptimizer(evaluator, nil).PostOptimizeDataGrid(reference, optimized, true)
		So(cost, ShouldBeLessThanOrEqualTo, initialCost+common.Epsilon)
		So(cost, ShouldAlmostEqual, evaluator.ComputeDataGridTotalCost(optimized), 1e-6)
		y = optimized.SearchAttribute("Y")
		if y.PartNumber() >= 3 {
			garbage := y.GarbagePart()
			require.NotNil(t, garbage)
			So(garbage, ShouldEqual, y.ComputeGarbagePart())
			for _, p := range y.Parts() {
				So(p.ValueSet.ValueNumber, ShouldBeLessThanOrEqualTo, garbage.ValueSet.ValueNumber)
			}
			So(y.GarbageModalityNumber(), ShouldEqual, garbage.ValueSet.Modalities)
		} else {
			So(y.GarbagePart(), ShouldBeNil)
		}
	})

	Convey("an interrupted post-optimization leaves the grid unchanged", t, func() {
		reference := build(t, groupTable())
		evaluator := newEvaluator(costs.NewClassificationCosts(), reference)
		optimized := symbolGrid(reference, "Y", []int{0, 1, 0, 1}, 2)
		initialCost := evaluator.ComputeDataGridTotalCost(optimized)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		cost := NewPostOptimizer(evaluator, common.NewInterruption(ctx)).PostOptimizeDataGrid(reference, optimized, true)
		So(cost, ShouldEqual, initialCost)
	})
}

func TestGrouperGarbage(t *testing.T) {
	Convey("the garbage is the group with the most initial values, not the most frequent one", t, func() {
		vector := func(valueNumber, frequency int) *PartFrequencyVector {
			v := NewPartFrequencyVector()
			v.modalities = 1
			v.valueNumber = valueNumber
			v.AddCell("k", &CellFrequencyVector{Frequency: frequency, TargetFrequencies: []int{frequency, 0}})
			return v
		}
		// 每个初始部分是一个partile：{a} {b} {c,d,e} {f}
		g := &grouper{
			fine:       []*PartFrequencyVector{vector(1, 100), vector(1, 100), vector(3, 3), vector(1, 1)},
			useGarbage: true,
		}
		g.initialize([]int{0, 1, 2, 2}, 3)
		garbage := g.garbageGroup(g.groupCount, nil)
		So(garbage, ShouldEqual, g.groups[2])
		So(garbage.ValueNumber(), ShouldEqual, 4)
		So(g.garbageModalityNumber(g.groupCount, nil), ShouldEqual, 2)

		Convey("a move is evaluated against the rescanned garbage", func() {
			diff := g.groups[2].Clone()
			diff.Remove(g.fine[2])
			union := g.groups[0].Clone()
			union.Add(g.fine[2])
			moved := g.garbageGroup(g.groupCount, map[int]*PartFrequencyVector{2: diff, 0: union})
			So(moved, ShouldEqual, union)
			So(g.garbageModalityNumber(g.groupCount, map[int]*PartFrequencyVector{2: diff, 0: union}), ShouldEqual, 2)
		})

		Convey("fewer than three groups have no garbage", func() {
			So(g.garbageGroup(2, map[int]*PartFrequencyVector{1: nil}), ShouldBeNil)
			So(g.garbageModalityNumber(2, map[int]*PartFrequencyVector{1: nil}), ShouldEqual, 0)
		})

		Convey("without garbage the scan is skipped", func() {
			g.useGarbage = false
			So(g.garbageGroup(g.groupCount, nil), ShouldBeNil)
		})
	})
}
