package optimizer

import (
	"context"
	"fmt"
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

// mixedTable 两个输入属性，Y与类别相关
func mixedTable() *manager.TupleTable {
	table := &manager.TupleTable{
		Columns:    []string{"X", "Y", "Class"},
		Types:      []common.AttributeType{common.Continuous, common.Symbol, common.Symbol},
		TargetName: "Class",
	}
	ys := []string{"a", "b", "c", "d"}
	for i := 0; i < 40; i++ {
		y := ys[i%4]
		class := "A"
		if y == "c" || y == "d" {
			class = "B"
		}
		table.Rows = append(table.Rows, []string{strconv.Itoa(i % 13), y, class})
	}
	return table
}

func build(t *testing.T, table *manager.TupleTable) *grid.DataGrid {
	g, err := manager.BuildDataGridFromTuples(table)
	require.NoError(t, err)
	return g
}

func withDebug(f func()) func() {
	return func() {
		optimization.Debug = true
		defer func() { optimization.Debug = false }()
		f()
	}
}

func TestOptimizeMerge(t *testing.T) {
	Convey("greedy merge of the finest grid keeps the pure cut", t, withDebug(func() {
		initial := build(t, pureTable())
		evaluator := grid.NewCostEvaluator(costs.NewClassificationCosts())
		evaluator.InitializeDefaultCosts(initial)
		g := grid.NewDataGrid()
		manager.CopyDataGrid(initial, g)
		initialCost := evaluator.ComputeDataGridTotalCost(g)

		cost := NewMerger(evaluator, nil).OptimizeMerge(g)
		So(cost, ShouldBeLessThan, initialCost)
		So(cost, ShouldBeLessThan, evaluator.TotalDefaultCost())
		x := g.SearchAttribute("X")
		require.NotNil(t, x)
		So(x.PartNumber(), ShouldEqual, 2)
		x.SortParts()
		So(x.PartAt(0).Interval.Upper, ShouldEqual, 5.5)
		So(manager.NewManager(initial).CheckDataGrid(g), ShouldBeNil)
	}))

	Convey("garbage candidates are ranked by initial value number before partile modalities", t, func() {
		a := grid.NewDataGrid().AddAttribute("Y", common.Symbol)
		var top []*grid.Part
		for _, valueNumber := range []int{2, 5, 1, 7, 3} {
			p := a.AddPart()
			p.ValueSet.Modalities = 1
			p.ValueSet.ValueNumber = valueNumber
			top = insertGarbageCandidate(top, p)
		}
		So(top, ShouldHaveLength, 3)
		So([]int{top[0].ValueSet.ValueNumber, top[1].ValueSet.ValueNumber, top[2].ValueSet.ValueNumber},
			ShouldResemble, []int{7, 5, 3})
	})
}

func TestIsOptimizationNeeded(t *testing.T) {
	Convey("a single class can not be explained", t, func() {
		table := pureTable()
		for _, row := range table.Rows {
			row[1] = "A"
		}
		initial := build(t, table)
		So(IsOptimizationNeeded(initial), ShouldBeFalse)

		optimized, cost := OptimizeDataGrid(context.Background(), initial, costs.NewClassificationCosts())
		So(optimized.AttributeNumber(), ShouldEqual, 0)
		evaluator := grid.NewCostEvaluator(costs.NewClassificationCosts())
		evaluator.InitializeDefaultCosts(initial)
		So(scalar.EqualWithinRel(cost, evaluator.TotalDefaultCost(), common.CostEpsilon), ShouldBeTrue)
	})

	Convey("two classes with an informative attribute can", t, func() {
		So(IsOptimizationNeeded(build(t, pureTable())), ShouldBeTrue)
	})
}

func TestGranularityMax(t *testing.T) {
	Convey("the maximal granularity is log2 of the instance number", t, func() {
		So(GranularityMax(build(t, pureTable())), ShouldEqual, 4)
		So(GranularityMax(grid.NewDataGrid()), ShouldEqual, 1)

		Convey("and can be bounded by the user", func() {
			optimization.MaxGranularity = 2
			defer func() { optimization.MaxGranularity = 0 }()
			So(GranularityMax(build(t, pureTable())), ShouldEqual, 2)
		})
	})

	Convey("large bivariate supervised grids use a smaller bound", t, func() {
		table := mixedTable()
		table.Rows = nil
		for i := 0; i < 2000; i++ {
			table.Rows = append(table.Rows, []string{strconv.Itoa(i), fmt.Sprint("y", i%5), fmt.Sprint("C", i%2)})
		}
		// ceil(log2(500 + sqrt(1500 * log2(1500)))) 而不是 ceil(log2(2000))
		So(GranularityMax(build(t, table)), ShouldEqual, 10)
	})
}

func TestOptimizeDataGrid(t *testing.T) {
	Convey("the pure cut is found through the granularities", t, func() {
		initial := build(t, pureTable())
		optimized, cost := OptimizeDataGrid(context.Background(), initial, costs.NewClassificationCosts())
		x := optimized.SearchAttribute("X")
		require.NotNil(t, x)
		So(x.PartNumber(), ShouldEqual, 2)
		So(x.PartAt(0).Interval.Upper, ShouldEqual, 5.5)

		evaluator := grid.NewCostEvaluator(costs.NewClassificationCosts())
		evaluator.InitializeDefaultCosts(initial)
		So(cost, ShouldBeLessThan, evaluator.TotalDefaultCost())
		So(scalar.EqualWithinRel(cost, evaluator.ComputeDataGridTotalCost(optimized), common.CostEpsilon), ShouldBeTrue)
	})

	Convey("the same seed gives the same multi-start result", t, func() {
		optimization.Algorithm = optimization.AlgorithmMultiStart
		optimization.OptimizationLevel = 2
		defer func() {
			optimization.Algorithm = optimization.AlgorithmGreedy
			optimization.OptimizationLevel = 0
		}()
		initial := build(t, mixedTable())
		first, firstCost := OptimizeDataGrid(context.Background(), initial, costs.NewClassificationCosts())
		second, secondCost := OptimizeDataGrid(context.Background(), initial, costs.NewClassificationCosts())
		So(secondCost, ShouldAlmostEqual, firstCost, 1e-9)
		So(second.String(), ShouldEqual, first.String())
		So(second.SearchAttribute("Y"), ShouldNotBeNil)
	})

	Convey("an interrupted optimization returns the terminal grid", t, func() {
		initial := build(t, mixedTable())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		optimized, cost := OptimizeDataGrid(ctx, initial, costs.NewClassificationCosts())
		So(optimized.AttributeNumber(), ShouldEqual, 0)

		evaluator := grid.NewCostEvaluator(costs.NewClassificationCosts())
		evaluator.InitializeDefaultCosts(initial)
		So(scalar.EqualWithinRel(cost, evaluator.TotalDefaultCost(), common.CostEpsilon), ShouldBeTrue)
	})

	Convey("a VarPart grid is coarsened without increasing its cost", t, func() {
		table := &manager.TupleTable{
			Columns: []string{"ID", "V1", "V2"},
			Types:   []common.AttributeType{common.Symbol, common.Continuous, common.Symbol},
		}
		for i := 0; i < 16; i++ {
			v2 := "low"
			if i >= 8 {
				v2 = "high"
			}
			table.Rows = append(table.Rows, []string{fmt.Sprintf("i%d", i), strconv.Itoa(i), v2})
		}
		initial, err := manager.BuildVarPartDataGridFromTuples(table, "ID", []string{"V1", "V2"})
		require.NoError(t, err)
		dataGridCosts := costs.NewVarPartClusteringCosts()
		optimized, cost := OptimizeDataGrid(context.Background(), initial, dataGridCosts)

		evaluator := grid.NewCostEvaluator(dataGridCosts)
		evaluator.InitializeDefaultCosts(initial)
		So(cost, ShouldBeLessThanOrEqualTo, evaluator.TotalDefaultCost()+common.Epsilon)
		if optimized.AttributeNumber() > 0 {
			So(optimized.GridFrequency(), ShouldEqual, initial.GridFrequency())
		}
	})
}

func TestGranularizedGarbage(t *testing.T) {
	Convey("rare values are grouped and the largest group becomes the garbage candidate", t, func() {
		table := &manager.TupleTable{
			Columns: []string{"Y"},
			Types:   []common.AttributeType{common.Symbol},
		}
		for value, frequency := range map[string]int{"a": 100, "b": 100, "c": 1, "d": 1, "e": 1} {
			for i := 0; i < frequency; i++ {
				table.Rows = append(table.Rows, []string{value})
			}
		}
		initial := build(t, table)
		m := manager.NewManager(initial)
		granularized := grid.NewDataGrid()
		m.ExportGranularizedDataGrid(granularized, 2, m.InitializeQuantileBuilders())

		y := granularized.SearchAttribute("Y")
		So(y.PartNumber(), ShouldEqual, 3)
		garbage := y.ComputeGarbagePart()
		require.NotNil(t, garbage)
		So(garbage.ValueSet.Modalities, ShouldEqual, 3)
		So(garbage.ValueSet.ValueNumber, ShouldEqual, 3)
		So(garbage.Frequency(), ShouldEqual, 3)
		y.BuildIndexingStructure()
		So(y.LookupSymbolPart("c"), ShouldEqual, garbage)
		So(y.LookupSymbolPart("a"), ShouldNotEqual, garbage)
	})

	Convey("with a target, partiles count one modality each but the garbage is still the rare values group", t, func() {
		table := &manager.TupleTable{
			Columns:    []string{"Y", "Class"},
			Types:      []common.AttributeType{common.Symbol, common.Symbol},
			TargetName: "Class",
		}
		for _, value := range []struct {
			name      string
			frequency int
			class     string
		}{{"a", 100, "A"}, {"b", 100, "B"}, {"c", 1, "A"}, {"d", 1, "B"}, {"e", 1, "A"}} {
			for i := 0; i < value.frequency; i++ {
				table.Rows = append(table.Rows, []string{value.name, value.class})
			}
		}
		initial := build(t, table)
		m := manager.NewManager(initial)
		granularized := grid.NewDataGrid()
		m.ExportGranularizedDataGrid(granularized, 2, m.InitializeQuantileBuilders())

		y := granularized.SearchAttribute("Y")
		So(y.PartNumber(), ShouldEqual, 3)
		for _, p := range y.Parts() {
			So(p.ValueSet.Modalities, ShouldEqual, 1)
		}
		garbage := y.ComputeGarbagePart()
		require.NotNil(t, garbage)
		So(garbage.ValueSet.ValueNumber, ShouldEqual, 3)
		So(garbage.Frequency(), ShouldEqual, 3)
		y.BuildIndexingStructure()
		for _, value := range []string{"c", "d", "e"} {
			So(y.LookupSymbolPart(value), ShouldEqual, garbage)
		}
		So(y.LookupSymbolPart("a"), ShouldNotEqual, garbage)
		So(y.LookupSymbolPart("b"), ShouldNotEqual, garbage)

		y.SetGarbagePart(garbage)
		So(y.GarbageModalityNumber(), ShouldEqual, 1)
	})
}
