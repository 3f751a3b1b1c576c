package varpart

import (
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

// instanceTable 8个实例，V1连续，V2离散 x:3 y:3 z:2
func instanceTable() *manager.TupleTable {
	v2 := []string{"x", "x", "x", "y", "y", "y", "z", "z"}
	table := &manager.TupleTable{
		Columns: []string{"ID", "V1", "V2"},
		Types:   []common.AttributeType{common.Symbol, common.Continuous, common.Symbol},
	}
	for i := range v2 {
		table.Rows = append(table.Rows, []string{fmt.Sprintf("i%d", i), strconv.Itoa(i + 1), v2[i]})
	}
	return table
}

type fixture struct {
	initial   *grid.DataGrid
	optimized *grid.DataGrid
	evaluator *grid.CostEvaluator
}

func newFixture(t *testing.T) *fixture {
	initial, err := manager.BuildVarPartDataGridFromTuples(instanceTable(), "ID", []string{"V1", "V2"})
	require.NoError(t, err)
	evaluator := grid.NewCostEvaluator(costs.NewVarPartClusteringCosts())
	evaluator.InitializeDefaultCosts(initial)
	optimized := grid.NewDataGrid()
	manager.CopyDataGrid(initial, optimized)
	return &fixture{initial: initial, optimized: optimized, evaluator: evaluator}
}

// symbolPart 离散内部属性中包含value的部分
func symbolPart(g *grid.DataGrid, name, value string) *grid.Part {
	for _, p := range g.InnerAttributes().Lookup(name).Parts() {
		for _, v := range p.ValueSet.Values {
			if v.Value == value {
				return p
			}
		}
	}
	return nil
}

// mergeClusters 合并两个变量部分所在的簇
func mergeClusters(g *grid.DataGrid, vp1, vp2 *grid.Part) {
	a := g.VarPartAttribute()
	a.BuildIndexingStructure()
	g.BuildIndexingStructure()
	g.MergeParts(a.LookupVarPart(vp1), a.LookupVarPart(vp2))
	g.DeleteIndexingStructure()
	a.BuildIndexingStructure()
}

func TestState(t *testing.T) {
	Convey("a var part state follows the clusters of the optimized grid", t, func() {
		f := newFixture(t)
		s, err := newState(f.evaluator.Costs(), f.initial, f.optimized, f.evaluator.ComputeDataGridTotalCost(f.optimized))
		require.NoError(t, err)
		So(s.clusterNumber(), ShouldEqual, 11)
		So(len(s.allVarParts()), ShouldEqual, 11)
		v1 := f.optimized.InnerAttributes().Lookup("V1")
		So(len(s.varParts[v1]), ShouldEqual, 8)

		Convey("the first interval can only fuse with its right neighbour", func() {
			fusable := s.fusableClusters(s.varParts[v1][0])
			So(len(fusable), ShouldEqual, 1)
			for _, fused := range fusable {
				So(fused, ShouldHaveLength, 1)
				So(fused[0], ShouldEqual, s.varParts[v1][1])
			}
		})

		Convey("the incremental cost of a move matches the rebuilt grid", func() {
			v := s.varParts[v1][0]
			var m *move
			for target, fused := range s.fusableClusters(v) {
				m = &move{v: v, target: target, fused: fused}
			}
			require.NotNil(t, m)
			m.delta = s.computeDelta(m, s.attributeCost())
			merged := s.apply(m)
			So(s.clusterNumber(), ShouldEqual, 10)
			So(merged.frequency, ShouldEqual, 2)
			So(s.varParts[v1][0], ShouldEqual, merged)
			So(s.varParts[v1], ShouldHaveLength, 7)

			s.rebuild(f.initial)
			So(f.optimized.InnerAttributes().Lookup("V1").PartNumber(), ShouldEqual, 7)
			So(f.optimized.VarPartAttribute().PartNumber(), ShouldEqual, 10)
			So(f.optimized.VarPartAttribute().InitialValueNumber, ShouldEqual, 10)
			So(f.optimized.GridFrequency(), ShouldEqual, f.initial.GridFrequency())
			total := f.evaluator.ComputeDataGridTotalCost(f.optimized)
			So(scalar.EqualWithinRel(total, s.cost, common.CostEpsilon), ShouldBeTrue)
			So(manager.NewManager(f.initial).CheckDataGrid(f.optimized), ShouldBeNil)
			So(f.initial.InnerAttributes().Lookup("V1").PartNumber(), ShouldEqual, 8)
		})
	})

	Convey("symbol groups fuse with every group of the same attribute in the target cluster", t, func() {
		f := newFixture(t)
		mergeClusters(f.optimized, symbolPart(f.optimized, "V2", "x"), symbolPart(f.optimized, "V2", "y"))
		s, err := newState(f.evaluator.Costs(), f.initial, f.optimized, f.evaluator.ComputeDataGridTotalCost(f.optimized))
		require.NoError(t, err)
		v2 := f.optimized.InnerAttributes().Lookup("V2")
		var z *varPart
		for _, v := range s.varParts[v2] {
			if v.parts[0] == symbolPart(f.optimized, "V2", "z") {
				z = v
			}
		}
		require.NotNil(t, z)
		fusable := s.fusableClusters(z)
		So(len(fusable), ShouldEqual, 1)
		for _, fused := range fusable {
			So(fused, ShouldHaveLength, 2)
		}
		So(mergedParams(z, fusable[s.varParts[v2][0].cluster]).ValueNumber, ShouldEqual, 3)
	})
}

func TestPostOptimizeLightVarPartDataGrid(t *testing.T) {
	optimization.Debug = true
	defer func() { optimization.Debug = false }()

	Convey("a grid without VarPart attribute is left unchanged", t, func() {
		table := instanceTable()
		g, err := manager.BuildDataGridFromTuples(table)
		require.NoError(t, err)
		evaluator := grid.NewCostEvaluator(costs.NewClusteringCosts())
		evaluator.InitializeDefaultCosts(g)
		So(NewPostOptimizer(evaluator, nil).PostOptimizeLightVarPartDataGrid(g, g), ShouldBeFalse)
	})

	Convey("a reference whose clusters hold several variable parts is rejected", t, func() {
		f := newFixture(t)
		v1 := f.optimized.InnerAttributes().Lookup("V1")
		mergeClusters(f.optimized, v1.PartAt(0), symbolPart(f.optimized, "V2", "z"))
		target := grid.NewDataGrid()
		manager.CopyDataGrid(f.optimized, target)
		So(NewPostOptimizer(f.evaluator, nil).PostOptimizeLightVarPartDataGrid(f.optimized, target), ShouldBeFalse)
		So(target.VarPartAttribute().PartNumber(), ShouldEqual, 10)
	})

	for _, policy := range []string{optimization.VarPartFirstImprovement, optimization.VarPartBestImprovement} {
		Convey("post-optimization never increases the cost, policy "+policy, t, func() {
			f := newFixture(t)
			v1 := f.optimized.InnerAttributes().Lookup("V1")
			mergeClusters(f.optimized, v1.PartAt(0), symbolPart(f.optimized, "V2", "x"))
			mergeClusters(f.optimized, v1.PartAt(1), symbolPart(f.optimized, "V2", "x"))
			mergeClusters(f.optimized, v1.PartAt(7), symbolPart(f.optimized, "V2", "z"))
			before := f.evaluator.ComputeDataGridTotalCost(f.optimized)

			p := NewPostOptimizer(f.evaluator, nil)
			p.SetPolicy(policy, 5)
			improved := p.PostOptimizeLightVarPartDataGrid(f.initial, f.optimized)
			after := f.evaluator.ComputeDataGridTotalCost(f.optimized)
			if improved {
				So(after, ShouldBeLessThan, before)
			} else {
				So(scalar.EqualWithinRel(after, before, common.CostEpsilon), ShouldBeTrue)
			}
			So(f.optimized.GridFrequency(), ShouldEqual, f.initial.GridFrequency())
		})
	}
}
