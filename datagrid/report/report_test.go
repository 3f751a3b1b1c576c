package report

import (
	"bytes"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats/scalar"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/costs"
	"modl-grid/datagrid/grid"
	"modl-grid/datagrid/manager"
	"modl-grid/utils"
)

// classificationGrid X取1..4，前两行为A类
func classificationGrid(t *testing.T) (*grid.CostEvaluator, *grid.DataGrid) {
	table := &manager.TupleTable{
		Columns:    []string{"X", "Class"},
		Types:      []common.AttributeType{common.Continuous, common.Symbol},
		TargetName: "Class",
	}
	for i := 1; i <= 4; i++ {
		class := "A"
		if i > 2 {
			class = "B"
		}
		table.Rows = append(table.Rows, []string{strconv.Itoa(i), class})
	}
	g, err := manager.BuildDataGridFromTuples(table)
	require.NoError(t, err)
	evaluator := grid.NewCostEvaluator(costs.NewClassificationCosts())
	evaluator.InitializeDefaultCosts(g)
	return evaluator, g
}

func varPartGrid(t *testing.T) (*grid.CostEvaluator, *grid.DataGrid) {
	table := &manager.TupleTable{
		Columns: []string{"ID", "V1", "V2"},
		Types:   []common.AttributeType{common.Symbol, common.Continuous, common.Symbol},
	}
	for i, v2 := range []string{"x", "x", "y"} {
		table.Rows = append(table.Rows, []string{"i" + strconv.Itoa(i), strconv.Itoa(i), v2})
	}
	g, err := manager.BuildVarPartDataGridFromTuples(table, "ID", []string{"V1", "V2"})
	require.NoError(t, err)
	evaluator := grid.NewCostEvaluator(costs.NewVarPartClusteringCosts())
	evaluator.InitializeDefaultCosts(g)
	return evaluator, g
}

func TestSummary(t *testing.T) {
	Convey("the summary adds up to the total cost", t, func() {
		evaluator, g := classificationGrid(t)
		s := NewSummary("run-1", evaluator, g)
		So(s.RunID, ShouldEqual, "run-1")
		So(s.InstanceNumber, ShouldEqual, 4)
		So(s.TargetValues, ShouldResemble, []string{"A", "B"})
		So(s.Attributes, ShouldHaveLength, 1)
		So(s.Attributes[0].PartNumber, ShouldEqual, 4)
		So(s.Missing, ShouldBeEmpty)
		So(scalar.EqualWithinRel(s.Cost, evaluator.ComputeDataGridTotalCost(g), common.CostEpsilon), ShouldBeTrue)

		Convey("and survives a yaml round trip", func() {
			path := filepath.Join(t.TempDir(), "summary.yml")
			So(s.WriteYAML(path), ShouldBeNil)
			read, err := ReadYAML(path)
			So(err, ShouldBeNil)
			So(cmp.Diff(s, read), ShouldBeEmpty)
		})

		Convey("a terminal grid reports its attributes as missing", func() {
			empty := grid.NewDataGrid()
			empty.SetTargetValues(g.TargetValues())
			terminal := NewSummary("run-2", evaluator, empty)
			So(terminal.Missing, ShouldHaveLength, 1)
			So(terminal.Missing[0].Name, ShouldEqual, "X")
		})
	})

	Convey("VarPart summaries list the inner attributes", t, func() {
		evaluator, g := varPartGrid(t)
		s := NewSummary("run-3", evaluator, g)
		So(s.Attributes, ShouldHaveLength, 2)
		varPart := s.Attributes[1]
		So(varPart.Type, ShouldEqual, "VarPart")
		So(varPart.InnerAttributes, ShouldHaveLength, 2)
		So(varPart.InnerAttributes[0].PartNumber, ShouldEqual, 3)
		So(varPart.InnerAttributes[1].PartNumber, ShouldEqual, 2)
	})
}

func TestPrintCostTable(t *testing.T) {
	Convey("the cost table lists every part", t, func() {
		evaluator, g := varPartGrid(t)
		var buffer bytes.Buffer
		rendered := PrintCostTable(&buffer, NewSummary("run-4", evaluator, g))
		So(rendered, ShouldContainSubstring, "DATA GRID COST REPORT run-4")
		So(rendered, ShouldContainSubstring, "VarPart.V1")
		So(rendered, ShouldContainSubstring, "TOTAL")
		So(buffer.String(), ShouldContainSubstring, "ID")
	})
}

func TestToGraph(t *testing.T) {
	Convey("each attribute is a cluster of part nodes", t, func() {
		_, g := classificationGrid(t)
		graph, err := ToGraph(g)
		So(err, ShouldBeNil)
		So(graph.SubGraphs.SubGraphs, ShouldContainKey, "cluster_0")
		So(graph.Nodes.Nodes, ShouldHaveLength, 4)
		So(graph.Edges.Edges, ShouldBeEmpty)
	})

	Convey("co-occurrences and var parts become edges", t, func() {
		_, g := varPartGrid(t)
		path := filepath.Join(t.TempDir(), "grid.dot")
		So(WriteDot(path, g), ShouldBeNil)
		graph, err := ToGraph(g)
		So(err, ShouldBeNil)
		// 3个实例 + 5个簇 + 5个内部部分
		So(graph.Nodes.Nodes, ShouldHaveLength, 13)
		// 每个单元格一条共现边，每个内部部分一条虚线边
		So(graph.Edges.Edges, ShouldHaveLength, g.CellNumber()+5)
	})
}

func TestCellRows(t *testing.T) {
	Convey("cells are written with their target frequencies", t, func() {
		_, g := classificationGrid(t)
		rows := CellRows(g)
		So(rows, ShouldHaveLength, 5)
		So(rows[0], ShouldResemble, []string{"X", "Frequency", "A", "B"})
		So(rows[1], ShouldHaveLength, 4)

		path := filepath.Join(t.TempDir(), "cells.csv")
		So(WriteCells(path, g), ShouldBeNil)
		headers, records, err := utils.ReadCsv(path)
		So(err, ShouldBeNil)
		So(headers, ShouldResemble, rows[0])
		So(records, ShouldResemble, rows[1:])
	})
}
