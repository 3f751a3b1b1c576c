package manager

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/grid"
	"modl-grid/utils"
)

// sampleTable X取1..10，Y的值频数为 a:4 b:3 c:2 d:1，前5行为A类
func sampleTable() *TupleTable {
	ys := []string{"a", "a", "a", "a", "b", "b", "b", "c", "c", "d"}
	table := &TupleTable{
		Columns:    []string{"X", "Y", "Class"},
		Types:      []common.AttributeType{common.Continuous, common.Symbol, common.Symbol},
		TargetName: "Class",
	}
	for i := 0; i < 10; i++ {
		class := "A"
		if i >= 5 {
			class = "B"
		}
		table.Rows = append(table.Rows, []string{strconv.Itoa(i + 1), ys[i], class})
	}
	return table
}

func sampleDataGrid(t *testing.T) *grid.DataGrid {
	g, err := BuildDataGridFromTuples(sampleTable())
	require.NoError(t, err)
	require.NoError(t, g.Check())
	return g
}

// varPartTable 6个实例，V1连续，V2离散 x:2 y:3 z:1
func varPartTable() *TupleTable {
	v2 := []string{"x", "x", "y", "y", "y", "z"}
	table := &TupleTable{
		Columns: []string{"ID", "V1", "V2"},
		Types:   []common.AttributeType{common.Symbol, common.Continuous, common.Symbol},
	}
	for i := 0; i < 6; i++ {
		table.Rows = append(table.Rows, []string{fmt.Sprintf("i%d", i), strconv.Itoa(i + 1), v2[i]})
	}
	return table
}

// cellSummary 单元格按部分描述汇总的频数
func cellSummary(g *grid.DataGrid) map[string]string {
	summary := make(map[string]string)
	for _, c := range g.Cells() {
		labels := make([]string, 0, len(c.Parts()))
		for _, p := range c.Parts() {
			labels = append(labels, p.Label())
		}
		summary[strings.Join(labels, " x ")] = fmt.Sprint(c.Frequency(), c.TargetFrequencies())
	}
	return summary
}

func partSummary(g *grid.DataGrid) map[string][]string {
	summary := make(map[string][]string)
	for _, a := range g.Attributes() {
		for _, p := range a.Parts() {
			summary[a.Name] = append(summary[a.Name], p.Label())
		}
	}
	return summary
}

func TestBuildDataGridFromTuples(t *testing.T) {
	Convey("a tuple table gives the finest data grid", t, func() {
		g := sampleDataGrid(t)
		So(g.TargetValues(), ShouldResemble, []string{"A", "B"})
		So(g.AttributeNumber(), ShouldEqual, 2)
		So(g.GridFrequency(), ShouldEqual, 10)
		So(g.CellNumber(), ShouldEqual, 10)

		x := g.SearchAttribute("X")
		So(x.PartNumber(), ShouldEqual, 10)
		So(x.InitialValueNumber, ShouldEqual, 10)
		So(x.PartAt(0).Interval.Lower, ShouldEqual, common.MinLowerBound)
		So(x.PartAt(0).Interval.Upper, ShouldEqual, 1.5)
		So(x.PartAt(9).Interval.Upper, ShouldEqual, common.MaxUpperBound)

		y := g.SearchAttribute("Y")
		So(y.PartNumber(), ShouldEqual, 4)
		So(y.PartAt(0).Label(), ShouldEqual, "{a}")
		So(y.PartAt(0).Frequency(), ShouldEqual, 4)
		So(y.DefaultPart().Label(), ShouldEqual, "{d,  * }")
	})

	Convey("invalid tables are rejected", t, func() {
		table := sampleTable()
		table.Rows[3][0] = "three"
		_, err := BuildDataGridFromTuples(table)
		So(errors.Is(err, utils.ErrWrongDataType), ShouldBeTrue)

		table = sampleTable()
		table.TargetName = "Missing"
		_, err = BuildDataGridFromTuples(table)
		So(errors.Is(err, utils.ErrColumnNotExist), ShouldBeTrue)

		table = sampleTable()
		table.Rows = nil
		_, err = BuildDataGridFromTuples(table)
		So(errors.Is(err, utils.ErrEmptyTable), ShouldBeTrue)
		So(utils.Code(err), ShouldEqual, utils.ErrEmptyTable.Code)
	})
}

func TestBuildRegressionDataGridFromTuples(t *testing.T) {
	Convey("a continuous target becomes the target attribute", t, func() {
		table := sampleTable()
		table.Columns = []string{"X", "Y", "Z"}
		table.Types[2] = common.Continuous
		table.TargetName = "Z"
		for i, row := range table.Rows {
			row[2] = strconv.Itoa(i % 3)
		}
		g, err := BuildRegressionDataGridFromTuples(table)
		require.NoError(t, err)
		So(g.AttributeNumber(), ShouldEqual, 3)
		So(g.TargetValueNumber(), ShouldEqual, 0)
		So(g.TargetAttribute(), ShouldEqual, g.SearchAttribute("Z"))
		So(g.TargetAttribute().PartNumber(), ShouldEqual, 3)
		So(g.IsSupervised(), ShouldBeTrue)
		So(table.TargetName, ShouldEqual, "Z")

		_, err = BuildRegressionDataGridFromTuples(sampleTable())
		So(errors.Is(err, utils.ErrWrongDataType), ShouldBeTrue)
	})
}

func TestExportRoundTrip(t *testing.T) {
	Convey("a copied grid is compatible with its source", t, func() {
		initial := sampleDataGrid(t)
		m := NewManager(initial)
		copied := grid.NewDataGrid()
		CopyDataGrid(initial, copied)

		require.NoError(t, m.CheckDataGrid(copied))
		So(copied.CellNumber(), ShouldEqual, initial.CellNumber())
		So(cmp.Diff(cellSummary(initial), cellSummary(copied)), ShouldBeEmpty)

		Convey("exporting the cells again gives the same cells", func() {
			before := cellSummary(copied)
			copied.DeleteAllCells()
			So(copied.GridFrequency(), ShouldEqual, 0)
			m.ExportCells(copied)
			So(cmp.Diff(before, cellSummary(copied)), ShouldBeEmpty)
			So(copied.Check(), ShouldBeNil)
		})

		Convey("a tampered cell is detected", func() {
			copied.Cells()[0].AddTargetFrequency(0, 1)
			err := m.CheckCells(copied)
			So(errors.Is(err, utils.ErrCells), ShouldBeTrue)
		})
	})

	Convey("the terminal grid has a single cell", t, func() {
		initial := sampleDataGrid(t)
		terminal := grid.NewDataGrid()
		NewManager(initial).ExportTerminalDataGrid(terminal)
		So(terminal.CellNumber(), ShouldEqual, 1)
		So(terminal.Cells()[0].TargetFrequencies(), ShouldResemble, []int{5, 5})
		for _, a := range terminal.Attributes() {
			So(a.PartNumber(), ShouldEqual, 1)
		}
		So(NewManager(initial).CheckDataGrid(terminal), ShouldBeNil)
	})

	Convey("an informative copy skips single part attributes", t, func() {
		initial := sampleDataGrid(t)
		terminal := grid.NewDataGrid()
		NewManager(initial).ExportTerminalDataGrid(terminal)
		informative := grid.NewDataGrid()
		CopyInformativeDataGrid(terminal, informative)
		So(informative.AttributeNumber(), ShouldEqual, 0)
	})
}

func TestCheckParts(t *testing.T) {
	Convey("target parts must be unions of source parts", t, func() {
		initial := sampleDataGrid(t)
		m := NewManager(initial)

		target := grid.NewDataGrid()
		m.ExportAttributes(target)
		m.ExportPartsForAttribute(target, "X")
		y := target.SearchAttribute("Y")
		y.AddPart().ValueSet.AddValue("a", 0)
		y.AddPart().ValueSet.AddValue("b", 0)
		// 星号值离开了d所在的部分
		last := y.AddPart()
		last.ValueSet.AddValue("c", 0)
		last.ValueSet.AddValue(common.StarValue, 0)
		y.AddPart().ValueSet.AddValue("d", 0)
		So(m.CheckParts(target), ShouldBeNil)

		Convey("an interval bound must be a source bound", func() {
			x := target.SearchAttribute("X")
			x.PartAt(0).Interval.Upper = 2
			x.PartAt(1).Interval.Lower = 2
			err := m.CheckParts(target)
			So(errors.Is(err, utils.ErrParts), ShouldBeTrue)
		})
	})

	Convey("attributes must exist in the source", t, func() {
		m := NewManager(sampleDataGrid(t))
		target := grid.NewDataGrid()
		target.AddAttribute("Z", common.Continuous)
		So(errors.Is(m.CheckAttributes(target), utils.ErrAttributes), ShouldBeTrue)
		So(errors.Is(m.CheckTargetValues(target), utils.ErrTargetValues), ShouldBeTrue)
	})
}

func TestExportGranularizedDataGrid(t *testing.T) {
	Convey("partile numbers grow with the granularity", t, func() {
		initial := sampleDataGrid(t)
		m := NewManager(initial)
		builders := m.InitializeQuantileBuilders()
		So(builders.MaxPartNumber("X"), ShouldEqual, 10)
		So(builders.MaxPartNumber("Y"), ShouldEqual, 4)

		expected := map[int][2]int{1: {2, 1}, 2: {4, 3}, 3: {8, 4}, 4: {10, 4}}
		previous := [2]int{0, 0}
		for g := 1; g <= 4; g++ {
			granularized := grid.NewDataGrid()
			m.ExportGranularizedDataGrid(granularized, g, builders)
			require.NoError(t, granularized.Check())
			require.NoError(t, m.CheckParts(granularized))
			require.NoError(t, m.CheckCells(granularized))

			x, y := granularized.SearchAttribute("X"), granularized.SearchAttribute("Y")
			counts := [2]int{x.PartNumber(), y.PartNumber()}
			So(counts, ShouldResemble, expected[g])
			So(counts[0], ShouldBeGreaterThanOrEqualTo, previous[0])
			So(counts[1], ShouldBeGreaterThanOrEqualTo, previous[1])
			So(granularized.GridFrequency(), ShouldEqual, 10)
			previous = counts
		}
	})

	Convey("the default partile of a supervised input keeps one value", t, func() {
		initial := sampleDataGrid(t)
		m := NewManager(initial)
		granularized := grid.NewDataGrid()
		m.ExportGranularizedDataGrid(granularized, 2, m.InitializeQuantileBuilders())
		y := granularized.SearchAttribute("Y")
		So(y.DefaultPart().Label(), ShouldEqual, "{c,  * }")
		So(y.CatchAllValueNumber(), ShouldEqual, 1)
		So(y.DefaultPart().ValueSet.ValueNumber, ShouldEqual, 2)
		So(y.LookupSymbolPart("d"), ShouldEqual, y.DefaultPart())
		So(y.GranularizedValueNumber, ShouldEqual, 3)
		for _, p := range y.Parts() {
			So(p.ValueSet.Modalities, ShouldEqual, 1)
		}
	})

	Convey("the highest granularity gives back the finest grid", t, func() {
		initial := sampleDataGrid(t)
		m := NewManager(initial)
		granularized := grid.NewDataGrid()
		m.ExportGranularizedDataGrid(granularized, 4, m.InitializeQuantileBuilders())
		So(cmp.Diff(partSummary(initial), partSummary(granularized)), ShouldBeEmpty)
		So(granularized.CellNumber(), ShouldEqual, initial.CellNumber())
	})
}

func TestVarPartDataGrid(t *testing.T) {
	Convey("a VarPart grid starts with one cluster per variable part", t, func() {
		initial, err := BuildVarPartDataGridFromTuples(varPartTable(), "ID", []string{"V1", "V2"})
		require.NoError(t, err)
		require.NoError(t, initial.Check())
		So(initial.GridFrequency(), ShouldEqual, 12)
		So(initial.InnerAttributes().VarPartNumber(), ShouldEqual, 9)
		So(initial.VarPartAttribute().PartNumber(), ShouldEqual, 9)
		So(initial.CellNumber(), ShouldEqual, 12)

		Convey("the null grid has one cluster holding one part per inner attribute", func() {
			null := grid.NewDataGrid()
			NewManager(initial).ExportNullDataGrid(null)
			So(null.CellNumber(), ShouldEqual, 1)
			So(null.VarPartAttribute().PartNumber(), ShouldEqual, 1)
			So(len(null.VarPartAttribute().PartAt(0).VarPartSet.VarParts), ShouldEqual, 2)
			So(null.InnerAttributes().Lookup("V1").PartAt(0).Frequency(), ShouldEqual, 6)
			So(null.InnerAttributes() == initial.InnerAttributes(), ShouldBeFalse)
		})

		Convey("granularized inner attributes give coarser clusters", func() {
			m := NewManager(initial)
			granularized := grid.NewDataGrid()
			m.ExportGranularizedDataGridForVarPartAttributes(granularized, 1, m.InitializeInnerAttributesQuantileBuilders())
			require.NoError(t, granularized.Check())
			So(granularized.InnerAttributes().Lookup("V1").PartNumber(), ShouldEqual, 2)
			So(granularized.InnerAttributes().Lookup("V2").PartNumber(), ShouldEqual, 2)
			So(granularized.VarPartAttribute().PartNumber(), ShouldEqual, 4)
			So(granularized.GridFrequency(), ShouldEqual, 12)
		})

		Convey("a cloned copy owns its inner attributes", func() {
			copied := grid.NewDataGrid()
			CopyDataGridWithInnerAttributesCloned(initial, copied)
			So(copied.InnerAttributes() == initial.InnerAttributes(), ShouldBeFalse)
			So(copied.CellNumber(), ShouldEqual, initial.CellNumber())
			So(cmp.Diff(cellSummary(initial), cellSummary(copied)), ShouldBeEmpty)
		})
	})
}

func TestRandomExports(t *testing.T) {
	Convey("the same seed gives the same random partition", t, func() {
		initial := sampleDataGrid(t)
		partition := func(seed int64) map[string][]string {
			m := NewManager(initial)
			m.SetRandomSeed(seed)
			target := grid.NewDataGrid()
			m.ExportAttributes(target)
			m.ExportRandomParts(target, 3)
			m.ExportCells(target)
			require.NoError(t, m.CheckDataGrid(target))
			return partSummary(target)
		}
		So(cmp.Diff(partition(7), partition(7)), ShouldBeEmpty)
	})

	Convey("random attributes keep the source order", t, func() {
		m := NewManager(sampleDataGrid(t))
		target := grid.NewDataGrid()
		m.ExportRandomAttributes(target, 1)
		So(target.AttributeNumber(), ShouldEqual, 1)
		So(m.CheckAttributes(target), ShouldBeNil)
	})

	Convey("random index vectors are sorted, distinct and in range", t, func() {
		m := NewManager(sampleDataGrid(t))
		for _, c := range []struct{ n, max int }{{5, 100}, {100, 100}, {50, 20000}, {3, 1000000}} {
			indexes := m.InitRandomIndexVector(c.n, c.max)
			So(len(indexes), ShouldEqual, c.n)
			for i, index := range indexes {
				So(index, ShouldBeBetweenOrEqual, 0, c.max-1)
				if i > 0 {
					So(index, ShouldBeGreaterThan, indexes[i-1])
				}
			}
		}
	})
}

func TestBuildDataGridFromUnivariateProduct(t *testing.T) {
	Convey("univariate partitions are multiplied into a grid", t, func() {
		initial := sampleDataGrid(t)
		m := NewManager(initial)
		partitions := []UnivariatePartition{
			{AttributeName: "X", Level: 0.5, IntervalFrequencies: []int{5, 5}},
			// Y的源部分 a b c d
			{AttributeName: "Y", Level: 0.1, Groups: []int{0, 1, 1, 1}, GroupNumber: 2},
		}
		target := grid.NewDataGrid()
		So(m.BuildDataGridFromUnivariateProduct(target, partitions), ShouldBeTrue)
		So(target.SearchAttribute("X").PartNumber(), ShouldEqual, 2)
		So(target.SearchAttribute("X").PartAt(0).Interval.Upper, ShouldEqual, 5.5)
		So(target.SearchAttribute("Y").PartNumber(), ShouldEqual, 2)
		So(m.CheckDataGrid(target), ShouldBeNil)

		Convey("a single informative attribute is not enough", func() {
			partitions[1].Level = 0
			So(m.BuildDataGridFromUnivariateProduct(grid.NewDataGrid(), partitions), ShouldBeFalse)
		})
	})

	Convey("a univariate grid keeps only one attribute", t, func() {
		initial := sampleDataGrid(t)
		target := grid.NewDataGrid()
		NewManager(initial).ExportUnivariateDataGrid(target, "Y")
		So(target.AttributeNumber(), ShouldEqual, 1)
		So(target.CellNumber(), ShouldEqual, 4)
	})
}

func TestReadTupleTable(t *testing.T) {
	Convey("column types are inferred from the csv values", t, func() {
		path := t.TempDir() + "/tuples.csv"
		data := [][]string{{"X", "Y", "Class"}}
		for _, row := range sampleTable().Rows {
			data = append(data, row)
		}
		data[1][2] = "1"
		require.NoError(t, utils.WriteCsv(path, data))

		table, err := ReadTupleTable(path, "Class")
		require.NoError(t, err)
		So(table.Types, ShouldResemble, []common.AttributeType{common.Continuous, common.Symbol, common.Symbol})
		So(table.Rows, ShouldHaveLength, 10)

		So(table.SetColumnType("Class", common.Continuous), ShouldBeNil)
		So(errors.Is(table.SetColumnType("Missing", common.Symbol), utils.ErrColumnNotExist), ShouldBeTrue)

		_, err = ReadTupleTable(path, "Missing")
		So(errors.Is(err, utils.ErrColumnNotExist), ShouldBeTrue)
	})
}
