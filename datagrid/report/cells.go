package report

import (
	"strconv"

	"golang.org/x/exp/slices"

	"modl-grid/datagrid/grid"
	"modl-grid/utils"
)

// CellRows 表头是属性名、Frequency以及各目标值，每个单元格一行，频数降序
func CellRows(g *grid.DataGrid) [][]string {
	header := make([]string, 0, g.AttributeNumber()+1+g.TargetValueNumber())
	for _, a := range g.Attributes() {
		header = append(header, a.Name)
	}
	header = append(header, "Frequency")
	header = append(header, g.TargetValues()...)

	cells := append([]*grid.Cell(nil), g.Cells()...)
	slices.SortStableFunc(cells, func(c1, c2 *grid.Cell) int {
		return c2.Frequency() - c1.Frequency()
	})
	rows := [][]string{header}
	for _, c := range cells {
		row := make([]string, 0, len(header))
		for _, p := range c.Parts() {
			row = append(row, p.Label())
		}
		row = append(row, strconv.Itoa(c.Frequency()))
		for _, f := range c.TargetFrequencies() {
			row = append(row, strconv.Itoa(f))
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteCells 单元格写入csv
func WriteCells(path string, g *grid.DataGrid) error {
	return utils.WriteCsv(path, CellRows(g))
}
