package postopt

import (
	"strconv"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/grid"
)

// hashCellKey 单元格的外部签名：除待优化属性外各部分的标识
func hashCellKey(cell *grid.Cell, attributeIndex int) string {
	key := make([]byte, 0, 8*len(cell.Parts()))
	for i, p := range cell.Parts() {
		if i == attributeIndex {
			continue
		}
		key = strconv.AppendInt(key, p.ID(), 36)
		key = append(key, ',')
	}
	return string(key)
}

// buildPartFrequencyVectors 待优化属性的每个部分一个频数向量，顺序与属性的部分相同
// 外部签名相同的单元格共享一个键
func buildPartFrequencyVectors(univariate *grid.DataGrid, attribute *grid.Attribute) []*PartFrequencyVector {
	vectors := make([]*PartFrequencyVector, attribute.PartNumber())
	index := make(map[*grid.Part]int, attribute.PartNumber())
	for i, p := range attribute.Parts() {
		index[p] = i
		vectors[i] = NewPartFrequencyVector()
		vectors[i].modalities = 1
		vectors[i].valueNumber = 1
		if attribute.Type == common.Symbol {
			vectors[i].modalities = p.ValueSet.Modalities
			vectors[i].valueNumber = p.ValueSet.ValueNumber
		}
	}
	attributeIndex := attribute.Index()
	for _, cell := range univariate.Cells() {
		vectors[index[cell.PartAt(attributeIndex)]].AddCell(hashCellKey(cell, attributeIndex), &CellFrequencyVector{
			Frequency:         cell.Frequency(),
			TargetFrequencies: cell.TargetFrequencies(),
		})
	}
	return vectors
}
