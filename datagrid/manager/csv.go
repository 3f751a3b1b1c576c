package manager

import (
	"fmt"

	"modl-grid/datagrid/common"
	"modl-grid/utils"
)

// NewTupleTable 由表头和记录构造元组表，全部是数值的列为连续属性，目标列总是离散的
func NewTupleTable(headers []string, records [][]string, targetName string) (*TupleTable, error) {
	table := &TupleTable{
		Columns:    append([]string(nil), headers...),
		Types:      make([]common.AttributeType, len(headers)),
		TargetName: targetName,
		Rows:       records,
	}
	for i := range headers {
		if headers[i] != targetName && utils.IsNumericColumn(records, i) {
			table.Types[i] = common.Continuous
		} else {
			table.Types[i] = common.Symbol
		}
	}
	if err := table.validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// ReadTupleTable 从csv文件读取元组表
func ReadTupleTable(path, targetName string) (*TupleTable, error) {
	headers, records, err := utils.ReadCsv(path)
	if err != nil {
		return nil, err
	}
	table, err := NewTupleTable(headers, records, targetName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// SetColumnType 修改一列的类型，比如回归的目标列
func (t *TupleTable) SetColumnType(name string, attributeType common.AttributeType) error {
	index := t.columnIndex(name)
	if index < 0 {
		return fmt.Errorf("%w: %s", utils.ErrColumnNotExist, name)
	}
	t.Types[index] = attributeType
	return nil
}
