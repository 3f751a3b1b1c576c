package manager

import (
	"fmt"

	"go.uber.org/multierr"
	"golang.org/x/exp/slices"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/grid"
	"modl-grid/utils"
)

// CheckDataGrid 目标网格是否为源网格的兼容粗化，遇到第一个错误即返回
func (m *Manager) CheckDataGrid(target *grid.DataGrid) error {
	checks := []func(*grid.DataGrid) error{
		m.CheckGranularity,
		m.CheckTargetValues,
		m.CheckAttributes,
		m.CheckParts,
		m.CheckCells,
	}
	for _, check := range checks {
		if err := check(target); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) CheckGranularity(target *grid.DataGrid) error {
	m.mustHaveSource()
	if m.source.Granularity() != target.Granularity() {
		return fmt.Errorf("%w: source %d, target %d", utils.ErrGranularity, m.source.Granularity(), target.Granularity())
	}
	return nil
}

func (m *Manager) CheckTargetValues(target *grid.DataGrid) error {
	m.mustHaveSource()
	if !slices.Equal(m.source.TargetValues(), target.TargetValues()) {
		return fmt.Errorf("%w: source %v, target %v", utils.ErrTargetValues, m.source.TargetValues(), target.TargetValues())
	}
	return nil
}

// CheckAttributes 目标属性必须在源网格中存在且类型相同
func (m *Manager) CheckAttributes(target *grid.DataGrid) error {
	m.mustHaveSource()
	var err error
	for _, targetAttribute := range target.Attributes() {
		sourceAttribute := m.source.SearchAttribute(targetAttribute.Name)
		switch {
		case sourceAttribute == nil:
			err = multierr.Append(err, fmt.Errorf("attribute %s not found in source data grid", targetAttribute.Name))
		case sourceAttribute.Type != targetAttribute.Type:
			err = multierr.Append(err, fmt.Errorf("attribute %s: type %s in source, %s in target",
				targetAttribute.Name, sourceAttribute.Type, targetAttribute.Type))
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrAttributes, err)
	}
	return nil
}

// CheckParts 每个目标部分必须是源部分的并
func (m *Manager) CheckParts(target *grid.DataGrid) error {
	m.mustHaveSource()
	var err error
	for _, targetAttribute := range target.Attributes() {
		sourceAttribute := m.source.SearchAttribute(targetAttribute.Name)
		if sourceAttribute == nil {
			err = multierr.Append(err, fmt.Errorf("attribute %s not found in source data grid", targetAttribute.Name))
			continue
		}
		switch targetAttribute.Type {
		case common.Continuous:
			err = multierr.Append(err, checkContinuousParts(sourceAttribute, targetAttribute))
		case common.Symbol:
			err = multierr.Append(err, checkSymbolParts(sourceAttribute, targetAttribute))
		case common.VarPart:
			err = multierr.Append(err, checkVarParts(sourceAttribute, targetAttribute))
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrParts, err)
	}
	return nil
}

// checkContinuousParts 目标区间的下界与上界都必须是源区间的边界
func checkContinuousParts(source, target *grid.Attribute) error {
	sourceParts := sortedParts(source)
	targetParts := sortedParts(target)
	i := 0
	for _, targetPart := range targetParts {
		for i < len(sourceParts) && sourceParts[i].Interval.Lower < targetPart.Interval.Lower {
			i++
		}
		if i == len(sourceParts) || sourceParts[i].Interval.Lower != targetPart.Interval.Lower {
			return fmt.Errorf("attribute %s: lower bound of %s is not a source bound", target.Name, targetPart.Label())
		}
		for i < len(sourceParts) && sourceParts[i].Interval.Upper < targetPart.Interval.Upper {
			i++
		}
		if i == len(sourceParts) || sourceParts[i].Interval.Upper != targetPart.Interval.Upper {
			return fmt.Errorf("attribute %s: upper bound of %s is not a source bound", target.Name, targetPart.Label())
		}
		i++
	}
	if i != len(sourceParts) {
		return fmt.Errorf("attribute %s: target intervals do not cover source intervals", target.Name)
	}
	return nil
}

// checkSymbolParts 源部分的所有值落在同一个目标部分，星号值除外
func checkSymbolParts(source, target *grid.Attribute) error {
	target.BuildIndexingStructure()
	for _, sourcePart := range source.Parts() {
		var reference *grid.Part
		for _, v := range sourcePart.ValueSet.Values {
			if v.Value == common.StarValue {
				continue
			}
			p := target.LookupSymbolPart(v.Value)
			if p == nil {
				return fmt.Errorf("attribute %s: value %q not found", target.Name, v.Value)
			}
			if reference == nil {
				reference = p
			} else if p != reference {
				return fmt.Errorf("attribute %s: values of source part %s split among several target parts",
					target.Name, sourcePart.Label())
			}
		}
	}
	return nil
}

// checkVarParts 源簇的变量部分落在同一个目标簇
func checkVarParts(source, target *grid.Attribute) error {
	inner := target.Grid().InnerAttributes()
	if inner == nil {
		return fmt.Errorf("attribute %s: no inner attributes", target.Name)
	}
	for _, sourcePart := range source.Parts() {
		var reference *grid.Part
		for _, varPart := range sourcePart.VarPartSet.VarParts {
			innerAttribute := inner.Lookup(varPart.Attribute().Name)
			if innerAttribute == nil {
				return fmt.Errorf("attribute %s: unknown inner attribute %s", target.Name, varPart.Attribute().Name)
			}
			p := target.LookupVarPart(innerAttribute.LookupPart(varPart))
			if p == nil {
				return fmt.Errorf("attribute %s: variable part %s not found", target.Name, varPart.Label())
			}
			if reference == nil {
				reference = p
			} else if p != reference {
				return fmt.Errorf("attribute %s: source cluster %s split among several target clusters",
					target.Name, sourcePart.Label())
			}
		}
	}
	return nil
}

// CheckCells 用目标网格的部分重新导出源单元格，结果必须与目标单元格一致
func (m *Manager) CheckCells(target *grid.DataGrid) error {
	m.mustHaveSource()
	checkGrid := grid.NewDataGrid()
	checkManager := NewManager(target)
	checkManager.ExportAttributes(checkGrid)
	checkManager.ExportParts(checkGrid)
	checkManager.SetSourceDataGrid(m.source)
	checkManager.ExportCells(checkGrid)

	if checkGrid.GridFrequency() != target.GridFrequency() {
		return fmt.Errorf("%w: grid frequency %d, expected %d", utils.ErrCells, target.GridFrequency(), checkGrid.GridFrequency())
	}
	if checkGrid.CellNumber() != target.CellNumber() {
		return fmt.Errorf("%w: %d cells, expected %d", utils.ErrCells, target.CellNumber(), checkGrid.CellNumber())
	}

	var err error
	checkGrid.BuildIndexingStructure()
	parts := make([]*grid.Part, checkGrid.AttributeNumber())
	for _, targetCell := range target.Cells() {
		for i, checkAttribute := range checkGrid.Attributes() {
			parts[i] = checkAttribute.LookupPart(targetCell.PartAt(i))
		}
		var checkCell *grid.Cell
		if !slices.Contains(parts, nil) {
			checkCell = checkGrid.LookupCell(parts)
		}
		switch {
		case checkCell == nil:
			err = multierr.Append(err, fmt.Errorf("unexpected cell %s", targetCell))
		case checkCell.Frequency() != targetCell.Frequency():
			err = multierr.Append(err, fmt.Errorf("cell %s: frequency %d, expected %d",
				targetCell, targetCell.Frequency(), checkCell.Frequency()))
		case !slices.Equal(checkCell.TargetFrequencies(), targetCell.TargetFrequencies()):
			err = multierr.Append(err, fmt.Errorf("cell %s: target frequencies %v, expected %v",
				targetCell, targetCell.TargetFrequencies(), checkCell.TargetFrequencies()))
		}
		if len(multierr.Errors(err)) >= maxReportedCellErrors {
			break
		}
	}
	checkGrid.DeleteIndexingStructure()
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrCells, err)
	}
	return nil
}

const maxReportedCellErrors = 10
