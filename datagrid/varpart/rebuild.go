package varpart

import (
	"modl-grid/datagrid/common"
	"modl-grid/datagrid/grid"
	"modl-grid/datagrid/manager"
)

// rebuildInnerAttributes 每个变量部分成为新内部属性的一个部分
func (s *state) rebuildInnerAttributes() *grid.InnerAttributes {
	result := grid.NewInnerAttributes()
	for _, inner := range s.inner {
		a := result.Add(inner.Name, inner.Type, inner.OwnerAttributeName)
		a.Cost = inner.Cost
		a.InitialValueNumber = inner.InitialValueNumber
		a.GranularizedValueNumber = inner.GranularizedValueNumber
		for _, v := range s.varParts[inner] {
			p := a.AddPart()
			switch inner.Type {
			case common.Continuous:
				p.Interval.Lower, p.Interval.Upper = v.lower, v.upper
			case common.Symbol:
				for _, old := range v.parts {
					p.ValueSet.UpgradeFrom(old.ValueSet)
				}
				if garbage := inner.GarbagePart(); garbage != nil && len(v.parts) == 1 && v.parts[0] == garbage {
					a.SetGarbagePart(p)
				}
			}
			p.SetFrequency(v.frequency)
			v.rebuilt = p
		}
		a.InitializeCatchAllValueSet(inner.CatchAllValueSet())
		a.SortParts()
	}
	return result
}

// rebuild 用新的内部属性与簇重建网格，单元格从reference投影，结果替换optimized
func (s *state) rebuild(reference *grid.DataGrid) {
	inner := s.rebuildInnerAttributes()

	result := grid.NewDataGrid()
	m := manager.NewManager(s.grid)
	m.ExportAttributes(result)
	result.SetInnerAttributes(inner)
	for _, a := range result.Attributes() {
		if a.Type != common.VarPart {
			m.ExportPartsForAttribute(result, a.Name)
			continue
		}
		a.InitialValueNumber = inner.VarPartNumber()
		a.GranularizedValueNumber = inner.VarPartNumber()
		for _, c := range s.clusters {
			if c.isEmpty() {
				continue
			}
			p := a.AddPart()
			for _, v := range c.varParts {
				p.VarPartSet.AddVarPart(v.rebuilt)
			}
		}
	}
	manager.NewManager(reference).ExportCells(result)
	result.SortAttributeParts()
	manager.CopyDataGrid(result, s.grid)
}
