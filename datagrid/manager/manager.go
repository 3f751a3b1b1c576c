// Package manager 数据网格之间的结构变换
//
// Manager绑定一个源网格，按源网格导出属性、部分与单元格到目标网格，
// 目标网格始终是源网格的一个兼容的粗化。单元格通过目标部分的元组查找或新建，
// 然后累加源单元格的频数。
package manager

import (
	"fmt"
	"math/rand"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/conf/optimization"
	"modl-grid/datagrid/grid"
)

// Manager 以源网格为参照的导出与检查
type Manager struct {
	source *grid.DataGrid
	random *rand.Rand
}

func NewManager(source *grid.DataGrid) *Manager {
	return &Manager{
		source: source,
		random: rand.New(rand.NewSource(optimization.DefaultRandomSeed)),
	}
}

func (m *Manager) SetSourceDataGrid(source *grid.DataGrid) {
	(*m).source = source
}

func (m *Manager) SourceDataGrid() *grid.DataGrid {
	return (*m).source
}

// Random 随机导出使用的随机数发生器，调用方可以保存后再恢复
func (m *Manager) Random() *rand.Rand {
	return (*m).random
}

func (m *Manager) SetRandom(random *rand.Rand) {
	(*m).random = random
}

// SetRandomSeed 用新的种子重置随机数发生器
func (m *Manager) SetRandomSeed(seed int64) {
	(*m).random = rand.New(rand.NewSource(seed))
}

func (m *Manager) mustHaveSource() {
	if m.source == nil {
		panic("manager: source data grid not set")
	}
}

// ensure Debug模式下的后置条件检查
func ensure(check func() error) {
	if !optimization.Debug {
		return
	}
	if err := check(); err != nil {
		panic(err)
	}
}

// CopyDataGrid 完整复制网格，VarPart的内部属性是共享的
func CopyDataGrid(initial, target *grid.DataGrid) {
	target.DeleteAll()
	NewManager(initial).ExportDataGrid(target)
}

// CopyDataGridWithInnerAttributesCloned 完整复制网格，VarPart的内部属性也被复制
func CopyDataGridWithInnerAttributesCloned(initial, target *grid.DataGrid) {
	target.DeleteAll()
	NewManager(initial).ExportDataGridWithInnerAttributesCloned(target)
}

// CopyInformativeDataGrid 只复制有多个部分的属性
func CopyInformativeDataGrid(initial, target *grid.DataGrid) {
	target.DeleteAll()
	m := NewManager(initial)
	m.ExportInformativeAttributes(target)
	m.ExportParts(target)
	m.ExportCells(target)
	ensure(func() error { return m.CheckDataGrid(target) })
}

// ExportDataGrid 导出整个源网格，内部属性共享
func (m *Manager) ExportDataGrid(target *grid.DataGrid) {
	m.ExportAttributes(target)
	m.ExportParts(target)
	m.ExportCells(target)
	ensure(func() error { return m.CheckDataGrid(target) })
}

// ExportDataGridWithInnerAttributesCloned 导出整个源网格，目标网格拥有自己的内部属性
func (m *Manager) ExportDataGridWithInnerAttributesCloned(target *grid.DataGrid) {
	m.ExportAttributes(target)
	for _, targetAttribute := range target.Attributes() {
		sourceAttribute := m.source.SearchAttribute(targetAttribute.Name)
		if targetAttribute.Type != common.VarPart {
			initialiseAttributeParts(sourceAttribute, targetAttribute)
			continue
		}
		cloned, mapping := m.source.InnerAttributes().Clone()
		target.SetInnerAttributes(cloned)
		for _, sourcePart := range sourceAttribute.Parts() {
			targetPart := targetAttribute.AddPart()
			for _, varPart := range sourcePart.VarPartSet.VarParts {
				targetPart.VarPartSet.AddVarPart(mapping[varPart])
			}
		}
	}
	m.ExportCells(target)
	ensure(func() error { return target.Check() })
}

// ExportTerminalDataGrid 每个属性只有一个部分的网格，内部属性共享
func (m *Manager) ExportTerminalDataGrid(target *grid.DataGrid) {
	m.ExportAttributes(target)
	for _, targetAttribute := range target.Attributes() {
		initialiseAttributeNullPart(m.source.SearchAttribute(targetAttribute.Name), targetAttribute)
	}
	m.ExportCells(target)
	ensure(func() error { return m.CheckDataGrid(target) })
}

// ExportNullDataGrid 与终端网格相同，但VarPart属性的内部属性也只有一个部分
// 唯一的簇包含每个内部属性的唯一部分
func (m *Manager) ExportNullDataGrid(target *grid.DataGrid) {
	m.ExportAttributes(target)
	for _, targetAttribute := range target.Attributes() {
		sourceAttribute := m.source.SearchAttribute(targetAttribute.Name)
		if targetAttribute.Type != common.VarPart {
			initialiseAttributeNullPart(sourceAttribute, targetAttribute)
			continue
		}
		nullInner := createNullInnerAttributes(m.source.InnerAttributes())
		target.SetInnerAttributes(nullInner)
		cluster := targetAttribute.AddPart()
		for _, inner := range nullInner.Attributes() {
			cluster.VarPartSet.AddVarPart(inner.PartAt(0))
		}
	}
	m.ExportCells(target)
	ensure(func() error { return target.Check() })
}

// initialiseDataGrid 粒度与目标值来自源网格
func initialiseDataGrid(origin, target *grid.DataGrid) {
	target.SetGranularity(origin.Granularity())
	target.SetTargetValues(origin.TargetValues())
}

// ExportAttributes 导出所有属性（没有部分），目标网格必须为空
func (m *Manager) ExportAttributes(target *grid.DataGrid) {
	m.mustHaveSource()
	if !target.IsEmpty() {
		panic("ExportAttributes: target data grid must be empty")
	}
	initialiseDataGrid(m.source, target)
	for _, sourceAttribute := range m.source.Attributes() {
		initialiseAttribute(sourceAttribute, target.AddAttribute(sourceAttribute.Name, sourceAttribute.Type))
	}
	if m.source.IsVarPartDataGrid() {
		target.SetInnerAttributes(m.source.InnerAttributes())
	}
	ensure(func() error { return m.CheckAttributes(target) })
}

// ExportInformativeAttributes 只导出至少有两个部分的属性
func (m *Manager) ExportInformativeAttributes(target *grid.DataGrid) {
	m.mustHaveSource()
	if !target.IsEmpty() {
		panic("ExportInformativeAttributes: target data grid must be empty")
	}
	initialiseDataGrid(m.source, target)
	for _, sourceAttribute := range m.source.Attributes() {
		if !sourceAttribute.IsInformative() {
			continue
		}
		targetAttribute := target.AddAttribute(sourceAttribute.Name, sourceAttribute.Type)
		initialiseAttribute(sourceAttribute, targetAttribute)
		if targetAttribute.Type == common.VarPart {
			target.SetInnerAttributes(m.source.InnerAttributes())
		}
	}
	ensure(func() error { return m.CheckAttributes(target) })
}

// ExportParts 目标网格中还没有部分的属性从源属性复制部分
func (m *Manager) ExportParts(target *grid.DataGrid) {
	m.mustHaveSource()
	for _, targetAttribute := range target.Attributes() {
		if targetAttribute.PartNumber() > 0 {
			continue
		}
		sourceAttribute := m.source.SearchAttribute(targetAttribute.Name)
		if sourceAttribute == nil {
			panic("ExportParts: unknown attribute " + targetAttribute.Name)
		}
		initialiseAttributeParts(sourceAttribute, targetAttribute)
	}
	ensure(func() error { return m.CheckParts(target) })
}

// ExportPartsForAttribute 只复制一个属性的部分
func (m *Manager) ExportPartsForAttribute(target *grid.DataGrid, attributeName string) {
	m.mustHaveSource()
	sourceAttribute := m.source.SearchAttribute(attributeName)
	targetAttribute := target.SearchAttribute(attributeName)
	if sourceAttribute == nil || targetAttribute == nil {
		panic("ExportPartsForAttribute: unknown attribute " + attributeName)
	}
	if targetAttribute.PartNumber() > 0 {
		panic("ExportPartsForAttribute: attribute already has parts, " + attributeName)
	}
	initialiseAttributeParts(sourceAttribute, targetAttribute)
}

// ExportCells 源单元格按其部分所在的目标部分投影到目标网格
func (m *Manager) ExportCells(target *grid.DataGrid) {
	m.mustHaveSource()
	if target.CellNumber() > 0 {
		panic("ExportCells: target data grid already has cells")
	}
	if target.TargetValueNumber() != m.source.TargetValueNumber() {
		panic("ExportCells: inconsistent target values")
	}

	// 连续属性按区间二分查找
	for _, targetAttribute := range target.Attributes() {
		if targetAttribute.Type == common.Continuous && !targetAttribute.ArePartsSorted() {
			targetAttribute.SortParts()
		}
	}
	if inner := target.InnerAttributes(); inner != nil {
		for _, innerAttribute := range inner.Attributes() {
			if innerAttribute.Type == common.Continuous && !innerAttribute.ArePartsSorted() {
				innerAttribute.SortParts()
			}
		}
	}

	sourceIndexes := make([]int, target.AttributeNumber())
	for i, targetAttribute := range target.Attributes() {
		sourceAttribute := m.source.SearchAttribute(targetAttribute.Name)
		if sourceAttribute == nil {
			panic("ExportCells: unknown attribute " + targetAttribute.Name)
		}
		sourceIndexes[i] = sourceAttribute.Index()
	}

	target.BuildIndexingStructure()
	parts := make([]*grid.Part, target.AttributeNumber())
	for _, sourceCell := range m.source.Cells() {
		for i, targetAttribute := range target.Attributes() {
			sourcePart := sourceCell.PartAt(sourceIndexes[i])
			parts[i] = targetAttribute.LookupPart(sourcePart)
			if parts[i] == nil {
				panic(fmt.Sprintf("ExportCells: no part of %s for source part %s", targetAttribute.Name, sourcePart.Label()))
			}
		}
		target.LookupOrAddCell(parts).AddFrequenciesFrom(sourceCell)
	}
	target.DeleteIndexingStructure()
}

// initialiseAttribute 复制属性的参数，不包括部分
func initialiseAttribute(source, target *grid.Attribute) {
	target.TargetFunction = source.TargetFunction
	target.Cost = source.Cost
	target.InitialValueNumber = source.InitialValueNumber
	target.GranularizedValueNumber = source.GranularizedValueNumber
	target.OwnerAttributeName = source.OwnerAttributeName
	target.InnerAttributeNames = append([]string(nil), source.InnerAttributeNames...)
	target.InitializeCatchAllValueSet(source.CatchAllValueSet())
}

// copyPartValues 复制部分的内容：区间，值组（深拷贝）或变量部分（共享）
func copyPartValues(source, target *grid.Part) {
	switch {
	case source.Interval != nil:
		*target.Interval = *source.Interval
	case source.ValueSet != nil:
		target.ValueSet.CopyFrom(source.ValueSet)
	case source.VarPartSet != nil:
		target.VarPartSet.VarParts = append(target.VarPartSet.VarParts[:0], source.VarPartSet.VarParts...)
	}
}

// upgradePartValues 追加源部分的值或变量部分
func upgradePartValues(source, target *grid.Part) {
	switch {
	case source.ValueSet != nil:
		target.ValueSet.UpgradeFrom(source.ValueSet)
	case source.VarPartSet != nil:
		target.VarPartSet.UpgradeFrom(source.VarPartSet)
	}
}

// initialiseAttributeParts 逐个复制源属性的部分，内部属性同时复制部分频数
func initialiseAttributeParts(source, target *grid.Attribute) {
	for _, sourcePart := range source.Parts() {
		targetPart := target.AddPart()
		copyPartValues(sourcePart, targetPart)
		if sourcePart == source.GarbagePart() {
			target.SetGarbagePart(targetPart)
		}
		if source.IsInnerAttribute() {
			targetPart.SetFrequency(sourcePart.Frequency())
		}
	}
}

// initialiseAttributeNullPart 一个部分包含所有的值
func initialiseAttributeNullPart(source, target *grid.Attribute) {
	targetPart := target.AddPart()
	if source.Type == common.Continuous {
		return
	}
	for _, sourcePart := range source.Parts() {
		upgradePartValues(sourcePart, targetPart)
	}
}

// newInnerAttributeLike 在内部属性集合中新建一个与源内部属性参数相同的属性
func newInnerAttributeLike(inner *grid.InnerAttributes, source *grid.Attribute) *grid.Attribute {
	target := inner.Add(source.Name, source.Type, source.OwnerAttributeName)
	initialiseAttribute(source, target)
	return target
}

// createNullInnerAttributes 每个内部属性只有一个部分，频数为全部频数
func createNullInnerAttributes(source *grid.InnerAttributes) *grid.InnerAttributes {
	result := grid.NewInnerAttributes()
	for _, sourceInner := range source.Attributes() {
		targetInner := newInnerAttributeLike(result, sourceInner)
		initialiseAttributeNullPart(sourceInner, targetInner)
		total := 0
		for _, p := range sourceInner.Parts() {
			total += p.Frequency()
		}
		targetInner.PartAt(0).SetFrequency(total)
	}
	return result
}

// IsSupervisedInputAttribute 监督网格中的非目标属性
func IsSupervisedInputAttribute(a *grid.Attribute) bool {
	if a.IsInnerAttribute() || a.Grid() == nil {
		return false
	}
	g := a.Grid()
	return g.TargetValueNumber() > 0 || (g.TargetAttribute() != nil && !a.TargetFunction)
}

// sortedParts 部分的一个排好序的拷贝，属性本身不变
func sortedParts(a *grid.Attribute) []*grid.Part {
	parts := append([]*grid.Part(nil), a.Parts()...)
	if a.Type == common.Continuous {
		sortByLowerBound(parts)
	}
	return parts
}
