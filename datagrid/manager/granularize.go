package manager

import (
	"fmt"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/grid"
)

// QuantileBuilders 每个属性一个分位数构造器，以及每个属性可以达到的最大部分数
type QuantileBuilders struct {
	builders       map[string]QuantileBuilder
	maxPartNumbers map[string]int
}

func newQuantileBuilders() *QuantileBuilders {
	return &QuantileBuilders{
		builders:       make(map[string]QuantileBuilder),
		maxPartNumbers: make(map[string]int),
	}
}

func (q *QuantileBuilders) Lookup(attributeName string) QuantileBuilder {
	return q.builders[attributeName]
}

func (q *QuantileBuilders) MaxPartNumber(attributeName string) int {
	return q.maxPartNumbers[attributeName]
}

// InitializeQuantileBuilders 为源网格的每个属性建立分位数构造器，源部分必须已排序
func (m *Manager) InitializeQuantileBuilders() *QuantileBuilders {
	m.mustHaveSource()
	builders := newQuantileBuilders()
	for _, a := range m.source.Attributes() {
		builders.add(a)
	}
	return builders
}

// InitializeInnerAttributesQuantileBuilders VarPart网格的内部属性的分位数构造器
func (m *Manager) InitializeInnerAttributesQuantileBuilders() *QuantileBuilders {
	m.mustHaveSource()
	if m.source.InnerAttributes() == nil {
		panic("InitializeInnerAttributesQuantileBuilders: not a VarPart data grid")
	}
	builders := newQuantileBuilders()
	for _, inner := range m.source.InnerAttributes().Attributes() {
		builders.add(inner)
	}
	return builders
}

// add 连续属性按区间顺序的频数，离散属性按降序的频数
// 离散属性的最大部分数：频数大于1的部分个数，有单例时再加1
func (q *QuantileBuilders) add(a *grid.Attribute) {
	if !a.ArePartsSorted() {
		panic(fmt.Sprintf("quantile builder: parts of %s must be sorted", a.Name))
	}
	frequencies := make([]int, 0, a.PartNumber())
	for _, p := range a.Parts() {
		frequencies = append(frequencies, p.Frequency())
	}
	if a.Type == common.Continuous {
		q.builders[a.Name] = NewIntervalQuantileBuilder(frequencies)
		q.maxPartNumbers[a.Name] = a.PartNumber()
		return
	}
	maxPartNumber := 0
	singleton := false
	for _, f := range frequencies {
		if f > 1 {
			maxPartNumber++
		} else {
			singleton = true
		}
	}
	if singleton {
		maxPartNumber++
	}
	q.builders[a.Name] = NewGroupQuantileBuilder(frequencies)
	q.maxPartNumbers[a.Name] = maxPartNumber
}

// partileNumber 2^g，不超过实例数
func partileNumber(granularity, frequency int) int {
	if granularity >= 62 {
		return frequency
	}
	n := 1 << granularity
	if n > frequency {
		n = frequency
	}
	return n
}

// ExportGranularizedDataGrid 每个属性的源部分合并为至多2^g个partile
func (m *Manager) ExportGranularizedDataGrid(target *grid.DataGrid, granularity int, builders *QuantileBuilders) {
	m.ExportAttributes(target)
	for _, targetAttribute := range target.Attributes() {
		sourceAttribute := m.source.SearchAttribute(targetAttribute.Name)
		m.initialiseAttributeGranularizedParts(sourceAttribute, targetAttribute, granularity, builders.Lookup(targetAttribute.Name))
	}
	m.ExportCells(target)
	target.SetGranularity(granularity)
	ensure(func() error { return target.Check() })
}

// ExportGranularizedDataGridForVarPartAttributes 粒度化VarPart属性的内部属性，
// 每个内部属性的partile组成一个簇，其它属性保持不变
func (m *Manager) ExportGranularizedDataGridForVarPartAttributes(target *grid.DataGrid, granularity int, builders *QuantileBuilders) {
	m.ExportAttributes(target)
	for _, targetAttribute := range target.Attributes() {
		sourceAttribute := m.source.SearchAttribute(targetAttribute.Name)
		if targetAttribute.Type != common.VarPart {
			initialiseAttributeParts(sourceAttribute, targetAttribute)
			continue
		}
		inner := m.createGranularizedInnerAttributes(granularity, builders)
		target.SetInnerAttributes(inner)
		for _, innerAttribute := range inner.Attributes() {
			for _, p := range innerAttribute.Parts() {
				targetAttribute.AddPart().VarPartSet.AddVarPart(p)
			}
		}
		targetAttribute.InitialValueNumber = inner.VarPartNumber()
		targetAttribute.GranularizedValueNumber = inner.VarPartNumber()
	}
	m.ExportCells(target)
	target.SetGranularity(m.source.Granularity())
	target.SortAttributeParts()
	ensure(func() error { return target.Check() })
}

func (m *Manager) createGranularizedInnerAttributes(granularity int, builders *QuantileBuilders) *grid.InnerAttributes {
	result := grid.NewInnerAttributes()
	for _, sourceInner := range m.source.InnerAttributes().Attributes() {
		targetInner := newInnerAttributeLike(result, sourceInner)
		m.initialiseAttributeGranularizedParts(sourceInner, targetInner, granularity, builders.Lookup(sourceInner.Name))
		targetInner.SortParts()
	}
	return result
}

func (m *Manager) initialiseAttributeGranularizedParts(source, target *grid.Attribute, granularity int, builder QuantileBuilder) {
	if source.TargetFunction {
		initialiseAttributeParts(source, target)
		target.GranularizedValueNumber = source.InitialValueNumber
		return
	}
	if builder == nil {
		panic("granularize: no quantile builder for " + source.Name)
	}
	if source.Type == common.Continuous {
		m.initialiseGranularizedContinuousParts(source, target, granularity, builder)
	} else {
		m.initialiseGranularizedGroupableParts(source, target, granularity, builder)
	}
}

func (m *Manager) initialiseGranularizedContinuousParts(source, target *grid.Attribute, granularity int, builder QuantileBuilder) {
	valueNumber := m.source.GridFrequency()
	partiles := partileNumber(granularity, valueNumber)
	if granularity == 0 || partiles >= valueNumber {
		initialiseAttributeParts(source, target)
	} else {
		sourceParts := source.Parts()
		builder.ComputeQuantiles(partiles)
		for i := 0; i < builder.QuantileNumber(); i++ {
			targetPart := target.AddPart()
			targetPart.Interval.Lower = sourceParts[builder.FirstIndexAt(i)].Interval.Lower
			targetPart.Interval.Upper = sourceParts[builder.LastIndexAt(i)].Interval.Upper
			if source.IsInnerAttribute() {
				targetPart.SetFrequency(builder.FrequencyAt(i))
			}
		}
	}
	if IsSupervisedInputAttribute(target) {
		target.GranularizedValueNumber = partiles
	} else {
		target.GranularizedValueNumber = source.InitialValueNumber
	}
}

// initialiseGranularizedGroupableParts 2^g等于值的个数时退回到2^(g-1)个partile，
// 避免留下没有合并的单例组
func (m *Manager) initialiseGranularizedGroupableParts(source, target *grid.Attribute, granularity int, builder QuantileBuilder) {
	valueNumber := m.source.GridFrequency()
	partiles := partileNumber(granularity, valueNumber)
	actual := partiles
	if granularity == 0 {
		initialiseAttributeParts(source, target)
	} else {
		if partiles == valueNumber {
			partiles = partileNumber(granularity-1, valueNumber)
		}
		sourceParts := source.Parts()
		actual = builder.ComputeQuantiles(partiles)
		supervised := IsSupervisedInputAttribute(target)
		for i := 0; i < actual; i++ {
			targetPart := target.AddPart()
			for j := builder.FirstIndexAt(i); j <= builder.LastIndexAt(i); j++ {
				upgradePartValues(sourceParts[j], targetPart)
			}
			if source.IsInnerAttribute() {
				targetPart.SetFrequency(builder.FrequencyAt(i))
			}
			if source.Type != common.Symbol || !supervised {
				continue
			}
			// 监督模式下每个partile计一个模态，默认组压缩为首值加星号值
			targetPart.ValueSet.Modalities = 1
			if targetPart.ValueSet.IsDefaultPart() && len(targetPart.ValueSet.Values) > 1 {
				removed := targetPart.ValueSet.ConvertToCleanedValueSet()
				if removed.TrueValueNumber() > 0 {
					target.InitializeCatchAllValueSet(removed)
				}
			}
		}
	}
	if IsSupervisedInputAttribute(target) {
		target.GranularizedValueNumber = actual
	} else {
		target.GranularizedValueNumber = source.InitialValueNumber
	}
}
