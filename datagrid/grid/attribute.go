package grid

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/exp/slices"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/costs"
)

// Attribute 数据网格的一个维度
type Attribute struct {
	Name                    string
	Type                    common.AttributeType
	TargetFunction          bool    // 回归或带分组的分类中的目标属性
	Cost                    float64 // 选择/构造代价
	InitialValueNumber      int
	GranularizedValueNumber int
	OwnerAttributeName      string   // 内部属性所属的VarPart属性
	InnerAttributeNames     []string // VarPart属性的内部属性

	grid             *DataGrid
	inner            *InnerAttributes
	index            int
	parts            []*Part
	garbagePart      *Part
	catchAllValueSet *ValueSet
	valueIndex       map[string]*Part
	varPartIndex     map[*Part]*Part
}

func (a *Attribute) Grid() *DataGrid {
	return (*a).grid
}

// Index 在网格属性列表中的位置
func (a *Attribute) Index() int {
	return (*a).index
}

// IsInnerAttribute 是否为VarPart属性的内部属性
func (a *Attribute) IsInnerAttribute() bool {
	return a.OwnerAttributeName != ""
}

// AddPart 新增一个空部分，连续属性的区间为 ]-inf;+inf[
func (a *Attribute) AddPart() *Part {
	p := newPart(a)
	a.parts = append(a.parts, p)
	a.valueIndex = nil
	a.varPartIndex = nil
	return p
}

// DeletePart 删除一个没有单元格的部分
func (a *Attribute) DeletePart(part *Part) {
	if len(part.cells) > 0 {
		panic(fmt.Sprintf("DeletePart: part %s of %s still has cells", part.Label(), a.Name))
	}
	i := slices.Index(a.parts, part)
	if i < 0 {
		panic("DeletePart: unknown part of " + a.Name)
	}
	a.parts = slices.Delete(a.parts, i, i+1)
	if a.garbagePart == part {
		a.garbagePart = nil
	}
	a.valueIndex = nil
	a.varPartIndex = nil
}

// DeleteAllParts 网格的单元格必须先清空
func (a *Attribute) DeleteAllParts() {
	if a.grid != nil && len(a.grid.cells) > 0 {
		panic("DeleteAllParts: cells must be deleted first")
	}
	a.parts = nil
	a.garbagePart = nil
	a.valueIndex = nil
	a.varPartIndex = nil
}

func (a *Attribute) Parts() []*Part {
	return (*a).parts
}

func (a *Attribute) PartAt(i int) *Part {
	return (*a).parts[i]
}

func (a *Attribute) PartNumber() int {
	return len(a.parts)
}

// IsInformative 至少有两个部分
func (a *Attribute) IsInformative() bool {
	return len(a.parts) > 1
}

func (a *Attribute) GarbagePart() *Part {
	return (*a).garbagePart
}

func (a *Attribute) SetGarbagePart(part *Part) {
	if part != nil && a.Type != common.Symbol {
		panic("SetGarbagePart: garbage only for symbol attributes, " + a.Name)
	}
	(*a).garbagePart = part
}

// GarbageModalityNumber 垃圾组在代价中计的模态数，没有垃圾组时为0
// 与GranularizedValueNumber单位相同：监督模式粒度化之后按partile计
func (a *Attribute) GarbageModalityNumber() int {
	if a.garbagePart == nil {
		return 0
	}
	return a.garbagePart.ValueSet.Modalities
}

// ComputeGarbagePart 初始值最多的组，至少三个组时才有垃圾组
// 相同时依次比较模态数、频数，再相同时取排在前面的
func (a *Attribute) ComputeGarbagePart() *Part {
	if a.Type != common.Symbol || len(a.parts) < 3 {
		return nil
	}
	var garbage *Part
	for _, p := range a.parts {
		if garbage == nil || p.GarbageCandidate().Before(garbage.GarbageCandidate()) {
			garbage = p
		}
	}
	return garbage
}

// GarbageCandidate 选择垃圾组时比较的量
type GarbageCandidate struct {
	ValueNumber int // 初始值个数
	Modalities  int // 代价中的模态数
	Frequency   int
}

// Before c比other更应该成为垃圾组
func (c GarbageCandidate) Before(other GarbageCandidate) bool {
	if c.ValueNumber != other.ValueNumber {
		return c.ValueNumber > other.ValueNumber
	}
	if c.Modalities != other.Modalities {
		return c.Modalities > other.Modalities
	}
	return c.Frequency > other.Frequency
}

// Union 两个组合并之后
func (c GarbageCandidate) Union(other GarbageCandidate) GarbageCandidate {
	return GarbageCandidate{
		ValueNumber: c.ValueNumber + other.ValueNumber,
		Modalities:  c.Modalities + other.Modalities,
		Frequency:   c.Frequency + other.Frequency,
	}
}

func (a *Attribute) CatchAllValueSet() *ValueSet {
	return (*a).catchAllValueSet
}

// InitializeCatchAllValueSet 记录被压缩进默认组的值
func (a *Attribute) InitializeCatchAllValueSet(valueSet *ValueSet) {
	if valueSet == nil {
		a.catchAllValueSet = nil
		return
	}
	a.catchAllValueSet = &ValueSet{}
	a.catchAllValueSet.CopyFrom(valueSet)
	a.valueIndex = nil
}

// CatchAllValueNumber 被压缩进默认组的值个数
func (a *Attribute) CatchAllValueNumber() int {
	if a.catchAllValueSet == nil {
		return 0
	}
	return a.catchAllValueSet.TrueValueNumber()
}

// DefaultPart 包含星号值的部分
func (a *Attribute) DefaultPart() *Part {
	for _, p := range a.parts {
		if p.ValueSet != nil && p.ValueSet.IsDefaultPart() {
			return p
		}
	}
	return nil
}

// TrueValueNumber 各部分的真实值个数之和，包括压缩进默认组的值
func (a *Attribute) TrueValueNumber() int {
	n := a.CatchAllValueNumber()
	for _, p := range a.parts {
		if p.ValueSet != nil {
			n += p.ValueSet.TrueValueNumber()
		}
	}
	return n
}

// BuildIndexingStructure 建立值到部分的索引，VarPart属性建立变量部分到簇的索引
func (a *Attribute) BuildIndexingStructure() {
	a.valueIndex = make(map[string]*Part)
	switch a.Type {
	case common.Symbol:
		for _, p := range a.parts {
			for _, v := range p.ValueSet.Values {
				a.valueIndex[v.Value] = p
			}
		}
		if a.catchAllValueSet != nil {
			if defaultPart := a.DefaultPart(); defaultPart != nil {
				for _, v := range a.catchAllValueSet.Values {
					a.valueIndex[v.Value] = defaultPart
				}
			}
		}
	case common.VarPart:
		a.varPartIndex = make(map[*Part]*Part)
		for _, p := range a.parts {
			for _, vp := range p.VarPartSet.VarParts {
				a.varPartIndex[vp] = p
			}
		}
	}
}

// LookupSymbolPart 值所在的部分，未知值进入默认组
func (a *Attribute) LookupSymbolPart(value string) *Part {
	if a.valueIndex == nil {
		a.BuildIndexingStructure()
	}
	if p, ok := a.valueIndex[value]; ok {
		return p
	}
	return a.valueIndex[common.StarValue]
}

// LookupContinuousPart 二分查找包含该值的区间，部分需已排序
func (a *Attribute) LookupContinuousPart(value float64) *Part {
	i := sort.Search(len(a.parts), func(i int) bool {
		return value <= a.parts[i].Interval.Upper
	})
	if i == len(a.parts) {
		return nil
	}
	return a.parts[i]
}

// LookupVarPart 包含该内部属性部分的簇
func (a *Attribute) LookupVarPart(varPart *Part) *Part {
	if a.varPartIndex == nil {
		a.BuildIndexingStructure()
	}
	return a.varPartIndex[varPart]
}

// LookupPart 另一个网格中的部分在当前属性中对应的部分（包含它的部分）
// VarPart部分通过第一个变量部分在本网格内部属性中的对应部分查找
func (a *Attribute) LookupPart(sourcePart *Part) *Part {
	switch a.Type {
	case common.Continuous:
		// 源区间的上界落在目标区间中
		return a.LookupContinuousPart(sourcePart.Interval.Upper)
	case common.Symbol:
		for _, v := range sourcePart.ValueSet.Values {
			if v.Value != common.StarValue {
				return a.LookupSymbolPart(v.Value)
			}
		}
		return a.LookupSymbolPart(common.StarValue)
	case common.VarPart:
		if len(sourcePart.VarPartSet.VarParts) == 0 || a.grid == nil || a.grid.innerAttributes == nil {
			return nil
		}
		sourceVarPart := sourcePart.VarPartSet.VarParts[0]
		inner := a.grid.innerAttributes.Lookup(sourceVarPart.attribute.Name)
		if inner == nil {
			return nil
		}
		return a.LookupVarPart(inner.LookupPart(sourceVarPart))
	}
	return nil
}

// ArePartsSorted 连续属性按区间，离散属性按频数降序
func (a *Attribute) ArePartsSorted() bool {
	return slices.IsSortedFunc(a.parts, a.comparePart)
}

// SortParts 排序部分，离散属性同时排序每个部分的值
func (a *Attribute) SortParts() {
	for _, p := range a.parts {
		if p.ValueSet != nil {
			p.ValueSet.SortValues()
		}
	}
	slices.SortStableFunc(a.parts, a.comparePart)
}

func (a *Attribute) comparePart(p1, p2 *Part) int {
	if a.Type == common.Continuous {
		switch {
		case p1.Interval.Lower < p2.Interval.Lower:
			return -1
		case p1.Interval.Lower > p2.Interval.Lower:
			return 1
		}
		return 0
	}
	if p1.frequency != p2.frequency {
		return p2.frequency - p1.frequency
	}
	return strings.Compare(p1.Label(), p2.Label())
}

// CostParams 属性的代价参数
func (a *Attribute) CostParams() costs.AttributeParams {
	params := costs.AttributeParams{
		Name:                    a.Name,
		Type:                    a.Type,
		Cost:                    a.Cost,
		TargetFunction:          a.TargetFunction,
		InitialValueNumber:      a.InitialValueNumber,
		GranularizedValueNumber: a.GranularizedValueNumber,
		GarbageModalityNumber:   a.GarbageModalityNumber(),
	}
	if a.Type == common.VarPart && a.grid != nil && a.grid.innerAttributes != nil {
		for _, name := range a.InnerAttributeNames {
			inner := a.grid.innerAttributes.Lookup(name)
			if inner == nil {
				continue
			}
			params.InnerAttributes = append(params.InnerAttributes, inner.InnerCostParams())
		}
	}
	return params
}

// InnerCostParams 内部属性连同其部分的代价参数
func (a *Attribute) InnerCostParams() costs.InnerAttributeParams {
	inner := costs.InnerAttributeParams{AttributeParams: a.CostParams()}
	for _, p := range a.parts {
		inner.Parts = append(inner.Parts, p.CostParams())
	}
	return inner
}

// Check 部分的结构一致性
func (a *Attribute) Check() error {
	if a.Name == "" {
		return fmt.Errorf("attribute without name")
	}
	if len(a.parts) == 0 {
		return fmt.Errorf("attribute %s without parts", a.Name)
	}
	if a.GranularizedValueNumber > 0 && len(a.parts) > a.GranularizedValueNumber && a.grid != nil && a.grid.granularity > 0 {
		return fmt.Errorf("attribute %s: %d parts for %d partiles", a.Name, len(a.parts), a.GranularizedValueNumber)
	}
	switch a.Type {
	case common.Continuous:
		for i, p := range a.parts {
			if i == 0 && p.Interval.Lower != common.MinLowerBound {
				return fmt.Errorf("attribute %s: first interval must start at -inf", a.Name)
			}
			if i == len(a.parts)-1 && p.Interval.Upper != common.MaxUpperBound {
				return fmt.Errorf("attribute %s: last interval must end at +inf", a.Name)
			}
			if p.Interval.Lower >= p.Interval.Upper {
				return fmt.Errorf("attribute %s: empty interval %s", a.Name, p.Label())
			}
			if i > 0 && a.parts[i-1].Interval.Upper != p.Interval.Lower {
				return fmt.Errorf("attribute %s: intervals %s and %s are not contiguous",
					a.Name, a.parts[i-1].Label(), p.Label())
			}
		}
	case common.Symbol:
		seen := make(map[string]struct{})
		defaultParts := 0
		for _, p := range a.parts {
			if p.ValueSet.IsDefaultPart() {
				defaultParts++
			}
			for _, v := range p.ValueSet.Values {
				if _, ok := seen[v.Value]; ok {
					return fmt.Errorf("attribute %s: value %q in several parts", a.Name, v.Value)
				}
				seen[v.Value] = struct{}{}
			}
		}
		if defaultParts != 1 {
			return fmt.Errorf("attribute %s: %d default parts", a.Name, defaultParts)
		}
		if a.garbagePart != nil && !slices.Contains(a.parts, a.garbagePart) {
			return fmt.Errorf("attribute %s: garbage part not found", a.Name)
		}
	case common.VarPart:
		seen := make(map[*Part]struct{})
		for _, p := range a.parts {
			for _, vp := range p.VarPartSet.VarParts {
				if _, ok := seen[vp]; ok {
					return fmt.Errorf("attribute %s: variable part %s in several clusters", a.Name, vp.Label())
				}
				seen[vp] = struct{}{}
			}
		}
	}
	return nil
}

func (a *Attribute) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\t%s\t%d parts", a.Name, a.Type, len(a.parts))
	if a.garbagePart != nil {
		fmt.Fprintf(&sb, "\tgarbage %d", a.GarbageModalityNumber())
	}
	for _, p := range a.parts {
		sb.WriteString("\n\t")
		sb.WriteString(p.String())
	}
	return sb.String()
}
