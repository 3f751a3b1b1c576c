package grid

import (
	"fmt"
	"strings"
	"sync/atomic"

	"golang.org/x/exp/slices"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/costs"
)

// partSequence 部分的全局编号，只用于单元格索引的键
var partSequence atomic.Int64

// Interval 区间 (Lower, Upper]，第一个区间的下界为-Inf，最后一个区间的上界为+Inf
type Interval struct {
	Lower float64
	Upper float64
}

// Contains 第一个区间也包含-Inf本身
func (i *Interval) Contains(value float64) bool {
	if value > i.Upper {
		return false
	}
	return value > i.Lower || i.Lower == common.MinLowerBound
}

func (i *Interval) String() string {
	lower := "]-inf"
	if i.Lower != common.MinLowerBound {
		lower = fmt.Sprintf("]%g", i.Lower)
	}
	upper := "+inf["
	if i.Upper != common.MaxUpperBound {
		upper = fmt.Sprintf("%g]", i.Upper)
	}
	return lower + ";" + upper
}

// Value 离散属性的一个值及其频数
type Value struct {
	Value     string
	Frequency int
}

// ValueSet 值组
// Modalities 是代价计算中使用的模态数：未粒度化时等于真实值个数，监督模式粒度化之后每个partile计1
// ValueNumber 是值组代表的初始值个数，粒度化与默认组压缩都不改变它，垃圾组按它选择
type ValueSet struct {
	Values      []*Value
	Modalities  int
	ValueNumber int
}

// AddValue 新增一个值，星号值不计入模态数
func (s *ValueSet) AddValue(value string, frequency int) *Value {
	v := &Value{Value: value, Frequency: frequency}
	s.Values = append(s.Values, v)
	if value != common.StarValue {
		s.Modalities++
		s.ValueNumber++
	}
	return v
}

// IsDefaultPart 是否包含星号值
func (s *ValueSet) IsDefaultPart() bool {
	for _, v := range s.Values {
		if v.Value == common.StarValue {
			return true
		}
	}
	return false
}

// TrueValueNumber 除星号值之外的值个数
func (s *ValueSet) TrueValueNumber() int {
	n := len(s.Values)
	if s.IsDefaultPart() {
		n--
	}
	return n
}

func (s *ValueSet) TotalFrequency() int {
	total := 0
	for _, v := range s.Values {
		total += v.Frequency
	}
	return total
}

// CopyFrom 深拷贝
func (s *ValueSet) CopyFrom(source *ValueSet) {
	s.Values = s.Values[:0]
	s.Modalities = 0
	s.ValueNumber = 0
	s.UpgradeFrom(source)
}

// UpgradeFrom 追加另一个值组的拷贝，两个值组必须不相交
func (s *ValueSet) UpgradeFrom(source *ValueSet) {
	for _, v := range source.Values {
		s.Values = append(s.Values, &Value{Value: v.Value, Frequency: v.Frequency})
	}
	s.Modalities += source.Modalities
	s.ValueNumber += source.ValueNumber
}

// Import 移入另一个值组的值，源值组被清空
func (s *ValueSet) Import(source *ValueSet) {
	s.Values = append(s.Values, source.Values...)
	s.Modalities += source.Modalities
	s.ValueNumber += source.ValueNumber
	source.Values = nil
	source.Modalities = 0
	source.ValueNumber = 0
}

// SortValues 按频数降序，星号值总在最后，频数相同时按值排序
func (s *ValueSet) SortValues() {
	slices.SortStableFunc(s.Values, func(a, b *Value) int {
		if (a.Value == common.StarValue) != (b.Value == common.StarValue) {
			if a.Value == common.StarValue {
				return 1
			}
			return -1
		}
		if a.Frequency != b.Frequency {
			return b.Frequency - a.Frequency
		}
		return strings.Compare(a.Value, b.Value)
	})
}

// CompressValueSet 用星号值代替全部值，频数与模态数保持不变
func (s *ValueSet) CompressValueSet() {
	frequency := s.TotalFrequency()
	s.Values = []*Value{{Value: common.StarValue, Frequency: frequency}}
}

// ConvertToCleanedValueSet 只保留频数最高的值和星号值，返回被去掉的值
// 去掉的值的频数累加到星号值上，值组只计1个模态，初始值个数不变
func (s *ValueSet) ConvertToCleanedValueSet() *ValueSet {
	s.SortValues()
	removed := &ValueSet{}
	var head, star *Value
	for _, v := range s.Values {
		switch {
		case v.Value == common.StarValue:
			star = v
		case head == nil:
			head = v
		default:
			removed.AddValue(v.Value, v.Frequency)
		}
	}
	if star == nil {
		star = &Value{Value: common.StarValue}
	}
	star.Frequency += removed.TotalFrequency()
	s.Values = s.Values[:0]
	if head != nil {
		s.Values = append(s.Values, head)
	}
	s.Values = append(s.Values, star)
	s.Modalities = 1
	return removed
}

// VarPartSet VarPart属性的部分：内部属性部分的集合
type VarPartSet struct {
	VarParts []*Part
}

func (s *VarPartSet) AddVarPart(part *Part) {
	s.VarParts = append(s.VarParts, part)
}

func (s *VarPartSet) UpgradeFrom(source *VarPartSet) {
	s.VarParts = append(s.VarParts, source.VarParts...)
}

func (s *VarPartSet) Import(source *VarPartSet) {
	s.UpgradeFrom(source)
	source.VarParts = nil
}

func (s *VarPartSet) TotalFrequency() int {
	total := 0
	for _, p := range s.VarParts {
		total += p.Frequency()
	}
	return total
}

// Part 属性划分中的一个部分
type Part struct {
	attribute  *Attribute
	Interval   *Interval
	ValueSet   *ValueSet
	VarPartSet *VarPartSet

	id        int64
	frequency int
	cells     []*Cell
}

func newPart(attribute *Attribute) *Part {
	p := &Part{attribute: attribute, id: partSequence.Add(1)}
	switch attribute.Type {
	case common.Continuous:
		p.Interval = &Interval{Lower: common.MinLowerBound, Upper: common.MaxUpperBound}
	case common.Symbol:
		p.ValueSet = &ValueSet{}
	case common.VarPart:
		p.VarPartSet = &VarPartSet{}
	}
	return p
}

func (p *Part) Attribute() *Attribute {
	return (*p).attribute
}

func (p *Part) ID() int64 {
	return (*p).id
}

// Frequency 网格属性的部分频数来自单元格，内部属性的部分频数直接设置
func (p *Part) Frequency() int {
	return (*p).frequency
}

// SetFrequency 只用于内部属性的部分
func (p *Part) SetFrequency(frequency int) {
	if !p.attribute.IsInnerAttribute() {
		panic("SetFrequency: only inner attribute parts carry their own frequency")
	}
	(*p).frequency = frequency
}

func (p *Part) Cells() []*Cell {
	return (*p).cells
}

func (p *Part) CellNumber() int {
	return len(p.cells)
}

// ValueNumber 代价计算中的值个数：值组的模态数，或VarPart部分包含的变量部分数
func (p *Part) ValueNumber() int {
	switch {
	case p.ValueSet != nil:
		return p.ValueSet.Modalities
	case p.VarPartSet != nil:
		return len(p.VarPartSet.VarParts)
	default:
		return 1
	}
}

// GarbageCandidate 值组的频数取值的频数之和，构造部分时单元格还没有导出
func (p *Part) GarbageCandidate() GarbageCandidate {
	if p.ValueSet == nil {
		return GarbageCandidate{ValueNumber: 1, Modalities: 1, Frequency: p.frequency}
	}
	return GarbageCandidate{
		ValueNumber: p.ValueSet.ValueNumber,
		Modalities:  p.ValueSet.Modalities,
		Frequency:   p.ValueSet.TotalFrequency(),
	}
}

// IsSubPart 判断当前部分是否包含在另一个部分之中
func (p *Part) IsSubPart(other *Part) bool {
	switch {
	case p.Interval != nil && other.Interval != nil:
		return other.Interval.Lower <= p.Interval.Lower && p.Interval.Upper <= other.Interval.Upper
	case p.ValueSet != nil && other.ValueSet != nil:
		values := make(map[string]struct{}, len(other.ValueSet.Values))
		for _, v := range other.ValueSet.Values {
			values[v.Value] = struct{}{}
		}
		for _, v := range p.ValueSet.Values {
			if _, ok := values[v.Value]; !ok {
				return false
			}
		}
		return true
	case p.VarPartSet != nil && other.VarPartSet != nil:
		for _, vp := range p.VarPartSet.VarParts {
			if !slices.Contains(other.VarPartSet.VarParts, vp) {
				return false
			}
		}
		return true
	}
	return false
}

// CostParams 部分的代价参数
func (p *Part) CostParams() costs.PartParams {
	params := costs.PartParams{
		AttributeType:       p.attribute.Type,
		TargetFunction:      p.attribute.TargetFunction,
		Frequency:           p.frequency,
		ValueNumber:         p.ValueNumber(),
		TargetPartitionSize: 1,
	}
	if p.attribute.grid != nil && !p.attribute.TargetFunction {
		if target := p.attribute.grid.TargetAttribute(); target != nil {
			params.TargetPartitionSize = target.PartNumber()
		}
	}
	return params
}

// Label 部分的可读描述
func (p *Part) Label() string {
	switch {
	case p.Interval != nil:
		return p.Interval.String()
	case p.ValueSet != nil:
		names := make([]string, 0, len(p.ValueSet.Values))
		for _, v := range p.ValueSet.Values {
			names = append(names, v.Value)
		}
		return "{" + strings.Join(names, ", ") + "}"
	case p.VarPartSet != nil:
		names := make([]string, 0, len(p.VarPartSet.VarParts))
		for _, vp := range p.VarPartSet.VarParts {
			names = append(names, vp.attribute.Name+" "+vp.Label())
		}
		return "{" + strings.Join(names, ", ") + "}"
	}
	return ""
}

func (p *Part) String() string {
	return fmt.Sprintf("%s\t%d", p.Label(), p.frequency)
}
