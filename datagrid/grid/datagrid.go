// Package grid 数据网格：属性、部分、单元格，以及网格代价的汇总
//
// 网格的部分频数与总频数由单元格维护，单元格通过部分编号的元组建立索引。
package grid

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/exp/slices"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/costs"
	"modl-grid/utils"
)

// DataGrid 数据网格
type DataGrid struct {
	attributes      []*Attribute
	attributeIndex  map[string]*Attribute
	targetValues    []string
	granularity     int
	cells           []*Cell
	cellIndex       map[string]*Cell
	gridFrequency   int
	innerAttributes *InnerAttributes
}

func NewDataGrid() *DataGrid {
	return &DataGrid{attributeIndex: make(map[string]*Attribute)}
}

// IsEmpty 没有属性也没有目标值
func (g *DataGrid) IsEmpty() bool {
	return len(g.attributes) == 0 && len(g.targetValues) == 0 && len(g.cells) == 0
}

// DeleteAll 清空网格
func (g *DataGrid) DeleteAll() {
	*g = DataGrid{attributeIndex: make(map[string]*Attribute)}
}

// AddAttribute 在末尾新增一个属性
func (g *DataGrid) AddAttribute(name string, attributeType common.AttributeType) *Attribute {
	if _, ok := g.attributeIndex[name]; ok {
		panic("AddAttribute: duplicate attribute " + name)
	}
	if len(g.cells) > 0 {
		panic("AddAttribute: grid already has cells")
	}
	a := &Attribute{Name: name, Type: attributeType, grid: g, index: len(g.attributes)}
	g.attributes = append(g.attributes, a)
	g.attributeIndex[name] = a
	return a
}

func (g *DataGrid) Attributes() []*Attribute {
	return (*g).attributes
}

func (g *DataGrid) AttributeNumber() int {
	return len(g.attributes)
}

func (g *DataGrid) AttributeAt(i int) *Attribute {
	return (*g).attributes[i]
}

// SearchAttribute 按名字查找，找不到返回nil
func (g *DataGrid) SearchAttribute(name string) *Attribute {
	return (*g).attributeIndex[name]
}

// SetTargetValues 监督分类的目标值，必须在创建单元格之前设置
func (g *DataGrid) SetTargetValues(values []string) {
	if len(g.cells) > 0 {
		panic("SetTargetValues: grid already has cells")
	}
	g.targetValues = append([]string(nil), values...)
}

func (g *DataGrid) TargetValues() []string {
	return (*g).targetValues
}

func (g *DataGrid) TargetValueNumber() int {
	return len(g.targetValues)
}

// TargetAttribute 带目标函数的属性，没有时返回nil
func (g *DataGrid) TargetAttribute() *Attribute {
	for _, a := range g.attributes {
		if a.TargetFunction {
			return a
		}
	}
	return nil
}

// IsSupervised 有目标值或目标属性
func (g *DataGrid) IsSupervised() bool {
	return len(g.targetValues) > 0 || g.TargetAttribute() != nil
}

// VarPartAttribute VarPart属性，没有时返回nil
func (g *DataGrid) VarPartAttribute() *Attribute {
	for _, a := range g.attributes {
		if a.Type == common.VarPart {
			return a
		}
	}
	return nil
}

func (g *DataGrid) IsVarPartDataGrid() bool {
	return g.VarPartAttribute() != nil
}

func (g *DataGrid) InnerAttributes() *InnerAttributes {
	return (*g).innerAttributes
}

// SetInnerAttributes 内部属性可以在多个网格之间共享
func (g *DataGrid) SetInnerAttributes(inner *InnerAttributes) {
	(*g).innerAttributes = inner
}

func (g *DataGrid) Granularity() int {
	return (*g).granularity
}

func (g *DataGrid) SetGranularity(granularity int) {
	if granularity < 0 {
		panic("SetGranularity: negative granularity")
	}
	(*g).granularity = granularity
}

// GridFrequency 所有单元格的频数之和
func (g *DataGrid) GridFrequency() int {
	return (*g).gridFrequency
}

// LnGridSize 各属性部分数乘积的对数
func (g *DataGrid) LnGridSize() float64 {
	ln := 0.0
	for _, a := range g.attributes {
		ln += math.Log(float64(len(a.parts)))
	}
	return ln
}

// InformativeAttributeNumber 部分数大于1的属性个数
func (g *DataGrid) InformativeAttributeNumber() int {
	n := 0
	for _, a := range g.attributes {
		if a.IsInformative() {
			n++
		}
	}
	return n
}

// CostParams 网格级别的代价参数
func (g *DataGrid) CostParams() costs.GridParams {
	return costs.GridParams{
		GridFrequency:              g.gridFrequency,
		Granularity:                g.granularity,
		LnGridSize:                 g.LnGridSize(),
		InformativeAttributeNumber: g.InformativeAttributeNumber(),
		AttributeNumber:            len(g.attributes),
	}
}

func (g *DataGrid) Cells() []*Cell {
	return (*g).cells
}

func (g *DataGrid) CellNumber() int {
	return len(g.cells)
}

// BuildIndexingStructure 建立单元格索引，之后AddCell会同步维护
func (g *DataGrid) BuildIndexingStructure() {
	g.cellIndex = make(map[string]*Cell, len(g.cells))
	for _, c := range g.cells {
		g.cellIndex[c.key] = c
	}
	for _, a := range g.attributes {
		a.BuildIndexingStructure()
	}
}

func (g *DataGrid) DeleteIndexingStructure() {
	g.cellIndex = nil
	for _, a := range g.attributes {
		a.valueIndex = nil
		a.varPartIndex = nil
	}
}

func (g *DataGrid) IsIndexed() bool {
	return g.cellIndex != nil
}

// LookupCell 按部分元组查找单元格，没有时返回nil
func (g *DataGrid) LookupCell(parts []*Part) *Cell {
	if g.cellIndex == nil {
		g.BuildIndexingStructure()
	}
	return g.cellIndex[cellKey(parts)]
}

// AddCell 新建一个空单元格，元组中每个属性一个部分
func (g *DataGrid) AddCell(parts []*Part) *Cell {
	if len(parts) != len(g.attributes) {
		panic(fmt.Sprintf("AddCell: %d parts for %d attributes", len(parts), len(g.attributes)))
	}
	c := &Cell{
		parts:     append([]*Part(nil), parts...),
		positions: make([]int, len(parts)),
		position:  len(g.cells),
	}
	if len(g.targetValues) > 0 {
		c.targetFrequencies = make([]int, len(g.targetValues))
	}
	for i, p := range parts {
		if p.attribute != g.attributes[i] {
			panic("AddCell: part does not belong to attribute " + g.attributes[i].Name)
		}
		c.positions[i] = len(p.cells)
		p.cells = append(p.cells, c)
	}
	c.key = cellKey(c.parts)
	g.cells = append(g.cells, c)
	if g.cellIndex != nil {
		if _, ok := g.cellIndex[c.key]; ok {
			panic("AddCell: duplicate cell " + c.String())
		}
		g.cellIndex[c.key] = c
	}
	return c
}

// LookupOrAddCell 查找单元格，不存在时新建
func (g *DataGrid) LookupOrAddCell(parts []*Part) *Cell {
	if c := g.LookupCell(parts); c != nil {
		return c
	}
	return g.AddCell(parts)
}

// DeleteCell 删除单元格，其频数从部分与网格中扣除
func (g *DataGrid) DeleteCell(c *Cell) {
	c.shiftFrequency(-c.frequency)
	for i, p := range c.parts {
		removeCellAt(&p.cells, c.positions[i], i)
	}
	last := len(g.cells) - 1
	moved := g.cells[last]
	g.cells[c.position] = moved
	moved.position = c.position
	g.cells = g.cells[:last]
	if g.cellIndex != nil {
		delete(g.cellIndex, c.key)
	}
	c.parts = nil
}

// removeCellAt 部分单元格列表中的交换删除
func removeCellAt(cells *[]*Cell, position, attributeIndex int) {
	list := *cells
	last := len(list) - 1
	moved := list[last]
	list[position] = moved
	moved.positions[attributeIndex] = position
	*cells = list[:last]
}

// DeleteAllCells 删除所有单元格，部分频数归零
func (g *DataGrid) DeleteAllCells() {
	for _, a := range g.attributes {
		for _, p := range a.parts {
			p.cells = nil
			p.frequency = 0
		}
	}
	g.cells = nil
	g.gridFrequency = 0
	if g.cellIndex != nil {
		g.cellIndex = make(map[string]*Cell)
	}
}

// MergeParts 把source合并进target，source被删除
// 返回target中频数发生变化的已有单元格
func (g *DataGrid) MergeParts(target, source *Part) []*Cell {
	a := target.attribute
	if source.attribute != a || a.grid != g || target == source {
		panic("MergeParts: parts of different attributes")
	}
	switch a.Type {
	case common.Continuous:
		if source.Interval.Lower < target.Interval.Lower {
			target.Interval.Lower = source.Interval.Lower
		} else {
			target.Interval.Upper = source.Interval.Upper
		}
	case common.Symbol:
		target.ValueSet.Import(source.ValueSet)
	case common.VarPart:
		target.VarPartSet.Import(source.VarPartSet)
	}

	if g.cellIndex == nil {
		g.BuildIndexingStructure()
	}
	var merged []*Cell
	key := make([]*Part, len(g.attributes))
	moving := append([]*Cell(nil), source.cells...)
	for _, c := range moving {
		copy(key, c.parts)
		key[a.index] = target
		if existing := g.cellIndex[cellKey(key)]; existing != nil {
			existing.AddFrequenciesFrom(c)
			g.DeleteCell(c)
			merged = append(merged, existing)
			continue
		}
		// 单元格转到target下，频数只在两个部分之间转移
		removeCellAt(&source.cells, c.positions[a.index], a.index)
		delete(g.cellIndex, c.key)
		c.parts[a.index] = target
		c.positions[a.index] = len(target.cells)
		target.cells = append(target.cells, c)
		source.frequency -= c.frequency
		target.frequency += c.frequency
		c.key = cellKey(c.parts)
		g.cellIndex[c.key] = c
	}
	if a.garbagePart == source {
		a.garbagePart = target
	}
	a.DeletePart(source)
	return merged
}

// SortAttributeParts 所有属性排序部分，单元格不受影响
func (g *DataGrid) SortAttributeParts() {
	for _, a := range g.attributes {
		a.SortParts()
	}
}

// CellsSortedByParts 按各属性部分序号排序的单元格，用于可重复的遍历
func (g *DataGrid) CellsSortedByParts() []*Cell {
	order := make(map[*Part]int)
	for _, a := range g.attributes {
		for i, p := range a.parts {
			order[p] = i
		}
	}
	sorted := append([]*Cell(nil), g.cells...)
	slices.SortFunc(sorted, func(c1, c2 *Cell) int {
		for i := range c1.parts {
			if d := order[c1.parts[i]] - order[c2.parts[i]]; d != 0 {
				return d
			}
		}
		return 0
	})
	return sorted
}

// Check 网格结构的一致性检查
func (g *DataGrid) Check() error {
	var err error
	for _, a := range g.attributes {
		err = multierr.Append(err, a.Check())
	}
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrAttributes, err)
	}

	// 单元格数不超过部分数的乘积
	if float64(len(g.cells)) > math.Exp(g.LnGridSize())+0.5 {
		return fmt.Errorf("%w: %d cells for grid size %g", utils.ErrCells, len(g.cells), math.Exp(g.LnGridSize()))
	}

	total := 0
	partFrequencies := make(map[*Part]int)
	for _, c := range g.cells {
		if len(c.parts) != len(g.attributes) {
			return fmt.Errorf("%w: cell %s", utils.ErrCells, c)
		}
		if c.frequency <= 0 {
			err = multierr.Append(err, fmt.Errorf("empty cell %s", c))
		}
		if len(c.targetFrequencies) > 0 {
			sum := 0
			for _, f := range c.targetFrequencies {
				sum += f
			}
			if sum != c.frequency {
				err = multierr.Append(err, fmt.Errorf("cell %s: target frequencies sum to %d", c, sum))
			}
		}
		for _, p := range c.parts {
			partFrequencies[p] += c.frequency
		}
		total += c.frequency
	}
	if total != g.gridFrequency {
		err = multierr.Append(err, fmt.Errorf("grid frequency %d, cells sum to %d", g.gridFrequency, total))
	}
	for _, a := range g.attributes {
		for _, p := range a.parts {
			if p.frequency != partFrequencies[p] {
				err = multierr.Append(err, fmt.Errorf("part %s of %s: frequency %d, cells sum to %d",
					p.Label(), a.Name, p.frequency, partFrequencies[p]))
			}
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrCells, err)
	}
	if g.innerAttributes != nil {
		if err := g.innerAttributes.Check(); err != nil {
			return err
		}
	}
	return nil
}

func (g *DataGrid) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Data grid\tgranularity %d\tfrequency %d\tcells %d\n", g.granularity, g.gridFrequency, len(g.cells))
	for _, a := range g.attributes {
		sb.WriteString(a.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

// InnerAttributes VarPart属性的内部属性
type InnerAttributes struct {
	attributes []*Attribute
	byName     map[string]*Attribute
}

func NewInnerAttributes() *InnerAttributes {
	return &InnerAttributes{byName: make(map[string]*Attribute)}
}

// Add 新增一个内部属性
func (ia *InnerAttributes) Add(name string, attributeType common.AttributeType, owner string) *Attribute {
	if _, ok := ia.byName[name]; ok {
		panic("InnerAttributes: duplicate attribute " + name)
	}
	a := &Attribute{Name: name, Type: attributeType, OwnerAttributeName: owner, inner: ia, index: len(ia.attributes)}
	ia.attributes = append(ia.attributes, a)
	ia.byName[name] = a
	return a
}

func (ia *InnerAttributes) Lookup(name string) *Attribute {
	return ia.byName[name]
}

func (ia *InnerAttributes) AttributeNumber() int {
	return len(ia.attributes)
}

func (ia *InnerAttributes) AttributeAt(i int) *Attribute {
	return ia.attributes[i]
}

func (ia *InnerAttributes) Attributes() []*Attribute {
	return ia.attributes
}

// VarPartNumber 所有内部属性的部分数之和
func (ia *InnerAttributes) VarPartNumber() int {
	n := 0
	for _, a := range ia.attributes {
		n += len(a.parts)
	}
	return n
}

// Clone 深拷贝内部属性，返回新旧部分的对应关系
func (ia *InnerAttributes) Clone() (*InnerAttributes, map[*Part]*Part) {
	clone := NewInnerAttributes()
	mapping := make(map[*Part]*Part)
	for _, a := range ia.attributes {
		ca := clone.Add(a.Name, a.Type, a.OwnerAttributeName)
		ca.Cost = a.Cost
		ca.InitialValueNumber = a.InitialValueNumber
		ca.GranularizedValueNumber = a.GranularizedValueNumber
		for _, p := range a.parts {
			cp := ca.AddPart()
			switch {
			case p.Interval != nil:
				*cp.Interval = *p.Interval
			case p.ValueSet != nil:
				cp.ValueSet.CopyFrom(p.ValueSet)
			}
			cp.frequency = p.frequency
			mapping[p] = cp
		}
		if a.garbagePart != nil {
			ca.garbagePart = mapping[a.garbagePart]
		}
		ca.InitializeCatchAllValueSet(a.catchAllValueSet)
	}
	return clone, mapping
}

// Check 内部属性的部分结构
func (ia *InnerAttributes) Check() error {
	var err error
	for _, a := range ia.attributes {
		err = multierr.Append(err, a.Check())
		for _, p := range a.parts {
			if p.frequency <= 0 {
				err = multierr.Append(err, fmt.Errorf("inner attribute %s: empty part %s", a.Name, p.Label()))
			}
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrAttributes, err)
	}
	return nil
}
