package grid

import (
	"fmt"
	"math"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/costs"
)

// defaultAttribute 终端网格中一个属性（单个部分）的默认代价
type defaultAttribute struct {
	name      string
	attribute costs.AttributeParams
	part      costs.PartParams
	cost      float64 // 属性代价 + 唯一部分的代价，目标属性只有一个部分时
}

// CostEvaluator 网格总代价：累计代价 + 所有值的默认代价 + 网格中缺失属性的默认代价
// 默认代价来自初始网格的终端网格（每个属性一个部分）
type CostEvaluator struct {
	costs costs.DataGridCosts

	defaults             []defaultAttribute
	defaultTargetName    string
	allValuesDefaultCost float64
	totalDefaultCost     float64
	initialized          bool
}

func NewCostEvaluator(dataGridCosts costs.DataGridCosts) *CostEvaluator {
	return &CostEvaluator{costs: dataGridCosts}
}

func (e *CostEvaluator) Costs() costs.DataGridCosts {
	return (*e).costs
}

func (e *CostEvaluator) IsInitialized() bool {
	return (*e).initialized
}

// InitializeDefaultCosts 根据初始网格计算默认代价
func (e *CostEvaluator) InitializeDefaultCosts(initial *DataGrid) {
	e.defaults = e.defaults[:0]
	e.defaultTargetName = ""

	// 终端网格：每个属性一个部分，所有个体在一个单元格中
	terminal := costs.GridParams{
		GridFrequency:   initial.GridFrequency(),
		Granularity:     initial.Granularity(),
		AttributeNumber: initial.AttributeNumber(),
	}
	total := e.costs.ComputeDataGridCost(terminal)
	for _, a := range initial.attributes {
		params := a.CostParams()
		params.GarbageModalityNumber = 0
		if a.Type == common.VarPart {
			// 终端网格中内部属性也只有一个部分
			for i := range params.InnerAttributes {
				inner := &params.InnerAttributes[i]
				inner.GarbageModalityNumber = 0
				inner.Parts = []costs.PartParams{terminalPart(inner.AttributeParams, inner.Parts)}
			}
		}
		part := costs.PartParams{
			AttributeType:       a.Type,
			TargetFunction:      a.TargetFunction,
			Frequency:           initial.GridFrequency(),
			ValueNumber:         terminalValueNumber(a),
			TargetPartitionSize: 1,
		}
		d := defaultAttribute{name: a.Name, attribute: params, part: part}
		d.cost = e.costs.ComputeAttributeCost(params, 1) + e.costs.ComputePartCost(part)
		e.defaults = append(e.defaults, d)
		if a.TargetFunction {
			e.defaultTargetName = a.Name
		}
		total += d.cost
	}

	// 终端网格的唯一单元格
	cell := costs.CellParams{Frequency: initial.GridFrequency()}
	if initial.TargetValueNumber() > 0 {
		cell.TargetFrequencies = make([]int, initial.TargetValueNumber())
		for _, c := range initial.cells {
			for i, f := range c.targetFrequencies {
				cell.TargetFrequencies[i] += f
			}
		}
	}
	if initial.GridFrequency() > 0 {
		total += e.costs.ComputeCellCost(cell)
	}

	e.allValuesDefaultCost = e.computeAllValuesCost(initial)
	total += e.allValuesDefaultCost
	e.totalDefaultCost = total
	e.initialized = true
}

func terminalPart(attribute costs.AttributeParams, parts []costs.PartParams) costs.PartParams {
	frequency := 0
	valueNumber := 0
	for _, p := range parts {
		frequency += p.Frequency
		valueNumber += p.ValueNumber
	}
	return costs.PartParams{AttributeType: attribute.Type, Frequency: frequency, ValueNumber: valueNumber, TargetPartitionSize: 1}
}

// terminalValueNumber 唯一部分包含所有的值（或所有的变量部分）
func terminalValueNumber(a *Attribute) int {
	n := 0
	for _, p := range a.parts {
		n += p.ValueNumber()
	}
	if n == 0 {
		n = 1
	}
	return n
}

// computeAllValuesCost 离散属性（包括VarPart的离散内部属性）所有值的代价
func (e *CostEvaluator) computeAllValuesCost(g *DataGrid) float64 {
	cost := 0.0
	addValues := func(a *Attribute) {
		for _, p := range a.parts {
			for _, v := range p.ValueSet.Values {
				cost += e.costs.ComputeValueCost(v.Frequency)
			}
		}
		if a.catchAllValueSet != nil {
			for _, v := range a.catchAllValueSet.Values {
				cost += e.costs.ComputeValueCost(v.Frequency)
			}
		}
	}
	for _, a := range g.attributes {
		switch a.Type {
		case common.Symbol:
			addValues(a)
		case common.VarPart:
			if g.innerAttributes == nil {
				continue
			}
			for _, name := range a.InnerAttributeNames {
				if inner := g.innerAttributes.Lookup(name); inner != nil && inner.Type == common.Symbol {
					addValues(inner)
				}
			}
		}
	}
	return cost
}

func (e *CostEvaluator) TotalDefaultCost() float64 {
	e.mustBeInitialized()
	return (*e).totalDefaultCost
}

func (e *CostEvaluator) AllValuesDefaultCost() float64 {
	e.mustBeInitialized()
	return (*e).allValuesDefaultCost
}

func (e *CostEvaluator) TotalAttributeNumber() int {
	return len(e.defaults)
}

func (e *CostEvaluator) AttributeNameAt(i int) string {
	return e.defaults[i].name
}

// AttributeDefaultCostAt 终端网格中属性及其唯一部分的代价
func (e *CostEvaluator) AttributeDefaultCostAt(i int) float64 {
	e.mustBeInitialized()
	return e.defaults[i].cost
}

func (e *CostEvaluator) mustBeInitialized() {
	if !e.initialized {
		panic("CostEvaluator: default costs not initialized")
	}
}

// CheckDataGrid 网格的属性必须按默认代价中的顺序出现
func (e *CostEvaluator) CheckDataGrid(g *DataGrid) error {
	if !e.initialized {
		return fmt.Errorf("default data grid costs not initialized")
	}
	next := 0
	for _, a := range g.attributes {
		found := false
		for next < len(e.defaults) {
			next++
			if e.defaults[next-1].name == a.Name {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("variable %s not found in default data grid", a.Name)
		}
	}
	return nil
}

// ComputeDataGridTotalCost 网格总代价
func (e *CostEvaluator) ComputeDataGridTotalCost(g *DataGrid) float64 {
	e.mustBeInitialized()
	return e.ComputeDataGridCumulativeCost(g) + e.allValuesDefaultCost + e.ComputeMissingAttributeCost(g)
}

// ComputeDataGridCompressionCoefficient 相对默认代价的压缩率，不小于0
func (e *CostEvaluator) ComputeDataGridCompressionCoefficient(g *DataGrid) float64 {
	if e.TotalDefaultCost() == 0 {
		return 0
	}
	level := 1 - e.ComputeDataGridTotalCost(g)/e.totalDefaultCost
	return math.Max(level, 0)
}

// ComputeMissingAttributeCost 网格中缺失的属性按终端网格计价
// 目标属性有多个部分时，缺失的源属性的部分代价按目标划分的大小重新计算
func (e *CostEvaluator) ComputeMissingAttributeCost(g *DataGrid) float64 {
	targetPartNumber := 1
	if target := g.TargetAttribute(); target != nil && e.defaultTargetName != "" {
		targetPartNumber = target.PartNumber()
	}
	return e.ComputeMissingAttributeCostWithTargetPartNumber(g, targetPartNumber)
}

// ComputeMissingAttributeCostWithTargetPartNumber 假定目标属性有targetPartNumber个部分
func (e *CostEvaluator) ComputeMissingAttributeCostWithTargetPartNumber(g *DataGrid, targetPartNumber int) float64 {
	cost := 0.0
	for _, d := range e.defaults {
		if g.SearchAttribute(d.name) != nil {
			continue
		}
		if targetPartNumber <= 1 {
			cost += d.cost
			continue
		}
		part := d.part
		if !part.TargetFunction {
			part.TargetPartitionSize = targetPartNumber
		}
		cost += e.costs.ComputeAttributeCost(d.attribute, 1) + e.costs.ComputePartCost(part)
	}
	return cost
}

// ComputeDataGridCumulativeCost 网格、属性、部分、单元格代价之和
func (e *CostEvaluator) ComputeDataGridCumulativeCost(g *DataGrid) float64 {
	cost := e.costs.ComputeDataGridCost(g.CostParams())
	for _, a := range g.attributes {
		cost += e.ComputeAttributeCumulativeCost(a)
	}
	for _, c := range g.cells {
		cost += e.costs.ComputeCellCost(c.CostParams())
	}
	return cost
}

// ComputeAttributeCumulativeCost 属性代价加上其部分的代价（不含单元格）
func (e *CostEvaluator) ComputeAttributeCumulativeCost(a *Attribute) float64 {
	cost := e.costs.ComputeAttributeCost(a.CostParams(), a.PartNumber())
	for _, p := range a.parts {
		cost += e.costs.ComputePartCost(p.CostParams())
	}
	return cost
}

// ComputePartCumulativeCost 部分代价加上其单元格的代价
func (e *CostEvaluator) ComputePartCumulativeCost(p *Part) float64 {
	cost := e.costs.ComputePartCost(p.CostParams())
	for _, c := range p.cells {
		cost += e.costs.ComputeCellCost(c.CostParams())
	}
	return cost
}

// ComputeDataGridTotalModelCost 模型部分的代价（去掉数据编码项）
func (e *CostEvaluator) ComputeDataGridTotalModelCost(g *DataGrid) float64 {
	cost := e.costs.ComputeDataGridModelCost(g.CostParams())
	for _, a := range g.attributes {
		cost += e.costs.ComputeAttributeModelCost(a.CostParams(), a.PartNumber())
		for _, p := range a.parts {
			cost += e.costs.ComputePartModelCost(p.CostParams())
		}
	}
	for _, c := range g.cells {
		cost += e.costs.ComputeCellModelCost(c.CostParams())
	}
	return cost
}

// ComputeDataGridTotalConstructionCost 网格与属性的构造代价
func (e *CostEvaluator) ComputeDataGridTotalConstructionCost(g *DataGrid) float64 {
	cost := e.costs.ComputeDataGridConstructionCost(g.CostParams())
	for _, a := range g.attributes {
		cost += e.costs.ComputeAttributeConstructionCost(a.CostParams(), a.PartNumber())
	}
	return cost
}
