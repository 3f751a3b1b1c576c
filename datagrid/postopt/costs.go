package postopt

import (
	"fmt"
	"math"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/costs"
	"modl-grid/datagrid/grid"
	"modl-grid/datagrid/util/add"
)

// UnivariateCosts 只有一个属性可变时网格的总代价
// ComputePartitionCost(k) + Σ ComputePartCost(部分) 等于该属性有k个部分时网格的总代价，
// 其它属性的贡献在初始化时计算一次
type UnivariateCosts struct {
	costs     costs.DataGridCosts
	evaluator *grid.CostEvaluator
	grid      *grid.DataGrid

	attribute           costs.AttributeParams
	targetPartitionSize int
	gridParams          costs.GridParams // 不含待优化属性
	informativeNumber   int              // 其它属性中的信息属性个数
	lnOtherGridSize     float64

	excludedConstantCost   float64
	otherParts             []costs.PartParams // 待优化属性是目标属性时，其它属性的部分
	targetPartitionedCosts map[int]float64
}

// NewUnivariateCosts univariate中除attributeName外的属性保持不变
func NewUnivariateCosts(evaluator *grid.CostEvaluator, univariate *grid.DataGrid, attributeName string) *UnivariateCosts {
	attribute := univariate.SearchAttribute(attributeName)
	if attribute == nil {
		panic("NewUnivariateCosts: unknown attribute " + attributeName)
	}
	c := &UnivariateCosts{
		costs:                  evaluator.Costs(),
		evaluator:              evaluator,
		grid:                   univariate,
		attribute:              attribute.CostParams(),
		targetPartitionSize:    1,
		targetPartitionedCosts: make(map[int]float64),
	}
	c.attribute.GarbageModalityNumber = 0
	if !attribute.TargetFunction {
		if target := univariate.TargetAttribute(); target != nil {
			c.targetPartitionSize = target.PartNumber()
		}
	}
	c.gridParams = costs.GridParams{
		GridFrequency:   univariate.GridFrequency(),
		Granularity:     univariate.Granularity(),
		AttributeNumber: univariate.AttributeNumber(),
	}

	excluded := add.NewFloatAdder()
	for _, other := range univariate.Attributes() {
		if other == attribute {
			continue
		}
		c.lnOtherGridSize += math.Log(float64(other.PartNumber()))
		if other.IsInformative() {
			c.informativeNumber++
		}
		excluded.Add(c.costs.ComputeAttributeCost(other.CostParams(), other.PartNumber()))
		for _, p := range other.Parts() {
			if attribute.TargetFunction {
				c.otherParts = append(c.otherParts, p.CostParams())
			} else {
				excluded.Add(c.costs.ComputePartCost(p.CostParams()))
			}
		}
	}
	excluded.Add(evaluator.AllValuesDefaultCost())
	if !attribute.TargetFunction {
		excluded.Add(evaluator.ComputeMissingAttributeCost(univariate))
	}
	c.excludedConstantCost = excluded.Result()
	return c
}

func (c *UnivariateCosts) AttributeName() string {
	return (*c).attribute.Name
}

func (c *UnivariateCosts) ExcludedConstantCost() float64 {
	return (*c).excludedConstantCost
}

// ComputePartitionCost 网格代价加上待优化属性的代价和其它属性的固定代价
func (c *UnivariateCosts) ComputePartitionCost(partNumber, garbageModalityNumber int) float64 {
	if partNumber < 1 {
		panic(fmt.Sprintf("ComputePartitionCost: %d parts", partNumber))
	}
	params := c.gridParams
	params.LnGridSize = c.lnOtherGridSize + math.Log(float64(partNumber))
	params.InformativeAttributeNumber = c.informativeNumber
	if partNumber > 1 {
		params.InformativeAttributeNumber++
	}
	attribute := c.attribute
	attribute.GarbageModalityNumber = garbageModalityNumber

	cost := c.costs.ComputeDataGridCost(params)
	cost += c.costs.ComputeAttributeCost(attribute, partNumber)
	cost += c.excludedConstantCost
	if c.attribute.TargetFunction {
		cost += c.targetPartitionedCost(partNumber)
	}
	return cost
}

// ComputePartitionDeltaCost 减少一个部分时划分代价的变化
func (c *UnivariateCosts) ComputePartitionDeltaCost(partNumber, garbageModalityNumber int) float64 {
	return c.ComputePartitionCost(partNumber-1, garbageModalityNumber) - c.ComputePartitionCost(partNumber, garbageModalityNumber)
}

// targetPartitionedCost 目标属性有partNumber个部分时其它属性的部分代价与缺失属性的代价
func (c *UnivariateCosts) targetPartitionedCost(partNumber int) float64 {
	if cost, ok := c.targetPartitionedCosts[partNumber]; ok {
		return cost
	}
	adder := add.NewFloatAdder()
	for _, part := range c.otherParts {
		part.TargetPartitionSize = partNumber
		adder.Add(c.costs.ComputePartCost(part))
	}
	adder.Add(c.evaluator.ComputeMissingAttributeCostWithTargetPartNumber(c.grid, partNumber))
	c.targetPartitionedCosts[partNumber] = adder.Result()
	return adder.Result()
}

// ComputePartCost 部分代价加上其哈希单元格的代价，结果缓存在部分中
func (c *UnivariateCosts) ComputePartCost(part *PartFrequencyVector) float64 {
	if part.costValid {
		return part.cost
	}
	valueNumber := 1
	if c.attribute.Type == common.Symbol {
		valueNumber = part.modalities
	}
	partCost := c.costs.ComputePartCost(costs.PartParams{
		AttributeType:       c.attribute.Type,
		TargetFunction:      c.attribute.TargetFunction,
		Frequency:           part.frequency,
		ValueNumber:         valueNumber,
		TargetPartitionSize: c.targetPartitionSize,
	})
	cellCosts := make([]float64, 0, len(part.cells)+1)
	cellCosts = append(cellCosts, partCost)
	for _, cell := range part.cells {
		cellCosts = append(cellCosts, c.ComputeCellCost(cell))
	}
	part.cost = add.SortedSum(cellCosts)
	part.costValid = true
	return part.cost
}

func (c *UnivariateCosts) ComputeCellCost(cell *CellFrequencyVector) float64 {
	return c.costs.ComputeCellCost(cell.CostParams())
}

// ComputePartitionGlobalCost 整个划分对应的网格总代价
func (c *UnivariateCosts) ComputePartitionGlobalCost(parts []*PartFrequencyVector, garbageModalityNumber int) float64 {
	cost := c.ComputePartitionCost(len(parts), garbageModalityNumber)
	for _, part := range parts {
		cost += c.ComputePartCost(part)
	}
	return cost
}

// improves 代价严格下降，按相对误差比较
func improves(cost, bestCost float64) bool {
	return cost < bestCost-common.Epsilon*math.Abs(bestCost)
}
