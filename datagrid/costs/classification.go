package costs

import (
	"math"

	"modl-grid/datagrid/common"
)

// ClassificationCosts 监督分类：每个单元格编码其目标值分布
type ClassificationCosts struct {
	baseCosts
}

func NewClassificationCosts() *ClassificationCosts {
	return &ClassificationCosts{}
}

func (c *ClassificationCosts) Clone() DataGridCosts {
	clone := *c
	return &clone
}

func (c *ClassificationCosts) Label() string {
	return "Data grid classification costs"
}

func (c *ClassificationCosts) ComputeDataGridCost(grid GridParams) float64 {
	cost := math.Log(2.0)
	if grid.InformativeAttributeNumber > 0 {
		cost += c.selectionCost(grid.InformativeAttributeNumber)
		cost += granularityCost(grid)
	}
	return cost
}

func (c *ClassificationCosts) ComputeAttributeCost(attribute AttributeParams, partitionSize int) float64 {
	partileNumber := attribute.GranularizedValueNumber
	checkPartitionSize(attribute, partitionSize, partileNumber)
	if partitionSize == 1 {
		return 0
	}
	cost := attribute.Cost
	if attribute.Type == common.Continuous {
		cost += continuousCountCost(partitionSize, partileNumber)
		cost += cutPointsCost(partitionSize, partileNumber)
	} else {
		cost += symbolStructureCost(partitionSize, partileNumber, attribute.GarbageModalityNumber)
	}
	return cost
}

func (c *ClassificationCosts) ComputePartCost(PartParams) float64 {
	return 0
}

func (c *ClassificationCosts) ComputePartUnionCost(PartParams, PartParams) float64 {
	return 0
}

func (c *ClassificationCosts) ComputeCellCost(cell CellParams) float64 {
	if cell.TargetValueNumber() < 1 {
		panic("ClassificationCosts: cell without target values")
	}
	return multinomialCellCost(cell)
}

func (c *ClassificationCosts) ComputeDataGridModelCost(grid GridParams) float64 {
	return c.ComputeDataGridCost(grid)
}

func (c *ClassificationCosts) ComputeAttributeModelCost(attribute AttributeParams, partitionSize int) float64 {
	return c.ComputeAttributeCost(attribute, partitionSize)
}

func (c *ClassificationCosts) ComputeCellModelCost(cell CellParams) float64 {
	total := 0
	for _, f := range cell.TargetFrequencies {
		total += f
	}
	return valueDistributionCost(total, cell.TargetValueNumber())
}

// ComputeDataGridConstructionCost 总代价减去粒度选择代价
func (c *ClassificationCosts) ComputeDataGridConstructionCost(grid GridParams) float64 {
	cost := c.ComputeDataGridCost(grid)
	if grid.InformativeAttributeNumber > 0 {
		cost -= granularityCost(grid)
	}
	return cost
}
