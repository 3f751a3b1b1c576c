package costs

import (
	"math"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/stat"
)

// RegressionCosts 回归：目标属性按秩离散化，源属性部分的代价依赖目标划分的大小
// 只用于单变量，网格最多两个属性
type RegressionCosts struct {
	baseCosts
}

func NewRegressionCosts() *RegressionCosts {
	return &RegressionCosts{}
}

func (c *RegressionCosts) Clone() DataGridCosts {
	clone := *c
	return &clone
}

func (c *RegressionCosts) Label() string {
	return "Data grid regression costs"
}

func (c *RegressionCosts) ComputeDataGridCost(grid GridParams) float64 {
	if grid.AttributeNumber > 2 {
		panic("RegressionCosts: at most two attributes")
	}
	cost := math.Log(2.0)
	if grid.InformativeAttributeNumber > 0 {
		cost += c.modelFamilySelectionCost
		cost += granularityCost(grid)
	}
	return cost
}

func (c *RegressionCosts) ComputeAttributeCost(attribute AttributeParams, partitionSize int) float64 {
	partileNumber := attribute.GranularizedValueNumber
	checkPartitionSize(attribute, partitionSize, partileNumber)
	if partitionSize == 1 {
		return 0
	}
	cost := 0.0
	if !attribute.TargetFunction {
		cost += attribute.Cost
	}
	if attribute.Type == common.Continuous {
		cost += continuousCountCost(partitionSize, partileNumber)
		if !attribute.TargetFunction {
			cost += cutPointsCost(partitionSize, partileNumber)
		}
	} else {
		if attribute.TargetFunction {
			panic("RegressionCosts: symbolic target attribute")
		}
		cost += symbolStructureCost(partitionSize, partileNumber, attribute.GarbageModalityNumber)
	}
	return cost
}

func targetPartitionSize(part PartParams) int {
	if part.TargetPartitionSize < 1 {
		return 1
	}
	return part.TargetPartitionSize
}

func (c *RegressionCosts) ComputePartCost(part PartParams) float64 {
	if part.TargetFunction {
		return stat.LnFactorial(part.Frequency)
	}
	size := targetPartitionSize(part)
	return stat.LnFactorial(part.Frequency+size-1) - stat.LnFactorial(size-1)
}

func (c *RegressionCosts) ComputePartUnionCost(part1, part2 PartParams) float64 {
	return c.ComputePartCost(unionPart(part1, part2))
}

// ComputePartTargetDeltaCost 目标划分增加一个部分时源部分代价的变化量的相反数
func (c *RegressionCosts) ComputePartTargetDeltaCost(part PartParams) float64 {
	if part.TargetFunction {
		return 0
	}
	size := targetPartitionSize(part)
	if size < 2 {
		return 0
	}
	return math.Log(float64(size)-1.0) - math.Log(float64(part.Frequency+size)-1.0)
}

func (c *RegressionCosts) ComputeCellCost(cell CellParams) float64 {
	return -stat.LnFactorial(cell.Frequency)
}

func (c *RegressionCosts) ComputeDataGridModelCost(grid GridParams) float64 {
	return c.ComputeDataGridCost(grid)
}

func (c *RegressionCosts) ComputeAttributeModelCost(attribute AttributeParams, partitionSize int) float64 {
	return c.ComputeAttributeCost(attribute, partitionSize)
}

func (c *RegressionCosts) ComputePartModelCost(part PartParams) float64 {
	if part.TargetFunction {
		return 0
	}
	return valueDistributionCost(part.Frequency, targetPartitionSize(part))
}

func (c *RegressionCosts) ComputeDataGridConstructionCost(grid GridParams) float64 {
	cost := c.ComputeDataGridCost(grid)
	if grid.InformativeAttributeNumber > 0 {
		cost -= granularityCost(grid)
	}
	return cost
}

func (c *RegressionCosts) ComputeAttributeConstructionCost(attribute AttributeParams, partitionSize int) float64 {
	if partitionSize > 1 && !attribute.TargetFunction {
		return attribute.Cost
	}
	return 0
}
