package costs

import (
	"fmt"
	"math"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/stat"
)

// DataGridCosts 数据网格代价族
// 网格总代价 = 网格代价 + Σ属性代价 + Σ部分代价 + Σ单元格代价 (+ 值代价与缺失属性的默认代价)
type DataGridCosts interface {
	ComputeDataGridCost(grid GridParams) float64
	ComputeAttributeCost(attribute AttributeParams, partitionSize int) float64
	ComputePartCost(part PartParams) float64
	ComputePartUnionCost(part1, part2 PartParams) float64
	ComputeCellCost(cell CellParams) float64
	ComputeValueCost(valueFrequency int) float64
	ComputeInnerAttributeCost(attribute AttributeParams, partitionSize int) float64
	ComputeInnerAttributePartCost(part PartParams) float64
	ComputePartTargetDeltaCost(part PartParams) float64

	ComputeDataGridModelCost(grid GridParams) float64
	ComputeAttributeModelCost(attribute AttributeParams, partitionSize int) float64
	ComputePartModelCost(part PartParams) float64
	ComputeCellModelCost(cell CellParams) float64
	ComputeDataGridConstructionCost(grid GridParams) float64
	ComputeAttributeConstructionCost(attribute AttributeParams, partitionSize int) float64

	SetModelFamilySelectionCost(value float64)
	ModelFamilySelectionCost() float64
	Clone() DataGridCosts
	Label() string
}

// baseCosts 各代价族共有的状态，默认实现全部返回0
type baseCosts struct {
	modelFamilySelectionCost float64
}

func (c *baseCosts) SetModelFamilySelectionCost(value float64) {
	if value < 0 {
		panic("SetModelFamilySelectionCost: negative cost")
	}
	(*c).modelFamilySelectionCost = value
}

func (c *baseCosts) ModelFamilySelectionCost() float64 {
	return (*c).modelFamilySelectionCost
}

func (c *baseCosts) ComputeValueCost(int) float64                           { return 0 }
func (c *baseCosts) ComputeInnerAttributeCost(AttributeParams, int) float64 { return 0 }
func (c *baseCosts) ComputeInnerAttributePartCost(PartParams) float64       { return 0 }
func (c *baseCosts) ComputePartTargetDeltaCost(PartParams) float64          { return 0 }
func (c *baseCosts) ComputePartModelCost(PartParams) float64                { return 0 }
func (c *baseCosts) ComputeCellModelCost(CellParams) float64                { return 0 }

func (c *baseCosts) ComputeAttributeConstructionCost(attribute AttributeParams, partitionSize int) float64 {
	if partitionSize > 1 {
		return attribute.Cost
	}
	return 0
}

// selectionCost 选择信息属性子集的代价
func (c *baseCosts) selectionCost(informativeAttributeNumber int) float64 {
	if informativeAttributeNumber <= 0 {
		return 0
	}
	return c.modelFamilySelectionCost +
		stat.NaturalNumbersUniversalCodeLength(informativeAttributeNumber) -
		stat.LnFactorial(informativeAttributeNumber)
}

// granularityCost 粒度选择的代价，粒度为0时没有代价
func granularityCost(grid GridParams) float64 {
	if grid.Granularity <= 0 {
		return 0
	}
	return stat.BoundedNaturalNumbersUniversalCodeLength(grid.Granularity, GranularityMax(grid.GridFrequency))
}

// cellDistributionCost 个体在网格单元上的分布代价，网格太大时取近似
func cellDistributionCost(grid GridParams) float64 {
	gridSize := -1
	if grid.LnGridSize < math.Log(math.MaxInt32/2.0) {
		gridSize = int(math.Floor(math.Exp(grid.LnGridSize) + 0.5))
	}
	if gridSize > 0 {
		return stat.LnFactorial(grid.GridFrequency+gridSize-1) - stat.LnFactorial(gridSize-1)
	}
	return float64(grid.GridFrequency) * grid.LnGridSize
}

// continuousCountCost 区间数的编码
func continuousCountCost(partitionSize, partileNumber int) float64 {
	return stat.BoundedNaturalNumbersUniversalCodeLength(partitionSize-1, partileNumber-1)
}

// cutPointsCost 按多项式分布选择区间边界
func cutPointsCost(partitionSize, partileNumber int) float64 {
	return float64(partitionSize-1)*math.Log(float64(partileNumber-1)) - stat.LnFactorial(partitionSize-1)
}

// symbolStructureCost 值分组的结构代价，可带垃圾组
// 带垃圾组时划分至少包含两个信息组加一个垃圾组
func symbolStructureCost(partitionSize, partileNumber, garbageModalityNumber int) float64 {
	cost := 0.0
	if partileNumber > common.MinModalityNumberForGarbage {
		cost += math.Log(2.0)
	}
	if garbageModalityNumber > 0 {
		informativeNumber := partileNumber - garbageModalityNumber
		cost += stat.BoundedNaturalNumbersUniversalCodeLength(informativeNumber-1, partileNumber-2)
		cost += float64(informativeNumber)*math.Log(float64(partileNumber)) - stat.LnFactorial(informativeNumber)
		cost += stat.BoundedNaturalNumbersUniversalCodeLength(partitionSize-2, informativeNumber-1)
		cost += stat.LnBell(informativeNumber, partitionSize-1)
	} else {
		cost += stat.BoundedNaturalNumbersUniversalCodeLength(partitionSize-1, partileNumber-1)
		cost += stat.LnBell(partileNumber, partitionSize)
	}
	return cost
}

// valueDistributionCost 部分内各值的分布代价 log C(f+v-1, v-1)
func valueDistributionCost(frequency, valueNumber int) float64 {
	return stat.LnFactorial(frequency+valueNumber-1) - stat.LnFactorial(valueNumber-1) - stat.LnFactorial(frequency)
}

// multinomialCellCost 单元格内目标值分布的多项式代价
func multinomialCellCost(cell CellParams) float64 {
	cost := 0.0
	total := 0
	for _, f := range cell.TargetFrequencies {
		cost -= stat.LnFactorial(f)
		total += f
	}
	targetValueNumber := cell.TargetValueNumber()
	cost += stat.LnFactorial(total+targetValueNumber-1) - stat.LnFactorial(targetValueNumber-1)
	return cost
}

func checkPartitionSize(attribute AttributeParams, partitionSize, partileNumber int) {
	if partileNumber <= 0 || partitionSize < 1 || partitionSize > partileNumber {
		panic(fmt.Sprintf("ComputeAttributeCost: partition size %d out of [1, %d] for %s",
			partitionSize, partileNumber, attribute.Name))
	}
	if attribute.GarbageModalityNumber > 0 && partitionSize < 3 {
		panic(fmt.Sprintf("ComputeAttributeCost: garbage partition of %s needs at least three parts", attribute.Name))
	}
}
