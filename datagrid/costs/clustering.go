package costs

import (
	"math"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/stat"
)

// ClusteringCosts 无监督协同聚类
type ClusteringCosts struct {
	baseCosts
}

func NewClusteringCosts() *ClusteringCosts {
	return &ClusteringCosts{}
}

func (c *ClusteringCosts) Clone() DataGridCosts {
	clone := *c
	return &clone
}

func (c *ClusteringCosts) Label() string {
	return "Data grid clustering costs"
}

func (c *ClusteringCosts) ComputeDataGridCost(grid GridParams) float64 {
	cost := math.Log(2.0)
	cost += c.selectionCost(grid.InformativeAttributeNumber)
	cost += cellDistributionCost(grid)
	return cost
}

func (c *ClusteringCosts) ComputeAttributeCost(attribute AttributeParams, partitionSize int) float64 {
	// 无监督时粒度没有意义，用初始值个数
	partileNumber := attribute.InitialValueNumber
	checkPartitionSize(attribute, partitionSize, partileNumber)
	if partitionSize == 1 {
		return 0
	}
	cost := attribute.Cost
	if attribute.Type == common.Continuous {
		cost += continuousCountCost(partitionSize, partileNumber)
	} else {
		cost += symbolStructureCost(partitionSize, partileNumber, attribute.GarbageModalityNumber)
	}
	return cost
}

// ComputePartCost 连续属性为实例排序代价，离散属性为值的分布代价
// 每个值的LnFactorial与网格无关，放在值代价中
func (c *ClusteringCosts) ComputePartCost(part PartParams) float64 {
	if part.AttributeType == common.Continuous {
		return stat.LnFactorial(part.Frequency)
	}
	if part.Frequency <= 0 {
		return 0
	}
	return stat.LnFactorial(part.Frequency+part.ValueNumber-1) - stat.LnFactorial(part.ValueNumber-1)
}

func (c *ClusteringCosts) ComputePartUnionCost(part1, part2 PartParams) float64 {
	return c.ComputePartCost(unionPart(part1, part2))
}

func (c *ClusteringCosts) ComputeCellCost(cell CellParams) float64 {
	return -stat.LnFactorial(cell.Frequency)
}

func (c *ClusteringCosts) ComputeValueCost(valueFrequency int) float64 {
	return -stat.LnFactorial(valueFrequency)
}

func (c *ClusteringCosts) ComputeDataGridModelCost(grid GridParams) float64 {
	return c.ComputeDataGridCost(grid) - stat.LnFactorial(grid.GridFrequency)
}

func (c *ClusteringCosts) ComputeAttributeModelCost(attribute AttributeParams, partitionSize int) float64 {
	return c.ComputeAttributeCost(attribute, partitionSize)
}

func (c *ClusteringCosts) ComputePartModelCost(part PartParams) float64 {
	if part.AttributeType != common.Symbol || part.Frequency <= 0 {
		return 0
	}
	return valueDistributionCost(part.Frequency, part.ValueNumber)
}

func (c *ClusteringCosts) ComputeDataGridConstructionCost(grid GridParams) float64 {
	return math.Log(2.0) + c.selectionCost(grid.InformativeAttributeNumber)
}

// VarPartClusteringCosts 实例 × 变量的协同聚类，VarPart属性的代价包含其内部属性的划分代价
type VarPartClusteringCosts struct {
	ClusteringCosts
	VarPartAttributeGarbage bool // VarPart属性是否按带垃圾组的值分组编码
	InnerAttributeGarbage   bool // 内部离散属性是否考虑垃圾组
}

func NewVarPartClusteringCosts() *VarPartClusteringCosts {
	return &VarPartClusteringCosts{}
}

func (c *VarPartClusteringCosts) Clone() DataGridCosts {
	clone := *c
	return &clone
}

func (c *VarPartClusteringCosts) Label() string {
	return "VarPart data grid clustering costs"
}

// ComputeDataGridCost 没有变量选择代价
func (c *VarPartClusteringCosts) ComputeDataGridCost(grid GridParams) float64 {
	return math.Log(2.0) + cellDistributionCost(grid)
}

func (c *VarPartClusteringCosts) ComputeAttributeCost(attribute AttributeParams, partitionSize int) float64 {
	partileNumber := attribute.InitialValueNumber
	checkPartitionSize(attribute, partitionSize, partileNumber)

	cost := 0.0
	if partitionSize > 1 {
		cost = attribute.Cost
		switch {
		case attribute.Type == common.Continuous:
			cost += continuousCountCost(partitionSize, partileNumber)
		case attribute.Type == common.Symbol || c.VarPartAttributeGarbage:
			cost += symbolStructureCost(partitionSize, partileNumber, attribute.GarbageModalityNumber)
		default:
			cost += stat.BoundedNaturalNumbersUniversalCodeLength(partitionSize-1, partileNumber-1)
			cost += stat.LnBell(partileNumber, partitionSize)
		}
	}

	// 内部属性的代价，不属于零模型的内部属性都要计入
	if attribute.Type == common.VarPart {
		for _, inner := range attribute.InnerAttributes {
			if inner.PartNumber() > 1 || partitionSize > 1 {
				cost += c.innerAttributeCumulativeCost(inner)
			}
		}
	}
	return cost
}

func (c *VarPartClusteringCosts) innerAttributeCumulativeCost(inner InnerAttributeParams) float64 {
	cost := c.ComputeInnerAttributeCost(inner.AttributeParams, inner.PartNumber())
	for _, part := range inner.Parts {
		cost += c.ComputeInnerAttributePartCost(part)
	}
	return cost
}

// ComputeInnerAttributeCost 内部属性的划分可以只有一个部分
func (c *VarPartClusteringCosts) ComputeInnerAttributeCost(attribute AttributeParams, partitionSize int) float64 {
	partileNumber := attribute.InitialValueNumber
	if partileNumber <= 0 {
		panic("ComputeInnerAttributeCost: inner attribute without values " + attribute.Name)
	}
	if attribute.Type == common.Continuous {
		return stat.BoundedNaturalNumbersUniversalCodeLength(partitionSize, partileNumber)
	}
	garbageModalityNumber := 0
	cost := 0.0
	if c.InnerAttributeGarbage {
		garbageModalityNumber = attribute.GarbageModalityNumber
		if partileNumber > common.MinModalityNumberForGarbage {
			cost += math.Log(2.0)
		}
	}
	if garbageModalityNumber > 0 {
		informativeNumber := partileNumber - garbageModalityNumber
		cost += stat.BoundedNaturalNumbersUniversalCodeLength(informativeNumber, partileNumber-1)
		cost += float64(informativeNumber)*math.Log(float64(partileNumber)) - stat.LnFactorial(informativeNumber)
		cost += stat.BoundedNaturalNumbersUniversalCodeLength(partitionSize-1, informativeNumber)
		cost += stat.LnBell(informativeNumber, partitionSize-1)
	} else {
		cost += stat.BoundedNaturalNumbersUniversalCodeLength(partitionSize, partileNumber)
		cost += stat.LnBell(partileNumber, partitionSize)
	}
	return cost
}

func (c *VarPartClusteringCosts) ComputeInnerAttributePartCost(part PartParams) float64 {
	if part.AttributeType != common.Symbol {
		return 0
	}
	return valueDistributionCost(part.Frequency, part.ValueNumber)
}

// ComputePartCost VarPart部分的值个数是其包含的变量部分数
func (c *VarPartClusteringCosts) ComputePartCost(part PartParams) float64 {
	return c.ClusteringCosts.ComputePartCost(part)
}

func (c *VarPartClusteringCosts) ComputePartUnionCost(part1, part2 PartParams) float64 {
	return c.ComputePartCost(unionPart(part1, part2))
}

func (c *VarPartClusteringCosts) ComputeDataGridModelCost(grid GridParams) float64 {
	return c.ComputeDataGridCost(grid) - stat.LnFactorial(grid.GridFrequency)
}

func (c *VarPartClusteringCosts) ComputeAttributeModelCost(attribute AttributeParams, partitionSize int) float64 {
	return c.ComputeAttributeCost(attribute, partitionSize)
}

func (c *VarPartClusteringCosts) ComputeDataGridConstructionCost(grid GridParams) float64 {
	cost := math.Log(2.0)
	if grid.InformativeAttributeNumber > 0 {
		cost += stat.NaturalNumbersUniversalCodeLength(grid.InformativeAttributeNumber)
		cost -= stat.LnFactorial(grid.InformativeAttributeNumber)
	}
	return cost
}
