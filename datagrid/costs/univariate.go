package costs

import (
	"fmt"
	"math"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/stat"
)

// FrequencyVector 一个部分的频数向量
type FrequencyVector interface {
	TotalFrequency() int
	ModalityNumber() int // 部分包含的初始值（模态）个数
}

// DenseFrequencyVector 按目标值计数的稠密向量
type DenseFrequencyVector struct {
	Frequencies []int
	Modalities  int
}

func NewDenseFrequencyVector(classValueNumber int) *DenseFrequencyVector {
	return &DenseFrequencyVector{Frequencies: make([]int, classValueNumber), Modalities: 1}
}

func (v *DenseFrequencyVector) TotalFrequency() int {
	total := 0
	for _, f := range (*v).Frequencies {
		total += f
	}
	return total
}

func (v *DenseFrequencyVector) ModalityNumber() int {
	return (*v).Modalities
}

// Add 累加另一个向量
func (v *DenseFrequencyVector) Add(other *DenseFrequencyVector) {
	for i, f := range other.Frequencies {
		(*v).Frequencies[i] += f
	}
	(*v).Modalities += other.Modalities
}

// Remove 减去另一个向量
func (v *DenseFrequencyVector) Remove(other *DenseFrequencyVector) {
	for i, f := range other.Frequencies {
		(*v).Frequencies[i] -= f
	}
	(*v).Modalities -= other.Modalities
}

func (v *DenseFrequencyVector) Clone() *DenseFrequencyVector {
	clone := &DenseFrequencyVector{Frequencies: make([]int, len(v.Frequencies)), Modalities: v.Modalities}
	copy(clone.Frequencies, v.Frequencies)
	return clone
}

// FrequencyTable 单变量划分的频数表，每行一个部分
type FrequencyTable struct {
	Vectors               []FrequencyVector
	Granularity           int
	GarbageModalityNumber int // 垃圾组的模态数，0表示无垃圾组
}

func (t *FrequencyTable) TotalFrequency() int {
	total := 0
	for _, v := range t.Vectors {
		total += v.TotalFrequency()
	}
	return total
}

func (t *FrequencyTable) TotalModalityNumber() int {
	total := 0
	for _, v := range t.Vectors {
		total += v.ModalityNumber()
	}
	return total
}

// PartitionParams 单变量划分代价的公共参数
type PartitionParams struct {
	ValueNumber         int     // 可划分的值个数
	ClassValueNumber    int     // 目标值个数
	AttributeCost       float64 // 属性选择代价
	Granularity         int
	TotalInstanceNumber int
}

// PartitionCosts 单变量划分代价
// 约定 ComputePartitionGlobalCost(T) == ComputePartitionCost(|T|, g) + Σ ComputePartCost(T[i])
type PartitionCosts interface {
	ComputePartitionCost(partNumber, garbageModalityNumber int) float64
	ComputePartitionDeltaCost(partNumber, garbageModalityNumber int) float64
	ComputePartCost(part FrequencyVector) float64
	ComputePartitionGlobalCost(table *FrequencyTable) float64
	ComputePartitionModelCost(partNumber, garbageModalityNumber int) float64
	ComputePartModelCost(part FrequencyVector) float64
	ComputePartitionConstructionCost(partNumber int) float64
	Params() PartitionParams
	Label() string
}

func partitionGlobalCost(costs PartitionCosts, table *FrequencyTable) float64 {
	cost := costs.ComputePartitionCost(len(table.Vectors), table.GarbageModalityNumber)
	for _, v := range table.Vectors {
		cost += costs.ComputePartCost(v)
	}
	return cost
}

// PartitionGlobalModelCost 划分的模型代价加上各部分的模型代价
func PartitionGlobalModelCost(costs PartitionCosts, table *FrequencyTable) float64 {
	cost := costs.ComputePartitionModelCost(len(table.Vectors), table.GarbageModalityNumber)
	for _, v := range table.Vectors {
		cost += costs.ComputePartModelCost(v)
	}
	return cost
}

// PartitionGlobalConstructionCost 构造代价，部分本身没有构造代价
func PartitionGlobalConstructionCost(costs PartitionCosts, table *FrequencyTable) float64 {
	partNumber := len(table.Vectors)
	if table.GarbageModalityNumber > 0 {
		partNumber--
	}
	return costs.ComputePartitionConstructionCost(partNumber)
}

// PartitionGlobalPreparationCost 模型代价减去构造代价，截断到0
func PartitionGlobalPreparationCost(costs PartitionCosts, table *FrequencyTable) float64 {
	cost := PartitionGlobalModelCost(costs, table) - PartitionGlobalConstructionCost(costs, table)
	if cost < 0 {
		cost = 0
	}
	return cost
}

// PartitionGlobalDataCost 总代价减去模型代价，截断到0
func PartitionGlobalDataCost(costs PartitionCosts, table *FrequencyTable) float64 {
	cost := costs.ComputePartitionGlobalCost(table) - PartitionGlobalModelCost(costs, table)
	if cost < common.CostEpsilon {
		cost = 0
	}
	return cost
}

// multinomialPartCost 部分内目标值分布的多项式编码代价
func multinomialPartCost(part FrequencyVector, classValueNumber int) float64 {
	dense, ok := part.(*DenseFrequencyVector)
	if !ok {
		panic(fmt.Sprintf("multinomialPartCost: dense frequency vector expected, got %T", part))
	}
	cost := 0.0
	total := 0
	for _, f := range dense.Frequencies {
		cost -= stat.LnFactorial(f)
		total += f
	}
	cost += stat.LnFactorial(total+classValueNumber-1) - stat.LnFactorial(classValueNumber-1)
	return cost
}

func multinomialPartModelCost(part FrequencyVector, classValueNumber int) float64 {
	total := part.TotalFrequency()
	return stat.LnFactorial(total+classValueNumber-1) - stat.LnFactorial(classValueNumber-1) - stat.LnFactorial(total)
}

// DiscretizationCosts MODL离散化代价，区间边界的选择按多项式编码
type DiscretizationCosts struct {
	PartitionParams
}

func NewDiscretizationCosts(params PartitionParams) *DiscretizationCosts {
	return &DiscretizationCosts{PartitionParams: params}
}

func (c *DiscretizationCosts) ComputePartitionCost(partNumber, garbageModalityNumber int) float64 {
	if garbageModalityNumber != 0 {
		panic("DiscretizationCosts: garbage is not allowed for intervals")
	}
	if partNumber < 1 || partNumber > c.ValueNumber {
		panic(fmt.Sprintf("DiscretizationCosts: part number %d out of [1, %d]", partNumber, c.ValueNumber))
	}
	cost := math.Log(2.0)
	if partNumber > 1 && c.ValueNumber > 1 {
		cost += c.AttributeCost
		cost += stat.BoundedNaturalNumbersUniversalCodeLength(c.Granularity, GranularityMax(c.TotalInstanceNumber))
		cost += stat.BoundedNaturalNumbersUniversalCodeLength(partNumber-1, c.ValueNumber-1)
		cost += float64(partNumber-1) * math.Log(float64(c.ValueNumber-1))
		cost -= stat.LnFactorial(partNumber - 1)
	}
	return cost
}

func (c *DiscretizationCosts) ComputePartitionDeltaCost(partNumber, garbageModalityNumber int) float64 {
	if partNumber <= 2 {
		return c.ComputePartitionCost(partNumber-1, garbageModalityNumber) -
			c.ComputePartitionCost(partNumber, garbageModalityNumber)
	}
	delta := stat.BoundedNaturalNumbersUniversalCodeLength(partNumber-2, c.ValueNumber-1) -
		stat.BoundedNaturalNumbersUniversalCodeLength(partNumber-1, c.ValueNumber-1)
	delta += math.Log(float64(partNumber-1)) - math.Log(float64(c.ValueNumber-1))
	return delta
}

func (c *DiscretizationCosts) ComputePartCost(part FrequencyVector) float64 {
	return multinomialPartCost(part, c.ClassValueNumber)
}

func (c *DiscretizationCosts) ComputePartitionGlobalCost(table *FrequencyTable) float64 {
	return partitionGlobalCost(c, table)
}

func (c *DiscretizationCosts) ComputePartitionModelCost(partNumber, garbageModalityNumber int) float64 {
	return c.ComputePartitionCost(partNumber, garbageModalityNumber)
}

func (c *DiscretizationCosts) ComputePartModelCost(part FrequencyVector) float64 {
	return multinomialPartModelCost(part, c.ClassValueNumber)
}

func (c *DiscretizationCosts) ComputePartitionConstructionCost(partNumber int) float64 {
	if partNumber > 1 {
		return math.Log(2.0) + c.AttributeCost
	}
	return math.Log(2.0)
}

func (c *DiscretizationCosts) Params() PartitionParams {
	return c.PartitionParams
}

func (c *DiscretizationCosts) Label() string {
	return "MODL discretization costs"
}

// GroupingCosts MODL值分组代价，可带一个垃圾组
type GroupingCosts struct {
	PartitionParams
}

func NewGroupingCosts(params PartitionParams) *GroupingCosts {
	return &GroupingCosts{PartitionParams: params}
}

// informative 去掉垃圾组之后的值个数和组数
func (c *GroupingCosts) informative(partNumber, garbageModalityNumber int) (int, int) {
	valueNumber := c.ValueNumber - garbageModalityNumber
	if garbageModalityNumber > 0 {
		return valueNumber, partNumber - 1
	}
	return valueNumber, partNumber
}

func (c *GroupingCosts) ComputePartitionCost(partNumber, garbageModalityNumber int) float64 {
	valueNumber, informativePartNumber := c.informative(partNumber, garbageModalityNumber)
	if garbageModalityNumber > 0 && informativePartNumber <= 1 {
		panic("GroupingCosts: a garbage group needs at least two informative groups")
	}
	if informativePartNumber < 1 || informativePartNumber > valueNumber {
		panic(fmt.Sprintf("GroupingCosts: informative part number %d out of [1, %d]", informativePartNumber, valueNumber))
	}
	cost := math.Log(2.0)
	if informativePartNumber > 1 && valueNumber > 1 {
		cost += c.AttributeCost
		if c.Granularity > 0 {
			cost += stat.BoundedNaturalNumbersUniversalCodeLength(c.Granularity, GranularityMax(c.TotalInstanceNumber))
		}
		if c.ValueNumber > common.MinModalityNumberForGarbage {
			cost += math.Log(2.0)
		}
		if garbageModalityNumber > 0 {
			// 非垃圾值的个数及其选择
			cost += stat.BoundedNaturalNumbersUniversalCodeLength(valueNumber-1, c.ValueNumber-2)
			cost += float64(valueNumber)*math.Log(float64(c.ValueNumber)) - stat.LnFactorial(valueNumber)
		}
		cost += stat.BoundedNaturalNumbersUniversalCodeLength(informativePartNumber-1, valueNumber-1)
		cost += stat.LnBell(valueNumber, informativePartNumber)
	}
	return cost
}

func (c *GroupingCosts) ComputePartitionDeltaCost(partNumber, garbageModalityNumber int) float64 {
	valueNumber, informativePartNumber := c.informative(partNumber, garbageModalityNumber)
	if informativePartNumber <= 2 {
		return c.ComputePartitionCost(partNumber-1, garbageModalityNumber) -
			c.ComputePartitionCost(partNumber, garbageModalityNumber)
	}
	delta := stat.BoundedNaturalNumbersUniversalCodeLength(informativePartNumber-2, valueNumber-1) -
		stat.BoundedNaturalNumbersUniversalCodeLength(informativePartNumber-1, valueNumber-1)
	delta += stat.LnBell(valueNumber, informativePartNumber-1) - stat.LnBell(valueNumber, informativePartNumber)
	return delta
}

func (c *GroupingCosts) ComputePartCost(part FrequencyVector) float64 {
	return multinomialPartCost(part, c.ClassValueNumber)
}

func (c *GroupingCosts) ComputePartitionGlobalCost(table *FrequencyTable) float64 {
	return partitionGlobalCost(c, table)
}

func (c *GroupingCosts) ComputePartitionModelCost(partNumber, garbageModalityNumber int) float64 {
	return c.ComputePartitionCost(partNumber, garbageModalityNumber)
}

func (c *GroupingCosts) ComputePartModelCost(part FrequencyVector) float64 {
	return multinomialPartModelCost(part, c.ClassValueNumber)
}

func (c *GroupingCosts) ComputePartitionConstructionCost(partNumber int) float64 {
	if partNumber > 1 {
		return math.Log(2.0) + c.AttributeCost
	}
	return math.Log(2.0)
}

func (c *GroupingCosts) Params() PartitionParams {
	return c.PartitionParams
}

func (c *GroupingCosts) Label() string {
	return "MODL grouping costs"
}

// NullPartitionCosts 划分代价为0，部分代价委托给内部代价
type NullPartitionCosts struct {
	Inner PartitionCosts
}

func NewNullPartitionCosts(inner PartitionCosts) *NullPartitionCosts {
	return &NullPartitionCosts{Inner: inner}
}

func (c *NullPartitionCosts) ComputePartitionCost(int, int) float64 {
	return 0
}

func (c *NullPartitionCosts) ComputePartitionDeltaCost(int, int) float64 {
	return 0
}

func (c *NullPartitionCosts) ComputePartCost(part FrequencyVector) float64 {
	if c.Inner == nil {
		return 0
	}
	return c.Inner.ComputePartCost(part)
}

func (c *NullPartitionCosts) ComputePartitionGlobalCost(table *FrequencyTable) float64 {
	return partitionGlobalCost(c, table)
}

func (c *NullPartitionCosts) ComputePartitionModelCost(int, int) float64 {
	return 0
}

func (c *NullPartitionCosts) ComputePartModelCost(part FrequencyVector) float64 {
	if c.Inner == nil {
		return 0
	}
	return c.Inner.ComputePartModelCost(part)
}

func (c *NullPartitionCosts) ComputePartitionConstructionCost(int) float64 {
	return 0
}

func (c *NullPartitionCosts) Params() PartitionParams {
	if c.Inner == nil {
		return PartitionParams{}
	}
	return c.Inner.Params()
}

func (c *NullPartitionCosts) Label() string {
	return "Null partition costs"
}
