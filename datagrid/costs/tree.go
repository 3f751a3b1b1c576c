package costs

import (
	"math"

	mapset "github.com/deckarep/golang-set"
	"golang.org/x/exp/slices"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/stat"
)

// TreeCriterion 决策树代价准则，固定的0-6七种
type TreeCriterion int

const (
	TreeCriterionRissanenValues TreeCriterion = iota // 按划分属性的值个数编码
	TreeCriterionRissanenParts                       // 部分数的通用编码
	TreeCriterionSquareParts                         // 2·log p + log(π²/6)
	TreeCriterionBinary                              // 固定log 2
	TreeCriterionTernary                             // 固定log 3
	TreeCriterionNumbersCode1                        // log2(c0) + log2*(p)
	TreeCriterionNumbersCode2                        // 2·log2(p) + 1
)

const (
	zeta2        = 1.644934066 // π²/6
	rissanenLeaf = 1.518535    // 叶子终止位的平均编码长度
)

// TreeSplit 内部节点的划分
type TreeSplit struct {
	AttributeName           string
	AttributeType           common.AttributeType
	AttributeCost           float64
	ValueNumber             int  // 划分属性在该节点上的值个数
	PartNumber              int  // 子节点个数
	Uninformative           bool // 划分网格只有一个属性
	Granularity             int
	InstanceNumber          int
	GranularizedValueNumber int
	GroupValueNumbers       [2]int // 二叉树离散属性两个组的值个数
}

// TreeLeaf 叶子节点的目标值计数
type TreeLeaf struct {
	TargetFrequencies []int
}

// TreeDescription 按节点计数描述的决策树
type TreeDescription struct {
	InternalNodes []TreeSplit
	Leaves        []TreeLeaf
}

// UsedAttributeNumber 内部节点用到的不同属性个数
func (t *TreeDescription) UsedAttributeNumber() int {
	used := mapset.NewSet()
	for _, split := range t.InternalNodes {
		used.Add(split.AttributeName)
	}
	return used.Cardinality()
}

// InstanceNumber 所有叶子的实例数之和
func (t *TreeDescription) InstanceNumber() int {
	total := 0
	for _, leaf := range t.Leaves {
		for _, f := range leaf.TargetFrequencies {
			total += f
		}
	}
	return total
}

// TreeCosts 决策树代价
type TreeCosts interface {
	ComputeTotalTreeCost(tree *TreeDescription) float64
	ComputeTreeConstructionCost(tree *TreeDescription) float64
	ComputeAttributeChoiceCost(usedAttributeNumber, internalNodeNumber int) float64
	ComputeInternalNodeCost(split TreeSplit) float64
	ComputeLeafCost(leaf TreeLeaf) float64
}

// leafMultinomialCost 叶子中目标值分布的多项式代价
func leafMultinomialCost(leaf TreeLeaf, classValueNumber int) float64 {
	if classValueNumber <= 0 {
		panic("leafMultinomialCost: no class value")
	}
	cost := 0.0
	total := 0
	for _, f := range leaf.TargetFrequencies {
		cost -= stat.LnFactorial(f)
		total += f
	}
	cost += stat.LnFactorial(total+classValueNumber-1) - stat.LnFactorial(classValueNumber-1)
	return cost
}

// treeAttributeChoiceCost 递归树和全局树共用的属性选择代价
func treeAttributeChoiceCost(totalAttributeNumber, usedAttributeNumber, internalNodeNumber int) float64 {
	if totalAttributeNumber <= 0 {
		panic("ComputeAttributeChoiceCost: no attribute")
	}
	cost := stat.LnFactorial(totalAttributeNumber + usedAttributeNumber - 1)
	cost += math.Log(2.0) * stat.NaturalNumbersUniversalCodeLength(usedAttributeNumber+1)
	if internalNodeNumber > 0 {
		cost -= stat.LnFactorial(usedAttributeNumber)
		cost += math.Log(float64(usedAttributeNumber)) * float64(internalNodeNumber)
	}
	return cost
}

// sortedSum 排序后累加，保证结果与节点顺序无关
func sortedSum(values []float64) float64 {
	slices.Sort(values)
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum
}

// DecisionTreeRecursiveCost 递归编码的决策树代价
type DecisionTreeRecursiveCost struct {
	Criterion            TreeCriterion
	TotalAttributeNumber int
	ClassValueNumber     int
}

func (c *DecisionTreeRecursiveCost) ComputeTotalTreeCost(tree *TreeDescription) float64 {
	if c.TotalAttributeNumber == 0 {
		return 0
	}
	cost := -stat.LnFactorial(c.TotalAttributeNumber - 1)
	cost += c.ComputeAttributeChoiceCost(tree.UsedAttributeNumber(), len(tree.InternalNodes))
	for _, split := range tree.InternalNodes {
		cost += c.ComputeInternalNodeCost(split)
	}
	for _, leaf := range tree.Leaves {
		cost += c.ComputeLeafCost(leaf)
	}
	return cost
}

func (c *DecisionTreeRecursiveCost) ComputeTreeConstructionCost(tree *TreeDescription) float64 {
	if c.TotalAttributeNumber == 0 {
		return 0
	}
	cost := -stat.LnFactorial(c.TotalAttributeNumber - 1)
	cost += c.ComputeAttributeChoiceCost(tree.UsedAttributeNumber(), len(tree.InternalNodes))
	nodeCosts := make([]float64, 0, len(tree.InternalNodes))
	for _, split := range tree.InternalNodes {
		nodeCosts = append(nodeCosts, c.ComputeInternalNodeCost(split))
	}
	return cost + sortedSum(nodeCosts)
}

func (c *DecisionTreeRecursiveCost) ComputeAttributeChoiceCost(usedAttributeNumber, internalNodeNumber int) float64 {
	return treeAttributeChoiceCost(c.TotalAttributeNumber, usedAttributeNumber, internalNodeNumber)
}

func (c *DecisionTreeRecursiveCost) ComputeInternalNodeCost(split TreeSplit) float64 {
	if split.ValueNumber <= 0 {
		panic("ComputeInternalNodeCost: split without values")
	}
	if split.Uninformative {
		return 0
	}
	p := split.PartNumber
	cost := 0.0
	switch c.Criterion {
	case TreeCriterionRissanenParts:
		cost += math.Log(2.0) * stat.NaturalNumbersUniversalCodeLength(p)
	case TreeCriterionSquareParts:
		cost += 2*math.Log(float64(p)) + math.Log(zeta2)
	case TreeCriterionBinary:
		cost += math.Log(2.0)
	case TreeCriterionTernary:
		cost += math.Log(3.0)
	case TreeCriterionNumbersCode1:
		cost += math.Log(2.0) * stat.NumbersCodeLength1(p)
	case TreeCriterionNumbersCode2:
		cost += math.Log(2.0) * stat.NumbersCodeLength2(p)
	default:
		cost += math.Log(2.0) + math.Log(float64(split.ValueNumber))
	}
	if split.AttributeType == common.Continuous {
		cost += valueDistributionCost(split.ValueNumber, p)
	} else {
		cost += stat.LnBell(split.ValueNumber, p)
	}
	return cost
}

func (c *DecisionTreeRecursiveCost) ComputeLeafCost(leaf TreeLeaf) float64 {
	cost := leafMultinomialCost(leaf, c.ClassValueNumber)
	switch c.Criterion {
	case TreeCriterionRissanenParts:
		cost += math.Log(2.0) * rissanenLeaf
	case TreeCriterionSquareParts:
		cost += math.Log(zeta2)
	case TreeCriterionTernary:
		cost += math.Log(3.0)
	default:
		cost += math.Log(2.0)
	}
	return cost
}

// DecisionTreeGlobalCost 按叶子数编码树结构（Catalan或Schroder计数）
type DecisionTreeGlobalCost struct {
	Criterion            TreeCriterion
	TotalAttributeNumber int
	ClassValueNumber     int
}

func (c *DecisionTreeGlobalCost) ComputeTotalTreeCost(tree *TreeDescription) float64 {
	if c.TotalAttributeNumber == 0 {
		return 0
	}
	cost := c.ComputeTreeConstructionCost(tree)
	for _, leaf := range tree.Leaves {
		cost += c.ComputeLeafCost(leaf)
	}
	return cost
}

func (c *DecisionTreeGlobalCost) ComputeTreeConstructionCost(tree *TreeDescription) float64 {
	if c.TotalAttributeNumber == 0 {
		return 0
	}
	cost := -stat.LnFactorial(c.TotalAttributeNumber - 1)
	cost += c.ComputeAttributeChoiceCost(tree.UsedAttributeNumber(), len(tree.InternalNodes))
	cost += c.ComputeStructureCost(len(tree.Leaves))
	for _, split := range tree.InternalNodes {
		cost += c.ComputeInternalNodeCost(split)
	}
	return cost
}

func (c *DecisionTreeGlobalCost) ComputeAttributeChoiceCost(usedAttributeNumber, internalNodeNumber int) float64 {
	return treeAttributeChoiceCost(c.TotalAttributeNumber, usedAttributeNumber, internalNodeNumber)
}

// ComputeStructureCost 叶子数的编码加上给定叶子数的树结构个数
func (c *DecisionTreeGlobalCost) ComputeStructureCost(leafNumber int) float64 {
	if leafNumber <= 0 {
		panic("ComputeStructureCost: tree without leaf")
	}
	cost := math.Log(2.0) * stat.NaturalNumbersUniversalCodeLength(leafNumber)
	switch c.Criterion {
	case TreeCriterionRissanenValues:
		cost += stat.LnCatalan(leafNumber - 1)
	case TreeCriterionRissanenParts:
		cost += stat.LnSchroder(leafNumber - 1)
	}
	return cost
}

func (c *DecisionTreeGlobalCost) ComputeInternalNodeCost(split TreeSplit) float64 {
	if split.ValueNumber <= 0 {
		panic("ComputeInternalNodeCost: split without values")
	}
	if split.Uninformative {
		return 0
	}
	if split.AttributeType == common.Continuous {
		return valueDistributionCost(split.ValueNumber, split.PartNumber)
	}
	return math.Log(float64(split.ValueNumber)) + stat.LnBell(split.ValueNumber, split.PartNumber)
}

func (c *DecisionTreeGlobalCost) ComputeLeafCost(leaf TreeLeaf) float64 {
	return leafMultinomialCost(leaf, c.ClassValueNumber)
}

// DecisionBinaryTreeCost 二叉决策树代价
type DecisionBinaryTreeCost struct {
	TotalAttributeNumber int
	ClassValueNumber     int
}

func (c *DecisionBinaryTreeCost) ComputeTotalTreeCost(tree *TreeDescription) float64 {
	if c.TotalAttributeNumber == 0 {
		return 0
	}
	cost := c.ComputeAttributeChoiceCost(tree.UsedAttributeNumber(), len(tree.InternalNodes))
	for _, split := range tree.InternalNodes {
		cost += c.ComputeInternalNodeCost(split)
	}
	for _, leaf := range tree.Leaves {
		cost += c.ComputeLeafCost(leaf)
	}
	return cost
}

func (c *DecisionBinaryTreeCost) ComputeTreeConstructionCost(tree *TreeDescription) float64 {
	usedAttributeNumber := tree.UsedAttributeNumber()
	if usedAttributeNumber == 0 || c.TotalAttributeNumber == 0 {
		return 0
	}
	cost := c.ComputeAttributeChoiceCost(usedAttributeNumber, len(tree.InternalNodes))
	nodeCosts := make([]float64, 0, len(tree.InternalNodes))
	for _, split := range tree.InternalNodes {
		nodeCosts = append(nodeCosts, c.ComputeInternalNodeCost(split))
	}
	return cost + sortedSum(nodeCosts)
}

func (c *DecisionBinaryTreeCost) ComputeAttributeChoiceCost(usedAttributeNumber, internalNodeNumber int) float64 {
	if c.TotalAttributeNumber <= 0 || usedAttributeNumber < 0 || internalNodeNumber < usedAttributeNumber {
		panic("DecisionBinaryTreeCost: inconsistent attribute counts")
	}
	if usedAttributeNumber == 0 {
		return math.Log(2.0)
	}
	cost := math.Log(2.0) * (1.0 + float64(internalNodeNumber))
	cost += math.Log(float64(usedAttributeNumber)) * float64(internalNodeNumber)
	cost += stat.NaturalNumbersUniversalCodeLength(usedAttributeNumber)
	cost -= stat.LnFactorial(usedAttributeNumber)
	return cost
}

func (c *DecisionBinaryTreeCost) ComputeInternalNodeCost(split TreeSplit) float64 {
	cost := split.AttributeCost
	if split.Uninformative {
		return cost
	}
	granularityMax := int(math.Log2(0.5 * float64(split.InstanceNumber)))
	if granularityMax < 1 {
		granularityMax = 1
	}
	cost += stat.BoundedNaturalNumbersUniversalCodeLength(split.Granularity, granularityMax)
	if split.AttributeType == common.Continuous {
		cost += math.Log(float64(split.GranularizedValueNumber) - 1.0)
	} else {
		v1, v2 := split.GroupValueNumbers[0], split.GroupValueNumbers[1]
		vmin := v1
		if v2 < vmin {
			vmin = v2
		}
		if vmin > 1 && v1+v2 > 2 {
			cost += stat.BoundedNaturalNumbersUniversalCodeLength(vmin-1, v1+v2-2)
		}
		cost -= stat.LnFactorial(vmin)
		cost += float64(vmin) * math.Log(float64(v1+v2))
	}
	return cost
}

func (c *DecisionBinaryTreeCost) ComputeLeafCost(leaf TreeLeaf) float64 {
	return math.Log(2.0) + leafMultinomialCost(leaf, c.ClassValueNumber)
}
