// Package costs MODL代价模型：单变量划分代价、数据网格代价族、决策树代价准则
//
// 所有代价函数只依赖计数，不持有网格对象。网格实体通过CostParams系列方法
// 生成参数结构，后优化器可以直接用合成的计数构造参数来评估假想的候选划分。
package costs

import (
	"math"

	"modl-grid/datagrid/common"
)

// GridParams 网格级别的代价参数
type GridParams struct {
	GridFrequency              int     // 网格总频数
	Granularity                int     // 粒度
	LnGridSize                 float64 // 各属性部分数乘积的对数
	InformativeAttributeNumber int     // 部分数大于1的属性数
	AttributeNumber            int     // 网格中的属性数
}

// AttributeParams 属性级别的代价参数
type AttributeParams struct {
	Name                    string
	Type                    common.AttributeType
	Cost                    float64 // 属性选择/构造代价
	TargetFunction          bool    // 是否为回归中的目标属性
	InitialValueNumber      int     // 初始值个数（不含星号值）
	GranularizedValueNumber int     // 粒度化之后的值个数
	GarbageModalityNumber   int     // 垃圾组中的值个数，0表示无垃圾组
	InnerAttributes         []InnerAttributeParams
}

// InnerAttributeParams VarPart属性的内部属性，连同其当前划分
type InnerAttributeParams struct {
	AttributeParams
	Parts []PartParams
}

// PartNumber 内部属性当前的部分数
func (p InnerAttributeParams) PartNumber() int {
	return len(p.Parts)
}

// PartParams 部分级别的代价参数
type PartParams struct {
	AttributeType       common.AttributeType
	TargetFunction      bool
	Frequency           int // 部分频数
	ValueNumber         int // 值组的真实值个数，或VarPart部分包含的变量部分数
	TargetPartitionSize int // 回归：目标属性当前的部分数，无目标属性时为1
}

// CellParams 单元格级别的代价参数
type CellParams struct {
	Frequency         int
	TargetFrequencies []int // 监督模式下每个目标值的频数
}

// TargetValueNumber 目标值个数
func (c CellParams) TargetValueNumber() int {
	return len(c.TargetFrequencies)
}

// GranularityMax 给定总频数时的最大粒度 ceil(log2 N)
func GranularityMax(frequency int) int {
	if frequency <= 0 {
		return 0
	}
	return int(math.Ceil(math.Log(float64(frequency)) / math.Log(2.0)))
}

// unionPart 两个部分合并后的参数
func unionPart(part1, part2 PartParams) PartParams {
	union := part1
	union.Frequency = part1.Frequency + part2.Frequency
	union.ValueNumber = part1.ValueNumber + part2.ValueNumber
	return union
}
