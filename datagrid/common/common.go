package common

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// AttributeType 数据网格中属性的类型
type AttributeType int

const (
	None       AttributeType = iota
	Continuous               // 连续属性，划分为区间
	Symbol                   // 离散属性，划分为值组
	VarPart                  // 变量部分属性，每个部分是内部属性部分的集合
)

func (t AttributeType) String() string {
	switch t {
	case Continuous:
		return "Continuous"
	case Symbol:
		return "Symbol"
	case VarPart:
		return "VarPart"
	default:
		return "None"
	}
}

// ParseAttributeType 不区分大小写，VarPart属性只能由内部属性构造
func ParseAttributeType(s string) (AttributeType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "continuous", "numerical":
		return Continuous, nil
	case "symbol", "categorical":
		return Symbol, nil
	}
	return None, fmt.Errorf("unknown attribute type '%s'", s)
}

const (
	// StarValue 默认组的特殊值，吸收所有未见过的值
	StarValue = " * "
	// Epsilon 判断优化是否有改进
	Epsilon = 1e-10
	// CostEpsilon 代价计算的精度
	CostEpsilon = 1e-6
	// MinModalityNumberForGarbage 超过这个值数才考虑垃圾组
	MinModalityNumberForGarbage = 7
	// InfiniteCost 不可行移动的代价
	InfiniteCost = math.MaxFloat64
)

var (
	MinLowerBound = math.Inf(-1)
	MaxUpperBound = math.Inf(1)
)

// Interruption 包装context，各个优化步骤之间轮询是否需要中断
type Interruption struct {
	ctx context.Context
}

func NewInterruption(ctx context.Context) *Interruption {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Interruption{ctx: ctx}
}

// IsInterruptionRequested nil也可以调用，表示永不中断
func (i *Interruption) IsInterruptionRequested() bool {
	if i == nil {
		return false
	}
	select {
	case <-i.ctx.Done():
		return true
	default:
		return false
	}
}

func (i *Interruption) Context() context.Context {
	if i == nil {
		return context.Background()
	}
	return i.ctx
}
