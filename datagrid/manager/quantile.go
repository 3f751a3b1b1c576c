package manager

import (
	"math"
	"sort"
)

// QuantileBuilder 粒度化时把排好序的源部分切成partile
type QuantileBuilder interface {
	// ComputeQuantiles 请求quantileNumber个分位数，返回实际得到的partile数
	ComputeQuantiles(quantileNumber int) int
	// QuantileNumber 最近一次计算得到的partile数
	QuantileNumber() int
	FirstIndexAt(i int) int
	LastIndexAt(i int) int
	FrequencyAt(i int) int
	ValueNumber() int
	InstanceNumber() int
}

// cumulatedFrequencies 频数的累计和
type cumulatedFrequencies []int

func newCumulatedFrequencies(frequencies []int) cumulatedFrequencies {
	cumulated := make(cumulatedFrequencies, len(frequencies))
	total := 0
	for i, f := range frequencies {
		if f <= 0 {
			panic("quantile builder: frequencies must be positive")
		}
		total += f
		cumulated[i] = total
	}
	return cumulated
}

func (c cumulatedFrequencies) total() int {
	if len(c) == 0 {
		return 0
	}
	return c[len(c)-1]
}

func (c cumulatedFrequencies) frequencyAt(i int) int {
	if i == 0 {
		return c[0]
	}
	return c[i] - c[i-1]
}

// rangeFrequency 下标区间[first, last]的频数
func (c cumulatedFrequencies) rangeFrequency(first, last int) int {
	if first == 0 {
		return c[last]
	}
	return c[last] - c[first-1]
}

// IntervalQuantileBuilder 等频区间，切点取最接近理论分位数的值
type IntervalQuantileBuilder struct {
	cumulated    cumulatedFrequencies
	upperIndexes []int
}

func NewIntervalQuantileBuilder(frequencies []int) *IntervalQuantileBuilder {
	return &IntervalQuantileBuilder{cumulated: newCumulatedFrequencies(frequencies)}
}

func (b *IntervalQuantileBuilder) ComputeQuantiles(quantileNumber int) int {
	if len(b.cumulated) == 0 || quantileNumber < 1 {
		panic("IntervalQuantileBuilder: no value or no quantile")
	}
	const epsilon = 1e-10
	n := b.cumulated.total()
	b.upperIndexes = b.upperIndexes[:0]
	lastUpper := 0
	ref := 0
	for q := 0; q < quantileNumber; q++ {
		searched := float64(n) * (float64(q) + 1) / float64(quantileNumber)
		// 前一半偏向左端，后一半偏向右端
		if q >= quantileNumber/2 {
			searched += epsilon
		} else {
			searched -= epsilon
		}
		target := int(math.Floor(searched + 0.5))

		// 第一个累计频数不小于target的下标
		ref += sort.SearchInts(b.cumulated[ref:], target)
		if ref >= len(b.cumulated) {
			ref = len(b.cumulated) - 1
		}

		upper := ref
		if upper > 0 {
			distance1 := math.Abs(searched - float64(b.cumulated[ref-1]))
			distance2 := math.Abs(float64(b.cumulated[ref]) - searched)
			if distance1 <= distance2 {
				upper--
			}
		}
		if q == 0 || upper > lastUpper {
			lastUpper = upper
			b.upperIndexes = append(b.upperIndexes, upper)
		}
	}
	// 最后一个区间必须覆盖到最后一个值
	b.upperIndexes[len(b.upperIndexes)-1] = len(b.cumulated) - 1
	return len(b.upperIndexes)
}

func (b *IntervalQuantileBuilder) QuantileNumber() int {
	return len(b.upperIndexes)
}

func (b *IntervalQuantileBuilder) FirstIndexAt(i int) int {
	if i == 0 {
		return 0
	}
	return b.upperIndexes[i-1] + 1
}

func (b *IntervalQuantileBuilder) LastIndexAt(i int) int {
	return b.upperIndexes[i]
}

func (b *IntervalQuantileBuilder) FrequencyAt(i int) int {
	return b.cumulated.rangeFrequency(b.FirstIndexAt(i), b.LastIndexAt(i))
}

func (b *IntervalQuantileBuilder) ValueNumber() int {
	return len(b.cumulated)
}

func (b *IntervalQuantileBuilder) InstanceNumber() int {
	return b.cumulated.total()
}

// GroupQuantileBuilder 频数降序的值：频数够大的值单独成组，其余的值合成最后一组
type GroupQuantileBuilder struct {
	cumulated   cumulatedFrequencies
	groupNumber int
}

// NewGroupQuantileBuilder 频数必须按降序排列
func NewGroupQuantileBuilder(frequencies []int) *GroupQuantileBuilder {
	for i := 1; i < len(frequencies); i++ {
		if frequencies[i] > frequencies[i-1] {
			panic("GroupQuantileBuilder: frequencies must be sorted in decreasing order")
		}
	}
	return &GroupQuantileBuilder{cumulated: newCumulatedFrequencies(frequencies)}
}

func (b *GroupQuantileBuilder) ComputeQuantiles(quantileNumber int) int {
	valueNumber := len(b.cumulated)
	if valueNumber == 0 || quantileNumber < 1 {
		panic("GroupQuantileBuilder: no value or no quantile")
	}
	minFrequency := int(math.Ceil(float64(b.cumulated.total()) / float64(quantileNumber)))
	lastIndex := quantileNumber - 1
	if quantileNumber >= valueNumber {
		lastIndex = valueNumber - 1
	}

	// 最后一个频数不小于minFrequency的值，没有时为0
	index := sort.Search(lastIndex+1, func(i int) bool {
		return b.cumulated.frequencyAt(i) < minFrequency
	}) - 1
	if index < 0 {
		index = 0
	}

	b.groupNumber = index + 1
	// 剩下的值组成垃圾组
	if b.groupNumber < valueNumber && (index > 0 || b.cumulated.frequencyAt(0) >= minFrequency) {
		b.groupNumber++
	}
	return b.groupNumber
}

func (b *GroupQuantileBuilder) QuantileNumber() int {
	return b.groupNumber
}

func (b *GroupQuantileBuilder) FirstIndexAt(i int) int {
	return i
}

func (b *GroupQuantileBuilder) LastIndexAt(i int) int {
	if i == b.groupNumber-1 {
		return len(b.cumulated) - 1
	}
	return i
}

func (b *GroupQuantileBuilder) FrequencyAt(i int) int {
	return b.cumulated.rangeFrequency(b.FirstIndexAt(i), b.LastIndexAt(i))
}

func (b *GroupQuantileBuilder) ValueNumber() int {
	return len(b.cumulated)
}

func (b *GroupQuantileBuilder) InstanceNumber() int {
	return b.cumulated.total()
}
