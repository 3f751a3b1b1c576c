package add

import "golang.org/x/exp/slices"

// FloatAdder 代价累加，Kahan补偿求和
type FloatAdder struct {
	sum float64
	c   float64 // 补偿项
}

func NewFloatAdder() *FloatAdder {
	return new(FloatAdder)
}

func (adder *FloatAdder) Add(num float64) {
	y := num - (*adder).c
	t := (*adder).sum + y
	(*adder).c = (t - (*adder).sum) - y
	(*adder).sum = t
}

// Merge 合并另一个累加器的结果
func (adder *FloatAdder) Merge(other *FloatAdder) *FloatAdder {
	adder.Add(other.sum)
	adder.Add(-other.c)
	return adder
}

func (adder *FloatAdder) Clear() {
	(*adder).sum = 0
	(*adder).c = 0
}

func (adder *FloatAdder) Result() float64 {
	return (*adder).sum
}

// SortedSum 排序后再累加，结果与元素顺序无关
// values会被原地排序
func SortedSum(values []float64) float64 {
	slices.Sort(values)
	adder := NewFloatAdder()
	for _, v := range values {
		adder.Add(v)
	}
	return adder.Result()
}
