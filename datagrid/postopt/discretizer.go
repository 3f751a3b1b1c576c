package postopt

import (
	"modl-grid/datagrid/common"
)

// interval 连续的若干个初始区间
type interval struct {
	first, last int
	vector      *PartFrequencyVector
}

// discretizer 在初始区间上做局部搜索，代价由UnivariateCosts给出
type discretizer struct {
	costs        *UnivariateCosts
	fine         []*PartFrequencyVector
	maxSteps     int
	interruption *common.Interruption
}

func (d *discretizer) newInterval(first, last int) interval {
	vector := d.fine[first].Clone()
	for i := first + 1; i <= last; i++ {
		vector.Add(d.fine[i])
	}
	return interval{first: first, last: last, vector: vector}
}

func (d *discretizer) cost(intervals []interval) float64 {
	cost := d.costs.ComputePartitionCost(len(intervals), 0)
	for _, iv := range intervals {
		cost += d.costs.ComputePartCost(iv.vector)
	}
	return cost
}

// bestSplit [first, last]切成两个区间的最好切点，左区间为[first, cut]
func (d *discretizer) bestSplit(first, last int) (cut int, cost float64) {
	cut = -1
	left := NewPartFrequencyVector()
	right := d.fine[first].Clone()
	for i := first + 1; i <= last; i++ {
		right.Add(d.fine[i])
	}
	for i := first; i < last; i++ {
		left.Add(d.fine[i])
		right.Remove(d.fine[i])
		splitCost := d.costs.ComputePartCost(left) + d.costs.ComputePartCost(right)
		if cut < 0 || splitCost < cost {
			cut = i
			cost = splitCost
		}
	}
	return cut, cost
}

// move 一个候选的局部变换：区间[from, to)替换为replacement
type move struct {
	from, to    int
	replacement []interval
	cost        float64 // 变换后的总代价
}

func (d *discretizer) replace(intervals []interval, m move) []interval {
	result := make([]interval, 0, len(intervals)-(m.to-m.from)+len(m.replacement))
	result = append(result, intervals[:m.from]...)
	result = append(result, m.replacement...)
	return append(result, intervals[m.to:]...)
}

// evaluate 用[from, to)区间的并替换成parts个区间之后的总代价
func (d *discretizer) evaluate(intervals []interval, totalCost float64, from, to int, splitted bool) (move, bool) {
	first, last := intervals[from].first, intervals[to-1].last
	if splitted && first == last {
		return move{}, false
	}
	removed := 0.0
	for i := from; i < to; i++ {
		removed += d.costs.ComputePartCost(intervals[i].vector)
	}
	partNumber := len(intervals) - (to - from)
	m := move{from: from, to: to}
	var added float64
	if splitted {
		cut, splitCost := d.bestSplit(first, last)
		m.replacement = []interval{d.newInterval(first, cut), d.newInterval(cut+1, last)}
		added = splitCost
		partNumber += 2
	} else {
		m.replacement = []interval{d.newInterval(first, last)}
		added = d.costs.ComputePartCost(m.replacement[0].vector)
		partNumber++
	}
	m.cost = totalCost - d.costs.ComputePartitionCost(len(intervals), 0) - removed +
		d.costs.ComputePartitionCost(partNumber, 0) + added
	return m, true
}

// postOptimizeLight 只移动相邻区间的边界(merge-split)，区间数不变
func (d *discretizer) postOptimizeLight(intervals []interval) ([]interval, float64) {
	bestCost := d.cost(intervals)
	for step := 0; step < d.maxSteps; step++ {
		if d.interruption.IsInterruptionRequested() {
			break
		}
		improved := false
		for i := 0; i+1 < len(intervals); i++ {
			m, ok := d.evaluate(intervals, bestCost, i, i+2, true)
			if ok && improves(m.cost, bestCost) {
				intervals = d.replace(intervals, m)
				bestCost = m.cost
				improved = true
			}
		}
		if !improved {
			break
		}
	}
	return intervals, bestCost
}

// postOptimizeDeep 每个位置上比较split、merge、merge-split与merge-merge-split，
// 应用最好的改进；最后与只有一个区间的划分比较
func (d *discretizer) postOptimizeDeep(intervals []interval) ([]interval, float64) {
	bestCost := d.cost(intervals)
	for step := 0; step < d.maxSteps; step++ {
		if d.interruption.IsInterruptionRequested() {
			break
		}
		improved := false
		for i := 0; i < len(intervals); i++ {
			var best move
			found := false
			candidates := [][3]int{{i, i + 1, 1}, {i, i + 2, 0}, {i, i + 2, 1}, {i, i + 3, 1}}
			for _, c := range candidates {
				if c[1] > len(intervals) {
					continue
				}
				m, ok := d.evaluate(intervals, bestCost, c[0], c[1], c[2] == 1)
				if ok && (!found || m.cost < best.cost) {
					best = m
					found = true
				}
			}
			if found && improves(best.cost, bestCost) {
				intervals = d.replace(intervals, best)
				bestCost = best.cost
				improved = true
			}
		}
		if !improved {
			break
		}
	}

	if len(intervals) > 1 {
		single := []interval{d.newInterval(0, len(d.fine)-1)}
		if singleCost := d.cost(single); improves(singleCost, bestCost) {
			return single, singleCost
		}
	}
	return intervals, bestCost
}

// intervalsFromGroups 相邻且组号相同的初始区间合并
func (d *discretizer) intervalsFromGroups(groups []int) []interval {
	var intervals []interval
	first := 0
	for i := 1; i <= len(groups); i++ {
		if i == len(groups) || groups[i] != groups[first] {
			intervals = append(intervals, d.newInterval(first, i-1))
			first = i
		}
	}
	return intervals
}

func intervalFrequencies(intervals []interval) []int {
	frequencies := make([]int, len(intervals))
	for i, iv := range intervals {
		frequencies[i] = iv.vector.TotalFrequency()
	}
	return frequencies
}
