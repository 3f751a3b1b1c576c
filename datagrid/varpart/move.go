package varpart

import (
	"math"

	"golang.org/x/exp/slices"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/costs"
	"modl-grid/datagrid/grid"
	"modl-grid/datagrid/postopt"
)

// move 变量部分v从其簇移到target，并与target中同一内部属性的fused融合
type move struct {
	v      *varPart
	target *cluster
	fused  []*varPart
	delta  float64
}

// fusableClusters v可以移入的簇及在其中融合的变量部分
// 连续属性只与相邻区间融合，离散属性与目标簇中同一属性的所有组融合
func (s *state) fusableClusters(v *varPart) map[*cluster][]*varPart {
	result := make(map[*cluster][]*varPart)
	// 有垃圾组的内部属性不移动
	if v.inner.GarbagePart() != nil {
		return result
	}
	list := s.varParts[v.inner]
	if v.inner.Type == common.Continuous {
		i := slices.Index(list, v)
		for _, j := range []int{i - 1, i + 1} {
			if j < 0 || j >= len(list) || list[j].cluster == v.cluster {
				continue
			}
			result[list[j].cluster] = append(result[list[j].cluster], list[j])
		}
		return result
	}
	for _, other := range list {
		if other != v && other.cluster != v.cluster {
			result[other.cluster] = append(result[other.cluster], other)
		}
	}
	return result
}

// mergedParams 融合之后的变量部分的代价参数
func mergedParams(v *varPart, fused []*varPart) costs.PartParams {
	params := v.costParams()
	for _, f := range fused {
		other := f.costParams()
		params.Frequency += other.Frequency
		if v.inner.Type == common.Symbol {
			params.ValueNumber += other.ValueNumber
		}
	}
	return params
}

// computeDelta 移动的总代价变化：VarPart属性（含内部属性）、网格、两个簇以及v涉及的单元格
func (s *state) computeDelta(m *move, attributeCost float64) float64 {
	v := m.v
	source := v.cluster
	emptied := len(source.varParts) == 1

	merged := mergedParams(v, m.fused)
	removed := append([]*varPart{v}, m.fused...)
	k := s.clusterNumber()
	if emptied {
		k--
	}
	delta := s.costs.ComputeAttributeCost(s.attributeParams(v.inner, removed, &merged), k) - attributeCost
	if emptied {
		delta += s.costs.ComputeDataGridCost(s.emptyClusterGridParams()) - s.costs.ComputeDataGridCost(s.gridParams)
	}

	sourceParams := source.costParams()
	targetParams := m.target.costParams()
	delta -= s.clusterCost(sourceParams) + s.clusterCost(targetParams)
	sourceParams.Frequency -= v.frequency
	sourceParams.ValueNumber--
	targetParams.Frequency += v.frequency
	targetParams.ValueNumber += 1 - len(m.fused)
	delta += s.clusterCost(sourceParams) + s.clusterCost(targetParams)

	for _, key := range v.vector.Keys() {
		cell := v.vector.CellAt(key)
		before1 := source.vector.CellAt(key)
		before2 := m.target.vector.CellAt(key)
		delta -= s.cellCost(before1) + s.cellCost(before2)
		delta += s.cellCost(shiftCell(before1, cell, -1)) + s.cellCost(shiftCell(before2, cell, 1))
	}
	return delta
}

// shiftCell base加上（sign为-1时减去）cell，base可以为nil
func shiftCell(base, cell *postopt.CellFrequencyVector, sign int) *postopt.CellFrequencyVector {
	result := &postopt.CellFrequencyVector{
		Frequency:         sign * cell.Frequency,
		TargetFrequencies: make([]int, len(cell.TargetFrequencies)),
	}
	for i, f := range cell.TargetFrequencies {
		result.TargetFrequencies[i] = sign * f
	}
	if base == nil {
		return result
	}
	result.Frequency += base.Frequency
	for i, f := range base.TargetFrequencies {
		result.TargetFrequencies[i] += f
	}
	return result
}

// bestMove v的所有可能移动中代价变化最小的，frozen中的簇不参与
func (s *state) bestMove(v *varPart, attributeCost float64, frozen func(*cluster) bool) *move {
	var best *move
	for target, fused := range s.fusableClusters(v) {
		if frozen != nil && frozen(target) {
			continue
		}
		m := &move{v: v, target: target, fused: fused}
		m.delta = s.computeDelta(m, attributeCost)
		// map遍历顺序不定，代价相同时取编号小的簇
		if best == nil || m.delta < best.delta ||
			(m.delta == best.delta && target.index < best.target.index) {
			best = m
		}
	}
	return best
}

// apply 执行移动，返回融合之后的变量部分
func (s *state) apply(m *move) *varPart {
	v := m.v
	source := v.cluster
	if len(source.varParts) == 1 {
		s.gridParams = s.emptyClusterGridParams()
	}
	source.vector.Remove(v.vector)
	m.target.vector.Add(v.vector)

	merged := &varPart{
		inner:      v.inner,
		parts:      append([]*grid.Part(nil), v.parts...),
		lower:      v.lower,
		upper:      v.upper,
		modalities: v.modalities,
		frequency:  v.frequency,
		cluster:    m.target,
		vector:     v.vector.Clone(),
	}
	for _, f := range m.fused {
		merged.parts = append(merged.parts, f.parts...)
		merged.lower = math.Min(merged.lower, f.lower)
		merged.upper = math.Max(merged.upper, f.upper)
		merged.modalities += f.modalities
		merged.frequency += f.frequency
		merged.vector.Add(f.vector)
		f.cluster = nil
	}
	v.cluster = nil

	source.varParts = slices.DeleteFunc(source.varParts, func(x *varPart) bool { return x == v })
	m.target.varParts = slices.DeleteFunc(m.target.varParts, func(x *varPart) bool { return x.cluster == nil })
	m.target.varParts = append(m.target.varParts, merged)

	// 连续属性的区间保持有序：融合后的区间放在被替换的第一个区间的位置
	list := s.varParts[v.inner]
	position := len(list)
	for i, x := range list {
		if x.cluster == nil {
			position = i
			break
		}
	}
	list = slices.DeleteFunc(list, func(x *varPart) bool { return x.cluster == nil })
	s.varParts[v.inner] = slices.Insert(list, min(position, len(list)), merged)

	s.cost += m.delta
	return merged
}
