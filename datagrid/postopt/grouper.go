package postopt

import (
	"modl-grid/datagrid/common"
)

// grouper 初始部分在组之间的移动，每次找到改进即应用
// 使用垃圾组时，垃圾组是初始值最多的组，每次评估都重新扫描
type grouper struct {
	costs        *UnivariateCosts
	fine         []*PartFrequencyVector
	maxSteps     int
	useGarbage   bool
	interruption *common.Interruption

	groupOf    []int
	groups     []*PartFrequencyVector // 空的组为nil
	groupCount int
}

func (g *grouper) initialize(groupOf []int, groupNumber int) {
	g.groupOf = append([]int(nil), groupOf...)
	g.groups = make([]*PartFrequencyVector, groupNumber)
	for i, group := range g.groupOf {
		if g.groups[group] == nil {
			g.groups[group] = g.fine[i].Clone()
		} else {
			g.groups[group].Add(g.fine[i])
		}
	}
	g.groupCount = 0
	for _, group := range g.groups {
		if group != nil {
			g.groupCount++
		}
	}
}

// garbageGroup 组替换为replaced中的组之后的垃圾组，replaced中为nil的组变空
func (g *grouper) garbageGroup(groupCount int, replaced map[int]*PartFrequencyVector) *PartFrequencyVector {
	if !g.useGarbage || groupCount < 3 {
		return nil
	}
	var garbage *PartFrequencyVector
	for i, group := range g.groups {
		if r, ok := replaced[i]; ok {
			group = r
		}
		if group == nil {
			continue
		}
		if garbage == nil || group.GarbageCandidate().Before(garbage.GarbageCandidate()) {
			garbage = group
		}
	}
	return garbage
}

// garbageModalityNumber 垃圾组在代价中计的模态数，没有垃圾组时为0
func (g *grouper) garbageModalityNumber(groupCount int, replaced map[int]*PartFrequencyVector) int {
	if garbage := g.garbageGroup(groupCount, replaced); garbage != nil {
		return garbage.ModalityNumber()
	}
	return 0
}

func (g *grouper) cost() float64 {
	cost := g.costs.ComputePartitionCost(g.groupCount, g.garbageModalityNumber(g.groupCount, nil))
	for _, group := range g.groups {
		if group != nil {
			cost += g.costs.ComputePartCost(group)
		}
	}
	return cost
}

// ComputeGroupUnionCost 组加入一个部分之后的代价
func (g *grouper) ComputeGroupUnionCost(group, part *PartFrequencyVector) (float64, *PartFrequencyVector) {
	union := group.Clone()
	union.Add(part)
	return g.costs.ComputePartCost(union), union
}

// ComputeGroupDiffCost 组去掉一个部分之后的代价，组变空时为0
func (g *grouper) ComputeGroupDiffCost(group, part *PartFrequencyVector) (float64, *PartFrequencyVector) {
	if group.TotalFrequency() == part.TotalFrequency() && group.ModalityNumber() == part.ModalityNumber() {
		return 0, nil
	}
	diff := group.Clone()
	diff.Remove(part)
	return g.costs.ComputePartCost(diff), diff
}

// fastPostOptimize 依次把每个初始部分移到使代价下降最多的组
func (g *grouper) fastPostOptimize() float64 {
	bestCost := g.cost()
	for step := 0; step < g.maxSteps; step++ {
		if g.interruption.IsInterruptionRequested() {
			break
		}
		improved := false
		for i, part := range g.fine {
			source := g.groupOf[i]
			diffCost, diff := g.ComputeGroupDiffCost(g.groups[source], part)
			groupCount := g.groupCount
			if diff == nil {
				groupCount--
			}
			baseCost := bestCost - g.costs.ComputePartitionCost(g.groupCount, g.garbageModalityNumber(g.groupCount, nil)) -
				g.costs.ComputePartCost(g.groups[source]) + diffCost

			bestTarget := -1
			var bestUnion *PartFrequencyVector
			bestMoveCost := bestCost
			for target, group := range g.groups {
				if group == nil || target == source {
					continue
				}
				unionCost, union := g.ComputeGroupUnionCost(group, part)
				changed := map[int]*PartFrequencyVector{source: diff, target: union}
				moveCost := baseCost - g.costs.ComputePartCost(group) + unionCost +
					g.costs.ComputePartitionCost(groupCount, g.garbageModalityNumber(groupCount, changed))
				if improves(moveCost, bestMoveCost) {
					bestTarget = target
					bestUnion = union
					bestMoveCost = moveCost
				}
			}
			if bestTarget < 0 {
				continue
			}
			g.groups[source] = diff
			g.groups[bestTarget] = bestUnion
			g.groupOf[i] = bestTarget
			g.groupCount = groupCount
			bestCost = bestMoveCost
			improved = true
		}
		if !improved {
			break
		}
	}
	return bestCost
}

// compactGroups 去掉空的组，组号重新从0开始
func (g *grouper) compactGroups() (groupOf []int, groupNumber int) {
	renumber := make([]int, len(g.groups))
	for i, group := range g.groups {
		if group != nil {
			renumber[i] = groupNumber
			groupNumber++
		}
	}
	groupOf = make([]int, len(g.groupOf))
	for i, group := range g.groupOf {
		groupOf[i] = renumber[group]
	}
	return groupOf, groupNumber
}
