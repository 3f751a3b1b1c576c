package optimizer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats/scalar"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/conf/optimization"
	"modl-grid/datagrid/costs"
	"modl-grid/datagrid/grid"
	"modl-grid/datagrid/manager"
	"modl-grid/share/base/logger"
)

// Merger 贪心合并：每一步在所有属性中选择代价变化最小的一对部分合并，
// 直到每个属性只剩一个部分，最后恢复遇到的最好网格
type Merger struct {
	evaluator    *grid.CostEvaluator
	interruption *common.Interruption

	// 部分对的(部分代价 + 单元格代价)变化，两个方向都保存
	pairDeltas map[*grid.Part]map[*grid.Part]float64
}

func NewMerger(evaluator *grid.CostEvaluator, interruption *common.Interruption) *Merger {
	return &Merger{evaluator: evaluator, interruption: interruption}
}

// mergeCandidate 一次合并及其代价变化
type mergeCandidate struct {
	attribute *grid.Attribute
	target    *grid.Part
	source    *grid.Part
	delta     float64
	garbage   bool
}

// attributeState 一步之内属性级别的代价，与具体的部分对无关
type attributeState struct {
	attribute     *grid.Attribute
	cost          float64
	gridDelta     float64
	targetDelta   float64
	garbageTop    []*grid.Part // 最应该成为垃圾组的三个部分
	searchGarbage bool
}

// OptimizeMerge 在g上做贪心合并，g被替换为合并路径上代价最小的网格（只保留信息属性）
// 返回该网格的总代价
func (m *Merger) OptimizeMerge(g *grid.DataGrid) float64 {
	if !m.evaluator.IsInitialized() {
		panic("OptimizeMerge: default costs not initialized")
	}
	dataGridCosts := m.evaluator.Costs()
	for _, a := range g.Attributes() {
		if a.Type == common.Continuous && !a.ArePartsSorted() {
			a.SortParts()
		}
	}
	g.BuildIndexingStructure()
	m.pairDeltas = make(map[*grid.Part]map[*grid.Part]float64)

	cost := m.evaluator.ComputeDataGridTotalCost(g)
	bestCost := cost
	bestIsCurrent := true
	best := grid.NewDataGrid()
	logger.Debugf("greedy merge, initial cost %f, %s", cost, g.String())

	step := 0
	for !m.interruption.IsInterruptionRequested() {
		candidate := m.searchBestMerge(g, dataGridCosts)
		if candidate == nil {
			break
		}
		// 代价变坏前保存当前的最好网格
		if bestIsCurrent && candidate.delta > common.Epsilon {
			manager.CopyInformativeDataGrid(g, best)
			bestIsCurrent = false
		}
		m.performMerge(g, candidate)
		cost += candidate.delta
		step++
		if optimization.Debug {
			if total := m.evaluator.ComputeDataGridTotalCost(g); !scalar.EqualWithinRel(total, cost, common.CostEpsilon) {
				panic(fmt.Sprintf("OptimizeMerge: step %d, incremental cost %f, data grid cost %f", step, cost, total))
			}
		}
		if cost < bestCost+common.Epsilon {
			bestCost = cost
			bestIsCurrent = true
		}
	}
	g.DeleteIndexingStructure()
	m.pairDeltas = nil

	if bestIsCurrent {
		manager.CopyInformativeDataGrid(g, best)
	}
	manager.CopyDataGrid(best, g)
	logger.Debugf("greedy merge, %d steps, best cost %f", step, bestCost)
	return m.evaluator.ComputeDataGridTotalCost(g)
}

// searchBestMerge 所有属性中代价变化最小的合并，没有可合并的属性时返回nil
func (m *Merger) searchBestMerge(g *grid.DataGrid, dataGridCosts costs.DataGridCosts) *mergeCandidate {
	var best *mergeCandidate
	gridParams := g.CostParams()
	gridCost := dataGridCosts.ComputeDataGridCost(gridParams)
	for _, a := range g.Attributes() {
		if a.PartNumber() < 2 {
			continue
		}
		state := m.attributeState(g, a, dataGridCosts, gridParams, gridCost)
		parts := a.Parts()
		consider := func(p1, p2 *grid.Part) {
			delta, garbage := m.mergeDelta(state, p1, p2, dataGridCosts)
			if best == nil || delta < best.delta {
				best = &mergeCandidate{attribute: a, target: p1, source: p2, delta: delta, garbage: garbage}
			}
		}
		if a.Type == common.Continuous {
			for i := 0; i+1 < len(parts); i++ {
				consider(parts[i], parts[i+1])
			}
			continue
		}
		for i := 0; i < len(parts); i++ {
			for j := i + 1; j < len(parts); j++ {
				consider(parts[i], parts[j])
			}
		}
	}
	return best
}

func (m *Merger) attributeState(g *grid.DataGrid, a *grid.Attribute, dataGridCosts costs.DataGridCosts,
	gridParams costs.GridParams, gridCost float64) *attributeState {
	k := a.PartNumber()
	state := &attributeState{
		attribute: a,
		cost:      dataGridCosts.ComputeAttributeCost(a.CostParams(), k),
	}

	merged := gridParams
	merged.LnGridSize += math.Log(float64(k-1)) - math.Log(float64(k))
	if k == 2 {
		merged.InformativeAttributeNumber--
	}
	state.gridDelta = dataGridCosts.ComputeDataGridCost(merged) - gridCost

	state.searchGarbage = a.Type == common.Symbol && k-1 >= 3 &&
		a.GranularizedValueNumber > common.MinModalityNumberForGarbage
	if state.searchGarbage {
		for _, p := range a.Parts() {
			state.garbageTop = insertGarbageCandidate(state.garbageTop, p)
		}
	}

	// 目标属性的部分数变化时，其它属性的部分代价与缺失属性的代价也变化
	if a.TargetFunction {
		delta := 0.0
		for _, other := range g.Attributes() {
			if other == a {
				continue
			}
			for _, p := range other.Parts() {
				params := p.CostParams()
				current := dataGridCosts.ComputePartCost(params)
				params.TargetPartitionSize = k - 1
				delta += dataGridCosts.ComputePartCost(params) - current
			}
		}
		delta += m.evaluator.ComputeMissingAttributeCostWithTargetPartNumber(g, k-1) -
			m.evaluator.ComputeMissingAttributeCostWithTargetPartNumber(g, k)
		state.targetDelta = delta
	}
	return state
}

// insertGarbageCandidate 保留初始值最多的三个部分，按GarbageCandidate的顺序
func insertGarbageCandidate(top []*grid.Part, p *grid.Part) []*grid.Part {
	i := len(top)
	for i > 0 && p.GarbageCandidate().Before(top[i-1].GarbageCandidate()) {
		i--
	}
	if i >= 3 {
		return top
	}
	top = append(top, nil)
	copy(top[i+1:], top[i:])
	top[i] = p
	if len(top) > 3 {
		top = top[:3]
	}
	return top
}

// mergeDelta 合并p1与p2的总代价变化，离散属性同时比较有无垃圾组两种情况
func (m *Merger) mergeDelta(state *attributeState, p1, p2 *grid.Part, dataGridCosts costs.DataGridCosts) (float64, bool) {
	a := state.attribute
	k := a.PartNumber()
	params := a.CostParams()
	params.GarbageModalityNumber = 0
	attributeCost := dataGridCosts.ComputeAttributeCost(params, k-1)
	garbage := false
	if state.searchGarbage {
		// 合并之后的垃圾组：合并的组或其余部分中最好的一个
		candidate := p1.GarbageCandidate().Union(p2.GarbageCandidate())
		for _, p := range state.garbageTop {
			if p != p1 && p != p2 {
				if other := p.GarbageCandidate(); other.Before(candidate) {
					candidate = other
				}
				break
			}
		}
		params.GarbageModalityNumber = candidate.Modalities
		if withGarbage := dataGridCosts.ComputeAttributeCost(params, k-1); withGarbage < attributeCost {
			attributeCost = withGarbage
			garbage = true
		}
	}
	delta := state.gridDelta + attributeCost - state.cost + state.targetDelta
	delta += m.pairDelta(p1, p2, dataGridCosts)
	return delta, garbage
}

// pairDelta 部分并与碰撞单元格的代价变化，结果被缓存直到其中一个部分的单元格变化
func (m *Merger) pairDelta(p1, p2 *grid.Part, dataGridCosts costs.DataGridCosts) float64 {
	if delta, ok := m.pairDeltas[p1][p2]; ok {
		return delta
	}
	delta := dataGridCosts.ComputePartUnionCost(p1.CostParams(), p2.CostParams()) -
		dataGridCosts.ComputePartCost(p1.CostParams()) - dataGridCosts.ComputePartCost(p2.CostParams())

	index := p1.Attribute().Index()
	cells := make(map[string]*grid.Cell, p1.CellNumber())
	for _, c := range p1.Cells() {
		cells[otherPartsKey(c, index)] = c
	}
	for _, c2 := range p2.Cells() {
		c1 := cells[otherPartsKey(c2, index)]
		if c1 == nil {
			continue
		}
		delta += dataGridCosts.ComputeCellCost(cellUnionParams(c1, c2)) -
			dataGridCosts.ComputeCellCost(c1.CostParams()) - dataGridCosts.ComputeCellCost(c2.CostParams())
	}

	m.cachePairDelta(p1, p2, delta)
	m.cachePairDelta(p2, p1, delta)
	return delta
}

func (m *Merger) cachePairDelta(p1, p2 *grid.Part, delta float64) {
	deltas := m.pairDeltas[p1]
	if deltas == nil {
		deltas = make(map[*grid.Part]float64)
		m.pairDeltas[p1] = deltas
	}
	deltas[p2] = delta
}

func (m *Merger) invalidate(p *grid.Part) {
	for other := range m.pairDeltas[p] {
		delete(m.pairDeltas[other], p)
	}
	delete(m.pairDeltas, p)
}

// performMerge 合并之前记下source的单元格涉及的其它部分，它们的碰撞关系会改变
func (m *Merger) performMerge(g *grid.DataGrid, candidate *mergeCandidate) {
	a := candidate.attribute
	if a.TargetFunction {
		m.pairDeltas = make(map[*grid.Part]map[*grid.Part]float64)
	} else {
		dirty := map[*grid.Part]bool{candidate.target: true, candidate.source: true}
		for _, c := range candidate.source.Cells() {
			for _, p := range c.Parts() {
				dirty[p] = true
			}
		}
		for p := range dirty {
			m.invalidate(p)
		}
	}

	g.MergeParts(candidate.target, candidate.source)
	if a.Type != common.Symbol {
		return
	}
	if candidate.garbage {
		a.SetGarbagePart(a.ComputeGarbagePart())
	} else {
		a.SetGarbagePart(nil)
	}
}

// otherPartsKey 单元格在其它属性上的部分，index属性除外
func otherPartsKey(c *grid.Cell, index int) string {
	var b strings.Builder
	for i, p := range c.Parts() {
		if i == index {
			continue
		}
		b.WriteString(strconv.FormatInt(p.ID(), 36))
		b.WriteByte(',')
	}
	return b.String()
}

func cellUnionParams(c1, c2 *grid.Cell) costs.CellParams {
	params := costs.CellParams{
		Frequency:         c1.Frequency() + c2.Frequency(),
		TargetFrequencies: make([]int, len(c1.TargetFrequencies())),
	}
	for i, f := range c1.TargetFrequencies() {
		params.TargetFrequencies[i] = f + c2.TargetFrequencyAt(i)
	}
	return params
}
