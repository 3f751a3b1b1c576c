// Package postopt 数据网格的单变量后优化
//
// 其它属性的划分固定，只重新划分一个属性：连续属性在初始区间上做离散化，
// 离散属性在初始值组之间移动。代价通过UnivariateCosts与整个网格的代价一致，
// 结果写回时单元格总是从初始网格重新导出。
package postopt

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats/scalar"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/conf/optimization"
	"modl-grid/datagrid/grid"
	"modl-grid/datagrid/manager"
	"modl-grid/share/base/logger"
)

type PostOptimizer struct {
	evaluator    *grid.CostEvaluator
	random       *rand.Rand
	interruption *common.Interruption
}

// NewPostOptimizer evaluator的默认代价必须已经初始化
func NewPostOptimizer(evaluator *grid.CostEvaluator, interruption *common.Interruption) *PostOptimizer {
	return &PostOptimizer{
		evaluator:    evaluator,
		random:       rand.New(rand.NewSource(optimization.DefaultRandomSeed)),
		interruption: interruption,
	}
}

func (p *PostOptimizer) SetRandom(random *rand.Rand) {
	(*p).random = random
}

// maxStepNumber 深度优化log(N)步
func maxStepNumber(gridFrequency int, deep bool, light int) int {
	if !deep {
		return light
	}
	return max(int(math.Log(float64(gridFrequency))), 1)
}

// PostOptimizeDataGrid 依次对optimized的每个属性做单变量后优化，直到没有改进
// reference是optimized的最细网格，返回optimized的总代价
func (p *PostOptimizer) PostOptimizeDataGrid(reference, optimized *grid.DataGrid, deep bool) float64 {
	if !p.evaluator.IsInitialized() {
		panic("PostOptimizeDataGrid: default costs not initialized")
	}
	referenceManager := manager.NewManager(reference)
	if optimization.Debug {
		if err := referenceManager.CheckDataGrid(optimized); err != nil {
			panic(fmt.Sprintf("PostOptimizeDataGrid: optimized grid is not a coarsening of the reference: %v", err))
		}
	}

	bestCost := p.evaluator.ComputeDataGridTotalCost(optimized)
	logger.Debugf("post-optimization (deep=%v), initial cost %f, %s", deep, bestCost, optimized.String())

	indexes := make([]int, optimized.AttributeNumber())
	for i := range indexes {
		indexes[i] = i
	}
	shuffle := func() {
		p.random.Shuffle(len(indexes), func(i, j int) { indexes[i], indexes[j] = indexes[j], indexes[i] })
	}
	shuffle()

	maxSteps := maxStepNumber(reference.GridFrequency(), deep, optimization.LightDiscretizationStep)
	improved := true
	for step := 0; improved && step < maxSteps; step++ {
		improved = false
		if p.interruption.IsInterruptionRequested() {
			break
		}
		if len(indexes) > 2 {
			shuffle()
		}
		for _, index := range indexes {
			if p.interruption.IsInterruptionRequested() {
				break
			}
			name := optimized.AttributeAt(index).Name
			cost, ok := p.PostOptimizeAttribute(reference, optimized, name, deep)
			if !ok {
				continue
			}
			if improves(cost, bestCost) {
				logger.Debugf("post-optimization of %s: %f -> %f", name, bestCost, cost)
				bestCost = cost
				improved = true
			}
		}
	}

	if optimization.Debug {
		if err := referenceManager.CheckDataGrid(optimized); err != nil {
			panic(fmt.Sprintf("PostOptimizeDataGrid: %v", err))
		}
	}
	return bestCost
}

// PostOptimizeAttribute 只重新划分一个属性，VarPart属性与只有一个初始部分的属性被跳过
func (p *PostOptimizer) PostOptimizeAttribute(reference, optimized *grid.DataGrid, name string, deep bool) (float64, bool) {
	optimizedAttribute := optimized.SearchAttribute(name)
	referenceAttribute := reference.SearchAttribute(name)
	if optimizedAttribute == nil || referenceAttribute == nil {
		panic("PostOptimizeAttribute: unknown attribute " + name)
	}
	if optimizedAttribute.Type == common.VarPart || referenceAttribute.PartNumber() <= 1 {
		return 0, false
	}

	univariate := buildUnivariateDataGrid(reference, optimized, name)
	attribute := univariate.SearchAttribute(name)
	univariateCosts := NewUnivariateCosts(p.evaluator, univariate, name)
	fine := buildPartFrequencyVectors(univariate, attribute)
	groupOf, groupNumber := initialGroups(attribute, optimizedAttribute)

	target := grid.NewDataGrid()
	targetManager := manager.NewManager(optimized)
	targetManager.ExportAttributes(target)
	for _, a := range target.Attributes() {
		if a.Name != name {
			targetManager.ExportPartsForAttribute(target, a.Name)
		}
	}

	var cost float64
	if attribute.Type == common.Continuous {
		d := &discretizer{
			costs:        univariateCosts,
			fine:         fine,
			maxSteps:     maxStepNumber(reference.GridFrequency(), deep, optimization.LightDiscretizationStep),
			interruption: p.interruption,
		}
		intervals := d.intervalsFromGroups(groupOf)
		if deep {
			intervals, cost = d.postOptimizeDeep(intervals)
		} else {
			intervals, cost = d.postOptimizeLight(intervals)
		}
		manager.BuildPartsOfContinuousAttributeFromFrequencies(referenceAttribute, target.SearchAttribute(name),
			intervalFrequencies(intervals))
	} else {
		g := &grouper{
			costs:        univariateCosts,
			fine:         fine,
			maxSteps:     maxStepNumber(reference.GridFrequency(), deep, optimization.LightGroupingStep),
			useGarbage:   optimizedAttribute.GarbagePart() != nil,
			interruption: p.interruption,
		}
		g.initialize(groupOf, groupNumber)
		cost = g.fastPostOptimize()
		groups, number := g.compactGroups()
		garbage := g.garbageModalityNumber(number, nil)
		manager.BuildPartsOfSymbolAttributeFromGroups(referenceAttribute, target.SearchAttribute(name), groups, number, garbage)
	}
	manager.NewManager(reference).ExportCells(target)
	manager.CopyDataGrid(target, optimized)

	if optimization.Debug {
		if total := p.evaluator.ComputeDataGridTotalCost(optimized); !scalar.EqualWithinRel(total, cost, common.CostEpsilon) {
			panic(fmt.Sprintf("PostOptimizeAttribute %s: univariate cost %f, data grid cost %f", name, cost, total))
		}
	}
	return p.evaluator.ComputeDataGridTotalCost(optimized), true
}

// buildUnivariateDataGrid 待优化属性取reference的初始部分，其它属性取optimized的部分，
// 单元格从reference导出
func buildUnivariateDataGrid(reference, optimized *grid.DataGrid, name string) *grid.DataGrid {
	univariate := grid.NewDataGrid()
	optimizedManager := manager.NewManager(optimized)
	optimizedManager.ExportAttributes(univariate)
	for _, a := range univariate.Attributes() {
		if a.Name != name {
			optimizedManager.ExportPartsForAttribute(univariate, a.Name)
		}
	}
	referenceManager := manager.NewManager(reference)
	referenceManager.ExportPartsForAttribute(univariate, name)
	referenceManager.ExportCells(univariate)
	return univariate
}

// initialGroups 每个初始部分所在的optimized部分的序号
// 连续属性的序号按区间顺序，相邻初始区间序号相同即属于同一区间
func initialGroups(fineAttribute, optimizedAttribute *grid.Attribute) ([]int, int) {
	if optimizedAttribute.Type == common.Continuous && !optimizedAttribute.ArePartsSorted() {
		optimizedAttribute.SortParts()
	}
	optimizedAttribute.BuildIndexingStructure()
	index := make(map[*grid.Part]int, optimizedAttribute.PartNumber())
	for i, part := range optimizedAttribute.Parts() {
		index[part] = i
	}
	groups := make([]int, fineAttribute.PartNumber())
	for i, part := range fineAttribute.Parts() {
		optimizedPart := optimizedAttribute.LookupPart(part)
		group, ok := index[optimizedPart]
		if !ok {
			panic("initialGroups: no optimized part for " + part.Label())
		}
		groups[i] = group
	}
	return groups, optimizedAttribute.PartNumber()
}
