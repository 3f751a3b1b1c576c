// Package optimizer 数据网格的多变量优化
//
// 按粒度从粗到细依次粒度化初始网格，在选中的粒度上做贪心合并与后优化
// （或MultiStart、VNS），保留所有粒度中代价最小的网格。
package optimizer

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats/scalar"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/conf/optimization"
	"modl-grid/datagrid/costs"
	"modl-grid/datagrid/grid"
	"modl-grid/datagrid/manager"
	"modl-grid/datagrid/postopt"
	"modl-grid/datagrid/varpart"
	"modl-grid/share/base/logger"
)

// OptimizeDataGrid 用dataGridCosts评价，返回initial的最优粗化及其总代价
func OptimizeDataGrid(ctx context.Context, initial *grid.DataGrid, dataGridCosts costs.DataGridCosts) (*grid.DataGrid, float64) {
	evaluator := grid.NewCostEvaluator(dataGridCosts)
	evaluator.InitializeDefaultCosts(initial)
	optimized := grid.NewDataGrid()
	cost := NewOptimizer(evaluator, common.NewInterruption(ctx)).OptimizeDataGrid(initial, optimized)
	return optimized, cost
}

type Optimizer struct {
	evaluator    *grid.CostEvaluator
	interruption *common.Interruption
	random       *rand.Rand

	merger           *Merger
	postOptimizer    *postopt.PostOptimizer
	varPartOptimizer *varpart.PostOptimizer
}

func NewOptimizer(evaluator *grid.CostEvaluator, interruption *common.Interruption) *Optimizer {
	return &Optimizer{
		evaluator:        evaluator,
		interruption:     interruption,
		random:           rand.New(rand.NewSource(optimization.RandomSeed)),
		merger:           NewMerger(evaluator, interruption),
		postOptimizer:    postopt.NewPostOptimizer(evaluator, interruption),
		varPartOptimizer: varpart.NewPostOptimizer(evaluator, interruption),
	}
}

// resetRandom 每次优化从同一个种子开始，结果可重复
func (o *Optimizer) resetRandom() {
	o.random = rand.New(rand.NewSource(optimization.RandomSeed))
	o.postOptimizer.SetRandom(o.random)
	o.varPartOptimizer.SetRandom(o.random)
}

func (o *Optimizer) newManager(source *grid.DataGrid) *manager.Manager {
	m := manager.NewManager(source)
	m.SetRandom(o.random)
	return m
}

// IsOptimizationNeeded 终端网格是否可能被改进
func IsOptimizationNeeded(g *grid.DataGrid) bool {
	target := g.TargetAttribute()
	switch {
	case target == nil && g.TargetValueNumber() == 1:
		return false
	case target == nil && g.InformativeAttributeNumber() == 0:
		return false
	case target != nil && target.PartNumber() <= 1:
		return false
	case target != nil && g.InformativeAttributeNumber() <= 1:
		return false
	}
	return true
}

// OptimizeDataGrid optimized被替换为最好的网格，返回其代价
func (o *Optimizer) OptimizeDataGrid(initial, optimized *grid.DataGrid) float64 {
	if !o.evaluator.IsInitialized() {
		panic("OptimizeDataGrid: default costs not initialized")
	}
	o.resetRandom()

	bestCost := o.initializeWithTerminalDataGrid(initial, optimized)
	if !IsOptimizationNeeded(initial) {
		logger.Warnf("data grid with %d attributes and %d target values can not be improved, terminal cost %f",
			initial.AttributeNumber(), initial.TargetValueNumber(), bestCost)
		optimized.SortAttributeParts()
		return bestCost
	}

	if initial.IsVarPartDataGrid() {
		// VarPart网格的粒度由内部属性决定，只在初始粒度上优化
		granularized := grid.NewDataGrid()
		manager.CopyDataGrid(initial, granularized)
		cost := o.optimizeGranularizedDataGrid(granularized, optimized, bestCost, true)
		optimized.SortAttributeParts()
		return cost
	}

	for _, a := range initial.Attributes() {
		if !a.ArePartsSorted() {
			a.SortParts()
		}
	}
	initialManager := o.newManager(initial)
	builders := initialManager.InitializeQuantileBuilders()
	granularityMax := GranularityMax(initial)

	previousPartNumbers := make([]int, initial.AttributeNumber())
	currentPartNumbers := make([]int, initial.AttributeNumber())
	currentExplored, lastExplored := -1, -1
	isLast := false
	for granularity := 1; granularity <= granularityMax && !isLast; granularity++ {
		if o.interruption.IsInterruptionRequested() {
			break
		}
		granularized := grid.NewDataGrid()
		initialManager.ExportGranularizedDataGrid(granularized, granularity, builders)
		for i, a := range granularized.Attributes() {
			currentPartNumbers[i] = a.PartNumber()
		}

		isLast = true
		if granularity < granularityMax {
			for i, a := range granularized.Attributes() {
				if currentPartNumbers[i] < builders.MaxPartNumber(a.Name) {
					isLast = false
					break
				}
			}
		}
		if isLast {
			granularized.SetGranularity(granularityMax)
		}

		selected := false
		for i, a := range granularized.Attributes() {
			if currentPartNumbers[i] >= 2*previousPartNumbers[i] && 2*currentPartNumbers[i] <= builders.MaxPartNumber(a.Name) {
				selected = true
				break
			}
		}
		if granularized.InformativeAttributeNumber() <= 1 {
			selected = false
		}
		if !selected && !isLast {
			continue
		}

		lastExplored, currentExplored = currentExplored, granularity
		granularizedOptimized := grid.NewDataGrid()
		granularityCost := o.initializeWithTerminalDataGrid(granularized, granularizedOptimized)
		granularityCost = o.optimizeGranularizedDataGrid(granularized, granularizedOptimized, granularityCost, isLast)
		logger.Infof("granularity %d/%d: cost %f, best %f", granularized.Granularity(), granularityMax, granularityCost, bestCost)
		if granularityCost < bestCost {
			bestCost = granularityCost
			manager.CopyDataGrid(granularizedOptimized, optimized)
		}
		copy(previousPartNumbers, currentPartNumbers)
	}

	if lastExplored != -1 && optimized.Granularity() > lastExplored+1 {
		bestCost = o.PostOptimizeGranularity(initial, optimized, builders, lastExplored)
	}
	optimized.SortAttributeParts()
	return bestCost
}

// GranularityMax log2(N)，大样本的二维监督网格使用更小的上限
func GranularityMax(initial *grid.DataGrid) int {
	n := initial.GridFrequency()
	if n <= 1 {
		return 1
	}
	threshold := optimization.SupervisedSizeThreshold
	thresholded := false
	target := initial.TargetAttribute()
	switch {
	case target != nil && initial.TargetValueNumber() == 0 && initial.AttributeNumber() == 2 &&
		initial.AttributeAt(0).Type == common.Continuous && n > threshold:
		thresholded = true
	case initial.TargetValueNumber() > 0 && initial.AttributeNumber() == 2 && n > threshold:
		thresholded = true
	}
	var granularityMax int
	if thresholded {
		excess := float64(n - threshold)
		granularityMax = int(math.Ceil(math.Log2(float64(threshold) + math.Sqrt(excess*math.Log2(excess)))))
	} else {
		granularityMax = int(math.Ceil(math.Log2(float64(n))))
	}
	if optimization.MaxGranularity > 0 && optimization.MaxGranularity < granularityMax {
		granularityMax = optimization.MaxGranularity
	}
	return max(granularityMax, 1)
}

// initializeWithTerminalDataGrid 终端网格的信息属性（没有）复制到optimized
func (o *Optimizer) initializeWithTerminalDataGrid(initial, optimized *grid.DataGrid) float64 {
	terminal := grid.NewDataGrid()
	manager.NewManager(initial).ExportTerminalDataGrid(terminal)
	manager.CopyInformativeDataGrid(terminal, optimized)
	cost := o.evaluator.ComputeDataGridTotalCost(optimized)
	if optimization.Debug && initial.Granularity() == 0 && !scalar.EqualWithinRel(cost, o.evaluator.TotalDefaultCost(), common.CostEpsilon) {
		panic(fmt.Sprintf("terminal data grid cost %f, default cost %f", cost, o.evaluator.TotalDefaultCost()))
	}
	return cost
}

// optimizeGranularizedDataGrid optimized从终端网格开始，cost是它的代价
func (o *Optimizer) optimizeGranularizedDataGrid(granularized, optimized *grid.DataGrid, cost float64, isLast bool) float64 {
	if !IsOptimizationNeeded(granularized) {
		return cost
	}
	switch optimization.Algorithm {
	case optimization.AlgorithmMultiStart:
		cost = o.multiStartOptimize(granularized, optimized, cost)
	case optimization.AlgorithmVNS:
		cost = o.vnsOptimize(granularized, optimized, cost, isLast)
	default:
		cost = o.greedyOptimize(granularized, optimized, cost)
	}
	optimized.SortAttributeParts()
	if optimization.Debug {
		if total := o.evaluator.ComputeDataGridTotalCost(optimized); !scalar.EqualWithinRel(total, cost, common.CostEpsilon) {
			panic(fmt.Sprintf("optimizeGranularizedDataGrid: cost %f, data grid cost %f", cost, total))
		}
	}
	return cost
}

// optimizeSolution 合并后再做单变量后优化，VarPart网格最后移动变量部分
func (o *Optimizer) optimizeSolution(granularized, g *grid.DataGrid, deep bool) float64 {
	cost := o.merger.OptimizeMerge(g)
	if o.interruption.IsInterruptionRequested() {
		return cost
	}
	if granularized.AttributeNumber() > 1 {
		cost = o.postOptimizer.PostOptimizeDataGrid(granularized, g, deep)
	}
	if g.IsVarPartDataGrid() && g.InformativeAttributeNumber() > 0 {
		if o.varPartOptimizer.PostOptimizeLightVarPartDataGrid(granularized, g) {
			cost = o.evaluator.ComputeDataGridTotalCost(g)
		}
	}
	return cost
}

// greedyOptimize 从粒度化网格本身开始合并
func (o *Optimizer) greedyOptimize(granularized, optimized *grid.DataGrid, bestCost float64) float64 {
	work := grid.NewDataGrid()
	manager.CopyDataGrid(granularized, work)
	cost := o.optimizeSolution(granularized, work, optimization.DeepPostOptimization)
	if cost < bestCost-common.Epsilon {
		bestCost = cost
		manager.CopyInformativeDataGrid(work, optimized)
	}
	return bestCost
}

// multiStartOptimize 2^level个随机网格作为起点
func (o *Optimizer) multiStartOptimize(granularized, optimized *grid.DataGrid, bestCost float64) float64 {
	frequency := granularized.GridFrequency()
	m := o.newManager(granularized)
	tryNumber := 1 << max(optimization.OptimizationLevel, 0)
	for try := 0; try < tryNumber && !o.interruption.IsInterruptionRequested(); try++ {
		attributeNumber := 1 + o.random.Intn(int(math.Log2(float64(frequency)))+1)
		attributeNumber = min(max(attributeNumber, 2), granularized.AttributeNumber())
		partNumber := 2 + 2*o.random.Intn(int(math.Pow(float64(frequency), 1/float64(attributeNumber)))+1)
		partNumber = min(partNumber, frequency)

		work := grid.NewDataGrid()
		m.ExportRandomAttributes(work, attributeNumber)
		m.ExportRandomParts(work, partNumber)
		m.ExportCells(work)
		cost := o.optimizeSolution(granularized, work, optimization.DeepPostOptimization)
		logger.Debugf("multi-start try %d: %d attributes, %d parts, cost %f", try, attributeNumber, partNumber, cost)
		if cost < bestCost-common.Epsilon {
			bestCost = cost
			manager.CopyInformativeDataGrid(work, optimized)
		}
	}
	return bestCost
}

// vnsOptimize 每一级的邻域个数加倍，邻域大小从1按几何级数减小到最小邻域
func (o *Optimizer) vnsOptimize(granularized, optimized *grid.DataGrid, bestCost float64, isLast bool) float64 {
	// 共聚类的中间粒度只做一轮
	slight := granularized.TargetValueNumber() == 0 && granularized.TargetAttribute() == nil && !isLast
	maxLevel := max(optimization.OptimizationLevel, 1)
	minNeighbourhoodSize := 3.0 / float64(3+granularized.GridFrequency())

	for level := 0; level < maxLevel; level++ {
		current := grid.NewDataGrid()
		manager.CopyDataGrid(optimized, current)
		indexNumber := 1 << level
		decreaseFactor := 1 / math.Pow(minNeighbourhoodSize, 1/float64(indexNumber+1))
		cost := o.vnsOptimizeDataGrid(granularized, current, bestCost, decreaseFactor, indexNumber, slight)
		if cost < bestCost-common.Epsilon {
			bestCost = cost
			manager.CopyInformativeDataGrid(current, optimized)
		}
		if o.interruption.IsInterruptionRequested() || slight {
			break
		}
	}
	return bestCost
}

// vnsOptimizeDataGrid 没有改进时才进入更小的邻域
func (o *Optimizer) vnsOptimizeDataGrid(granularized, current *grid.DataGrid, bestCost, decreaseFactor float64,
	maxIndex int, slight bool) float64 {
	for index := 0; index <= maxIndex; {
		size := math.Pow(1/decreaseFactor, float64(index))
		neighbour := o.generateNeighbourSolution(granularized, current, size)
		cost := o.optimizeSolution(granularized, neighbour, optimization.DeepPostOptimization && !slight)
		logger.Debugf("vns neighbourhood %d (size %f): cost %f, best %f", index, size, cost, bestCost)
		if cost < bestCost-common.Epsilon {
			bestCost = cost
			manager.CopyInformativeDataGrid(neighbour, current)
		} else {
			index++
		}
		if o.interruption.IsInterruptionRequested() || slight {
			break
		}
	}
	return bestCost
}

// generateNeighbourSolution 保留current的部分属性与划分，再随机增加属性与切分
// noiseRate越大，保留越少，增加越多
func (o *Optimizer) generateNeighbourSolution(granularized, current *grid.DataGrid, noiseRate float64) *grid.DataGrid {
	gridSize := max(granularized.CellNumber(), 1)
	attributeNumber := int(noiseRate * float64(1+int(math.Log2(float64(gridSize)))))
	attributeNumber = min(max(attributeNumber, 2), granularized.AttributeNumber())

	maxPartNumber := int(math.Pow(float64(gridSize), 1/float64(attributeNumber)))
	maxPartNumber = max(min(maxPartNumber, gridSize), 2)
	maxContinuousPartNumber := min(int(float64(gridSize)/math.Log(float64(gridSize)+1)), maxPartNumber)
	maxSymbolPartNumber := min(int(math.Sqrt(float64(gridSize))), maxPartNumber)
	frequency := granularized.GridFrequency()
	continuousPartNumber := min(1+int(noiseRate*float64(maxContinuousPartNumber)), frequency)
	symbolPartNumber := min(1+int(noiseRate*float64(maxSymbolPartNumber)), frequency)

	mandatory := grid.NewDataGrid()
	mandatoryNumber := int(math.Ceil((1 - noiseRate) * float64(current.AttributeNumber())))
	o.newManager(current).ExportRandomAttributes(mandatory, min(mandatoryNumber, current.AttributeNumber()))

	neighbour := grid.NewDataGrid()
	m := o.newManager(granularized)
	m.AddRandomAttributes(neighbour, mandatory, max(attributeNumber, mandatory.AttributeNumber()))
	m.AddRandomParts(neighbour, current, continuousPartNumber, symbolPartNumber, 1.0)
	m.ExportCells(neighbour)
	return neighbour
}

// PostOptimizeGranularity 给optimized标记与其划分兼容的最小粒度，
// 从optimized的粒度向下尝试到lastExplored+1为止，保留代价最小的标记
func (o *Optimizer) PostOptimizeGranularity(initial, optimized *grid.DataGrid, builders *manager.QuantileBuilders, lastExplored int) float64 {
	bestCost := o.evaluator.ComputeDataGridTotalCost(optimized)
	bestGranularity := optimized.Granularity()
	bestValueNumbers := granularizedValueNumbers(optimized)
	for _, a := range optimized.Attributes() {
		// 垃圾组的模态数依赖于粒度
		if a.GarbagePart() != nil {
			return bestCost
		}
	}

	initialManager := o.newManager(initial)
	for granularity := optimized.Granularity() - 1; granularity > lastExplored; granularity-- {
		granularized := grid.NewDataGrid()
		initialManager.ExportGranularizedDataGrid(granularized, granularity, builders)
		granularizedManager := manager.NewManager(granularized)
		if err := granularizedManager.CheckParts(optimized); err != nil {
			logger.Debugf("granularity %d incompatible with the optimized partition: %v", granularity, err)
			break
		}
		compatible := true
		for _, a := range optimized.Attributes() {
			if a.PartNumber() > granularized.SearchAttribute(a.Name).GranularizedValueNumber {
				compatible = false
			}
		}
		if !compatible {
			break
		}
		optimized.SetGranularity(granularity)
		for _, a := range optimized.Attributes() {
			a.GranularizedValueNumber = granularized.SearchAttribute(a.Name).GranularizedValueNumber
		}
		if cost := o.evaluator.ComputeDataGridTotalCost(optimized); cost < bestCost+common.Epsilon {
			bestCost = cost
			bestGranularity = granularity
			bestValueNumbers = granularizedValueNumbers(optimized)
		}
	}

	optimized.SetGranularity(bestGranularity)
	for _, a := range optimized.Attributes() {
		a.GranularizedValueNumber = bestValueNumbers[a.Name]
	}
	return bestCost
}

func granularizedValueNumbers(g *grid.DataGrid) map[string]int {
	numbers := make(map[string]int, g.AttributeNumber())
	for _, a := range g.Attributes() {
		numbers[a.Name] = a.GranularizedValueNumber
	}
	return numbers
}
