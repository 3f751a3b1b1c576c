// Package varpart 实例 × 变量协同聚类的VarPart后优化：把变量部分移到相邻的簇中，
// 并与该簇中同一内部属性的变量部分融合
package varpart

import (
	"fmt"
	"math/rand"

	mapset "github.com/deckarep/golang-set"
	"github.com/yourbasic/bit"
	"gonum.org/v1/gonum/floats/scalar"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/conf/optimization"
	"modl-grid/datagrid/grid"
	"modl-grid/datagrid/manager"
	"modl-grid/share/base/logger"
)

type PostOptimizer struct {
	evaluator    *grid.CostEvaluator
	interruption *common.Interruption
	random       *rand.Rand
	policy       string
	maxPass      int
}

func NewPostOptimizer(evaluator *grid.CostEvaluator, interruption *common.Interruption) *PostOptimizer {
	return &PostOptimizer{
		evaluator:    evaluator,
		interruption: interruption,
		random:       rand.New(rand.NewSource(optimization.RandomSeed)),
		policy:       optimization.VarPartPolicy,
		maxPass:      optimization.VarPartMaxPass,
	}
}

func (p *PostOptimizer) SetRandom(random *rand.Rand) {
	(*p).random = random
}

// SetPolicy first或best，其它值按first处理
func (p *PostOptimizer) SetPolicy(policy string, maxPass int) {
	(*p).policy = policy
	if maxPass > 0 {
		(*p).maxPass = maxPass
	}
}

// PostOptimizeLightVarPartDataGrid 在optimized上移动变量部分，reference是簇只含一个变量部分的粒度化网格
// 有改进时optimized被替换为新的网格（拥有自己的内部属性），返回是否有改进
func (p *PostOptimizer) PostOptimizeLightVarPartDataGrid(reference, optimized *grid.DataGrid) bool {
	if !optimized.IsVarPartDataGrid() || optimized.VarPartAttribute().PartNumber() < 2 {
		return false
	}
	initialCost := p.evaluator.ComputeDataGridTotalCost(optimized)
	s, err := newState(p.evaluator.Costs(), reference, optimized, initialCost)
	if err != nil {
		logger.Warnf("varpart post-optimization skipped: %v", err)
		return false
	}

	touched := mapset.NewSet()
	for pass := 0; pass < p.maxPass && !p.interruption.IsInterruptionRequested(); pass++ {
		var moved int
		if p.policy == optimization.VarPartBestImprovement {
			moved = p.bestImprovementPass(s, touched)
		} else {
			moved = p.firstImprovementPass(s, touched)
		}
		logger.Debugf("varpart post-optimization pass %d, %d moves, cost %f", pass, moved, s.cost)
		if moved == 0 {
			break
		}
	}
	if touched.Cardinality() == 0 {
		return false
	}

	s.rebuild(reference)
	if optimization.Debug {
		if total := p.evaluator.ComputeDataGridTotalCost(optimized); !scalar.EqualWithinRel(total, s.cost, common.CostEpsilon) {
			panic(fmt.Sprintf("PostOptimizeLightVarPartDataGrid: incremental cost %f, data grid cost %f", s.cost, total))
		}
		if err := manager.NewManager(reference).CheckDataGrid(optimized); err != nil {
			panic(err)
		}
	}
	logger.Infof("varpart post-optimization, inner attributes %v, cost %f -> %f", touched.ToSlice(), initialCost, s.cost)
	return true
}

// firstImprovementPass 随机顺序遍历变量部分，找到改进立即应用，涉及的两个簇在本轮冻结
func (p *PostOptimizer) firstImprovementPass(s *state, touched mapset.Set) int {
	candidates := s.allVarParts()
	frozen := bit.New()
	isFrozen := func(c *cluster) bool { return frozen.Contains(c.index) }
	moved := 0
	for _, i := range p.random.Perm(len(candidates)) {
		if p.interruption.IsInterruptionRequested() {
			break
		}
		v := candidates[i]
		if v.cluster == nil || isFrozen(v.cluster) {
			continue
		}
		m := s.bestMove(v, s.attributeCost(), isFrozen)
		if m == nil || m.delta >= -common.Epsilon {
			continue
		}
		frozen.Add(v.cluster.index).Add(m.target.index)
		s.apply(m)
		touched.Add(v.inner.Name)
		moved++
	}
	return moved
}

// bestImprovementPass 只应用所有变量部分中最好的一个移动
func (p *PostOptimizer) bestImprovementPass(s *state, touched mapset.Set) int {
	attributeCost := s.attributeCost()
	var best *move
	for _, v := range s.allVarParts() {
		if m := s.bestMove(v, attributeCost, nil); m != nil && (best == nil || m.delta < best.delta) {
			best = m
		}
	}
	if best == nil || best.delta >= -common.Epsilon {
		return 0
	}
	s.apply(best)
	touched.Add(best.v.inner.Name)
	return 1
}

// allVarParts 按内部属性的顺序列出当前的变量部分
func (s *state) allVarParts() []*varPart {
	var result []*varPart
	for _, inner := range s.inner {
		result = append(result, s.varParts[inner]...)
	}
	return result
}
