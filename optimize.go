package main

import (
	"context"
	"fmt"
	"time"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/grid"
	"modl-grid/datagrid/manager"
	"modl-grid/datagrid/optimizer"
	"modl-grid/datagrid/param"
	"modl-grid/datagrid/report"
	"modl-grid/share/base/logger"
	"modl-grid/utils"
)

// job 一次优化：元组表、代价模型以及VarPart网格的实例列和内部属性
type job struct {
	runID      string
	table      *manager.TupleTable
	costs      string
	identifier string
	inner      []string
}

// result 优化后的网格及其摘要
type result struct {
	initial   *grid.DataGrid
	optimized *grid.DataGrid
	summary   *report.Summary
	spent     time.Duration
}

// buildInitialDataGrid 按代价模型选择构造方式
func (j *job) buildInitialDataGrid() (*grid.DataGrid, error) {
	switch j.costs {
	case param.CostsClassification:
		if j.table.TargetName == "" {
			return nil, fmt.Errorf("%w: classification needs a target", utils.ErrParameter)
		}
		return manager.BuildDataGridFromTuples(j.table)
	case param.CostsRegression:
		if err := j.table.SetColumnType(j.table.TargetName, common.Continuous); err != nil {
			return nil, err
		}
		return manager.BuildRegressionDataGridFromTuples(j.table)
	case param.CostsClustering:
		table := *j.table
		table.TargetName = ""
		return manager.BuildDataGridFromTuples(&table)
	case param.CostsVarPart:
		// 数值型的实例标识也按离散值处理
		if err := j.table.SetColumnType(j.identifier, common.Symbol); err != nil {
			return nil, err
		}
		return manager.BuildVarPartDataGridFromTuples(j.table, j.identifier, j.inner)
	}
	return nil, fmt.Errorf("%w: costs %s", utils.ErrParameter, j.costs)
}

// run 构造最细网格，优化，生成摘要
func (j *job) run(ctx context.Context) (*result, error) {
	log := logger.With("run_id", j.runID)
	start := time.Now()
	dataGridCosts, err := param.NewCosts(j.costs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrParameter, err)
	}
	initial, err := j.buildInitialDataGrid()
	if err != nil {
		return nil, err
	}
	log.Infof("optimize %d tuples, %d attributes, costs %s", initial.GridFrequency(), initial.AttributeNumber(), j.costs)

	optimized, cost := optimizer.OptimizeDataGrid(ctx, initial, dataGridCosts)
	if ctx.Err() != nil {
		log.Warnf("optimization interrupted: %v", ctx.Err())
	}

	evaluator := grid.NewCostEvaluator(dataGridCosts)
	evaluator.InitializeDefaultCosts(initial)
	summary := report.NewSummary(j.runID, evaluator, optimized)
	summary.Cost = cost
	spent := time.Since(start)
	log.Infof("optimized cost %f, default cost %f, level %f, %d attributes, spent %v",
		cost, summary.DefaultCost, summary.CompressionLevel, optimized.AttributeNumber(), spent)
	return &result{initial: initial, optimized: optimized, summary: summary, spent: spent}, nil
}
