package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"modl-grid/datagrid/common"
	"modl-grid/datagrid/manager"
	"modl-grid/datagrid/param"
	"modl-grid/share/base/config"
	"modl-grid/share/base/logger"
	"modl-grid/utils"
)

// OptimizeRequest 一张元组表，Types为空时由值推断
type OptimizeRequest struct {
	Columns    []string   `json:"columns" binding:"required"`
	Types      []string   `json:"types"`
	Target     string     `json:"target"`
	Identifier string     `json:"identifier"`
	Inner      []string   `json:"inner"`
	Costs      string     `json:"costs"`
	Rows       [][]string `json:"rows" binding:"required"`
	Timeout    int        `json:"timeout"` //单位：秒，0时取配置
}

// toJob 检查请求并转换为一次优化
func (r *OptimizeRequest) toJob(maxTupleNumber int) (*job, error) {
	if maxTupleNumber > 0 && len(r.Rows) > maxTupleNumber {
		return nil, fmt.Errorf("%w: %d > %d", utils.ErrTooManyTuples, len(r.Rows), maxTupleNumber)
	}
	costsName := r.Costs
	if costsName == "" {
		costsName = param.CostsClassification
		if r.Target == "" {
			costsName = param.CostsClustering
		}
	}

	var table *manager.TupleTable
	if len(r.Types) == 0 {
		inferred, err := manager.NewTupleTable(r.Columns, r.Rows, r.Target)
		if err != nil {
			return nil, err
		}
		table = inferred
	} else {
		if len(r.Types) != len(r.Columns) {
			return nil, fmt.Errorf("%w: %d columns, %d types", utils.ErrParameter, len(r.Columns), len(r.Types))
		}
		table = &manager.TupleTable{Columns: r.Columns, TargetName: r.Target, Rows: r.Rows}
		for _, s := range r.Types {
			t, err := common.ParseAttributeType(s)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", utils.ErrWrongDataType, err)
			}
			table.Types = append(table.Types, t)
		}
	}
	return &job{
		runID:      uuid.NewString(),
		table:      table,
		costs:      costsName,
		identifier: r.Identifier,
		inner:      r.Inner,
	}, nil
}

func requestTimeout(r *OptimizeRequest) time.Duration {
	if r.Timeout > 0 {
		return time.Duration(r.Timeout) * time.Second
	}
	if config.All != nil && config.All.Server.RequestTimeout > 0 {
		return config.All.Server.RequestTimeout * time.Second
	}
	return 10 * time.Minute
}

func maxTupleNumber() int {
	if config.All == nil {
		return 0
	}
	return config.All.Server.MaxTupleNumber
}

// optimize POST /modl/optimize
func optimize(c *gin.Context) {
	var requestJson OptimizeRequest
	if err := c.ShouldBindJSON(&requestJson); err != nil {
		logger.Warnf("bad optimize request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}
	j, err := requestJson.toJob(maxTupleNumber())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"code":    utils.Code(err),
			"error":   err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout(&requestJson))
	defer cancel()
	res, err := j.run(ctx)
	if err != nil {
		logger.With("run_id", j.runID).Errorf("optimize failed: %v", err)
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"run_id":  j.runID,
			"code":    utils.Code(err),
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"run_id":      j.runID,
		"cost":        res.summary.Cost,
		"interrupted": errors.Is(ctx.Err(), context.DeadlineExceeded),
		"summary":     res.summary,
		"spent_time":  res.spent.String(),
	})
}
