package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"modl-grid/datagrid/param"
	"modl-grid/datagrid/report"
	"modl-grid/utils"
)

func pureRows() [][]string {
	var rows [][]string
	for i := 1; i <= 10; i++ {
		class := "A"
		if i > 5 {
			class = "B"
		}
		rows = append(rows, []string{strconv.Itoa(i), class})
	}
	return rows
}

type optimizeResponse struct {
	Success bool            `json:"success"`
	RunID   string          `json:"run_id"`
	Cost    float64         `json:"cost"`
	Code    uint32          `json:"code"`
	Summary *report.Summary `json:"summary"`
}

func post(t *testing.T, body interface{}) (int, optimizeResponse) {
	gin.SetMode(gin.TestMode)
	data, err := json.Marshal(body)
	require.NoError(t, err)
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/modl/optimize", bytes.NewReader(data))
	request.Header.Set("Content-Type", "application/json")
	newRouter().ServeHTTP(recorder, request)

	var response optimizeResponse
	if recorder.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	}
	return recorder.Code, response
}

func TestOptimizeHandler(t *testing.T) {
	code, response := post(t, OptimizeRequest{
		Columns: []string{"X", "Class"},
		Target:  "Class",
		Rows:    pureRows(),
	})
	require.Equal(t, http.StatusOK, code)
	require.True(t, response.Success)
	require.NotEmpty(t, response.RunID)
	require.NotNil(t, response.Summary)
	require.Less(t, response.Cost, response.Summary.DefaultCost)
	require.Len(t, response.Summary.Attributes, 1)
	require.Equal(t, 2, response.Summary.Attributes[0].PartNumber)

	code, response = post(t, OptimizeRequest{
		Columns: []string{"X", "Class"},
		Types:   []string{"continuous", "interval"},
		Target:  "Class",
		Rows:    pureRows(),
	})
	require.Equal(t, http.StatusOK, code)
	require.False(t, response.Success)
	require.Equal(t, utils.ErrWrongDataType.Code, response.Code)

	code, _ = post(t, map[string]interface{}{"columns": []string{"X"}})
	require.Equal(t, http.StatusBadRequest, code)
}

func TestRunTask(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "tuples.csv")
	require.NoError(t, utils.WriteCsv(input, append([][]string{{"X", "Class"}}, pureRows()...)))

	task := &param.Task{
		Input:  input,
		Target: "Class",
		Costs:  param.CostsClassification,
		Output: filepath.Join(dir, "cells.csv"),
		Dot:    filepath.Join(dir, "grid.dot"),
		Report: filepath.Join(dir, "summary.yml"),
	}
	require.NoError(t, runTask(context.Background(), task))

	summary, err := report.ReadYAML(task.Report)
	require.NoError(t, err)
	require.Len(t, summary.Attributes, 1)
	_, records, err := utils.ReadCsv(task.Output)
	require.NoError(t, err)
	require.Len(t, records, 2)

	task.Input = filepath.Join(dir, "missing.csv")
	require.ErrorIs(t, runTask(context.Background(), task), utils.ErrOpenCsv)
}
