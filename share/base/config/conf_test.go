package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"modl-grid/datagrid/conf/optimization"
)

const testConfig = `
server_config:
  http_port: "8088"
logger_config:
  level: info
  max_age: 3
optimization_config:
  deep_post_optimization: true
  algorithm: vns
  optimization_level: 3
  varpart_policy: best
`

const testDebugConfig = `
optimization_config:
  debug: true
  max_granularity: 4
`

func writeConfig(t *testing.T) string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(testConfig), 0o644))
	debugDir := filepath.Join(dir, "debug")
	require.NoError(t, os.MkdirAll(debugDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(debugDir, "debug.yml"), []byte(testDebugConfig), 0o644))
	return dir
}

func restore(t *testing.T) {
	defaultPath, debugPath := DefaultPath, DebugPath
	algorithm, level, policy := optimization.Algorithm, optimization.OptimizationLevel, optimization.VarPartPolicy
	debug, maxGranularity := optimization.Debug, optimization.MaxGranularity
	t.Cleanup(func() {
		DefaultPath, DebugPath = defaultPath, debugPath
		optimization.Algorithm, optimization.OptimizationLevel, optimization.VarPartPolicy = algorithm, level, policy
		optimization.Debug, optimization.MaxGranularity = debug, maxGranularity
	})
}

func TestInitConfig(t *testing.T) {
	restore(t)
	dir := writeConfig(t)
	DefaultPath = dir
	DebugPath = filepath.Join(dir, "debug")

	InitConfig()
	require.Equal(t, "8088", All.Server.HttpPort)
	require.Equal(t, 1000000, All.Server.MaxTupleNumber)
	require.EqualValues(t, 3, All.Logger.MaxAge)
	require.Equal(t, optimization.AlgorithmVNS, optimization.Algorithm)
	require.Equal(t, 3, optimization.OptimizationLevel)
	require.Equal(t, optimization.VarPartBestImprovement, optimization.VarPartPolicy)
	require.False(t, optimization.Debug)
	require.Equal(t, int64(optimization.DefaultRandomSeed), All.Optimization.RandomSeed)
}

func TestInitConfigDebugOverlay(t *testing.T) {
	restore(t)
	dir := writeConfig(t)
	DefaultPath = dir
	DebugPath = filepath.Join(dir, "debug")
	t.Setenv("DEBUG", "true")

	InitConfig()
	require.True(t, optimization.Debug)
	require.Equal(t, 4, optimization.MaxGranularity)
	// 覆盖之外的配置保留
	require.Equal(t, optimization.AlgorithmVNS, optimization.Algorithm)
	require.Equal(t, "8088", All.Server.HttpPort)
}
