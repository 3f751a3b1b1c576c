// Package param 命令行参数：任务的输入输出以及写入conf/optimization的优化参数
package param

import (
	"errors"
	"fmt"
	"sync"

	"modl-grid/datagrid/cmd"
	"modl-grid/datagrid/conf/optimization"
	"modl-grid/datagrid/costs"
)

const (
	CostsClassification = "classification"
	CostsRegression     = "regression"
	CostsClustering     = "clustering"
	CostsVarPart        = "varpart"
)

// Task 一次命令行优化任务
type Task struct {
	Input      string   // csv文件，第一行是表头
	Target     string   // 目标列，为空时是非监督
	Identifier string   // VarPart网格的实例标识列
	Inner      []string // VarPart网格的内部属性
	Costs      string
	Output     string // 优化后网格的csv，每个单元格一行
	Dot        string // graphviz文件
	Report     string // yaml摘要
	Serve      bool   // 启动http服务
}

var CurrentTask = Task{Costs: CostsClassification}

var initOnce sync.Once

// Init 注册所有参数，只注册一次
func Init() {
	initOnce.Do(func() {
		initTaskArgs()
		initOptimizationArgs()
		FlagsPrintPriority()
	})
}

func initTaskArgs() {
	task := &CurrentTask
	err := AddCmdArgs(
		&cmd.Flag{Name: "input", Aliases: []string{"i"}, Usage: "--input --i, csv file of the tuple table",
			FlagValue: cmd.NewStringValue(&task.Input, nil)},
		&cmd.Flag{Name: "target", Aliases: []string{"t"}, Usage: "--target --t, target column of a supervised grid",
			FlagValue: cmd.NewStringValue(&task.Target, nil)},
		&cmd.Flag{Name: "identifier", Aliases: []string{"id"}, Usage: "--identifier --id, instance column of a VarPart grid",
			FlagValue: cmd.NewStringValue(&task.Identifier, nil)},
		&cmd.Flag{Name: "inner", Usage: "--inner, inner attributes of a VarPart grid",
			FlagValue: cmd.NewStringListValue(&task.Inner)},
		&cmd.Flag{Name: "costs", Usage: "--costs, classification|regression|clustering|varpart",
			FlagValue: cmd.NewStringValue(&task.Costs, validateCosts)},
		&cmd.Flag{Name: "output", Aliases: []string{"o"}, Usage: "--output --o, csv file of the optimized cells",
			FlagValue: cmd.NewStringValue(&task.Output, nil)},
		&cmd.Flag{Name: "dot", Usage: "--dot, graphviz file of the optimized grid",
			FlagValue: cmd.NewStringValue(&task.Dot, nil)},
		&cmd.Flag{Name: "report", Usage: "--report, yaml summary of the optimized grid",
			FlagValue: cmd.NewStringValue(&task.Report, nil)},
		&cmd.Flag{Name: "serve", Usage: "--serve, start the http service",
			FlagValue: cmd.NewNoArgBoolValue(&task.Serve)},
	)
	if err != nil {
		panic(err)
	}
}

func initOptimizationArgs() {
	var optimizationSettings = cmd.NewSecondaryValue(make(map[string]cmd.Value), nil)
	var varPartSettings = cmd.NewSecondaryValue(make(map[string]cmd.Value), nil)
	err := AddCmdArgs(
		&cmd.Flag{Name: "optimization", Aliases: []string{"opt"}, Usage: "--optimization --opt, data grid optimization parameters",
			FlagValue: optimizationSettings},
		&cmd.Flag{Name: "varpart", Usage: "--varpart, VarPart post-optimization parameters",
			FlagValue: varPartSettings},
		&cmd.Flag{Name: "debug", Usage: "--debug, check every exported data grid",
			FlagValue: cmd.NewNoArgBoolValue(&optimization.Debug)},
	)
	if err != nil {
		panic(err)
	}

	mustAdd(optimizationSettings, "granularity-max", cmd.NewIntValue(&optimization.MaxGranularity, nonNegative))
	mustAdd(optimizationSettings, "deep", &cmd.BoolCmdValue{Destination: &optimization.DeepPostOptimization})
	mustAdd(optimizationSettings, "algorithm", cmd.NewStringValue(&optimization.Algorithm, func(valueToCheck string) error {
		switch valueToCheck {
		case optimization.AlgorithmGreedy, optimization.AlgorithmMultiStart, optimization.AlgorithmVNS:
			return nil
		}
		return fmt.Errorf("expected greedy|multistart|vns, but got '%s'", valueToCheck)
	}))
	mustAdd(optimizationSettings, "level", cmd.NewIntValue(&optimization.OptimizationLevel, func(valueToCheck int) error {
		if valueToCheck < 0 || valueToCheck > 20 {
			return fmt.Errorf("expected value in range [0, 20], but got '%v'", valueToCheck)
		}
		return nil
	}))
	mustAdd(optimizationSettings, "seed", cmd.NewInt64Value(&optimization.RandomSeed, nil))

	mustAdd(varPartSettings, "policy", cmd.NewStringValue(&optimization.VarPartPolicy, func(valueToCheck string) error {
		if valueToCheck != optimization.VarPartFirstImprovement && valueToCheck != optimization.VarPartBestImprovement {
			return fmt.Errorf("expected first|best, but got '%s'", valueToCheck)
		}
		return nil
	}))
	mustAdd(varPartSettings, "max-pass", cmd.NewIntValue(&optimization.VarPartMaxPass, func(valueToCheck int) error {
		if valueToCheck < 1 {
			return fmt.Errorf("expected value in range [1, ∞), but got '%v'", valueToCheck)
		}
		return nil
	}))
}

func mustAdd(settings *cmd.SecondaryValue, key string, value cmd.Value) {
	if err := settings.AddSubValue(key, value); err != nil {
		panic(err)
	}
}

func nonNegative(valueToCheck int) error {
	if valueToCheck < 0 {
		return fmt.Errorf("expected value in range [0, ∞), but got '%v'", valueToCheck)
	}
	return nil
}

func validateCosts(valueToCheck string) error {
	if _, err := NewCosts(valueToCheck); err != nil {
		return err
	}
	return nil
}

// ParseTaskArgs 解析命令行并检查任务的一致性
func ParseTaskArgs(args []string) error {
	Init()
	if err := ParseFlagsWithArgs(args); err != nil {
		return err
	}
	return CurrentTask.Check()
}

// Check 输入文件和代价模型的组合是否合法
func (task *Task) Check() error {
	if task.Serve {
		return nil
	}
	if task.Input == "" {
		return errors.New("flag is required but not set: '--input'")
	}
	switch task.Costs {
	case CostsClassification, CostsRegression:
		if task.Target == "" {
			return fmt.Errorf("costs %s needs a target column", task.Costs)
		}
	case CostsVarPart:
		if task.Identifier == "" || len(task.Inner) == 0 {
			return errors.New("costs varpart needs an identifier and inner attributes")
		}
	}
	return nil
}

// NewCosts 按名字创建代价模型
func NewCosts(name string) (costs.DataGridCosts, error) {
	switch name {
	case CostsClassification:
		return costs.NewClassificationCosts(), nil
	case CostsRegression:
		return costs.NewRegressionCosts(), nil
	case CostsClustering:
		return costs.NewClusteringCosts(), nil
	case CostsVarPart:
		return costs.NewVarPartClusteringCosts(), nil
	}
	return nil, fmt.Errorf("unknown costs '%s', expected classification|regression|clustering|varpart", name)
}
