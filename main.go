package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"modl-grid/datagrid/manager"
	"modl-grid/datagrid/param"
	"modl-grid/datagrid/report"
	"modl-grid/share/base/config"
	"modl-grid/share/base/logger"
)

func main() {
	param.Init()
	if err := param.ParseTaskArgs(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%v\nusage:\n%s", err, param.FlagsUsage())
		os.Exit(2)
	}
	param.FlagsPrint(os.Stderr)

	if param.CurrentTask.Serve {
		serve()
		return
	}

	logger.InitConsoleLogger("info")
	defer logger.Sync()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := runTask(ctx, &param.CurrentTask); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

// serve 按配置文件初始化日志，启动http服务
func serve() {
	config.InitConfig()
	all := config.All
	l := all.Logger
	ss := all.Server
	logger.InitLogger(l.Level, "modl-grid", l.Path, l.MaxAge, l.RotationTime, l.RotationSize, ss.SentryDsn)
	defer logger.Sync()

	r := newRouter()
	address := ":" + ss.HttpPort
	logger.Infof("modl-grid listening on %s", address)
	if err := r.Run(address); err != nil {
		logger.Errorf("http server stopped: %v", err)
	}
}

func newRouter() *gin.Engine {
	r := gin.Default()
	r.POST("/modl/optimize", optimize)
	return r
}

// runTask 命令行任务：读csv，优化，打印代价表并写出结果
func runTask(ctx context.Context, task *param.Task) error {
	table, err := manager.ReadTupleTable(task.Input, task.Target)
	if err != nil {
		return err
	}
	j := &job{
		runID:      uuid.NewString(),
		table:      table,
		costs:      task.Costs,
		identifier: task.Identifier,
		inner:      task.Inner,
	}
	res, err := j.run(ctx)
	if err != nil {
		return err
	}
	report.PrintCostTable(os.Stdout, res.summary)

	if task.Output != "" {
		if err = report.WriteCells(task.Output, res.optimized); err != nil {
			return err
		}
	}
	if task.Dot != "" {
		if err = report.WriteDot(task.Dot, res.optimized); err != nil {
			return err
		}
	}
	if task.Report != "" {
		if err = res.summary.WriteYAML(task.Report); err != nil {
			return err
		}
	}
	return nil
}
