// Package logger 全局日志，基于zap的SugaredLogger
package logger

import (
	"time"

	"go.uber.org/zap"
)

var sugar = zap.NewNop().Sugar()

// InitLogger 初始化全局日志，未初始化时日志被丢弃
func InitLogger(level, project, logPath string, maxAge, rotationTime time.Duration, rotationSize uint32, dsn string) {
	l := initZap(Options{
		Level:        level,
		ProjectName:  project,
		Path:         logPath,
		MaxAge:       maxAge,
		RotationTime: rotationTime,
		RotationSize: rotationSize,
		SentryDsn:    dsn,
	})
	sugar = l.Sugar()
}

// InitConsoleLogger 只输出到控制台，命令行和测试使用
func InitConsoleLogger(level string) {
	sugar = initZap(Options{Level: level}).Sugar()
}

// With 带上固定字段的子logger，比如一次优化的run id
func With(args ...interface{}) *zap.SugaredLogger {
	return sugar.With(args...)
}

func Sync() {
	_ = sugar.Sync()
}

func Debug(args ...interface{}) {
	sugar.Debug(args...)
}

func Debugf(template string, args ...interface{}) {
	sugar.Debugf(template, args...)
}

func Info(args ...interface{}) {
	sugar.Info(args...)
}

func Infof(template string, args ...interface{}) {
	sugar.Infof(template, args...)
}

func Warn(args ...interface{}) {
	sugar.Warn(args...)
}

func Warnf(template string, args ...interface{}) {
	sugar.Warnf(template, args...)
}

func Error(args ...interface{}) {
	sugar.Error(args...)
}

func Errorf(template string, args ...interface{}) {
	sugar.Errorf(template, args...)
}
