package logger

import (
	"os"
	"path"
	"strings"
	"time"

	"github.com/LinkinStars/golang-util/gu"
	"github.com/getsentry/sentry-go"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// projectName 用于命名日志文件和截短调用路径
var projectName = "modl-grid"

// Options 日志初始化参数
type Options struct {
	Level        string        // debug/info/warn/error
	ProjectName  string        // 日志文件前缀
	Path         string        // 日志目录，为空时只输出到控制台
	MaxAge       time.Duration // 日志最大保留时间，单位：天
	RotationTime time.Duration // 日志切分时间，单位：小时
	RotationSize uint32        // 日志切分大小，单位：MB
	SentryDsn    string        // 为空时不上报
}

// initZap 初始化zap日志配置并替换全局logger
func initZap(opts Options) *zap.Logger {
	if len(opts.ProjectName) != 0 {
		projectName = opts.ProjectName
	}
	level := parseLevel(opts.Level)

	// 控制台输出
	consoleEncoderConfig := zap.NewDevelopmentEncoderConfig()
	consoleEncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleEncoderConfig.EncodeTime = timeEncoder
	consoleEncoderConfig.EncodeCaller = customCallerEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfig), zapcore.Lock(os.Stdout), level),
	}

	if opts.Path != "" {
		cores = append(cores, fileCores(opts, level)...)
	}

	if opts.SentryDsn != "" {
		client, err := sentry.NewClient(sentry.ClientOptions{Dsn: opts.SentryDsn})
		if err != nil {
			panic(err)
		}
		cores = append(cores, NewSentryCore(SentryCoreConfig{
			Level: zapcore.ErrorLevel,
			Tags:  map[string]string{"project": projectName},
		}, client))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1), zap.Development())
	zap.ReplaceGlobals(logger)

	// 标准库日志也写到zap里
	if _, err := zap.RedirectStdLogAt(logger, zapcore.ErrorLevel); err != nil {
		panic(err)
	}
	return logger
}

// fileCores error日志和info日志分两个滚动文件
func fileCores(opts Options, level zapcore.Level) []zapcore.Core {
	maxAge := opts.MaxAge * 24 * time.Hour
	rotationTime := opts.RotationTime * time.Hour
	if rotationTime <= 0 {
		rotationTime = 24 * time.Hour
	}
	rotationSize := opts.RotationSize
	if rotationSize == 0 {
		rotationSize = 1024 //1G
	}
	rotationSizeMB := int64(rotationSize) * 1024 * 1024

	if err := gu.CreateDirIfNotExist(opts.Path); err != nil {
		panic(err)
	}
	prefix := path.Join(opts.Path, projectName)

	newWriter := func(kind string) *rotatelogs.RotateLogs {
		w, err := rotatelogs.New(
			prefix+"_"+kind+"_%Y-%m-%d.log",
			rotatelogs.WithLinkName(prefix+"_"+kind+"_last.log"), // 软链,指向最新日志文件
			rotatelogs.WithMaxAge(maxAge),
			rotatelogs.WithRotationTime(rotationTime),
			rotatelogs.WithRotationSize(rotationSizeMB),
		)
		if err != nil {
			panic(err)
		}
		return w
	}

	highPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl > zapcore.WarnLevel
	})
	lowPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= level
	})

	fileEncodeConfig := zap.NewProductionEncoderConfig()
	fileEncodeConfig.EncodeTime = timeEncoder
	fileEncodeConfig.EncodeCaller = customCallerEncoder
	fileEncoder := zapcore.NewJSONEncoder(fileEncodeConfig)

	return []zapcore.Core{
		zapcore.NewCore(fileEncoder, zapcore.AddSync(newWriter("err")), highPriority),
		zapcore.NewCore(fileEncoder, zapcore.AddSync(newWriter("info")), lowPriority),
	}
}

func parseLevel(level string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// customCallerEncoder 截掉项目名之前的路径
func customCallerEncoder(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
	str := caller.String()
	index := strings.Index(str, projectName)
	if index == -1 {
		enc.AppendString(caller.FullPath())
	} else {
		index = index + len(projectName) + 1
		enc.AppendString(str[index:])
	}
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
}

// sentryLevel zap的Level转换为sentry的Level
func sentryLevel(lvl zapcore.Level) sentry.Level {
	switch lvl {
	case zapcore.DebugLevel:
		return sentry.LevelDebug
	case zapcore.InfoLevel:
		return sentry.LevelInfo
	case zapcore.WarnLevel:
		return sentry.LevelWarning
	case zapcore.ErrorLevel:
		return sentry.LevelError
	default:
		return sentry.LevelFatal
	}
}

// SentryCoreConfig sentry core的配置
type SentryCoreConfig struct {
	Tags              map[string]string
	DisableStacktrace bool
	Level             zapcore.Level
	FlushTimeout      time.Duration
	Hub               *sentry.Hub
}

// sentryCore 把Error以上的日志上报到sentry
type sentryCore struct {
	client *sentry.Client
	cfg    *SentryCoreConfig
	zapcore.LevelEnabler
	flushTimeout time.Duration

	fields map[string]interface{}
}

func (c *sentryCore) with(fs []zapcore.Field) *sentryCore {
	m := make(map[string]interface{}, len(c.fields)+len(fs))
	for k, v := range c.fields {
		m[k] = v
	}
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fs {
		f.AddTo(enc)
	}
	for k, v := range enc.Fields {
		m[k] = v
	}
	return &sentryCore{
		client:       c.client,
		cfg:          c.cfg,
		fields:       m,
		LevelEnabler: c.LevelEnabler,
		flushTimeout: c.flushTimeout,
	}
}

func (c *sentryCore) With(fs []zapcore.Field) zapcore.Core {
	return c.with(fs)
}

func (c *sentryCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.cfg.Level.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// Write fields作为Extra信息上报
func (c *sentryCore) Write(ent zapcore.Entry, fs []zapcore.Field) error {
	clone := c.with(fs)

	event := sentry.NewEvent()
	event.Message = ent.Message
	event.Timestamp = ent.Time
	event.Level = sentryLevel(ent.Level)
	event.Platform = "modl"
	event.Extra = clone.fields
	event.Tags = c.cfg.Tags

	if !c.cfg.DisableStacktrace {
		if trace := sentry.NewStacktrace(); trace != nil {
			event.Exception = []sentry.Exception{{
				Type:       ent.Message,
				Value:      ent.Caller.TrimmedPath(),
				Stacktrace: trace,
			}}
		}
	}

	hub := c.cfg.Hub
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	_ = c.client.CaptureEvent(event, nil, hub.Scope())

	if ent.Level > zapcore.ErrorLevel {
		c.client.Flush(c.flushTimeout)
	}
	return nil
}

func (c *sentryCore) Sync() error {
	c.client.Flush(c.flushTimeout)
	return nil
}

// NewSentryCore 生成上报sentry的zap core
func NewSentryCore(cfg SentryCoreConfig, sentryClient *sentry.Client) zapcore.Core {
	core := sentryCore{
		client:       sentryClient,
		cfg:          &cfg,
		LevelEnabler: cfg.Level,
		flushTimeout: 3 * time.Second,
		fields:       make(map[string]interface{}),
	}
	if cfg.FlushTimeout > 0 {
		core.flushTimeout = cfg.FlushTimeout
	}
	return &core
}
