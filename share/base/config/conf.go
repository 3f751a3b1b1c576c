package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"modl-grid/datagrid/conf/optimization"
)

// All 全部配置索引
var All *AllConfig

var DefaultPath = "./config"
var DebugPath = "./config/debug"

// InitConfig 初始化读取配置文件
func InitConfig() {
	v := viper.New()
	v.AddConfigPath(DefaultPath)
	v.SetConfigName("config")
	configType := "yml"
	v.SetConfigType(configType)

	// 读取配置
	if err := v.ReadInConfig(); err != nil {
		panic(err)
	}

	configs := v.AllSettings()

	// SetDefault使用：全部以默认配置写入
	for k, val := range configs {
		v.SetDefault(k, val)
	}

	//增量配置
	if os.Getenv("DEBUG") == "true" {
		fmt.Println("debugEnv DEBUG=true")
		debug := "debug"
		newConfigPath := DebugPath + "/" + debug + ".yml"
		exists, _ := isExists(newConfigPath)

		if exists {
			fmt.Printf("%s exists\n", newConfigPath)
			v.AddConfigPath(DebugPath)
			v.SetConfigName(debug)
			v.SetConfigType(configType)
			if err := v.MergeInConfig(); err != nil {
				panic(err)
			}
		} else {
			fmt.Printf("%s not exists\n", newConfigPath)
		}
	}

	// 监控配置文件变化，优化参数热加载
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Printf("Config file changed: %s", e.Name)
		changed := &AllConfig{}
		if err := v.Unmarshal(changed); err != nil {
			log.Printf("reload config failed: %v", err)
			return
		}
		changed.fillDefaults()
		changed.Optimization.Apply()
	})

	// 配置映射到结构体
	All = &AllConfig{}
	if err := v.Unmarshal(All); err != nil {
		panic(err)
	}
	All.fillDefaults()
	All.Optimization.Apply()

	fmt.Printf("config file content:\n%+v\n", *All)
}

// AllConfig 全部配置文件
type AllConfig struct {
	Server       ServerConfig       `mapstructure:"server_config"`
	Logger       LoggerConfig       `mapstructure:"logger_config"`
	Optimization OptimizationConfig `mapstructure:"optimization_config"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	HttpPort       string        `mapstructure:"http_port"`
	SentryDsn      string        `mapstructure:"sentry_dsn"`
	MaxTupleNumber int           `mapstructure:"max_tuple_number"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"` //单位：秒
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level        string        `mapstructure:"level"`
	Path         string        `mapstructure:"path"`
	MaxAge       time.Duration `mapstructure:"max_age"`
	RotationTime time.Duration `mapstructure:"rotation_time"`
	RotationSize uint32        `mapstructure:"rotation_size"`
}

// OptimizationConfig 优化参数，启动和配置变化时写入optimization包
type OptimizationConfig struct {
	Debug                bool   `mapstructure:"debug"`
	MaxGranularity       int    `mapstructure:"max_granularity"`
	DeepPostOptimization bool   `mapstructure:"deep_post_optimization"`
	Algorithm            string `mapstructure:"algorithm"`
	OptimizationLevel    int    `mapstructure:"optimization_level"`
	RandomSeed           int64  `mapstructure:"random_seed"`
	VarPartPolicy        string `mapstructure:"varpart_policy"`
	VarPartMaxPass       int    `mapstructure:"varpart_max_pass"`
}

func (all *AllConfig) fillDefaults() {
	if all.Server.HttpPort == "" {
		all.Server.HttpPort = "19123"
	}
	if all.Server.MaxTupleNumber == 0 {
		all.Server.MaxTupleNumber = 1000000
	}
	if all.Server.RequestTimeout == 0 {
		all.Server.RequestTimeout = 600
	}
	o := &all.Optimization
	if o.Algorithm == "" {
		o.Algorithm = optimization.AlgorithmGreedy
	}
	if o.RandomSeed == 0 {
		o.RandomSeed = optimization.DefaultRandomSeed
	}
	if o.VarPartPolicy == "" {
		o.VarPartPolicy = optimization.VarPartFirstImprovement
	}
	if o.VarPartMaxPass == 0 {
		o.VarPartMaxPass = 10
	}
}

// Apply 写入全局的优化参数
func (o OptimizationConfig) Apply() {
	optimization.Debug = o.Debug
	optimization.MaxGranularity = o.MaxGranularity
	optimization.DeepPostOptimization = o.DeepPostOptimization
	if o.Algorithm != "" {
		optimization.Algorithm = o.Algorithm
	}
	optimization.OptimizationLevel = o.OptimizationLevel
	if o.RandomSeed != 0 {
		optimization.RandomSeed = o.RandomSeed
	}
	if o.VarPartPolicy != "" {
		optimization.VarPartPolicy = o.VarPartPolicy
	}
	if o.VarPartMaxPass > 0 {
		optimization.VarPartMaxPass = o.VarPartMaxPass
	}
}

// 判断所给文件/文件夹是否存在
func isExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
