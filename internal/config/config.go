package config

import (
	"github.com/blues/fbs/internal/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Chains   []ChainConfig  `mapstructure:"chains"`
	Bridge   BridgeConfig   `mapstructure:"bridge"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Task     TaskConfig     `mapstructure:"task"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ChainConfig 单链配置
type ChainConfig struct {
	ChainId int64  `mapstructure:"chain_id"` // 链ID
	Name    string `mapstructure:"name"`     // 链名称

	// RPC节点URL列表，按顺序使用，配置节点在前，公共备用节点在后
	RpcUrls []string `mapstructure:"rpc_urls"`

	// 该链上支持的代币合约地址: 币种 -> 合约地址
	Tokens map[string]string `mapstructure:"tokens"`
}

// BridgeConfig 桥接配置
type BridgeConfig struct {
	DestChainId int64 `mapstructure:"dest_chain_id"` // 结算目标链ID
}

// RetryConfig RPC限流重试配置
type RetryConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`  // 最大尝试次数
	BaseDelayMs int `mapstructure:"base_delay_ms"` // 基础延迟（毫秒）
	StepMs      int `mapstructure:"step_ms"`       // 每次尝试的线性增量（毫秒）
	TimeoutSec  int `mapstructure:"timeout_sec"`   // 单次RPC调用超时（秒）
}

type TaskConfig struct {
	Interval int `mapstructure:"interval"` // 秒
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/fbs")

	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "fundbridge")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("bridge.dest_chain_id", 43114)
	viper.SetDefault("retry.max_attempts", 5)
	viper.SetDefault("retry.base_delay_ms", 500)
	viper.SetDefault("retry.step_ms", 500)
	viper.SetDefault("retry.timeout_sec", 15)
	viper.SetDefault("task.interval", 60)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.file", "logs/app.log")

	// 自动读取环境变量
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logger.Warn("Warning: Could not read config file: %v", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		logger.Fatal("Unable to decode config into struct: %v", err)
	}

	return &config
}

// FindChain 按链ID查找链配置
func (c *Config) FindChain(chainId int64) (ChainConfig, bool) {
	for _, chain := range c.Chains {
		if chain.ChainId == chainId {
			return chain, true
		}
	}
	return ChainConfig{}, false
}
