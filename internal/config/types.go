package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了桥接进程运行所需的全部配置项。
type Config struct {
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Exchange    ExchangeConfig    `mapstructure:"exchange"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// CredentialsConfig 来自环境变量或配置文件的默认凭证。
type CredentialsConfig struct {
	PrivateKey     string `mapstructure:"private_key"`
	AccountAddress string `mapstructure:"account_address"`
}

// ExchangeConfig 描述交易所连接信息。
type ExchangeConfig struct {
	Quote      string      `mapstructure:"quote"`
	UseSandbox bool        `mapstructure:"use_sandbox"`
	Retry      RetryConfig `mapstructure:"retry"`
}

// RetryConfig 统一控制只读调用的重试机制。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// DatabaseConfig 管理调用流水数据库；Path 为空时流水记录关闭。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。标准输出保留给结果行，日志默认全部进标准错误。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// AgentOverride 是从命令行剥离出的代理钱包覆盖项。
type AgentOverride struct {
	AgentKey string
	Master   string
}

// Credentials 是本次调用生效的最终凭证，构造一次后不可变，
// 由入口线程传入分发器，任何组件都不得再修改。
type Credentials struct {
	PrivateKey     string
	AccountAddress string
	AgentWallet    bool
}

// Resolve 合并环境凭证与命令行覆盖项。
// 两个覆盖参数同时出现时整体切换到代理钱包；
// 只读命令的地址查询始终优先使用 --master。
func Resolve(cfg CredentialsConfig, over AgentOverride) Credentials {
	if over.AgentKey != "" && over.Master != "" {
		return Credentials{
			PrivateKey:     over.AgentKey,
			AccountAddress: over.Master,
			AgentWallet:    true,
		}
	}

	address := cfg.AccountAddress
	if over.Master != "" {
		address = over.Master
	}

	return Credentials{
		PrivateKey:     cfg.PrivateKey,
		AccountAddress: address,
	}
}

// Validate 对配置进行基本校验。凭证允许为空：缺失在具体命令路径上报告。
func (c *Config) Validate() error {
	var err error

	if c.Exchange.Quote == "" {
		err = multierr.Append(err, errors.New("exchange.quote 不能为空"))
	}
	if c.Exchange.Retry.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("exchange.retry.max_attempts 必须大于0"))
	}
	if c.Exchange.Retry.MinDelay <= 0 || c.Exchange.Retry.MaxDelay <= 0 {
		err = multierr.Append(err, errors.New("exchange.retry.delay 必须为正"))
	}
	if c.Exchange.Retry.MinDelay > c.Exchange.Retry.MaxDelay {
		err = multierr.Append(err, errors.New("exchange.retry.min_delay 不能大于 max_delay"))
	}
	if c.Database.Path != "" || c.Database.InMemory {
		if c.Database.MaxOpenConns <= 0 {
			err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
		}
		if c.Database.MaxIdleConns < 0 {
			err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
		}
		if c.Database.ConnMaxLifetime < 0 {
			err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
		}
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
