package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "hl"
)

// Load 读取配置文件并结合环境变量返回 Config。
// 未显式指定路径时允许配置文件缺失，仅靠环境变量即可运行。
func Load(path string) (*Config, error) {
	v := viper.New()

	explicit := path != ""
	if path == "" {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	// 与原始部署保持同名的环境变量。
	_ = v.BindEnv("credentials.private_key", "HL_PRIVATE_KEY")
	_ = v.BindEnv("credentials.account_address", "HL_ACCOUNT_ADDRESS")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *fs.PathError
		switch {
		case errors.As(err, &notFound), errors.As(err, &pathErr):
			if explicit {
				return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
			}
			// 默认路径缺失是正常情况。
		default:
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// StripAgentArgs 从参数列表任意位置剥离 --agent-key= 与 --master=，
// 返回干净的位置参数与覆盖项。剥离发生在凭证构造之前，
// 之后的命令分发与流水记录都看不到密钥材料。
func StripAgentArgs(argv []string) ([]string, AgentOverride) {
	var over AgentOverride
	args := make([]string, 0, len(argv))

	for _, arg := range argv {
		switch {
		case strings.HasPrefix(arg, "--agent-key="):
			over.AgentKey = strings.TrimPrefix(arg, "--agent-key=")
		case strings.HasPrefix(arg, "--master="):
			over.Master = strings.TrimPrefix(arg, "--master=")
		default:
			args = append(args, arg)
		}
	}

	return args, over
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("credentials.private_key", "")
	v.SetDefault("credentials.account_address", "")

	v.SetDefault("exchange.quote", "USDC")
	v.SetDefault("exchange.use_sandbox", false)
	v.SetDefault("exchange.retry.max_attempts", 3)
	v.SetDefault("exchange.retry.min_delay", "500ms")
	v.SetDefault("exchange.retry.max_delay", "5s")

	v.SetDefault("database.path", "")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.output_paths", []string{"stderr"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
