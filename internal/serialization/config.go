package serialization

import (
	"strings"

	"go.uber.org/zap"

	"github.com/lk2023060901/ledgerwire/internal/wire"
	"github.com/lk2023060901/ledgerwire/pkg/log"
	"github.com/lk2023060901/ledgerwire/pkg/metrics"
	"github.com/lk2023060901/ledgerwire/pkg/util/merr"
	"github.com/lk2023060901/ledgerwire/pkg/util/viper"
)

// 配置文件中的根键。
const ConfigKey = "serialization"

// 白名单模式。
const (
	WhitelistDeny       = "deny"
	WhitelistPermissive = "permissive"
	WhitelistSet        = "set"
)

// WhitelistConfig 配置解码白名单。Types 为限定类型名，仅在 set 模式下生效。
type WhitelistConfig struct {
	Mode  string   `mapstructure:"mode" json:"mode"`
	Types []string `mapstructure:"types" json:"types"`
}

// Config 为序列化核心的配置。
type Config struct {
	Whitelist WhitelistConfig `mapstructure:"whitelist" json:"whitelist"`
	// MaxDepth 为 list/map/described 的最大嵌套深度。
	MaxDepth int `mapstructure:"maxDepth" json:"maxDepth"`
	// Metrics 为 true 时向默认 Registerer 注册序列化指标。
	Metrics bool `mapstructure:"metrics" json:"metrics"`
}

// DefaultConfig 返回默认配置：拒绝所有用户定义类型。
func DefaultConfig() Config {
	return Config{
		Whitelist: WhitelistConfig{Mode: WhitelistDeny},
		MaxDepth:  wire.DefaultMaxDepth,
	}
}

// LoadConfig 从配置文件的 serialization 键读取配置，
// 环境变量（如 LEDGERWIRE_SERIALIZATION_WHITELIST_MODE）优先于文件。path 为空时只读取环境变量。
func LoadConfig(path string) (Config, error) {
	def := DefaultConfig()
	v := viper.New()
	v.SetDefault(ConfigKey+".whitelist.mode", def.Whitelist.Mode)
	v.SetDefault(ConfigKey+".whitelist.types", []string{})
	v.SetDefault(ConfigKey+".maxDepth", def.MaxDepth)
	v.SetDefault(ConfigKey+".metrics", def.Metrics)
	if path != "" {
		if err := v.LoadFile(path); err != nil {
			return Config{}, err
		}
	}

	// 使用整体 Unmarshal，逐个叶子键合并默认值与环境变量。
	var root struct {
		Serialization Config `mapstructure:"serialization"`
	}
	if err := v.Unmarshal(&root); err != nil {
		return Config{}, err
	}
	return root.Serialization, nil
}

// NewWhitelist 按配置构造白名单，未配置模式时拒绝所有类型。
func (c WhitelistConfig) NewWhitelist() (Whitelist, error) {
	switch strings.ToLower(c.Mode) {
	case "", WhitelistDeny:
		return DenyAll(), nil
	case WhitelistPermissive:
		return AllowAll(), nil
	case WhitelistSet:
		return NewSetWhitelist(c.Types...), nil
	}
	return nil, merr.WrapErrParameterInvalid("deny|permissive|set", c.Mode, "unknown whitelist mode")
}

// NewFactoryFromConfig 按配置创建 Factory。
func NewFactoryFromConfig(cfg Config) (*Factory, error) {
	whitelist, err := cfg.Whitelist.NewWhitelist()
	if err != nil {
		return nil, err
	}
	if cfg.Metrics {
		metrics.Register(metrics.GetRegisterer())
	}
	log.Info("serialization factory configured",
		log.FieldModule("serialization"),
		zap.String("whitelist", cfg.Whitelist.Mode),
		zap.Int("allowedTypes", len(cfg.Whitelist.Types)),
		zap.Int("maxDepth", cfg.MaxDepth))
	return NewFactory(WithWhitelist(whitelist), WithMaxDepth(cfg.MaxDepth)), nil
}
