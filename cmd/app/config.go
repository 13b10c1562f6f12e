package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"yafs_miniapp/internal/notify"
	"yafs_miniapp/internal/repository"
	"yafs_miniapp/internal/service"
	"yafs_miniapp/pkg/auth"
	"yafs_miniapp/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"

	driverPostgres = "postgres"
	driverMemory   = "memory"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Telegram  notify.Config   `mapstructure:"telegram"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Rewards   RewardsConfig   `mapstructure:"rewards"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`

	LogLevel  string `mapstructure:"logLevel"`
	LogFormat string `mapstructure:"logFormat"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              string        `mapstructure:"port"`
	Mode              string        `mapstructure:"mode"`
	ReadHeaderTimeout time.Duration `mapstructure:"readHeaderTimeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdownTimeout"`
}

type DatabaseConfig struct {
	Driver            string `mapstructure:"driver"`
	Migrate           bool   `mapstructure:"migrate"`
	repository.Config `mapstructure:",squash"`
}

type AuthConfig struct {
	DemoPrefix string        `mapstructure:"demoPrefix"`
	MaxAge     time.Duration `mapstructure:"maxAge"`
	FutureSkew time.Duration `mapstructure:"futureSkew"`
}

type RewardsConfig struct {
	BoxMin         int64         `mapstructure:"boxMin"`
	BoxMax         int64         `mapstructure:"boxMax"`
	BoxCooldown    time.Duration `mapstructure:"boxCooldown"`
	MiningAmount   int64         `mapstructure:"miningAmount"`
	MiningCooldown time.Duration `mapstructure:"miningCooldown"`
	ReferralBonus  int64         `mapstructure:"referralBonus"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.readHeaderTimeout", 10*time.Second)
	v.SetDefault("server.shutdownTimeout", 15*time.Second)

	v.SetDefault("database.driver", driverPostgres)
	v.SetDefault("database.migrate", true)
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "yafs")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxOpenConns", 10)
	v.SetDefault("database.queryTimeout", 5*time.Second)

	v.SetDefault("telegram.botToken", "")
	v.SetDefault("telegram.notifications", false)
	v.SetDefault("telegram.notifyRate", 25)
	v.SetDefault("telegram.notifyQueue", 256)
	v.SetDefault("telegram.debug", false)

	v.SetDefault("auth.demoPrefix", auth.DefaultDemoPrefix)
	v.SetDefault("auth.maxAge", auth.DefaultMaxAge)
	v.SetDefault("auth.futureSkew", auth.DefaultMaxFutureSkew)

	v.SetDefault("rewards.boxMin", service.DefaultBoxMinReward)
	v.SetDefault("rewards.boxMax", service.DefaultBoxMaxReward)
	v.SetDefault("rewards.boxCooldown", service.DefaultBoxCooldown)
	v.SetDefault("rewards.miningAmount", service.DefaultMiningReward)
	v.SetDefault("rewards.miningCooldown", service.DefaultMiningCooldown)
	v.SetDefault("rewards.referralBonus", service.DefaultReferralBonus)

	v.SetDefault("rateLimit.rps", 5)
	v.SetDefault("rateLimit.burst", 10)

	v.SetDefault("logLevel", "info")
	v.SetDefault("logFormat", logger.FormatJSON)
}

// LoadConfig reads .env, then config.yaml from paths, then APP_* environment
// variables. TELEGRAM_BOT_TOKEN and DATABASE_URL are honoured as well.
func LoadConfig(paths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configFormat)
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("telegram.botToken", "APP_TELEGRAM_BOTTOKEN", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("database.url", "APP_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, err
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case driverPostgres, driverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	r := c.Rewards
	if r.BoxMin < 0 || r.BoxMax < r.BoxMin {
		return fmt.Errorf("invalid box reward range [%d, %d]", r.BoxMin, r.BoxMax)
	}
	if r.MiningAmount < 0 || r.ReferralBonus < 0 {
		return errors.New("rewards must not be negative")
	}
	if r.BoxCooldown <= 0 || r.MiningCooldown <= 0 {
		return errors.New("cooldowns must be positive")
	}
	if c.Auth.MaxAge <= 0 {
		return errors.New("auth.maxAge must be positive")
	}

	return nil
}
