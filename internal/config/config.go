package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type MediaConfig struct {
	WorkerBin        string `mapstructure:"worker_bin"`
	RTCMinPort       int    `mapstructure:"rtc_min_port"`
	RTCMaxPort       int    `mapstructure:"rtc_max_port"`
	AnnouncedAddress string `mapstructure:"announced_address"`
	LogLevel         string `mapstructure:"log_level"`
}

type TurnConfig struct {
	URIs       []string `mapstructure:"uris"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	Log        LogConfig     `mapstructure:"log"`
	Media      MediaConfig   `mapstructure:"media"`
	Turn       TurnConfig    `mapstructure:"turn"`
}

func Load() (*Config, error) {
	// .env is optional; real env vars win over it.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 64)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 14)
	v.SetDefault("media.worker_bin", "mediasoup-worker")
	v.SetDefault("media.rtc_min_port", 40000)
	v.SetDefault("media.rtc_max_port", 49999)
	v.SetDefault("media.log_level", "warn")

	v.SetEnvPrefix("HUDDLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// TURN env vars keep the deployment-provided names.
	if uris := os.Getenv("TURN_URIS"); uris != "" {
		cfg.Turn.URIs = strings.Split(uris, ",")
	}
	if u := os.Getenv("TURN_USERNAME"); u != "" {
		cfg.Turn.Username = u
	}
	if c := os.Getenv("TURN_CREDENTIAL"); c != "" {
		cfg.Turn.Credential = c
	}
	return &cfg, nil
}
