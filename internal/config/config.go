package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode" validate:"oneof=debug release test"`
	Port       int           `mapstructure:"port" validate:"gte=1,lte=65535"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit" validate:"gt=0"`
	PingPeriod time.Duration `mapstructure:"ping_period" validate:"gt=0"`
	Secret     string        `mapstructure:"secret"`

	OpenAI  OpenAIConfig  `mapstructure:"openai"`
	Media   MediaConfig   `mapstructure:"media"`
	Gesture GestureConfig `mapstructure:"gesture"`
	Host    HostConfig    `mapstructure:"host"`
}

type OpenAIConfig struct {
	BaseURL      string  `mapstructure:"base_url" validate:"required,url"`
	APIKey       string  `mapstructure:"api_key"`
	Model        string  `mapstructure:"model" validate:"required"`
	Voice        string  `mapstructure:"voice" validate:"required"`
	Speed        float64 `mapstructure:"speed" validate:"gte=0.25,lte=1.5"`
	Instructions string  `mapstructure:"instructions"`
}

type MediaConfig struct {
	ICEServers       []string      `mapstructure:"ice_servers"`
	DataChannelLabel string        `mapstructure:"data_channel_label" validate:"required"`
	CaptureFile      string        `mapstructure:"capture_file"`
	CaptureLoop      bool          `mapstructure:"capture_loop"`
	PlaybackFile     string        `mapstructure:"playback_file"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout" validate:"gt=0"`
}

type GestureConfig struct {
	HoldDelay           time.Duration `mapstructure:"hold_delay" validate:"gt=0"`
	ClickSuppressWindow time.Duration `mapstructure:"click_suppress_window" validate:"gte=0"`
	Key                 string        `mapstructure:"key" validate:"required"`
}

type HostConfig struct {
	SendBuffer int     `mapstructure:"send_buffer" validate:"gt=0"`
	SendRate   float64 `mapstructure:"send_rate" validate:"gt=0"`
	SendBurst  int     `mapstructure:"send_burst" validate:"gt=0"`
	// OnBackpressure is "drop" or "close".
	OnBackpressure string `mapstructure:"on_backpressure" validate:"oneof=drop close"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFile reads fileName over the defaults. A missing file is not an error.
func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)
	if err := v.BindEnv("openai.api_key", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("model", cfg.OpenAI.Model).
		Dur("hold_delay", cfg.Gesture.HoldDelay).
		Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")

	v.SetDefault("openai.base_url", "https://api.openai.com/v1/realtime")
	v.SetDefault("openai.model", "gpt-realtime")
	v.SetDefault("openai.voice", "marin")
	v.SetDefault("openai.speed", 1.0)
	v.SetDefault("openai.instructions", "")

	v.SetDefault("media.ice_servers", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("media.data_channel_label", "oai-events")
	v.SetDefault("media.capture_file", "")
	v.SetDefault("media.capture_loop", true)
	v.SetDefault("media.playback_file", "")
	v.SetDefault("media.connect_timeout", "15s")

	v.SetDefault("gesture.hold_delay", "200ms")
	v.SetDefault("gesture.click_suppress_window", "50ms")
	v.SetDefault("gesture.key", " ")

	v.SetDefault("host.send_buffer", 64)
	v.SetDefault("host.send_rate", 20.0)
	v.SetDefault("host.send_burst", 40)
	v.SetDefault("host.on_backpressure", "drop")
}
