package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Endpoints []string
	Assets    []string
	Topic0    string
	Period    string

	WindowSize   uint64
	WindowDelay  time.Duration
	ResolveBatch int
	ResolveDelay time.Duration

	RefreshInterval time.Duration
	LookbackDay     uint64
	LookbackWeek    uint64
	LookbackMonth   uint64

	TopN          int
	FillEmpty     bool
	AssetDecimals uint8

	ListenAddr      string
	ProfileEndpoint string
	ProfileMaxBatch int

	LogLevel string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TIPSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("period", "day")
	v.SetDefault("window-size", uint64(5000))
	v.SetDefault("window-delay", 30*time.Millisecond)
	v.SetDefault("resolve-batch", 10)
	v.SetDefault("resolve-delay", 50*time.Millisecond)
	v.SetDefault("refresh-interval", 30*time.Second)
	v.SetDefault("lookback-day", uint64(50_000))
	v.SetDefault("lookback-week", uint64(350_000))
	v.SetDefault("lookback-month", uint64(1_500_000))
	v.SetDefault("top-n", 15)
	v.SetDefault("fill-empty", true)
	v.SetDefault("asset-decimals", 18)
	v.SetDefault("listen", ":8080")
	v.SetDefault("profile-max-batch", 64)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Endpoints:       getStringSlice(v, "endpoint"),
		Assets:          getStringSlice(v, "asset"),
		Topic0:          v.GetString("topic0"),
		Period:          v.GetString("period"),
		WindowSize:      v.GetUint64("window-size"),
		WindowDelay:     v.GetDuration("window-delay"),
		ResolveBatch:    v.GetInt("resolve-batch"),
		ResolveDelay:    v.GetDuration("resolve-delay"),
		RefreshInterval: v.GetDuration("refresh-interval"),
		LookbackDay:     v.GetUint64("lookback-day"),
		LookbackWeek:    v.GetUint64("lookback-week"),
		LookbackMonth:   v.GetUint64("lookback-month"),
		TopN:            v.GetInt("top-n"),
		FillEmpty:       v.GetBool("fill-empty"),
		AssetDecimals:   uint8(v.GetUint("asset-decimals")),
		ListenAddr:      v.GetString("listen"),
		ProfileEndpoint: v.GetString("profile-endpoint"),
		ProfileMaxBatch: v.GetInt("profile-max-batch"),
		LogLevel:        v.GetString("log-level"),
	}

	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
