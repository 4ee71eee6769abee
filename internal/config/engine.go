package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EngineConfig carries the tunable limits of the allocation engine.
type EngineConfig struct {
	MaxLineQuantity int `mapstructure:"maxLineQuantity"`
	MaxReserveBatch int `mapstructure:"maxReserveBatch"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxLineQuantity: 10000,
		MaxReserveBatch: 500,
	}
}

type EngineConfigHolder struct {
	current atomic.Value // holds EngineConfig
}

// NewStaticEngineConfigHolder returns a holder that never reloads.
func NewStaticEngineConfigHolder(cfg EngineConfig) *EngineConfigHolder {
	holder := &EngineConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewEngineConfigHolder(log *zap.Logger) (*EngineConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("stockroute")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/stockroute")
	v.AddConfigPath(".")

	v.SetEnvPrefix("STOCKROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultEngineConfig()
	v.SetDefault("engine.maxLineQuantity", defaults.MaxLineQuantity)
	v.SetDefault("engine.maxReserveBatch", defaults.MaxReserveBatch)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg EngineConfig
	if err := v.UnmarshalKey("engine", &cfg); err != nil {
		return nil, err
	}
	if err := validateEngineConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticEngineConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	log = log.Named("engine.config")
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated EngineConfig
		if err := v.UnmarshalKey("engine", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateEngineConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *EngineConfigHolder) Get() EngineConfig {
	if h == nil {
		return DefaultEngineConfig()
	}
	cfg, ok := h.current.Load().(EngineConfig)
	if !ok {
		return DefaultEngineConfig()
	}
	return cfg
}

func validateEngineConfig(cfg EngineConfig) error {
	if cfg.MaxLineQuantity <= 0 {
		return errors.New("engine.maxLineQuantity must be positive")
	}
	if cfg.MaxReserveBatch <= 0 {
		return errors.New("engine.maxReserveBatch must be positive")
	}
	return nil
}
