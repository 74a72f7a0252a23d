package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// CostConfig maps metered action types to their credit cost.
// Actions absent from the table cost zero.
type CostConfig struct {
	Actions map[string]int64 `mapstructure:"actions"`
}

func DefaultCostConfig() CostConfig {
	return CostConfig{
		Actions: map[string]int64{
			"text_generation":     10,
			"image_generation":    50,
			"translation":         5,
			"grammar_check":       3,
			"content_improvement": 15,
		},
	}
}

// CostFor returns the credit cost of an action; unknown actions are free.
func (c CostConfig) CostFor(action string) int64 {
	if c.Actions == nil {
		return 0
	}
	return c.Actions[strings.TrimSpace(action)]
}

type CostConfigHolder struct {
	current atomic.Value // holds CostConfig
}

func NewCostConfigHolder() (*CostConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("costs")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/inkwave")
	v.AddConfigPath(".")

	v.SetEnvPrefix("INKWAVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultCostConfig()
		v.SetDefault("costs.actions", defaults.Actions)
	}

	var cfg CostConfig
	if err := v.UnmarshalKey("costs", &cfg); err != nil {
		return nil, err
	}
	if err := validateCostConfig(cfg); err != nil {
		return nil, err
	}

	holder := &CostConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated CostConfig
		if err := v.UnmarshalKey("costs", &updated); err != nil {
			log.Printf("[cost-config] reload failed: %v", err)
			return
		}
		if err := validateCostConfig(updated); err != nil {
			log.Printf("[cost-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[cost-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticCostConfigHolder wraps a fixed table, used by tests.
func NewStaticCostConfigHolder(cfg CostConfig) *CostConfigHolder {
	holder := &CostConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *CostConfigHolder) Get() CostConfig {
	return h.current.Load().(CostConfig)
}

func validateCostConfig(cfg CostConfig) error {
	if len(cfg.Actions) == 0 {
		return errors.New("costs.actions cannot be empty")
	}
	for action, cost := range cfg.Actions {
		if cost < 0 {
			return errors.New("costs.actions." + action + " cannot be negative")
		}
	}
	return nil
}
