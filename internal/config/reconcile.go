package config

import (
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ReconcileConfig carries reconciliation tunables that operators adjust
// without redeploying: the month window, upstream pacing, and the naming
// convention used to locate companion discount contracts.
type ReconcileConfig struct {
	MonthsWindow   int           `mapstructure:"monthsWindow"`
	PaceDelay      time.Duration `mapstructure:"paceDelay"`
	DiscountMarker string        `mapstructure:"discountMarker"`
	RunTimeout     time.Duration `mapstructure:"runTimeout"`
}

func DefaultReconcileConfig() ReconcileConfig {
	return ReconcileConfig{
		MonthsWindow:   3,
		PaceDelay:      150 * time.Millisecond,
		DiscountMarker: "DISCOUNT",
		RunTimeout:     30 * time.Minute,
	}
}

// ReconcileConfigHolder exposes the current reconcile config and hot-reloads
// it when the backing file changes.
type ReconcileConfigHolder struct {
	current atomic.Value // holds ReconcileConfig
}

func NewReconcileConfigHolder() (*ReconcileConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("reconcile")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/usagesync/config")
	v.AddConfigPath("/etc/usagesync")
	v.AddConfigPath(".")

	v.SetEnvPrefix("USAGESYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultReconcileConfig()
	v.SetDefault("reconcile.monthsWindow", defaults.MonthsWindow)
	v.SetDefault("reconcile.paceDelay", defaults.PaceDelay)
	v.SetDefault("reconcile.discountMarker", defaults.DiscountMarker)
	v.SetDefault("reconcile.runTimeout", defaults.RunTimeout)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	holder := &ReconcileConfigHolder{}
	cfg, err := unmarshalReconcile(v)
	if err != nil {
		return nil, err
	}
	holder.current.Store(cfg)

	v.OnConfigChange(func(_ fsnotify.Event) {
		next, err := unmarshalReconcile(v)
		if err != nil {
			log.Printf("reconcile config reload rejected: %v", err)
			return
		}
		holder.current.Store(next)
	})
	v.WatchConfig()

	return holder, nil
}

// NewStaticReconcileConfigHolder returns a holder pinned to cfg, with no
// file watching. Intended for tests.
func NewStaticReconcileConfigHolder(cfg ReconcileConfig) *ReconcileConfigHolder {
	holder := &ReconcileConfigHolder{}
	holder.current.Store(cfg.withDefaults())
	return holder
}

func (h *ReconcileConfigHolder) Current() ReconcileConfig {
	cfg, ok := h.current.Load().(ReconcileConfig)
	if !ok {
		return DefaultReconcileConfig()
	}
	return cfg
}

func unmarshalReconcile(v *viper.Viper) (ReconcileConfig, error) {
	var cfg ReconcileConfig
	if err := v.UnmarshalKey("reconcile", &cfg); err != nil {
		return ReconcileConfig{}, err
	}
	return cfg.withDefaults(), nil
}

func (c ReconcileConfig) withDefaults() ReconcileConfig {
	defaults := DefaultReconcileConfig()
	if c.MonthsWindow <= 0 {
		c.MonthsWindow = defaults.MonthsWindow
	}
	if c.PaceDelay <= 0 {
		c.PaceDelay = defaults.PaceDelay
	}
	if strings.TrimSpace(c.DiscountMarker) == "" {
		c.DiscountMarker = defaults.DiscountMarker
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaults.RunTimeout
	}
	return c
}
