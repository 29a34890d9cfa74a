package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// SeatsPolicy controls what happens when a per-seat plan carries a
// missing or non-positive seat count.
type SeatsPolicy string

const (
	// SeatsPolicyDefault substitutes 1 seat and flags the row for
	// data-quality monitoring.
	SeatsPolicyDefault SeatsPolicy = "default"
	// SeatsPolicyStrict rejects the plan instead of substituting.
	SeatsPolicyStrict SeatsPolicy = "strict"
)

// EnginePolicy holds operator-tunable normalization policy.
type EnginePolicy struct {
	SeatsPolicy   SeatsPolicy `mapstructure:"seatsPolicy"`
	MaxWindowDays int         `mapstructure:"maxWindowDays"`
}

func DefaultEnginePolicy() EnginePolicy {
	return EnginePolicy{
		SeatsPolicy:   SeatsPolicyDefault,
		MaxWindowDays: 366,
	}
}

// PolicyHolder exposes the current engine policy with hot reload.
type PolicyHolder struct {
	current atomic.Value // holds EnginePolicy
}

func NewPolicyHolder() (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("engine")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/costlens/config") // Volume-mounted config
	v.AddConfigPath("/etc/costlens")            // System config
	v.AddConfigPath(".")                        // Current directory (dev mode)

	v.SetEnvPrefix("COSTLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultEnginePolicy()
		v.SetDefault("engine.seatsPolicy", string(defaults.SeatsPolicy))
		v.SetDefault("engine.maxWindowDays", defaults.MaxWindowDays)
	}

	var cfg EnginePolicy
	if err := v.UnmarshalKey("engine", &cfg); err != nil {
		return nil, err
	}
	applyPolicyDefaults(&cfg)
	if err := validateEnginePolicy(cfg); err != nil {
		return nil, err
	}

	holder := &PolicyHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated EnginePolicy
		if err := v.UnmarshalKey("engine", &updated); err != nil {
			log.Printf("[engine-config] reload failed: %v", err)
			return
		}
		applyPolicyDefaults(&updated)
		if err := validateEnginePolicy(updated); err != nil {
			log.Printf("[engine-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[engine-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PolicyHolder) Get() EnginePolicy {
	return h.current.Load().(EnginePolicy)
}

// NewStaticPolicyHolder returns a holder pinned to the given policy.
// Intended for tests.
func NewStaticPolicyHolder(policy EnginePolicy) *PolicyHolder {
	applyPolicyDefaults(&policy)
	holder := &PolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func applyPolicyDefaults(cfg *EnginePolicy) {
	if cfg.SeatsPolicy == "" {
		cfg.SeatsPolicy = SeatsPolicyDefault
	}
	if cfg.MaxWindowDays == 0 {
		cfg.MaxWindowDays = DefaultEnginePolicy().MaxWindowDays
	}
}

func validateEnginePolicy(cfg EnginePolicy) error {
	switch cfg.SeatsPolicy {
	case SeatsPolicyDefault, SeatsPolicyStrict:
	default:
		return errors.New("engine.seatsPolicy must be default or strict")
	}
	if cfg.MaxWindowDays < 1 {
		return errors.New("engine.maxWindowDays must be positive")
	}
	return nil
}
