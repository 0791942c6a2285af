package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// FundingConfig holds platform-wide funding and distribution rules.
type FundingConfig struct {
	// DistributionIntervalMonths is the minimum gap between two profit
	// declarations on the same pitch. Pitches may override it.
	DistributionIntervalMonths int             `mapstructure:"distributionIntervalMonths"`
	MaxProfitShare             decimal.Decimal `mapstructure:"-"`
	MaxProfitShareRaw          float64         `mapstructure:"maxProfitShare"`
}

func DefaultFundingConfig() FundingConfig {
	return FundingConfig{
		DistributionIntervalMonths: 0,
		MaxProfitShare:             decimal.NewFromInt(100),
		MaxProfitShareRaw:          100,
	}
}

type FundingConfigHolder struct {
	current atomic.Value // holds FundingConfig
}

// NewStaticFundingConfigHolder returns a holder that never reloads.
func NewStaticFundingConfigHolder(cfg FundingConfig) *FundingConfigHolder {
	holder := &FundingConfigHolder{}
	holder.current.Store(normalizeFundingConfig(cfg))
	return holder
}

func NewFundingConfigHolder() (*FundingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("funding")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/pitchfund")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PITCHFUND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultFundingConfig()
	v.SetDefault("funding.distributionIntervalMonths", defaults.DistributionIntervalMonths)
	v.SetDefault("funding.maxProfitShare", defaults.MaxProfitShareRaw)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg FundingConfig
	if err := v.UnmarshalKey("funding", &cfg); err != nil {
		return nil, err
	}
	cfg = normalizeFundingConfig(cfg)
	if err := validateFundingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &FundingConfigHolder{}
	holder.current.Store(cfg)

	if fileLoaded {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated FundingConfig
			if err := v.UnmarshalKey("funding", &updated); err != nil {
				log.Printf("[funding-config] reload failed: %v", err)
				return
			}
			updated = normalizeFundingConfig(updated)
			if err := validateFundingConfig(updated); err != nil {
				log.Printf("[funding-config] invalid config ignored: %v", err)
				return
			}
			holder.current.Store(updated)
			log.Printf("[funding-config] reloaded from %s", e.Name)
		})
	}

	return holder, nil
}

func (h *FundingConfigHolder) Get() FundingConfig {
	return h.current.Load().(FundingConfig)
}

func normalizeFundingConfig(cfg FundingConfig) FundingConfig {
	if cfg.MaxProfitShare.IsZero() {
		cfg.MaxProfitShare = decimal.NewFromFloat(cfg.MaxProfitShareRaw)
	}
	if cfg.MaxProfitShare.IsZero() {
		cfg.MaxProfitShare = decimal.NewFromInt(100)
	}
	return cfg
}

func validateFundingConfig(cfg FundingConfig) error {
	if cfg.DistributionIntervalMonths < 0 {
		return errors.New("funding.distributionIntervalMonths cannot be negative")
	}
	if cfg.MaxProfitShare.IsNegative() || cfg.MaxProfitShare.GreaterThan(decimal.NewFromInt(100)) {
		return errors.New("funding.maxProfitShare must be within 0..100")
	}
	return nil
}
