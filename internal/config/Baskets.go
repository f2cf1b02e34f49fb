package config

import (
	"fmt"
	"os"
	"time"

	sdkmath "cosmossdk.io/math"
	"gopkg.in/yaml.v3"
)

// BasketsConfig is the YAML file describing the baskets this instance
// manages: who the manager is, the quote asset, the seed positions, and the
// per-asset trading limits the engine is bootstrapped with.
type BasketsConfig struct {
	Baskets []BasketDefinition `yaml:"baskets"`
}

// BasketDefinition declares one basket.
type BasketDefinition struct {
	ID            string                `yaml:"id"`
	Manager       string                `yaml:"manager"`
	QuoteAsset    string                `yaml:"quote_asset"`
	InitialSupply string                `yaml:"initial_supply"`
	Components    []ComponentDefinition `yaml:"components"`
	Traders       []string              `yaml:"traders,omitempty"`
	AnyoneTrade   bool                  `yaml:"anyone_trade,omitempty"`
}

// ComponentDefinition declares one component asset and its trading limits.
// Numeric fields arrive as strings so arbitrary-precision amounts survive the
// YAML round trip; CoolOffPeriod uses Go duration syntax ("30m", "1h").
type ComponentDefinition struct {
	Asset         string `yaml:"asset"`
	Balance       string `yaml:"balance"`
	MaxTradeSize  string `yaml:"max_trade_size"`
	CoolOffPeriod string `yaml:"cool_off_period,omitempty"`
	Exchange      string `yaml:"exchange"`

	// SimPrice is the quote-asset price of one unit of this asset used to
	// seed the simulated venue. Ignored outside sim mode.
	SimPrice string `yaml:"sim_price,omitempty"`
}

// LoadBasketsConfig reads and validates the baskets file.
func LoadBasketsConfig(path string) (*BasketsConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read baskets file %s: %w", path, err)
	}
	var cfg BasketsConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse baskets file %s: %w", path, err)
	}
	if len(cfg.Baskets) == 0 {
		return nil, fmt.Errorf("baskets file %s defines no baskets", path)
	}
	for i := range cfg.Baskets {
		if err := cfg.Baskets[i].validate(); err != nil {
			return nil, fmt.Errorf("basket %d: %w", i, err)
		}
	}
	return &cfg, nil
}

func (b *BasketDefinition) validate() error {
	if b.ID == "" {
		return fmt.Errorf("id is required")
	}
	if b.Manager == "" {
		return fmt.Errorf("manager is required")
	}
	if b.QuoteAsset == "" {
		return fmt.Errorf("quote_asset is required")
	}
	if _, ok := sdkmath.NewIntFromString(b.InitialSupply); !ok {
		return fmt.Errorf("initial_supply %q is not a valid integer", b.InitialSupply)
	}
	if len(b.Components) == 0 {
		return fmt.Errorf("at least one component is required")
	}
	for i, c := range b.Components {
		if c.Asset == "" {
			return fmt.Errorf("component %d: asset is required", i)
		}
		if _, ok := sdkmath.NewIntFromString(c.Balance); !ok {
			return fmt.Errorf("component %s: balance %q is not a valid integer", c.Asset, c.Balance)
		}
		if _, ok := sdkmath.NewIntFromString(c.MaxTradeSize); !ok {
			return fmt.Errorf("component %s: max_trade_size %q is not a valid integer", c.Asset, c.MaxTradeSize)
		}
		if c.CoolOffPeriod != "" {
			d, err := time.ParseDuration(c.CoolOffPeriod)
			if err != nil {
				return fmt.Errorf("component %s: cool_off_period %q is not a valid duration: %w", c.Asset, c.CoolOffPeriod, err)
			}
			if d < 0 {
				return fmt.Errorf("component %s: cool_off_period cannot be negative", c.Asset)
			}
		}
		if c.Exchange == "" {
			return fmt.Errorf("component %s: exchange is required", c.Asset)
		}
		if c.SimPrice != "" {
			price, err := sdkmath.LegacyNewDecFromStr(c.SimPrice)
			if err != nil {
				return fmt.Errorf("component %s: sim_price %q is not a valid decimal: %w", c.Asset, c.SimPrice, err)
			}
			if !price.IsPositive() {
				return fmt.Errorf("component %s: sim_price must be positive", c.Asset)
			}
		}
	}
	return nil
}

// Supply returns the parsed initial supply.
func (b *BasketDefinition) Supply() sdkmath.Int {
	i, _ := sdkmath.NewIntFromString(b.InitialSupply)
	return i
}

// ParsedBalance returns the parsed seed balance.
func (c *ComponentDefinition) ParsedBalance() sdkmath.Int {
	i, _ := sdkmath.NewIntFromString(c.Balance)
	return i
}

// ParsedMaxTradeSize returns the parsed trade ceiling.
func (c *ComponentDefinition) ParsedMaxTradeSize() sdkmath.Int {
	i, _ := sdkmath.NewIntFromString(c.MaxTradeSize)
	return i
}

// ParsedCoolOffPeriod returns the parsed cool-off duration, zero when unset.
func (c *ComponentDefinition) ParsedCoolOffPeriod() time.Duration {
	if c.CoolOffPeriod == "" {
		return 0
	}
	d, _ := time.ParseDuration(c.CoolOffPeriod)
	return d
}

// ParsedSimPrice returns the parsed sim venue price, or a zero dec when the
// field is unset.
func (c *ComponentDefinition) ParsedSimPrice() sdkmath.LegacyDec {
	if c.SimPrice == "" {
		return sdkmath.LegacyZeroDec()
	}
	d, _ := sdkmath.LegacyNewDecFromStr(c.SimPrice)
	return d
}
