package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validBasketsYAML = `
baskets:
  - id: alpha
    manager: manager-1
    quote_asset: usdc
    initial_supply: "1000000"
    anyone_trade: false
    traders:
      - trader-1
      - trader-2
    components:
      - asset: wbtc
        balance: "500000"
        max_trade_size: "10000"
        cool_off_period: 1h
        exchange: sim
        sim_price: "2.5"
      - asset: usdc
        balance: "500000"
        max_trade_size: "50000"
        cool_off_period: 0s
        exchange: sim
`

func writeBasketsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "baskets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadBasketsConfig(t *testing.T) {
	cfg, err := LoadBasketsConfig(writeBasketsFile(t, validBasketsYAML))
	require.NoError(t, err)
	require.Len(t, cfg.Baskets, 1)

	b := cfg.Baskets[0]
	assert.Equal(t, "alpha", b.ID)
	assert.Equal(t, "manager-1", b.Manager)
	assert.Equal(t, "usdc", b.QuoteAsset)
	assert.Equal(t, []string{"trader-1", "trader-2"}, b.Traders)
	assert.False(t, b.AnyoneTrade)
	assert.Equal(t, int64(1000000), b.Supply().Int64())

	require.Len(t, b.Components, 2)
	wbtc := b.Components[0]
	assert.Equal(t, "wbtc", wbtc.Asset)
	assert.Equal(t, int64(500000), wbtc.ParsedBalance().Int64())
	assert.Equal(t, int64(10000), wbtc.ParsedMaxTradeSize().Int64())
	assert.Equal(t, time.Hour, wbtc.ParsedCoolOffPeriod())
	assert.Equal(t, "2.500000000000000000", wbtc.ParsedSimPrice().String())

	usdc := b.Components[1]
	assert.True(t, usdc.ParsedSimPrice().IsZero(), "unset sim_price parses to zero")
}

func TestLoadBasketsConfigMissingFile(t *testing.T) {
	_, err := LoadBasketsConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadBasketsConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "empty file", yaml: "baskets: []"},
		{
			name: "missing manager",
			yaml: `
baskets:
  - id: alpha
    quote_asset: usdc
    initial_supply: "1000"
    components:
      - asset: wbtc
        balance: "1"
        max_trade_size: "1"
        exchange: sim
`,
		},
		{
			name: "bad supply",
			yaml: `
baskets:
  - id: alpha
    manager: m
    quote_asset: usdc
    initial_supply: "not-a-number"
    components:
      - asset: wbtc
        balance: "1"
        max_trade_size: "1"
        exchange: sim
`,
		},
		{
			name: "no components",
			yaml: `
baskets:
  - id: alpha
    manager: m
    quote_asset: usdc
    initial_supply: "1000"
    components: []
`,
		},
		{
			name: "missing exchange",
			yaml: `
baskets:
  - id: alpha
    manager: m
    quote_asset: usdc
    initial_supply: "1000"
    components:
      - asset: wbtc
        balance: "1"
        max_trade_size: "1"
`,
		},
		{
			name: "bad cool off duration",
			yaml: `
baskets:
  - id: alpha
    manager: m
    quote_asset: usdc
    initial_supply: "1000"
    components:
      - asset: wbtc
        balance: "1"
        max_trade_size: "1"
        exchange: sim
        cool_off_period: soon
`,
		},
		{
			name: "bad sim price",
			yaml: `
baskets:
  - id: alpha
    manager: m
    quote_asset: usdc
    initial_supply: "1000"
    components:
      - asset: wbtc
        balance: "1"
        max_trade_size: "1"
        exchange: sim
        sim_price: "-3"
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBasketsConfig(writeBasketsFile(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("PROTOCOL_FEE_RATE", "0.0005")
	t.Setenv("FEE_RECIPIENT", "fee-account")
	t.Setenv("BASKETS_FILE", "baskets.yaml")
	t.Setenv("ENGINE_MODE", "sim")

	require.NoError(t, LoadConfig())
	assert.Equal(t, "0.000500000000000000", ProtocolFeeRate.String())
	assert.Equal(t, "fee-account", FeeRecipient)
	assert.Equal(t, "sim", EngineMode)
}

func TestLoadConfigRejectsBadFeeRate(t *testing.T) {
	t.Setenv("FEE_RECIPIENT", "fee-account")
	t.Setenv("BASKETS_FILE", "baskets.yaml")
	t.Setenv("ENGINE_MODE", "sim")

	t.Setenv("PROTOCOL_FEE_RATE", "1.5")
	assert.Error(t, LoadConfig())

	t.Setenv("PROTOCOL_FEE_RATE", "not-a-decimal")
	assert.Error(t, LoadConfig())
}

func TestLoadConfigRequiresAllVars(t *testing.T) {
	t.Setenv("PROTOCOL_FEE_RATE", "0.001")
	t.Setenv("FEE_RECIPIENT", "fee-account")
	t.Setenv("BASKETS_FILE", "baskets.yaml")
	os.Unsetenv("ENGINE_MODE")

	assert.Error(t, LoadConfig())
}
