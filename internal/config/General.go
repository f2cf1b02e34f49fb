package config

import (
	"errors"
	"os"
	"strconv"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// ProtocolFeeRate is the fraction of every trade's received amount paid
	// to the protocol, e.g. "0.0005".
	ProtocolFeeRate sdkmath.LegacyDec

	// FeeRecipient is the account credited with protocol fees.
	FeeRecipient string

	// BasketsFile is the path to the YAML file defining baskets, managers
	// and adapter bindings.
	BasketsFile string

	// EngineMode selects "sim" (fills against the simulated venue) or
	// "live". Live mode requires venue-specific executors to be wired.
	EngineMode string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	feeStr, err := getEnv("PROTOCOL_FEE_RATE")
	if err != nil {
		return err
	}
	ProtocolFeeRate, err = sdkmath.LegacyNewDecFromStr(feeStr)
	if err != nil {
		return errors.New("PROTOCOL_FEE_RATE is not a valid decimal: " + feeStr)
	}
	if ProtocolFeeRate.IsNegative() || ProtocolFeeRate.GTE(sdkmath.LegacyOneDec()) {
		return errors.New("PROTOCOL_FEE_RATE must be in [0, 1)")
	}

	FeeRecipient, err = getEnv("FEE_RECIPIENT")
	if err != nil {
		return err
	}

	BasketsFile, err = getEnv("BASKETS_FILE")
	if err != nil {
		return err
	}

	EngineMode, err = getEnv("ENGINE_MODE")
	if err != nil {
		return err
	}

	log.Debug().
		Str("ProtocolFeeRate", ProtocolFeeRate.String()).
		Str("FeeRecipient", FeeRecipient).
		Str("BasketsFile", BasketsFile).
		Str("EngineMode", EngineMode).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// GetEnvAsInt retrieves an integer environment variable with a fallback default.
func GetEnvAsInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid integer environment variable, using fallback")
		return fallback
	}
	return parsed
}
