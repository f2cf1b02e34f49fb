package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/basketlabs/rebalancer/internal/adapter"
	"github.com/basketlabs/rebalancer/internal/basket"
	"github.com/basketlabs/rebalancer/internal/config"
	"github.com/basketlabs/rebalancer/internal/engine"
	"github.com/basketlabs/rebalancer/internal/exchange"
	"github.com/basketlabs/rebalancer/internal/logger"
	"github.com/basketlabs/rebalancer/internal/state"
	"github.com/basketlabs/rebalancer/internal/types"
	"github.com/basketlabs/rebalancer/internal/web"

	sdkmath "cosmossdk.io/math"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const SIM_VENUE_NAME = "sim"

// main is the entry point for the basket rebalancing engine.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("Basket rebalancer starting...")

	// Initialize persistence. A Postgres store is used when DB_HOST is set,
	// otherwise history is kept in memory only.
	var recorder engine.Recorder
	var history web.HistorySource
	if os.Getenv("DB_HOST") != "" {
		dbCfg := state.DBConfig{
			Host: os.Getenv("DB_HOST"), Port: config.GetEnvAsInt("DB_PORT", 5432),
			User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
			DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
		}
		if err := state.InitDB(dbCfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer state.CloseDB()
		if err := state.EnsureSchema(); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure database schema")
		}
		pg, err := state.NewPGStore()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Postgres store")
		}
		recorder, history = pg, pg
		log.Info().Msg("Using Postgres trade history")
	} else {
		mem := state.NewMemoryStore()
		recorder, history = mem, mem
		log.Warn().Msg("DB_HOST not set, trade history will be kept in memory only")
	}

	// Load basket definitions
	basketsCfg, err := config.LoadBasketsConfig(config.BasketsFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", config.BasketsFile).Msg("Failed to load baskets file")
	}
	log.Info().Int("baskets", len(basketsCfg.Baskets)).Msg("Basket definitions loaded")

	// --- 2. Custody and Venue Initialization (with Safety Switch) ---
	ledger := basket.NewLedger()

	registry := adapter.NewRegistry()
	if err := registry.Register(SIM_VENUE_NAME, adapter.NewFixedPriceAdapter(SIM_VENUE_NAME, SIM_VENUE_NAME)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register execution adapter")
	}

	if config.EngineMode != "sim" {
		log.Fatal().Msg("ENGINE_MODE is not set to 'sim'. Live venue executors are not wired in this build. Set ENGINE_MODE=sim to run.")
	}
	executor := exchange.NewSimExecutor(SIM_VENUE_NAME, ledger)
	seedSimPrices(executor, basketsCfg)

	// --- 3. Create Engine Instance with Dependency Injection ---
	eng, err := engine.New(engine.Config{
		Accessor:     ledger,
		Registry:     registry,
		Executor:     executor,
		Recorder:     recorder,
		FeeRate:      config.ProtocolFeeRate,
		FeeRecipient: config.FeeRecipient,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create rebalance engine")
	}

	for _, def := range basketsCfg.Baskets {
		if err := bootstrapBasket(eng, ledger, def); err != nil {
			log.Fatal().Err(err).Str("basket", def.ID).Msg("Failed to bootstrap basket")
		}
		log.Info().Str("basket", def.ID).Int("components", len(def.Components)).Msg("Basket bootstrapped")
	}

	// --- 4. Start Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(webPort, eng, ledger, history)
	go func() {
		log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting rebalancer web API")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 5. Wait for Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutdown signal received, exiting")
}

// seedSimPrices loads configured quote prices into the simulated venue, in
// both directions so buys and sells fill at a consistent rate.
func seedSimPrices(executor *exchange.SimExecutor, cfg *config.BasketsConfig) {
	seedLogger := logger.GetForComponent("main")
	one := sdkmath.LegacyOneDec()
	for _, def := range cfg.Baskets {
		quote := types.Asset(def.QuoteAsset)
		for _, comp := range def.Components {
			price := comp.ParsedSimPrice()
			if !price.IsPositive() {
				continue
			}
			asset := types.Asset(comp.Asset)
			executor.SetPrice(asset, quote, price)
			executor.SetPrice(quote, asset, one.Quo(price))
			seedLogger.Debug().
				Str("asset", comp.Asset).
				Str("quote", def.QuoteAsset).
				Str("price", price.String()).
				Msg("Seeded sim venue price")
		}
	}
}

// bootstrapBasket seeds custody balances and engine parameters for one
// configured basket. The manager declared in the file performs the setup.
func bootstrapBasket(eng *engine.Engine, ledger *basket.Ledger, def config.BasketDefinition) error {
	id := types.BasketID(def.ID)

	if err := ledger.CreateBasket(id, def.Supply()); err != nil {
		return err
	}
	for _, comp := range def.Components {
		if err := ledger.Deposit(id, types.Asset(comp.Asset), comp.ParsedBalance()); err != nil {
			return err
		}
	}

	if err := eng.InitializeBasket(id, def.Manager, types.Asset(def.QuoteAsset)); err != nil {
		return err
	}

	manager := engine.Caller{Account: def.Manager, Direct: true}

	assets := make([]types.Asset, 0, len(def.Components))
	maxSizes := make([]sdkmath.Int, 0, len(def.Components))
	periods := make([]time.Duration, 0, len(def.Components))
	exchanges := make([]string, 0, len(def.Components))
	for _, comp := range def.Components {
		assets = append(assets, types.Asset(comp.Asset))
		maxSizes = append(maxSizes, comp.ParsedMaxTradeSize())
		periods = append(periods, comp.ParsedCoolOffPeriod())
		exchanges = append(exchanges, comp.Exchange)
	}

	if err := eng.SetTradeMaximums(manager, id, assets, maxSizes); err != nil {
		return err
	}
	if err := eng.SetExchanges(manager, id, assets, exchanges); err != nil {
		return err
	}
	if err := eng.SetCoolOffPeriods(manager, id, assets, periods); err != nil {
		return err
	}

	if len(def.Traders) > 0 {
		statuses := make([]bool, len(def.Traders))
		for i := range statuses {
			statuses[i] = true
		}
		if err := eng.SetTraderStatus(manager, id, def.Traders, statuses); err != nil {
			return err
		}
	}
	if def.AnyoneTrade {
		if err := eng.SetAnyoneTrade(manager, id, true); err != nil {
			return err
		}
	}
	return nil
}
