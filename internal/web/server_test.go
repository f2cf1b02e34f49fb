package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basketlabs/rebalancer/internal/adapter"
	"github.com/basketlabs/rebalancer/internal/basket"
	"github.com/basketlabs/rebalancer/internal/engine"
	"github.com/basketlabs/rebalancer/internal/exchange"
	"github.com/basketlabs/rebalancer/internal/state"
	"github.com/basketlabs/rebalancer/internal/types"
)

func newTestServer(t *testing.T) (*WebServer, *state.MemoryStore) {
	t.Helper()

	ledger := basket.NewLedger()
	require.NoError(t, ledger.CreateBasket("alpha", sdkmath.NewInt(1000)))
	require.NoError(t, ledger.Deposit("alpha", "wbtc", sdkmath.NewInt(500)))
	require.NoError(t, ledger.Deposit("alpha", "usdc", sdkmath.NewInt(500)))

	registry := adapter.NewRegistry()
	require.NoError(t, registry.Register("sim", adapter.NewFixedPriceAdapter("sim", "sim")))

	store := state.NewMemoryStore()
	eng, err := engine.New(engine.Config{
		Accessor:     ledger,
		Registry:     registry,
		Executor:     exchange.NewSimExecutor("sim", ledger),
		Recorder:     store,
		FeeRate:      sdkmath.LegacyNewDecWithPrec(1, 2),
		FeeRecipient: "fee-account",
	})
	require.NoError(t, err)
	require.NoError(t, eng.InitializeBasket("alpha", "manager-1", "usdc"))

	return NewWebServer("0", eng, ledger, store), store
}

func doGet(t *testing.T, ws *WebServer, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	ws.router.ServeHTTP(rr, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return rr, body
}

func recordTestTrade(t *testing.T, store *state.MemoryStore, i int) {
	t.Helper()
	require.NoError(t, store.SaveTradeRecord(types.TradeRecord{
		ID:               fmt.Sprintf("trade-%d", i),
		Basket:           "alpha",
		SendAsset:        "wbtc",
		ReceiveAsset:     "usdc",
		ExchangeName:     "sim",
		Executor:         "trader-1",
		NetSendAmount:    sdkmath.NewInt(int64(100 + i)),
		NetReceiveAmount: sdkmath.NewInt(int64(99 + i)),
		ProtocolFee:      sdkmath.OneInt(),
		Timestamp:        time.Date(2025, 6, 1, 12, i, 0, 0, time.UTC),
	}))
}

func TestHealthEndpoint(t *testing.T) {
	ws, _ := newTestServer(t)

	for _, path := range []string{"/health", "/api/health"} {
		rr, body := doGet(t, ws, path)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		assert.Equal(t, "OK", body["status"])
		assert.Equal(t, float64(1), body["baskets_managed"])

		// no database configured in a memory-only run, and that is healthy
		db := body["database"].(map[string]interface{})
		assert.Equal(t, false, db["configured"])
		assert.Equal(t, true, db["healthy"])
	}
}

func TestGetBaskets(t *testing.T) {
	ws, _ := newTestServer(t)

	rr, body := doGet(t, ws, "/api/baskets")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(1), body["count"])

	baskets := body["baskets"].([]interface{})
	require.Len(t, baskets, 1)
	summary := baskets[0].(map[string]interface{})
	assert.Equal(t, "alpha", summary["id"])
	assert.Equal(t, "usdc", summary["quote_asset"])
	assert.Equal(t, "1000", summary["total_supply"])
}

func TestGetBasketWithRebalance(t *testing.T) {
	ws, _ := newTestServer(t)

	manager := engine.Caller{Account: "manager-1", Direct: true}
	require.NoError(t, ws.engine.StartRebalance(manager, "alpha", nil, nil,
		[]sdkmath.LegacyDec{
			sdkmath.LegacyNewDecWithPrec(5, 1),
			sdkmath.LegacyNewDecWithPrec(1, 1),
		},
		sdkmath.LegacyOneDec()))

	rr, body := doGet(t, ws, "/api/baskets/alpha")
	require.Equal(t, http.StatusOK, rr.Code)

	summary := body["summary"].(map[string]interface{})
	assert.Equal(t, "alpha", summary["id"])
	require.Len(t, summary["components"], 2)

	reb := body["rebalance"].(map[string]interface{})
	assert.Equal(t, "1.000000000000000000", reb["multiplier_at_start"])
	targets := reb["normalized_targets"].(map[string]interface{})
	assert.Equal(t, "0.500000000000000000", targets["wbtc"])
}

func TestGetBasketWithoutRebalance(t *testing.T) {
	ws, _ := newTestServer(t)

	rr, body := doGet(t, ws, "/api/baskets/alpha")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, body, "summary")
	assert.NotContains(t, body, "rebalance")
}

func TestGetBasketNotFound(t *testing.T) {
	ws, _ := newTestServer(t)

	rr, body := doGet(t, ws, "/api/baskets/ghost")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, true, body["error"])
	assert.Equal(t, "Basket not found", body["message"])
}

func TestGetTrades(t *testing.T) {
	ws, store := newTestServer(t)
	for i := 0; i < 3; i++ {
		recordTestTrade(t, store, i)
	}

	rr, body := doGet(t, ws, "/api/trades?limit=2")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, float64(2), body["limit"])

	trades := body["trades"].([]interface{})
	require.Len(t, trades, 2)
	first := trades[0].(map[string]interface{})
	assert.Equal(t, "trade-2", first["id"])
	assert.Equal(t, "102", first["net_send_amount"])
}

func TestGetTradesLimitBounds(t *testing.T) {
	ws, store := newTestServer(t)
	recordTestTrade(t, store, 0)

	for _, raw := range []string{"0", "-5", "500", "abc"} {
		_, body := doGet(t, ws, "/api/trades?limit="+raw)
		assert.Equal(t, float64(20), body["limit"], "limit=%s", raw)
	}
}

func TestGetRebalances(t *testing.T) {
	ws, _ := newTestServer(t)

	manager := engine.Caller{Account: "manager-1", Direct: true}
	require.NoError(t, ws.engine.StartRebalance(manager, "alpha", nil, nil,
		[]sdkmath.LegacyDec{sdkmath.LegacyZeroDec(), sdkmath.LegacyZeroDec()},
		sdkmath.LegacyOneDec()))

	rr, body := doGet(t, ws, "/api/rebalances")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(1), body["count"])

	rebs := body["rebalances"].([]interface{})
	require.Len(t, rebs, 1)
	rec := rebs[0].(map[string]interface{})
	assert.Equal(t, "alpha", rec["basket"])
	assert.Equal(t, string(types.RebalanceStarted), rec["kind"])
}

func TestCORSHeaders(t *testing.T) {
	ws, _ := newTestServer(t)

	rr, _ := doGet(t, ws, "/api/trades")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "GET")
}
