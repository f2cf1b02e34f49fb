package web

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/basketlabs/rebalancer/internal/basket"
	"github.com/basketlabs/rebalancer/internal/engine"
	"github.com/basketlabs/rebalancer/internal/logger"
	"github.com/basketlabs/rebalancer/internal/state"
	"github.com/basketlabs/rebalancer/internal/types"
)

var webLogger = logger.GetForComponent("web_server")

// HistorySource serves persisted trade and rebalance history. Both the
// Postgres store and the in-memory store satisfy it.
type HistorySource interface {
	RecentTrades(limit int) ([]types.TradeRecord, error)
	RecentRebalances(limit int) ([]types.RebalanceRecord, error)
}

// WebServer handles HTTP requests for basket and trade data.
type WebServer struct {
	router  *mux.Router
	port    string
	engine  *engine.Engine
	ledger  *basket.Ledger
	history HistorySource
	started time.Time
}

// NewWebServer creates a new web server instance.
func NewWebServer(port string, eng *engine.Engine, ledger *basket.Ledger, history HistorySource) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router:  mux.NewRouter(),
		port:    port,
		engine:  eng,
		ledger:  ledger,
		history: history,
		started: time.Now(),
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/baskets", ws.handleGetBaskets).Methods("GET")
	api.HandleFunc("/baskets/{id}", ws.handleGetBasket).Methods("GET")
	api.HandleFunc("/trades", ws.handleGetTrades).Methods("GET")
	api.HandleFunc("/rebalances", ws.handleGetRebalances).Methods("GET")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	// Only probe the database when one is configured; memory-only runs are
	// healthy without it.
	dbConfigured := state.DB != nil
	dbHealthy := true
	if dbConfigured {
		if err := state.TestDBConnection(); err != nil {
			webLogger.Error().Err(err).Msg("Database health check failed")
			dbHealthy = false
		}
	}

	overallStatus := "OK"
	if !dbHealthy {
		overallStatus = "DEGRADED"
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"database": map[string]interface{}{
			"configured": dbConfigured,
			"healthy":    dbHealthy,
		},
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
			"uptime_seconds":   int64(time.Since(ws.started).Seconds()),
		},
		"component": map[string]interface{}{
			"name":    "basket-rebalancer",
			"version": "1.0.0",
		},
		"baskets_managed": len(ws.engine.Baskets()),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetBaskets returns summaries for every managed basket
func (ws *WebServer) handleGetBaskets(w http.ResponseWriter, r *http.Request) {
	ids := ws.engine.Baskets()

	summaries := make([]types.BasketSummary, 0, len(ids))
	for _, id := range ids {
		quote, err := ws.engine.QuoteAsset(id)
		if err != nil {
			webLogger.Error().Err(err).Str("basket", string(id)).Msg("Failed to resolve quote asset")
			continue
		}
		summary, err := ws.ledger.Summary(id, quote)
		if err != nil {
			webLogger.Error().Err(err).Str("basket", string(id)).Msg("Failed to build basket summary")
			continue
		}
		summaries = append(summaries, summary)
	}

	response := map[string]interface{}{
		"baskets": summaries,
		"count":   len(summaries),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetBasket returns one basket's summary plus its rebalance state
func (ws *WebServer) handleGetBasket(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := types.BasketID(vars["id"])

	quote, err := ws.engine.QuoteAsset(id)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Basket not found")
		return
	}

	summary, err := ws.ledger.Summary(id, quote)
	if err != nil {
		webLogger.Error().Err(err).Str("basket", string(id)).Msg("Failed to build basket summary")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve basket")
		return
	}

	response := map[string]interface{}{
		"summary": summary,
	}

	if info, err := ws.engine.RebalanceInfo(id); err == nil {
		targets := make(map[string]string, len(info.Components))
		for _, asset := range info.Components {
			normalized, err := ws.engine.NormalizedTargetUnit(id, asset)
			if err != nil {
				continue
			}
			targets[string(asset)] = normalized.String()
		}
		response["rebalance"] = map[string]interface{}{
			"components":          info.Components,
			"multiplier_at_start": info.PositionMultiplierAtStart,
			"raise_percentage":    info.RaiseTargetPercentage,
			"normalized_targets":  targets,
		}
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetTrades returns recent trade records
func (ws *WebServer) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 20)

	trades, err := ws.history.RecentTrades(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent trades")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve trades")
		return
	}

	response := map[string]interface{}{
		"trades": trades,
		"count":  len(trades),
		"limit":  limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetRebalances returns recent rebalance events
func (ws *WebServer) handleGetRebalances(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 20)

	rebalances, err := ws.history.RecentRebalances(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent rebalances")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve rebalances")
		return
	}

	response := map[string]interface{}{
		"rebalances": rebalances,
		"count":      len(rebalances),
		"limit":      limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

func parseLimit(r *http.Request, def int) int {
	limit := def
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	return limit
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
