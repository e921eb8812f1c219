// Package main provides the ledger HTTP service:
// - JSON API for all ledger operations
// - WebSocket event feed at /ws
// - Prometheus metrics at /metrics
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"decay-ledger/internal/domain"
	"decay-ledger/internal/feed"
	"decay-ledger/internal/ledger"
	"decay-ledger/internal/observability"
	"decay-ledger/internal/storage"
	chstore "decay-ledger/internal/storage/clickhouse"
	"decay-ledger/internal/storage/memory"
	"decay-ledger/internal/storage/migrations"
	pgstore "decay-ledger/internal/storage/postgres"
)

// Server wires the ledger to its HTTP surface.
type Server struct {
	ledger  *ledger.Ledger
	events  storage.EventStore
	hub     *feed.Hub
	metrics *observability.Metrics
	logger  *log.Logger
}

// ledgerStores holds the storage implementations behind the ledger.
type ledgerStores struct {
	balances storage.BalanceStore
	supplies storage.SupplyStore
	events   storage.EventStore
	// tx scopes two-row mutations to one transaction. Nil for the
	// in-memory backend, whose writes cannot fail between rows.
	tx storage.TxRunner
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":8080"), "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for the event journal")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	shutdownTimeout := flag.Duration("shutdown-timeout", 15*time.Second, "Graceful shutdown timeout")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	metrics := observability.NewMetrics("")
	hub := feed.NewHub(nil, log.New(os.Stdout, "[feed] ", log.LstdFlags))
	defer hub.Close()

	server := &Server{
		ledger: ledger.New(stores.balances, stores.supplies, ledger.Options{
			Events: stores.events,
			Sink:   &metricsSink{hub: hub, metrics: metrics},
			Tx:     stores.tx,
			Logger: log.New(os.Stdout, "[ledger] ", log.LstdFlags|log.Lshortfile),
		}),
		events:  stores.events,
		hub:     hub,
		metrics: metrics,
		logger:  logger,
	}

	// Sample the subscriber gauge; connections come and go between scrapes.
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.FeedSubscribers.Set(float64(hub.Subscribers()))
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         *listenAddr,
		Handler:      server.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), *shutdownTimeout)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
		cancel()
	}()

	logger.Printf("Starting HTTP server on %s", *listenAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("HTTP server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates the ledger's storage backends. With --use-memory
// everything lives in process. Otherwise balances and supplies go to
// PostgreSQL and, when a ClickHouse DSN is given, the event journal goes
// to ClickHouse; without one journaling is disabled.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool, logger *log.Logger) (*ledgerStores, func(), error) {
	if useMemory {
		stores := &ledgerStores{
			balances: memory.NewBalanceStore(),
			supplies: memory.NewSupplyStore(),
			events:   memory.NewEventStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	stores := &ledgerStores{
		balances: pgstore.NewBalanceStore(pool),
		supplies: pgstore.NewSupplyStore(pool),
		tx:       pool,
	}

	cleanup := func() { pool.Close() }

	if clickhouseDSN == "" {
		logger.Println("No ClickHouse DSN configured, event journaling disabled")
		return stores, cleanup, nil
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	stores.events = chstore.NewEventStore(chConn)
	cleanup = func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// routes builds the HTTP mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/tokens", s.op("create", s.handleCreate))
	mux.HandleFunc("POST /v1/issue", s.op("issue", s.handleIssue))
	mux.HandleFunc("POST /v1/transfer", s.op("transfer", s.handleTransfer))
	mux.HandleFunc("POST /v1/burn", s.op("burn", s.handleBurn))
	mux.HandleFunc("POST /v1/balances/open", s.op("open", s.handleOpen))
	mux.HandleFunc("POST /v1/balances/close", s.op("close", s.handleClose))
	mux.HandleFunc("POST /v1/decay", s.op("decay", s.handleDecay))
	mux.HandleFunc("PUT /v1/decay-parameters", s.op("set_decay", s.handleSetDecayParameters))
	mux.HandleFunc("DELETE /v1/tokens", s.op("delete_token", s.handleDeleteToken))
	mux.HandleFunc("DELETE /v1/balances", s.op("delete_balance", s.handleDeleteBalance))

	mux.HandleFunc("GET /v1/supply", s.op("get_supply", s.handleGetSupply))
	mux.HandleFunc("GET /v1/balance", s.op("get_balance", s.handleGetBalance))
	mux.HandleFunc("GET /v1/events", s.op("get_events", s.handleGetEvents))

	mux.HandleFunc("/ws", s.handleWS)
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return mux
}

// op wraps a handler with operation metrics.
func (s *Server) op(name string, h func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		err := h(w, r)
		s.metrics.OperationDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

		status := "ok"
		if err != nil {
			status = "error"
			s.writeError(w, err)
		}
		s.metrics.OperationsTotal.WithLabelValues(name, status).Inc()
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.hub.ServeWS(w, r)
}

// assetPayload is the wire form of an asset quantity.
type assetPayload struct {
	Amount    int64  `json:"amount"`
	Symbol    string `json:"symbol"`
	Precision uint8  `json:"precision"`
}

func (p assetPayload) asset() domain.Asset {
	return domain.Asset{
		Amount: p.Amount,
		Symbol: domain.Symbol{Code: p.Symbol, Precision: p.Precision},
	}
}

type createRequest struct {
	Tenant        string       `json:"tenant"`
	Issuer        string       `json:"issuer"`
	MaxSupply     assetPayload `json:"max_supply"`
	DecayPeriod   int64        `json:"decay_period"`
	DecayRatePPTM uint64       `json:"decay_rate_pptm"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) error {
	var req createRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if err := s.ledger.Create(r.Context(), req.Tenant, req.Issuer, req.MaxSupply.asset(), req.DecayPeriod, req.DecayRatePPTM); err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
	return nil
}

type issueRequest struct {
	Tenant   string       `json:"tenant"`
	To       string       `json:"to"`
	Quantity assetPayload `json:"quantity"`
	Memo     string       `json:"memo"`
}

func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) error {
	var req issueRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if err := s.ledger.Issue(r.Context(), req.Tenant, req.To, req.Quantity.asset(), req.Memo); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "issued"})
	return nil
}

type transferRequest struct {
	Tenant   string       `json:"tenant"`
	From     string       `json:"from"`
	To       string       `json:"to"`
	Quantity assetPayload `json:"quantity"`
	Memo     string       `json:"memo"`
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) error {
	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if err := s.ledger.Transfer(r.Context(), req.Tenant, req.From, req.To, req.Quantity.asset(), req.Memo); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "transferred"})
	return nil
}

type burnRequest struct {
	Tenant   string       `json:"tenant"`
	From     string       `json:"from"`
	Quantity assetPayload `json:"quantity"`
	Memo     string       `json:"memo"`
}

func (s *Server) handleBurn(w http.ResponseWriter, r *http.Request) error {
	var req burnRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if err := s.ledger.Burn(r.Context(), req.Tenant, req.From, req.Quantity.asset(), req.Memo); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "burned"})
	return nil
}

type openRequest struct {
	Tenant    string `json:"tenant"`
	Owner     string `json:"owner"`
	Symbol    string `json:"symbol"`
	Precision uint8  `json:"precision"`
	Payer     string `json:"payer"`
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) error {
	var req openRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	sym := domain.Symbol{Code: req.Symbol, Precision: req.Precision}
	if err := s.ledger.Open(r.Context(), req.Tenant, req.Owner, sym, req.Payer); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "opened"})
	return nil
}

type closeRequest struct {
	Tenant    string `json:"tenant"`
	Owner     string `json:"owner"`
	Symbol    string `json:"symbol"`
	Precision uint8  `json:"precision"`
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) error {
	var req closeRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	sym := domain.Symbol{Code: req.Symbol, Precision: req.Precision}
	if err := s.ledger.Close(r.Context(), req.Tenant, req.Owner, sym); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
	return nil
}

func (s *Server) handleDecay(w http.ResponseWriter, r *http.Request) error {
	var req closeRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	sym := domain.Symbol{Code: req.Symbol, Precision: req.Precision}
	if err := s.ledger.DecayAccount(r.Context(), req.Tenant, req.Owner, sym); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "settled"})
	return nil
}

type setDecayRequest struct {
	Tenant        string `json:"tenant"`
	Symbol        string `json:"symbol"`
	Precision     uint8  `json:"precision"`
	DecayPeriod   int64  `json:"decay_period"`
	DecayRatePPTM uint64 `json:"decay_rate_pptm"`
}

func (s *Server) handleSetDecayParameters(w http.ResponseWriter, r *http.Request) error {
	var req setDecayRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	sym := domain.Symbol{Code: req.Symbol, Precision: req.Precision}
	if err := s.ledger.SetDecayParameters(r.Context(), req.Tenant, sym, req.DecayPeriod, req.DecayRatePPTM); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	return nil
}

type deleteTokenRequest struct {
	Tenant    string `json:"tenant"`
	Symbol    string `json:"symbol"`
	Precision uint8  `json:"precision"`
}

func (s *Server) handleDeleteToken(w http.ResponseWriter, r *http.Request) error {
	var req deleteTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	sym := domain.Symbol{Code: req.Symbol, Precision: req.Precision}
	if err := s.ledger.DeleteToken(r.Context(), req.Tenant, sym); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	return nil
}

func (s *Server) handleDeleteBalance(w http.ResponseWriter, r *http.Request) error {
	var req closeRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	sym := domain.Symbol{Code: req.Symbol, Precision: req.Precision}
	if err := s.ledger.DeleteBalance(r.Context(), req.Tenant, req.Owner, sym); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	return nil
}

func (s *Server) handleGetSupply(w http.ResponseWriter, r *http.Request) error {
	tenant := r.URL.Query().Get("tenant")
	symbol := r.URL.Query().Get("symbol")
	if tenant == "" || symbol == "" {
		return fmt.Errorf("%w: tenant and symbol query parameters are required", ledger.ErrValidation)
	}

	supply, err := s.ledger.GetSupply(r.Context(), tenant, symbol)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, assetPayload{
		Amount:    supply.Amount,
		Symbol:    supply.Symbol.Code,
		Precision: supply.Symbol.Precision,
	})
	return nil
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) error {
	tenant := r.URL.Query().Get("tenant")
	symbol := r.URL.Query().Get("symbol")
	owner := r.URL.Query().Get("owner")
	if tenant == "" || symbol == "" || owner == "" {
		return fmt.Errorf("%w: tenant, symbol and owner query parameters are required", ledger.ErrValidation)
	}

	balance, err := s.ledger.GetBalance(r.Context(), tenant, owner, symbol)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, assetPayload{
		Amount:    balance.Amount,
		Symbol:    balance.Symbol.Code,
		Precision: balance.Symbol.Precision,
	})
	return nil
}

func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) error {
	if s.events == nil {
		return fmt.Errorf("%w: event journal is not configured", ledger.ErrPrecondition)
	}

	tenant := r.URL.Query().Get("tenant")
	symbol := r.URL.Query().Get("symbol")
	if tenant == "" || symbol == "" {
		return fmt.Errorf("%w: tenant and symbol query parameters are required", ledger.ErrValidation)
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &limit); err != nil || limit < 0 {
			return fmt.Errorf("%w: limit must be a non-negative integer", ledger.ErrValidation)
		}
	}

	events, err := s.events.GetByToken(r.Context(), tenant, symbol, limit)
	if err != nil {
		return err
	}
	if events == nil {
		events = []*domain.LedgerEvent{}
	}
	writeJSON(w, http.StatusOK, events)
	return nil
}

// metricsSink counts committed events on their way to the feed. Decay
// events carry the removed units in Amount.
type metricsSink struct {
	hub     *feed.Hub
	metrics *observability.Metrics
}

func (m *metricsSink) Publish(e *domain.LedgerEvent) {
	m.metrics.EventsJournaled.Inc()
	if e.Type == domain.EventDecay {
		m.metrics.DecaySettlements.Inc()
		m.metrics.DecayedUnits.Add(float64(e.Amount))
	}
	m.hub.Publish(e)
}

// writeError maps ledger errors to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, ledger.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrAuthorization):
		status = http.StatusForbidden
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientFunds), errors.Is(err, ledger.ErrSupplyCapExceeded):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrPrecondition):
		status = http.StatusPreconditionFailed
	}

	if status == http.StatusInternalServerError {
		s.logger.Printf("Internal error: %v", err)
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: decode request body: %v", ledger.ErrValidation, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// envOr returns the env var value or a fallback when unset.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
