// Package api exposes the exchange over REST and WebSocket: token
// listings, book views, balances, trade history, and order/wallet
// submission.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/jmlee-dev/godex/pkg/dex/asset"
	"github.com/jmlee-dev/godex/pkg/dex/book"
	"github.com/jmlee-dev/godex/pkg/dex/engine"
	"github.com/jmlee-dev/godex/pkg/dex/ledger"
)

// TradeReader serves trade history queries. Implemented by
// pkg/storage; nil disables the trades endpoint.
type TradeReader interface {
	LoadRecentTrades(ticker asset.Ticker, limit int) ([]engine.Trade, error)
}

// Server handles REST API and WebSocket connections.
type Server struct {
	tokens *asset.Registry
	ledger *ledger.Ledger
	engine *engine.Engine
	trades TradeReader
	router *mux.Router
	hub    *Hub
	log    *zap.SugaredLogger
}

// NewServer wires the API around the exchange components.
func NewServer(tokens *asset.Registry, led *ledger.Ledger, eng *engine.Engine, trades TradeReader, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Server{
		tokens: tokens,
		ledger: led,
		engine: eng,
		trades: trades,
		router: mux.NewRouter(),
		hub:    NewHub(log),
		log:    log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/tokens", s.handleGetTokens).Methods("GET")
	api.HandleFunc("/tokens/{ticker}/orderbook", s.handleGetOrderbook).Methods("GET")
	api.HandleFunc("/tokens/{ticker}/trades", s.handleGetTrades).Methods("GET")

	api.HandleFunc("/accounts/{address}/balances", s.handleGetBalances).Methods("GET")

	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	api.HandleFunc("/wallet/deposit", s.handleDeposit).Methods("POST")
	api.HandleFunc("/wallet/withdraw", s.handleWithdraw).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the WebSocket hub and serves HTTP on addr. Blocks.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	s.log.Infow("api_server_starting", "addr", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetTokens(w http.ResponseWriter, r *http.Request) {
	tokens := s.tokens.List()
	infos := make([]TokenInfo, len(tokens))
	for i, tok := range tokens {
		infos[i] = TokenInfo{
			Ticker:   tok.Ticker.String(),
			Contract: tok.Contract.Hex(),
			ListedAt: tok.ListedAt,
		}
	}
	respondJSON(w, TokenListResponse{Base: s.tokens.Base().String(), Tokens: infos})
}

func (s *Server) handleGetOrderbook(w http.ResponseWriter, r *http.Request) {
	ticker := asset.Ticker(mux.Vars(r)["ticker"])
	if !s.tokens.Exists(ticker) {
		respondError(w, http.StatusNotFound, "unknown token", ticker.String())
		return
	}
	if v := r.URL.Query().Get("side"); v != "" {
		side, ok := book.ParseSide(v)
		if !ok {
			respondError(w, http.StatusBadRequest, "invalid side", v)
			return
		}
		respondJSON(w, toOrderInfos(s.engine.OrderBook(ticker, side)))
		return
	}
	respondJSON(w, s.bookSnapshot(ticker))
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	ticker := asset.Ticker(mux.Vars(r)["ticker"])
	if !s.tokens.Exists(ticker) {
		respondError(w, http.StatusNotFound, "unknown token", ticker.String())
		return
	}
	if s.trades == nil {
		respondJSON(w, []TradeInfo{})
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	trades, err := s.trades.LoadRecentTrades(ticker, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "trade history unavailable", err.Error())
		return
	}

	infos := make([]TradeInfo, len(trades))
	for i, t := range trades {
		infos[i] = TradeInfo{
			ID:        t.ID,
			Ticker:    t.Ticker.String(),
			Price:     t.Price,
			Qty:       t.Qty,
			TakerSide: t.TakerSide.String(),
			Taker:     t.Taker.Hex(),
			Maker:     t.Maker.Hex(),
			Timestamp: t.Timestamp,
		}
	}
	respondJSON(w, infos)
}

func (s *Server) handleGetBalances(w http.ResponseWriter, r *http.Request) {
	addrStr := mux.Vars(r)["address"]
	if !common.IsHexAddress(addrStr) {
		respondError(w, http.StatusBadRequest, "invalid address", addrStr)
		return
	}

	balances := s.ledger.Balances(common.HexToAddress(addrStr))
	infos := make([]BalanceInfo, len(balances))
	for i, b := range balances {
		infos[i] = BalanceInfo{Ticker: b.Ticker.String(), Qty: b.Qty}
	}
	respondJSON(w, infos)
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if !common.IsHexAddress(req.Address) {
		respondError(w, http.StatusBadRequest, "invalid address", req.Address)
		return
	}
	side, ok := book.ParseSide(req.Side)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid side", req.Side)
		return
	}

	trader := common.HexToAddress(req.Address)
	ticker := asset.Ticker(req.Ticker)

	switch req.Type {
	case "limit":
		id, err := s.engine.PlaceLimitOrder(trader, ticker, side, req.Amount, req.Price)
		if err != nil {
			respondError(w, errStatus(err), "order rejected", err.Error())
			return
		}
		s.BroadcastOrderbook(ticker)
		respondJSON(w, SubmitOrderResponse{Status: "resting", OrderID: id})

	case "market":
		filled, err := s.engine.PlaceMarketOrder(trader, ticker, side, req.Amount)
		if err != nil && filled == 0 {
			respondError(w, errStatus(err), "order rejected", err.Error())
			return
		}
		s.BroadcastOrderbook(ticker)
		resp := SubmitOrderResponse{Status: "filled", Filled: filled}
		if err != nil {
			// Fills before the failing one stay committed; report the
			// partial result rather than pretending a rollback happened.
			resp.Status = "partial"
			resp.Message = err.Error()
		} else if filled < req.Amount {
			resp.Status = "partial"
		}
		respondJSON(w, resp)

	default:
		respondError(w, http.StatusBadRequest, "invalid order type", req.Type)
	}
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.handleWallet(w, r, s.ledger.Credit, "deposit")
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.handleWallet(w, r, s.ledger.Debit, "withdraw")
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request, op func(common.Address, asset.Ticker, int64) error, name string) {
	var req WalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if !common.IsHexAddress(req.Address) {
		respondError(w, http.StatusBadRequest, "invalid address", req.Address)
		return
	}
	if req.Amount <= 0 {
		respondError(w, http.StatusBadRequest, "amount must be positive", "")
		return
	}

	ticker := asset.Ticker(req.Ticker)
	if ticker != s.tokens.Base() && !s.tokens.Exists(ticker) {
		respondError(w, http.StatusNotFound, "unknown token", req.Ticker)
		return
	}

	addr := common.HexToAddress(req.Address)
	if err := op(addr, ticker, req.Amount); err != nil {
		respondError(w, errStatus(err), name+" rejected", err.Error())
		return
	}

	s.log.Infow("wallet_"+name, "address", addr.Hex(), "ticker", req.Ticker, "amount", req.Amount)
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Broadcast Methods
// ==============================

// BroadcastOrderbook pushes the current book snapshot to every client
// subscribed to "orderbook:<ticker>".
func (s *Server) BroadcastOrderbook(ticker asset.Ticker) {
	snap := s.bookSnapshot(ticker)
	s.hub.BroadcastToChannel("orderbook:"+ticker.String(), OrderbookUpdate{
		Type:      "orderbook",
		Ticker:    snap.Ticker,
		Bids:      snap.Bids,
		Asks:      snap.Asks,
		Timestamp: snap.Timestamp,
	})
}

// BroadcastTrade pushes one fill to every client subscribed to
// "trades:<ticker>". Wired to engine.OnTrade in cmd/dexd.
func (s *Server) BroadcastTrade(t engine.Trade) {
	s.hub.BroadcastToChannel("trades:"+t.Ticker.String(), TradeUpdate{
		Type:      "trade",
		Ticker:    t.Ticker.String(),
		Price:     t.Price,
		Qty:       t.Qty,
		TakerSide: t.TakerSide.String(),
		Timestamp: t.Timestamp,
	})
}

// ==============================
// Helpers
// ==============================

func (s *Server) bookSnapshot(ticker asset.Ticker) OrderbookSnapshot {
	return OrderbookSnapshot{
		Ticker:    ticker.String(),
		Bids:      toOrderInfos(s.engine.OrderBook(ticker, book.Buy)),
		Asks:      toOrderInfos(s.engine.OrderBook(ticker, book.Sell)),
		Timestamp: time.Now().UnixMilli(),
	}
}

func toOrderInfos(orders []book.Order) []OrderInfo {
	infos := make([]OrderInfo, len(orders))
	for i, o := range orders {
		infos[i] = OrderInfo{
			ID:     o.ID,
			Trader: o.Trader.Hex(),
			Side:   o.Side.String(),
			Amount: o.Amount,
			Filled: o.Filled,
			Price:  o.Price,
		}
	}
	return infos
}

// errStatus maps engine/ledger errors onto HTTP status codes.
func errStatus(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnknownToken):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, errMsg, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: errMsg, Message: detail})
}
