package api

// API request/response types for REST endpoints and WebSocket messages.

// ==============================
// REST Response Types
// ==============================

// TokenInfo describes one listed token.
type TokenInfo struct {
	Ticker   string `json:"ticker"`
	Contract string `json:"contract"`
	ListedAt int64  `json:"listedAt"`
}

// TokenListResponse is the payload of GET /api/v1/tokens.
type TokenListResponse struct {
	Base   string      `json:"base"` // reserved base asset ticker
	Tokens []TokenInfo `json:"tokens"`
}

// OrderInfo is one resting order as exposed by the book view.
type OrderInfo struct {
	ID     uint64 `json:"id"`
	Trader string `json:"trader"`
	Side   string `json:"side"`
	Amount int64  `json:"amount"`
	Filled int64  `json:"filled"`
	Price  int64  `json:"price"`
}

// OrderbookSnapshot holds both sides of a token's book in priority
// order: bids best (highest) price first, asks best (lowest) first.
type OrderbookSnapshot struct {
	Ticker    string      `json:"ticker"`
	Bids      []OrderInfo `json:"bids"`
	Asks      []OrderInfo `json:"asks"`
	Timestamp int64       `json:"timestamp"` // Unix milliseconds
}

// TradeInfo is one historical fill.
type TradeInfo struct {
	ID        string `json:"id"`
	Ticker    string `json:"ticker"`
	Price     int64  `json:"price"`
	Qty       int64  `json:"qty"`
	TakerSide string `json:"takerSide"`
	Taker     string `json:"taker"`
	Maker     string `json:"maker"`
	Timestamp int64  `json:"timestamp"`
}

// BalanceInfo is one (ticker, quantity) custodial balance.
type BalanceInfo struct {
	Ticker string `json:"ticker"`
	Qty    int64  `json:"qty"`
}

// SubmitOrderResponse is returned from POST /api/v1/orders.
type SubmitOrderResponse struct {
	Status  string `json:"status"`            // "resting" (limit) or "filled"/"partial" (market)
	OrderID uint64 `json:"orderId,omitempty"` // limit orders only
	Filled  int64  `json:"filled"`            // market orders only
	Message string `json:"message,omitempty"`
}

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ==============================
// REST Request Types
// ==============================

// SubmitOrderRequest is the payload for POST /api/v1/orders.
type SubmitOrderRequest struct {
	Address string `json:"address"`
	Ticker  string `json:"ticker"`
	Side    string `json:"side"`  // "buy" or "sell"
	Type    string `json:"type"`  // "limit" or "market"
	Amount  int64  `json:"amount"`
	Price   int64  `json:"price"` // limit orders only
}

// WalletRequest is the payload for POST /api/v1/wallet/deposit and
// /api/v1/wallet/withdraw. The external token transfer is assumed to
// have been verified by the custody layer before this call is made.
type WalletRequest struct {
	Address string `json:"address"`
	Ticker  string `json:"ticker"`
	Amount  int64  `json:"amount"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSSubscribeRequest is sent by clients to manage channel subscriptions.
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // e.g. ["orderbook:LINK", "trades:LINK"]
}

// OrderbookUpdate is broadcast on the "orderbook:<ticker>" channel
// after every successful order entry.
type OrderbookUpdate struct {
	Type      string      `json:"type"` // "orderbook"
	Ticker    string      `json:"ticker"`
	Bids      []OrderInfo `json:"bids"`
	Asks      []OrderInfo `json:"asks"`
	Timestamp int64       `json:"timestamp"`
}

// TradeUpdate is broadcast on the "trades:<ticker>" channel for every
// fill.
type TradeUpdate struct {
	Type      string `json:"type"` // "trade"
	Ticker    string `json:"ticker"`
	Price     int64  `json:"price"`
	Qty       int64  `json:"qty"`
	TakerSide string `json:"takerSide"`
	Timestamp int64  `json:"timestamp"`
}
