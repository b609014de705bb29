package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap/zapcore"

	"github.com/jmlee-dev/godex/params"
	"github.com/jmlee-dev/godex/pkg/api"
	"github.com/jmlee-dev/godex/pkg/dex/asset"
	"github.com/jmlee-dev/godex/pkg/dex/engine"
	"github.com/jmlee-dev/godex/pkg/dex/ledger"
	"github.com/jmlee-dev/godex/pkg/storage"
	"github.com/jmlee-dev/godex/pkg/util"
)

func main() {
	cfg := params.LoadFromEnv("") // "" means load .env from current directory

	logger, err := util.NewLoggerWithFile(cfg.Node.LogFile, zapcore.InfoLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Node.LogFile)

	// ---- Storage ----
	var store *storage.Store
	if cfg.Node.DataDir != "" {
		store, err = storage.Open(cfg.Node.DataDir)
		if err != nil {
			sugar.Fatalw("storage_open_failed", "path", cfg.Node.DataDir, "err", err)
		}
		defer store.Close()
		sugar.Infow("storage_opened", "path", cfg.Node.DataDir)
	} else {
		sugar.Warn("persistence disabled - state is in-memory only")
	}

	var wal engine.WAL = storage.NewNopWAL()
	if cfg.Node.WALFile != "" {
		fw, err := storage.NewFileWAL(cfg.Node.WALFile)
		if err != nil {
			sugar.Fatalw("wal_open_failed", "path", cfg.Node.WALFile, "err", err)
		}
		defer fw.Close()
		wal = fw
		sugar.Infow("wal_enabled", "path", cfg.Node.WALFile)
	}

	// ---- Exchange core ----
	if !common.IsHexAddress(cfg.Dex.Owner) {
		sugar.Fatalw("invalid_owner_address", "owner", cfg.Dex.Owner)
	}
	owner := common.HexToAddress(cfg.Dex.Owner)
	tokens := asset.NewRegistry(owner, asset.Ticker(cfg.Dex.BaseTicker))

	genesis, err := params.LoadGenesisTokens(cfg.Dex.GenesisTokens)
	if err != nil {
		sugar.Fatalw("genesis_tokens_failed", "path", cfg.Dex.GenesisTokens, "err", err)
	}
	for _, gt := range genesis {
		if !common.IsHexAddress(gt.Contract) {
			sugar.Fatalw("invalid_token_contract", "ticker", gt.Ticker, "contract", gt.Contract)
		}
		if err := tokens.Register(owner, asset.Ticker(gt.Ticker), common.HexToAddress(gt.Contract)); err != nil {
			sugar.Fatalw("token_register_failed", "ticker", gt.Ticker, "err", err)
		}
		sugar.Infow("token_listed", "ticker", gt.Ticker, "contract", gt.Contract)
	}

	var ledgerStore ledger.Store
	if store != nil {
		ledgerStore = store
	}
	led, err := ledger.New(ledgerStore)
	if err != nil {
		sugar.Fatalw("ledger_init_failed", "err", err)
	}

	var engineStore engine.Store
	if store != nil {
		engineStore = store
	}
	eng, err := engine.New(tokens, led, engineStore, wal, sugar.With("component", "engine"))
	if err != nil {
		sugar.Fatalw("engine_init_failed", "err", err)
	}

	// ---- API server ----
	var trades api.TradeReader
	if store != nil {
		trades = store
	}
	apiServer := api.NewServer(tokens, led, eng, trades, sugar.With("component", "api"))

	// Broadcast every fill to trade channel subscribers.
	eng.OnTrade = apiServer.BroadcastTrade

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		errc <- apiServer.Start(cfg.Node.APIAddr)
	}()

	sugar.Infow("dexd_started",
		"api_addr", cfg.Node.APIAddr,
		"base", cfg.Dex.BaseTicker,
		"tokens", tokens.Count())

	select {
	case <-ctx.Done():
		sugar.Info("shutting down")
	case err := <-errc:
		sugar.Fatalw("api_server_failed", "err", err)
	}
}
