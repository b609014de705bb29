// Package params holds runtime configuration: env-based node settings
// and the yaml genesis file listing tokens registered at boot.
package params

import (
	"os"

	"github.com/joho/godotenv"
)

type Node struct {
	// DataDir is the Pebble database location. Empty disables persistence.
	DataDir string
	// LogFile, when set, tees structured logs to a file.
	LogFile string
	// WALFile, when set, enables the order-entry audit log.
	WALFile string
	APIAddr string
}

type Dex struct {
	// BaseTicker is the reserved ticker every token trades against.
	BaseTicker string
	// Owner is the hex address allowed to list tokens.
	Owner string
	// GenesisTokens is the path of the yaml token list loaded at boot.
	GenesisTokens string
}

type Config struct {
	Node Node
	Dex  Dex
}

func Default() Config {
	return Config{
		Node: Node{
			DataDir: "data/dex.db",
			LogFile: "data/dexd.log",
			WALFile: "",
			APIAddr: ":8080",
		},
		Dex: Dex{
			BaseTicker:    "ETH",
			Owner:         "0x0000000000000000000000000000000000000001",
			GenesisTokens: "",
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Node.DataDir = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Node.LogFile = v
	}
	if v := os.Getenv("WAL_FILE"); v != "" {
		cfg.Node.WALFile = v
	}
	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.Node.APIAddr = v
	}
	if v := os.Getenv("BASE_TICKER"); v != "" {
		cfg.Dex.BaseTicker = v
	}
	if v := os.Getenv("DEX_OWNER"); v != "" {
		cfg.Dex.Owner = v
	}
	if v := os.Getenv("GENESIS_TOKENS"); v != "" {
		cfg.Dex.GenesisTokens = v
	}

	return cfg
}
