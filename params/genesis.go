package params

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// GenesisToken is one entry of the token list registered at boot.
type GenesisToken struct {
	Ticker   string `yaml:"ticker"`
	Contract string `yaml:"contract"`
}

type genesisFile struct {
	Tokens []GenesisToken `yaml:"tokens"`
}

// LoadGenesisTokens reads the yaml token list at path. An empty path
// returns no tokens.
func LoadGenesisTokens(path string) ([]GenesisToken, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis tokens: %w", err)
	}

	var gf genesisFile
	if err := yaml.Unmarshal(data, &gf); err != nil {
		return nil, fmt.Errorf("parse genesis tokens: %w", err)
	}
	return gf.Tokens, nil
}
