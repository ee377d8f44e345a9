package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Config holds the process-wide settings. Values are read once at startup and
// never mutated afterwards.
type Config struct {
	DatabaseURL     string `yaml:"database_url"`
	RPCURL          string `yaml:"rpc_url"`
	ContractAddress string `yaml:"contract_address"`
	StartBlock      uint64 `yaml:"start_block"`
	APIPort         string `yaml:"api_port"`

	// Optional testnet settings; validated only when present.
	TestnetRPCURL          string `yaml:"testnet_rpc_url"`
	TestnetContractAddress string `yaml:"testnet_contract_address"`
}

// Load reads configuration from the environment. If CONFIG_FILE is set, the
// YAML file is loaded first and env vars override individual fields.
func Load() (*Config, error) {
	cfg := &Config{}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	// HTTP_INFURA_URL is the historical name; MAINNET_RPC_URL is the alias.
	if v := os.Getenv("HTTP_INFURA_URL"); v != "" {
		cfg.RPCURL = v
	} else if v := os.Getenv("MAINNET_RPC_URL"); v != "" {
		cfg.RPCURL = v
	}
	if v := os.Getenv("USDC_CONTRACT_ADDRESS"); v != "" {
		cfg.ContractAddress = v
	}
	if v := os.Getenv("START_BLOCK"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid START_BLOCK %q: %w", v, err)
		}
		cfg.StartBlock = n
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.APIPort = v
	}
	if cfg.APIPort == "" {
		cfg.APIPort = "3000"
	}
	if v := os.Getenv("TESTNET_RPC_URL"); v != "" {
		cfg.TestnetRPCURL = v
	}
	if v := os.Getenv("TESTNET_USDC_ADDRESS"); v != "" {
		cfg.TestnetContractAddress = v
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.RPCURL == "" {
		return fmt.Errorf("HTTP_INFURA_URL (or MAINNET_RPC_URL) is required")
	}
	if c.ContractAddress == "" {
		return fmt.Errorf("USDC_CONTRACT_ADDRESS is required")
	}
	if !common.IsHexAddress(c.ContractAddress) {
		return fmt.Errorf("USDC_CONTRACT_ADDRESS %q is not a valid address", c.ContractAddress)
	}
	if c.TestnetContractAddress != "" && !common.IsHexAddress(c.TestnetContractAddress) {
		return fmt.Errorf("TESTNET_USDC_ADDRESS %q is not a valid address", c.TestnetContractAddress)
	}
	return nil
}
