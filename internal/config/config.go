package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Network     NetworkConfig     `mapstructure:"network"`
	Wallet      WalletConfig      `mapstructure:"wallet"`
	PriceFeed   PriceFeedConfig   `mapstructure:"price_feed"`
	Transaction TransactionConfig `mapstructure:"transaction"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Task        TaskConfig        `mapstructure:"task"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// NetworkConfig is the deployment bundle the core targets.
type NetworkConfig struct {
	ChainID         uint64 `mapstructure:"chain_id"`
	Name            string `mapstructure:"name"`
	RPCURL          string `mapstructure:"rpc_url"`
	ExplorerURL     string `mapstructure:"explorer_url"`
	NativeSymbol    string `mapstructure:"native_symbol"`
	NativeDecimals  uint8  `mapstructure:"native_decimals"`
	ContractAddress string `mapstructure:"contract_address"`
	DeployBlock     uint64 `mapstructure:"deploy_block"` // first block scanned by the activity indexer
}

// ChainIDHex returns the chain id in the 0x form wallets expect.
func (n NetworkConfig) ChainIDHex() string {
	return fmt.Sprintf("0x%x", n.ChainID)
}

// Contract returns the crowdfund contract address.
func (n NetworkConfig) Contract() common.Address {
	return common.HexToAddress(n.ContractAddress)
}

// WalletConfig selects the injected wallet provider.
type WalletConfig struct {
	Mode       string `mapstructure:"mode"` // key, rpc or none
	PrivateKey string `mapstructure:"private_key"`
	RPCURL     string `mapstructure:"rpc_url"`
}

type PriceFeedConfig struct {
	URL               string        `mapstructure:"url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RefreshInterval   time.Duration `mapstructure:"refresh_interval"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

type TransactionConfig struct {
	ConfirmTimeout    time.Duration `mapstructure:"confirm_timeout"`
	PrecheckMaxPledge bool          `mapstructure:"precheck_max_pledge"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type TaskConfig struct {
	Interval       int `mapstructure:"interval"`         // activity indexing, seconds
	WalletSyncSecs int `mapstructure:"wallet_sync_secs"` // wallet state polling, seconds
	BatchSize      int `mapstructure:"batch_size"`       // blocks per log query
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // stdout, stderr, file
	File   string `mapstructure:"file"`
}

func (l LogConfig) GetLevel() string  { return l.Level }
func (l LogConfig) GetOutput() string { return l.Output }
func (l LogConfig) GetFile() string   { return l.File }

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("network.chain_id", 534351)
	v.SetDefault("network.name", "Scroll Alpha Testnet")
	v.SetDefault("network.rpc_url", "https://alpha-rpc.scroll.io/l2")
	v.SetDefault("network.explorer_url", "https://blockscout.scroll.io")
	v.SetDefault("network.native_symbol", "ETH")
	v.SetDefault("network.native_decimals", 18)
	v.SetDefault("network.contract_address", "")
	v.SetDefault("network.deploy_block", 0)

	v.SetDefault("wallet.mode", "none")
	v.SetDefault("wallet.private_key", "")
	v.SetDefault("wallet.rpc_url", "")

	v.SetDefault("price_feed.url", "https://api.coingecko.com/api/v3/simple/price?ids=ethereum&vs_currencies=usd")
	v.SetDefault("price_feed.timeout", "10s")
	v.SetDefault("price_feed.refresh_interval", "60s")
	v.SetDefault("price_feed.requests_per_minute", 10)

	v.SetDefault("transaction.confirm_timeout", "5m")
	v.SetDefault("transaction.precheck_max_pledge", true)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "fundchain")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("task.interval", 60)
	v.SetDefault("task.wallet_sync_secs", 15)
	v.SetDefault("task.batch_size", 500)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file", "logs/fundchain.log")
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("FUNDCHAIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load searches the usual locations for config.yaml. A missing file is not
// an error; defaults and FUNDCHAIN_* environment variables still apply.
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/fundchain")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return decode(v)
}

// LoadFile loads an explicit config file.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return decode(v)
}

// Validate checks the settings the core cannot run without.
func (c *Config) Validate() error {
	if c.Network.ChainID == 0 {
		return fmt.Errorf("network.chain_id must be positive")
	}
	if c.Network.RPCURL == "" {
		return fmt.Errorf("network.rpc_url is required")
	}
	if !common.IsHexAddress(c.Network.ContractAddress) {
		return fmt.Errorf("network.contract_address %q is not a valid address", c.Network.ContractAddress)
	}
	if c.Network.NativeDecimals == 0 {
		return fmt.Errorf("network.native_decimals must be positive")
	}
	switch c.Wallet.Mode {
	case "none", "":
	case "key":
		if c.Wallet.PrivateKey == "" {
			return fmt.Errorf("wallet.private_key is required in key mode")
		}
	case "rpc":
		if c.Wallet.RPCURL == "" {
			return fmt.Errorf("wallet.rpc_url is required in rpc mode")
		}
	default:
		return fmt.Errorf("unknown wallet.mode %q", c.Wallet.Mode)
	}
	return nil
}
