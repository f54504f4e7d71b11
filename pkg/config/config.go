package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/bacalhau-project/callback-relay/pkg/bonsai"
	"github.com/bacalhau-project/callback-relay/pkg/chain"
	"github.com/bacalhau-project/callback-relay/pkg/prover"
	"github.com/bacalhau-project/callback-relay/pkg/relayerrors"
)

const (
	configType = "yaml"
	configName = "relay"
)

// RelayConfig is read once at startup and handed to the constructors that
// need it.
type RelayConfig struct {
	ProvingMode  prover.Mode
	Bonsai       bonsai.Config
	PollInterval time.Duration
	// DownloadRetries bounds the retries of a receipt download.
	DownloadRetries int
	// MemoryLimit is zero when local guests may use the whole address space.
	MemoryLimit datasize.ByteSize
	ImagesDir   string

	NodeURL string
	// ChainID is zero when it should be read from the node.
	ChainID            uint64
	PrivateKey         string
	ProxyAddress       common.Address
	StartBlock         uint64
	ResubscribeBackoff time.Duration

	StorePath string
	APIPort   int
}

// New returns a viper instance reading the relay's keys from the environment,
// with every default set.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.SetTypeByDefaultValue(true)
	v.AutomaticEnv()
	for _, group := range AllFlags {
		for _, def := range group {
			v.SetDefault(def.ConfigPath, def.DefaultValue)
		}
	}
	// keys without a flag
	v.SetDefault(KeyBonsaiEndpoint, "")
	v.SetDefault(KeyPrivateKey, "")
	return v
}

// LoadDotEnv loads variables from .env files into the environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

// ReadConfigFile merges the YAML file at path into v. An empty path looks
// for relay.yaml in the working directory and ignores its absence.
func ReadConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		return v.ReadInConfig()
	}
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// Load builds the configuration from v. Settings needed by every command are
// validated here; chain settings are checked by ValidateChain.
func Load(v *viper.Viper) (RelayConfig, error) {
	mode, err := prover.ParseMode(v.GetString(KeyProvingMode))
	if err != nil {
		return RelayConfig{}, err
	}

	cfg := RelayConfig{
		ProvingMode: mode,
		Bonsai: bonsai.Config{
			URL:    strings.TrimSpace(v.GetString(KeyBonsaiAPIURL)),
			APIKey: strings.TrimSpace(v.GetString(KeyBonsaiAPIKey)),
		},
		PollInterval:       v.GetDuration(KeyPollInterval),
		DownloadRetries:    v.GetInt(KeyDownloadRetries),
		ImagesDir:          v.GetString(KeyImagesDir),
		NodeURL:            strings.TrimSpace(v.GetString(KeyNodeURL)),
		ChainID:            v.GetUint64(KeyChainID),
		PrivateKey:         strings.TrimSpace(v.GetString(KeyPrivateKey)),
		StartBlock:         v.GetUint64(KeyStartBlock),
		ResubscribeBackoff: v.GetDuration(KeyResubscribeBackoff),
		StorePath:          v.GetString(KeyStorePath),
		APIPort:            v.GetInt(KeyAPIPort),
	}

	if endpoint := strings.TrimSpace(v.GetString(KeyBonsaiEndpoint)); endpoint != "" && cfg.Bonsai.URL == "" {
		cfg.Bonsai, err = bonsai.ParseEndpoint(endpoint)
		if err != nil {
			return RelayConfig{}, err
		}
	}

	if proxy := strings.TrimSpace(v.GetString(KeyProxyAddress)); proxy != "" {
		if !common.IsHexAddress(proxy) {
			return RelayConfig{}, relayerrors.New(relayerrors.InvalidBackendConfig, "invalid proxy address %q", proxy)
		}
		cfg.ProxyAddress = common.HexToAddress(proxy)
	}

	if limit := strings.TrimSpace(v.GetString(KeyMemoryLimit)); limit != "" {
		cfg.MemoryLimit, err = datasize.ParseString(limit)
		if err != nil {
			return RelayConfig{}, relayerrors.Wrap(err, relayerrors.InvalidBackendConfig, "invalid memory limit %q", limit).
				WithHint("use a size such as 256MB or 1GB")
		}
	}

	if cfg.DownloadRetries < 0 {
		return RelayConfig{}, relayerrors.New(relayerrors.InvalidBackendConfig, "download retries must not be negative, got %d", cfg.DownloadRetries)
	}
	if cfg.PollInterval <= 0 {
		return RelayConfig{}, relayerrors.New(relayerrors.InvalidBackendConfig, "poll interval must be positive, got %s", cfg.PollInterval)
	}
	if cfg.ProvingMode == prover.ModeRemote {
		if err = cfg.Bonsai.Validate(); err != nil {
			return RelayConfig{}, err
		}
	}
	return cfg, nil
}

// ValidateChain checks the settings needed to talk to the chain.
func (c RelayConfig) ValidateChain() error {
	switch {
	case c.NodeURL == "":
		return relayerrors.New(relayerrors.InvalidBackendConfig, "ethereum node url is not set").
			WithHint("set ETH_NODE_URL or --eth-node-url")
	case c.PrivateKey == "":
		return relayerrors.New(relayerrors.InvalidBackendConfig, "private key is not set").
			WithHint("set PRIVATE_KEY")
	case c.ProxyAddress == (common.Address{}):
		return relayerrors.New(relayerrors.InvalidBackendConfig, "proxy address is not set").
			WithHint("set PROXY_ADDRESS or --proxy-address")
	}
	if err := validateNodeURL(c.NodeURL); err != nil {
		return err
	}
	if _, err := chain.ParsePrivateKey(c.PrivateKey); err != nil {
		return relayerrors.Wrap(err, relayerrors.InvalidBackendConfig, "private key")
	}
	return nil
}

// validateNodeURL accepts the transports that support subscriptions: a
// websocket URL or an IPC socket path.
func validateNodeURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return relayerrors.Wrap(err, relayerrors.InvalidBackendConfig, "invalid ethereum node url %q", raw)
	}
	switch u.Scheme {
	case "ws", "wss":
		if u.Host == "" {
			return relayerrors.New(relayerrors.InvalidBackendConfig, "ethereum node url %q has no host", raw)
		}
		return nil
	case "":
		if u.Path != "" {
			return nil
		}
	}
	return relayerrors.New(relayerrors.InvalidBackendConfig, "ethereum node url %q does not support subscriptions", raw).
		WithHint("use a ws:// or wss:// url, or the path of an IPC socket")
}

// ChainConfig returns the chain client configuration.
func (c RelayConfig) ChainConfig() (chain.Config, error) {
	if err := c.ValidateChain(); err != nil {
		return chain.Config{}, err
	}
	key, err := chain.ParsePrivateKey(c.PrivateKey)
	if err != nil {
		return chain.Config{}, err
	}
	cfg := chain.Config{
		NodeURL:      c.NodeURL,
		PrivateKey:   key,
		ProxyAddress: c.ProxyAddress,
	}
	if c.ChainID != 0 {
		cfg.ChainID = new(big.Int).SetUint64(c.ChainID)
	}
	return cfg, nil
}
