package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/bacalhau-project/callback-relay/pkg/remote"
)

// Definition ties a command line flag to a configuration key.
type Definition struct {
	FlagName     string
	ConfigPath   string
	DefaultValue any
	Description  string
	// EnvironmentVariables are read in addition to the variable derived from
	// ConfigPath.
	EnvironmentVariables []string
}

const (
	DefaultImagesDir          = "images"
	DefaultAPIPort            = 8080
	DefaultResubscribeBackoff = 5 * time.Second
	DefaultDownloadRetries    = 3
)

var ProvingFlags = []Definition{
	{
		FlagName:     "proving",
		ConfigPath:   KeyProvingMode,
		DefaultValue: "",
		Description:  `How outputs are produced: 'local', 'local-attested' or 'remote'.`,
	},
	{
		FlagName:     "bonsai-api-url",
		ConfigPath:   KeyBonsaiAPIURL,
		DefaultValue: "",
		Description:  `Base URL of the remote proving service.`,
	},
	{
		FlagName:     "bonsai-api-key",
		ConfigPath:   KeyBonsaiAPIKey,
		DefaultValue: "",
		Description:  `API key for the remote proving service.`,
	},
	{
		FlagName:     "poll-interval",
		ConfigPath:   KeyPollInterval,
		DefaultValue: remote.DefaultPollInterval,
		Description:  `How often a remote proving session is polled.`,
	},
	{
		FlagName:     "download-retries",
		ConfigPath:   KeyDownloadRetries,
		DefaultValue: DefaultDownloadRetries,
		Description:  `How many times a receipt download is retried.`,
	},
	{
		FlagName:     "memory-limit",
		ConfigPath:   KeyMemoryLimit,
		DefaultValue: "",
		Description: `Memory available to a locally executed image, e.g. 256MB.
Empty leaves the 4GB wasm32 address space.`,
	},
}

var ImageFlags = []Definition{
	{
		FlagName:     "images-dir",
		ConfigPath:   KeyImagesDir,
		DefaultValue: DefaultImagesDir,
		Description:  `Directory holding the .wasm images the relay can run.`,
	},
}

var LogFlags = []Definition{
	{
		FlagName:     "log-level",
		ConfigPath:   KeyLogLevel,
		DefaultValue: "",
		Description:  `Log level: 'trace', 'debug', 'info', 'warn' or 'error'.`,
	},
	{
		FlagName:     "log-type",
		ConfigPath:   KeyLogType,
		DefaultValue: "",
		Description:  `Log format: 'default', 'json', 'combined' or 'none'.`,
	},
}

// AllFlags lists every definition, for setting defaults.
var AllFlags = [][]Definition{ProvingFlags, ImageFlags, ChainFlags, ServerFlags, LogFlags}

var ChainFlags = []Definition{
	{
		FlagName:     "eth-node-url",
		ConfigPath:   KeyNodeURL,
		DefaultValue: "",
		Description:  `Websocket URL or IPC socket path of the Ethereum node.`,
	},
	{
		FlagName:     "eth-chain-id",
		ConfigPath:   KeyChainID,
		DefaultValue: uint64(0),
		Description:  `Chain id used to sign transactions. Zero asks the node.`,
	},
	{
		FlagName:     "proxy-address",
		ConfigPath:   KeyProxyAddress,
		DefaultValue: "",
		Description:  `Address of the proxy contract emitting callback requests.`,
	},
	{
		FlagName:     "start-block",
		ConfigPath:   KeyStartBlock,
		DefaultValue: uint64(0),
		Description: `Block to start relaying from when nothing was relayed yet.
Zero only relays requests made after the relay started.`,
	},
	{
		FlagName:     "resubscribe-backoff",
		ConfigPath:   KeyResubscribeBackoff,
		DefaultValue: DefaultResubscribeBackoff,
		Description:  `Wait before subscribing again after the event subscription failed.`,
	},
}

var ServerFlags = []Definition{
	{
		FlagName:     "store-path",
		ConfigPath:   KeyStorePath,
		DefaultValue: "",
		Description:  `BoltDB file recording relayed requests. Kept in memory when empty.`,
	},
	{
		FlagName:     "api-port",
		ConfigPath:   KeyAPIPort,
		DefaultValue: DefaultAPIPort,
		Description:  `Port of the status API. Zero disables it.`,
	},
}

// RegisterFlags adds a flag for each definition to fs.
func RegisterFlags(fs *pflag.FlagSet, defs ...[]Definition) error {
	for _, group := range defs {
		for _, def := range group {
			switch d := def.DefaultValue.(type) {
			case string:
				fs.String(def.FlagName, d, def.Description)
			case int:
				fs.Int(def.FlagName, d, def.Description)
			case uint64:
				fs.Uint64(def.FlagName, d, def.Description)
			case bool:
				fs.Bool(def.FlagName, d, def.Description)
			case time.Duration:
				fs.Duration(def.FlagName, d, def.Description)
			default:
				return fmt.Errorf("flag %s: unsupported default value type %T", def.FlagName, def.DefaultValue)
			}
		}
	}
	return nil
}

// BindFlags binds the flags registered for defs to v, so that a flag set on
// the command line wins over the environment and the config file. Commands
// share v, so binding happens when a command runs rather than when it is
// built.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet, defs ...[]Definition) error {
	for _, group := range defs {
		for _, def := range group {
			flag := fs.Lookup(def.FlagName)
			if flag == nil {
				return fmt.Errorf("flag %s is not registered", def.FlagName)
			}
			if err := v.BindPFlag(def.ConfigPath, flag); err != nil {
				return fmt.Errorf("binding flag %s: %w", def.FlagName, err)
			}
			envs := append([]string{def.ConfigPath, strings.ToUpper(def.ConfigPath)}, def.EnvironmentVariables...)
			if err := v.BindEnv(envs...); err != nil {
				return fmt.Errorf("binding env for %s: %w", def.FlagName, err)
			}
		}
	}
	return nil
}
