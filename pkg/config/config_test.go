//go:build unit || !integration

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bacalhau-project/callback-relay/pkg/prover"
	"github.com/bacalhau-project/callback-relay/pkg/relayerrors"
	"github.com/bacalhau-project/callback-relay/pkg/remote"
)

const testPrivateKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, prover.ModeUnset, cfg.ProvingMode)
	assert.Equal(t, remote.DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultResubscribeBackoff, cfg.ResubscribeBackoff)
	assert.Equal(t, DefaultImagesDir, cfg.ImagesDir)
	assert.Equal(t, DefaultAPIPort, cfg.APIPort)
	assert.Zero(t, cfg.ChainID)
	assert.Empty(t, cfg.StorePath)
	assert.Equal(t, DefaultDownloadRetries, cfg.DownloadRetries)
	assert.Zero(t, cfg.MemoryLimit)
}

func TestMemoryLimit(t *testing.T) {
	t.Setenv("MEMORY_LIMIT", "64MB")
	cfg, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, 64*datasize.MB, cfg.MemoryLimit)
	assert.Equal(t, uint64(64<<20), cfg.MemoryLimit.Bytes())

	t.Setenv("MEMORY_LIMIT", "lots")
	_, err = Load(New())
	assert.True(t, relayerrors.Is(err, relayerrors.InvalidBackendConfig))
}

func TestDownloadRetries(t *testing.T) {
	t.Setenv("DOWNLOAD_RETRIES", "7")
	cfg, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.DownloadRetries)

	t.Setenv("DOWNLOAD_RETRIES", "-1")
	_, err = Load(New())
	assert.True(t, relayerrors.Is(err, relayerrors.InvalidBackendConfig))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BONSAI_PROVING", "remote")
	t.Setenv("BONSAI_API_URL", "https://prover.example.com")
	t.Setenv("BONSAI_API_KEY", "secret")
	t.Setenv("ETH_NODE_URL", "ws://localhost:8545")
	t.Setenv("ETH_CHAIN_ID", "31337")
	t.Setenv("PRIVATE_KEY", "0x"+testPrivateKey)
	t.Setenv("PROXY_ADDRESS", "0x5FbDB2315678afecb367f032d93F642f64180aa3")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("API_PORT", "0")

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, prover.ModeRemote, cfg.ProvingMode)
	assert.Equal(t, "https://prover.example.com", cfg.Bonsai.URL)
	assert.Equal(t, "secret", cfg.Bonsai.APIKey)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 0, cfg.APIPort)
	assert.Equal(t, common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"), cfg.ProxyAddress)

	chainCfg, err := cfg.ChainConfig()
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8545", chainCfg.NodeURL)
	assert.Equal(t, int64(31337), chainCfg.ChainID.Int64())
	assert.NotNil(t, chainCfg.PrivateKey)
}

func TestLegacyEndpoint(t *testing.T) {
	t.Setenv("BONSAI_PROVING", "bonsai")
	t.Setenv("BONSAI_ENDPOINT", "https://legacy.example.com|legacy-key")

	cfg, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, "https://legacy.example.com", cfg.Bonsai.URL)
	assert.Equal(t, "legacy-key", cfg.Bonsai.APIKey)
}

func TestRemoteModeRequiresService(t *testing.T) {
	t.Setenv("BONSAI_PROVING", "remote")
	_, err := Load(New())
	require.Error(t, err)
	assert.True(t, relayerrors.Is(err, relayerrors.InvalidBackendConfig))
}

func TestInvalidMode(t *testing.T) {
	t.Setenv("BONSAI_PROVING", "quantum")
	_, err := Load(New())
	assert.True(t, relayerrors.Is(err, relayerrors.InvalidBackendConfig))
}

func TestInvalidProxyAddress(t *testing.T) {
	t.Setenv("PROXY_ADDRESS", "not-an-address")
	_, err := Load(New())
	assert.True(t, relayerrors.Is(err, relayerrors.InvalidBackendConfig))
}

func TestValidateChain(t *testing.T) {
	cfg, err := Load(New())
	require.NoError(t, err)
	assert.True(t, relayerrors.Is(cfg.ValidateChain(), relayerrors.InvalidBackendConfig))

	cfg.NodeURL = "ws://localhost:8545"
	cfg.PrivateKey = testPrivateKey
	assert.Error(t, cfg.ValidateChain())

	cfg.ProxyAddress = common.HexToAddress("0x01")
	require.NoError(t, cfg.ValidateChain())

	chainCfg, err := cfg.ChainConfig()
	require.NoError(t, err)
	assert.Nil(t, chainCfg.ChainID)

	cfg.PrivateKey = "zz"
	assert.True(t, relayerrors.Is(cfg.ValidateChain(), relayerrors.InvalidBackendConfig))
}

func TestValidateChainNodeURL(t *testing.T) {
	cfg, err := Load(New())
	require.NoError(t, err)
	cfg.PrivateKey = testPrivateKey
	cfg.ProxyAddress = common.HexToAddress("0x01")

	for _, nodeURL := range []string{"ws://localhost:8545", "wss://node.example.com/v3/key", "/tmp/geth.ipc"} {
		cfg.NodeURL = nodeURL
		assert.NoError(t, cfg.ValidateChain(), nodeURL)
	}
	for _, nodeURL := range []string{"http://localhost:8545", "https://node.example.com", "ws://", "ftp://node"} {
		cfg.NodeURL = nodeURL
		assert.True(t, relayerrors.Is(cfg.ValidateChain(), relayerrors.InvalidBackendConfig), nodeURL)
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("IMAGES_DIR", "/from/env")
	t.Setenv("RESUBSCRIBE_BACKOFF", "1m")

	v := New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, RegisterFlags(fs, ProvingFlags, ImageFlags, ChainFlags, ServerFlags))
	require.NoError(t, fs.Parse([]string{"--images-dir", "/from/flag", "--start-block", "42"}))
	require.NoError(t, BindFlags(v, fs, ProvingFlags, ImageFlags, ChainFlags, ServerFlags))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "/from/flag", cfg.ImagesDir)
	assert.Equal(t, uint64(42), cfg.StartBlock)
	assert.Equal(t, time.Minute, cfg.ResubscribeBackoff)
}

func TestRegisterFlagsRejectsUnknownType(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	err := RegisterFlags(fs, []Definition{{FlagName: "ratio", ConfigPath: "ratio", DefaultValue: 0.5}})
	assert.Error(t, err)
	assert.Error(t, BindFlags(New(), fs, ImageFlags))
}

func TestConfigFileAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "relay.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("images_dir: /from/file\nstore_path: /tmp/relay.db\n"), 0o600))

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("STORE_PATH=/from/dotenv.db\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("STORE_PATH") })
	require.NoError(t, LoadDotEnv(envPath, filepath.Join(dir, "missing.env")))

	v := New()
	require.NoError(t, ReadConfigFile(v, configPath))
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "/from/file", cfg.ImagesDir)
	// the environment wins over the file
	assert.Equal(t, "/from/dotenv.db", cfg.StorePath)
}
