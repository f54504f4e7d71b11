package util

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/bacalhau-project/callback-relay/pkg/bonsai"
	"github.com/bacalhau-project/callback-relay/pkg/chain"
	"github.com/bacalhau-project/callback-relay/pkg/config"
	"github.com/bacalhau-project/callback-relay/pkg/executor"
	"github.com/bacalhau-project/callback-relay/pkg/executor/wasm"
	"github.com/bacalhau-project/callback-relay/pkg/prover"
	"github.com/bacalhau-project/callback-relay/pkg/relayerrors"
	"github.com/bacalhau-project/callback-relay/pkg/remote"
	"github.com/bacalhau-project/callback-relay/pkg/system"
)

// NewDispatcher builds the backend selected by cfg. Only the backend the mode
// needs is constructed.
func NewDispatcher(ctx context.Context, cfg config.RelayConfig, cm *system.CleanupManager) (*prover.Dispatcher, error) {
	if cfg.ProvingMode == prover.ModeRemote {
		client, err := bonsai.NewClient(cfg.Bonsai, bonsai.WithDownloadRetries(cfg.DownloadRetries))
		if err != nil {
			return nil, err
		}
		log.Ctx(ctx).Info().Stringer("service", cfg.Bonsai).Dur("poll_interval", cfg.PollInterval).
			Msg("using remote proving service")
		return prover.NewDispatcher(cfg.ProvingMode, nil, remote.NewProver(client, remote.WithPollInterval(cfg.PollInterval)))
	}

	var opts []wasm.Option
	if cfg.MemoryLimit > 0 {
		opts = append(opts, wasm.WithMemoryLimit(cfg.MemoryLimit.Bytes()))
	}
	if cfg.ProvingMode == prover.ModeLocalWithAttestation {
		if cfg.PrivateKey == "" {
			return nil, relayerrors.New(relayerrors.InvalidBackendConfig, "attested execution needs a signing key").
				WithHint("set PRIVATE_KEY")
		}
		key, err := chain.ParsePrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, relayerrors.Wrap(err, relayerrors.InvalidBackendConfig, "attestation key")
		}
		opts = append(opts, wasm.WithAttester(executor.NewAttester(key)))
	}
	exec := wasm.NewExecutor(opts...)
	cm.RegisterCallbackWithContext(exec.Close)
	log.Ctx(ctx).Info().Stringer("mode", cfg.ProvingMode).Stringer("memory_limit", cfg.MemoryLimit).
		Msg("executing images locally")
	return prover.NewDispatcher(cfg.ProvingMode, exec, nil)
}
