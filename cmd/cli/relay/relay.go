package relay

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bacalhau-project/callback-relay/cmd/util"
	"github.com/bacalhau-project/callback-relay/pkg/chain"
	"github.com/bacalhau-project/callback-relay/pkg/config"
	"github.com/bacalhau-project/callback-relay/pkg/image"
	"github.com/bacalhau-project/callback-relay/pkg/publicapi"
	relaypkg "github.com/bacalhau-project/callback-relay/pkg/relay"
	"github.com/bacalhau-project/callback-relay/pkg/requeststore"
	"github.com/bacalhau-project/callback-relay/pkg/requeststore/boltdb"
	"github.com/bacalhau-project/callback-relay/pkg/requeststore/inmemory"
	"github.com/bacalhau-project/callback-relay/pkg/system"
)

var flagGroups = [][]config.Definition{
	config.ProvingFlags, config.ImageFlags, config.ChainFlags, config.ServerFlags,
}

func NewCmd(v *viper.Viper) *cobra.Command {
	relayCmd := &cobra.Command{
		Use:   "relay",
		Short: "Watch the proxy contract and answer its callback requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.BindFlags(v, cmd.Flags(), flagGroups...); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	if err := config.RegisterFlags(relayCmd.Flags(), flagGroups...); err != nil {
		panic(fmt.Sprintf("DEVELOPER ERROR: %s", err))
	}
	return relayCmd
}

func run(ctx context.Context, cfg config.RelayConfig) error {
	cm := util.GetCleanupManager(ctx)
	defer func() {
		if err := cm.Cleanup(context.Background()); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("cleanup failed")
		}
	}()

	registry, err := image.LoadDir(cfg.ImagesDir)
	if err != nil {
		return err
	}
	log.Ctx(ctx).Info().Str("dir", cfg.ImagesDir).Strs("images", registry.IDs()).Msg("images loaded")

	dispatcher, err := util.NewDispatcher(ctx, cfg, cm)
	if err != nil {
		return err
	}

	chainCfg, err := cfg.ChainConfig()
	if err != nil {
		return err
	}
	client, err := chain.Dial(ctx, chainCfg)
	if err != nil {
		return err
	}
	cm.RegisterCallback(func() error {
		client.Close()
		return nil
	})
	log.Ctx(ctx).Info().
		Str("proxy", cfg.ProxyAddress.Hex()).
		Str("sender", client.Sender().Hex()).
		Msg("connected to chain")

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	cm.RegisterCallbackWithContext(store.Close)

	if cfg.APIPort > 0 {
		server := publicapi.NewServer(publicapi.ServerParams{
			Port:   cfg.APIPort,
			Images: registry,
			Store:  store,
			Mode:   dispatcher.Mode().String(),
		})
		go func() {
			if err := server.ListenAndServe(ctx, cm); err != nil {
				log.Ctx(ctx).Error().Err(err).Msg("status API stopped")
			}
		}()
	}

	r, err := relaypkg.NewRelay(relaypkg.Params{
		Source:             client,
		Images:             registry,
		Dispatcher:         dispatcher,
		Sender:             client,
		Store:              store,
		StartBlock:         cfg.StartBlock,
		ResubscribeBackoff: cfg.ResubscribeBackoff,
	})
	if err != nil {
		return err
	}
	return r.Run(ctx)
}

func openStore(ctx context.Context, cfg config.RelayConfig) (requeststore.Store, error) {
	if cfg.StorePath == "" {
		return inmemory.NewStore(), nil
	}
	exists, err := system.PathExists(cfg.StorePath)
	if err != nil {
		return nil, err
	}
	store, err := boltdb.NewStore(ctx, cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("opening request store %s: %w", cfg.StorePath, err)
	}
	log.Ctx(ctx).Info().Str("path", cfg.StorePath).Bool("existing", exists).Msg("request store opened")
	return store, nil
}
