package run

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bacalhau-project/callback-relay/cmd/util"
	"github.com/bacalhau-project/callback-relay/pkg/config"
	"github.com/bacalhau-project/callback-relay/pkg/image"
	"github.com/bacalhau-project/callback-relay/pkg/relayerrors"
)

var flagGroups = [][]config.Definition{config.ProvingFlags, config.ImageFlags}

func NewCmd(v *viper.Viper) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run <image> [hex input]",
		Short: "Produce the output of an image for an input, the way the relay would",
		Long: `Run resolves the image by name or id in the images directory, produces its
output with the configured backend and prints it hex encoded. Without an input
it prints the image id instead.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.BindFlags(v, cmd.Flags(), flagGroups...); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return run(cmd, cfg, args)
		},
	}
	if err := config.RegisterFlags(runCmd.Flags(), flagGroups...); err != nil {
		panic(fmt.Sprintf("DEVELOPER ERROR: %s", err))
	}
	return runCmd
}

func run(cmd *cobra.Command, cfg config.RelayConfig, args []string) error {
	ctx := cmd.Context()

	var input []byte
	if len(args) == 2 {
		var err error
		input, err = hex.DecodeString(strings.TrimPrefix(args[1], "0x"))
		if err != nil {
			return relayerrors.Wrap(err, relayerrors.InvalidInput, "input is not hex encoded")
		}
	}

	registry, err := image.LoadDir(cfg.ImagesDir)
	if err != nil {
		return err
	}
	entry, err := registry.Resolve(args[0])
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cmd.Println(entry.ID.Hex())
		return nil
	}

	dispatcher, err := util.NewDispatcher(ctx, cfg, util.GetCleanupManager(ctx))
	if err != nil {
		return err
	}
	output, err := dispatcher.Dispatch(ctx, entry, input)
	if err != nil {
		return err
	}
	cmd.Println("0x" + hex.EncodeToString(output))
	return nil
}
