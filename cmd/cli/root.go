package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"

	"github.com/bacalhau-project/callback-relay/cmd/cli/id"
	"github.com/bacalhau-project/callback-relay/cmd/cli/images"
	"github.com/bacalhau-project/callback-relay/cmd/cli/relay"
	"github.com/bacalhau-project/callback-relay/cmd/cli/run"
	"github.com/bacalhau-project/callback-relay/cmd/cli/version"
	"github.com/bacalhau-project/callback-relay/cmd/util"
	"github.com/bacalhau-project/callback-relay/pkg/config"
	"github.com/bacalhau-project/callback-relay/pkg/logger"
	"github.com/bacalhau-project/callback-relay/pkg/system"
	"github.com/bacalhau-project/callback-relay/pkg/telemetry"
)

func NewRootCmd(v *viper.Viper) *cobra.Command {
	var configFile string

	RootCmd := &cobra.Command{
		Use:           os.Args[0],
		Short:         "Relay callback requests from the chain to verifiable computation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			if err := config.ReadConfigFile(v, configFile); err != nil {
				return fmt.Errorf("reading config file: %w", err)
			}
			if err := config.BindFlags(v, cmd.Flags(), config.LogFlags); err != nil {
				return err
			}
			logger.ConfigureLogging(v.GetString(config.KeyLogLevel), v.GetString(config.KeyLogType))
			telemetry.SetupFromEnvs()

			cm := system.NewCleanupManager()
			cm.RegisterCallback(telemetry.Cleanup)
			ctx = context.WithValue(ctx, util.SystemManagerKey, cm)

			var names []string
			root := cmd
			for ; root.HasParent(); root = root.Parent() {
				names = append([]string{root.Name()}, names...)
			}
			name := fmt.Sprintf("callback-relay.%s", strings.Join(names, "."))
			ctx, span := telemetry.NewSpan(ctx, telemetry.GetTracer(), name)
			ctx = context.WithValue(ctx, spanKey, span)

			cmd.SetContext(log.Logger.WithContext(ctx))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			ctx.Value(spanKey).(trace.Span).End()
			if err := util.GetCleanupManager(ctx).Cleanup(ctx); err != nil {
				log.Ctx(ctx).Warn().Err(err).Msg("cleanup failed")
			}
		},
	}

	RootCmd.AddCommand(relay.NewCmd(v))
	RootCmd.AddCommand(run.NewCmd(v))
	RootCmd.AddCommand(images.NewCmd(v))
	RootCmd.AddCommand(id.NewCmd())
	RootCmd.AddCommand(version.NewCmd())

	RootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		`Path to a YAML config file. Defaults to ./relay.yaml when present.`)
	if err := config.RegisterFlags(RootCmd.PersistentFlags(), config.LogFlags); err != nil {
		panic(fmt.Sprintf("DEVELOPER ERROR: %s", err))
	}
	return RootCmd
}

func Execute() {
	rootCmd := NewRootCmd(config.New())

	// Ensure commands are able to stop cleanly if someone presses ctrl+c
	ctx, cancel := signal.NotifyContext(context.Background(), util.ShutdownSignals...)
	defer cancel()
	rootCmd.SetContext(ctx)

	// Use stdout, not stderr for cmd.Print output, so that
	// e.g. ID=$(callback-relay id guest.wasm) works
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	if err := rootCmd.Execute(); err != nil {
		util.Fatal(rootCmd, err, 1)
	}
}

type contextKey struct {
	name string
}

var spanKey = contextKey{name: "context key for storing the root span"}
