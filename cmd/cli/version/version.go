package version

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/bacalhau-project/callback-relay/cmd/util/output"
	"github.com/bacalhau-project/callback-relay/pkg/version"
)

var columns = []output.TableColumn[*version.BuildVersionInfo]{
	{
		ColumnConfig: table.ColumnConfig{Name: "version"},
		Value:        func(v *version.BuildVersionInfo) string { return v.GitVersion },
	},
	{
		ColumnConfig: table.ColumnConfig{Name: "commit"},
		Value:        func(v *version.BuildVersionInfo) string { return v.GitCommit },
	},
	{
		ColumnConfig: table.ColumnConfig{Name: "os/arch"},
		Value:        func(v *version.BuildVersionInfo) string { return v.GOOS + "/" + v.GOARCH },
	},
}

func NewCmd() *cobra.Command {
	outputOpts := output.OutputOptions{Format: output.TableFormat}
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version of the relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return output.Output(cmd, columns, outputOpts, []*version.BuildVersionInfo{version.Get()})
		},
	}
	versionCmd.Flags().AddFlagSet(output.OutputFormatFlags(&outputOpts))
	return versionCmd
}
