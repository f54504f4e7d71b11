package images

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bacalhau-project/callback-relay/cmd/util/output"
	"github.com/bacalhau-project/callback-relay/pkg/config"
	"github.com/bacalhau-project/callback-relay/pkg/image"
)

type imageRow struct {
	Name string   `json:"name"`
	ID   image.ID `json:"id"`
	Size int      `json:"size"`
}

var columns = []output.TableColumn[imageRow]{
	{
		ColumnConfig: table.ColumnConfig{Name: "name"},
		Value:        func(r imageRow) string { return r.Name },
	},
	{
		ColumnConfig: table.ColumnConfig{Name: "id", WidthMax: 18, WidthMaxEnforcer: func(col string, maxLen int) string {
			if len(col) <= maxLen {
				return col
			}
			return col[:maxLen-3] + "..."
		}},
		Value: func(r imageRow) string { return r.ID.String() },
	},
	{
		ColumnConfig: table.ColumnConfig{Name: "size", Align: text.AlignRight},
		Value:        func(r imageRow) string { return fmt.Sprintf("%d", r.Size) },
	},
}

func NewCmd(v *viper.Viper) *cobra.Command {
	outputOpts := output.OutputOptions{Format: output.TableFormat}

	imagesCmd := &cobra.Command{
		Use:   "images",
		Short: "List the images the relay can run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.BindFlags(v, cmd.Flags(), config.ImageFlags); err != nil {
				return err
			}
			registry, err := image.LoadDir(v.GetString(config.KeyImagesDir))
			if err != nil {
				return err
			}
			rows := lo.Map(registry.Entries(), func(e image.Entry, _ int) imageRow {
				return imageRow{Name: e.Name, ID: e.ID, Size: len(e.Binary)}
			})
			return output.Output(cmd, columns, outputOpts, rows)
		},
	}
	if err := config.RegisterFlags(imagesCmd.Flags(), config.ImageFlags); err != nil {
		panic(fmt.Sprintf("DEVELOPER ERROR: %s", err))
	}
	imagesCmd.Flags().AddFlagSet(output.OutputFormatFlags(&outputOpts))
	return imagesCmd
}
