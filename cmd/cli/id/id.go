package id

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/bacalhau-project/callback-relay/pkg/image"
)

func NewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "id <file.wasm>...",
		Short: "Print the image id of each file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				binary, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				if len(args) == 1 {
					cmd.Println(image.ComputeID(binary).String())
					continue
				}
				cmd.Printf("%s  %s\n", image.ComputeID(binary).String(), path)
			}
			return nil
		},
	}
}
