package util

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bacalhau-project/callback-relay/cmd/util/output"
	"github.com/bacalhau-project/callback-relay/pkg/relayerrors"
)

var Fatal = fatalError

func fatalError(cmd *cobra.Command, err error, code int) {
	if msg := err.Error(); msg != "" {
		if !strings.HasSuffix(msg, "\n") {
			msg += "\n"
		}
		cmd.PrintErr(output.RedStr(msg))
	}
	var relayErr *relayerrors.Error
	if errors.As(err, &relayErr) && relayErr.Hint() != "" {
		cmd.PrintErrln("Hint: " + relayErr.Hint())
	}
	os.Exit(code)
}
