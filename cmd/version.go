package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abhisek/qcm/internal/selfupdate"
	"github.com/spf13/cobra"
)

// version is set via -ldflags at build time.
var version = "(devel)"

// versionCheckTimeout keeps `qcm version` fast when offline.
const versionCheckTimeout = 3 * time.Second

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("qcm", version)

		if offline, _ := cmd.Flags().GetBool("offline"); offline || !selfupdate.IsRelease(version) {
			return
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), versionCheckTimeout)
		defer cancel()

		rel, err := selfupdate.NewChecker(selfupdate.WithTimeout(versionCheckTimeout)).
			Check(ctx, &selfupdate.CheckInput{Version: version})
		if err != nil {
			slog.Debug("release check failed", "error", err)
			return
		}
		if n := rel.Notice(); n != "" {
			fmt.Println(n)
		}
	},
}

func init() {
	versionCmd.Flags().Bool("offline", false, "Skip the check for a newer release")
}
