package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/abhisek/qcm/internal/selfupdate"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update qcm to the latest version",
	RunE: func(cmd *cobra.Command, args []string) error {
		checkOnly, _ := cmd.Flags().GetBool("check")
		if !selfupdate.IsRelease(version) {
			fmt.Println("Cannot update a development build. Install a release build first.")
			return nil
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		checker := selfupdate.NewChecker(selfupdate.WithTimeout(2 * time.Minute))
		rel, err := checker.Check(ctx, &selfupdate.CheckInput{Version: version})
		if err != nil {
			return fmt.Errorf("check for updates: %w", err)
		}
		if !rel.UpdateAvailable {
			fmt.Printf("qcm %s is up to date.\n", version)
			return nil
		}
		if checkOnly {
			fmt.Println(rel.Notice())
			return nil
		}

		err = checker.Install(ctx, rel, func(p selfupdate.Progress) {
			fmt.Println(p.Message)
		})
		switch {
		case err == nil:
			return nil
		case errors.Is(err, selfupdate.ErrNoAsset):
			return fmt.Errorf("%w\n\nDownload it manually from %s", err, rel.ReleaseURL)
		case os.IsPermission(err):
			return fmt.Errorf("%w\n\nTry running: sudo qcm update", err)
		}
		return err
	},
}

func init() {
	updateCmd.Flags().Bool("check", false, "Only report whether a newer release exists")
}
