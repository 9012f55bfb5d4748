package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/abhisek/qcm/internal/devserver"
	"github.com/spf13/cobra"
)

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run an in-memory assessment backend for local testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		path, _ := cmd.Flags().GetString("fixtures")

		fixtures, err := devserver.DemoFixtures()
		if path != "" {
			fixtures, err = devserver.LoadFixtures(path)
		}
		if err != nil {
			return err
		}

		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

		fmt.Printf("Serving %d assessments on http://%s\n", len(fixtures.Assessments), addr)
		for _, a := range fixtures.Assessments {
			state := ""
			if a.Expired {
				state = " (expired)"
			}
			fmt.Printf("  qcm take %s --api-url http://%s%s\n", a.Token, addr, state)
		}

		return devserver.New(fixtures).ListenAndServe(cmd.Context(), addr)
	},
}

func init() {
	devserverCmd.Flags().String("addr", "localhost:8080", "Listen address")
	devserverCmd.Flags().String("fixtures", "", "YAML fixtures file (defaults to the built-in demo set)")
}
