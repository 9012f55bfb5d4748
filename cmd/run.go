package cmd

import (
	"fmt"
	"log/slog"

	"github.com/abhisek/qcm/internal/api"
	"github.com/abhisek/qcm/internal/app"
	"github.com/abhisek/qcm/internal/completion"
	"github.com/abhisek/qcm/internal/screens/intake"
	"github.com/spf13/cobra"
)

var takeCmd = &cobra.Command{
	Use:   "take <token>",
	Short: "Take the assessment behind an invitation token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTake(cmd, args[0])
	},
}

func init() {
	takeCmd.Flags().Bool("open", false, "Open the application form in the browser after passing")
}

// runTake opens the journal, builds dependencies, and launches the TUI.
func runTake(cmd *cobra.Command, token string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	autoOpen, _ := cmd.Flags().GetBool("open")
	autoOpen = autoOpen || cfg.OpenBrowser

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	client := newClient(cfg)
	logger := slog.Default().With("token", token)

	m := app.New(app.Options{
		Token:        token,
		Backend:      client,
		Attempts:     st.AttemptRepo(),
		Journal:      st.AnswerWriteRepo(),
		APIURL:       client.BaseURL(),
		IntakeBase:   cfg.IntakeBase(),
		FlushTimeout: cfg.FinishFlushTimeout,
		Retry:        api.DefaultRetryConfig(),
		Open:         intake.OpenBrowser,
		AutoOpen:     autoOpen,
		Logger:       logger,
	})

	final, err := app.Run(cmd.Context(), m)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	out := final.Outcome()
	switch {
	case out.IntakeURL != "":
		fmt.Println("Continue your application at:")
		fmt.Println(out.IntakeURL)
	case out.Result != nil:
		fmt.Printf("%s: %s (%s, %s)\n",
			completion.Verdict(*out.Result),
			completion.FormatScore(*out.Result),
			completion.FormatCorrect(*out.Result),
			completion.FormatDuration(*out.Result))
	}
	return nil
}
