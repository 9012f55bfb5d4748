package cmd

import (
	"fmt"
	"strings"

	"github.com/abhisek/qcm/internal/api"
	"github.com/abhisek/qcm/internal/outbox"
	"github.com/spf13/cobra"
)

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Inspect and resend answers that never reached the server",
}

var outboxListCmd = &cobra.Command{
	Use:   "list [attempt-id]",
	Short: "List undelivered answer writes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		writes, err := s.AnswerWriteRepo().Undelivered(cmd.Context(), attemptArg(args))
		if err != nil {
			return fmt.Errorf("query outbox: %w", err)
		}
		if len(writes) == 0 {
			fmt.Println("Outbox is empty.")
			return nil
		}

		// Header.
		fmt.Printf("%-36s  %4s  %-16s  %-16s  %-8s  %s\n",
			"Attempt", "Seq", "Question", "Option", "Status", "Error")
		fmt.Println(strings.Repeat("─", 110))

		for _, w := range writes {
			fmt.Printf("%-36s  %4d  %-16s  %-16s  %-8s  %s\n",
				w.AttemptID, w.Seq, w.QuestionID, w.OptionID, w.Status, w.Error)
		}
		fmt.Printf("\n%d pending\n", len(writes))
		return nil
	},
}

var outboxFlushCmd = &cobra.Command{
	Use:   "flush [attempt-id]",
	Short: "Resend undelivered answer writes in order",
	Long: `Resend undelivered answer writes in order. Each attempt's writes go
to the backend the attempt was started on; --api-url is used only for
attempts with no recorded backend.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		senderFor := func(apiURL string) outbox.Sender {
			return newClientFor(cfg, apiURL)
		}
		report, err := outbox.ReplayByBackend(cmd.Context(), senderFor, cfg.APIURL,
			s.AttemptRepo(), s.AnswerWriteRepo(), attemptArg(args), api.DefaultRetryConfig())
		if err != nil {
			return fmt.Errorf("flush outbox: %w", err)
		}

		fmt.Printf("Delivered:   %d\n", report.Delivered)
		fmt.Printf("Superseded:  %d\n", report.Superseded)
		fmt.Printf("Failed:      %d\n", report.Failed)
		if report.Failed > 0 {
			return fmt.Errorf("%d answer writes could not be delivered", report.Failed)
		}
		return nil
	},
}

func attemptArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func init() {
	outboxCmd.AddCommand(outboxListCmd)
	outboxCmd.AddCommand(outboxFlushCmd)
}
