package cmd

import (
	"fmt"
	"strings"

	"github.com/abhisek/qcm/internal/completion"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List attempts journaled on this machine",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		records, err := s.AttemptRepo().Recent(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("query attempts: %w", err)
		}
		if len(records) == 0 {
			fmt.Println("No attempts found.")
			return nil
		}

		// Header.
		fmt.Printf("%-36s  %-19s  %-16s  %-28s  %5s  %s\n",
			"Attempt", "Started", "Assessment", "Candidate", "Score", "Outcome")
		fmt.Println(strings.Repeat("─", 126))

		for _, r := range records {
			score, outcome := "-", "unfinished"
			if r.Finished() {
				score = completion.FormatScore(*r.Result)
				outcome = completion.Verdict(*r.Result)
			}
			who := r.Candidate.FirstName + " " + r.Candidate.LastName
			if len(who) > 28 {
				who = who[:25] + "..."
			}
			fmt.Printf("%-36s  %-19s  %-16s  %-28s  %5s  %s\n",
				r.ID,
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.AssessmentID,
				who,
				score,
				outcome,
			)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of attempts to show")
}
