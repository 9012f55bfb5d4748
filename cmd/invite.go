package cmd

import (
	"fmt"

	"github.com/abhisek/qcm/internal/attempt"
	"github.com/abhisek/qcm/internal/invite"
	"github.com/spf13/cobra"
)

var inviteCmd = &cobra.Command{
	Use:   "invite <token>",
	Short: "Show the assessment behind an invitation without starting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		a, err := invite.NewLoader(newClient(cfg)).Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("load invitation: %w", err)
		}

		fmt.Printf("Assessment:  %s\n", a.ID)
		if a.Language != "" {
			fmt.Printf("Language:    %s\n", a.Language)
		}
		fmt.Printf("Questions:   %d\n", a.QuestionCount())
		fmt.Println()
		fmt.Println(attempt.StartLabel(a.QuestionCount()))
		return nil
	},
}
