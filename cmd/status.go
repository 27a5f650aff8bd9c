package main

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/bfsi-insights/curation-cli/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue item counts by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		counts, err := s.CountByStatus(cmd.Context())
		if err != nil {
			return err
		}

		statuses := make([]model.Status, 0, len(counts))
		for st := range counts {
			statuses = append(statuses, st)
		}
		sort.Slice(statuses, func(i, j int) bool {
			return statuses[i].Code() < statuses[j].Code()
		})

		total := 0
		for _, st := range statuses {
			cmd.Printf("%-12s (%d)  %6d\n", st, st.Code(), counts[st])
			total += counts[st]
		}
		cmd.Printf("%-18s %6d\n", "total", total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
