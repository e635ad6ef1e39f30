package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show dataset statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := env.Store.Stats(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Companies:      %d\n", stats.Total)
		fmt.Printf("With email:     %d\n", stats.WithEmail)
		fmt.Printf("With phone:     %d\n", stats.WithPhone)
		fmt.Printf("Avg revenue:    %.0f EUR\n", stats.AvgRevenue)
		fmt.Printf("Total revenue:  %.0f EUR\n", stats.TotalRevenue)
		fmt.Printf("Avg headcount:  %.1f\n", stats.AvgHeadcount)
		if len(stats.ByStatus) > 0 {
			fmt.Println("By status:")
			for status, n := range stats.ByStatus {
				fmt.Printf("  %-16s %d\n", status, n)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
