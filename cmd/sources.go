package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List registered acquisition sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		fmt.Printf("%-12s %-28s %-8s %-8s\n", "NAME", "LABEL", "PARAMS", "STOP")
		for _, info := range env.Registry.List() {
			fmt.Printf("%-12s %-28s %-8v %-8v\n", info.Name, info.Label, info.SupportsParams, info.SupportsCancel)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
