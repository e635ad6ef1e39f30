package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/Clerks303/Scraping/internal/model"
)

var importUpdateExisting bool

var importCmd = &cobra.Command{
	Use:   "import <file.csv|file.xlsx>",
	Short: "Bulk import companies from a CSV or XLSX file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrap(err, "open import file")
		}
		defer f.Close()

		result, err := env.Importer.ImportBatch(cmd.Context(), f, filepath.Base(args[0]), importUpdateExisting)
		if err != nil {
			return err
		}

		printImportResult(result)
		if !result.Success {
			return eris.New("import failed: every row was rejected")
		}
		return nil
	},
}

func printImportResult(result *model.ImportResult) {
	fmt.Printf("Rows:     %d\n", result.TotalRows)
	fmt.Printf("New:      %d\n", result.NewCount)
	fmt.Printf("Updated:  %d\n", result.UpdatedCount)
	fmt.Printf("Skipped:  %d\n", result.SkippedCount)
	if len(result.Errors) > 0 {
		fmt.Printf("Errors:   %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("  row %d: %s\n", e.Row, e.Reason)
		}
	}
}

func init() {
	importCmd.Flags().BoolVar(&importUpdateExisting, "update-existing", false, "merge rows into existing records instead of skipping duplicates")
	rootCmd.AddCommand(importCmd)
}
