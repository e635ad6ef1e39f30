package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Clerks303/Scraping/internal/job"
	"github.com/Clerks303/Scraping/internal/source"
)

var (
	scrapeMinRevenue float64
	scrapeMinScore   float64
	scrapeSiren      string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <source>",
	Short: "Run an acquisition source and wait for it to finish",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		name := args[0]
		params := source.Params{Siren: scrapeSiren}
		if cmd.Flags().Changed("min-revenue") {
			params.MinRevenue = &scrapeMinRevenue
		}
		if cmd.Flags().Changed("min-score") {
			params.MinScore = &scrapeMinScore
		}

		if _, err := env.Orchestrator.StartJob(ctx, name, params); err != nil {
			return err
		}

		// Poll until the job reaches a terminal state. Ctrl-C requests
		// cancellation instead of abandoning the run.
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		// done is nilled after the stop request so the closed channel does
		// not starve the ticker.
		done := ctx.Done()
		for {
			select {
			case <-done:
				done = nil
				if err := env.Orchestrator.StopJob(name); err != nil {
					zap.L().Warn("stop request failed", zap.Error(err))
				}
			case <-ticker.C:
			}

			snap, err := env.Orchestrator.Status(name)
			if err != nil {
				return err
			}
			fmt.Printf("[%3d%%] %-9s %s\n", snap.Progress, snap.State, snap.Message)

			if snap.State.Terminal() {
				fmt.Printf("\n%s: %d new, %d updated, %d skipped, %d errors\n",
					snap.State, snap.NewCount, snap.UpdatedCount, snap.SkippedCount, snap.ErrorCount)
				if snap.State == job.StateFailed {
					return eris.Errorf("job failed: %s", snap.Err)
				}
				return nil
			}
		}
	},
}

func init() {
	scrapeCmd.Flags().Float64Var(&scrapeMinRevenue, "min-revenue", 0, "minimum revenue filter (EUR)")
	scrapeCmd.Flags().Float64Var(&scrapeMinScore, "min-score", 0, "minimum prospection score filter")
	scrapeCmd.Flags().StringVar(&scrapeSiren, "siren", "", "target a single SIREN")
	rootCmd.AddCommand(scrapeCmd)
}
