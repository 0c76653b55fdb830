package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nmorell/followgraph/internal/crawler"
	"github.com/nmorell/followgraph/internal/metrics"
	"github.com/nmorell/followgraph/internal/source"
)

var (
	scrapeDepth    int
	scrapeUseCache bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <profile>",
	Short: "Crawl a profile and its followers breadth-first to a bounded depth",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("depth") {
			cfg.MaxDepth = scrapeDepth
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		seed := crawler.NormalizeProfileID(args[0])
		tracker := metrics.NewTracker(seed, cfg.MaxDepth)

		engine := crawler.NewEngine(cfg, store, source.NewWebSource(cfg), tracker)
		engine.UseCache = scrapeUseCache

		reason := "frontier_empty"
		if err := engine.Crawl(seed); err != nil {
			reason = "fatal_error"
			if werr := tracker.WriteToFile(cfg.ReportPath, reason); werr != nil {
				logrus.Errorf("Failed to write crawl report: %v", werr)
			}
			return err
		}

		if err := tracker.WriteToFile(cfg.ReportPath, reason); err != nil {
			logrus.Errorf("Failed to write crawl report: %v", err)
		} else {
			logrus.Infof("Crawl report written to %s", cfg.ReportPath)
		}
		return nil
	},
}

func init() {
	scrapeCmd.Flags().IntVar(&scrapeDepth, "depth", 1, "maximum crawl depth")
	scrapeCmd.Flags().BoolVar(&scrapeUseCache, "use-cache", true, "resolve complete cached profiles without fetching")
}
