package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nmorell/followgraph/internal/config"
	"github.com/nmorell/followgraph/internal/storage"
	"github.com/nmorell/followgraph/internal/version"
)

var (
	cfgPath string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "followgraph",
	Short:         "Map a social follower graph and analyze its loops",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgPath != "" {
			cfg, err = config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
		} else {
			cfg = config.Default()
		}

		level, lerr := logrus.ParseLevel(cfg.LogLevel)
		if lerr != nil {
			level = logrus.InfoLevel
		}
		logrus.SetLevel(level)
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the followgraph version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("followgraph v%s\n", version.Version)
	},
}

func openStore() (*storage.Store, error) {
	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	logrus.Debugf("Database opened: %s", cfg.DBPath)
	return store, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a JSON config file")
	rootCmd.AddCommand(versionCmd, scrapeCmd, exportGraphCmd, analyzeLoopsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
