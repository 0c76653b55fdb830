package main

import (
	"github.com/spf13/cobra"

	"github.com/nmorell/followgraph/internal/graph"
)

var loopsExcludePrivate bool

var analyzeLoopsCmd = &cobra.Command{
	Use:   "analyze-loops",
	Short: "List follower loops (triangles) by display name",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		g, err := graph.Build(store, loopsExcludePrivate)
		if err != nil {
			return err
		}

		triangles := g.Triangles()
		if len(triangles) == 0 {
			cmd.Println("No loops detected in current data set.")
			return nil
		}

		cmd.Printf("Found %d loops:\n", len(triangles))
		return graph.WriteLoopSummary(cmd.OutOrStdout(), triangles)
	},
}

func init() {
	analyzeLoopsCmd.Flags().BoolVar(&loopsExcludePrivate, "exclude-private", false, "omit private profiles from the analysis")
}
