package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show statistics over submitted results",
	Long:  `Aggregate submitted results by type and label.`,
	Run:   runStats,
}

func runStats(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	stats, err := c.Session.Results.GetStats()
	if err != nil {
		exitError("failed to compute stats: %v", err)
	}

	fmt.Printf("Annotations: %d\n", stats.Annotations)
	fmt.Printf("Results:     %d\n", stats.Results)

	cyan := color.New(color.FgCyan)

	if len(stats.ByType) > 0 {
		fmt.Println("\nBy type:")
		for _, tc := range stats.ByType {
			cyan.Printf("  %-18s", tc.Type)
			fmt.Printf("%d\n", tc.Count)
		}
	}

	if len(stats.ByLabel) > 0 {
		fmt.Println("\nBy label:")
		for _, lc := range stats.ByLabel {
			cyan.Printf("  %-18s", lc.Label)
			fmt.Printf("%d\n", lc.Count)
		}
	}
}
