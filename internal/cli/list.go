package cli

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored annotations",
	Long:  `Display every annotation stored in the project, newest first.`,
	Run:   runList,
}

func runList(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	records, err := c.Session.State.ListAnnotations()
	if err != nil {
		exitError("failed to list annotations: %v", err)
	}

	if len(records) == 0 {
		fmt.Println("No annotations yet")
		return
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})

	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	for _, rec := range records {
		yellow.Printf("%s ", shortID(rec.ID))
		if rec.TaskID != "" {
			fmt.Printf("task=%s ", rec.TaskID)
		}
		fmt.Printf("results=%d ", len(rec.Result))
		if rec.SentUserGenerate {
			green.Print("submitted")
		} else {
			cyan.Print("draft")
		}
		if rec.GroundTruth {
			fmt.Print(" [ground truth]")
		}
		if rec.Skipped {
			fmt.Print(" [skipped]")
		}
		fmt.Printf("  %s\n", rec.UpdatedAt.Format("Mon Jan 2 15:04:05 2006"))
	}
}
