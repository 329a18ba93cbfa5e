package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/labelkit/internal/regions"
)

var regionsCmd = &cobra.Command{
	Use:   "regions <annotation-id>",
	Short: "List an annotation's regions",
	Long: `Decode a stored annotation and list its regions in display order.
The draft version is preferred over the submitted result when both exist.`,
	Args: cobra.ExactArgs(1),
	Run:  runRegions,
}

var regionsGroupBy string

func init() {
	regionsCmd.Flags().StringVar(&regionsGroupBy, "group-by", "manual",
		"Display grouping: manual, label, tool, or time")
}

func runRegions(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	ann, decodeErrs, err := c.Session.LoadAnnotation(args[0])
	if err != nil {
		exitError("%v", err)
	}

	red := color.New(color.FgRed)
	for _, derr := range decodeErrs {
		red.Printf("skipped: %v\n", derr)
	}

	mode := regions.GroupMode(regionsGroupBy)
	switch mode {
	case regions.GroupManual, regions.GroupLabel, regions.GroupTool, regions.GroupTime:
	default:
		exitError("unknown group mode %q", regionsGroupBy)
	}
	ann.Store().SetGroupBy(mode)

	ordered := ann.Store().DisplayOrder()
	if len(ordered) == 0 {
		fmt.Println("No regions")
		return
	}

	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)
	showLabels := c.Session.Settings().ShowLabels

	for _, r := range ordered {
		yellow.Printf("%s ", shortID(r.ID))
		fmt.Printf("%-10s ", r.Kind)
		cyan.Printf("%s", r.Control)
		if showLabels {
			if len(r.Labels) > 0 {
				fmt.Printf(" %s", strings.Join(r.Labels, ", "))
			} else {
				fmt.Print(" (unlabeled)")
			}
		}
		if r.Hidden {
			fmt.Print("  [hidden]")
		}
		fmt.Println()
	}

	if rels := ann.Relations(); len(rels) > 0 {
		fmt.Printf("\nRelations (%d):\n", len(rels))
		for _, rel := range rels {
			fmt.Printf("  %s %s %s", shortID(rel.FromID), arrow(string(rel.Direction)), shortID(rel.ToID))
			if len(rel.Labels) > 0 {
				fmt.Printf("  [%s]", strings.Join(rel.Labels, ", "))
			}
			fmt.Println()
		}
	}
}

func arrow(direction string) string {
	switch direction {
	case "left":
		return "<-"
	case "bi":
		return "<->"
	}
	return "->"
}
