package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/labelkit/internal/config"
	"github.com/kilupskalvis/labelkit/internal/tags"
)

var checkCmd = &cobra.Command{
	Use:   "check [labeling-config.yaml]",
	Short: "Validate a labeling configuration",
	Long: `Parse and validate a labeling configuration. With no argument the
project's configured labeling config is checked. Unknown control tags,
duplicate names, and dangling to_name targets are reported as errors.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) {
	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		cfg, err := config.Load()
		if err != nil {
			exitError("%v", err)
		}
		path = cfg.LabelingPath()
	}

	tree, err := tags.LoadFile(path)
	if err != nil {
		exitError("invalid labeling config: %v", err)
	}

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	green.Printf("OK: %s\n\n", path)

	fmt.Printf("Objects (%d):\n", len(tree.Objects))
	for _, o := range tree.Objects {
		fmt.Printf("  %-12s %s\n", o.Type, o.Name)
	}

	controls := tree.AllControls()
	fmt.Printf("\nControls (%d):\n", len(controls))
	for _, c := range controls {
		line := fmt.Sprintf("  %-16s %s", c.Type, c.Name)
		if c.ToName != "" {
			line += fmt.Sprintf(" -> %s", c.ToName)
		}
		fmt.Print(line)
		var notes []string
		if c.Required {
			notes = append(notes, "required")
		}
		if c.PerRegion {
			notes = append(notes, "per-region")
		}
		if c.MaxUsages > 0 {
			notes = append(notes, fmt.Sprintf("max %d", c.MaxUsages))
		}
		if c.VisibleWhen != "" {
			notes = append(notes, fmt.Sprintf("visible when %s", c.VisibleWhen))
		}
		if len(notes) > 0 {
			cyan.Printf("  (%s)", joinNotes(notes))
		}
		fmt.Println()
		for _, l := range c.Labels {
			if l.MaxUsages > 0 {
				fmt.Printf("      %s (max %d)\n", l.Value, l.MaxUsages)
			} else {
				fmt.Printf("      %s\n", l.Value)
			}
		}
	}
}

func joinNotes(notes []string) string {
	out := ""
	for i, n := range notes {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}
