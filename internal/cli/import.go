package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/labelkit/internal/models"
)

var importCmd = &cobra.Command{
	Use:   "import <results.json>",
	Short: "Import a result array as a new annotation",
	Long: `Read a JSON result array (or an annotation envelope with a "result"
field), decode it against the project's labeling config, and store it as
a new annotation. Malformed items are skipped and reported; the rest of
the file still imports.`,
	Args: cobra.ExactArgs(1),
	Run:  runImport,
}

var (
	importTask   string
	importSubmit bool
)

func init() {
	importCmd.Flags().StringVar(&importTask, "task", "", "Task id to attach the annotation to")
	importCmd.Flags().BoolVar(&importSubmit, "submit", false, "Validate and submit after importing")
}

// importEnvelope accepts both a bare result array and a wrapped record.
type importEnvelope struct {
	Result []models.ResultItem `json:"result"`
}

func runImport(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		exitError("failed to read %s: %v", args[0], err)
	}

	var items []models.ResultItem
	if err := json.Unmarshal(data, &items); err != nil {
		var envelope importEnvelope
		if err2 := json.Unmarshal(data, &envelope); err2 != nil || envelope.Result == nil {
			exitError("failed to parse %s: %v", args[0], err)
		}
		items = envelope.Result
	}

	ann, decodeErrs, err := c.Session.ImportResults(importTask, items)
	if err != nil {
		exitError("import failed: %v", err)
	}

	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	for _, derr := range decodeErrs {
		red.Printf("skipped: %v\n", derr)
	}

	fmt.Print("Imported annotation ")
	yellow.Println(shortID(ann.ID))
	fmt.Printf("%d regions, %d relations, %d items skipped\n",
		ann.Store().Len(), len(ann.Relations()), len(decodeErrs))

	if !importSubmit {
		return
	}

	warnings, err := c.Session.Submit(ann)
	if err != nil {
		exitError("submit failed: %v", err)
	}
	if len(warnings) > 0 {
		fmt.Println("\nValidation failed:")
		for _, w := range warnings {
			red.Printf("  %s\n", w.Message)
		}
		os.Exit(1)
	}
	color.New(color.FgGreen).Println("Submitted")
}
