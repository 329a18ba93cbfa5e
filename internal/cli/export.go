package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <annotation-id>",
	Short: "Export an annotation's result array as JSON",
	Long: `Serialize a stored annotation back to its wire result array. By
default the last submitted result is exported; --draft exports the
in-progress draft instead.`,
	Args: cobra.ExactArgs(1),
	Run:  runExport,
}

var (
	exportOutput string
	exportDraft  bool
)

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to a file instead of stdout")
	exportCmd.Flags().BoolVar(&exportDraft, "draft", false, "Export the draft version")
}

func runExport(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	rec, err := c.Session.State.GetAnnotation(args[0])
	if err != nil {
		exitError("failed to read annotation: %v", err)
	}
	if rec == nil {
		exitError("annotation %q not found", args[0])
	}

	items := rec.Result
	if exportDraft {
		draft, err := c.Session.State.GetDraft(rec.ID)
		if err != nil {
			exitError("failed to read draft: %v", err)
		}
		if draft == nil {
			exitError("annotation %s has no draft", shortID(rec.ID))
		}
		if exportOutput == "" {
			fmt.Println(string(draft))
			return
		}
		if err := os.WriteFile(exportOutput, draft, 0644); err != nil {
			exitError("failed to write %s: %v", exportOutput, err)
		}
		return
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		exitError("failed to marshal results: %v", err)
	}

	if exportOutput == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(exportOutput, data, 0644); err != nil {
		exitError("failed to write %s: %v", exportOutput, err)
	}
	fmt.Printf("Exported %d items to %s\n", len(items), exportOutput)
}
