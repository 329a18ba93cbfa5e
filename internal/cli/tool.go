package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var toolCmd = &cobra.Command{
	Use:   "tool <object> [control]",
	Short: "Show or set the remembered tool for an object",
	Long: `Each object tag remembers the control last used to draw on it, so
reopening the editor restores the same tool. With one argument the
remembered tool is printed; with two it is updated.`,
	Args: cobra.RangeArgs(1, 2),
	Run:  runTool,
}

func runTool(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	objectName := args[0]
	if c.Session.Tree.Object(objectName) == nil {
		exitError("unknown object %q", objectName)
	}

	if len(args) == 1 {
		tool, ok := c.Session.SelectedTool(objectName)
		if !ok {
			fmt.Printf("No tool remembered for %s\n", objectName)
			return
		}
		fmt.Println(tool)
		return
	}

	tool := args[1]
	ctrl := c.Session.Tree.Control(tool)
	if ctrl == nil {
		exitError("unknown control %q", tool)
	}
	if ctrl.ToName != objectName {
		exitError("control %q targets %q, not %q", tool, ctrl.ToName, objectName)
	}
	if err := c.Session.SetSelectedTool(objectName, tool); err != nil {
		exitError("failed to save tool: %v", err)
	}
	fmt.Printf("Remembered %s for %s\n", tool, objectName)
}
