package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/labelkit/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new labelkit project",
	Long: `Initialize a new labelkit project in the current directory.
This creates a .labelkit directory holding the project configuration,
state databases, and mask blobs.`,
	Run: runInit,
}

var (
	initName   string
	initConfig string
)

func init() {
	initCmd.Flags().StringVar(&initName, "name", "", "Project name")
	initCmd.Flags().StringVar(&initConfig, "config", "", "Path to an existing labeling config YAML to copy in")
}

func runInit(cmd *cobra.Command, args []string) {
	if _, err := config.FindRoot(); err == nil {
		exitError("labelkit project already exists")
	}

	dir, err := os.Getwd()
	if err != nil {
		exitError("%v", err)
	}

	name := initName
	if name == "" {
		name = filepath.Base(dir)
	}

	fmt.Printf("Initializing labelkit project %q...\n", name)

	cfg, err := config.Initialize(dir, name)
	if err != nil {
		exitError("failed to initialize project: %v", err)
	}

	if initConfig != "" {
		data, err := os.ReadFile(initConfig)
		if err != nil {
			exitError("failed to read labeling config: %v", err)
		}
		if err := os.WriteFile(cfg.LabelingPath(), data, 0644); err != nil {
			exitError("failed to copy labeling config: %v", err)
		}
		fmt.Printf("Copied labeling config from %s\n", initConfig)
	} else {
		if err := os.WriteFile(cfg.LabelingPath(), []byte(starterLabelingConfig), 0644); err != nil {
			exitError("failed to write starter labeling config: %v", err)
		}
		fmt.Printf("Wrote starter labeling config to %s\n", cfg.LabelingPath())
	}

	fmt.Printf("\nInitialized empty labelkit project in %s/\n", config.Dir)
	fmt.Printf("Edit %s to define your labels, then run 'labelkit check'.\n", cfg.LabelingPath())
}

const starterLabelingConfig = `objects:
  - type: image
    name: img
    value: $image

controls:
  - type: rectanglelabels
    name: boxes
    to_name: img
    labels:
      - value: Object
`
