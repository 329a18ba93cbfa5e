package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/labelkit/internal/models"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change editor settings",
	Run:   runSettings,
}

var (
	settingsAutosave      string
	settingsAutosaveDelay int
	settingsHistorySize   int
	settingsShowLabels    string
	settingsContinuous    string
	settingsSelectAfter   string
	settingsVideoOutside  string
)

func init() {
	settingsCmd.Flags().StringVar(&settingsAutosave, "autosave", "", "Enable or disable draft autosave (on|off)")
	settingsCmd.Flags().IntVar(&settingsAutosaveDelay, "autosave-delay", 0, "Autosave debounce delay in milliseconds")
	settingsCmd.Flags().IntVar(&settingsHistorySize, "history-size", 0, "Maximum undo history depth")
	settingsCmd.Flags().StringVar(&settingsShowLabels, "show-labels", "", "Show labels on regions (on|off)")
	settingsCmd.Flags().StringVar(&settingsContinuous, "continuous-labeling", "", "Keep the active label after drawing a region (on|off)")
	settingsCmd.Flags().StringVar(&settingsSelectAfter, "select-after-create", "", "Select a region right after drawing it (on|off)")
	settingsCmd.Flags().StringVar(&settingsVideoOutside, "video-draw-outside", "", "Allow drawing outside the frame bounds (on|off)")
}

// applyOnOff parses an on|off flag value into dst. An empty value leaves
// dst untouched.
func applyOnOff(flagName, val string, dst *bool, changed *bool) {
	switch val {
	case "on":
		*dst = true
		*changed = true
	case "off":
		*dst = false
		*changed = true
	case "":
	default:
		exitError("invalid --%s value %q (want on or off)", flagName, val)
	}
}

func runSettings(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	changed := false
	err := c.Session.UpdateSettings(func(s *models.EditorSettings) {
		applyOnOff("autosave", settingsAutosave, &s.EnableAutoSave, &changed)
		applyOnOff("show-labels", settingsShowLabels, &s.ShowLabels, &changed)
		applyOnOff("continuous-labeling", settingsContinuous, &s.ContinuousLabeling, &changed)
		applyOnOff("select-after-create", settingsSelectAfter, &s.SelectAfterCreate, &changed)
		applyOnOff("video-draw-outside", settingsVideoOutside, &s.VideoDrawOutside, &changed)
		if settingsAutosaveDelay > 0 {
			s.AutoSaveDelayMS = settingsAutosaveDelay
			changed = true
		}
		if settingsHistorySize > 0 {
			s.HistorySize = settingsHistorySize
			changed = true
		}
	})
	if err != nil {
		exitError("failed to save settings: %v", err)
	}

	s := c.Session.Settings()
	if changed {
		fmt.Println("Settings updated")
	}
	fmt.Printf("autosave:            %v\n", s.EnableAutoSave)
	fmt.Printf("autosave delay:      %dms\n", s.AutoSaveDelayMS)
	fmt.Printf("history size:        %d\n", s.HistorySize)
	fmt.Printf("show labels:         %v\n", s.ShowLabels)
	fmt.Printf("continuous labeling: %v\n", s.ContinuousLabeling)
	fmt.Printf("select after create: %v\n", s.SelectAfterCreate)
	fmt.Printf("video draw outside:  %v\n", s.VideoDrawOutside)
}
