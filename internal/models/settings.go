package models

// SettingsKey is the fixed local-storage key editor settings persist under.
const SettingsKey = "labelkit:settings"

// SelectedToolKeyPrefix prefixes the per-object last-selected-tool keys,
// producing "selected-tool:<objectName>".
const SelectedToolKeyPrefix = "selected-tool:"

// EditorSettings are the user-tunable editor preferences. They are a plain
// struct persisted through an injected port, never a mutable singleton.
type EditorSettings struct {
	EnableAutoSave     bool `json:"enableAutoSave"`
	AutoSaveDelayMS    int  `json:"autoSaveDelayMs"`
	ShowLabels         bool `json:"showLabels"`
	ContinuousLabeling bool `json:"continuousLabeling"`
	SelectAfterCreate  bool `json:"selectAfterCreate"`
	HistorySize        int  `json:"historySize"`
	VideoDrawOutside   bool `json:"videoDrawOutside"`
}

// DefaultEditorSettings returns the defaults applied when nothing is stored.
func DefaultEditorSettings() EditorSettings {
	return EditorSettings{
		EnableAutoSave:    true,
		AutoSaveDelayMS:   250,
		ShowLabels:        true,
		SelectAfterCreate: true,
		HistorySize:       100,
	}
}

// SelectedToolKey builds the persistence key for an object's last tool.
func SelectedToolKey(objectName string) string {
	return SelectedToolKeyPrefix + objectName
}
