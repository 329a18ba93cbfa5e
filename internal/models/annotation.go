package models

import "time"

// Versions holds the two result snapshots an annotation can display: the
// last submitted result and the in-progress draft. Result is only replaced
// by an explicit submit or update; Draft is overwritten freely by autosave.
type Versions struct {
	Result []ResultItem `json:"result,omitempty"`
	Draft  []ResultItem `json:"draft,omitempty"`
}

// AnnotationRecord is the persisted envelope of one labeling pass.
type AnnotationRecord struct {
	ID               string       `json:"id"`
	PK               string       `json:"pk,omitempty"`
	TaskID           string       `json:"task_id,omitempty"`
	Result           []ResultItem `json:"result"`
	Versions         Versions     `json:"versions"`
	CreatedBy        string       `json:"created_by,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
	GroundTruth      bool         `json:"ground_truth,omitempty"`
	Skipped          bool         `json:"skipped,omitempty"`
	WasCancelled     bool         `json:"was_cancelled,omitempty"`
	SentUserGenerate bool         `json:"sent_user_generate"`
}

// ValidationWarning is one user-facing validation message. The surrounding
// UI renders these in a modal; the exact message text is part of the
// compatibility contract.
type ValidationWarning struct {
	Message string `json:"message"`
	// Control and RegionID point at the offending input so the UI can
	// reveal it. Empty for global warnings.
	Control  string `json:"control,omitempty"`
	RegionID string `json:"region_id,omitempty"`
}

// HistoryReason tags why a history entry was recorded.
type HistoryReason string

const (
	ReasonEdit     HistoryReason = "edit"
	ReasonAutosave HistoryReason = "autosave"
	ReasonUndo     HistoryReason = "undo"
	ReasonRedo     HistoryReason = "redo"
)
