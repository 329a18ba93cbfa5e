package tags

import (
	"fmt"

	"github.com/kilupskalvis/labelkit/internal/models"
)

// Known control tag types.
const (
	TypeLabels           = "labels"
	TypeRectangleLabels  = "rectanglelabels"
	TypePolygonLabels    = "polygonlabels"
	TypeBrushLabels      = "brushlabels"
	TypeKeyPointLabels   = "keypointlabels"
	TypeTimeSeriesLabels = "timeserieslabels"
	TypeHyperTextLabels  = "hypertextlabels"
	TypeChoices          = "choices"
	TypeTaxonomy         = "taxonomy"
	TypeTextArea         = "textarea"
)

// UnknownControlError is raised at tree-build time for tags the registry
// does not know. Failing closed here keeps bad configs out of the core.
type UnknownControlError struct {
	Tag string
}

func (e *UnknownControlError) Error() string {
	return fmt.Sprintf("unknown control tag %q", e.Tag)
}

// controlResultTypes maps control types to the wire type of their results.
var controlResultTypes = map[string]models.ResultType{
	TypeLabels:           models.ResultLabels,
	TypeRectangleLabels:  models.ResultRectangleLabels,
	TypePolygonLabels:    models.ResultPolygonLabels,
	TypeBrushLabels:      models.ResultBrushLabels,
	TypeKeyPointLabels:   models.ResultKeyPointLabels,
	TypeTimeSeriesLabels: models.ResultTimeSeriesLabels,
	TypeHyperTextLabels:  models.ResultHyperTextLabels,
	TypeChoices:          models.ResultChoices,
	TypeTaxonomy:         models.ResultTaxonomy,
	TypeTextArea:         models.ResultTextArea,
}

// displayNames renders control types the way warning messages spell them.
var displayNames = map[string]string{
	TypeLabels:           "Labels",
	TypeRectangleLabels:  "RectangleLabels",
	TypePolygonLabels:    "PolygonLabels",
	TypeBrushLabels:      "BrushLabels",
	TypeKeyPointLabels:   "KeyPointLabels",
	TypeTimeSeriesLabels: "TimeSeriesLabels",
	TypeHyperTextLabels:  "HyperTextLabels",
	TypeChoices:          "Choices",
	TypeTaxonomy:         "Taxonomy",
	TypeTextArea:         "TextArea",
}

var knownObjectTypes = map[string]bool{
	"image":      true,
	"text":       true,
	"hypertext":  true,
	"audio":      true,
	"video":      true,
	"timeseries": true,
	"paragraphs": true,
}

// DisplayName returns the user-facing spelling of a control type, used in
// required-field warnings.
func (c *Control) DisplayName() string {
	if n, ok := displayNames[c.Type]; ok {
		return n
	}
	return c.Type
}

func validateControl(c *Control) error {
	if _, ok := controlResultTypes[c.Type]; !ok {
		return &UnknownControlError{Tag: c.Type}
	}
	if c.Name == "" {
		return fmt.Errorf("control of type %q has no name", c.Type)
	}
	if c.VisibleWhen != "" {
		switch c.VisibleWhen {
		case "choice-selected", "choice-unselected", "region-selected":
		default:
			return fmt.Errorf("control %q: unsupported visible_when %q", c.Name, c.VisibleWhen)
		}
	}
	return nil
}
