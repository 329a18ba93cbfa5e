// Package serialize maps annotation state to and from the wire result
// array. Encoding walks regions in storage order and emits one geometry
// item per region plus one item per attached classification value, all
// sharing the region id; decoding reverses the walk with partial-failure
// tolerance: a malformed item is skipped and logged, never aborting the
// rest of the load.
package serialize

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/kilupskalvis/labelkit/internal/annotation"
	"github.com/kilupskalvis/labelkit/internal/governor"
	"github.com/kilupskalvis/labelkit/internal/models"
	"github.com/kilupskalvis/labelkit/internal/regions"
	"github.com/kilupskalvis/labelkit/internal/tags"
)

// SerializationError reports a stored result item that could not be mapped
// to any known region variant.
type SerializationError struct {
	ItemID string
	Type   models.ResultType
	Reason string
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("result item %q (type %s): %s", e.ItemID, e.Type, e.Reason)
}

// Codec implements annotation.Codec.
type Codec struct {
	logger *slog.Logger
}

// NewCodec builds a codec. A nil logger falls back to slog.Default.
func NewCodec(logger *slog.Logger) *Codec {
	if logger == nil {
		logger = slog.Default()
	}
	return &Codec{logger: logger}
}

// kindFallbackTypes maps geometry kinds to wire types when the creating
// control is no longer present in the config.
var kindFallbackTypes = map[regions.Kind]models.ResultType{
	regions.KindRectangle: models.ResultRectangleLabels,
	regions.KindPolygon:   models.ResultPolygonLabels,
	regions.KindBrush:     models.ResultBrushLabels,
	regions.KindKeyPoint:  models.ResultKeyPointLabels,
	regions.KindTextSpan:  models.ResultLabels,
	regions.KindTimeSpan:  models.ResultLabels,
}

// Encode serializes the annotation into the wire result array: regions in
// storage order, then global classifications, then relations. Controls
// inside an inactive visibleWhen subtree are excluded; regions created by
// controls the config no longer declares are retained.
func (c *Codec) Encode(a *annotation.Annotation) []models.ResultItem {
	tree := a.Tree()
	var items []models.ResultItem

	for _, r := range a.Store().Regions() {
		ctrl := tree.Control(r.Control)
		if ctrl != nil && !governor.Active(tree, ctrl, a) {
			continue
		}
		item, err := c.encodeRegion(r, ctrl)
		if err != nil {
			c.logger.Error("skipped unserializable region", "region_id", r.ID, "error", err)
			continue
		}
		items = append(items, item)
		items = append(items, c.encodeClassifications(a, r.ID, r.Object, r.Classifications)...)
	}

	items = append(items, c.encodeClassifications(a, "", "", a.GlobalClassifications())...)

	for _, rel := range a.Relations() {
		items = append(items, models.ResultItem{
			Type:      models.ResultRelation,
			FromID:    rel.FromID,
			ToID:      rel.ToID,
			Direction: string(rel.Direction),
			Value:     models.ResultValue{Labels: rel.Labels},
		})
	}
	return items
}

func (c *Codec) encodeRegion(r *regions.Region, ctrl *tags.Control) (models.ResultItem, error) {
	resultType := kindFallbackTypes[r.Kind]
	if ctrl != nil {
		resultType = ctrl.ResultType()
	}
	if resultType == "" {
		return models.ResultItem{}, &SerializationError{ItemID: r.ID, Reason: "no wire type for kind " + string(r.Kind)}
	}

	var value models.ResultValue
	switch g := r.Geometry().(type) {
	case regions.Rectangle:
		value.X, value.Y = ptr(g.X), ptr(g.Y)
		value.Width, value.Height = ptr(g.Width), ptr(g.Height)
		value.Rotation = ptr(g.Rotation)
	case regions.Polygon:
		for _, p := range g.Points {
			value.Points = append(value.Points, []float64{p.X, p.Y})
		}
	case regions.Brush:
		value.Format = g.Format
		if value.Format == "" {
			value.Format = "rle"
		}
		value.RLE = g.RLE
		value.MaskHash = g.MaskHash
	case regions.KeyPoint:
		value.X, value.Y = ptr(g.X), ptr(g.Y)
		value.Width = ptr(g.Width)
	case regions.TextSpan:
		if g.StartPath != "" {
			value.Start, value.End = g.StartPath, g.EndPath
			value.StartOffset, value.EndOffset = &g.Start, &g.End
		} else {
			value.Start, value.End = float64(g.Start), float64(g.End)
		}
		value.Text = g.Text
	case regions.TimeSpan:
		value.Start, value.End = g.Start, g.End
		if g.Channel != 0 {
			value.Channel = &g.Channel
		}
	default:
		return models.ResultItem{}, &SerializationError{ItemID: r.ID, Reason: "unsupported geometry"}
	}
	value.SetLabelList(resultType, r.Labels)

	return models.ResultItem{
		ID:        r.ID,
		FromName:  r.Control,
		ToName:    r.Object,
		Type:      resultType,
		Value:     value,
		Origin:    r.Origin,
		Score:     r.Score,
		ItemIndex: r.ItemIndex,
	}, nil
}

// encodeClassifications emits one item per classification value. regionID
// is empty for annotation-wide values.
func (c *Codec) encodeClassifications(a *annotation.Annotation, regionID, object string, values map[string]regions.ClassificationValue) []models.ResultItem {
	tree := a.Tree()
	controls := make([]string, 0, len(values))
	for name := range values {
		controls = append(controls, name)
	}
	sort.Strings(controls)

	var items []models.ResultItem
	for _, name := range controls {
		v := values[name]
		ctrl := tree.Control(name)
		if ctrl != nil && !governor.Active(tree, ctrl, a) {
			continue
		}
		toName := object
		resultType := models.ResultChoices
		if ctrl != nil {
			toName = ctrl.ToName
			resultType = ctrl.ResultType()
		} else if len(v.Taxonomy) > 0 {
			resultType = models.ResultTaxonomy
		} else if len(v.Texts) > 0 {
			resultType = models.ResultTextArea
		}

		item := models.ResultItem{
			ID:       regionID,
			FromName: name,
			ToName:   toName,
			Type:     resultType,
		}
		switch resultType {
		case models.ResultChoices:
			item.Value.Choices = v.Choices
		case models.ResultTaxonomy:
			item.Value.Taxonomy = v.Taxonomy
		case models.ResultTextArea:
			item.Value.Text = v.Texts
		default:
			// Classification value stored under a geometry control name;
			// emit as choices so nothing is silently dropped.
			item.Value.Choices = v.Choices
		}
		items = append(items, item)
	}
	return items
}

func ptr(v float64) *float64 {
	return &v
}
