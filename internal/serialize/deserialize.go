package serialize

import (
	"github.com/kilupskalvis/labelkit/internal/annotation"
	"github.com/kilupskalvis/labelkit/internal/coords"
	"github.com/kilupskalvis/labelkit/internal/models"
	"github.com/kilupskalvis/labelkit/internal/regions"
)

// Decode rebuilds regions, relations, and classification values from a
// stored result array. Geometry items are processed first so classification
// items can attach to their regions regardless of wire order. Each
// malformed item yields one error in the returned slice and is skipped.
func (c *Codec) Decode(items []models.ResultItem, a *annotation.Annotation) []error {
	var errs []error

	// Pass 1: geometry items become regions.
	for i := range items {
		item := &items[i]
		if !isGeometryType(item.Type) {
			continue
		}
		geom, err := decodeGeometry(item)
		if err != nil {
			errs = append(errs, err)
			c.logger.Error("skipped malformed result item", "item_id", item.ID, "type", item.Type, "error", err)
			continue
		}
		r := regions.NewRegion(item.ID, item.FromName, item.ToName, geom)
		r.Labels = item.Value.LabelList(item.Type)
		if item.Origin != "" {
			r.Origin = item.Origin
		}
		r.Score = item.Score
		r.ItemIndex = item.ItemIndex
		a.Store().Restore(r)
	}

	// Pass 2: classification and relation items.
	for i := range items {
		item := &items[i]
		switch item.Type {
		case models.ResultChoices, models.ResultTaxonomy, models.ResultTextArea:
			value := decodeClassification(item)
			if item.ID != "" && a.Store().Get(item.ID) != nil {
				a.Store().RestoreClassification(item.ID, item.FromName, value)
			} else {
				a.RestoreGlobalClassification(item.FromName, value)
			}
		case models.ResultRelation:
			if a.Store().Get(item.FromID) == nil || a.Store().Get(item.ToID) == nil {
				err := &SerializationError{Type: item.Type, Reason: "relation references unknown region"}
				errs = append(errs, err)
				c.logger.Error("skipped malformed result item", "error", err)
				continue
			}
			a.RestoreRelation(&models.Relation{
				FromID:    item.FromID,
				ToID:      item.ToID,
				Direction: models.RelationDirection(item.Direction),
				Labels:    item.Value.Labels,
			})
		default:
			if !isGeometryType(item.Type) {
				err := &SerializationError{ItemID: item.ID, Type: item.Type, Reason: "unknown result type"}
				errs = append(errs, err)
				c.logger.Error("skipped malformed result item", "item_id", item.ID, "error", err)
			}
		}
	}
	return errs
}

func isGeometryType(t models.ResultType) bool {
	switch t {
	case models.ResultRectangleLabels, models.ResultPolygonLabels, models.ResultBrushLabels,
		models.ResultKeyPointLabels, models.ResultTimeSeriesLabels, models.ResultHyperTextLabels,
		models.ResultLabels:
		return true
	}
	return false
}

func decodeGeometry(item *models.ResultItem) (regions.Geometry, error) {
	v := &item.Value
	switch item.Type {
	case models.ResultRectangleLabels:
		if v.X == nil || v.Y == nil || v.Width == nil || v.Height == nil {
			return nil, &SerializationError{ItemID: item.ID, Type: item.Type, Reason: "missing rectangle bounds"}
		}
		g := regions.Rectangle{X: *v.X, Y: *v.Y, Width: *v.Width, Height: *v.Height}
		if v.Rotation != nil {
			g.Rotation = *v.Rotation
		}
		return g, nil

	case models.ResultPolygonLabels:
		if len(v.Points) < 3 {
			return nil, &SerializationError{ItemID: item.ID, Type: item.Type, Reason: "polygon needs at least 3 points"}
		}
		g := regions.Polygon{}
		for _, p := range v.Points {
			if len(p) != 2 {
				return nil, &SerializationError{ItemID: item.ID, Type: item.Type, Reason: "malformed polygon point"}
			}
			g.Points = append(g.Points, coords.Pt(p[0], p[1]))
		}
		return g, nil

	case models.ResultBrushLabels:
		if len(v.RLE) == 0 && v.MaskHash == "" {
			return nil, &SerializationError{ItemID: item.ID, Type: item.Type, Reason: "brush mask is empty"}
		}
		return regions.Brush{Format: v.Format, RLE: v.RLE, MaskHash: v.MaskHash}, nil

	case models.ResultKeyPointLabels:
		if v.X == nil || v.Y == nil {
			return nil, &SerializationError{ItemID: item.ID, Type: item.Type, Reason: "missing keypoint position"}
		}
		g := regions.KeyPoint{X: *v.X, Y: *v.Y}
		if v.Width != nil {
			g.Width = *v.Width
		}
		return g, nil

	case models.ResultTimeSeriesLabels:
		return decodeTimeSpan(item)

	case models.ResultHyperTextLabels:
		return decodeTextSpan(item)

	case models.ResultLabels:
		// Plain labels attach to either text or a timeline; the value
		// shape decides.
		if isTextSpanValue(v) {
			return decodeTextSpan(item)
		}
		return decodeTimeSpan(item)
	}
	return nil, &SerializationError{ItemID: item.ID, Type: item.Type, Reason: "unknown geometry type"}
}

// isTextSpanValue recognizes text-addressed values: a quoted text string,
// explicit node offsets, or node-path start anchors.
func isTextSpanValue(v *models.ResultValue) bool {
	if _, isString := v.Text.(string); isString {
		return true
	}
	if v.StartOffset != nil || v.EndOffset != nil {
		return true
	}
	_, startIsPath := v.Start.(string)
	return startIsPath
}

func decodeTextSpan(item *models.ResultItem) (regions.Geometry, error) {
	v := &item.Value
	g := regions.TextSpan{Text: v.TextString()}

	if path, ok := v.Start.(string); ok {
		g.StartPath = path
		if endPath, ok := v.End.(string); ok {
			g.EndPath = endPath
		}
		if v.StartOffset == nil || v.EndOffset == nil {
			return nil, &SerializationError{ItemID: item.ID, Type: item.Type, Reason: "node-path span without offsets"}
		}
		g.Start, g.End = *v.StartOffset, *v.EndOffset
		return g, nil
	}

	start, okS := v.StartNumber()
	end, okE := v.EndNumber()
	if !okS || !okE {
		return nil, &SerializationError{ItemID: item.ID, Type: item.Type, Reason: "missing span offsets"}
	}
	g.Start, g.End = int(start), int(end)
	return g, nil
}

func decodeTimeSpan(item *models.ResultItem) (regions.Geometry, error) {
	v := &item.Value
	start, okS := v.StartNumber()
	end, okE := v.EndNumber()
	if !okS || !okE {
		return nil, &SerializationError{ItemID: item.ID, Type: item.Type, Reason: "missing time range"}
	}
	g := regions.TimeSpan{Start: start, End: end}
	if v.Channel != nil {
		g.Channel = *v.Channel
	}
	return g, nil
}

func decodeClassification(item *models.ResultItem) regions.ClassificationValue {
	return regions.ClassificationValue{
		Choices:  item.Value.Choices,
		Taxonomy: item.Value.Taxonomy,
		Texts:    item.Value.TextList(),
	}
}
