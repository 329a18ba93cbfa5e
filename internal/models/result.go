package models

// ResultType identifies the wire type of a result item.
type ResultType string

const (
	ResultRectangleLabels  ResultType = "rectanglelabels"
	ResultPolygonLabels    ResultType = "polygonlabels"
	ResultBrushLabels      ResultType = "brushlabels"
	ResultKeyPointLabels   ResultType = "keypointlabels"
	ResultTimeSeriesLabels ResultType = "timeserieslabels"
	ResultHyperTextLabels  ResultType = "hypertextlabels"
	ResultLabels           ResultType = "labels"
	ResultChoices          ResultType = "choices"
	ResultTaxonomy         ResultType = "taxonomy"
	ResultTextArea         ResultType = "textarea"
	ResultRelation         ResultType = "relation"
)

// Origin records how a result came into existence.
type Origin string

const (
	OriginManual     Origin = "manual"
	OriginPrediction Origin = "prediction"
	OriginPropagated Origin = "propagated"
)

// ResultItem is one element of the result array exchanged with the backend.
// Several items may share the same ID when classification controls attach
// extra values to a region.
type ResultItem struct {
	ID        string      `json:"id,omitempty"`
	FromName  string      `json:"from_name,omitempty"`
	ToName    string      `json:"to_name,omitempty"`
	Type      ResultType  `json:"type"`
	Value     ResultValue `json:"value"`
	Origin    Origin      `json:"origin,omitempty"`
	Score     *float64    `json:"score,omitempty"`
	ItemIndex *int        `json:"item_index,omitempty"`

	// Relation items carry endpoints instead of from_name/to_name.
	FromID    string `json:"from_id,omitempty"`
	ToID      string `json:"to_id,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// ResultValue is the variant payload of a result item. Exactly the fields
// relevant to the item's Type are populated; everything else stays omitted
// on the wire.
type ResultValue struct {
	// Rectangle / keypoint geometry, in percent of the source dimensions.
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`

	// Polygon vertices as [x, y] percent pairs.
	Points [][]float64 `json:"points,omitempty"`

	// Brush mask, run-length encoded.
	Format   string `json:"format,omitempty"`
	RLE      []int  `json:"rle,omitempty"`
	MaskHash string `json:"mask_hash,omitempty"`

	// Span boundaries. Numbers for time spans, strings for node-path
	// addressed rich text. Kept loose so unknown addressing forms survive
	// a round trip untouched.
	Start       any  `json:"start,omitempty"`
	End         any  `json:"end,omitempty"`
	StartOffset *int `json:"startOffset,omitempty"`
	EndOffset   *int `json:"endOffset,omitempty"`
	Channel     *int `json:"channel,omitempty"`

	// Text is the quoted span text (string) for span results, or the list
	// of entered texts ([]string) for textarea results.
	Text any `json:"text,omitempty"`

	// Label lists, keyed per control type on the wire.
	RectangleLabels  []string `json:"rectanglelabels,omitempty"`
	PolygonLabels    []string `json:"polygonlabels,omitempty"`
	BrushLabels      []string `json:"brushlabels,omitempty"`
	KeyPointLabels   []string `json:"keypointlabels,omitempty"`
	TimeSeriesLabels []string `json:"timeserieslabels,omitempty"`
	HyperTextLabels  []string `json:"hypertextlabels,omitempty"`
	Labels           []string `json:"labels,omitempty"`

	Choices  []string   `json:"choices,omitempty"`
	Taxonomy [][]string `json:"taxonomy,omitempty"`
}

// LabelList returns whichever label list the item type uses.
func (v *ResultValue) LabelList(t ResultType) []string {
	switch t {
	case ResultRectangleLabels:
		return v.RectangleLabels
	case ResultPolygonLabels:
		return v.PolygonLabels
	case ResultBrushLabels:
		return v.BrushLabels
	case ResultKeyPointLabels:
		return v.KeyPointLabels
	case ResultTimeSeriesLabels:
		return v.TimeSeriesLabels
	case ResultHyperTextLabels:
		return v.HyperTextLabels
	case ResultLabels:
		return v.Labels
	}
	return nil
}

// SetLabelList assigns labels to the list matching the item type.
func (v *ResultValue) SetLabelList(t ResultType, labels []string) {
	switch t {
	case ResultRectangleLabels:
		v.RectangleLabels = labels
	case ResultPolygonLabels:
		v.PolygonLabels = labels
	case ResultBrushLabels:
		v.BrushLabels = labels
	case ResultKeyPointLabels:
		v.KeyPointLabels = labels
	case ResultTimeSeriesLabels:
		v.TimeSeriesLabels = labels
	case ResultHyperTextLabels:
		v.HyperTextLabels = labels
	case ResultLabels:
		v.Labels = labels
	}
}

// TextString returns the span text when Text holds a string.
func (v *ResultValue) TextString() string {
	s, _ := v.Text.(string)
	return s
}

// TextList returns the textarea entries when Text holds a list.
func (v *ResultValue) TextList() []string {
	switch t := v.Text.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// StartNumber reads Start as a float, tolerating json.Unmarshal's float64
// decoding of numbers.
func (v *ResultValue) StartNumber() (float64, bool) {
	return asNumber(v.Start)
}

// EndNumber reads End as a float.
func (v *ResultValue) EndNumber() (float64, bool) {
	return asNumber(v.End)
}

func asNumber(val any) (float64, bool) {
	switch n := val.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
