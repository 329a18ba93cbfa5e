package models

// RelationDirection describes how a relation between two regions points.
type RelationDirection string

const (
	RelationRight RelationDirection = "right" // from -> to
	RelationLeft  RelationDirection = "left"  // to -> from
	RelationBi    RelationDirection = "bi"    // both ways
)

// Relation links two regions of the same annotation.
type Relation struct {
	ID        string            `json:"id"`
	FromID    string            `json:"from_id"`
	ToID      string            `json:"to_id"`
	Direction RelationDirection `json:"direction"`
	Labels    []string          `json:"labels,omitempty"`
}

// SameEndpoints reports whether another relation connects the same pair in
// the same direction. Used for duplicate rejection.
func (r *Relation) SameEndpoints(other *Relation) bool {
	return r.FromID == other.FromID && r.ToID == other.ToID && r.Direction == other.Direction
}
