package component

// CollisionLayer lets entities declare a collision category and mask so the
// detector can skip whole groups of pairs. An entity without one collides
// with everything.
type CollisionLayer struct {
	// Category is a bitmask of this entity's collision category. Zero is
	// treated as category 1.
	Category uint32
	// Mask is a bitmask of categories this entity collides with. Zero is
	// treated as all bits set.
	Mask uint32
}

// DefaultCollisionLayer is category 1, colliding with all categories.
var DefaultCollisionLayer = CollisionLayer{Category: 1, Mask: ^uint32(0)}

func (l CollisionLayer) normalized() CollisionLayer {
	if l.Category == 0 {
		l.Category = 1
	}
	if l.Mask == 0 {
		l.Mask = ^uint32(0)
	}
	return l
}

// Collides reports whether each layer's mask accepts the other's category.
func (l CollisionLayer) Collides(other CollisionLayer) bool {
	a, b := l.normalized(), other.normalized()
	return a.Mask&b.Category != 0 && b.Mask&a.Category != 0
}

var CollisionLayerComponent = NewComponent[CollisionLayer]()
