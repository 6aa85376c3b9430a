package component

// GravityScale scales world gravity for a dynamic body.
// 1.0 = normal gravity, 0.0 = no gravity. Absent means 1.0.
type GravityScale struct {
	Scale float32
}

var GravityScaleComponent = NewComponent[GravityScale]()
