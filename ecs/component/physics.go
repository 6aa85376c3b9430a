package component

import "github.com/jakecoffman/cp"

// PhysicsBody stores the Chipmunk2D handles the detector keeps for an
// entity's collider. Source is the Shape the handles were built from.
type PhysicsBody struct {
	Body   *cp.Body
	Shape  *cp.Shape
	Source Shape
}

var PhysicsBodyComponent = NewComponent[PhysicsBody]()
