package physics

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/jmheld/tether/common"
)

// ErrBadShape wraps every shape argument validation failure.
var ErrBadShape = errors.New("physics: invalid shape arguments")

// ShapeKind tags the concrete geometry of a Shape.
type ShapeKind int

const (
	KindBall ShapeKind = iota + 1
	KindCuboid
	KindCapsule
	KindCylinder
	KindCone
	KindConvexHull
)

func (k ShapeKind) String() string {
	switch k {
	case KindBall:
		return "ball"
	case KindCuboid:
		return "cuboid"
	case KindCapsule:
		return "capsule"
	case KindCylinder:
		return "cylinder"
	case KindCone:
		return "cone"
	case KindConvexHull:
		return "convex_hull"
	default:
		return fmt.Sprintf("shape(%d)", int(k))
	}
}

// Shape is a tagged geometry descriptor. Each kind carries its own typed
// construction arguments.
type Shape interface {
	Kind() ShapeKind
	Validate() error
	// Scaled returns the shape with its arguments adjusted for a node's
	// world scale. Radial arguments take the largest relevant scale axis,
	// extents scale per axis.
	Scaled(scale mgl64.Vec3) Shape
}

// ScaleShape adjusts a shape's construction arguments for a world scale.
func ScaleShape(s Shape, scale mgl64.Vec3) Shape {
	if s == nil {
		return nil
	}
	return s.Scaled(scale)
}

type Ball struct {
	Radius float64
}

func (Ball) Kind() ShapeKind { return KindBall }

func (b Ball) Validate() error {
	if b.Radius <= 0 {
		return fmt.Errorf("%w: ball radius %v", ErrBadShape, b.Radius)
	}
	return nil
}

func (b Ball) Scaled(scale mgl64.Vec3) Shape {
	return Ball{Radius: b.Radius * common.MaxElem(common.AbsElem(scale))}
}

type Cuboid struct {
	HalfExtents mgl64.Vec3
}

func (Cuboid) Kind() ShapeKind { return KindCuboid }

func (c Cuboid) Validate() error {
	for i, e := range c.HalfExtents {
		if e <= 0 {
			return fmt.Errorf("%w: cuboid half extent [%d]=%v", ErrBadShape, i, e)
		}
	}
	return nil
}

func (c Cuboid) Scaled(scale mgl64.Vec3) Shape {
	return Cuboid{HalfExtents: common.MulElem(c.HalfExtents, common.AbsElem(scale))}
}

type Capsule struct {
	HalfHeight float64
	Radius     float64
}

func (Capsule) Kind() ShapeKind { return KindCapsule }

func (c Capsule) Validate() error {
	if c.HalfHeight <= 0 || c.Radius <= 0 {
		return fmt.Errorf("%w: capsule half height %v radius %v", ErrBadShape, c.HalfHeight, c.Radius)
	}
	return nil
}

func (c Capsule) Scaled(scale mgl64.Vec3) Shape {
	a := common.AbsElem(scale)
	return Capsule{
		HalfHeight: c.HalfHeight * a[1],
		Radius:     c.Radius * max(a[0], a[2]),
	}
}

type Cylinder struct {
	HalfHeight float64
	Radius     float64
}

func (Cylinder) Kind() ShapeKind { return KindCylinder }

func (c Cylinder) Validate() error {
	if c.HalfHeight <= 0 || c.Radius <= 0 {
		return fmt.Errorf("%w: cylinder half height %v radius %v", ErrBadShape, c.HalfHeight, c.Radius)
	}
	return nil
}

func (c Cylinder) Scaled(scale mgl64.Vec3) Shape {
	a := common.AbsElem(scale)
	return Cylinder{
		HalfHeight: c.HalfHeight * a[1],
		Radius:     c.Radius * max(a[0], a[2]),
	}
}

type Cone struct {
	HalfHeight float64
	Radius     float64
}

func (Cone) Kind() ShapeKind { return KindCone }

func (c Cone) Validate() error {
	if c.HalfHeight <= 0 || c.Radius <= 0 {
		return fmt.Errorf("%w: cone half height %v radius %v", ErrBadShape, c.HalfHeight, c.Radius)
	}
	return nil
}

func (c Cone) Scaled(scale mgl64.Vec3) Shape {
	a := common.AbsElem(scale)
	return Cone{
		HalfHeight: c.HalfHeight * a[1],
		Radius:     c.Radius * max(a[0], a[2]),
	}
}

type ConvexHull struct {
	Points []mgl64.Vec3
}

func (ConvexHull) Kind() ShapeKind { return KindConvexHull }

func (c ConvexHull) Validate() error {
	if len(c.Points) < 3 {
		return fmt.Errorf("%w: convex hull needs at least 3 points, got %d", ErrBadShape, len(c.Points))
	}
	return nil
}

func (c ConvexHull) Scaled(scale mgl64.Vec3) Shape {
	a := common.AbsElem(scale)
	pts := make([]mgl64.Vec3, len(c.Points))
	for i, p := range c.Points {
		pts[i] = common.MulElem(p, a)
	}
	return ConvexHull{Points: pts}
}
