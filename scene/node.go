package scene

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/jmheld/tether/common"
)

// Node is a transform-bearing object in a retained scene graph. World pose
// is derived by composing local transforms up the parent chain.
type Node struct {
	name        string
	parent      *Node
	children    []*Node
	local       common.TRS
	rigidAnchor bool
}

// NewNode creates a detached node with an identity local transform.
func NewNode(name string) *Node {
	return &Node{name: name, local: common.IdentityTRS()}
}

func (n *Node) Name() string {
	if n == nil {
		return ""
	}
	return n.name
}

func (n *Node) Parent() *Node {
	if n == nil {
		return nil
	}
	return n.parent
}

func (n *Node) Children() []*Node {
	if n == nil {
		return nil
	}
	return n.children
}

// AddChild attaches c under n, detaching it from any previous parent first.
func (n *Node) AddChild(c *Node) {
	if n == nil || c == nil || c == n {
		return
	}
	c.Detach()
	c.parent = n
	n.children = append(n.children, c)
}

// Detach removes n from its parent, leaving its local transform untouched.
func (n *Node) Detach() {
	if n == nil || n.parent == nil {
		return
	}
	siblings := n.parent.children
	for i, c := range siblings {
		if c == n {
			n.parent.children = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	n.parent = nil
}

func (n *Node) Position() mgl64.Vec3 { return n.local.Pos }
func (n *Node) Rotation() mgl64.Quat { return n.local.Rot }
func (n *Node) Scale() mgl64.Vec3    { return n.local.Scale }

func (n *Node) SetPosition(p mgl64.Vec3) {
	if n == nil {
		return
	}
	n.local.Pos = p
}

func (n *Node) SetRotation(q mgl64.Quat) {
	if n == nil {
		return
	}
	n.local.Rot = q.Normalize()
}

func (n *Node) SetScale(s mgl64.Vec3) {
	if n == nil {
		return
	}
	n.local.Scale = s
}

// SetLocal replaces the node's full local transform.
func (n *Node) SetLocal(t common.TRS) {
	if n == nil {
		return
	}
	n.local = t
	n.local.Rot = n.local.Rot.Normalize()
}

// LookAt rotates the node so its +Z axis points at the world-space target.
func (n *Node) LookAt(target mgl64.Vec3) {
	if n == nil {
		return
	}
	world := common.LookAtQuat(n.WorldPosition(), target, mgl64.Vec3{0, 1, 0})
	if n.parent != nil {
		world = n.parent.WorldRotation().Inverse().Mul(world)
	}
	n.local.Rot = world.Normalize()
}

// World returns the node's world transform, composed from the root down.
func (n *Node) World() common.TRS {
	if n == nil {
		return common.IdentityTRS()
	}
	if n.parent == nil {
		return n.local
	}
	return n.parent.World().Mul(n.local)
}

func (n *Node) WorldPosition() mgl64.Vec3 { return n.World().Pos }
func (n *Node) WorldRotation() mgl64.Quat { return n.World().Rot }
func (n *Node) WorldScale() mgl64.Vec3    { return n.World().Scale }

// MarkRigidBodyAnchor flags the node as the pose anchor of a rigid body,
// making it discoverable by NearestRigidBodyAnchor on descendants.
func (n *Node) MarkRigidBodyAnchor() {
	if n == nil {
		return
	}
	n.rigidAnchor = true
}

func (n *Node) IsRigidBodyAnchor() bool {
	return n != nil && n.rigidAnchor
}

// Ascend visits the node's ancestors from nearest to root, stopping early
// when fn returns false.
func (n *Node) Ascend(fn func(*Node) bool) {
	if n == nil || fn == nil {
		return
	}
	for p := n.parent; p != nil; p = p.parent {
		if !fn(p) {
			return
		}
	}
}

// NearestRigidBodyAnchor returns the closest ancestor flagged as a rigid
// body anchor, or nil.
func (n *Node) NearestRigidBodyAnchor() *Node {
	var found *Node
	n.Ascend(func(p *Node) bool {
		if p.IsRigidBodyAnchor() {
			found = p
			return false
		}
		return true
	})
	return found
}
