// Package camera implements the orbit camera used to inspect a loaded
// model: rotate, pan and zoom around a target with damping, fit-to-model
// framing and a reset to the framing captured at load.
package camera

import (
	"Canopy3D/internal/scene"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// FitPadding leaves a margin around the model when framing it
	FitPadding = 1.5

	// MaxPitch keeps the orbit off the poles
	MaxPitch = 1.5

	DefaultYaw   = math32.Pi / 4
	DefaultPitch = math32.Pi / 6
)

// Pose is an orbit state. A captured Pose is a value and cannot be changed
// through the camera.
type Pose struct {
	Target   mgl32.Vec3
	Yaw      float32 // radians around +Y
	Pitch    float32 // radians above the horizon
	Distance float32
}

type Camera struct {
	// HOT DATA - Accessed every frame for view/projection calculations
	Position   mgl32.Vec3
	Up         mgl32.Vec3
	Projection mgl32.Mat4
	current    Pose
	goal       Pose

	// COLD DATA - Configuration and input handling
	Damping     float32 // fraction of the remaining motion covered per 1/60 s, 0 snaps
	Sensitivity float32 // radians per pixel
	PanSpeed    float32 // target travel per pixel, relative to distance
	ZoomStep    float32 // distance factor per scroll notch
	MinDistance float32
	MaxDistance float32
	Fov         float32 // degrees
	Near        float32
	Far         float32
	AspectRatio float32

	snapshot    Pose
	hasSnapshot bool
}

func NewDefaultCamera(width, height int32) *Camera {
	c := &Camera{
		Up:          mgl32.Vec3{0, 1, 0},
		Damping:     0.15,
		Sensitivity: 0.005,
		PanSpeed:    0.0015,
		ZoomStep:    1.1,
		MinDistance: 0.1,
		MaxDistance: 1e5,
		Fov:         45.0,
		Near:        0.1,
		Far:         10000.0,
		AspectRatio: 1,
	}
	if height > 0 {
		c.AspectRatio = float32(width) / float32(height)
	}
	c.current = Pose{Yaw: DefaultYaw, Pitch: DefaultPitch, Distance: 10}
	c.goal = c.current
	c.updatePosition()
	c.UpdateProjection()
	return c
}

func (c *Camera) UpdateProjection() {
	c.Projection = mgl32.Perspective(mgl32.DegToRad(c.Fov), c.AspectRatio, c.Near, c.Far)
}

func (c *Camera) SetAspectRatio(aspectRatio float32) {
	c.AspectRatio = aspectRatio
	c.UpdateProjection()
}

func (c *Camera) SetFov(fov float32) {
	c.Fov = fov
	c.UpdateProjection()
}

func (c *Camera) Target() mgl32.Vec3 { return c.current.Target }
func (c *Camera) Pose() Pose         { return c.current }

func (c *Camera) GetViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.current.Target, c.Up)
}

func (c *Camera) GetProjectionMatrix() mgl32.Mat4 {
	return c.Projection
}

func (c *Camera) GetViewProjection() mgl32.Mat4 {
	return c.Projection.Mul4(c.GetViewMatrix())
}

// Rotate orbits by a mouse delta in pixels.
func (c *Camera) Rotate(dx, dy float32) {
	c.goal.Yaw -= dx * c.Sensitivity
	c.goal.Pitch = mgl32.Clamp(c.goal.Pitch+dy*c.Sensitivity, -MaxPitch, MaxPitch)
}

// Pan slides the target in the view plane by a mouse delta in pixels.
func (c *Camera) Pan(dx, dy float32) {
	forward := c.current.Target.Sub(c.Position)
	if forward.Len() == 0 {
		return
	}
	forward = forward.Normalize()
	right := forward.Cross(c.Up).Normalize()
	up := right.Cross(forward).Normalize()
	scale := c.goal.Distance * c.PanSpeed
	c.goal.Target = c.goal.Target.Sub(right.Mul(dx * scale)).Add(up.Mul(dy * scale))
}

// Zoom moves toward the target for positive notches.
func (c *Camera) Zoom(notches float32) {
	d := c.goal.Distance * math32.Pow(c.ZoomStep, -notches)
	c.goal.Distance = mgl32.Clamp(d, c.MinDistance, c.MaxDistance)
}

// Update eases the current pose toward the goal. Damping is frame-rate
// independent: dt is measured against a 60 Hz step.
func (c *Camera) Update(dt float32) {
	k := float32(1)
	if c.Damping > 0 && c.Damping < 1 {
		k = 1 - math32.Pow(1-c.Damping, dt*60)
	}
	c.current.Yaw += (c.goal.Yaw - c.current.Yaw) * k
	c.current.Pitch += (c.goal.Pitch - c.current.Pitch) * k
	c.current.Distance += (c.goal.Distance - c.current.Distance) * k
	c.current.Target = c.current.Target.Add(c.goal.Target.Sub(c.current.Target).Mul(k))
	c.updatePosition()
}

// FitToBox frames the box from the default viewing angle. The distance
// fits the largest dimension inside the vertical field of view with
// FitPadding to spare. Clip planes follow the model scale.
func (c *Camera) FitToBox(b scene.Box3) {
	if b.IsEmpty() {
		return
	}
	maxDim := b.MaxDimension()
	dist := c.MinDistance * 10
	if maxDim > 0 {
		dist = (maxDim / 2) / math32.Tan(mgl32.DegToRad(c.Fov)/2) * FitPadding
	}
	c.goal = Pose{Target: b.Center(), Yaw: DefaultYaw, Pitch: DefaultPitch, Distance: dist}
	c.current = c.goal
	c.MaxDistance = max(c.MaxDistance, dist*20)
	c.Near = max(dist/1000, 0.01)
	c.Far = dist * 100
	c.updatePosition()
	c.UpdateProjection()
}

// Snapshot captures the current pose as the reset target.
func (c *Camera) Snapshot() {
	c.snapshot = c.current
	c.hasSnapshot = true
}

func (c *Camera) HasSnapshot() bool { return c.hasSnapshot }

// Reset restores the captured pose exactly. Without a snapshot it does
// nothing.
func (c *Camera) Reset() {
	if !c.hasSnapshot {
		return
	}
	c.current = c.snapshot
	c.goal = c.snapshot
	c.updatePosition()
}

func (c *Camera) updatePosition() {
	p := c.current
	offset := mgl32.Vec3{
		math32.Cos(p.Pitch) * math32.Sin(p.Yaw),
		math32.Sin(p.Pitch),
		math32.Cos(p.Pitch) * math32.Cos(p.Yaw),
	}
	c.Position = p.Target.Add(offset.Mul(p.Distance))
}
