// Package camera provides a free-flying camera for the scene viewer.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// maxPitch keeps the look vector away from the poles, where it would become
// parallel to the up vector.
const maxPitch = 89 * math.Pi / 180

// FreeCamera flies through the scene with yaw and pitch angles.
type FreeCamera struct {
	Pos mgl32.Vec3
	Up  mgl32.Vec3

	Yaw   float32 // radians, 0 looks down -Z, positive turns toward +X
	Pitch float32 // radians, positive looks up

	MoveSpeed        float32 // world units per second
	MouseSensitivity float32 // radians per pixel
}

// NewFreeCamera creates a camera at pos looking along look.
func NewFreeCamera(pos, look, up mgl32.Vec3) *FreeCamera {
	c := &FreeCamera{
		Pos:              pos,
		Up:               up,
		MoveSpeed:        800,
		MouseSensitivity: 0.003,
	}
	c.LookAlong(look)
	return c
}

// LookAlong points the camera along dir. A zero vector is ignored.
func (c *FreeCamera) LookAlong(dir mgl32.Vec3) {
	if dir.Len() == 0 {
		return
	}
	dir = dir.Normalize()
	c.Pitch = clampPitch(float32(math.Asin(float64(dir.Y()))))
	c.Yaw = float32(math.Atan2(float64(dir.X()), float64(-dir.Z())))
}

// Position returns the camera position in world space.
func (c *FreeCamera) Position() mgl32.Vec3 {
	return c.Pos
}

// LookVector returns the unit view direction.
func (c *FreeCamera) LookVector() mgl32.Vec3 {
	sy, cy := math.Sincos(float64(c.Yaw))
	sp, cp := math.Sincos(float64(c.Pitch))
	return mgl32.Vec3{
		float32(cp * sy),
		float32(sp),
		float32(-cp * cy),
	}
}

// UpVector returns the world up vector.
func (c *FreeCamera) UpVector() mgl32.Vec3 {
	return c.Up
}

// Right returns the unit vector to the camera's right.
func (c *FreeCamera) Right() mgl32.Vec3 {
	r := c.LookVector().Cross(c.Up)
	if r.Len() == 0 {
		return mgl32.Vec3{1, 0, 0}
	}
	return r.Normalize()
}

// HandleDrag turns the camera by a mouse delta in pixels.
func (c *FreeCamera) HandleDrag(deltaX, deltaY float32) {
	c.Yaw += deltaX * c.MouseSensitivity
	c.Pitch = clampPitch(c.Pitch - deltaY*c.MouseSensitivity)
}

// HandleMovement moves the camera. forward, right and up are axis inputs in
// [-1, 1]; dt is the frame time in seconds.
func (c *FreeCamera) HandleMovement(forward, right, up, dt float32) {
	step := c.MoveSpeed * dt
	move := c.LookVector().Mul(forward).
		Add(c.Right().Mul(right)).
		Add(c.Up.Mul(up))
	c.Pos = c.Pos.Add(move.Mul(step))
}

func clampPitch(p float32) float32 {
	return mgl32.Clamp(p, -maxPitch, maxPitch)
}
