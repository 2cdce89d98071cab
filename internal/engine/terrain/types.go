// Package terrain builds grid meshes from heightmap images.
package terrain

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/heightfield/internal/engine/mesh"
)

// DefaultCellSize is the world-space edge length of one grid cell.
const DefaultCellSize float32 = 100

// Options controls grid spacing and vertical scale.
type Options struct {
	CellSize    float32 // world units per cell, DefaultCellSize if zero
	HeightScale float32 // multiplier on the 0-255 red channel, 1 if zero
}

func (o Options) withDefaults() Options {
	if o.CellSize == 0 {
		o.CellSize = DefaultCellSize
	}
	if o.HeightScale == 0 {
		o.HeightScale = 1
	}
	return o
}

// Mesh holds the generated terrain geometry.
type Mesh struct {
	CellsX    int
	CellsZ    int
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
	Indices   []uint32
}

// Bounds holds an axis-aligned bounding box.
type Bounds struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// Center returns the midpoint of the box.
func (b Bounds) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Data returns the mesh as upload data. The slices are shared.
func (m *Mesh) Data() mesh.Data {
	return mesh.Data{
		Positions: m.Positions,
		Normals:   m.Normals,
		UVs:       m.UVs,
		Indices:   m.Indices,
	}
}

// Bounds returns the bounding box of the vertex positions.
func (m *Mesh) Bounds() Bounds {
	if len(m.Positions) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: m.Positions[0], Max: m.Positions[0]}
	for _, p := range m.Positions[1:] {
		for i := range 3 {
			b.Min[i] = min(b.Min[i], p[i])
			b.Max[i] = max(b.Max[i], p[i])
		}
	}
	return b
}
