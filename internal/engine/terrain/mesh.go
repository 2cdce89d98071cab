package terrain

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Generate builds a numCellsX by numCellsZ grid centred on the origin, with
// heights sampled from hm. A nil or empty heightmap yields flat terrain.
func Generate(numCellsX, numCellsZ int, hm *Heightmap, opts Options) (*Mesh, error) {
	if numCellsX < 1 || numCellsZ < 1 {
		return nil, fmt.Errorf("terrain: invalid grid %dx%d, need at least one cell per axis", numCellsX, numCellsZ)
	}
	opts = opts.withDefaults()

	numVertsX := numCellsX + 1
	numVertsZ := numCellsZ + 1
	count := numVertsX * numVertsZ

	halfWidth := float32(numCellsX) * opts.CellSize / 2
	halfDepth := float32(numCellsZ) * opts.CellSize / 2

	m := &Mesh{
		CellsX:    numCellsX,
		CellsZ:    numCellsZ,
		Positions: make([]mgl32.Vec3, 0, count),
		UVs:       make([]mgl32.Vec2, 0, count),
	}

	for z := range numVertsZ {
		v := float32(z) / float32(numVertsZ-1)
		for x := range numVertsX {
			u := float32(x) / float32(numVertsX-1)
			m.Positions = append(m.Positions, mgl32.Vec3{
				float32(x)*opts.CellSize - halfWidth,
				opts.HeightScale * hm.Sample(u, v),
				halfDepth - float32(z)*opts.CellSize,
			})
			m.UVs = append(m.UVs, mgl32.Vec2{u, v})
		}
	}

	m.Indices = GenerateIndices(numCellsX, numCellsZ)
	m.Normals = ComputeNormals(m.Positions, m.Indices)
	return m, nil
}

// GenerateIndices returns the triangle list for a numCellsX by numCellsZ grid
// of z-major vertices. Each cell is split along alternating diagonals so the
// grid forms a diamond pattern. When the cell count is even the pattern is
// kept in step by an extra flip at the end of every row.
func GenerateIndices(numCellsX, numCellsZ int) []uint32 {
	if numCellsX < 1 || numCellsZ < 1 {
		return nil
	}
	w := uint32(numCellsX + 1)
	evenCount := (numCellsX*numCellsZ)%2 == 0

	indices := make([]uint32, 0, numCellsX*numCellsZ*6)
	toggle := true
	for z := range numCellsZ {
		for x := range numCellsX {
			s := uint32(z)*w + uint32(x)
			if toggle {
				indices = append(indices,
					s, s+1, s+w,
					s+1, s+w+1, s+w,
				)
			} else {
				indices = append(indices,
					s+1, s+w+1, s,
					s+w+1, s+w, s,
				)
			}
			toggle = !toggle
		}
		if evenCount {
			toggle = !toggle
		}
	}
	return indices
}

// ComputeNormals returns smooth per-vertex normals: the normalised sum of the
// unit face normals of every triangle touching the vertex. Degenerate faces
// contribute nothing and vertices with no area around them get a zero normal.
// Triangles referencing vertices outside positions are skipped.
func ComputeNormals(positions []mgl32.Vec3, indices []uint32) []mgl32.Vec3 {
	normals := make([]mgl32.Vec3, len(positions))
	n := uint32(len(positions))

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		if i0 >= n || i1 >= n || i2 >= n {
			continue
		}
		v0, v1, v2 := positions[i0], positions[i1], positions[i2]
		face := safeNormalize(v1.Sub(v0).Cross(v2.Sub(v0)))

		normals[i0] = normals[i0].Add(face)
		normals[i1] = normals[i1].Add(face)
		normals[i2] = normals[i2].Add(face)
	}

	for i := range normals {
		normals[i] = safeNormalize(normals[i])
	}
	return normals
}

// safeNormalize returns v scaled to unit length, or zero if v is zero.
func safeNormalize(v mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l < 1e-12 {
		return mgl32.Vec3{}
	}
	return v.Mul(1 / l)
}
