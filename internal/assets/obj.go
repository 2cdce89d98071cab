package assets

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/heightfield/internal/engine/mesh"
	"github.com/Faultbox/heightfield/internal/engine/terrain"
)

// objVertex is one face corner: 0-based position, uv and normal indices,
// -1 when absent.
type objVertex struct {
	v, vt, vn int
}

type objGroup struct {
	data          mesh.Data
	lookup        map[objVertex]uint32
	missingNormal bool
}

type objParser struct {
	positions []mgl32.Vec3
	uvs       []mgl32.Vec2
	normals   []mgl32.Vec3

	meshes []mesh.Data
	cur    *objGroup
}

// ParseOBJ reads a Wavefront OBJ stream. Each object, group or material
// change that has faces becomes one mesh. Polygons are fan-triangulated and
// texture V is flipped so row 0 of the image is the top. Meshes whose faces
// lack normals get smooth normals computed from their triangles.
func ParseOBJ(r io.Reader) ([]mesh.Data, error) {
	p := &objParser{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		if err := p.parseLine(strings.Fields(line)); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading obj: %w", err)
	}
	p.flush()
	return p.meshes, nil
}

func (p *objParser) parseLine(fields []string) error {
	switch fields[0] {
	case "v":
		v, err := parseFloats(fields[1:], 3, 3)
		if err != nil {
			return fmt.Errorf("vertex: %w", err)
		}
		p.positions = append(p.positions, mgl32.Vec3{v[0], v[1], v[2]})
	case "vt":
		v, err := parseFloats(fields[1:], 1, 2)
		if err != nil {
			return fmt.Errorf("texcoord: %w", err)
		}
		p.uvs = append(p.uvs, mgl32.Vec2{v[0], 1 - v[1]})
	case "vn":
		v, err := parseFloats(fields[1:], 3, 3)
		if err != nil {
			return fmt.Errorf("normal: %w", err)
		}
		p.normals = append(p.normals, mgl32.Vec3{v[0], v[1], v[2]})
	case "f":
		return p.parseFace(fields[1:])
	case "o", "g", "usemtl":
		p.flush()
	}
	return nil
}

// parseFloats parses at least minN values and keeps at most maxN; missing
// values up to maxN are zero.
func parseFloats(fields []string, minN, maxN int) ([]float32, error) {
	if len(fields) < minN {
		return nil, fmt.Errorf("expected %d values, got %d", minN, len(fields))
	}
	out := make([]float32, maxN)
	for i := 0; i < maxN && i < len(fields); i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}

func (p *objParser) parseFace(fields []string) error {
	if len(fields) < 3 {
		return fmt.Errorf("face needs 3 vertices, got %d", len(fields))
	}
	if p.cur == nil {
		p.cur = &objGroup{lookup: make(map[objVertex]uint32)}
	}

	corners := make([]uint32, len(fields))
	for i, f := range fields {
		ov, err := p.parseCorner(f)
		if err != nil {
			return fmt.Errorf("face vertex %q: %w", f, err)
		}
		corners[i] = p.cur.vertex(ov, p)
	}
	for i := 1; i+1 < len(corners); i++ {
		p.cur.data.Indices = append(p.cur.data.Indices, corners[0], corners[i], corners[i+1])
	}
	return nil
}

func (p *objParser) parseCorner(s string) (objVertex, error) {
	parts := strings.Split(s, "/")
	if len(parts) > 3 {
		return objVertex{}, fmt.Errorf("too many components")
	}
	ov := objVertex{v: -1, vt: -1, vn: -1}

	var err error
	if ov.v, err = resolveIndex(parts[0], len(p.positions)); err != nil {
		return objVertex{}, err
	}
	if len(parts) > 1 && parts[1] != "" {
		if ov.vt, err = resolveIndex(parts[1], len(p.uvs)); err != nil {
			return objVertex{}, err
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if ov.vn, err = resolveIndex(parts[2], len(p.normals)); err != nil {
			return objVertex{}, err
		}
	}
	return ov, nil
}

// resolveIndex converts a 1-based or negative (relative) OBJ index.
func resolveIndex(s string, count int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	idx := n - 1
	if n < 0 {
		idx = count + n
	}
	if n == 0 || idx < 0 || idx >= count {
		return 0, fmt.Errorf("index %d out of range (%d defined)", n, count)
	}
	return idx, nil
}

func (g *objGroup) vertex(ov objVertex, p *objParser) uint32 {
	if idx, ok := g.lookup[ov]; ok {
		return idx
	}
	idx := uint32(len(g.data.Positions))
	g.lookup[ov] = idx

	g.data.Positions = append(g.data.Positions, p.positions[ov.v])
	if ov.vt >= 0 {
		g.data.UVs = append(g.data.UVs, p.uvs[ov.vt])
	} else {
		g.data.UVs = append(g.data.UVs, mgl32.Vec2{})
	}
	if ov.vn >= 0 {
		g.data.Normals = append(g.data.Normals, p.normals[ov.vn])
	} else {
		g.data.Normals = append(g.data.Normals, mgl32.Vec3{})
		g.missingNormal = true
	}
	return idx
}

func (p *objParser) flush() {
	g := p.cur
	p.cur = nil
	if g == nil || len(g.data.Indices) == 0 {
		return
	}
	if g.missingNormal {
		g.data.Normals = terrain.ComputeNormals(g.data.Positions, g.data.Indices)
	}
	p.meshes = append(p.meshes, g.data)
}
