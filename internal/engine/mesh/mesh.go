// Package mesh turns CPU-side mesh data into drawable GPU resources.
package mesh

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/heightfield/internal/engine/gpu"
	"github.com/Faultbox/heightfield/internal/engine/texture"
)

// Shader input slots for the vertex streams.
const (
	SlotPosition uint32 = 0
	SlotNormal   uint32 = 1
	SlotUV       uint32 = 2
)

// Data is an indexed triangle mesh in three parallel vertex streams.
type Data struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
	Indices   []uint32
}

// NumVertices returns the number of vertices in the position stream.
func (d Data) NumVertices() int {
	return len(d.Positions)
}

// NumTriangles returns the number of whole triangles described by the indices.
func (d Data) NumTriangles() int {
	return len(d.Indices) / 3
}

// Drawable is a mesh resident on the device together with its texture.
// It owns every handle it holds; Release frees them.
type Drawable struct {
	VertexArray gpu.VertexArray
	NumElements int32
	Texture     gpu.Texture

	buffers []gpu.Buffer
}

// Release deletes the vertex array, buffers and texture. It is safe to call
// more than once.
func (d *Drawable) Release(res gpu.Resources) {
	if d == nil {
		return
	}
	if d.VertexArray != 0 {
		res.DeleteVertexArray(d.VertexArray)
		d.VertexArray = 0
	}
	for _, b := range d.buffers {
		res.DeleteBuffer(b)
	}
	d.buffers = nil
	if d.Texture != 0 {
		res.DeleteTexture(d.Texture)
		d.Texture = 0
	}
	d.NumElements = 0
}

// Uploader creates Drawables on a device.
type Uploader struct {
	res gpu.Resources
}

// NewUploader returns an uploader that allocates from res.
func NewUploader(res gpu.Resources) *Uploader {
	return &Uploader{res: res}
}

// Upload copies data and img to the device. An empty mesh still produces a
// Drawable, with NumElements zero; an empty image produces a 0x0 texture.
func (u *Uploader) Upload(data Data, img texture.Image) *Drawable {
	positions := u.res.CreateVertexBuffer(flattenVec3(data.Positions))
	normals := u.res.CreateVertexBuffer(flattenVec3(data.Normals))
	uvs := u.res.CreateVertexBuffer(flattenVec2(data.UVs))
	indices := u.res.CreateIndexBuffer(data.Indices)

	va := u.res.CreateVertexArray(gpu.VertexLayout{
		Attributes: []gpu.Attribute{
			{Slot: SlotPosition, Components: 3, Buffer: positions},
			{Slot: SlotNormal, Components: 3, Buffer: normals},
			{Slot: SlotUV, Components: 2, Buffer: uvs},
		},
		Indices: indices,
	})

	tex := u.res.CreateTexture(TextureDesc(img))

	return &Drawable{
		VertexArray: va,
		NumElements: int32(len(data.Indices)),
		Texture:     tex,
		buffers:     []gpu.Buffer{positions, normals, uvs, indices},
	}
}

// TextureDesc describes img as a repeating, trilinear-filtered texture with a
// full mipmap chain.
func TextureDesc(img texture.Image) gpu.TextureDesc {
	desc := gpu.TextureDesc{
		MinFilter: gpu.FilterLinearMipmapLinear,
		MagFilter: gpu.FilterLinear,
		WrapS:     gpu.WrapRepeat,
		WrapT:     gpu.WrapRepeat,
		Mipmaps:   true,
	}
	if !img.Empty() {
		desc.Width = int32(img.Width)
		desc.Height = int32(img.Height)
		desc.Pixels = img.Pix
	}
	return desc
}

func flattenVec3(vs []mgl32.Vec3) []float32 {
	out := make([]float32, 0, len(vs)*3)
	for _, v := range vs {
		out = append(out, v[0], v[1], v[2])
	}
	return out
}

func flattenVec2(vs []mgl32.Vec2) []float32 {
	out := make([]float32, 0, len(vs)*2)
	for _, v := range vs {
		out = append(out, v[0], v[1])
	}
	return out
}
