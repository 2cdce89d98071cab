// Package gpu defines the graphics device used by the uploader and renderer.
//
// Every operation takes the objects it works on as explicit arguments. No
// binding made inside a call is visible to the next one, so resource creation
// and drawing do not depend on call order.
package gpu

import "github.com/go-gl/mathgl/mgl32"

// Handles to device resources. Zero is never a valid handle.
type (
	Buffer      uint32
	VertexArray uint32
	Texture     uint32
	Program     uint32
)

// Attribute binds one tightly packed float stream to a shader input slot.
type Attribute struct {
	Slot       uint32
	Components int32
	Buffer     Buffer
}

// VertexLayout describes a vertex array: its attribute streams and the index
// buffer it draws from.
type VertexLayout struct {
	Attributes []Attribute
	Indices    Buffer
}

// Filter is a texture sampling filter.
type Filter uint8

const (
	FilterNearest Filter = iota
	FilterLinear
	FilterLinearMipmapLinear
)

// Wrap is a texture coordinate wrap mode.
type Wrap uint8

const (
	WrapRepeat Wrap = iota
	WrapClampToEdge
)

// TextureDesc describes a 2D RGBA8 texture.
type TextureDesc struct {
	Width     int32
	Height    int32
	Pixels    []byte // Width*Height*4 bytes, may be empty
	MinFilter Filter
	MagFilter Filter
	WrapS     Wrap
	WrapT     Wrap
	Mipmaps   bool
}

// PipelineState holds the fixed-function switches set at the start of a frame.
type PipelineState struct {
	DepthTest bool
	CullBack  bool
}

// Resources creates and destroys device objects. Buffers are static: their
// contents are uploaded once at creation.
type Resources interface {
	CreateVertexBuffer(data []float32) Buffer
	CreateIndexBuffer(data []uint32) Buffer
	CreateVertexArray(layout VertexLayout) VertexArray
	CreateTexture(desc TextureDesc) Texture
	CreateProgram(vertexSrc, fragmentSrc string) (Program, error)

	DeleteBuffer(b Buffer)
	DeleteVertexArray(va VertexArray)
	DeleteTexture(t Texture)
	DeleteProgram(p Program)
}

// Commands issues per-frame state changes and draws.
type Commands interface {
	SetPipeline(state PipelineState)
	Clear(r, g, b, a float32)
	Viewport() (width, height int32)
	SetViewport(width, height int32)
	UseProgram(p Program)
	SetUniformMat4(p Program, name string, m mgl32.Mat4)
	SetUniformInt(p Program, name string, v int32)
	BindTexture(unit uint32, t Texture)
	// DrawTriangles binds va and draws count indices from its index buffer.
	DrawTriangles(va VertexArray, count int32)
	ReadPixels(width, height int32) []byte
}

// Device is a complete graphics device.
type Device interface {
	Resources
	Commands

	// CheckError returns the device errors raised since the last call, if any.
	CheckError() error
}
