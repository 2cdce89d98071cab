// Package opengl implements gpu.Device on an OpenGL 4.1 core context.
package opengl

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/heightfield/internal/engine/gpu"
	"github.com/Faultbox/heightfield/internal/logger"
)

// Device issues gpu.Device calls to the current OpenGL context.
// IMPORTANT: Must be created AFTER the OpenGL context and used only from its thread.
type Device struct{}

var _ gpu.Device = (*Device)(nil)

// New loads the OpenGL function pointers for the current context.
func New() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)
	return &Device{}, nil
}

// CreateVertexBuffer uploads a static float stream.
func (d *Device) CreateVertexBuffer(data []float32) gpu.Buffer {
	var ptr unsafe.Pointer
	if len(data) > 0 {
		ptr = gl.Ptr(data)
	}
	return gpu.Buffer(createBuffer(gl.ARRAY_BUFFER, len(data)*4, ptr))
}

// CreateIndexBuffer uploads a static uint32 index list.
func (d *Device) CreateIndexBuffer(data []uint32) gpu.Buffer {
	var ptr unsafe.Pointer
	if len(data) > 0 {
		ptr = gl.Ptr(data)
	}
	return gpu.Buffer(createBuffer(gl.ELEMENT_ARRAY_BUFFER, len(data)*4, ptr))
}

func createBuffer(target uint32, size int, ptr unsafe.Pointer) uint32 {
	var id uint32
	gl.GenBuffers(1, &id)
	gl.BindBuffer(target, id)
	gl.BufferData(target, size, ptr, gl.STATIC_DRAW)
	gl.BindBuffer(target, 0)
	return id
}

// CreateVertexArray records the attribute streams and index buffer of layout.
func (d *Device) CreateVertexArray(layout gpu.VertexLayout) gpu.VertexArray {
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)

	for _, attr := range layout.Attributes {
		gl.BindBuffer(gl.ARRAY_BUFFER, uint32(attr.Buffer))
		gl.EnableVertexAttribArray(attr.Slot)
		gl.VertexAttribPointerWithOffset(attr.Slot, attr.Components, gl.FLOAT, false, 0, 0)
	}

	// The element binding is part of the VAO state, so it stays bound until
	// the VAO is unbound.
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, uint32(layout.Indices))
	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 0)

	return gpu.VertexArray(vao)
}

// CreateTexture uploads an RGBA8 2D texture.
func (d *Device) CreateTexture(desc gpu.TextureDesc) gpu.Texture {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, glFilter(desc.MagFilter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, glFilter(desc.MinFilter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, glWrap(desc.WrapS))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, glWrap(desc.WrapT))

	var ptr unsafe.Pointer
	if len(desc.Pixels) > 0 {
		ptr = gl.Ptr(desc.Pixels)
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, desc.Width, desc.Height, 0, gl.RGBA, gl.UNSIGNED_BYTE, ptr)
	if desc.Mipmaps && desc.Width > 0 && desc.Height > 0 {
		gl.GenerateMipmap(gl.TEXTURE_2D)
	}

	gl.BindTexture(gl.TEXTURE_2D, 0)
	return gpu.Texture(tex)
}

func glFilter(f gpu.Filter) int32 {
	switch f {
	case gpu.FilterNearest:
		return gl.NEAREST
	case gpu.FilterLinearMipmapLinear:
		return gl.LINEAR_MIPMAP_LINEAR
	default:
		return gl.LINEAR
	}
}

func glWrap(w gpu.Wrap) int32 {
	if w == gpu.WrapClampToEdge {
		return gl.CLAMP_TO_EDGE
	}
	return gl.REPEAT
}

// DeleteBuffer frees a buffer.
func (d *Device) DeleteBuffer(b gpu.Buffer) {
	id := uint32(b)
	gl.DeleteBuffers(1, &id)
}

// DeleteVertexArray frees a vertex array.
func (d *Device) DeleteVertexArray(va gpu.VertexArray) {
	id := uint32(va)
	gl.DeleteVertexArrays(1, &id)
}

// DeleteTexture frees a texture.
func (d *Device) DeleteTexture(t gpu.Texture) {
	id := uint32(t)
	gl.DeleteTextures(1, &id)
}

// DeleteProgram frees a shader program.
func (d *Device) DeleteProgram(p gpu.Program) {
	gl.DeleteProgram(uint32(p))
}

// SetPipeline applies depth testing and back-face culling.
func (d *Device) SetPipeline(state gpu.PipelineState) {
	if state.DepthTest {
		gl.Enable(gl.DEPTH_TEST)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
	if state.CullBack {
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	} else {
		gl.Disable(gl.CULL_FACE)
	}
}

// Clear clears the color and depth buffers.
func (d *Device) Clear(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// Viewport returns the current viewport size.
func (d *Device) Viewport() (width, height int32) {
	var vp [4]int32
	gl.GetIntegerv(gl.VIEWPORT, &vp[0])
	return vp[2], vp[3]
}

// SetViewport resizes the viewport.
func (d *Device) SetViewport(width, height int32) {
	gl.Viewport(0, 0, width, height)
}

// UseProgram makes p the active program.
func (d *Device) UseProgram(p gpu.Program) {
	gl.UseProgram(uint32(p))
}

// SetUniformMat4 sets a mat4 uniform on p. Unknown names are ignored.
func (d *Device) SetUniformMat4(p gpu.Program, name string, m mgl32.Mat4) {
	gl.ProgramUniformMatrix4fv(uint32(p), uniform(p, name), 1, false, &m[0])
}

// SetUniformInt sets an int uniform on p. Unknown names are ignored.
func (d *Device) SetUniformInt(p gpu.Program, name string, v int32) {
	gl.ProgramUniform1i(uint32(p), uniform(p, name), v)
}

func uniform(p gpu.Program, name string) int32 {
	return gl.GetUniformLocation(uint32(p), gl.Str(name+"\x00"))
}

// BindTexture binds t to the given texture unit.
func (d *Device) BindTexture(unit uint32, t gpu.Texture) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, uint32(t))
}

// DrawTriangles draws count uint32 indices from va.
func (d *Device) DrawTriangles(va gpu.VertexArray, count int32) {
	gl.BindVertexArray(uint32(va))
	gl.DrawElementsWithOffset(gl.TRIANGLES, count, gl.UNSIGNED_INT, 0)
	gl.BindVertexArray(0)
}

// ReadPixels reads back the RGBA contents of the default framebuffer.
// Rows are bottom-to-top.
func (d *Device) ReadPixels(width, height int32) []byte {
	pixels := make([]byte, int(width)*int(height)*4)
	if len(pixels) == 0 {
		return pixels
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, width, height, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels
}

// CheckError drains the OpenGL error queue.
func (d *Device) CheckError() error {
	var codes []string
	for code := gl.GetError(); code != gl.NO_ERROR; code = gl.GetError() {
		codes = append(codes, errorName(code))
	}
	if len(codes) == 0 {
		return nil
	}
	return fmt.Errorf("opengl: %s", strings.Join(codes, ", "))
}

func errorName(code uint32) string {
	switch code {
	case gl.INVALID_ENUM:
		return "GL_INVALID_ENUM"
	case gl.INVALID_VALUE:
		return "GL_INVALID_VALUE"
	case gl.INVALID_OPERATION:
		return "GL_INVALID_OPERATION"
	case gl.INVALID_FRAMEBUFFER_OPERATION:
		return "GL_INVALID_FRAMEBUFFER_OPERATION"
	case gl.OUT_OF_MEMORY:
		return "GL_OUT_OF_MEMORY"
	default:
		return fmt.Sprintf("0x%04X", code)
	}
}
