// Package gputest provides a recording gpu.Device for tests.
package gputest

import (
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/heightfield/internal/engine/gpu"
)

// Call is one recorded device call.
type Call struct {
	Op   string
	Args []any
}

func (c Call) String() string {
	return fmt.Sprintf("%s%v", c.Op, c.Args)
}

// Device records every call and tracks live resources. The zero value is not
// usable; call New.
type Device struct {
	Calls []Call

	// Uploaded resource contents, keyed by handle.
	VertexData  map[gpu.Buffer][]float32
	IndexData   map[gpu.Buffer][]uint32
	Layouts     map[gpu.VertexArray]gpu.VertexLayout
	Textures    map[gpu.Texture]gpu.TextureDesc
	Programs    map[gpu.Program][2]string
	Mat4s       map[string]mgl32.Mat4 // last value per uniform name
	Ints        map[string]int32
	ViewportW   int32
	ViewportH   int32
	ProgramErr  error   // returned by CreateProgram when set
	PendingErrs []error // returned one per CheckError call
	Pixels      []byte  // returned by ReadPixels when set

	nextID uint32
	live   map[string]int
}

var _ gpu.Device = (*Device)(nil)

// New returns a device with an 800x600 viewport.
func New() *Device {
	return &Device{
		VertexData: make(map[gpu.Buffer][]float32),
		IndexData:  make(map[gpu.Buffer][]uint32),
		Layouts:    make(map[gpu.VertexArray]gpu.VertexLayout),
		Textures:   make(map[gpu.Texture]gpu.TextureDesc),
		Programs:   make(map[gpu.Program][2]string),
		Mat4s:      make(map[string]mgl32.Mat4),
		Ints:       make(map[string]int32),
		ViewportW:  800,
		ViewportH:  600,
		live:       make(map[string]int),
	}
}

func (d *Device) record(op string, args ...any) {
	d.Calls = append(d.Calls, Call{Op: op, Args: args})
}

func (d *Device) alloc(kind string) uint32 {
	d.nextID++
	d.live[kind]++
	return d.nextID
}

func (d *Device) free(kind string) {
	d.live[kind]--
}

// Live returns the number of resources of a kind ("buffer", "vertexarray",
// "texture", "program") that were created and not yet deleted.
func (d *Device) Live(kind string) int {
	return d.live[kind]
}

// Ops returns the recorded operation names in order.
func (d *Device) Ops() []string {
	ops := make([]string, len(d.Calls))
	for i, c := range d.Calls {
		ops[i] = c.Op
	}
	return ops
}

// Count returns how many times op was called.
func (d *Device) Count(op string) int {
	n := 0
	for _, c := range d.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls but keeps resources.
func (d *Device) Reset() {
	d.Calls = nil
}

func (d *Device) CreateVertexBuffer(data []float32) gpu.Buffer {
	b := gpu.Buffer(d.alloc("buffer"))
	d.VertexData[b] = slices.Clone(data)
	d.record("CreateVertexBuffer", b, len(data))
	return b
}

func (d *Device) CreateIndexBuffer(data []uint32) gpu.Buffer {
	b := gpu.Buffer(d.alloc("buffer"))
	d.IndexData[b] = slices.Clone(data)
	d.record("CreateIndexBuffer", b, len(data))
	return b
}

func (d *Device) CreateVertexArray(layout gpu.VertexLayout) gpu.VertexArray {
	va := gpu.VertexArray(d.alloc("vertexarray"))
	layout.Attributes = slices.Clone(layout.Attributes)
	d.Layouts[va] = layout
	d.record("CreateVertexArray", va)
	return va
}

func (d *Device) CreateTexture(desc gpu.TextureDesc) gpu.Texture {
	t := gpu.Texture(d.alloc("texture"))
	d.Textures[t] = desc
	d.record("CreateTexture", t, desc.Width, desc.Height)
	return t
}

func (d *Device) CreateProgram(vertexSrc, fragmentSrc string) (gpu.Program, error) {
	d.record("CreateProgram")
	if d.ProgramErr != nil {
		return 0, d.ProgramErr
	}
	p := gpu.Program(d.alloc("program"))
	d.Programs[p] = [2]string{vertexSrc, fragmentSrc}
	return p, nil
}

func (d *Device) DeleteBuffer(b gpu.Buffer) {
	d.free("buffer")
	d.record("DeleteBuffer", b)
}

func (d *Device) DeleteVertexArray(va gpu.VertexArray) {
	d.free("vertexarray")
	d.record("DeleteVertexArray", va)
}

func (d *Device) DeleteTexture(t gpu.Texture) {
	d.free("texture")
	d.record("DeleteTexture", t)
}

func (d *Device) DeleteProgram(p gpu.Program) {
	d.free("program")
	d.record("DeleteProgram", p)
}

func (d *Device) SetPipeline(state gpu.PipelineState) {
	d.record("SetPipeline", state)
}

func (d *Device) Clear(r, g, b, a float32) {
	d.record("Clear", r, g, b, a)
}

func (d *Device) Viewport() (int32, int32) {
	return d.ViewportW, d.ViewportH
}

func (d *Device) SetViewport(width, height int32) {
	d.ViewportW, d.ViewportH = width, height
	d.record("SetViewport", width, height)
}

func (d *Device) UseProgram(p gpu.Program) {
	d.record("UseProgram", p)
}

func (d *Device) SetUniformMat4(p gpu.Program, name string, m mgl32.Mat4) {
	d.Mat4s[name] = m
	d.record("SetUniformMat4", p, name)
}

func (d *Device) SetUniformInt(p gpu.Program, name string, v int32) {
	d.Ints[name] = v
	d.record("SetUniformInt", p, name, v)
}

func (d *Device) BindTexture(unit uint32, t gpu.Texture) {
	d.record("BindTexture", unit, t)
}

func (d *Device) DrawTriangles(va gpu.VertexArray, count int32) {
	d.record("DrawTriangles", va, count)
}

func (d *Device) ReadPixels(width, height int32) []byte {
	d.record("ReadPixels", width, height)
	if d.Pixels != nil {
		return d.Pixels
	}
	return make([]byte, int(width)*int(height)*4)
}

func (d *Device) CheckError() error {
	d.record("CheckError")
	if len(d.PendingErrs) == 0 {
		return nil
	}
	err := d.PendingErrs[0]
	d.PendingErrs = d.PendingErrs[1:]
	return err
}
