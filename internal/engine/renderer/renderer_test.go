package renderer

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/heightfield/internal/assets"
	"github.com/Faultbox/heightfield/internal/engine/gpu"
	"github.com/Faultbox/heightfield/internal/engine/gpu/gputest"
	"github.com/Faultbox/heightfield/internal/engine/mesh"
	"github.com/Faultbox/heightfield/internal/engine/scene"
	"github.com/Faultbox/heightfield/internal/engine/texture"
	"github.com/Faultbox/heightfield/internal/logger"
)

type fakeSource struct {
	models map[string][]mesh.Data
	images map[string]texture.Image
}

func (s *fakeSource) LoadModel(path string) ([]mesh.Data, error) {
	m, ok := s.models[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", assets.ErrNotFound, path)
	}
	return m, nil
}

func (s *fakeSource) LoadImage(path string) (texture.Image, error) {
	img, ok := s.images[path]
	if !ok {
		return texture.Image{}, fmt.Errorf("%w: %s", assets.ErrNotFound, path)
	}
	return img, nil
}

type fixedCamera struct {
	pos, look, up mgl32.Vec3
}

func (c fixedCamera) Position() mgl32.Vec3   { return c.pos }
func (c fixedCamera) LookVector() mgl32.Vec3 { return c.look }
func (c fixedCamera) UpVector() mgl32.Vec3   { return c.up }

var testCamera = fixedCamera{
	pos:  mgl32.Vec3{0, 600, 2000},
	look: mgl32.Vec3{0, -0.3, -1},
	up:   mgl32.Vec3{0, 1, 0},
}

func triangle() mesh.Data {
	return mesh.Data{
		Positions: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Normals:   []mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		UVs:       []mgl32.Vec2{{0, 0}, {1, 0}, {0, 1}},
		Indices:   []uint32{0, 1, 2},
	}
}

func pixel() texture.Image {
	return texture.Image{Pix: []byte{255, 255, 255, 255}, Width: 1, Height: 1}
}

func fullSource() *fakeSource {
	return &fakeSource{
		models: map[string][]mesh.Data{
			"models/jeep.obj": {triangle(), triangle()},
			"sky/skybox.obj":  {triangle()},
		},
		images: map[string]texture.Image{
			"models/jeep.jpg":   pixel(),
			"terrain/grass.bmp": pixel(),
			"terrain/hm.gif":    pixel(),
			"sky/skybox.png":    pixel(),
		},
	}
}

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	vs := filepath.Join(dir, "vertex_shader.glsl")
	fs := filepath.Join(dir, "fragment_shader.glsl")
	if err := os.WriteFile(vs, []byte("#version 410 core\nvoid main() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(fs, []byte("#version 410 core\nvoid main() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return Config{
		VertexShader:   vs,
		FragmentShader: fs,
		Model:          ModelConfig{Mesh: "models/jeep.obj", Texture: "models/jeep.jpg"},
		Terrain: TerrainConfig{
			CellsX:    2,
			CellsZ:    2,
			Texture:   "terrain/grass.bmp",
			Heightmap: "terrain/hm.gif",
		},
		Skybox: ModelConfig{Mesh: "sky/skybox.obj", Texture: "sky/skybox.png"},
	}
}

func objectNames(s *scene.Scene) []string {
	var names []string
	s.ForEach(func(o *scene.Object) { names = append(names, o.Name) })
	return names
}

func observeLogs(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	prev := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = prev })
	return logs
}

func TestInitialiseGeometry(t *testing.T) {
	dev := gputest.New()
	r := New(dev, fullSource(), testConfig(t))

	if err := r.InitialiseGeometry(); err != nil {
		t.Fatalf("InitialiseGeometry: %v", err)
	}

	if got, want := objectNames(r.Scene()), []string{"jeep", TerrainObject, SkyboxObject}; !slices.Equal(got, want) {
		t.Errorf("objects = %v, want %v", got, want)
	}
	terrainObj, _ := r.Scene().Find(TerrainObject)
	if got := terrainObj.NumElements(); got != 24 {
		t.Errorf("terrain elements = %d, want 24", got)
	}
	jeep, _ := r.Scene().Find("jeep")
	if len(jeep.Meshes) != 2 || jeep.TextureName != "models/jeep.jpg" {
		t.Errorf("jeep = %d meshes, texture %q", len(jeep.Meshes), jeep.TextureName)
	}

	ops := dev.Ops()
	if ops[0] != "CreateProgram" {
		t.Errorf("first op = %s, want CreateProgram", ops[0])
	}
	if ops[len(ops)-1] != "CheckError" || dev.Count("CheckError") != 1 {
		t.Errorf("expected a single trailing CheckError, ops = %v", ops)
	}
}

func TestShaderFailureAborts(t *testing.T) {
	dev := gputest.New()
	dev.ProgramErr = errors.New("syntax error")
	r := New(dev, fullSource(), testConfig(t))

	err := r.InitialiseGeometry()
	if err == nil || !errors.Is(err, dev.ProgramErr) {
		t.Fatalf("expected wrapped program error, got %v", err)
	}
	if r.Scene().Len() != 0 {
		t.Errorf("no objects should load after a shader failure, got %d", r.Scene().Len())
	}
	if dev.Count("CreateVertexBuffer") != 0 {
		t.Error("no geometry should be uploaded after a shader failure")
	}
}

func TestMissingShaderFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.FragmentShader = filepath.Join(t.TempDir(), "missing.glsl")
	if err := New(gputest.New(), fullSource(), cfg).InitialiseGeometry(); err == nil {
		t.Fatal("expected error for a missing shader file")
	}
}

func TestDegradePolicy(t *testing.T) {
	logs := observeLogs(t, zapcore.WarnLevel)

	src := fullSource()
	delete(src.models, "models/jeep.obj")
	delete(src.images, "terrain/hm.gif")
	delete(src.images, "sky/skybox.png")

	dev := gputest.New()
	r := New(dev, src, testConfig(t))
	if err := r.InitialiseGeometry(); err != nil {
		t.Fatalf("degrade policy should not fail: %v", err)
	}

	if got := objectNames(r.Scene()); len(got) != 3 {
		t.Fatalf("objects = %v, want all three", got)
	}
	jeep, _ := r.Scene().Find("jeep")
	if len(jeep.Meshes) != 0 {
		t.Errorf("failed model should have no meshes, got %d", len(jeep.Meshes))
	}

	terrainObj, _ := r.Scene().Find(TerrainObject)
	va := terrainObj.Meshes[0].VertexArray
	positions := dev.VertexData[dev.Layouts[va].Attributes[0].Buffer]
	for i := 1; i < len(positions); i += 3 {
		if positions[i] != 0 {
			t.Fatalf("terrain without heightmap should be flat, y = %v", positions[i])
		}
	}

	sky, _ := r.Scene().Find(SkyboxObject)
	if desc := dev.Textures[sky.Meshes[0].Texture]; desc.Width != 0 {
		t.Errorf("missing texture should upload a 0x0 image, got %dx%d", desc.Width, desc.Height)
	}

	if logs.Len() != 3 {
		t.Errorf("expected 3 warnings, got %d", logs.Len())
	}
}

func TestStrictPolicy(t *testing.T) {
	src := fullSource()
	delete(src.models, "models/jeep.obj")
	delete(src.images, "models/jeep.jpg")
	delete(src.images, "terrain/hm.gif")

	cfg := testConfig(t)
	cfg.Policy = assets.PolicyStrict
	r := New(gputest.New(), src, cfg)

	err := r.InitialiseGeometry()
	if err == nil {
		t.Fatal("strict policy should report failures")
	}
	if n := len(multierr.Errors(err)); n != 3 {
		t.Errorf("expected 3 aggregated errors, got %d: %v", n, err)
	}
	if !errors.Is(err, assets.ErrNotFound) {
		t.Errorf("expected ErrNotFound in %v", err)
	}
	if got := objectNames(r.Scene()); !slices.Equal(got, []string{SkyboxObject}) {
		t.Errorf("objects = %v, want only the skybox", got)
	}
}

func TestUnconfiguredObjectsAreReported(t *testing.T) {
	cfg := testConfig(t)
	cfg.Model.Mesh = ""
	cfg.Terrain.CellsX = 0

	t.Run("degrade", func(t *testing.T) {
		logs := observeLogs(t, zapcore.WarnLevel)
		r := New(gputest.New(), fullSource(), cfg)
		if err := r.InitialiseGeometry(); err != nil {
			t.Fatalf("degrade policy should not fail: %v", err)
		}
		if got, want := objectNames(r.Scene()), []string{ModelObject, TerrainObject, SkyboxObject}; !slices.Equal(got, want) {
			t.Errorf("objects = %v, want %v", got, want)
		}
		for _, name := range []string{ModelObject, TerrainObject} {
			if obj, ok := r.Scene().Find(name); !ok || len(obj.Meshes) != 0 {
				t.Errorf("%s should be present with no meshes", name)
			}
		}
		if logs.Len() != 2 {
			t.Errorf("expected 2 warnings, got %d", logs.Len())
		}
	})

	t.Run("strict", func(t *testing.T) {
		strict := cfg
		strict.Policy = assets.PolicyStrict
		r := New(gputest.New(), fullSource(), strict)
		err := r.InitialiseGeometry()
		if n := len(multierr.Errors(err)); n != 2 {
			t.Fatalf("expected 2 aggregated errors, got %d: %v", n, err)
		}
		if got := objectNames(r.Scene()); !slices.Equal(got, []string{SkyboxObject}) {
			t.Errorf("objects = %v, want only the skybox", got)
		}
	})
}

func TestRenderFrameCalls(t *testing.T) {
	dev := gputest.New()
	r := New(dev, fullSource(), testConfig(t))
	if err := r.InitialiseGeometry(); err != nil {
		t.Fatal(err)
	}
	dev.Reset()

	r.Render(testCamera, 0.016)

	want := []string{
		"SetPipeline", "Clear", "UseProgram",
		"SetUniformMat4", "SetUniformMat4", "SetUniformInt",
	}
	// jeep (2 meshes), terrain, skybox
	for range 4 {
		want = append(want, "BindTexture", "DrawTriangles")
	}
	want = append(want, "CheckError")
	if got := dev.Ops(); !slices.Equal(got, want) {
		t.Errorf("ops\n got %v\nwant %v", got, want)
	}

	if got := dev.Calls[0].Args[0]; got != (gpu.PipelineState{DepthTest: true, CullBack: true}) {
		t.Errorf("pipeline = %v", got)
	}
	if got := dev.Calls[1].Args; got[0] != float32(0) || got[3] != float32(1) {
		t.Errorf("clear = %v, want opaque black", got)
	}

	for _, c := range dev.Calls {
		if c.Op == "BindTexture" && c.Args[0] != uint32(0) {
			t.Errorf("texture bound to unit %v, want 0", c.Args[0])
		}
	}
	if dev.Ints["sampler_tex"] != 0 {
		t.Errorf("sampler_tex = %d", dev.Ints["sampler_tex"])
	}
}

func TestRenderFrameUniforms(t *testing.T) {
	dev := gputest.New()
	dev.ViewportW, dev.ViewportH = 1280, 720
	r := New(dev, fullSource(), testConfig(t))
	if err := r.InitialiseGeometry(); err != nil {
		t.Fatal(err)
	}

	r.RenderFrame(testCamera, r.Scene())

	want := Projection(1280.0 / 720.0).Mul4(ViewMatrix(testCamera))
	if got := dev.Mat4s["combined_xform"]; !got.ApproxEqual(want) {
		t.Errorf("combined_xform = %v, want %v", got, want)
	}
	if got := dev.Mat4s["model_xform"]; got != mgl32.Ident4() {
		t.Errorf("model_xform = %v, want identity", got)
	}
}

func TestRenderEmptyMesh(t *testing.T) {
	dev := gputest.New()
	r := New(dev, fullSource(), testConfig(t))

	s := scene.New()
	s.Add(&scene.Object{Name: "empty", Meshes: []*mesh.Drawable{
		mesh.NewUploader(dev).Upload(mesh.Data{}, texture.Image{}),
	}})
	dev.Reset()

	r.RenderFrame(testCamera, s)

	var draws []gputest.Call
	for _, c := range dev.Calls {
		if c.Op == "DrawTriangles" {
			draws = append(draws, c)
		}
	}
	if len(draws) != 1 || draws[0].Args[1] != int32(0) {
		t.Errorf("expected one zero-count draw, got %v", draws)
	}
}

func TestProjection(t *testing.T) {
	aspect := float32(16.0 / 9.0)
	m := Projection(aspect)

	f := 1 / math.Tan(float64(mgl32.DegToRad(22.5)))
	near, far := float64(NearPlane), float64(FarPlane)
	want := map[int]float64{
		0:  f / float64(aspect),
		5:  f,
		10: (far + near) / (near - far),
		11: -1,
		14: 2 * far * near / (near - far),
		15: 0,
	}
	for i, w := range want {
		if math.Abs(float64(m[i])-w) > 1e-4*math.Max(1, math.Abs(w)) {
			t.Errorf("m[%d] = %v, want %v", i, m[i], w)
		}
	}
}

func near(a, b mgl32.Vec3) bool {
	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > 1e-4 {
			return false
		}
	}
	return true
}

func TestViewMatrix(t *testing.T) {
	cam := fixedCamera{pos: mgl32.Vec3{1, 2, 3}, look: mgl32.Vec3{0, 0, -1}, up: mgl32.Vec3{0, 1, 0}}
	v := ViewMatrix(cam)

	// The camera position maps to the eye-space origin.
	eye := v.Mul4x1(cam.pos.Vec4(1))
	if !near(eye.Vec3(), mgl32.Vec3{}) {
		t.Errorf("camera position in eye space = %v, want origin", eye)
	}
	// A point ahead of the camera lies on -Z.
	ahead := v.Mul4x1(mgl32.Vec4{1, 2, -7, 1})
	if !near(ahead.Vec3(), mgl32.Vec3{0, 0, -10}) {
		t.Errorf("point ahead = %v, want (0, 0, -10)", ahead)
	}
}

func TestDeviceErrorsAreLogged(t *testing.T) {
	logs := observeLogs(t, zapcore.ErrorLevel)

	dev := gputest.New()
	dev.PendingErrs = []error{errors.New("GL_INVALID_ENUM"), errors.New("GL_INVALID_OPERATION")}
	r := New(dev, fullSource(), testConfig(t))

	if err := r.InitialiseGeometry(); err != nil {
		t.Fatalf("device errors must not fail initialisation: %v", err)
	}
	r.Render(testCamera, 0)

	entries := logs.FilterMessage("graphics device error").All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 logged device errors, got %d", len(entries))
	}
	if stage := entries[1].ContextMap()["stage"]; stage != "render" {
		t.Errorf("second error stage = %v, want render", stage)
	}
}

func TestResize(t *testing.T) {
	dev := gputest.New()
	r := New(dev, fullSource(), testConfig(t))
	r.Resize(640, 480)
	if w, h := dev.Viewport(); w != 640 || h != 480 {
		t.Errorf("viewport = %dx%d", w, h)
	}
}

func TestClose(t *testing.T) {
	dev := gputest.New()
	r := New(dev, fullSource(), testConfig(t))
	if err := r.InitialiseGeometry(); err != nil {
		t.Fatal(err)
	}

	r.Close()

	for _, kind := range []string{"buffer", "vertexarray", "texture", "program"} {
		if got := dev.Live(kind); got != 0 {
			t.Errorf("live %s = %d after Close, want 0", kind, got)
		}
	}
	if r.Scene().Len() != 0 {
		t.Error("scene should be empty after Close")
	}
}
