// Package renderer builds the scene on a graphics device and draws it.
package renderer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/heightfield/internal/assets"
	"github.com/Faultbox/heightfield/internal/engine/gpu"
	"github.com/Faultbox/heightfield/internal/engine/mesh"
	"github.com/Faultbox/heightfield/internal/engine/scene"
	"github.com/Faultbox/heightfield/internal/engine/shader"
	"github.com/Faultbox/heightfield/internal/engine/terrain"
	"github.com/Faultbox/heightfield/internal/engine/texture"
	"github.com/Faultbox/heightfield/internal/logger"
)

// Projection parameters.
const (
	FieldOfView float32 = 45 // degrees, vertical
	NearPlane   float32 = 1
	FarPlane    float32 = 20000
)

// Scene object names. The model is named after its file unless no path is
// configured.
const (
	ModelObject   = "Model"
	TerrainObject = "Terrain"
	SkyboxObject  = "Skybox"
)

// Camera supplies the view for a frame.
type Camera interface {
	Position() mgl32.Vec3
	LookVector() mgl32.Vec3
	UpVector() mgl32.Vec3
}

// ModelConfig names a model file and its texture.
type ModelConfig struct {
	Mesh    string
	Texture string
}

// TerrainConfig describes the generated terrain.
type TerrainConfig struct {
	CellsX      int
	CellsZ      int
	CellSize    float32
	HeightScale float32
	Texture     string
	Heightmap   string
}

// Config holds renderer configuration.
type Config struct {
	VertexShader   string
	FragmentShader string
	Model          ModelConfig
	Terrain        TerrainConfig
	Skybox         ModelConfig
	Policy         assets.Policy
}

// Renderer owns the shader program and the scene.
type Renderer struct {
	dev      gpu.Device
	src      assets.Source
	cfg      Config
	uploader *mesh.Uploader

	program gpu.Program
	scene   *scene.Scene
}

// New creates a renderer. No device work happens until InitialiseGeometry.
func New(dev gpu.Device, src assets.Source, cfg Config) *Renderer {
	if cfg.Policy == "" {
		cfg.Policy = assets.PolicyDegrade
	}
	return &Renderer{
		dev:      dev,
		src:      src,
		cfg:      cfg,
		uploader: mesh.NewUploader(dev),
		scene:    scene.New(),
	}
}

// Scene returns the renderer's scene.
func (r *Renderer) Scene() *scene.Scene {
	return r.scene
}

// InitialiseGeometry compiles the shader program, then loads the model, the
// terrain and the skybox in that order. A shader failure aborts and is
// returned. All three objects are always attempted; asset failures, including
// missing paths and an empty terrain grid, are logged and, under the strict
// policy, returned together.
func (r *Renderer) InitialiseGeometry() error {
	program, err := shader.Load(r.dev, r.cfg.VertexShader, r.cfg.FragmentShader)
	if err != nil {
		return fmt.Errorf("initialise geometry: %w", err)
	}
	r.program = program

	m, t, s := r.cfg.Model, r.cfg.Terrain, r.cfg.Skybox
	errs := multierr.Combine(
		r.LoadModel(modelName(m.Mesh), m.Mesh, m.Texture),
		r.CreateTerrain(t.CellsX, t.CellsZ, t.Texture, t.Heightmap),
		r.LoadSkybox(s.Mesh, s.Texture),
	)

	r.checkError("initialise geometry")

	logger.Info("scene initialised",
		zap.Int("objects", r.scene.Len()),
		zap.String("policy", string(r.cfg.Policy)),
	)
	return errs
}

func modelName(path string) string {
	if path == "" {
		return ModelObject
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadModel loads a model and its texture and adds it to the scene.
func (r *Renderer) LoadModel(name, meshPath, texturePath string) error {
	return r.addModel(name, meshPath, texturePath)
}

// LoadSkybox loads the skybox model and texture and adds it to the scene.
func (r *Renderer) LoadSkybox(meshPath, texturePath string) error {
	return r.addModel(SkyboxObject, meshPath, texturePath)
}

func (r *Renderer) addModel(name, meshPath, texturePath string) error {
	var errs error

	meshes, err := r.src.LoadModel(meshPath)
	if err != nil {
		errs = multierr.Append(errs, r.assetFailed(name, "model", meshPath, err))
		meshes = nil
	}
	img, err := r.src.LoadImage(texturePath)
	if err != nil {
		errs = multierr.Append(errs, r.assetFailed(name, "texture", texturePath, err))
		img = texture.Image{}
	}
	if errs != nil && r.cfg.Policy == assets.PolicyStrict {
		return errs
	}

	obj := &scene.Object{Name: name, TextureName: texturePath}
	for _, data := range meshes {
		obj.Meshes = append(obj.Meshes, r.uploader.Upload(data, img))
	}
	r.scene.Add(obj)

	logger.Debug("object loaded",
		zap.String("name", name),
		zap.Int("meshes", len(obj.Meshes)),
		zap.Int("elements", obj.NumElements()),
	)
	return nil
}

// CreateTerrain generates a cellsX by cellsZ terrain from a heightmap image
// and adds it to the scene.
func (r *Renderer) CreateTerrain(cellsX, cellsZ int, texturePath, heightmapPath string) error {
	var errs error

	img, err := r.src.LoadImage(texturePath)
	if err != nil {
		errs = multierr.Append(errs, r.assetFailed(TerrainObject, "texture", texturePath, err))
		img = texture.Image{}
	}
	heights, err := r.src.LoadImage(heightmapPath)
	if err != nil {
		errs = multierr.Append(errs, r.assetFailed(TerrainObject, "heightmap", heightmapPath, err))
		heights = texture.Image{}
	}
	m, err := terrain.Generate(cellsX, cellsZ, terrain.NewHeightmap(heights), terrain.Options{
		CellSize:    r.cfg.Terrain.CellSize,
		HeightScale: r.cfg.Terrain.HeightScale,
	})
	if err != nil {
		errs = multierr.Append(errs, r.assetFailed(TerrainObject, "grid", heightmapPath, err))
	}
	if errs != nil && r.cfg.Policy == assets.PolicyStrict {
		return errs
	}

	obj := &scene.Object{Name: TerrainObject, TextureName: texturePath}
	if m != nil {
		obj.Meshes = []*mesh.Drawable{r.uploader.Upload(m.Data(), img)}

		b := m.Bounds()
		logger.Debug("terrain created",
			zap.Int("cells_x", cellsX),
			zap.Int("cells_z", cellsZ),
			zap.Int("vertices", len(m.Positions)),
			zap.Float32("min_height", b.Min.Y()),
			zap.Float32("max_height", b.Max.Y()),
		)
	}
	r.scene.Add(obj)
	return nil
}

func (r *Renderer) assetFailed(object, kind, path string, err error) error {
	if r.cfg.Policy == assets.PolicyStrict {
		logger.Error("could not load asset",
			zap.String("object", object),
			zap.String("kind", kind),
			zap.String("path", path),
			zap.Error(err),
		)
	} else {
		logger.Warn("could not load asset, continuing without it",
			zap.String("object", object),
			zap.String("kind", kind),
			zap.String("path", path),
			zap.Error(err),
		)
	}
	return fmt.Errorf("%s %s: %w", object, kind, err)
}

// Render draws one frame and checks the device for errors.
func (r *Renderer) Render(cam Camera, deltaTime float32) {
	r.RenderFrame(cam, r.scene)
	r.checkError("render")
}

// RenderFrame draws every mesh of every object in s, in insertion order.
func (r *Renderer) RenderFrame(cam Camera, s *scene.Scene) {
	r.dev.SetPipeline(gpu.PipelineState{DepthTest: true, CullBack: true})
	r.dev.Clear(0, 0, 0, 1)

	w, h := r.dev.Viewport()
	aspect := float32(1)
	if h > 0 {
		aspect = float32(w) / float32(h)
	}
	combined := Projection(aspect).Mul4(ViewMatrix(cam))

	r.dev.UseProgram(r.program)
	r.dev.SetUniformMat4(r.program, shader.UniformCombinedXform, combined)
	r.dev.SetUniformMat4(r.program, shader.UniformModelXform, mgl32.Ident4())
	r.dev.SetUniformInt(r.program, shader.UniformSampler, 0)

	s.ForEach(func(obj *scene.Object) {
		for _, m := range obj.Meshes {
			r.dev.BindTexture(0, m.Texture)
			r.dev.DrawTriangles(m.VertexArray, m.NumElements)
		}
	})
}

// Projection returns the perspective projection for an aspect ratio.
func Projection(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(FieldOfView), aspect, NearPlane, FarPlane)
}

// ViewMatrix returns the view transform looking from the camera position
// along its look vector.
func ViewMatrix(cam Camera) mgl32.Mat4 {
	pos := cam.Position()
	return mgl32.LookAtV(pos, pos.Add(cam.LookVector()), cam.UpVector())
}

// Resize updates the device viewport.
func (r *Renderer) Resize(width, height int32) {
	r.dev.SetViewport(width, height)
	logger.Debug("renderer resized",
		zap.Int32("width", width),
		zap.Int32("height", height),
	)
}

func (r *Renderer) checkError(stage string) {
	if err := r.dev.CheckError(); err != nil {
		logger.Error("graphics device error", zap.String("stage", stage), zap.Error(err))
	}
}

// Close releases the scene resources and the shader program.
func (r *Renderer) Close() {
	logger.Info("closing renderer")
	r.scene.Release(r.dev)
	if r.program != 0 {
		r.dev.DeleteProgram(r.program)
		r.program = 0
	}
}
