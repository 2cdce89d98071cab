// Package app wires the window, device, renderer and camera into the viewer
// main loop.
package app

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/heightfield/internal/assets"
	"github.com/Faultbox/heightfield/internal/config"
	"github.com/Faultbox/heightfield/internal/engine/camera"
	"github.com/Faultbox/heightfield/internal/engine/debug"
	"github.com/Faultbox/heightfield/internal/engine/gpu/opengl"
	"github.com/Faultbox/heightfield/internal/engine/input"
	"github.com/Faultbox/heightfield/internal/engine/renderer"
	"github.com/Faultbox/heightfield/internal/engine/window"
	"github.com/Faultbox/heightfield/internal/logger"
)

// Title is the window title.
const Title = "Heightfield"

// App is the viewer instance.
type App struct {
	cfg     *config.Config
	running bool

	window      *window.Window
	device      *opengl.Device
	source      *assets.FileSource
	renderer    *renderer.Renderer
	camera      *camera.FreeCamera
	input       *input.Input
	screenshots *debug.ScreenshotCapture
}

// New opens the window, creates the GL device and loads the scene.
func New(cfg *config.Config) (*App, error) {
	logger.Info("initializing viewer",
		zap.Int("width", cfg.Graphics.Width),
		zap.Int("height", cfg.Graphics.Height),
		zap.Strings("asset_roots", cfg.Assets.Roots),
	)

	a := &App{cfg: cfg}

	var err error
	a.window, err = window.New(window.Config{
		Title:      Title,
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// The device needs the GL context created by the window.
	a.device, err = opengl.New()
	if err != nil {
		a.window.Close()
		return nil, fmt.Errorf("failed to create graphics device: %w", err)
	}
	a.device.SetViewport(a.window.DrawableSize())

	a.source = assets.NewFileSource(cfg.Assets.Roots...)

	rcfg, err := RendererConfig(cfg, a.source)
	if err != nil {
		a.window.Close()
		return nil, err
	}
	a.renderer = renderer.New(a.device, a.source, rcfg)
	if err := a.renderer.InitialiseGeometry(); err != nil {
		a.renderer.Close()
		a.window.Close()
		return nil, fmt.Errorf("failed to initialise geometry: %w", err)
	}

	a.camera = NewCamera(cfg.Camera)
	a.input = input.New()
	a.screenshots = debug.NewScreenshotCapture(cfg.Screenshots.Dir, "heightfield", cfg.Screenshots.Format)

	hits, misses := a.source.Stats()
	logger.Info("viewer initialized", zap.Int("cache_hits", hits), zap.Int("cache_misses", misses))
	return a, nil
}

// RendererConfig maps the viewer config to renderer settings. Shader paths
// are resolved against the asset roots since they are read directly.
func RendererConfig(cfg *config.Config, src *assets.FileSource) (renderer.Config, error) {
	policy, err := assets.ParsePolicy(string(cfg.Assets.OnLoadError))
	if err != nil {
		return renderer.Config{}, err
	}
	sc := cfg.Scene
	return renderer.Config{
		VertexShader:   resolveOrKeep(src, sc.Shaders.Vertex),
		FragmentShader: resolveOrKeep(src, sc.Shaders.Fragment),
		Model:          renderer.ModelConfig{Mesh: sc.Model.Mesh, Texture: sc.Model.Texture},
		Terrain: renderer.TerrainConfig{
			CellsX:      sc.Terrain.CellsX,
			CellsZ:      sc.Terrain.CellsZ,
			CellSize:    sc.Terrain.CellSize,
			HeightScale: sc.Terrain.HeightScale,
			Texture:     sc.Terrain.Texture,
			Heightmap:   sc.Terrain.Heightmap,
		},
		Skybox: renderer.ModelConfig{Mesh: sc.Skybox.Mesh, Texture: sc.Skybox.Texture},
		Policy: policy,
	}, nil
}

// resolveOrKeep returns the resolved path, or path itself so the later read
// reports the missing file.
func resolveOrKeep(src *assets.FileSource, path string) string {
	if full, err := src.Resolve(path); err == nil {
		return full
	}
	return path
}

// NewCamera creates the free camera from its configured start pose.
func NewCamera(cc config.CameraConfig) *camera.FreeCamera {
	cam := camera.NewFreeCamera(mgl32.Vec3(cc.Position), mgl32.Vec3(cc.Look), mgl32.Vec3(cc.Up))
	if cc.MoveSpeed > 0 {
		cam.MoveSpeed = cc.MoveSpeed
	}
	if cc.MouseSensitivity > 0 {
		cam.MouseSensitivity = cc.MouseSensitivity
	}
	return cam
}

// Run runs the main loop until the window is closed or Escape is pressed.
func (a *App) Run() error {
	a.running = true

	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	logger.Info("starting main loop")

	for a.running {
		now := time.Now()
		dt := float32(now.Sub(lastTime).Seconds())
		lastTime = now

		if a.input.Update() {
			a.running = false
			break
		}

		for _, event := range a.input.Events() {
			switch event.Type {
			case input.EventWindowResize:
				a.renderer.Resize(a.window.DrawableSize())
			case input.EventKeyDown:
				if event.Key == sdl.SCANCODE_F12 {
					a.captureScreenshot()
				}
			}
		}

		a.update(dt)
		a.renderer.Render(a.camera, dt)
		a.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			logger.Debug("fps", zap.Int("count", frameCount), zap.Float32("dt_ms", dt*1000))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

func (a *App) update(dt float32) {
	dx, dy := a.input.DragDelta()
	if dx != 0 || dy != 0 {
		a.camera.HandleDrag(float32(dx), float32(dy))
	}

	forward := a.input.Axis(sdl.SCANCODE_S, sdl.SCANCODE_W)
	right := a.input.Axis(sdl.SCANCODE_A, sdl.SCANCODE_D)
	up := a.input.Axis(sdl.SCANCODE_Q, sdl.SCANCODE_E)
	if forward != 0 || right != 0 || up != 0 {
		a.camera.HandleMovement(forward, right, up, dt)
	}
}

func (a *App) captureScreenshot() {
	w, h := a.device.Viewport()
	pixels := a.device.ReadPixels(w, h)
	name, err := a.screenshots.CaptureFromPixels(pixels, int(w), int(h))
	if err != nil {
		logger.Error("screenshot failed", zap.Error(err))
		return
	}
	logger.Info("screenshot saved", zap.String("file", name))
}

// Close releases GPU resources, then the window.
func (a *App) Close() {
	logger.Info("closing viewer")

	if a.renderer != nil {
		a.renderer.Close()
	}
	if a.source != nil {
		a.source.Close()
	}
	if a.window != nil {
		a.window.Close()
	}
}
