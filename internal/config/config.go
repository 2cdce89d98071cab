// Package config handles viewer configuration loading and management.
package config

import (
	"fmt"

	"github.com/Faultbox/heightfield/internal/assets"
)

// Config holds all viewer settings.
type Config struct {
	Graphics    GraphicsConfig   `yaml:"graphics"`
	Scene       SceneConfig      `yaml:"scene"`
	Camera      CameraConfig     `yaml:"camera"`
	Assets      AssetsConfig     `yaml:"assets"`
	Screenshots ScreenshotConfig `yaml:"screenshots"`
	Logging     LoggingConfig    `yaml:"logging"`
}

// GraphicsConfig holds display settings.
type GraphicsConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
}

// SceneConfig lists the content loaded by InitialiseGeometry.
type SceneConfig struct {
	Shaders ShaderConfig  `yaml:"shaders"`
	Model   ModelConfig   `yaml:"model"`
	Terrain TerrainConfig `yaml:"terrain"`
	Skybox  ModelConfig   `yaml:"skybox"`
}

// ShaderConfig holds shader source paths.
type ShaderConfig struct {
	Vertex   string `yaml:"vertex"`
	Fragment string `yaml:"fragment"`
}

// ModelConfig points at a mesh file and the texture applied to all its meshes.
type ModelConfig struct {
	Mesh    string `yaml:"mesh"`
	Texture string `yaml:"texture"`
}

// TerrainConfig describes the generated heightmap terrain.
type TerrainConfig struct {
	CellsX      int     `yaml:"cells_x"`
	CellsZ      int     `yaml:"cells_z"`
	CellSize    float32 `yaml:"cell_size"`
	HeightScale float32 `yaml:"height_scale"` // world units per red level, must be non-zero
	Texture     string  `yaml:"texture"`
	Heightmap   string  `yaml:"heightmap"`
}

// CameraConfig holds the free camera start pose and controls.
type CameraConfig struct {
	Position         [3]float32 `yaml:"position"`
	Look             [3]float32 `yaml:"look"`
	Up               [3]float32 `yaml:"up"`
	MoveSpeed        float32    `yaml:"move_speed"`
	MouseSensitivity float32    `yaml:"mouse_sensitivity"`
}

// AssetsConfig controls where assets are found and how load failures are handled.
type AssetsConfig struct {
	Roots       []string      `yaml:"roots"`         // Searched last to first
	OnLoadError assets.Policy `yaml:"on_load_error"` // degrade or strict
}

// ScreenshotConfig holds screenshot output settings.
type ScreenshotConfig struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"` // png or webp
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
		},
		Scene: SceneConfig{
			Shaders: ShaderConfig{
				Vertex:   "data/shaders/vertex_shader.glsl",
				Fragment: "data/shaders/fragment_shader.glsl",
			},
			Model: ModelConfig{
				Mesh:    "data/models/jeep/jeep.obj",
				Texture: "data/models/jeep/jeep_army.jpg",
			},
			Terrain: TerrainConfig{
				CellsX:      32,
				CellsZ:      32,
				CellSize:    100,
				HeightScale: 1,
				Texture:     "data/terrain/grass11.bmp",
				Heightmap:   "data/terrain/curvy.gif",
			},
			Skybox: ModelConfig{
				Mesh:    "data/sky/mars/skybox.obj",
				Texture: "data/sky/mars/skybox.png",
			},
		},
		Camera: CameraConfig{
			Position:         [3]float32{0, 600, 2000},
			Look:             [3]float32{0, -0.3, -1},
			Up:               [3]float32{0, 1, 0},
			MoveSpeed:        800,
			MouseSensitivity: 0.003,
		},
		Assets: AssetsConfig{
			Roots:       []string{"."},
			OnLoadError: assets.PolicyDegrade,
		},
		Screenshots: ScreenshotConfig{
			Dir:    "screenshots",
			Format: "png",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports settings that cannot produce a working viewer.
func (c *Config) Validate() error {
	if c.Graphics.Width <= 0 || c.Graphics.Height <= 0 {
		return fmt.Errorf("graphics: invalid size %dx%d", c.Graphics.Width, c.Graphics.Height)
	}
	if c.Scene.Terrain.CellsX < 1 || c.Scene.Terrain.CellsZ < 1 {
		return fmt.Errorf("scene.terrain: cells must be >= 1, got %dx%d",
			c.Scene.Terrain.CellsX, c.Scene.Terrain.CellsZ)
	}
	if c.Scene.Terrain.CellSize <= 0 {
		return fmt.Errorf("scene.terrain: cell_size must be positive, got %g", c.Scene.Terrain.CellSize)
	}
	if c.Scene.Terrain.HeightScale == 0 {
		return fmt.Errorf("scene.terrain: height_scale must be non-zero")
	}
	if _, err := assets.ParsePolicy(string(c.Assets.OnLoadError)); err != nil {
		return fmt.Errorf("assets: on_load_error: %w", err)
	}
	switch c.Screenshots.Format {
	case "png", "webp":
	default:
		return fmt.Errorf("screenshots: unknown format %q", c.Screenshots.Format)
	}
	return nil
}
