// Package shader loads GLSL sources from disk and builds programs from them.
package shader

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/heightfield/internal/engine/gpu"
	"github.com/Faultbox/heightfield/internal/logger"
)

// Uniform names shared by the scene shaders.
const (
	UniformCombinedXform = "combined_xform"
	UniformModelXform    = "model_xform"
	UniformSampler       = "sampler_tex"
)

// Load reads the vertex and fragment sources and links them into a program.
func Load(res gpu.Resources, vertexPath, fragmentPath string) (gpu.Program, error) {
	vertexSrc, err := os.ReadFile(vertexPath)
	if err != nil {
		return 0, fmt.Errorf("reading vertex shader: %w", err)
	}
	fragmentSrc, err := os.ReadFile(fragmentPath)
	if err != nil {
		return 0, fmt.Errorf("reading fragment shader: %w", err)
	}

	program, err := res.CreateProgram(string(vertexSrc), string(fragmentSrc))
	if err != nil {
		return 0, fmt.Errorf("building program from %s and %s: %w", vertexPath, fragmentPath, err)
	}

	logger.Debug("shader program loaded",
		zap.String("vertex", vertexPath),
		zap.String("fragment", fragmentPath),
	)
	return program, nil
}
