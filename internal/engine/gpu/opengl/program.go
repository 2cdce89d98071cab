package opengl

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/heightfield/internal/engine/gpu"
	"github.com/Faultbox/heightfield/internal/logger"
)

type stage struct {
	kind   uint32
	name   string
	source string
}

// CreateProgram compiles both stages, links them and returns the program
// handle. Compiler and linker warnings are logged; failures carry the info
// log of the failing stage.
func (d *Device) CreateProgram(vertexSrc, fragmentSrc string) (gpu.Program, error) {
	stages := []stage{
		{gl.VERTEX_SHADER, "vertex", vertexSrc},
		{gl.FRAGMENT_SHADER, "fragment", fragmentSrc},
	}

	program := gl.CreateProgram()
	for _, st := range stages {
		sh, err := st.compile()
		if err != nil {
			gl.DeleteProgram(program)
			return 0, err
		}
		gl.AttachShader(program, sh)
		// Deletion is deferred by GL until the program releases it.
		gl.DeleteShader(sh)
	}
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	msg := infoLog(program, gl.GetProgramiv, gl.GetProgramInfoLog)
	if status == gl.FALSE {
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link: %s", msg)
	}
	if msg != "" {
		logger.Warn("shader link warnings", zap.Uint32("program", program), zap.String("log", msg))
	}

	var uniforms, attributes int32
	gl.GetProgramiv(program, gl.ACTIVE_UNIFORMS, &uniforms)
	gl.GetProgramiv(program, gl.ACTIVE_ATTRIBUTES, &attributes)
	logger.Debug("shader program linked",
		zap.Uint32("program", program),
		zap.Int32("uniforms", uniforms),
		zap.Int32("attributes", attributes),
	)
	return gpu.Program(program), nil
}

func (st stage) compile() (uint32, error) {
	sh := gl.CreateShader(st.kind)
	csource, free := gl.Strs(st.source + "\x00")
	gl.ShaderSource(sh, 1, csource, nil)
	free()
	gl.CompileShader(sh)

	var status int32
	gl.GetShaderiv(sh, gl.COMPILE_STATUS, &status)
	msg := infoLog(sh, gl.GetShaderiv, gl.GetShaderInfoLog)
	if status == gl.FALSE {
		gl.DeleteShader(sh)
		return 0, fmt.Errorf("%s shader: %s", st.name, msg)
	}
	if msg != "" {
		logger.Warn("shader compile warnings", zap.String("stage", st.name), zap.String("log", msg))
	}
	return sh, nil
}

// infoLog reads the info log of a shader or program object.
func infoLog(obj uint32, getiv func(uint32, uint32, *int32), getLog func(uint32, int32, *int32, *uint8)) string {
	var n int32
	getiv(obj, gl.INFO_LOG_LENGTH, &n)
	if n <= 1 {
		return ""
	}
	buf := make([]byte, n)
	var written int32
	getLog(obj, n, &written, &buf[0])
	return strings.TrimSpace(string(buf[:written]))
}
