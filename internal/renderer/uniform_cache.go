package renderer

import (
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// UniformCache caches uniform locations to avoid repeated gl.GetUniformLocation calls
type UniformCache struct {
	locations map[string]int32
	program   uint32
}

// NewUniformCache creates a new uniform cache for a shader program
func NewUniformCache(program uint32) *UniformCache {
	return &UniformCache{
		locations: make(map[string]int32),
		program:   program,
	}
}

// GetLocation returns the cached uniform location or fetches and caches it.
// Missing uniforms are cached as -1 as well.
func (uc *UniformCache) GetLocation(name string) int32 {
	if loc, exists := uc.locations[name]; exists {
		return loc
	}

	loc := gl.GetUniformLocation(uc.program, gl.Str(name+"\x00"))
	uc.locations[name] = loc
	return loc
}

func (uc *UniformCache) SetFloat(name string, value float32) {
	if loc := uc.GetLocation(name); loc != -1 {
		gl.Uniform1f(loc, value)
	}
}

func (uc *UniformCache) SetVec2(name string, x, y float32) {
	if loc := uc.GetLocation(name); loc != -1 {
		gl.Uniform2f(loc, x, y)
	}
}

func (uc *UniformCache) SetVec3(name string, x, y, z float32) {
	if loc := uc.GetLocation(name); loc != -1 {
		gl.Uniform3f(loc, x, y, z)
	}
}

func (uc *UniformCache) SetInt(name string, value int32) {
	if loc := uc.GetLocation(name); loc != -1 {
		gl.Uniform1i(loc, value)
	}
}

func (uc *UniformCache) SetMat4(name string, value mgl32.Mat4) {
	if loc := uc.GetLocation(name); loc != -1 {
		gl.UniformMatrix4fv(loc, 1, false, &value[0])
	}
}

// Array setters address the first element as name+"[0]", which every
// driver resolves.

func (uc *UniformCache) SetVec3Array(name string, values []mgl32.Vec3) {
	if len(values) == 0 {
		return
	}
	if loc := uc.GetLocation(name + "[0]"); loc != -1 {
		gl.Uniform3fv(loc, int32(len(values)), &values[0][0])
	}
}

func (uc *UniformCache) SetFloatArray(name string, values []float32) {
	if len(values) == 0 {
		return
	}
	if loc := uc.GetLocation(name + "[0]"); loc != -1 {
		gl.Uniform1fv(loc, int32(len(values)), &values[0])
	}
}

func (uc *UniformCache) SetIntArray(name string, values []int32) {
	if len(values) == 0 {
		return
	}
	if loc := uc.GetLocation(name + "[0]"); loc != -1 {
		gl.Uniform1iv(loc, int32(len(values)), &values[0])
	}
}

func (uc *UniformCache) SetMat4Array(name string, values []mgl32.Mat4) {
	if len(values) == 0 {
		return
	}
	if loc := uc.GetLocation(name + "[0]"); loc != -1 {
		gl.UniformMatrix4fv(loc, int32(len(values)), false, &values[0][0])
	}
}

// Clear clears the cache (call when shader program changes)
func (uc *UniformCache) Clear() {
	uc.locations = make(map[string]int32)
}
