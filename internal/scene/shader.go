package scene

import "github.com/go-gl/mathgl/mgl32"

// EmissiveUniforms is the uniform block of the animated emissive shader.
// One block is shared by every shader of a lighting group so all meshes in
// the group animate identically.
type EmissiveUniforms struct {
	Time          float32 // already reduced modulo the effect period
	Omega         float32
	Speed         float32
	GlowIntensity float32
	EffectType    int32
	BaseColor     mgl32.Vec3
}

// EmissiveShader is the per-mesh animated material instance. Each mesh gets
// its own instance so vertex UVs stay independent, while Uniforms points at
// the group's shared block.
type EmissiveShader struct {
	Uniforms *EmissiveUniforms
	Disposed bool
}

func NewEmissiveShader(u *EmissiveUniforms) *EmissiveShader {
	return &EmissiveShader{Uniforms: u}
}
