package renderer

import (
	"fmt"

	"Canopy3D/internal/rig"
	"Canopy3D/internal/scene"

	"github.com/chewxy/math32"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// shadowMap is one depth target rendered from a spot light.
type shadowMap struct {
	fbo    uint32
	depth  uint32
	matrix mgl32.Mat4
}

// shadowCasters owns the depth targets of the shadow-casting spots. Slots
// are handed out in rig order, so ids map to the same slot every frame.
type shadowCasters struct {
	maps   []shadowMap
	depth  *Shader
	slots  map[string]int
	matrix []mgl32.Mat4
}

func newShadowCasters() (*shadowCasters, error) {
	s := &shadowCasters{
		depth: NewShader("shadow-depth", depthVertexShaderSource, depthFragmentShaderSource),
		slots: make(map[string]int),
	}
	if err := s.depth.Compile(); err != nil {
		return nil, err
	}
	return s, nil
}

// assignShadowSlots picks at most MaxShadowMaps visible, lit spots flagged
// as casters.
func assignShadowSlots(emitters []*rig.Emitter) map[string]int {
	slots := make(map[string]int)
	for _, e := range emitters {
		if len(slots) == MaxShadowMaps {
			break
		}
		if e.Kind != rig.Spot || !e.CastsShadow || !e.Visible || e.Intensity <= 0 {
			continue
		}
		slots[e.ID] = len(slots)
	}
	return slots
}

// spotLightMatrix is the light-space view-projection of a spot: a
// perspective frustum covering the full cone out to the throw.
func spotLightMatrix(e *rig.Emitter) mgl32.Mat4 {
	dir := e.Direction()
	up := mgl32.Vec3{0, 1, 0}
	if math32.Abs(dir.Dot(up)) > 0.99 {
		up = mgl32.Vec3{1, 0, 0}
	}
	fov := mgl32.DegToRad(min(max(e.ConeAngle*2, 1), 170))
	far := max(e.Throw, 0.1)
	near := max(far/500, 0.01)
	proj := mgl32.Perspective(fov, 1, near, far)
	view := mgl32.LookAtV(e.Position, e.Position.Add(dir), up)
	return proj.Mul4(view)
}

func (s *shadowCasters) ensure(n int) error {
	for len(s.maps) < n {
		var m shadowMap
		gl.GenFramebuffers(1, &m.fbo)
		gl.GenTextures(1, &m.depth)
		gl.BindTexture(gl.TEXTURE_2D, m.depth)
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.DEPTH_COMPONENT24, ShadowMapSize, ShadowMapSize, 0, gl.DEPTH_COMPONENT, gl.FLOAT, nil)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_BORDER)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_BORDER)
		border := []float32{1, 1, 1, 1}
		gl.TexParameterfv(gl.TEXTURE_2D, gl.TEXTURE_BORDER_COLOR, &border[0])

		gl.BindFramebuffer(gl.FRAMEBUFFER, m.fbo)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, m.depth, 0)
		gl.DrawBuffer(gl.NONE)
		gl.ReadBuffer(gl.NONE)
		status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		if status != gl.FRAMEBUFFER_COMPLETE {
			gl.DeleteFramebuffers(1, &m.fbo)
			gl.DeleteTextures(1, &m.depth)
			return fmt.Errorf("shadow framebuffer incomplete: 0x%x", status)
		}
		s.maps = append(s.maps, m)
	}
	return nil
}

// render draws the depth of every visible triangle mesh from each caster.
// It leaves the HDR target unbound; callers rebind their own framebuffer.
func (s *shadowCasters) render(emitters []*rig.Emitter, meshes []*scene.Mesh) error {
	s.slots = assignShadowSlots(emitters)
	if len(s.slots) == 0 {
		s.matrix = s.matrix[:0]
		return nil
	}
	if err := s.ensure(len(s.slots)); err != nil {
		return err
	}
	s.matrix = s.matrix[:0]
	for range s.slots {
		s.matrix = append(s.matrix, mgl32.Ident4())
	}

	s.depth.Use()
	gl.Viewport(0, 0, ShadowMapSize, ShadowMapSize)
	gl.Enable(gl.DEPTH_TEST)
	for _, e := range emitters {
		slot, ok := s.slots[e.ID]
		if !ok {
			continue
		}
		m := &s.maps[slot]
		m.matrix = spotLightMatrix(e)
		s.matrix[slot] = m.matrix
		gl.BindFramebuffer(gl.FRAMEBUFFER, m.fbo)
		gl.Clear(gl.DEPTH_BUFFER_BIT)
		s.depth.SetMat4("lightSpace", m.matrix)
		for _, mesh := range meshes {
			if !mesh.Visible || mesh.Kind != scene.Triangles || !mesh.GPU.Uploaded {
				continue
			}
			gl.BindVertexArray(mesh.GPU.VAO)
			gl.DrawElements(gl.TRIANGLES, mesh.GPU.IndexCount, gl.UNSIGNED_INT, nil)
		}
	}
	gl.BindVertexArray(0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return nil
}

// bind attaches the depth maps to texture units starting at firstUnit.
func (s *shadowCasters) bind(shader *Shader, firstUnit int32) {
	units := make([]int32, MaxShadowMaps)
	for i := range units {
		units[i] = firstUnit + int32(i)
		gl.ActiveTexture(gl.TEXTURE0 + uint32(units[i]))
		if i < len(s.maps) {
			gl.BindTexture(gl.TEXTURE_2D, s.maps[i].depth)
		} else {
			gl.BindTexture(gl.TEXTURE_2D, 0)
		}
	}
	gl.ActiveTexture(gl.TEXTURE0)
	shader.uniforms.SetIntArray("shadowMaps", units)
	shader.uniforms.SetMat4Array("shadowMatrices", s.matrix)
}

// release frees every depth target and the depth program.
func (s *shadowCasters) release() int {
	n := len(s.maps)
	for i := range s.maps {
		gl.DeleteFramebuffers(1, &s.maps[i].fbo)
		gl.DeleteTextures(1, &s.maps[i].depth)
	}
	s.maps = nil
	s.slots = make(map[string]int)
	s.matrix = nil
	if s.depth != nil {
		s.depth.Delete()
	}
	return n
}
