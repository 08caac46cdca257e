package renderer

import (
	"errors"
	"fmt"
	"strings"

	"Canopy3D/internal/logger"
	"Canopy3D/internal/rig"
	"Canopy3D/internal/scene"
	"Canopy3D/internal/viewer"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

var sunDirection = mgl32.Vec3{-0.4, -1.0, -0.3}.Normalize()

// OpenGLRenderer implements viewer.Renderer. Every method must run on the
// thread that owns the GL context.
type OpenGLRenderer struct {
	width  int32
	height int32

	lit      *Shader
	emissive *Shader
	marker   *Shader

	post       *PostProcess
	postConfig PostProcessConfig
	shadows    *shadowCasters
	textures   *TextureManager

	meshes       []*scene.Mesh
	meshTextures map[*scene.Mesh]uint32
	ground       groundPlane
	markerVAO    uint32
	markerVBO    uint32

	emissiveQueue []*scene.Mesh
	shadowFailed  bool
}

type groundPlane struct {
	vao, vbo, ebo uint32
	material      *scene.Material
	ready         bool
}

var _ viewer.Renderer = (*OpenGLRenderer)(nil)

func NewOpenGLRenderer(cfg PostProcessConfig) *OpenGLRenderer {
	return &OpenGLRenderer{
		postConfig:   cfg,
		textures:     NewTextureManager(),
		meshTextures: make(map[*scene.Mesh]uint32),
	}
}

// Init loads GL entry points and builds every program and target. The GL
// context must be current.
func (rend *OpenGLRenderer) Init(width, height int32) error {
	if err := gl.Init(); err != nil {
		return fmt.Errorf("opengl init: %w", err)
	}
	var unwind Unwind
	defer unwind.Unwind()

	rend.lit = NewShader("lit", meshVertexShaderSource, litFragmentShaderSource)
	rend.emissive = NewShader("emissive", meshVertexShaderSource, emissiveFragmentShaderSource)
	rend.marker = NewShader("marker", markerVertexShaderSource, markerFragmentShaderSource)
	for _, s := range []*Shader{rend.lit, rend.emissive, rend.marker} {
		if err := s.Compile(); err != nil {
			return err
		}
		unwind.Add(s.Delete)
	}

	shadows, err := newShadowCasters()
	if err != nil {
		return err
	}
	rend.shadows = shadows
	unwind.Add(func() { shadows.release() })

	post, err := newPostProcess(width, height, rend.postConfig)
	if err != nil {
		return err
	}
	rend.post = post
	unwind.Add(post.Dispose)

	gl.GenVertexArrays(1, &rend.markerVAO)
	gl.GenBuffers(1, &rend.markerVBO)
	gl.BindVertexArray(rend.markerVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, rend.markerVBO)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 6*4, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, 6*4, gl.PtrOffset(3*4))
	gl.EnableVertexAttribArray(1)
	gl.BindVertexArray(0)

	rend.width, rend.height = width, height
	gl.Viewport(0, 0, width, height)
	unwind.Discard()

	logger.Log.Info("OpenGL render initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))))
	return nil
}

// UpdateViewport updates the OpenGL viewport to match the current window size
func (rend *OpenGLRenderer) UpdateViewport(width, height int32) {
	if width <= 0 || height <= 0 {
		return
	}
	rend.width, rend.height = width, height
	gl.Viewport(0, 0, width, height)
	if rend.post != nil {
		rend.post.Resize(width, height)
	}
}

// Upload creates vertex buffers for every mesh, the ground plane and the
// diffuse textures of imported materials.
func (rend *OpenGLRenderer) Upload(s *scene.Scene) error {
	if s == nil {
		return errors.New("upload: nil scene")
	}
	for _, m := range s.Meshes {
		rend.uploadMesh(m)
		rend.meshes = append(rend.meshes, m)
		if m.Imported == nil || m.Imported.TexturePath == "" {
			continue
		}
		id, err := rend.textures.Acquire(m.Imported.TexturePath)
		if err != nil {
			logger.Log.Warn("Texture unavailable, using flat colour",
				zap.String("mesh", m.Name), zap.Error(err))
			continue
		}
		rend.meshTextures[m] = id
	}
	rend.uploadGround(s.Bounds)

	if errCode := gl.GetError(); errCode != gl.NO_ERROR {
		return fmt.Errorf("upload: gl error 0x%x", errCode)
	}
	logger.Log.Info("Scene uploaded",
		zap.Int("meshes", len(s.Meshes)),
		zap.Int("textures", rend.textures.GetStats().ActiveTextures))
	return nil
}

func (rend *OpenGLRenderer) uploadMesh(m *scene.Mesh) {
	data := m.InterleavedData()
	indices := m.Indices
	if len(indices) == 0 {
		indices = sequentialIndices(len(m.Positions))
	}

	gl.GenVertexArrays(1, &m.GPU.VAO)
	gl.BindVertexArray(m.GPU.VAO)
	gl.GenBuffers(1, &m.GPU.VBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.GPU.VBO)
	if len(data) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
	}
	gl.GenBuffers(1, &m.GPU.EBO)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.GPU.EBO)
	if len(indices) > 0 {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)
	}
	setMeshAttributes()
	gl.BindVertexArray(0)

	m.GPU.IndexCount = int32(len(indices))
	m.GPU.Uploaded = true
}

// setMeshAttributes describes the 8-float position/uv/normal layout.
func setMeshAttributes() {
	stride := int32(8 * 4)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(1, 2, gl.FLOAT, false, stride, gl.PtrOffset(3*4))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(2, 3, gl.FLOAT, false, stride, gl.PtrOffset(5*4))
	gl.EnableVertexAttribArray(2)
}

func sequentialIndices(n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = uint32(i)
	}
	return out
}

func (rend *OpenGLRenderer) uploadGround(b scene.Box3) {
	data, ok := groundQuad(b)
	if !ok {
		return
	}
	g := &rend.ground
	indices := []uint32{0, 1, 2, 0, 2, 3}
	gl.GenVertexArrays(1, &g.vao)
	gl.BindVertexArray(g.vao)
	gl.GenBuffers(1, &g.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, g.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
	gl.GenBuffers(1, &g.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, g.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)
	setMeshAttributes()
	gl.BindVertexArray(0)

	g.material = scene.NewDefaultMaterial()
	g.material.Name = "ground"
	g.material.DiffuseColor = mgl32.Vec3{0.18, 0.18, 0.2}
	g.material.SetMatte()
	g.ready = true
}

// groundQuad builds a horizontal quad just under the model, padded around
// its footprint, in the interleaved mesh layout.
func groundQuad(b scene.Box3) ([]float32, bool) {
	if b.IsEmpty() {
		return nil, false
	}
	size := b.Size()
	half := max(size.X(), size.Z()) / 2 * GroundPadding
	if half <= 0 {
		half = 1
	}
	c := b.Center()
	y := b.Min.Y() - max(b.MaxDimension(), 1)*1e-4
	x0, x1 := c.X()-half, c.X()+half
	z0, z1 := c.Z()-half, c.Z()+half
	return []float32{
		x0, y, z1, 0, 0, 0, 1, 0,
		x1, y, z1, 1, 0, 0, 1, 0,
		x1, y, z0, 1, 1, 0, 1, 0,
		x0, y, z0, 0, 1, 0, 1, 0,
	}, true
}

// RenderFrame draws one composited frame: shadow depth, lit meshes, the
// emissive pass, debug markers and bloom.
func (rend *OpenGLRenderer) RenderFrame(f *viewer.Frame) {
	if rend.post == nil || f == nil || f.Camera == nil {
		return
	}
	var meshes []*scene.Mesh
	if f.Scene != nil {
		meshes = f.Scene.Meshes
	}

	if rend.shadows != nil {
		if err := rend.shadows.render(f.Emitters, meshes); err != nil && !rend.shadowFailed {
			rend.shadowFailed = true
			logger.Log.Error("Shadow pass failed", zap.Error(err))
		}
	}

	rend.post.Begin()
	gl.ClearColor(ClearColorR, ClearColorG, ClearColorB, 1.0)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	if DepthTestEnabled {
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthMask(true)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
	if FaceCullingEnabled {
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
		gl.FrontFace(gl.CCW)
	}

	viewProjection := f.Camera.GetViewProjection()
	frustum := NewFrustum(viewProjection)
	fog := mgl32.Vec3{ClearColorR, ClearColorG, ClearColorB}

	rend.lit.Use()
	rend.setFrameUniforms(rend.lit, f, viewProjection, fog)
	rend.setLightUniforms(f)

	if f.Settings.ShowGround && rend.ground.ready && f.Scene != nil {
		rend.setMaterialUniforms(rend.ground.material, 0)
		gl.BindVertexArray(rend.ground.vao)
		gl.DrawElements(gl.TRIANGLES, 6, gl.UNSIGNED_INT, nil)
	}

	rend.emissiveQueue = rend.emissiveQueue[:0]
	for _, m := range meshes {
		if !m.Visible || !m.GPU.Uploaded || m.Material == nil {
			continue
		}
		if FrustumCullingEnabled && !frustum.IntersectsBox(m.Bounds) {
			continue
		}
		if m.Material.Shader != nil && !m.Material.Shader.Disposed {
			rend.emissiveQueue = append(rend.emissiveQueue, m)
			continue
		}
		rend.setMaterialUniforms(m.Material, rend.meshTextures[m])
		drawMesh(m)
	}

	if len(rend.emissiveQueue) > 0 {
		rend.emissive.Use()
		rend.setFrameUniforms(rend.emissive, f, viewProjection, fog)
		for _, m := range rend.emissiveQueue {
			u := m.Material.Shader.Uniforms
			rend.emissive.SetFloat("time", u.Time)
			rend.emissive.SetFloat("omega", u.Omega)
			rend.emissive.SetFloat("glowIntensity", u.GlowIntensity)
			rend.emissive.SetInt("effectType", u.EffectType)
			rend.emissive.SetVec3("baseColor", u.BaseColor)
			drawMesh(m)
		}
	}

	if f.Settings.Debug {
		rend.drawMarkers(f.Emitters, viewProjection)
	}

	gl.BindVertexArray(0)
	gl.Disable(gl.CULL_FACE)
	rend.post.End(f.Settings)
}

func drawMesh(m *scene.Mesh) {
	mode := uint32(gl.TRIANGLES)
	switch m.Kind {
	case scene.Lines:
		mode = gl.LINES
	case scene.Points:
		mode = gl.POINTS
	}
	gl.BindVertexArray(m.GPU.VAO)
	gl.DrawElements(mode, m.GPU.IndexCount, gl.UNSIGNED_INT, nil)
}

func (rend *OpenGLRenderer) setFrameUniforms(shader *Shader, f *viewer.Frame, viewProjection mgl32.Mat4, fog mgl32.Vec3) {
	shader.SetMat4("viewProjection", viewProjection)
	shader.SetVec3("viewPos", f.Camera.Position)
	shader.SetFloat("fogDensity", f.Settings.FogDensity)
	shader.SetVec3("fogColor", fog)
}

func (rend *OpenGLRenderer) setLightUniforms(f *viewer.Frame) {
	s := rend.lit
	s.SetFloat("ambientIntensity", f.Settings.AmbientIntensity)
	s.SetFloat("directionalIntensity", f.Settings.DirectionalIntensity)
	s.SetVec3("sunDirection", sunDirection)

	var slots map[string]int
	if rend.shadows != nil {
		slots = rend.shadows.slots
	}
	lights := packLights(f.Emitters, slots)
	n := len(lights.spots)
	pos := make([]mgl32.Vec3, n)
	dir := make([]mgl32.Vec3, n)
	col := make([]mgl32.Vec3, n)
	rng := make([]float32, n)
	outer := make([]float32, n)
	inner := make([]float32, n)
	shadow := make([]int32, n)
	for i, l := range lights.spots {
		pos[i], dir[i], col[i] = l.position, l.direction, l.color
		rng[i], outer[i], inner[i], shadow[i] = l.rangeDist, l.cosOuter, l.cosInner, l.shadow
	}
	s.SetInt("spotCount", int32(n))
	s.uniforms.SetVec3Array("spotPosition", pos)
	s.uniforms.SetVec3Array("spotDirection", dir)
	s.uniforms.SetVec3Array("spotColor", col)
	s.uniforms.SetFloatArray("spotRange", rng)
	s.uniforms.SetFloatArray("spotCosOuter", outer)
	s.uniforms.SetFloatArray("spotCosInner", inner)
	s.uniforms.SetIntArray("spotShadow", shadow)

	p := len(lights.points)
	ppos := make([]mgl32.Vec3, p)
	pcol := make([]mgl32.Vec3, p)
	prng := make([]float32, p)
	for i, l := range lights.points {
		ppos[i], pcol[i], prng[i] = l.position, l.color, l.rangeDist
	}
	s.SetInt("pointCount", int32(p))
	s.uniforms.SetVec3Array("pointPosition", ppos)
	s.uniforms.SetVec3Array("pointColor", pcol)
	s.uniforms.SetFloatArray("pointRange", prng)

	// unit 0 is the diffuse map
	if rend.shadows != nil {
		rend.shadows.bind(s, 1)
	}
}

func (rend *OpenGLRenderer) setMaterialUniforms(m *scene.Material, texture uint32) {
	s := rend.lit
	s.SetVec3("diffuseColor", m.DiffuseColor)
	s.SetVec3("specularColor", m.SpecularColor)
	s.SetVec3("emissiveColor", m.EmissiveColor)
	s.SetFloat("emissiveIntensity", m.EmissiveIntensity)
	s.SetFloat("shininess", m.Shininess)
	s.SetFloat("roughness", m.Roughness)
	s.SetFloat("metallic", m.Metallic)
	s.SetFloat("alpha", m.Alpha)
	s.SetBool("hasTexture", texture != 0)
	s.SetInt("textureSampler", 0)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, texture)
}

// markerVertices builds position+colour vertices for emitter dots and spot
// aim lines. Hidden emitters are drawn dim.
func markerVertices(emitters []*rig.Emitter) (points, lines []float32) {
	dim := mgl32.Vec3{0.3, 0.3, 0.3}
	aim := mgl32.Vec3{1.0, 0.85, 0.2}
	for _, e := range emitters {
		c := dim
		if e.Visible && e.Intensity > 0 {
			c = e.Color
		}
		points = append(points, e.Position.X(), e.Position.Y(), e.Position.Z(), c.X(), c.Y(), c.Z())
		if e.Kind == rig.Spot && e.HasTarget {
			lines = append(lines,
				e.Position.X(), e.Position.Y(), e.Position.Z(), aim.X(), aim.Y(), aim.Z(),
				e.Target.X(), e.Target.Y(), e.Target.Z(), aim.X(), aim.Y(), aim.Z())
		}
	}
	return points, lines
}

func (rend *OpenGLRenderer) drawMarkers(emitters []*rig.Emitter, viewProjection mgl32.Mat4) {
	points, lines := markerVertices(emitters)
	if len(points) == 0 {
		return
	}
	data := append(append([]float32{}, points...), lines...)
	rend.marker.Use()
	rend.marker.SetMat4("viewProjection", viewProjection)
	rend.marker.SetFloat("pointSize", MarkerPointSize)
	gl.Enable(gl.PROGRAM_POINT_SIZE)
	gl.BindVertexArray(rend.markerVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, rend.markerVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STREAM_DRAW)
	gl.DrawArrays(gl.POINTS, 0, int32(len(points)/6))
	if len(lines) > 0 {
		gl.DrawArrays(gl.LINES, int32(len(points)/6), int32(len(lines)/6))
	}
	gl.Disable(gl.PROGRAM_POINT_SIZE)
	gl.BindVertexArray(0)
}

// ReleaseLights frees the shadow maps of the rig.
func (rend *OpenGLRenderer) ReleaseLights(emitters []*rig.Emitter) {
	if rend.shadows == nil {
		return
	}
	n := rend.shadows.release()
	rend.shadows = nil
	logger.Log.Info("Released lights", zap.Int("emitters", len(emitters)), zap.Int("shadowMaps", n))
}

// ReleaseShaders deletes the mesh and marker programs.
func (rend *OpenGLRenderer) ReleaseShaders() {
	for _, s := range []*Shader{rend.lit, rend.emissive, rend.marker} {
		if s != nil {
			s.Delete()
		}
	}
	gl.DeleteVertexArrays(1, &rend.markerVAO)
	gl.DeleteBuffers(1, &rend.markerVBO)
	rend.markerVAO, rend.markerVBO = 0, 0
}

func (rend *OpenGLRenderer) DisposePostProcess() {
	if rend.post != nil {
		rend.post.Dispose()
		rend.post = nil
	}
}

// Release frees the scene's vertex buffers, textures and the ground plane.
func (rend *OpenGLRenderer) Release(s *scene.Scene) {
	if s == nil {
		return
	}
	for _, m := range s.Meshes {
		if !m.GPU.Uploaded {
			continue
		}
		gl.DeleteVertexArrays(1, &m.GPU.VAO)
		gl.DeleteBuffers(1, &m.GPU.VBO)
		gl.DeleteBuffers(1, &m.GPU.EBO)
		m.GPU = scene.GPUHandle{}
		if id, ok := rend.meshTextures[m]; ok {
			rend.textures.Release(id)
			delete(rend.meshTextures, m)
		}
	}
	if rend.ground.ready {
		gl.DeleteVertexArrays(1, &rend.ground.vao)
		gl.DeleteBuffers(1, &rend.ground.vbo)
		gl.DeleteBuffers(1, &rend.ground.ebo)
		rend.ground = groundPlane{}
	}
	rend.meshes = nil
	rend.textures.LogStats()
	logger.Log.Info("Scene released", zap.Int("meshes", len(s.Meshes)))
}

func GenShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	cSources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, cSources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)

		logger.Log.Error("Failed to compile", zap.Uint32("shaderType", shaderType), zap.String("log", log))
		return 0, fmt.Errorf("compile failed: %s", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

func GenShaderProgram(vertexShader, fragmentShader uint32) (uint32, error) {
	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	gl.DetachShader(program, vertexShader)
	gl.DeleteShader(vertexShader)
	gl.DetachShader(program, fragmentShader)
	gl.DeleteShader(fragmentShader)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)

		logger.Log.Error("Failed to link program", zap.String("log", log))
		return 0, fmt.Errorf("link failed: %s", strings.TrimRight(log, "\x00"))
	}
	return program, nil
}
