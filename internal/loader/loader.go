package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"Canopy3D/internal/logger"
	"Canopy3D/internal/scene"

	"github.com/alitto/pond/v2"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// ErrNoGeometry is returned for files that parse but contain nothing to draw.
var ErrNoGeometry = errors.New("model contains no geometry")

// DefaultLayer names geometry that appears before any group statement.
const DefaultLayer = "Default"

// Progress receives (bytesLoaded, bytesTotal). It is called from the
// loading goroutine.
type Progress func(loaded, total int64)

// Result is the terminal outcome of an asynchronous load.
type Result struct {
	Scene *scene.Scene
	Err   error
}

// LoadAsync loads on a new goroutine and delivers exactly one Result. The
// channel is buffered so the loader never blocks on a slow consumer.
func LoadAsync(path string, progress Progress) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		s, err := Load(path, progress)
		out <- Result{Scene: s, Err: err}
	}()
	return out
}

// Load parses an OBJ file and its material library into a scene. OBJ groups
// become scene layers; objects, materials and primitive kinds split meshes.
func Load(path string, progress Progress) (*scene.Scene, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer file.Close()

	var total int64
	if info, err := file.Stat(); err == nil {
		total = info.Size()
	}
	r := &countingReader{r: file, total: total, progress: progress}

	s, err := parse(r, path)
	if err != nil {
		return nil, err
	}
	if progress != nil {
		progress(total, total)
	}
	return s, nil
}

type countingReader struct {
	r        io.Reader
	read     int64
	total    int64
	progress Progress
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += int64(n)
	if c.progress != nil && n > 0 {
		c.progress(c.read, c.total)
	}
	return n, err
}

type meshKey struct {
	object   string
	layer    int
	material string
	kind     scene.MeshKind
}

type vertexKey struct {
	v, vt, vn int32
}

// meshBuilder accumulates one mesh, unifying (v, vt, vn) triplets into a
// single vertex stream.
type meshBuilder struct {
	mesh    *scene.Mesh
	lookup  map[vertexKey]uint32
	normals bool // every vertex carried an explicit normal
}

type parser struct {
	path      string
	materials map[string]*scene.Material
	scene     *scene.Scene

	positions []mgl32.Vec3
	uvs       []mgl32.Vec2
	normals   []mgl32.Vec3

	object   string
	layer    int
	material string

	builders map[meshKey]*meshBuilder
	order    []*meshBuilder
}

func parse(r io.Reader, path string) (*scene.Scene, error) {
	p := &parser{
		path:      path,
		materials: map[string]*scene.Material{},
		scene:     scene.New(path),
		builders:  map[meshKey]*meshBuilder{},
		layer:     -1,
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 || strings.HasPrefix(parts[0], "#") {
			continue
		}
		if err := p.statement(parts); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filepath.Base(path), line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	return p.finish()
}

func (p *parser) statement(parts []string) error {
	switch parts[0] {
	case "v":
		v, err := parseVertex(parts[1:])
		if err != nil {
			return err
		}
		if len(v) < 3 {
			return fmt.Errorf("vertex needs 3 components, got %d", len(v))
		}
		p.positions = append(p.positions, mgl32.Vec3{v[0], v[1], v[2]})
	case "vt":
		vt, err := parseTextureCoordinate(parts[1:])
		if err != nil {
			return err
		}
		for len(vt) < 2 {
			vt = append(vt, 0)
		}
		p.uvs = append(p.uvs, mgl32.Vec2{vt[0], vt[1]})
	case "vn":
		n, err := parseVertex(parts[1:])
		if err != nil {
			return err
		}
		if len(n) < 3 {
			return fmt.Errorf("normal needs 3 components, got %d", len(n))
		}
		p.normals = append(p.normals, mgl32.Vec3{n[0], n[1], n[2]})
	case "g":
		name := DefaultLayer
		if len(parts) > 1 {
			name = strings.Join(parts[1:], " ")
		}
		p.layer = p.scene.AddLayer(name, scene.DefaultMaterial.DiffuseColor)
	case "o":
		if len(parts) > 1 {
			p.object = strings.Join(parts[1:], " ")
		}
	case "usemtl":
		if len(parts) > 1 {
			p.material = parts[1]
			if _, ok := p.materials[p.material]; !ok {
				logger.Log.Debug("Material not found", zap.String("material", p.material))
			}
		}
	case "mtllib":
		for _, lib := range parts[1:] {
			for name, m := range LoadMaterials(filepath.Join(filepath.Dir(p.path), lib)) {
				p.materials[name] = m
			}
		}
	case "f":
		face, err := parseFace(parts[1:], len(p.positions), len(p.uvs), len(p.normals))
		if err != nil {
			return err
		}
		b := p.builder(scene.Triangles)
		for _, fv := range face {
			b.mesh.Indices = append(b.mesh.Indices, p.vertex(b, fv))
		}
	case "l":
		verts, err := parseElements(parts[1:], len(p.positions), len(p.uvs))
		if err != nil {
			return err
		}
		b := p.builder(scene.Lines)
		for i := 0; i+1 < len(verts); i++ {
			b.mesh.Indices = append(b.mesh.Indices, p.vertex(b, verts[i]), p.vertex(b, verts[i+1]))
		}
	case "p":
		verts, err := parseElements(parts[1:], len(p.positions), len(p.uvs))
		if err != nil {
			return err
		}
		b := p.builder(scene.Points)
		for _, fv := range verts {
			b.mesh.Indices = append(b.mesh.Indices, p.vertex(b, fv))
		}
	}
	return nil
}

func (p *parser) builder(kind scene.MeshKind) *meshBuilder {
	if p.layer < 0 {
		p.layer = p.scene.AddLayer(DefaultLayer, scene.DefaultMaterial.DiffuseColor)
	}
	key := meshKey{object: p.object, layer: p.layer, material: p.material, kind: kind}
	if b, ok := p.builders[key]; ok {
		return b
	}

	imported := scene.NewDefaultMaterial()
	if m, ok := p.materials[p.material]; ok {
		imported = m.Clone()
		imported.Variant = scene.VariantImported
	}

	name := p.object
	if name == "" {
		name = p.scene.Layers[p.layer].Name
	}
	b := &meshBuilder{
		mesh: &scene.Mesh{
			Name:       fmt.Sprintf("%s#%d", name, len(p.order)),
			LayerIndex: p.layer,
			Kind:       kind,
			Visible:    true,
			Imported:   imported,
			Material:   imported,
		},
		lookup:  map[vertexKey]uint32{},
		normals: true,
	}

	// the first material used on a layer colours it
	if l := p.scene.Layer(p.layer); l != nil && len(p.scene.MeshesOnLayer(p.layer)) == 0 {
		l.Color = imported.DiffuseColor
	}
	p.builders[key] = b
	p.order = append(p.order, b)
	p.scene.AddMesh(b.mesh)
	return b
}

func (p *parser) vertex(b *meshBuilder, fv FaceVertex) uint32 {
	key := vertexKey{fv.VertexIdx, fv.TexCoordIdx, fv.NormalIdx}
	if idx, ok := b.lookup[key]; ok {
		return idx
	}
	m := b.mesh
	idx := uint32(len(m.Positions))
	m.Positions = append(m.Positions, p.positions[fv.VertexIdx])
	if fv.TexCoordIdx >= 0 {
		// pad meshes that mix textured and untextured elements
		for len(m.UVs) < int(idx) {
			m.UVs = append(m.UVs, mgl32.Vec2{})
		}
		m.UVs = append(m.UVs, p.uvs[fv.TexCoordIdx])
	} else if len(m.UVs) > 0 {
		m.UVs = append(m.UVs, mgl32.Vec2{})
	}
	if fv.NormalIdx >= 0 {
		m.Normals = append(m.Normals, p.normals[fv.NormalIdx])
	} else {
		b.normals = false
		m.Normals = append(m.Normals, mgl32.Vec3{})
	}
	b.lookup[key] = idx
	return idx
}

// finish computes normals and bounds for every mesh on a worker pool.
func (p *parser) finish() (*scene.Scene, error) {
	if len(p.order) == 0 {
		return nil, fmt.Errorf("%s: %w", p.path, ErrNoGeometry)
	}

	pool := pond.NewPool(runtime.NumCPU())
	defer pool.StopAndWait()
	group := pool.NewGroup()
	for _, b := range p.order {
		b := b
		group.Submit(func() {
			if !b.normals {
				b.mesh.RecalculateNormals()
			}
			b.mesh.UpdateBounds()
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("finalise meshes: %w", err)
	}

	p.scene.UpdateBounds()
	logger.Log.Info("Model loaded",
		zap.String("path", p.path),
		zap.Int("layers", len(p.scene.Layers)),
		zap.Int("meshes", len(p.scene.Meshes)),
		zap.Int("vertices", len(p.positions)))
	return p.scene, nil
}

// LoadMaterials loads material properties from a .mtl file. A missing or
// unreadable file yields an empty map; faces then use the default material.
func LoadMaterials(filename string) map[string]*scene.Material {
	materials := make(map[string]*scene.Material)
	file, err := os.Open(filename)
	if err != nil {
		logger.Log.Warn("Error opening material file", zap.String("path", filename), zap.Error(err))
		return materials
	}
	defer file.Close()

	var current *scene.Material
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] != "newmtl" && current == nil {
			continue
		}

		switch fields[0] {
		case "newmtl":
			if len(fields) < 2 {
				logger.Log.Warn("Malformed material line", zap.String("line", line))
				continue
			}
			current = scene.NewDefaultMaterial()
			current.Name = fields[1]
			current.Variant = scene.VariantImported
			materials[fields[1]] = current
		case "Kd": // Diffuse color
			if len(fields) == 4 {
				current.DiffuseColor = mgl32.Vec3(parseColor(fields[1:]))
			}
		case "Ks": // Specular color
			if len(fields) == 4 {
				current.SpecularColor = mgl32.Vec3(parseColor(fields[1:]))
			}
		case "Ke": // Emissive color
			if len(fields) == 4 {
				current.EmissiveColor = mgl32.Vec3(parseColor(fields[1:]))
				if current.EmissiveColor != (mgl32.Vec3{}) && current.EmissiveIntensity == 0 {
					current.EmissiveIntensity = 1
				}
			}
		case "Ns": // Shininess
			if len(fields) == 2 {
				current.Shininess = parseFloat(fields[1])
			}
		case "Pr": // PBR roughness
			if len(fields) == 2 {
				current.Roughness = parseFloat(fields[1])
			}
		case "Pm": // PBR metallic
			if len(fields) == 2 {
				current.Metallic = parseFloat(fields[1])
			}
		case "d": // Dissolve (alpha/opacity)
			if len(fields) == 2 {
				current.Alpha = parseFloat(fields[1])
			}
		case "Tr": // Transparency, inverse of d
			if len(fields) == 2 {
				current.Alpha = 1 - parseFloat(fields[1])
			}
		case "map_Kd": // Diffuse texture map
			if len(fields) >= 2 {
				// options may precede the path, which is the last field
				texturePath := fields[len(fields)-1]
				if !filepath.IsAbs(texturePath) {
					texturePath = filepath.Join(filepath.Dir(filename), texturePath)
				}
				// loaded later, once a GL context exists
				current.TexturePath = texturePath
				logger.Log.Debug("Stored texture path for material",
					zap.String("material", current.Name),
					zap.String("path", texturePath))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Log.Warn("Error reading material file", zap.String("path", filename), zap.Error(err))
	}
	return materials
}

// parseColor parses RGB color components from a list of strings to an array of float32.
func parseColor(fields []string) [3]float32 {
	var color [3]float32
	for i, field := range fields {
		if i >= 3 {
			break
		}
		if val, err := strconv.ParseFloat(field, 32); err == nil {
			color[i] = float32(val)
		} else {
			logger.Log.Warn("Error parsing color component", zap.Error(err))
		}
	}
	return color
}

// parseFloat parses a single string to a float32.
func parseFloat(s string) float32 {
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		logger.Log.Warn("Error parsing material value", zap.Error(err))
		return 0
	}
	return float32(f)
}

func parseVertex(parts []string) ([]float32, error) {
	var vertex []float32
	for _, part := range parts {
		val, err := strconv.ParseFloat(part, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vertex value %v: %w", part, err)
		}
		vertex = append(vertex, float32(val))
	}
	return vertex, nil
}

// for 2D textures
func parseTextureCoordinate(parts []string) ([]float32, error) {
	var texCoord []float32
	for _, part := range parts {
		val, err := strconv.ParseFloat(part, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid texture coordinate value %v: %w", part, err)
		}
		texCoord = append(texCoord, float32(val))
	}
	return texCoord, nil
}

// FaceVertex holds zero-based indices into the global OBJ attribute lists.
// Missing attributes are -1.
type FaceVertex struct {
	VertexIdx   int32
	TexCoordIdx int32
	NormalIdx   int32
}

// resolveIndex turns a one-based or negative relative OBJ index into a
// zero-based index, checking it against count.
func resolveIndex(s string, count int) (int32, error) {
	raw, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return -1, fmt.Errorf("invalid index %v: %w", s, err)
	}
	idx := int(raw) - 1
	if raw < 0 {
		idx = count + int(raw)
	}
	if raw == 0 || idx < 0 || idx >= count {
		return -1, fmt.Errorf("index %v out of range (%d defined)", s, count)
	}
	return int32(idx), nil
}

func parseFaceVertex(part string, nv, nvt, nvn int) (FaceVertex, error) {
	vals := strings.Split(part, "/")
	fv := FaceVertex{TexCoordIdx: -1, NormalIdx: -1}

	var err error
	if fv.VertexIdx, err = resolveIndex(vals[0], nv); err != nil {
		return fv, err
	}
	if len(vals) > 1 && vals[1] != "" {
		if fv.TexCoordIdx, err = resolveIndex(vals[1], nvt); err != nil {
			return fv, err
		}
	}
	if len(vals) > 2 && vals[2] != "" {
		if fv.NormalIdx, err = resolveIndex(vals[2], nvn); err != nil {
			return fv, err
		}
	}
	return fv, nil
}

func parseFace(parts []string, nv, nvt, nvn int) ([]FaceVertex, error) {
	if len(parts) < 3 {
		return nil, fmt.Errorf("face needs at least 3 vertices, got %d", len(parts))
	}
	face := make([]FaceVertex, 0, len(parts))
	for _, part := range parts {
		fv, err := parseFaceVertex(part, nv, nvt, nvn)
		if err != nil {
			return nil, err
		}
		face = append(face, fv)
	}

	// Convert quads to triangles
	// Triangle 1: v0, v1, v2
	// Triangle 2: v0, v2, v3
	if len(face) == 4 {
		return []FaceVertex{face[0], face[1], face[2], face[0], face[2], face[3]}, nil
	} else if len(face) > 4 {
		// Polygons with >4 vertices: triangulate as fan from first vertex
		var triangulated []FaceVertex
		for i := 1; i < len(face)-1; i++ {
			triangulated = append(triangulated, face[0], face[i], face[i+1])
		}
		return triangulated, nil
	}
	return face, nil
}

// parseElements reads the v or v/vt references of line and point elements.
func parseElements(parts []string, nv, nvt int) ([]FaceVertex, error) {
	out := make([]FaceVertex, 0, len(parts))
	for _, part := range parts {
		fv, err := parseFaceVertex(part, nv, nvt, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, fv)
	}
	return out, nil
}
