package scene

import "github.com/go-gl/mathgl/mgl32"

// MeshKind tells the renderer which primitive topology to draw.
type MeshKind int

const (
	Triangles MeshKind = iota
	Lines
	Points
)

func (k MeshKind) String() string {
	switch k {
	case Triangles:
		return "triangles"
	case Lines:
		return "lines"
	case Points:
		return "points"
	}
	return "unknown"
}

// GPUHandle is the renderer-owned state for a mesh. It is opaque to every
// package but the renderer.
type GPUHandle struct {
	VAO        uint32
	VBO        uint32
	EBO        uint32
	IndexCount int32
	Uploaded   bool
}

type Mesh struct {
	// HOT DATA - accessed every frame
	Material *Material // active material, swapped by the material controller
	Visible  bool
	Kind     MeshKind
	GPU      GPUHandle

	// MEDIUM DATA
	Bounds     Box3
	LayerIndex int

	// COLD DATA - load time only
	Name      string
	Positions []mgl32.Vec3 // world space
	UVs       []mgl32.Vec2 // parallel to Positions when present
	Normals   []mgl32.Vec3
	Indices   []uint32
	Imported  *Material // material as loaded, never mutated after load
}

func (m *Mesh) VertexCount() int {
	return len(m.Positions)
}

func (m *Mesh) HasUVs() bool {
	return len(m.UVs) > 0 && len(m.UVs) >= len(m.Positions)
}

// UpdateBounds recomputes Bounds from Positions.
func (m *Mesh) UpdateBounds() {
	m.Bounds = BoxOf(m.Positions)
}

// InterleavedData packs position, uv and normal as 8 floats per vertex, the
// layout the renderer uploads.
func (m *Mesh) InterleavedData() []float32 {
	data := make([]float32, 0, len(m.Positions)*8)
	for i, p := range m.Positions {
		data = append(data, p.X(), p.Y(), p.Z())
		if i < len(m.UVs) {
			data = append(data, m.UVs[i].X(), m.UVs[i].Y())
		} else {
			data = append(data, 0, 0)
		}
		if i < len(m.Normals) {
			data = append(data, m.Normals[i].X(), m.Normals[i].Y(), m.Normals[i].Z())
		} else {
			data = append(data, 0, 1, 0)
		}
	}
	return data
}

// RecalculateNormals computes smooth per-vertex normals from the triangle
// index list. Non-triangle meshes keep an up-facing normal.
func (m *Mesh) RecalculateNormals() {
	normals := make([]mgl32.Vec3, len(m.Positions))
	if m.Kind != Triangles {
		for i := range normals {
			normals[i] = mgl32.Vec3{0, 1, 0}
		}
		m.Normals = normals
		return
	}

	n := uint32(len(m.Positions))
	for i := 0; i+2 < len(m.Indices); i += 3 {
		i0, i1, i2 := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		if i0 >= n || i1 >= n || i2 >= n {
			continue
		}
		v0, v1, v2 := m.Positions[i0], m.Positions[i1], m.Positions[i2]
		face := v1.Sub(v0).Cross(v2.Sub(v0))
		normals[i0] = normals[i0].Add(face)
		normals[i1] = normals[i1].Add(face)
		normals[i2] = normals[i2].Add(face)
	}
	for i, nv := range normals {
		if nv.Len() > 0 {
			normals[i] = nv.Normalize()
		} else {
			normals[i] = mgl32.Vec3{0, 1, 0}
		}
	}
	m.Normals = normals
}
