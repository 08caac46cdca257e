package scene

import "github.com/go-gl/mathgl/mgl32"

// SceneLayer is one named design layer of the imported model. Index is the
// join key between mesh LayerIndex and the visibility toggles.
type SceneLayer struct {
	Index   int
	Name    string
	Color   mgl32.Vec3
	Visible bool
}

type Scene struct {
	Source string
	Layers []SceneLayer
	Meshes []*Mesh
	Bounds Box3
}

func New(source string) *Scene {
	return &Scene{Source: source, Bounds: EmptyBox()}
}

// AddLayer returns the index of the named layer, creating it on first use.
func (s *Scene) AddLayer(name string, color mgl32.Vec3) int {
	if l := s.LayerByName(name); l != nil {
		return l.Index
	}
	idx := len(s.Layers)
	s.Layers = append(s.Layers, SceneLayer{Index: idx, Name: name, Color: color, Visible: true})
	return idx
}

func (s *Scene) LayerByName(name string) *SceneLayer {
	for i := range s.Layers {
		if s.Layers[i].Name == name {
			return &s.Layers[i]
		}
	}
	return nil
}

// Layer finds a layer by its Index, which usually matches its position.
func (s *Scene) Layer(index int) *SceneLayer {
	if index >= 0 && index < len(s.Layers) && s.Layers[index].Index == index {
		return &s.Layers[index]
	}
	for i := range s.Layers {
		if s.Layers[i].Index == index {
			return &s.Layers[i]
		}
	}
	return nil
}

func (s *Scene) MeshesOnLayer(index int) []*Mesh {
	var out []*Mesh
	for _, m := range s.Meshes {
		if m.LayerIndex == index {
			out = append(out, m)
		}
	}
	return out
}

func (s *Scene) AddMesh(m *Mesh) {
	s.Meshes = append(s.Meshes, m)
}

// UpdateBounds recomputes the scene box from mesh bounds.
func (s *Scene) UpdateBounds() {
	b := EmptyBox()
	for _, m := range s.Meshes {
		b = b.Union(m.Bounds)
	}
	s.Bounds = b
}

func (s *Scene) LayerNames() []string {
	names := make([]string, len(s.Layers))
	for i, l := range s.Layers {
		names[i] = l.Name
	}
	return names
}
