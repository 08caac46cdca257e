// Package layers maps imported layer names to functional lighting roles.
package layers

import (
	"sort"
	"strings"

	"Canopy3D/internal/logger"
	"Canopy3D/internal/scene"

	"go.uber.org/zap"
)

type Role int

const (
	RoleOther Role = iota
	RoleEdgeLight
	RoleBaseLight
	RoleWashLight
	RoleFace
	RoleGuide
	RoleLandscape
	RoleGround
	RoleSemiGloss
	RolePeople
)

func (r Role) String() string {
	switch r {
	case RoleEdgeLight:
		return "edge-light"
	case RoleBaseLight:
		return "base-light"
	case RoleWashLight:
		return "wash-light"
	case RoleFace:
		return "face"
	case RoleGuide:
		return "guide"
	case RoleLandscape:
		return "landscape"
	case RoleGround:
		return "ground"
	case RoleSemiGloss:
		return "semi-gloss"
	case RolePeople:
		return "people"
	}
	return "other"
}

// Names is the literal layer name each role is authored under. Content
// authors must use these names exactly.
var Names = map[Role]string{
	RoleEdgeLight: "Edge LED",
	RoleBaseLight: "Base Lights",
	RoleWashLight: "Wash Lights",
	RoleFace:      "Face",
	RoleGuide:     "Emitters",
	RoleLandscape: "Grass Graphic",
	RoleGround:    "Sod",
	RoleSemiGloss: "Semi Gloss",
	RolePeople:    "People",
}

var byName = func() map[string]Role {
	m := make(map[string]Role, len(Names))
	for r, n := range Names {
		m[n] = r
	}
	return m
}()

// Classify resolves a layer name to its role by exact match. "edge led" is
// not "Edge LED".
func Classify(name string) Role {
	if r, ok := byName[name]; ok {
		return r
	}
	return RoleOther
}

// DefaultVisible decides whether a layer starts visible in the UI. This is
// the one place names are compared case and whitespace insensitively.
func DefaultVisible(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	return n != strings.ToLower(Names[RoleGuide])
}

// Emissive reports whether a role's meshes take part in material swapping.
func (r Role) Emissive() bool {
	return r == RoleEdgeLight || r == RoleBaseLight || r == RoleWashLight
}

// Classified groups scene meshes by role. It is built once per load and is
// not modified afterwards.
type Classified struct {
	Meshes    map[Role][]*scene.Mesh
	LayerRole map[int]Role
	Missing   []string
}

// ByRole returns the meshes classified under r in scene order.
func (c *Classified) ByRole(r Role) []*scene.Mesh {
	if c == nil {
		return nil
	}
	return c.Meshes[r]
}

// expected lists the roles whose absence is worth an info line.
var expected = []Role{RoleEdgeLight, RoleBaseLight, RoleWashLight, RoleFace, RoleGuide, RoleGround}

// ClassifyScene assigns every mesh a role through its layer name and sets
// the initial layer visibility. Missing layers are logged, not errors.
func ClassifyScene(s *scene.Scene) *Classified {
	c := &Classified{
		Meshes:    make(map[Role][]*scene.Mesh),
		LayerRole: make(map[int]Role),
	}
	if s == nil {
		return c
	}

	logger.Log.Info("Discovered layers", zap.Strings("layers", s.LayerNames()))

	present := make(map[Role]bool)
	for i := range s.Layers {
		l := &s.Layers[i]
		r := Classify(l.Name)
		c.LayerRole[l.Index] = r
		present[r] = true
		l.Visible = DefaultVisible(l.Name)
	}

	for _, m := range s.Meshes {
		r := c.LayerRole[m.LayerIndex]
		c.Meshes[r] = append(c.Meshes[r], m)
		if l := s.Layer(m.LayerIndex); l != nil {
			m.Visible = l.Visible
		}
	}

	for _, r := range expected {
		if !present[r] {
			c.Missing = append(c.Missing, Names[r])
		}
	}
	sort.Strings(c.Missing)
	for _, name := range c.Missing {
		logger.Log.Info("Expected layer not found, feature disabled", zap.String("layer", name))
	}
	return c
}
