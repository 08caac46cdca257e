package layers

import (
	"testing"

	"Canopy3D/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyExactMatch(t *testing.T) {
	cases := map[string]Role{
		"Edge LED":      RoleEdgeLight,
		"Base Lights":   RoleBaseLight,
		"Wash Lights":   RoleWashLight,
		"Face":          RoleFace,
		"Emitters":      RoleGuide,
		"Grass Graphic": RoleLandscape,
		"Sod":           RoleGround,
		"People":        RolePeople,
		"edge led":      RoleOther,
		" Edge LED":     RoleOther,
		"Furniture":     RoleOther,
		"":              RoleOther,
	}
	for name, want := range cases {
		assert.Equal(t, want, Classify(name), "%q", name)
	}
}

func TestDefaultVisibleIsTolerant(t *testing.T) {
	assert.False(t, DefaultVisible("Emitters"))
	assert.False(t, DefaultVisible("  emitters "))
	assert.False(t, DefaultVisible("EMITTERS"))
	assert.True(t, DefaultVisible("Edge LED"))
	assert.True(t, DefaultVisible("emitter"))
}

func TestClassifyScene(t *testing.T) {
	s := scene.New("test.obj")
	edge := s.AddLayer("Edge LED", mgl32.Vec3{1, 0, 0})
	guide := s.AddLayer(" emitters", mgl32.Vec3{})
	misc := s.AddLayer("Trees", mgl32.Vec3{})

	s.AddMesh(&scene.Mesh{Name: "e1", LayerIndex: edge, Visible: true})
	s.AddMesh(&scene.Mesh{Name: "e2", LayerIndex: edge, Visible: true})
	s.AddMesh(&scene.Mesh{Name: "g", LayerIndex: guide, Visible: true})
	s.AddMesh(&scene.Mesh{Name: "t", LayerIndex: misc, Visible: true})

	c := ClassifyScene(s)
	require.Len(t, c.ByRole(RoleEdgeLight), 2)
	// role lookup is exact, so the padded name is not a guide layer
	assert.Empty(t, c.ByRole(RoleGuide))
	assert.Len(t, c.ByRole(RoleOther), 2)

	// default visibility is tolerant, so it still starts hidden
	assert.False(t, s.Layers[guide].Visible)
	assert.False(t, s.Meshes[2].Visible)
	assert.True(t, s.Meshes[0].Visible)

	assert.Contains(t, c.Missing, "Wash Lights")
	assert.Contains(t, c.Missing, "Emitters")
	assert.NotContains(t, c.Missing, "Edge LED")
}

func TestClassifySceneNil(t *testing.T) {
	c := ClassifyScene(nil)
	assert.Empty(t, c.ByRole(RoleEdgeLight))
	var none *Classified
	assert.Nil(t, none.ByRole(RoleFace))
}

func TestEmissiveRoles(t *testing.T) {
	assert.True(t, RoleEdgeLight.Emissive())
	assert.True(t, RoleWashLight.Emissive())
	assert.False(t, RoleFace.Emissive())
	assert.Equal(t, "edge-light", RoleEdgeLight.String())
}
