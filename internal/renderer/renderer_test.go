package renderer

import (
	"fmt"
	"testing"

	"Canopy3D/internal/layers"
	"Canopy3D/internal/rig"
	"Canopy3D/internal/scene"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spot(id string, pos, target mgl32.Vec3) *rig.Emitter {
	return &rig.Emitter{
		ID:          id,
		Kind:        rig.Spot,
		Position:    pos,
		Target:      target,
		HasTarget:   true,
		Throw:       20,
		ConeAngle:   30,
		Penumbra:    0.5,
		CastsShadow: true,
		Color:       mgl32.Vec3{1, 0.5, 0},
		Intensity:   2,
		Visible:     true,
	}
}

func TestPackLightsSkipsDarkAndHidden(t *testing.T) {
	lit := spot("a", mgl32.Vec3{0, 10, 0}, mgl32.Vec3{0, 0, 0})
	hidden := spot("b", mgl32.Vec3{1, 10, 0}, mgl32.Vec3{1, 0, 0})
	hidden.Visible = false
	dark := spot("c", mgl32.Vec3{2, 10, 0}, mgl32.Vec3{2, 0, 0})
	dark.Intensity = 0
	point := &rig.Emitter{ID: "p", Kind: rig.Point, Position: mgl32.Vec3{5, 2, 5}, Throw: 8,
		Color: mgl32.Vec3{1, 1, 1}, Intensity: 0.5, Visible: true}

	b := packLights([]*rig.Emitter{lit, hidden, dark, point}, map[string]int{"a": 3})

	require.Len(t, b.spots, 1)
	require.Len(t, b.points, 1)
	s := b.spots[0]
	assert.Equal(t, mgl32.Vec3{2, 1, 0}, s.color)
	assert.Equal(t, int32(3), s.shadow)
	assert.InDelta(t, -1, s.direction.Y(), 1e-6)
	assert.InDelta(t, math32.Cos(mgl32.DegToRad(30)), s.cosOuter, 1e-6)
	assert.Greater(t, s.cosInner, s.cosOuter)
	assert.Equal(t, float32(20), s.rangeDist)
	assert.Equal(t, mgl32.Vec3{0.5, 0.5, 0.5}, b.points[0].color)
}

func TestPackLightsCapsArrays(t *testing.T) {
	var emitters []*rig.Emitter
	for i := 0; i < MaxSpotLights+8; i++ {
		emitters = append(emitters, spot(fmt.Sprint(i), mgl32.Vec3{float32(i), 5, 0}, mgl32.Vec3{float32(i), 0, 0}))
	}
	b := packLights(emitters, nil)
	assert.Len(t, b.spots, MaxSpotLights)
	assert.Equal(t, int32(-1), b.spots[0].shadow)
	assert.Equal(t, mgl32.Vec3{float32(MaxSpotLights - 1), 5, 0}, b.spots[MaxSpotLights-1].position)
}

func TestAssignShadowSlotsInRigOrder(t *testing.T) {
	var emitters []*rig.Emitter
	for i := 0; i < MaxShadowMaps+3; i++ {
		emitters = append(emitters, spot(fmt.Sprint(i), mgl32.Vec3{float32(i), 5, 0}, mgl32.Vec3{float32(i), 0, 0}))
	}
	emitters[1].CastsShadow = false
	emitters[2].Visible = false

	slots := assignShadowSlots(emitters)

	assert.Len(t, slots, MaxShadowMaps)
	assert.Equal(t, 0, slots["0"])
	assert.Equal(t, 1, slots["3"])
	assert.Equal(t, MaxShadowMaps-1, slots[fmt.Sprint(MaxShadowMaps+1)])
	assert.NotContains(t, slots, "1")
	assert.NotContains(t, slots, "2")
	assert.NotContains(t, slots, fmt.Sprint(MaxShadowMaps+2))
}

func TestPackLightsKeepsBaseLightsOfFullRig(t *testing.T) {
	var guides, pads []*scene.Mesh
	for i := 0; i < 2*MaxSpotLights; i++ {
		z := float32(i)
		guides = append(guides, &scene.Mesh{Name: "guide", Kind: scene.Lines,
			Positions: []mgl32.Vec3{{0, 10, z}, {10, 10, z}}})
	}
	for i := 0; i < 4; i++ {
		x := float32(i) * 2
		pads = append(pads, &scene.Mesh{Name: "pad", Positions: []mgl32.Vec3{{x, 1, 0}, {x + 1, 1, 0}, {x + 1, 1, 1}}})
	}
	c := &layers.Classified{
		Meshes:    map[layers.Role][]*scene.Mesh{layers.RoleGuide: guides, layers.RoleBaseLight: pads},
		LayerRole: map[int]layers.Role{},
	}
	bounds := scene.BoxOf([]mgl32.Vec3{{0, 0, 0}, {10, 10, float32(len(guides))}})
	r := rig.Synthesize(c, bounds, rig.DefaultConfig())
	for _, e := range r.Emitters {
		e.Visible = true
		e.Intensity = e.BaseIntensity
	}

	b := packLights(r.Emitters, nil)
	assert.Len(t, b.spots, r.Len())
	drawn := make(map[mgl32.Vec3]bool)
	for _, s := range b.spots {
		drawn[s.position] = true
	}
	base := r.ByGroup(rig.GroupBase)
	require.Len(t, base, len(pads))
	for _, e := range base {
		assert.True(t, drawn[e.Position], "base light %s not drawn", e.ID)
	}
}

func TestSpotLightMatrixCoversThrow(t *testing.T) {
	e := spot("a", mgl32.Vec3{0, 10, 0}, mgl32.Vec3{0, 0, 0})
	m := spotLightMatrix(e)

	project := func(p mgl32.Vec3) mgl32.Vec3 {
		c := m.Mul4x1(p.Vec4(1))
		return c.Vec3().Mul(1 / c.W())
	}

	aim := project(mgl32.Vec3{0, 0, 0})
	assert.InDelta(t, 0, aim.X(), 1e-4)
	assert.InDelta(t, 0, aim.Y(), 1e-4)
	assert.True(t, aim.Z() > -1 && aim.Z() < 1, "aim point inside depth range, got %v", aim.Z())

	beyond := project(mgl32.Vec3{0, -15, 0})
	assert.Greater(t, beyond.Z(), float32(1), "points past the throw are clipped")
}

func TestSpotLightMatrixStraightDownIsFinite(t *testing.T) {
	e := spot("a", mgl32.Vec3{3, 10, 3}, mgl32.Vec3{3, 0, 3})
	m := spotLightMatrix(e)
	for i, v := range m {
		assert.False(t, math32.IsNaN(v), "element %d is NaN", i)
	}
}

func TestFrustumCullsBoxesBehindCamera(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(45), 1, 0.1, 100)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	f := NewFrustum(proj.Mul4(view))

	ahead := scene.BoxOf([]mgl32.Vec3{{-0.5, -0.5, -10.5}, {0.5, 0.5, -9.5}})
	behind := scene.BoxOf([]mgl32.Vec3{{-0.5, -0.5, 9.5}, {0.5, 0.5, 10.5}})
	farAway := scene.BoxOf([]mgl32.Vec3{{-0.5, -0.5, -300}, {0.5, 0.5, -299}})

	assert.True(t, f.IntersectsBox(ahead))
	assert.False(t, f.IntersectsBox(behind))
	assert.False(t, f.IntersectsBox(farAway))
	assert.True(t, f.IntersectsBox(scene.EmptyBox()), "empty boxes are never culled")
}

func TestGroundQuadPadsFootprint(t *testing.T) {
	b := scene.BoxOf([]mgl32.Vec3{{0, 0, 0}, {10, 4, 2}})
	data, ok := groundQuad(b)
	require.True(t, ok)
	require.Len(t, data, 4*8)

	half := float32(10) / 2 * GroundPadding
	for v := 0; v < 4; v++ {
		x, y, z := data[v*8], data[v*8+1], data[v*8+2]
		assert.InDelta(t, half, math32.Abs(x-5), 1e-4)
		assert.InDelta(t, half, math32.Abs(z-1), 1e-4)
		assert.Less(t, y, float32(0), "ground sits just under the model")
		assert.Greater(t, y, float32(-0.01))
		assert.Equal(t, []float32{0, 1, 0}, data[v*8+5:v*8+8], "normal points up")
	}

	_, ok = groundQuad(scene.EmptyBox())
	assert.False(t, ok)
}

func TestMarkerVertices(t *testing.T) {
	aimed := spot("a", mgl32.Vec3{0, 10, 0}, mgl32.Vec3{0, 0, 0})
	hidden := &rig.Emitter{ID: "p", Kind: rig.Point, Position: mgl32.Vec3{5, 2, 5},
		Color: mgl32.Vec3{1, 1, 1}, Intensity: 1, Visible: false}

	points, lines := markerVertices([]*rig.Emitter{aimed, hidden})

	require.Len(t, points, 12)
	require.Len(t, lines, 12)
	assert.Equal(t, []float32{0, 10, 0, 1, 0.5, 0}, points[:6])
	assert.Equal(t, []float32{5, 2, 5, 0.3, 0.3, 0.3}, points[6:])
	assert.Equal(t, []float32{0, 0, 0}, lines[6:9], "aim line ends at the target")

	points, lines = markerVertices(nil)
	assert.Empty(t, points)
	assert.Empty(t, lines)
}

func TestSequentialIndices(t *testing.T) {
	assert.Equal(t, []uint32{0, 1, 2, 3}, sequentialIndices(4))
	assert.Empty(t, sequentialIndices(0))
}
