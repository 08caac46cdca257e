package viewer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"Canopy3D/internal/config"
	"Canopy3D/internal/effects"
	"Canopy3D/internal/materials"
	"Canopy3D/internal/rig"
	"Canopy3D/internal/scene"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRenderer struct {
	calls     []string
	frames    []*Frame
	uploadErr error
}

func (f *fakeRenderer) Upload(*scene.Scene) error {
	f.calls = append(f.calls, "upload")
	return f.uploadErr
}

func (f *fakeRenderer) RenderFrame(fr *Frame)        { f.frames = append(f.frames, fr) }
func (f *fakeRenderer) ReleaseLights([]*rig.Emitter) { f.calls = append(f.calls, "lights") }
func (f *fakeRenderer) ReleaseShaders()              { f.calls = append(f.calls, "shaders") }
func (f *fakeRenderer) DisposePostProcess()          { f.calls = append(f.calls, "postprocess") }
func (f *fakeRenderer) Release(*scene.Scene)         { f.calls = append(f.calls, "release") }

func (f *fakeRenderer) lastFrame() *Frame { return f.frames[len(f.frames)-1] }

// pavilion has a UV-mapped edge strip, a guide curve above it, one base
// light, a wash point and a ground plane.
const pavilion = `v 0 5 0
v 10 5 0
v 10 5 1
v 0 5 1
v 0 0 0
v 10 0 0
v 10 0 10
v 4 0.5 4
v 6 0.5 4
v 5 0.5 6
v 5 2 5
vt 0 0
vt 1 0
vt 1 1
vt 0 1
g Edge LED
f 1/1 2/2 3/3 4/4
g Emitters
l 1 2
g Sod
f 5 6 7
g Base Lights
f 8 9 10
g Wash Lights
p 11
`

const ribbonOnly = `v 0 5 0
v 40 5 0
v 40 5 0.5
v 0 5 0.5
v 0 0 0
v 40 0 0
v 40 0 40
g Edge LED
f 1 2 3 4
g Sod
f 5 6 7
`

func writeModel(t *testing.T, obj string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.obj")
	require.NoError(t, os.WriteFile(path, []byte(obj), 0o644))
	return path
}

func waitForLoad(t *testing.T, v *Viewer) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for v.Status() == StatusLoading {
		if time.Now().After(deadline) {
			t.Fatal("model did not finish loading")
		}
		v.Tick(1.0 / 60)
		time.Sleep(2 * time.Millisecond)
	}
}

func loaded(t *testing.T, obj string) (*Viewer, *fakeRenderer) {
	t.Helper()
	r := &fakeRenderer{}
	v := New(r, nil, config.Default())
	require.NoError(t, v.Load(writeModel(t, obj)))
	waitForLoad(t, v)
	require.Equal(t, StatusLoaded, v.Status())
	return v, r
}

func layerIndex(t *testing.T, v *Viewer, name string) int {
	t.Helper()
	for _, l := range v.ListLayers() {
		if l.Name == name {
			return l.Index
		}
	}
	t.Fatalf("layer %q not found", name)
	return -1
}

func TestFramesRenderWhileLoading(t *testing.T) {
	r := &fakeRenderer{}
	v := New(r, nil, config.Default())
	v.Tick(0.016)
	require.Len(t, r.frames, 1)
	assert.Nil(t, r.frames[0].Scene)
	assert.Empty(t, r.frames[0].Emitters)
	assert.Equal(t, StatusEmpty, v.Status())
}

func TestLoadDerivesRigAndMaterials(t *testing.T) {
	v, r := loaded(t, pavilion)
	st := v.State()

	assert.Contains(t, r.calls, "upload")
	assert.NotNil(t, st.Classified)
	assert.NotNil(t, st.Materials)
	assert.NotEmpty(t, v.Rig().ByGroup(rig.GroupEdge))
	assert.Len(t, v.Rig().ByGroup(rig.GroupBase), 1)
	assert.Len(t, v.Rig().ByGroup(rig.GroupWash), 1)
	assert.True(t, v.Camera().HasSnapshot())

	loadedBytes, total := v.Progress()
	assert.Equal(t, int64(len(pavilion)), total)
	assert.Equal(t, total, loadedBytes)

	// guide layer starts hidden
	assert.False(t, v.ListLayers()[layerIndex(t, v, "Emitters")].Visible)

	v.Tick(0.016)
	assert.Same(t, v.Scene(), r.lastFrame().Scene)
}

func TestSingleRibbonFallbackRig(t *testing.T) {
	v, _ := loaded(t, ribbonOnly)
	edge := v.Rig().ByGroup(rig.GroupEdge)
	// the strip's two ends give one rig each, kept on the strip
	require.Len(t, edge, 2*len(rig.LocalRigOffsets))
	xs := make([]float64, len(edge))
	for i, e := range edge {
		xs[i] = float64(e.Position.X())
	}
	assert.InDeltaSlice(t, []float64{0, 4, 8, 32, 36, 40}, xs, 1e-4)
	shadows := 0
	for _, e := range edge {
		assert.Equal(t, rig.Spot, e.Kind)
		assert.InDelta(t, v.Scene().Bounds.Min.Y()+rig.GroundAimOffset, e.Target.Y(), 1e-5)
		if e.CastsShadow {
			shadows++
		}
	}
	assert.LessOrEqual(t, shadows, rig.MaxEdgeShadowCasters)
}

func TestLinearEffectOnOff(t *testing.T) {
	v, _ := loaded(t, pavilion)
	edgeMesh := v.Scene().MeshesOnLayer(layerIndex(t, v, "Edge LED"))[0]
	var surface *materials.Surface
	for _, s := range v.State().Materials.Linear.Surfaces() {
		if s.Mesh == edgeMesh {
			surface = s
		}
	}
	require.NotNil(t, surface)
	assert.Same(t, surface.Off, edgeMesh.Material)

	v.SetLinearEffect(effects.PinkPulse)
	v.Tick(0.25)
	assert.Same(t, surface.Animated, edgeMesh.Material)
	for _, e := range v.Rig().Emitters {
		if e.Group.Linear() {
			assert.Greater(t, e.Intensity, float32(0))
			assert.True(t, e.Visible)
		}
	}

	v.SetLinearEffect(effects.Off)
	v.Tick(0.016)
	assert.Same(t, surface.Off, edgeMesh.Material)
	for _, e := range v.Rig().Emitters {
		if e.Group.Linear() {
			assert.Zero(t, e.Intensity)
			assert.False(t, e.Visible)
		}
	}
}

func TestEffectSelectedBeforeLoadIsApplied(t *testing.T) {
	r := &fakeRenderer{}
	v := New(r, nil, config.Default())
	v.SetWashEffect(effects.Ocean)
	require.NoError(t, v.Load(writeModel(t, pavilion)))
	waitForLoad(t, v)

	assert.Equal(t, effects.Ocean, v.State().Materials.Wash.Effect())
	v.Tick(0.016)
	wash := v.Rig().ByGroup(rig.GroupWash)
	require.Len(t, wash, 1)
	assert.Greater(t, wash[0].Intensity, float32(0))
}

func TestIntensityScalesWithGroupSetting(t *testing.T) {
	v, _ := loaded(t, pavilion)
	v.SetLinearEffect(effects.White)
	v.Tick(0.016)
	base := v.Rig().ByGroup(rig.GroupBase)[0]
	before := base.Intensity

	s := v.Settings()
	s.BaseLightIntensity *= 2
	v.SetLightSettings(s)
	v.Tick(0.016)
	assert.InDelta(t, before*2, base.Intensity, 1e-3)
}

func TestZeroGlowGatesLinearGroup(t *testing.T) {
	v, _ := loaded(t, pavilion)
	v.SetLinearEffect(effects.White)
	v.SetWashEffect(effects.White)

	s := v.Settings()
	s.GlowIntensity = 0
	v.SetLightSettings(s)
	v.Tick(0.016)

	assert.False(t, v.State().Materials.Linear.On())
	assert.True(t, v.State().Materials.Wash.On())
	for _, e := range v.Rig().Emitters {
		if e.Group.Linear() {
			assert.Zero(t, e.Intensity)
		} else {
			assert.Greater(t, e.Intensity, float32(0))
		}
	}
	// the selection survives the gate
	assert.Equal(t, effects.White, v.LinearEffect())
}

func TestLayerToggleRespectsFollowFlag(t *testing.T) {
	v, _ := loaded(t, pavilion)
	v.SetLinearEffect(effects.White)
	v.Tick(0.016)

	edge := v.Rig().ByGroup(rig.GroupEdge)
	base := v.Rig().ByGroup(rig.GroupBase)
	require.NotEmpty(t, edge)
	require.Len(t, base, 1)
	for _, e := range edge {
		require.False(t, e.FollowsSourceVisibility, "guide rig emitters stay independent of layers")
	}

	v.SetLayerVisible(layerIndex(t, v, "Base Lights"), false)
	v.SetLayerVisible(layerIndex(t, v, "Edge LED"), false)
	v.Tick(0.016)

	assert.False(t, base[0].Visible)
	for _, e := range edge {
		assert.True(t, e.Visible)
	}
	for _, m := range v.Scene().MeshesOnLayer(layerIndex(t, v, "Edge LED")) {
		assert.False(t, m.Visible)
	}

	v.ShowAll()
	v.Tick(0.016)
	assert.True(t, base[0].Visible)
	for _, l := range v.ListLayers() {
		assert.True(t, l.Visible)
	}

	v.HideAll()
	for _, m := range v.Scene().Meshes {
		assert.False(t, m.Visible)
	}
}

func TestShowHideAllUseLayerIndices(t *testing.T) {
	s := scene.New("sparse")
	s.Layers = []scene.SceneLayer{{Index: 2, Name: "Roof", Visible: true}, {Index: 5, Name: "Sod", Visible: true}}
	roof := &scene.Mesh{Name: "roof", LayerIndex: 2, Visible: true}
	sod := &scene.Mesh{Name: "sod", LayerIndex: 5, Visible: true}
	s.AddMesh(roof)
	s.AddMesh(sod)

	v := New(&fakeRenderer{}, nil, config.Default())
	v.state.Scene = s

	v.HideAll()
	for _, l := range v.ListLayers() {
		assert.False(t, l.Visible, "layer %s", l.Name)
	}
	assert.False(t, roof.Visible)
	assert.False(t, sod.Visible)

	v.ShowAll()
	assert.True(t, roof.Visible)
	assert.True(t, sod.Visible)
}

func TestSetLayerVisibleIgnoresUnknownIndex(t *testing.T) {
	v, _ := loaded(t, pavilion)
	before := v.ListLayers()
	v.SetLayerVisible(99, false)
	v.SetLayerVisible(-1, false)
	assert.Equal(t, before, v.ListLayers())

	empty := New(&fakeRenderer{}, nil, config.Default())
	empty.SetLayerVisible(0, false)
	assert.Nil(t, empty.ListLayers())
}

func TestResetCameraRestoresLoadPose(t *testing.T) {
	v, _ := loaded(t, pavilion)
	cam := v.Camera()
	pose := cam.Pose()
	pos := cam.Position

	v.ResetCamera()
	assert.Equal(t, pose, cam.Pose())
	assert.Equal(t, pos, cam.Position)

	cam.Rotate(200, 50)
	cam.Zoom(3)
	for i := 0; i < 30; i++ {
		v.Tick(1.0 / 60)
	}
	require.NotEqual(t, pose, cam.Pose())

	v.ResetCamera()
	assert.Equal(t, pose, cam.Pose())
	v.Tick(1.0 / 60)
	assert.Equal(t, pose, cam.Pose())
}

func TestResetCameraBeforeLoadIsNoop(t *testing.T) {
	v := New(&fakeRenderer{}, nil, config.Default())
	pose := v.Camera().Pose()
	v.ResetCamera()
	assert.Equal(t, pose, v.Camera().Pose())
}

func TestLoadFailureLeavesViewerEmpty(t *testing.T) {
	r := &fakeRenderer{}
	v := New(r, nil, config.Default())
	require.NoError(t, v.Load(filepath.Join(t.TempDir(), "missing.obj")))
	waitForLoad(t, v)

	assert.Equal(t, StatusFailed, v.Status())
	assert.Nil(t, v.Scene())
	assert.Nil(t, v.Rig())
	v.Tick(0.016)
	assert.Nil(t, r.lastFrame().Scene)

	assert.ErrorIs(t, v.Load(writeModel(t, pavilion)), ErrLoadStarted)
}

func TestUploadFailureLeavesViewerEmpty(t *testing.T) {
	r := &fakeRenderer{uploadErr: errors.New("out of memory")}
	v := New(r, nil, config.Default())
	require.NoError(t, v.Load(writeModel(t, pavilion)))
	waitForLoad(t, v)

	assert.Equal(t, StatusFailed, v.Status())
	assert.Nil(t, v.Scene())
	assert.Nil(t, v.State().Materials)
	assert.Equal(t, []string{"upload", "release"}, r.calls)
}

func TestDisposeOrder(t *testing.T) {
	v, r := loaded(t, pavilion)
	r.calls = nil
	v.Dispose()
	assert.Equal(t, []string{"lights", "shaders", "postprocess", "release"}, r.calls)

	frames := len(r.frames)
	v.Tick(0.016)
	assert.Len(t, r.frames, frames)

	v.Dispose()
	assert.Len(t, r.calls, 4)
	assert.ErrorIs(t, v.Load("other.obj"), ErrLoadStarted)
}

func TestDisposeWhileLoading(t *testing.T) {
	r := &fakeRenderer{}
	v := New(r, nil, config.Default())
	require.NoError(t, v.Load(writeModel(t, pavilion)))
	v.Dispose()
	assert.Equal(t, []string{"shaders", "postprocess"}, r.calls)
	v.Tick(0.016)
	assert.Empty(t, r.frames)
}
