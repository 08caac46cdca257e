// Package viewer ties the lighting subsystem together. A Viewer owns all
// mutable animation state; the frame loop (Tick) and the host-facing
// setters both run on the caller's single thread, so nothing here locks.
package viewer

import (
	"errors"
	"sync/atomic"

	"Canopy3D/internal/camera"
	"Canopy3D/internal/config"
	"Canopy3D/internal/effects"
	"Canopy3D/internal/layers"
	"Canopy3D/internal/loader"
	"Canopy3D/internal/logger"
	"Canopy3D/internal/materials"
	"Canopy3D/internal/rig"
	"Canopy3D/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// ErrLoadStarted is returned by Load once a model was requested. Failed
// loads are not retried.
var ErrLoadStarted = errors.New("model load already started")

type Status int

const (
	StatusEmpty Status = iota
	StatusLoading
	StatusLoaded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	}
	return "empty"
}

// Renderer draws frames and owns every GPU resource. Release methods are
// called once, in declaration order, on Dispose.
type Renderer interface {
	Upload(s *scene.Scene) error
	RenderFrame(f *Frame)
	ReleaseLights(emitters []*rig.Emitter)
	ReleaseShaders()
	DisposePostProcess()
	Release(s *scene.Scene)
}

// Frame is everything the renderer needs for one composited frame. Scene is
// nil until a model has loaded.
type Frame struct {
	Scene    *scene.Scene
	Emitters []*rig.Emitter
	Camera   *camera.Camera
	Settings config.LightSettings
}

// LayerInfo is the host-facing view of a scene layer.
type LayerInfo struct {
	Index   int
	Name    string
	Color   mgl32.Vec3
	Visible bool
}

// ViewerState is the single owner of scene, rig, material and animation
// state.
type ViewerState struct {
	Status     Status
	Scene      *scene.Scene
	Classified *layers.Classified
	Rig        *rig.Rig
	Materials  *materials.Controller
	Settings   config.LightSettings
	Linear     effects.ID
	Wash       effects.ID
	Clock      float64
	Camera     *camera.Camera
	RigConfig  rig.Config

	pending     <-chan loader.Result
	loadedBytes atomic.Int64
	totalBytes  atomic.Int64
	disposed    bool
}

type Viewer struct {
	state    ViewerState
	renderer Renderer
}

func New(r Renderer, cam *camera.Camera, settings config.LightSettings) *Viewer {
	if cam == nil {
		cam = camera.NewDefaultCamera(1280, 720)
	}
	v := &Viewer{renderer: r}
	v.state.Camera = cam
	v.state.Settings = settings
	v.state.Linear = effects.Off
	v.state.Wash = effects.Off
	v.state.RigConfig = rig.DefaultConfig()
	return v
}

// State exposes the viewer state for inspection. Callers must not keep it
// across frames.
func (v *Viewer) State() *ViewerState { return &v.state }

func (v *Viewer) Status() Status         { return v.state.Status }
func (v *Viewer) Camera() *camera.Camera { return v.state.Camera }
func (v *Viewer) Scene() *scene.Scene    { return v.state.Scene }
func (v *Viewer) Rig() *rig.Rig          { return v.state.Rig }

func (v *Viewer) Settings() config.LightSettings { return v.state.Settings }

// Progress reports bytes read by the pending load.
func (v *Viewer) Progress() (loaded, total int64) {
	return v.state.loadedBytes.Load(), v.state.totalBytes.Load()
}

// Load starts reading the model in the background. The frame loop keeps
// running with an empty scene until Tick picks up the result.
func (v *Viewer) Load(path string) error {
	st := &v.state
	if st.disposed || st.Status != StatusEmpty {
		return ErrLoadStarted
	}
	st.Status = StatusLoading
	st.pending = loader.LoadAsync(path, func(loaded, total int64) {
		st.loadedBytes.Store(loaded)
		st.totalBytes.Store(total)
		logger.Log.Debug("Loading model", zap.Int64("loaded", loaded), zap.Int64("total", total))
	})
	logger.Log.Info("Loading model", zap.String("path", path))
	return nil
}

// poll collects a finished load without blocking.
func (v *Viewer) poll() {
	st := &v.state
	if st.pending == nil {
		return
	}
	select {
	case res := <-st.pending:
		st.pending = nil
		if res.Err != nil {
			v.fail(res.Err)
			return
		}
		v.onLoaded(res.Scene)
	default:
	}
}

func (v *Viewer) fail(err error) {
	v.state.Status = StatusFailed
	logger.Log.Error("Model load failed, viewer stays empty", zap.Error(err))
}

// onLoaded runs the one-time derivation: classification, rig synthesis,
// material variants, camera framing and GPU upload.
func (v *Viewer) onLoaded(s *scene.Scene) {
	st := &v.state
	st.Classified = layers.ClassifyScene(s)
	st.Rig = rig.Synthesize(st.Classified, s.Bounds, st.RigConfig)
	st.Materials = materials.New(st.Classified)

	if v.renderer != nil {
		if err := v.renderer.Upload(s); err != nil {
			// a partial upload may still hold buffers
			v.renderer.Release(s)
			st.Materials.Dispose()
			st.Classified, st.Rig, st.Materials = nil, nil, nil
			v.fail(err)
			return
		}
	}
	st.Scene = s
	st.Status = StatusLoaded

	v.applySettings()
	st.Materials.Linear.SetEffect(st.Linear)
	st.Materials.Wash.SetEffect(st.Wash)

	st.Camera.FitToBox(s.Bounds)
	st.Camera.Snapshot()

	logger.Log.Info("Model ready",
		zap.Int("layers", len(s.Layers)),
		zap.Int("meshes", len(s.Meshes)),
		zap.Int("emitters", st.Rig.Len()))
}

// Tick advances one frame: clock, shader time, emitter colour and
// intensity, camera damping, then one rendered frame.
func (v *Viewer) Tick(dt float64) {
	st := &v.state
	if st.disposed {
		return
	}
	v.poll()

	st.Clock += dt
	speed := float64(st.Settings.EffectSpeed)

	frame := &Frame{Camera: st.Camera, Settings: st.Settings}
	if st.Status == StatusLoaded {
		st.Materials.Update(st.Clock)
		v.updateEmitters(speed)
		frame.Scene = st.Scene
		frame.Emitters = st.Rig.Emitters
	}

	st.Camera.Update(float32(dt))
	if v.renderer != nil {
		v.renderer.RenderFrame(frame)
	}
}

func (v *Viewer) updateEmitters(speed float64) {
	st := &v.state
	linear := st.Materials.Linear.Effective()
	wash := st.Materials.Wash.Effective()
	for _, e := range st.Rig.Emitters {
		eff := wash
		if e.Group.Linear() {
			eff = linear
		}
		if eff == effects.Off {
			e.Visible = false
			e.Intensity = 0
			continue
		}
		e.Visible = !e.FollowsSourceVisibility || e.Source == nil || e.Source.Visible
		sample := effects.Evaluate(eff, st.Clock, e.Phase, speed)
		e.Color = sample.Color
		e.Intensity = e.BaseIntensity * sample.Intensity * v.groupScalar(e.Group)
	}
}

func (v *Viewer) groupScalar(g rig.Group) float32 {
	s := v.state.Settings
	switch g {
	case rig.GroupEdge:
		return s.EdgeLightIntensity
	case rig.GroupBase:
		return s.BaseLightIntensity
	case rig.GroupWash:
		return s.WashLightIntensity
	}
	return 1
}

// ListLayers returns the scene layers in index order.
func (v *Viewer) ListLayers() []LayerInfo {
	s := v.state.Scene
	if s == nil {
		return nil
	}
	out := make([]LayerInfo, len(s.Layers))
	for i, l := range s.Layers {
		out[i] = LayerInfo{Index: l.Index, Name: l.Name, Color: l.Color, Visible: l.Visible}
	}
	return out
}

// SetLayerVisible shows or hides a layer and every mesh tagged with it.
// Unknown indices are ignored.
func (v *Viewer) SetLayerVisible(index int, visible bool) {
	s := v.state.Scene
	if s == nil {
		return
	}
	l := s.Layer(index)
	if l == nil {
		logger.Log.Debug("Ignoring unknown layer", zap.Int("index", index))
		return
	}
	l.Visible = visible
	for _, m := range s.MeshesOnLayer(index) {
		m.Visible = visible
	}
}

func (v *Viewer) ShowAll() { v.setAll(true) }
func (v *Viewer) HideAll() { v.setAll(false) }

func (v *Viewer) setAll(visible bool) {
	if v.state.Scene == nil {
		return
	}
	for _, l := range v.state.Scene.Layers {
		v.SetLayerVisible(l.Index, visible)
	}
}

// SetLinearEffect selects the effect of the edge and base lights.
func (v *Viewer) SetLinearEffect(id effects.ID) {
	v.state.Linear = id
	if v.state.Materials != nil {
		v.state.Materials.Linear.SetEffect(id)
	}
}

// SetWashEffect selects the effect of the wash lights.
func (v *Viewer) SetWashEffect(id effects.ID) {
	v.state.Wash = id
	if v.state.Materials != nil {
		v.state.Materials.Wash.SetEffect(id)
	}
}

func (v *Viewer) LinearEffect() effects.ID { return v.state.Linear }
func (v *Viewer) WashEffect() effects.ID   { return v.state.Wash }

// SetLightSettings replaces the whole settings record. Rig placement is not
// recomputed; the next frame picks the new values up.
func (v *Viewer) SetLightSettings(s config.LightSettings) {
	v.state.Settings = s
	v.applySettings()
}

func (v *Viewer) applySettings() {
	st := &v.state
	if st.Materials == nil {
		return
	}
	for _, g := range []*materials.GroupController{st.Materials.Linear, st.Materials.Wash} {
		g.SetGlow(st.Settings.GlowIntensity)
		g.SetSpeed(st.Settings.EffectSpeed)
	}
}

// ResetCamera restores the framing captured at load. Before that it does
// nothing.
func (v *Viewer) ResetCamera() {
	v.state.Camera.Reset()
}

// Dispose releases lights, shaders, the post-process pipeline and the scene,
// in that order. The host must stop calling Tick and detach its input and
// resize handlers first.
func (v *Viewer) Dispose() {
	st := &v.state
	if st.disposed {
		return
	}
	st.disposed = true
	st.pending = nil

	lights := 0
	if st.Rig != nil {
		lights = st.Rig.Len()
		if v.renderer != nil {
			v.renderer.ReleaseLights(st.Rig.Emitters)
		}
		st.Rig = nil
	}

	shaders := 0
	if st.Materials != nil {
		shaders = st.Materials.Dispose()
		st.Materials = nil
	}
	if v.renderer != nil {
		v.renderer.ReleaseShaders()
		v.renderer.DisposePostProcess()
		if st.Scene != nil {
			v.renderer.Release(st.Scene)
		}
	}
	st.Scene = nil
	st.Classified = nil
	st.Status = StatusEmpty

	logger.Log.Info("Viewer disposed", zap.Int("lights", lights), zap.Int("shaders", shaders))
}
