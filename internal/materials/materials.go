// Package materials builds the per-role material variants of a classified
// scene and swaps emissive meshes between their powered-down and animated
// materials as effects are selected.
package materials

import (
	"Canopy3D/internal/effects"
	"Canopy3D/internal/layers"
	"Canopy3D/internal/logger"
	"Canopy3D/internal/scene"

	"go.uber.org/zap"
)

// GlowEpsilon is the glow intensity at or below which the linear group
// renders as if its effect were off.
const GlowEpsilon = 1e-3

type Group int

const (
	GroupLinear Group = iota
	GroupWash
)

func (g Group) String() string {
	if g == GroupWash {
		return "wash"
	}
	return "linear"
}

// Surface pairs an emissive mesh with its two materials. Exactly one of
// Animated and Off is the mesh's active material.
type Surface struct {
	Mesh     *scene.Mesh
	Shader   *scene.EmissiveShader
	Animated *scene.Material
	Off      *scene.Material
	Group    Group
}

// GroupController is the OFF / ON(effect) state machine of one group.
type GroupController struct {
	group    Group
	uniforms *scene.EmissiveUniforms
	surfaces []*Surface
	gated    bool // near-zero glow forces OFF

	effect effects.ID
	glow   float32
	on     bool
}

func newGroupController(g Group, gated bool) *GroupController {
	return &GroupController{
		group:    g,
		uniforms: &scene.EmissiveUniforms{Speed: 1, GlowIntensity: 1},
		gated:    gated,
		effect:   effects.Off,
		glow:     1,
	}
}

// SetEffect selects the group's effect and swaps materials if the on/off
// state changes. Unknown ids are treated as off.
func (g *GroupController) SetEffect(id effects.ID) {
	if !effects.Known(id) {
		id = effects.Off
	}
	g.effect = id
	g.apply()
}

// SetGlow updates the glow uniform. On a gated group a glow at or below
// GlowEpsilon switches the group off without forgetting the effect.
func (g *GroupController) SetGlow(glow float32) {
	g.glow = glow
	g.uniforms.GlowIntensity = glow
	g.apply()
}

func (g *GroupController) SetSpeed(speed float32) {
	g.uniforms.Speed = speed
}

// Effective is the effect the group currently displays: the selection, or
// off while glow gating holds the group down.
func (g *GroupController) Effective() effects.ID {
	if g.gated && g.glow <= GlowEpsilon {
		return effects.Off
	}
	return g.effect
}

func (g *GroupController) Effect() effects.ID { return g.effect }
func (g *GroupController) On() bool           { return g.on }

func (g *GroupController) Surfaces() []*Surface { return g.surfaces }

func (g *GroupController) Uniforms() *scene.EmissiveUniforms { return g.uniforms }

func (g *GroupController) apply() {
	eff := g.Effective()
	on := eff != effects.Off
	if on {
		_, shader, base := effects.Visual(eff)
		g.uniforms.EffectType = int32(shader)
		g.uniforms.BaseColor = base
		g.uniforms.Omega = effects.Omega(eff)
	}
	if on == g.on {
		return
	}
	g.on = on
	for _, s := range g.surfaces {
		if on {
			s.Mesh.Material = s.Animated
		} else {
			s.Mesh.Material = s.Off
		}
	}
}

// Update advances the group's time uniform. Groups that are off keep their
// last time.
func (g *GroupController) Update(t float64) {
	if !g.on {
		return
	}
	g.uniforms.Time = effects.ShaderTime(g.Effective(), t, float64(g.uniforms.Speed))
}

// Controller owns both group state machines and every variant material it
// built for a scene.
type Controller struct {
	Linear *GroupController
	Wash   *GroupController
}

// New constructs the variant materials for every classified mesh and
// leaves both emissive groups off.
func New(c *layers.Classified) *Controller {
	ctl := &Controller{
		Linear: newGroupController(GroupLinear, true),
		Wash:   newGroupController(GroupWash, false),
	}
	if c == nil {
		return ctl
	}
	for _, role := range roleOrder {
		for _, m := range c.ByRole(role) {
			switch role {
			case layers.RoleEdgeLight, layers.RoleBaseLight:
				ctl.Linear.surfaces = append(ctl.Linear.surfaces, newSurface(m, ctl.Linear))
			case layers.RoleWashLight:
				ctl.Wash.surfaces = append(ctl.Wash.surfaces, newSurface(m, ctl.Wash))
			default:
				m.Material = Variant(role, m.Imported)
			}
		}
	}
	logger.Log.Debug("Prepared emissive surfaces",
		zap.Int("linear", len(ctl.Linear.surfaces)),
		zap.Int("wash", len(ctl.Wash.surfaces)))
	return ctl
}

var roleOrder = []layers.Role{
	layers.RoleEdgeLight, layers.RoleBaseLight, layers.RoleWashLight,
	layers.RoleFace, layers.RoleGuide, layers.RoleLandscape, layers.RoleGround,
	layers.RoleSemiGloss, layers.RolePeople, layers.RoleOther,
}

func newSurface(m *scene.Mesh, g *GroupController) *Surface {
	src := m.Imported
	if src == nil {
		src = scene.NewDefaultMaterial()
	}
	shader := scene.NewEmissiveShader(g.uniforms)
	animated := src.Clone()
	animated.Variant = scene.VariantAnimatedShader
	animated.Name = src.Name + ".fx"
	animated.Shader = shader

	s := &Surface{
		Mesh:     m,
		Shader:   shader,
		Animated: animated,
		Off:      src.PoweredDown(),
		Group:    g.group,
	}
	m.Material = s.Off
	return s
}

// Variant builds the static material for a non-emissive role. The imported
// material is cloned, never modified.
func Variant(role layers.Role, imported *scene.Material) *scene.Material {
	if imported == nil {
		return scene.NewDefaultMaterial()
	}
	m := imported.Clone()
	switch role {
	case layers.RoleFace, layers.RoleGround, layers.RoleLandscape:
		m.Variant = scene.VariantLowReflectivity
		m.SetPlastic(0.85)
		m.EmissiveIntensity = 0
	case layers.RoleSemiGloss:
		m.Variant = scene.VariantSemiGloss
		m.SetSemiGloss()
	case layers.RolePeople:
		m.Variant = scene.VariantMatteFigure
		m.SetMatte()
	default:
		m.Variant = scene.VariantImported
	}
	return m
}

// Update advances the time uniform of both groups.
func (c *Controller) Update(t float64) {
	c.Linear.Update(t)
	c.Wash.Update(t)
}

// Dispose releases every shader instance and returns how many were live.
func (c *Controller) Dispose() int {
	n := 0
	for _, g := range []*GroupController{c.Linear, c.Wash} {
		for _, s := range g.surfaces {
			if !s.Shader.Disposed {
				s.Shader.Disposed = true
				n++
			}
			s.Animated.Shader = nil
		}
	}
	return n
}
