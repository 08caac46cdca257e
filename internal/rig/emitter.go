package rig

import (
	"fmt"

	"Canopy3D/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

type Kind int

const (
	Spot Kind = iota
	Point
)

func (k Kind) String() string {
	if k == Point {
		return "point"
	}
	return "spot"
}

// Group is the lighting group an emitter belongs to.
type Group int

const (
	GroupEdge Group = iota
	GroupBase
	GroupWash
)

func (g Group) String() string {
	switch g {
	case GroupEdge:
		return "edge-led"
	case GroupBase:
		return "base-lights"
	case GroupWash:
		return "wash-lights"
	}
	return "unknown"
}

// Linear reports whether the group follows the linear effect selection.
// Edge and base lights share it, wash lights have their own.
func (g Group) Linear() bool {
	return g == GroupEdge || g == GroupBase
}

// Emitter is a synthesized light. Placement fields are fixed at synthesis;
// Color, Intensity and Visible are rewritten by the frame loop.
type Emitter struct {
	ID    string
	Kind  Kind
	Group Group

	Position  mgl32.Vec3
	Target    mgl32.Vec3 // aim point, spots only
	HasTarget bool
	Throw     float32 // effective throw, also the light range
	ConeAngle float32 // degrees, spots only
	Penumbra  float32

	BaseIntensity float32
	Phase         float32 // [0,1), stable for the session

	Source                  *scene.Mesh
	FollowsSourceVisibility bool
	CastsShadow             bool

	// per frame
	Color     mgl32.Vec3
	Intensity float32
	Visible   bool
}

// Direction is the unit vector from position to target. Point lights and
// degenerate targets point straight down.
func (e *Emitter) Direction() mgl32.Vec3 {
	if !e.HasTarget {
		return mgl32.Vec3{0, -1, 0}
	}
	d := e.Target.Sub(e.Position)
	if d.Len() == 0 {
		return mgl32.Vec3{0, -1, 0}
	}
	return d.Normalize()
}

var emitterNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("canopy3d/emitter"))

// emitterID derives a stable id so repeated loads of the same model name
// their emitters identically.
func emitterID(g Group, index int, source *scene.Mesh) string {
	name := ""
	if source != nil {
		name = source.Name
	}
	return uuid.NewSHA1(emitterNamespace, []byte(fmt.Sprintf("%s/%d/%s", g, index, name))).String()
}

// Rig is every emitter synthesized for one loaded model.
type Rig struct {
	Emitters []*Emitter
}

func (r *Rig) ByGroup(g Group) []*Emitter {
	if r == nil {
		return nil
	}
	var out []*Emitter
	for _, e := range r.Emitters {
		if e.Group == g {
			out = append(out, e)
		}
	}
	return out
}

// ShadowCasters returns the emitters flagged to render a shadow map.
func (r *Rig) ShadowCasters() []*Emitter {
	if r == nil {
		return nil
	}
	var out []*Emitter
	for _, e := range r.Emitters {
		if e.CastsShadow {
			out = append(out, e)
		}
	}
	return out
}

func (r *Rig) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Emitters)
}
