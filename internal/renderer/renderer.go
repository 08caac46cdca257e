// Package renderer is the OpenGL 4.1 backend of the viewer: lit and
// emissive mesh shaders, spot shadow maps, a bloom post-process, the ground
// plane and debug markers.
package renderer

import (
	"Canopy3D/internal/rig"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

var FrustumCullingEnabled bool = true
var FaceCullingEnabled bool = false
var DepthTestEnabled bool = true
var ClearColorR float32 = 0.02
var ClearColorG float32 = 0.02
var ClearColorB float32 = 0.035

// Shader array sizes. Emitters beyond these are skipped for the frame; the
// rig never synthesizes more.
const (
	MaxSpotLights   = rig.MaxSpotEmitters
	MaxPointLights  = rig.MaxWashEmitters
	MaxShadowMaps   = 5
	ShadowMapSize   = 1024
	GroundPadding   = 1.5 // ground plane extent relative to the model footprint
	MarkerPointSize = 8.0
)

// lightBlock is the packed uniform data of every emitter drawn this frame.
type lightBlock struct {
	spots  []spotLight
	points []pointLight
}

type spotLight struct {
	position  mgl32.Vec3
	direction mgl32.Vec3
	color     mgl32.Vec3 // premultiplied by intensity
	rangeDist float32
	cosOuter  float32
	cosInner  float32
	shadow    int32 // shadow map slot, -1 for none
}

type pointLight struct {
	position  mgl32.Vec3
	color     mgl32.Vec3
	rangeDist float32
}

// packLights selects the visible, lit emitters in rig order and converts
// them to shader form. shadowSlot maps an emitter id to its shadow map.
func packLights(emitters []*rig.Emitter, shadowSlot map[string]int) lightBlock {
	var b lightBlock
	for _, e := range emitters {
		if !e.Visible || e.Intensity <= 0 {
			continue
		}
		color := e.Color.Mul(e.Intensity)
		switch e.Kind {
		case rig.Spot:
			if len(b.spots) == MaxSpotLights {
				continue
			}
			outer := mgl32.DegToRad(e.ConeAngle)
			inner := outer * (1 - mgl32.Clamp(e.Penumbra, 0, 1))
			slot := int32(-1)
			if s, ok := shadowSlot[e.ID]; ok {
				slot = int32(s)
			}
			b.spots = append(b.spots, spotLight{
				position:  e.Position,
				direction: e.Direction(),
				color:     color,
				rangeDist: e.Throw,
				cosOuter:  math32.Cos(outer),
				cosInner:  math32.Cos(inner),
				shadow:    slot,
			})
		case rig.Point:
			if len(b.points) == MaxPointLights {
				continue
			}
			b.points = append(b.points, pointLight{position: e.Position, color: color, rangeDist: e.Throw})
		}
	}
	return b
}
