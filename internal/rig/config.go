package rig

// Edge Rig: guide curves
const (
	// GuideMinLength below which a guide's endpoints count as coincident
	GuideMinLength = 1e-3

	// GuideSampleLimit bounds the farthest-pair search on dense guides
	GuideSampleLimit = 64
)

// GuideRigFractions are the interior positions along a guide axis
var GuideRigFractions = []float32{0.25, 0.5, 0.75}

// Edge Rig: fallback sampling
const (
	// FallbackSamplesPerMesh is candidates drawn from each edge mesh
	FallbackSamplesPerMesh = 8

	// FallbackMaxRigs caps canopy candidates kept after band filtering
	FallbackMaxRigs = 4

	// CanopyBandRatio is the band depth as a fraction of model height
	CanopyBandRatio = 0.08

	// LocalRigSpacingRatio spaces local rig lights as a fraction of the
	// source mesh's horizontal extent
	LocalRigSpacingRatio = 0.1
)

// LocalRigOffsets place a fallback rig's lights along the mesh axis,
// in units of the local spacing
var LocalRigOffsets = []float32{-1, 0, 1}

// Edge Rig: photometry
const (
	// GroundAimOffset lifts aim targets off the model floor
	GroundAimOffset = 0.05

	// ThrowPadding is added to the mount-to-target distance
	ThrowPadding = 0.5

	// ThrowExtensionScale stretches the padded throw
	ThrowExtensionScale = 1.25

	// EdgeTargetLux is the heuristic ground illuminance per rig
	EdgeTargetLux = 6.0

	// MinEdgeIntensity is the absolute intensity floor
	MinEdgeIntensity = 2.0

	// EdgeFloorSizeRatio scales the floor with model size
	EdgeFloorSizeRatio = 0.4

	// MaxEdgeEmitters caps the whole edge group
	MaxEdgeEmitters = 24

	// MaxEdgeShadowCasters bounds shadow-map passes for the edge group
	MaxEdgeShadowCasters = 4

	// EdgeConeAngle is the spot half angle in degrees
	EdgeConeAngle = 35.0

	// EdgePenumbra softens the spot edge, fraction of the cone
	EdgePenumbra = 0.35
)

// Base Lights
const (
	BaseThrowPadding     = 0.25
	BaseExtensionScale   = 1.1
	BaseTargetLux        = 4.0
	MinBaseIntensity     = 1.5
	MaxBaseShadowCasters = 1
	BaseConeAngle        = 45.0
	BasePenumbra         = 0.5
	MaxBaseEmitters      = 8
)

// MaxSpotEmitters is the spot budget shared by the edge and base groups,
// sized to what one frame can draw. Base lights are placed first; the edge
// group gets what remains.
const MaxSpotEmitters = 32

// Wash Lights
const (
	// WashPadding is added to height above ground before falloff
	WashPadding = 1.0

	// WashFalloffExponent differs from the edge rig's square law
	WashFalloffExponent = 1.5

	WashTargetLux    = 3.0
	MinWashIntensity = 1.0

	// WashMergeRatio merges candidates closer than this fraction of model size
	WashMergeRatio = 0.02

	// WashRangeScale converts padded height to point light range
	WashRangeScale = 3.0

	MaxWashEmitters = 24
)

// Config carries the heuristic tuning values. DefaultConfig returns the
// package constants; tests override single fields.
type Config struct {
	GuideMinLength    float32
	GuideSampleLimit  int
	GuideRigFractions []float32

	FallbackSamplesPerMesh int
	FallbackMaxRigs        int
	CanopyBandRatio        float32
	LocalRigSpacingRatio   float32
	LocalRigOffsets        []float32

	GroundAimOffset      float32
	ThrowPadding         float32
	ThrowExtensionScale  float32
	EdgeTargetLux        float32
	MinEdgeIntensity     float32
	EdgeFloorSizeRatio   float32
	MaxEdgeEmitters      int
	MaxEdgeShadowCasters int
	EdgeConeAngle        float32
	EdgePenumbra         float32

	BaseThrowPadding     float32
	BaseExtensionScale   float32
	BaseTargetLux        float32
	MinBaseIntensity     float32
	MaxBaseShadowCasters int
	BaseConeAngle        float32
	BasePenumbra         float32
	MaxBaseEmitters      int
	MaxSpotEmitters      int

	WashPadding         float32
	WashFalloffExponent float32
	WashTargetLux       float32
	MinWashIntensity    float32
	WashMergeRatio      float32
	WashRangeScale      float32
	MaxWashEmitters     int

	UVSampleLimit int
}

func DefaultConfig() Config {
	return Config{
		GuideMinLength:    GuideMinLength,
		GuideSampleLimit:  GuideSampleLimit,
		GuideRigFractions: append([]float32(nil), GuideRigFractions...),

		FallbackSamplesPerMesh: FallbackSamplesPerMesh,
		FallbackMaxRigs:        FallbackMaxRigs,
		CanopyBandRatio:        CanopyBandRatio,
		LocalRigSpacingRatio:   LocalRigSpacingRatio,
		LocalRigOffsets:        append([]float32(nil), LocalRigOffsets...),

		GroundAimOffset:      GroundAimOffset,
		ThrowPadding:         ThrowPadding,
		ThrowExtensionScale:  ThrowExtensionScale,
		EdgeTargetLux:        EdgeTargetLux,
		MinEdgeIntensity:     MinEdgeIntensity,
		EdgeFloorSizeRatio:   EdgeFloorSizeRatio,
		MaxEdgeEmitters:      MaxEdgeEmitters,
		MaxEdgeShadowCasters: MaxEdgeShadowCasters,
		EdgeConeAngle:        EdgeConeAngle,
		EdgePenumbra:         EdgePenumbra,

		BaseThrowPadding:     BaseThrowPadding,
		BaseExtensionScale:   BaseExtensionScale,
		BaseTargetLux:        BaseTargetLux,
		MinBaseIntensity:     MinBaseIntensity,
		MaxBaseShadowCasters: MaxBaseShadowCasters,
		BaseConeAngle:        BaseConeAngle,
		BasePenumbra:         BasePenumbra,
		MaxBaseEmitters:      MaxBaseEmitters,
		MaxSpotEmitters:      MaxSpotEmitters,

		WashPadding:         WashPadding,
		WashFalloffExponent: WashFalloffExponent,
		WashTargetLux:       WashTargetLux,
		MinWashIntensity:    MinWashIntensity,
		WashMergeRatio:      WashMergeRatio,
		WashRangeScale:      WashRangeScale,
		MaxWashEmitters:     MaxWashEmitters,

		UVSampleLimit: UVSampleLimit,
	}
}

// UVSampleLimit caps UV samples gathered per group for phase lookup
const UVSampleLimit = 512

// EdgeFloor is the minimum base intensity of an edge emitter for a model of
// the given size.
func (c Config) EdgeFloor(modelSize float32) float32 {
	return max(c.MinEdgeIntensity, c.EdgeFloorSizeRatio*modelSize)
}
