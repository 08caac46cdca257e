package effects

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// ID names an entry of the effect library.
type ID string

const (
	Off           ID = "off"
	White         ID = "white"
	PinkSolid     ID = "pink-solid"
	PinkPulse     ID = "pink-pulse"
	PinkWave      ID = "pink-wave"
	PinkRipple    ID = "pink-ripple"
	BlueSolid     ID = "blue-solid"
	BluePulse     ID = "blue-pulse"
	BlueWave      ID = "blue-wave"
	BlueRipple    ID = "blue-ripple"
	RainbowWave   ID = "rainbow-wave"
	RainbowRipple ID = "rainbow-ripple"
	Fire          ID = "fire"
	Ocean         ID = "ocean"
	Aurora        ID = "aurora"
)

// HueFamily is the base colour family an effect draws from.
type HueFamily int

const (
	FamilyNone HueFamily = iota
	FamilyPink
	FamilyBlue
	FamilyRainbowWhite
	FamilyFireOrange
	FamilyOceanCyan
	FamilyAuroraGreen
)

func (f HueFamily) String() string {
	switch f {
	case FamilyPink:
		return "pink"
	case FamilyBlue:
		return "blue"
	case FamilyRainbowWhite:
		return "rainbow-white"
	case FamilyFireOrange:
		return "fire-orange"
	case FamilyOceanCyan:
		return "ocean-cyan"
	case FamilyAuroraGreen:
		return "aurora-green"
	}
	return "none"
}

// ShaderEffect is the effect-type enum uploaded to the emissive shader. The
// numeric values are part of the GLSL contract.
type ShaderEffect int32

const (
	ShaderSolid ShaderEffect = iota
	ShaderPulse
	ShaderWave
	ShaderRipple
	ShaderRainbowWave
	ShaderRainbowRipple
	ShaderFire
	ShaderOcean
	ShaderAurora
)

func (s ShaderEffect) String() string {
	switch s {
	case ShaderSolid:
		return "solid"
	case ShaderPulse:
		return "pulse"
	case ShaderWave:
		return "wave"
	case ShaderRipple:
		return "ripple"
	case ShaderRainbowWave:
		return "rainbow-wave"
	case ShaderRainbowRipple:
		return "rainbow-ripple"
	case ShaderFire:
		return "fire"
	case ShaderOcean:
		return "ocean"
	case ShaderAurora:
		return "aurora"
	}
	return "unknown"
}

// Base colours per hue family
var (
	ColorPink       = mgl32.Vec3{1.0, 0.2, 0.6}
	ColorBlue       = mgl32.Vec3{0.15, 0.35, 1.0}
	ColorWhite      = mgl32.Vec3{1.0, 1.0, 1.0}
	ColorFireOrange = mgl32.Vec3{1.0, 0.45, 0.05}
	ColorFireYellow = mgl32.Vec3{1.0, 0.8, 0.25}
	ColorOceanDeep  = mgl32.Vec3{0.0, 0.3, 0.8}
	ColorOceanCyan  = mgl32.Vec3{0.0, 0.9, 1.0}
	ColorAurora     = mgl32.Vec3{0.2, 1.0, 0.5}
)

type definition struct {
	family HueFamily
	shader ShaderEffect
	base   mgl32.Vec3
}

var library = map[ID]definition{
	White:         {FamilyRainbowWhite, ShaderSolid, ColorWhite},
	PinkSolid:     {FamilyPink, ShaderSolid, ColorPink},
	PinkPulse:     {FamilyPink, ShaderPulse, ColorPink},
	PinkWave:      {FamilyPink, ShaderWave, ColorPink},
	PinkRipple:    {FamilyPink, ShaderRipple, ColorPink},
	BlueSolid:     {FamilyBlue, ShaderSolid, ColorBlue},
	BluePulse:     {FamilyBlue, ShaderPulse, ColorBlue},
	BlueWave:      {FamilyBlue, ShaderWave, ColorBlue},
	BlueRipple:    {FamilyBlue, ShaderRipple, ColorBlue},
	RainbowWave:   {FamilyRainbowWhite, ShaderRainbowWave, ColorWhite},
	RainbowRipple: {FamilyRainbowWhite, ShaderRainbowRipple, ColorWhite},
	Fire:          {FamilyFireOrange, ShaderFire, ColorFireOrange},
	Ocean:         {FamilyOceanCyan, ShaderOcean, ColorOceanCyan},
	Aurora:        {FamilyAuroraGreen, ShaderAurora, ColorAurora},
}

// order is the cycling order exposed to host UIs.
var order = []ID{
	Off, White,
	PinkSolid, PinkPulse, PinkWave, PinkRipple,
	BlueSolid, BluePulse, BlueWave, BlueRipple,
	RainbowWave, RainbowRipple,
	Fire, Ocean, Aurora,
}

// All lists every effect id, "off" first.
func All() []ID {
	out := make([]ID, len(order))
	copy(out, order)
	return out
}

// Known reports whether id is in the library. "off" is known.
func Known(id ID) bool {
	if id == Off {
		return true
	}
	_, ok := library[id]
	return ok
}

// Parse accepts an effect name from a host UI, tolerating case and
// surrounding whitespace.
func Parse(s string) (ID, bool) {
	id := ID(strings.ToLower(strings.TrimSpace(s)))
	return id, Known(id)
}

// Next returns the effect after id in cycling order, wrapping to "off".
func Next(id ID) ID {
	for i, o := range order {
		if o == id {
			return order[(i+1)%len(order)]
		}
	}
	return Off
}

// Visual maps an effect to what the emissive shader needs: its hue family,
// shader effect type and base colour. Unknown ids and "off" map to a black
// solid.
func Visual(id ID) (HueFamily, ShaderEffect, mgl32.Vec3) {
	def, ok := library[id]
	if !ok {
		return FamilyNone, ShaderSolid, mgl32.Vec3{}
	}
	return def.family, def.shader, def.base
}
