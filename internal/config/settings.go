// Package config holds the LightSettings record the host pushes into the
// viewer, its defaults and presets, and file persistence with hot reload.
package config

// LightSettings is replaced as a whole on every change. Values are not
// clamped; callers keep them inside the documented ranges.
type LightSettings struct {
	// Scene lighting, >= 0
	AmbientIntensity     float32 `json:"ambientIntensity" toml:"ambient_intensity"`
	DirectionalIntensity float32 `json:"directionalIntensity" toml:"directional_intensity"`

	// Per-group emitter scalars, >= 0
	EdgeLightIntensity float32 `json:"edgeLightIntensity" toml:"edge_light_intensity"`
	BaseLightIntensity float32 `json:"baseLightIntensity" toml:"base_light_intensity"`
	WashLightIntensity float32 `json:"washLightIntensity" toml:"wash_light_intensity"`

	// Emissive surfaces, >= 0. A glow of zero turns the linear group off.
	GlowIntensity float32 `json:"glowIntensity" toml:"glow_intensity"`

	// Animation speed scale, > 0
	EffectSpeed float32 `json:"effectSpeed" toml:"effect_speed"`

	// Bloom post-process
	BloomStrength  float32 `json:"bloomStrength" toml:"bloom_strength"`   // >= 0
	BloomRadius    float32 `json:"bloomRadius" toml:"bloom_radius"`       // [0,1]
	BloomThreshold float32 `json:"bloomThreshold" toml:"bloom_threshold"` // [0,1]

	// Exponential fog, >= 0
	FogDensity float32 `json:"fogDensity" toml:"fog_density"`

	ShowGround bool `json:"showGround" toml:"show_ground"`

	// Debug draws emitter markers and aim lines
	Debug bool `json:"debug" toml:"debug"`
}

// Default returns the settings a viewer starts with.
func Default() LightSettings {
	return LightSettings{
		AmbientIntensity:     0.25,
		DirectionalIntensity: 0.4,

		EdgeLightIntensity: 1.0,
		BaseLightIntensity: 1.0,
		WashLightIntensity: 1.0,

		GlowIntensity: 1.5,
		EffectSpeed:   1.0,

		BloomStrength:  0.9,
		BloomRadius:    0.4,
		BloomThreshold: 0.6,

		FogDensity: 0.002,
		ShowGround: true,
		Debug:      false,
	}
}

// NightPreset darkens the scene so the emitters dominate.
func NightPreset() LightSettings {
	s := Default()
	s.AmbientIntensity = 0.05
	s.DirectionalIntensity = 0.05
	s.BloomStrength = 1.4
	s.BloomThreshold = 0.4
	s.FogDensity = 0.006
	return s
}

// DaylightPreset keeps effects visible under strong scene light.
func DaylightPreset() LightSettings {
	s := Default()
	s.AmbientIntensity = 0.6
	s.DirectionalIntensity = 1.2
	s.BloomStrength = 0.4
	s.BloomThreshold = 0.85
	s.FogDensity = 0
	return s
}

// Preset looks a preset up by name. ok is false for unknown names.
func Preset(name string) (LightSettings, bool) {
	switch name {
	case "", "default":
		return Default(), true
	case "night":
		return NightPreset(), true
	case "daylight":
		return DaylightPreset(), true
	}
	return LightSettings{}, false
}
