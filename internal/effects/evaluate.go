package effects

import (
	"math"

	"github.com/aquilax/go-perlin"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/lucasb-eyer/go-colorful"
)

// Temporal angular frequencies in rad/s at speed 1. Multi-term effects use
// integer multiples of their base so every effect stays periodic.
const (
	PulseOmega  = 2.0
	WaveOmega   = 3.0
	RippleOmega = 3.0
	FireOmega   = 5.0
	OceanOmega  = 2.0
	AuroraOmega = 1.5
)

// Spatial frequencies, in cycles per unit phase.
const (
	WaveSpatial   = 1.0
	RippleSpatial = 2.0
)

// MinimumFloor is the lowest intensity multiplier any effect other than
// "off" can produce.
const MinimumFloor = 0.1

const (
	fireNoiseAmplitude = 0.1
	fireNoiseRadius    = 1.7
	fireNoiseSeed      = 1337
	auroraHueLow       = 120.0
	auroraHueSpan      = 160.0
)

var fireNoise = perlin.NewPerlin(2, 2, 3, fireNoiseSeed)

// Sample is the evaluated state of one effect at one instant.
type Sample struct {
	Color     mgl32.Vec3
	Intensity float32
}

// Period returns the effect's temporal period in seconds at the given speed.
// Zero means the effect is constant in time.
func Period(id ID, speed float64) float64 {
	omega := baseOmega(id)
	if omega == 0 || speed <= 0 {
		return 0
	}
	return 2 * math.Pi / (omega * speed)
}

// Range returns the documented [min, max] intensity multiplier of an effect.
func Range(id ID) (float32, float32) {
	def, ok := library[id]
	if !ok {
		return 0, 0
	}
	switch def.shader {
	case ShaderPulse, ShaderFire:
		return 0.3, 1.0
	case ShaderWave, ShaderRainbowWave, ShaderOcean:
		return 0.2, 1.0
	case ShaderRipple, ShaderRainbowRipple, ShaderAurora:
		return 0.1, 1.0
	}
	return 1.0, 1.0
}

func baseOmega(id ID) float64 {
	def, ok := library[id]
	if !ok {
		return 0
	}
	switch def.shader {
	case ShaderPulse:
		return PulseOmega
	case ShaderWave, ShaderRainbowWave:
		return WaveOmega
	case ShaderRipple, ShaderRainbowRipple:
		return RippleOmega
	case ShaderFire:
		return FireOmega
	case ShaderOcean:
		return OceanOmega
	case ShaderAurora:
		return AuroraOmega
	}
	return 0
}

// cycle returns omega*t*speed reduced into [0, 2pi).
func cycle(t, speed, omega float64) float64 {
	return omega * wrapTime(t, speed, omega)
}

// wrapTime reduces t*speed modulo the period 2pi/omega. Reducing before
// scaling keeps t and t+k*period numerically identical.
func wrapTime(t, speed, omega float64) float64 {
	if omega == 0 {
		return 0
	}
	period := 2 * math.Pi / omega
	tt := math.Mod(t*speed, period)
	if tt < 0 {
		tt += period
	}
	return tt
}

// ShaderTime is the time uniform for the emissive shader: scaled time
// reduced modulo the effect's base period, so float32 keeps its precision
// over long sessions. The shader multiplies it by the effect's omega.
func ShaderTime(id ID, t, speed float64) float32 {
	return float32(wrapTime(t, speed, baseOmega(id)))
}

// Omega is the base angular frequency the shader applies to ShaderTime.
func Omega(id ID) float32 {
	return float32(baseOmega(id))
}

// Evaluate maps an effect, a time in seconds, a phase in [0,1) and a speed
// scale to a colour and an intensity multiplier. It is pure: equal inputs
// always give equal outputs. "off" and unknown ids yield zero intensity.
func Evaluate(id ID, t float64, phase float32, speed float64) Sample {
	def, ok := library[id]
	if !ok {
		return Sample{}
	}
	p := float64(phase)
	a := cycle(t, speed, baseOmega(id))
	tau := 2 * math.Pi

	switch def.shader {
	case ShaderPulse:
		return Sample{def.base, f32(0.65 + 0.35*math.Sin(a+tau*p))}
	case ShaderWave:
		return Sample{def.base, f32(waveTerm(tau*WaveSpatial*p + a))}
	case ShaderRipple:
		return Sample{def.base, f32(rippleTerm(tau*RippleSpatial*p - a))}
	case ShaderRainbowWave:
		hue := frac(p + a/tau)
		return Sample{hueColor(hue*360, 1), f32(waveTerm(tau*WaveSpatial*p + a))}
	case ShaderRainbowRipple:
		hue := frac(RippleSpatial*p - a/tau)
		return Sample{hueColor(hue*360, 1), f32(rippleTerm(tau*RippleSpatial*p - a))}
	case ShaderFire:
		n := clamp(fireNoise.Noise2D(math.Cos(a)*fireNoiseRadius+7*p, math.Sin(a)*fireNoiseRadius), -1, 1)
		i := fireSines(a, p) + fireNoiseAmplitude*n
		return Sample{fireColor(i), f32(i)}
	case ShaderOcean:
		i := oceanTerm(a, p)
		return Sample{oceanColor(i), f32(i)}
	case ShaderAurora:
		i := 0.55 + 0.3*math.Sin(tau*p+a) + 0.15*math.Sin(3*tau*p+2*a)
		return Sample{auroraColor(a, p), f32(i)}
	}
	return Sample{def.base, 1}
}

// Surface mirrors the emissive GLSL: it evaluates the effect at UV
// coordinate u instead of a precomputed phase. The shader runs against the
// opposite coordinate direction, so Surface(id, t, u, s) matches
// Evaluate(id, t, InvertPhase(u), s). Fire replaces the Perlin term with the
// cheaper analytic flicker the shader uses.
func Surface(id ID, t float64, u float32, speed float64) Sample {
	def, ok := library[id]
	if !ok {
		return Sample{}
	}
	uu := float64(u)
	a := cycle(t, speed, baseOmega(id))
	tau := 2 * math.Pi

	switch def.shader {
	case ShaderPulse:
		return Sample{def.base, f32(0.65 + 0.35*math.Sin(a-tau*uu))}
	case ShaderWave:
		return Sample{def.base, f32(waveTerm(a - tau*WaveSpatial*uu))}
	case ShaderRipple:
		return Sample{def.base, f32(rippleTerm(-tau*RippleSpatial*uu - a))}
	case ShaderRainbowWave:
		hue := frac(1 - uu + a/tau)
		return Sample{hueColor(hue*360, 1), f32(waveTerm(a - tau*WaveSpatial*uu))}
	case ShaderRainbowRipple:
		hue := frac(RippleSpatial*(1-uu) - a/tau)
		return Sample{hueColor(hue*360, 1), f32(rippleTerm(-tau*RippleSpatial*uu - a))}
	case ShaderFire:
		i := fireSines(a, 1-uu) + fireNoiseAmplitude*math.Sin(3*a+17*uu)
		return Sample{fireColor(i), f32(i)}
	case ShaderOcean:
		i := oceanTerm(a, 1-uu)
		return Sample{oceanColor(i), f32(i)}
	case ShaderAurora:
		i := 0.55 + 0.3*math.Sin(a-tau*uu) + 0.15*math.Sin(2*a-3*tau*uu)
		return Sample{auroraColor(a, 1-uu), f32(i)}
	}
	return Sample{def.base, 1}
}

// InvertPhase converts between the emitter and surface phase conventions,
// keeping the result in [0,1).
func InvertPhase(u float32) float32 {
	return float32(frac(1 - float64(u)))
}

func waveTerm(x float64) float64   { return 0.6 + 0.4*math.Sin(x) }
func rippleTerm(x float64) float64 { return 0.55 + 0.45*math.Sin(x) }

func fireSines(a, p float64) float64 {
	return 0.65 + 0.15*math.Sin(a+2*math.Pi*p) + 0.1*math.Sin(2*a+4*math.Pi*p+1.3)
}

func oceanTerm(a, p float64) float64 {
	return 0.6 + 0.25*math.Sin(2*math.Pi*p+a) + 0.15*math.Sin(4*math.Pi*p-2*a)
}

func fireColor(i float64) mgl32.Vec3 {
	t := clamp((i-0.3)/0.7, 0, 1)
	return blend(ColorFireOrange, ColorFireYellow, t)
}

func oceanColor(i float64) mgl32.Vec3 {
	t := clamp((i-0.2)/0.8, 0, 1)
	return blend(ColorOceanDeep, ColorOceanCyan, t)
}

func auroraColor(a, p float64) mgl32.Vec3 {
	h := auroraHueLow + auroraHueSpan*(0.5+0.5*math.Sin(2*math.Pi*p+a+math.Pi/2))
	return hueColor(h, 0.75)
}

func hueColor(h, s float64) mgl32.Vec3 {
	c := colorful.Hsv(h, s, 1).Clamped()
	return mgl32.Vec3{float32(c.R), float32(c.G), float32(c.B)}
}

func blend(a, b mgl32.Vec3, t float64) mgl32.Vec3 {
	ca := colorful.Color{R: float64(a[0]), G: float64(a[1]), B: float64(a[2])}
	cb := colorful.Color{R: float64(b[0]), G: float64(b[1]), B: float64(b[2])}
	c := ca.BlendRgb(cb, t)
	return mgl32.Vec3{float32(c.R), float32(c.G), float32(c.B)}
}

func frac(x float64) float64 {
	f := x - math.Floor(x)
	if f >= 1 {
		return 0
	}
	return f
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func f32(x float64) float32 { return float32(x) }
