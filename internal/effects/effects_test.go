package effects

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testTimes  = []float64{0, 0.13, 1, 2.5, 7.77, 42, 1234.5}
	testPhases = []float32{0, 0.1, 0.25, 0.5, 0.75, 0.999}
	testSpeeds = []float64{0.5, 1, 2.25}
)

func TestOffIsAlwaysDark(t *testing.T) {
	for _, tm := range testTimes {
		for _, p := range testPhases {
			for _, s := range append(testSpeeds, 0, -1) {
				assert.Zero(t, Evaluate(Off, tm, p, s).Intensity)
			}
		}
	}
}

func TestUnknownBehavesLikeOff(t *testing.T) {
	s := Evaluate(ID("strobe"), 1, 0.5, 1)
	assert.Zero(t, s.Intensity)
	assert.Equal(t, mgl32.Vec3{}, s.Color)
	assert.False(t, Known("strobe"))
}

func TestEvaluateIsDeterministic(t *testing.T) {
	for _, id := range All() {
		a := Evaluate(id, 3.21, 0.37, 1.5)
		b := Evaluate(id, 3.21, 0.37, 1.5)
		assert.Equal(t, a, b, id)
	}
}

func TestEffectsArePeriodic(t *testing.T) {
	for _, id := range All() {
		if id == Off {
			continue
		}
		for _, speed := range testSpeeds {
			period := Period(id, speed)
			for _, tm := range testTimes {
				for _, p := range testPhases {
					base := Evaluate(id, tm, p, speed)
					for _, k := range []float64{1, 2, 5} {
						shifted := Evaluate(id, tm+k*period, p, speed)
						assert.InDelta(t, base.Intensity, shifted.Intensity, 1e-3,
							"%s t=%v p=%v k=%v", id, tm, p, k)
					}
				}
			}
		}
	}
}

func TestSolidEffectsHaveNoPeriod(t *testing.T) {
	for _, id := range []ID{White, PinkSolid, BlueSolid} {
		assert.Zero(t, Period(id, 1))
		assert.Equal(t, float32(1), Evaluate(id, 12.3, 0.4, 1).Intensity)
	}
	assert.Zero(t, Period(PinkPulse, 0))
}

func TestPulseSharesFrequencyAcrossFamilies(t *testing.T) {
	assert.Equal(t, Period(PinkPulse, 1), Period(BluePulse, 1))
	assert.InDelta(t, math.Pi, Period(PinkPulse, 1), 1e-9)
	assert.Equal(t, Period(PinkWave, 1), Period(PinkRipple, 1))
}

func TestIntensityStaysInDocumentedRange(t *testing.T) {
	for _, id := range All() {
		if id == Off {
			continue
		}
		lo, hi := Range(id)
		require.Greater(t, lo, float32(0), id)
		require.GreaterOrEqual(t, lo, float32(MinimumFloor), id)
		for i := 0; i < 400; i++ {
			tm := float64(i) * 0.0371
			for _, p := range testPhases {
				v := Evaluate(id, tm, p, 1).Intensity
				assert.GreaterOrEqual(t, v, lo-1e-5, "%s t=%v p=%v", id, tm, p)
				assert.LessOrEqual(t, v, hi+1e-5, "%s t=%v p=%v", id, tm, p)
			}
		}
	}
}

func TestFamilyRanges(t *testing.T) {
	lo, hi := Range(PinkPulse)
	assert.Equal(t, float32(0.3), lo)
	assert.Equal(t, float32(1.0), hi)
	lo, _ = Range(BlueWave)
	assert.Equal(t, float32(0.2), lo)
	lo, _ = Range(PinkRipple)
	assert.Equal(t, float32(0.1), lo)
	lo, hi = Range(Off)
	assert.Zero(t, lo)
	assert.Zero(t, hi)
}

func TestWaveAndRippleTravelInOppositeDirections(t *testing.T) {
	// Advancing time slightly moves the wave crest toward lower phase and the
	// ripple crest toward higher phase.
	const dt = 0.01
	waveNow := Evaluate(PinkWave, 0, 0.25, 1).Intensity
	waveLater := Evaluate(PinkWave, dt, 0.25, 1).Intensity
	rippleNow := Evaluate(PinkRipple, 0, 0.125, 1).Intensity
	rippleLater := Evaluate(PinkRipple, dt, 0.125, 1).Intensity
	// both start at their crest, so both dim, but the neighbours differ
	assert.Less(t, waveLater, waveNow)
	assert.Less(t, rippleLater, rippleNow)

	assert.Greater(t, Evaluate(PinkWave, dt, 0.24, 1).Intensity, Evaluate(PinkWave, dt, 0.26, 1).Intensity)
	assert.Less(t, Evaluate(PinkRipple, dt, 0.12, 1).Intensity, Evaluate(PinkRipple, dt, 0.13, 1).Intensity)
}

func TestSurfaceMatchesEmitterWithInvertedPhase(t *testing.T) {
	for _, id := range All() {
		tolerance := 1e-4
		if id == Fire {
			tolerance = 2*fireNoiseAmplitude + 1e-4
		}
		for _, tm := range testTimes {
			for _, u := range testPhases {
				surf := Surface(id, tm, u, 1)
				emit := Evaluate(id, tm, InvertPhase(u), 1)
				assert.InDelta(t, emit.Intensity, surf.Intensity, tolerance, "%s t=%v u=%v", id, tm, u)
			}
		}
	}
}

func TestInvertPhase(t *testing.T) {
	assert.Equal(t, float32(0), InvertPhase(0))
	assert.InDelta(t, 0.75, InvertPhase(0.25), 1e-6)
	v := InvertPhase(0.9999999)
	assert.GreaterOrEqual(t, v, float32(0))
	assert.Less(t, v, float32(1))
}

func TestVisualMapping(t *testing.T) {
	fam, sh, col := Visual(PinkPulse)
	assert.Equal(t, FamilyPink, fam)
	assert.Equal(t, ShaderPulse, sh)
	assert.Equal(t, ColorPink, col)

	fam, sh, _ = Visual(RainbowRipple)
	assert.Equal(t, FamilyRainbowWhite, fam)
	assert.Equal(t, ShaderRainbowRipple, sh)

	fam, sh, _ = Visual(Aurora)
	assert.Equal(t, FamilyAuroraGreen, fam)
	assert.Equal(t, ShaderAurora, sh)

	fam, sh, col = Visual(Off)
	assert.Equal(t, FamilyNone, fam)
	assert.Equal(t, ShaderSolid, sh)
	assert.Equal(t, mgl32.Vec3{}, col)
}

func TestRainbowCyclesHue(t *testing.T) {
	a := Evaluate(RainbowWave, 0, 0, 1).Color
	b := Evaluate(RainbowWave, 0, 0.33, 1).Color
	assert.NotEqual(t, a, b)
	for _, c := range []mgl32.Vec3{a, b} {
		for i := 0; i < 3; i++ {
			assert.GreaterOrEqual(t, c[i], float32(0))
			assert.LessOrEqual(t, c[i], float32(1))
		}
	}
}

func TestParseAndCycle(t *testing.T) {
	id, ok := Parse("  Pink-Pulse ")
	require.True(t, ok)
	assert.Equal(t, PinkPulse, id)

	_, ok = Parse("disco")
	assert.False(t, ok)

	assert.Equal(t, White, Next(Off))
	assert.Equal(t, Off, Next(Aurora))
	assert.Equal(t, Off, Next("nope"))
	assert.Len(t, All(), 15)
}
