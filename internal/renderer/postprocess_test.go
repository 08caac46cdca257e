package renderer

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"Canopy3D/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func TestBloomFromSettings(t *testing.T) {
	cfg := DefaultPostProcessConfig()
	s := config.Default()

	s.BloomStrength, s.BloomRadius, s.BloomThreshold = 1.2, 0, 0.4
	b := bloomFromSettings(s, cfg)
	assert.True(t, b.enabled)
	assert.Equal(t, 1, b.passes)
	assert.Equal(t, float32(1), b.spread)
	assert.Equal(t, float32(0.4), b.threshold)

	s.BloomRadius = 1
	b = bloomFromSettings(s, cfg)
	assert.Equal(t, cfg.MaxBlurPasses, b.passes)
	assert.Equal(t, float32(3), b.spread)

	s.BloomRadius, s.BloomThreshold = 4, -1
	b = bloomFromSettings(s, cfg)
	assert.Equal(t, cfg.MaxBlurPasses, b.passes, "radius is clamped")
	assert.Equal(t, float32(0), b.threshold)

	s.BloomStrength = 0
	assert.False(t, bloomFromSettings(s, cfg).enabled)
}

func TestBloomPassesFollowPreset(t *testing.T) {
	s := config.Default()
	s.BloomStrength, s.BloomRadius = 1, 1
	assert.Equal(t, 3, bloomFromSettings(s, PerformancePostProcessConfig()).passes)
	assert.Equal(t, 8, bloomFromSettings(s, HighQualityPostProcessConfig()).passes)

	cfg := DefaultPostProcessConfig()
	cfg.MaxBlurPasses = 0
	assert.Equal(t, 1, bloomFromSettings(s, cfg).passes)
}

func TestScaledSizeNeverZero(t *testing.T) {
	w, h := scaledSize(1280, 720, 0.5)
	assert.Equal(t, int32(640), w)
	assert.Equal(t, int32(360), h)

	w, h = scaledSize(1, 1, 0.25)
	assert.Equal(t, int32(1), w)
	assert.Equal(t, int32(1), h)
}

func TestPostProcessPreset(t *testing.T) {
	for name, want := range map[string]PostProcessConfig{
		"":            DefaultPostProcessConfig(),
		"default":     DefaultPostProcessConfig(),
		"high":        HighQualityPostProcessConfig(),
		"performance": PerformancePostProcessConfig(),
	} {
		got, err := PostProcessPreset(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := PostProcessPreset("ultra")
	assert.Error(t, err)
}

func TestDecodeImageFormats(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			src.Set(x, y, color.NRGBA{R: 20, G: 20, B: 20, A: 255})
		}
	}
	src.Set(2, 1, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

	dir := t.TempDir()
	encoders := map[string]func(*os.File) error{
		"tex.bmp":  func(f *os.File) error { return bmp.Encode(f, src) },
		"tex.tiff": func(f *os.File) error { return tiff.Encode(f, src, nil) },
	}
	for name, encode := range encoders {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		require.NoError(t, err)
		require.NoError(t, encode(f))
		require.NoError(t, f.Close())

		rgba, err := decodeImage(path)
		require.NoError(t, err, name)
		assert.Equal(t, image.Rect(0, 0, 3, 2), rgba.Bounds(), name)
		assert.Equal(t, color.RGBA{R: 200, G: 100, B: 50, A: 255}, rgba.RGBAAt(2, 1), name)
	}
}

func TestDecodeImageErrors(t *testing.T) {
	_, err := decodeImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "garbage.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))
	_, err = decodeImage(path)
	assert.Error(t, err)
}
