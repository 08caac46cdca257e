package renderer

import (
	"fmt"

	"Canopy3D/internal/config"
	"Canopy3D/internal/logger"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"
)

// PostProcessConfig holds the renderer-level quality knobs. Bloom strength,
// radius and threshold come from LightSettings every frame.
type PostProcessConfig struct {
	// Bloom buffers are allocated at this fraction of the window size
	ResolutionScale float32 `json:"resolutionScale"`
	// Blur passes at radius 1; radius 0 always runs one pass
	MaxBlurPasses int     `json:"maxBlurPasses"`
	Exposure      float32 `json:"exposure"`
}

// DefaultPostProcessConfig returns sensible defaults for a desktop GPU
func DefaultPostProcessConfig() PostProcessConfig {
	return PostProcessConfig{
		ResolutionScale: 0.5,
		MaxBlurPasses:   5,
		Exposure:        1.0,
	}
}

// HighQualityPostProcessConfig blooms at full resolution
func HighQualityPostProcessConfig() PostProcessConfig {
	config := DefaultPostProcessConfig()
	config.ResolutionScale = 1.0
	config.MaxBlurPasses = 8
	return config
}

// PerformancePostProcessConfig keeps bloom cheap on integrated GPUs
func PerformancePostProcessConfig() PostProcessConfig {
	config := DefaultPostProcessConfig()
	config.ResolutionScale = 0.25
	config.MaxBlurPasses = 3
	return config
}

// PostProcessPreset looks a preset up by name.
func PostProcessPreset(name string) (PostProcessConfig, error) {
	switch name {
	case "", "default":
		return DefaultPostProcessConfig(), nil
	case "high":
		return HighQualityPostProcessConfig(), nil
	case "performance":
		return PerformancePostProcessConfig(), nil
	}
	return PostProcessConfig{}, fmt.Errorf("unknown quality preset %q", name)
}

// bloomPass is the per-frame bloom state derived from settings.
type bloomPass struct {
	enabled   bool
	strength  float32
	threshold float32
	passes    int
	spread    float32 // blur tap spacing in texels
}

func bloomFromSettings(s config.LightSettings, cfg PostProcessConfig) bloomPass {
	radius := clamp01(s.BloomRadius)
	maxPasses := max(cfg.MaxBlurPasses, 1)
	return bloomPass{
		enabled:   s.BloomStrength > 0,
		strength:  s.BloomStrength,
		threshold: clamp01(s.BloomThreshold),
		passes:    1 + int(radius*float32(maxPasses-1)+0.5),
		spread:    1 + radius*2,
	}
}

// scaledSize returns a buffer size that is never zero.
func scaledSize(width, height int32, scale float32) (int32, int32) {
	w := int32(float32(width) * scale)
	h := int32(float32(height) * scale)
	return max(w, 1), max(h, 1)
}

func clamp01(v float32) float32 {
	return min(max(v, 0), 1)
}

// PostProcess renders the scene into an HDR target, extracts and blurs the
// bright parts and composites them back with tone mapping.
type PostProcess struct {
	config PostProcessConfig
	width  int32
	height int32

	hdrFBO    uint32
	hdrColor  uint32
	hdrDepth  uint32
	pingFBO   [2]uint32
	pingColor [2]uint32
	bloomW    int32
	bloomH    int32
	quadVAO   uint32
	quadVBO   uint32
	bright    *Shader
	blur      *Shader
	composite *Shader
	disposed  bool
}

func newPostProcess(width, height int32, cfg PostProcessConfig) (*PostProcess, error) {
	p := &PostProcess{config: cfg}
	var unwind Unwind
	defer unwind.Unwind()

	p.bright = NewShader("bloom-bright", quadVertexShaderSource, brightFragmentShaderSource)
	p.blur = NewShader("bloom-blur", quadVertexShaderSource, blurFragmentShaderSource)
	p.composite = NewShader("bloom-composite", quadVertexShaderSource, compositeFragmentShaderSource)
	for _, s := range []*Shader{p.bright, p.blur, p.composite} {
		if err := s.Compile(); err != nil {
			return nil, err
		}
		unwind.Add(s.Delete)
	}

	quad := []float32{-1, -1, 1, -1, 1, 1, -1, -1, 1, 1, -1, 1}
	gl.GenVertexArrays(1, &p.quadVAO)
	gl.GenBuffers(1, &p.quadVBO)
	unwind.Add(func() {
		gl.DeleteVertexArrays(1, &p.quadVAO)
		gl.DeleteBuffers(1, &p.quadVBO)
	})
	gl.BindVertexArray(p.quadVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, p.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(quad)*4, gl.Ptr(quad), gl.STATIC_DRAW)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 2*4, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(0)
	gl.BindVertexArray(0)

	if err := p.allocate(width, height); err != nil {
		return nil, err
	}

	unwind.Discard()
	logger.Log.Info("Post-process initialized",
		zap.Int32("width", width), zap.Int32("height", height),
		zap.Float32("bloomScale", cfg.ResolutionScale))
	return p, nil
}

// allocate (re)creates the size-dependent targets.
func (p *PostProcess) allocate(width, height int32) error {
	p.releaseTargets()
	p.width, p.height = max(width, 1), max(height, 1)

	gl.GenFramebuffers(1, &p.hdrFBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, p.hdrFBO)
	p.hdrColor = newColorTexture(p.width, p.height)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, p.hdrColor, 0)
	gl.GenRenderbuffers(1, &p.hdrDepth)
	gl.BindRenderbuffer(gl.RENDERBUFFER, p.hdrDepth)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, p.width, p.height)
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, p.hdrDepth)
	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		return fmt.Errorf("hdr framebuffer incomplete: 0x%x", status)
	}

	p.bloomW, p.bloomH = scaledSize(p.width, p.height, p.config.ResolutionScale)
	gl.GenFramebuffers(2, &p.pingFBO[0])
	for i := range p.pingFBO {
		gl.BindFramebuffer(gl.FRAMEBUFFER, p.pingFBO[i])
		p.pingColor[i] = newColorTexture(p.bloomW, p.bloomH)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, p.pingColor[i], 0)
		if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
			gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
			return fmt.Errorf("bloom framebuffer incomplete: 0x%x", status)
		}
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return nil
}

func newColorTexture(width, height int32) uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA16F, width, height, 0, gl.RGBA, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	return tex
}

func (p *PostProcess) releaseTargets() {
	if p.hdrFBO != 0 {
		gl.DeleteFramebuffers(1, &p.hdrFBO)
		gl.DeleteTextures(1, &p.hdrColor)
		gl.DeleteRenderbuffers(1, &p.hdrDepth)
		p.hdrFBO, p.hdrColor, p.hdrDepth = 0, 0, 0
	}
	if p.pingFBO[0] != 0 {
		gl.DeleteFramebuffers(2, &p.pingFBO[0])
		gl.DeleteTextures(2, &p.pingColor[0])
		p.pingFBO, p.pingColor = [2]uint32{}, [2]uint32{}
	}
}

// Resize reallocates the targets when the window size changes.
func (p *PostProcess) Resize(width, height int32) {
	if p.disposed || (width == p.width && height == p.height) {
		return
	}
	if err := p.allocate(width, height); err != nil {
		logger.Log.Error("Post-process resize failed", zap.Error(err))
	}
}

// Begin redirects scene drawing into the HDR target.
func (p *PostProcess) Begin() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, p.hdrFBO)
	gl.Viewport(0, 0, p.width, p.height)
}

// End runs the bloom chain and composites into the default framebuffer.
func (p *PostProcess) End(settings config.LightSettings) {
	bloom := bloomFromSettings(settings, p.config)
	gl.Disable(gl.DEPTH_TEST)
	gl.BindVertexArray(p.quadVAO)

	if bloom.enabled {
		gl.Viewport(0, 0, p.bloomW, p.bloomH)
		gl.BindFramebuffer(gl.FRAMEBUFFER, p.pingFBO[0])
		p.bright.Use()
		p.bright.SetInt("sceneTexture", 0)
		p.bright.SetFloat("threshold", bloom.threshold)
		gl.ActiveTexture(gl.TEXTURE0)
		gl.BindTexture(gl.TEXTURE_2D, p.hdrColor)
		gl.DrawArrays(gl.TRIANGLES, 0, 6)

		p.blur.Use()
		p.blur.SetInt("source", 0)
		p.blur.SetFloat("radius", bloom.spread)
		src := 0
		for i := 0; i < bloom.passes*2; i++ {
			dst := 1 - src
			gl.BindFramebuffer(gl.FRAMEBUFFER, p.pingFBO[dst])
			if i%2 == 0 {
				p.blur.uniforms.SetVec2("direction", 1, 0)
			} else {
				p.blur.uniforms.SetVec2("direction", 0, 1)
			}
			gl.BindTexture(gl.TEXTURE_2D, p.pingColor[src])
			gl.DrawArrays(gl.TRIANGLES, 0, 6)
			src = dst
		}
		gl.ActiveTexture(gl.TEXTURE1)
		gl.BindTexture(gl.TEXTURE_2D, p.pingColor[src])
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, p.width, p.height)
	p.composite.Use()
	p.composite.SetInt("sceneTexture", 0)
	p.composite.SetInt("bloomTexture", 1)
	strength := float32(0)
	if bloom.enabled {
		strength = bloom.strength
	}
	p.composite.SetFloat("bloomStrength", strength)
	p.composite.SetFloat("exposure", p.config.Exposure)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, p.hdrColor)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)

	gl.BindVertexArray(0)
	gl.ActiveTexture(gl.TEXTURE0)
}

// Dispose frees every GPU object. It is safe to call twice.
func (p *PostProcess) Dispose() {
	if p.disposed {
		return
	}
	p.disposed = true
	p.releaseTargets()
	gl.DeleteVertexArrays(1, &p.quadVAO)
	gl.DeleteBuffers(1, &p.quadVBO)
	for _, s := range []*Shader{p.bright, p.blur, p.composite} {
		s.Delete()
	}
	logger.Log.Info("Post-process disposed")
}
