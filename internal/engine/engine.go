// Package engine hosts the viewer in a glfw window: it owns the frame loop,
// translates mouse and keyboard input into viewer calls and tears
// everything down in order when the window closes.
package engine

import (
	"fmt"
	"path/filepath"
	"runtime"

	"Canopy3D/internal/camera"
	"Canopy3D/internal/config"
	"Canopy3D/internal/effects"
	"Canopy3D/internal/logger"
	"Canopy3D/internal/renderer"
	"Canopy3D/internal/viewer"

	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"
)

type Options struct {
	Width       int32
	Height      int32
	Settings    config.LightSettings
	PostProcess renderer.PostProcessConfig
	VSync       bool

	// Effects selected at startup, applied once the model loads
	LinearEffect effects.ID
	WashEffect   effects.ID
}

func DefaultOptions() Options {
	return Options{
		Width:       1280,
		Height:      720,
		Settings:    config.Default(),
		PostProcess: renderer.DefaultPostProcessConfig(),
		VSync:       true,

		LinearEffect: effects.Off,
		WashEffect:   effects.Off,
	}
}

type Canopy struct {
	Width  int32
	Height int32

	// SettingsChan is drained once per frame on the render thread.
	SettingsChan chan config.LightSettings

	opts     Options
	window   *glfw.Window
	renderer *renderer.OpenGLRenderer
	viewer   *viewer.Viewer
	input    orbitInput

	model     string
	lastTitle string
}

func NewCanopy(opts Options) *Canopy {
	return &Canopy{
		Width:        opts.Width,
		Height:       opts.Height,
		SettingsChan: make(chan config.LightSettings, 8),
		opts:         opts,
	}
}

// Run opens the window, starts loading model (if set) and blocks until the
// window closes. It must be called from the main goroutine.
func (c *Canopy) Run(model string) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("init glfw: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.Decorated, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.DepthBits, 24)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(int(c.Width), int(c.Height), "Canopy3D", nil, nil)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer window.Destroy()
	c.window = window
	window.MakeContextCurrent()
	if c.opts.VSync {
		glfw.SwapInterval(1)
	}
	setDarkTitleBar(window)

	fbw, fbh := window.GetFramebufferSize()
	c.renderer = renderer.NewOpenGLRenderer(c.opts.PostProcess)
	if err := c.renderer.Init(int32(fbw), int32(fbh)); err != nil {
		return err
	}

	cam := camera.NewDefaultCamera(int32(fbw), int32(fbh))
	c.viewer = viewer.New(c.renderer, cam, c.opts.Settings)
	c.viewer.SetLinearEffect(c.opts.LinearEffect)
	c.viewer.SetWashEffect(c.opts.WashEffect)

	c.attachInput()
	window.SetFramebufferSizeCallback(c.onResize)

	if model != "" {
		c.model = filepath.Base(model)
		if err := c.viewer.Load(model); err != nil {
			logger.Log.Error("Could not start load", zap.String("path", model), zap.Error(err))
		}
	}

	c.loop()
	c.teardown()
	return nil
}

func (c *Canopy) loop() {
	lastTime := glfw.GetTime()
	for !c.window.ShouldClose() {
		now := glfw.GetTime()
		dt := now - lastTime
		lastTime = now

		c.drainSettings()
		c.viewer.Tick(dt)
		c.updateTitle()

		c.window.SwapBuffers()
		glfw.PollEvents()
	}
}

func (c *Canopy) drainSettings() {
	for {
		select {
		case s := <-c.SettingsChan:
			c.viewer.SetLightSettings(s)
		default:
			return
		}
	}
}

// teardown runs after the frame loop has stopped: input handlers, then the
// resize observer, then everything the viewer owns.
func (c *Canopy) teardown() {
	c.detachInput()
	c.window.SetFramebufferSizeCallback(nil)
	c.viewer.Dispose()
	logger.Log.Info("Canopy3D closed")
}

func (c *Canopy) onResize(_ *glfw.Window, width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.Width, c.Height = int32(width), int32(height)
	c.viewer.Camera().SetAspectRatio(float32(width) / float32(height))
	c.renderer.UpdateViewport(int32(width), int32(height))
}

func (c *Canopy) updateTitle() {
	title := windowTitle(c.model, c.viewer)
	if title != c.lastTitle {
		c.window.SetTitle(title)
		c.lastTitle = title
	}
}

func windowTitle(model string, v *viewer.Viewer) string {
	if model == "" {
		return "Canopy3D"
	}
	switch v.Status() {
	case viewer.StatusLoading:
		loaded, total := v.Progress()
		if total > 0 {
			return fmt.Sprintf("Canopy3D - %s (loading %d%%)", model, loaded*100/total)
		}
		return fmt.Sprintf("Canopy3D - %s (loading)", model)
	case viewer.StatusFailed:
		return fmt.Sprintf("Canopy3D - %s (failed)", model)
	}
	return "Canopy3D - " + model
}
