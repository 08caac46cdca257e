package engine

import (
	"Canopy3D/internal/camera"
	"Canopy3D/internal/effects"
	"Canopy3D/internal/logger"
	"Canopy3D/internal/viewer"

	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"
)

// host is the part of the viewer the input bindings drive.
type host interface {
	Camera() *camera.Camera
	ResetCamera()
	LinearEffect() effects.ID
	SetLinearEffect(effects.ID)
	WashEffect() effects.ID
	SetWashEffect(effects.ID)
	ListLayers() []viewer.LayerInfo
	SetLayerVisible(index int, visible bool)
	ShowAll()
	HideAll()
}

// orbitInput tracks the drag state: left button orbits, right button pans.
type orbitInput struct {
	lastX, lastY float64
	rotating     bool
	panning      bool
}

func (in *orbitInput) press(button glfw.MouseButton, action glfw.Action, x, y float64) {
	down := action == glfw.Press
	switch button {
	case glfw.MouseButtonLeft:
		in.rotating = down
	case glfw.MouseButtonRight:
		in.panning = down
	default:
		return
	}
	in.lastX, in.lastY = x, y
}

func (in *orbitInput) move(cam *camera.Camera, x, y float64) {
	dx := float32(x - in.lastX)
	dy := float32(y - in.lastY)
	in.lastX, in.lastY = x, y
	switch {
	case in.rotating:
		cam.Rotate(dx, dy)
	case in.panning:
		cam.Pan(dx, dy)
	}
}

// handleKey applies a key binding. It reports whether the key was bound.
func handleKey(h host, key glfw.Key) bool {
	switch key {
	case glfw.KeyR:
		h.ResetCamera()
	case glfw.KeyE:
		h.SetLinearEffect(effects.Next(h.LinearEffect()))
		logger.Log.Info("Linear effect", zap.String("effect", string(h.LinearEffect())))
	case glfw.KeyW:
		h.SetWashEffect(effects.Next(h.WashEffect()))
		logger.Log.Info("Wash effect", zap.String("effect", string(h.WashEffect())))
	case glfw.KeyA:
		h.ShowAll()
	case glfw.KeyH:
		h.HideAll()
	default:
		if key < glfw.Key1 || key > glfw.Key9 {
			return false
		}
		toggleLayer(h, int(key-glfw.Key1))
	}
	return true
}

// toggleLayer flips the n-th listed layer. Keys past the last layer do
// nothing.
func toggleLayer(h host, n int) {
	layers := h.ListLayers()
	if n >= len(layers) {
		return
	}
	l := layers[n]
	h.SetLayerVisible(l.Index, !l.Visible)
	logger.Log.Debug("Layer toggled", zap.String("layer", l.Name), zap.Bool("visible", !l.Visible))
}

func (c *Canopy) attachInput() {
	c.window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	c.window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		x, y := w.GetCursorPos()
		c.input.press(button, action, x, y)
	})
	c.window.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		c.input.move(c.viewer.Camera(), x, y)
	})
	c.window.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		c.viewer.Camera().Zoom(float32(yoff))
	})
	c.window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		if key == glfw.KeyEscape {
			w.SetShouldClose(true)
			return
		}
		handleKey(c.viewer, key)
	})
}

func (c *Canopy) detachInput() {
	c.window.SetMouseButtonCallback(nil)
	c.window.SetCursorPosCallback(nil)
	c.window.SetScrollCallback(nil)
	c.window.SetKeyCallback(nil)
	c.input = orbitInput{}
}
