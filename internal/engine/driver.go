// Package engine runs the interactive window: it owns the glfw window and
// GL context, turns input into a Session and drives the water pipeline
// once per displayed frame.
package engine

import (
	"fmt"
	"runtime"

	"GopherWater/internal/config"
	"GopherWater/internal/gpu"
	"GopherWater/internal/gpu/opengl"
	"GopherWater/internal/logger"
	"GopherWater/internal/water"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"
)

const windowTitle = "GopherWater"

// maxFrameTime keeps a stalled frame (window drag, breakpoint) from
// turning into one huge physics step.
const maxFrameTime = 0.1

type Driver struct {
	cfg     config.Config
	window  *glfw.Window
	session *Session
	runner  *Runner
}

func NewDriver(cfg config.Config) *Driver {
	return &Driver{cfg: cfg, session: NewSession(cfg.Width, cfg.Height)}
}

// Run opens the window and blocks until it is closed or the pipeline fails
// for good. It must be called from the main goroutine.
func (d *Driver) Run() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("engine: init glfw: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.Decorated, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.DepthBits, 24)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(d.cfg.Width, d.cfg.Height, windowTitle, nil, nil)
	if err != nil {
		return fmt.Errorf("engine: create window: %w", err)
	}
	defer window.Destroy()
	d.window = window
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		return fmt.Errorf("engine: init OpenGL: %w", err)
	}
	glfw.SwapInterval(1)
	logger.Log.Info("OpenGL ready",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))))

	d.runner, err = NewRunner(d.cfg.MaxRecreate, d.build)
	if err != nil {
		return err
	}
	defer d.runner.Close()

	d.bindInput()
	return d.loop()
}

// build creates the GL device at the framebuffer size and a pipeline on it.
func (d *Driver) build() (gpu.Device, *water.Pipeline, error) {
	fbw, fbh := d.window.GetFramebufferSize()
	dev, err := opengl.New(fbw, fbh)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: %w", err)
	}
	cfg := d.cfg
	cfg.Width, cfg.Height = fbw, fbh
	pipe, err := water.New(dev, cfg)
	if err != nil {
		dev.Close()
		return nil, nil, err
	}
	return dev, pipe, nil
}

func (d *Driver) bindInput() {
	d.window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	w, h := d.window.GetSize()
	d.session.Resize(w, h)

	d.window.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		d.session.CursorMove(x, y)
	})
	d.window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		if action == glfw.Repeat {
			return
		}
		x, y := w.GetCursorPos()
		switch button {
		case glfw.MouseButtonLeft:
			d.session.Button(ButtonLeft, action == glfw.Press, x, y)
		case glfw.MouseButtonRight:
			d.session.Button(ButtonRight, action == glfw.Press, x, y)
		}
	})
	d.window.SetScrollCallback(func(_ *glfw.Window, _, dy float64) {
		d.session.Scroll(dy)
	})
	d.window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeySpace:
			d.session.Press(KeyPause)
		case glfw.Key1:
			d.session.Press(KeySky1)
		case glfw.Key2:
			d.session.Press(KeySky2)
		case glfw.Key3:
			d.session.Press(KeySky3)
		case glfw.Key4:
			d.session.Press(KeySky4)
		}
	})
	d.window.SetSizeCallback(func(_ *glfw.Window, width, height int) {
		d.session.Resize(width, height)
	})
}

func (d *Driver) loop() error {
	lastTime := glfw.GetTime()
	lastWidth, lastHeight := d.window.GetFramebufferSize()
	frames := 0

	for !d.window.ShouldClose() {
		now := glfw.GetTime()
		dt := now - lastTime
		lastTime = now
		if dt > maxFrameTime {
			dt = maxFrameTime
		}

		if w, h := d.window.GetFramebufferSize(); w != lastWidth || h != lastHeight {
			if err := d.runner.Pipeline().Resize(w, h); err != nil {
				logger.Log.Error("Resize failed", zap.Int("width", w), zap.Int("height", h), zap.Error(err))
			}
			lastWidth, lastHeight = w, h
		}

		in := water.FrameInput{DT: float32(dt), Disturbances: d.session.Sample(d.runner.Pipeline())}
		if err := d.runner.Frame(in); err != nil {
			logger.Log.Error("Frame failed", zap.Int("frame", frames), zap.Error(err))
			return err
		}

		d.window.SwapBuffers()
		glfw.PollEvents()
		frames++
		if frames%600 == 0 {
			s := d.runner.Pipeline().Stats()
			logger.Log.Debug("Frame stats",
				zap.Int("frames", s.Frames),
				zap.Int("drops", s.Drops),
				zap.Int("activeTargets", s.Device.Active),
				zap.Int64("activeBytes", s.Device.ActiveBytes))
		}
	}
	return nil
}
